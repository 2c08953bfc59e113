package astra

import (
	"log/slog"
	"net/http"
)

// Option configures a Store.
type Option func(*Store)

// WithKeyspace sets the keyspace (default "default_keyspace").
func WithKeyspace(ks string) Option {
	return func(s *Store) {
		if ks != "" {
			s.keyspace = ks
		}
	}
}

// WithHTTPClient replaces the HTTP client (default: 60s timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(s *Store) { s.httpClient = c }
}

// WithVectorizeService sets the embedding service used when creating a
// delegated collection whose spec does not name one
// (default nvidia / NV-Embed-QA).
func WithVectorizeService(provider, model string) Option {
	return func(s *Store) {
		s.vectorizeProvider = provider
		s.vectorizeModel = model
	}
}

// WithLogger sets the structured logger. Commands are logged at DEBUG.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}
