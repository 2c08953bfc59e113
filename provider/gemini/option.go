package gemini

import (
	"log/slog"
	"net/http"
)

// Option configures a Gemini embedding provider.
type Option func(*Embedding)

// WithTaskType sets the embedding task type (default RETRIEVAL_DOCUMENT).
func WithTaskType(t string) Option {
	return func(e *Embedding) { e.taskType = t }
}

// WithHTTPClient replaces the HTTP client (default: 60s timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(e *Embedding) { e.httpClient = c }
}

// WithLogger sets a structured logger for the provider.
func WithLogger(l *slog.Logger) Option {
	return func(e *Embedding) { e.logger = l }
}
