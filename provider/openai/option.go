package openai

import (
	"log/slog"
	"net/http"
)

// Option configures an OpenAI embedding provider.
type Option func(*Embedding)

// WithBaseURL targets an OpenAI-compatible server instead of api.openai.com.
func WithBaseURL(url string) Option {
	return func(e *Embedding) { e.baseURL = url }
}

// WithName overrides the provider name reported by Name (default "openai").
func WithName(name string) Option {
	return func(e *Embedding) { e.name = name }
}

// WithHTTPClient replaces the HTTP client used by the SDK.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Embedding) { e.httpClient = c }
}

// WithMaxInputTokens sets the per-input token limit (default 8191).
// 0 disables token counting.
func WithMaxInputTokens(n int) Option {
	return func(e *Embedding) { e.maxInputTokens = n }
}

// WithLogger sets a structured logger for the provider.
func WithLogger(l *slog.Logger) Option {
	return func(e *Embedding) { e.logger = l }
}
