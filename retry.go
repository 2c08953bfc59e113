package pdfvec

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"
)

// retryConfig holds the settings shared by the retry wrappers.
type retryConfig struct {
	maxAttempts int
	baseDelay   time.Duration
	timeout     time.Duration // overall timeout across all attempts; 0 = no limit
	logger      *slog.Logger  // nil = nopLogger
}

// RetryOption configures a retry wrapper.
type RetryOption func(*retryConfig)

// RetryMaxAttempts sets the maximum number of attempts (default: 3).
func RetryMaxAttempts(n int) RetryOption {
	return func(r *retryConfig) { r.maxAttempts = n }
}

// RetryBaseDelay sets the initial backoff delay before the second attempt (default: 1s).
// Each subsequent delay doubles: baseDelay, 2×baseDelay, 4×baseDelay, …
func RetryBaseDelay(d time.Duration) RetryOption {
	return func(r *retryConfig) { r.baseDelay = d }
}

// RetryTimeout bounds the whole retry sequence of one call. Zero disables it.
func RetryTimeout(d time.Duration) RetryOption {
	return func(r *retryConfig) { r.timeout = d }
}

// RetryLogger sets the structured logger for retry events. Retries log at
// WARN, exhausted attempts at ERROR.
func RetryLogger(l *slog.Logger) RetryOption {
	return func(r *retryConfig) { r.logger = l }
}

func newRetryConfig(opts []RetryOption) retryConfig {
	cfg := retryConfig{maxAttempts: 3, baseDelay: time.Second}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.maxAttempts < 1 {
		cfg.maxAttempts = 1
	}
	if cfg.logger == nil {
		cfg.logger = nopLogger
	}
	return cfg
}

// withTimeout returns a child context with a deadline if cfg.timeout is set.
// If ctx already has an earlier deadline it is returned unchanged.
func (cfg retryConfig) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if cfg.timeout <= 0 {
		return ctx, func() {}
	}
	deadline := time.Now().Add(cfg.timeout)
	if existing, ok := ctx.Deadline(); ok && existing.Before(deadline) {
		return ctx, func() {}
	}
	return context.WithDeadline(ctx, deadline)
}

// isTransient reports whether err is a retryable HTTP error.
func isTransient(err error) bool {
	var e *ErrHTTP
	if !errors.As(err, &e) {
		return false
	}
	switch e.Status {
	case 429, 502, 503, 504:
		return true
	}
	return false
}

// statusOf extracts the HTTP status code from an ErrHTTP, or 0.
func statusOf(err error) int {
	var e *ErrHTTP
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

// retryAfterOf extracts the Retry-After duration from an ErrHTTP, or 0.
func retryAfterOf(err error) time.Duration {
	var e *ErrHTTP
	if errors.As(err, &e) {
		return e.RetryAfter
	}
	return 0
}

// retryDelay is max(backoff, Retry-After) for attempt i.
func retryDelay(base time.Duration, i int, err error) time.Duration {
	backoff := retryBackoff(base, i)
	if ra := retryAfterOf(err); ra > backoff {
		return ra
	}
	return backoff
}

// retryBackoff returns the delay for retry i (0-indexed).
// Exponential: base * 2^i, plus up to 50% random jitter.
func retryBackoff(base time.Duration, i int) time.Duration {
	exp := base * (1 << i)
	jitter := time.Duration(rand.Int63n(int64(exp)/2 + 1))
	return exp + jitter
}

// retryCall calls fn up to cfg.maxAttempts times, sleeping between transient failures.
func retryCall[T any](ctx context.Context, cfg retryConfig, name, op string, fn func() (T, error)) (T, error) {
	var zero T
	var last error
	for i := 0; i < cfg.maxAttempts; i++ {
		result, err := fn()
		if err == nil || !isTransient(err) {
			return result, err
		}
		last = err
		cfg.logger.Warn("retrying transient error",
			"backend", name,
			"op", op,
			"status", statusOf(err),
			"attempt", i+1,
			"max_attempts", cfg.maxAttempts)
		if i < cfg.maxAttempts-1 {
			timer := time.NewTimer(retryDelay(cfg.baseDelay, i, err))
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
		}
	}
	cfg.logger.Error("all retry attempts exhausted",
		"backend", name,
		"op", op,
		"attempts", cfg.maxAttempts,
		"error", last)
	return zero, last
}

// retryEmbeddingProvider wraps an EmbeddingProvider and retries transient
// HTTP errors with exponential backoff.
type retryEmbeddingProvider struct {
	inner EmbeddingProvider
	cfg   retryConfig
}

// WithEmbeddingRetry wraps p with automatic retry on transient HTTP errors
// (429, 502, 503, 504):
//
//	emb = pdfvec.WithEmbeddingRetry(openai.NewEmbedding(apiKey, model, dims))
//	emb = pdfvec.WithEmbeddingRetry(gemini.NewEmbedding(apiKey, model), pdfvec.RetryMaxAttempts(5))
func WithEmbeddingRetry(p EmbeddingProvider, opts ...RetryOption) EmbeddingProvider {
	return &retryEmbeddingProvider{inner: p, cfg: newRetryConfig(opts)}
}

func (r *retryEmbeddingProvider) Name() string    { return r.inner.Name() }
func (r *retryEmbeddingProvider) Dimensions() int { return r.inner.Dimensions() }

func (r *retryEmbeddingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := r.cfg.withTimeout(ctx)
	defer cancel()
	return retryCall(ctx, r.cfg, r.inner.Name(), "embed", func() ([][]float32, error) {
		return r.inner.Embed(ctx, texts)
	})
}

// retryStore wraps a VectorStore and retries transient HTTP errors.
type retryStore struct {
	inner VectorStore
	cfg   retryConfig
}

// WithStoreRetry wraps s with automatic retry on transient HTTP errors.
// InsertMany is only retried under DuplicateUpsert: a replayed insert under
// DuplicateReject would report the first attempt's records as duplicates.
func WithStoreRetry(s VectorStore, opts ...RetryOption) VectorStore {
	return &retryStore{inner: s, cfg: newRetryConfig(opts)}
}

func (r *retryStore) Name() string { return r.inner.Name() }
func (r *retryStore) Close() error { return r.inner.Close() }

func (r *retryStore) EnsureCollection(ctx context.Context, spec CollectionSpec) error {
	ctx, cancel := r.cfg.withTimeout(ctx)
	defer cancel()
	_, err := retryCall(ctx, r.cfg, r.inner.Name(), "ensure_collection", func() (struct{}, error) {
		return struct{}{}, r.inner.EnsureCollection(ctx, spec)
	})
	return err
}

func (r *retryStore) ListCollections(ctx context.Context) ([]string, error) {
	ctx, cancel := r.cfg.withTimeout(ctx)
	defer cancel()
	return retryCall(ctx, r.cfg, r.inner.Name(), "list_collections", func() ([]string, error) {
		return r.inner.ListCollections(ctx)
	})
}

func (r *retryStore) InsertMany(ctx context.Context, collection string, records []ChunkRecord, policy DuplicatePolicy) (InsertResult, error) {
	if policy == DuplicateReject {
		return r.inner.InsertMany(ctx, collection, records, policy)
	}
	ctx, cancel := r.cfg.withTimeout(ctx)
	defer cancel()
	return retryCall(ctx, r.cfg, r.inner.Name(), "insert_many", func() (InsertResult, error) {
		return r.inner.InsertMany(ctx, collection, records, policy)
	})
}

func (r *retryStore) Search(ctx context.Context, collection string, q SearchQuery) ([]Match, error) {
	ctx, cancel := r.cfg.withTimeout(ctx)
	defer cancel()
	return retryCall(ctx, r.cfg, r.inner.Name(), "search", func() ([]Match, error) {
		return r.inner.Search(ctx, collection, q)
	})
}

// compile-time checks
var (
	_ EmbeddingProvider = (*retryEmbeddingProvider)(nil)
	_ VectorStore       = (*retryStore)(nil)
)
