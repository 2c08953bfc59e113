package pdfvec

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// rateLimitStore wraps a VectorStore with proactive rate limiting.
// Every call waits for a token before reaching the inner store.
type rateLimitStore struct {
	inner   VectorStore
	limiter *rate.Limiter
}

// WithStoreRateLimit limits s to rpm calls per minute with a burst of one.
// rpm <= 0 returns s unchanged. Compose with other wrappers:
//
//	store = pdfvec.WithStoreRateLimit(pdfvec.WithStoreRetry(astra.New(endpoint, token)), 120)
func WithStoreRateLimit(s VectorStore, rpm int) VectorStore {
	if rpm <= 0 {
		return s
	}
	return &rateLimitStore{inner: s, limiter: perMinute(rpm)}
}

func perMinute(n int) *rate.Limiter {
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1)
}

func (r *rateLimitStore) Name() string { return r.inner.Name() }
func (r *rateLimitStore) Close() error { return r.inner.Close() }

func (r *rateLimitStore) EnsureCollection(ctx context.Context, spec CollectionSpec) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}
	return r.inner.EnsureCollection(ctx, spec)
}

func (r *rateLimitStore) ListCollections(ctx context.Context) ([]string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.ListCollections(ctx)
}

func (r *rateLimitStore) InsertMany(ctx context.Context, collection string, records []ChunkRecord, policy DuplicatePolicy) (InsertResult, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return InsertResult{}, err
	}
	return r.inner.InsertMany(ctx, collection, records, policy)
}

func (r *rateLimitStore) Search(ctx context.Context, collection string, q SearchQuery) ([]Match, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.Search(ctx, collection, q)
}

// rateLimitEmbedding wraps an EmbeddingProvider with proactive rate limiting.
type rateLimitEmbedding struct {
	inner   EmbeddingProvider
	limiter *rate.Limiter
}

// WithEmbeddingRateLimit limits p to rpm Embed calls per minute.
// rpm <= 0 returns p unchanged.
func WithEmbeddingRateLimit(p EmbeddingProvider, rpm int) EmbeddingProvider {
	if rpm <= 0 {
		return p
	}
	return &rateLimitEmbedding{inner: p, limiter: perMinute(rpm)}
}

func (r *rateLimitEmbedding) Name() string    { return r.inner.Name() }
func (r *rateLimitEmbedding) Dimensions() int { return r.inner.Dimensions() }

func (r *rateLimitEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.Embed(ctx, texts)
}

// compile-time checks
var (
	_ VectorStore       = (*rateLimitStore)(nil)
	_ EmbeddingProvider = (*rateLimitEmbedding)(nil)
)
