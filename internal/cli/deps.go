package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	pdfvec "github.com/nevindra/pdfvec"
	"github.com/nevindra/pdfvec/internal/config"
	"github.com/nevindra/pdfvec/observer"
	"github.com/nevindra/pdfvec/provider/resolve"
	"github.com/nevindra/pdfvec/store/astra"
	"github.com/nevindra/pdfvec/store/postgres"
)

// openStore connects the configured backend and stacks the wrappers:
// observation per attempt, then rate limiting, then retry.
func (a *App) openStore(ctx context.Context, cfg config.Config) (pdfvec.VectorStore, error) {
	var store pdfvec.VectorStore
	switch cfg.Store.Backend {
	case "astra":
		timeout := time.Duration(cfg.Astra.TimeoutSeconds) * time.Second
		store = astra.New(cfg.Astra.Endpoint, cfg.Astra.Token,
			astra.WithKeyspace(cfg.Astra.Keyspace),
			astra.WithVectorizeService(cfg.Astra.VectorizeProvider, cfg.Astra.VectorizeModel),
			astra.WithHTTPClient(&http.Client{Timeout: timeout}),
			astra.WithLogger(a.log),
		)
	case "postgres":
		pg, err := postgres.Open(ctx, cfg.Postgres.DSN,
			postgres.WithHNSWM(cfg.Postgres.HNSWM),
			postgres.WithEFConstruction(cfg.Postgres.EFConstruction),
			postgres.WithEFSearch(cfg.Postgres.EFSearch),
		)
		if err != nil {
			return nil, err
		}
		store = pg
	default:
		return nil, &pdfvec.ConfigError{Field: "store.backend", Reason: fmt.Sprintf("unknown backend %q", cfg.Store.Backend)}
	}

	if a.inst != nil {
		store = observer.WrapStore(store, a.inst)
	}
	store = pdfvec.WithStoreRateLimit(store, cfg.Store.RateLimitRPM)
	return pdfvec.WithStoreRetry(store, a.retryOptions(cfg)...), nil
}

// vectorization returns the embedding strategy for cfg. In local mode the
// provider gets the same wrapper stack as the store.
func (a *App) vectorization(cfg config.Config) (pdfvec.Vectorization, error) {
	if cfg.EmbeddingMode() != pdfvec.ModeLocal {
		return pdfvec.DelegatedVectorize{}, nil
	}
	p, err := resolve.EmbeddingProvider(resolve.EmbeddingConfig{
		Provider:   cfg.Embedding.Provider,
		APIKey:     cfg.Embedding.APIKey,
		Model:      cfg.Embedding.Model,
		BaseURL:    cfg.Embedding.BaseURL,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     a.log,
	})
	if err != nil {
		return nil, err
	}
	if a.inst != nil {
		p = observer.WrapEmbedding(p, cfg.Embedding.Model, a.inst)
	}
	p = pdfvec.WithEmbeddingRateLimit(p, cfg.Embedding.RateLimitRPM)
	return pdfvec.LocalEmbedding{Provider: pdfvec.WithEmbeddingRetry(p, a.retryOptions(cfg)...)}, nil
}

func (a *App) retryOptions(cfg config.Config) []pdfvec.RetryOption {
	return []pdfvec.RetryOption{
		pdfvec.RetryMaxAttempts(cfg.Retry.MaxAttempts),
		pdfvec.RetryBaseDelay(time.Duration(cfg.Retry.BaseDelayMS) * time.Millisecond),
		pdfvec.RetryTimeout(time.Duration(cfg.Retry.TimeoutSeconds) * time.Second),
		pdfvec.RetryLogger(a.log),
	}
}

// collectionSpec is the template used when ingestion creates a collection.
func collectionSpec(cfg config.Config) pdfvec.CollectionSpec {
	return pdfvec.CollectionSpec{
		Dimensions:        cfg.Embedding.Dimensions,
		Metric:            "cosine",
		VectorizeProvider: cfg.Astra.VectorizeProvider,
		VectorizeModel:    cfg.Astra.VectorizeModel,
	}
}
