package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	pdfvec "github.com/nevindra/pdfvec"
)

const (
	defaultBatchSize  = 20
	defaultBatchDelay = 500 * time.Millisecond
)

// Ingestor submits chunks to a VectorStore in fixed-size batches.
// Batches run sequentially and fail independently: a failed batch is
// recorded in the Summary and the next batch is still attempted.
type Ingestor struct {
	store            pdfvec.VectorStore
	vec              pdfvec.Vectorization
	batchSize        int
	batchDelay       time.Duration
	policy           pdfvec.DuplicatePolicy
	createCollection bool
	spec             pdfvec.CollectionSpec
	logger           *slog.Logger
}

// NewIngestor creates an Ingestor with sensible defaults.
func NewIngestor(store pdfvec.VectorStore, vec pdfvec.Vectorization, opts ...Option) *Ingestor {
	ing := &Ingestor{
		store:            store,
		vec:              vec,
		batchSize:        defaultBatchSize,
		batchDelay:       defaultBatchDelay,
		policy:           pdfvec.DuplicateUpsert,
		createCollection: true,
	}
	for _, o := range opts {
		o(ing)
	}
	if ing.batchSize <= 0 {
		ing.batchSize = defaultBatchSize
	}
	if ing.batchDelay < 0 {
		ing.batchDelay = 0
	}
	if ing.logger == nil {
		ing.logger = slog.New(slog.DiscardHandler)
	}
	return ing
}

// Ingest stores chunks as records of sourceID in collection. Record ids are
// derived from (sourceID, index), so re-ingesting the same document
// addresses the same records.
//
// The returned error is non-nil only for conditions that stop the run before
// or between batches: no chunks, invalid arguments, collection creation
// failure, or context cancellation. Batch failures are reported through
// Summary.Err.
func (ing *Ingestor) Ingest(ctx context.Context, chunks []string, sourceID, collection string) (Summary, error) {
	start := time.Now()
	summary := Summary{
		SourceID:    sourceID,
		Collection:  collection,
		Mode:        ing.vec.Mode(),
		TotalChunks: len(chunks),
	}
	if len(chunks) == 0 {
		return summary, &pdfvec.ExtractionError{Source: sourceID, Err: pdfvec.ErrNoText}
	}
	if strings.TrimSpace(sourceID) == "" {
		return summary, errors.New("ingest: empty source id")
	}
	if err := pdfvec.ValidateCollectionName(collection); err != nil {
		return summary, fmt.Errorf("ingest: %w", err)
	}
	for i, c := range chunks {
		if strings.TrimSpace(c) == "" {
			return summary, fmt.Errorf("ingest: chunk %d is empty", i)
		}
	}
	if local, ok := ing.vec.(pdfvec.LocalEmbedding); ok && local.Provider == nil {
		return summary, fmt.Errorf("ingest: %w: local embedding without provider", pdfvec.ErrUnsupportedMode)
	}

	if ing.createCollection {
		if err := ing.store.EnsureCollection(ctx, ing.collectionSpec(collection)); err != nil {
			return summary, fmt.Errorf("ingest: ensure collection %s: %w", collection, err)
		}
	}

	records := make([]pdfvec.ChunkRecord, len(chunks))
	for i, c := range chunks {
		records[i] = pdfvec.NewChunkRecord(sourceID, i, len(chunks), c)
	}

	total := (len(records) + ing.batchSize - 1) / ing.batchSize
	ing.logger.Info("ingest started",
		"source", sourceID,
		"collection", collection,
		"mode", summary.Mode,
		"chunks", len(records),
		"batches", total)

	dims := 0
	for b := 0; b < total; b++ {
		if b > 0 && ing.batchDelay > 0 {
			if err := sleep(ctx, ing.batchDelay); err != nil {
				summary.Duration = time.Since(start)
				return summary, err
			}
		}
		if err := ctx.Err(); err != nil {
			summary.Duration = time.Since(start)
			return summary, err
		}
		lo := b * ing.batchSize
		hi := min(lo+ing.batchSize, len(records))

		res := ing.submit(ctx, b, collection, records[lo:hi], &dims)
		summary.Batches = append(summary.Batches, res)
		summary.Inserted += res.Inserted
		summary.Replaced += res.Replaced
		if res.Err == nil || !errors.Is(res.Err, errEmbed) {
			summary.Submitted += res.Size
		}

		if res.OK() {
			ing.logger.Info("batch stored",
				"collection", collection,
				"batch", b+1,
				"of", total,
				"records", res.Size,
				"inserted", res.Inserted,
				"replaced", res.Replaced,
				"duration", res.Duration)
		} else {
			ing.logger.Warn("batch failed",
				"collection", collection,
				"batch", b+1,
				"of", total,
				"records", res.Size,
				"error", res.Err.Err)
		}
	}

	summary.Duration = time.Since(start)
	ing.logger.Info("ingest finished",
		"source", sourceID,
		"collection", collection,
		"stored", summary.Stored(),
		"succeeded_batches", summary.SucceededBatches(),
		"failed_batches", summary.FailedBatches(),
		"duration", summary.Duration)
	return summary, nil
}

// errEmbed marks batch failures that happened before the store was called.
var errEmbed = errors.New("embed")

// submit embeds (in local mode) and stores one batch. dims holds the vector
// length of the run, fixed by the first embedding.
func (ing *Ingestor) submit(ctx context.Context, index int, collection string, batch []pdfvec.ChunkRecord, dims *int) BatchResult {
	start := time.Now()
	res := BatchResult{Index: index, Size: len(batch)}
	fail := func(err error) BatchResult {
		res.Err = &BatchError{Batch: index, Size: len(batch), Err: err}
		res.Duration = time.Since(start)
		return res
	}

	if local, ok := ing.vec.(pdfvec.LocalEmbedding); ok {
		texts := make([]string, len(batch))
		for i, r := range batch {
			texts[i] = r.Text
		}
		vecs, err := local.Provider.Embed(ctx, texts)
		if err != nil {
			return fail(fmt.Errorf("%w: %w", errEmbed, err))
		}
		if len(vecs) != len(batch) {
			return fail(fmt.Errorf("%w: got %d vectors for %d texts", errEmbed, len(vecs), len(batch)))
		}
		for i, v := range vecs {
			if *dims == 0 {
				*dims = len(v)
			}
			if len(v) == 0 || len(v) != *dims {
				return fail(fmt.Errorf("%w: %w: record %d has %d dimensions, want %d",
					errEmbed, pdfvec.ErrDimensionMismatch, batch[i].SequenceIndex, len(v), *dims))
			}
		}
		for i := range batch {
			batch[i].Embedding = vecs[i]
		}
	}

	ins, err := ing.store.InsertMany(ctx, collection, batch, ing.policy)
	res.Inserted = ins.Inserted
	res.Replaced = ins.Replaced
	if err != nil {
		return fail(err)
	}
	res.Duration = time.Since(start)
	return res
}

func (ing *Ingestor) collectionSpec(collection string) pdfvec.CollectionSpec {
	spec := ing.spec
	spec.Name = collection
	spec.Mode = ing.vec.Mode()
	if local, ok := ing.vec.(pdfvec.LocalEmbedding); ok && spec.Dimensions == 0 {
		spec.Dimensions = local.Provider.Dimensions()
	}
	return spec
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
