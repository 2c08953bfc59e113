package ingest

import (
	"log/slog"
	"time"

	pdfvec "github.com/nevindra/pdfvec"
)

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithBatchSize sets the number of records per InsertMany call (default 20).
func WithBatchSize(n int) Option {
	return func(ing *Ingestor) { ing.batchSize = n }
}

// WithBatchDelay sets the pause between consecutive batches (default 500ms).
func WithBatchDelay(d time.Duration) Option {
	return func(ing *Ingestor) { ing.batchDelay = d }
}

// WithDuplicatePolicy sets how the store treats existing record ids
// (default pdfvec.DuplicateUpsert).
func WithDuplicatePolicy(p pdfvec.DuplicatePolicy) Option {
	return func(ing *Ingestor) { ing.policy = p }
}

// WithCreateCollection makes Ingest call EnsureCollection before the first
// batch (default true).
func WithCreateCollection(create bool) Option {
	return func(ing *Ingestor) { ing.createCollection = create }
}

// WithCollectionSpec sets the template used by EnsureCollection. Name and
// Mode are always taken from the Ingest call; Dimensions defaults to the
// embedding provider's in local mode.
func WithCollectionSpec(spec pdfvec.CollectionSpec) Option {
	return func(ing *Ingestor) { ing.spec = spec }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(ing *Ingestor) { ing.logger = l }
}
