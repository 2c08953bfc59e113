package pdfvec

import (
	"context"
	"errors"
)

// VectorStore abstracts a remote document store with similarity search.
// Embedding (in delegated mode) and ranking happen inside the store.
type VectorStore interface {
	// Name returns the backend name (e.g. "astra", "postgres").
	Name() string

	// --- Collections ---
	// EnsureCollection creates the collection if it does not exist.
	// An existing collection is left as is.
	EnsureCollection(ctx context.Context, spec CollectionSpec) error
	ListCollections(ctx context.Context) ([]string, error)

	// --- Records ---
	// InsertMany stores records under policy. A non-nil error means at least
	// one record was not stored; InsertResult still counts the ones that were.
	InsertMany(ctx context.Context, collection string, records []ChunkRecord, policy DuplicatePolicy) (InsertResult, error)
	// Search returns up to q.Limit records in descending similarity order.
	Search(ctx context.Context, collection string, q SearchQuery) ([]Match, error)

	// --- Lifecycle ---
	Close() error
}

// CollectionSpec describes a collection to create.
type CollectionSpec struct {
	Name string
	Mode EmbeddingMode
	// Dimensions is the vector length for local embeddings.
	Dimensions int
	// Metric is the similarity metric. Defaults to "cosine".
	Metric string
	// VectorizeProvider and VectorizeModel name the store-side embedding
	// service used in delegated mode.
	VectorizeProvider string
	VectorizeModel    string
}

// SearchQuery is either a text query (delegated) or a vector query (local).
type SearchQuery struct {
	Text   string
	Vector []float32
	Limit  int
}

// InsertResult reports how many records a store accepted.
type InsertResult struct {
	// Inserted counts records that were newly created.
	Inserted int
	// Replaced counts existing records overwritten under DuplicateUpsert.
	Replaced int
	// Rejected lists records that were not stored.
	Rejected []RecordError
}

// Stored returns the number of records persisted by the call.
func (r InsertResult) Stored() int { return r.Inserted + r.Replaced }

// Err joins the rejected record errors, or returns nil.
func (r InsertResult) Err() error {
	if len(r.Rejected) == 0 {
		return nil
	}
	errs := make([]error, len(r.Rejected))
	for i, re := range r.Rejected {
		errs[i] = re
	}
	return errors.Join(errs...)
}

// RecordError is a failure for one record id.
type RecordError struct {
	ID  string
	Err error
}

func (e RecordError) Error() string { return "record " + e.ID + ": " + e.Err.Error() }
func (e RecordError) Unwrap() error { return e.Err }
