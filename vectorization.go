package pdfvec

import "fmt"

// EmbeddingMode names where chunk embeddings are computed.
type EmbeddingMode string

const (
	// ModeDelegated submits raw text and lets the store vectorize it.
	ModeDelegated EmbeddingMode = "delegated"
	// ModeLocal computes embeddings with an EmbeddingProvider before submission.
	ModeLocal EmbeddingMode = "local"
)

// ParseEmbeddingMode parses "delegated" or "local".
func ParseEmbeddingMode(s string) (EmbeddingMode, error) {
	switch EmbeddingMode(s) {
	case ModeDelegated, ModeLocal:
		return EmbeddingMode(s), nil
	}
	return "", fmt.Errorf("unknown embedding mode %q (want %q or %q)", s, ModeDelegated, ModeLocal)
}

// Vectorization selects the embedding strategy for ingestion and queries.
// It is a closed set: DelegatedVectorize or LocalEmbedding.
type Vectorization interface {
	Mode() EmbeddingMode
	vectorization()
}

// DelegatedVectorize sends chunk text to the store, which computes the
// embedding server-side.
type DelegatedVectorize struct{}

func (DelegatedVectorize) Mode() EmbeddingMode { return ModeDelegated }
func (DelegatedVectorize) vectorization()      {}

// LocalEmbedding embeds chunk text with Provider and stores the vector as is.
type LocalEmbedding struct {
	Provider EmbeddingProvider
}

func (LocalEmbedding) Mode() EmbeddingMode { return ModeLocal }
func (LocalEmbedding) vectorization()      {}

// DuplicatePolicy controls what a store does when a record id already exists.
type DuplicatePolicy string

const (
	// DuplicateUpsert replaces the stored record.
	DuplicateUpsert DuplicatePolicy = "upsert"
	// DuplicateReject leaves the stored record untouched and reports ErrDuplicateID.
	DuplicateReject DuplicatePolicy = "reject"
)

// ParseDuplicatePolicy parses "upsert" or "reject". The empty string means upsert.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch DuplicatePolicy(s) {
	case "", DuplicateUpsert:
		return DuplicateUpsert, nil
	case DuplicateReject:
		return DuplicateReject, nil
	}
	return "", fmt.Errorf("unknown duplicate policy %q (want %q or %q)", s, DuplicateUpsert, DuplicateReject)
}

// compile-time checks
var (
	_ Vectorization = DelegatedVectorize{}
	_ Vectorization = LocalEmbedding{}
)
