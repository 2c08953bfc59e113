package pdfvec

// Chunk is an ordered fragment of a document's text.
type Chunk struct {
	SourceID      string `json:"source_id"`
	SequenceIndex int    `json:"sequence_index"`
	Text          string `json:"text"`
	TotalChunks   int    `json:"total_chunks"`
}

// ChunkRecord is the persisted form of a Chunk. Embedding is nil when the
// store vectorizes the text itself.
type ChunkRecord struct {
	ID string `json:"id"`
	Chunk
	Embedding []float32 `json:"-"`
}

// NewChunkRecord builds the record for chunk i of n from sourceID.
func NewChunkRecord(sourceID string, i, n int, text string) ChunkRecord {
	return ChunkRecord{
		ID: RecordID(sourceID, i),
		Chunk: Chunk{
			SourceID:      sourceID,
			SequenceIndex: i,
			Text:          text,
			TotalChunks:   n,
		},
	}
}

// Match is a record returned by a store similarity search, in store order.
type Match struct {
	Record ChunkRecord
	// Similarity is only meaningful when HasSimilarity is true.
	Similarity    float64
	HasSimilarity bool
}

// ScoredResult is a rendered search hit.
type ScoredResult struct {
	RecordID      string  `json:"record_id"`
	SourceID      string  `json:"source_id"`
	SequenceIndex int     `json:"sequence_index"`
	TotalChunks   int     `json:"total_chunks"`
	Similarity    float64 `json:"similarity"`
	HasSimilarity bool    `json:"has_similarity"`
	Preview       string  `json:"text_preview"`
	// TextLength is the length of the full chunk text in characters.
	TextLength int `json:"text_length"`
}

// Truncated reports whether Preview is shorter than the stored text.
func (r ScoredResult) Truncated() bool {
	return r.TextLength > len([]rune(r.Preview))
}
