package pdfvec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"
)

// ErrEmptyQuery is returned for a blank query text.
var ErrEmptyQuery = errors.New("empty query text")

const (
	defaultQueryLimit    = 5
	defaultPreviewLength = 500
)

// QueryClient runs similarity searches against a VectorStore and renders
// the hits. Ranking is the store's; results keep store order.
type QueryClient struct {
	store      VectorStore
	vec        Vectorization
	previewLen int
	logger     *slog.Logger
}

// QueryOption configures a QueryClient.
type QueryOption func(*QueryClient)

// QueryPreviewLength sets the preview length in characters (default 500).
func QueryPreviewLength(n int) QueryOption {
	return func(q *QueryClient) { q.previewLen = n }
}

// QueryLogger sets the structured logger.
func QueryLogger(l *slog.Logger) QueryOption {
	return func(q *QueryClient) { q.logger = l }
}

// NewQueryClient creates a QueryClient. With LocalEmbedding the query text is
// embedded by the provider; with DelegatedVectorize the store embeds it.
func NewQueryClient(store VectorStore, vec Vectorization, opts ...QueryOption) *QueryClient {
	q := &QueryClient{
		store:      store,
		vec:        vec,
		previewLen: defaultPreviewLength,
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.logger == nil {
		q.logger = nopLogger
	}
	return q
}

// Query returns up to limit results for text in collection. limit <= 0 means 5.
// An empty result set is returned with a nil error; store failures are
// returned as *QueryError.
func (q *QueryClient) Query(ctx context.Context, text, collection string, limit int) ([]ScoredResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyQuery
	}
	if err := ValidateCollectionName(collection); err != nil {
		return nil, &QueryError{Collection: collection, Err: err}
	}
	if limit <= 0 {
		limit = defaultQueryLimit
	}

	sq := SearchQuery{Limit: limit}
	switch v := q.vec.(type) {
	case DelegatedVectorize:
		sq.Text = text
	case LocalEmbedding:
		if v.Provider == nil {
			return nil, &QueryError{Collection: collection, Err: errors.New("local embedding without provider")}
		}
		vecs, err := v.Provider.Embed(ctx, []string{text})
		if err != nil {
			return nil, &QueryError{Collection: collection, Err: fmt.Errorf("embed query: %w", err)}
		}
		if len(vecs) != 1 || len(vecs[0]) == 0 {
			return nil, &QueryError{Collection: collection, Err: fmt.Errorf("embed query: got %d vectors", len(vecs))}
		}
		sq.Vector = vecs[0]
	default:
		return nil, &QueryError{Collection: collection, Err: ErrUnsupportedMode}
	}

	start := time.Now()
	matches, err := q.store.Search(ctx, collection, sq)
	if err != nil {
		return nil, &QueryError{Collection: collection, Err: err}
	}
	q.logger.Debug("query complete",
		"collection", collection,
		"mode", q.vec.Mode(),
		"limit", limit,
		"results", len(matches),
		"duration", time.Since(start))

	results := make([]ScoredResult, 0, len(matches))
	for _, m := range matches {
		preview, n := Preview(m.Record.Text, q.previewLen)
		results = append(results, ScoredResult{
			RecordID:      m.Record.ID,
			SourceID:      m.Record.SourceID,
			SequenceIndex: m.Record.SequenceIndex,
			TotalChunks:   m.Record.TotalChunks,
			Similarity:    m.Similarity,
			HasSimilarity: m.HasSimilarity,
			Preview:       preview,
			TextLength:    n,
		})
	}
	return results, nil
}

// ListCollections lists the collection names in the store.
func (q *QueryClient) ListCollections(ctx context.Context) ([]string, error) {
	names, err := q.store.ListCollections(ctx)
	if err != nil {
		return nil, &QueryError{Err: err}
	}
	return names, nil
}

// Preview returns at most max characters of text, cut on a rune boundary,
// and the character count of the whole text. Invalid UTF-8 sequences are
// replaced with U+FFFD. max <= 0 disables truncation.
func Preview(text string, max int) (string, int) {
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "\uFFFD")
	}
	n := utf8.RuneCountInString(text)
	if max <= 0 || n <= max {
		return text, n
	}
	i := 0
	for pos := range text {
		if i == max {
			return text[:pos], n
		}
		i++
	}
	return text, n
}
