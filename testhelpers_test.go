package pdfvec

import (
	"context"
	"sync"
)

// fakeStore is an in-memory VectorStore. Errors queued in the *Errs slices
// are returned in order, one per call, before falling back to normal behaviour.
type fakeStore struct {
	mu          sync.Mutex
	collections []string
	matches     []Match
	lastQuery   SearchQuery

	searchErrs []error
	listErrs   []error
	insertErrs []error
	ensureErrs []error

	searchCalls int
	listCalls   int
	insertCalls int
	ensureCalls int
	closed      bool
}

func (f *fakeStore) Name() string { return "fake" }

func pop(errs *[]error) error {
	if len(*errs) == 0 {
		return nil
	}
	err := (*errs)[0]
	*errs = (*errs)[1:]
	return err
}

func (f *fakeStore) EnsureCollection(_ context.Context, spec CollectionSpec) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensureCalls++
	if err := pop(&f.ensureErrs); err != nil {
		return err
	}
	f.collections = append(f.collections, spec.Name)
	return nil
}

func (f *fakeStore) ListCollections(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if err := pop(&f.listErrs); err != nil {
		return nil, err
	}
	return f.collections, nil
}

func (f *fakeStore) InsertMany(_ context.Context, _ string, records []ChunkRecord, _ DuplicatePolicy) (InsertResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertCalls++
	if err := pop(&f.insertErrs); err != nil {
		return InsertResult{}, err
	}
	return InsertResult{Inserted: len(records)}, nil
}

func (f *fakeStore) Search(_ context.Context, _ string, q SearchQuery) ([]Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	f.lastQuery = q
	if err := pop(&f.searchErrs); err != nil {
		return nil, err
	}
	if len(f.matches) > q.Limit {
		return f.matches[:q.Limit], nil
	}
	return f.matches, nil
}

func (f *fakeStore) Close() error {
	f.closed = true
	return nil
}

// stubEmbedding returns a fixed vector per text.
type stubEmbedding struct {
	dims  int
	calls int
	errs  []error
}

func (s *stubEmbedding) Name() string    { return "stub" }
func (s *stubEmbedding) Dimensions() int { return s.dims }

func (s *stubEmbedding) Embed(_ context.Context, texts []string) ([][]float32, error) {
	s.calls++
	if err := pop(&s.errs); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, s.dims)
		v[0] = float32(i + 1)
		out[i] = v
	}
	return out, nil
}

var (
	_ VectorStore       = (*fakeStore)(nil)
	_ EmbeddingProvider = (*stubEmbedding)(nil)
)
