package pdfvec

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithEmbeddingRetry_RetriesTransient(t *testing.T) {
	for _, status := range []int{429, 502, 503, 504} {
		emb := &stubEmbedding{dims: 2, errs: []error{&ErrHTTP{Status: status}}}
		p := WithEmbeddingRetry(emb, RetryBaseDelay(0))

		vecs, err := p.Embed(context.Background(), []string{"a"})
		require.NoError(t, err, "status %d", status)
		assert.Len(t, vecs, 1)
		assert.Equal(t, 2, emb.calls, "status %d", status)
	}
}

func TestWithEmbeddingRetry_NoRetryOnPermanent(t *testing.T) {
	emb := &stubEmbedding{dims: 2, errs: []error{&ErrHTTP{Status: 400, Body: "bad"}}}
	p := WithEmbeddingRetry(emb, RetryBaseDelay(0))

	_, err := p.Embed(context.Background(), []string{"a"})
	var he *ErrHTTP
	require.ErrorAs(t, err, &he)
	assert.Equal(t, 400, he.Status)
	assert.Equal(t, 1, emb.calls)
}

func TestWithEmbeddingRetry_ExhaustsAttempts(t *testing.T) {
	transient := &ErrHTTP{Status: 503}
	emb := &stubEmbedding{dims: 2, errs: []error{transient, transient, transient, transient}}
	p := WithEmbeddingRetry(emb, RetryBaseDelay(0), RetryMaxAttempts(3))

	_, err := p.Embed(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, transient)
	assert.Equal(t, 3, emb.calls)
	assert.Equal(t, "stub", p.Name())
	assert.Equal(t, 2, p.Dimensions())
}

func TestWithEmbeddingRetry_ContextCancelledDuringBackoff(t *testing.T) {
	emb := &stubEmbedding{dims: 2, errs: []error{&ErrHTTP{Status: 429}}}
	p := WithEmbeddingRetry(emb, RetryBaseDelay(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := p.Embed(ctx, []string{"a"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWithStoreRetry_RetriesSearchAndList(t *testing.T) {
	store := &fakeStore{
		searchErrs: []error{&ErrHTTP{Status: 502}},
		listErrs:   []error{&ErrHTTP{Status: 429}},
	}
	s := WithStoreRetry(store, RetryBaseDelay(0))

	_, err := s.Search(context.Background(), "docs", SearchQuery{Text: "q", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, store.searchCalls)

	_, err = s.ListCollections(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, store.listCalls)
}

func TestWithStoreRetry_InsertRetriedOnlyForUpsert(t *testing.T) {
	recs := []ChunkRecord{NewChunkRecord("a", 0, 1, "x")}

	store := &fakeStore{insertErrs: []error{&ErrHTTP{Status: 503}}}
	s := WithStoreRetry(store, RetryBaseDelay(0))
	res, err := s.InsertMany(context.Background(), "docs", recs, DuplicateUpsert)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 2, store.insertCalls)

	store = &fakeStore{insertErrs: []error{&ErrHTTP{Status: 503}}}
	s = WithStoreRetry(store, RetryBaseDelay(0))
	_, err = s.InsertMany(context.Background(), "docs", recs, DuplicateReject)
	require.Error(t, err)
	assert.Equal(t, 1, store.insertCalls)
}

func TestWithStoreRetry_EnsureCollection(t *testing.T) {
	store := &fakeStore{ensureErrs: []error{&ErrHTTP{Status: 504}, errors.New("permanent")}}
	s := WithStoreRetry(store, RetryBaseDelay(0))

	err := s.EnsureCollection(context.Background(), CollectionSpec{Name: "docs"})
	assert.EqualError(t, err, "permanent")
	assert.Equal(t, 2, store.ensureCalls)
	require.NoError(t, s.Close())
	assert.True(t, store.closed)
}

func TestRetryDelay_HonoursRetryAfter(t *testing.T) {
	err := &ErrHTTP{Status: 429, RetryAfter: 5 * time.Second}
	assert.Equal(t, 5*time.Second, retryDelay(time.Millisecond, 0, err))

	d := retryDelay(100*time.Millisecond, 1, &ErrHTTP{Status: 503})
	assert.GreaterOrEqual(t, d, 200*time.Millisecond)
	assert.LessOrEqual(t, d, 300*time.Millisecond)
}
