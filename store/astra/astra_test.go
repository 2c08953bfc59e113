package astra

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pdfvec "github.com/nevindra/pdfvec"
)

type call struct {
	Path    string
	Token   string
	Command string
	Body    map[string]any
}

// fakeAPI records every command and answers with respond.
type fakeAPI struct {
	mu      sync.Mutex
	calls   []call
	respond func(c call) (int, string)
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	_ = json.Unmarshal(raw, &body)
	c := call{Path: r.URL.Path, Token: r.Header.Get("Token"), Body: body}
	for k := range body {
		c.Command = k
	}
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()

	status, resp := f.respond(c)
	if status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "7")
	}
	w.WriteHeader(status)
	_, _ = io.WriteString(w, resp)
}

func (f *fakeAPI) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.Command
	}
	return out
}

func newTestStore(t *testing.T, respond func(c call) (int, string)) (*Store, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{respond: respond}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", "AstraCS:test", WithKeyspace("ks")), api
}

func records(n int) []pdfvec.ChunkRecord {
	out := make([]pdfvec.ChunkRecord, n)
	for i := range out {
		out[i] = pdfvec.NewChunkRecord("doc.pdf", i, n, "chunk text")
	}
	return out
}

func TestListCollections(t *testing.T) {
	s, api := newTestStore(t, func(c call) (int, string) {
		return 200, `{"status":{"collections":["a","b"]}}`
	})
	names, err := s.ListCollections(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)

	require.Len(t, api.calls, 1)
	assert.Equal(t, "/api/json/v1/ks", api.calls[0].Path)
	assert.Equal(t, "AstraCS:test", api.calls[0].Token)
	assert.Equal(t, "findCollections", api.calls[0].Command)
}

func TestListCollections_CommandError(t *testing.T) {
	s, _ := newTestStore(t, func(c call) (int, string) {
		return 200, `{"errors":[{"errorCode":"UNAUTHENTICATED_REQUEST","message":"bad token"}]}`
	})
	_, err := s.ListCollections(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "UNAUTHENTICATED_REQUEST", apiErr.Code)
}

func TestEnsureCollection_Exists(t *testing.T) {
	s, api := newTestStore(t, func(c call) (int, string) {
		return 200, `{"status":{"collections":["pdf_documents"]}}`
	})
	err := s.EnsureCollection(context.Background(), pdfvec.CollectionSpec{Name: "pdf_documents", Mode: pdfvec.ModeDelegated})
	require.NoError(t, err)
	assert.Equal(t, []string{"findCollections"}, api.commands())
}

func TestEnsureCollection_CreatesDelegated(t *testing.T) {
	s, api := newTestStore(t, func(c call) (int, string) {
		if c.Command == "findCollections" {
			return 200, `{"status":{"collections":[]}}`
		}
		return 200, `{"status":{"ok":1}}`
	})
	err := s.EnsureCollection(context.Background(), pdfvec.CollectionSpec{Name: "pdf_documents", Mode: pdfvec.ModeDelegated})
	require.NoError(t, err)
	require.Equal(t, []string{"findCollections", "createCollection"}, api.commands())

	create := api.calls[1].Body["createCollection"].(map[string]any)
	assert.Equal(t, "pdf_documents", create["name"])
	vector := create["options"].(map[string]any)["vector"].(map[string]any)
	assert.Equal(t, "cosine", vector["metric"])
	service := vector["service"].(map[string]any)
	assert.Equal(t, "nvidia", service["provider"])
	assert.Equal(t, "NV-Embed-QA", service["modelName"])
	assert.NotContains(t, vector, "dimension")
}

func TestEnsureCollection_CreatesLocal(t *testing.T) {
	s, api := newTestStore(t, func(c call) (int, string) {
		if c.Command == "findCollections" {
			return 200, `{"status":{"collections":["other"]}}`
		}
		return 200, `{"status":{"ok":1}}`
	})
	err := s.EnsureCollection(context.Background(), pdfvec.CollectionSpec{Name: "local_docs", Mode: pdfvec.ModeLocal, Dimensions: 1536})
	require.NoError(t, err)

	create := api.calls[1].Body["createCollection"].(map[string]any)
	vector := create["options"].(map[string]any)["vector"].(map[string]any)
	assert.EqualValues(t, 1536, vector["dimension"])
	assert.NotContains(t, vector, "service")
}

func TestEnsureCollection_LocalWithoutDimension(t *testing.T) {
	s, _ := newTestStore(t, func(c call) (int, string) {
		return 200, `{"status":{"collections":[]}}`
	})
	err := s.EnsureCollection(context.Background(), pdfvec.CollectionSpec{Name: "local_docs", Mode: pdfvec.ModeLocal})
	require.Error(t, err)
}

func TestEnsureCollection_InvalidName(t *testing.T) {
	s, api := newTestStore(t, func(c call) (int, string) { return 200, `{}` })
	err := s.EnsureCollection(context.Background(), pdfvec.CollectionSpec{Name: "bad-name", Mode: pdfvec.ModeDelegated})
	require.ErrorIs(t, err, pdfvec.ErrInvalidCollection)
	assert.Empty(t, api.calls)
}

func TestInsertMany_AllOK(t *testing.T) {
	recs := records(3)
	s, api := newTestStore(t, func(c call) (int, string) {
		return 200, `{"status":{"documentResponses":[` +
			`{"_id":"` + recs[0].ID + `","status":"OK"},` +
			`{"_id":"` + recs[1].ID + `","status":"OK"},` +
			`{"_id":"` + recs[2].ID + `","status":"OK"}]}}`
	})
	res, err := s.InsertMany(context.Background(), "pdf_documents", recs, pdfvec.DuplicateUpsert)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Inserted)
	assert.Equal(t, 0, res.Replaced)

	require.Len(t, api.calls, 1)
	assert.Equal(t, "/api/json/v1/ks/pdf_documents", api.calls[0].Path)
	ins := api.calls[0].Body["insertMany"].(map[string]any)
	opts := ins["options"].(map[string]any)
	assert.Equal(t, false, opts["ordered"])
	docs := ins["documents"].([]any)
	require.Len(t, docs, 3)
	first := docs[0].(map[string]any)
	assert.Equal(t, recs[0].ID, first["_id"])
	assert.Equal(t, "doc.pdf", first["source"])
	assert.EqualValues(t, 0, first["chunk_id"])
	assert.EqualValues(t, 3, first["total_chunks"])
	assert.Equal(t, "chunk text", first["$vectorize"])
	assert.NotContains(t, first, "$vector")
}

func TestInsertMany_LocalEmbeddingDocument(t *testing.T) {
	recs := records(1)
	recs[0].Embedding = []float32{0.5, 0.25}
	s, api := newTestStore(t, func(c call) (int, string) {
		return 200, `{"status":{"insertedIds":["` + recs[0].ID + `"]}}`
	})
	res, err := s.InsertMany(context.Background(), "c", recs, pdfvec.DuplicateUpsert)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)

	doc := api.calls[0].Body["insertMany"].(map[string]any)["documents"].([]any)[0].(map[string]any)
	assert.Equal(t, []any{0.5, 0.25}, doc["$vector"])
	assert.Equal(t, "chunk text", doc["text"])
	assert.NotContains(t, doc, "$vectorize")
}

func duplicateResponse(recs []pdfvec.ChunkRecord) string {
	return `{"status":{"documentResponses":[` +
		`{"_id":"` + recs[0].ID + `","status":"OK"},` +
		`{"_id":"` + recs[1].ID + `","status":"ERROR","errorsIdx":[0]}]},` +
		`"errors":[{"errorCode":"DOCUMENT_ALREADY_EXISTS","message":"exists","id":"` + recs[1].ID + `"}]}`
}

func TestInsertMany_DuplicateUpsertReplaces(t *testing.T) {
	recs := records(2)
	s, api := newTestStore(t, func(c call) (int, string) {
		if c.Command == "insertMany" {
			return 200, duplicateResponse(recs)
		}
		return 200, `{"status":{"matchedCount":1,"modifiedCount":1}}`
	})
	res, err := s.InsertMany(context.Background(), "c", recs, pdfvec.DuplicateUpsert)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 1, res.Replaced)
	assert.Equal(t, 2, res.Stored())

	require.Equal(t, []string{"insertMany", "findOneAndReplace"}, api.commands())
	replace := api.calls[1].Body["findOneAndReplace"].(map[string]any)
	assert.Equal(t, recs[1].ID, replace["filter"].(map[string]any)["_id"])
	assert.Equal(t, true, replace["options"].(map[string]any)["upsert"])
}

func TestInsertMany_DuplicateReject(t *testing.T) {
	recs := records(2)
	s, api := newTestStore(t, func(c call) (int, string) {
		return 200, duplicateResponse(recs)
	})
	res, err := s.InsertMany(context.Background(), "c", recs, pdfvec.DuplicateReject)
	require.ErrorIs(t, err, pdfvec.ErrDuplicateID)
	assert.Equal(t, 1, res.Inserted)
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, recs[1].ID, res.Rejected[0].ID)
	assert.Equal(t, []string{"insertMany"}, api.commands())
}

func TestInsertMany_OtherDocumentError(t *testing.T) {
	recs := records(1)
	s, _ := newTestStore(t, func(c call) (int, string) {
		return 200, `{"status":{"documentResponses":[{"_id":"` + recs[0].ID + `","status":"ERROR","errorsIdx":[0]}]},` +
			`"errors":[{"errorCode":"SHRED_DOC_LIMIT_VIOLATION","message":"too big"}]}`
	})
	res, err := s.InsertMany(context.Background(), "c", recs, pdfvec.DuplicateUpsert)
	require.Error(t, err)
	assert.NotErrorIs(t, err, pdfvec.ErrDuplicateID)
	assert.Equal(t, 0, res.Stored())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "SHRED_DOC_LIMIT_VIOLATION", apiErr.Code)
}

func TestInsertMany_TooMany(t *testing.T) {
	s, api := newTestStore(t, func(c call) (int, string) { return 200, `{}` })
	_, err := s.InsertMany(context.Background(), "c", records(maxInsert+1), pdfvec.DuplicateUpsert)
	require.Error(t, err)
	assert.Empty(t, api.calls)
}

func TestInsertMany_RateLimited(t *testing.T) {
	s, _ := newTestStore(t, func(c call) (int, string) {
		return http.StatusTooManyRequests, `{"message":"slow down"}`
	})
	_, err := s.InsertMany(context.Background(), "c", records(1), pdfvec.DuplicateUpsert)
	var httpErr *pdfvec.ErrHTTP
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusTooManyRequests, httpErr.Status)
	assert.Equal(t, 7*time.Second, httpErr.RetryAfter)
}

func TestSearch_Delegated(t *testing.T) {
	s, api := newTestStore(t, func(c call) (int, string) {
		return 200, `{"data":{"documents":[` +
			`{"_id":"x1","source":"doc.pdf","chunk_id":4,"total_chunks":9,"$vectorize":"hello world","$similarity":0.91},` +
			`{"_id":"x2","metadata":{"source":"old.pdf","chunk_id":2,"total_chunks":3},"$vectorize":"legacy"}` +
			`]}}`
	})
	matches, err := s.Search(context.Background(), "c", pdfvec.SearchQuery{Text: "what is attention", Limit: 2})
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, "x1", matches[0].Record.ID)
	assert.Equal(t, "doc.pdf", matches[0].Record.SourceID)
	assert.Equal(t, 4, matches[0].Record.SequenceIndex)
	assert.Equal(t, 9, matches[0].Record.TotalChunks)
	assert.Equal(t, "hello world", matches[0].Record.Text)
	assert.True(t, matches[0].HasSimilarity)
	assert.InDelta(t, 0.91, matches[0].Similarity, 1e-9)

	assert.Equal(t, "old.pdf", matches[1].Record.SourceID)
	assert.Equal(t, 2, matches[1].Record.SequenceIndex)
	assert.False(t, matches[1].HasSimilarity)

	find := api.calls[0].Body["find"].(map[string]any)
	assert.Equal(t, "what is attention", find["sort"].(map[string]any)["$vectorize"])
	assert.EqualValues(t, 1, find["projection"].(map[string]any)["*"])
	opts := find["options"].(map[string]any)
	assert.EqualValues(t, 2, opts["limit"])
	assert.Equal(t, true, opts["includeSimilarity"])
}

func TestSearch_Vector(t *testing.T) {
	s, api := newTestStore(t, func(c call) (int, string) {
		return 200, `{"data":{"documents":[{"_id":"x1","source":"a","chunk_id":0,"total_chunks":1,"text":"t","$similarity":0.5}]}}`
	})
	matches, err := s.Search(context.Background(), "c", pdfvec.SearchQuery{Vector: []float32{1, 0}})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "t", matches[0].Record.Text)

	find := api.calls[0].Body["find"].(map[string]any)
	assert.Equal(t, []any{1.0, 0.0}, find["sort"].(map[string]any)["$vector"])
	assert.EqualValues(t, 0, find["projection"].(map[string]any)["$vector"])
	assert.EqualValues(t, 5, find["options"].(map[string]any)["limit"])
}

func TestSearch_Empty(t *testing.T) {
	s, _ := newTestStore(t, func(c call) (int, string) {
		return 200, `{"data":{"documents":[]}}`
	})
	matches, err := s.Search(context.Background(), "c", pdfvec.SearchQuery{Text: "q"})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSearch_NoQuery(t *testing.T) {
	s, api := newTestStore(t, func(c call) (int, string) { return 200, `{}` })
	_, err := s.Search(context.Background(), "c", pdfvec.SearchQuery{})
	require.Error(t, err)
	assert.Empty(t, api.calls)
}

func TestCommand_ServerError(t *testing.T) {
	s, _ := newTestStore(t, func(c call) (int, string) {
		return http.StatusServiceUnavailable, "unavailable"
	})
	_, err := s.ListCollections(context.Background())
	var httpErr *pdfvec.ErrHTTP
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, 503, httpErr.Status)
	assert.True(t, strings.Contains(httpErr.Body, "unavailable"))
}

func TestCommand_ContextCanceled(t *testing.T) {
	s, _ := newTestStore(t, func(c call) (int, string) { return 200, `{}` })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.ListCollections(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestNameAndClose(t *testing.T) {
	s := New("http://localhost", "t")
	assert.Equal(t, "astra", s.Name())
	assert.NoError(t, s.Close())
}
