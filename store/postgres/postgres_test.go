package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pdfvec "github.com/nevindra/pdfvec"
)

func TestInsertSQL(t *testing.T) {
	upsert := insertSQL(`"docs"`, pdfvec.DuplicateUpsert)
	assert.Contains(t, upsert, "ON CONFLICT (id) DO UPDATE")
	assert.Contains(t, upsert, "RETURNING (xmax = 0)")

	reject := insertSQL(`"docs"`, pdfvec.DuplicateReject)
	assert.Contains(t, reject, "ON CONFLICT (id) DO NOTHING")
	assert.NotContains(t, reject, "DO UPDATE")
}

func TestHNSWWithClause(t *testing.T) {
	assert.Equal(t, "", pgConfig{}.hnswWithClause())

	var cfg pgConfig
	WithHNSWM(32)(&cfg)
	WithEFConstruction(128)(&cfg)
	assert.Equal(t, " WITH (m = 32, ef_construction = 128)", cfg.hnswWithClause())
}

func TestCollectionDDL(t *testing.T) {
	s := New(nil, WithHNSWM(8))
	ddl := s.collectionDDL("pdf_documents", 768)
	require.Len(t, ddl, 3)
	assert.Contains(t, ddl[0], `"pdf_documents"`)
	assert.Contains(t, ddl[0], "vector(768)")
	assert.Contains(t, ddl[2], "vector_cosine_ops")
	assert.True(t, strings.HasSuffix(ddl[2], " WITH (m = 8)"))
}

func TestClassify(t *testing.T) {
	dup := classify(&pgconn.PgError{Code: codeUniqueViolation, Message: "duplicate key"})
	assert.ErrorIs(t, dup, pdfvec.ErrDuplicateID)

	dims := classify(&pgconn.PgError{Code: codeDataException, Message: "expected 3 dimensions, not 2"})
	assert.ErrorIs(t, dims, pdfvec.ErrDimensionMismatch)

	plain := errors.New("boom")
	assert.Equal(t, plain, classify(plain))
}

func TestDelegatedModeUnsupported(t *testing.T) {
	s := New(nil)
	ctx := context.Background()

	err := s.EnsureCollection(ctx, pdfvec.CollectionSpec{Name: "docs", Mode: pdfvec.ModeDelegated})
	assert.ErrorIs(t, err, pdfvec.ErrUnsupportedMode)

	_, err = s.Search(ctx, "docs", pdfvec.SearchQuery{Text: "hello"})
	assert.ErrorIs(t, err, pdfvec.ErrUnsupportedMode)

	recs := []pdfvec.ChunkRecord{pdfvec.NewChunkRecord("a.pdf", 0, 1, "text")}
	_, err = s.InsertMany(ctx, "docs", recs, pdfvec.DuplicateUpsert)
	assert.ErrorIs(t, err, pdfvec.ErrUnsupportedMode)
}

// --- Integration tests (need PostgreSQL with pgvector) ---

func testStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("PDFVEC_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PDFVEC_TEST_POSTGRES_DSN not set, skipping integration test")
	}
	ctx := context.Background()
	s, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func dropCollection(t *testing.T, s *Store, name string) {
	t.Helper()
	t.Cleanup(func() {
		ctx := context.Background()
		_, _ = s.pool.Exec(ctx, "DROP TABLE IF EXISTS "+tableName(name))
		_, _ = s.pool.Exec(ctx, "DELETE FROM "+registryTable+" WHERE name = $1", name)
	})
}

func vecRecords(source string, vecs ...[]float32) []pdfvec.ChunkRecord {
	out := make([]pdfvec.ChunkRecord, len(vecs))
	for i, v := range vecs {
		out[i] = pdfvec.NewChunkRecord(source, i, len(vecs), fmt.Sprintf("chunk %d", i))
		out[i].Embedding = v
	}
	return out
}

func TestIntegration_RoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	name := fmt.Sprintf("it_%d", time.Now().UnixNano())
	dropCollection(t, s, name)

	spec := pdfvec.CollectionSpec{Name: name, Mode: pdfvec.ModeLocal, Dimensions: 3}
	require.NoError(t, s.EnsureCollection(ctx, spec))
	require.NoError(t, s.EnsureCollection(ctx, spec))

	names, err := s.ListCollections(ctx)
	require.NoError(t, err)
	assert.Contains(t, names, name)

	recs := vecRecords("a.pdf", []float32{1, 0, 0}, []float32{0, 1, 0}, []float32{0.9, 0.1, 0})
	res, err := s.InsertMany(ctx, name, recs, pdfvec.DuplicateUpsert)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Inserted)

	res, err = s.InsertMany(ctx, name, recs, pdfvec.DuplicateUpsert)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Inserted)
	assert.Equal(t, 3, res.Replaced)

	res, err = s.InsertMany(ctx, name, recs[:1], pdfvec.DuplicateReject)
	require.ErrorIs(t, err, pdfvec.ErrDuplicateID)
	assert.Len(t, res.Rejected, 1)

	matches, err := s.Search(ctx, name, pdfvec.SearchQuery{Vector: []float32{1, 0, 0}, Limit: 2})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, recs[0].ID, matches[0].Record.ID)
	assert.InDelta(t, 1.0, matches[0].Similarity, 1e-6)
	assert.Equal(t, recs[2].ID, matches[1].Record.ID)
	assert.GreaterOrEqual(t, matches[0].Similarity, matches[1].Similarity)
}

func TestIntegration_DimensionMismatch(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	name := fmt.Sprintf("it_dim_%d", time.Now().UnixNano())
	dropCollection(t, s, name)

	require.NoError(t, s.EnsureCollection(ctx, pdfvec.CollectionSpec{Name: name, Mode: pdfvec.ModeLocal, Dimensions: 3}))

	err := s.EnsureCollection(ctx, pdfvec.CollectionSpec{Name: name, Mode: pdfvec.ModeLocal, Dimensions: 4})
	assert.ErrorIs(t, err, pdfvec.ErrDimensionMismatch)

	_, err = s.InsertMany(ctx, name, vecRecords("b.pdf", []float32{1, 2}), pdfvec.DuplicateUpsert)
	assert.ErrorIs(t, err, pdfvec.ErrDimensionMismatch)
}
