// Package postgres implements pdfvec.VectorStore using PostgreSQL with
// pgvector. Each collection is a table with a fixed-dimension vector column
// and an HNSW cosine index; a registry table records the collections.
//
// Only locally computed embeddings are supported: PostgreSQL has no
// server-side vectorize service.
//
// New accepts an externally-owned *pgxpool.Pool; Open creates a pool that
// the Store owns and closes.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	pdfvec "github.com/nevindra/pdfvec"
)

// registryTable lists every collection created through this package.
const registryTable = "pdfvec_collections"

// Store implements pdfvec.VectorStore backed by PostgreSQL with pgvector.
type Store struct {
	pool  *pgxpool.Pool
	owned bool
	cfg   pgConfig
}

var _ pdfvec.VectorStore = (*Store)(nil)

// New creates a Store using an existing pgxpool.Pool.
// The caller owns the pool and is responsible for closing it.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	cfg := pgConfig{}
	for _, o := range opts {
		o(&cfg)
	}
	return &Store{pool: pool, cfg: cfg}
}

// Open connects to dsn and returns a Store that closes its pool on Close.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	s := New(pool, opts...)
	s.owned = true
	return s, nil
}

// Name returns "postgres".
func (s *Store) Name() string { return "postgres" }

// Close closes the pool if the Store opened it.
func (s *Store) Close() error {
	if s.owned {
		s.pool.Close()
	}
	return nil
}

// Init creates the pgvector extension and the collection registry.
// Safe to call multiple times (all statements are idempotent).
func (s *Store) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS ` + registryTable + ` (
			name TEXT PRIMARY KEY,
			dimensions INTEGER NOT NULL,
			metric TEXT NOT NULL,
			created_at BIGINT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: init: %w", err)
		}
	}
	return nil
}

// ListCollections returns the registered collections ordered by name.
// A database that was never initialised has none.
func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT name FROM `+registryTable+` ORDER BY name`)
	if err != nil {
		if pgCode(err) == codeUndefinedTable {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: list collections: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("postgres: scan collections: %w", err)
	}
	return names, nil
}

// EnsureCollection creates the collection table, its indexes and its
// registry entry. An existing collection is left as is, but a dimension
// differing from the registered one is an error.
func (s *Store) EnsureCollection(ctx context.Context, spec pdfvec.CollectionSpec) error {
	if err := pdfvec.ValidateCollectionName(spec.Name); err != nil {
		return err
	}
	if spec.Mode != pdfvec.ModeLocal {
		return fmt.Errorf("postgres: collection %s: %w: %q", spec.Name, pdfvec.ErrUnsupportedMode, spec.Mode)
	}
	if spec.Dimensions <= 0 {
		return fmt.Errorf("postgres: collection %s: vector dimension must be positive", spec.Name)
	}
	if spec.Metric != "" && spec.Metric != "cosine" {
		return fmt.Errorf("postgres: collection %s: unsupported metric %q", spec.Name, spec.Metric)
	}
	if err := s.Init(ctx); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var existing int
	err = tx.QueryRow(ctx, `SELECT dimensions FROM `+registryTable+` WHERE name = $1`, spec.Name).Scan(&existing)
	switch {
	case err == nil:
		if existing != spec.Dimensions {
			return fmt.Errorf("postgres: collection %s has %d dimensions, want %d: %w",
				spec.Name, existing, spec.Dimensions, pdfvec.ErrDimensionMismatch)
		}
		return nil
	case !errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("postgres: lookup collection: %w", err)
	}

	for _, stmt := range s.collectionDDL(spec.Name, spec.Dimensions) {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: create collection %s: %w", spec.Name, err)
		}
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO `+registryTable+` (name, dimensions, metric, created_at)
		 VALUES ($1, $2, 'cosine', $3)
		 ON CONFLICT (name) DO NOTHING`,
		spec.Name, spec.Dimensions, time.Now().Unix()); err != nil {
		return fmt.Errorf("postgres: register collection %s: %w", spec.Name, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit tx: %w", err)
	}
	return nil
}

// collectionDDL returns the statements creating a collection table.
func (s *Store) collectionDDL(name string, dims int) []string {
	table := tableName(name)
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			chunk_id INTEGER NOT NULL,
			total_chunks INTEGER NOT NULL,
			text TEXT NOT NULL,
			embedding vector(%d) NOT NULL,
			created_at BIGINT NOT NULL
		)`, table, dims),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (source)`,
			pgx.Identifier{name + "_source_idx"}.Sanitize(), table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (embedding vector_cosine_ops)%s`,
			pgx.Identifier{name + "_embedding_idx"}.Sanitize(), table, s.cfg.hnswWithClause()),
	}
}

// InsertMany writes records in one transaction. Under DuplicateUpsert an
// existing id is overwritten and counted as replaced; under DuplicateReject
// it is left untouched and reported with ErrDuplicateID.
func (s *Store) InsertMany(ctx context.Context, collection string, records []pdfvec.ChunkRecord, policy pdfvec.DuplicatePolicy) (pdfvec.InsertResult, error) {
	var result pdfvec.InsertResult
	if len(records) == 0 {
		return result, nil
	}
	if err := pdfvec.ValidateCollectionName(collection); err != nil {
		return result, err
	}
	for _, r := range records {
		if len(r.Embedding) == 0 {
			return result, fmt.Errorf("postgres: record %s has no embedding: %w", r.ID, pdfvec.ErrUnsupportedMode)
		}
	}

	query := insertSQL(tableName(collection), policy)
	now := time.Now().Unix()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return result, fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(query, r.ID, r.SourceID, r.SequenceIndex, r.TotalChunks, r.Text, pgvector.NewVector(r.Embedding), now)
	}
	br := tx.SendBatch(ctx, batch)

	var pending pdfvec.InsertResult
	for _, r := range records {
		var inserted bool
		err := br.QueryRow().Scan(&inserted)
		switch {
		case err == nil && inserted:
			pending.Inserted++
		case err == nil:
			pending.Replaced++
		case errors.Is(err, pgx.ErrNoRows):
			// ON CONFLICT DO NOTHING returned no row.
			pending.Rejected = append(pending.Rejected, pdfvec.RecordError{ID: r.ID, Err: pdfvec.ErrDuplicateID})
		default:
			br.Close() //nolint:errcheck
			return result, fmt.Errorf("postgres: insert %s: %w", r.ID, classify(err))
		}
	}
	if err := br.Close(); err != nil {
		return result, fmt.Errorf("postgres: insert batch: %w", classify(err))
	}
	if err := tx.Commit(ctx); err != nil {
		return result, fmt.Errorf("postgres: commit tx: %w", classify(err))
	}

	result = pending
	if err := result.Err(); err != nil {
		return result, fmt.Errorf("postgres: insert many: %d of %d records rejected: %w", len(result.Rejected), len(records), err)
	}
	return result, nil
}

// insertSQL returns the insert statement for policy. The statement returns
// one boolean row per stored record: true when the row is new.
func insertSQL(table string, policy pdfvec.DuplicatePolicy) string {
	base := `INSERT INTO ` + table + ` (id, source, chunk_id, total_chunks, text, embedding, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6::vector, $7)`
	if policy == pdfvec.DuplicateReject {
		return base + `
		 ON CONFLICT (id) DO NOTHING
		 RETURNING true`
	}
	return base + `
		 ON CONFLICT (id) DO UPDATE SET
		   source = EXCLUDED.source,
		   chunk_id = EXCLUDED.chunk_id,
		   total_chunks = EXCLUDED.total_chunks,
		   text = EXCLUDED.text,
		   embedding = EXCLUDED.embedding,
		   created_at = EXCLUDED.created_at
		 RETURNING (xmax = 0)`
}

// Search ranks records by cosine distance to q.Vector. Similarity is
// reported as 1 - distance/2, which maps cosine similarity onto [0, 1].
func (s *Store) Search(ctx context.Context, collection string, q pdfvec.SearchQuery) ([]pdfvec.Match, error) {
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("postgres: search needs a query vector: %w", pdfvec.ErrUnsupportedMode)
	}
	if err := pdfvec.ValidateCollectionName(collection); err != nil {
		return nil, err
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 5
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if s.cfg.hnswEFSearch > 0 {
		if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL hnsw.ef_search = %d", s.cfg.hnswEFSearch)); err != nil {
			return nil, fmt.Errorf("postgres: set ef_search: %w", err)
		}
	}

	rows, err := tx.Query(ctx,
		`SELECT id, source, chunk_id, total_chunks, text,
		        1 - (embedding <=> $1::vector) / 2 AS similarity
		 FROM `+tableName(collection)+`
		 ORDER BY embedding <=> $1::vector
		 LIMIT $2`,
		pgvector.NewVector(q.Vector), limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: search: %w", classify(err))
	}
	defer rows.Close()

	var matches []pdfvec.Match
	for rows.Next() {
		var m pdfvec.Match
		r := &m.Record
		if err := rows.Scan(&r.ID, &r.SourceID, &r.SequenceIndex, &r.TotalChunks, &r.Text, &m.Similarity); err != nil {
			return nil, fmt.Errorf("postgres: scan match: %w", err)
		}
		m.HasSimilarity = true
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate matches: %w", classify(err))
	}
	return matches, nil
}

// tableName quotes a validated collection name as a table identifier.
func tableName(collection string) string {
	return pgx.Identifier{collection}.Sanitize()
}

// SQLSTATE codes this package maps onto pdfvec errors.
const (
	codeUniqueViolation = "23505"
	codeUndefinedTable  = "42P01"
	codeDataException   = "22000"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// classify attaches pdfvec sentinels to PostgreSQL errors.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch {
	case pgErr.Code == codeUniqueViolation:
		return fmt.Errorf("%w: %w", pdfvec.ErrDuplicateID, err)
	case pgErr.Code == codeDataException && strings.Contains(pgErr.Message, "dimensions"):
		return fmt.Errorf("%w: %w", pdfvec.ErrDimensionMismatch, err)
	case pgErr.Code == codeUndefinedTable:
		return fmt.Errorf("collection does not exist: %w", err)
	}
	return err
}
