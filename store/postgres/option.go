package postgres

import (
	"fmt"
	"strings"
)

// pgConfig holds store configuration set via Option functions.
type pgConfig struct {
	hnswM              int // 0 = pgvector default (16)
	hnswEFConstruction int // 0 = pgvector default (64)
	hnswEFSearch       int // 0 = pgvector default (40)
}

// Option configures a PostgreSQL Store.
type Option func(*pgConfig)

// WithHNSWM sets the HNSW m parameter (max connections per node).
// Only affects index creation.
func WithHNSWM(m int) Option {
	return func(c *pgConfig) { c.hnswM = m }
}

// WithEFConstruction sets the HNSW ef_construction parameter.
// Only affects index creation.
func WithEFConstruction(ef int) Option {
	return func(c *pgConfig) { c.hnswEFConstruction = ef }
}

// WithEFSearch sets hnsw.ef_search for each search transaction.
func WithEFSearch(ef int) Option {
	return func(c *pgConfig) { c.hnswEFSearch = ef }
}

// hnswWithClause returns the WITH (...) clause for HNSW index creation,
// or an empty string if no tuning params are set.
func (c pgConfig) hnswWithClause() string {
	var parts []string
	if c.hnswM > 0 {
		parts = append(parts, fmt.Sprintf("m = %d", c.hnswM))
	}
	if c.hnswEFConstruction > 0 {
		parts = append(parts, fmt.Sprintf("ef_construction = %d", c.hnswEFConstruction))
	}
	if len(parts) == 0 {
		return ""
	}
	return " WITH (" + strings.Join(parts, ", ") + ")"
}
