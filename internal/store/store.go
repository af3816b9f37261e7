package store

import (
	"context"
	"errors"

	"semindex/pkg/types"
)

var (
	// ErrNotFound is returned when a requested table doesn't exist.
	ErrNotFound = errors.New("not found")
	// ErrDimensionMismatch is returned when a vector's length differs from
	// the table's recorded dimensionality. Vectors are never silently
	// padded or truncated.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrEmptyTableName is returned for blank table names.
	ErrEmptyTableName = errors.New("table name cannot be empty")
)

// Metric selects the similarity measure for queries.
type Metric string

const (
	// MetricCosine is the default: cosine similarity, higher is closer.
	MetricCosine Metric = "cosine"
	// MetricDot scores by raw dot product.
	MetricDot Metric = "dot"
	// MetricEuclidean scores by negated L2 distance so that higher is
	// still closer.
	MetricEuclidean Metric = "euclidean"
)

// QueryResult is one ranked hit: the stored record plus its score.
type QueryResult struct {
	Record types.EmbeddingRecord
	Score  float64
}

// VectorStore persists embedding records and answers similarity queries.
// ReplaceTable and Upsert must not run concurrently against the same
// table; queries are read-only and may run concurrently.
type VectorStore interface {
	// ReplaceTable atomically swaps the named table's contents for
	// records, in a single transaction. The table's dimensionality is set
	// from the records, which must be uniform.
	ReplaceTable(ctx context.Context, name string, records []types.EmbeddingRecord) error

	// Upsert adds or overwrites records by symbol id. Vector lengths must
	// match the table's existing dimensionality.
	Upsert(ctx context.Context, name string, records []types.EmbeddingRecord) error

	// Query returns the topK records ranked by similarity under metric,
	// scores descending, ties broken by ascending symbol id. An empty
	// table yields an empty slice; topK greater than the record count
	// yields all records; topK <= 0 yields an empty slice.
	Query(ctx context.Context, name string, vector []float32, topK int, metric Metric) ([]QueryResult, error)

	// Count returns the number of records in the named table.
	Count(ctx context.Context, name string) (int, error)

	// TableDimension returns the recorded dimensionality of the table.
	TableDimension(ctx context.Context, name string) (int, error)

	// Tables lists the logical table names.
	Tables(ctx context.Context) ([]string, error)

	// Close releases the underlying database.
	Close() error
}
