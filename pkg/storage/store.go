// Package storage defines the persistence boundary of the analyzer: the
// Store interface consumed by ingestion, queries and statistics, and a single
// SQL implementation shared by the DuckDB and ClickHouse backends.
package storage

import (
	"context"

	"github.com/scality/lb-log-analyzer/pkg/accesslog"
)

// Store persists access log records and answers filtered and grouped reads
type Store interface {
	// EnsureSchema creates the table and its indexes if they do not exist
	EnsureSchema(ctx context.Context) error
	// Clear deletes every record and returns how many were removed
	Clear(ctx context.Context) (int64, error)
	// InsertBatch writes records atomically: all of them or none
	InsertBatch(ctx context.Context, records []accesslog.LogRecord) error
	// Count returns the number of records matching where
	Count(ctx context.Context, where Where) (int64, error)
	// Find returns one page of matching records, newest first
	Find(ctx context.Context, where Where, page Page) ([]accesslog.LogRecord, error)
	// Stream calls fn for every matching record, newest first
	Stream(ctx context.Context, where Where, fn func(*accesslog.LogRecord) error) error
	// GroupBy runs a grouped aggregation
	GroupBy(ctx context.Context, q GroupQuery) ([]GroupRow, error)
	// Values calls fn for every non-null value of a float column
	Values(ctx context.Context, field Field, where Where, fn func(float64) error) error
	// Ping checks the backend is reachable
	Ping(ctx context.Context) error
	Close() error
}

// Page selects a window of an ordered result. A zero Limit means no limit.
type Page struct {
	Limit  int
	Offset int
}

// Metric is the aggregate a GroupQuery orders by
type Metric int

const (
	// MetricCount orders groups by row count
	MetricCount Metric = iota
	// MetricSum orders groups by the sum of an integer column
	MetricSum
	// MetricAvg orders groups by the average of a float column
	MetricAvg
)

// GroupQuery groups matching rows by Key and returns the Limit groups with
// the highest Metric. Field is the aggregated column for MetricSum and
// MetricAvg. Ties are broken by ascending key.
type GroupQuery struct {
	Key    Field
	Metric Metric
	Field  Field
	Where  Where
	Limit  int
}

// GroupRow is one group of a GroupQuery result. Key is the group value
// rendered as text, empty for null. Total is set for MetricSum and Average
// for MetricAvg.
type GroupRow struct {
	Key     string
	Count   int64
	Total   int64
	Average float64
}

// Rows is the cursor returned by an Executor query
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// Executor runs SQL against one backend connection
type Executor interface {
	Exec(ctx context.Context, query string, args ...any) error
	Query(ctx context.Context, query string, args ...any) (Rows, error)
	// InsertBatch inserts rows into table atomically. columns are quoted
	// identifiers and every row holds one value per column.
	InsertBatch(ctx context.Context, table string, columns []string, rows [][]any) error
	Ping(ctx context.Context) error
	Close() error
}

// Dialect renders the SQL fragments that differ between backends. Column
// arguments are quoted identifiers.
type Dialect interface {
	// Table returns the (qualified) table name
	Table() string
	// Schema returns the statements creating the table and its indexes
	Schema() []string
	// ClearStatement returns the statement deleting every row
	ClearStatement() string
	// Contains renders a case-sensitive substring test with one placeholder
	Contains(column string) string
	// Count renders the row count as a 64-bit integer
	Count() string
	// Sum renders the sum of an integer column as a 64-bit integer, 0 when empty
	Sum(column string) string
	// Avg renders the average of a column as a float, 0 when empty
	Avg(column string) string
	// Key renders a column as text, empty for null
	Key(column string) string
}
