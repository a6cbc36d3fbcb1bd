package testutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/scality/lb-log-analyzer/pkg/accesslog"
	"github.com/scality/lb-log-analyzer/pkg/duckdb"
	"github.com/scality/lb-log-analyzer/pkg/storage"
)

// DiscardLogger returns a logger that drops every record
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewMemoryStore opens an in-memory DuckDB store with its schema created
func NewMemoryStore(ctx context.Context) (*storage.SQLStore, error) {
	store, err := duckdb.Open(ctx, duckdb.Config{Logger: DiscardLogger()})
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory store: %w", err)
	}
	return store, nil
}

// SeedStore inserts records in batches of batchSize
func SeedStore(ctx context.Context, store storage.Store, records []accesslog.LogRecord, batchSize int) error {
	for start := 0; start < len(records); start += batchSize {
		end := min(start+batchSize, len(records))
		if err := store.InsertBatch(ctx, records[start:end]); err != nil {
			return fmt.Errorf("failed to seed records %d-%d: %w", start, end, err)
		}
	}
	return nil
}
