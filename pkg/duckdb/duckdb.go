// Package duckdb is the embedded storage backend: an access log table in a
// DuckDB database file, or in memory when no path is configured.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb" // registers the "duckdb" driver

	"github.com/scality/lb-log-analyzer/pkg/storage"
)

const pingTimeout = 5 * time.Second

// Config holds DuckDB backend configuration
type Config struct {
	// Path is the database file; empty opens an in-memory database
	Path string
	// MemoryLimit is passed to SET memory_limit when non-empty (e.g. "1GB")
	MemoryLimit string
	Logger      *slog.Logger
}

// Executor runs statements on a DuckDB database
type Executor struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutor opens the database and verifies the connection
func NewExecutor(ctx context.Context, cfg Config) (*Executor, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("duckdb", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping duckdb: %w", err)
	}

	if cfg.MemoryLimit != "" {
		// SET does not take bound parameters
		limit := strings.ReplaceAll(cfg.MemoryLimit, "'", "")
		if _, err := db.ExecContext(ctx, fmt.Sprintf("SET memory_limit='%s'", limit)); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set memory limit: %w", err)
		}
	}

	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}
	logger.Info("opened duckdb database", "path", path)

	return &Executor{db: db, logger: logger}, nil
}

// Open opens a DuckDB store and ensures its schema exists
func Open(ctx context.Context, cfg Config) (*storage.SQLStore, error) {
	exec, err := NewExecutor(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store := storage.NewSQLStore(exec, Dialect{})
	if err := store.EnsureSchema(ctx); err != nil {
		_ = exec.Close()
		return nil, err
	}
	return store, nil
}

// Exec executes a statement
func (e *Executor) Exec(ctx context.Context, query string, args ...any) error {
	_, err := e.db.ExecContext(ctx, query, args...)
	return err
}

// Query executes a query returning rows
func (e *Executor) Query(ctx context.Context, query string, args ...any) (storage.Rows, error) {
	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// InsertBatch inserts rows in a single transaction through a prepared statement
func (e *Executor) InsertBatch(ctx context.Context, table string, columns []string, rows [][]any) error {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), placeholders)

	return e.transaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for i, row := range rows {
			if _, err := stmt.ExecContext(ctx, row...); err != nil {
				return fmt.Errorf("failed to insert row %d: %w", i, err)
			}
		}
		return nil
	})
}

// Ping checks the database connection
func (e *Executor) Ping(ctx context.Context) error {
	return e.db.PingContext(ctx)
}

// Close closes the database
func (e *Executor) Close() error {
	return e.db.Close()
}

// transaction runs fn in a transaction, rolled back when fn fails
func (e *Executor) transaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			e.logger.Error("failed to roll back transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
