package logquery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/scality/lb-log-analyzer/pkg/accesslog"
	"github.com/scality/lb-log-analyzer/pkg/storage"
)

const (
	// DefaultLimit is the page size used when a request does not set one
	DefaultLimit = 100
	// DefaultMaxLimit caps the page size a request may ask for
	DefaultMaxLimit = 1000
)

// ErrInvalidRequest is wrapped by errors about page or limit values
var ErrInvalidRequest = errors.New("invalid query request")

// Request is one paginated query. Page is 1-based; zero values select the
// defaults.
type Request struct {
	Filter Filter
	Page   int
	Limit  int
}

// Pagination describes the page returned by Execute
type Pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int64 `json:"totalPages"`
}

// Result is a page of records, newest first
type Result struct {
	Logs       []accesslog.LogRecord `json:"logs"`
	Pagination Pagination            `json:"pagination"`
}

// Config holds engine configuration
type Config struct {
	Store        storage.Store
	DefaultLimit int
	MaxLimit     int
	Logger       *slog.Logger
}

// Engine runs filtered, paginated record queries
type Engine struct {
	store        storage.Store
	defaultLimit int
	maxLimit     int
	logger       *slog.Logger
}

// NewEngine creates a query engine over cfg.Store
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("a store must be provided")
	}
	if cfg.DefaultLimit == 0 {
		cfg.DefaultLimit = DefaultLimit
	}
	if cfg.MaxLimit == 0 {
		cfg.MaxLimit = DefaultMaxLimit
	}
	if cfg.DefaultLimit < 0 || cfg.MaxLimit < 0 {
		return nil, fmt.Errorf("query limits must be positive")
	}
	if cfg.DefaultLimit > cfg.MaxLimit {
		return nil, fmt.Errorf("default limit %d exceeds max limit %d", cfg.DefaultLimit, cfg.MaxLimit)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Engine{
		store:        cfg.Store,
		defaultLimit: cfg.DefaultLimit,
		maxLimit:     cfg.MaxLimit,
		logger:       cfg.Logger,
	}, nil
}

// Execute returns the requested page and the total number of matching
// records. A page past the end is empty.
func (e *Engine) Execute(ctx context.Context, req Request) (*Result, error) {
	page, limit, err := e.normalize(req.Page, req.Limit)
	if err != nil {
		return nil, err
	}

	where := req.Filter.Where()
	logs, err := e.store.Find(ctx, where, storage.Page{Limit: limit, Offset: (page - 1) * limit})
	if err != nil {
		return nil, fmt.Errorf("failed to query logs: %w", err)
	}
	total, err := e.store.Count(ctx, where)
	if err != nil {
		return nil, fmt.Errorf("failed to count logs: %w", err)
	}

	e.logger.Debug("logs queried", "page", page, "limit", limit, "total", total, "returned", len(logs))

	return &Result{
		Logs: logs,
		Pagination: Pagination{
			Total:      total,
			Page:       page,
			Limit:      limit,
			TotalPages: (total + int64(limit) - 1) / int64(limit),
		},
	}, nil
}

func (e *Engine) normalize(page, limit int) (int, int, error) {
	if page < 0 {
		return 0, 0, fmt.Errorf("%w: page %d", ErrInvalidRequest, page)
	}
	if limit < 0 {
		return 0, 0, fmt.Errorf("%w: limit %d", ErrInvalidRequest, limit)
	}
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = e.defaultLimit
	}
	if limit > e.maxLimit {
		return 0, 0, fmt.Errorf("%w: limit %d exceeds maximum %d", ErrInvalidRequest, limit, e.maxLimit)
	}
	if page > math.MaxInt/limit {
		return 0, 0, fmt.Errorf("%w: page %d out of range", ErrInvalidRequest, page)
	}
	return page, limit, nil
}
