// Package ingest turns newline-delimited access log text into stored
// records: each line is tokenized and validated, valid records are written
// in fixed-size batches, invalid lines are reported with their line number.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/semaphore"

	"github.com/scality/lb-log-analyzer/pkg/accesslog"
	"github.com/scality/lb-log-analyzer/pkg/storage"
)

const (
	// DefaultBatchSize is the number of records written per storage transaction
	DefaultBatchSize = 100

	// MaxLineBytes is the longest line the reader parses. Longer lines are
	// rejected and reported by their first longLinePreview bytes.
	MaxLineBytes = 1 << 20

	initialLineBuffer = 64 * 1024
	longLinePreview   = 256
)

// Mode selects what happens to existing records before a run
type Mode string

const (
	// ModeAppend keeps existing records
	ModeAppend Mode = "append"
	// ModeReplace deletes every record before the first line is read
	ModeReplace Mode = "replace"
)

// ParseMode returns the Mode named by s
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeAppend:
		return ModeAppend, nil
	case ModeReplace:
		return ModeReplace, nil
	default:
		return "", fmt.Errorf("unknown ingestion mode %q (must be append|replace)", s)
	}
}

// RunOptions configures one ingestion run
type RunOptions struct {
	Mode   Mode
	Format accesslog.Format
}

// InvalidLine describes a rejected line
type InvalidLine struct {
	Line    int    `json:"line"`
	Content string `json:"content"`
	Reason  string `json:"reason"`
}

// Result summarizes an ingestion run. For a completed run TotalLines equals
// ValidEntries plus InvalidEntries; blank lines are not counted.
type Result struct {
	RunID          string        `json:"runId"`
	Mode           Mode          `json:"mode"`
	TotalLines     int           `json:"totalLines"`
	ValidEntries   int           `json:"validEntries"`
	InvalidEntries int           `json:"invalidEntries"`
	InvalidLines   []InvalidLine `json:"invalidLines"`
	Batches        int           `json:"batches"`
	Cleared        int64         `json:"cleared"`
	Duration       time.Duration `json:"-"`
}

// Config holds pipeline configuration
type Config struct {
	Store storage.Store

	// BatchSize defaults to DefaultBatchSize
	BatchSize int

	// InvalidSampleLimit caps Result.InvalidLines, 0 keeps every distinct line
	InvalidSampleLimit int

	Metrics *Metrics
	Logger  *slog.Logger
}

// Pipeline ingests access log lines into a Store. Runs are serialized.
type Pipeline struct {
	store              storage.Store
	batchSize          int
	invalidSampleLimit int
	metrics            *Metrics
	logger             *slog.Logger

	// lock admits one run at a time
	lock *semaphore.Weighted
}

// NewPipeline creates a pipeline writing to cfg.Store
func NewPipeline(cfg Config) (*Pipeline, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("a store must be provided")
	}
	if cfg.BatchSize < 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", cfg.BatchSize)
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.InvalidSampleLimit < 0 {
		return nil, fmt.Errorf("invalid sample limit must not be negative, got %d", cfg.InvalidSampleLimit)
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetricsWithRegistry(prometheus.NewRegistry())
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Pipeline{
		store:              cfg.Store,
		batchSize:          cfg.BatchSize,
		invalidSampleLimit: cfg.InvalidSampleLimit,
		metrics:            cfg.Metrics,
		logger:             cfg.Logger,
		lock:               semaphore.NewWeighted(1),
	}, nil
}

// Run reads lines from r until EOF. Rejected lines never stop the run; a
// storage failure aborts it and is returned with the partial Result.
// Interrupting a replace run after the clear leaves storage partially loaded.
func (p *Pipeline) Run(ctx context.Context, r io.Reader, opts RunOptions) (*Result, error) {
	parse := opts.Format.Parser()

	return p.execute(ctx, opts, func(rn *run) error {
		lines := newLineReader(r)

		lineNo := 0
		for {
			line, truncated, err := lines.next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return fmt.Errorf("failed to read line %d: %w", lineNo+1, err)
			}
			lineNo++

			if truncated {
				rn.reject(lineNo, line[:longLinePreview], fmt.Sprintf("line longer than %d bytes", MaxLineBytes))
				continue
			}
			if strings.TrimSpace(line) == "" {
				continue
			}

			rec, err := parse(line)
			if err != nil {
				rn.reject(lineNo, line, err.Error())
				continue
			}
			if err := rn.accept(ctx, rec, line, lineNo); err != nil {
				return err
			}
		}
		return nil
	})
}

// Load validates and stores already parsed records. Rejected records are
// reported with their 1-based position and rendered as a log line.
func (p *Pipeline) Load(ctx context.Context, records []accesslog.LogRecord, opts RunOptions) (*Result, error) {
	return p.execute(ctx, opts, func(rn *run) error {
		for i := range records {
			if err := rn.accept(ctx, records[i], "", i+1); err != nil {
				return err
			}
		}
		return nil
	})
}

// execute wraps a run body with locking, clearing, final flush, logging and
// metrics
func (p *Pipeline) execute(ctx context.Context, opts RunOptions, body func(*run) error) (*Result, error) {
	if opts.Mode == "" {
		opts.Mode = ModeAppend
	}

	if err := p.lock.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("failed to acquire ingestion lock: %w", err)
	}
	defer p.lock.Release(1)

	start := time.Now()
	rn := &run{
		pipeline: p,
		batch:    newBatch(p.batchSize),
		seen:     make(map[string]bool),
		result: &Result{
			RunID:        uuid.NewString(),
			Mode:         opts.Mode,
			InvalidLines: []InvalidLine{},
		},
	}
	rn.logger = p.logger.With("runId", rn.result.RunID, "mode", opts.Mode)
	rn.logger.Info("ingestion run started", "format", opts.Format)

	err := rn.clearIfReplacing(ctx)
	if err == nil {
		err = body(rn)
	}
	if err == nil {
		err = rn.flush(ctx)
	}

	rn.result.Duration = time.Since(start)
	p.metrics.RunDuration.Observe(rn.result.Duration.Seconds())

	if err != nil {
		p.metrics.Runs.WithLabelValues(string(opts.Mode), "failed").Inc()
		rn.logger.Error("ingestion run failed",
			"error", err,
			"validEntries", rn.result.ValidEntries,
			"invalidEntries", rn.result.InvalidEntries)
		return rn.result, err
	}

	p.metrics.Runs.WithLabelValues(string(opts.Mode), "success").Inc()
	rn.logger.Info("ingestion run completed",
		"totalLines", rn.result.TotalLines,
		"validEntries", rn.result.ValidEntries,
		"invalidEntries", rn.result.InvalidEntries,
		"batches", rn.result.Batches,
		"durationSeconds", rn.result.Duration.Seconds())
	return rn.result, nil
}

// run is the state of one ingestion run
type run struct {
	pipeline *Pipeline
	logger   *slog.Logger
	batch    *Batch
	result   *Result
	seen     map[string]bool
}

func (rn *run) clearIfReplacing(ctx context.Context) error {
	if rn.result.Mode != ModeReplace {
		return nil
	}
	n, err := rn.pipeline.store.Clear(ctx)
	if err != nil {
		return err
	}
	rn.result.Cleared = n
	rn.pipeline.metrics.RowsCleared.Add(float64(n))
	rn.logger.Info("cleared existing records", "rows", n)
	return nil
}

// accept validates rec and adds it to the current batch, flushing when full.
// line is the original text, empty when the record was not parsed from text.
func (rn *run) accept(ctx context.Context, rec accesslog.LogRecord, line string, lineNo int) error {
	if missing := accesslog.MissingFields(&rec); len(missing) > 0 {
		if line == "" {
			line = accesslog.FormatFullLine(&rec)
		}
		rn.reject(lineNo, line, "missing fields: "+strings.Join(missing, ", "))
		return nil
	}

	rn.result.TotalLines++
	rn.pipeline.metrics.Lines.WithLabelValues("valid").Inc()
	rn.batch.add(rec, lineNo)
	if len(rn.batch.Records) >= rn.pipeline.batchSize {
		return rn.flush(ctx)
	}
	return nil
}

func (rn *run) reject(lineNo int, line, reason string) {
	rn.result.TotalLines++
	rn.result.InvalidEntries++
	rn.pipeline.metrics.Lines.WithLabelValues("invalid").Inc()
	rn.logger.Debug("rejected log line", "line", lineNo, "reason", reason)

	if rn.seen[line] {
		return
	}
	limit := rn.pipeline.invalidSampleLimit
	if limit > 0 && len(rn.result.InvalidLines) >= limit {
		return
	}
	rn.seen[line] = true
	rn.result.InvalidLines = append(rn.result.InvalidLines, InvalidLine{
		Line:    lineNo,
		Content: line,
		Reason:  reason,
	})
}

// flush writes the current batch in one storage transaction. Cancellation is
// only observed between batches.
func (rn *run) flush(ctx context.Context) error {
	if len(rn.batch.Records) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("ingestion interrupted before %s: %w", rn.batch, err)
	}

	start := time.Now()
	if err := rn.pipeline.store.InsertBatch(ctx, rn.batch.Records); err != nil {
		return err
	}
	rn.pipeline.metrics.BatchFlushDuration.Observe(time.Since(start).Seconds())
	rn.pipeline.metrics.BatchesCommitted.Inc()

	rn.result.Batches++
	rn.result.ValidEntries += len(rn.batch.Records)
	rn.logger.Debug("batch committed", "batch", rn.batch.String())
	rn.batch.reset()
	return nil
}
