package stats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/DataDog/sketches-go/ddsketch"

	"github.com/scality/lb-log-analyzer/pkg/logquery"
	"github.com/scality/lb-log-analyzer/pkg/storage"
)

const (
	topURLLimit       = 10
	topBytesLimit     = 5
	topUserAgentLimit = 5

	// DefaultRelativeAccuracy is the relative error of latency quantiles
	DefaultRelativeAccuracy = 0.01
)

// ErrInvalidWindow is returned when the window end precedes its start
var ErrInvalidWindow = errors.New("invalid statistics window")

// Config holds aggregator configuration
type Config struct {
	Store storage.Store

	// RelativeAccuracy defaults to DefaultRelativeAccuracy
	RelativeAccuracy float64

	Logger *slog.Logger
}

// Aggregator computes Statistics with independent grouped scans. The scans
// are not taken from a single snapshot: an ingestion running concurrently
// may be partially visible.
type Aggregator struct {
	store    storage.Store
	accuracy float64
	logger   *slog.Logger
}

// NewAggregator creates an aggregator over cfg.Store
func NewAggregator(cfg Config) (*Aggregator, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("a store must be provided")
	}
	if cfg.RelativeAccuracy == 0 {
		cfg.RelativeAccuracy = DefaultRelativeAccuracy
	}
	if cfg.RelativeAccuracy <= 0 || cfg.RelativeAccuracy >= 1 {
		return nil, fmt.Errorf("relative accuracy must be in (0, 1), got %g", cfg.RelativeAccuracy)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Aggregator{store: cfg.Store, accuracy: cfg.RelativeAccuracy, logger: cfg.Logger}, nil
}

// Compute returns the statistics of records with a timestamp in [start, end]
func (a *Aggregator) Compute(ctx context.Context, start, end time.Time) (*Statistics, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end %s is before start %s",
			ErrInvalidWindow, end.Format(time.RFC3339), start.Format(time.RFC3339))
	}

	began := time.Now()
	window := logquery.Window(start, end).Where()
	s := &Statistics{}

	var err error
	if s.TotalRequests, err = a.store.Count(ctx, window); err != nil {
		return nil, fmt.Errorf("failed to count requests: %w", err)
	}

	rows, err := a.group(ctx, "status codes", storage.GroupQuery{Key: storage.FieldELBStatusCode, Where: window})
	if err != nil {
		return nil, err
	}
	s.StatusCodeDistribution = make([]StatusCodeCount, 0, len(rows))
	for _, r := range rows {
		s.StatusCodeDistribution = append(s.StatusCodeDistribution, StatusCodeCount{
			StatusCode: parseStatusCode(r.Key),
			Count:      r.Count,
		})
	}

	rows, err = a.group(ctx, "request methods", storage.GroupQuery{Key: storage.FieldRequestMethod, Where: window})
	if err != nil {
		return nil, err
	}
	s.RequestMethodDistribution = make([]MethodCount, 0, len(rows))
	for _, r := range rows {
		s.RequestMethodDistribution = append(s.RequestMethodDistribution, MethodCount{Method: r.Key, Count: r.Count})
	}

	if s.TopURLs, err = a.topURLs(ctx, "top urls", window); err != nil {
		return nil, err
	}
	clientErrors := window.And(
		storage.Gte(storage.FieldELBStatusCode, int64(400)),
		storage.Lt(storage.FieldELBStatusCode, int64(500)),
	)
	if s.TopURLs4xx, err = a.topURLs(ctx, "top 4xx urls", clientErrors); err != nil {
		return nil, err
	}
	serverErrors := window.And(storage.Gte(storage.FieldELBStatusCode, int64(500)))
	if s.TopURLs5xx, err = a.topURLs(ctx, "top 5xx urls", serverErrors); err != nil {
		return nil, err
	}

	if s.TopURLsByInBytes, err = a.topBytes(ctx, "top urls by received bytes", storage.FieldReceivedBytes, window); err != nil {
		return nil, err
	}
	if s.TopURLsByOutBytes, err = a.topBytes(ctx, "top urls by sent bytes", storage.FieldSentBytes, window); err != nil {
		return nil, err
	}

	rows, err = a.group(ctx, "top user agents", storage.GroupQuery{
		Key: storage.FieldUserAgent, Where: window, Limit: topUserAgentLimit,
	})
	if err != nil {
		return nil, err
	}
	s.TopUserAgents = make([]UserAgentCount, 0, len(rows))
	for _, r := range rows {
		s.TopUserAgents = append(s.TopUserAgents, UserAgentCount{UserAgent: r.Key, Count: r.Count})
	}

	rows, err = a.group(ctx, "top urls by response time", storage.GroupQuery{
		Key:    storage.FieldRequestURL,
		Metric: storage.MetricAvg,
		Field:  storage.FieldRequestProcessingTime,
		Where:  window,
		Limit:  topURLLimit,
	})
	if err != nil {
		return nil, err
	}
	s.TopURLsByResponseTime = make([]URLLatency, 0, len(rows))
	for _, r := range rows {
		s.TopURLsByResponseTime = append(s.TopURLsByResponseTime, URLLatency{
			URL: r.Key, AvgTime: r.Average, RequestCount: r.Count,
		})
	}

	if s.TargetProcessingTime, err = a.percentiles(ctx, storage.FieldTargetProcessingTime, window); err != nil {
		return nil, err
	}

	a.logger.Debug("statistics computed",
		"start", start,
		"end", end,
		"totalRequests", s.TotalRequests,
		"durationSeconds", time.Since(began).Seconds())
	return s, nil
}

func (a *Aggregator) group(ctx context.Context, what string, q storage.GroupQuery) ([]storage.GroupRow, error) {
	rows, err := a.store.GroupBy(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to compute %s: %w", what, err)
	}
	return rows, nil
}

func (a *Aggregator) topURLs(ctx context.Context, what string, where storage.Where) ([]URLCount, error) {
	rows, err := a.group(ctx, what, storage.GroupQuery{Key: storage.FieldRequestURL, Where: where, Limit: topURLLimit})
	if err != nil {
		return nil, err
	}
	urls := make([]URLCount, 0, len(rows))
	for _, r := range rows {
		urls = append(urls, URLCount{URL: r.Key, Count: r.Count})
	}
	return urls, nil
}

func (a *Aggregator) topBytes(ctx context.Context, what string, field storage.Field, where storage.Where) ([]URLBytes, error) {
	rows, err := a.group(ctx, what, storage.GroupQuery{
		Key:    storage.FieldRequestURL,
		Metric: storage.MetricSum,
		Field:  field,
		Where:  where,
		Limit:  topBytesLimit,
	})
	if err != nil {
		return nil, err
	}
	urls := make([]URLBytes, 0, len(rows))
	for _, r := range rows {
		urls = append(urls, URLBytes{URL: r.Key, TotalBytes: r.Total, RequestCount: r.Count})
	}
	return urls, nil
}

// percentiles builds a sketch over the non-negative values of field. ALB
// logs -1 for requests that never reached a target; those are skipped.
func (a *Aggregator) percentiles(ctx context.Context, field storage.Field, where storage.Where) (Percentiles, error) {
	sketch, err := ddsketch.NewDefaultDDSketch(a.accuracy)
	if err != nil {
		return Percentiles{}, fmt.Errorf("failed to create sketch: %w", err)
	}

	var p Percentiles
	err = a.store.Values(ctx, field, where, func(v float64) error {
		if v < 0 {
			return nil
		}
		p.Count++
		return sketch.Add(v)
	})
	if err != nil {
		return Percentiles{}, fmt.Errorf("failed to compute %s percentiles: %w", field, err)
	}
	if p.Count == 0 {
		return p, nil
	}

	quantiles, err := sketch.GetValuesAtQuantiles([]float64{0.50, 0.90, 0.99})
	if err != nil {
		return Percentiles{}, fmt.Errorf("failed to read %s quantiles: %w", field, err)
	}
	p.P50, p.P90, p.P99 = quantiles[0], quantiles[1], quantiles[2]
	return p, nil
}

func parseStatusCode(key string) *int64 {
	code, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return nil
	}
	return &code
}
