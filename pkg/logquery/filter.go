// Package logquery turns user-facing log filters into storage predicates and
// serves paginated record queries.
package logquery

import (
	"time"

	"github.com/scality/lb-log-analyzer/pkg/storage"
)

// Filter selects access log records. Zero-valued fields are ignored; all set
// fields must match.
type Filter struct {
	Start      *time.Time
	End        *time.Time
	StatusCode *int64
	Method     string

	// SearchTerm matches request URLs or user agents containing it,
	// case sensitive
	SearchTerm string
}

// Where returns the predicate list of the filter
func (f Filter) Where() storage.Where {
	var where storage.Where
	if f.Start != nil {
		where = where.And(storage.Gte(storage.FieldTimestamp, f.Start.UTC()))
	}
	if f.End != nil {
		where = where.And(storage.Lte(storage.FieldTimestamp, f.End.UTC()))
	}
	if f.StatusCode != nil {
		where = where.And(storage.Eq(storage.FieldELBStatusCode, *f.StatusCode))
	}
	if f.Method != "" {
		where = where.And(storage.Eq(storage.FieldRequestMethod, f.Method))
	}
	if f.SearchTerm != "" {
		where = where.And(storage.AnyOf(
			storage.Contains(storage.FieldRequestURL, f.SearchTerm),
			storage.Contains(storage.FieldUserAgent, f.SearchTerm),
		))
	}
	return where
}

// Window returns a filter on the inclusive time range [start, end]
func Window(start, end time.Time) Filter {
	return Filter{Start: &start, End: &end}
}
