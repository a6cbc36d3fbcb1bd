package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/scality/lb-log-analyzer/pkg/accesslog"
)

// recordOrder is the order of Find and Stream: newest first, id as tie-break
var recordOrder = fmt.Sprintf(" ORDER BY %s DESC, %s DESC", FieldTimestamp.Quoted(), FieldID.Quoted())

// SQLStore implements Store over an Executor, using a Dialect for the SQL
// that differs between backends. Column names only come from the Field
// allowlist; values are always bound parameters.
type SQLStore struct {
	exec    Executor
	dialect Dialect
	columns string
}

// NewSQLStore creates a store running queries through exec
func NewSQLStore(exec Executor, dialect Dialect) *SQLStore {
	return &SQLStore{
		exec:    exec,
		dialect: dialect,
		columns: FieldID.Quoted() + ", " + strings.Join(ColumnNames(), ", "),
	}
}

// EnsureSchema runs the dialect's schema statements in order
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range s.dialect.Schema() {
		if err := s.exec.Exec(ctx, stmt); err != nil {
			return wrap("ensure schema", err)
		}
	}
	return nil
}

// Clear deletes every record
func (s *SQLStore) Clear(ctx context.Context) (int64, error) {
	n, err := s.Count(ctx, nil)
	if err != nil {
		return 0, err
	}
	if err := s.exec.Exec(ctx, s.dialect.ClearStatement()); err != nil {
		return 0, wrap("clear", err)
	}
	return n, nil
}

// InsertBatch inserts records in one backend transaction or block
func (s *SQLStore) InsertBatch(ctx context.Context, records []accesslog.LogRecord) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([][]any, len(records))
	for i := range records {
		rows[i] = recordValues(&records[i])
	}
	return wrap("insert batch", s.exec.InsertBatch(ctx, s.dialect.Table(), ColumnNames(), rows))
}

// Count returns the number of records matching where
func (s *SQLStore) Count(ctx context.Context, where Where) (int64, error) {
	cond, args, err := s.whereSQL(where)
	if err != nil {
		return 0, err
	}

	q := "SELECT " + s.dialect.Count() + " FROM " + s.dialect.Table() + cond
	var n int64
	err = s.query(ctx, "count", q, args, func(rows Rows) error {
		return wrap("count", rows.Scan(&n))
	})
	return n, err
}

// Find returns one page of matching records
func (s *SQLStore) Find(ctx context.Context, where Where, page Page) ([]accesslog.LogRecord, error) {
	records := []accesslog.LogRecord{}
	err := s.selectRecords(ctx, "find", where, page, func(rec *accesslog.LogRecord) error {
		records = append(records, *rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Stream calls fn for every matching record. An error returned by fn stops
// the scan and is returned unchanged.
func (s *SQLStore) Stream(ctx context.Context, where Where, fn func(*accesslog.LogRecord) error) error {
	return s.selectRecords(ctx, "stream", where, Page{}, fn)
}

// GroupBy runs a grouped aggregation ordered by the metric, highest first
func (s *SQLStore) GroupBy(ctx context.Context, gq GroupQuery) ([]GroupRow, error) {
	if !gq.Key.Valid() {
		return nil, fmt.Errorf("unknown group key %q", gq.Key)
	}
	if gq.Limit < 0 {
		return nil, fmt.Errorf("invalid group limit %d", gq.Limit)
	}

	key := s.dialect.Key(gq.Key.Quoted())
	selectList := key + " AS group_key, " + s.dialect.Count() + " AS group_count"
	order := "group_count"
	switch gq.Metric {
	case MetricCount:
	case MetricSum:
		if !gq.Field.IsInt() {
			return nil, fmt.Errorf("cannot sum column %q", gq.Field)
		}
		selectList += ", " + s.dialect.Sum(gq.Field.Quoted()) + " AS group_total"
		order = "group_total"
	case MetricAvg:
		if !gq.Field.IsFloat() && !gq.Field.IsInt() {
			return nil, fmt.Errorf("cannot average column %q", gq.Field)
		}
		selectList += ", " + s.dialect.Avg(gq.Field.Quoted()) + " AS group_avg"
		order = "group_avg"
	default:
		return nil, fmt.Errorf("unknown metric %d", gq.Metric)
	}

	cond, args, err := s.whereSQL(gq.Where)
	if err != nil {
		return nil, err
	}

	q := "SELECT " + selectList + " FROM " + s.dialect.Table() + cond +
		" GROUP BY " + key + " ORDER BY " + order + " DESC, group_key ASC"
	if gq.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", gq.Limit)
	}

	result := []GroupRow{}
	err = s.query(ctx, "group by", q, args, func(rows Rows) error {
		var row GroupRow
		dest := []any{&row.Key, &row.Count}
		switch gq.Metric {
		case MetricSum:
			dest = append(dest, &row.Total)
		case MetricAvg:
			dest = append(dest, &row.Average)
		}
		if err := rows.Scan(dest...); err != nil {
			return wrap("group by", err)
		}
		result = append(result, row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Values calls fn for every non-null value of a float column
func (s *SQLStore) Values(ctx context.Context, field Field, where Where, fn func(float64) error) error {
	if !field.IsFloat() {
		return fmt.Errorf("column %q is not a float column", field)
	}
	cond, args, err := s.whereSQL(where.And(NotNull(field)))
	if err != nil {
		return err
	}

	q := "SELECT " + field.Quoted() + " FROM " + s.dialect.Table() + cond
	return s.query(ctx, "values", q, args, func(rows Rows) error {
		var v *float64
		if err := rows.Scan(&v); err != nil {
			return wrap("values", err)
		}
		if v == nil {
			return nil
		}
		return fn(*v)
	})
}

// Ping checks the backend is reachable
func (s *SQLStore) Ping(ctx context.Context) error {
	return wrap("ping", s.exec.Ping(ctx))
}

// Close closes the executor
func (s *SQLStore) Close() error {
	return s.exec.Close()
}

func (s *SQLStore) selectRecords(ctx context.Context, op string, where Where, page Page,
	fn func(*accesslog.LogRecord) error) error {
	if page.Limit < 0 || page.Offset < 0 {
		return fmt.Errorf("invalid page: limit=%d offset=%d", page.Limit, page.Offset)
	}
	cond, args, err := s.whereSQL(where)
	if err != nil {
		return err
	}

	q := "SELECT " + s.columns + " FROM " + s.dialect.Table() + cond + recordOrder
	if page.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d OFFSET %d", page.Limit, page.Offset)
	}

	return s.query(ctx, op, q, args, func(rows Rows) error {
		var rec accesslog.LogRecord
		if err := rows.Scan(recordDest(&rec)...); err != nil {
			return wrap(op, err)
		}
		rec.Timestamp = rec.Timestamp.UTC()
		return fn(&rec)
	})
}

// query runs q and calls scan for each row. scan is responsible for wrapping
// its own scan errors.
func (s *SQLStore) query(ctx context.Context, op, q string, args []any, scan func(Rows) error) error {
	rows, err := s.exec.Query(ctx, q, args...)
	if err != nil {
		return wrap(op, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return wrap(op, rows.Err())
}

// whereSQL renders where as " WHERE (...) AND (...)" with its bound arguments
func (s *SQLStore) whereSQL(where Where) (string, []any, error) {
	if len(where) == 0 {
		return "", nil, nil
	}

	var args []any
	clauses := make([]string, 0, len(where))
	for _, clause := range where {
		if len(clause.Any) == 0 {
			return "", nil, fmt.Errorf("empty clause")
		}
		alternatives := make([]string, 0, len(clause.Any))
		for _, p := range clause.Any {
			frag, err := s.predicateSQL(p)
			if err != nil {
				return "", nil, err
			}
			alternatives = append(alternatives, frag)
			if p.Op != OpNotNull {
				args = append(args, p.Value)
			}
		}
		clauses = append(clauses, "("+strings.Join(alternatives, " OR ")+")")
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func (s *SQLStore) predicateSQL(p Predicate) (string, error) {
	if !p.Field.Valid() {
		return "", fmt.Errorf("unknown column %q", p.Field)
	}
	col := p.Field.Quoted()

	switch p.Op {
	case OpEq, OpGte, OpLte, OpLt:
		return col + " " + p.Op.String() + " ?", nil
	case OpContains:
		if _, ok := p.Value.(string); !ok {
			return "", fmt.Errorf("contains on %q needs a string, got %T", p.Field, p.Value)
		}
		return s.dialect.Contains(col), nil
	case OpNotNull:
		return col + " IS NOT NULL", nil
	default:
		return "", fmt.Errorf("unknown operator %v", p.Op)
	}
}
