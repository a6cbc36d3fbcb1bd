package storage

import "fmt"

// Op is a comparison operator of a Predicate
type Op int

const (
	// OpEq matches equal values
	OpEq Op = iota
	// OpGte matches values greater than or equal to the operand
	OpGte
	// OpLte matches values less than or equal to the operand
	OpLte
	// OpLt matches values strictly less than the operand
	OpLt
	// OpContains matches strings containing the operand (case sensitive)
	OpContains
	// OpNotNull matches non-null values and takes no operand
	OpNotNull
)

func (op Op) String() string {
	switch op {
	case OpEq:
		return "="
	case OpGte:
		return ">="
	case OpLte:
		return "<="
	case OpLt:
		return "<"
	case OpContains:
		return "contains"
	case OpNotNull:
		return "is not null"
	default:
		return fmt.Sprintf("Op(%d)", int(op))
	}
}

// Predicate compares one column with a bound value
type Predicate struct {
	Field Field
	Op    Op
	Value any
}

// Clause is satisfied when any of its predicates is
type Clause struct {
	Any []Predicate
}

// Where is satisfied when all of its clauses are. An empty Where matches
// every row.
type Where []Clause

// Eq returns a clause matching rows where f equals v
func Eq(f Field, v any) Clause {
	return Match(Predicate{Field: f, Op: OpEq, Value: v})
}

// Gte returns a clause matching rows where f >= v
func Gte(f Field, v any) Clause {
	return Match(Predicate{Field: f, Op: OpGte, Value: v})
}

// Lte returns a clause matching rows where f <= v
func Lte(f Field, v any) Clause {
	return Match(Predicate{Field: f, Op: OpLte, Value: v})
}

// Lt returns a clause matching rows where f < v
func Lt(f Field, v any) Clause {
	return Match(Predicate{Field: f, Op: OpLt, Value: v})
}

// NotNull returns a clause matching rows where f is not null
func NotNull(f Field) Clause {
	return Match(Predicate{Field: f, Op: OpNotNull})
}

// Contains returns a predicate matching rows where f contains s
func Contains(f Field, s string) Predicate {
	return Predicate{Field: f, Op: OpContains, Value: s}
}

// Match returns a single-predicate clause
func Match(p Predicate) Clause {
	return Clause{Any: []Predicate{p}}
}

// AnyOf returns a clause satisfied when any of preds is
func AnyOf(preds ...Predicate) Clause {
	return Clause{Any: preds}
}

// And returns a new Where with clauses appended. The receiver is not modified.
func (w Where) And(clauses ...Clause) Where {
	out := make(Where, 0, len(w)+len(clauses))
	out = append(out, w...)
	return append(out, clauses...)
}
