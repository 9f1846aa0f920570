// Package constraint abstracts over a constraint-programming backend: the
// CP feasibility solver (spec.md §4.3) is written entirely against this
// interface so the search engine underneath it can be swapped without
// touching how decision variables and constraints are modeled.
package constraint

import "time"

// VarHandle references an integer decision variable registered with a
// Backend.
type VarHandle int

// IntervalHandle references an interval view — (start, length, end) — over
// a variable, optionally gated by a presence boolean.
type IntervalHandle int

// Status is the outcome of a Solve call.
type Status int

const (
	StatusUnknown Status = iota
	StatusOptimal
	StatusFeasible
	StatusInfeasible
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "OPTIMAL"
	case StatusFeasible:
		return "FEASIBLE"
	case StatusInfeasible:
		return "INFEASIBLE"
	default:
		return "UNKNOWN"
	}
}

// SolveOptions configures the parallel search (spec.md §4.3 defaults:
// 60s wall clock, 8 workers, search progress logging enabled).
type SolveOptions struct {
	TimeLimit time.Duration
	Workers   int
	LogSearch bool
}

// Backend abstracts over a constraint backend providing: integer variables
// with explicit domains, interval variables, optional intervals gated by a
// boolean, all-different-over-explicit-values, modulo/division equalities,
// no-overlap over a set of intervals, and a parallel search solver.
type Backend interface {
	// NewIntVar creates a variable ranging over [min, max].
	NewIntVar(min, max int, name string) VarHandle
	// NewIntVarFromDomain creates a variable restricted to an explicit set
	// of legal values (the "all-different over explicit value list" domain
	// primitive of spec.md §4.3).
	NewIntVarFromDomain(domain []int, name string) VarHandle
	// NewBoolVar creates a free 0/1 variable.
	NewBoolVar(name string) VarHandle

	// NewIntervalVar creates an always-present interval of fixed length
	// starting at start.
	NewIntervalVar(start VarHandle, length int, name string) IntervalHandle
	// NewOptionalIntervalVar creates an interval that only participates in
	// no-overlap reasoning when presence evaluates to 1.
	NewOptionalIntervalVar(start VarHandle, length int, presence VarHandle, name string) IntervalHandle

	// AddEqualityConst forces v == c.
	AddEqualityConst(v VarHandle, c int)
	// AddEquality forces a == b.
	AddEquality(a, b VarHandle)
	// ReifyEqualityConst returns a bool variable b such that b == 1 iff
	// v == c, the "b_{c,r} ≡ (room_c = r)" construction of spec.md §4.3.
	ReifyEqualityConst(v VarHandle, c int, name string) VarHandle
	// AddPrecedence forces value(a) >= value(b) + minGap.
	AddPrecedence(a, b VarHandle, minGap int)
	// AddModuloEquality forces result == v mod m.
	AddModuloEquality(result, v VarHandle, m int)
	// AddDivisionEquality forces result == v / d (integer division).
	AddDivisionEquality(result, v VarHandle, d int)
	// AddAllowedValues restricts v's domain to the given explicit set.
	AddAllowedValues(v VarHandle, allowed []int)
	// AddNoOverlap forbids any two of the given intervals (that are both
	// present) from overlapping.
	AddNoOverlap(intervals []IntervalHandle)
	// AddNoOverlapBetween forbids any interval in a from overlapping any
	// interval in b, while leaving intervals within the same side free to
	// overlap each other — the root-vs-subgroup exception of spec.md §4.3
	// (parallel sections may coincide; the whole cohort's own sessions may
	// not coincide with any of its sections).
	AddNoOverlapBetween(a, b []IntervalHandle)

	// Solve runs the configured search and returns its outcome.
	Solve(opts SolveOptions) (Status, error)
	// Value returns the value assigned to v after a feasible Solve.
	Value(v VarHandle) int
}
