// Package ttengine orchestrates the Preprocessor, the CP feasibility
// solver, the simulated-annealing optimizer and the genetic optimizer into
// the single pipeline described in spec.md §2's data-flow diagram.
package ttengine

import "github.com/timetabler/core/internal/ttdiag"

// Kind, Error and the taxonomy constructors are re-exported from ttdiag so
// callers of this package never need to import it directly; ttdiag exists
// only because the lower pipeline stages need the same type without
// importing back up into this package.
type Kind = ttdiag.Kind

const (
	KindConfiguration      = ttdiag.KindConfiguration
	KindDataIntegrity      = ttdiag.KindDataIntegrity
	KindInfeasible         = ttdiag.KindInfeasible
	KindInvariantViolation = ttdiag.KindInvariantViolation
)

// Error is the single error type the core uses across its taxonomy; Kind
// says which bucket of spec.md §7 it belongs to.
type Error = ttdiag.Error

// NewConfigurationError builds a KindConfiguration error.
func NewConfigurationError(format string, args ...interface{}) *Error {
	return ttdiag.NewConfigurationError(format, args...)
}

// NewDataIntegrityError builds a KindDataIntegrity error scoped to a course.
func NewDataIntegrityError(courseID, format string, args ...interface{}) *Error {
	return ttdiag.NewDataIntegrityError(courseID, format, args...)
}

// NewInvariantViolation builds a KindInvariantViolation error. Callers
// should treat this as fatal: it means the engine produced a schedule that
// breaks one of spec.md §3's invariants.
func NewInvariantViolation(format string, args ...interface{}) *Error {
	return ttdiag.NewInvariantViolation(format, args...)
}

// NewInfeasibleError builds the KindInfeasible sentinel returned alongside
// an Infeasibility Report.
func NewInfeasibleError() *Error {
	return ttdiag.NewInfeasibleError()
}
