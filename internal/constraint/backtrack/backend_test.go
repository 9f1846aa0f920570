package backtrack

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timetabler/core/internal/constraint"
)

func TestAllowedValuesFiltersDomain(t *testing.T) {
	b := New(1, nil)
	v := b.NewIntVar(0, 9, "v")
	b.AddAllowedValues(v, []int{3, 5, 7})

	status, err := b.Solve(constraint.SolveOptions{TimeLimit: time.Second, Workers: 2})
	require.NoError(t, err)
	require.Equal(t, constraint.StatusFeasible, status)
	assert.Contains(t, []int{3, 5, 7}, b.Value(v))
}

func TestNoOverlapForbidsOverlappingIntervals(t *testing.T) {
	b := New(1, nil)
	a := b.NewIntVarFromDomain([]int{0, 10}, "a_start")
	c := b.NewIntVarFromDomain([]int{0, 10}, "c_start")
	ia := b.NewIntervalVar(a, 10, "ia")
	ic := b.NewIntervalVar(c, 10, "ic")
	b.AddNoOverlap([]constraint.IntervalHandle{ia, ic})

	status, err := b.Solve(constraint.SolveOptions{TimeLimit: time.Second, Workers: 2})
	require.NoError(t, err)
	require.Equal(t, constraint.StatusFeasible, status)
	assert.NotEqual(t, b.Value(a), b.Value(c), "both starting at the same value would overlap")
}

func TestNoOverlapBetweenAllowsSameSideOverlap(t *testing.T) {
	b := New(1, nil)
	// Two "subgroup" intervals that may coincide with each other...
	s1 := b.NewIntVarFromDomain([]int{0}, "s1_start")
	s2 := b.NewIntVarFromDomain([]int{0}, "s2_start")
	is1 := b.NewIntervalVar(s1, 10, "is1")
	is2 := b.NewIntervalVar(s2, 10, "is2")
	// ...but never with the "root" interval.
	r := b.NewIntVarFromDomain([]int{0, 20}, "r_start")
	ir := b.NewIntervalVar(r, 10, "ir")
	b.AddNoOverlapBetween([]constraint.IntervalHandle{ir}, []constraint.IntervalHandle{is1, is2})

	status, err := b.Solve(constraint.SolveOptions{TimeLimit: time.Second, Workers: 2})
	require.NoError(t, err)
	require.Equal(t, constraint.StatusFeasible, status)
	assert.Equal(t, 20, b.Value(r), "root interval must avoid both coincident subgroup intervals")
}

func TestPrecedenceOrdersTwoIntervals(t *testing.T) {
	b := New(1, nil)
	first := b.NewIntVarFromDomain([]int{0}, "first_start")
	second := b.NewIntVarFromDomain([]int{0, 10, 20}, "second_start")
	b.AddPrecedence(second, first, 10)

	status, err := b.Solve(constraint.SolveOptions{TimeLimit: time.Second, Workers: 1})
	require.NoError(t, err)
	require.Equal(t, constraint.StatusFeasible, status)
	assert.GreaterOrEqual(t, b.Value(second), b.Value(first)+10)
}

func TestSolveReportsInfeasible(t *testing.T) {
	b := New(1, nil)
	v := b.NewIntVarFromDomain([]int{1, 2}, "v")
	b.AddEqualityConst(v, 3) // filters the domain to empty

	status, err := b.Solve(constraint.SolveOptions{TimeLimit: 200 * time.Millisecond, Workers: 1})
	require.NoError(t, err)
	assert.Equal(t, constraint.StatusInfeasible, status)
}

func TestEqualityBindsTwoVarsTogether(t *testing.T) {
	b := New(1, nil)
	a := b.NewIntVarFromDomain([]int{5, 6, 7}, "a")
	c := b.NewIntVarFromDomain([]int{5, 6, 7}, "c")
	b.AddEquality(a, c)

	status, err := b.Solve(constraint.SolveOptions{TimeLimit: time.Second, Workers: 1})
	require.NoError(t, err)
	require.Equal(t, constraint.StatusFeasible, status)
	assert.Equal(t, b.Value(a), b.Value(c))
}
