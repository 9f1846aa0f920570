// Package backtrack is the one constraint-solving backend in this module
// built without a third-party library: no CP-SAT binding is reachable from
// the retrieval pack, so this package provides a randomized-order
// backtracking search, one independently seeded search per worker, behind
// the constraint.Backend interface (spec.md §4.3). It mirrors the teacher's worker-pool
// concurrency idiom — a fixed number of goroutines racing for the first
// feasible result — rather than the teacher's domain logic.
package backtrack

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/timetabler/core/internal/constraint"
	"github.com/timetabler/core/internal/ttlog"
)

type varKind int

const (
	kindFree varKind = iota
	kindReifyEq
	kindModulo
	kindDivision
)

type variable struct {
	name   string
	domain []int
	bound  bool
	value  int

	kind   varKind
	ref    constraint.VarHandle // source var for reify/modulo/division
	refArg int                  // const c for reify, m for modulo, d for division
}

type interval struct {
	start    constraint.VarHandle
	length   int
	presence constraint.VarHandle // noPresence if always active
}

const noPresence constraint.VarHandle = -1

type equality struct{ a, b constraint.VarHandle }
type precedence struct {
	a, b   constraint.VarHandle
	minGap int
}
type noOverlap struct{ intervals []constraint.IntervalHandle }
type crossOverlap struct{ a, b []constraint.IntervalHandle }

// Backend is a backtracking constraint.Backend. Unary restrictions
// (AddAllowedValues, AddEqualityConst) are applied eagerly as domain
// filters at registration time; modulo/division equalities turn the result
// variable into one computed from its source on demand; binary and
// global constraints (equality between two free variables, precedence,
// no-overlap) are checked incrementally during search, as soon as every
// variable they touch is bound.
type Backend struct {
	vars      []variable
	intervals []interval
	equals    []equality
	precs     []precedence
	overlaps  []noOverlap
	crosses   []crossOverlap

	searchOrder []constraint.VarHandle // free vars with a non-empty domain, in registration order
	equalsByVar map[constraint.VarHandle][]int
	precsByVar  map[constraint.VarHandle][]int
	overlapsByVar map[constraint.VarHandle][]int
	crossesByVar  map[constraint.VarHandle][]int

	result map[constraint.VarHandle]int
	seed   int64
	log    *zap.SugaredLogger
}

// New builds an empty backend. seed fixes each worker's value ordering;
// with more than one worker, which worker's assignment is kept depends on
// which finishes first.
func New(seed int64, log *zap.SugaredLogger) *Backend {
	if log == nil {
		log = ttlog.Nop()
	}
	return &Backend{seed: seed, log: log}
}

func (b *Backend) NewIntVar(min, max int, name string) constraint.VarHandle {
	domain := make([]int, 0, max-min+1)
	for v := min; v <= max; v++ {
		domain = append(domain, v)
	}
	return b.newVar(variable{name: name, domain: domain})
}

func (b *Backend) NewIntVarFromDomain(domain []int, name string) constraint.VarHandle {
	cp := append([]int(nil), domain...)
	return b.newVar(variable{name: name, domain: cp})
}

func (b *Backend) NewBoolVar(name string) constraint.VarHandle {
	return b.newVar(variable{name: name, domain: []int{0, 1}})
}

func (b *Backend) newVar(v variable) constraint.VarHandle {
	b.vars = append(b.vars, v)
	return constraint.VarHandle(len(b.vars) - 1)
}

func (b *Backend) NewIntervalVar(start constraint.VarHandle, length int, name string) constraint.IntervalHandle {
	b.intervals = append(b.intervals, interval{start: start, length: length, presence: noPresence})
	return constraint.IntervalHandle(len(b.intervals) - 1)
}

func (b *Backend) NewOptionalIntervalVar(start constraint.VarHandle, length int, presence constraint.VarHandle, name string) constraint.IntervalHandle {
	b.intervals = append(b.intervals, interval{start: start, length: length, presence: presence})
	return constraint.IntervalHandle(len(b.intervals) - 1)
}

func (b *Backend) AddEqualityConst(v constraint.VarHandle, c int) {
	b.AddAllowedValues(v, []int{c})
}

func (b *Backend) AddEquality(a, b2 constraint.VarHandle) {
	b.equals = append(b.equals, equality{a: a, b: b2})
}

func (b *Backend) ReifyEqualityConst(v constraint.VarHandle, c int, name string) constraint.VarHandle {
	return b.newVar(variable{name: name, kind: kindReifyEq, ref: v, refArg: c, domain: []int{0, 1}})
}

func (b *Backend) AddPrecedence(a, b2 constraint.VarHandle, minGap int) {
	b.precs = append(b.precs, precedence{a: a, b: b2, minGap: minGap})
}

func (b *Backend) AddModuloEquality(result, v constraint.VarHandle, m int) {
	b.vars[result] = variable{name: b.vars[result].name, kind: kindModulo, ref: v, refArg: m}
}

func (b *Backend) AddDivisionEquality(result, v constraint.VarHandle, d int) {
	b.vars[result] = variable{name: b.vars[result].name, kind: kindDivision, ref: v, refArg: d}
}

func (b *Backend) AddAllowedValues(v constraint.VarHandle, allowed []int) {
	allow := make(map[int]bool, len(allowed))
	for _, a := range allowed {
		allow[a] = true
	}
	cur := b.vars[v].domain
	filtered := cur[:0:0]
	for _, d := range cur {
		if allow[d] {
			filtered = append(filtered, d)
		}
	}
	b.vars[v].domain = filtered
}

func (b *Backend) AddNoOverlap(intervals []constraint.IntervalHandle) {
	b.overlaps = append(b.overlaps, noOverlap{intervals: append([]constraint.IntervalHandle(nil), intervals...)})
}

func (b *Backend) AddNoOverlapBetween(a, b2 []constraint.IntervalHandle) {
	b.crosses = append(b.crosses, crossOverlap{
		a: append([]constraint.IntervalHandle(nil), a...),
		b: append([]constraint.IntervalHandle(nil), b2...),
	})
}

func (b *Backend) Value(v constraint.VarHandle) int {
	val, _ := b.valueOf(v)
	return val
}

// valueOf resolves a variable's value, recursing through derived
// (reify/modulo/division) variables. ok is false if the underlying free
// variable isn't bound yet.
func (b *Backend) valueOf(h constraint.VarHandle) (int, bool) {
	v := &b.vars[h]
	switch v.kind {
	case kindFree:
		if v.bound {
			return v.value, true
		}
		if len(v.domain) == 1 {
			return v.domain[0], true
		}
		return 0, false
	case kindReifyEq:
		refVal, ok := b.valueOf(v.ref)
		if !ok {
			return 0, false
		}
		if refVal == v.refArg {
			return 1, true
		}
		return 0, true
	case kindModulo:
		refVal, ok := b.valueOf(v.ref)
		if !ok {
			return 0, false
		}
		return ((refVal % v.refArg) + v.refArg) % v.refArg, true
	case kindDivision:
		refVal, ok := b.valueOf(v.ref)
		if !ok {
			return 0, false
		}
		return refVal / v.refArg, true
	default:
		return 0, false
	}
}

func (b *Backend) intervalActive(ih constraint.IntervalHandle) (start, length int, active, ok bool) {
	iv := b.intervals[ih]
	start, startOK := b.valueOf(iv.start)
	if !startOK {
		return 0, 0, false, false
	}
	if iv.presence == noPresence {
		return start, iv.length, true, true
	}
	pres, presOK := b.valueOf(iv.presence)
	if !presOK {
		return 0, 0, false, false
	}
	return start, iv.length, pres == 1, true
}

func overlaps(startA, lenA, startB, lenB int) bool {
	return startA < startB+lenB && startB < startA+lenA
}

// bindAndCheck assigns val to h and checks every constraint that becomes
// fully determined as a result, returning false on the first violation.
func (b *Backend) bindAndCheck(h constraint.VarHandle, val int) bool {
	b.vars[h].bound = true
	b.vars[h].value = val

	for _, idx := range b.equalsByVar[h] {
		e := b.equals[idx]
		av, aok := b.valueOf(e.a)
		bv, bok := b.valueOf(e.b)
		if aok && bok && av != bv {
			return false
		}
	}
	for _, idx := range b.precsByVar[h] {
		p := b.precs[idx]
		av, aok := b.valueOf(p.a)
		bv, bok := b.valueOf(p.b)
		if aok && bok && av < bv+p.minGap {
			return false
		}
	}
	for _, idx := range b.overlapsByVar[h] {
		group := b.overlaps[idx]
		type bound struct{ start, length int }
		var actives []bound
		for _, ih := range group.intervals {
			start, length, active, ok := b.intervalActive(ih)
			if !ok || !active {
				continue
			}
			actives = append(actives, bound{start, length})
		}
		for i := 0; i < len(actives); i++ {
			for j := i + 1; j < len(actives); j++ {
				if overlaps(actives[i].start, actives[i].length, actives[j].start, actives[j].length) {
					return false
				}
			}
		}
	}
	for _, idx := range b.crossesByVar[h] {
		cr := b.crosses[idx]
		type bound struct{ start, length int }
		boundOf := func(hs []constraint.IntervalHandle) []bound {
			var out []bound
			for _, ih := range hs {
				start, length, active, ok := b.intervalActive(ih)
				if ok && active {
					out = append(out, bound{start, length})
				}
			}
			return out
		}
		left, right := boundOf(cr.a), boundOf(cr.b)
		for _, l := range left {
			for _, r := range right {
				if overlaps(l.start, l.length, r.start, r.length) {
					return false
				}
			}
		}
	}
	return true
}

func (b *Backend) unbind(h constraint.VarHandle) {
	b.vars[h].bound = false
	b.vars[h].value = 0
}

func (b *Backend) buildIndexes() {
	b.equalsByVar = make(map[constraint.VarHandle][]int)
	b.precsByVar = make(map[constraint.VarHandle][]int)
	b.overlapsByVar = make(map[constraint.VarHandle][]int)
	b.crossesByVar = make(map[constraint.VarHandle][]int)

	for i, e := range b.equals {
		b.equalsByVar[e.a] = append(b.equalsByVar[e.a], i)
		b.equalsByVar[e.b] = append(b.equalsByVar[e.b], i)
	}
	for i, p := range b.precs {
		b.precsByVar[p.a] = append(b.precsByVar[p.a], i)
		b.precsByVar[p.b] = append(b.precsByVar[p.b], i)
	}
	for i, ov := range b.overlaps {
		touched := map[constraint.VarHandle]bool{}
		for _, ih := range ov.intervals {
			iv := b.intervals[ih]
			touched[iv.start] = true
			if iv.presence != noPresence {
				touched[iv.presence] = true
			}
		}
		for h := range touched {
			b.overlapsByVar[h] = append(b.overlapsByVar[h], i)
		}
	}
	for i, cr := range b.crosses {
		touched := map[constraint.VarHandle]bool{}
		for _, ih := range append(append([]constraint.IntervalHandle(nil), cr.a...), cr.b...) {
			iv := b.intervals[ih]
			touched[iv.start] = true
			if iv.presence != noPresence {
				touched[iv.presence] = true
			}
		}
		for h := range touched {
			b.crossesByVar[h] = append(b.crossesByVar[h], i)
		}
	}

	b.searchOrder = b.searchOrder[:0]
	for i, v := range b.vars {
		if v.kind == kindFree && len(v.domain) > 0 {
			b.searchOrder = append(b.searchOrder, constraint.VarHandle(i))
		}
	}
}

// errFeasible is the sentinel a worker returns to an errgroup.Group to make
// it cancel every sibling worker's context as soon as one of them finds a
// full assignment; it never escapes Solve as a real error.
var errFeasible = errors.New("backtrack: feasible assignment found")

// Solve races opts.Workers goroutines, each performing a randomized-order
// depth-first search, and keeps the first feasible full assignment found
// (spec.md §4.3: "parallel search, first feasible solution wins"). Workers
// are coordinated with an errgroup so that one worker's success cancels the
// others' contexts instead of leaving them to run out the full time budget.
func (b *Backend) Solve(opts constraint.SolveOptions) (constraint.Status, error) {
	b.buildIndexes()

	for _, v := range b.vars {
		if v.kind == kindFree && len(v.domain) == 0 {
			return constraint.StatusInfeasible, nil
		}
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	timeLimit := opts.TimeLimit
	if timeLimit <= 0 {
		timeLimit = 60 * time.Second
	}

	parent, cancel := context.WithTimeout(context.Background(), timeLimit)
	defer cancel()

	g, ctx := errgroup.WithContext(parent)
	var mu sync.Mutex
	var winner map[constraint.VarHandle]int

	for w := 0; w < workers; w++ {
		workerSeed := b.seed + int64(w)*7919
		g.Go(func() error {
			rng := rand.New(rand.NewSource(workerSeed))
			local := b.clone()
			assign := make(map[constraint.VarHandle]int, len(local.searchOrder))
			if !local.search(ctx, 0, rng, assign) {
				return nil
			}
			mu.Lock()
			if winner == nil {
				winner = assign
			}
			mu.Unlock()
			return errFeasible
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, errFeasible) {
		return constraint.StatusInfeasible, err
	}

	if winner == nil {
		if opts.LogSearch {
			b.log.Infow("cp search exhausted with no feasible assignment")
		}
		return constraint.StatusInfeasible, nil
	}

	b.result = winner
	for h, v := range winner {
		b.vars[h].bound = true
		b.vars[h].value = v
	}
	return constraint.StatusFeasible, nil
}

// clone makes an independent copy of variable/domain state so that
// concurrent workers don't race on shared mutable domains.
func (b *Backend) clone() *Backend {
	cp := &Backend{
		vars:          append([]variable(nil), b.vars...),
		intervals:     b.intervals,
		equals:        b.equals,
		precs:         b.precs,
		overlaps:      b.overlaps,
		crosses:       b.crosses,
		searchOrder:   b.searchOrder,
		equalsByVar:   b.equalsByVar,
		precsByVar:    b.precsByVar,
		overlapsByVar: b.overlapsByVar,
		crossesByVar:  b.crossesByVar,
		log:           b.log,
	}
	for i := range cp.vars {
		cp.vars[i].domain = append([]int(nil), b.vars[i].domain...)
	}
	return cp
}

const maxSearchNodes = 2_000_000

// search performs randomized-order chronological backtracking over
// b.searchOrder[depth:]. Domains were already filtered by the eager unary
// constraints, so every remaining value is worth trying.
func (b *Backend) search(ctx context.Context, depth int, rng *rand.Rand, assign map[constraint.VarHandle]int) bool {
	if depth == len(b.searchOrder) {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	default:
	}

	h := b.searchOrder[depth]
	domain := b.vars[h].domain
	order := rng.Perm(len(domain))
	for _, idx := range order {
		val := domain[idx]
		if b.bindAndCheck(h, val) {
			assign[h] = val
			if b.search(ctx, depth+1, rng, assign) {
				return true
			}
			delete(assign, h)
		}
		b.unbind(h)
	}
	return false
}
