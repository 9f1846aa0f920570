// Package anneal implements the simulated-annealing optimizer (spec.md
// §4.5) that takes the CP solver's feasible schedule and improves its soft
// score before the genetic optimizer takes over. It follows the teacher's
// randomized local-search idiom (rand.New(rand.NewSource(seed)) driving a
// single mutable search state) rather than the teacher's constructive
// best-first search itself.
package anneal

import (
	"math"
	"math/rand"

	"go.uber.org/zap"

	"github.com/timetabler/core/internal/domain"
	"github.com/timetabler/core/internal/evaluate"
	"github.com/timetabler/core/internal/ttconfig"
	"github.com/timetabler/core/internal/ttlog"
)

// Result is the outcome of a single Run.
type Result struct {
	Schedule   domain.Schedule
	Cost       float64
	Iterations int
	Accepted   int
}

// Optimizer runs simulated annealing over a fixed set of courses.
type Optimizer struct {
	Evaluator *evaluate.Evaluator
	Rooms     []domain.Room
	Courses   map[string]domain.Course
	Config    ttconfig.Config
	Log       *zap.SugaredLogger
}

// New builds an Optimizer. courses must be indexed by id and cover every
// assignment the initial schedule carries.
func New(ev *evaluate.Evaluator, rooms []domain.Room, courses map[string]domain.Course, cfg ttconfig.Config, log *zap.SugaredLogger) *Optimizer {
	if log == nil {
		log = ttlog.Nop()
	}
	return &Optimizer{Evaluator: ev, Rooms: rooms, Courses: courses, Config: cfg, Log: log}
}

// Run anneals start, returning the best schedule seen. Termination is
// whichever comes first of the configured iteration budget or the
// temperature dropping below 1e-3 (spec.md §4.5).
func (o *Optimizer) Run(start domain.Schedule, seed int64) Result {
	rng := rand.New(rand.NewSource(seed))

	current := start.Clone()
	currentCost := o.Evaluator.Evaluate(current).Total(o.Config)
	best := current.Clone()
	bestCost := currentCost

	temp := o.Config.SAStartTemp
	iterations := 0
	accepted := 0

	for iterations < o.Config.SAIterations && temp >= 1e-3 {
		candidate := o.neighbor(current, rng)
		candidateCost := o.Evaluator.Evaluate(candidate).Total(o.Config)

		if o.accept(currentCost, candidateCost, temp, rng) {
			current = candidate
			currentCost = candidateCost
			accepted++
			if currentCost < bestCost {
				best = current.Clone()
				bestCost = currentCost
			}
		}

		temp *= o.Config.SACoolingRate
		iterations++
	}

	o.Log.Infow("annealing finished", "iterations", iterations, "accepted", accepted, "best_cost", bestCost)
	return Result{Schedule: best, Cost: bestCost, Iterations: iterations, Accepted: accepted}
}

// accept implements the Metropolis criterion: always take an improving
// move, otherwise take a worsening move with probability
// exp(-delta/temp).
func (o *Optimizer) accept(currentCost, candidateCost, temp float64, rng *rand.Rand) bool {
	if candidateCost <= currentCost {
		return true
	}
	if temp <= 0 {
		return false
	}
	delta := candidateCost - currentCost
	return rng.Float64() < math.Exp(-delta/temp)
}

// neighbor picks one of the two move kinds uniformly at random: swapping
// the time slots of two assignments, or swapping their rooms.
func (o *Optimizer) neighbor(sched domain.Schedule, rng *rand.Rand) domain.Schedule {
	next := sched.Clone()
	if len(next.Assignments) < 2 {
		return next
	}
	i := rng.Intn(len(next.Assignments))
	j := rng.Intn(len(next.Assignments))
	for j == i {
		j = rng.Intn(len(next.Assignments))
	}

	if rng.Intn(2) == 0 {
		next.Assignments[i].Slot, next.Assignments[j].Slot = next.Assignments[j].Slot, next.Assignments[i].Slot
	} else {
		next.Assignments[i].RoomID, next.Assignments[j].RoomID = next.Assignments[j].RoomID, next.Assignments[i].RoomID
	}
	return next
}
