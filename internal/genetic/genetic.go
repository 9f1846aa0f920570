// Package genetic implements the island-model genetic optimizer (spec.md
// §4.6) that takes over from simulated annealing: tournament-of-5 selection
// of the top two parents, uniform and multi-point crossover, four weighted
// mutation strategies (time shift, room swap, instructor swap, day
// rotation), a room-overlap repair pass, elitism, periodic migration,
// diversity tracking and a stagnation-based early stop.
package genetic

import (
	"math"
	"math/rand"
	"sort"
	"strconv"
	"time"

	cache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/timetabler/core/internal/domain"
	"github.com/timetabler/core/internal/evaluate"
	"github.com/timetabler/core/internal/preprocess"
	"github.com/timetabler/core/internal/ttconfig"
	"github.com/timetabler/core/internal/ttlog"
)

// Stats are the diagnostic series returned alongside the final schedule,
// supplementing the distilled spec with the original prototype's
// generation-by-generation reporting (original_source's evolution loop).
type Stats struct {
	BestFitnessHistory []float64
	DiversityHistory   []float64
	GenerationTimes    []time.Duration
}

// candidateDomain is the precomputed legal (room, instructor) search space
// for one course: rooms are filtered by type, facilities and capacity;
// instructors by expertise (spec.md §4.6 room swap / instructor swap).
type candidateDomain struct {
	rooms       []string
	instructors []string
}

type individual struct {
	sched   domain.Schedule
	fitness float64
}

// Optimizer runs the island-model GA over a fixed course/room/group
// universe.
type Optimizer struct {
	Evaluator   *evaluate.Evaluator
	Courses     []domain.Course // fixed order; every individual's Assignments is aligned to this order
	Rooms       []domain.Room
	Instructors []domain.Instructor
	Groups      map[string]domain.Group
	Config      ttconfig.Config
	Log         *zap.SugaredLogger

	domains map[string]candidateDomain
	cache   *cache.Cache
}

// New builds an Optimizer. courses is sorted by ID internally so every
// individual's gene order is deterministic.
func New(ev *evaluate.Evaluator, courses []domain.Course, rooms []domain.Room, instructors []domain.Instructor, groups map[string]domain.Group, cfg ttconfig.Config, log *zap.SugaredLogger) *Optimizer {
	if log == nil {
		log = ttlog.Nop()
	}
	sorted := append([]domain.Course(nil), courses...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	o := &Optimizer{
		Evaluator:   ev,
		Courses:     sorted,
		Rooms:       rooms,
		Instructors: instructors,
		Groups:      groups,
		Config:      cfg,
		Log:         log,
		cache:       cache.New(5*time.Minute, 10*time.Minute),
	}
	o.buildDomains()
	return o
}

// buildDomains precomputes, per course, the rooms that satisfy its
// type/facilities/capacity and the instructors whose expertise covers its
// type — the search space spec.md §4.6's room-swap and instructor-swap
// mutations draw from.
func (o *Optimizer) buildDomains() {
	pp := preprocess.New(o.Rooms, o.Log)
	o.domains = make(map[string]candidateDomain, len(o.Courses))
	for _, c := range o.Courses {
		group := o.Groups[c.GroupID]
		var rooms []string
		for _, r := range pp.SuitableRooms(c) {
			if r.Capacity < group.StudentCount {
				continue
			}
			rooms = append(rooms, r.ID)
		}
		if len(rooms) == 0 {
			rooms = []string{""} // no eligible room; left for the CP layer/diagnostics to have already flagged
		}
		var instructors []string
		for _, in := range o.Instructors {
			if in.HasExpertise(c.Type) {
				instructors = append(instructors, in.ID)
			}
		}
		o.domains[c.ID] = candidateDomain{rooms: rooms, instructors: instructors}
	}
}

// fitness memoizes Evaluator.Evaluate behind the schedule's fingerprint
// (spec.md §4.6), grounded on the ChangeMonitor hash-then-cache pattern.
func (o *Optimizer) fitness(sched domain.Schedule) float64 {
	cfg := o.Config
	if cfg.GA.PenaltyWeights != nil {
		cfg.PenaltyWeights = cfg.GA.PenaltyWeights
	}
	fp, err := evaluate.Fingerprint(sched)
	if err == nil {
		key := strconv.FormatUint(fp, 16)
		if v, ok := o.cache.Get(key); ok {
			return v.(float64)
		}
		cost := o.Evaluator.Evaluate(sched).Total(cfg)
		o.cache.Set(key, cost, cache.DefaultExpiration)
		return cost
	}
	return o.Evaluator.Evaluate(sched).Total(cfg)
}

// Run evolves seed (the CP/SA stage's output) into an improved schedule.
// Each island owns an independent *rand.Rand seeded off rngSeed, so a
// generation update can run islands concurrently (spec.md §5: "implementations
// may parallelize across islands provided each island's random stream is
// deterministic") without the result depending on goroutine scheduling order.
func (o *Optimizer) Run(seed domain.Schedule, rngSeed int64) (domain.Schedule, Stats) {
	params := o.Config.GA

	perIsland := params.PopulationSize / params.IslandCount
	if perIsland < 2 {
		perIsland = 2
	}
	islandRngs := make([]*rand.Rand, params.IslandCount)
	for i := range islandRngs {
		islandRngs[i] = rand.New(rand.NewSource(rngSeed + int64(i)*104729))
	}
	islands := make([][]individual, params.IslandCount)
	for i := range islands {
		islands[i] = o.initPopulation(seed, perIsland, islandRngs[i])
	}

	var stats Stats
	bestOverall := math.Inf(1)
	stagnation := 0

	for gen := 0; gen < params.Generations; gen++ {
		genStart := time.Now()

		var g errgroup.Group
		for i := range islands {
			i := i
			sort.Slice(islands[i], func(a, b int) bool { return islands[i][a].fitness < islands[i][b].fitness })
			g.Go(func() error {
				islands[i] = o.nextGeneration(islands[i], perIsland, params, islandRngs[i])
				return nil
			})
		}
		_ = g.Wait() // nextGeneration never returns an error; the group only buys concurrency

		if gen > 0 && gen%5 == 0 {
			o.migrate(islands, params)
		}

		allFitness := make([]float64, 0, params.PopulationSize)
		genBest := math.Inf(1)
		for i := range islands {
			sort.Slice(islands[i], func(a, b int) bool { return islands[i][a].fitness < islands[i][b].fitness })
			for _, ind := range islands[i] {
				allFitness = append(allFitness, ind.fitness)
				if ind.fitness < genBest {
					genBest = ind.fitness
				}
			}
		}

		stats.BestFitnessHistory = append(stats.BestFitnessHistory, genBest)
		stats.DiversityHistory = append(stats.DiversityHistory, stddev(allFitness))
		stats.GenerationTimes = append(stats.GenerationTimes, time.Since(genStart))

		if genBest < bestOverall-1e-9 {
			bestOverall = genBest
			stagnation = 0
		} else {
			stagnation++
		}
		o.Log.Debugw("generation complete", "gen", gen, "best", genBest, "diversity", stats.DiversityHistory[len(stats.DiversityHistory)-1])
		if stagnation >= 10 {
			o.Log.Infow("ga stopped early on stagnation", "generation", gen)
			break
		}
	}

	best := o.bestOf(islands)
	final := o.compactGaps(best.sched)
	return final, stats
}

func (o *Optimizer) initPopulation(seed domain.Schedule, size int, rng *rand.Rand) []individual {
	pop := make([]individual, 0, size)
	pop = append(pop, individual{sched: seed.Clone(), fitness: o.fitness(seed)})
	for len(pop) < size {
		cand := seed.Clone()
		mutations := 1 + rng.Intn(3)
		for m := 0; m < mutations; m++ {
			o.mutateOne(&cand, rng)
		}
		o.repair(&cand)
		pop = append(pop, individual{sched: cand, fitness: o.fitness(cand)})
	}
	return pop
}

// nextGeneration replaces an island's population with elitism-preserved
// top individuals plus tournament-selected, crossed-over, mutated and
// repaired offspring.
func (o *Optimizer) nextGeneration(pop []individual, size int, params ttconfig.GAParams, rng *rand.Rand) []individual {
	next := make([]individual, 0, size)
	elitism := params.ElitismCount
	if elitism > len(pop) {
		elitism = len(pop)
	}
	for i := 0; i < elitism; i++ {
		next = append(next, pop[i])
	}

	for len(next) < size {
		p1, p2 := o.selectParents(pop, rng)
		var child domain.Schedule
		if rng.Float64() < params.CrossoverRate {
			if rng.Float64() < 0.7 {
				child = o.uniformCrossover(p1.sched, p2.sched, rng)
			} else {
				child = o.multiPointCrossover(p1.sched, p2.sched, rng)
			}
		} else {
			child = p1.sched.Clone()
		}
		if rng.Float64() < params.MutationRate {
			o.mutateOne(&child, rng)
		}
		o.repair(&child)
		next = append(next, individual{sched: child, fitness: o.fitness(child)})
	}
	return next
}

// selectParents draws a tournament of size min(5, |pop|) without
// replacement and returns its top two individuals by fitness as the
// crossover parents (spec.md §4.6).
func (o *Optimizer) selectParents(pop []individual, rng *rand.Rand) (individual, individual) {
	k := 5
	if k > len(pop) {
		k = len(pop)
	}
	perm := rng.Perm(len(pop))
	sample := make([]individual, k)
	for i := 0; i < k; i++ {
		sample[i] = pop[perm[i]]
	}
	sort.Slice(sample, func(a, b int) bool { return sample[a].fitness < sample[b].fitness })
	if k == 1 {
		return sample[0], sample[0]
	}
	return sample[0], sample[1]
}

// uniformCrossover picks each gene independently from one parent or the
// other.
func (o *Optimizer) uniformCrossover(a, b domain.Schedule, rng *rand.Rand) domain.Schedule {
	n := len(o.Courses)
	out := domain.Schedule{Assignments: make([]domain.Assignment, n)}
	for i := 0; i < n; i++ {
		if rng.Intn(2) == 0 {
			out.Assignments[i] = a.Assignments[i]
		} else {
			out.Assignments[i] = b.Assignments[i]
		}
	}
	return out
}

// multiPointCrossover samples k ∈ [1,3] cut points in [1, len-1] and
// alternates parents across the resulting segments (spec.md §4.6).
func (o *Optimizer) multiPointCrossover(a, b domain.Schedule, rng *rand.Rand) domain.Schedule {
	n := len(o.Courses)
	if n < 2 {
		return o.uniformCrossover(a, b, rng)
	}

	maxCuts := n - 1
	k := 1 + rng.Intn(3)
	if k > maxCuts {
		k = maxCuts
	}
	cutSet := make(map[int]bool, k)
	for len(cutSet) < k {
		cutSet[1+rng.Intn(n-1)] = true
	}
	cuts := make([]int, 0, k)
	for c := range cutSet {
		cuts = append(cuts, c)
	}
	sort.Ints(cuts)

	out := domain.Schedule{Assignments: make([]domain.Assignment, n)}
	fromA := true
	cutIdx := 0
	for i := 0; i < n; i++ {
		for cutIdx < len(cuts) && i == cuts[cutIdx] {
			fromA = !fromA
			cutIdx++
		}
		if fromA {
			out.Assignments[i] = a.Assignments[i]
		} else {
			out.Assignments[i] = b.Assignments[i]
		}
	}
	return out
}

// mutateOne applies one of four weighted mutation strategies to a single
// randomly chosen gene (spec.md §4.6).
func (o *Optimizer) mutateOne(sched *domain.Schedule, rng *rand.Rand) {
	if len(sched.Assignments) == 0 {
		return
	}
	i := rng.Intn(len(sched.Assignments))
	c := o.Courses[i]
	dom := o.domains[c.ID]
	a := sched.Assignments[i]

	switch weightedStrategy(rng) {
	case strategyTimeShift:
		day := a.Slot.Day
		if len(o.Config.WorkingDays) > 0 && !containsDay(o.Config.WorkingDays, day) {
			day = o.Config.WorkingDays[rng.Intn(len(o.Config.WorkingDays))]
		}
		delta := rng.Intn(121) - 60 // Δ ∈ [-60, +60]
		start := clampMin(a.Slot.StartMin+delta, o.Config.DailyStartMin, o.Config.DailyEndMin-c.DurationMin)
		sched.Assignments[i].Slot = domain.NewTimeSlot(day, start, start+c.DurationMin)

	case strategyRoomSwap:
		if len(dom.rooms) > 0 {
			sched.Assignments[i].RoomID = dom.rooms[rng.Intn(len(dom.rooms))]
		}

	case strategyInstructorSwap:
		alternatives := make([]string, 0, len(dom.instructors))
		for _, id := range dom.instructors {
			if id != a.InstructorID {
				alternatives = append(alternatives, id)
			}
		}
		if len(alternatives) > 0 {
			sched.Assignments[i].InstructorID = alternatives[rng.Intn(len(alternatives))]
		}

	case strategyDayRotation:
		if len(o.Config.WorkingDays) > 0 {
			alternatives := make([]int, 0, len(o.Config.WorkingDays))
			for _, d := range o.Config.WorkingDays {
				if d != a.Slot.Day {
					alternatives = append(alternatives, d)
				}
			}
			day := o.Config.WorkingDays[0]
			if len(alternatives) > 0 {
				day = alternatives[rng.Intn(len(alternatives))]
			}
			start := clampMin(a.Slot.StartMin, o.Config.DailyStartMin, o.Config.DailyEndMin-c.DurationMin)
			sched.Assignments[i].Slot = domain.NewTimeSlot(day, start, start+c.DurationMin)
		}
	}
}

type mutationStrategy int

const (
	strategyTimeShift mutationStrategy = iota
	strategyRoomSwap
	strategyInstructorSwap
	strategyDayRotation
)

// weightedStrategy draws a mutation kind with weights 0.3/0.3/0.2/0.2
// (spec.md §4.6).
func weightedStrategy(rng *rand.Rand) mutationStrategy {
	r := rng.Float64()
	switch {
	case r < 0.3:
		return strategyTimeShift
	case r < 0.6:
		return strategyRoomSwap
	case r < 0.8:
		return strategyInstructorSwap
	default:
		return strategyDayRotation
	}
}

func containsDay(days []int, day int) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}

func clampMin(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// repair resolves the single most common hard-constraint breakage
// introduced by crossover or mutation: group assignments by room, sort by
// start, and for any consecutive pair that overlaps, push the later one's
// start to prev.end + min_break_between_classes (spec.md §4.6 repair pass).
// Any conflict this doesn't reach (instructor, group) is left for the
// fitness function to penalize.
func (o *Optimizer) repair(sched *domain.Schedule) {
	byRoom := make(map[string][]int)
	for i, a := range sched.Assignments {
		if a.RoomID == "" {
			continue
		}
		byRoom[a.RoomID] = append(byRoom[a.RoomID], i)
	}

	for _, idxs := range byRoom {
		sort.Slice(idxs, func(a, b int) bool {
			return sched.Assignments[idxs[a]].Slot.AbsoluteStart() < sched.Assignments[idxs[b]].Slot.AbsoluteStart()
		})
		for k := 1; k < len(idxs); k++ {
			prev := sched.Assignments[idxs[k-1]]
			cur := sched.Assignments[idxs[k]]
			if !prev.Slot.Overlaps(cur.Slot) {
				continue
			}
			newStart := prev.Slot.EndMin() + o.Config.MinBreakBetweenClasses
			cur.Slot = domain.NewTimeSlot(prev.Slot.Day, newStart, newStart+cur.Slot.Duration())
			sched.Assignments[idxs[k]] = cur
		}
	}
}

func (o *Optimizer) migrate(islands [][]individual, params ttconfig.GAParams) {
	n := len(islands)
	if n < 2 {
		return
	}
	migrants := int(math.Max(1, params.MigrationRate*float64(len(islands[0]))))
	for i := 0; i < n; i++ {
		dst := (i + 1) % n
		sort.Slice(islands[i], func(a, b int) bool { return islands[i][a].fitness < islands[i][b].fitness })
		sort.Slice(islands[dst], func(a, b int) bool { return islands[dst][a].fitness < islands[dst][b].fitness })
		for m := 0; m < migrants && m < len(islands[i]) && m < len(islands[dst]); m++ {
			worst := len(islands[dst]) - 1 - m
			islands[dst][worst] = islands[i][m]
		}
	}
}

func (o *Optimizer) bestOf(islands [][]individual) individual {
	best := islands[0][0]
	for _, pop := range islands {
		for _, ind := range pop {
			if ind.fitness < best.fitness {
				best = ind
			}
		}
	}
	return best
}

// compactGaps is the sole post-evolution local optimization this module
// performs: for each group/day, it pulls sessions earlier to remove idle
// gaps, preserving their relative order and room/duration. It deliberately
// does not also rebalance room usage (spec.md §9 Open Question: the
// prototype's _optimize_room_usage pass is omitted).
func (o *Optimizer) compactGaps(sched domain.Schedule) domain.Schedule {
	out := sched.Clone()
	type dayKey struct {
		group string
		day   int
	}
	byDay := make(map[dayKey][]int) // indices into out.Assignments
	for i, a := range out.Assignments {
		k := dayKey{a.GroupID, a.Slot.Day}
		byDay[k] = append(byDay[k], i)
	}
	for _, idxs := range byDay {
		sort.Slice(idxs, func(a, b int) bool {
			return out.Assignments[idxs[a]].Slot.StartMin < out.Assignments[idxs[b]].Slot.StartMin
		})
		cursor := o.Config.DailyStartMin
		for _, idx := range idxs {
			a := out.Assignments[idx]
			if a.Slot.StartMin > cursor {
				a.Slot.StartMin = cursor
				out.Assignments[idx] = a
			}
			cursor = out.Assignments[idx].Slot.EndMin() + o.Config.MinBreakBetweenClasses
		}
	}
	return out
}

func stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}
