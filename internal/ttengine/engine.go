package ttengine

import (
	"go.uber.org/zap"

	"github.com/timetabler/core/internal/anneal"
	"github.com/timetabler/core/internal/constraint"
	"github.com/timetabler/core/internal/cpsolver"
	"github.com/timetabler/core/internal/domain"
	"github.com/timetabler/core/internal/evaluate"
	"github.com/timetabler/core/internal/genetic"
	"github.com/timetabler/core/internal/infeasible"
	"github.com/timetabler/core/internal/preprocess"
	"github.com/timetabler/core/internal/ttconfig"
	"github.com/timetabler/core/internal/ttlog"
)

// Input is the full raw problem instance accepted across the engine's API
// boundary (spec.md §6).
type Input struct {
	Rooms       []domain.Room
	Instructors []domain.Instructor
	Groups      []domain.Group
	Courses     []domain.Course
	Config      ttconfig.Config
}

// Output is the engine's result: either a scored schedule, or — when the
// CP stage proves infeasibility — a diagnostic report in place of one.
type Output struct {
	Schedule       domain.Schedule
	Penalties      evaluate.Penalties
	TotalCost      float64
	GAStats        genetic.Stats
	Diagnostics    []*Error
	Infeasibility  *infeasible.Report
}

// Engine wires the Preprocessor, CP solver, simulated annealer and genetic
// optimizer into the pipeline of spec.md §2: raw input → Preprocessor → CP
// solver → (feasible schedule) → simulated annealing → genetic optimizer →
// final schedule.
type Engine struct {
	Log *zap.SugaredLogger
}

// New builds an Engine. A nil logger defaults to a no-op logger.
func New(log *zap.SugaredLogger) *Engine {
	if log == nil {
		log = ttlog.Nop()
	}
	return &Engine{Log: log}
}

// Run executes the full pipeline. seed seeds every stochastic stage (CP
// search workers, annealing, the genetic optimizer). Annealing and the
// genetic optimizer are reproducible for a given seed; the CP stage is
// reproducible only with a single solver worker, since with several the
// first worker to finish wins.
func (e *Engine) Run(in Input, seed int64) (Output, error) {
	if err := in.Config.Validate(); err != nil {
		return Output{}, NewConfigurationError("%v", err)
	}

	pp := preprocess.New(in.Rooms, e.Log)
	pre := pp.Run(in.Courses, in.Groups, in.Instructors)

	var diagnostics []*Error
	diagnostics = append(diagnostics, pre.Diagnostics...)

	solver := cpsolver.New(in.Rooms, in.Instructors, pre.Groups, in.Config, e.Log)
	outcome := solver.Solve(pre.Courses, pre.RotationGroups, seed)
	diagnostics = append(diagnostics, outcome.Diagnostics...)

	if outcome.Status == constraint.StatusInfeasible {
		report := infeasible.Analyze(pre.Courses, in.Rooms, pre.Groups, in.Instructors, in.Config)
		diagnostics = append(diagnostics, NewInfeasibleError())
		e.Log.Infow("cp solve infeasible", "course_count", len(pre.Courses))
		return Output{Diagnostics: diagnostics, Infeasibility: &report}, nil
	}

	courseByID := make(map[string]domain.Course, len(pre.Courses))
	for _, c := range pre.Courses {
		courseByID[c.ID] = c
	}
	ev := evaluate.New(in.Rooms, in.Instructors, pre.Groups, pre.Courses, in.Config)

	annealer := anneal.New(ev, in.Rooms, courseByID, in.Config, e.Log)
	annealed := annealer.Run(outcome.Schedule, seed+1)
	e.Log.Infow("annealing stage complete", "cost", annealed.Cost)

	ga := genetic.New(ev, pre.Courses, in.Rooms, in.Instructors, pre.Groups, in.Config, e.Log)
	finalSchedule, gaStats := ga.Run(annealed.Schedule, seed+2)

	penalties := ev.Evaluate(finalSchedule)
	total := penalties.Total(in.Config)

	return Output{
		Schedule:    finalSchedule,
		Penalties:   penalties,
		TotalCost:   total,
		GAStats:     gaStats,
		Diagnostics: diagnostics,
	}, nil
}
