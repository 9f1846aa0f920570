// Package ttconfig defines the single well-typed configuration structure the
// core accepts. Resolves spec.md §9's Open Question about the prototype's
// two conflicting Config shapes (object-with-attributes and dict): any
// dict/struct duality at an outer UI boundary is an external loader's
// problem, not this package's.
package ttconfig

import (
	"fmt"

	"go.uber.org/multierr"
)

// GAParams tunes the island-model genetic optimizer (spec.md §4.6).
type GAParams struct {
	PopulationSize int
	Generations    int
	CrossoverRate  float64
	MutationRate   float64
	ElitismCount   int
	IslandCount    int
	MigrationRate  float64
	// PenaltyWeights overrides Config.PenaltyWeights for GA-internal fitness
	// evaluation only, when non-nil.
	PenaltyWeights map[string]float64
}

// DefaultGAParams returns the defaults named in spec.md §4.6.
func DefaultGAParams() GAParams {
	return GAParams{
		PopulationSize: 100,
		Generations:    100,
		CrossoverRate:  0.85,
		MutationRate:   0.15,
		ElitismCount:   5,
		IslandCount:    4,
		MigrationRate:  0.1,
	}
}

// Config is the single external input surface described in spec.md §6.
type Config struct {
	WorkingDays            []int
	DailyStartMin          int
	DailyEndMin            int
	MinBreakBetweenClasses int
	PenaltyWeights         map[string]float64
	GA                     GAParams
	SAStartTemp            float64
	SACoolingRate          float64
	SAIterations           int

	// Constraint backend tuning (spec.md §4.3 search parameters).
	SolverWorkers   int
	SolverTimeoutMS int
}

// DefaultPenaltyWeights mirrors the baseline weights of spec.md §4.4.
func DefaultPenaltyWeights() map[string]float64 {
	return map[string]float64{
		"room_conflict":          10000,
		"instructor_conflict":    20000,
		"group_conflict":         15000,
		"facility_mismatch":      50,
		"time_preference":        30,
		"minimize_gaps":          10,
		"balance_room_usage":     5,
		"instructor_preference":  5,
		"merge_bonus":            50,
	}
}

// Default returns a Config populated with every default named in spec.md.
func Default() Config {
	return Config{
		WorkingDays:            []int{1, 2, 3, 4, 5},
		DailyStartMin:          8 * 60,
		DailyEndMin:            16 * 60,
		MinBreakBetweenClasses: 15,
		PenaltyWeights:         DefaultPenaltyWeights(),
		GA:                     DefaultGAParams(),
		SAStartTemp:            1000,
		SACoolingRate:          0.995,
		SAIterations:           10000,
		SolverWorkers:          8,
		SolverTimeoutMS:        60000,
	}
}

// Validate checks the configuration the way the teacher's CommandGen
// validates its flags — one check per field — but aggregates every failure
// with multierr instead of calling log.Fatalf, since this is a library
// entry point, not a CLI (spec.md §7 ConfigurationError).
func (c Config) Validate() error {
	var err error
	if len(c.WorkingDays) == 0 {
		err = multierr.Append(err, fmt.Errorf("ttconfig: working_days must be non-empty"))
	}
	for _, d := range c.WorkingDays {
		if d < 0 || d > 6 {
			err = multierr.Append(err, fmt.Errorf("ttconfig: working day %d out of range [0,6]", d))
		}
	}
	if c.DailyEndMin <= c.DailyStartMin {
		err = multierr.Append(err, fmt.Errorf("ttconfig: daily_end_time must be after daily_start_time"))
	}
	if c.MinBreakBetweenClasses < 0 {
		err = multierr.Append(err, fmt.Errorf("ttconfig: min_break_between_classes must be >= 0"))
	}
	if c.SAStartTemp <= 0 {
		err = multierr.Append(err, fmt.Errorf("ttconfig: sa_start_temp must be > 0"))
	}
	if c.SACoolingRate <= 0 || c.SACoolingRate >= 1 {
		err = multierr.Append(err, fmt.Errorf("ttconfig: sa_cooling_rate must be in (0,1)"))
	}
	if c.SAIterations <= 0 {
		err = multierr.Append(err, fmt.Errorf("ttconfig: sa_iterations must be > 0"))
	}
	if c.GA.PopulationSize <= 0 {
		err = multierr.Append(err, fmt.Errorf("ttconfig: ga population_size must be > 0"))
	}
	if c.GA.IslandCount <= 0 {
		err = multierr.Append(err, fmt.Errorf("ttconfig: ga island_count must be > 0"))
	}
	if c.GA.ElitismCount < 0 {
		err = multierr.Append(err, fmt.Errorf("ttconfig: ga elitism_count must be >= 0"))
	}
	if c.SolverWorkers <= 0 {
		err = multierr.Append(err, fmt.Errorf("ttconfig: solver workers must be > 0"))
	}
	return err
}

// IsWorkingDay reports whether day is one of the configured working days.
func (c Config) IsWorkingDay(day int) bool {
	for _, d := range c.WorkingDays {
		if d == day {
			return true
		}
	}
	return false
}

// Weight looks up a penalty weight, falling back to 1.0 for unknown keys
// the way the prototype's weight table did.
func (c Config) Weight(key string) float64 {
	if w, ok := c.PenaltyWeights[key]; ok {
		return w
	}
	return 1.0
}
