package ttconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
}

func TestValidateAggregatesEveryFailure(t *testing.T) {
	cfg := Config{
		WorkingDays:   nil,
		DailyStartMin: 600,
		DailyEndMin:   500,
		SAStartTemp:   0,
		SACoolingRate: 1.5,
		SAIterations:  0,
		GA:            GAParams{PopulationSize: 0, IslandCount: 0, ElitismCount: -1},
		SolverWorkers: 0,
	}
	err := cfg.Validate()
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "working_days")
	assert.Contains(t, msg, "daily_end_time")
	assert.Contains(t, msg, "sa_start_temp")
	assert.Contains(t, msg, "sa_cooling_rate")
	assert.Contains(t, msg, "sa_iterations")
	assert.Contains(t, msg, "population_size")
	assert.Contains(t, msg, "island_count")
	assert.Contains(t, msg, "elitism_count")
	assert.Contains(t, msg, "solver workers")
}

func TestWeightFallsBackForUnknownKey(t *testing.T) {
	cfg := Config{PenaltyWeights: map[string]float64{"room_conflict": 99}}
	assert.Equal(t, 99.0, cfg.Weight("room_conflict"))
	assert.Equal(t, 1.0, cfg.Weight("never_configured"))
}

func TestIsWorkingDay(t *testing.T) {
	cfg := Config{WorkingDays: []int{1, 2, 3, 4, 5}}
	assert.True(t, cfg.IsWorkingDay(3))
	assert.False(t, cfg.IsWorkingDay(6))
}
