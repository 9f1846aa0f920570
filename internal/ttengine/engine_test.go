package ttengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timetabler/core/internal/domain"
	"github.com/timetabler/core/internal/ttconfig"
)

func smallInput() Input {
	cfg := ttconfig.Default()
	cfg.GA.PopulationSize = 8
	cfg.GA.IslandCount = 2
	cfg.GA.Generations = 3
	cfg.GA.ElitismCount = 1
	cfg.SAIterations = 20
	cfg.SolverWorkers = 2
	cfg.SolverTimeoutMS = 2000

	return Input{
		Rooms:       []domain.Room{{ID: "r1", Type: "lecture", Capacity: 40}, {ID: "r2", Type: "lecture", Capacity: 40}},
		Instructors: []domain.Instructor{{ID: "i1"}},
		Groups:      []domain.Group{{ID: "g1", StudentCount: 20}},
		Courses: []domain.Course{
			{ID: "c1", Type: "lecture", GroupID: "g1", InstructorID: "i1", DurationMin: 60},
			{ID: "c2", Type: "lecture", GroupID: "g1", InstructorID: "i1", DurationMin: 60},
		},
		Config: cfg,
	}
}

func TestRunProducesAScoredScheduleForAFeasibleProblem(t *testing.T) {
	e := New(nil)
	out, err := e.Run(smallInput(), 99)
	require.NoError(t, err)
	require.Nil(t, out.Infeasibility)
	assert.Len(t, out.Schedule.Assignments, 2)
	assert.GreaterOrEqual(t, out.TotalCost, 0.0)
}

func TestRunShortCircuitsOnInvalidConfig(t *testing.T) {
	in := smallInput()
	in.Config.WorkingDays = nil

	e := New(nil)
	_, err := e.Run(in, 1)
	require.Error(t, err)
}

func TestRunReportsInfeasibilityWhenNoRoomFits(t *testing.T) {
	in := smallInput()
	in.Courses = []domain.Course{
		{ID: "c1", Type: "lab", GroupID: "g1", InstructorID: "i1", DurationMin: 60, RequiredFacilities: []string{"pcs"}},
	}

	e := New(nil)
	out, err := e.Run(in, 1)
	require.NoError(t, err)
	require.NotNil(t, out.Infeasibility)

	var sawInfeasible bool
	for _, d := range out.Diagnostics {
		if d.Kind == KindInfeasible {
			sawInfeasible = true
		}
	}
	assert.True(t, sawInfeasible)
}
