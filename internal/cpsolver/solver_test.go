package cpsolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timetabler/core/internal/constraint"
	"github.com/timetabler/core/internal/domain"
	"github.com/timetabler/core/internal/ttconfig"
)

func smallConfig() ttconfig.Config {
	cfg := ttconfig.Default()
	cfg.SolverWorkers = 2
	cfg.SolverTimeoutMS = 2000
	return cfg
}

func TestSolveFindsFeasibleAssignment(t *testing.T) {
	rooms := []domain.Room{{ID: "r1", Type: "lecture", Capacity: 40}}
	instructors := []domain.Instructor{{ID: "i1"}}
	groups := map[string]domain.Group{"g1": {ID: "g1", StudentCount: 20}}
	courses := []domain.Course{
		{ID: "c1", Type: "lecture", GroupID: "g1", InstructorID: "i1", DurationMin: 60},
	}

	s := New(rooms, instructors, groups, smallConfig(), nil)
	out := s.Solve(courses, nil, 1)

	require.Equal(t, constraint.StatusFeasible, out.Status)
	require.Len(t, out.Schedule.Assignments, 1)
	assert.Equal(t, "r1", out.Schedule.Assignments[0].RoomID)
}

func TestSolveSeparatesConflictingInstructorCourses(t *testing.T) {
	rooms := []domain.Room{{ID: "r1", Type: "lecture", Capacity: 40}, {ID: "r2", Type: "lecture", Capacity: 40}}
	instructors := []domain.Instructor{{ID: "i1"}}
	groups := map[string]domain.Group{"g1": {ID: "g1", StudentCount: 20}, "g2": {ID: "g2", StudentCount: 20}}
	courses := []domain.Course{
		{ID: "c1", Type: "lecture", GroupID: "g1", InstructorID: "i1", DurationMin: 60},
		{ID: "c2", Type: "lecture", GroupID: "g2", InstructorID: "i1", DurationMin: 60},
	}

	s := New(rooms, instructors, groups, smallConfig(), nil)
	out := s.Solve(courses, nil, 1)
	require.Equal(t, constraint.StatusFeasible, out.Status)

	byID := map[string]domain.Assignment{}
	for _, a := range out.Schedule.Assignments {
		byID[a.CourseID] = a
	}
	assert.False(t, byID["c1"].Slot.Overlaps(byID["c2"].Slot), "same instructor's two courses must not overlap")
}

func TestSolveReportsDiagnosticForImpossibleCourse(t *testing.T) {
	rooms := []domain.Room{{ID: "r1", Type: "lecture", Capacity: 40}}
	instructors := []domain.Instructor{{ID: "i1"}}
	groups := map[string]domain.Group{"g1": {ID: "g1", StudentCount: 20}}
	courses := []domain.Course{
		{ID: "c1", Type: "lab", GroupID: "g1", InstructorID: "i1", DurationMin: 60, RequiredFacilities: []string{"pcs"}},
	}

	s := New(rooms, instructors, groups, smallConfig(), nil)
	out := s.Solve(courses, nil, 1)
	assert.Equal(t, constraint.StatusInfeasible, out.Status)
	require.NotEmpty(t, out.Diagnostics)
}

func TestSolveOrdersTheoryBeforeLab(t *testing.T) {
	rooms := []domain.Room{
		{ID: "r1", Type: "theoretical", Capacity: 40},
		{ID: "r2", Type: "lab", Capacity: 40},
	}
	instructors := []domain.Instructor{{ID: "i1"}}
	groups := map[string]domain.Group{"g1": {ID: "g1", StudentCount: 20}}
	courses := []domain.Course{
		{ID: "theory1", Type: "theoretical", GroupID: "g1", InstructorID: "i1", DurationMin: 60},
		{ID: "lab1", Type: "lab", GroupID: "g1", InstructorID: "i1", DurationMin: 60},
	}

	s := New(rooms, instructors, groups, smallConfig(), nil)
	out := s.Solve(courses, nil, 1)
	require.Equal(t, constraint.StatusFeasible, out.Status)

	byID := map[string]domain.Assignment{}
	for _, a := range out.Schedule.Assignments {
		byID[a.CourseID] = a
	}
	theoryEnd := byID["theory1"].Slot.AbsoluteEnd()
	labStart := byID["lab1"].Slot.AbsoluteStart()
	assert.GreaterOrEqual(t, labStart, theoryEnd)
}

func TestSolveSynchronizesRotationGroup(t *testing.T) {
	rooms := []domain.Room{{ID: "r1", Type: "lab", Capacity: 40, Facilities: []string{"pcs"}}, {ID: "r2", Type: "lab", Capacity: 40, Facilities: []string{"pcs"}}}
	instructors := []domain.Instructor{{ID: "i1"}, {ID: "i2"}}
	groups := map[string]domain.Group{"g1": {ID: "g1", StudentCount: 20}, "g2": {ID: "g2", StudentCount: 20}}
	memberA := domain.Course{ID: "lab_a", Type: "lab", GroupID: "g1", InstructorID: "i1", DurationMin: 60, RequiredFacilities: []string{"pcs"}, ParentCourseID: "course_a"}
	memberB := domain.Course{ID: "lab_b", Type: "lab", GroupID: "g2", InstructorID: "i2", DurationMin: 60, RequiredFacilities: []string{"pcs"}, ParentCourseID: "course_b"}
	rotation := map[string][]domain.Course{"rot-1": {memberA, memberB}}

	s := New(rooms, instructors, groups, smallConfig(), nil)
	out := s.Solve([]domain.Course{memberA, memberB}, rotation, 1)
	require.Equal(t, constraint.StatusFeasible, out.Status)

	byID := map[string]domain.Assignment{}
	for _, a := range out.Schedule.Assignments {
		byID[a.CourseID] = a
	}
	assert.Equal(t, byID["lab_a"].Slot.AbsoluteStart(), byID["lab_b"].Slot.AbsoluteStart(), "rotation-tagged sections must start in lockstep")
}
