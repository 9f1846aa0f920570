package infeasible

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timetabler/core/internal/domain"
	"github.com/timetabler/core/internal/ttconfig"
)

func TestAnalyzeFlagsCourseWithNoSuitableRoom(t *testing.T) {
	rooms := []domain.Room{{ID: "r1", Type: "lecture", Capacity: 40}}
	courses := []domain.Course{{ID: "c1", Type: "lab", RequiredFacilities: []string{"pcs"}, DurationMin: 60, GroupID: "g1"}}
	groups := map[string]domain.Group{"g1": {ID: "g1", StudentCount: 30}}

	report := Analyze(courses, rooms, groups, nil, ttconfig.Default())
	require.Len(t, report.CourseIssues, 1)
	assert.Equal(t, "c1", report.CourseIssues[0].CourseID)
	assert.NotEmpty(t, report.Suggestions)
}

func TestAnalyzeFlagsOverloadedInstructor(t *testing.T) {
	rooms := []domain.Room{{ID: "r1", Type: "lecture", Capacity: 40}}
	instructors := []domain.Instructor{{ID: "i1", MaxWeeklyMinutes: 60}}
	courses := []domain.Course{
		{ID: "c1", Type: "lecture", InstructorID: "i1", DurationMin: 60, GroupID: "g1"},
		{ID: "c2", Type: "lecture", InstructorID: "i1", DurationMin: 60, GroupID: "g1"},
	}
	groups := map[string]domain.Group{"g1": {ID: "g1", StudentCount: 10}}

	report := Analyze(courses, rooms, groups, instructors, ttconfig.Default())
	require.Len(t, report.Instructors, 1)
	assert.True(t, report.Instructors[0].Overloaded)
	assert.Equal(t, 120, report.Instructors[0].RequiredMinutes)
}

func TestAnalyzeReportsRoomTypeDeficit(t *testing.T) {
	rooms := []domain.Room{{ID: "r1", Type: "lab", Capacity: 20}}
	courses := []domain.Course{{ID: "c1", Type: "lab", DurationMin: 60, GroupID: "g1"}}
	groups := map[string]domain.Group{"g1": {ID: "g1", StudentCount: 10}}

	cfg := ttconfig.Default()
	cfg.WorkingDays = []int{1}
	cfg.DailyStartMin = 0
	cfg.DailyEndMin = 60 // exactly one slot of room-type capacity available all week

	report := Analyze(courses, rooms, groups, nil, cfg)
	require.Len(t, report.RoomTypes, 1)
	assert.Equal(t, 60, report.RoomTypes[0].AvailableMinutes)
	assert.Equal(t, 60, report.RoomTypes[0].RequiredMinutes)
	assert.Zero(t, report.RoomTypes[0].DeficitMinutes)
}
