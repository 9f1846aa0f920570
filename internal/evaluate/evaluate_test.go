package evaluate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timetabler/core/internal/domain"
	"github.com/timetabler/core/internal/ttconfig"
)

func baseEvaluator() *Evaluator {
	rooms := []domain.Room{{ID: "r1", Type: "lecture", Capacity: 40}}
	instructors := []domain.Instructor{{ID: "i1", PreferredDays: []int{1}}}
	groups := map[string]domain.Group{"g1": {ID: "g1", StudentCount: 30}}
	courses := []domain.Course{{ID: "c1", RequiredFacilities: nil}, {ID: "c2", RequiredFacilities: nil}}
	return New(rooms, instructors, groups, courses, ttconfig.Default())
}

func TestEvaluateDetectsRoomConflict(t *testing.T) {
	ev := baseEvaluator()
	sched := domain.Schedule{Assignments: []domain.Assignment{
		{CourseID: "c1", RoomID: "r1", InstructorID: "i1", GroupID: "g1", Slot: domain.NewTimeSlot(1, 480, 540)},
		{CourseID: "c2", RoomID: "r1", InstructorID: "i1", GroupID: "g1", Slot: domain.NewTimeSlot(1, 500, 560)},
	}}
	p := ev.Evaluate(sched)
	assert.Equal(t, 1.0, p.RoomConflict)
	assert.Equal(t, 1.0, p.InstructorConflict)
}

func TestEvaluateNoConflictWhenDisjointInTime(t *testing.T) {
	ev := baseEvaluator()
	sched := domain.Schedule{Assignments: []domain.Assignment{
		{CourseID: "c1", RoomID: "r1", InstructorID: "i1", GroupID: "g1", Slot: domain.NewTimeSlot(1, 480, 540)},
		{CourseID: "c2", RoomID: "r1", InstructorID: "i1", GroupID: "g1", Slot: domain.NewTimeSlot(1, 540, 600)},
	}}
	p := ev.Evaluate(sched)
	assert.Zero(t, p.RoomConflict)
	assert.Zero(t, p.InstructorConflict)
}

func TestGroupConflictAllowsDistinctSubgroupsInParallel(t *testing.T) {
	groups := map[string]domain.Group{
		"g1":      {ID: "g1"},
		"g1_sub1": {ID: "g1_sub1", ParentGroupID: "g1", Index: 1},
		"g1_sub2": {ID: "g1_sub2", ParentGroupID: "g1", Index: 2},
	}
	ev := New(nil, nil, groups, nil, ttconfig.Default())
	sched := domain.Schedule{Assignments: []domain.Assignment{
		{CourseID: "c1", GroupID: "g1_sub1", Slot: domain.NewTimeSlot(1, 480, 540)},
		{CourseID: "c2", GroupID: "g1_sub2", Slot: domain.NewTimeSlot(1, 480, 540)},
	}}
	assert.Zero(t, ev.groupConflictPenalty(sched), "distinct subgroups of the same root may run in parallel")
}

func TestGroupConflictForbidsRootAgainstSubgroup(t *testing.T) {
	groups := map[string]domain.Group{
		"g1":      {ID: "g1"},
		"g1_sub1": {ID: "g1_sub1", ParentGroupID: "g1", Index: 1},
	}
	ev := New(nil, nil, groups, nil, ttconfig.Default())
	sched := domain.Schedule{Assignments: []domain.Assignment{
		{CourseID: "c1", GroupID: "g1", Slot: domain.NewTimeSlot(1, 480, 540)},
		{CourseID: "c2", GroupID: "g1_sub1", Slot: domain.NewTimeSlot(1, 480, 540)},
	}}
	assert.Equal(t, 1.0, ev.groupConflictPenalty(sched), "a root session may never coincide with any of its subgroups")
}

func TestGapPenaltySumsIdleMinutes(t *testing.T) {
	ev := New(nil, nil, map[string]domain.Group{}, nil, ttconfig.Default())
	sched := domain.Schedule{Assignments: []domain.Assignment{
		{GroupID: "g1", Slot: domain.NewTimeSlot(1, 480, 540)},
		{GroupID: "g1", Slot: domain.NewTimeSlot(1, 600, 660)},
	}}
	assert.Equal(t, 60.0, ev.gapPenalty(sched))
}

func TestMergeBonusRewardsJoinedSessionsInTheSameSlot(t *testing.T) {
	groups := map[string]domain.Group{
		"g1": {ID: "g1", Major: "cs"},
		"g2": {ID: "g2", Major: "cs"},
	}
	courses := []domain.Course{{ID: "c1", CanMerge: true}}
	ev := New(nil, nil, groups, courses, ttconfig.Default())
	sched := domain.Schedule{Assignments: []domain.Assignment{
		{CourseID: "c1", GroupID: "g1", Slot: domain.NewTimeSlot(1, 480, 540)},
		{CourseID: "c1", GroupID: "g2", Slot: domain.NewTimeSlot(1, 480, 540)},
	}}
	assert.Equal(t, -2.0, ev.mergeBonus(sched), "two joined same-major sessions earn a bonus of k=2")
}

func TestMergeBonusAddsCrossMajorBonus(t *testing.T) {
	groups := map[string]domain.Group{
		"g1": {ID: "g1", Major: "cs"},
		"g2": {ID: "g2", Major: "math"},
	}
	courses := []domain.Course{{ID: "c1", CanMerge: true}}
	ev := New(nil, nil, groups, courses, ttconfig.Default())
	sched := domain.Schedule{Assignments: []domain.Assignment{
		{CourseID: "c1", GroupID: "g1", Slot: domain.NewTimeSlot(1, 480, 540)},
		{CourseID: "c1", GroupID: "g2", Slot: domain.NewTimeSlot(1, 480, 540)},
	}}
	assert.Equal(t, -4.0, ev.mergeBonus(sched), "cross-major joins add 2 on top of the k=2 bonus")
}

func TestMergeBonusIgnoresUnmergedSingleSessions(t *testing.T) {
	groups := map[string]domain.Group{"g1": {ID: "g1", Major: "cs"}}
	courses := []domain.Course{{ID: "c1", CanMerge: true}}
	ev := New(nil, nil, groups, courses, ttconfig.Default())
	sched := domain.Schedule{Assignments: []domain.Assignment{
		{CourseID: "c1", GroupID: "g1", Slot: domain.NewTimeSlot(1, 480, 540)},
	}}
	assert.Zero(t, ev.mergeBonus(sched))
}

func TestMergeBonusIgnoresDifferentTimeSlots(t *testing.T) {
	groups := map[string]domain.Group{"g1": {ID: "g1", Major: "cs"}, "g2": {ID: "g2", Major: "cs"}}
	courses := []domain.Course{{ID: "c1", CanMerge: true}}
	ev := New(nil, nil, groups, courses, ttconfig.Default())
	sched := domain.Schedule{Assignments: []domain.Assignment{
		{CourseID: "c1", GroupID: "g1", Slot: domain.NewTimeSlot(1, 480, 540)},
		{CourseID: "c1", GroupID: "g2", Slot: domain.NewTimeSlot(1, 600, 660)},
	}}
	assert.Zero(t, ev.mergeBonus(sched), "sessions in different time slots do not merge")
}

func TestFingerprintIsOrderIndependent(t *testing.T) {
	a := domain.Schedule{Assignments: []domain.Assignment{
		{CourseID: "c1", Slot: domain.NewTimeSlot(0, 0, 60), RoomID: "r1"},
		{CourseID: "c2", Slot: domain.NewTimeSlot(0, 60, 120), RoomID: "r2"},
	}}
	b := domain.Schedule{Assignments: []domain.Assignment{
		{CourseID: "c2", Slot: domain.NewTimeSlot(0, 60, 120), RoomID: "r2"},
		{CourseID: "c1", Slot: domain.NewTimeSlot(0, 0, 60), RoomID: "r1"},
	}}
	fpA, err := Fingerprint(a)
	require.NoError(t, err)
	fpB, err := Fingerprint(b)
	require.NoError(t, err)
	assert.Equal(t, fpA, fpB)
}

func TestFingerprintChangesWithContent(t *testing.T) {
	a := domain.Schedule{Assignments: []domain.Assignment{{CourseID: "c1", Slot: domain.NewTimeSlot(0, 0, 60), RoomID: "r1"}}}
	b := domain.Schedule{Assignments: []domain.Assignment{{CourseID: "c1", Slot: domain.NewTimeSlot(0, 0, 60), RoomID: "r2"}}}
	fpA, err := Fingerprint(a)
	require.NoError(t, err)
	fpB, err := Fingerprint(b)
	require.NoError(t, err)
	assert.NotEqual(t, fpA, fpB)
}
