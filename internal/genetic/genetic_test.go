package genetic

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timetabler/core/internal/domain"
	"github.com/timetabler/core/internal/evaluate"
	"github.com/timetabler/core/internal/ttconfig"
)

func smallSetup() (*Optimizer, domain.Schedule) {
	rooms := []domain.Room{{ID: "r1", Type: "lecture", Capacity: 40}, {ID: "r2", Type: "lecture", Capacity: 40}}
	instructors := []domain.Instructor{{ID: "i1", Expertise: []string{"lecture"}}, {ID: "i2", Expertise: []string{"lecture"}}}
	groups := map[string]domain.Group{"g1": {ID: "g1", StudentCount: 30}}
	courses := []domain.Course{
		{ID: "c1", Type: "lecture", GroupID: "g1", InstructorID: "i1", DurationMin: 60},
		{ID: "c2", Type: "lecture", GroupID: "g1", InstructorID: "i1", DurationMin: 60},
	}
	ev := evaluate.New(rooms, instructors, groups, courses, ttconfig.Default())

	cfg := ttconfig.Default()
	cfg.GA.PopulationSize = 8
	cfg.GA.IslandCount = 2
	cfg.GA.Generations = 5
	cfg.GA.ElitismCount = 1

	opt := New(ev, courses, rooms, instructors, groups, cfg, nil)
	seed := domain.Schedule{Assignments: []domain.Assignment{
		{CourseID: "c1", RoomID: "r1", GroupID: "g1", Slot: domain.NewTimeSlot(1, 480, 540)},
		{CourseID: "c2", RoomID: "r1", GroupID: "g1", Slot: domain.NewTimeSlot(1, 480, 540)}, // conflicting on purpose
	}}
	return opt, seed
}

func TestRepairResolvesRoomDoubleBooking(t *testing.T) {
	opt, seed := smallSetup()
	sched := seed.Clone()
	opt.repair(&sched)

	a, b := sched.Assignments[0], sched.Assignments[1]
	conflict := a.RoomID == b.RoomID && a.Slot.Overlaps(b.Slot)
	assert.False(t, conflict, "repair must resolve the direct room double-booking")
}

func TestRunProducesAScheduleCoveringEveryCourse(t *testing.T) {
	opt, seed := smallSetup()
	final, stats := opt.Run(seed, 11)

	require.Len(t, final.Assignments, len(opt.Courses))
	assert.NotEmpty(t, stats.BestFitnessHistory)
	assert.Len(t, stats.BestFitnessHistory, len(stats.DiversityHistory))
}

func TestFitnessIsMemoized(t *testing.T) {
	opt, seed := smallSetup()
	f1 := opt.fitness(seed)
	f2 := opt.fitness(seed)
	assert.Equal(t, f1, f2)
}

func TestCompactGapsPullsSessionsEarlier(t *testing.T) {
	opt, _ := smallSetup()
	sched := domain.Schedule{Assignments: []domain.Assignment{
		{CourseID: "c1", GroupID: "g1", Slot: domain.NewTimeSlot(1, 480, 540)},
		{CourseID: "c2", GroupID: "g1", Slot: domain.NewTimeSlot(1, 700, 760)},
	}}
	out := opt.compactGaps(sched)
	assert.Less(t, out.Assignments[1].Slot.StartMin, sched.Assignments[1].Slot.StartMin)
}

func TestWeightedStrategyCoversAllFour(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	seen := map[mutationStrategy]bool{}
	for i := 0; i < 1000; i++ {
		seen[weightedStrategy(rng)] = true
	}
	assert.Len(t, seen, 4)
}
