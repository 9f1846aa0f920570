package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScheduleCloneIsIndependent(t *testing.T) {
	sched := Schedule{Assignments: []Assignment{
		{CourseID: "c1", RoomID: "r1", Slot: NewTimeSlot(0, 480, 540)},
	}}
	clone := sched.Clone()
	clone.Assignments[0].RoomID = "r2"

	assert.Equal(t, "r1", sched.Assignments[0].RoomID, "mutating a clone must not affect the original")
	assert.Equal(t, "r2", clone.Assignments[0].RoomID)
	assert.Equal(t, 1, sched.Len())
}
