// Package domain defines the entities and invariants of the timetabling
// problem: rooms, instructors, groups, courses, time slots and the
// assignments that bind them together.
package domain

import "fmt"

// TimeSlot is an immutable interval on one day of the 7-day week. Day 0 is
// the first configured day of the week; the engine does not attach calendar
// semantics to it beyond the working-day index used throughout the spec.
type TimeSlot struct {
	Day        int
	StartMin   int // minutes since midnight
	DurationMin int
}

// NewTimeSlot builds a TimeSlot from a day and a minute-of-day start/end pair.
func NewTimeSlot(day, startMin, endMin int) TimeSlot {
	return TimeSlot{Day: day, StartMin: startMin, DurationMin: endMin - startMin}
}

// EndMin is the minute-of-day the slot ends at.
func (t TimeSlot) EndMin() int {
	return t.StartMin + t.DurationMin
}

// Duration returns the length of the slot in minutes.
func (t TimeSlot) Duration() int {
	return t.DurationMin
}

// AbsoluteStart is the start expressed as minutes since the start of the
// week (day*1440 + start-of-day), the encoding used by the CP solver (§4.2).
func (t TimeSlot) AbsoluteStart() int {
	return t.Day*1440 + t.StartMin
}

// AbsoluteEnd mirrors AbsoluteStart for the end of the interval.
func (t TimeSlot) AbsoluteEnd() int {
	return t.AbsoluteStart() + t.DurationMin
}

// FromAbsolute reconstructs a TimeSlot from an absolute week-minute start and
// a duration, the inverse of AbsoluteStart (§4.2).
func FromAbsolute(absStart, duration int) TimeSlot {
	day := absStart / 1440
	startOfDay := absStart % 1440
	return TimeSlot{Day: day, StartMin: startOfDay, DurationMin: duration}
}

// Overlaps reports whether two slots intersect: same day and overlapping
// minute ranges. It is reflexive for any non-empty slot, symmetric, and
// always false across distinct days.
func (t TimeSlot) Overlaps(other TimeSlot) bool {
	if t.Day != other.Day {
		return false
	}
	return t.StartMin < other.EndMin() && other.StartMin < t.EndMin()
}

func (t TimeSlot) String() string {
	return fmt.Sprintf("day%d %02d:%02d-%02d:%02d", t.Day,
		t.StartMin/60, t.StartMin%60, t.EndMin()/60, t.EndMin()%60)
}
