package domain

// Room is a physical space a course can be taught in.
type Room struct {
	ID         string
	Name       string
	Type       string
	Capacity   int
	Facilities []string
}

// HasFacilities reports whether the room covers every tag in required.
func (r Room) HasFacilities(required []string) bool {
	for _, f := range required {
		if !contains(r.Facilities, f) {
			return false
		}
	}
	return true
}

// PreferredSlot is a (day, start, end) window an instructor favors.
type PreferredSlot struct {
	Day      int
	StartMin int
	EndMin   int
}

// Covers reports whether the window contains the given start minute on the
// given day.
func (p PreferredSlot) Covers(day, startMin int) bool {
	return p.Day == day && p.StartMin <= startMin && startMin <= p.EndMin
}

// Instructor teaches courses matching their expertise tags.
type Instructor struct {
	ID                string
	Name              string
	Expertise         []string
	MaxWeeklyMinutes  int
	PreferredDays     []int
	PreferredSlots    []PreferredSlot
}

// HasExpertise reports whether the instructor can teach the given course
// type tag.
func (i Instructor) HasExpertise(courseType string) bool {
	return contains(i.Expertise, courseType)
}

// PrefersDay reports whether day is in the instructor's preferred-day set.
// An instructor with no stated preference is considered to prefer every day.
func (i Instructor) PrefersDay(day int) bool {
	if len(i.PreferredDays) == 0 {
		return true
	}
	return containsInt(i.PreferredDays, day)
}

// PrefersSlot reports whether (day, startMin) falls inside any preferred
// window. No stated preference means every slot is preferred.
func (i Instructor) PrefersSlot(day, startMin int) bool {
	if len(i.PreferredSlots) == 0 {
		return true
	}
	for _, s := range i.PreferredSlots {
		if s.Covers(day, startMin) {
			return true
		}
	}
	return false
}

// Group is a student cohort. Synthesized subgroups produced by the
// Preprocessor carry a non-empty ParentGroupID and a 1-based Index; root
// groups leave both zero-valued. This explicit parent reference replaces
// the original prototype's "{id}_sub{i}" string-splitting convention
// (spec.md §9 Open Question).
type Group struct {
	ID            string
	Major         string
	Level         int
	StudentCount  int
	ParentGroupID string
	Index         int
}

// IsSubgroup reports whether this group was synthesized by the Preprocessor.
func (g Group) IsSubgroup() bool {
	return g.ParentGroupID != ""
}

// RootID returns the id of the group that owns this one's schedule for the
// purposes of group no-overlap and the theory-before-lab ordering: itself
// for root groups, its parent for subgroups.
func (g Group) RootID() string {
	if g.IsSubgroup() {
		return g.ParentGroupID
	}
	return g.ID
}

// Course is a unit of instruction to be scheduled against a room, an
// instructor and a group. Courses produced by splitting carry a non-empty
// ParentCourseID pointing at the course they were split from (spec.md §9).
//
// A course's Type of "theoretical" or "lab" together with its GroupID is
// what ties a lab to the theory section it must follow (spec.md §4.3
// theory-before-lab ordering): the pairing is derived from these two fields
// by whichever stage posts the ordering constraint, not carried as an
// explicit link on the course itself.
type Course struct {
	ID                 string
	Name               string
	Type               string
	DurationMin        int
	InstructorID       string
	GroupID            string
	RequiredFacilities []string
	CanMerge           bool
	RotationGroup      string
	ParentCourseID     string
}

// IsSubcourse reports whether this course was synthesized by splitting.
func (c Course) IsSubcourse() bool {
	return c.ParentCourseID != ""
}

func contains(haystack []string, needle string) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}

func containsInt(haystack []int, needle int) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}
