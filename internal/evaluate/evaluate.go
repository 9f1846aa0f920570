// Package evaluate computes the soft-constraint penalty vector and the
// weighted aggregate cost of a domain.Schedule (spec.md §4.4), and the
// schedule fingerprint the genetic optimizer memoizes fitness against.
package evaluate

import (
	"sort"

	"github.com/mitchellh/hashstructure/v2"
	"github.com/samber/lo"

	"github.com/timetabler/core/internal/domain"
	"github.com/timetabler/core/internal/ttconfig"
)

// Penalties is the per-component penalty vector of spec.md §4.4.
type Penalties struct {
	RoomConflict         float64
	InstructorConflict   float64
	GroupConflict        float64
	FacilityMismatch     float64
	TimePreference       float64
	MinimizeGaps         float64
	BalanceRoomUsage     float64
	InstructorPreference float64
	MergeBonus           float64
}

// Total weighs each component by cfg's configured weight and sums them.
func (p Penalties) Total(cfg ttconfig.Config) float64 {
	return p.RoomConflict*cfg.Weight("room_conflict") +
		p.InstructorConflict*cfg.Weight("instructor_conflict") +
		p.GroupConflict*cfg.Weight("group_conflict") +
		p.FacilityMismatch*cfg.Weight("facility_mismatch") +
		p.TimePreference*cfg.Weight("time_preference") +
		p.MinimizeGaps*cfg.Weight("minimize_gaps") +
		p.BalanceRoomUsage*cfg.Weight("balance_room_usage") +
		p.InstructorPreference*cfg.Weight("instructor_preference") +
		p.MergeBonus*cfg.Weight("merge_bonus")
}

// Evaluator holds the static entity lookups needed to score a schedule.
type Evaluator struct {
	Rooms       map[string]domain.Room
	Instructors map[string]domain.Instructor
	Groups      map[string]domain.Group
	Courses     map[string]domain.Course
	Config      ttconfig.Config
}

// New indexes the entity lists the evaluator needs by id.
func New(rooms []domain.Room, instructors []domain.Instructor, groups map[string]domain.Group, courses []domain.Course, cfg ttconfig.Config) *Evaluator {
	e := &Evaluator{
		Rooms:       make(map[string]domain.Room, len(rooms)),
		Instructors: make(map[string]domain.Instructor, len(instructors)),
		Groups:      groups,
		Courses:     make(map[string]domain.Course, len(courses)),
		Config:      cfg,
	}
	for _, r := range rooms {
		e.Rooms[r.ID] = r
	}
	for _, in := range instructors {
		e.Instructors[in.ID] = in
	}
	for _, c := range courses {
		e.Courses[c.ID] = c
	}
	return e
}

// Evaluate computes the penalty vector for sched, bucketing assignments by
// resource key and sorting each bucket by start, so room, instructor and
// same-group conflict checks stop at the first non-overlapping successor;
// the root-versus-subgroup check still compares every pair within a root
// group.
func (e *Evaluator) Evaluate(sched domain.Schedule) Penalties {
	var p Penalties

	p.RoomConflict = e.conflictPenalty(sched, func(a domain.Assignment) string { return a.RoomID })
	p.InstructorConflict = e.conflictPenalty(sched, func(a domain.Assignment) string { return a.InstructorID })
	p.GroupConflict = e.groupConflictPenalty(sched)

	for _, a := range sched.Assignments {
		if a.Slot.StartMin <= 8*60 || a.Slot.StartMin >= 16*60 {
			p.TimePreference++
		}
		in, ok := e.Instructors[a.InstructorID]
		if ok {
			if !in.PrefersDay(a.Slot.Day) {
				p.InstructorPreference++
			}
			if !in.PrefersSlot(a.Slot.Day, a.Slot.StartMin) {
				p.InstructorPreference++
			}
		}
		c, ok := e.Courses[a.CourseID]
		if !ok {
			continue
		}
		room, ok := e.Rooms[a.RoomID]
		if ok && !room.HasFacilities(c.RequiredFacilities) {
			p.FacilityMismatch++
		}
	}

	p.MinimizeGaps = e.gapPenalty(sched)
	p.BalanceRoomUsage = e.roomBalancePenalty(sched)
	p.MergeBonus = e.mergeBonus(sched)

	return p
}

// conflictPenalty counts overlapping-pair conflicts within same-key buckets,
// for any resource whose assignments must never overlap (room, instructor).
func (e *Evaluator) conflictPenalty(sched domain.Schedule, key func(domain.Assignment) string) float64 {
	buckets := make(map[string][]domain.Assignment)
	for _, a := range sched.Assignments {
		k := key(a)
		if k == "" {
			continue
		}
		buckets[k] = append(buckets[k], a)
	}
	var conflicts float64
	for _, bucket := range buckets {
		conflicts += countOverlaps(bucket)
	}
	return conflicts
}

// groupConflictPenalty applies the subgroup exception: assignments in
// distinct subgroups of the same root are allowed to overlap.
func (e *Evaluator) groupConflictPenalty(sched domain.Schedule) float64 {
	byGroup := make(map[string][]domain.Assignment)
	for _, a := range sched.Assignments {
		byGroup[a.GroupID] = append(byGroup[a.GroupID], a)
	}
	var conflicts float64
	for _, bucket := range byGroup {
		conflicts += countOverlaps(bucket)
	}

	rootOf := make(map[string]string, len(e.Groups))
	for id, g := range e.Groups {
		rootOf[id] = g.RootID()
	}
	byRoot := make(map[string][]domain.Assignment)
	for _, a := range sched.Assignments {
		root, ok := rootOf[a.GroupID]
		if !ok {
			continue
		}
		byRoot[root] = append(byRoot[root], a)
	}
	for _, all := range byRoot {
		for i := 0; i < len(all); i++ {
			for j := i + 1; j < len(all); j++ {
				gi, gj := all[i].GroupID, all[j].GroupID
				if gi == gj {
					continue // already counted above
				}
				gdi, gdj := e.Groups[gi], e.Groups[gj]
				// Two distinct subgroups of the same root may run in parallel;
				// only root-vs-subgroup or root-vs-root pairs conflict.
				if gdi.IsSubgroup() && gdj.IsSubgroup() {
					continue
				}
				if all[i].Slot.Overlaps(all[j].Slot) {
					conflicts++
				}
			}
		}
	}
	return conflicts
}

func countOverlaps(assignments []domain.Assignment) float64 {
	sorted := append([]domain.Assignment(nil), assignments...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Slot.AbsoluteStart() < sorted[j].Slot.AbsoluteStart() })
	var conflicts float64
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			if sorted[j].Slot.AbsoluteStart() >= sorted[i].Slot.AbsoluteEnd() {
				break
			}
			if sorted[i].Slot.Overlaps(sorted[j].Slot) {
				conflicts++
			}
		}
	}
	return conflicts
}

// gapPenalty sums, per group per day, the idle minutes between consecutive
// sessions (spec.md §4.4 minimize_gaps).
func (e *Evaluator) gapPenalty(sched domain.Schedule) float64 {
	type dayKey struct {
		group string
		day   int
	}
	byDay := make(map[dayKey][]domain.Assignment)
	for _, a := range sched.Assignments {
		k := dayKey{a.GroupID, a.Slot.Day}
		byDay[k] = append(byDay[k], a)
	}
	var gaps float64
	for _, day := range byDay {
		sort.Slice(day, func(i, j int) bool { return day[i].Slot.StartMin < day[j].Slot.StartMin })
		for i := 1; i < len(day); i++ {
			gap := day[i].Slot.StartMin - day[i-1].Slot.EndMin()
			if gap > 0 {
				gaps += float64(gap)
			}
		}
	}
	return gaps
}

// roomBalancePenalty measures the spread of per-room utilization minutes
// away from the mean, rewarding even load across eligible rooms.
func (e *Evaluator) roomBalancePenalty(sched domain.Schedule) float64 {
	usage := make(map[string]int)
	for _, a := range sched.Assignments {
		usage[a.RoomID] += a.Slot.Duration()
	}
	if len(usage) == 0 {
		return 0
	}
	values := lo.Values(usage)
	mean := float64(lo.Sum(values)) / float64(len(values))
	var variance float64
	for _, v := range values {
		d := float64(v) - mean
		variance += d * d
	}
	return variance / float64(len(values))
}

// mergeBonus rewards scheduling merge-eligible courses' sections together in
// the same TimeSlot (spec.md §4.4): assignments of a CanMerge course are
// grouped by (course, TimeSlot), and every group of k≥2 joined sessions earns
// a bonus of k, plus 2 more when the joined groups span more than one major,
// returned as a negative penalty.
func (e *Evaluator) mergeBonus(sched domain.Schedule) float64 {
	type mergeKey struct {
		courseID string
		slot     domain.TimeSlot
	}
	merged := make(map[mergeKey][]domain.Assignment)
	for _, a := range sched.Assignments {
		c, ok := e.Courses[a.CourseID]
		if !ok || !c.CanMerge {
			continue
		}
		k := mergeKey{a.CourseID, a.Slot}
		merged[k] = append(merged[k], a)
	}

	var bonus float64
	for _, sessions := range merged {
		if len(sessions) < 2 {
			continue
		}
		bonus += float64(len(sessions))
		majors := make(map[string]struct{})
		for _, a := range sessions {
			if g, ok := e.Groups[a.GroupID]; ok {
				majors[g.Major] = struct{}{}
			}
		}
		if len(majors) > 1 {
			bonus += 2
		}
	}
	return -bonus
}

// fingerprintEntry is the stable, sortable projection of an Assignment used
// to hash a schedule: spec.md §9's Open Question resolves the fingerprint
// as the sorted (course_id, start_minutes, room_id) tuple set, independent
// of slice order.
type fingerprintEntry struct {
	CourseID     string
	StartMinutes int
	RoomID       string
}

// Fingerprint returns a stable hash of sched's resource-relevant content,
// used to key the genetic optimizer's fitness cache (spec.md §4.6).
func Fingerprint(sched domain.Schedule) (uint64, error) {
	entries := make([]fingerprintEntry, 0, len(sched.Assignments))
	for _, a := range sched.Assignments {
		entries = append(entries, fingerprintEntry{
			CourseID:     a.CourseID,
			StartMinutes: a.Slot.AbsoluteStart(),
			RoomID:       a.RoomID,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CourseID != entries[j].CourseID {
			return entries[i].CourseID < entries[j].CourseID
		}
		if entries[i].RoomID != entries[j].RoomID {
			return entries[i].RoomID < entries[j].RoomID
		}
		return entries[i].StartMinutes < entries[j].StartMinutes
	})
	return hashstructure.Hash(entries, hashstructure.FormatV2, &hashstructure.HashOptions{SlicesAsSets: false})
}
