// Package preprocess implements the Preprocessor (spec.md §4.1): it
// computes suitable rooms per course, splits oversize courses into
// subcourses with synthesized subgroups, and collects rotation groups.
package preprocess

import (
	"fmt"
	"math"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/timetabler/core/internal/domain"
	"github.com/timetabler/core/internal/ttdiag"
	"github.com/timetabler/core/internal/ttlog"
)

// Result is the Preprocessor's output: the expanded course list (with
// subcourses in place of any split course) and the augmented group
// dictionary (with synthesized subgroups added).
type Result struct {
	Courses  []domain.Course
	Groups   map[string]domain.Group
	// RotationGroups maps a rotation tag to the subcourses registered under
	// it, restricted to tags shared by subcourses of at least two distinct
	// parent courses (spec.md invariant 7).
	RotationGroups map[string][]domain.Course
	Diagnostics    []*ttdiag.Error
}

// Preprocessor holds the shared read-only room list used to compute
// suitability for every course.
type Preprocessor struct {
	Rooms []domain.Room
	Log   *zap.SugaredLogger
}

// New builds a Preprocessor over the given room list.
func New(rooms []domain.Room, log *zap.SugaredLogger) *Preprocessor {
	if log == nil {
		log = ttlog.Nop()
	}
	return &Preprocessor{Rooms: rooms, Log: log}
}

// SuitableRooms returns the rooms whose type matches the course and whose
// facility set covers the course's required facilities (spec.md §4.1).
func (p *Preprocessor) SuitableRooms(c domain.Course) []domain.Room {
	return lo.Filter(p.Rooms, func(r domain.Room, _ int) bool {
		return r.Type == c.Type && r.HasFacilities(c.RequiredFacilities)
	})
}

// Run expands courses, splitting any that need it, and returns the
// augmented group dictionary plus rotation registrations.
func (p *Preprocessor) Run(courses []domain.Course, groups []domain.Group, instructors []domain.Instructor) Result {
	groupByID := make(map[string]domain.Group, len(groups))
	for _, g := range groups {
		groupByID[g.ID] = g
	}
	instructorByID := make(map[string]domain.Instructor, len(instructors))
	for _, in := range instructors {
		instructorByID[in.ID] = in
	}

	res := Result{
		Groups:         groupByID,
		RotationGroups: make(map[string][]domain.Course),
	}

	for _, c := range courses {
		group, ok := groupByID[c.GroupID]
		if !ok {
			res.Diagnostics = append(res.Diagnostics,
				ttdiag.NewDataIntegrityError(c.ID, "references missing group %q", c.GroupID))
			continue
		}
		if _, ok := instructorByID[c.InstructorID]; !ok {
			res.Diagnostics = append(res.Diagnostics,
				ttdiag.NewDataIntegrityError(c.ID, "references missing instructor %q", c.InstructorID))
			continue
		}

		suitable := p.SuitableRooms(c)
		if len(suitable) == 0 {
			p.Log.Debugw("no suitable room for course", "course", c.ID, "type", c.Type)
			res.Diagnostics = append(res.Diagnostics,
				ttdiag.NewDataIntegrityError(c.ID, "NoSuitableRoom: no room of type %q covers required facilities", c.Type))
		}

		if !p.needsSplitting(c, suitable, group) {
			res.Courses = append(res.Courses, c)
			continue
		}

		subcourses := p.split(c, group, suitable, groupByID)
		res.Courses = append(res.Courses, subcourses...)
		p.Log.Infow("split course", "course", c.ID, "subcourses", len(subcourses))

		if c.RotationGroup != "" && c.Type == "lab" {
			res.RotationGroups[c.RotationGroup] = append(res.RotationGroups[c.RotationGroup], subcourses...)
		}
	}

	// Restrict rotation groups to tags shared by subcourses of at least two
	// distinct parent courses (spec.md invariant 7): a rotation tag used by
	// a single split course's own subcourses never forces synchronization.
	for tag, members := range res.RotationGroups {
		parents := lo.Uniq(lo.Map(members, func(c domain.Course, _ int) string { return c.ParentCourseID }))
		if len(parents) < 2 {
			delete(res.RotationGroups, tag)
		}
	}

	res.Groups = groupByID
	return res
}

// needsSplitting implements spec.md §4.1's splitting predicate.
func (p *Preprocessor) needsSplitting(c domain.Course, suitable []domain.Room, group domain.Group) bool {
	if c.CanMerge {
		return false
	}
	if len(suitable) == 0 {
		return true
	}
	maxCap := lo.Max(lo.Map(suitable, func(r domain.Room, _ int) int { return r.Capacity }))
	return maxCap < group.StudentCount
}

// split synthesizes subgroups and subcourses, idempotent on subgroup ids
// already present in groupByID (spec.md §4.1).
func (p *Preprocessor) split(c domain.Course, group domain.Group, suitable []domain.Room, groupByID map[string]domain.Group) []domain.Course {
	maxCap := group.StudentCount
	if len(suitable) > 0 {
		maxCap = lo.Max(lo.Map(suitable, func(r domain.Room, _ int) int { return r.Capacity }))
	}
	if maxCap <= 0 {
		maxCap = group.StudentCount
	}

	n := int(math.Ceil(float64(group.StudentCount) / float64(maxCap)))
	if n < 1 {
		n = 1
	}

	subcourses := make([]domain.Course, 0, n)
	remaining := group.StudentCount
	for i := 1; i <= n; i++ {
		partSize := maxCap
		if remaining < maxCap {
			partSize = remaining
		}
		if i == n {
			// last subgroup absorbs the remainder exactly, per spec.md §4.1.
			partSize = remaining
		}
		remaining -= partSize

		subgroupID := fmt.Sprintf("%s_sub%d", group.ID, i)
		if _, exists := groupByID[subgroupID]; !exists {
			groupByID[subgroupID] = domain.Group{
				ID:            subgroupID,
				Major:         group.Major,
				Level:         group.Level,
				StudentCount:  partSize,
				ParentGroupID: group.ID,
				Index:         i,
			}
		}

		subcourses = append(subcourses, domain.Course{
			ID:                 fmt.Sprintf("%s_sub%d", c.ID, i),
			Name:               fmt.Sprintf("%s (section %d)", c.Name, i),
			Type:               c.Type,
			DurationMin:        c.DurationMin,
			InstructorID:       c.InstructorID,
			GroupID:            subgroupID,
			RequiredFacilities: c.RequiredFacilities,
			CanMerge:           c.CanMerge,
			RotationGroup:      c.RotationGroup,
			ParentCourseID:     c.ID,
		})
	}
	return subcourses
}
