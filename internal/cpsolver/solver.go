// Package cpsolver builds the per-course decision variables and emits the
// constraints of spec.md §4.3 against the constraint.Backend abstraction,
// then extracts a feasible domain.Schedule or reports infeasibility.
package cpsolver

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/timetabler/core/internal/constraint"
	"github.com/timetabler/core/internal/constraint/backtrack"
	"github.com/timetabler/core/internal/domain"
	"github.com/timetabler/core/internal/preprocess"
	"github.com/timetabler/core/internal/ttconfig"
	"github.com/timetabler/core/internal/ttdiag"
	"github.com/timetabler/core/internal/ttlog"
)

// slotGranularityMinutes is the discretization step for candidate start
// times. The prototype's CP-SAT model reasoned over continuous minute
// variables directly; this backend instead restricts each course's start
// domain up front to the legal (day, daily-window) combinations, which
// folds the day-of-week and daily-window constraints into domain
// construction rather than posting them as separate modulo/division
// constraints at search time.
const slotGranularityMinutes = 5

// Outcome is the result of a single Solve call.
type Outcome struct {
	Status      constraint.Status
	Schedule    domain.Schedule
	Diagnostics []*ttdiag.Error
}

// Solver wires course data into the constraint.Backend and extracts an
// outcome from it.
type Solver struct {
	Rooms       []domain.Room
	Instructors []domain.Instructor
	Groups      map[string]domain.Group
	Config      ttconfig.Config
	Log         *zap.SugaredLogger
}

// New builds a Solver over the given static resources.
func New(rooms []domain.Room, instructors []domain.Instructor, groups map[string]domain.Group, cfg ttconfig.Config, log *zap.SugaredLogger) *Solver {
	if log == nil {
		log = ttlog.Nop()
	}
	return &Solver{Rooms: rooms, Instructors: instructors, Groups: groups, Config: cfg, Log: log}
}

type courseVars struct {
	start    constraint.VarHandle
	room     constraint.VarHandle
	instr    constraint.VarHandle
	duration int
}

// Solve runs the CP feasibility search over courses. seed fixes each search
// worker's value ordering; the result is reproducible when
// Config.SolverWorkers is 1.
// rotationGroups carries the Preprocessor's rotation-tag registrations
// (already restricted to tags spanning at least two parent courses); pass
// nil when the caller has none to synchronize.
func (s *Solver) Solve(courses []domain.Course, rotationGroups map[string][]domain.Course, seed int64) Outcome {
	roomIndex := make(map[string]int, len(s.Rooms))
	for i, r := range s.Rooms {
		roomIndex[r.ID] = i
	}
	instructorIndex := make(map[string]int, len(s.Instructors))
	for i, in := range s.Instructors {
		instructorIndex[in.ID] = i
	}

	backend := backtrack.New(seed, s.Log)
	pp := preprocess.New(s.Rooms, s.Log)

	vars := make(map[string]courseVars, len(courses))
	var diagnostics []*ttdiag.Error

	for _, c := range courses {
		eligible := pp.SuitableRooms(c)
		if len(eligible) == 0 {
			diagnostics = append(diagnostics, ttdiag.NewDataIntegrityError(c.ID, "no eligible room: cannot be scheduled"))
			continue
		}
		eligibleIdx := make([]int, 0, len(eligible))
		for _, r := range eligible {
			eligibleIdx = append(eligibleIdx, roomIndex[r.ID])
		}

		candidates := candidateStarts(s.Config, c.DurationMin)
		if len(candidates) == 0 {
			diagnostics = append(diagnostics, ttdiag.NewDataIntegrityError(c.ID, "duration %dm does not fit any working-day window", c.DurationMin))
			continue
		}

		startVar := backend.NewIntVarFromDomain(candidates, "start_"+c.ID)
		roomVar := backend.NewIntVarFromDomain(eligibleIdx, "room_"+c.ID)
		instrVar := backend.NewIntVarFromDomain([]int{instructorIndex[c.InstructorID]}, "instr_"+c.ID)

		vars[c.ID] = courseVars{start: startVar, room: roomVar, instr: instrVar, duration: c.DurationMin}
	}

	if len(diagnostics) > 0 {
		return Outcome{Status: constraint.StatusInfeasible, Diagnostics: diagnostics}
	}

	s.postRoomNoOverlap(backend, pp, courses, vars, roomIndex)
	s.postInstructorNoOverlap(backend, courses, vars)
	s.postGroupNoOverlap(backend, courses, vars)
	s.postTheoryBeforeLab(backend, courses, vars)
	s.postRotationSync(backend, rotationGroups, vars)

	opts := constraint.SolveOptions{
		TimeLimit: time.Duration(s.Config.SolverTimeoutMS) * time.Millisecond,
		Workers:   s.Config.SolverWorkers,
		LogSearch: true,
	}
	status, err := backend.Solve(opts)
	if err != nil {
		diagnostics = append(diagnostics, ttdiag.NewInvariantViolation("cp solve error: %v", err))
		return Outcome{Status: constraint.StatusInfeasible, Diagnostics: diagnostics}
	}
	if status == constraint.StatusInfeasible {
		return Outcome{Status: status, Diagnostics: diagnostics}
	}

	schedule := domain.Schedule{Assignments: make([]domain.Assignment, 0, len(vars))}
	for _, c := range courses {
		cv, ok := vars[c.ID]
		if !ok {
			continue
		}
		startAbs := backend.Value(cv.start)
		roomIdx := backend.Value(cv.room)
		slot := domain.FromAbsolute(startAbs, cv.duration)
		schedule.Assignments = append(schedule.Assignments, domain.Assignment{
			CourseID:     c.ID,
			RoomID:       s.Rooms[roomIdx].ID,
			InstructorID: c.InstructorID,
			GroupID:      c.GroupID,
			Slot:         slot,
		})
	}
	sort.Slice(schedule.Assignments, func(i, j int) bool {
		return schedule.Assignments[i].CourseID < schedule.Assignments[j].CourseID
	})

	return Outcome{Status: status, Schedule: schedule, Diagnostics: diagnostics}
}

// candidateStarts enumerates every absolute-week-minute start value whose
// course fits inside a working day's window.
func candidateStarts(cfg ttconfig.Config, durationMin int) []int {
	var out []int
	for _, day := range cfg.WorkingDays {
		for start := cfg.DailyStartMin; start+durationMin <= cfg.DailyEndMin; start += slotGranularityMinutes {
			out = append(out, day*1440+start)
		}
	}
	return out
}

// postRoomNoOverlap posts, for every room, a no-overlap constraint over the
// optional intervals of the courses eligible for it — eligibility comes
// from each course's room variable domain, reified against that room's
// index (spec.md §4.3's b_{c,r} ≡ (room_c = r) construction).
func (s *Solver) postRoomNoOverlap(b constraint.Backend, pp *preprocess.Preprocessor, courses []domain.Course, vars map[string]courseVars, roomIndex map[string]int) {
	eligibleRoomsFor := make(map[string][]int, len(vars))
	for _, c := range courses {
		if _, ok := vars[c.ID]; !ok {
			continue
		}
		for _, r := range pp.SuitableRooms(c) {
			eligibleRoomsFor[c.ID] = append(eligibleRoomsFor[c.ID], roomIndex[r.ID])
		}
	}

	perRoom := make(map[int][]constraint.IntervalHandle)
	for _, c := range courses {
		cv, ok := vars[c.ID]
		if !ok {
			continue
		}
		for _, idx := range eligibleRoomsFor[c.ID] {
			presence := b.ReifyEqualityConst(cv.room, idx, fmt.Sprintf("room_eq_%s_%d", c.ID, idx))
			iv := b.NewOptionalIntervalVar(cv.start, cv.duration, presence, fmt.Sprintf("room_iv_%s_%d", c.ID, idx))
			perRoom[idx] = append(perRoom[idx], iv)
		}
	}
	for _, intervals := range perRoom {
		if len(intervals) > 1 {
			b.AddNoOverlap(intervals)
		}
	}
}

func (s *Solver) postInstructorNoOverlap(b constraint.Backend, courses []domain.Course, vars map[string]courseVars) {
	perInstructor := make(map[string][]constraint.IntervalHandle)
	for _, c := range courses {
		cv, ok := vars[c.ID]
		if !ok {
			continue
		}
		iv := b.NewIntervalVar(cv.start, cv.duration, "instr_iv_"+c.ID)
		perInstructor[c.InstructorID] = append(perInstructor[c.InstructorID], iv)
	}
	for _, intervals := range perInstructor {
		if len(intervals) > 1 {
			b.AddNoOverlap(intervals)
		}
	}
}

// postGroupNoOverlap implements the group no-overlap invariant together
// with the subgroup exception: sessions of distinct subgroups of the same
// root may coincide (they are parallel sections), but no session assigned
// directly to the root group may coincide with any of its subgroups'
// sessions, and sessions sharing one literal group id (root or a specific
// subgroup) may never coincide with each other.
func (s *Solver) postGroupNoOverlap(b constraint.Backend, courses []domain.Course, vars map[string]courseVars) {
	perGroup := make(map[string][]constraint.IntervalHandle)
	for _, c := range courses {
		cv, ok := vars[c.ID]
		if !ok {
			continue
		}
		iv := b.NewIntervalVar(cv.start, cv.duration, "grp_iv_"+c.ID)
		perGroup[c.GroupID] = append(perGroup[c.GroupID], iv)
	}
	for _, intervals := range perGroup {
		if len(intervals) > 1 {
			b.AddNoOverlap(intervals)
		}
	}

	rootSessions := make(map[string][]constraint.IntervalHandle)
	subSessions := make(map[string][]constraint.IntervalHandle)
	for groupID, intervals := range perGroup {
		g, ok := s.Groups[groupID]
		if !ok {
			continue
		}
		if g.IsSubgroup() {
			subSessions[g.RootID()] = append(subSessions[g.RootID()], intervals...)
		} else {
			rootSessions[g.RootID()] = append(rootSessions[g.RootID()], intervals...)
		}
	}
	for root, rs := range rootSessions {
		if ss, ok := subSessions[root]; ok && len(rs) > 0 && len(ss) > 0 {
			b.AddNoOverlapBetween(rs, ss)
		}
	}
}

// postTheoryBeforeLab forces every lab course to start at or after the end
// of every theoretical course sharing its root group (spec.md invariant 6,
// §4.3). The pairing is derived purely from Course.Type and Group.RootID:
// a lab and a theory course pair up whenever they share a root group,
// whether or not either was produced by splitting.
func (s *Solver) postTheoryBeforeLab(b constraint.Backend, courses []domain.Course, vars map[string]courseVars) {
	byRoot := make(map[string][]domain.Course, len(courses))
	for _, c := range courses {
		g, ok := s.Groups[c.GroupID]
		if !ok {
			continue
		}
		root := g.RootID()
		byRoot[root] = append(byRoot[root], c)
	}

	for _, members := range byRoot {
		for _, theory := range members {
			if theory.Type != "theoretical" {
				continue
			}
			theoryVars, ok := vars[theory.ID]
			if !ok {
				continue
			}
			for _, lab := range members {
				if lab.Type != "lab" {
					continue
				}
				labVars, ok := vars[lab.ID]
				if !ok {
					continue
				}
				b.AddPrecedence(labVars.start, theoryVars.start, theoryVars.duration)
			}
		}
	}
}

// postRotationSync forces every member of a rotation tag to start at the
// same absolute time (spec.md invariant 7): rotation-tagged lab sections
// from distinct parent courses share equipment slots and must run in
// lockstep, so each non-anchor member is pinned equal to the tag's first
// member.
func (s *Solver) postRotationSync(b constraint.Backend, rotationGroups map[string][]domain.Course, vars map[string]courseVars) {
	for _, members := range rotationGroups {
		var anchor *courseVars
		for i := range members {
			cv, ok := vars[members[i].ID]
			if !ok {
				continue
			}
			if anchor == nil {
				anchor = &cv
				continue
			}
			b.AddEquality(cv.start, anchor.start)
		}
	}
}
