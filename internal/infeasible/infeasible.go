// Package infeasible implements the Infeasibility Analyzer (spec.md §4.7):
// when the CP solver reports no feasible assignment, this package produces
// a demanded-vs-available report instead of a bare "Infeasible" error,
// grounded directly on the prototype's analyze_feasibility function
// (original_source/algorithm/cp_algorithm.py).
package infeasible

import (
	"fmt"
	"math"
	"sort"

	"github.com/timetabler/core/internal/domain"
	"github.com/timetabler/core/internal/ttconfig"
)

// RoomTypeReport compares the minutes of room-time demanded by courses of
// one room type against the minutes the timetable actually offers.
type RoomTypeReport struct {
	RoomType          string
	AvailableMinutes  int
	RequiredMinutes   int
	DeficitMinutes    int // positive when demand exceeds supply
}

// InstructorReport compares an instructor's assigned teaching minutes
// against their configured weekly cap.
type InstructorReport struct {
	InstructorID     string
	RequiredMinutes  int
	CapacityMinutes  int
	Overloaded       bool
}

// GroupReport compares a group's total course minutes against the minutes
// the working-day window offers across the week.
type GroupReport struct {
	GroupID         string
	RequiredMinutes int
	CapacityMinutes int
	Overloaded      bool
}

// CourseIssue flags a single course that has no suitable room at all.
type CourseIssue struct {
	CourseID string
	Message  string
}

// Report is the full infeasibility analysis.
type Report struct {
	RoomTypes    []RoomTypeReport
	Instructors  []InstructorReport
	Groups       []GroupReport
	CourseIssues []CourseIssue
	Suggestions  []string
}

// Analyze computes Report for the given problem instance. It never mutates
// its inputs and never itself decides feasibility — the CP solver is the
// authority on that; this only explains a reported infeasibility.
func Analyze(courses []domain.Course, rooms []domain.Room, groups map[string]domain.Group, instructors []domain.Instructor, cfg ttconfig.Config) Report {
	dayMinutes := cfg.DailyEndMin - cfg.DailyStartMin
	totalDays := len(cfg.WorkingDays)

	availableByType := make(map[string]int)
	for _, r := range rooms {
		availableByType[r.Type] += dayMinutes * totalDays
	}

	requiredByType := make(map[string]int)
	var issues []CourseIssue
	for _, c := range courses {
		var suitable []domain.Room
		for _, r := range rooms {
			if r.Type == c.Type && r.HasFacilities(c.RequiredFacilities) {
				suitable = append(suitable, r)
			}
		}
		if len(suitable) == 0 {
			issues = append(issues, CourseIssue{
				CourseID: c.ID,
				Message:  "no room of type " + c.Type + " covers the required facilities",
			})
		}

		maxCap := 0
		for _, r := range suitable {
			if r.Capacity > maxCap {
				maxCap = r.Capacity
			}
		}
		sections := 1
		if g, ok := groups[c.GroupID]; ok && maxCap > 0 {
			sections = int(math.Ceil(float64(g.StudentCount) / float64(maxCap)))
			if sections < 1 {
				sections = 1
			}
		}
		requiredByType[c.Type] += c.DurationMin * sections
	}

	var roomTypes []RoomTypeReport
	seen := make(map[string]bool)
	for _, r := range rooms {
		if seen[r.Type] {
			continue
		}
		seen[r.Type] = true
		avail := availableByType[r.Type]
		req := requiredByType[r.Type]
		roomTypes = append(roomTypes, RoomTypeReport{
			RoomType:         r.Type,
			AvailableMinutes: avail,
			RequiredMinutes:  req,
			DeficitMinutes:   req - avail,
		})
	}
	sort.Slice(roomTypes, func(i, j int) bool { return roomTypes[i].RoomType < roomTypes[j].RoomType })

	instrMinutes := make(map[string]int)
	for _, c := range courses {
		instrMinutes[c.InstructorID] += c.DurationMin
	}
	var instrReports []InstructorReport
	for _, in := range instructors {
		required := instrMinutes[in.ID]
		capacity := in.MaxWeeklyMinutes
		instrReports = append(instrReports, InstructorReport{
			InstructorID:    in.ID,
			RequiredMinutes: required,
			CapacityMinutes: capacity,
			Overloaded:      capacity > 0 && required > capacity,
		})
	}
	sort.Slice(instrReports, func(i, j int) bool { return instrReports[i].InstructorID < instrReports[j].InstructorID })

	groupMinutes := make(map[string]int)
	for _, c := range courses {
		groupMinutes[c.GroupID] += c.DurationMin
	}
	weekCapacity := totalDays * dayMinutes
	var groupReports []GroupReport
	for id, minutes := range groupMinutes {
		groupReports = append(groupReports, GroupReport{
			GroupID:         id,
			RequiredMinutes: minutes,
			CapacityMinutes: weekCapacity,
			Overloaded:      minutes > weekCapacity,
		})
	}
	sort.Slice(groupReports, func(i, j int) bool { return groupReports[i].GroupID < groupReports[j].GroupID })

	report := Report{
		RoomTypes:    roomTypes,
		Instructors:  instrReports,
		Groups:       groupReports,
		CourseIssues: issues,
	}
	report.Suggestions = suggestions(report)
	return report
}

// suggestions orders the likeliest fixes first: missing rooms for a course
// type are the hardest blocker, then room-type capacity deficits, then
// instructor and group overload.
func suggestions(r Report) []string {
	var out []string
	for _, issue := range r.CourseIssues {
		out = append(out, fmt.Sprintf("add a room of the required type/facilities for course %s", issue.CourseID))
	}
	for _, rt := range r.RoomTypes {
		if rt.DeficitMinutes > 0 {
			out = append(out, fmt.Sprintf("increase room-%s capacity or working days by at least %d minutes", rt.RoomType, rt.DeficitMinutes))
		}
	}
	for _, in := range r.Instructors {
		if in.Overloaded {
			out = append(out, fmt.Sprintf("raise instructor %s's weekly teaching cap or reassign some of their courses", in.InstructorID))
		}
	}
	for _, g := range r.Groups {
		if g.Overloaded {
			out = append(out, fmt.Sprintf("reduce group %s's course load or extend the working week", g.GroupID))
		}
	}
	return out
}
