// Command timetabler generates and scores university course schedules: it
// wires the Preprocessor, CP feasibility solver, simulated annealer and
// genetic optimizer together behind a cobra CLI in the same shape as the
// teacher's own "schedule" command (gen/score subcommands reading and
// writing files under a shared prefix).
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/timetabler/core/internal/domain"
	"github.com/timetabler/core/internal/evaluate"
	"github.com/timetabler/core/internal/infeasible"
	"github.com/timetabler/core/internal/ttconfig"
	"github.com/timetabler/core/internal/ttengine"
	"github.com/timetabler/core/internal/ttlog"
)

var (
	prefix     = "timetable"
	seed       = int64(0)
	workers    = runtime.NumCPU()
	verbose    = false
)

// problemFile is the on-disk shape timetabler gen reads: the raw problem
// instance plus an optional config override, in the same spirit as the
// teacher's own text-file input format but JSON, since this domain's
// entities don't reduce to a course/room/time grid the way row-per-section
// text input did.
type problemFile struct {
	Rooms       []domain.Room       `json:"rooms"`
	Instructors []domain.Instructor `json:"instructors"`
	Groups      []domain.Group      `json:"groups"`
	Courses     []domain.Course     `json:"courses"`
	Config      *ttconfig.Config    `json:"config,omitempty"`
}

// resultFile is the on-disk shape timetabler gen writes and timetabler
// score reads back, mirroring the teacher's writeJsonFile/ReadJSON pairing.
type resultFile struct {
	Schedule      domain.Schedule      `json:"schedule"`
	Penalties     evaluate.Penalties   `json:"penalties"`
	TotalCost     float64              `json:"total_cost"`
	Infeasibility *infeasible.Report   `json:"infeasibility,omitempty"`
}

func main() {
	rand.Seed(time.Now().UnixNano())
	log.SetFlags(log.Ltime)

	root := &cobra.Command{
		Use:   "timetabler",
		Short: "University course timetable generator",
		Long: "A tool to generate and score university course timetables,\n" +
			"balancing hard room/instructor/group constraints against\n" +
			"soft scheduling preferences.",
	}

	genCmd := &cobra.Command{
		Use:   "gen",
		Short: "generate and optimize a timetable from a problem file",
		Run:   commandGen,
	}
	genCmd.Flags().StringVar(&prefix, "prefix", prefix, "file name prefix (.problem.json input, .schedule.json output)")
	genCmd.Flags().Int64VarP(&seed, "seed", "s", seed, "random seed for the CP search, annealing and GA runs (the CP search is reproducible only with --workers 1)")
	genCmd.Flags().IntVarP(&workers, "workers", "w", workers, "number of concurrent CP search workers")
	genCmd.Flags().BoolVarP(&verbose, "verbose", "v", verbose, "enable debug-level logging")
	root.AddCommand(genCmd)

	scoreCmd := &cobra.Command{
		Use:   "score",
		Short: "print the soft-constraint score of an already-generated schedule",
		Run:   commandScore,
	}
	scoreCmd.Flags().StringVar(&prefix, "prefix", prefix, "file name prefix (.schedule.json to score)")
	root.AddCommand(scoreCmd)

	if err := root.Execute(); err != nil {
		log.Fatalf("%v", err)
	}
}

func commandGen(cmd *cobra.Command, args []string) {
	if len(args) > 0 {
		log.Fatalf("unknown option: %v", args)
	}
	if workers < 1 {
		log.Fatalf("workers must be >= 1")
	}

	problem := readProblem(prefix + ".problem.json")

	level := ttlog.LevelInfo
	if verbose {
		level = ttlog.LevelDebug
	}
	logger := ttlog.New(level)
	defer logger.Sync()

	cfg := ttconfig.Default()
	if problem.Config != nil {
		cfg = *problem.Config
	}
	cfg.SolverWorkers = workers

	engine := ttengine.New(logger)
	out, err := engine.Run(ttengine.Input{
		Rooms:       problem.Rooms,
		Instructors: problem.Instructors,
		Groups:      problem.Groups,
		Courses:     problem.Courses,
		Config:      cfg,
	}, seed)
	if err != nil {
		log.Fatalf("%v", err)
	}

	for _, d := range out.Diagnostics {
		logger.Warnw("diagnostic", "kind", d.Kind.String(), "message", d.Message, "course", d.CourseID)
	}

	if out.Infeasibility != nil {
		logger.Errorw("no feasible timetable found", "course_issues", len(out.Infeasibility.CourseIssues))
		for _, s := range out.Infeasibility.Suggestions {
			fmt.Println("suggestion:", s)
		}
		writeResult(prefix+".schedule.json", resultFile{Infeasibility: out.Infeasibility})
		os.Exit(1)
	}

	logger.Infow("timetable generated", "total_cost", out.TotalCost, "assignments", out.Schedule.Len())
	writeResult(prefix+".schedule.json", resultFile{
		Schedule:  out.Schedule,
		Penalties: out.Penalties,
		TotalCost: out.TotalCost,
	})
}

func commandScore(cmd *cobra.Command, args []string) {
	if len(args) > 0 {
		log.Fatalf("unknown option: %v", args)
	}
	fp, err := os.Open(prefix + ".schedule.json")
	if err != nil {
		log.Fatalf("opening %s: %v", prefix+".schedule.json", err)
	}
	defer fp.Close()

	var res resultFile
	if err := json.NewDecoder(fp).Decode(&res); err != nil {
		log.Fatalf("reading %s: %v", prefix+".schedule.json", err)
	}
	if res.Infeasibility != nil {
		fmt.Println("schedule is an infeasibility report, not a timetable")
		for _, s := range res.Infeasibility.Suggestions {
			fmt.Println("suggestion:", s)
		}
		return
	}

	fmt.Printf("total cost: %.2f\n", res.TotalCost)
	fmt.Printf("room conflicts:        %.0f\n", res.Penalties.RoomConflict)
	fmt.Printf("instructor conflicts:  %.0f\n", res.Penalties.InstructorConflict)
	fmt.Printf("group conflicts:       %.0f\n", res.Penalties.GroupConflict)
	fmt.Printf("facility mismatches:   %.0f\n", res.Penalties.FacilityMismatch)
	fmt.Printf("time preference misses:%.0f\n", res.Penalties.TimePreference)
	fmt.Printf("gap minutes:           %.0f\n", res.Penalties.MinimizeGaps)
	for _, a := range res.Schedule.Assignments {
		fmt.Printf("%-12s room=%-8s instr=%-8s %s\n", a.CourseID, a.RoomID, a.InstructorID, a.Slot)
	}
}

func readProblem(path string) problemFile {
	fp, err := os.Open(path)
	if err != nil {
		log.Fatalf("opening %s: %v", path, err)
	}
	defer fp.Close()
	var p problemFile
	if err := json.NewDecoder(fp).Decode(&p); err != nil {
		log.Fatalf("parsing %s: %v", path, err)
	}
	return p
}

// writeResult writes to a temp file and renames it into place, the same
// write-then-rename pattern the teacher's writeJsonFile uses to avoid
// leaving a half-written schedule file behind on a crash.
func writeResult(path string, res resultFile) {
	tmp := path + ".tmp"
	fp, err := os.Create(tmp)
	if err != nil {
		log.Fatalf("creating %s: %v", tmp, err)
	}
	enc := json.NewEncoder(fp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		log.Fatalf("writing %s: %v", tmp, err)
	}
	if err := fp.Close(); err != nil {
		log.Fatalf("closing %s: %v", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		log.Fatalf("renaming %s to %s: %v", tmp, path, err)
	}
}
