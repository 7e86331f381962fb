package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/relay/internal/config"
	"github.com/ShayCichocki/relay/internal/state"
	"github.com/ShayCichocki/relay/pkg/models"
)

var (
	historyLimit int
	historyPurge time.Duration
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded runs",
	Long: `List recent pipeline runs, newest first.

Use --purge to delete finished runs older than a duration, e.g. --purge 720h.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var showCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one run in detail",
	Long: `Show a recorded run: its inputs, every unit execution with the route
each router chose, and the final context snapshot.

A unique prefix of the run ID is accepted.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of runs to list")
	historyCmd.Flags().DurationVar(&historyPurge, "purge", 0, "Delete finished runs older than this duration")
}

func runHistory(cmd *cobra.Command, args []string) error {
	db, err := loadStore()
	if err != nil {
		return err
	}
	defer db.Close()

	if historyPurge > 0 {
		n, err := db.PurgeOldRuns(historyPurge)
		if err != nil {
			return err
		}
		printStatus("✓", fmt.Sprintf("Purged %d runs older than %s", n, historyPurge), color.FgGreen)
	}

	runs, err := db.ListRuns(historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded. Start one with 'relay run --area <area> --ages <ages>'.")
		return nil
	}

	for _, r := range runs {
		fmt.Printf("%s  %-10s  %s  %-8s  %s\n",
			shortRunID(r.ID),
			colorStatus(string(r.Status)),
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			formatDuration(r.Duration()),
			describeRun(&r))
	}
	return nil
}

// describeRun summarizes a run on one line.
func describeRun(r *models.Run) string {
	var parts []string
	for _, k := range sortedKeys(r.Inputs) {
		parts = append(parts, fmt.Sprintf("%s=%s", k, r.Inputs[k]))
	}
	desc := strings.Join(parts, " ")
	if r.FailedUnit != "" {
		desc += fmt.Sprintf("  [%s: %s]", r.FailedUnit, r.ErrorKind)
	}
	return desc
}

func runShow(cmd *cobra.Command, args []string) error {
	db, err := loadStore()
	if err != nil {
		return err
	}
	defer db.Close()

	run, err := findRun(db, args[0])
	if err != nil {
		return err
	}

	bold := color.New(color.Bold)
	bold.Printf("Run %s\n", run.ID)
	fmt.Printf("  Pipeline: %s\n", run.Root)
	fmt.Printf("  Status:   %s\n", colorStatus(string(run.Status)))
	fmt.Printf("  Started:  %s\n", run.StartedAt.Local().Format(time.RFC1123))
	if run.FinishedAt != nil {
		fmt.Printf("  Took:     %s\n", formatDuration(run.Duration()))
	}
	for _, k := range sortedKeys(run.Inputs) {
		fmt.Printf("  Input:    %s = %s\n", k, run.Inputs[k])
	}
	if run.Error != "" {
		fmt.Printf("  Error:    %s\n", color.RedString(run.Error))
	}

	units, err := db.ListUnitExecutions(run.ID)
	if err != nil {
		return err
	}
	if len(units) > 0 {
		fmt.Println()
		bold.Println("Units")
		for _, u := range units {
			line := fmt.Sprintf("  %-9s %s", colorStatus(string(u.Status)), u.Unit)
			if u.Route != "" {
				line += color.YellowString(" → %s", u.Route)
			}
			if u.FinishedAt != nil {
				line += fmt.Sprintf("  %s", formatDuration(u.FinishedAt.Sub(u.StartedAt)))
			}
			if u.Error != "" {
				line += "  " + color.RedString(oneLine(u.Error, 100))
			}
			fmt.Println(line)
		}
	}

	if len(run.Snapshot) > 0 {
		fmt.Println()
		bold.Println("Context")
		for _, k := range sortedKeys(run.Snapshot) {
			fmt.Printf("  %s: %s\n", k, oneLine(run.Snapshot[k], 100))
		}
	}

	if run.Answer != "" {
		fmt.Println()
		bold.Println("Answer")
		fmt.Println(run.Answer)
	}
	return nil
}

// findRun resolves an exact ID or a unique prefix among recent runs.
func findRun(db state.RunStore, id string) (*models.Run, error) {
	run, err := db.GetRun(id)
	if err != nil {
		return nil, err
	}
	if run != nil {
		return run, nil
	}

	runs, err := db.ListRuns(500)
	if err != nil {
		return nil, err
	}
	var matches []models.Run
	for _, r := range runs {
		if strings.HasPrefix(r.ID, id) {
			matches = append(matches, r)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("run %q not found", id)
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("run prefix %q is ambiguous (%d matches)", id, len(matches))
	}
}

func loadStore() (*state.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	db, err := openStore(cfg)
	if err != nil {
		return nil, errors.New("no run history yet: " + err.Error())
	}
	return db, nil
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
