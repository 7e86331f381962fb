package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/relay/internal/api"
	"github.com/ShayCichocki/relay/internal/config"
	"github.com/ShayCichocki/relay/internal/flow"
	"github.com/ShayCichocki/relay/internal/orchestrator"
	"github.com/ShayCichocki/relay/internal/planner"
	"github.com/ShayCichocki/relay/internal/tui"
)

var (
	runAreas   []string
	runAges    string
	runTUI     bool
	runPrompts string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Plan a family weekend for one or more areas",
	Long: `Run the weekend planner pipeline.

Each --area starts an independent run; several areas run in parallel up to
pipeline.max_parallel. The final summary of each run is printed when it
finishes.

Stop a run gracefully with Ctrl+C, or from another terminal with
'relay stop'.

Examples:
  relay run --area 94107 --ages 5,8
  relay run --area 94107 --area 10001 --ages 3 --tui`,
	RunE: runPlanner,
}

func init() {
	runCmd.Flags().StringArrayVar(&runAreas, "area", nil, "Area to plan for, e.g. a zip code (repeatable)")
	runCmd.Flags().StringVar(&runAges, "ages", "", "Comma separated ages of the kids")
	runCmd.Flags().BoolVar(&runTUI, "tui", false, "Show live progress")
	runCmd.Flags().StringVar(&runPrompts, "prompts", "", "YAML file overriding the built-in prompts")
	_ = runCmd.MarkFlagRequired("area")
	_ = runCmd.MarkFlagRequired("ages")
}

func runPlanner(cmd *cobra.Command, args []string) error {
	areas := normalizeAreas(runAreas)
	if len(areas) == 0 {
		return errors.New("at least one --area is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	promptsFile := cfg.Pipeline.PromptsFile
	if runPrompts != "" {
		promptsFile = runPrompts
	}
	prompts, err := planner.LoadPrompts(promptsFile)
	if err != nil {
		return err
	}

	inv, client, err := newInvoker(cfg)
	if err != nil {
		return err
	}
	root, err := planner.Build(inv, prompts)
	if err != nil {
		return err
	}

	stateDir := config.StateDir()
	logger := newLogger(cfg, stateDir)
	defer logger.Close()

	opts := []orchestrator.Option{
		orchestrator.WithLogger(logger),
		orchestrator.WithAnswerKey(cfg.Pipeline.AnswerKey),
	}

	store, err := openStore(cfg)
	if err != nil {
		log.Printf("[relay] warning: run history disabled: %v", err)
	} else {
		defer store.Close()
		opts = append(opts, orchestrator.WithRecorder(store))
	}

	var emitter *orchestrator.EventEmitter
	if runTUI {
		emitter = orchestrator.NewEventEmitter(256)
		opts = append(opts, orchestrator.WithEvents(emitter))
	}

	orch, err := orchestrator.New(orchestrator.RequiredConfig{Root: root}, opts...)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\nReceived interrupt, stopping...")
			cancel()
		case <-ctx.Done():
		}
	}()

	if stopCtx, stopCancel, err := orchestrator.WatchStopSignal(ctx, stateDir, logger); err != nil {
		log.Printf("[relay] warning: stop signal unavailable: %v", err)
	} else {
		defer stopCancel()
		ctx = stopCtx
	}

	pool := orchestrator.NewPool(orch, cfg.Pipeline.MaxParallel)
	labels := make(map[string]string, len(areas))
	order := make([]string, 0, len(areas))
	for _, area := range areas {
		id := pool.Submit(ctx, planner.Inputs(area, runAges))
		labels[id] = area
		order = append(order, id)
	}

	if runTUI {
		if err := watchProgress(emitter, labels, len(areas), client); err != nil {
			log.Printf("[relay] warning: progress view failed: %v", err)
		}
		if pool.Count() > 0 {
			// The view was closed early.
			cancel()
		}
	}

	outcomes := pool.Wait()
	if emitter != nil {
		emitter.Close()
	}

	return reportOutcomes(orderOutcomes(outcomes, order), labels, client)
}

// watchProgress runs the progress view until every run finishes or the user
// quits. Standard logging is muted while the view owns the terminal.
func watchProgress(emitter *orchestrator.EventEmitter, labels map[string]string, expected int, client *api.Client) error {
	originalOutput := log.Writer()
	log.SetOutput(io.Discard)
	defer log.SetOutput(originalOutput)

	model := tui.NewProgress(expected)
	program := tui.Watch(model, emitter.Events())
	done := make(chan struct{})
	go func() {
		for id, label := range labels {
			program.Send(tui.LabelMsg{RunID: id, Label: label})
		}
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				in, out := client.Tracker().Total()
				program.Send(tui.UsageMsg{InputTokens: in, OutputTokens: out, Cost: client.Tracker().Cost()})
			}
		}
	}()

	_, err := program.Run()
	close(done)
	return err
}

func orderOutcomes(outcomes []orchestrator.Outcome, order []string) []orchestrator.Outcome {
	byID := make(map[string]orchestrator.Outcome, len(outcomes))
	for _, o := range outcomes {
		byID[o.RunID] = o
	}
	sorted := make([]orchestrator.Outcome, 0, len(outcomes))
	for _, id := range order {
		if o, ok := byID[id]; ok {
			sorted = append(sorted, o)
		}
	}
	return sorted
}

func reportOutcomes(outcomes []orchestrator.Outcome, labels map[string]string, client *api.Client) error {
	failed := 0
	for _, o := range outcomes {
		header := color.New(color.Bold).Sprintf("== %s", labels[o.RunID])
		fmt.Printf("%s  (run %s)\n", header, o.RunID)

		if o.Err != nil {
			failed++
			printRunError(o.Err)
			fmt.Println()
			continue
		}

		if o.Result.Answer == "" {
			printStatus("⚠", "run finished without a summary", color.FgYellow)
		} else {
			fmt.Println(o.Result.Answer)
		}
		if route, ok := o.Result.Snapshot.String(planner.KeyRoute); ok {
			fmt.Printf("\nroute: %s  weather: %s  took %s\n",
				route, oneLine(snapshotValue(o.Result.Snapshot, planner.KeyWeather), 40), formatDuration(o.Result.Duration))
		}
		fmt.Println()
	}

	in, out := client.Tracker().Total()
	fmt.Printf("Tokens: %d in / %d out, %d searches, ~$%.4f\n",
		in, out, client.Tracker().Searches(), client.Tracker().Cost())

	if failed > 0 {
		return fmt.Errorf("%d of %d runs failed", failed, len(outcomes))
	}
	return nil
}

func printRunError(err error) {
	var te *flow.TaskError
	if errors.As(err, &te) {
		printStatus("✗", fmt.Sprintf("%s failed: %v", te.Unit, te.Kind), statusColorForKind(te.Kind))
		if te.Err != nil {
			fmt.Printf("  cause: %v\n", te.Err)
		}
		if len(te.Path) > 0 {
			fmt.Printf("  path: %v\n", te.Path)
		}
		return
	}
	printStatus("✗", err.Error(), color.FgRed)
}

func statusColorForKind(kind error) color.Attribute {
	if errors.Is(kind, flow.ErrCancelled) {
		return color.FgYellow
	}
	return color.FgRed
}

func snapshotValue(s flow.Snapshot, key string) string {
	v, _ := s.String(key)
	return v
}
