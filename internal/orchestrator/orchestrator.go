package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/relay/internal/flow"
	"github.com/ShayCichocki/relay/pkg/models"
)

// Orchestrator drives one root unit end-to-end per run. It is immutable after
// construction, so one Orchestrator may serve many concurrent runs.
type Orchestrator struct {
	root      flow.Unit
	logger    *DebugLogger
	recorder  Recorder
	events    *EventEmitter
	answerKey string
	observers []flow.Observer
	// outputs maps every key the graph may write to its writer.
	outputs map[string]string
}

// Result is the outcome of a successful run.
type Result struct {
	// RunID identifies the run in events and history.
	RunID string
	// Snapshot is the final context state.
	Snapshot flow.Snapshot
	// Answer is the value of the answer key, or "" if the run never wrote it.
	Answer string
	// Duration is the wall time of the run.
	Duration time.Duration
}

// RunError is returned when a run fails. It unwraps to the *flow.TaskError
// raised by the failing unit.
type RunError struct {
	RunID string
	// Unit is the name of the unit that failed.
	Unit string
	Err  error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run %s failed: %v", e.RunID, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// New creates an Orchestrator for the given root unit. The graph is
// validated before New returns.
func New(req RequiredConfig, opts ...Option) (*Orchestrator, error) {
	if req.Root == nil {
		return nil, errors.New("orchestrator: root unit is required")
	}
	if err := flow.Validate(req.Root); err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}
	outputs, err := flow.OutputKeys(req.Root)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	return &Orchestrator{
		root:      req.Root,
		logger:    o.logger,
		recorder:  o.recorder,
		events:    o.events,
		answerKey: o.answerKey,
		observers: o.observers,
		outputs:   outputs,
	}, nil
}

// Root returns the unit driven by each run.
func (o *Orchestrator) Root() flow.Unit { return o.root }

// AnswerKey returns the context key read as the run's answer.
func (o *Orchestrator) AnswerKey() string { return o.answerKey }

// Run executes the root unit against a fresh context seeded with inputs.
// On failure it returns a *RunError and no snapshot.
func (o *Orchestrator) Run(ctx context.Context, inputs map[string]string) (*Result, error) {
	return o.run(ctx, uuid.New().String(), inputs)
}

func (o *Orchestrator) run(ctx context.Context, runID string, inputs map[string]string) (*Result, error) {
	start := time.Now()
	rootName := o.root.Name()

	run := &models.Run{
		ID:        runID,
		Root:      rootName,
		Status:    models.RunStatusRunning,
		Inputs:    copyInputs(inputs),
		StartedAt: start,
	}
	o.record("run started", func(r Recorder) error { return r.RecordRunStarted(run) })
	o.emit(Event{Type: EventRunStarted, RunID: runID, Unit: rootName})
	o.logger.Log("[run %s] started root=%s inputs=%d", runID, rootName, len(inputs))

	c := flow.NewContext(inputs).
		WithObserver(o.observerFor(runID)).
		WithDebugLog(o.logger.Log)

	var err error
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = &flow.TaskError{Kind: flow.ErrCancelled, Unit: rootName, Err: ctxErr}
	} else if err = o.checkInputs(inputs); err == nil {
		err = o.root.Execute(ctx, c)
	}

	finished := time.Now()
	run.FinishedAt = &finished
	duration := finished.Sub(start)

	if err != nil {
		run.Status = models.RunStatusFailed
		if errors.Is(err, flow.ErrCancelled) {
			run.Status = models.RunStatusCancelled
		}
		run.FailedUnit = flow.FailedUnit(err)
		if kind := flow.KindOf(err); kind != nil {
			run.ErrorKind = kind.Error()
		}
		run.Error = err.Error()

		o.record("run finished", func(r Recorder) error { return r.RecordRunFinished(run) })
		o.emit(Event{Type: EventRunDone, RunID: runID, Unit: run.FailedUnit, Err: err, Duration: duration})
		o.logger.Log("[run %s] %s after %s: %v", runID, run.Status, duration.Round(time.Millisecond), err)

		return nil, &RunError{RunID: runID, Unit: run.FailedUnit, Err: err}
	}

	snap := c.Snapshot()
	answer, ok := snap.String(o.answerKey)
	if !ok {
		log.Printf("[orchestrator] warning: run %s finished without answer key %q", runID, o.answerKey)
	}

	run.Status = models.RunStatusCompleted
	run.Answer = answer
	run.Snapshot = snap.Map()

	o.record("run finished", func(r Recorder) error { return r.RecordRunFinished(run) })
	o.emit(Event{Type: EventRunDone, RunID: runID, Unit: rootName, Message: string(run.Status), Duration: duration})
	o.logger.Log("[run %s] completed in %s, %d keys", runID, duration.Round(time.Millisecond), snap.Len())

	return &Result{
		RunID:    runID,
		Snapshot: snap,
		Answer:   answer,
		Duration: duration,
	}, nil
}

// checkInputs rejects seed keys that a unit of the graph writes, so every
// output key keeps a single writer.
func (o *Orchestrator) checkInputs(inputs map[string]string) error {
	keys := make([]string, 0, len(inputs))
	for k := range inputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if writer, ok := o.outputs[k]; ok {
			return &flow.TaskError{
				Kind: flow.ErrInputConflict,
				Unit: o.root.Name(),
				Key:  k,
				Err:  fmt.Errorf("written by unit %q", writer),
			}
		}
	}
	return nil
}

// emit publishes an event if an emitter is configured.
func (o *Orchestrator) emit(event Event) {
	if o.events == nil {
		return
	}
	o.events.Emit(event)
}

// record calls fn against the recorder, logging failures.
func (o *Orchestrator) record(what string, fn func(Recorder) error) {
	if o.recorder == nil {
		return
	}
	if err := fn(o.recorder); err != nil {
		log.Printf("[orchestrator] warning: failed to record %s: %v", what, err)
	}
}

func copyInputs(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
