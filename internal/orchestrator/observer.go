package orchestrator

import (
	"time"

	"github.com/ShayCichocki/relay/internal/flow"
	"github.com/ShayCichocki/relay/pkg/models"
)

// runObserver bridges flow notifications for one run into events, history
// records and any user-supplied observers.
type runObserver struct {
	orch   *Orchestrator
	runID  string
	starts map[string]time.Time
	routes map[string]string
}

func (o *Orchestrator) observerFor(runID string) flow.Observer {
	return &runObserver{
		orch:   o,
		runID:  runID,
		starts: make(map[string]time.Time),
		routes: make(map[string]string),
	}
}

func (r *runObserver) UnitStarted(unit string) {
	r.starts[unit] = time.Now()
	r.orch.emit(Event{Type: EventUnitStarted, RunID: r.runID, Unit: unit})
	r.orch.logger.Log("[run %s] unit %s started", r.runID, unit)

	for _, obs := range r.orch.observers {
		obs.UnitStarted(unit)
	}
}

func (r *runObserver) UnitFinished(unit string, err error) {
	now := time.Now()
	started, ok := r.starts[unit]
	if !ok {
		started = now
	}
	duration := now.Sub(started)

	exec := &models.UnitExecution{
		RunID:      r.runID,
		Unit:       unit,
		Status:     models.UnitStatusCompleted,
		Route:      r.routes[unit],
		StartedAt:  started,
		FinishedAt: &now,
	}
	event := Event{Type: EventUnitCompleted, RunID: r.runID, Unit: unit, Route: r.routes[unit], Duration: duration}
	if err != nil {
		exec.Status = models.UnitStatusFailed
		exec.Error = err.Error()
		event.Type = EventUnitFailed
		event.Err = err
	}

	r.orch.record("unit "+unit, func(rec Recorder) error { return rec.RecordUnit(exec) })
	r.orch.emit(event)
	r.orch.logger.Log("[run %s] unit %s %s in %s", r.runID, unit, exec.Status, duration.Round(time.Millisecond))

	for _, obs := range r.orch.observers {
		obs.UnitFinished(unit, err)
	}
}

func (r *runObserver) RouteChanged(router string, state flow.RouteState, route string) {
	if route != "" {
		r.routes[router] = route
	}
	r.orch.emit(Event{Type: EventRouteChanged, RunID: r.runID, Unit: router, State: state.String(), Route: route})
	r.orch.logger.Log("[run %s] router %s -> %s %s", r.runID, router, state, route)

	for _, obs := range r.orch.observers {
		obs.RouteChanged(router, state, route)
	}
}
