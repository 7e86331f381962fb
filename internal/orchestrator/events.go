package orchestrator

import (
	"time"
)

// EventType represents the type of run event.
type EventType string

const (
	// EventRunStarted indicates a run has begun.
	EventRunStarted EventType = "run_started"
	// EventUnitStarted indicates a unit has started executing.
	EventUnitStarted EventType = "unit_started"
	// EventUnitCompleted indicates a unit returned successfully.
	EventUnitCompleted EventType = "unit_completed"
	// EventUnitFailed indicates a unit returned an error.
	EventUnitFailed EventType = "unit_failed"
	// EventRouteChanged indicates a router moved to a new state.
	EventRouteChanged EventType = "route_changed"
	// EventRunDone indicates the run has finished, successfully or not.
	EventRunDone EventType = "run_done"
)

// Event is emitted while a run progresses. Subscribers such as the TUI
// use it to render live status.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// RunID is the run the event belongs to.
	RunID string
	// Unit is the related unit name, if applicable.
	Unit string
	// State is the router state for route_changed events.
	State string
	// Route is the chosen candidate for route_changed events, once known.
	Route string
	// Message provides additional context about the event.
	Message string
	// Err contains error details for failure events.
	Err error
	// Timestamp is when the event occurred.
	Timestamp time.Time
	// Duration is the elapsed time for unit_completed, unit_failed and run_done.
	Duration time.Duration
}
