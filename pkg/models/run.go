package models

import "time"

// RunStatus represents the current state of a pipeline run.
type RunStatus string

const (
	// RunStatusRunning indicates the run has started and not yet finished.
	RunStatusRunning RunStatus = "running"
	// RunStatusCompleted indicates every unit on the executed path succeeded.
	RunStatusCompleted RunStatus = "completed"
	// RunStatusFailed indicates a unit failed and the run stopped.
	RunStatusFailed RunStatus = "failed"
	// RunStatusCancelled indicates the run was cancelled before it finished.
	RunStatusCancelled RunStatus = "cancelled"
)

// Valid returns true if the status is a known value.
func (s RunStatus) Valid() bool {
	switch s {
	case RunStatusRunning, RunStatusCompleted, RunStatusFailed, RunStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal returns true if the run can no longer change state.
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed || s == RunStatusCancelled
}

// UnitStatus represents the outcome of one unit within a run.
type UnitStatus string

const (
	// UnitStatusRunning indicates the unit has started.
	UnitStatusRunning UnitStatus = "running"
	// UnitStatusCompleted indicates the unit succeeded.
	UnitStatusCompleted UnitStatus = "completed"
	// UnitStatusFailed indicates the unit failed.
	UnitStatusFailed UnitStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s UnitStatus) Valid() bool {
	switch s {
	case UnitStatusRunning, UnitStatusCompleted, UnitStatusFailed:
		return true
	default:
		return false
	}
}

// Run is one end-to-end execution of a pipeline.
type Run struct {
	// ID is the unique identifier for this run.
	ID string `json:"id"`
	// Root is the name of the pipeline's root unit.
	Root string `json:"root"`
	// Status is the current state of the run.
	Status RunStatus `json:"status"`
	// Inputs are the caller-supplied seed values.
	Inputs map[string]string `json:"inputs,omitempty"`
	// Answer is the value of the terminal key on success.
	Answer string `json:"answer,omitempty"`
	// FailedUnit names the unit that failed, if any.
	FailedUnit string `json:"failed_unit,omitempty"`
	// ErrorKind is the failure category, e.g. "missing input".
	ErrorKind string `json:"error_kind,omitempty"`
	// Error is the full error message.
	Error string `json:"error,omitempty"`
	// Snapshot is the final context state of a successful run.
	Snapshot map[string]string `json:"snapshot,omitempty"`
	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`
	// FinishedAt is when the run ended, if it has.
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Duration returns how long the run took, or zero if it has not finished.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// UnitExecution records one unit's execution inside a run.
type UnitExecution struct {
	// ID is assigned by the store.
	ID int64 `json:"id"`
	// RunID is the run this execution belongs to.
	RunID string `json:"run_id"`
	// Unit is the unit name.
	Unit string `json:"unit"`
	// Status is the unit's outcome.
	Status UnitStatus `json:"status"`
	// Route is the candidate chosen, for routers.
	Route string `json:"route,omitempty"`
	// Error is the failure message, if any.
	Error string `json:"error,omitempty"`
	// StartedAt is when the unit began.
	StartedAt time.Time `json:"started_at"`
	// FinishedAt is when the unit returned.
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
