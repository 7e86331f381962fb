package orchestrator

import (
	"github.com/ShayCichocki/relay/pkg/models"
)

// Recorder persists run history. Recording failures are logged and never
// fail the run.
type Recorder interface {
	// RecordRunStarted stores a run in the running state.
	RecordRunStarted(run *models.Run) error
	// RecordRunFinished updates a run with its terminal state.
	RecordRunFinished(run *models.Run) error
	// RecordUnit stores one finished unit execution.
	RecordUnit(exec *models.UnitExecution) error
}
