package state

import (
	"io"

	"github.com/ShayCichocki/relay/internal/orchestrator"
	"github.com/ShayCichocki/relay/pkg/models"
)

// RunStore handles run history queries.
type RunStore interface {
	GetRun(id string) (*models.Run, error)
	ListRuns(limit int) ([]models.Run, error)
	ListUnitExecutions(runID string) ([]models.UnitExecution, error)
}

// Migrator handles database schema migrations.
type Migrator interface {
	// Migrate applies all pending schema migrations.
	Migrate() error
}

// Store is everything the CLI needs from the history database: recording
// runs as they happen and reading them back.
type Store interface {
	io.Closer
	Migrator
	RunStore
	orchestrator.Recorder
}

// Compile-time verification that DB implements all interfaces.
var (
	_ Store                 = (*DB)(nil)
	_ Migrator              = (*DB)(nil)
	_ RunStore              = (*DB)(nil)
	_ orchestrator.Recorder = (*DB)(nil)
)
