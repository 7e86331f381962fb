package state

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ShayCichocki/relay/pkg/models"
)

// RecordRunStarted inserts a run row.
func (db *DB) RecordRunStarted(run *models.Run) error {
	inputs, err := encodeMap(run.Inputs)
	if err != nil {
		return fmt.Errorf("record run started: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO runs (id, root, status, inputs, started_at)
		VALUES (?, ?, ?, ?, ?)
	`, run.ID, run.Root, string(run.Status), inputs, formatTime(run.StartedAt))
	if err != nil {
		return fmt.Errorf("record run started: %w", err)
	}
	return nil
}

// RecordRunFinished stores a run's terminal state. A run that was never
// recorded as started is inserted.
func (db *DB) RecordRunFinished(run *models.Run) error {
	inputs, err := encodeMap(run.Inputs)
	if err != nil {
		return fmt.Errorf("record run finished: %w", err)
	}
	snapshot, err := encodeMap(run.Snapshot)
	if err != nil {
		return fmt.Errorf("record run finished: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO runs (id, root, status, inputs, answer, failed_unit, error_kind, error, snapshot, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			answer = excluded.answer,
			failed_unit = excluded.failed_unit,
			error_kind = excluded.error_kind,
			error = excluded.error,
			snapshot = excluded.snapshot,
			finished_at = excluded.finished_at
	`, run.ID, run.Root, string(run.Status), inputs, run.Answer, run.FailedUnit, run.ErrorKind, run.Error,
		snapshot, formatTime(run.StartedAt), formatNullableTime(run.FinishedAt))
	if err != nil {
		return fmt.Errorf("record run finished: %w", err)
	}
	return nil
}

// RecordUnit inserts a unit execution and sets its ID.
func (db *DB) RecordUnit(exec *models.UnitExecution) error {
	result, err := db.Exec(`
		INSERT INTO unit_executions (run_id, unit, status, route, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, exec.RunID, exec.Unit, string(exec.Status), exec.Route, exec.Error,
		formatTime(exec.StartedAt), formatNullableTime(exec.FinishedAt))
	if err != nil {
		return fmt.Errorf("record unit %s: %w", exec.Unit, err)
	}

	if id, err := result.LastInsertId(); err == nil {
		exec.ID = id
	}
	return nil
}

// GetRun retrieves a run by ID. Returns nil, nil if no such run exists.
func (db *DB) GetRun(id string) (*models.Run, error) {
	row := db.QueryRow(`
		SELECT id, root, status, inputs, answer, failed_unit, error_kind, error, snapshot, started_at, finished_at
		FROM runs WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first. A limit of zero or less
// returns every run.
func (db *DB) ListRuns(limit int) ([]models.Run, error) {
	query := `
		SELECT id, root, status, inputs, answer, failed_unit, error_kind, error, snapshot, started_at, finished_at
		FROM runs ORDER BY started_at DESC, rowid DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// ListUnitExecutions returns a run's unit executions in the order they finished.
func (db *DB) ListUnitExecutions(runID string) ([]models.UnitExecution, error) {
	rows, err := db.Query(`
		SELECT id, run_id, unit, status, route, error, started_at, finished_at
		FROM unit_executions WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list unit executions: %w", err)
	}
	defer rows.Close()

	var execs []models.UnitExecution
	for rows.Next() {
		var e models.UnitExecution
		var route, errMsg sql.NullString
		var startedAt string
		var finishedAt sql.NullString

		if err := rows.Scan(&e.ID, &e.RunID, &e.Unit, &e.Status, &route, &errMsg, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan unit execution: %w", err)
		}
		e.Route = route.String
		e.Error = errMsg.String
		e.StartedAt, _ = parseTime(startedAt)
		e.FinishedAt = parseNullableTime(finishedAt)
		execs = append(execs, e)
	}
	return execs, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (*models.Run, error) {
	var run models.Run
	var inputs, answer, failedUnit, errorKind, errMsg, snapshot sql.NullString
	var startedAt string
	var finishedAt sql.NullString

	err := s.Scan(&run.ID, &run.Root, &run.Status, &inputs, &answer, &failedUnit, &errorKind, &errMsg,
		&snapshot, &startedAt, &finishedAt)
	if err != nil {
		return nil, err
	}

	run.Answer = answer.String
	run.FailedUnit = failedUnit.String
	run.ErrorKind = errorKind.String
	run.Error = errMsg.String
	run.StartedAt, _ = parseTime(startedAt)
	run.FinishedAt = parseNullableTime(finishedAt)

	if run.Inputs, err = decodeMap(inputs); err != nil {
		return nil, fmt.Errorf("decode inputs: %w", err)
	}
	if run.Snapshot, err = decodeMap(snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &run, nil
}

func encodeMap(m map[string]string) (sql.NullString, error) {
	if len(m) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func decodeMap(s sql.NullString) (map[string]string, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(s.String), &m); err != nil {
		return nil, err
	}
	return m, nil
}
