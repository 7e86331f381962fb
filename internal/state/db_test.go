package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ShayCichocki/relay/pkg/models"
)

// tempDBPath returns a path to a temp database file.
func tempDBPath(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "test.db")
}

// setupTestDB creates a new temporary database for testing.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(tempDBPath(t))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func TestOpen(t *testing.T) {
	path := tempDBPath(t)
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}
	if db.Driver() != DefaultDriver {
		t.Errorf("Driver() = %q, want %q", db.Driver(), DefaultDriver)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("database file does not exist at %s", path)
	}
}

func TestOpen_CreatesParentDirectories(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b", "c")

	db, err := Open(filepath.Join(nested, "test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(nested); os.IsNotExist(err) {
		t.Errorf("parent directories not created: %s", nested)
	}
}

func TestOpenWithDriver_Unsupported(t *testing.T) {
	if _, err := OpenWithDriver("postgres", tempDBPath(t)); err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestOpenWithDriver_CGO(t *testing.T) {
	db, err := OpenWithDriver(DriverCGO, tempDBPath(t))
	if err != nil {
		// go-sqlite3 reports an error at first use when built without cgo.
		t.Skipf("cgo sqlite driver unavailable: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	run := &models.Run{ID: "cgo-run", Root: "root", Status: models.RunStatusRunning, StartedAt: time.Now()}
	if err := db.RecordRunStarted(run); err != nil {
		t.Fatalf("RecordRunStarted failed: %v", err)
	}
	got, err := db.GetRun("cgo-run")
	if err != nil || got == nil {
		t.Fatalf("GetRun = %v, %v", got, err)
	}
}

func TestClose(t *testing.T) {
	db, err := Open(tempDBPath(t))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if err := db.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}

	if _, err := db.Query("SELECT 1"); err == nil {
		t.Error("expected error after close, got nil")
	}
}

func TestMigrate(t *testing.T) {
	db := setupTestDB(t)

	for _, table := range []string{"schema_version", "runs", "unit_executions"} {
		var count int
		row := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table)
		if err := row.Scan(&count); err != nil {
			t.Errorf("failed to check table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("table %s does not exist", table)
		}
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db, err := Open(tempDBPath(t))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	for i := 0; i < 3; i++ {
		if err := db.Migrate(); err != nil {
			t.Fatalf("Migrate (iteration %d) failed: %v", i, err)
		}
	}

	var version int
	if err := db.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&version); err != nil {
		t.Fatalf("failed to get schema version: %v", err)
	}
	if version != 2 {
		t.Errorf("schema version = %d, want 2", version)
	}
}

func TestFormatParseTime(t *testing.T) {
	now := time.Date(2025, 6, 7, 9, 30, 0, 0, time.UTC)

	got, err := parseTime(formatTime(now))
	if err != nil {
		t.Fatalf("parseTime failed: %v", err)
	}
	if !got.Equal(now) {
		t.Errorf("round trip = %v, want %v", got, now)
	}

	if formatNullableTime(nil).Valid {
		t.Error("nil time should format as NULL")
	}
}

func TestGlobalDBPath_UsesXDG(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")
	if got := GlobalDBPath(); got != "/tmp/xdg-data/relay/relay.db" {
		t.Errorf("GlobalDBPath() = %q", got)
	}
}
