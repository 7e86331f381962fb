package orchestrator

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDebugLogger_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "debug.log")

	logger, err := NewDebugLogger(path)
	if err != nil {
		t.Fatalf("NewDebugLogger failed: %v", err)
	}
	logger.Log("unit %s started", "WeatherAgent")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "unit WeatherAgent started") {
		t.Errorf("log content = %q", data)
	}
}

func TestDebugLogger_NilAndNop(t *testing.T) {
	var nilLogger *DebugLogger
	nilLogger.Log("ignored")
	if err := nilLogger.Close(); err != nil {
		t.Errorf("nil Close returned %v", err)
	}

	nop := NopLogger()
	nop.Log("ignored")
	if err := nop.Close(); err != nil {
		t.Errorf("nop Close returned %v", err)
	}
}
