package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// StopSignalFile is the file name that requests a stop when created in the
// signals directory.
const StopSignalFile = "stop"

// WatchStopSignal returns a context that is cancelled when a file named
// "stop" is created or written in <dir>/signals. The directory is created if
// needed. Call the returned cancel func to release the watcher. logger may be
// nil.
func WatchStopSignal(ctx context.Context, dir string, logger *DebugLogger) (context.Context, context.CancelFunc, error) {
	signalsDir := filepath.Join(dir, "signals")
	if err := os.MkdirAll(signalsDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("create signals directory: %w", err)
	}

	// A stale signal from an earlier invocation must not stop this one.
	stopPath := filepath.Join(signalsDir, StopSignalFile)
	if err := os.Remove(stopPath); err != nil && !os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("clear stop signal: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(signalsDir); err != nil {
		watcher.Close()
		return nil, nil, fmt.Errorf("watch %s: %w", signalsDir, err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-watchCtx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != StopSignalFile {
					continue
				}
				if event.Op&fsnotify.Create != 0 || event.Op&fsnotify.Write != 0 {
					logger.Log("[signal] stop requested via %s", event.Name)
					cancel()
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Log("[signal] watcher error: %v", err)
			}
		}
	}()

	return watchCtx, cancel, nil
}

// RequestStop creates the stop signal file under dir, stopping any run
// watching it.
func RequestStop(dir string) error {
	signalsDir := filepath.Join(dir, "signals")
	if err := os.MkdirAll(signalsDir, 0755); err != nil {
		return fmt.Errorf("create signals directory: %w", err)
	}
	return os.WriteFile(filepath.Join(signalsDir, StopSignalFile), []byte("stop\n"), 0644)
}
