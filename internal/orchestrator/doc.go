// Package orchestrator runs flow pipelines end-to-end.
//
// An Orchestrator owns one root unit and, per run:
//   - seeds a fresh flow.Context with the caller's inputs
//   - executes the root unit against it
//   - returns the final snapshot and answer, or a *RunError naming the failed unit
//
// Progress is published as Events through an optional EventEmitter and
// persisted through an optional Recorder. Independent runs can be executed in
// parallel with a Pool.
//
// Example usage:
//
//	orch, err := orchestrator.New(
//		orchestrator.RequiredConfig{Root: root},
//		orchestrator.WithRecorder(db),
//		orchestrator.WithAnswerKey("final_summary"),
//	)
//	result, err := orch.Run(ctx, map[string]string{"area": "94107", "ages": "5,8"})
package orchestrator
