// Package tui renders live pipeline progress in the terminal.
//
// The view is read-only: it consumes orchestrator events and shows each
// run's units as they start, finish or fail, along with the route every
// router picked. Users can only quit with 'q' or Ctrl+C.
//
// Usage:
//
//	model := tui.NewProgress(len(areas))
//	program := tui.Watch(model, emitter.Events())
//	go program.Send(tui.LabelMsg{RunID: id, Label: "94107"})
//	_, err := program.Run()
package tui
