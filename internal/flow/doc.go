// Package flow is the composition and execution core of relay.
//
// A pipeline is an explicit graph of Units built once and run many times:
//   - Task: one invoker call that reads declared context keys and writes one output key
//   - Group: members run strictly in order, stopping at the first failure
//   - Tool: a named indirection so any unit can be offered as an action
//   - Router: asks the invoker to pick exactly one Tool, then runs it
//
// All units share a per-run Context. Units hold no per-run state, so one
// graph may serve concurrent runs as long as each run has its own Context.
//
// Example:
//
//	weather, _ := flow.NewTask(flow.TaskConfig{
//		Name:        "WeatherAgent",
//		Instruction: "Classify the weekend weather for {area}.",
//		OutputKey:   "weather_forecast",
//		Invoker:     inv,
//	})
//	root := flow.NewGroup("Root", weather, router, summarizer)
//	err := root.Execute(ctx, flow.NewContext(map[string]string{"area": "94107"}))
package flow
