// Package flowtest provides a scripted Invoker for exercising pipelines
// without a model behind them.
package flowtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/ShayCichocki/relay/internal/flow"
)

// Invoker returns canned responses per unit and records every call.
// It is safe for concurrent use.
type Invoker struct {
	mu        sync.Mutex
	outputs   map[string]string
	funcs     map[string]func(flow.Request) (string, error)
	errs      map[string]error
	decisions map[string]flow.Decision
	calls     []flow.Request
	counts    map[string]int
}

// NewInvoker creates an empty scripted invoker. Units without a script
// produce "<unit> output".
func NewInvoker() *Invoker {
	return &Invoker{
		outputs:   make(map[string]string),
		funcs:     make(map[string]func(flow.Request) (string, error)),
		errs:      make(map[string]error),
		decisions: make(map[string]flow.Decision),
		counts:    make(map[string]int),
	}
}

// Respond scripts the text returned for unit.
func (i *Invoker) Respond(unit, output string) *Invoker {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.outputs[unit] = output
	return i
}

// RespondFunc scripts a function computing the output for unit.
func (i *Invoker) RespondFunc(unit string, fn func(flow.Request) (string, error)) *Invoker {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.funcs[unit] = fn
	return i
}

// Fail scripts an error for unit.
func (i *Invoker) Fail(unit string, err error) *Invoker {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.errs[unit] = err
	return i
}

// Choose scripts the routing decision returned for router.
func (i *Invoker) Choose(router string, selected ...string) *Invoker {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.decisions[router] = flow.Decision{Selected: selected, Raw: fmt.Sprintf("%v", selected)}
	return i
}

// Invoke implements flow.Invoker.
func (i *Invoker) Invoke(ctx context.Context, req flow.Request) (string, error) {
	i.mu.Lock()
	i.calls = append(i.calls, req)
	i.counts[req.Unit]++
	err := i.errs[req.Unit]
	fn := i.funcs[req.Unit]
	out, ok := i.outputs[req.Unit]
	i.mu.Unlock()

	if err != nil {
		return "", err
	}
	if fn != nil {
		return fn(req)
	}
	if !ok {
		out = req.Unit + " output"
	}
	return out, nil
}

// Decide implements flow.Invoker.
func (i *Invoker) Decide(ctx context.Context, req flow.Request, candidates []flow.Candidate) (flow.Decision, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.calls = append(i.calls, req)
	i.counts[req.Unit]++

	if err := i.errs[req.Unit]; err != nil {
		return flow.Decision{}, err
	}
	if d, ok := i.decisions[req.Unit]; ok {
		return d, nil
	}
	return flow.Decision{Raw: "no decision scripted"}, nil
}

// Calls returns how many times unit called the invoker.
func (i *Invoker) Calls(unit string) int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.counts[unit]
}

// TotalCalls returns the number of invoker calls across all units.
func (i *Invoker) TotalCalls() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.calls)
}

// Requests returns a copy of every request seen, in call order.
func (i *Invoker) Requests() []flow.Request {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]flow.Request(nil), i.calls...)
}

// LastRequest returns the most recent request made by unit.
func (i *Invoker) LastRequest(unit string) (flow.Request, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	for j := len(i.calls) - 1; j >= 0; j-- {
		if i.calls[j].Unit == unit {
			return i.calls[j], true
		}
	}
	return flow.Request{}, false
}

// Compile-time verification that Invoker implements flow.Invoker.
var _ flow.Invoker = (*Invoker)(nil)

// Recorder is an Observer that records notifications for assertions.
type Recorder struct {
	mu      sync.Mutex
	Started []string
	// Finished maps unit name to the error it finished with.
	Finished map[string]error
	Order    []string
	Routes   []RouteEvent
}

// RouteEvent is one recorded router transition.
type RouteEvent struct {
	Router string
	State  flow.RouteState
	Route  string
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{Finished: make(map[string]error)}
}

func (r *Recorder) UnitStarted(unit string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Started = append(r.Started, unit)
}

func (r *Recorder) UnitFinished(unit string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Finished[unit] = err
	r.Order = append(r.Order, unit)
}

func (r *Recorder) RouteChanged(router string, state flow.RouteState, route string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Routes = append(r.Routes, RouteEvent{Router: router, State: state, Route: route})
}

// States returns the recorded transitions for router.
func (r *Recorder) States(router string) []flow.RouteState {
	r.mu.Lock()
	defer r.mu.Unlock()
	var states []flow.RouteState
	for _, e := range r.Routes {
		if e.Router == router {
			states = append(states, e.State)
		}
	}
	return states
}

var _ flow.Observer = (*Recorder)(nil)
