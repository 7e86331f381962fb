package flow_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/ShayCichocki/relay/internal/flow"
	"github.com/ShayCichocki/relay/internal/flow/flowtest"
)

// newTestRouter builds a router choosing between an indoor task and an
// outdoor group of two tasks.
func newTestRouter(t *testing.T, inv *flowtest.Invoker) *flow.Router {
	t.Helper()

	indoor := mustTask(t, flow.TaskConfig{Name: "indoor", Instruction: "indoor", OutputKey: "indoor_out", Invoker: inv})
	outdoor := flow.NewGroup("outdoor",
		mustTask(t, flow.TaskConfig{Name: "local", Instruction: "local", OutputKey: "local_out", Invoker: inv}),
		mustTask(t, flow.TaskConfig{Name: "special", Instruction: "special", OutputKey: "special_out", Invoker: inv}),
	)

	r, err := flow.NewRouter(flow.RouterConfig{
		Name:        "router",
		Instruction: "Weather: {weather}",
		OutputKey:   "route",
		Invoker:     inv,
		Candidates: []*flow.Tool{
			flow.NewTool("indoor_tool", "bad weather", indoor),
			flow.NewTool("outdoor_tool", "good weather", outdoor),
		},
	})
	if err != nil {
		t.Fatalf("NewRouter failed: %v", err)
	}
	return r
}

func TestRouter_DelegatesToSelection(t *testing.T) {
	tests := []struct {
		name     string
		choice   string
		wantKeys []string
		absent   []string
	}{
		{"indoor", "indoor_tool", []string{"indoor_out"}, []string{"local_out", "special_out"}},
		{"outdoor", "outdoor_tool", []string{"local_out", "special_out"}, []string{"indoor_out"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := flowtest.NewInvoker().Choose("router", tt.choice)
			rec := flowtest.NewRecorder()
			r := newTestRouter(t, inv)

			c := flow.NewContext(map[string]string{"weather": "mixed"}).WithObserver(rec)
			if err := r.Execute(context.Background(), c); err != nil {
				t.Fatalf("Execute failed: %v", err)
			}

			for _, k := range tt.wantKeys {
				if !c.Has(k) {
					t.Errorf("expected key %q after routing", k)
				}
			}
			for _, k := range tt.absent {
				if c.Has(k) {
					t.Errorf("key %q written by an unselected candidate", k)
				}
			}
			if v, _ := c.String("route"); v != tt.choice {
				t.Errorf("route = %q, want %q", v, tt.choice)
			}

			want := []flow.RouteState{flow.RouteNotStarted, flow.RouteDeciding, flow.RouteDelegating, flow.RouteCompleted}
			if got := rec.States("router"); !reflect.DeepEqual(got, want) {
				t.Errorf("states = %v, want %v", got, want)
			}
		})
	}
}

func TestRouter_InvalidSelections(t *testing.T) {
	tests := []struct {
		name     string
		selected []string
	}{
		{"none", nil},
		{"two", []string{"indoor_tool", "outdoor_tool"}},
		{"unknown", []string{"beach_tool"}},
		{"blank", []string{"  "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := flowtest.NewInvoker()
			if tt.selected != nil {
				inv.Choose("router", tt.selected...)
			}
			rec := flowtest.NewRecorder()
			r := newTestRouter(t, inv)

			c := flow.NewContext(map[string]string{"weather": "mixed"}).WithObserver(rec)
			err := r.Execute(context.Background(), c)
			if !errors.Is(err, flow.ErrRouting) {
				t.Fatalf("error = %v, want ErrRouting", err)
			}

			var te *flow.TaskError
			if !errors.As(err, &te) {
				t.Fatalf("expected *TaskError, got %T", err)
			}
			if !reflect.DeepEqual(te.Candidates, []string{"indoor_tool", "outdoor_tool"}) {
				t.Errorf("candidates = %v", te.Candidates)
			}
			if inv.TotalCalls() != 1 {
				t.Errorf("total calls = %d, want only the routing call", inv.TotalCalls())
			}
			if c.Has("route") {
				t.Error("route written on routing failure")
			}

			states := rec.States("router")
			if states[len(states)-1] != flow.RouteFailed {
				t.Errorf("final state = %v, want failed", states[len(states)-1])
			}
			for _, s := range states {
				if s == flow.RouteDelegating {
					t.Error("router delegated despite invalid selection")
				}
			}
		})
	}
}

func TestRouter_DuplicateSelectionCollapses(t *testing.T) {
	inv := flowtest.NewInvoker().Choose("router", "indoor_tool", "indoor_tool")
	r := newTestRouter(t, inv)

	c := flow.NewContext(map[string]string{"weather": "rain"})
	if err := r.Execute(context.Background(), c); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if inv.Calls("indoor") != 1 {
		t.Errorf("indoor calls = %d, want 1", inv.Calls("indoor"))
	}
}

func TestRouter_CandidateFailurePropagates(t *testing.T) {
	inv := flowtest.NewInvoker().
		Choose("router", "outdoor_tool").
		Fail("special", errors.New("search quota exceeded"))
	rec := flowtest.NewRecorder()
	r := newTestRouter(t, inv)

	c := flow.NewContext(map[string]string{"weather": "sunny"}).WithObserver(rec)
	err := r.Execute(context.Background(), c)
	if !errors.Is(err, flow.ErrInvokerFailed) {
		t.Fatalf("error = %v, want ErrInvokerFailed", err)
	}

	var te *flow.TaskError
	errors.As(err, &te)
	if te.Unit != "special" {
		t.Errorf("failed unit = %q, want special", te.Unit)
	}
	if !reflect.DeepEqual(te.Path, []string{"router", "outdoor"}) {
		t.Errorf("path = %v, want [router outdoor]", te.Path)
	}
	if !c.Has("local_out") {
		t.Error("partial output from the first group member should remain")
	}

	last := rec.Routes[len(rec.Routes)-1]
	if last.State != flow.RouteFailed || last.Route != "outdoor_tool" {
		t.Errorf("last route event = %+v", last)
	}
}

// cancelOnDecide cancels the run while the routing decision is in flight.
type cancelOnDecide struct {
	*flowtest.Invoker
	cancel context.CancelFunc
}

func (c *cancelOnDecide) Decide(ctx context.Context, req flow.Request, candidates []flow.Candidate) (flow.Decision, error) {
	d, err := c.Invoker.Decide(ctx, req, candidates)
	c.cancel()
	return d, err
}

func TestRouter_CancelledBeforeDelegating(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inner := flowtest.NewInvoker().Choose("router", "indoor_tool")
	inv := &cancelOnDecide{Invoker: inner, cancel: cancel}
	indoor := mustTask(t, flow.TaskConfig{Name: "indoor", Instruction: "indoor", OutputKey: "indoor_out", Invoker: inner})
	r, err := flow.NewRouter(flow.RouterConfig{
		Name:        "router",
		Instruction: "Weather: {weather}",
		OutputKey:   "route",
		Invoker:     inv,
		Candidates:  []*flow.Tool{flow.NewTool("indoor_tool", "bad weather", indoor)},
	})
	if err != nil {
		t.Fatalf("NewRouter failed: %v", err)
	}

	rec := flowtest.NewRecorder()
	c := flow.NewContext(map[string]string{"weather": "rain"}).WithObserver(rec)
	err = r.Execute(ctx, c)
	if !errors.Is(err, flow.ErrCancelled) {
		t.Fatalf("error = %v, want ErrCancelled", err)
	}
	if inner.Calls("indoor") != 0 {
		t.Errorf("indoor calls = %d, want 0", inner.Calls("indoor"))
	}
	if c.Has("indoor_out") || c.Has("route") {
		t.Error("cancelled router wrote output")
	}
	for _, s := range rec.States("router") {
		if s == flow.RouteDelegating {
			t.Error("router delegated after cancellation")
		}
	}
}

func TestRouter_MissingInput(t *testing.T) {
	inv := flowtest.NewInvoker().Choose("router", "indoor_tool")
	r := newTestRouter(t, inv)

	err := r.Execute(context.Background(), flow.NewContext(nil))
	if !errors.Is(err, flow.ErrMissingInput) {
		t.Fatalf("error = %v, want ErrMissingInput", err)
	}
	if inv.TotalCalls() != 0 {
		t.Errorf("invoker called %d times", inv.TotalCalls())
	}
}

func TestRouter_DecideUnavailable(t *testing.T) {
	inv := flowtest.NewInvoker().Fail("router", flow.ErrInvokerUnavailable)
	r := newTestRouter(t, inv)

	err := r.Execute(context.Background(), flow.NewContext(map[string]string{"weather": "x"}))
	if !errors.Is(err, flow.ErrInvokerUnavailable) {
		t.Fatalf("error = %v, want ErrInvokerUnavailable", err)
	}
	if flow.FailedUnit(err) != "router" {
		t.Errorf("FailedUnit = %q, want router", flow.FailedUnit(err))
	}
}

func TestNewRouter_Validation(t *testing.T) {
	inv := flowtest.NewInvoker()
	task := mustTask(t, flow.TaskConfig{Name: "a", Instruction: "x", OutputKey: "a_out", Invoker: inv})

	tests := []struct {
		name string
		cfg  flow.RouterConfig
	}{
		{"no name", flow.RouterConfig{Invoker: inv, Candidates: []*flow.Tool{flow.NewTool("a", "", task)}}},
		{"no invoker", flow.RouterConfig{Name: "r", Candidates: []*flow.Tool{flow.NewTool("a", "", task)}}},
		{"no candidates", flow.RouterConfig{Name: "r", Invoker: inv}},
		{"duplicate candidates", flow.RouterConfig{Name: "r", Invoker: inv, Candidates: []*flow.Tool{
			flow.NewTool("a", "", task), flow.NewTool("a", "", task),
		}}},
		{"name with space", flow.RouterConfig{Name: "r", Invoker: inv, Candidates: []*flow.Tool{flow.NewTool("home activities", "", task)}}},
		{"name with dot", flow.RouterConfig{Name: "r", Invoker: inv, Candidates: []*flow.Tool{flow.NewTool("home.activities", "", task)}}},
		{"name too long", flow.RouterConfig{Name: "r", Invoker: inv, Candidates: []*flow.Tool{flow.NewTool(strings.Repeat("a", 65), "", task)}}},
		{"nil candidate", flow.RouterConfig{Name: "r", Invoker: inv, Candidates: []*flow.Tool{nil}}},
		{"undeclared optional", flow.RouterConfig{Name: "r", Instruction: "[[x]]", Invoker: inv, Candidates: []*flow.Tool{flow.NewTool("a", "", task)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := flow.NewRouter(tt.cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}
