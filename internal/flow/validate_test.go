package flow_test

import (
	"testing"

	"github.com/ShayCichocki/relay/internal/flow"
	"github.com/ShayCichocki/relay/internal/flow/flowtest"
)

func TestValidate(t *testing.T) {
	inv := flowtest.NewInvoker()
	task := func(name, out string) *flow.Task {
		return mustTask(t, flow.TaskConfig{Name: name, Instruction: "x", OutputKey: out, Invoker: inv})
	}
	router := func(name, out string, tools ...*flow.Tool) *flow.Router {
		r, err := flow.NewRouter(flow.RouterConfig{Name: name, Instruction: "x", OutputKey: out, Invoker: inv, Candidates: tools})
		if err != nil {
			t.Fatalf("NewRouter failed: %v", err)
		}
		return r
	}

	tests := []struct {
		name    string
		root    flow.Unit
		wantErr bool
	}{
		{
			name: "disjoint outputs",
			root: flow.NewGroup("g", task("a", "x"), task("b", "y")),
		},
		{
			name:    "shared output in group",
			root:    flow.NewGroup("g", task("a", "x"), task("b", "x")),
			wantErr: true,
		},
		{
			name:    "duplicate names",
			root:    flow.NewGroup("g", task("a", "x"), task("a", "y")),
			wantErr: true,
		},
		{
			name: "router alternatives may share keys",
			root: flow.NewGroup("g",
				router("r", "", flow.NewTool("one", "", task("a", "x")), flow.NewTool("two", "", task("b", "x"))),
			),
		},
		{
			name: "router output collides with sibling",
			root: flow.NewGroup("g",
				task("a", "route"),
				router("r", "route", flow.NewTool("one", "", task("b", "x"))),
			),
			wantErr: true,
		},
		{
			name:    "nil root",
			root:    nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := flow.Validate(tt.root)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOutputKeys(t *testing.T) {
	inv := flowtest.NewInvoker()
	a := mustTask(t, flow.TaskConfig{Name: "a", Instruction: "x", OutputKey: "a_out", Invoker: inv})
	b := mustTask(t, flow.TaskConfig{Name: "b", Instruction: "x", OutputKey: "b_out", Invoker: inv})
	r, err := flow.NewRouter(flow.RouterConfig{Name: "r", Invoker: inv, Candidates: []*flow.Tool{flow.NewTool("b_tool", "", b)}})
	if err != nil {
		t.Fatalf("NewRouter failed: %v", err)
	}

	keys, err := flow.OutputKeys(flow.NewGroup("root", a, r))
	if err != nil {
		t.Fatalf("OutputKeys failed: %v", err)
	}
	if keys["a_out"] != "a" || keys["b_out"] != "b" || len(keys) != 2 {
		t.Errorf("OutputKeys = %v", keys)
	}
}
