package flow_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/ShayCichocki/relay/internal/flow"
	"github.com/ShayCichocki/relay/internal/flow/flowtest"
)

func TestGroup_RunsInOrder(t *testing.T) {
	inv := flowtest.NewInvoker().
		Respond("a", "A").
		RespondFunc("b", func(req flow.Request) (string, error) { return req.Inputs["a_out"] + "B", nil })

	g := flow.NewGroup("g",
		mustTask(t, flow.TaskConfig{Name: "a", Instruction: "first", OutputKey: "a_out", Invoker: inv}),
		mustTask(t, flow.TaskConfig{Name: "b", Instruction: "second {a_out}", OutputKey: "b_out", Invoker: inv}),
	)

	c := flow.NewContext(nil)
	if err := g.Execute(context.Background(), c); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if v, _ := c.String("b_out"); v != "AB" {
		t.Errorf("b_out = %q, want AB", v)
	}

	var units []string
	for _, r := range inv.Requests() {
		units = append(units, r.Unit)
	}
	if !reflect.DeepEqual(units, []string{"a", "b"}) {
		t.Errorf("call order = %v, want [a b]", units)
	}
}

func TestGroup_FailFast(t *testing.T) {
	inv := flowtest.NewInvoker().Fail("b", errors.New("boom"))

	g := flow.NewGroup("outer",
		mustTask(t, flow.TaskConfig{Name: "a", Instruction: "x", OutputKey: "a_out", Invoker: inv}),
		flow.NewGroup("inner",
			mustTask(t, flow.TaskConfig{Name: "b", Instruction: "x", OutputKey: "b_out", Invoker: inv}),
		),
		mustTask(t, flow.TaskConfig{Name: "c", Instruction: "x", OutputKey: "c_out", Invoker: inv}),
	)

	c := flow.NewContext(nil)
	err := g.Execute(context.Background(), c)
	if !errors.Is(err, flow.ErrInvokerFailed) {
		t.Fatalf("error = %v, want ErrInvokerFailed", err)
	}

	var te *flow.TaskError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TaskError, got %T", err)
	}
	if te.Unit != "b" {
		t.Errorf("failed unit = %q, want b", te.Unit)
	}
	if !reflect.DeepEqual(te.Path, []string{"outer", "inner"}) {
		t.Errorf("path = %v, want [outer inner]", te.Path)
	}

	if inv.Calls("c") != 0 {
		t.Error("member after the failure ran")
	}
	if !c.Has("a_out") {
		t.Error("output of earlier member should remain visible")
	}
	if c.Has("c_out") {
		t.Error("later member wrote output")
	}
}

func TestGroup_Empty(t *testing.T) {
	c := flow.NewContext(map[string]string{"k": "v"})
	if err := flow.NewGroup("empty").Execute(context.Background(), c); err != nil {
		t.Fatalf("empty group failed: %v", err)
	}
	if c.Len() != 1 {
		t.Errorf("empty group changed context: %v", c.Keys())
	}
}

func TestGroup_CancelledBetweenMembers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	inv := flowtest.NewInvoker().RespondFunc("a", func(flow.Request) (string, error) {
		cancel()
		return "A", nil
	})

	g := flow.NewGroup("g",
		mustTask(t, flow.TaskConfig{Name: "a", Instruction: "x", OutputKey: "a_out", Invoker: inv}),
		mustTask(t, flow.TaskConfig{Name: "b", Instruction: "x", OutputKey: "b_out", Invoker: inv}),
	)

	err := g.Execute(ctx, flow.NewContext(nil))
	if !errors.Is(err, flow.ErrCancelled) {
		t.Fatalf("error = %v, want ErrCancelled", err)
	}
	if flow.FailedUnit(err) != "b" {
		t.Errorf("FailedUnit = %q, want b", flow.FailedUnit(err))
	}
	if inv.Calls("b") != 0 {
		t.Error("member ran after cancellation")
	}
}

func TestGroup_String(t *testing.T) {
	inv := flowtest.NewInvoker()
	g := flow.NewGroup("g",
		mustTask(t, flow.TaskConfig{Name: "a", Instruction: "x", OutputKey: "a_out", Invoker: inv}),
		mustTask(t, flow.TaskConfig{Name: "b", Instruction: "x", OutputKey: "b_out", Invoker: inv}),
	)
	if g.String() != "g[a b]" {
		t.Errorf("String() = %q", g.String())
	}
}
