package flow

import (
	"context"
	"errors"
)

// Tool presents a unit under a stable name so a router can select and invoke
// it like a primitive action. It adds no behaviour of its own.
type Tool struct {
	name        string
	description string
	unit        Unit
}

// NewTool wraps unit as a named tool.
func NewTool(name, description string, unit Unit) *Tool {
	return &Tool{name: name, description: description, unit: unit}
}

// Name returns the tool name offered to routers.
func (t *Tool) Name() string { return t.name }

// Description explains to a router when the tool applies.
func (t *Tool) Description() string { return t.description }

// Unit returns the wrapped unit.
func (t *Tool) Unit() Unit { return t.unit }

// Invoke delegates verbatim to the wrapped unit.
func (t *Tool) Invoke(ctx context.Context, c *Context) error {
	if t.unit == nil {
		return &TaskError{Kind: ErrInvokerFailed, Unit: t.name, Err: errors.New("tool wraps no unit")}
	}
	return t.unit.Execute(ctx, c)
}

// Execute lets a tool stand anywhere a unit can.
func (t *Tool) Execute(ctx context.Context, c *Context) error {
	return t.Invoke(ctx, c)
}

// Candidate returns the routing candidate describing this tool.
func (t *Tool) Candidate() Candidate {
	return Candidate{Name: t.name, Description: t.description}
}
