package flow

import (
	"context"
	"fmt"
)

// Group runs its members strictly in declaration order against one context.
// It stops at the first failing member.
type Group struct {
	name    string
	members []Unit
}

// NewGroup creates a sequential group.
func NewGroup(name string, members ...Unit) *Group {
	return &Group{
		name:    name,
		members: append([]Unit(nil), members...),
	}
}

// Name returns the group name.
func (g *Group) Name() string { return g.name }

// Members returns the group's units in execution order.
func (g *Group) Members() []Unit { return append([]Unit(nil), g.members...) }

// Execute runs each member in turn. The first failure is returned with the
// group's name attached to the error path; later members never run.
func (g *Group) Execute(ctx context.Context, c *Context) (err error) {
	obs := c.Observer()
	obs.UnitStarted(g.name)
	defer func() { obs.UnitFinished(g.name, err) }()

	for i, m := range g.members {
		if ctxErr := ctx.Err(); ctxErr != nil {
			c.debugf("group %s: cancelled before %s (step %d/%d)", g.name, m.Name(), i+1, len(g.members))
			return withScope(cancelled(m.Name(), ctxErr), g.name)
		}

		if err := m.Execute(ctx, c); err != nil {
			c.debugf("group %s: %s failed (step %d/%d): %v", g.name, m.Name(), i+1, len(g.members), err)
			return withScope(err, g.name)
		}
	}
	return nil
}

// String implements fmt.Stringer for diagnostics.
func (g *Group) String() string {
	names := make([]string, len(g.members))
	for i, m := range g.members {
		names[i] = m.Name()
	}
	return fmt.Sprintf("%s%v", g.name, names)
}
