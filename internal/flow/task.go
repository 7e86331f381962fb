package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Unit is the capability shared by every pipeline stage: a single task, a
// sequential group, a tool adapter or a router.
type Unit interface {
	// Name identifies the unit within its pipeline.
	Name() string
	// Execute runs the unit against the run's context.
	Execute(ctx context.Context, c *Context) error
}

// TaskConfig describes a single task unit.
type TaskConfig struct {
	// Name is unique within the pipeline.
	Name string
	// Description is shown to routers when the task is offered as a tool.
	Description string
	// Instruction is the template sent to the invoker.
	Instruction string
	// Inputs are context keys that must be present before the task runs.
	// Keys referenced as {key} in Instruction are added automatically.
	Inputs []string
	// Optional are context keys the task reads when present.
	Optional []string
	// OutputKey is written exactly once on success.
	OutputKey string
	// Capabilities are passed through to the invoker.
	Capabilities []Capability
	// Invoker produces the task's output.
	Invoker Invoker
}

// Task is the atomic pipeline stage: it reads declared inputs, makes one
// invoker call and writes one output key.
type Task struct {
	name         string
	description  string
	template     Template
	inputs       []string
	optional     []string
	outputKey    string
	capabilities []Capability
	invoker      Invoker
}

// NewTask builds and validates a task.
func NewTask(cfg TaskConfig) (*Task, error) {
	tmpl := ParseTemplate(cfg.Instruction)
	t := &Task{
		name:         cfg.Name,
		description:  cfg.Description,
		template:     tmpl,
		inputs:       mergeKeys(cfg.Inputs, tmpl.Required()),
		optional:     mergeKeys(cfg.Optional, nil),
		outputKey:    cfg.OutputKey,
		capabilities: append([]Capability(nil), cfg.Capabilities...),
		invoker:      cfg.Invoker,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks the task's static configuration.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.name) == "" {
		return errors.New("task name is required")
	}
	if strings.TrimSpace(t.outputKey) == "" {
		return fmt.Errorf("task %q: output key is required", t.name)
	}
	if t.invoker == nil {
		return fmt.Errorf("task %q: invoker is required", t.name)
	}
	if err := checkOptionalDeclared(t.name, t.template, t.optional); err != nil {
		return err
	}
	for _, k := range t.inputs {
		if k == t.outputKey {
			return fmt.Errorf("task %q: output key %q is also an input", t.name, k)
		}
	}
	return nil
}

// Name returns the task name.
func (t *Task) Name() string { return t.name }

// Description returns the task description.
func (t *Task) Description() string { return t.description }

// Inputs returns the required input keys.
func (t *Task) Inputs() []string { return append([]string(nil), t.inputs...) }

// OptionalInputs returns the optional input keys.
func (t *Task) OptionalInputs() []string { return append([]string(nil), t.optional...) }

// OutputKey returns the key this task writes.
func (t *Task) OutputKey() string { return t.outputKey }

// Execute runs the task. On success the output key holds a non-empty value.
func (t *Task) Execute(ctx context.Context, c *Context) (err error) {
	obs := c.Observer()
	obs.UnitStarted(t.name)
	defer func() { obs.UnitFinished(t.name, err) }()

	if err := ctx.Err(); err != nil {
		return cancelled(t.name, err)
	}

	req, err := buildRequest(t.name, t.template, t.inputs, t.optional, c)
	if err != nil {
		return err
	}
	req.Capabilities = append([]Capability(nil), t.capabilities...)

	out, err := t.invoker.Invoke(ctx, req)
	if err != nil {
		return classifyInvokeError(t.name, err)
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return &TaskError{Kind: ErrInvokerFailed, Unit: t.name, Err: errors.New("empty result")}
	}

	c.SetBy(t.name, t.outputKey, out)
	c.debugf("unit %s wrote %s (%d bytes)", t.name, t.outputKey, len(out))
	return nil
}

// buildRequest checks required inputs and renders the instruction.
func buildRequest(unit string, tmpl Template, inputs, optional []string, c *Context) (Request, error) {
	values := make(map[string]string, len(inputs)+len(optional))
	for _, k := range inputs {
		v, ok := c.String(k)
		if !ok {
			return Request{}, &TaskError{Kind: ErrMissingInput, Unit: unit, Key: k}
		}
		values[k] = v
	}
	for _, k := range optional {
		if v, ok := c.String(k); ok {
			values[k] = v
		}
	}

	instruction, err := tmpl.Render(func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	})
	if err != nil {
		return Request{}, &TaskError{Kind: ErrMissingInput, Unit: unit, Err: err}
	}

	return Request{Unit: unit, Instruction: instruction, Inputs: values}, nil
}

// checkOptionalDeclared requires every [[key]] placeholder to be listed as an
// optional input, so absent-tolerant reads are always explicit.
func checkOptionalDeclared(unit string, tmpl Template, optional []string) error {
	declared := make(map[string]bool, len(optional))
	for _, k := range optional {
		declared[k] = true
	}
	for _, k := range tmpl.Optional() {
		if !declared[k] {
			return fmt.Errorf("unit %q: instruction references undeclared optional key %q", unit, k)
		}
	}
	return nil
}

// mergeKeys returns a followed by any keys of b not already in a.
func mergeKeys(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, list := range [][]string{a, b} {
		for _, k := range list {
			if k == "" || seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}
