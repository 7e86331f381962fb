package flow

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// candidateNamePattern matches names usable as model tool names.
var candidateNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// RouterConfig describes a router unit.
type RouterConfig struct {
	Name        string
	Instruction string
	// Inputs and Optional behave as for tasks.
	Inputs   []string
	Optional []string
	// OutputKey, when set, receives the name of the chosen route.
	OutputKey string
	Invoker   Invoker
	// Candidates is the fixed set of alternatives. Names must be unique.
	Candidates []*Tool
}

// Router asks the invoker to pick exactly one candidate tool, then runs it
// and adopts its effect as its own.
type Router struct {
	name       string
	template   Template
	inputs     []string
	optional   []string
	outputKey  string
	invoker    Invoker
	candidates []*Tool
	byName     map[string]*Tool
}

// NewRouter builds and validates a router.
func NewRouter(cfg RouterConfig) (*Router, error) {
	if strings.TrimSpace(cfg.Name) == "" {
		return nil, errors.New("router name is required")
	}
	if cfg.Invoker == nil {
		return nil, fmt.Errorf("router %q: invoker is required", cfg.Name)
	}
	if len(cfg.Candidates) == 0 {
		return nil, fmt.Errorf("router %q: at least one candidate is required", cfg.Name)
	}

	tmpl := ParseTemplate(cfg.Instruction)
	r := &Router{
		name:       cfg.Name,
		template:   tmpl,
		inputs:     mergeKeys(cfg.Inputs, tmpl.Required()),
		optional:   mergeKeys(cfg.Optional, nil),
		outputKey:  cfg.OutputKey,
		invoker:    cfg.Invoker,
		candidates: append([]*Tool(nil), cfg.Candidates...),
		byName:     make(map[string]*Tool, len(cfg.Candidates)),
	}
	for _, c := range r.candidates {
		if c == nil || c.Name() == "" {
			return nil, fmt.Errorf("router %q: candidate without a name", cfg.Name)
		}
		if !candidateNamePattern.MatchString(c.Name()) {
			return nil, fmt.Errorf("router %q: candidate name %q must match %s", cfg.Name, c.Name(), candidateNamePattern)
		}
		if _, dup := r.byName[c.Name()]; dup {
			return nil, fmt.Errorf("router %q: duplicate candidate %q", cfg.Name, c.Name())
		}
		r.byName[c.Name()] = c
	}
	if err := checkOptionalDeclared(r.name, r.template, r.optional); err != nil {
		return nil, err
	}
	return r, nil
}

// Name returns the router name.
func (r *Router) Name() string { return r.name }

// OutputKey returns the key receiving the chosen route name, or "".
func (r *Router) OutputKey() string { return r.outputKey }

// Inputs returns the required input keys.
func (r *Router) Inputs() []string { return append([]string(nil), r.inputs...) }

// Candidates returns the candidate tools in declaration order.
func (r *Router) Candidates() []*Tool { return append([]*Tool(nil), r.candidates...) }

// CandidateNames returns the candidate names in declaration order.
func (r *Router) CandidateNames() []string {
	names := make([]string, len(r.candidates))
	for i, c := range r.candidates {
		names[i] = c.Name()
	}
	return names
}

// Execute decides on a route and delegates to it. Ambiguous or empty
// selections fail with ErrRouting before any candidate runs.
func (r *Router) Execute(ctx context.Context, c *Context) (err error) {
	obs := c.Observer()
	obs.UnitStarted(r.name)
	obs.RouteChanged(r.name, RouteNotStarted, "")

	route := ""
	defer func() {
		if err != nil {
			obs.RouteChanged(r.name, RouteFailed, route)
		}
		obs.UnitFinished(r.name, err)
	}()

	if err := ctx.Err(); err != nil {
		return cancelled(r.name, err)
	}

	req, err := buildRequest(r.name, r.template, r.inputs, r.optional, c)
	if err != nil {
		return err
	}

	obs.RouteChanged(r.name, RouteDeciding, "")
	decision, err := r.invoker.Decide(ctx, req, r.candidateList())
	if err != nil {
		return classifyInvokeError(r.name, err)
	}

	chosen, err := r.resolve(decision)
	if err != nil {
		return err
	}
	route = chosen.Name()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return cancelled(r.name, ctxErr)
	}

	obs.RouteChanged(r.name, RouteDelegating, route)
	c.debugf("router %s: delegating to %s", r.name, route)

	if err := chosen.Invoke(ctx, c); err != nil {
		return withScope(err, r.name)
	}

	if r.outputKey != "" {
		c.SetBy(r.name, r.outputKey, route)
	}
	obs.RouteChanged(r.name, RouteCompleted, route)
	return nil
}

// resolve maps a decision onto exactly one known candidate.
func (r *Router) resolve(d Decision) (*Tool, error) {
	var selected []string
	seen := make(map[string]bool)
	for _, name := range d.Selected {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		selected = append(selected, name)
	}

	routingErr := func(reason string) error {
		return &TaskError{
			Kind:       ErrRouting,
			Unit:       r.name,
			Candidates: r.CandidateNames(),
			Selection:  selected,
			Raw:        d.Raw,
			Err:        errors.New(reason),
		}
	}

	switch len(selected) {
	case 0:
		return nil, routingErr("no candidate selected")
	case 1:
		chosen, ok := r.byName[selected[0]]
		if !ok {
			return nil, routingErr(fmt.Sprintf("unknown candidate %q", selected[0]))
		}
		return chosen, nil
	default:
		return nil, routingErr(fmt.Sprintf("%d candidates selected", len(selected)))
	}
}

func (r *Router) candidateList() []Candidate {
	list := make([]Candidate, len(r.candidates))
	for i, c := range r.candidates {
		list[i] = c.Candidate()
	}
	return list
}
