package flow

import "context"

// Capability names an external action a unit's invoker call may use.
type Capability string

const (
	// CapabilitySearch lets the invoker run web searches while producing output.
	CapabilitySearch Capability = "web_search"
)

// Request is what a unit hands to the Invoker.
type Request struct {
	// Unit is the name of the calling unit.
	Unit string
	// Instruction is the unit's instruction with context values substituted.
	Instruction string
	// Inputs holds the context values the unit declared, keyed by name.
	Inputs map[string]string
	// Capabilities lists the external actions the call may use.
	Capabilities []Capability
}

// HasCapability reports whether the request allows capability c.
func (r Request) HasCapability(c Capability) bool {
	for _, have := range r.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// Candidate is one action offered to a routing decision.
type Candidate struct {
	Name        string
	Description string
}

// Decision is the raw outcome of a routing call.
type Decision struct {
	// Selected holds the candidate names the invoker chose.
	Selected []string
	// Raw is the unparsed boundary output, kept for diagnostics.
	Raw string
}

// Invoker is the external boundary units call to produce output. It is
// implemented by the model client in internal/api and by test doubles.
//
// Errors that wrap ErrInvokerUnavailable are reported as that kind; every
// other error is reported as ErrInvokerFailed.
type Invoker interface {
	// Invoke produces the text output for a task unit.
	Invoke(ctx context.Context, req Request) (string, error)
	// Decide picks among candidates for a router unit.
	Decide(ctx context.Context, req Request, candidates []Candidate) (Decision, error)
}
