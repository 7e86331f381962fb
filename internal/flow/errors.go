package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Error kinds. Every failure surfaced by a unit is a *TaskError whose Kind is
// one of these sentinels, so callers can use errors.Is.
var (
	ErrNotFound           = errors.New("key not found")
	ErrMissingInput       = errors.New("missing input")
	ErrInvokerUnavailable = errors.New("invoker unavailable")
	ErrInvokerFailed      = errors.New("invoker failed")
	ErrRouting            = errors.New("routing error")
	ErrCancelled          = errors.New("cancelled")
	ErrInputConflict      = errors.New("input conflicts with output key")
)

// TaskError describes a unit failure and the chain of composite units it
// propagated through.
type TaskError struct {
	// Kind is one of the Err* sentinels above.
	Kind error
	// Unit is the name of the unit that failed.
	Unit string
	// Path lists enclosing groups and routers, outermost first.
	Path []string
	// Key is the offending context key for ErrMissingInput, ErrNotFound and
	// ErrInputConflict.
	Key string
	// Candidates, Selection and Raw are set for ErrRouting.
	Candidates []string
	Selection  []string
	Raw        string
	// Err is the underlying cause, if any.
	Err error
}

func (e *TaskError) Error() string {
	if e == nil {
		return ""
	}

	var b strings.Builder
	if e.Unit != "" {
		fmt.Fprintf(&b, "unit %q", e.Unit)
		if len(e.Path) > 0 {
			fmt.Fprintf(&b, " (in %s)", strings.Join(e.Path, " > "))
		}
		b.WriteString(": ")
	}

	kind := ErrInvokerFailed
	if e.Kind != nil {
		kind = e.Kind
	}
	b.WriteString(kind.Error())

	switch {
	case e.Key != "":
		fmt.Fprintf(&b, ": key %q", e.Key)
	case errors.Is(kind, ErrRouting):
		fmt.Fprintf(&b, ": selected %v from candidates %v", e.Selection, e.Candidates)
		if e.Raw != "" {
			fmt.Fprintf(&b, " (raw: %s)", truncate(e.Raw, 200))
		}
	}

	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *TaskError) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// KindOf returns the kind of a *TaskError found in err's chain, or nil.
func KindOf(err error) error {
	var te *TaskError
	if errors.As(err, &te) {
		return te.Kind
	}
	return nil
}

// FailedUnit returns the name of the unit that failed, or "" if err does not
// carry a *TaskError.
func FailedUnit(err error) string {
	var te *TaskError
	if errors.As(err, &te) {
		return te.Unit
	}
	return ""
}

// withScope returns err with scope prepended to its path. Non-TaskErrors are
// converted to ErrInvokerFailed attributed to scope. The original value is
// never mutated since units may be shared across concurrent runs.
func withScope(err error, scope string) error {
	var te *TaskError
	if !errors.As(err, &te) {
		return &TaskError{Kind: ErrInvokerFailed, Unit: scope, Err: err}
	}
	cp := *te
	cp.Path = append([]string{scope}, te.Path...)
	return &cp
}

func cancelled(unit string, cause error) error {
	return &TaskError{Kind: ErrCancelled, Unit: unit, Err: cause}
}

// classifyInvokeError maps an Invoker error onto a task error kind.
func classifyInvokeError(unit string, err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrCancelled):
		return &TaskError{Kind: ErrCancelled, Unit: unit, Err: err}
	case errors.Is(err, ErrInvokerUnavailable):
		return &TaskError{Kind: ErrInvokerUnavailable, Unit: unit, Err: err}
	default:
		return &TaskError{Kind: ErrInvokerFailed, Unit: unit, Err: err}
	}
}

// truncate cuts s to at most maxLen bytes without splitting a rune.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
