package flow

import (
	"errors"
	"fmt"
	"reflect"
)

// Validate checks a composition graph before it runs:
//   - every unit has a name, and a name maps to a single unit
//   - no two units that can run in the same pipeline instance write the
//     same output key (alternatives of one router are mutually exclusive
//     and may share keys)
func Validate(root Unit) error {
	if root == nil {
		return errors.New("validate pipeline: root unit is nil")
	}
	v := &validator{names: make(map[string]Unit)}
	if _, err := v.walk(root); err != nil {
		return fmt.Errorf("validate pipeline: %w", err)
	}
	return nil
}

// OutputKeys returns every key the graph may write, mapped to its writer.
func OutputKeys(root Unit) (map[string]string, error) {
	v := &validator{names: make(map[string]Unit)}
	return v.walk(root)
}

type validator struct {
	names map[string]Unit
}

func (v *validator) walk(u Unit) (map[string]string, error) {
	if u == nil {
		return nil, errors.New("nil unit")
	}

	// Tools share the namespace of routing candidates, not units.
	if t, ok := u.(*Tool); ok {
		if t.Unit() == nil {
			return nil, fmt.Errorf("tool %q wraps no unit", t.Name())
		}
		return v.walk(t.Unit())
	}

	if err := v.register(u); err != nil {
		return nil, err
	}

	switch unit := u.(type) {
	case *Task:
		return map[string]string{unit.OutputKey(): unit.Name()}, nil

	case *Group:
		outputs := make(map[string]string)
		for _, m := range unit.Members() {
			sub, err := v.walk(m)
			if err != nil {
				return nil, err
			}
			if err := mergeDisjoint(outputs, sub); err != nil {
				return nil, fmt.Errorf("group %q: %w", unit.Name(), err)
			}
		}
		return outputs, nil

	case *Router:
		outputs := make(map[string]string)
		for _, c := range unit.Candidates() {
			sub, err := v.walk(c)
			if err != nil {
				return nil, err
			}
			for k, w := range sub {
				if _, ok := outputs[k]; !ok {
					outputs[k] = w
				}
			}
		}
		if key := unit.OutputKey(); key != "" {
			if err := mergeDisjoint(outputs, map[string]string{key: unit.Name()}); err != nil {
				return nil, fmt.Errorf("router %q: %w", unit.Name(), err)
			}
		}
		return outputs, nil

	default:
		return map[string]string{}, nil
	}
}

func (v *validator) register(u Unit) error {
	name := u.Name()
	if name == "" {
		return errors.New("unit without a name")
	}
	if prev, ok := v.names[name]; ok && !sameUnit(prev, u) {
		return fmt.Errorf("duplicate unit name %q", name)
	}
	v.names[name] = u
	return nil
}

func mergeDisjoint(dst, src map[string]string) error {
	for k, w := range src {
		if prev, ok := dst[k]; ok {
			return fmt.Errorf("output key %q written by both %q and %q", k, prev, w)
		}
		dst[k] = w
	}
	return nil
}

func sameUnit(a, b Unit) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
