package flow

import (
	"fmt"
	"sort"
)

// InputWriter is the writer recorded for keys seeded from run inputs.
const InputWriter = "input"

// Context is the shared key-value state threaded through one pipeline run.
// It is owned by a single run and is not safe for concurrent use.
type Context struct {
	values   map[string]any
	writers  map[string]string
	order    []string
	observer Observer
	debug    DebugFunc
}

// NewContext creates a context seeded with the given inputs.
func NewContext(seed map[string]string) *Context {
	c := &Context{
		values:   make(map[string]any, len(seed)),
		writers:  make(map[string]string, len(seed)),
		observer: NopObserver{},
	}
	for _, k := range sortedKeys(seed) {
		c.SetBy(InputWriter, k, seed[k])
	}
	return c
}

// WithObserver attaches an observer for this run and returns the context.
func (c *Context) WithObserver(o Observer) *Context {
	if o == nil {
		o = NopObserver{}
	}
	c.observer = o
	return c
}

// Observer returns the observer attached to this run.
func (c *Context) Observer() Observer {
	return c.observer
}

// Get returns the value for key, or a *TaskError of kind ErrNotFound.
func (c *Context) Get(key string) (any, error) {
	v, ok := c.values[key]
	if !ok {
		return nil, &TaskError{Kind: ErrNotFound, Key: key}
	}
	return v, nil
}

// Lookup returns the value for key and whether it was present.
func (c *Context) Lookup(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// String returns the value for key rendered as text.
func (c *Context) String(key string) (string, bool) {
	v, ok := c.values[key]
	if !ok {
		return "", false
	}
	return stringify(v), true
}

// Has reports whether key is present.
func (c *Context) Has(key string) bool {
	_, ok := c.values[key]
	return ok
}

// Set writes value under key with no unit attribution.
func (c *Context) Set(key string, value any) {
	c.SetBy("", key, value)
}

// SetBy writes value under key and records unit as its writer.
// A later write to the same key overwrites the earlier one.
func (c *Context) SetBy(unit, key string, value any) {
	if _, exists := c.values[key]; !exists {
		c.order = append(c.order, key)
	}
	c.values[key] = value
	c.writers[key] = unit
}

// Writer returns the unit that last wrote key.
func (c *Context) Writer(key string) string {
	return c.writers[key]
}

// Keys returns keys in first-write order.
func (c *Context) Keys() []string {
	keys := make([]string, len(c.order))
	copy(keys, c.order)
	return keys
}

// Len returns the number of keys.
func (c *Context) Len() int {
	return len(c.values)
}

// Snapshot returns an immutable copy of the current state.
func (c *Context) Snapshot() Snapshot {
	s := Snapshot{
		values:  make(map[string]any, len(c.values)),
		writers: make(map[string]string, len(c.writers)),
		order:   c.Keys(),
	}
	for k, v := range c.values {
		s.values[k] = v
	}
	for k, w := range c.writers {
		s.writers[k] = w
	}
	return s
}

// Snapshot is a read-only copy of a Context.
type Snapshot struct {
	values  map[string]any
	writers map[string]string
	order   []string
}

// Get returns the value for key, or a *TaskError of kind ErrNotFound.
func (s Snapshot) Get(key string) (any, error) {
	v, ok := s.values[key]
	if !ok {
		return nil, &TaskError{Kind: ErrNotFound, Key: key}
	}
	return v, nil
}

// String returns the value for key rendered as text.
func (s Snapshot) String(key string) (string, bool) {
	v, ok := s.values[key]
	if !ok {
		return "", false
	}
	return stringify(v), true
}

// Has reports whether key is present.
func (s Snapshot) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

// Writer returns the unit that last wrote key.
func (s Snapshot) Writer(key string) string {
	return s.writers[key]
}

// Keys returns keys in first-write order.
func (s Snapshot) Keys() []string {
	keys := make([]string, len(s.order))
	copy(keys, s.order)
	return keys
}

// Len returns the number of keys.
func (s Snapshot) Len() int {
	return len(s.values)
}

// Map returns a fresh copy of the values with each value rendered as text.
func (s Snapshot) Map() map[string]string {
	m := make(map[string]string, len(s.values))
	for k, v := range s.values {
		m[k] = stringify(v)
	}
	return m
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
