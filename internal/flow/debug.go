package flow

// DebugFunc receives diagnostic messages from units during a run.
type DebugFunc func(format string, args ...any)

// WithDebugLog attaches a debug sink for this run and returns the context.
// Passing nil disables debug output.
func (c *Context) WithDebugLog(fn DebugFunc) *Context {
	c.debug = fn
	return c
}

func (c *Context) debugf(format string, args ...any) {
	if c.debug != nil {
		c.debug(format, args...)
	}
}
