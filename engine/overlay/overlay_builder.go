package overlay

import "time"

// ContextBuilderOption is a functional option applied to a Context during construction via NewContext.
type ContextBuilderOption func(*Context)

// WithTitle sets the prefix of the window title produced by Draw.
//
// Parameters:
//   - title: the title prefix, "Retort" when empty
//
// Returns:
//   - ContextBuilderOption: a function that applies the title to a context
func WithTitle(title string) ContextBuilderOption {
	return func(c *Context) {
		c.title = title
	}
}

// WithLogCapacity bounds the compile log.
func WithLogCapacity(n int) ContextBuilderOption {
	return func(c *Context) {
		c.capacity = n
	}
}

// WithClock replaces time.Now for log timestamps.
func WithClock(clock func() time.Time) ContextBuilderOption {
	return func(c *Context) {
		c.clock = clock
	}
}
