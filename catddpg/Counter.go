package catddpg

// Counter counts completed training steps. It is owned by the agent
// that created it: exactly one writer may call Increment, once per
// training step, and all periodic triggers read the value returned by
// that call. Concurrent training steps require external locking.
type Counter struct {
	steps int
}

// NewCounter returns a new Counter starting at zero
func NewCounter() *Counter {
	return &Counter{}
}

// Increment advances the Counter by one step and returns the new count
func (c *Counter) Increment() int {
	c.steps++
	return c.steps
}

// Count returns the number of completed steps
func (c *Counter) Count() int {
	return c.steps
}
