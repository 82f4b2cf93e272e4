package shared

import "sync/atomic"

// Trigger is a monotonically increasing version counter attached to a shared
// block. The zero value is ready to use and reports version 1, so a fresh
// Checker always sees the first version as a change.
type Trigger struct {
	counter atomic.Uint64
}

// TriggerUpdate bumps the version.
func (t *Trigger) TriggerUpdate() {
	t.counter.Add(1)
}

// Version returns the current version number.
func (t *Trigger) Version() uint64 {
	return t.counter.Load() + 1
}

// Checker remembers the last version of a Trigger it has seen. A Checker must
// only be used by one goroutine.
type Checker struct {
	seen uint64
}

// UpdateNeeded reports whether the trigger moved since the last call and, if
// so, records the new version.
func (c *Checker) UpdateNeeded(t *Trigger) bool {
	v := t.Version()
	if v == c.seen {
		return false
	}
	c.seen = v
	return true
}

// Seen returns the last version recorded by the checker, 0 if none.
func (c *Checker) Seen() uint64 {
	return c.seen
}

// Reset forgets the recorded version so that the next check reports a change.
func (c *Checker) Reset() {
	c.seen = 0
}
