package shared

import "sync/atomic"

// Wrapper holds one shared-state block of type T. The simulation goroutine is
// the only writer; any number of goroutines may read.
//
// Blocks are published whole through an atomic pointer: Modify works on a
// private copy and swaps it in, so a reader either sees the previous block or
// the new one, never a partially written one. The version is bumped after the
// swap. T must be plain data: slices, maps or pointers inside T are shared
// between versions and must not be mutated in place.
type Wrapper[T any] struct {
	data    atomic.Pointer[T]
	trigger Trigger
}

// NewWrapper creates a wrapper publishing initial.
func NewWrapper[T any](initial T) *Wrapper[T] {
	w := &Wrapper[T]{}
	w.data.Store(&initial)
	return w
}

// Get returns the current block. The returned value must not be modified;
// use Modify for writes. Get never changes the version.
func (w *Wrapper[T]) Get() *T {
	return w.data.Load()
}

// Snapshot returns a value copy of the current block.
func (w *Wrapper[T]) Snapshot() T {
	return *w.data.Load()
}

// Modify is the only write access. It bumps the version exactly once no
// matter how many fields fn writes, so callers should batch the changes of a
// logical update into a single call.
func (w *Wrapper[T]) Modify(fn func(d *T)) {
	next := *w.data.Load()
	fn(&next)
	w.data.Store(&next)
	w.trigger.TriggerUpdate()
}

// UpdateNeeded reports whether the block changed since checker last looked.
func (w *Wrapper[T]) UpdateNeeded(checker *Checker) bool {
	return checker.UpdateNeeded(&w.trigger)
}

// Version returns the current version of the block.
func (w *Wrapper[T]) Version() uint64 {
	return w.trigger.Version()
}
