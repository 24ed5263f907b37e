// Package stage provides the single-slot pipeline register used to pass
// work between pipeline phases (spec.md §4.4): capacity exactly one,
// write rejected unless empty, read/peek rejected unless full, and a
// mutable peek so operand-gather responses can be merged into an
// in-flight instruction without removing and reinserting it.
package stage

import (
	"github.com/soclab/socsim/core"
	"github.com/soclab/socsim/sim"
)

// Buffer is a capacity-1 typed pipeline register.
type Buffer[T any] struct {
	full  bool
	value T

	onWritable sim.Notifier
	onReadable sim.Notifier
}

// New returns an empty Buffer.
func New[T any]() *Buffer[T] {
	return &Buffer[T]{}
}

// WriteValid reports whether Write would succeed right now.
func (b *Buffer[T]) WriteValid() bool { return !b.full }

// ReadValid reports whether Read/Peek would succeed right now.
func (b *Buffer[T]) ReadValid() bool { return b.full }

// Write stores v. It panics with a StageBufferContract-shaped message if
// the buffer is already full; callers must check WriteValid first, as the
// spec requires.
func (b *Buffer[T]) Write(v T) {
	if b.full {
		panic(core.NewError(core.StageBufferContract, "write to full buffer"))
	}
	b.value = v
	b.full = true
	b.onReadable.Fire()
}

// Peek returns a pointer to the held element for in-place mutation
// (e.g. merging operand-gather responses), without consuming it.
func (b *Buffer[T]) Peek() *T {
	if !b.full {
		panic(core.NewError(core.StageBufferContract, "peek on empty buffer"))
	}
	return &b.value
}

// Read consumes and returns the held element.
func (b *Buffer[T]) Read() T {
	if !b.full {
		panic(core.NewError(core.StageBufferContract, "read from empty buffer"))
	}
	v := b.value
	var zero T
	b.value = zero
	b.full = false
	b.onWritable.Fire()
	return v
}

// NotifyOnWritable arms h to run on the next edge where WriteValid
// becomes true. It fires at most once per arming.
func (b *Buffer[T]) NotifyOnWritable(h sim.HandlerFunc) {
	b.onWritable.Arm(h)
}

// NotifyOnReadable arms h to run on the next edge where ReadValid
// becomes true. It fires at most once per arming.
func (b *Buffer[T]) NotifyOnReadable(h sim.HandlerFunc) {
	b.onReadable.Arm(h)
}
