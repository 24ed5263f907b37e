// Package app holds the program producers that sit upstream of a
// processor's doorbell port (spec.md §1's "application" collaborator):
// a fluent instruction builder, a Lua scripting front end built on it,
// and the two reference applications from the original implementation
// that spec.md's distillation dropped (SPEC_FULL.md §4.11).
package app

import (
	"github.com/soclab/socsim/codec"
	"github.com/soclab/socsim/instr"
	"github.com/soclab/socsim/isa"
	"github.com/soclab/socsim/memtx"
)

// Builder assembles a sequence of instructions into an encoded program
// image in a Store and hands back the address a doorbell should name.
// It mirrors what SimpleApplication/LoopApplication's AddInstruction +
// Memory::Set pair did in the original implementation, generalized into
// something every app in this package shares.
type Builder struct {
	store *memtx.Store
	next  memtx.Address
}

// NewBuilder starts allocating program words at base.
func NewBuilder(store *memtx.Store, base memtx.Address) *Builder {
	return &Builder{store: store, next: base}
}

// Allocate reserves n words of scratch memory (e.g. a result cell) and
// returns their starting address, without writing anything to them.
func (b *Builder) Allocate(n int) memtx.Address {
	addr := b.next
	b.next += memtx.Address(n)
	return addr
}

// Emit encodes each instruction in order and writes the words out
// contiguously, returning the address of the first instruction written
// (the value to ring a doorbell with).
func (b *Builder) Emit(instructions ...instr.Instruction) memtx.Address {
	start := b.next
	for _, in := range instructions {
		for _, word := range codec.Encode(in) {
			b.store.Poke(b.next, word)
			b.next++
		}
	}
	return start
}

// endprgmInstruction is the instruction every program in this package
// terminates with; ENDPRGM carries no operands and no result.
func endprgmInstruction() instr.Instruction {
	return instr.Instruction{Opcode: isa.ENDPRGM}
}
