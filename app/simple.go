package app

import (
	"github.com/soclab/socsim/instr"
	"github.com/soclab/socsim/isa"
	"github.com/soclab/socsim/memtx"
)

// SimpleApplication writes the original implementation's smallest
// possible program — "2 + 3, result to memory" followed by ENDPRGM — and
// returns the address to ring a doorbell with. Grounded directly on
// simple_application.cpp's Setup/CreateAddInstruction.
type SimpleApplication struct {
	builder *Builder
}

// NewSimpleApplication wraps a Builder already pointed at scratch memory.
func NewSimpleApplication(b *Builder) *SimpleApplication {
	return &SimpleApplication{builder: b}
}

// Build writes the program and returns its start address.
func (a *SimpleApplication) Build() memtx.Address {
	result := a.builder.Allocate(1)
	add := instr.Instruction{
		Opcode: isa.ADD,
		Operands: []instr.Operand{
			{Source: instr.EMBEDDED, Value: 2},
			{Source: instr.EMBEDDED, Value: 3},
		},
		Result: instr.Result{Dest: instr.RESULT_MEMORY, Location: result},
	}
	return a.builder.Emit(add, endprgmInstruction())
}
