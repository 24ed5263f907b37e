package app

import (
	"github.com/soclab/socsim/instr"
	"github.com/soclab/socsim/isa"
	"github.com/soclab/socsim/memtx"
)

// LoopMode selects which body instruction LoopApplication emits per
// iteration, mirroring loop_application.cpp's "mode" parameter.
type LoopMode int

const (
	// LoopALU emits an ADD per iteration (register write-back).
	LoopALU LoopMode = iota
	// LoopMemory emits a MOVE per iteration (memory write-back via an
	// indirect register operand).
	LoopMemory
	// LoopSplit alternates MOVE/ADD across the body instructions,
	// starting with MOVE; every iteration runs the same body.
	LoopSplit
)

// LoopApplication writes a program that repeats a body instruction
// num_ops_per_iteration times per loop, followed by the original's
// increment/compare/jump_less loop-control sequence, num_iterations
// times, then ENDPRGM. Grounded on loop_application.cpp.
//
// The source's "random" mode picked ADD vs MOVE with std::default_random_engine;
// dropped here since a Go program authored for a deterministic simulator
// run has no use for non-reproducible instruction selection (everything
// else about program shape is otherwise preserved).
type LoopApplication struct {
	builder *Builder

	mode               LoopMode
	numIterations      int64
	numOpsPerIteration int

	writeBackRegister uint64
	countRegister     uint64

	generateALU bool
}

// NewLoopApplication configures a LoopApplication over b. writeBackRegister
// and countRegister are the register-file slots the loop body and the
// loop-control sequence use; the original hard-codes these to 0 and 1.
func NewLoopApplication(b *Builder, mode LoopMode, numIterations int64, numOpsPerIteration int, writeBackRegister, countRegister uint64) *LoopApplication {
	return &LoopApplication{
		builder:            b,
		mode:               mode,
		numIterations:      numIterations,
		numOpsPerIteration: numOpsPerIteration,
		writeBackRegister:  writeBackRegister,
		countRegister:      countRegister,
		generateALU:        true,
	}
}

// Build writes the program and returns its start address.
func (a *LoopApplication) Build() memtx.Address {
	writeBackAddress := a.builder.Allocate(1)

	var program []instr.Instruction
	for i := 0; i < a.numOpsPerIteration; i++ {
		program = append(program, a.bodyInstruction(writeBackAddress))
	}
	program = append(program, a.loopControlInstructions()...)
	program = append(program, endprgmInstruction())

	return a.builder.Emit(program...)
}

func (a *LoopApplication) bodyInstruction(writeBackAddress memtx.Address) instr.Instruction {
	switch a.mode {
	case LoopMemory:
		return a.moveInstruction(writeBackAddress)
	case LoopSplit:
		a.generateALU = !a.generateALU
		if a.generateALU {
			return a.addInstruction()
		}
		return a.moveInstruction(writeBackAddress)
	default:
		return a.addInstruction()
	}
}

// addInstruction is "2 + 3, result to register" (loop_application.cpp's
// CreateAddInstruction).
func (a *LoopApplication) addInstruction() instr.Instruction {
	return instr.Instruction{
		Opcode: isa.ADD,
		Operands: []instr.Operand{
			{Source: instr.EMBEDDED, Value: 2},
			{Source: instr.EMBEDDED, Value: 3},
		},
		Result: instr.Result{Dest: instr.RESULT_REGISTER, Location: a.writeBackRegister},
	}
}

// moveInstruction copies the memory word the write-back register points
// at (an indirect operand) to writeBackAddress (loop_application.cpp's
// CreateMoveInstruction).
func (a *LoopApplication) moveInstruction(writeBackAddress memtx.Address) instr.Instruction {
	return instr.Instruction{
		Opcode: isa.MOVE,
		Operands: []instr.Operand{
			{Source: instr.INDIRECT_MEMORY_REGISTER, Location: a.writeBackRegister},
		},
		Result: instr.Result{Dest: instr.RESULT_MEMORY, Location: writeBackAddress},
	}
}

// loopControlInstructions is the original's LoopLogicInstructions:
// increment the count register, compare it against numIterations, and
// jump back to the loop body (operand value 1 is an absolute address,
// matching the original's embedded literal; it is the body's first word
// when the builder starts at 0, since Build allocates one word first).
func (a *LoopApplication) loopControlInstructions() []instr.Instruction {
	increment := instr.Instruction{
		Opcode:   isa.INCREMENT,
		Operands: []instr.Operand{{Source: instr.REGISTER, Location: a.countRegister}},
		Result:   instr.Result{Dest: instr.RESULT_REGISTER, Location: a.countRegister},
	}
	compare := instr.Instruction{
		Opcode: isa.COMPARE,
		Operands: []instr.Operand{
			{Source: instr.REGISTER, Location: a.countRegister},
			{Source: instr.EMBEDDED, Value: a.numIterations},
		},
	}
	jump := instr.Instruction{
		Opcode:   isa.JUMP_LESS,
		Operands: []instr.Operand{{Source: instr.EMBEDDED, Value: 1}},
	}
	return []instr.Instruction{increment, compare, jump}
}
