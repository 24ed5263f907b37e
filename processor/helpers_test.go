package processor

import (
	"github.com/soclab/socsim/instr"
	"github.com/soclab/socsim/isa"
	"github.com/soclab/socsim/memtx"
)

func addInstruction(a, b int64, resultAddr memtx.Address) instr.Instruction {
	return instr.Instruction{
		Opcode: isa.ADD,
		Operands: []instr.Operand{
			{Source: instr.EMBEDDED, Value: a},
			{Source: instr.EMBEDDED, Value: b},
		},
		Result: instr.Result{Dest: instr.RESULT_MEMORY, Location: resultAddr},
	}
}

func endprgmInstruction() instr.Instruction {
	return instr.Instruction{Opcode: isa.ENDPRGM}
}

func instrAddToRegister(a, b int64, dest uint64) instr.Instruction {
	return instr.Instruction{
		Opcode: isa.ADD,
		Operands: []instr.Operand{
			{Source: instr.EMBEDDED, Value: a},
			{Source: instr.EMBEDDED, Value: b},
		},
		Result: instr.Result{Dest: instr.RESULT_REGISTER, Location: dest},
	}
}

func instrAddRegisterAndEmbedded(reg uint64, embedded int64, dest uint64) instr.Instruction {
	return instr.Instruction{
		Opcode: isa.ADD,
		Operands: []instr.Operand{
			{Source: instr.REGISTER, Location: reg},
			{Source: instr.EMBEDDED, Value: embedded},
		},
		Result: instr.Result{Dest: instr.RESULT_REGISTER, Location: dest},
	}
}

// moveRegisterToMemory copies a register's value directly to memory (a
// REGISTER-sourced MOVE), distinct from loopProgram's MOVE which reads
// *through* a register used as a pointer (INDIRECT_MEMORY_REGISTER).
func moveRegisterToMemory(reg uint64, addr memtx.Address) instr.Instruction {
	return instr.Instruction{
		Opcode:   isa.MOVE,
		Operands: []instr.Operand{{Source: instr.REGISTER, Location: reg}},
		Result:   instr.Result{Dest: instr.RESULT_MEMORY, Location: addr},
	}
}

// loopProgram builds the increment/compare/jump_less counting loop from
// loop_application.cpp: add(2,3) to register 0, num_ops_per_iteration
// times, then increment/compare/jump_less on register 1 against
// iterations, repeated until it falls through to ENDPRGM.
func loopProgram(resultAddr memtx.Address, iterations int64, opsPerIteration int) []instr.Instruction {
	var program []instr.Instruction
	for i := 0; i < opsPerIteration; i++ {
		program = append(program, instr.Instruction{
			Opcode: isa.ADD,
			Operands: []instr.Operand{
				{Source: instr.EMBEDDED, Value: 2},
				{Source: instr.EMBEDDED, Value: 3},
			},
			Result: instr.Result{Dest: instr.RESULT_REGISTER, Location: 0},
		})
	}
	program = append(program,
		instr.Instruction{
			Opcode:   isa.INCREMENT,
			Operands: []instr.Operand{{Source: instr.REGISTER, Location: 1}},
			Result:   instr.Result{Dest: instr.RESULT_REGISTER, Location: 1},
		},
		instr.Instruction{
			Opcode: isa.COMPARE,
			Operands: []instr.Operand{
				{Source: instr.REGISTER, Location: 1},
				{Source: instr.EMBEDDED, Value: iterations},
			},
		},
		instr.Instruction{
			Opcode:   isa.JUMP_LESS,
			Operands: []instr.Operand{{Source: instr.EMBEDDED, Value: 1}},
		},
		instr.Instruction{
			Opcode:   isa.MOVE,
			Operands: []instr.Operand{{Source: instr.INDIRECT_MEMORY_REGISTER, Location: 0}},
			Result:   instr.Result{Dest: instr.RESULT_MEMORY, Location: resultAddr},
		},
		endprgmInstruction(),
	)
	return program
}
