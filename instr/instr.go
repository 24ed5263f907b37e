// Package instr holds the value types passed between FunctionalCore
// operations and pipeline stages: operands, results, flags and the
// instruction record itself.
package instr

import "github.com/soclab/socsim/isa"

// OperandSource is where an operand's value comes from.
type OperandSource uint8

const (
	REGISTER OperandSource = iota
	CONSTANT
	INDIRECT_MEMORY_REGISTER
	EMBEDDED
)

func (s OperandSource) String() string {
	switch s {
	case REGISTER:
		return "REGISTER"
	case CONSTANT:
		return "CONSTANT"
	case INDIRECT_MEMORY_REGISTER:
		return "INDIRECT_MEMORY_REGISTER"
	case EMBEDDED:
		return "EMBEDDED"
	default:
		return "UNKNOWN"
	}
}

// OperandStatus tracks where an operand is in the gather process.
type OperandStatus uint8

const (
	DECODED OperandStatus = iota
	REQUESTED
	GATHERED
)

func (s OperandStatus) String() string {
	switch s {
	case DECODED:
		return "DECODED"
	case REQUESTED:
		return "REQUESTED"
	case GATHERED:
		return "GATHERED"
	default:
		return "UNKNOWN"
	}
}

// Operand is one source operand of an instruction.
type Operand struct {
	Source   OperandSource
	Status   OperandStatus
	Location uint64
	Value    int64
}

// ResultDest is where an instruction's result is committed.
type ResultDest uint8

const (
	NONE ResultDest = iota
	RESULT_REGISTER
	RESULT_MEMORY
)

func (d ResultDest) String() string {
	switch d {
	case NONE:
		return "NONE"
	case RESULT_REGISTER:
		return "REGISTER"
	case RESULT_MEMORY:
		return "MEMORY"
	default:
		return "UNKNOWN"
	}
}

// Flags mirrors the condition-code register updated by ALU instructions.
type Flags struct {
	Sign   bool
	Zero   bool
	Parity bool
	Carry  bool
}

// Result is what an executed instruction produced, plus the flags that
// execution left the core in.
type Result struct {
	Dest     ResultDest
	Location uint64
	Value    int64
	Flags    Flags
}

// Instruction is the record FunctionalCore operations pass between
// themselves and that pipeline stage buffers hold. There is deliberately
// no Phase field: which stage buffer currently holds the instruction is
// its phase (spec.md §9 REDESIGN FLAG).
type Instruction struct {
	Opcode   isa.Opcode
	Operands []Operand
	Size     uint8
	Result   Result
}

// OperandsGathered reports whether every operand has reached GATHERED.
func (i *Instruction) OperandsGathered() bool {
	for _, op := range i.Operands {
		if op.Status != GATHERED {
			return false
		}
	}
	return true
}

// NextRequested returns the index of the left-most operand still awaiting
// a memory response, or -1 if none remain. Used by ProcessOperandResponses
// to fill REQUESTED operands in slot order.
func (i *Instruction) NextRequested() int {
	for idx, op := range i.Operands {
		if op.Status == REQUESTED {
			return idx
		}
	}
	return -1
}
