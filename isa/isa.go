// Package isa describes the first_soc instruction set: the opcodes a
// FunctionalCore understands and, for each, which execution unit handles
// it and how many operands it carries.
package isa

import "fmt"

// Opcode identifies a first_soc instruction.
type Opcode uint16

const (
	MOVE Opcode = iota
	ADD
	SUBTRACT
	MULTIPLY
	DIVIDE
	INCREMENT
	DECREMENT
	COMPARE
	JUMP
	JUMP_LESS
	CALL
	RETURN
	ENDPRGM Opcode = 0xFF
)

func (op Opcode) String() string {
	switch op {
	case MOVE:
		return "MOVE"
	case ADD:
		return "ADD"
	case SUBTRACT:
		return "SUBTRACT"
	case MULTIPLY:
		return "MULTIPLY"
	case DIVIDE:
		return "DIVIDE"
	case INCREMENT:
		return "INCREMENT"
	case DECREMENT:
		return "DECREMENT"
	case COMPARE:
		return "COMPARE"
	case JUMP:
		return "JUMP"
	case JUMP_LESS:
		return "JUMP_LESS"
	case CALL:
		return "CALL"
	case RETURN:
		return "RETURN"
	case ENDPRGM:
		return "ENDPRGM"
	default:
		return fmt.Sprintf("Opcode(0x%04X)", uint16(op))
	}
}

// Class is the execution unit an opcode is dispatched to.
type Class uint8

const (
	MEMORY Class = iota
	ALU
	BRANCH
)

func (c Class) String() string {
	switch c {
	case MEMORY:
		return "MEMORY"
	case ALU:
		return "ALU"
	case BRANCH:
		return "BRANCH"
	default:
		return "UNKNOWN"
	}
}

// Details is the catalog entry for an opcode.
type Details struct {
	Class       Class
	NumOperands int
}

// catalog is built once at package init and never mutated again, replacing
// the source's lazy-initialized global map with a table computed at
// program start (spec.md §9).
var catalog map[Opcode]Details

func init() {
	catalog = map[Opcode]Details{
		MOVE:      {MEMORY, 1},
		ADD:       {ALU, 2},
		SUBTRACT:  {ALU, 2},
		MULTIPLY:  {ALU, 2},
		DIVIDE:    {ALU, 2},
		INCREMENT: {ALU, 1},
		DECREMENT: {ALU, 1},
		COMPARE:   {ALU, 2},
		JUMP:      {BRANCH, 1},
		JUMP_LESS: {BRANCH, 1},
		CALL:      {BRANCH, 1},
		RETURN:    {BRANCH, 0},
		ENDPRGM:   {BRANCH, 0},
	}
}

// Lookup returns the catalog entry for op. ok is false for an unknown
// opcode; callers in this module turn that into an IsaViolation.
func Lookup(op Opcode) (Details, bool) {
	d, ok := catalog[op]
	return d, ok
}

// MustLookup is a convenience for callers that have already validated op,
// e.g. tests constructing well-formed instructions by hand.
func MustLookup(op Opcode) Details {
	d, ok := catalog[op]
	if !ok {
		panic(fmt.Sprintf("isa: unknown opcode %v", op))
	}
	return d
}
