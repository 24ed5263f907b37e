// Package codec encodes Instructions to 64-bit memory words and decodes
// fetched words back into partially-filled Instructions, per spec.md §4.2
// and §6.
package codec

import (
	"fmt"

	"github.com/soclab/socsim/instr"
	"github.com/soclab/socsim/isa"
	"github.com/soclab/socsim/memtx"
)

// sourceBits is the 2-bit encoding of an Operand's source type within its
// byte of the operand-type field.
func sourceBits(s instr.OperandSource) uint64 {
	switch s {
	case instr.REGISTER:
		return 0b00
	case instr.CONSTANT:
		return 0b01
	case instr.INDIRECT_MEMORY_REGISTER:
		return 0b10
	case instr.EMBEDDED:
		return 0b11
	default:
		panic(fmt.Sprintf("codec: unknown operand source %v", s))
	}
}

func sourceFromBits(b uint64) instr.OperandSource {
	switch b & 0x3 {
	case 0b00:
		return instr.REGISTER
	case 0b01:
		return instr.CONSTANT
	case 0b10:
		return instr.INDIRECT_MEMORY_REGISTER
	default:
		return instr.EMBEDDED
	}
}

// Encode lays an Instruction out as one or more 64-bit words: word 0 holds
// the opcode, operand/result type bytes and metadata bytes, and one
// trailing word per CONSTANT operand (in operand order) holds that
// operand's literal value.
func Encode(i instr.Instruction) []memtx.Data {
	var word uint64
	word |= uint64(i.Opcode) & 0xFFFF

	for slot, op := range i.Operands {
		if slot > 1 {
			break
		}
		typeByte := sourceBits(op.Source)
		word |= typeByte << (16 + 8*uint(slot))

		var meta uint64
		switch op.Source {
		case instr.REGISTER, instr.INDIRECT_MEMORY_REGISTER:
			meta = op.Location & 0xFF
		case instr.EMBEDDED:
			meta = uint64(op.Value) & 0xFF
		case instr.CONSTANT:
			meta = 0
		}
		word |= meta << (40 + 8*uint(slot))
	}

	var resultByte uint64
	switch i.Result.Dest {
	case instr.RESULT_REGISTER:
		resultByte = 0b01
	case instr.RESULT_MEMORY:
		resultByte = 0b10
	case instr.NONE:
		resultByte = 0
	}
	word |= resultByte << 32

	if i.Result.Dest != instr.NONE {
		word |= (i.Result.Location & 0xFF) << 56
	}

	words := []memtx.Data{word}
	for _, op := range i.Operands {
		if op.Source == instr.CONSTANT {
			words = append(words, uint64(op.Value))
		}
	}
	return words
}

// Decode turns a fetched word into a partially-filled Instruction: opcode,
// per-operand source/status/location (or embedded value), and result
// dest/location are all populated. CONSTANT operands are left without a
// value — GatherOperands issues the memory read that resolves them.
//
// Decode fails with an isa violation if the word names an unknown opcode.
func Decode(word memtx.Data) (instr.Instruction, error) {
	op := isa.Opcode(word & 0xFFFF)
	details, ok := isa.Lookup(op)
	if !ok {
		return instr.Instruction{}, fmt.Errorf("codec: unknown opcode 0x%04X", uint16(op))
	}

	out := instr.Instruction{
		Opcode:   op,
		Operands: make([]instr.Operand, details.NumOperands),
	}

	operandTypeField := word >> 16
	metaField := word >> 40

	constants := 0
	for slot := 0; slot < details.NumOperands; slot++ {
		typeByte := (operandTypeField >> (8 * uint(slot))) & 0xFF
		meta := (metaField >> (8 * uint(slot))) & 0xFF
		source := sourceFromBits(typeByte)

		operand := instr.Operand{Source: source, Status: instr.DECODED}
		switch source {
		case instr.REGISTER, instr.INDIRECT_MEMORY_REGISTER:
			operand.Location = meta
		case instr.CONSTANT:
			constants++
		case instr.EMBEDDED:
			operand.Value = int64(int8(meta))
			operand.Status = instr.GATHERED
		}
		out.Operands[slot] = operand
	}

	resultByte := (word >> 32) & 0xFF
	switch {
	case resultByte&0x1 != 0:
		out.Result.Dest = instr.RESULT_REGISTER
	case resultByte&0x2 != 0:
		out.Result.Dest = instr.RESULT_MEMORY
	default:
		out.Result.Dest = instr.NONE
	}
	out.Result.Location = (word >> 56) & 0xFF

	out.Size = uint8(1 + constants)
	return out, nil
}
