package codec

import (
	"testing"

	"github.com/soclab/socsim/instr"
	"github.com/soclab/socsim/isa"
)

// TestEncodeDecodeRoundTrip is spec.md §8 invariant 1: decode(encode(i))
// reproduces every field Decode is responsible for populating.
func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []instr.Instruction{
		{
			Opcode: isa.ADD,
			Operands: []instr.Operand{
				{Source: instr.EMBEDDED, Value: 2},
				{Source: instr.EMBEDDED, Value: 3},
			},
			Result: instr.Result{Dest: instr.RESULT_REGISTER, Location: 4},
		},
		{
			Opcode: isa.MOVE,
			Operands: []instr.Operand{
				{Source: instr.INDIRECT_MEMORY_REGISTER, Location: 1},
			},
			Result: instr.Result{Dest: instr.RESULT_MEMORY, Location: 9},
		},
		{
			Opcode: isa.INCREMENT,
			Operands: []instr.Operand{
				{Source: instr.REGISTER, Location: 3},
			},
			Result: instr.Result{Dest: instr.RESULT_REGISTER, Location: 3},
		},
		{
			Opcode:   isa.COMPARE,
			Operands: []instr.Operand{{Source: instr.REGISTER, Location: 1}, {Source: instr.CONSTANT, Value: 42}},
		},
		{Opcode: isa.ENDPRGM},
	}

	for _, in := range cases {
		words := Encode(in)
		if len(words) == 0 {
			t.Fatalf("Encode(%+v) produced no words", in)
		}
		out, err := Decode(words[0])
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if out.Opcode != in.Opcode {
			t.Errorf("opcode = %v, want %v", out.Opcode, in.Opcode)
		}
		if len(out.Operands) != len(in.Operands) {
			t.Fatalf("operand count = %d, want %d", len(out.Operands), len(in.Operands))
		}
		for i, op := range in.Operands {
			got := out.Operands[i]
			if got.Source != op.Source {
				t.Errorf("operand %d source = %v, want %v", i, got.Source, op.Source)
			}
			switch op.Source {
			case instr.REGISTER, instr.INDIRECT_MEMORY_REGISTER:
				if got.Location != op.Location {
					t.Errorf("operand %d location = %d, want %d", i, got.Location, op.Location)
				}
			case instr.EMBEDDED:
				if got.Value != op.Value {
					t.Errorf("operand %d embedded value = %d, want %d", i, got.Value, op.Value)
				}
			}
		}
		if out.Result.Dest != in.Result.Dest {
			t.Errorf("result dest = %v, want %v", out.Result.Dest, in.Result.Dest)
		}
		if in.Result.Dest != instr.NONE && out.Result.Location != in.Result.Location {
			t.Errorf("result location = %d, want %d", out.Result.Location, in.Result.Location)
		}
	}
}

func TestEncodeConstantOperandAppendsTrailingWord(t *testing.T) {
	in := instr.Instruction{
		Opcode:   isa.COMPARE,
		Operands: []instr.Operand{{Source: instr.REGISTER, Location: 0}, {Source: instr.CONSTANT, Value: 99}},
	}
	words := Encode(in)
	if len(words) != 2 {
		t.Fatalf("expected 2 words (1 header + 1 constant literal), got %d", len(words))
	}
	if int64(words[1]) != 99 {
		t.Errorf("trailing constant word = %d, want 99", int64(words[1]))
	}
}

func TestDecodeUnknownOpcode(t *testing.T) {
	if _, err := Decode(0xFFFE); err == nil {
		t.Fatal("Decode of an unassigned opcode should fail")
	}
}
