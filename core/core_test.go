package core

import (
	"errors"
	"testing"

	"github.com/soclab/socsim/codec"
	"github.com/soclab/socsim/instr"
	"github.com/soclab/socsim/isa"
	"github.com/soclab/socsim/memtx"
)

func fetchDecode(t *testing.T, c *FunctionalCore, store map[memtx.Address]memtx.Data) instr.Instruction {
	t.Helper()
	req := c.Fetch()
	in, err := c.Decode(memtx.Response{Request: req, Data: []memtx.Data{store[req.Address]}})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return in
}

// TestPCAdvancesPastOperands is spec.md §8 invariant 2.
func TestPCAdvancesPastOperands(t *testing.T) {
	c := New(4)
	if err := c.SetApplicationStart(0); err != nil {
		t.Fatalf("SetApplicationStart: %v", err)
	}

	in := instr.Instruction{
		Opcode: isa.ADD,
		Operands: []instr.Operand{
			{Source: instr.EMBEDDED, Value: 2},
			{Source: instr.EMBEDDED, Value: 3},
		},
		Result: instr.Result{Dest: instr.RESULT_REGISTER, Location: 0},
	}
	store := map[memtx.Address]memtx.Data{0: codec.Encode(in)[0]}

	decoded := fetchDecode(t, c, store)
	if _, err := c.GatherOperands(&decoded); err != nil {
		t.Fatalf("GatherOperands: %v", err)
	}
	if c.PC() != 1 {
		t.Fatalf("PC = %d, want 1 (one word instruction, no CONSTANT operands)", c.PC())
	}
}

func TestGatherOperandsAdvancesPastConstantLiterals(t *testing.T) {
	c := New(4)
	c.SetApplicationStart(0)

	in := instr.Instruction{
		Opcode:   isa.COMPARE,
		Operands: []instr.Operand{{Source: instr.REGISTER, Location: 0}, {Source: instr.CONSTANT, Value: 7}},
	}
	words := codec.Encode(in)
	store := map[memtx.Address]memtx.Data{0: words[0], 1: words[1]}

	decoded := fetchDecode(t, c, store)
	requests, err := c.GatherOperands(&decoded)
	if err != nil {
		t.Fatalf("GatherOperands: %v", err)
	}
	if len(requests) != 1 {
		t.Fatalf("expected 1 request for the CONSTANT operand, got %d", len(requests))
	}
	if requests[0].Size != 1 {
		t.Fatalf("CONSTANT operand request size = %d, want 1 (spec.md §9: not the source's buggy size=0)", requests[0].Size)
	}
	if c.PC() != 2 {
		t.Fatalf("PC = %d, want 2 (instruction word + constant literal word)", c.PC())
	}
}

// TestArithmeticFlagsAndOverflow is spec.md §8 invariants 3 and 4.
func TestArithmeticFlagsAndOverflow(t *testing.T) {
	c := New(2)
	c.SetApplicationStart(0)

	in := instr.Instruction{
		Opcode: isa.ADD,
		Operands: []instr.Operand{
			{Source: instr.EMBEDDED, Value: 9223372036854775807}, // max int64
			{Source: instr.EMBEDDED, Value: 1},
		},
		Result: instr.Result{Dest: instr.RESULT_REGISTER, Location: 0},
	}
	if err := c.Execute(&in); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !in.Result.Flags.Carry {
		t.Fatal("ADD overflowing int64 should set Carry")
	}
	if !in.Result.Flags.Sign {
		t.Fatal("overflowed sum should be negative (wrapped), Sign should be set")
	}
}

func TestDivideByZero(t *testing.T) {
	c := New(2)
	in := instr.Instruction{
		Opcode: isa.DIVIDE,
		Operands: []instr.Operand{
			{Source: instr.EMBEDDED, Value: 10},
			{Source: instr.EMBEDDED, Value: 0},
		},
		Result: instr.Result{Dest: instr.RESULT_REGISTER, Location: 0},
	}
	err := c.Execute(&in)
	if !errors.Is(err, ErrDivideByZero) {
		t.Fatalf("Execute(DIVIDE by 0) = %v, want DivideByZero", err)
	}
}

func TestWriteBackMemoryDoesNotFallThroughToNone(t *testing.T) {
	// Regression for the source's missing break in write_back's MEMORY
	// case (spec.md §9).
	c := New(1)
	in := instr.Instruction{Result: instr.Result{Dest: instr.RESULT_MEMORY, Location: 5, Value: 42}}
	requests, err := c.WriteBack(&in)
	if err != nil {
		t.Fatalf("WriteBack: %v", err)
	}
	if len(requests) != 1 {
		t.Fatalf("WriteBack(MEMORY) produced %d requests, want 1", len(requests))
	}
	if requests[0].Type != memtx.WRITE || requests[0].Address != 5 {
		t.Fatalf("WriteBack(MEMORY) request = %+v, want a WRITE to address 5", requests[0])
	}
}

func TestRegisterOutOfRange(t *testing.T) {
	c := New(1)
	in := instr.Instruction{Result: instr.Result{Dest: instr.RESULT_REGISTER, Location: 5}}
	_, err := c.WriteBack(&in)
	if !errors.Is(err, ErrRegisterOutOfRange) {
		t.Fatalf("WriteBack to register 5 of a 1-register file = %v, want RegisterOutOfRange", err)
	}
}

func TestSetApplicationStartRejectsBusyDoorbell(t *testing.T) {
	c := New(1)
	if err := c.SetApplicationStart(10); err != nil {
		t.Fatalf("first SetApplicationStart: %v", err)
	}
	err := c.SetApplicationStart(20)
	if !errors.Is(err, ErrDoorbellBusy) {
		t.Fatalf("second SetApplicationStart (PC != 0) = %v, want DoorbellBusy", err)
	}
}

func TestCallAndReturnFailIsaViolation(t *testing.T) {
	c := New(1)
	for _, op := range []isa.Opcode{isa.CALL, isa.RETURN} {
		in := instr.Instruction{Opcode: op, Operands: make([]instr.Operand, isa.MustLookup(op).NumOperands)}
		for i := range in.Operands {
			in.Operands[i] = instr.Operand{Source: instr.EMBEDDED, Value: 1}
		}
		err := c.Execute(&in)
		if !errors.Is(err, ErrIsaViolation) {
			t.Fatalf("Execute(%v) = %v, want IsaViolation (no stack semantics implemented)", op, err)
		}
	}
}

func TestJumpIsUnconditional(t *testing.T) {
	c := New(1)
	in := instr.Instruction{Opcode: isa.JUMP, Operands: []instr.Operand{{Source: instr.EMBEDDED, Value: 77}}}
	if err := c.Execute(&in); err != nil {
		t.Fatalf("Execute(JUMP): %v", err)
	}
	if c.PC() != 77 {
		t.Fatalf("PC = %d, want 77", c.PC())
	}
}

func TestEndprgmRetiresApplicationAndResetsPC(t *testing.T) {
	c := New(1)
	c.SetApplicationStart(50)
	in := instr.Instruction{Opcode: isa.ENDPRGM}
	if err := c.Execute(&in); err != nil {
		t.Fatalf("Execute(ENDPRGM): %v", err)
	}
	if c.TerminatedCount() != 1 {
		t.Fatalf("TerminatedCount = %d, want 1", c.TerminatedCount())
	}
	if c.PC() != 0 {
		t.Fatalf("PC after ENDPRGM = %d, want 0 (doorbell free again)", c.PC())
	}
}
