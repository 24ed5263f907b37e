// Package core implements FunctionalCore, the PC/register-file/flags
// interpreter shared by every processor variant (spec.md §4.3). It is
// pure with respect to the outer scheduler: it never touches a Store
// directly, it only produces memtx.Request records for the caller to
// route to memory and hands back memtx.Response records for the caller
// to feed in.
package core

import (
	"math/bits"

	"github.com/soclab/socsim/codec"
	"github.com/soclab/socsim/instr"
	"github.com/soclab/socsim/isa"
	"github.com/soclab/socsim/memtx"
)

// FunctionalCore holds the state a processor variant drives through one
// fetch/decode/gather/execute/write-back cycle per instruction.
type FunctionalCore struct {
	pc        memtx.Address
	registers []int64
	flags     instr.Flags

	applicationsStarted    int
	applicationsTerminated int
}

// New creates a FunctionalCore with the given register-file size, which
// must be at least 1 (spec.md §3).
func New(numRegisters int) *FunctionalCore {
	if numRegisters < 1 {
		numRegisters = 1
	}
	return &FunctionalCore{registers: make([]int64, numRegisters)}
}

// PC returns the current program counter.
func (c *FunctionalCore) PC() memtx.Address { return c.pc }

// Flags returns the condition-flags register.
func (c *FunctionalCore) Flags() instr.Flags { return c.flags }

// Registers returns a snapshot of the register file.
func (c *FunctionalCore) Registers() []int64 {
	out := make([]int64, len(c.registers))
	copy(out, c.registers)
	return out
}

// TerminatedCount is the number of ENDPRGM instructions this core has
// retired.
func (c *FunctionalCore) TerminatedCount() int { return c.applicationsTerminated }

// StartedCount is the number of doorbells this core has accepted.
func (c *FunctionalCore) StartedCount() int { return c.applicationsStarted }

func (c *FunctionalCore) register(loc uint64) (int64, error) {
	if loc >= uint64(len(c.registers)) {
		return 0, newErr(RegisterOutOfRange, "register %d out of range (have %d)", loc, len(c.registers))
	}
	return c.registers[loc], nil
}

func (c *FunctionalCore) setRegister(loc uint64, v int64) error {
	if loc >= uint64(len(c.registers)) {
		return newErr(RegisterOutOfRange, "register %d out of range (have %d)", loc, len(c.registers))
	}
	c.registers[loc] = v
	return nil
}

// SetApplicationStart hands the core a new program's entry point.
// Precondition: PC == 0 (i.e. no application is currently running);
// violating it fails with DoorbellBusy.
func (c *FunctionalCore) SetApplicationStart(addr memtx.Address) error {
	if c.pc != 0 {
		return newErr(DoorbellBusy, "doorbell arrived while program counter is %d", c.pc)
	}
	c.applicationsStarted++
	c.pc = addr
	return nil
}

// Fetch produces the memory request for the instruction word at PC. It
// does not advance PC.
func (c *FunctionalCore) Fetch() memtx.Request {
	return memtx.Request{Type: memtx.READ, Address: c.pc, Size: 1, Status: memtx.PENDING}
}

// Decode turns a fetched instruction word into a partially-filled
// Instruction. It does not touch PC.
func (c *FunctionalCore) Decode(response memtx.Response) (instr.Instruction, error) {
	if len(response.Data) == 0 {
		return instr.Instruction{}, newErr(IsaViolation, "decode: empty instruction response")
	}
	ins, err := codec.Decode(response.Data[0])
	if err != nil {
		return instr.Instruction{}, newErr(IsaViolation, "%v", err)
	}
	return ins, nil
}

// GatherOperands advances PC past the instruction word, then walks each
// operand in slot order: REGISTER operands are resolved immediately from
// the register file; CONSTANT and INDIRECT_MEMORY_REGISTER operands are
// marked REQUESTED and a read request is emitted for each, in slot order;
// EMBEDDED operands are already GATHERED by Decode.
func (c *FunctionalCore) GatherOperands(in *instr.Instruction) ([]memtx.Request, error) {
	c.pc++

	var requests []memtx.Request
	for idx := range in.Operands {
		op := &in.Operands[idx]
		switch op.Source {
		case instr.REGISTER:
			v, err := c.register(op.Location)
			if err != nil {
				return requests, err
			}
			op.Value = v
			op.Status = instr.GATHERED
		case instr.CONSTANT:
			op.Status = instr.REQUESTED
			requests = append(requests, memtx.Request{
				Type: memtx.READ, Address: c.pc, Size: 1, Status: memtx.PENDING,
			})
			c.pc++
		case instr.INDIRECT_MEMORY_REGISTER:
			base, err := c.register(op.Location)
			if err != nil {
				return requests, err
			}
			op.Status = instr.REQUESTED
			requests = append(requests, memtx.Request{
				Type: memtx.READ, Address: memtx.Address(base), Size: 1, Status: memtx.PENDING,
			})
		case instr.EMBEDDED:
			// already GATHERED by Decode
		default:
			return requests, newErr(IsaViolation, "unknown operand source %v", op.Source)
		}
	}
	return requests, nil
}

// ProcessOperandResponses assigns each response, in order, to the next
// REQUESTED operand (left to right). Partial fills are legal; callers may
// invoke this repeatedly as responses trickle in.
func (c *FunctionalCore) ProcessOperandResponses(in *instr.Instruction, responses []memtx.Response) {
	for _, resp := range responses {
		idx := in.NextRequested()
		if idx < 0 {
			return
		}
		var v int64
		if len(resp.Data) > 0 {
			v = int64(resp.Data[0])
		}
		in.Operands[idx].Value = v
		in.Operands[idx].Status = instr.GATHERED
	}
}

// Execute dispatches to the instruction's class and writes in.Result.
func (c *FunctionalCore) Execute(in *instr.Instruction) error {
	details, ok := isa.Lookup(in.Opcode)
	if !ok {
		return newErr(IsaViolation, "unknown opcode %v", in.Opcode)
	}
	if len(in.Operands) != details.NumOperands {
		return newErr(IsaViolation, "%v expects %d operands, got %d", in.Opcode, details.NumOperands, len(in.Operands))
	}

	switch details.Class {
	case isa.MEMORY:
		return c.executeMemory(in)
	case isa.ALU:
		if err := c.executeALU(in); err != nil {
			return err
		}
		c.flags = in.Result.Flags
		return nil
	case isa.BRANCH:
		return c.executeBranch(in)
	default:
		return newErr(IsaViolation, "unknown opcode class for %v", in.Opcode)
	}
}

func (c *FunctionalCore) executeMemory(in *instr.Instruction) error {
	switch in.Opcode {
	case isa.MOVE:
		if len(in.Operands) != 1 {
			return newErr(IsaViolation, "MOVE requires exactly one operand")
		}
		in.Result.Value = in.Operands[0].Value
		return nil
	default:
		return newErr(IsaViolation, "%v is not a MEMORY opcode", in.Opcode)
	}
}

func additionOverflow(a, b int64) bool {
	sum := a + b
	if a > 0 && b > 0 && sum < 0 {
		return true
	}
	if a < 0 && b < 0 && sum > 0 {
		return true
	}
	return false
}

func subtractionOverflow(a, b int64) bool {
	diff := a - b
	if a > 0 && b < 0 && diff < 0 {
		return true
	}
	if a < 0 && b > 0 && diff > 0 {
		return true
	}
	return false
}

func multiplicationOverflow(a, b int64) bool {
	if a == 0 || b == 0 {
		return false
	}
	return a != (a*b)/b
}

func setArithmeticFlags(f *instr.Flags, value int64) {
	f.Sign = value < 0
	f.Zero = value == 0
	f.Parity = bits.OnesCount64(uint64(value)) == 32
}

func (c *FunctionalCore) executeALU(in *instr.Instruction) error {
	ops := in.Operands
	result := &in.Result

	switch in.Opcode {
	case isa.ADD:
		a, b := ops[0].Value, ops[1].Value
		result.Value = a + b
		result.Flags.Carry = additionOverflow(a, b)
	case isa.SUBTRACT:
		a, b := ops[0].Value, ops[1].Value
		result.Value = a - b
		result.Flags.Carry = subtractionOverflow(a, b)
	case isa.MULTIPLY:
		a, b := ops[0].Value, ops[1].Value
		result.Value = a * b
		result.Flags.Carry = multiplicationOverflow(a, b)
	case isa.DIVIDE:
		a, b := ops[0].Value, ops[1].Value
		if b == 0 {
			return newErr(DivideByZero, "DIVIDE by zero")
		}
		result.Value = a / b
		result.Flags.Carry = false
	case isa.INCREMENT:
		a := ops[0].Value
		result.Value = a + 1
		result.Flags.Carry = a > result.Value
	case isa.DECREMENT:
		a := ops[0].Value
		result.Value = a - 1
		result.Flags.Carry = a < result.Value
	case isa.COMPARE:
		a, b := ops[0].Value, ops[1].Value
		switch {
		case a == b:
			result.Flags.Zero = true
			result.Flags.Carry = false
		case a < b:
			result.Flags.Zero = false
			result.Flags.Carry = true
		default:
			result.Flags.Zero = false
			result.Flags.Carry = false
		}
		return nil
	default:
		return newErr(IsaViolation, "%v is not an ALU opcode", in.Opcode)
	}

	setArithmeticFlags(&result.Flags, result.Value)
	return nil
}

func (c *FunctionalCore) executeBranch(in *instr.Instruction) error {
	switch in.Opcode {
	case isa.JUMP:
		c.pc = memtx.Address(in.Operands[0].Value)
		return nil
	case isa.JUMP_LESS:
		if c.flags.Carry {
			c.pc = memtx.Address(in.Operands[0].Value)
		}
		return nil
	case isa.ENDPRGM:
		c.applicationsTerminated++
		c.pc = 0
		return nil
	case isa.CALL, isa.RETURN:
		return newErr(IsaViolation, "%v has no stack semantics in this core", in.Opcode)
	default:
		return newErr(IsaViolation, "%v is not a BRANCH opcode", in.Opcode)
	}
}

// WriteBack commits in.Result to the register file (RESULT_REGISTER) or
// produces the single write request needed to commit it to memory
// (RESULT_MEMORY). A NONE result produces no requests.
func (c *FunctionalCore) WriteBack(in *instr.Instruction) ([]memtx.Request, error) {
	switch in.Result.Dest {
	case instr.RESULT_REGISTER:
		if err := c.setRegister(in.Result.Location, in.Result.Value); err != nil {
			return nil, err
		}
		return nil, nil
	case instr.RESULT_MEMORY:
		return []memtx.Request{{
			Type:    memtx.WRITE,
			Address: memtx.Address(in.Result.Location),
			Size:    1,
			Data:    []memtx.Data{uint64(in.Result.Value)},
			Status:  memtx.PENDING,
		}}, nil
	case instr.NONE:
		return nil, nil
	default:
		return nil, newErr(IsaViolation, "unknown result destination %v", in.Result.Dest)
	}
}
