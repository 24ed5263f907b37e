package app

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/soclab/socsim/instr"
	"github.com/soclab/socsim/isa"
	"github.com/soclab/socsim/memtx"
)

// Script is a Lua front end for authoring programs (SPEC_FULL.md §4.11),
// giving the teacher's gopher-lua dependency a home: application
// components that synthesize encoded programs are exactly the kind of
// thing a small embedded scripting language fits.
//
// A script builds instructions with operand constructors (embedded,
// register, constant, indirect) and opcode functions (add2, add1,
// subtract, multiply, divide, decrement, compare, move, jump, jump_less,
// endprgm), then commits each one with :to_register(n), :to_memory(addr),
// or plain emit() for instructions with no result. For example:
//
//	emit(add2(embedded(2), embedded(3)):to_register(0))
//	emit(endprgm())
type Script struct {
	builder *Builder
}

// NewScript wraps a Builder for Lua-authored programs.
func NewScript(b *Builder) *Script {
	return &Script{builder: b}
}

// pendingInstruction is the userdata value passed around a script between
// an opcode function and the to_register/to_memory/emit call that
// finalizes it.
type pendingInstruction struct {
	in instr.Instruction
}

// Run executes source and returns the address of the program it emitted.
func (s *Script) Run(source string) (memtx.Address, error) {
	L := lua.NewState()
	defer L.Close()

	var program []instr.Instruction

	registerOperand := func(kind instr.OperandSource, takesLocation bool) lua.LGFunction {
		return func(L *lua.LState) int {
			n := L.CheckNumber(1)
			op := instr.Operand{Source: kind}
			if takesLocation {
				op.Location = uint64(n)
			} else {
				op.Value = int64(n)
			}
			ud := L.NewUserData()
			ud.Value = op
			L.Push(ud)
			return 1
		}
	}
	L.SetGlobal("embedded", L.NewFunction(registerOperand(instr.EMBEDDED, false)))
	L.SetGlobal("constant", L.NewFunction(registerOperand(instr.CONSTANT, false)))
	L.SetGlobal("register", L.NewFunction(registerOperand(instr.REGISTER, true)))
	L.SetGlobal("indirect", L.NewFunction(registerOperand(instr.INDIRECT_MEMORY_REGISTER, true)))

	operandAt := func(L *lua.LState, idx int) (instr.Operand, error) {
		ud := L.CheckUserData(idx)
		op, ok := ud.Value.(instr.Operand)
		if !ok {
			return instr.Operand{}, fmt.Errorf("app: argument %d is not an operand", idx)
		}
		return op, nil
	}

	instructionMethods := L.NewTable()
	instructionMT := L.NewTable()
	instructionMT.RawSetString("__index", instructionMethods)

	opcodeFunc := func(op isa.Opcode, numOperands int) lua.LGFunction {
		return func(L *lua.LState) int {
			in := instr.Instruction{Opcode: op}
			for i := 1; i <= numOperands; i++ {
				operand, err := operandAt(L, i)
				if err != nil {
					L.RaiseError("%v", err)
					return 0
				}
				in.Operands = append(in.Operands, operand)
			}
			ud := L.NewUserData()
			ud.Value = &pendingInstruction{in: in}
			ud.Metatable = instructionMT
			L.Push(ud)
			return 1
		}
	}
	L.SetGlobal("add2", L.NewFunction(opcodeFunc(isa.ADD, 2)))
	L.SetGlobal("add1", L.NewFunction(opcodeFunc(isa.INCREMENT, 1)))
	L.SetGlobal("subtract", L.NewFunction(opcodeFunc(isa.SUBTRACT, 2)))
	L.SetGlobal("multiply", L.NewFunction(opcodeFunc(isa.MULTIPLY, 2)))
	L.SetGlobal("divide", L.NewFunction(opcodeFunc(isa.DIVIDE, 2)))
	L.SetGlobal("decrement", L.NewFunction(opcodeFunc(isa.DECREMENT, 1)))
	L.SetGlobal("compare", L.NewFunction(opcodeFunc(isa.COMPARE, 2)))
	L.SetGlobal("move", L.NewFunction(opcodeFunc(isa.MOVE, 1)))
	L.SetGlobal("jump", L.NewFunction(opcodeFunc(isa.JUMP, 1)))
	L.SetGlobal("jump_less", L.NewFunction(opcodeFunc(isa.JUMP_LESS, 1)))
	L.SetGlobal("endprgm", L.NewFunction(opcodeFunc(isa.ENDPRGM, 0)))

	pendingAt := func(L *lua.LState, idx int) (*pendingInstruction, error) {
		ud := L.CheckUserData(idx)
		p, ok := ud.Value.(*pendingInstruction)
		if !ok {
			return nil, fmt.Errorf("app: argument %d is not an instruction", idx)
		}
		return p, nil
	}

	commitTo := func(dest instr.ResultDest) lua.LGFunction {
		return func(L *lua.LState) int {
			p, err := pendingAt(L, 1)
			if err != nil {
				L.RaiseError("%v", err)
				return 0
			}
			loc := L.CheckNumber(2)
			p.in.Result.Dest = dest
			p.in.Result.Location = uint64(loc)
			program = append(program, p.in)
			L.Push(L.Get(1))
			return 1
		}
	}
	instructionMethods.RawSetString("to_register", L.NewFunction(commitTo(instr.RESULT_REGISTER)))
	instructionMethods.RawSetString("to_memory", L.NewFunction(commitTo(instr.RESULT_MEMORY)))

	L.SetGlobal("emit", L.NewFunction(func(L *lua.LState) int {
		p, err := pendingAt(L, 1)
		if err != nil {
			L.RaiseError("%v", err)
			return 0
		}
		if p.in.Result.Dest == instr.NONE {
			program = append(program, p.in)
		}
		return 0
	}))

	if err := L.DoString(source); err != nil {
		return 0, fmt.Errorf("app: script error: %w", err)
	}
	if len(program) == 0 {
		return 0, fmt.Errorf("app: script emitted no instructions")
	}

	return s.builder.Emit(program...), nil
}
