// Package vm implements the bytecode dispatch loop: a fixed-size value
// stack, a persistent globals table, and the runtime-error reporting
// contract (spec §4.6, §5). Grounded on the teacher's VM struct
// (internal/vm/vm.go in estevaofon-noxy) for shape and on
// original_source/src/vm.rs for exact per-opcode semantics and error
// wording.
package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"rlox/internal/chunk"
	"rlox/internal/value"
)

// StackMax is the value stack's fixed capacity (spec §3/§5). Exceeding
// it is a programmer/test-authoring error, not a recoverable runtime
// fault, so it panics rather than returning an error.
const StackMax = 256

// VM is reusable across many Run calls; Globals and the shared interner
// persist for the lifetime of a REPL session (spec §5's "globals persist
// across calls").
type VM struct {
	chunk *chunk.Chunk
	ip    int

	stack    [StackMax]value.Value
	stackTop int

	Globals map[string]value.Value
	interns *value.StringInterns

	Stdout io.Writer
	Trace  bool
}

func New(interns *value.StringInterns) *VM {
	return &VM{
		Globals: make(map[string]value.Value),
		interns: interns,
		Stdout:  os.Stdout,
	}
}

// Run executes c to completion or to its first runtime fault. The value
// stack is reset on entry; Globals and the interner carry over from any
// previous Run on this VM.
func (vm *VM) Run(c *chunk.Chunk) error {
	vm.chunk = c
	vm.ip = 0
	vm.stackTop = 0
	return vm.run()
}

func (vm *VM) run() error {
	for {
		if vm.Trace {
			vm.traceStep()
		}

		op := chunk.OpCode(vm.readByte())
		switch op {
		case chunk.OpReturn:
			return nil
		case chunk.OpConstant:
			vm.push(vm.readConstant())
		case chunk.OpNil:
			vm.push(value.NewNil())
		case chunk.OpTrue:
			vm.push(value.NewBool(true))
		case chunk.OpFalse:
			vm.push(value.NewBool(false))
		case chunk.OpPop:
			vm.pop()
		case chunk.OpPrint:
			fmt.Fprintf(vm.Stdout, "%s\n", vm.pop())
		case chunk.OpDefineGlobal:
			name := vm.readConstant().Str.Text
			vm.Globals[name] = vm.pop()
		case chunk.OpGetGlobal:
			name := vm.readConstant().Str.Text
			v, ok := vm.Globals[name]
			if !ok {
				return vm.runtimeError("Undefined variable '%s'.", name)
			}
			vm.push(v)
		case chunk.OpSetGlobal:
			name := vm.readConstant().Str.Text
			if _, ok := vm.Globals[name]; !ok {
				return vm.runtimeError("Undefined variable '%s'.", name)
			}
			vm.Globals[name] = vm.peek(0)
		case chunk.OpGetLocal:
			slot := vm.readByte()
			vm.push(vm.stack[slot])
		case chunk.OpSetLocal:
			slot := vm.readByte()
			vm.stack[slot] = vm.peek(0)
		case chunk.OpJump:
			offset := vm.readShort()
			vm.ip += int(offset)
		case chunk.OpJumpIfFalse:
			offset := vm.readShort()
			if vm.peek(0).IsFalsey() {
				vm.ip += int(offset)
			}
		case chunk.OpLoop:
			offset := vm.readShort()
			vm.ip -= int(offset)
		case chunk.OpNegate:
			if vm.peek(0).Kind != value.KindNumber {
				return vm.runtimeError("Operand must be a number.")
			}
			vm.push(value.NewNumber(-vm.pop().Number))
		case chunk.OpNot:
			vm.push(value.NewBool(vm.pop().IsFalsey()))
		case chunk.OpEqual:
			b, a := vm.pop(), vm.pop()
			vm.push(value.NewBool(a.Equal(b)))
		case chunk.OpGreater:
			if err := vm.comparison(func(a, b float64) bool { return a > b }); err != nil {
				return err
			}
		case chunk.OpLess:
			if err := vm.comparison(func(a, b float64) bool { return a < b }); err != nil {
				return err
			}
		case chunk.OpAdd:
			if err := vm.add(); err != nil {
				return err
			}
		case chunk.OpSubtract:
			if err := vm.arithmetic(func(a, b float64) float64 { return a - b }); err != nil {
				return err
			}
		case chunk.OpMultiply:
			if err := vm.arithmetic(func(a, b float64) float64 { return a * b }); err != nil {
				return err
			}
		case chunk.OpDivide:
			if err := vm.arithmetic(func(a, b float64) float64 { return a / b }); err != nil {
				return err
			}
		default:
			return &InvalidOpcodeError{Code: byte(op)}
		}
	}
}

/* Binary operator helpers. Right operand is popped first, then left
(spec §4.6). */

func (vm *VM) arithmetic(apply func(a, b float64) float64) error {
	if vm.peek(0).Kind != value.KindNumber || vm.peek(1).Kind != value.KindNumber {
		return vm.runtimeError("Operands must be numbers.")
	}
	b := vm.pop().Number
	a := vm.pop().Number
	vm.push(value.NewNumber(apply(a, b)))
	return nil
}

func (vm *VM) comparison(apply func(a, b float64) bool) error {
	if vm.peek(0).Kind != value.KindNumber || vm.peek(1).Kind != value.KindNumber {
		return vm.runtimeError("Operands must be numbers.")
	}
	b := vm.pop().Number
	a := vm.pop().Number
	vm.push(value.NewBool(apply(a, b)))
	return nil
}

// add diverges from the other binary operators: Number+Number adds,
// String+String concatenates (interning the result), anything else
// fails (spec §4.2/§4.6).
func (vm *VM) add() error {
	if vm.peek(0).Kind == value.KindNumber && vm.peek(1).Kind == value.KindNumber {
		b := vm.pop().Number
		a := vm.pop().Number
		vm.push(value.NewNumber(a + b))
		return nil
	}
	if vm.peek(0).Kind == value.KindString && vm.peek(1).Kind == value.KindString {
		b := vm.pop().Str.Text
		a := vm.pop().Str.Text
		vm.push(vm.interns.BuildStringValue(a + b))
		return nil
	}
	return vm.runtimeError("Operands must be two numbers or two strings.")
}

/* Stack */

func (vm *VM) push(v value.Value) {
	if vm.stackTop >= StackMax {
		panic("rlox: value stack overflow")
	}
	vm.stack[vm.stackTop] = v
	vm.stackTop++
}

func (vm *VM) pop() value.Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[vm.stackTop-1-distance]
}

/* Instruction stream */

func (vm *VM) readByte() byte {
	b := vm.chunk.Code[vm.ip]
	vm.ip++
	return b
}

func (vm *VM) readShort() uint16 {
	hi := vm.chunk.Code[vm.ip]
	lo := vm.chunk.Code[vm.ip+1]
	vm.ip += 2
	return uint16(hi)<<8 | uint16(lo)
}

func (vm *VM) readConstant() value.Value {
	return vm.chunk.Constants[vm.readByte()]
}

// runtimeError reports the line of the instruction just executed
// (ip-1), one of two source-consistent choices spec §9 leaves open.
func (vm *VM) runtimeError(format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	line := 0
	if idx := vm.ip - 1; idx >= 0 && idx < len(vm.chunk.Lines) {
		line = vm.chunk.Lines[idx]
	}
	return &RuntimeError{Line: line, Message: msg}
}

func (vm *VM) traceStep() {
	var stackDump string
	for i := 0; i < vm.stackTop; i++ {
		stackDump += fmt.Sprintf("[ %s ]", vm.stack[i])
	}
	instr, _ := vm.chunk.DisassembleInstruction(vm.ip)
	logrus.Debugf("%s%s", stackDump, instr)
}
