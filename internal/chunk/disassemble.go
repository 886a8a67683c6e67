package chunk

import "fmt"

// Disassemble returns a human-readable listing of every instruction in c,
// grounded on the teacher's Chunk.Disassemble / disassembleInstruction
// pair (spec §4.5). It returns text instead of printing directly so the
// driver's --disassemble flag and tests can both consume it.
func (c *Chunk) Disassemble(name string) string {
	var out string
	out += fmt.Sprintf("== %s ==\n", name)
	for offset := 0; offset < len(c.Code); {
		line, next := c.disassembleInstruction(offset)
		out += line
		offset = next
	}
	return out
}

// DisassembleInstruction renders just the instruction at offset, for the
// VM's debug-trace mode (spec §4.6), and returns the offset of the next
// one.
func (c *Chunk) DisassembleInstruction(offset int) (string, int) {
	return c.disassembleInstruction(offset)
}

// disassembleInstruction renders the instruction at offset and returns
// the offset of the next one.
func (c *Chunk) disassembleInstruction(offset int) (string, int) {
	prefix := fmt.Sprintf("%04d ", offset)
	if offset > 0 && c.Lines[offset] == c.Lines[offset-1] {
		prefix += "   | "
	} else {
		prefix += fmt.Sprintf("%4d ", c.Lines[offset])
	}

	op := OpCode(c.Code[offset])
	switch op {
	case OpReturn, OpNil, OpTrue, OpFalse, OpPop, OpPrint, OpNegate, OpNot,
		OpEqual, OpGreater, OpLess, OpAdd, OpSubtract, OpMultiply, OpDivide:
		return c.simpleInstruction(prefix, op, offset)
	case OpConstant, OpDefineGlobal, OpGetGlobal, OpSetGlobal:
		return c.constantInstruction(prefix, op, offset)
	case OpGetLocal, OpSetLocal:
		return c.byteInstruction(prefix, op, offset)
	case OpJump, OpJumpIfFalse, OpLoop:
		return c.jumpInstruction(prefix, op, offset)
	default:
		return fmt.Sprintf("%sUnknown opcode %d\n", prefix, op), offset + 1
	}
}

func (c *Chunk) simpleInstruction(prefix string, op OpCode, offset int) (string, int) {
	return fmt.Sprintf("%s%s\n", prefix, op), offset + 1
}

func (c *Chunk) constantInstruction(prefix string, op OpCode, offset int) (string, int) {
	constant := c.Code[offset+1]
	return fmt.Sprintf("%s%-16s %4d '%s'\n", prefix, op, constant, c.Constants[constant]), offset + 2
}

func (c *Chunk) byteInstruction(prefix string, op OpCode, offset int) (string, int) {
	slot := c.Code[offset+1]
	return fmt.Sprintf("%s%-16s %4d\n", prefix, op, slot), offset + 2
}

// jumpInstruction decodes the big-endian 16-bit operand written by
// emitJump/emitLoop and reports the absolute target offset, matching the
// sign convention of each op: forward jumps add, OpLoop subtracts
// (spec §4.4's jump-patching protocol).
func (c *Chunk) jumpInstruction(prefix string, op OpCode, offset int) (string, int) {
	jump := int(c.Code[offset+1])<<8 | int(c.Code[offset+2])
	sign := 1
	if op == OpLoop {
		sign = -1
	}
	target := offset + 3 + sign*jump
	return fmt.Sprintf("%s%-16s %4d -> %d\n", prefix, op, offset, target), offset + 3
}
