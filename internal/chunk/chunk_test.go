package chunk

import (
	"strings"
	"testing"

	"rlox/internal/value"
)

func TestWriteKeepsCodeAndLinesParity(t *testing.T) {
	c := New()
	c.Write(byte(OpNil), 1)
	c.Write(byte(OpReturn), 1)
	c.Write(byte(OpPop), 2)

	if len(c.Code) != len(c.Lines) {
		t.Fatalf("expected |Code| == |Lines|, got %d vs %d", len(c.Code), len(c.Lines))
	}
	if c.Lines[2] != 2 {
		t.Fatalf("expected third instruction on line 2, got %d", c.Lines[2])
	}
}

func TestAddConstantReturnsIndex(t *testing.T) {
	c := New()
	idx, ok := c.AddConstant(value.NewNumber(42))
	if !ok {
		t.Fatal("expected AddConstant to succeed below capacity")
	}
	if idx != 0 {
		t.Fatalf("expected first constant at index 0, got %d", idx)
	}
	idx2, ok := c.AddConstant(value.NewNumber(7))
	if !ok || idx2 != 1 {
		t.Fatalf("expected second constant at index 1, got %d (ok=%v)", idx2, ok)
	}
}

func TestAddConstantRejectsOverCapacity(t *testing.T) {
	c := New()
	for i := 0; i < maxConstants; i++ {
		if _, ok := c.AddConstant(value.NewNumber(float64(i))); !ok {
			t.Fatalf("unexpected overflow at constant %d", i)
		}
	}
	if _, ok := c.AddConstant(value.NewNumber(999)); ok {
		t.Fatal("expected the 257th constant to be rejected")
	}
}

func TestDisassembleSimpleInstruction(t *testing.T) {
	c := New()
	c.Write(byte(OpReturn), 1)
	out := c.Disassemble("test")
	if !strings.Contains(out, "OP_RETURN") {
		t.Fatalf("expected disassembly to mention OP_RETURN, got %q", out)
	}
}

func TestDisassembleConstantInstructionShowsValue(t *testing.T) {
	c := New()
	idx, _ := c.AddConstant(value.NewNumber(3))
	c.Write(byte(OpConstant), 1)
	c.Write(byte(idx), 1)
	out := c.Disassemble("test")
	if !strings.Contains(out, "OP_CONSTANT") || !strings.Contains(out, "'3'") {
		t.Fatalf("expected constant operand rendered, got %q", out)
	}
}

func TestDisassembleRepeatsLineOnlyOnce(t *testing.T) {
	c := New()
	c.Write(byte(OpNil), 5)
	c.Write(byte(OpReturn), 5)
	out := c.Disassemble("test")
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if !strings.Contains(lines[1], "5") {
		t.Fatalf("expected first instruction to show line 5, got %q", lines[1])
	}
	if !strings.Contains(lines[2], "|") {
		t.Fatalf("expected second instruction on the same line to print '|', got %q", lines[2])
	}
}

func TestDisassembleJumpShowsTarget(t *testing.T) {
	c := New()
	c.Write(byte(OpJumpIfFalse), 1)
	c.Write(0, 1)
	c.Write(3, 1)
	c.Write(byte(OpPop), 1)
	out := c.Disassemble("test")
	if !strings.Contains(out, "OP_JUMP_IF_FALSE") || !strings.Contains(out, "-> 6") {
		t.Fatalf("expected jump target 6, got %q", out)
	}
}
