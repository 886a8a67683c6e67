package vm

import (
	"bytes"
	"strings"
	"testing"

	"rlox/internal/compiler"
	"rlox/internal/value"
)

func run(t *testing.T, source string) (string, error) {
	t.Helper()
	interns := value.NewStringInterns()
	c, err := compiler.Compile(source, interns)
	if err != nil {
		t.Fatalf("unexpected compile error for %q: %v", source, err)
	}
	var out bytes.Buffer
	machine := New(interns)
	machine.Stdout = &out
	runErr := machine.Run(c)
	return out.String(), runErr
}

func TestArithmeticAndPrint(t *testing.T) {
	out, err := run(t, "print 1 + 2;")
	if err != nil {
		t.Fatalf("unexpected runtime error: %v", err)
	}
	if out != "3\n" {
		t.Fatalf("expected %q, got %q", "3\n", out)
	}
}

func TestStringConcatenation(t *testing.T) {
	out, err := run(t, `print "a" + "b";`)
	if err != nil {
		t.Fatalf("unexpected runtime error: %v", err)
	}
	if out != "ab\n" {
		t.Fatalf("expected %q, got %q", "ab\n", out)
	}
}

func TestAddTypeMismatchIsRuntimeError(t *testing.T) {
	out, err := run(t, `print 1 + "b";`)
	if out != "" {
		t.Fatalf("expected no stdout before the fault, got %q", out)
	}
	if err == nil {
		t.Fatal("expected a runtime error")
	}
	want := "Operands must be two numbers or two strings.\n[line 1] in script\n"
	if err.Error() != want {
		t.Fatalf("expected %q, got %q", want, err.Error())
	}
}

func TestGlobalAssignmentAndRead(t *testing.T) {
	out, err := run(t, "var a = 1; a = 2; print a;")
	if err != nil {
		t.Fatalf("unexpected runtime error: %v", err)
	}
	if out != "2\n" {
		t.Fatalf("expected %q, got %q", "2\n", out)
	}
}

func TestUndefinedGlobalReadIsRuntimeError(t *testing.T) {
	_, err := run(t, "print undefined_name;")
	if err == nil {
		t.Fatal("expected a runtime error")
	}
	if !strings.Contains(err.Error(), "Undefined variable 'undefined_name'.") {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestUndefinedGlobalAssignIsRuntimeError(t *testing.T) {
	_, err := run(t, "undefined_name = 1;")
	if err == nil {
		t.Fatal("expected a runtime error")
	}
	if !strings.Contains(err.Error(), "Undefined variable 'undefined_name'.") {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestBlockScopingShadowsAndRestores(t *testing.T) {
	out, err := run(t, "{ var x=1; { var x=2; print x; } print x; }")
	if err != nil {
		t.Fatalf("unexpected runtime error: %v", err)
	}
	if out != "2\n1\n" {
		t.Fatalf("expected %q, got %q", "2\n1\n", out)
	}
}

func TestWhileLoop(t *testing.T) {
	out, err := run(t, "var i=0; while (i<3) { print i; i = i+1; }")
	if err != nil {
		t.Fatalf("unexpected runtime error: %v", err)
	}
	if out != "0\n1\n2\n" {
		t.Fatalf("expected %q, got %q", "0\n1\n2\n", out)
	}
}

func TestForLoop(t *testing.T) {
	out, err := run(t, "for (var i=0;i<2;i=i+1) print i;")
	if err != nil {
		t.Fatalf("unexpected runtime error: %v", err)
	}
	if out != "0\n1\n" {
		t.Fatalf("expected %q, got %q", "0\n1\n", out)
	}
}

func TestShortCircuitAndOr(t *testing.T) {
	out, err := run(t, `print nil or "one"; print nil and "x"; print true and 3;`)
	if err != nil {
		t.Fatalf("unexpected runtime error: %v", err)
	}
	if out != "one\nnil\n3\n" {
		t.Fatalf("expected %q, got %q", "one\nnil\n3\n", out)
	}
}

func TestNegateNonNumberIsRuntimeError(t *testing.T) {
	_, err := run(t, `print -"a";`)
	if err == nil {
		t.Fatal("expected a runtime error")
	}
	if !strings.Contains(err.Error(), "Operand must be a number.") {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestFalseyness(t *testing.T) {
	out, err := run(t, "print !nil; print !false; print !true; print !0;")
	if err != nil {
		t.Fatalf("unexpected runtime error: %v", err)
	}
	if out != "true\ntrue\nfalse\nfalse\n" {
		t.Fatalf("expected %q, got %q", "true\ntrue\nfalse\nfalse\n", out)
	}
}
