package compiler

import (
	"strings"
	"testing"

	"rlox/internal/value"
)

func TestCompileSimpleExpressionStatement(t *testing.T) {
	c, err := Compile("print 1 + 2;", value.NewStringInterns())
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	if len(c.Code) == 0 {
		t.Fatal("expected non-empty bytecode")
	}
}

func TestCompileCodeLinesParity(t *testing.T) {
	c, err := Compile("var a = 1;\nvar b = 2;\nprint a + b;", value.NewStringInterns())
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	if len(c.Code) != len(c.Lines) {
		t.Fatalf("expected |code| == |lines|, got %d vs %d", len(c.Code), len(c.Lines))
	}
}

func TestCompileInvalidAssignmentTarget(t *testing.T) {
	_, err := Compile("a + b = c;", value.NewStringInterns())
	if err == nil {
		t.Fatal("expected a compile error")
	}
	want := "[line 1] Error at '=': Invalid assignment target.\n"
	if err.Error() != want {
		t.Fatalf("expected %q, got %q", want, err.Error())
	}
}

func TestCompileRedeclaredLocalIsError(t *testing.T) {
	_, err := Compile("{ var x = 1; var x = 2; }", value.NewStringInterns())
	if err == nil {
		t.Fatal("expected redeclaration to be a compile error")
	}
	if !strings.Contains(err.Error(), "Already a variable with this name in this scope.") {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestCompileUninitializedSelfReferenceIsError(t *testing.T) {
	_, err := Compile("{ var a = a; }", value.NewStringInterns())
	if err == nil {
		t.Fatal("expected self-reference in initializer to be a compile error")
	}
	if !strings.Contains(err.Error(), "Can't read local variable in its own initializer.") {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestCompileUnexpectedCharacterReportsNoAtSuffix(t *testing.T) {
	_, err := Compile("@;", value.NewStringInterns())
	if err == nil {
		t.Fatal("expected scan error to propagate")
	}
	want := "[line 1] Unexpected character.\n"
	if err.Error() != want {
		t.Fatalf("expected %q, got %q", want, err.Error())
	}
}

func TestCompileMissingSemicolonReportsAtEnd(t *testing.T) {
	_, err := Compile("print 1", value.NewStringInterns())
	if err == nil {
		t.Fatal("expected missing semicolon to be a compile error")
	}
	if !strings.Contains(err.Error(), "Error at end:") {
		t.Fatalf("expected an at-end diagnostic, got %q", err.Error())
	}
}

func TestCompileMultipleErrorsAccumulate(t *testing.T) {
	_, err := Compile("var 1; var 2;", value.NewStringInterns())
	if err == nil {
		t.Fatal("expected compile errors")
	}
	count := strings.Count(err.Error(), "Expect variable name.")
	if count != 2 {
		t.Fatalf("expected both bad declarations to be independently reported, got %d in %q", count, err.Error())
	}
}
