package compiler

import "fmt"

// CompileError is a parse-time diagnostic anchored to a token (spec §7).
// AtEnd is set when the offending token was Eof, which prints "at end"
// instead of the lexeme.
type CompileError struct {
	Line    int
	AtEnd   bool
	Lexeme  string
	Message string
}

func (e *CompileError) Error() string {
	if e.AtEnd {
		return fmt.Sprintf("[line %d] Error at end: %s\n", e.Line, e.Message)
	}
	return fmt.Sprintf("[line %d] Error at '%s': %s\n", e.Line, e.Lexeme, e.Message)
}

// ScanCompileError wraps a scanner.ScanError as it flows through the same
// accumulation path as CompileError; scanner errors carry no "at" suffix
// (spec §7).
type ScanCompileError struct {
	Line    int
	Message string
}

func (e *ScanCompileError) Error() string {
	return fmt.Sprintf("[line %d] %s\n", e.Line, e.Message)
}

// formatCompileErrors renders a multierror.Error's underlying errors one
// per line, in place of go-multierror's default "N errors occurred:"
// banner, so stderr matches each CompileError's own text exactly.
func formatCompileErrors(es []error) string {
	out := ""
	for _, e := range es {
		out += e.Error()
	}
	return out
}
