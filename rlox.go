// Package rlox glues the scanner, compiler, and VM into the persistent
// interpreter a REPL or file run drives: one Session survives across
// many calls to Interpret, carrying the global-variable table and the
// string interner forward exactly as spec §5 requires ("globals and the
// interner persist across REPL lines").
package rlox

import (
	"io"
	"runtime"

	"rlox/internal/compiler"
	"rlox/internal/value"
	"rlox/internal/vm"
)

// Session is the long-lived interpreter state a driver holds onto for
// the lifetime of a REPL, or constructs once per file run.
type Session struct {
	interns *value.StringInterns
	machine *vm.VM
}

func NewSession() *Session {
	interns := value.NewStringInterns()
	return &Session{
		interns: interns,
		machine: vm.New(interns),
	}
}

// SetStdout redirects the Print opcode's output; the default is os.Stdout.
func (s *Session) SetStdout(w io.Writer) {
	s.machine.Stdout = w
}

// SetTrace toggles the VM's debug-trace logging (stack dump + instruction
// disassembly before every dispatch step), emitted via logrus at debug
// level rather than to stdout.
func (s *Session) SetTrace(trace bool) {
	s.machine.Trace = trace
}

// Interpret compiles and runs one unit of source text. A compile error
// (returned by the compiler, or an InvalidOpcodeError surfacing out of
// the VM) and a runtime error are distinguishable via errors.As so the
// driver can map each to its own exit code (spec §6/§7).
func (s *Session) Interpret(source string) error {
	c, err := compiler.Compile(source, s.interns)
	if err != nil {
		return err
	}
	return s.machine.Run(c)
}

// GarbageCollect drops interned strings no longer referenced by any
// global or live value, mirroring the driver's obligation to call
// garbage_collect() between REPL lines (spec §5/§6). runtime.GC must run
// first since Go's weak pointers only clear once the collector has
// actually reclaimed the target.
func (s *Session) GarbageCollect() {
	runtime.GC()
	s.interns.Clean()
}

// DisassembleOnly compiles source and returns its listing instead of
// running it, for a driver flag that wants to inspect bytecode without
// any program side effect.
func DisassembleOnly(source string) (string, error) {
	c, err := compiler.Compile(source, value.NewStringInterns())
	if err != nil {
		return "", err
	}
	return c.Disassemble("script"), nil
}
