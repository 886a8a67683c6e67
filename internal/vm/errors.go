package vm

import "fmt"

// RuntimeError is a failure discovered while executing a chunk: type
// mismatches and undefined globals (spec §7). The
// VM aborts interpretation immediately on the first one.
type RuntimeError struct {
	Line    int
	Message string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s\n[line %d] in script\n", e.Message, e.Line)
}

// InvalidOpcodeError means the byte stream handed to the VM isn't one
// its own compiler could have produced. original_source/src/vm.rs
// surfaces this as a CompileError rather than a RuntimeError, so the
// driver maps it to exit 65 the same way (spec §4.6/§9).
type InvalidOpcodeError struct {
	Code byte
}

func (e *InvalidOpcodeError) Error() string {
	return fmt.Sprintf("Invalid opcode %d", e.Code)
}
