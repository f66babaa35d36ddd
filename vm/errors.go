package vm

import "github.com/joomcode/errorx"

// Fatal machine errors. Each one stops the run on first occurrence.
var (
	Errors = errorx.NewNamespace("vm")

	StackOverflow  = Errors.NewType("stack_overflow")
	StackUnderflow = Errors.NewType("stack_underflow")
	DivisionByZero = Errors.NewType("division_by_zero")
	IllegalOpcode  = Errors.NewType("illegal_opcode")
	MemoryFault    = Errors.NewType("memory_fault")
	BadJump        = Errors.NewType("bad_jump")

	// PropertyPC carries the program counter of the faulting instruction.
	PropertyPC = errorx.RegisterProperty("pc")
)

// FaultPC extracts the faulting program counter from a machine error.
func FaultPC(err error) (int, bool) {
	v, ok := errorx.ExtractProperty(err, PropertyPC)
	if !ok {
		return 0, false
	}
	pc, ok := v.(int)
	return pc, ok
}
