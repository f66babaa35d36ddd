package compiler

import (
	"github.com/chazu/fe/vm"
)

// ---------------------------------------------------------------------------
// Function table
// ---------------------------------------------------------------------------

// Function is a compiled function: its signature, entry point, and the
// slice of the local region its frame occupies.
type Function struct {
	Name   string
	Result Type
	Params []*Symbol
	Decl   *FuncDecl

	// Entry is the index of the first instruction, or -1 until the body
	// has been emitted.
	Entry int

	// Window is the offset of this function's frame within the local
	// region. Windows of different functions do not overlap, so a call
	// never clobbers its caller's locals. Recursive calls share a window.
	Window int

	// FrameSize is the number of bytes of locals, parameters included.
	FrameSize int

	// calls holds JMP placeholders emitted before Entry was known.
	calls []int
}

// Resolved reports whether the entry point is known.
func (f *Function) Resolved() bool {
	return f.Entry >= 0
}

// FunctionTable maps names to functions in declaration order.
type FunctionTable struct {
	byName map[string]*Function
	order  []*Function
}

// NewFunctionTable returns an empty table.
func NewFunctionTable() *FunctionTable {
	return &FunctionTable{byName: make(map[string]*Function)}
}

// declare registers a signature with an unresolved entry point. The first
// declaration of a name wins.
func (t *FunctionTable) declare(decl *FuncDecl) *Function {
	if f, ok := t.byName[decl.Name]; ok {
		return f
	}
	f := &Function{
		Name:   decl.Name,
		Result: decl.Result,
		Decl:   decl,
		Entry:  -1,
	}
	t.byName[decl.Name] = f
	t.order = append(t.order, f)
	return f
}

// Lookup finds a function by name.
func (t *FunctionTable) Lookup(name string) (*Function, bool) {
	f, ok := t.byName[name]
	return f, ok
}

// All returns the functions in declaration order.
func (t *FunctionTable) All() []*Function {
	return t.order
}

// resolve records f's entry point and patches every call that was emitted
// before it was known.
func (t *FunctionTable) resolve(f *Function, entry int, code *vm.Builder) {
	f.Entry = entry
	for _, idx := range f.calls {
		code.Patch(idx, entry)
	}
	f.calls = nil
}

// emitCall emits the jump into f, leaving a placeholder if f has no entry
// yet.
func (t *FunctionTable) emitCall(f *Function, code *vm.Builder) {
	if f.Resolved() {
		code.EmitJump(vm.OpJmp, f.Entry)
		return
	}
	f.calls = append(f.calls, code.EmitJumpPlaceholder(vm.OpJmp))
}
