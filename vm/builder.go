package vm

import (
	"fmt"
	"sort"
)

// ---------------------------------------------------------------------------
// Builder: mutable instruction buffer with placeholder tracking
// ---------------------------------------------------------------------------

// Builder accumulates instructions. Jumps and return-address pushes whose
// operand is not yet known are emitted as placeholders and must each be
// patched exactly once before Program is called.
type Builder struct {
	code    []Instruction
	pending map[int]bool
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{pending: make(map[int]bool)}
}

// Len returns the number of instructions emitted so far, which is also the
// address of the next instruction.
func (b *Builder) Len() int {
	return len(b.code)
}

// Emit appends an instruction and returns its address.
func (b *Builder) Emit(in Instruction) int {
	b.code = append(b.code, in)
	return len(b.code) - 1
}

// EmitJump appends a jump to a known target.
func (b *Builder) EmitJump(op Opcode, target int) int {
	return b.Emit(Jump(op, target))
}

// EmitJumpPlaceholder appends a JZ or JMP with an unresolved target.
func (b *Builder) EmitJumpPlaceholder(op Opcode) int {
	idx := b.Emit(Jump(op, -1))
	b.pending[idx] = true
	return idx
}

// EmitPushPlaceholder appends a PUSH whose immediate is resolved later.
func (b *Builder) EmitPushPlaceholder() int {
	idx := b.Emit(Push(-1))
	b.pending[idx] = true
	return idx
}

// Patch resolves the placeholder at idx. Jumps receive target as their
// destination; pushes receive it as their immediate. Patching an index that
// is not an open placeholder is a compiler bug and panics.
func (b *Builder) Patch(idx, target int) {
	if !b.pending[idx] {
		panic(fmt.Sprintf("vm: patch of non-placeholder instruction %d", idx))
	}
	delete(b.pending, idx)
	switch b.code[idx].Op {
	case OpPush:
		b.code[idx].Imm = Word(target)
	default:
		b.code[idx].Target = target
	}
}

// PatchHere resolves the placeholder at idx to the next emitted address.
func (b *Builder) PatchHere(idx int) {
	b.Patch(idx, len(b.code))
}

// Pending returns the sorted indices of unpatched placeholders.
func (b *Builder) Pending() []int {
	out := make([]int, 0, len(b.pending))
	for idx := range b.pending {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// At returns the instruction at idx.
func (b *Builder) At(idx int) Instruction {
	return b.code[idx]
}

// Program freezes the buffer into a Program starting at entry. It fails if
// any placeholder is still open or any jump lands outside the code.
func (b *Builder) Program(entry int) (*Program, error) {
	if open := b.Pending(); len(open) > 0 {
		return nil, fmt.Errorf("vm: %d unpatched placeholder(s) at %v", len(open), open)
	}
	if entry < 0 || entry > len(b.code) {
		return nil, fmt.Errorf("vm: entry %d outside code (len=%d)", entry, len(b.code))
	}
	for i, in := range b.code {
		if in.Op == OpJz || in.Op == OpJmp {
			if in.Target < 0 || in.Target > len(b.code) {
				return nil, fmt.Errorf("vm: instruction %d jumps to %d outside code (len=%d)", i, in.Target, len(b.code))
			}
		}
	}
	code := make([]Instruction, len(b.code))
	copy(code, b.code)
	return &Program{Code: code, Entry: entry}, nil
}
