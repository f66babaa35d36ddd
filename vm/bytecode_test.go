package vm

import (
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// Opcode metadata tests
// ---------------------------------------------------------------------------

func TestOpcodeInfo(t *testing.T) {
	tests := []struct {
		op      Opcode
		name    string
		operand OperandKind
	}{
		{OpPush, "PUSH", OperandImm},
		{OpPop, "POP", OperandNone},
		{OpLoad, "LOAD", OperandAddr},
		{OpStore, "STORE", OperandAddr},
		{OpAdd, "ADD", OperandNone},
		{OpMul, "MUL", OperandNone},
		{OpDiv, "DIV", OperandNone},
		{OpNeg, "NEG", OperandNone},
		{OpNot, "NOT", OperandNone},
		{OpCmp, "CMP", OperandNone},
		{OpLcmp, "LCMP", OperandNone},
		{OpGcmp, "GCMP", OperandNone},
		{OpJz, "JZ", OperandTarget},
		{OpJmp, "JMP", OperandTarget},
		{OpRet, "RET", OperandNone},
		{OpHalt, "HALT", OperandNone},
	}

	for _, tt := range tests {
		info, ok := tt.op.Info()
		if !ok {
			t.Errorf("%s: Info() not found", tt.name)
			continue
		}
		if info.Name != tt.name {
			t.Errorf("%s: Name = %q, want %q", tt.op, info.Name, tt.name)
		}
		if info.Operand != tt.operand {
			t.Errorf("%s: Operand = %d, want %d", tt.op, info.Operand, tt.operand)
		}
	}
}

func TestUnknownOpcode(t *testing.T) {
	op := Opcode(0xEE)
	if op.Valid() {
		t.Fatal("0xEE should not be a valid opcode")
	}
	if got := op.String(); got != "OP_EE" {
		t.Errorf("String() = %q, want OP_EE", got)
	}
}

func TestIsJump(t *testing.T) {
	for _, op := range []Opcode{OpJz, OpJmp, OpRet} {
		if !op.IsJump() {
			t.Errorf("%s should be a jump", op)
		}
	}
	for _, op := range []Opcode{OpPush, OpAdd, OpHalt} {
		if op.IsJump() {
			t.Errorf("%s should not be a jump", op)
		}
	}
}

func TestInstructionString(t *testing.T) {
	tests := []struct {
		in   Instruction
		want string
	}{
		{Push(14), "PUSH   14"},
		{Load(Address{Offset: 0x100, Width: WidthInt}), "LOAD   0x0100:4"},
		{Store(Address{Offset: 0x104, Width: WidthByte}), "STORE  0x0104:1"},
		{Jump(OpJz, 7), "JZ     7"},
		{Simple(OpAdd), "ADD"},
	}
	for _, tt := range tests {
		if got := tt.in.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestDisassembleMarksEntry(t *testing.T) {
	p := &Program{
		Code:  []Instruction{Push(1), Simple(OpRet), Push(2), Simple(OpHalt)},
		Entry: 2,
	}
	out := Disassemble(p)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[2], "=> 0002") {
		t.Errorf("entry line = %q, want => prefix", lines[2])
	}
	if strings.HasPrefix(lines[0], "=>") {
		t.Errorf("line 0 should not be marked: %q", lines[0])
	}
}
