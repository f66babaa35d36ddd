package vm

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// Opcode represents a single machine operation.
type Opcode byte

// Stack Operations
const (
	OpPush Opcode = 0x01 // push immediate word
	OpPop  Opcode = 0x02 // discard top of stack
)

// Memory
const (
	OpLoad  Opcode = 0x10 // push width bytes from address (little-endian, zero-extended)
	OpStore Opcode = 0x11 // pop, write low width bytes to address
)

// Arithmetic and logic
const (
	OpAdd Opcode = 0x20 // pop right, pop left, push left+right
	OpMul Opcode = 0x21 // pop right, pop left, push left*right
	OpDiv Opcode = 0x22 // pop right, pop left, push left/right (fatal on zero)
	OpNeg Opcode = 0x23 // two's-complement negation of top
	OpNot Opcode = 0x24 // 1 if top is 0, else 0
)

// Comparison
const (
	OpCmp  Opcode = 0x30 // left == right
	OpLcmp Opcode = 0x31 // left < right
	OpGcmp Opcode = 0x32 // left > right
)

// Control Flow
const (
	OpJz   Opcode = 0x40 // pop, jump to target if zero
	OpJmp  Opcode = 0x41 // unconditional jump to target
	OpRet  Opcode = 0x42 // pop value, pop return address, push value, jump
	OpHalt Opcode = 0x4F // stop execution
)

// ---------------------------------------------------------------------------
// Opcode metadata
// ---------------------------------------------------------------------------

// OperandKind says which Instruction field an opcode reads.
type OperandKind uint8

const (
	OperandNone OperandKind = iota
	OperandImm
	OperandAddr
	OperandTarget
)

// OpcodeInfo holds metadata about an opcode.
type OpcodeInfo struct {
	Name        string      // mnemonic
	Operand     OperandKind // which operand field is meaningful
	StackEffect int         // net effect on stack
}

// opcodeTable maps opcodes to their metadata.
var opcodeTable = map[Opcode]OpcodeInfo{
	OpPush: {"PUSH", OperandImm, 1},
	OpPop:  {"POP", OperandNone, -1},

	OpLoad:  {"LOAD", OperandAddr, 1},
	OpStore: {"STORE", OperandAddr, -1},

	OpAdd: {"ADD", OperandNone, -1},
	OpMul: {"MUL", OperandNone, -1},
	OpDiv: {"DIV", OperandNone, -1},
	OpNeg: {"NEG", OperandNone, 0},
	OpNot: {"NOT", OperandNone, 0},

	OpCmp:  {"CMP", OperandNone, -1},
	OpLcmp: {"LCMP", OperandNone, -1},
	OpGcmp: {"GCMP", OperandNone, -1},

	OpJz:   {"JZ", OperandTarget, -1},
	OpJmp:  {"JMP", OperandTarget, 0},
	OpRet:  {"RET", OperandNone, -1},
	OpHalt: {"HALT", OperandNone, 0},
}

// Info returns metadata for the opcode.
func (op Opcode) Info() (OpcodeInfo, bool) {
	info, ok := opcodeTable[op]
	return info, ok
}

// Valid reports whether the machine recognizes op.
func (op Opcode) Valid() bool {
	_, ok := opcodeTable[op]
	return ok
}

// IsJump reports whether op sets the program counter itself.
func (op Opcode) IsJump() bool {
	return op == OpJz || op == OpJmp || op == OpRet
}

func (op Opcode) String() string {
	if info, ok := opcodeTable[op]; ok {
		return info.Name
	}
	return fmt.Sprintf("OP_%02X", byte(op))
}

// ---------------------------------------------------------------------------
// Operands
// ---------------------------------------------------------------------------

// Word is the machine word held in each evaluation stack slot.
type Word = int32

// Width is the byte width of a memory access.
type Width uint8

const (
	WidthByte Width = 1
	WidthInt  Width = 4
)

func (w Width) String() string {
	switch w {
	case WidthByte:
		return "byte"
	case WidthInt:
		return "int"
	}
	return fmt.Sprintf("width(%d)", uint8(w))
}

// Address is a typed memory operand.
type Address struct {
	Offset int
	Width  Width
}

func (a Address) String() string {
	return fmt.Sprintf("0x%04X:%d", a.Offset, a.Width)
}

// Instruction is one opcode with its operand. Only the field named by the
// opcode's OperandKind is meaningful.
type Instruction struct {
	Op     Opcode
	Imm    Word
	Addr   Address
	Target int
}

// Push returns a push-immediate instruction.
func Push(v Word) Instruction { return Instruction{Op: OpPush, Imm: v} }

// Load returns a load from addr.
func Load(addr Address) Instruction { return Instruction{Op: OpLoad, Addr: addr} }

// Store returns a store to addr.
func Store(addr Address) Instruction { return Instruction{Op: OpStore, Addr: addr} }

// Jump returns a jump-class instruction (JZ or JMP) to target.
func Jump(op Opcode, target int) Instruction { return Instruction{Op: op, Target: target} }

// Simple returns an operand-less instruction.
func Simple(op Opcode) Instruction { return Instruction{Op: op} }

func (in Instruction) String() string {
	info, ok := opcodeTable[in.Op]
	if !ok {
		return in.Op.String()
	}
	switch info.Operand {
	case OperandImm:
		return fmt.Sprintf("%-6s %d", info.Name, in.Imm)
	case OperandAddr:
		return fmt.Sprintf("%-6s %s", info.Name, in.Addr)
	case OperandTarget:
		return fmt.Sprintf("%-6s %d", info.Name, in.Target)
	}
	return info.Name
}

// ---------------------------------------------------------------------------
// Disassembly
// ---------------------------------------------------------------------------

// Disassemble renders a program listing, one instruction per line, marking
// the entry point.
func Disassemble(p *Program) string {
	var sb strings.Builder
	for i, in := range p.Code {
		marker := "  "
		if i == p.Entry {
			marker = "=>"
		}
		fmt.Fprintf(&sb, "%s %04d  %s\n", marker, i, in)
	}
	return sb.String()
}
