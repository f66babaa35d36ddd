package vm

import (
	"github.com/google/uuid"
	"github.com/joomcode/errorx"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("fe.vm")

// ---------------------------------------------------------------------------
// Machine: single-run stack interpreter
// ---------------------------------------------------------------------------

// TraceHook observes each instruction before it is dispatched.
type TraceHook func(pc int, in Instruction, sp int)

// Config sizes a machine.
type Config struct {
	Layout    Layout
	StackSize int // capacity of the evaluation stack in words
}

// DefaultConfig returns the default layout and stack capacity.
func DefaultConfig() Config {
	return Config{Layout: DefaultLayout(), StackSize: DefaultStackSize}
}

// Machine executes one Program from its entry to halt or a fatal error.
// Memory and the evaluation stack belong to the machine and are discarded
// with it. There are no frames: caller and callee coordinate only through
// the order of pushes and pops on the shared stack.
type Machine struct {
	program *Program
	layout  Layout

	memory []byte
	stack  []Word
	sp     int // next free slot
	pc     int

	trace TraceHook
	id    string
	steps uint64
}

// NewMachine creates a machine for p with fresh memory and stack.
func NewMachine(p *Program, cfg Config) *Machine {
	if cfg.StackSize <= 0 {
		cfg.StackSize = DefaultStackSize
	}
	if cfg.Layout.Size <= 0 {
		cfg.Layout = DefaultLayout()
	}
	return &Machine{
		program: p,
		layout:  cfg.Layout,
		memory:  make([]byte, cfg.Layout.Size),
		stack:   make([]Word, cfg.StackSize),
		pc:      p.Entry,
		id:      uuid.NewString(),
	}
}

// SetTraceHook installs a hook called before every dispatch.
func (m *Machine) SetTraceHook(h TraceHook) {
	m.trace = h
}

// ID returns the run identifier used in log lines.
func (m *Machine) ID() string { return m.id }

// SP returns the current stack depth in words.
func (m *Machine) SP() int { return m.sp }

// PC returns the program counter.
func (m *Machine) PC() int { return m.pc }

// Steps returns the number of instructions dispatched so far.
func (m *Machine) Steps() uint64 { return m.steps }

// Top returns the final top-of-stack word. Popped slots are not cleared, so
// an empty stack reports the word its bottom slot last held.
func (m *Machine) Top() Word {
	if m.sp > 0 {
		return m.stack[m.sp-1]
	}
	return m.stack[0]
}

// Read returns the value stored at addr, zero-extended.
func (m *Machine) Read(addr Address) (Word, error) {
	return m.load(addr)
}

// Run executes until HALT, the end of the code, or a fatal error.
func (m *Machine) Run() (Word, error) {
	log.Debugf("run %s: start at %d (%d instructions)", m.id, m.pc, len(m.program.Code))
	for {
		halted, err := m.step()
		if err != nil {
			err = errorx.Decorate(err, "run %s", m.id)
			log.Debugf("run %s: fault after %d steps: %s", m.id, m.steps, err)
			return 0, err
		}
		if halted {
			log.Debugf("run %s: halt after %d steps, top=%d", m.id, m.steps, m.Top())
			return m.Top(), nil
		}
	}
}

// step dispatches one instruction. Every instruction advances the program
// counter by one except the jumps, which set it explicitly.
func (m *Machine) step() (bool, error) {
	code := m.program.Code
	if m.pc == len(code) {
		return true, nil
	}
	if m.pc < 0 || m.pc > len(code) {
		return false, BadJump.New("program counter %d outside code (len=%d)", m.pc, len(code)).
			WithProperty(PropertyPC, m.pc)
	}

	in := code[m.pc]
	if m.trace != nil {
		m.trace(m.pc, in, m.sp)
	}
	m.steps++

	var err error
	switch in.Op {
	case OpPush:
		err = m.push(in.Imm)

	case OpPop:
		_, err = m.pop()

	case OpLoad:
		var v Word
		if v, err = m.load(in.Addr); err == nil {
			err = m.push(v)
		}

	case OpStore:
		var v Word
		if v, err = m.pop(); err == nil {
			err = m.store(in.Addr, v)
		}

	case OpAdd, OpMul, OpDiv, OpCmp, OpLcmp, OpGcmp:
		err = m.binary(in.Op)

	case OpNeg:
		var v Word
		if v, err = m.pop(); err == nil {
			err = m.push(-v)
		}

	case OpNot:
		var v Word
		if v, err = m.pop(); err == nil {
			err = m.push(boolWord(v == 0))
		}

	case OpJz:
		var cond Word
		if cond, err = m.pop(); err != nil {
			break
		}
		if cond == 0 {
			m.pc = in.Target
		} else {
			m.pc++
		}
		return false, nil

	case OpJmp:
		m.pc = in.Target
		return false, nil

	case OpRet:
		var value, ret Word
		if value, err = m.pop(); err != nil {
			break
		}
		if ret, err = m.pop(); err != nil {
			break
		}
		if err = m.push(value); err != nil {
			break
		}
		if int(ret) < 0 || int(ret) > len(code) {
			err = BadJump.New("return address %d outside code (len=%d)", ret, len(code))
			break
		}
		m.pc = int(ret)
		return false, nil

	case OpHalt:
		return true, nil

	default:
		err = IllegalOpcode.New("unknown opcode 0x%02X", byte(in.Op))
	}

	if err != nil {
		if e := errorx.Cast(err); e != nil {
			return false, e.WithProperty(PropertyPC, m.pc)
		}
		return false, err
	}
	m.pc++
	return false, nil
}

// binary pops right then left and pushes the result of op.
func (m *Machine) binary(op Opcode) error {
	right, err := m.pop()
	if err != nil {
		return err
	}
	left, err := m.pop()
	if err != nil {
		return err
	}

	var result Word
	switch op {
	case OpAdd:
		result = left + right
	case OpMul:
		result = left * right
	case OpDiv:
		if right == 0 {
			return DivisionByZero.New("%d / 0", left)
		}
		result = left / right
	case OpCmp:
		result = boolWord(left == right)
	case OpLcmp:
		result = boolWord(left < right)
	case OpGcmp:
		result = boolWord(left > right)
	}
	return m.push(result)
}

// ---------------------------------------------------------------------------
// Stack operations
// ---------------------------------------------------------------------------

func (m *Machine) push(v Word) error {
	if m.sp >= len(m.stack) {
		return StackOverflow.New("push beyond capacity %d", len(m.stack))
	}
	m.stack[m.sp] = v
	m.sp++
	return nil
}

func (m *Machine) pop() (Word, error) {
	if m.sp <= 0 {
		return 0, StackUnderflow.New("pop from empty stack")
	}
	m.sp--
	return m.stack[m.sp], nil
}

// ---------------------------------------------------------------------------
// Memory
// ---------------------------------------------------------------------------

func (m *Machine) checkAddr(addr Address) error {
	if addr.Width != WidthByte && addr.Width != WidthInt {
		return MemoryFault.New("unsupported access width %d", addr.Width)
	}
	if addr.Offset < 0 || addr.Offset+int(addr.Width) > len(m.memory) {
		return MemoryFault.New("access %s outside memory (size 0x%X)", addr, len(m.memory))
	}
	return nil
}

// load reads addr.Width bytes little-endian and zero-extends them.
func (m *Machine) load(addr Address) (Word, error) {
	if err := m.checkAddr(addr); err != nil {
		return 0, err
	}
	var u uint32
	for i := int(addr.Width) - 1; i >= 0; i-- {
		u = u<<8 | uint32(m.memory[addr.Offset+i])
	}
	return Word(u), nil
}

// store writes the low addr.Width bytes of v little-endian.
func (m *Machine) store(addr Address, v Word) error {
	if err := m.checkAddr(addr); err != nil {
		return err
	}
	u := uint32(v)
	for i := 0; i < int(addr.Width); i++ {
		m.memory[addr.Offset+i] = byte(u >> (8 * i))
	}
	return nil
}

func boolWord(b bool) Word {
	if b {
		return 1
	}
	return 0
}
