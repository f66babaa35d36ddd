package vm

import "fmt"

// Program is the compiler's output: an ordered instruction sequence and the
// index at which execution starts. A Program is never modified after it is
// built.
type Program struct {
	Code  []Instruction
	Entry int
}

// Len returns the number of instructions.
func (p *Program) Len() int {
	return len(p.Code)
}

// ---------------------------------------------------------------------------
// Memory layout
// ---------------------------------------------------------------------------

// Layout partitions machine memory. Globals live in [GlobalBase, LocalBase),
// function locals in [LocalBase, HeapBase), and [HeapBase, Size) is reserved
// for a heap that nothing populates.
type Layout struct {
	Size       int
	GlobalBase int
	LocalBase  int
	HeapBase   int
}

// Default layout constants.
const (
	DefaultMemorySize = 0x10000
	DefaultGlobalBase = 0x100
	DefaultLocalBase  = 0x800
	DefaultHeapBase   = 0x1000
	DefaultStackSize  = 256
)

// DefaultLayout returns the standard memory partition.
func DefaultLayout() Layout {
	return Layout{
		Size:       DefaultMemorySize,
		GlobalBase: DefaultGlobalBase,
		LocalBase:  DefaultLocalBase,
		HeapBase:   DefaultHeapBase,
	}
}

// Validate checks that the regions are ordered and fit in memory.
func (l Layout) Validate() error {
	switch {
	case l.GlobalBase < 0:
		return fmt.Errorf("vm: global base %d is negative", l.GlobalBase)
	case l.LocalBase < l.GlobalBase:
		return fmt.Errorf("vm: local base 0x%X below global base 0x%X", l.LocalBase, l.GlobalBase)
	case l.HeapBase < l.LocalBase:
		return fmt.Errorf("vm: heap base 0x%X below local base 0x%X", l.HeapBase, l.LocalBase)
	case l.Size < l.HeapBase:
		return fmt.Errorf("vm: memory size 0x%X below heap base 0x%X", l.Size, l.HeapBase)
	}
	return nil
}

// GlobalCapacity is the number of bytes available for globals.
func (l Layout) GlobalCapacity() int { return l.LocalBase - l.GlobalBase }

// LocalCapacity is the number of bytes available for function locals.
func (l Layout) LocalCapacity() int { return l.HeapBase - l.LocalBase }
