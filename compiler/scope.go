package compiler

import (
	"sort"

	"github.com/chazu/fe/vm"
)

// ---------------------------------------------------------------------------
// Symbols and scopes
// ---------------------------------------------------------------------------

// StorageClass says which memory region holds a variable.
type StorageClass uint8

const (
	ClassGlobal StorageClass = iota
	ClassLocal
)

func (c StorageClass) String() string {
	if c == ClassLocal {
		return "local"
	}
	return "global"
}

// Symbol is a named variable bound to a fixed memory address.
type Symbol struct {
	Name     string
	Type     Type
	Class    StorageClass
	Offset   int        // region-relative: from the global base, or from the function's window
	Addr     vm.Address // absolute address used by LOAD and STORE
	Function string     // owning function, empty for globals
	Pos      Position   // declaration site
}

// widthOf returns the storage width of a value type.
func widthOf(t Type) vm.Width {
	if t == TypeInt {
		return vm.WidthInt
	}
	return vm.WidthByte
}

// Scope maps names to symbols. Nested blocks get a copy of the enclosing
// scope, so their declarations never leak outward.
type Scope struct {
	symbols map[string]*Symbol
}

// NewScope returns an empty scope.
func NewScope() *Scope {
	return &Scope{symbols: make(map[string]*Symbol)}
}

// Lookup finds a symbol by name.
func (s *Scope) Lookup(name string) (*Symbol, bool) {
	sym, ok := s.symbols[name]
	return sym, ok
}

// Define binds sym in this scope.
func (s *Scope) Define(sym *Symbol) {
	s.symbols[sym.Name] = sym
}

// Copy returns an independent scope with the same bindings.
func (s *Scope) Copy() *Scope {
	c := &Scope{symbols: make(map[string]*Symbol, len(s.symbols))}
	for k, v := range s.symbols {
		c.symbols[k] = v
	}
	return c
}

// Len returns the number of visible symbols.
func (s *Scope) Len() int {
	return len(s.symbols)
}

// Symbols returns the visible symbols ordered by address.
func (s *Scope) Symbols() []*Symbol {
	out := make([]*Symbol, 0, len(s.symbols))
	for _, sym := range s.symbols {
		out = append(out, sym)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Addr.Offset < out[j].Addr.Offset })
	return out
}

// ---------------------------------------------------------------------------
// Allocation
// ---------------------------------------------------------------------------

// allocator hands out consecutive offsets in a region. Offsets are never
// reused, even after the declaring block ends.
type allocator struct {
	next  int // next free offset
	limit int // region size
}

func newAllocator(limit int) *allocator {
	return &allocator{limit: limit}
}

// alloc reserves w bytes and returns their offset, or false if the region
// is exhausted.
func (a *allocator) alloc(w vm.Width) (int, bool) {
	if a.next+int(w) > a.limit {
		return 0, false
	}
	off := a.next
	a.next += int(w)
	return off, true
}

// used returns the number of bytes allocated so far.
func (a *allocator) used() int {
	return a.next
}
