package vm

import "sort"

// Profiler counts executed instructions per opcode and per program counter.
// A program counter that reaches HotThreshold executions is reported once
// through OnHot; loop heads and function entries are the usual candidates.
// Install it with Machine.SetTraceHook(p.Record).
type Profiler struct {
	HotThreshold uint64 // Default: 1000
	OnHot        func(pc int, count uint64)

	hits    []uint64 // indexed by pc
	opcodes map[Opcode]uint64
	hot     map[int]bool
	total   uint64
}

// NewProfiler creates a profiler sized for p.
func NewProfiler(p *Program) *Profiler {
	return &Profiler{
		HotThreshold: 1000,
		hits:         make([]uint64, p.Len()),
		opcodes:      make(map[Opcode]uint64),
		hot:          make(map[int]bool),
	}
}

// Record counts one dispatch. It has the TraceHook signature.
func (p *Profiler) Record(pc int, in Instruction, sp int) {
	p.total++
	p.opcodes[in.Op]++
	if pc < 0 || pc >= len(p.hits) {
		return
	}
	p.hits[pc]++
	if p.hits[pc] >= p.HotThreshold && !p.hot[pc] {
		p.hot[pc] = true
		if p.OnHot != nil {
			p.OnHot(pc, p.hits[pc])
		}
	}
}

// Hits returns how many times the instruction at pc was dispatched.
func (p *Profiler) Hits(pc int) uint64 {
	if pc < 0 || pc >= len(p.hits) {
		return 0
	}
	return p.hits[pc]
}

// Count returns how many instructions with opcode op were dispatched.
func (p *Profiler) Count(op Opcode) uint64 {
	return p.opcodes[op]
}

// Total returns the number of dispatched instructions.
func (p *Profiler) Total() uint64 {
	return p.total
}

// IsHot reports whether pc has crossed the hot threshold.
func (p *Profiler) IsHot(pc int) bool {
	return p.hot[pc]
}

// PCCount pairs a program counter with its execution count.
type PCCount struct {
	PC    int
	Count uint64
}

// Top returns the n most executed program counters, most executed first.
// Ties keep program order.
func (p *Profiler) Top(n int) []PCCount {
	var all []PCCount
	for pc, c := range p.hits {
		if c > 0 {
			all = append(all, PCCount{pc, c})
		}
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Count > all[j].Count })

	if n < len(all) {
		all = all[:n]
	}
	return all
}

// Reset clears all counts.
func (p *Profiler) Reset() {
	for i := range p.hits {
		p.hits[i] = 0
	}
	p.opcodes = make(map[Opcode]uint64)
	p.hot = make(map[int]bool)
	p.total = 0
}
