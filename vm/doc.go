// Package vm implements the bytecode format and the stack machine that runs
// it.
//
// A Program is a flat slice of typed instructions plus an entry index. The
// Machine owns a byte-addressable memory partitioned by a Layout and a single
// evaluation stack of 32-bit words that holds expression temporaries, return
// addresses, and return values alike.
//
// # Calling convention
//
// There is no frame or base pointer. A call site pushes its return address,
// then its arguments left to right, then jumps to the callee. The callee
// stores its parameters in reverse order, runs its body, and executes RET,
// which pops the return value and the return address, pushes the value back
// and jumps:
//
//	PUSH  <ret>      ; patched to the address after the JMP
//	PUSH  2
//	PUSH  3
//	JMP   <entry>
//	...
//	STORE b          ; callee entry
//	STORE a
//	LOAD  a
//	LOAD  b
//	ADD
//	RET
//
// # Fatal errors
//
// Stack overflow and underflow, division by zero, unknown opcodes, memory
// faults and out-of-range jumps stop the run immediately. They are errorx
// types in the "vm" namespace; classify them with errorx.IsOfType.
package vm
