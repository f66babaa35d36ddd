package compiler

import (
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/chazu/fe/vm"
)

var log = commonlog.GetLogger("fe.compiler")

// ---------------------------------------------------------------------------
// Codegen: Compile a checked AST to bytecode
// ---------------------------------------------------------------------------

// Options controls code generation.
type Options struct {
	// Layout fixes where globals and locals live in machine memory.
	Layout vm.Layout
}

// DefaultOptions returns options using the default memory layout.
func DefaultOptions() Options {
	return Options{Layout: vm.DefaultLayout()}
}

// Result is the output of code generation.
type Result struct {
	// Program is nil if there are diagnostics.
	Program     *vm.Program
	Functions   []*Function
	Symbols     []*Symbol // every declared variable, in declaration order
	Diagnostics Diagnostics
}

// Lookup returns the symbol declared at top level or in the named function.
func (r *Result) Lookup(function, name string) (*Symbol, bool) {
	for _, sym := range r.Symbols {
		if sym.Function == function && sym.Name == name {
			return sym, true
		}
	}
	return nil, false
}

// genContext is the compilation context threaded through every codegen
// call. Shared state is held by pointer; the scope and the enclosing
// function and loop change as compilation descends.
type genContext struct {
	code    *vm.Builder
	layout  vm.Layout
	funcs   *FunctionTable
	diags   *Diagnostics
	symbols *[]*Symbol

	scope *Scope
	alloc *allocator
	fn    *Function    // nil at top level
	loop  *loopContext // nil outside loops
}

// loopContext collects the break placeholders of one loop.
type loopContext struct {
	start  int
	breaks []int
}

// nested returns a context for a block: a copy of the current scope that
// shares everything else.
func (c *genContext) nested() *genContext {
	child := *c
	child.scope = c.scope.Copy()
	return &child
}

// inLoop returns a nested context whose breaks belong to l.
func (c *genContext) inLoop(l *loopContext) *genContext {
	child := c.nested()
	child.loop = l
	return child
}

func (c *genContext) errorAt(node Node, format string, args ...interface{}) {
	c.diags.add(node.Span().Start, format, args...)
}

// declare allocates storage for a new variable in the current region.
func (c *genContext) declare(pos Position, name string, t Type) (*Symbol, bool) {
	w := widthOf(t)
	off, ok := c.alloc.alloc(w)
	if !ok {
		if c.fn != nil {
			c.diags.add(pos, "out of local memory declaring %s in %s", name, c.fn.Name)
		} else {
			c.diags.add(pos, "out of global memory declaring %s", name)
		}
		return nil, false
	}

	sym := &Symbol{Name: name, Type: t, Offset: off, Pos: pos}
	if c.fn != nil {
		sym.Class = ClassLocal
		sym.Function = c.fn.Name
		sym.Addr = vm.Address{Offset: c.layout.LocalBase + c.fn.Window + off, Width: w}
	} else {
		sym.Class = ClassGlobal
		sym.Addr = vm.Address{Offset: c.layout.GlobalBase + off, Width: w}
	}
	c.scope.Define(sym)
	*c.symbols = append(*c.symbols, sym)
	return sym, true
}

// resolve finds a variable the checker has already accepted.
func (c *genContext) resolve(name string) *Symbol {
	sym, ok := c.scope.Lookup(name)
	if !ok {
		panic(fmt.Sprintf("compiler: unresolved variable %q; the tree was not checked", name))
	}
	return sym
}

// ---------------------------------------------------------------------------
// Entry point
// ---------------------------------------------------------------------------

// Compile generates code for a checked program. Function bodies come first,
// then the top-level statements, which start at the program entry and end
// with HALT. Structural errors the checker leaves alone, such as a break
// outside a loop, are reported in the result.
func Compile(file *SourceFile, opts Options) *Result {
	var diags Diagnostics
	var symbols []*Symbol
	if err := opts.Layout.Validate(); err != nil {
		diags.add(file.Span().Start, "%s", err)
		return &Result{Diagnostics: diags}
	}

	funcs := NewFunctionTable()
	root := &genContext{
		code:    vm.NewBuilder(),
		layout:  opts.Layout,
		funcs:   funcs,
		diags:   &diags,
		symbols: &symbols,
		scope:   NewScope(),
		alloc:   newAllocator(opts.Layout.GlobalCapacity()),
	}

	// Declaration sweep: every signature is known before any body.
	decls := file.Functions()
	for _, fd := range decls {
		funcs.declare(fd)
	}

	window := 0
	for _, fd := range decls {
		f, _ := funcs.Lookup(fd.Name)
		if f.Decl != fd {
			continue // redeclaration; the checker reports it
		}
		window += compileFunction(root, f, window)
	}

	entry := root.code.Len()
	for _, stmt := range file.Stmts {
		if _, ok := stmt.(*FuncDecl); ok {
			continue
		}
		compileStmt(root, stmt)
	}
	root.code.Emit(vm.Simple(vm.OpHalt))

	result := &Result{
		Functions: funcs.All(),
		Symbols:   symbols,
	}
	if len(diags) > 0 {
		result.Diagnostics = diags
		return result
	}

	prog, err := root.code.Program(entry)
	if err != nil {
		diags.add(file.Span().Start, "%s", err)
		result.Diagnostics = diags
		return result
	}
	result.Program = prog
	log.Debugf("compiled %d instruction(s), %d function(s), %d variable(s); entry %d",
		prog.Len(), len(result.Functions), len(symbols), entry)
	return result
}

// compileFunction emits f's body at the current position and returns the
// size of its frame.
func compileFunction(root *genContext, f *Function, window int) int {
	c := &genContext{
		code:    root.code,
		layout:  root.layout,
		funcs:   root.funcs,
		diags:   root.diags,
		symbols: root.symbols,
		scope:   NewScope(),
		alloc:   newAllocator(root.layout.LocalCapacity() - window),
		fn:      f,
	}
	f.Window = window
	root.funcs.resolve(f, c.code.Len(), c.code)

	for _, p := range f.Decl.Params {
		sym, ok := c.declare(p.NameSpan.Start, p.Name, p.Type)
		if !ok {
			return c.alloc.used()
		}
		f.Params = append(f.Params, sym)
	}
	// Arguments were pushed left to right, so the last is on top.
	for i := len(f.Params) - 1; i >= 0; i-- {
		c.code.Emit(vm.Store(f.Params[i].Addr))
	}

	compileStatements(c, f.Decl.Body.Stmts)

	// Falling off the end returns zero.
	c.code.Emit(vm.Push(0))
	c.code.Emit(vm.Simple(vm.OpRet))

	f.FrameSize = c.alloc.used()
	log.Debugf("function %s: entry %d, window %d, frame %d byte(s)", f.Name, f.Entry, f.Window, f.FrameSize)
	return f.FrameSize
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func compileStatements(c *genContext, stmts []Stmt) {
	for _, stmt := range stmts {
		compileStmt(c, stmt)
	}
}

func compileStmt(c *genContext, stmt Stmt) {
	switch n := stmt.(type) {
	case *DeclStmt:
		// The initializer is compiled before the name is bound, so it
		// cannot see the variable it initializes.
		compileExpr(c, n.Value)
		sym, ok := c.declare(n.NameSpan.Start, n.Name, n.Type)
		if !ok {
			c.code.Emit(vm.Simple(vm.OpPop))
			return
		}
		c.code.Emit(vm.Store(sym.Addr))

	case *AssignStmt:
		compileExpr(c, n.Value)
		c.code.Emit(vm.Store(c.resolve(n.Name).Addr))

	case *PostfixStmt:
		sym := c.resolve(n.Name)
		c.code.Emit(vm.Load(sym.Addr))
		c.code.Emit(vm.Push(1))
		if n.Operator == TokenDecrement {
			c.code.Emit(vm.Simple(vm.OpNeg))
		}
		c.code.Emit(vm.Simple(vm.OpAdd))
		c.code.Emit(vm.Store(sym.Addr))

	case *ExprStmt:
		compileExpr(c, n.Expr)
		c.code.Emit(vm.Simple(vm.OpPop))

	case *Block:
		compileStatements(c.nested(), n.Stmts)

	case *IfStmt:
		compileIf(c, n)

	case *WhileStmt:
		compileWhile(c, n)

	case *BreakStmt:
		if c.loop == nil {
			c.errorAt(n, "break outside of a loop")
			return
		}
		c.loop.breaks = append(c.loop.breaks, c.code.EmitJumpPlaceholder(vm.OpJmp))

	case *ReturnStmt:
		if c.fn == nil {
			c.errorAt(n, "return outside of a function")
			return
		}
		compileExpr(c, n.Value)
		c.code.Emit(vm.Simple(vm.OpRet))

	case *FuncDecl:
		panic(fmt.Sprintf("compiler: function %s declared below top level; the tree was not checked", n.Name))

	default:
		panic(fmt.Sprintf("compiler: unhandled statement %T", stmt))
	}
}

func compileIf(c *genContext, n *IfStmt) {
	compileExpr(c, n.Cond)
	jz := c.code.EmitJumpPlaceholder(vm.OpJz)
	compileStatements(c.nested(), n.Then.Stmts)

	if n.Else == nil {
		c.code.PatchHere(jz)
		return
	}
	end := c.code.EmitJumpPlaceholder(vm.OpJmp)
	c.code.PatchHere(jz)
	compileStatements(c.nested(), n.Else.Stmts)
	c.code.PatchHere(end)
}

func compileWhile(c *genContext, n *WhileStmt) {
	loop := &loopContext{start: c.code.Len()}
	compileExpr(c, n.Cond)
	exit := c.code.EmitJumpPlaceholder(vm.OpJz)

	compileStatements(c.inLoop(loop), n.Body.Stmts)
	c.code.EmitJump(vm.OpJmp, loop.start)

	// Both the failed test and every break land after the back-jump.
	c.code.PatchHere(exit)
	for _, idx := range loop.breaks {
		c.code.PatchHere(idx)
	}
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func compileExpr(c *genContext, expr Expr) {
	switch n := expr.(type) {
	case *IntLiteral:
		c.code.Emit(vm.Push(n.Value))

	case *BoolLiteral:
		if n.Value {
			c.code.Emit(vm.Push(1))
		} else {
			c.code.Emit(vm.Push(0))
		}

	case *CharLiteral:
		c.code.Emit(vm.Push(vm.Word(n.Value)))

	case *Identifier:
		c.code.Emit(vm.Load(c.resolve(n.Name).Addr))

	case *PrefixExpr:
		compileExpr(c, n.Right)
		switch n.Operator {
		case TokenMinus:
			c.code.Emit(vm.Simple(vm.OpNeg))
		case TokenBang:
			c.code.Emit(vm.Simple(vm.OpNot))
		default:
			panic(fmt.Sprintf("compiler: unknown prefix operator %s", n.Operator))
		}

	case *InfixExpr:
		compileInfix(c, n)

	case *CallExpr:
		compileCall(c, n)

	default:
		panic(fmt.Sprintf("compiler: unhandled expression %T", expr))
	}
}

func compileInfix(c *genContext, n *InfixExpr) {
	compileExpr(c, n.Left)
	compileExpr(c, n.Right)

	switch n.Operator {
	case TokenPlus:
		c.code.Emit(vm.Simple(vm.OpAdd))
	case TokenMinus:
		c.code.Emit(vm.Simple(vm.OpNeg))
		c.code.Emit(vm.Simple(vm.OpAdd))
	case TokenAsterisk:
		c.code.Emit(vm.Simple(vm.OpMul))
	case TokenSlash:
		c.code.Emit(vm.Simple(vm.OpDiv))
	case TokenEq:
		c.code.Emit(vm.Simple(vm.OpCmp))
	case TokenNotEq:
		c.code.Emit(vm.Simple(vm.OpCmp))
		c.code.Emit(vm.Simple(vm.OpNot))
	case TokenLt:
		c.code.Emit(vm.Simple(vm.OpLcmp))
	case TokenGt:
		c.code.Emit(vm.Simple(vm.OpGcmp))
	default:
		panic(fmt.Sprintf("compiler: unknown infix operator %s", n.Operator))
	}
}

// compileCall pushes the return address, then the arguments, then jumps.
// The callee stores its parameters and leaves the return address on top of
// the stack below its result.
func compileCall(c *genContext, n *CallExpr) {
	f, ok := c.funcs.Lookup(n.Function)
	if !ok {
		panic(fmt.Sprintf("compiler: call to undeclared function %q; the tree was not checked", n.Function))
	}

	ret := c.code.EmitPushPlaceholder()
	for _, arg := range n.Args {
		compileExpr(c, arg)
	}
	c.funcs.emitCall(f, c.code)
	c.code.PatchHere(ret)
}
