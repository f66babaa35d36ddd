package compiler

import "fmt"

// ---------------------------------------------------------------------------
// AST: Abstract Syntax Tree
// ---------------------------------------------------------------------------

// Position represents a source location.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Span represents a range in source code.
type Span struct {
	Start Position
	End   Position
}

// Contains reports whether offset falls inside the span.
func (s Span) Contains(offset int) bool {
	return offset >= s.Start.Offset && offset < s.End.Offset
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Span() Span
	node() // marker method
}

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// Type is a value type of the language.
type Type uint8

const (
	TypeInvalid Type = iota
	TypeInt
	TypeBool
	TypeChar
)

func (t Type) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeBool:
		return "bool"
	case TypeChar:
		return "char"
	}
	return "invalid"
}

// typeFromToken maps a type keyword to its Type.
func typeFromToken(t TokenType) Type {
	switch t {
	case TokenInt:
		return TypeInt
	case TokenBool:
		return TypeBool
	case TokenChar:
		return TypeChar
	}
	return TypeInvalid
}

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	expr() // marker method
}

// IntLiteral represents an integer literal.
type IntLiteral struct {
	SpanVal Span
	Value   int32
}

func (n *IntLiteral) Span() Span { return n.SpanVal }
func (n *IntLiteral) node()      {}
func (n *IntLiteral) expr()      {}

// BoolLiteral represents true or false.
type BoolLiteral struct {
	SpanVal Span
	Value   bool
}

func (n *BoolLiteral) Span() Span { return n.SpanVal }
func (n *BoolLiteral) node()      {}
func (n *BoolLiteral) expr()      {}

// CharLiteral represents a character literal: 'a'.
type CharLiteral struct {
	SpanVal Span
	Value   byte
}

func (n *CharLiteral) Span() Span { return n.SpanVal }
func (n *CharLiteral) node()      {}
func (n *CharLiteral) expr()      {}

// Identifier represents a variable reference.
type Identifier struct {
	SpanVal Span
	Name    string
}

func (n *Identifier) Span() Span { return n.SpanVal }
func (n *Identifier) node()      {}
func (n *Identifier) expr()      {}

// PrefixExpr represents a unary operation: -x, !x.
type PrefixExpr struct {
	SpanVal  Span
	Operator TokenType // TokenMinus or TokenBang
	Right    Expr
}

func (n *PrefixExpr) Span() Span { return n.SpanVal }
func (n *PrefixExpr) node()      {}
func (n *PrefixExpr) expr()      {}

// InfixExpr represents a binary operation: a + b.
type InfixExpr struct {
	SpanVal  Span
	Left     Expr
	Operator TokenType
	Right    Expr
}

func (n *InfixExpr) Span() Span { return n.SpanVal }
func (n *InfixExpr) node()      {}
func (n *InfixExpr) expr()      {}

// CallExpr represents a function call: f(a, b).
type CallExpr struct {
	SpanVal  Span
	Function string
	NameSpan Span
	Args     []Expr
}

func (n *CallExpr) Span() Span { return n.SpanVal }
func (n *CallExpr) node()      {}
func (n *CallExpr) expr()      {}

// ---------------------------------------------------------------------------
// Statement nodes
// ---------------------------------------------------------------------------

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmt() // marker method
}

// DeclStmt declares and initializes a variable: int x = 1;
type DeclStmt struct {
	SpanVal  Span
	Type     Type
	Name     string
	NameSpan Span
	Value    Expr
}

func (n *DeclStmt) Span() Span { return n.SpanVal }
func (n *DeclStmt) node()      {}
func (n *DeclStmt) stmt()      {}

// AssignStmt assigns to an existing variable: x = 1;
type AssignStmt struct {
	SpanVal  Span
	Name     string
	NameSpan Span
	Value    Expr
}

func (n *AssignStmt) Span() Span { return n.SpanVal }
func (n *AssignStmt) node()      {}
func (n *AssignStmt) stmt()      {}

// PostfixStmt increments or decrements a variable: x++; x--;
type PostfixStmt struct {
	SpanVal  Span
	Name     string
	NameSpan Span
	Operator TokenType // TokenIncrement or TokenDecrement
}

func (n *PostfixStmt) Span() Span { return n.SpanVal }
func (n *PostfixStmt) node()      {}
func (n *PostfixStmt) stmt()      {}

// ExprStmt evaluates an expression and discards its value.
type ExprStmt struct {
	SpanVal Span
	Expr    Expr
}

func (n *ExprStmt) Span() Span { return n.SpanVal }
func (n *ExprStmt) node()      {}
func (n *ExprStmt) stmt()      {}

// Block is a braced statement sequence with its own scope.
type Block struct {
	SpanVal Span
	Stmts   []Stmt
}

func (n *Block) Span() Span { return n.SpanVal }
func (n *Block) node()      {}
func (n *Block) stmt()      {}

// IfStmt is a conditional. Else is nil, or a block that may hold a single
// nested IfStmt for an else-if chain.
type IfStmt struct {
	SpanVal Span
	Cond    Expr
	Then    *Block
	Else    *Block
}

func (n *IfStmt) Span() Span { return n.SpanVal }
func (n *IfStmt) node()      {}
func (n *IfStmt) stmt()      {}

// WhileStmt is a pre-tested loop.
type WhileStmt struct {
	SpanVal Span
	Cond    Expr
	Body    *Block
}

func (n *WhileStmt) Span() Span { return n.SpanVal }
func (n *WhileStmt) node()      {}
func (n *WhileStmt) stmt()      {}

// BreakStmt exits the innermost loop.
type BreakStmt struct {
	SpanVal Span
}

func (n *BreakStmt) Span() Span { return n.SpanVal }
func (n *BreakStmt) node()      {}
func (n *BreakStmt) stmt()      {}

// ReturnStmt returns a value from the enclosing function.
type ReturnStmt struct {
	SpanVal Span
	Value   Expr
}

func (n *ReturnStmt) Span() Span { return n.SpanVal }
func (n *ReturnStmt) node()      {}
func (n *ReturnStmt) stmt()      {}

// Param is a typed function parameter.
type Param struct {
	SpanVal  Span
	Type     Type
	Name     string
	NameSpan Span
}

// FuncDecl declares a function: int add(int a, int b) { ... }
type FuncDecl struct {
	SpanVal  Span
	Result   Type
	Name     string
	NameSpan Span
	Params   []*Param
	Body     *Block
}

func (n *FuncDecl) Span() Span { return n.SpanVal }
func (n *FuncDecl) node()      {}
func (n *FuncDecl) stmt()      {}

// Signature renders the declaration header: int add(int a, int b).
func (n *FuncDecl) Signature() string {
	s := n.Result.String() + " " + n.Name + "("
	for i, p := range n.Params {
		if i > 0 {
			s += ", "
		}
		s += p.Type.String() + " " + p.Name
	}
	return s + ")"
}

// ---------------------------------------------------------------------------
// Source file
// ---------------------------------------------------------------------------

// SourceFile is the root of a parsed program: its top-level statements in
// source order.
type SourceFile struct {
	SpanVal Span
	Stmts   []Stmt
}

func (n *SourceFile) Span() Span { return n.SpanVal }
func (n *SourceFile) node()      {}

// Functions returns the top-level function declarations in source order.
func (n *SourceFile) Functions() []*FuncDecl {
	var out []*FuncDecl
	for _, s := range n.Stmts {
		if fd, ok := s.(*FuncDecl); ok {
			out = append(out, fd)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Walk
// ---------------------------------------------------------------------------

// Inspect traverses the tree rooted at n in depth-first order, calling f for
// each node. If f returns false, children of that node are skipped.
func Inspect(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}
	switch n := n.(type) {
	case *SourceFile:
		for _, s := range n.Stmts {
			Inspect(s, f)
		}
	case *Block:
		for _, s := range n.Stmts {
			Inspect(s, f)
		}
	case *FuncDecl:
		Inspect(n.Body, f)
	case *DeclStmt:
		Inspect(n.Value, f)
	case *AssignStmt:
		Inspect(n.Value, f)
	case *ExprStmt:
		Inspect(n.Expr, f)
	case *IfStmt:
		Inspect(n.Cond, f)
		Inspect(n.Then, f)
		if n.Else != nil {
			Inspect(n.Else, f)
		}
	case *WhileStmt:
		Inspect(n.Cond, f)
		Inspect(n.Body, f)
	case *ReturnStmt:
		Inspect(n.Value, f)
	case *PrefixExpr:
		Inspect(n.Right, f)
	case *InfixExpr:
		Inspect(n.Left, f)
		Inspect(n.Right, f)
	case *CallExpr:
		for _, a := range n.Args {
			Inspect(a, f)
		}
	}
}
