package compiler

// ---------------------------------------------------------------------------
// Semantic Analyzer: Pre-codegen name and type checks
// ---------------------------------------------------------------------------

// SemanticAnalyzer checks a parsed program before code generation. It
// resolves every name, checks operand and argument types, and rejects
// programs the code generator assumes away. Whether break and return appear
// in a valid context is left to the code generator.
type SemanticAnalyzer struct {
	diags    Diagnostics
	warnings Diagnostics

	functions map[string]*FuncDecl
	globals   map[string]bool // every top-level variable name

	scopes []map[string]Type // innermost last
	fn     *FuncDecl         // function being analyzed, nil at top level
}

// NewSemanticAnalyzer creates a new semantic analyzer.
func NewSemanticAnalyzer() *SemanticAnalyzer {
	return &SemanticAnalyzer{
		functions: make(map[string]*FuncDecl),
		globals:   make(map[string]bool),
	}
}

// Check analyzes file and returns its errors.
func Check(file *SourceFile) Diagnostics {
	s := NewSemanticAnalyzer()
	s.Analyze(file)
	return s.Diagnostics()
}

// Errors returns accumulated analysis errors as strings.
func (s *SemanticAnalyzer) Errors() []string {
	return s.diags.Strings()
}

// Diagnostics returns accumulated analysis errors.
func (s *SemanticAnalyzer) Diagnostics() Diagnostics {
	return s.diags
}

// Warnings returns findings that do not stop compilation.
func (s *SemanticAnalyzer) Warnings() Diagnostics {
	return s.warnings
}

// errorAt records an error at the start of node.
func (s *SemanticAnalyzer) errorAt(node Node, format string, args ...interface{}) {
	s.diags.add(node.Span().Start, format, args...)
}

// warnAt records a warning at the start of node.
func (s *SemanticAnalyzer) warnAt(node Node, format string, args ...interface{}) {
	s.warnings.add(node.Span().Start, format, args...)
}

// Analyze checks a whole program.
func (s *SemanticAnalyzer) Analyze(file *SourceFile) {
	// Signatures first so calls may precede declarations.
	for _, stmt := range file.Stmts {
		switch n := stmt.(type) {
		case *FuncDecl:
			if prev, ok := s.functions[n.Name]; ok {
				s.diags.add(n.NameSpan.Start, "function %s already declared at line %d", n.Name, prev.NameSpan.Start.Line)
				continue
			}
			s.functions[n.Name] = n
		case *DeclStmt:
			s.globals[n.Name] = true
		}
	}

	for _, fd := range file.Functions() {
		if s.functions[fd.Name] == fd {
			s.analyzeFunction(fd)
		}
	}

	s.scopes = []map[string]Type{make(map[string]Type)}
	for _, stmt := range file.Stmts {
		if _, ok := stmt.(*FuncDecl); ok {
			continue
		}
		s.analyzeStmt(stmt)
	}
	s.checkUnreachableCode(file.Stmts)
}

func (s *SemanticAnalyzer) analyzeFunction(fd *FuncDecl) {
	saved := s.scopes
	s.fn = fd
	s.scopes = []map[string]Type{make(map[string]Type)}
	defer func() {
		s.scopes = saved
		s.fn = nil
	}()

	for _, p := range fd.Params {
		if _, ok := s.lookup(p.Name); ok {
			s.diags.add(p.NameSpan.Start, "duplicate parameter %s in %s", p.Name, fd.Name)
			continue
		}
		s.define(p.Name, p.Type)
	}
	s.analyzeStatements(fd.Body.Stmts)
	s.checkUnreachableCode(fd.Body.Stmts)
}

// ---------------------------------------------------------------------------
// Scopes
// ---------------------------------------------------------------------------

func (s *SemanticAnalyzer) pushScope() {
	s.scopes = append(s.scopes, make(map[string]Type))
}

func (s *SemanticAnalyzer) popScope() {
	s.scopes = s.scopes[:len(s.scopes)-1]
}

func (s *SemanticAnalyzer) define(name string, t Type) {
	s.scopes[len(s.scopes)-1][name] = t
}

func (s *SemanticAnalyzer) lookup(name string) (Type, bool) {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if t, ok := s.scopes[i][name]; ok {
			return t, true
		}
	}
	return TypeInvalid, false
}

// variable resolves a name used as a variable and reports why it cannot be
// used if it is not visible.
func (s *SemanticAnalyzer) variable(node Node, name string) (Type, bool) {
	if t, ok := s.lookup(name); ok {
		return t, true
	}
	switch {
	case s.fn != nil && s.globals[name]:
		s.errorAt(node, "function %s cannot access global variable %s", s.fn.Name, name)
	case s.functions[name] != nil:
		s.errorAt(node, "%s is a function, not a variable", name)
	default:
		s.errorAt(node, "undeclared variable %s", name)
	}
	return TypeInvalid, false
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// analyzeStatements analyzes a list of statements.
func (s *SemanticAnalyzer) analyzeStatements(stmts []Stmt) {
	for _, stmt := range stmts {
		s.analyzeStmt(stmt)
	}
}

func (s *SemanticAnalyzer) analyzeBlock(b *Block) {
	s.pushScope()
	s.analyzeStatements(b.Stmts)
	s.popScope()
	s.checkUnreachableCode(b.Stmts)
}

func (s *SemanticAnalyzer) analyzeStmt(stmt Stmt) {
	switch n := stmt.(type) {
	case *DeclStmt:
		t := s.analyzeExpr(n.Value)
		if _, ok := s.lookup(n.Name); ok {
			s.diags.add(n.NameSpan.Start, "variable %s already declared in this scope", n.Name)
			return
		}
		s.expectType(n.Value, t, n.Type, "initializer of "+n.Name)
		s.define(n.Name, n.Type)

	case *AssignStmt:
		t := s.analyzeExpr(n.Value)
		if vt, ok := s.variable(n, n.Name); ok {
			s.expectType(n.Value, t, vt, "assignment to "+n.Name)
		}

	case *PostfixStmt:
		if vt, ok := s.variable(n, n.Name); ok && vt != TypeInt {
			s.errorAt(n, "%s requires an int variable, %s is %s", n.Operator, n.Name, vt)
		}

	case *ExprStmt:
		s.analyzeExpr(n.Expr)

	case *Block:
		s.analyzeBlock(n)

	case *IfStmt:
		s.expectType(n.Cond, s.analyzeExpr(n.Cond), TypeBool, "if condition")
		s.analyzeBlock(n.Then)
		if n.Else != nil {
			s.analyzeBlock(n.Else)
		}

	case *WhileStmt:
		s.expectType(n.Cond, s.analyzeExpr(n.Cond), TypeBool, "while condition")
		s.analyzeBlock(n.Body)

	case *BreakStmt:
		// placement is checked during code generation

	case *ReturnStmt:
		t := s.analyzeExpr(n.Value)
		if s.fn != nil {
			s.expectType(n.Value, t, s.fn.Result, "return value of "+s.fn.Name)
		}

	case *FuncDecl:
		s.errorAt(n, "function %s must be declared at top level", n.Name)

	default:
		s.errorAt(stmt, "unsupported statement %T", stmt)
	}
}

// expectType reports a mismatch unless got is invalid, which means an error
// was already reported for that expression.
func (s *SemanticAnalyzer) expectType(node Node, got, want Type, what string) {
	if got == TypeInvalid || got == want {
		return
	}
	s.errorAt(node, "%s: expected %s, got %s", what, want, got)
}

// checkUnreachableCode warns about statements following a return or break
// in the same statement list.
func (s *SemanticAnalyzer) checkUnreachableCode(stmts []Stmt) {
	for i, stmt := range stmts {
		switch stmt.(type) {
		case *ReturnStmt, *BreakStmt:
			if i < len(stmts)-1 {
				s.warnAt(stmts[i+1], "unreachable code")
			}
			return
		}
	}
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// analyzeExpr returns the type of e, or TypeInvalid after reporting an error.
func (s *SemanticAnalyzer) analyzeExpr(e Expr) Type {
	switch n := e.(type) {
	case *IntLiteral:
		return TypeInt
	case *BoolLiteral:
		return TypeBool
	case *CharLiteral:
		return TypeChar

	case *Identifier:
		t, _ := s.variable(n, n.Name)
		return t

	case *PrefixExpr:
		t := s.analyzeExpr(n.Right)
		switch n.Operator {
		case TokenMinus:
			s.expectType(n.Right, t, TypeInt, "operand of -")
			return TypeInt
		case TokenBang:
			s.expectType(n.Right, t, TypeBool, "operand of !")
			return TypeBool
		}

	case *InfixExpr:
		return s.analyzeInfix(n)

	case *CallExpr:
		return s.analyzeCall(n)
	}

	s.errorAt(e, "unsupported expression %T", e)
	return TypeInvalid
}

func (s *SemanticAnalyzer) analyzeInfix(n *InfixExpr) Type {
	lt := s.analyzeExpr(n.Left)
	rt := s.analyzeExpr(n.Right)

	switch n.Operator {
	case TokenPlus, TokenMinus, TokenAsterisk, TokenSlash:
		s.expectType(n.Left, lt, TypeInt, "left operand of "+n.Operator.String())
		s.expectType(n.Right, rt, TypeInt, "right operand of "+n.Operator.String())
		return TypeInt

	case TokenLt, TokenGt:
		if lt != TypeInvalid && lt != TypeInt && lt != TypeChar {
			s.errorAt(n.Left, "operator %s is not defined on %s", n.Operator, lt)
		} else {
			s.expectType(n.Right, rt, lt, "right operand of "+n.Operator.String())
		}
		return TypeBool

	case TokenEq, TokenNotEq:
		if lt != TypeInvalid {
			s.expectType(n.Right, rt, lt, "right operand of "+n.Operator.String())
		}
		return TypeBool
	}

	s.errorAt(n, "unknown operator %s", n.Operator)
	return TypeInvalid
}

func (s *SemanticAnalyzer) analyzeCall(n *CallExpr) Type {
	argTypes := make([]Type, len(n.Args))
	for i, a := range n.Args {
		argTypes[i] = s.analyzeExpr(a)
	}

	fd, ok := s.functions[n.Function]
	if !ok {
		if _, isVar := s.lookup(n.Function); isVar {
			s.errorAt(n, "%s is a variable, not a function", n.Function)
		} else {
			s.errorAt(n, "undeclared function %s", n.Function)
		}
		return TypeInvalid
	}

	if len(n.Args) != len(fd.Params) {
		s.errorAt(n, "%s expects %d argument(s), got %d", fd.Name, len(fd.Params), len(n.Args))
		return fd.Result
	}
	for i, p := range fd.Params {
		s.expectType(n.Args[i], argTypes[i], p.Type, "argument "+p.Name+" of "+fd.Name)
	}
	return fd.Result
}
