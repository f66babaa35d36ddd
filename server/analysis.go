package server

import (
	"github.com/chazu/fe/compiler"
)

// Analysis is everything the server knows about one document version. File
// is always set, possibly partial after parse errors; Result is set only
// when the document got as far as code generation.
type Analysis struct {
	Text        string
	File        *compiler.SourceFile
	Stage       compiler.Stage // stage that reported Diagnostics, empty if none did
	Diagnostics compiler.Diagnostics
	Warnings    compiler.Diagnostics
	Result      *compiler.Result
}

// Analyze runs the build pipeline over text, stopping at the first stage
// that reports errors.
func Analyze(text string, opts compiler.Options) *Analysis {
	a := &Analysis{Text: text}

	file, diags := compiler.Parse(text)
	a.File = file
	if len(diags) > 0 {
		a.Stage, a.Diagnostics = compiler.StageParse, diags
		return a
	}

	checker := compiler.NewSemanticAnalyzer()
	checker.Analyze(file)
	a.Warnings = checker.Warnings()
	if diags := checker.Diagnostics(); len(diags) > 0 {
		a.Stage, a.Diagnostics = compiler.StageCheck, diags
		return a
	}

	a.Result = compiler.Compile(file, opts)
	if len(a.Result.Diagnostics) > 0 {
		a.Stage, a.Diagnostics = compiler.StageCompile, a.Result.Diagnostics
	}
	return a
}

// ---------------------------------------------------------------------------
// Declarations
// ---------------------------------------------------------------------------

// DeclKind distinguishes what a name was declared as.
type DeclKind int

const (
	DeclVariable DeclKind = iota
	DeclParam
	DeclFunction
)

// Declaration is a name introduced by the document.
type Declaration struct {
	Name     string
	Kind     DeclKind
	Type     compiler.Type // result type for functions
	Function string        // enclosing function, empty at top level
	NameSpan compiler.Span
	Func     *compiler.FuncDecl // set for DeclFunction
}

// Declarations lists every declaration in source order.
func (a *Analysis) Declarations() []Declaration {
	if a.File == nil {
		return nil
	}
	var out []Declaration
	for _, stmt := range a.File.Stmts {
		fd, ok := stmt.(*compiler.FuncDecl)
		if !ok {
			out = appendVariables(out, stmt, "")
			continue
		}
		out = append(out, Declaration{
			Name: fd.Name, Kind: DeclFunction, Type: fd.Result,
			NameSpan: fd.NameSpan, Func: fd,
		})
		for _, p := range fd.Params {
			out = append(out, Declaration{
				Name: p.Name, Kind: DeclParam, Type: p.Type,
				Function: fd.Name, NameSpan: p.NameSpan,
			})
		}
		if fd.Body != nil {
			out = appendVariables(out, fd.Body, fd.Name)
		}
	}
	return out
}

func appendVariables(out []Declaration, root compiler.Node, function string) []Declaration {
	compiler.Inspect(root, func(n compiler.Node) bool {
		if d, ok := n.(*compiler.DeclStmt); ok {
			out = append(out, Declaration{
				Name: d.Name, Kind: DeclVariable, Type: d.Type,
				Function: function, NameSpan: d.NameSpan,
			})
		}
		return true
	})
	return out
}

// functionAt returns the top-level function whose declaration contains
// offset, or nil.
func (a *Analysis) functionAt(offset int) *compiler.FuncDecl {
	if a.File == nil {
		return nil
	}
	for _, fd := range a.File.Functions() {
		if fd.SpanVal.Contains(offset) {
			return fd
		}
	}
	return nil
}

// Resolve finds the declaration a name at offset refers to. Inside a
// function only its parameters and locals are visible; at top level only
// globals. Function names are visible everywhere.
func (a *Analysis) Resolve(name string, offset int) *Declaration {
	context := ""
	if fd := a.functionAt(offset); fd != nil {
		context = fd.Name
	}

	var best, fn *Declaration
	for _, d := range a.Declarations() {
		d := d
		if d.Name != name {
			continue
		}
		if d.Kind == DeclFunction {
			if fn == nil {
				fn = &d
			}
			continue
		}
		if d.Function != context {
			continue
		}
		// The nearest declaration at or before offset wins; otherwise the first.
		if best == nil || (d.NameSpan.Start.Offset <= offset && best.NameSpan.Start.Offset < d.NameSpan.Start.Offset) {
			best = &d
		}
	}
	if best != nil {
		return best
	}
	return fn
}

// References returns the spans of every mention of the declaration d,
// including the declaration itself.
func (a *Analysis) References(d *Declaration) []compiler.Span {
	if a.File == nil || d == nil {
		return nil
	}

	var spans []compiler.Span
	if d.Kind == DeclFunction {
		spans = append(spans, d.NameSpan)
		compiler.Inspect(a.File, func(n compiler.Node) bool {
			if c, ok := n.(*compiler.CallExpr); ok && c.Function == d.Name {
				spans = append(spans, c.NameSpan)
			}
			return true
		})
		return spans
	}

	visit := func(n compiler.Node) bool {
		switch n := n.(type) {
		case *compiler.FuncDecl:
			// Functions cannot see top-level variables.
			return d.Function != ""
		case *compiler.Identifier:
			if n.Name == d.Name {
				spans = append(spans, n.SpanVal)
			}
		case *compiler.DeclStmt:
			if n.Name == d.Name {
				spans = append(spans, n.NameSpan)
			}
		case *compiler.AssignStmt:
			if n.Name == d.Name {
				spans = append(spans, n.NameSpan)
			}
		case *compiler.PostfixStmt:
			if n.Name == d.Name {
				spans = append(spans, n.NameSpan)
			}
		}
		return true
	}

	if d.Function == "" {
		compiler.Inspect(a.File, visit)
		return spans
	}
	for _, fd := range a.File.Functions() {
		if fd.Name != d.Function {
			continue
		}
		for _, p := range fd.Params {
			if p.Name == d.Name {
				spans = append(spans, p.NameSpan)
			}
		}
		compiler.Inspect(fd.Body, visit)
		break
	}
	return spans
}

// Symbol returns the compiled symbol for a variable declaration, or nil if
// the document did not compile.
func (a *Analysis) Symbol(d *Declaration) *compiler.Symbol {
	if a.Result == nil || d == nil || d.Kind == DeclFunction {
		return nil
	}
	for _, sym := range a.Result.Symbols {
		if sym.Function == d.Function && sym.Name == d.Name && sym.Pos.Offset == d.NameSpan.Start.Offset {
			return sym
		}
	}
	return nil
}

// Function returns the compiled function for a function declaration, or nil.
func (a *Analysis) Function(d *Declaration) *compiler.Function {
	if a.Result == nil || d == nil || d.Kind != DeclFunction {
		return nil
	}
	for _, f := range a.Result.Functions {
		if f.Decl == d.Func {
			return f
		}
	}
	return nil
}
