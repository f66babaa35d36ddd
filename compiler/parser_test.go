package compiler

import (
	"fmt"
	"strconv"
	"strings"
	"testing"
)

func parseOK(t *testing.T, input string) *SourceFile {
	t.Helper()
	file, diags := Parse(input)
	if len(diags) > 0 {
		t.Fatalf("parse errors for %q: %v", input, diags.Strings())
	}
	return file
}

// render prints an expression fully parenthesized.
func render(e Expr) string {
	switch n := e.(type) {
	case *IntLiteral:
		return strconv.Itoa(int(n.Value))
	case *BoolLiteral:
		if n.Value {
			return "true"
		}
		return "false"
	case *CharLiteral:
		return "'" + string(rune(n.Value)) + "'"
	case *Identifier:
		return n.Name
	case *PrefixExpr:
		return "(" + n.Operator.String() + render(n.Right) + ")"
	case *InfixExpr:
		return "(" + render(n.Left) + " " + n.Operator.String() + " " + render(n.Right) + ")"
	case *CallExpr:
		args := make([]string, len(n.Args))
		for i, a := range n.Args {
			args[i] = render(a)
		}
		return n.Function + "(" + strings.Join(args, ", ") + ")"
	}
	return "?"
}

func TestParserPrecedence(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1 + 2 * 3", "(1 + (2 * 3))"},
		{"1 * 2 + 3", "((1 * 2) + 3)"},
		{"1 - 2 - 3", "((1 - 2) - 3)"},
		{"8 / 4 / 2", "((8 / 4) / 2)"},
		{"(1 + 2) * 3", "((1 + 2) * 3)"},
		{"-a * b", "((-a) * b)"},
		{"!a == b", "((!a) == b)"},
		{"a < b == c > d", "((a < b) == (c > d))"},
		{"a + b < c * d", "((a + b) < (c * d))"},
		{"a == b != c", "((a == b) != c)"},
		{"- -x", "(-(-x))"},
		{"f(1, 2 + 3) * 2", "(f(1, (2 + 3)) * 2)"},
		{"-f(x)", "(-f(x))"},
		{"g()", "g()"},
		{"'a' < 'b'", "('a' < 'b')"},
		{"true == !false", "(true == (!false))"},
	}

	for _, tc := range tests {
		p := NewParser(tc.input)
		expr := p.ParseExpression()
		if len(p.Errors()) > 0 {
			t.Errorf("%q: parse errors: %v", tc.input, p.Errors())
			continue
		}
		if got := render(expr); got != tc.want {
			t.Errorf("%q parsed as %s, want %s", tc.input, got, tc.want)
		}
	}
}

func TestParserDeclarations(t *testing.T) {
	file := parseOK(t, "int x = 10; bool b = true; char c = 'z';")
	if len(file.Stmts) != 3 {
		t.Fatalf("got %d statements, want 3", len(file.Stmts))
	}

	wants := []struct {
		name string
		typ  Type
	}{{"x", TypeInt}, {"b", TypeBool}, {"c", TypeChar}}
	for i, w := range wants {
		decl, ok := file.Stmts[i].(*DeclStmt)
		if !ok {
			t.Fatalf("stmt %d is %T, want *DeclStmt", i, file.Stmts[i])
		}
		if decl.Name != w.name || decl.Type != w.typ {
			t.Errorf("stmt %d = %s %s, want %s %s", i, decl.Type, decl.Name, w.typ, w.name)
		}
	}
	if v := file.Stmts[0].(*DeclStmt).Value.(*IntLiteral).Value; v != 10 {
		t.Errorf("initializer = %d, want 10", v)
	}
}

func TestParserStatements(t *testing.T) {
	file := parseOK(t, `
x = 1;
x++;
y--;
f(x);
{ int t = 2; }
while (x < 3) { break; }
`)
	kinds := []string{"*compiler.AssignStmt", "*compiler.PostfixStmt", "*compiler.PostfixStmt",
		"*compiler.ExprStmt", "*compiler.Block", "*compiler.WhileStmt"}
	if len(file.Stmts) != len(kinds) {
		t.Fatalf("got %d statements, want %d", len(file.Stmts), len(kinds))
	}
	for i, s := range file.Stmts {
		if got := fmt.Sprintf("%T", s); got != kinds[i] {
			t.Errorf("stmt %d is %s, want %s", i, got, kinds[i])
		}
	}
	if op := file.Stmts[2].(*PostfixStmt).Operator; op != TokenDecrement {
		t.Errorf("postfix operator = %s, want --", op)
	}
	loop := file.Stmts[5].(*WhileStmt)
	if _, ok := loop.Body.Stmts[0].(*BreakStmt); !ok {
		t.Errorf("loop body = %T, want *BreakStmt", loop.Body.Stmts[0])
	}
}

func TestParserIfElseChain(t *testing.T) {
	file := parseOK(t, `
if (a) { x = 1; } else if (b) { x = 2; } else { x = 3; }
`)
	outer := file.Stmts[0].(*IfStmt)
	if outer.Else == nil || len(outer.Else.Stmts) != 1 {
		t.Fatalf("else = %+v, want block with nested if", outer.Else)
	}
	inner, ok := outer.Else.Stmts[0].(*IfStmt)
	if !ok {
		t.Fatalf("else holds %T, want *IfStmt", outer.Else.Stmts[0])
	}
	if inner.Else == nil || len(inner.Else.Stmts) != 1 {
		t.Fatalf("inner else = %+v", inner.Else)
	}
	if render(inner.Cond) != "b" {
		t.Errorf("inner condition = %s, want b", render(inner.Cond))
	}
}

func TestParserFunction(t *testing.T) {
	file := parseOK(t, `
int add(int a, int b) {
	return a + b;
}
bool yes() { return true; }
`)
	fns := file.Functions()
	if len(fns) != 2 {
		t.Fatalf("got %d functions, want 2", len(fns))
	}
	add := fns[0]
	if add.Signature() != "int add(int a, int b)" {
		t.Errorf("signature = %q", add.Signature())
	}
	if len(add.Body.Stmts) != 1 {
		t.Fatalf("body has %d statements, want 1", len(add.Body.Stmts))
	}
	ret := add.Body.Stmts[0].(*ReturnStmt)
	if render(ret.Value) != "(a + b)" {
		t.Errorf("return value = %s", render(ret.Value))
	}
	if fns[1].Signature() != "bool yes()" {
		t.Errorf("signature = %q", fns[1].Signature())
	}
}

func TestParserSpans(t *testing.T) {
	src := "int total = 1 + 2;"
	file := parseOK(t, src)
	decl := file.Stmts[0].(*DeclStmt)
	if got := src[decl.Span().Start.Offset:decl.Span().End.Offset]; got != src {
		t.Errorf("declaration span covers %q", got)
	}
	if got := src[decl.NameSpan.Start.Offset:decl.NameSpan.End.Offset]; got != "total" {
		t.Errorf("name span covers %q", got)
	}
	if got := src[decl.Value.Span().Start.Offset:decl.Value.Span().End.Offset]; got != "1 + 2" {
		t.Errorf("value span covers %q", got)
	}
}

func TestParserErrors(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"int x;", "must be initialized"},
		{"x = 1", "expected ;"},
		{"if x { }", "expected ("},
		{"while (x) y = 1;", "expected {"},
		{"return;", "requires a value"},
		{"int f(int) { }", "parameter name"},
		{"x = 99999999999;", "out of range"},
		{"x = (1 + 2;", "expected )"},
		{"x = 1 @ 2;", "unexpected character"},
		{"}", "unexpected }"},
	}

	for _, tc := range tests {
		_, diags := Parse(tc.input)
		if len(diags) == 0 {
			t.Errorf("%q: expected an error", tc.input)
			continue
		}
		if !strings.Contains(diags.Error(), tc.want) {
			t.Errorf("%q: errors %v, want one containing %q", tc.input, diags.Strings(), tc.want)
		}
	}
}

func TestParserRecovers(t *testing.T) {
	file, diags := Parse("int x = ; int y = 2; z = 3;")
	if len(diags) != 1 {
		t.Errorf("got %d errors, want 1: %v", len(diags), diags.Strings())
	}
	if len(file.Stmts) != 2 {
		t.Errorf("got %d statements after recovery, want 2", len(file.Stmts))
	}
}
