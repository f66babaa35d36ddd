package compiler

import (
	"strings"
	"testing"
)

func analyze(t *testing.T, src string) *SemanticAnalyzer {
	t.Helper()
	file := parseOK(t, src)
	s := NewSemanticAnalyzer()
	s.Analyze(file)
	return s
}

func TestSemanticAcceptsValidPrograms(t *testing.T) {
	tests := []string{
		"int x = 1; x = x + 2; x++;",
		"bool b = 1 < 2; if (b) { b = !b; }",
		"char c = 'a'; bool lt = c < 'z'; bool eq = c == 'a';",
		"int f(int n) { return n * 2; } int y = f(3);",
		"int y = g(); int g() { return 1; }",
		"int a = 0; { int t = 1; a = t; } { int t = 2; a = a + t; }",
		"int x = 0; while (x < 3) { x++; if (x == 2) { break; } }",
		"int f(int x) { return x; } int x = f(1);",
		"bool even(int n) { if (n == 0) { return true; } return odd(n - 1); } bool odd(int n) { if (n == 0) { return false; } return even(n - 1); }",
	}

	for _, src := range tests {
		s := analyze(t, src)
		if len(s.Errors()) > 0 {
			t.Errorf("%q: unexpected errors: %v", src, s.Errors())
		}
	}
}

func TestSemanticErrors(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"x = 1;", "undeclared variable x"},
		{"int y = x;", "undeclared variable x"},
		{"int x = 1; int x = 2;", "already declared"},
		{"int x = 1; { int x = 2; }", "already declared"},
		{"{ int t = 1; } t = 2;", "undeclared variable t"},
		{"int x = true;", "expected int, got bool"},
		{"bool b = 1;", "expected bool, got int"},
		{"char c = 65;", "expected char, got int"},
		{"int x = 1; x = 'a';", "expected int, got char"},
		{"bool b = true; b++;", "requires an int variable"},
		{"int x = 1 + true;", "right operand of +"},
		{"int x = -true;", "operand of -"},
		{"bool b = !1;", "operand of !"},
		{"bool b = true < false;", "not defined on bool"},
		{"bool b = 1 < 'a';", "right operand of <"},
		{"bool b = 1 == true;", "right operand of =="},
		{"if (1) { }", "if condition"},
		{"while (0) { }", "while condition"},
		{"int y = f();", "undeclared function f"},
		{"int x = 1; int y = x();", "x is a variable"},
		{"int f() { return 1; } int y = f + 1;", "f is a function"},
		{"int f(int a) { return a; } int y = f();", "expects 1 argument(s), got 0"},
		{"int f(bool a) { return 1; } int y = f(3);", "argument a of f"},
		{"bool f() { return 1; }", "return value of f"},
		{"int f() { return 1; } int f() { return 2; }", "already declared"},
		{"int f(int a, int a) { return a; }", "duplicate parameter"},
		{"int g = 1; int f() { return g; }", "cannot access global variable g"},
		{"if (true) { int f() { return 1; } }", "must be declared at top level"},
	}

	for _, tc := range tests {
		s := analyze(t, tc.src)
		errs := strings.Join(s.Errors(), "\n")
		if errs == "" {
			t.Errorf("%q: expected an error containing %q", tc.src, tc.want)
			continue
		}
		if !strings.Contains(errs, tc.want) {
			t.Errorf("%q: errors %q, want one containing %q", tc.src, errs, tc.want)
		}
	}
}

// Placement of break and return is left to code generation.
func TestSemanticIgnoresControlPlacement(t *testing.T) {
	for _, src := range []string{"break;", "return 1;", "if (true) { break; }"} {
		s := analyze(t, src)
		if len(s.Errors()) > 0 {
			t.Errorf("%q: unexpected errors: %v", src, s.Errors())
		}
	}
}

func TestSemanticErrorPositions(t *testing.T) {
	s := analyze(t, "int x = 1;\nx = y;")
	diags := s.Diagnostics()
	if len(diags) != 1 {
		t.Fatalf("got %d errors, want 1: %v", len(diags), s.Errors())
	}
	if diags[0].Pos.Line != 2 {
		t.Errorf("error on line %d, want 2", diags[0].Pos.Line)
	}
	if !strings.HasPrefix(diags[0].String(), "line 2, column ") {
		t.Errorf("String() = %q", diags[0].String())
	}
}

func TestSemanticNoCascade(t *testing.T) {
	// One bad operand yields one error, not one per enclosing expression.
	s := analyze(t, "int x = (y + 1) * 2;")
	if len(s.Errors()) != 1 {
		t.Errorf("got %d errors, want 1: %v", len(s.Errors()), s.Errors())
	}
}

func TestSemanticUnreachableWarning(t *testing.T) {
	s := analyze(t, "int f() { return 1; int dead = 2; } int x = 0; while (true) { break; x++; }")
	if len(s.Errors()) > 0 {
		t.Fatalf("unexpected errors: %v", s.Errors())
	}
	if len(s.Warnings()) != 2 {
		t.Errorf("got %d warnings, want 2: %v", len(s.Warnings()), s.Warnings().Strings())
	}
}
