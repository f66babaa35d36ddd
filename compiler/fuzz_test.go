package compiler

import (
	"testing"
)

var fuzzSeeds = []string{
	// Tokens
	`( ) { } , ; = == != ! + - * / < > ++ --`,
	`42`, `0`, `2147483647`, `99999999999`,
	`'a'`, `'\n'`, `'\0'`, `''`, `'ab'`, `'\q'`,
	`x`, `_tmp`, `int`, `bool`, `char`, `true`, `false`,
	"// comment\nx",
	// Statements
	`int x = 2 + 3 * 4;`,
	`bool b = 5 < 4;`,
	`char c = 'a'; c = 'b';`,
	`int i = 0; while (i < 3) { i++; }`,
	`int x = 0; while (x < 5) { x++; if (x == 3) { break; } }`,
	`if (true) { } else if (false) { } else { }`,
	`int add(int a, int b) { return a + b; } int r = add(2, 3);`,
	`int r = f(); int f() { return 1; }`,
	// Broken
	`int x;`, `x = ;`, `if (`, `while (x) {`, `}`, `{`, `int f(int) {}`,
	`return;`, `break;`, `int x = 1 / 0;`,
	// Unicode and whitespace
	`café`, `'€'`, ``, "\t\n\r",
}

// ---------------------------------------------------------------------------
// FuzzLexer: ensure the lexer never panics and always reaches EOF.
// ---------------------------------------------------------------------------

func FuzzLexer(f *testing.F) {
	for _, s := range fuzzSeeds {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, input string) {
		toks := Tokenize(input)
		if toks[len(toks)-1].Type != TokenEOF {
			t.Errorf("last token = %v, want EOF", toks[len(toks)-1])
		}
		if len(toks) > len(input)+1 {
			t.Errorf("%d tokens from %d bytes", len(toks), len(input))
		}
	})
}

// ---------------------------------------------------------------------------
// FuzzBuild: parsing, checking, and compiling never panic. A build that
// succeeds always yields a program whose jumps stay in range.
// ---------------------------------------------------------------------------

func FuzzBuild(f *testing.F) {
	for _, s := range fuzzSeeds {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, input string) {
		out, err := Build(input, DefaultOptions())
		if err != nil {
			return
		}
		p := out.Program
		if p.Entry < 0 || p.Entry > p.Len() {
			t.Fatalf("entry %d outside code (len=%d)", p.Entry, p.Len())
		}
		for i, in := range p.Code {
			if !in.Op.Valid() {
				t.Errorf("instruction %d has invalid opcode %s", i, in.Op)
			}
		}
	})
}
