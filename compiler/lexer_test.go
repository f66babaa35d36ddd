package compiler

import (
	"testing"
)

func TestLexerBasicTokens(t *testing.T) {
	input := `( ) { } , ; = == != ! + - * / < > ++ --`
	expected := []struct {
		typ TokenType
		lit string
	}{
		{TokenLParen, "("},
		{TokenRParen, ")"},
		{TokenLBrace, "{"},
		{TokenRBrace, "}"},
		{TokenComma, ","},
		{TokenSemicolon, ";"},
		{TokenAssign, "="},
		{TokenEq, "=="},
		{TokenNotEq, "!="},
		{TokenBang, "!"},
		{TokenPlus, "+"},
		{TokenMinus, "-"},
		{TokenAsterisk, "*"},
		{TokenSlash, "/"},
		{TokenLt, "<"},
		{TokenGt, ">"},
		{TokenIncrement, "++"},
		{TokenDecrement, "--"},
		{TokenEOF, ""},
	}

	l := NewLexer(input)
	for i, exp := range expected {
		tok := l.NextToken()
		if tok.Type != exp.typ {
			t.Errorf("token[%d] type = %v, want %v", i, tok.Type, exp.typ)
		}
		if tok.Literal != exp.lit {
			t.Errorf("token[%d] literal = %q, want %q", i, tok.Literal, exp.lit)
		}
	}
}

func TestLexerKeywordsAndIdentifiers(t *testing.T) {
	tests := []struct {
		input string
		typ   TokenType
	}{
		{"int", TokenInt},
		{"bool", TokenBool},
		{"char", TokenChar},
		{"true", TokenTrue},
		{"false", TokenFalse},
		{"if", TokenIf},
		{"else", TokenElse},
		{"while", TokenWhile},
		{"break", TokenBreak},
		{"return", TokenReturn},
		{"x", TokenIdentifier},
		{"_tmp1", TokenIdentifier},
		{"integer", TokenIdentifier},
		{"whileTrue", TokenIdentifier},
	}

	for _, tc := range tests {
		tok := NewLexer(tc.input).NextToken()
		if tok.Type != tc.typ {
			t.Errorf("Lexer(%q): type = %v, want %v", tc.input, tok.Type, tc.typ)
		}
		if tok.Literal != tc.input {
			t.Errorf("Lexer(%q): literal = %q", tc.input, tok.Literal)
		}
	}
}

func TestLexerIntegers(t *testing.T) {
	for _, input := range []string{"0", "42", "2147483647"} {
		tok := NewLexer(input).NextToken()
		if tok.Type != TokenInteger || tok.Literal != input {
			t.Errorf("Lexer(%q) = %v, want INTEGER", input, tok)
		}
	}

	// The minus sign is an operator, not part of the literal.
	toks := Tokenize("-7")
	if toks[0].Type != TokenMinus || toks[1].Type != TokenInteger {
		t.Errorf("Tokenize(-7) = %v", toks)
	}

	if tok := NewLexer("12ab").NextToken(); tok.Type != TokenError {
		t.Errorf("Lexer(12ab) = %v, want ERROR", tok)
	}
}

func TestLexerCharacters(t *testing.T) {
	tests := []struct {
		input string
		want  byte
	}{
		{`'a'`, 'a'},
		{`'Z'`, 'Z'},
		{`' '`, ' '},
		{`'\n'`, '\n'},
		{`'\t'`, '\t'},
		{`'\0'`, 0},
		{`'\\'`, '\\'},
		{`'\''`, '\''},
	}

	for _, tc := range tests {
		tok := NewLexer(tc.input).NextToken()
		if tok.Type != TokenCharacter {
			t.Errorf("Lexer(%s): type = %v, want CHARACTER", tc.input, tok.Type)
			continue
		}
		if got := byte([]rune(tok.Literal)[0]); got != tc.want {
			t.Errorf("Lexer(%s): value = %d, want %d", tc.input, got, tc.want)
		}
	}
}

func TestLexerCharacterErrors(t *testing.T) {
	for _, input := range []string{`''`, `'ab'`, `'a`, `'\q'`, `'€'`} {
		tok := NewLexer(input).NextToken()
		if tok.Type != TokenError {
			t.Errorf("Lexer(%s) = %v, want ERROR", input, tok)
		}
	}
}

func TestLexerComments(t *testing.T) {
	toks := Tokenize("x // the rest is ignored ; {\ny")
	if len(toks) != 3 {
		t.Fatalf("got %d tokens, want 3: %v", len(toks), toks)
	}
	if toks[0].Literal != "x" || toks[1].Literal != "y" {
		t.Errorf("tokens = %v", toks)
	}
}

func TestLexerPositions(t *testing.T) {
	toks := Tokenize("int x = 1;\n  x++;")
	tests := []struct {
		idx       int
		line, col int
		offset    int
		endOffset int
	}{
		{0, 1, 1, 0, 3},   // int
		{1, 1, 5, 4, 5},   // x
		{5, 2, 3, 13, 14}, // x
		{6, 2, 4, 14, 16}, // ++
	}
	for _, tc := range tests {
		tok := toks[tc.idx]
		if tok.Pos.Line != tc.line || tok.Pos.Column != tc.col || tok.Pos.Offset != tc.offset {
			t.Errorf("token %v at %d:%d (offset %d), want %d:%d (offset %d)",
				tok, tok.Pos.Line, tok.Pos.Column, tok.Pos.Offset, tc.line, tc.col, tc.offset)
		}
		if tok.End.Offset != tc.endOffset {
			t.Errorf("token %v ends at %d, want %d", tok, tok.End.Offset, tc.endOffset)
		}
	}
}

func TestLexerUnexpectedCharacter(t *testing.T) {
	toks := Tokenize("x @ y")
	if toks[1].Type != TokenError {
		t.Fatalf("token[1] = %v, want ERROR", toks[1])
	}
	if toks[2].Type != TokenIdentifier {
		t.Errorf("lexing should resume after an error, got %v", toks[2])
	}
}
