package compiler

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Lexer
// ---------------------------------------------------------------------------

// Lexer tokenizes source code.
type Lexer struct {
	input     string
	pos       int  // offset of ch
	readPos   int  // offset after ch
	ch        rune // current character, 0 at EOF
	line      int  // line of ch (1-based)
	lineStart int  // offset of the first character on line
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input, line: 1}
	l.readChar()
	return l
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.lineStart = l.readPos
	}
	if l.readPos >= len(l.input) {
		l.ch = 0
		l.pos = len(l.input)
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.ch = r
	l.pos = l.readPos
	l.readPos += size
}

// peekChar returns the next character without consuming it.
func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

func (l *Lexer) position() Position {
	return Position{
		Offset: l.pos,
		Line:   l.line,
		Column: l.pos - l.lineStart + 1,
	}
}

// Tokenize returns every token in input, ending with EOF.
func Tokenize(input string) []Token {
	l := NewLexer(input)
	var toks []Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == TokenEOF {
			return toks
		}
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	tok := l.scan()
	tok.End = l.position()
	return tok
}

func (l *Lexer) scan() Token {
	l.skipWhitespaceAndComments()

	pos := l.position()
	single := func(t TokenType) Token {
		lit := string(l.ch)
		l.readChar()
		return Token{Type: t, Literal: lit, Pos: pos}
	}
	double := func(t TokenType) Token {
		lit := string(l.ch) + string(l.peekChar())
		l.readChar()
		l.readChar()
		return Token{Type: t, Literal: lit, Pos: pos}
	}

	switch {
	case l.ch == 0:
		return Token{Type: TokenEOF, Pos: pos}

	case l.ch == '=':
		if l.peekChar() == '=' {
			return double(TokenEq)
		}
		return single(TokenAssign)

	case l.ch == '!':
		if l.peekChar() == '=' {
			return double(TokenNotEq)
		}
		return single(TokenBang)

	case l.ch == '+':
		if l.peekChar() == '+' {
			return double(TokenIncrement)
		}
		return single(TokenPlus)

	case l.ch == '-':
		if l.peekChar() == '-' {
			return double(TokenDecrement)
		}
		return single(TokenMinus)

	case l.ch == '*':
		return single(TokenAsterisk)
	case l.ch == '/':
		return single(TokenSlash)
	case l.ch == '<':
		return single(TokenLt)
	case l.ch == '>':
		return single(TokenGt)
	case l.ch == ',':
		return single(TokenComma)
	case l.ch == ';':
		return single(TokenSemicolon)
	case l.ch == '(':
		return single(TokenLParen)
	case l.ch == ')':
		return single(TokenRParen)
	case l.ch == '{':
		return single(TokenLBrace)
	case l.ch == '}':
		return single(TokenRBrace)

	case l.ch == '\'':
		return l.readCharacter(pos)

	case isDigit(l.ch):
		return l.readNumber(pos)

	case isLetter(l.ch):
		return l.readIdentifier(pos)

	default:
		ch := l.ch
		l.readChar()
		return Token{Type: TokenError, Literal: fmt.Sprintf("unexpected character %q", ch), Pos: pos}
	}
}

// skipWhitespaceAndComments skips whitespace and // line comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
			l.readChar()
		}
		if l.ch == '/' && l.peekChar() == '/' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}
		return
	}
}

func (l *Lexer) readIdentifier(pos Position) Token {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	lit := l.input[start:l.pos]
	if t, ok := keywords[lit]; ok {
		return Token{Type: t, Literal: lit, Pos: pos}
	}
	return Token{Type: TokenIdentifier, Literal: lit, Pos: pos}
}

func (l *Lexer) readNumber(pos Position) Token {
	start := l.pos
	for isDigit(l.ch) {
		l.readChar()
	}
	if isLetter(l.ch) {
		for isLetter(l.ch) || isDigit(l.ch) {
			l.readChar()
		}
		return Token{Type: TokenError, Literal: fmt.Sprintf("malformed number %q", l.input[start:l.pos]), Pos: pos}
	}
	return Token{Type: TokenInteger, Literal: l.input[start:l.pos], Pos: pos}
}

// readCharacter reads a quoted character literal. The token literal is the
// decoded character.
func (l *Lexer) readCharacter(pos Position) Token {
	l.readChar() // opening quote

	var value rune
	switch l.ch {
	case 0, '\n':
		return Token{Type: TokenError, Literal: "unterminated character literal", Pos: pos}
	case '\'':
		l.readChar()
		return Token{Type: TokenError, Literal: "empty character literal", Pos: pos}
	case '\\':
		l.readChar()
		switch l.ch {
		case 'n':
			value = '\n'
		case 't':
			value = '\t'
		case 'r':
			value = '\r'
		case '0':
			value = 0
		case '\\':
			value = '\\'
		case '\'':
			value = '\''
		default:
			bad := l.ch
			l.readChar()
			return Token{Type: TokenError, Literal: fmt.Sprintf("unknown escape \\%c", bad), Pos: pos}
		}
	default:
		value = l.ch
	}
	l.readChar()

	if l.ch != '\'' {
		return Token{Type: TokenError, Literal: "unterminated character literal", Pos: pos}
	}
	l.readChar()

	if value > 0xFF {
		return Token{Type: TokenError, Literal: fmt.Sprintf("character %q does not fit in a byte", value), Pos: pos}
	}
	return Token{Type: TokenCharacter, Literal: string(value), Pos: pos}
}

func isLetter(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
