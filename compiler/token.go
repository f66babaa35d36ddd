package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token types
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenIdentifier // x, count
	TokenInteger    // 42
	TokenCharacter  // 'a', '\n'

	// Type keywords
	TokenInt
	TokenBool
	TokenChar

	// Keywords
	TokenTrue
	TokenFalse
	TokenIf
	TokenElse
	TokenWhile
	TokenBreak
	TokenReturn

	// Operators
	TokenAssign    // =
	TokenEq        // ==
	TokenNotEq     // !=
	TokenBang      // !
	TokenPlus      // +
	TokenMinus     // -
	TokenAsterisk  // *
	TokenSlash     // /
	TokenLt        // <
	TokenGt        // >
	TokenIncrement // ++
	TokenDecrement // --

	// Delimiters
	TokenComma     // ,
	TokenSemicolon // ;
	TokenLParen    // (
	TokenRParen    // )
	TokenLBrace    // {
	TokenRBrace    // }
)

var tokenNames = map[TokenType]string{
	TokenEOF:        "EOF",
	TokenError:      "ERROR",
	TokenIdentifier: "IDENTIFIER",
	TokenInteger:    "INTEGER",
	TokenCharacter:  "CHARACTER",
	TokenInt:        "int",
	TokenBool:       "bool",
	TokenChar:       "char",
	TokenTrue:       "true",
	TokenFalse:      "false",
	TokenIf:         "if",
	TokenElse:       "else",
	TokenWhile:      "while",
	TokenBreak:      "break",
	TokenReturn:     "return",
	TokenAssign:     "=",
	TokenEq:         "==",
	TokenNotEq:      "!=",
	TokenBang:       "!",
	TokenPlus:       "+",
	TokenMinus:      "-",
	TokenAsterisk:   "*",
	TokenSlash:      "/",
	TokenLt:         "<",
	TokenGt:         ">",
	TokenIncrement:  "++",
	TokenDecrement:  "--",
	TokenComma:      ",",
	TokenSemicolon:  ";",
	TokenLParen:     "(",
	TokenRParen:     ")",
	TokenLBrace:     "{",
	TokenRBrace:     "}",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// IsType reports whether t names a value type.
func (t TokenType) IsType() bool {
	return t == TokenInt || t == TokenBool || t == TokenChar
}

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string   // raw text; decoded character for TokenCharacter
	Pos     Position // start position
	End     Position // position after the last character
}

func (t Token) String() string {
	switch t.Type {
	case TokenEOF:
		return "EOF"
	case TokenError:
		return fmt.Sprintf("ERROR(%s)", t.Literal)
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}

// Keywords mapped to their token types.
var keywords = map[string]TokenType{
	"int":    TokenInt,
	"bool":   TokenBool,
	"char":   TokenChar,
	"true":   TokenTrue,
	"false":  TokenFalse,
	"if":     TokenIf,
	"else":   TokenElse,
	"while":  TokenWhile,
	"break":  TokenBreak,
	"return": TokenReturn,
}

// Keywords returns the reserved words of the language.
func Keywords() []string {
	out := make([]string, 0, len(keywords))
	for k := range keywords {
		out = append(out, k)
	}
	return out
}
