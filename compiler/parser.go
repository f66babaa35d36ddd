package compiler

import (
	"strconv"
)

// ---------------------------------------------------------------------------
// Parser: Recursive descent with precedence climbing for expressions
// ---------------------------------------------------------------------------

// Parser parses source code into an AST.
type Parser struct {
	lexer     *Lexer
	curToken  Token
	peekToken Token
	prevEnd   Position // end of the last consumed token
	diags     Diagnostics
}

// NewParser creates a new parser for the given input.
func NewParser(input string) *Parser {
	p := &Parser{lexer: NewLexer(input)}
	// Read two tokens to fill curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

// nextToken advances to the next token. Lexical errors are reported here
// and skipped, so the grammar never sees them.
func (p *Parser) nextToken() {
	p.prevEnd = p.curToken.End
	p.curToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
	for p.curToken.Type == TokenError {
		p.diags.add(p.curToken.Pos, "%s", p.curToken.Literal)
		p.curToken = p.peekToken
		p.peekToken = p.lexer.NextToken()
	}
}

// curTokenIs checks if the current token is of the given type.
func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

// peekTokenIs checks if the peek token is of the given type.
func (p *Parser) peekTokenIs(t TokenType) bool {
	return p.peekToken.Type == t
}

// expect advances if the current token matches, otherwise records an error.
func (p *Parser) expect(t TokenType) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	p.errorf("expected %s, got %s", t, describe(p.curToken))
	return false
}

// errorf records a parse error at the current token.
func (p *Parser) errorf(format string, args ...interface{}) {
	p.diags.add(p.curToken.Pos, format, args...)
}

// Errors returns accumulated parse errors as strings.
func (p *Parser) Errors() []string {
	return p.diags.Strings()
}

// Diagnostics returns accumulated parse errors.
func (p *Parser) Diagnostics() Diagnostics {
	return p.diags
}

func (p *Parser) spanFrom(start Position) Span {
	return Span{Start: start, End: p.prevEnd}
}

func describe(tok Token) string {
	switch tok.Type {
	case TokenEOF:
		return "end of input"
	case TokenIdentifier, TokenInteger:
		return strconv.Quote(tok.Literal)
	}
	return tok.Type.String()
}

// synchronize skips to the next statement boundary after an error.
func (p *Parser) synchronize() {
	for !p.curTokenIs(TokenEOF) {
		switch p.curToken.Type {
		case TokenSemicolon:
			p.nextToken()
			return
		case TokenRBrace:
			return
		}
		p.nextToken()
	}
}

// ---------------------------------------------------------------------------
// Top-level parsing
// ---------------------------------------------------------------------------

// ParseSourceFile parses a whole program.
func (p *Parser) ParseSourceFile() *SourceFile {
	start := p.curToken.Pos
	file := &SourceFile{}
	for !p.curTokenIs(TokenEOF) {
		if p.curTokenIs(TokenRBrace) {
			p.errorf("unexpected }")
			p.nextToken()
			continue
		}
		if stmt := p.ParseStatement(); stmt != nil {
			file.Stmts = append(file.Stmts, stmt)
		}
	}
	file.SpanVal = Span{Start: start, End: p.curToken.End}
	return file
}

// Parse parses input and returns the tree with any syntax errors.
func Parse(input string) (*SourceFile, Diagnostics) {
	p := NewParser(input)
	file := p.ParseSourceFile()
	return file, p.Diagnostics()
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// ParseStatement parses a single statement. It returns nil after recording
// an error, having skipped to the next statement boundary.
func (p *Parser) ParseStatement() Stmt {
	switch {
	case p.curToken.Type.IsType():
		if p.peekTokenIs(TokenIdentifier) {
			return p.parseDeclaration()
		}
	case p.curTokenIs(TokenIf):
		return p.parseIf()
	case p.curTokenIs(TokenWhile):
		return p.parseWhile()
	case p.curTokenIs(TokenBreak):
		return p.parseBreak()
	case p.curTokenIs(TokenReturn):
		return p.parseReturn()
	case p.curTokenIs(TokenLBrace):
		if b := p.parseBlock(); b != nil {
			return b
		}
		return nil
	case p.curTokenIs(TokenIdentifier):
		switch p.peekToken.Type {
		case TokenAssign:
			return p.parseAssignment()
		case TokenIncrement, TokenDecrement:
			return p.parsePostfix()
		}
	}
	return p.parseExprStmt()
}

// parseDeclaration parses a variable or function declaration; both start
// with a type and a name.
func (p *Parser) parseDeclaration() Stmt {
	start := p.curToken.Pos
	typ := typeFromToken(p.curToken.Type)
	p.nextToken()

	name := p.curToken.Literal
	nameSpan := Span{Start: p.curToken.Pos, End: p.curToken.End}
	p.nextToken()

	if p.curTokenIs(TokenLParen) {
		return p.parseFunction(start, typ, name, nameSpan)
	}

	if !p.curTokenIs(TokenAssign) {
		p.errorf("variable %s must be initialized", name)
		p.synchronize()
		return nil
	}
	p.nextToken()

	value := p.parseExpression(precLowest)
	if value == nil || !p.endStatement() {
		return nil
	}
	return &DeclStmt{
		SpanVal:  p.spanFrom(start),
		Type:     typ,
		Name:     name,
		NameSpan: nameSpan,
		Value:    value,
	}
}

func (p *Parser) parseFunction(start Position, result Type, name string, nameSpan Span) Stmt {
	p.nextToken() // (

	var params []*Param
	if !p.curTokenIs(TokenRParen) {
		for {
			param := p.parseParam()
			if param == nil {
				p.synchronize()
				return nil
			}
			params = append(params, param)
			if !p.curTokenIs(TokenComma) {
				break
			}
			p.nextToken()
		}
	}
	if !p.expect(TokenRParen) {
		p.synchronize()
		return nil
	}

	body := p.parseBlock()
	if body == nil {
		return nil
	}
	return &FuncDecl{
		SpanVal:  p.spanFrom(start),
		Result:   result,
		Name:     name,
		NameSpan: nameSpan,
		Params:   params,
		Body:     body,
	}
}

func (p *Parser) parseParam() *Param {
	start := p.curToken.Pos
	if !p.curToken.Type.IsType() {
		p.errorf("expected parameter type, got %s", describe(p.curToken))
		return nil
	}
	typ := typeFromToken(p.curToken.Type)
	p.nextToken()

	if !p.curTokenIs(TokenIdentifier) {
		p.errorf("expected parameter name, got %s", describe(p.curToken))
		return nil
	}
	name := p.curToken.Literal
	nameSpan := Span{Start: p.curToken.Pos, End: p.curToken.End}
	p.nextToken()
	return &Param{SpanVal: p.spanFrom(start), Type: typ, Name: name, NameSpan: nameSpan}
}

func (p *Parser) parseAssignment() Stmt {
	start := p.curToken.Pos
	name := p.curToken.Literal
	nameSpan := Span{Start: p.curToken.Pos, End: p.curToken.End}
	p.nextToken() // name
	p.nextToken() // =

	value := p.parseExpression(precLowest)
	if value == nil || !p.endStatement() {
		return nil
	}
	return &AssignStmt{SpanVal: p.spanFrom(start), Name: name, NameSpan: nameSpan, Value: value}
}

func (p *Parser) parsePostfix() Stmt {
	start := p.curToken.Pos
	name := p.curToken.Literal
	nameSpan := Span{Start: p.curToken.Pos, End: p.curToken.End}
	p.nextToken()
	op := p.curToken.Type
	p.nextToken()

	if !p.endStatement() {
		return nil
	}
	return &PostfixStmt{SpanVal: p.spanFrom(start), Name: name, NameSpan: nameSpan, Operator: op}
}

func (p *Parser) parseExprStmt() Stmt {
	start := p.curToken.Pos
	expr := p.parseExpression(precLowest)
	if expr == nil || !p.endStatement() {
		return nil
	}
	return &ExprStmt{SpanVal: p.spanFrom(start), Expr: expr}
}

func (p *Parser) parseIf() Stmt {
	start := p.curToken.Pos
	p.nextToken() // if

	cond := p.parseCondition()
	if cond == nil {
		return nil
	}
	then := p.parseBlock()
	if then == nil {
		return nil
	}

	stmt := &IfStmt{Cond: cond, Then: then}
	if p.curTokenIs(TokenElse) {
		p.nextToken()
		if p.curTokenIs(TokenIf) {
			elseStart := p.curToken.Pos
			nested := p.parseIf()
			if nested == nil {
				return nil
			}
			stmt.Else = &Block{SpanVal: p.spanFrom(elseStart), Stmts: []Stmt{nested}}
		} else {
			stmt.Else = p.parseBlock()
			if stmt.Else == nil {
				return nil
			}
		}
	}
	stmt.SpanVal = p.spanFrom(start)
	return stmt
}

func (p *Parser) parseWhile() Stmt {
	start := p.curToken.Pos
	p.nextToken() // while

	cond := p.parseCondition()
	if cond == nil {
		return nil
	}
	body := p.parseBlock()
	if body == nil {
		return nil
	}
	return &WhileStmt{SpanVal: p.spanFrom(start), Cond: cond, Body: body}
}

// parseCondition parses a parenthesized condition.
func (p *Parser) parseCondition() Expr {
	if !p.expect(TokenLParen) {
		p.synchronize()
		return nil
	}
	cond := p.parseExpression(precLowest)
	if cond == nil {
		p.synchronize()
		return nil
	}
	if !p.expect(TokenRParen) {
		p.synchronize()
		return nil
	}
	return cond
}

func (p *Parser) parseBreak() Stmt {
	start := p.curToken.Pos
	p.nextToken()
	if !p.endStatement() {
		return nil
	}
	return &BreakStmt{SpanVal: p.spanFrom(start)}
}

func (p *Parser) parseReturn() Stmt {
	start := p.curToken.Pos
	p.nextToken()
	if p.curTokenIs(TokenSemicolon) {
		p.errorf("return requires a value")
		p.nextToken()
		return nil
	}
	value := p.parseExpression(precLowest)
	if value == nil || !p.endStatement() {
		return nil
	}
	return &ReturnStmt{SpanVal: p.spanFrom(start), Value: value}
}

// parseBlock parses { statements }.
func (p *Parser) parseBlock() *Block {
	start := p.curToken.Pos
	if !p.expect(TokenLBrace) {
		p.synchronize()
		return nil
	}

	block := &Block{}
	for !p.curTokenIs(TokenRBrace) && !p.curTokenIs(TokenEOF) {
		if stmt := p.ParseStatement(); stmt != nil {
			block.Stmts = append(block.Stmts, stmt)
		}
	}
	if !p.expect(TokenRBrace) {
		return nil
	}
	block.SpanVal = p.spanFrom(start)
	return block
}

// endStatement consumes the terminating semicolon.
func (p *Parser) endStatement() bool {
	if p.curTokenIs(TokenSemicolon) {
		p.nextToken()
		return true
	}
	p.errorf("expected ;, got %s", describe(p.curToken))
	p.synchronize()
	return false
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// Binding strength, weakest first.
const (
	precLowest     = iota
	precEquals     // == !=
	precComparison // < >
	precSum        // + -
	precProduct    // * /
	precPrefix     // -x !x
	precCall       // f(x)
)

var precedences = map[TokenType]int{
	TokenEq:       precEquals,
	TokenNotEq:    precEquals,
	TokenLt:       precComparison,
	TokenGt:       precComparison,
	TokenPlus:     precSum,
	TokenMinus:    precSum,
	TokenAsterisk: precProduct,
	TokenSlash:    precProduct,
}

// ParseExpression parses a single expression.
func (p *Parser) ParseExpression() Expr {
	return p.parseExpression(precLowest)
}

// parseExpression parses operators binding tighter than minPrec. Equal
// precedence stops the loop, which makes every binary operator
// left-associative.
func (p *Parser) parseExpression(minPrec int) Expr {
	left := p.parseUnary()
	if left == nil {
		return nil
	}
	for {
		prec, ok := precedences[p.curToken.Type]
		if !ok || prec <= minPrec {
			return left
		}
		op := p.curToken.Type
		p.nextToken()

		right := p.parseExpression(prec)
		if right == nil {
			return nil
		}
		left = &InfixExpr{
			SpanVal:  Span{Start: left.Span().Start, End: right.Span().End},
			Left:     left,
			Operator: op,
			Right:    right,
		}
	}
}

func (p *Parser) parseUnary() Expr {
	if p.curTokenIs(TokenMinus) || p.curTokenIs(TokenBang) {
		start := p.curToken.Pos
		op := p.curToken.Type
		p.nextToken()
		right := p.parseUnary()
		if right == nil {
			return nil
		}
		return &PrefixExpr{SpanVal: p.spanFrom(start), Operator: op, Right: right}
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() Expr {
	tok := p.curToken
	span := Span{Start: tok.Pos, End: tok.End}

	switch tok.Type {
	case TokenInteger:
		return p.parseInteger()

	case TokenCharacter:
		p.nextToken()
		return &CharLiteral{SpanVal: span, Value: byte([]rune(tok.Literal)[0])}

	case TokenTrue, TokenFalse:
		p.nextToken()
		return &BoolLiteral{SpanVal: span, Value: tok.Type == TokenTrue}

	case TokenIdentifier:
		p.nextToken()
		if p.curTokenIs(TokenLParen) {
			return p.parseCall(tok)
		}
		return &Identifier{SpanVal: span, Name: tok.Literal}

	case TokenLParen:
		p.nextToken()
		inner := p.parseExpression(precLowest)
		if inner == nil {
			return nil
		}
		if !p.expect(TokenRParen) {
			p.synchronize()
			return nil
		}
		return inner
	}

	p.errorf("unexpected %s in expression", describe(tok))
	p.synchronize()
	return nil
}

func (p *Parser) parseInteger() Expr {
	tok := p.curToken
	p.nextToken()
	v, err := strconv.ParseInt(tok.Literal, 10, 32)
	if err != nil {
		p.diags.add(tok.Pos, "integer literal %s out of range", tok.Literal)
	}
	return &IntLiteral{SpanVal: Span{Start: tok.Pos, End: tok.End}, Value: int32(v)}
}

func (p *Parser) parseCall(name Token) Expr {
	p.nextToken() // (

	var args []Expr
	if !p.curTokenIs(TokenRParen) {
		for {
			arg := p.parseExpression(precLowest)
			if arg == nil {
				return nil
			}
			args = append(args, arg)
			if !p.curTokenIs(TokenComma) {
				break
			}
			p.nextToken()
		}
	}
	if !p.expect(TokenRParen) {
		p.synchronize()
		return nil
	}
	return &CallExpr{
		SpanVal:  p.spanFrom(name.Pos),
		Function: name.Literal,
		NameSpan: Span{Start: name.Pos, End: name.End},
		Args:     args,
	}
}
