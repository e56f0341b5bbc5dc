// Package parser implements the codeblock language parser.
package parser

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/thomasrohde/codeblock/pkg/ast"
	"github.com/thomasrohde/codeblock/pkg/diagnostics"
	"github.com/thomasrohde/codeblock/pkg/lexer"
	"github.com/thomasrohde/codeblock/pkg/symbols"
	"github.com/thomasrohde/codeblock/pkg/variant"
)

// MaxDepth bounds expression and block nesting. Deeper input fails with
// ReasonMemoryExhaustion instead of growing the stack without limit.
const MaxDepth = 512

// Reason categorizes a parse failure.
type Reason int

const (
	ReasonInvalidInput Reason = iota
	ReasonMemoryExhaustion
)

func (r Reason) String() string {
	if r == ReasonMemoryExhaustion {
		return diagnostics.MsgMemoryExhaustion
	}
	return diagnostics.MsgInvalidInput
}

// Error is a parse failure. AtEOF is set when the input ended before the
// construct was complete.
type Error struct {
	Reason Reason
	Span   ast.Span
	Detail string
	AtEOF  bool
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Reason.String()
	}
	return e.Reason.String() + ": " + e.Detail
}

// Fault converts the error into a syntax fault.
func (e *Error) Fault() *diagnostics.Fault {
	return &diagnostics.Fault{
		Kind:    diagnostics.KindSyntax,
		Line:    e.Span.StartLine,
		Message: e.Error(),
	}
}

// IsIncomplete reports whether err is a parse error caused by input ending
// too early, so that more input could make it valid.
func IsIncomplete(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.AtEOF && pe.Reason == ReasonInvalidInput
}

type parser struct {
	tokens []lexer.Token
	pos    int
	depth  int
	err    *Error
}

// Parse tokenizes source and parses it into an AST.
func Parse(source, filename string) (*ast.Program, error) {
	tokens, err := lexer.Tokenize(source, filename)
	if err != nil {
		var le *lexer.LexError
		if errors.As(err, &le) {
			return nil, &Error{Reason: ReasonInvalidInput, Span: le.Span, Detail: le.Message, AtEOF: le.AtEOF}
		}
		return nil, &Error{Reason: ReasonInvalidInput, Detail: err.Error()}
	}

	p := &parser{tokens: tokens, pos: 0}
	prog := p.parseProgram()
	if p.err != nil {
		return nil, p.err
	}
	return prog, nil
}

// ParseReader reads all of r and parses it.
func ParseReader(r io.Reader, filename string) (*ast.Program, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	return Parse(string(data), filename)
}

func (p *parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

func (p *parser) peek() lexer.TokenType {
	return p.current().Type
}

func (p *parser) advance() lexer.Token {
	tok := p.current()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *parser) expect(typ lexer.TokenType) (lexer.Token, bool) {
	tok := p.current()
	if tok.Type != typ {
		p.addError(fmt.Sprintf("expected %s, got %s", tokenName(typ), describe(tok)), tok)
		return tok, false
	}
	return p.advance(), true
}

func (p *parser) addError(msg string, at lexer.Token) {
	if p.err != nil {
		return
	}
	p.err = &Error{
		Reason: ReasonInvalidInput,
		Span:   at.Span,
		Detail: msg,
		AtEOF:  at.Type == lexer.TokEOF,
	}
}

func (p *parser) enter() bool {
	if p.depth >= MaxDepth {
		if p.err == nil {
			p.err = &Error{
				Reason: ReasonMemoryExhaustion,
				Span:   p.current().Span,
				Detail: fmt.Sprintf("nesting deeper than %d levels", MaxDepth),
			}
		}
		return false
	}
	p.depth++
	return true
}

func (p *parser) leave() {
	p.depth--
}

func (p *parser) spanFromTo(start, end ast.Span) ast.Span {
	return ast.Span{
		File:      start.File,
		StartLine: start.StartLine,
		StartCol:  start.StartCol,
		EndLine:   end.EndLine,
		EndCol:    end.EndCol,
	}
}

// previous returns the span of the last consumed token.
func (p *parser) previous() ast.Span {
	if p.pos == 0 {
		return p.current().Span
	}
	return p.tokens[p.pos-1].Span
}

func tokenName(t lexer.TokenType) string {
	switch t {
	case lexer.TokThen:
		return "'then'"
	case lexer.TokDo:
		return "'do'"
	case lexer.TokEndIf:
		return "'endif'"
	case lexer.TokEndWhile:
		return "'endwhile'"
	case lexer.TokEndFor:
		return "'endfor'"
	case lexer.TokEndSwitch:
		return "'endswitch'"
	case lexer.TokRParen:
		return "')'"
	case lexer.TokComma:
		return "','"
	case lexer.TokColon:
		return "':'"
	case lexer.TokIdent:
		return "identifier"
	case lexer.TokEOF:
		return "end of input"
	default:
		return fmt.Sprintf("token(%d)", t)
	}
}

func describe(tok lexer.Token) string {
	if tok.Type == lexer.TokEOF {
		return "end of input"
	}
	return fmt.Sprintf("'%s'", tok.Value)
}

// --- Program and statements ---

func (p *parser) parseProgram() *ast.Program {
	start := p.current().Span
	body, ok := p.parseStmts()
	if !ok {
		return nil
	}
	if p.peek() != lexer.TokEOF {
		tok := p.current()
		p.addError(fmt.Sprintf("unexpected %s", describe(tok)), tok)
		return nil
	}
	return &ast.Program{
		Span: p.spanFromTo(start, p.current().Span),
		Body: body,
	}
}

// parseStmts parses statements until end of input or one of the given
// terminators, folding them into left-nested StatementList nodes. An empty
// sequence yields a nil node.
func (p *parser) parseStmts(terminators ...lexer.TokenType) (ast.Node, bool) {
	if !p.enter() {
		return nil, false
	}
	defer p.leave()

	var body ast.Node
	for {
		for p.peek() == lexer.TokSemicolon {
			p.advance()
		}
		if p.atTerminator(terminators) {
			return body, true
		}
		stmt := p.parseStmt()
		if stmt == nil {
			return nil, false
		}
		if body == nil {
			body = stmt
			continue
		}
		body = &ast.StatementList{
			Span:  p.spanFromTo(body.NodeSpan(), stmt.NodeSpan()),
			Left:  body,
			Right: stmt,
		}
	}
}

func (p *parser) atTerminator(terminators []lexer.TokenType) bool {
	t := p.peek()
	if t == lexer.TokEOF {
		return true
	}
	for _, term := range terminators {
		if t == term {
			return true
		}
	}
	return false
}

func (p *parser) parseStmt() ast.Node {
	switch p.peek() {
	case lexer.TokVar:
		return p.parseVarDecl()
	case lexer.TokFunc:
		start := p.advance()
		name, ok := p.expect(lexer.TokIdent)
		if !ok {
			return nil
		}
		return &ast.Declaration{
			Span:   p.spanFromTo(start.Span, name.Span),
			Name:   name.Value,
			Symbol: symbols.KindFunction,
		}
	default:
		return p.parseExpr()
	}
}

func (p *parser) parseVarDecl() ast.Node {
	start := p.advance() // consume 'var'

	var decls []*ast.Declaration
	for {
		name, ok := p.expect(lexer.TokIdent)
		if !ok {
			return nil
		}
		decls = append(decls, &ast.Declaration{
			Span:   name.Span,
			Name:   name.Value,
			Symbol: symbols.KindVariable,
		})
		if p.peek() != lexer.TokComma {
			break
		}
		p.advance()
	}

	if len(decls) == 1 {
		decls[0].Span = p.spanFromTo(start.Span, decls[0].Span)
		return decls[0]
	}
	return &ast.DeclarationBlock{
		Span:         p.spanFromTo(start.Span, p.previous()),
		Declarations: decls,
	}
}

// --- Expressions ---

func (p *parser) parseExpr() ast.Node {
	if !p.enter() {
		return nil
	}
	defer p.leave()

	left := p.parseOr()
	if left == nil {
		return nil
	}
	if p.peek() != lexer.TokAssign {
		return left
	}
	p.advance()
	value := p.parseExpr()
	if value == nil {
		return nil
	}
	return &ast.Assignment{
		Span:   p.spanFromTo(left.NodeSpan(), value.NodeSpan()),
		Target: left,
		Value:  value,
	}
}

func (p *parser) binary(op variant.BinaryOp, left, right ast.Node) ast.Node {
	return &ast.Binary{
		Span:  p.spanFromTo(left.NodeSpan(), right.NodeSpan()),
		Op:    op,
		Left:  left,
		Right: right,
	}
}

func (p *parser) parseOr() ast.Node {
	left := p.parseAnd()
	if left == nil {
		return nil
	}
	for p.peek() == lexer.TokOr {
		p.advance()
		right := p.parseAnd()
		if right == nil {
			return nil
		}
		left = p.binary(variant.OpOr, left, right)
	}
	return left
}

func (p *parser) parseAnd() ast.Node {
	left := p.parseComparison()
	if left == nil {
		return nil
	}
	for p.peek() == lexer.TokAnd {
		p.advance()
		right := p.parseComparison()
		if right == nil {
			return nil
		}
		left = p.binary(variant.OpAnd, left, right)
	}
	return left
}

func (p *parser) parseComparison() ast.Node {
	left := p.parseAdditive()
	if left == nil {
		return nil
	}

	for {
		var op variant.BinaryOp
		switch p.peek() {
		case lexer.TokGt:
			op = variant.OpGt
		case lexer.TokGtEq:
			op = variant.OpGtEq
		case lexer.TokLt:
			op = variant.OpLt
		case lexer.TokLtEq:
			op = variant.OpLtEq
		case lexer.TokEquals:
			op = variant.OpEq
		case lexer.TokEqEq:
			op = variant.OpEqEq
		case lexer.TokNotEq:
			op = variant.OpNotEq
		default:
			return left
		}
		p.advance()
		right := p.parseAdditive()
		if right == nil {
			return nil
		}
		left = p.binary(op, left, right)
	}
}

func (p *parser) parseAdditive() ast.Node {
	left := p.parseMultiplicative()
	if left == nil {
		return nil
	}

	for {
		var op variant.BinaryOp
		switch p.peek() {
		case lexer.TokPlus:
			op = variant.OpAdd
		case lexer.TokMinus:
			op = variant.OpSub
		default:
			return left
		}
		p.advance()
		right := p.parseMultiplicative()
		if right == nil {
			return nil
		}
		left = p.binary(op, left, right)
	}
}

func (p *parser) parseMultiplicative() ast.Node {
	left := p.parseUnary()
	if left == nil {
		return nil
	}

	for {
		var op variant.BinaryOp
		switch p.peek() {
		case lexer.TokStar:
			op = variant.OpMul
		case lexer.TokSlash:
			op = variant.OpDiv
		default:
			return left
		}
		p.advance()
		right := p.parseUnary()
		if right == nil {
			return nil
		}
		left = p.binary(op, left, right)
	}
}

func (p *parser) parseUnary() ast.Node {
	var op variant.UnaryOp
	switch p.peek() {
	case lexer.TokMinus:
		op = variant.OpNeg
	case lexer.TokNot:
		op = variant.OpNot
	default:
		return p.parsePrimary()
	}

	if !p.enter() {
		return nil
	}
	defer p.leave()

	start := p.advance()
	operand := p.parseUnary()
	if operand == nil {
		return nil
	}
	return &ast.Unary{
		Span:    p.spanFromTo(start.Span, operand.NodeSpan()),
		Op:      op,
		Operand: operand,
	}
}

func (p *parser) parsePrimary() ast.Node {
	switch p.peek() {
	case lexer.TokLParen:
		p.advance()
		expr := p.parseExpr()
		if expr == nil {
			return nil
		}
		if _, ok := p.expect(lexer.TokRParen); !ok {
			return nil
		}
		return expr

	case lexer.TokIntLit:
		tok := p.advance()
		val, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			p.addError(fmt.Sprintf("invalid integer literal %s", tok.Value), tok)
			return nil
		}
		return &ast.Value{Span: tok.Span, Value: variant.NewInteger(val)}

	case lexer.TokFloatLit:
		tok := p.advance()
		val, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			p.addError(fmt.Sprintf("invalid float literal %s", tok.Value), tok)
			return nil
		}
		return &ast.Value{Span: tok.Span, Value: variant.NewFloat(val)}

	case lexer.TokStringLit:
		tok := p.advance()
		return &ast.Value{Span: tok.Span, Value: variant.NewString(tok.Value)}

	case lexer.TokTrue:
		tok := p.advance()
		return &ast.Value{Span: tok.Span, Value: variant.NewBoolean(true)}

	case lexer.TokFalse:
		tok := p.advance()
		return &ast.Value{Span: tok.Span, Value: variant.NewBoolean(false)}

	case lexer.TokIdent:
		tok := p.advance()
		return &ast.Variable{Span: tok.Span, Name: tok.Value}

	case lexer.TokIf:
		return p.parseIf()
	case lexer.TokWhile:
		return p.parseWhile()
	case lexer.TokFor:
		return p.parseFor()
	case lexer.TokSwitch:
		return p.parseSwitch()

	case lexer.TokPrint:
		start := p.advance()
		operand := p.parseExpr()
		if operand == nil {
			return nil
		}
		return &ast.DebugPrint{
			Span:    p.spanFromTo(start.Span, operand.NodeSpan()),
			Operand: operand,
		}

	default:
		tok := p.current()
		p.addError(fmt.Sprintf("unexpected %s", describe(tok)), tok)
		return nil
	}
}

// --- Control flow ---

func (p *parser) parseIf() ast.Node {
	start := p.advance() // consume 'if'

	cond := p.parseExpr()
	if cond == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokThen); !ok {
		return nil
	}
	thenBody, ok := p.parseStmts(lexer.TokElse, lexer.TokEndIf)
	if !ok {
		return nil
	}

	var elseBody ast.Node
	if p.peek() == lexer.TokElse {
		p.advance()
		elseBody, ok = p.parseStmts(lexer.TokEndIf)
		if !ok {
			return nil
		}
	}

	end, ok := p.expect(lexer.TokEndIf)
	if !ok {
		return nil
	}
	return &ast.If{
		Span: p.spanFromTo(start.Span, end.Span),
		Cond: cond,
		Then: thenBody,
		Else: elseBody,
	}
}

func (p *parser) parseWhile() ast.Node {
	start := p.advance() // consume 'while'

	cond := p.parseExpr()
	if cond == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokDo); !ok {
		return nil
	}
	body, ok := p.parseStmts(lexer.TokEndWhile)
	if !ok {
		return nil
	}
	end, ok := p.expect(lexer.TokEndWhile)
	if !ok {
		return nil
	}
	return &ast.While{
		Span: p.spanFromTo(start.Span, end.Span),
		Cond: cond,
		Body: body,
	}
}

func (p *parser) parseFor() ast.Node {
	start := p.advance() // consume 'for'

	init := p.parseExpr()
	if init == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokComma); !ok {
		return nil
	}
	final := p.parseExpr()
	if final == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokDo); !ok {
		return nil
	}
	body, ok := p.parseStmts(lexer.TokEndFor)
	if !ok {
		return nil
	}
	end, ok := p.expect(lexer.TokEndFor)
	if !ok {
		return nil
	}
	return &ast.For{
		Span:  p.spanFromTo(start.Span, end.Span),
		Init:  init,
		Final: final,
		Body:  body,
	}
}

func (p *parser) parseSwitch() ast.Node {
	start := p.advance() // consume 'switch'

	subject := p.parseExpr()
	if subject == nil {
		return nil
	}

	var cases []*ast.Case
	for p.peek() == lexer.TokCase {
		caseTok := p.advance()
		guard := p.parseExpr()
		if guard == nil {
			return nil
		}
		if _, ok := p.expect(lexer.TokColon); !ok {
			return nil
		}
		body, ok := p.parseStmts(lexer.TokCase, lexer.TokDefault, lexer.TokEndSwitch)
		if !ok {
			return nil
		}
		cases = append(cases, &ast.Case{
			Span:  p.spanFromTo(caseTok.Span, p.previous()),
			Guard: guard,
			Body:  body,
		})
	}

	var def ast.Node
	if p.peek() == lexer.TokDefault {
		p.advance()
		if _, ok := p.expect(lexer.TokColon); !ok {
			return nil
		}
		var ok bool
		def, ok = p.parseStmts(lexer.TokEndSwitch)
		if !ok {
			return nil
		}
	}

	end, ok := p.expect(lexer.TokEndSwitch)
	if !ok {
		return nil
	}
	return &ast.Switch{
		Span:    p.spanFromTo(start.Span, end.Span),
		Subject: subject,
		Cases:   cases,
		Default: def,
	}
}
