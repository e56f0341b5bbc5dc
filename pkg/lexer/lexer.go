// Package lexer implements the codeblock tokenizer.
package lexer

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/thomasrohde/codeblock/pkg/ast"
)

// TokenType identifies the type of a lexer token.
type TokenType int

const (
	// Keywords
	TokVar TokenType = iota
	TokFunc
	TokIf
	TokThen
	TokElse
	TokEndIf
	TokWhile
	TokDo
	TokEndWhile
	TokFor
	TokEndFor
	TokSwitch
	TokCase
	TokDefault
	TokEndSwitch
	TokPrint
	TokAnd
	TokOr
	TokNot
	TokTrue
	TokFalse

	// Literals
	TokIntLit
	TokFloatLit
	TokStringLit

	// Identifiers
	TokIdent

	// Punctuation
	TokLParen    // (
	TokRParen    // )
	TokComma     // ,
	TokSemicolon // ;
	TokColon     // :
	TokAssign    // :=

	// Comparison operators
	TokEquals // =
	TokEqEq   // ==
	TokNotEq  // <>
	TokGtEq   // >=
	TokLtEq   // <=
	TokGt     // >
	TokLt     // <

	// Arithmetic operators
	TokPlus  // +
	TokMinus // -
	TokStar  // *
	TokSlash // /

	// Special
	TokEOF
)

// Token represents a single lexer token.
type Token struct {
	Type  TokenType
	Value string
	Span  ast.Span
}

var keywords = map[string]TokenType{
	"var":       TokVar,
	"func":      TokFunc,
	"if":        TokIf,
	"then":      TokThen,
	"else":      TokElse,
	"endif":     TokEndIf,
	"while":     TokWhile,
	"do":        TokDo,
	"endwhile":  TokEndWhile,
	"for":       TokFor,
	"endfor":    TokEndFor,
	"switch":    TokSwitch,
	"case":      TokCase,
	"default":   TokDefault,
	"endswitch": TokEndSwitch,
	"print":     TokPrint,
	"and":       TokAnd,
	"or":        TokOr,
	"not":       TokNot,
}

// IsKeyword reports whether t is a reserved word.
func IsKeyword(t TokenType) bool {
	return t >= TokVar && t <= TokFalse
}

type scanner struct {
	source   string
	filename string
	pos      int
	line     int
	col      int
}

func newScanner(source, filename string) *scanner {
	return &scanner{
		source:   source,
		filename: filename,
		pos:      0,
		line:     1,
		col:      1,
	}
}

func (s *scanner) atEnd() bool {
	return s.pos >= len(s.source)
}

func (s *scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.source[s.pos]
}

func (s *scanner) peekAt(offset int) byte {
	p := s.pos + offset
	if p >= len(s.source) {
		return 0
	}
	return s.source[p]
}

func (s *scanner) advance() byte {
	ch := s.source[s.pos]
	s.pos++
	if ch == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return ch
}

func (s *scanner) span(startLine, startCol int) ast.Span {
	return ast.Span{
		File:      s.filename,
		StartLine: startLine,
		StartCol:  startCol,
		EndLine:   s.line,
		EndCol:    s.col,
	}
}

func (s *scanner) skipWhitespaceAndComments() {
	for !s.atEnd() {
		ch := s.peek()
		if ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n' {
			s.advance()
		} else if ch == '#' {
			// Skip comment to end of line
			for !s.atEnd() && s.peek() != '\n' {
				s.advance()
			}
		} else {
			break
		}
	}
}

func isAlpha(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isAlphaNumeric(ch byte) bool {
	return isAlpha(ch) || isDigit(ch)
}

func (s *scanner) scanString() (Token, error) {
	startLine, startCol := s.line, s.col
	s.advance() // consume opening "

	var buf strings.Builder
	for !s.atEnd() {
		ch := s.peek()
		if ch == '"' {
			s.advance() // consume closing "
			return Token{
				Type:  TokStringLit,
				Value: buf.String(),
				Span:  s.span(startLine, startCol),
			}, nil
		}
		if ch == '\\' {
			s.advance() // consume backslash
			if s.atEnd() {
				return Token{}, s.lexError(startLine, startCol, "unterminated string escape")
			}
			esc := s.advance()
			switch esc {
			case '"':
				buf.WriteByte('"')
			case '\\':
				buf.WriteByte('\\')
			case 'n':
				buf.WriteByte('\n')
			case 'r':
				buf.WriteByte('\r')
			case 't':
				buf.WriteByte('\t')
			case '/':
				buf.WriteByte('/')
			case 'u':
				// \uXXXX
				if s.pos+4 > len(s.source) {
					return Token{}, s.lexError(startLine, startCol, "incomplete unicode escape")
				}
				hexStr := s.source[s.pos : s.pos+4]
				codepoint, err := strconv.ParseUint(hexStr, 16, 32)
				if err != nil {
					return Token{}, s.lexError(startLine, startCol, fmt.Sprintf("invalid unicode escape: \\u%s", hexStr))
				}
				buf.WriteRune(rune(codepoint))
				for i := 0; i < 4; i++ {
					s.advance()
				}
			default:
				return Token{}, s.lexError(startLine, startCol, fmt.Sprintf("invalid escape character: \\%c", esc))
			}
		} else if ch == '\n' {
			return Token{}, s.lexError(startLine, startCol, "unterminated string literal")
		} else {
			r, size := utf8.DecodeRuneInString(s.source[s.pos:])
			if r == utf8.RuneError && size == 1 {
				return Token{}, s.lexError(startLine, startCol, "invalid UTF-8 character in string")
			}
			buf.WriteRune(r)
			for i := 0; i < size; i++ {
				s.advance()
			}
		}
	}
	return Token{}, s.eofError(startLine, startCol, "unterminated string literal")
}

func (s *scanner) scanNumber() (Token, error) {
	startLine, startCol := s.line, s.col
	startPos := s.pos
	isFloat := false

	for !s.atEnd() && isDigit(s.peek()) {
		s.advance()
	}

	// Fractional part requires a digit after the dot
	if s.peek() == '.' && isDigit(s.peekAt(1)) {
		isFloat = true
		s.advance() // consume '.'
		for !s.atEnd() && isDigit(s.peek()) {
			s.advance()
		}
	}

	// Optional exponent
	if (s.peek() == 'e' || s.peek() == 'E') &&
		(isDigit(s.peekAt(1)) || ((s.peekAt(1) == '+' || s.peekAt(1) == '-') && isDigit(s.peekAt(2)))) {
		isFloat = true
		s.advance() // consume e/E
		if s.peek() == '+' || s.peek() == '-' {
			s.advance()
		}
		for !s.atEnd() && isDigit(s.peek()) {
			s.advance()
		}
	}

	text := s.source[startPos:s.pos]
	if isFloat {
		if _, err := strconv.ParseFloat(text, 64); err != nil {
			return Token{}, s.lexError(startLine, startCol, fmt.Sprintf("invalid float literal %s", text))
		}
		return Token{Type: TokFloatLit, Value: text, Span: s.span(startLine, startCol)}, nil
	}
	if _, err := strconv.ParseInt(text, 10, 64); err != nil {
		return Token{}, s.lexError(startLine, startCol, fmt.Sprintf("integer literal %s out of range", text))
	}
	return Token{Type: TokIntLit, Value: text, Span: s.span(startLine, startCol)}, nil
}

func (s *scanner) scanIdentOrKeyword() Token {
	startLine, startCol := s.line, s.col
	startPos := s.pos

	for !s.atEnd() && isAlphaNumeric(s.peek()) {
		s.advance()
	}

	text := s.source[startPos:s.pos]

	// Boolean literals are case-insensitive: true, True, TRUE
	switch strings.ToLower(text) {
	case "true":
		return Token{Type: TokTrue, Value: text, Span: s.span(startLine, startCol)}
	case "false":
		return Token{Type: TokFalse, Value: text, Span: s.span(startLine, startCol)}
	}

	if tokType, ok := keywords[text]; ok {
		return Token{
			Type:  tokType,
			Value: text,
			Span:  s.span(startLine, startCol),
		}
	}

	return Token{
		Type:  TokIdent,
		Value: text,
		Span:  s.span(startLine, startCol),
	}
}

func (s *scanner) lexError(line, col int, msg string) error {
	return &LexError{Span: ast.Span{File: s.filename, StartLine: line, StartCol: col, EndLine: line, EndCol: col + 1}, Message: msg}
}

func (s *scanner) eofError(line, col int, msg string) error {
	err := s.lexError(line, col, msg).(*LexError)
	err.AtEOF = true
	return err
}

// LexError reports malformed input. AtEOF is set when more input could
// have completed the token.
type LexError struct {
	Span    ast.Span
	Message string
	AtEOF   bool
}

func (e *LexError) Error() string {
	return e.Message
}

func (s *scanner) nextToken() (Token, error) {
	s.skipWhitespaceAndComments()

	if s.atEnd() {
		return Token{
			Type:  TokEOF,
			Value: "",
			Span:  s.span(s.line, s.col),
		}, nil
	}

	ch := s.peek()
	startLine, startCol := s.line, s.col

	// Single-char tokens
	switch ch {
	case '(':
		s.advance()
		return Token{Type: TokLParen, Value: "(", Span: s.span(startLine, startCol)}, nil
	case ')':
		s.advance()
		return Token{Type: TokRParen, Value: ")", Span: s.span(startLine, startCol)}, nil
	case ',':
		s.advance()
		return Token{Type: TokComma, Value: ",", Span: s.span(startLine, startCol)}, nil
	case ';':
		s.advance()
		return Token{Type: TokSemicolon, Value: ";", Span: s.span(startLine, startCol)}, nil
	case '+':
		s.advance()
		return Token{Type: TokPlus, Value: "+", Span: s.span(startLine, startCol)}, nil
	case '-':
		s.advance()
		return Token{Type: TokMinus, Value: "-", Span: s.span(startLine, startCol)}, nil
	case '*':
		s.advance()
		return Token{Type: TokStar, Value: "*", Span: s.span(startLine, startCol)}, nil
	case '/':
		s.advance()
		return Token{Type: TokSlash, Value: "/", Span: s.span(startLine, startCol)}, nil
	}

	// Multi-char tokens
	switch ch {
	case ':':
		s.advance()
		if s.peek() == '=' {
			s.advance()
			return Token{Type: TokAssign, Value: ":=", Span: s.span(startLine, startCol)}, nil
		}
		return Token{Type: TokColon, Value: ":", Span: s.span(startLine, startCol)}, nil

	case '=':
		s.advance()
		if s.peek() == '=' {
			s.advance()
			return Token{Type: TokEqEq, Value: "==", Span: s.span(startLine, startCol)}, nil
		}
		return Token{Type: TokEquals, Value: "=", Span: s.span(startLine, startCol)}, nil

	case '>':
		s.advance()
		if s.peek() == '=' {
			s.advance()
			return Token{Type: TokGtEq, Value: ">=", Span: s.span(startLine, startCol)}, nil
		}
		return Token{Type: TokGt, Value: ">", Span: s.span(startLine, startCol)}, nil

	case '<':
		s.advance()
		switch s.peek() {
		case '=':
			s.advance()
			return Token{Type: TokLtEq, Value: "<=", Span: s.span(startLine, startCol)}, nil
		case '>':
			s.advance()
			return Token{Type: TokNotEq, Value: "<>", Span: s.span(startLine, startCol)}, nil
		}
		return Token{Type: TokLt, Value: "<", Span: s.span(startLine, startCol)}, nil
	}

	if isDigit(ch) {
		return s.scanNumber()
	}

	if ch == '"' {
		return s.scanString()
	}

	if isAlpha(ch) {
		return s.scanIdentOrKeyword(), nil
	}

	r, _ := utf8.DecodeRuneInString(s.source[s.pos:])
	s.advance()
	return Token{}, s.lexError(startLine, startCol, fmt.Sprintf("unexpected character %q", r))
}

// Tokenize breaks source code into a slice of tokens ending with TokEOF.
func Tokenize(source, filename string) ([]Token, error) {
	s := newScanner(source, filename)
	var tokens []Token

	for {
		tok, err := s.nextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokEOF {
			break
		}
	}

	return tokens, nil
}
