// Package formatter renders codeblock ASTs back to canonical source.
package formatter

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/thomasrohde/codeblock/pkg/ast"
	"github.com/thomasrohde/codeblock/pkg/symbols"
	"github.com/thomasrohde/codeblock/pkg/variant"
)

const indent = "  "

// Binding strength of expression forms (higher = tighter binding).
const (
	precLowest = iota // assignment, print
	precOr
	precAnd
	precComparison
	precAdditive
	precMultiplicative
	precUnary
	precPrimary
)

var precedence = map[variant.BinaryOp]int{
	variant.OpOr:  precOr,
	variant.OpAnd: precAnd,
	variant.OpGt:  precComparison, variant.OpGtEq: precComparison,
	variant.OpLt: precComparison, variant.OpLtEq: precComparison,
	variant.OpEq: precComparison, variant.OpEqEq: precComparison, variant.OpNotEq: precComparison,
	variant.OpAdd: precAdditive, variant.OpSub: precAdditive,
	variant.OpMul: precMultiplicative, variant.OpDiv: precMultiplicative,
}

func exprPrecedence(n ast.Node) int {
	switch e := n.(type) {
	case *ast.Assignment, *ast.DebugPrint:
		return precLowest
	case *ast.Binary:
		return precedence[e.Op]
	case *ast.Unary:
		return precUnary
	}
	return precPrimary
}

// Format pretty-prints a program back to source code. An empty program
// formats to the empty string.
func Format(program *ast.Program) string {
	if program == nil || program.Body == nil {
		return ""
	}
	return formatStmts(program.Body, 0) + "\n"
}

// HasComments checks if a source string contains comments (# prefix).
// Comments are not kept in the AST, so formatting drops them.
func HasComments(source string) bool {
	inString := false
	escaped := false
	for i := 0; i < len(source); i++ {
		ch := source[i]
		switch {
		case escaped:
			escaped = false
		case inString && ch == '\\':
			escaped = true
		case ch == '"':
			inString = !inString
		case ch == '\n':
			inString = false
		case !inString && ch == '#':
			return true
		}
	}
	return false
}

// flatten unfolds the left-leaning statement list into source order.
func flatten(n ast.Node, out []ast.Node) []ast.Node {
	if list, ok := n.(*ast.StatementList); ok {
		out = flatten(list.Left, out)
		return flatten(list.Right, out)
	}
	if n == nil {
		return out
	}
	return append(out, n)
}

func formatStmts(body ast.Node, depth int) string {
	prefix := strings.Repeat(indent, depth)
	stmts := flatten(body, nil)
	lines := make([]string, 0, len(stmts))
	for _, s := range stmts {
		text := formatStmt(s, depth)
		// A leading minus would continue the previous statement as a subtraction.
		if strings.HasPrefix(text, "-") && len(lines) > 0 {
			lines[len(lines)-1] += ";"
		}
		lines = append(lines, prefix+text)
	}
	return strings.Join(lines, "\n")
}

func formatStmt(s ast.Node, depth int) string {
	switch stmt := s.(type) {
	case *ast.Declaration:
		return declKeyword(stmt.Symbol) + " " + stmt.Name
	case *ast.DeclarationBlock:
		return formatDeclarations(stmt.Declarations)
	}
	return formatExpr(s, depth)
}

func declKeyword(kind symbols.Kind) string {
	if kind == symbols.KindFunction {
		return "func"
	}
	return "var"
}

// formatDeclarations groups runs of same-kind declarations into one
// comma-separated declaration.
func formatDeclarations(decls []*ast.Declaration) string {
	var parts []string
	for i := 0; i < len(decls); {
		kind := decls[i].Symbol
		names := []string{decls[i].Name}
		j := i + 1
		for ; j < len(decls) && decls[j].Symbol == kind && kind == symbols.KindVariable; j++ {
			names = append(names, decls[j].Name)
		}
		parts = append(parts, declKeyword(kind)+" "+strings.Join(names, ", "))
		i = j
	}
	return strings.Join(parts, "; ")
}

// block renders a nested statement body one level deeper, followed by the
// closing line at the current depth.
func block(body ast.Node, depth int) string {
	if body == nil {
		return "\n"
	}
	return "\n" + formatStmts(body, depth+1) + "\n"
}

func formatExpr(e ast.Node, depth int) string {
	prefix := strings.Repeat(indent, depth)
	switch expr := e.(type) {
	case *ast.Value:
		return formatValue(expr.Value)

	case *ast.Variable:
		return expr.Name

	case *ast.Assignment:
		return formatOperand(expr.Target, precUnary, depth) + " := " + formatExpr(expr.Value, depth)

	case *ast.Binary:
		prec := precedence[expr.Op]
		left := formatOperand(expr.Left, prec, depth)
		right := formatOperand(expr.Right, prec+1, depth)
		return left + " " + string(expr.Op) + " " + right

	case *ast.Unary:
		operand := formatOperand(expr.Operand, precUnary, depth)
		if expr.Op == variant.OpNot {
			return "not " + operand
		}
		if strings.HasPrefix(operand, "-") {
			return "- " + operand
		}
		return "-" + operand

	case *ast.DebugPrint:
		return "print " + formatExpr(expr.Operand, depth)

	case *ast.If:
		out := "if " + formatExpr(expr.Cond, depth) + " then" + block(expr.Then, depth)
		if expr.Else != nil {
			out += prefix + "else" + block(expr.Else, depth)
		}
		return out + prefix + "endif"

	case *ast.While:
		return "while " + formatExpr(expr.Cond, depth) + " do" + block(expr.Body, depth) + prefix + "endwhile"

	case *ast.For:
		return "for " + formatExpr(expr.Init, depth) + ", " + formatExpr(expr.Final, depth) + " do" +
			block(expr.Body, depth) + prefix + "endfor"

	case *ast.Switch:
		out := "switch " + formatExpr(expr.Subject, depth) + "\n"
		for _, c := range expr.Cases {
			out += prefix + "case " + formatExpr(c.Guard, depth) + ":" + block(c.Body, depth)
		}
		if expr.Default != nil {
			out += prefix + "default:" + block(expr.Default, depth)
		}
		return out + prefix + "endswitch"
	}
	return ""
}

// formatOperand parenthesizes e when it binds looser than minPrec.
func formatOperand(e ast.Node, minPrec, depth int) string {
	s := formatExpr(e, depth)
	if exprPrecedence(e) < minPrec {
		return "(" + s + ")"
	}
	return s
}

func formatValue(v variant.Variant) string {
	switch v.Type() {
	case variant.Integer:
		return strconv.FormatInt(v.Int(), 10)
	case variant.Float:
		return formatFloatLiteral(v.Float())
	case variant.Boolean:
		if v.Bool() {
			return "True"
		}
		return "False"
	case variant.String:
		return quote(v.Str())
	}
	return v.String()
}

// quote renders s using only the escapes the lexer accepts.
func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\u%04x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

func formatFloatLiteral(value float64) string {
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return strconv.FormatFloat(value, 'f', -1, 64)
	}

	raw := strconv.FormatFloat(value, 'g', -1, 64)
	if strings.ContainsAny(raw, "eE") {
		expanded := expandScientificNotation(raw)
		if !strings.Contains(expanded, ".") {
			expanded += ".0"
		}
		return expanded
	}
	if !strings.Contains(raw, ".") {
		raw += ".0"
	}
	return raw
}

func expandScientificNotation(value string) string {
	lower := strings.ToLower(value)
	parts := strings.SplitN(lower, "e", 2)
	if len(parts) != 2 {
		return value
	}

	mantissa := parts[0]
	exponent, err := strconv.Atoi(parts[1])
	if err != nil {
		return value
	}

	sign := ""
	digits := mantissa
	if strings.HasPrefix(digits, "-") {
		sign = "-"
		digits = digits[1:]
	} else if strings.HasPrefix(digits, "+") {
		digits = digits[1:]
	}

	intPart, fracPart, _ := strings.Cut(digits, ".")
	compact := intPart + fracPart
	decimalIndex := len(intPart) + exponent

	if decimalIndex <= 0 {
		return sign + "0." + strings.Repeat("0", -decimalIndex) + compact
	}
	if decimalIndex >= len(compact) {
		return sign + compact + strings.Repeat("0", decimalIndex-len(compact)) + ".0"
	}
	return sign + compact[:decimalIndex] + "." + compact[decimalIndex:]
}
