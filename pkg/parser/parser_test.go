package parser_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/thomasrohde/codeblock/pkg/ast"
	"github.com/thomasrohde/codeblock/pkg/diagnostics"
	"github.com/thomasrohde/codeblock/pkg/parser"
	"github.com/thomasrohde/codeblock/pkg/symbols"
	"github.com/thomasrohde/codeblock/pkg/variant"
)

// helper: parse source and assert no error
func mustParse(t *testing.T, source string) *ast.Program {
	t.Helper()
	prog, err := parser.Parse(source, "test.cb")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if prog == nil {
		t.Fatal("expected non-nil program")
	}
	return prog
}

// helper: parse source and assert a *parser.Error is returned
func mustFail(t *testing.T, source string) *parser.Error {
	t.Helper()
	prog, err := parser.Parse(source, "test.cb")
	if err == nil {
		t.Fatalf("expected parse to fail, got program %+v", prog)
	}
	var pe *parser.Error
	if !errors.As(err, &pe) {
		t.Fatalf("expected *parser.Error, got %T", err)
	}
	return pe
}

// helper: parse a single statement program and return its body
func singleNode(t *testing.T, source string) ast.Node {
	t.Helper()
	prog := mustParse(t, source)
	if prog.Body == nil {
		t.Fatal("expected a non-empty body")
	}
	if _, ok := prog.Body.(*ast.StatementList); ok {
		t.Fatalf("expected a single statement, got a StatementList")
	}
	return prog.Body
}

func TestEmptyProgram(t *testing.T) {
	for _, src := range []string{"", "   \n\t", "# only a comment", ";;;"} {
		prog := mustParse(t, src)
		if prog.Body != nil {
			t.Errorf("%q: expected nil body, got %s", src, prog.Body.Kind())
		}
	}
}

func TestLiterals(t *testing.T) {
	tests := []struct {
		source string
		want   variant.Variant
	}{
		{"0", variant.NewInteger(0)},
		{"42", variant.NewInteger(42)},
		{"3.5", variant.NewFloat(3.5)},
		{`"hi"`, variant.NewString("hi")},
		{"True", variant.NewBoolean(true)},
		{"false", variant.NewBoolean(false)},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			val, ok := singleNode(t, tt.source).(*ast.Value)
			if !ok {
				t.Fatalf("expected *ast.Value")
			}
			if val.Value.Type() != tt.want.Type() || !variant.Equals(val.Value, tt.want) {
				t.Errorf("got %#v, want %#v", val.Value, tt.want)
			}
		})
	}
}

func TestPrecedence(t *testing.T) {
	// 333 + 55 * 7 - 99  =>  (333 + (55 * 7)) - 99
	root, ok := singleNode(t, "333 + 55 * 7 - 99").(*ast.Binary)
	if !ok || root.Op != variant.OpSub {
		t.Fatalf("expected '-' at the root, got %+v", root)
	}
	add, ok := root.Left.(*ast.Binary)
	if !ok || add.Op != variant.OpAdd {
		t.Fatalf("expected '+' on the left, got %+v", root.Left)
	}
	mul, ok := add.Right.(*ast.Binary)
	if !ok || mul.Op != variant.OpMul {
		t.Fatalf("expected '*' nested in '+', got %+v", add.Right)
	}
}

func TestLogicalPrecedence(t *testing.T) {
	// a or b and c = d  =>  a or (b and (c = d))
	root, ok := singleNode(t, "a or b and c = d").(*ast.Binary)
	if !ok || root.Op != variant.OpOr {
		t.Fatalf("expected 'or' at the root")
	}
	and, ok := root.Right.(*ast.Binary)
	if !ok || and.Op != variant.OpAnd {
		t.Fatalf("expected 'and' on the right")
	}
	eq, ok := and.Right.(*ast.Binary)
	if !ok || eq.Op != variant.OpEq {
		t.Fatalf("expected '=' under 'and'")
	}
}

func TestComparisonOperators(t *testing.T) {
	tests := []struct {
		source string
		op     variant.BinaryOp
	}{
		{"a > b", variant.OpGt},
		{"a >= b", variant.OpGtEq},
		{"a < b", variant.OpLt},
		{"a <= b", variant.OpLtEq},
		{"a = b", variant.OpEq},
		{"a == b", variant.OpEqEq},
		{"a <> b", variant.OpNotEq},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			bin, ok := singleNode(t, tt.source).(*ast.Binary)
			if !ok || bin.Op != tt.op {
				t.Fatalf("expected binary %s", tt.op)
			}
		})
	}
}

func TestUnary(t *testing.T) {
	u, ok := singleNode(t, "not - x").(*ast.Unary)
	if !ok || u.Op != variant.OpNot {
		t.Fatalf("expected 'not' at the root")
	}
	inner, ok := u.Operand.(*ast.Unary)
	if !ok || inner.Op != variant.OpNeg {
		t.Fatalf("expected unary minus operand")
	}
}

func TestParentheses(t *testing.T) {
	bin, ok := singleNode(t, "(1 + 2) * 3").(*ast.Binary)
	if !ok || bin.Op != variant.OpMul {
		t.Fatalf("expected '*' at the root")
	}
	if _, ok := bin.Left.(*ast.Binary); !ok {
		t.Errorf("expected grouped '+' on the left")
	}
}

func TestAssignmentIsRightAssociative(t *testing.T) {
	a, ok := singleNode(t, "x := y := 1").(*ast.Assignment)
	if !ok {
		t.Fatal("expected assignment")
	}
	if v, ok := a.Target.(*ast.Variable); !ok || v.Name != "x" {
		t.Errorf("expected target x, got %+v", a.Target)
	}
	if _, ok := a.Value.(*ast.Assignment); !ok {
		t.Errorf("expected nested assignment on the right")
	}
}

func TestAssignmentToNonVariableParses(t *testing.T) {
	// rejected later by the semantic check, not by the parser
	a, ok := singleNode(t, "1 := 2").(*ast.Assignment)
	if !ok {
		t.Fatal("expected assignment")
	}
	if _, ok := a.Target.(*ast.Value); !ok {
		t.Errorf("expected value target, got %T", a.Target)
	}
}

func TestDeclarations(t *testing.T) {
	d, ok := singleNode(t, "var x").(*ast.Declaration)
	if !ok || d.Name != "x" || d.Symbol != symbols.KindVariable {
		t.Fatalf("unexpected declaration %+v", d)
	}

	f, ok := singleNode(t, "func f").(*ast.Declaration)
	if !ok || f.Name != "f" || f.Symbol != symbols.KindFunction {
		t.Fatalf("unexpected function declaration %+v", f)
	}

	block, ok := singleNode(t, "var a, b, c").(*ast.DeclarationBlock)
	if !ok {
		t.Fatal("expected declaration block")
	}
	var names []string
	for _, decl := range block.Declarations {
		names = append(names, decl.Name)
	}
	if strings.Join(names, ",") != "a,b,c" {
		t.Errorf("got %v", names)
	}
}

func TestStatementListFoldsLeft(t *testing.T) {
	prog := mustParse(t, "var x; x := 1\nx + 2")
	outer, ok := prog.Body.(*ast.StatementList)
	if !ok {
		t.Fatal("expected StatementList")
	}
	if _, ok := outer.Right.(*ast.Binary); !ok {
		t.Errorf("last statement should be on the right, got %T", outer.Right)
	}
	inner, ok := outer.Left.(*ast.StatementList)
	if !ok {
		t.Fatalf("expected nested StatementList, got %T", outer.Left)
	}
	if _, ok := inner.Left.(*ast.Declaration); !ok {
		t.Errorf("first statement should be innermost left, got %T", inner.Left)
	}
}

func TestIf(t *testing.T) {
	n, ok := singleNode(t, "if x > 1 then 1 else 2 endif").(*ast.If)
	if !ok {
		t.Fatal("expected If")
	}
	if n.Then == nil || n.Else == nil {
		t.Errorf("expected both branches")
	}

	noElse := singleNode(t, "if x then y endif").(*ast.If)
	if noElse.Else != nil {
		t.Errorf("expected nil else branch")
	}

	empty := singleNode(t, "if x then endif").(*ast.If)
	if empty.Then != nil {
		t.Errorf("expected nil then branch")
	}
}

func TestWhile(t *testing.T) {
	n, ok := singleNode(t, "while i < 3 do i := i + 1 endwhile").(*ast.While)
	if !ok {
		t.Fatal("expected While")
	}
	if _, ok := n.Body.(*ast.Assignment); !ok {
		t.Errorf("expected assignment body, got %T", n.Body)
	}
}

func TestFor(t *testing.T) {
	n, ok := singleNode(t, "for i := 0, 5 do print i endfor").(*ast.For)
	if !ok {
		t.Fatal("expected For")
	}
	if _, ok := n.Init.(*ast.Assignment); !ok {
		t.Errorf("expected assignment initializer, got %T", n.Init)
	}
	if v, ok := n.Final.(*ast.Value); !ok || v.Value.Int() != 5 {
		t.Errorf("expected final value 5, got %+v", n.Final)
	}
	if _, ok := n.Body.(*ast.DebugPrint); !ok {
		t.Errorf("expected print body, got %T", n.Body)
	}
}

func TestSwitch(t *testing.T) {
	src := `switch x
case 1: "one"
case 2: "two"; "still two"
default: "other"
endswitch`
	n, ok := singleNode(t, src).(*ast.Switch)
	if !ok {
		t.Fatal("expected Switch")
	}
	if len(n.Cases) != 2 {
		t.Fatalf("expected 2 cases, got %d", len(n.Cases))
	}
	if _, ok := n.Cases[1].Body.(*ast.StatementList); !ok {
		t.Errorf("second case should hold a statement list, got %T", n.Cases[1].Body)
	}
	if n.Default == nil {
		t.Error("expected default body")
	}

	bare := singleNode(t, "switch x endswitch").(*ast.Switch)
	if len(bare.Cases) != 0 || bare.Default != nil {
		t.Errorf("expected empty switch")
	}
}

func TestControlFlowAsExpression(t *testing.T) {
	a, ok := singleNode(t, "y := if c then 1 else 2 endif").(*ast.Assignment)
	if !ok {
		t.Fatal("expected assignment")
	}
	if _, ok := a.Value.(*ast.If); !ok {
		t.Errorf("expected If on the right, got %T", a.Value)
	}
}

func TestLineNumbers(t *testing.T) {
	prog := mustParse(t, "var x\n\nx := 1")
	list := prog.Body.(*ast.StatementList)
	if got := ast.Line(list.Right); got != 3 {
		t.Errorf("got line %d, want 3", got)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		line   int
		atEOF  bool
	}{
		{"missing endif", "if x then 1", 1, true},
		{"missing then", "if x 1 endif", 1, false},
		{"stray terminator", "x\nendwhile", 2, false},
		{"missing operand", "1 +", 1, true},
		{"unclosed paren", "(1 + 2", 1, true},
		{"var without name", "var 1", 1, false},
		{"trailing comma", "var a,", 1, true},
		{"case without colon", "switch x case 1 2 endswitch", 1, false},
		{"for without comma", "for i := 0 do endfor", 1, false},
		{"lex error", "x := 1 $", 1, false},
		{"unterminated string", `x := "abc`, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pe := mustFail(t, tt.source)
			if pe.Reason != parser.ReasonInvalidInput {
				t.Errorf("got reason %v", pe.Reason)
			}
			if pe.Span.StartLine != tt.line {
				t.Errorf("got line %d, want %d", pe.Span.StartLine, tt.line)
			}
			if pe.AtEOF != tt.atEOF {
				t.Errorf("got AtEOF %v, want %v", pe.AtEOF, tt.atEOF)
			}
			if parser.IsIncomplete(pe) != tt.atEOF {
				t.Errorf("IsIncomplete disagrees with AtEOF")
			}
		})
	}
}

func TestErrorMessageAndFault(t *testing.T) {
	pe := mustFail(t, "if x then 1")
	if !strings.HasPrefix(pe.Error(), diagnostics.MsgInvalidInput+": ") {
		t.Errorf("unexpected message %q", pe.Error())
	}
	f := pe.Fault()
	if f.Kind != diagnostics.KindSyntax || f.Line != 1 {
		t.Errorf("unexpected fault %+v", f)
	}
}

func TestNestingLimit(t *testing.T) {
	src := strings.Repeat("(", parser.MaxDepth+10) + "1" + strings.Repeat(")", parser.MaxDepth+10)
	pe := mustFail(t, src)
	if pe.Reason != parser.ReasonMemoryExhaustion {
		t.Fatalf("got reason %v, want memory exhaustion", pe.Reason)
	}
	if !strings.HasPrefix(pe.Error(), diagnostics.MsgMemoryExhaustion) {
		t.Errorf("unexpected message %q", pe.Error())
	}
	if parser.IsIncomplete(pe) {
		t.Error("nesting failures are not incomplete input")
	}
}

func TestModerateNestingParses(t *testing.T) {
	src := strings.Repeat("(", 100) + "1" + strings.Repeat(")", 100)
	mustParse(t, src)
}

func TestParseReader(t *testing.T) {
	prog, err := parser.ParseReader(strings.NewReader("1 + 1"), "reader.cb")
	if err != nil {
		t.Fatal(err)
	}
	if prog.Span.File != "reader.cb" {
		t.Errorf("got file %q", prog.Span.File)
	}
}
