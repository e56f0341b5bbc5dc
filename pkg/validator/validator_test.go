package validator_test

import (
	"errors"
	"testing"

	"github.com/thomasrohde/codeblock/pkg/diagnostics"
	"github.com/thomasrohde/codeblock/pkg/parser"
	"github.com/thomasrohde/codeblock/pkg/symbols"
	"github.com/thomasrohde/codeblock/pkg/validator"
	"github.com/thomasrohde/codeblock/pkg/variant"
)

// helper parses source and checks it against a fresh table.
// It fatals on parse errors so test cases focus on validator behavior.
func mustParseAndCheck(t *testing.T, source string) (*symbols.Table, error) {
	t.Helper()
	prog, err := parser.Parse(source, "test.cb")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	table := symbols.NewTable()
	return table, validator.Check(prog, table)
}

// assertFault asserts err is a semantic fault with the given line and message.
func assertFault(t *testing.T, err error, line int, message string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected semantic fault %q, got none", message)
	}
	var f *diagnostics.Fault
	if !errors.As(err, &f) {
		t.Fatalf("expected *diagnostics.Fault, got %T", err)
	}
	if f.Kind != diagnostics.KindSemantic {
		t.Errorf("expected semantic fault, got %s", f.Kind)
	}
	if f.Line != line {
		t.Errorf("expected line %d, got %d", line, f.Line)
	}
	if f.Message != message {
		t.Errorf("expected message %q, got %q", message, f.Message)
	}
}

func TestValidPrograms(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"empty", ""},
		{"arithmetic", "333 + 55 * 7 - 99"},
		{"declare and assign", "var x; x := 5; x + 1"},
		{"chained assignment", "var a, b; a := b := 3"},
		{"undefined operand", `var x; x + "a"`},
		{"undefined condition", "var x; if x then 1 endif"},
		{"string concat", `"a" + "b"`},
		{"numeric compare", "1 < 2.5"},
		{"boolean logic", "True and not False or 1 = 1"},
		{"shadowing", "var x; if True then var x; x := 1 endif"},
		{"while", "var i; i := 0; while i < 3 do i := i + 1 endwhile"},
		{"for", "var i, s; s := 0; for i := 1, 4 do s := s + i endfor"},
		{"switch", `var x; x := 2; switch x case 1: "a" case 2: "b" default: "c" endswitch`},
		{"print", `print "hello"`},
		{"outer variable in body", "var x; while False do x := 1 endwhile"},
		{"mixed equality", "1 = 1.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := mustParseAndCheck(t, tt.source); err != nil {
				t.Errorf("expected no fault, got %v", err)
			}
		})
	}
}

func TestFaults(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		line    int
		message string
	}{
		{"undeclared variable", "x := 1", 1, "variable 'x' is not declared in an available scope"},
		{"undeclared read", "1 + y", 1, "variable 'y' is not declared in an available scope"},
		{"redeclared variable", "var x\nvar x", 2, "symbol 'x' already declared as variable in the current scope"},
		{"variable over function", "func f; var f", 1, "symbol 'f' already declared as function in the current scope"},
		{"redeclared in block", "var a, b, a", 1, "symbol 'a' already declared as variable in the current scope"},
		{"function as variable", "func f; f := 1", 1, "identifier 'f' is declared as function, not as variable"},
		{"assign to literal", "1 := 2", 1, "Values can only be assigned to variables"},
		{"string plus integer", `"a" + 1`, 1, "Invalid binary operation: <string> + <integer>"},
		{"boolean arithmetic", "(1 < 2) + 1", 1, "Invalid binary operation: <boolean> + <integer>"},
		{"numeric and string", `1 / 2 + "a"`, 1, "Invalid binary operation: <numeric> + <string>"},
		{"string ordering", `"a" < "b"`, 1, "Invalid binary operation: <string> < <string>"},
		{"logic on integers", "1 and 2", 1, "Invalid binary operation: <integer> and <integer>"},
		{"not integer", "not 5", 1, "Invalid unary operation: not <integer>"},
		{"negate string", `- "s"`, 1, "Invalid unary operation: - <string>"},
		{"integer condition", "if 1 then 2 endif", 1, "Condition is not a boolean expression"},
		{"float while condition", "while 1.5 do 1 endwhile", 1, "Condition is not a boolean expression"},
		{"float loop start", "var i; for i := 1.5, 3 do 1 endfor", 1, "Loop bounds must be integer expressions"},
		{"string loop end", `var i; for i := 0, "a" do 1 endfor`, 1, "Loop bounds must be integer expressions"},
		{"loop initializer target", "for 1 := 0, 3 do 1 endfor", 1, "Loop initializer must assign a value to a variable"},
		{"body scope is gone", "var i; for i := 0, 3 do var t endfor; t := 1", 1, "variable 't' is not declared in an available scope"},
		{"branch scope is gone", "if True then var t endif\nt", 2, "variable 't' is not declared in an available scope"},
		{"fault in case body", "switch 1 case 1: z endswitch", 1, "variable 'z' is not declared in an available scope"},
		{"fault in print", "\n\nprint q", 3, "variable 'q' is not declared in an available scope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := mustParseAndCheck(t, tt.source)
			assertFault(t, err, tt.line, tt.message)
		})
	}
}

func TestConditionCheckedBeforeBranches(t *testing.T) {
	_, err := mustParseAndCheck(t, "if 1 then x endif")
	assertFault(t, err, 1, "Condition is not a boolean expression")
}

func TestCheckDeclaresGlobals(t *testing.T) {
	table, err := mustParseAndCheck(t, "var a, b; func f; if True then var inner endif")
	if err != nil {
		t.Fatalf("unexpected fault: %v", err)
	}
	if table.Depth() != 0 {
		t.Errorf("expected all nested scopes to be left, depth %d", table.Depth())
	}

	syms := table.Global().Symbols()
	want := []struct {
		id   string
		kind symbols.Kind
	}{
		{"a", symbols.KindVariable},
		{"b", symbols.KindVariable},
		{"f", symbols.KindFunction},
	}
	if len(syms) != len(want) {
		t.Fatalf("expected %d global symbols, got %d", len(want), len(syms))
	}
	for i, w := range want {
		if syms[i].Identifier() != w.id || syms[i].Kind() != w.kind {
			t.Errorf("symbol %d: expected %s %s, got %s %s", i, w.kind, w.id, syms[i].Kind(), syms[i].Identifier())
		}
	}
}

func TestScopeUnwoundAfterFault(t *testing.T) {
	table, err := mustParseAndCheck(t, "while True do if True then x endif endwhile")
	if err == nil {
		t.Fatal("expected a fault")
	}
	if table.Depth() != 0 {
		t.Errorf("expected scopes to unwind on fault, depth %d", table.Depth())
	}
}

func TestNilProgram(t *testing.T) {
	if err := validator.Check(nil, symbols.NewTable()); err != nil {
		t.Errorf("expected nil program to pass, got %v", err)
	}
}

func TestCheckNodeStaticTypes(t *testing.T) {
	tests := []struct {
		source string
		want   variant.Type
	}{
		{"1 + 2", variant.Integer},
		{"1 + 2.0", variant.Float},
		{"7 / 2", variant.Numeric},
		{`"a" + "b"`, variant.String},
		{"1 < 2", variant.Boolean},
		{"-3", variant.Integer},
		{"not True", variant.Boolean},
		{"var x; x", variant.Undefined},
		{"var x; x := 4", variant.Integer},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			prog, err := parser.Parse(tt.source, "test.cb")
			if err != nil {
				t.Fatalf("unexpected parse error: %v", err)
			}
			got, err := validator.CheckNode(prog.Body, symbols.NewTable())
			if err != nil {
				t.Fatalf("unexpected fault: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}
