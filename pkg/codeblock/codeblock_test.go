package codeblock_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/thomasrohde/codeblock/pkg/codeblock"
	"github.com/thomasrohde/codeblock/pkg/diagnostics"
	"github.com/thomasrohde/codeblock/pkg/evaluator"
	"github.com/thomasrohde/codeblock/pkg/variant"
)

type harness struct {
	cb     *codeblock.Codeblock
	errOut *bytes.Buffer
	debug  *bytes.Buffer
}

func newHarness(opts ...codeblock.Option) *harness {
	h := &harness{errOut: &bytes.Buffer{}, debug: &bytes.Buffer{}}
	opts = append([]codeblock.Option{
		codeblock.WithErrorOutput(h.errOut),
		codeblock.WithDebugOutput(h.debug),
	}, opts...)
	h.cb = codeblock.New(opts...)
	return h
}

// helper: parse and execute source, asserting success
func (h *harness) mustRun(t *testing.T, source string) variant.Variant {
	t.Helper()
	if err := h.cb.ParseString(source); err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if err := h.cb.Execute(context.Background()); err != nil {
		t.Fatalf("unexpected execution error: %v", err)
	}
	val, err := h.cb.Result()
	if err != nil {
		t.Fatalf("unexpected result error: %v", err)
	}
	return val
}

func TestEndToEnd(t *testing.T) {
	h := newHarness()
	val := h.mustRun(t, "333 + 55 * 7 - 99")
	if val.Type() != variant.Integer || val.Int() != 619 {
		t.Errorf("expected integer 619, got %#v", val)
	}
	if h.cb.State() != codeblock.StateExecutedSuccess {
		t.Errorf("expected executed-success, got %s", h.cb.State())
	}
	if h.errOut.Len() != 0 {
		t.Errorf("expected no fault output, got %q", h.errOut.String())
	}
}

func TestEmptyProgram(t *testing.T) {
	h := newHarness()
	if val := h.mustRun(t, ""); !val.IsUndefined() {
		t.Errorf("expected undefined, got %#v", val)
	}
}

func TestUndeclaredVariableLeavesNoResult(t *testing.T) {
	h := newHarness()
	if err := h.cb.ParseString("x + 1"); err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	err := h.cb.Execute(context.Background())

	var f *diagnostics.Fault
	if !errors.As(err, &f) || f.Kind != diagnostics.KindSemantic {
		t.Fatalf("expected semantic fault, got %v", err)
	}
	if h.cb.State() != codeblock.StateExecutedFailure {
		t.Errorf("expected executed-failure, got %s", h.cb.State())
	}
	if _, err := h.cb.Result(); !errors.Is(err, codeblock.ErrNoResult) {
		t.Errorf("expected ErrNoResult, got %v", err)
	}
	want := "semantic error: line 1: variable 'x' is not declared in an available scope\n"
	if h.errOut.String() != want {
		t.Errorf("expected fault printed once as %q, got %q", want, h.errOut.String())
	}
}

func TestSyntaxFault(t *testing.T) {
	h := newHarness()
	err := h.cb.ParseString("1 +\n\n)")

	var f *diagnostics.Fault
	if !errors.As(err, &f) || f.Kind != diagnostics.KindSyntax {
		t.Fatalf("expected syntax fault, got %v", err)
	}
	if f.Line != 3 {
		t.Errorf("expected line 3, got %d", f.Line)
	}
	if !strings.HasPrefix(h.errOut.String(), "syntax error: line 3: Parsing failed due to invalid input") {
		t.Errorf("unexpected fault output %q", h.errOut.String())
	}
	if h.cb.State() != codeblock.StateReady {
		t.Errorf("expected ready after failed parse, got %s", h.cb.State())
	}
	if err := h.cb.Execute(context.Background()); !errors.Is(err, codeblock.ErrNotParsed) {
		t.Errorf("expected ErrNotParsed, got %v", err)
	}
}

func TestRuntimeFault(t *testing.T) {
	h := newHarness()
	if err := h.cb.ParseString("print 1\n1 / 0"); err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	err := h.cb.Execute(context.Background())

	var f *diagnostics.Fault
	if !errors.As(err, &f) || f.Kind != diagnostics.KindRuntime {
		t.Fatalf("expected runtime fault, got %v", err)
	}
	if h.errOut.String() != "runtime error: line 2: Division by zero is not allowed\n" {
		t.Errorf("unexpected fault output %q", h.errOut.String())
	}
	if h.debug.String() != "1\n" {
		t.Errorf("expected print output before the fault, got %q", h.debug.String())
	}
}

func TestExecuteAgain(t *testing.T) {
	h := newHarness()
	if err := h.cb.ParseString("var x; x := 2; x * 21"); err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := h.cb.Execute(context.Background()); err != nil {
			t.Fatalf("run %d: a fresh table should accept the declaration again: %v", i+1, err)
		}
		val, err := h.cb.Result()
		if err != nil || val.Int() != 42 {
			t.Errorf("run %d: expected 42, got %#v (%v)", i+1, val, err)
		}
	}
}

func TestExecuteAgainAfterFailure(t *testing.T) {
	h := newHarness()
	if err := h.cb.ParseString("3 / 0"); err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	first := h.cb.Execute(context.Background())
	second := h.cb.Execute(context.Background())
	if first == nil || second == nil || first.Error() != second.Error() {
		t.Errorf("expected the same fault twice, got %v and %v", first, second)
	}
	if strings.Count(h.errOut.String(), "Division by zero") != 2 {
		t.Errorf("expected each fault printed once, got %q", h.errOut.String())
	}
}

func TestReparseResets(t *testing.T) {
	h := newHarness()
	h.mustRun(t, "1")
	if err := h.cb.ParseString("2"); err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if h.cb.State() != codeblock.StateParsed {
		t.Errorf("expected parsed, got %s", h.cb.State())
	}
	if _, err := h.cb.Result(); !errors.Is(err, codeblock.ErrNoResult) {
		t.Errorf("expected no result after re-parse, got %v", err)
	}
}

func TestParseFile(t *testing.T) {
	h := newHarness()
	if err := h.cb.ParseFile(strings.NewReader("var s\ns := \"a\" + \"b\""), "concat.cb"); err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if err := h.cb.Execute(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	val, _ := h.cb.Result()
	if val.String() != "ab" {
		t.Errorf("expected ab, got %s", val)
	}
	syms := h.cb.Table().Global().Symbols()
	if len(syms) != 1 || syms[0].Identifier() != "s" {
		t.Errorf("expected global s in table, got %v", syms)
	}
}

func TestCheckOnly(t *testing.T) {
	h := newHarness()
	if err := h.cb.ParseString("var i; for i := 0, 3 do print i endfor"); err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if err := h.cb.Check(); err != nil {
		t.Fatalf("unexpected check error: %v", err)
	}
	if h.debug.Len() != 0 {
		t.Errorf("check must not evaluate, got output %q", h.debug.String())
	}
	if h.cb.State() != codeblock.StateParsed {
		t.Errorf("check must not change state, got %s", h.cb.State())
	}

	if err := h.cb.ParseString(`1 + "a"`); err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if err := h.cb.Check(); err == nil {
		t.Error("expected check to fail")
	}
}

func TestJSONFaults(t *testing.T) {
	h := newHarness(codeblock.WithJSONFaults())
	if err := h.cb.ParseString("3 / 0"); err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	_ = h.cb.Execute(context.Background())
	want := `{"kind":"runtime","line":1,"message":"Division by zero is not allowed"}` + "\n"
	if h.errOut.String() != want {
		t.Errorf("expected %q, got %q", want, h.errOut.String())
	}
}

func TestBudgetOption(t *testing.T) {
	h := newHarness(codeblock.WithMaxIterations(3))
	if err := h.cb.ParseString("var i; i := 0; while True do i := i + 1 endwhile"); err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	err := h.cb.Execute(context.Background())
	if err == nil || !strings.Contains(err.Error(), "iteration budget exceeded (max 3)") {
		t.Errorf("expected iteration budget fault, got %v", err)
	}
	if h.cb.Iterations() != 3 {
		t.Errorf("expected 3 iterations, got %d", h.cb.Iterations())
	}
}

func TestTraceOption(t *testing.T) {
	var events []evaluator.TraceEvent
	h := newHarness(
		codeblock.WithRunID("abc"),
		codeblock.WithTrace(func(ev evaluator.TraceEvent) { events = append(events, ev) }),
	)
	h.mustRun(t, "print 1")
	if len(events) != 3 || events[1].Event != evaluator.TracePrint || events[1].RunID != "abc" {
		t.Errorf("unexpected events %+v", events)
	}
}

func TestStateNames(t *testing.T) {
	if codeblock.StateExecutedFailure.String() != "executed-failure" {
		t.Errorf("unexpected name %q", codeblock.StateExecutedFailure.String())
	}
	if codeblock.State(42).String() != "state(42)" {
		t.Errorf("unexpected name %q", codeblock.State(42).String())
	}
}
