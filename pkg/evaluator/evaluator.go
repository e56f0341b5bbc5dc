// Package evaluator implements the evaluation walk over checked codeblock ASTs.
package evaluator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/thomasrohde/codeblock/pkg/ast"
	"github.com/thomasrohde/codeblock/pkg/diagnostics"
	"github.com/thomasrohde/codeblock/pkg/symbols"
	"github.com/thomasrohde/codeblock/pkg/variant"
)

// TraceEventType identifies the type of a trace event.
type TraceEventType string

const (
	TraceRunStart  TraceEventType = "run_start"
	TraceRunEnd    TraceEventType = "run_end"
	TraceLoopStart TraceEventType = "loop_start"
	TraceLoopEnd   TraceEventType = "loop_end"
	TracePrint     TraceEventType = "print"
	TraceCaseMatch TraceEventType = "case_match"
	TraceFault     TraceEventType = "fault"
)

// TraceEvent represents a single trace event emitted during evaluation.
type TraceEvent struct {
	Timestamp string            `json:"ts"`
	RunID     string            `json:"runId"`
	Event     TraceEventType    `json:"event"`
	Line      int               `json:"line,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
}

// ExecOptions configures program evaluation.
type ExecOptions struct {
	// DebugOutput receives print output. Nil discards it.
	DebugOutput io.Writer
	Budget      Budget
	Trace       func(event TraceEvent)
	RunID       string
	Logger      *slog.Logger
}

// ExecResult holds the outcome of an evaluation.
type ExecResult struct {
	Value      variant.Variant
	Iterations int64
	ElapsedMs  int64
}

type evaluator struct {
	ctx     context.Context
	opts    ExecOptions
	table   *symbols.Table
	out     io.Writer
	logger  *slog.Logger
	tracker BudgetTracker
	clock   stopwatch
}

// Execute evaluates program against table, which must already hold the
// symbols declared by a successful check walk. It returns the value of the
// last evaluated statement, or a runtime *diagnostics.Fault.
func Execute(ctx context.Context, program *ast.Program, table *symbols.Table, opts ExecOptions) (*ExecResult, error) {
	ev := &evaluator{
		ctx:    ctx,
		opts:   opts,
		table:  table,
		out:    opts.DebugOutput,
		logger: opts.Logger,
		clock:  startStopwatch(),
	}
	if ev.out == nil {
		ev.out = io.Discard
	}
	if ev.logger == nil {
		ev.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if opts.Budget.TimeMs > 0 {
		var cancel context.CancelFunc
		ev.ctx, cancel = context.WithTimeout(ctx, time.Duration(opts.Budget.TimeMs)*time.Millisecond)
		defer cancel()
	}

	var body ast.Node
	if program != nil {
		body = program.Body
	}

	ev.emit(TraceRunStart, 0, nil)
	val, err := ev.eval(body)
	ev.tracker.ElapsedMs = ev.clock.elapsedMs()

	result := &ExecResult{Iterations: ev.tracker.Iterations, ElapsedMs: ev.tracker.ElapsedMs}
	if err != nil {
		var f *diagnostics.Fault
		if errors.As(err, &f) {
			ev.emit(TraceFault, f.Line, map[string]string{
				"kind":    f.Kind.String(),
				"message": f.Message,
			})
		}
		ev.emit(TraceRunEnd, 0, map[string]string{"status": "fault"})
		return result, err
	}
	ev.emit(TraceRunEnd, 0, map[string]string{"status": "ok"})

	result.Value = val
	return result, nil
}

func (ev *evaluator) emit(event TraceEventType, line int, data map[string]string) {
	if ev.opts.Trace != nil {
		ev.opts.Trace(TraceEvent{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			RunID:     ev.opts.RunID,
			Event:     event,
			Line:      line,
			Data:      data,
		})
	}
}

func (ev *evaluator) fault(n ast.Node, format string, args ...any) *diagnostics.Fault {
	return diagnostics.NewFault(diagnostics.KindRuntime, ast.Line(n), format, args...)
}

// eval returns the value of n. Absent children evaluate to Undefined.
func (ev *evaluator) eval(n ast.Node) (variant.Variant, error) {
	if n == nil {
		return variant.NewUndefined(), nil
	}

	switch n := n.(type) {
	case *ast.Value:
		return n.Value.Copy(), nil

	case *ast.Variable:
		return ev.variable(n).Value(), nil

	case *ast.Unary:
		operand, err := ev.eval(n.Operand)
		if err != nil {
			return variant.Variant{}, err
		}
		val, err := variant.Unary(n.Op, operand)
		if err != nil {
			return variant.Variant{}, ev.fault(n, "%s", err.Error())
		}
		return val, nil

	case *ast.Binary:
		left, err := ev.eval(n.Left)
		if err != nil {
			return variant.Variant{}, err
		}
		right, err := ev.eval(n.Right)
		if err != nil {
			return variant.Variant{}, err
		}
		val, err := variant.Binary(n.Op, left, right)
		if err != nil {
			return variant.Variant{}, ev.fault(n, "%s", err.Error())
		}
		return val, nil

	case *ast.Assignment:
		return ev.evalAssignment(n)

	case *ast.Declaration:
		ev.bind(n)
		return variant.NewUndefined(), nil

	case *ast.DeclarationBlock:
		for _, decl := range n.Declarations {
			ev.bind(decl)
		}
		return variant.NewUndefined(), nil

	case *ast.StatementList:
		if _, err := ev.eval(n.Left); err != nil {
			return variant.Variant{}, err
		}
		if err := ev.checkTimeBudget(n.Right); err != nil {
			return variant.Variant{}, err
		}
		return ev.eval(n.Right)

	case *ast.If:
		return ev.evalIf(n)

	case *ast.While:
		return ev.evalWhile(n)

	case *ast.For:
		return ev.evalFor(n)

	case *ast.Switch:
		return ev.evalSwitch(n)

	case *ast.DebugPrint:
		val, err := ev.eval(n.Operand)
		if err != nil {
			return variant.Variant{}, err
		}
		fmt.Fprintln(ev.out, val.String())
		ev.emit(TracePrint, ast.Line(n), map[string]string{"value": val.String()})
		return variant.NewUndefined(), nil
	}

	panic(fmt.Sprintf("evaluator: unhandled node %T", n))
}

// evalScoped evaluates n inside a fresh nested scope.
func (ev *evaluator) evalScoped(n ast.Node) (variant.Variant, error) {
	ev.table.EnterScope()
	defer ev.table.LeaveScope()
	return ev.eval(n)
}

// variable resolves a variable reference. A successful check walk guarantees
// the binding, so a missing one is a programming error.
func (ev *evaluator) variable(n *ast.Variable) *symbols.Variable {
	v, ok := ev.table.Lookup(n.Name).(*symbols.Variable)
	if !ok {
		panic(fmt.Sprintf("evaluator: variable %q is not bound", n.Name))
	}
	return v
}

// bind declares n in the current scope unless the check walk already did.
func (ev *evaluator) bind(n *ast.Declaration) {
	if ev.table.Current().LookupLocal(n.Name) != nil {
		return
	}
	ev.table.Insert(symbols.New(n.Symbol, n.Name))
}

func (ev *evaluator) evalAssignment(n *ast.Assignment) (variant.Variant, error) {
	target, ok := n.Target.(*ast.Variable)
	if !ok {
		return variant.Variant{}, ev.fault(n, diagnostics.MsgAssignTarget)
	}
	val, err := ev.eval(n.Value)
	if err != nil {
		return variant.Variant{}, err
	}
	v := ev.variable(target)
	v.SetValue(val)
	return v.Value(), nil
}

func (ev *evaluator) condition(cond ast.Node) (bool, error) {
	val, err := ev.eval(cond)
	if err != nil {
		return false, err
	}
	if val.Type() != variant.Boolean {
		return false, ev.fault(cond, diagnostics.MsgNotBoolean)
	}
	return val.Bool(), nil
}

func (ev *evaluator) evalIf(n *ast.If) (variant.Variant, error) {
	ok, err := ev.condition(n.Cond)
	if err != nil {
		return variant.Variant{}, err
	}
	if ok {
		return ev.evalScoped(n.Then)
	}
	return ev.evalScoped(n.Else)
}

func (ev *evaluator) evalWhile(n *ast.While) (variant.Variant, error) {
	line := ast.Line(n)
	ev.emit(TraceLoopStart, line, map[string]string{"loop": "while"})

	last := variant.NewUndefined()
	var iterations int64
	for {
		ok, err := ev.condition(n.Cond)
		if err != nil {
			return variant.Variant{}, err
		}
		if !ok {
			break
		}
		if err := ev.chargeIteration(n); err != nil {
			return variant.Variant{}, err
		}
		iterations++
		last, err = ev.evalScoped(n.Body)
		if err != nil {
			return variant.Variant{}, err
		}
	}

	ev.logger.Debug("loop finished", slog.String("loop", "while"), slog.Int("line", line), slog.Int64("iterations", iterations))
	ev.emit(TraceLoopEnd, line, map[string]string{
		"loop":       "while",
		"iterations": strconv.FormatInt(iterations, 10),
	})
	return last, nil
}

func (ev *evaluator) evalFor(n *ast.For) (variant.Variant, error) {
	init, ok := n.Init.(*ast.Assignment)
	if !ok {
		return variant.Variant{}, ev.fault(n, diagnostics.MsgLoopInitializer)
	}
	target, ok := init.Target.(*ast.Variable)
	if !ok {
		return variant.Variant{}, ev.fault(init, diagnostics.MsgLoopInitializer)
	}

	start, err := ev.eval(init)
	if err != nil {
		return variant.Variant{}, err
	}
	if start.Type() != variant.Integer {
		return variant.Variant{}, ev.fault(init, diagnostics.MsgLoopBound)
	}
	final, err := ev.eval(n.Final)
	if err != nil {
		return variant.Variant{}, err
	}
	if final.Type() != variant.Integer {
		return variant.Variant{}, ev.fault(n.Final, diagnostics.MsgLoopBound)
	}

	line := ast.Line(n)
	ev.emit(TraceLoopStart, line, map[string]string{
		"loop":  "for",
		"from":  start.String(),
		"to":    final.String(),
		"count": target.Name,
	})

	counter := ev.variable(target)
	last := variant.NewUndefined()
	var iterations int64
	for {
		current := counter.Value()
		if current.Type() != variant.Integer {
			return variant.Variant{}, ev.fault(n, diagnostics.MsgLoopBound)
		}
		if current.Int() >= final.Int() {
			break
		}
		if err := ev.chargeIteration(n); err != nil {
			return variant.Variant{}, err
		}
		iterations++
		last, err = ev.evalScoped(n.Body)
		if err != nil {
			return variant.Variant{}, err
		}

		// The body may have reassigned the counter.
		next := counter.Value()
		if next.Type() != variant.Integer {
			return variant.Variant{}, ev.fault(n, diagnostics.MsgLoopBound)
		}
		counter.SetValue(variant.NewInteger(next.Int() + 1))
	}

	ev.logger.Debug("loop finished", slog.String("loop", "for"), slog.Int("line", line), slog.Int64("iterations", iterations))
	ev.emit(TraceLoopEnd, line, map[string]string{
		"loop":       "for",
		"iterations": strconv.FormatInt(iterations, 10),
	})
	return last, nil
}

func (ev *evaluator) evalSwitch(n *ast.Switch) (variant.Variant, error) {
	subject, err := ev.eval(n.Subject)
	if err != nil {
		return variant.Variant{}, err
	}

	for i, c := range n.Cases {
		guard, err := ev.eval(c.Guard)
		if err != nil {
			return variant.Variant{}, err
		}
		if variant.Equals(subject, guard) {
			ev.emit(TraceCaseMatch, ast.Line(c), map[string]string{"case": strconv.Itoa(i + 1)})
			return ev.evalScoped(c.Body)
		}
	}

	if n.Default != nil {
		ev.emit(TraceCaseMatch, ast.Line(n.Default), map[string]string{"case": "default"})
	}
	return ev.evalScoped(n.Default)
}
