// Package codeblock provides the top-level orchestrator that parses, checks
// and evaluates codeblock programs.
package codeblock

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/thomasrohde/codeblock/pkg/ast"
	"github.com/thomasrohde/codeblock/pkg/diagnostics"
	"github.com/thomasrohde/codeblock/pkg/evaluator"
	"github.com/thomasrohde/codeblock/pkg/parser"
	"github.com/thomasrohde/codeblock/pkg/symbols"
	"github.com/thomasrohde/codeblock/pkg/validator"
	"github.com/thomasrohde/codeblock/pkg/variant"
)

// State is the lifecycle stage of a Codeblock.
type State int

const (
	StateReady State = iota
	StateParsed
	StateExecutedSuccess
	StateExecutedFailure
)

var stateNames = [...]string{
	StateReady:           "ready",
	StateParsed:          "parsed",
	StateExecutedSuccess: "executed-success",
	StateExecutedFailure: "executed-failure",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

var (
	// ErrNotParsed is returned by Execute and Check when no program is loaded.
	ErrNotParsed = errors.New("codeblock: no program has been parsed")
	// ErrNoResult is returned by Result unless the last execution succeeded.
	ErrNoResult = errors.New("codeblock: no result available")
)

// Codeblock holds one program through parse, check and evaluation.
type Codeblock struct {
	state   State
	program *ast.Program
	table   *symbols.Table
	result  variant.Variant
	stats   evaluator.ExecResult

	faults      *diagnostics.Register
	errOut      io.Writer
	faultFormat func(*diagnostics.Fault) string
	debugOut    io.Writer
	logger      *slog.Logger
	budget      evaluator.Budget
	runID       string
	trace       func(event evaluator.TraceEvent)
}

// Option is a functional option for configuring a Codeblock.
type Option func(*Codeblock)

// WithErrorOutput sets the sink that processed faults are printed to.
func WithErrorOutput(w io.Writer) Option {
	return func(cb *Codeblock) {
		cb.errOut = w
	}
}

// WithDebugOutput sets the sink for print statements.
func WithDebugOutput(w io.Writer) Option {
	return func(cb *Codeblock) {
		cb.debugOut = w
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(cb *Codeblock) {
		if l != nil {
			cb.logger = l
		}
	}
}

// WithMaxIterations caps the total number of loop iterations per execution.
func WithMaxIterations(n int64) Option {
	return func(cb *Codeblock) {
		cb.budget.MaxIterations = n
	}
}

// WithTimeLimit caps the wall-clock time of each execution in milliseconds.
func WithTimeLimit(ms int64) Option {
	return func(cb *Codeblock) {
		cb.budget.TimeMs = ms
	}
}

// WithRunID sets the run ID for trace events.
func WithRunID(id string) Option {
	return func(cb *Codeblock) {
		cb.runID = id
	}
}

// WithTrace sets the trace callback.
func WithTrace(fn func(event evaluator.TraceEvent)) Option {
	return func(cb *Codeblock) {
		cb.trace = fn
	}
}

// WithJSONFaults prints processed faults as JSON objects.
func WithJSONFaults() Option {
	return func(cb *Codeblock) {
		cb.faultFormat = diagnostics.FormatJSON
	}
}

// New creates a Codeblock in the ready state. Faults print to stderr and
// print statements to stdout unless configured otherwise.
func New(opts ...Option) *Codeblock {
	cb := &Codeblock{
		errOut:   os.Stderr,
		debugOut: os.Stdout,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		runID:    "cli",
	}
	for _, opt := range opts {
		opt(cb)
	}
	cb.faults = diagnostics.NewRegister(cb.errOut)
	cb.faults.SetFormatter(cb.faultFormat)
	cb.faults.SetLogger(cb.logger)
	return cb
}

// State returns the current lifecycle stage.
func (cb *Codeblock) State() State {
	return cb.state
}

// Program returns the parsed program, or nil before a successful parse.
func (cb *Codeblock) Program() *ast.Program {
	return cb.program
}

// Table returns the symbol table of the last execution, or nil.
func (cb *Codeblock) Table() *symbols.Table {
	return cb.table
}

// Iterations returns the loop iterations spent by the last execution.
func (cb *Codeblock) Iterations() int64 {
	return cb.stats.Iterations
}

func (cb *Codeblock) transition(to State) {
	if cb.state != to {
		cb.logger.Debug("codeblock state", slog.String("from", cb.state.String()), slog.String("to", to.String()))
	}
	cb.state = to
}

// reset discards any previous program and result.
func (cb *Codeblock) reset() {
	cb.program = nil
	cb.table = nil
	cb.result = variant.Variant{}
	cb.stats = evaluator.ExecResult{}
	cb.transition(StateReady)
}

// ParseString parses source, replacing any previous program. A syntax
// fault is printed to the error output and returned.
func (cb *Codeblock) ParseString(source string) error {
	return cb.parse(source, "<string>")
}

// ParseFile reads the whole program from r and parses it. name labels the
// source in logs.
func (cb *Codeblock) ParseFile(r io.Reader, name string) error {
	cb.reset()
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("codeblock: read %s: %w", name, err)
	}
	return cb.parse(string(data), name)
}

func (cb *Codeblock) parse(source, name string) error {
	cb.reset()
	program, err := parser.Parse(source, name)
	if err != nil {
		return cb.report(err)
	}
	cb.program = program
	cb.logger.Debug("parsed program", slog.String("file", name))
	cb.transition(StateParsed)
	return nil
}

// report registers err as the pending fault, prints it once and returns the
// fault.
func (cb *Codeblock) report(err error) *diagnostics.Fault {
	f := toFault(err)
	cb.faults.Trigger(f)
	cb.faults.Process()
	return f
}

func toFault(err error) *diagnostics.Fault {
	var f *diagnostics.Fault
	if errors.As(err, &f) {
		return f
	}
	var pe *parser.Error
	if errors.As(err, &pe) {
		return pe.Fault()
	}
	return diagnostics.NewFault(diagnostics.KindUnknown, 0, "%s", err.Error())
}

// Execute checks and evaluates the parsed program on a fresh symbol table.
// It may be called again after a failure. Faults are printed to the error
// output once and returned.
func (cb *Codeblock) Execute(ctx context.Context) error {
	if cb.program == nil {
		return ErrNotParsed
	}
	cb.table = symbols.NewTable()
	cb.result = variant.Variant{}
	cb.stats = evaluator.ExecResult{}

	if err := validator.Check(cb.program, cb.table); err != nil {
		cb.transition(StateExecutedFailure)
		return cb.report(err)
	}

	res, err := evaluator.Execute(ctx, cb.program, cb.table, evaluator.ExecOptions{
		DebugOutput: cb.debugOut,
		Budget:      cb.budget,
		Trace:       cb.trace,
		RunID:       cb.runID,
		Logger:      cb.logger,
	})
	if res != nil {
		cb.stats = *res
	}
	if err != nil {
		cb.transition(StateExecutedFailure)
		return cb.report(err)
	}

	cb.result = res.Value
	cb.logger.Debug("executed program",
		slog.String("type", cb.result.Type().String()),
		slog.Int64("iterations", res.Iterations),
		slog.Int64("elapsed_ms", res.ElapsedMs))
	cb.transition(StateExecutedSuccess)
	return nil
}

// Check runs only the semantic walk on a fresh symbol table. The state is
// left unchanged.
func (cb *Codeblock) Check() error {
	if cb.program == nil {
		return ErrNotParsed
	}
	if err := validator.Check(cb.program, symbols.NewTable()); err != nil {
		return cb.report(err)
	}
	return nil
}

// Result returns the value of the last successful execution.
func (cb *Codeblock) Result() (variant.Variant, error) {
	if cb.state != StateExecutedSuccess {
		return variant.Variant{}, ErrNoResult
	}
	return cb.result.Copy(), nil
}
