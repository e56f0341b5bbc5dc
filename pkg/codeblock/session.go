package codeblock

import (
	"context"
	"log/slog"

	"github.com/thomasrohde/codeblock/pkg/evaluator"
	"github.com/thomasrohde/codeblock/pkg/parser"
	"github.com/thomasrohde/codeblock/pkg/symbols"
	"github.com/thomasrohde/codeblock/pkg/validator"
	"github.com/thomasrohde/codeblock/pkg/variant"
)

// Session evaluates successive inputs against one symbol table, so globals
// declared by one input stay visible to the next.
type Session struct {
	cb    *Codeblock
	table *symbols.Table
	count int
}

// NewSession creates a session with an empty global scope.
func NewSession(opts ...Option) *Session {
	return &Session{
		cb:    New(opts...),
		table: symbols.NewTable(),
	}
}

// Table returns the session's symbol table.
func (s *Session) Table() *symbols.Table {
	return s.table
}

// Eval parses, checks and evaluates one input. Faults are printed to the
// error output and returned. Declarations of an input that fails the check
// are rolled back.
func (s *Session) Eval(ctx context.Context, source string) (variant.Variant, error) {
	s.count++
	program, err := parser.Parse(source, "<repl>")
	if err != nil {
		return variant.Variant{}, s.cb.report(err)
	}

	global := s.table.Global()
	mark := global.Len()
	if err := validator.Check(program, s.table); err != nil {
		global.Truncate(mark)
		return variant.Variant{}, s.cb.report(err)
	}

	res, err := evaluator.Execute(ctx, program, s.table, evaluator.ExecOptions{
		DebugOutput: s.cb.debugOut,
		Budget:      s.cb.budget,
		Trace:       s.cb.trace,
		RunID:       s.cb.runID,
		Logger:      s.cb.logger,
	})
	if err != nil {
		return variant.Variant{}, s.cb.report(err)
	}
	s.cb.logger.Debug("session input evaluated", slog.Int("input", s.count), slog.Int("globals", global.Len()))
	return res.Value, nil
}
