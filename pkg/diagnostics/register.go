package diagnostics

import (
	"fmt"
	"io"
	"log/slog"
)

// Register holds at most one pending fault and prints it to its sink when
// processed. A newer fault replaces an unprocessed one.
type Register struct {
	out     io.Writer
	format  func(*Fault) string
	logger  *slog.Logger
	pending *Fault
}

// NewRegister creates a register that prints processed faults to out.
func NewRegister(out io.Writer) *Register {
	return &Register{
		out:    out,
		format: Format,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// SetFormatter replaces the function used to render faults.
func (r *Register) SetFormatter(fn func(*Fault) string) {
	if fn != nil {
		r.format = fn
	}
}

// SetLogger sets the logger used to report discarded faults.
func (r *Register) SetLogger(l *slog.Logger) {
	if l != nil {
		r.logger = l
	}
}

// Trigger records f as the pending fault.
func (r *Register) Trigger(f *Fault) {
	if f == nil {
		return
	}
	if r.pending != nil {
		r.logger.Warn("discarding unprocessed fault",
			slog.String("kind", r.pending.Kind.String()),
			slog.Int("line", r.pending.Line),
			slog.String("message", r.pending.Message))
	}
	r.pending = f
}

// Occurred reports whether a fault is pending.
func (r *Register) Occurred() bool {
	return r.pending != nil
}

// Pending returns the pending fault, or nil.
func (r *Register) Pending() *Fault {
	return r.pending
}

// Process prints the pending fault followed by a newline and clears it.
// It reports whether anything was printed.
func (r *Register) Process() bool {
	if r.pending == nil {
		return false
	}
	f := r.pending
	r.pending = nil
	if r.out != nil {
		fmt.Fprintln(r.out, r.format(f))
	}
	return true
}

// Clear drops the pending fault without printing it.
func (r *Register) Clear() {
	r.pending = nil
}
