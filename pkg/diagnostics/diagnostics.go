// Package diagnostics defines codeblock faults, their display format and the
// register that reports them.
package diagnostics

import (
	"encoding/json"
	"fmt"
)

// Kind classifies a fault by the phase that raised it.
type Kind int

const (
	KindUnknown Kind = iota
	KindSyntax
	KindSemantic
	KindRuntime
)

func (k Kind) String() string {
	switch k {
	case KindSyntax:
		return "syntax"
	case KindSemantic:
		return "semantic"
	case KindRuntime:
		return "runtime"
	}
	return "unknown"
}

// MarshalText renders the kind by name in JSON output.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Messages shared by the parser boundary.
const (
	MsgInvalidInput     = "Parsing failed due to invalid input"
	MsgMemoryExhaustion = "Parsing failed due to memory exhaustion"
)

// Fault is a single reported failure. Line is 1-based; zero means unknown.
type Fault struct {
	Kind    Kind   `json:"kind"`
	Line    int    `json:"line,omitempty"`
	Message string `json:"message"`
}

// NewFault creates a fault with a formatted message.
func NewFault(kind Kind, line int, format string, args ...any) *Fault {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &Fault{Kind: kind, Line: line, Message: msg}
}

func (f *Fault) Error() string {
	return Format(f)
}

// Format renders a fault as "<kind> error: line <N>: <message>", omitting
// the line segment when the line is unknown.
func Format(f *Fault) string {
	if f.Line <= 0 {
		return fmt.Sprintf("%s error: %s", f.Kind, f.Message)
	}
	return fmt.Sprintf("%s error: line %d: %s", f.Kind, f.Line, f.Message)
}

// FormatJSON renders a fault as a single JSON object.
func FormatJSON(f *Fault) string {
	b, _ := json.Marshal(f)
	return string(b)
}
