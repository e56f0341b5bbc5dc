// Package ast defines the codeblock AST node types.
package ast

import (
	"github.com/thomasrohde/codeblock/pkg/symbols"
	"github.com/thomasrohde/codeblock/pkg/variant"
)

// Span represents a source location range.
type Span struct {
	File      string `json:"file"`
	StartLine int    `json:"startLine"`
	StartCol  int    `json:"startCol"`
	EndLine   int    `json:"endLine"`
	EndCol    int    `json:"endCol"`
}

// Node is the interface implemented by all AST nodes. Every node evaluates
// to a variant, so there is no separate statement hierarchy.
type Node interface {
	Kind() string
	NodeSpan() Span
	node() // sealed marker
}

// Line returns the first source line of n, or 0 if n is nil.
func Line(n Node) int {
	if n == nil {
		return 0
	}
	return n.NodeSpan().StartLine
}

// Program is the root of a parsed source. Body is nil for an empty program.
type Program struct {
	Span Span
	Body Node
}

// --- Leaves ---

// Value wraps a constant.
type Value struct {
	Span  Span
	Value variant.Variant
}

func (n *Value) Kind() string   { return "Value" }
func (n *Value) NodeSpan() Span { return n.Span }
func (n *Value) node()          {}

// Variable references a declared identifier.
type Variable struct {
	Span Span
	Name string
}

func (n *Variable) Kind() string   { return "Variable" }
func (n *Variable) NodeSpan() Span { return n.Span }
func (n *Variable) node()          {}

// --- Operators ---

type Unary struct {
	Span    Span
	Op      variant.UnaryOp
	Operand Node
}

func (n *Unary) Kind() string   { return "Unary" }
func (n *Unary) NodeSpan() Span { return n.Span }
func (n *Unary) node()          {}

type Binary struct {
	Span  Span
	Op    variant.BinaryOp
	Left  Node
	Right Node
}

func (n *Binary) Kind() string   { return "Binary" }
func (n *Binary) NodeSpan() Span { return n.Span }
func (n *Binary) node()          {}

// Assignment stores the value of Value into the variable named by Target.
// Target must be a *Variable; other nodes are rejected by the semantic check.
type Assignment struct {
	Span   Span
	Target Node
	Value  Node
}

func (n *Assignment) Kind() string   { return "Assignment" }
func (n *Assignment) NodeSpan() Span { return n.Span }
func (n *Assignment) node()          {}

// --- Declarations ---

type Declaration struct {
	Span   Span
	Name   string
	Symbol symbols.Kind
}

func (n *Declaration) Kind() string   { return "Declaration" }
func (n *Declaration) NodeSpan() Span { return n.Span }
func (n *Declaration) node()          {}

type DeclarationBlock struct {
	Span         Span
	Declarations []*Declaration
}

func (n *DeclarationBlock) Kind() string   { return "DeclarationBlock" }
func (n *DeclarationBlock) NodeSpan() Span { return n.Span }
func (n *DeclarationBlock) node()          {}

// --- Sequencing ---

// StatementList evaluates Left, discards its value, then yields Right.
type StatementList struct {
	Span  Span
	Left  Node
	Right Node
}

func (n *StatementList) Kind() string   { return "StatementList" }
func (n *StatementList) NodeSpan() Span { return n.Span }
func (n *StatementList) node()          {}

// --- Control flow ---

// If selects Then or Else. Either branch may be nil.
type If struct {
	Span Span
	Cond Node
	Then Node
	Else Node
}

func (n *If) Kind() string   { return "If" }
func (n *If) NodeSpan() Span { return n.Span }
func (n *If) node()          {}

type While struct {
	Span Span
	Cond Node
	Body Node
}

func (n *While) Kind() string   { return "While" }
func (n *While) NodeSpan() Span { return n.Span }
func (n *While) node()          {}

// For counts the variable assigned by Init up to Final, exclusive.
type For struct {
	Span  Span
	Init  Node
	Final Node
	Body  Node
}

func (n *For) Kind() string   { return "For" }
func (n *For) NodeSpan() Span { return n.Span }
func (n *For) node()          {}

// Switch runs the body of the first case whose guard equals Subject,
// or Default when no case matches.
type Switch struct {
	Span    Span
	Subject Node
	Cases   []*Case
	Default Node
}

func (n *Switch) Kind() string   { return "Switch" }
func (n *Switch) NodeSpan() Span { return n.Span }
func (n *Switch) node()          {}

type Case struct {
	Span  Span
	Guard Node
	Body  Node
}

func (n *Case) Kind() string   { return "Case" }
func (n *Case) NodeSpan() Span { return n.Span }
func (n *Case) node()          {}

// DebugPrint writes its operand to the debug sink and yields Undefined.
type DebugPrint struct {
	Span    Span
	Operand Node
}

func (n *DebugPrint) Kind() string   { return "DebugPrint" }
func (n *DebugPrint) NodeSpan() Span { return n.Span }
func (n *DebugPrint) node()          {}
