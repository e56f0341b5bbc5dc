// Package symbols implements the lexically scoped symbol table shared by the
// semantic check and evaluation walks.
package symbols

import "github.com/thomasrohde/codeblock/pkg/variant"

// Kind distinguishes variable symbols from function symbols.
type Kind int

const (
	KindVariable Kind = iota
	KindFunction
)

func (k Kind) String() string {
	if k == KindFunction {
		return "function"
	}
	return "variable"
}

// Symbol is a declared identifier. The set of implementations is closed.
type Symbol interface {
	Identifier() string
	Kind() Kind
	symbol() // sealed marker
}

// Variable is a symbol holding a current value, initially Undefined.
type Variable struct {
	id    string
	value variant.Variant
}

// NewVariable creates a variable symbol with an Undefined value.
func NewVariable(id string) *Variable {
	return &Variable{id: id}
}

func (v *Variable) Identifier() string { return v.id }
func (v *Variable) Kind() Kind         { return KindVariable }
func (v *Variable) symbol()            {}

// Value returns a copy of the current value.
func (v *Variable) Value() variant.Variant {
	return v.value.Copy()
}

// SetValue stores a copy of val.
func (v *Variable) SetValue(val variant.Variant) {
	v.value = val.Copy()
}

// Function is a function symbol. It carries no body.
type Function struct {
	id string
}

// NewFunction creates a function symbol.
func NewFunction(id string) *Function {
	return &Function{id: id}
}

func (f *Function) Identifier() string { return f.id }
func (f *Function) Kind() Kind         { return KindFunction }
func (f *Function) symbol()            {}

// New creates a symbol of the given kind.
func New(kind Kind, id string) Symbol {
	if kind == KindFunction {
		return NewFunction(id)
	}
	return NewVariable(id)
}
