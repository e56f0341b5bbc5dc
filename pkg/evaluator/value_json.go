package evaluator

import (
	"encoding/json"
	"math"

	"github.com/thomasrohde/codeblock/pkg/symbols"
	"github.com/thomasrohde/codeblock/pkg/variant"
)

// ValueToJSON marshals a variant to JSON bytes. Undefined becomes null.
// Non-finite floats have no JSON form and are rendered as strings.
func ValueToJSON(v variant.Variant) ([]byte, error) {
	return json.Marshal(valueToRaw(v))
}

func valueToRaw(v variant.Variant) any {
	switch v.Type() {
	case variant.Integer:
		return v.Int()
	case variant.Float:
		f := v.Float()
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return v.String()
		}
		return f
	case variant.Boolean:
		return v.Bool()
	case variant.String:
		return v.Str()
	}
	return nil
}

// ValueToJSONString is a convenience that returns a string.
func ValueToJSONString(v variant.Variant) string {
	b, err := ValueToJSON(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

type symbolJSON struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Type  string `json:"type,omitempty"`
	Value any    `json:"value,omitempty"`
}

// SymbolsToJSON marshals the symbols of a scope in declaration order.
// Functions carry no value.
func SymbolsToJSON(scope *symbols.Scope) ([]byte, error) {
	syms := scope.Symbols()
	items := make([]symbolJSON, len(syms))
	for i, sym := range syms {
		item := symbolJSON{
			Name: sym.Identifier(),
			Kind: sym.Kind().String(),
		}
		if v, ok := sym.(*symbols.Variable); ok {
			val := v.Value()
			item.Type = val.Type().String()
			item.Value = valueToRaw(val)
		}
		items[i] = item
	}
	return json.Marshal(items)
}
