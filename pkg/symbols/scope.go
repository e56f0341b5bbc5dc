package symbols

// Scope binds identifiers to symbols for one lexical level.
// It supports parent-chained lookup; the global scope has no parent.
type Scope struct {
	symbols map[string]Symbol
	order   []string
	parent  *Scope
}

// NewScope creates a new scope with an optional parent scope.
func NewScope(parent *Scope) *Scope {
	return &Scope{
		symbols: make(map[string]Symbol),
		parent:  parent,
	}
}

// Parent returns the enclosing scope, or nil for the global scope.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Lookup finds a symbol by identifier, traversing parent scopes.
func (s *Scope) Lookup(id string) Symbol {
	for sc := s; sc != nil; sc = sc.parent {
		if sym, ok := sc.symbols[id]; ok {
			return sym
		}
	}
	return nil
}

// LookupLocal finds a symbol in this scope only.
func (s *Scope) LookupLocal(id string) Symbol {
	return s.symbols[id]
}

// Insert adds sym to this scope unless the identifier is already bound here.
// On conflict the existing symbol is returned and sym is not inserted.
func (s *Scope) Insert(sym Symbol) Symbol {
	id := sym.Identifier()
	if existing, ok := s.symbols[id]; ok {
		return existing
	}
	s.symbols[id] = sym
	s.order = append(s.order, id)
	return nil
}

// Symbols returns the symbols of this scope in insertion order.
func (s *Scope) Symbols() []Symbol {
	out := make([]Symbol, len(s.order))
	for i, id := range s.order {
		out[i] = s.symbols[id]
	}
	return out
}

// Len returns the number of symbols bound in this scope.
func (s *Scope) Len() int {
	return len(s.order)
}

// Truncate drops every symbol inserted after the first n.
func (s *Scope) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	if n >= len(s.order) {
		return
	}
	for _, id := range s.order[n:] {
		delete(s.symbols, id)
	}
	s.order = s.order[:n]
}
