package symbols

// Table is a stack of scopes above a global scope. The global scope is held
// outside the stack, so the table always has a current scope.
type Table struct {
	global *Scope
	stack  []*Scope
}

// NewTable creates a table containing only the global scope.
func NewTable() *Table {
	return &Table{global: NewScope(nil)}
}

// Global returns the global scope.
func (t *Table) Global() *Scope {
	return t.global
}

// Current returns the innermost scope.
func (t *Table) Current() *Scope {
	if n := len(t.stack); n > 0 {
		return t.stack[n-1]
	}
	return t.global
}

// Depth returns the number of scopes above the global scope.
func (t *Table) Depth() int {
	return len(t.stack)
}

// EnterScope pushes a scope nested in the current one.
func (t *Table) EnterScope() *Scope {
	return t.push(NewScope(t.Current()))
}

// SwitchScope pushes a scope whose parent is parent instead of the current
// scope. A nil parent selects the global scope.
func (t *Table) SwitchScope(parent *Scope) *Scope {
	if parent == nil {
		parent = t.global
	}
	return t.push(NewScope(parent))
}

func (t *Table) push(s *Scope) *Scope {
	t.stack = append(t.stack, s)
	return s
}

// LeaveScope pops the current scope and its symbols. Leaving the global
// scope is a programming error and panics.
func (t *Table) LeaveScope() {
	n := len(t.stack)
	if n == 0 {
		panic("symbols: cannot leave the global scope")
	}
	t.stack[n-1] = nil
	t.stack = t.stack[:n-1]
}

// Lookup finds id starting at the current scope and following parent links.
func (t *Table) Lookup(id string) Symbol {
	return t.Current().Lookup(id)
}

// Insert adds sym to the current scope. It returns the existing symbol when
// the identifier is already bound in the current scope, nil otherwise.
func (t *Table) Insert(sym Symbol) Symbol {
	return t.Current().Insert(sym)
}
