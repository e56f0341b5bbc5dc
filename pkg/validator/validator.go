// Package validator implements the semantic check walk over codeblock ASTs.
package validator

import (
	"errors"
	"fmt"

	"github.com/thomasrohde/codeblock/pkg/ast"
	"github.com/thomasrohde/codeblock/pkg/diagnostics"
	"github.com/thomasrohde/codeblock/pkg/symbols"
	"github.com/thomasrohde/codeblock/pkg/variant"
)

type validator struct {
	table *symbols.Table
}

// Check validates identifiers and operator types of program bottom-up and
// declares its symbols into table. It stops at the first violation and
// returns it as a semantic *diagnostics.Fault.
func Check(program *ast.Program, table *symbols.Table) error {
	if program == nil {
		return nil
	}
	v := &validator{table: table}
	_, err := v.check(program.Body)
	return err
}

// CheckNode runs the walk over a single node and returns its static type.
func CheckNode(n ast.Node, table *symbols.Table) (variant.Type, error) {
	v := &validator{table: table}
	return v.check(n)
}

func fault(n ast.Node, format string, args ...any) *diagnostics.Fault {
	return diagnostics.NewFault(diagnostics.KindSemantic, ast.Line(n), format, args...)
}

// check returns the static type of n. Absent children check as Undefined.
func (v *validator) check(n ast.Node) (variant.Type, error) {
	if n == nil {
		return variant.Undefined, nil
	}

	switch n := n.(type) {
	case *ast.Value:
		return n.Value.Type(), nil

	case *ast.Variable:
		if _, err := v.lookupVariable(n); err != nil {
			return variant.Undefined, err
		}
		return variant.Undefined, nil

	case *ast.Unary:
		t, err := v.check(n.Operand)
		if err != nil {
			return variant.Undefined, err
		}
		if !variant.UnaryOperationValid(n.Op, t) {
			return variant.Undefined, operationFault(n, &variant.OperationError{Unary: true, Op: string(n.Op), Right: t})
		}
		return variant.UnaryResultType(n.Op, t), nil

	case *ast.Binary:
		lt, err := v.check(n.Left)
		if err != nil {
			return variant.Undefined, err
		}
		rt, err := v.check(n.Right)
		if err != nil {
			return variant.Undefined, err
		}
		if !variant.BinaryOperationValid(n.Op, lt, rt) {
			return variant.Undefined, operationFault(n, &variant.OperationError{Op: string(n.Op), Left: lt, Right: rt})
		}
		return variant.BinaryResultType(n.Op, lt, rt), nil

	case *ast.Assignment:
		return v.checkAssignment(n)

	case *ast.Declaration:
		return variant.Undefined, v.declare(n)

	case *ast.DeclarationBlock:
		for _, decl := range n.Declarations {
			if err := v.declare(decl); err != nil {
				return variant.Undefined, err
			}
		}
		return variant.Undefined, nil

	case *ast.StatementList:
		if _, err := v.check(n.Left); err != nil {
			return variant.Undefined, err
		}
		return v.check(n.Right)

	case *ast.If:
		if err := v.checkCondition(n.Cond); err != nil {
			return variant.Undefined, err
		}
		if _, err := v.checkScoped(n.Then); err != nil {
			return variant.Undefined, err
		}
		if _, err := v.checkScoped(n.Else); err != nil {
			return variant.Undefined, err
		}
		return variant.Undefined, nil

	case *ast.While:
		if err := v.checkCondition(n.Cond); err != nil {
			return variant.Undefined, err
		}
		if _, err := v.checkScoped(n.Body); err != nil {
			return variant.Undefined, err
		}
		return variant.Undefined, nil

	case *ast.For:
		return variant.Undefined, v.checkFor(n)

	case *ast.Switch:
		if _, err := v.check(n.Subject); err != nil {
			return variant.Undefined, err
		}
		for _, c := range n.Cases {
			if _, err := v.check(c); err != nil {
				return variant.Undefined, err
			}
		}
		if _, err := v.checkScoped(n.Default); err != nil {
			return variant.Undefined, err
		}
		return variant.Undefined, nil

	case *ast.Case:
		if _, err := v.check(n.Guard); err != nil {
			return variant.Undefined, err
		}
		if _, err := v.checkScoped(n.Body); err != nil {
			return variant.Undefined, err
		}
		return variant.Undefined, nil

	case *ast.DebugPrint:
		if _, err := v.check(n.Operand); err != nil {
			return variant.Undefined, err
		}
		return variant.Undefined, nil
	}

	panic(fmt.Sprintf("validator: unhandled node %T", n))
}

// checkScoped checks n inside a fresh nested scope.
func (v *validator) checkScoped(n ast.Node) (variant.Type, error) {
	v.table.EnterScope()
	defer v.table.LeaveScope()
	return v.check(n)
}

func (v *validator) checkCondition(cond ast.Node) error {
	t, err := v.check(cond)
	if err != nil {
		return err
	}
	if t != variant.Boolean && t != variant.Undefined {
		return fault(cond, diagnostics.MsgNotBoolean)
	}
	return nil
}

func (v *validator) lookupVariable(n *ast.Variable) (symbols.Symbol, error) {
	sym := v.table.Lookup(n.Name)
	if sym == nil {
		return nil, fault(n, diagnostics.MsgNotDeclared, n.Name)
	}
	if sym.Kind() != symbols.KindVariable {
		return nil, fault(n, diagnostics.MsgWrongKind, n.Name, sym.Kind(), symbols.KindVariable)
	}
	return sym, nil
}

func (v *validator) checkAssignment(n *ast.Assignment) (variant.Type, error) {
	target, ok := n.Target.(*ast.Variable)
	if !ok {
		return variant.Undefined, fault(n, diagnostics.MsgAssignTarget)
	}
	if _, err := v.lookupVariable(target); err != nil {
		return variant.Undefined, err
	}
	return v.check(n.Value)
}

func (v *validator) declare(n *ast.Declaration) error {
	existing := v.table.Insert(symbols.New(n.Symbol, n.Name))
	if existing != nil {
		return fault(n, diagnostics.MsgAlreadyDeclared, n.Name, existing.Kind())
	}
	return nil
}

func (v *validator) checkFor(n *ast.For) error {
	init, ok := n.Init.(*ast.Assignment)
	if !ok {
		return fault(n, diagnostics.MsgLoopInitializer)
	}
	if _, ok := init.Target.(*ast.Variable); !ok {
		return fault(init, diagnostics.MsgLoopInitializer)
	}
	start, err := v.check(init)
	if err != nil {
		return err
	}
	if !isIntegerType(start) {
		return fault(init, diagnostics.MsgLoopBound)
	}
	final, err := v.check(n.Final)
	if err != nil {
		return err
	}
	if !isIntegerType(final) {
		return fault(n.Final, diagnostics.MsgLoopBound)
	}
	_, err = v.checkScoped(n.Body)
	return err
}

// isIntegerType accepts the types that may still hold an integer at runtime.
func isIntegerType(t variant.Type) bool {
	return t == variant.Undefined || t.Matches(variant.Integer)
}

func operationFault(n ast.Node, err error) *diagnostics.Fault {
	var opErr *variant.OperationError
	if errors.As(err, &opErr) {
		return fault(n, "%s", opErr.Error())
	}
	return fault(n, "%s", err.Error())
}
