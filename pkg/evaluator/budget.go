package evaluator

import (
	"github.com/thomasrohde/codeblock/pkg/ast"
	"github.com/thomasrohde/codeblock/pkg/diagnostics"
)

// Budget holds the resource limits for one evaluation. Zero fields are
// unlimited.
type Budget struct {
	TimeMs        int64
	MaxIterations int64
}

// BudgetTracker tracks resource consumption during evaluation.
type BudgetTracker struct {
	Iterations int64
	ElapsedMs  int64
}

// chargeIteration accounts for one loop iteration about to run at loop.
func (ev *evaluator) chargeIteration(loop ast.Node) error {
	if err := ev.checkTimeBudget(loop); err != nil {
		return err
	}
	if err := ev.ctx.Err(); err != nil {
		return ev.fault(loop, diagnostics.MsgExecutionStopped, err)
	}
	if limit := ev.opts.Budget.MaxIterations; limit > 0 && ev.tracker.Iterations >= limit {
		return ev.fault(loop, diagnostics.MsgIterationBudget, limit)
	}
	ev.tracker.Iterations++
	return nil
}

func (ev *evaluator) checkTimeBudget(at ast.Node) error {
	limit := ev.opts.Budget.TimeMs
	if limit <= 0 {
		return nil
	}
	if ev.clock.elapsedMs() >= limit {
		return ev.fault(at, "time budget exceeded (%dms)", limit)
	}
	return nil
}
