package search

import (
	"math"
	"strconv"

	"rddlplanner/internal/compile"
	"rddlplanner/internal/eval"
	"rddlplanner/internal/expr"
	"rddlplanner/internal/fluent"
	"rddlplanner/internal/mdp"
)

// DFS is the tree search over the deterministic mirror
// task: depth is driven by a remaining-steps budget rather than the
// real horizon, letting IDS call it with an arbitrarily small depth
// during iterative deepening. Values are cached by full state plus
// remaining steps, since two states reachable in a different number of
// steps are not interchangeable once reward is involved.
type DFS struct {
	Facade *mdp.Facade
	Task   *compile.CompiledTask
	Eval   *eval.Evaluator

	noopOptimalFinalAction bool

	cache map[string]float64
}

// NewDFS builds a DFS instance with its own empty value cache.
func NewDFS(facade *mdp.Facade, task *compile.CompiledTask, evaluator *eval.Evaluator, noopOptimalFinalAction bool) *DFS {
	return &DFS{
		Facade:                 facade,
		Task:                   task,
		Eval:                   evaluator,
		noopOptimalFinalAction: noopOptimalFinalAction,
		cache:                  map[string]float64{},
	}
}

// Value returns the best achievable accumulated reward from s over the
// next remainingSteps deterministic-mirror steps.
func (d *DFS) Value(s expr.State, remainingSteps int) float64 {
	if remainingSteps <= 0 {
		return 0
	}
	key := dfsKey(s, remainingSteps)
	if v, ok := d.cache[key]; ok {
		return v
	}

	if d.Facade.IsRewardLock(s) {
		v := d.Facade.CalcReward(s, d.Facade.Noop()) * float64(remainingSteps)
		d.cache[key] = v
		return v
	}

	applicable := d.Facade.ApplicableActions(s)
	best := math.Inf(-1)
	for idx, a := range d.Task.LegalActions {
		if applicable[idx] != idx {
			continue
		}
		sp := d.deterministicSuccessor(s, a)
		r := d.Facade.CalcReward(s, a)

		switch {
		case remainingSteps == 1:
			// Horizon reached after this action; no further reward.
		case remainingSteps-1 == 1 && d.noopOptimalFinalAction:
			r += d.Facade.CalcReward(sp, d.Facade.Noop())
		default:
			r += d.Value(sp, remainingSteps-1)
		}
		if r > best {
			best = r
		}
	}
	if math.IsInf(best, -1) {
		// No applicable action at all (noop is always structurally
		// legal unless a static precondition excludes it outright).
		best = 0
	}
	d.cache[key] = best
	return best
}

// deterministicSuccessor evaluates every CPF's most-likely-outcome
// formula instead of its probabilistic one.
func (d *DFS) deterministicSuccessor(s expr.State, a fluent.ActionState) expr.State {
	av := eval.ActionVector(a)
	ext := d.Eval.Extend(s, av)
	next := make(expr.State, len(s))
	for i := range next {
		next[i] = d.Eval.EvaluateDeterministic(i, ext, av, a.Index)
	}
	return next
}

func dfsKey(s expr.State, remainingSteps int) string {
	b := make([]byte, 0, len(s)*9+4)
	for _, v := range s {
		b = appendFloatBits(b, v)
	}
	b = append(b, '|')
	b = strconv.AppendInt(b, int64(remainingSteps), 10)
	return string(b)
}
