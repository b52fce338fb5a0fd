package eval

import (
	"rddlplanner/internal/compile"
	"rddlplanner/internal/expr"
	"rddlplanner/internal/fluent"
)

// Evaluator wraps a compiled task with the per-expression caches
// internal/compile's hash-key assignment makes possible, and owns the
// per-step interm-fluent scratch mechanism:
// intermediate fluents are never part of persistent State, only of the
// Extend-ed vector built fresh for each transition.
type Evaluator struct {
	Task *compile.CompiledTask

	numReal int

	pd     []*cache[expr.PD]
	det    []*cache[float64]
	kleene []*cache[expr.Domain]

	rewardPD     *cache[expr.PD]
	rewardKleene *cache[expr.Domain]

	precond []*cache[float64]
}

// New builds an Evaluator over a compiled task, allocating one cache triple
// per CPF (probabilistic-PD, deterministic, Kleene), one for the reward,
// and one deterministic-evaluate cache per dynamic precondition.
func New(task *compile.CompiledTask) *Evaluator {
	e := &Evaluator{
		Task:    task,
		numReal: len(task.CPFs),
		pd:      make([]*cache[expr.PD], len(task.CPFs)),
		det:     make([]*cache[float64], len(task.CPFs)),
		kleene:  make([]*cache[expr.Domain], len(task.CPFs)),
		precond: make([]*cache[float64], len(task.DynamicPreconditions)),
	}
	for i, c := range task.CPFs {
		e.pd[i] = newCache[expr.PD](c.Hash.Policy, c.Hash.FinalStateBase)
		e.det[i] = newCache[float64](c.DetHash.Policy, c.DetHash.FinalStateBase)
		e.kleene[i] = newCache[expr.Domain](c.Hash.KleenePolicy, c.Hash.FinalKleeneBase)
	}
	e.rewardPD = newCache[expr.PD](task.RewardHash.Policy, task.RewardHash.FinalStateBase)
	e.rewardKleene = newCache[expr.Domain](task.RewardHash.KleenePolicy, task.RewardHash.FinalKleeneBase)
	for i := range task.DynamicPreconditions {
		e.precond[i] = newCache[float64](task.DynamicHash[i].Policy, task.DynamicHash[i].FinalStateBase)
	}
	return e
}

// Extend allocates the combined real-state-plus-interm-fluent vector for
// one step and fills the interm slots by running IntermCPFs in their
// already-validated stratum order: every interm fluent reads only
// strictly-lower-stratum interm fluents, which a single forward pass over
// the (stable-sorted) slice is guaranteed to have already filled.
func (e *Evaluator) Extend(s expr.State, a expr.Action) expr.State {
	ext := make(expr.State, len(e.Task.Domains))
	copy(ext, s)
	for i, c := range e.Task.IntermCPFs {
		ext[e.numReal+i] = expr.Evaluate(c.Formula, ext, a)
	}
	return ext
}

// ExtendKleene is Extend's three-valued analogue: ks holds one Domain per
// real state variable, and the interm slots are filled by the same
// stratum-ordered forward pass, evaluated with EvaluateToKleene instead
// of Evaluate. Used by reward-lock detection, which
// reasons about Kleene successors rather than concrete ones.
func (e *Evaluator) ExtendKleene(ks expr.KleeneState, a expr.Action) expr.KleeneState {
	ext := make(expr.KleeneState, len(e.Task.Domains))
	copy(ext, ks)
	for i, c := range e.Task.IntermCPFs {
		ext[e.numReal+i] = expr.EvaluateToKleene(c.Formula, ext, a)
	}
	return ext
}

// EvaluatePD returns the probability distribution of CPF i's next value
// (its probabilistic formula, not the deterministic mirror), caching by
// the combined action+state hash key of its Hash assignment.
func (e *Evaluator) EvaluatePD(i int, ext expr.State, a expr.Action, actionIndex int) expr.PD {
	cpf := e.Task.CPFs[i]
	key, ok := stateHashKey(cpf.Hash, e.Task.Domains, ext, actionIndex)
	if v, present := e.pd[i].get(key, ok); present {
		return v
	}
	v := expr.EvaluateToPD(cpf.Formula, ext, a)
	e.pd[i].set(key, ok, v)
	return v
}

// EvaluateDeterministic returns CPF i's most-likely-outcome value,
// caching by its DetHash assignment. Used by the deterministic-mirror
// search passes (IDS/DFS).
func (e *Evaluator) EvaluateDeterministic(i int, ext expr.State, a expr.Action, actionIndex int) float64 {
	cpf := e.Task.CPFs[i]
	key, ok := stateHashKey(cpf.DetHash, e.Task.Domains, ext, actionIndex)
	if v, present := e.det[i].get(key, ok); present {
		return v
	}
	v := expr.Evaluate(cpf.Deterministic, ext, a)
	e.det[i].set(key, ok, v)
	return v
}

// EvaluateKleene returns CPF i's possible-value set under a Kleene
// (three-valued) abstraction of the current state, caching by Hash's
// Kleene base. Used by reward-lock detection.
func (e *Evaluator) EvaluateKleene(i int, ks expr.KleeneState, a expr.Action, actionIndex int) expr.Domain {
	cpf := e.Task.CPFs[i]
	key, ok := kleeneHashKey(cpf.Hash, e.Task.Domains, ks, actionIndex)
	if v, present := e.kleene[i].get(key, ok); present {
		return v
	}
	v := expr.EvaluateToKleene(cpf.Formula, ks, a)
	e.kleene[i].set(key, ok, v)
	return v
}

// EvaluateReward returns the reward's distribution; CalcReward calls
// PD.Value on the result, since the reward is always degenerate in a
// well-formed task.
func (e *Evaluator) EvaluateReward(ext expr.State, a expr.Action, actionIndex int) expr.PD {
	key, ok := stateHashKey(e.Task.RewardHash, e.Task.Domains, ext, actionIndex)
	if v, present := e.rewardPD.get(key, ok); present {
		return v
	}
	v := expr.EvaluateToPD(e.Task.Reward, ext, a)
	e.rewardPD.set(key, ok, v)
	return v
}

// EvaluateRewardKleene is EvaluateReward's Kleene analogue.
func (e *Evaluator) EvaluateRewardKleene(ext expr.KleeneState, a expr.Action, actionIndex int) expr.Domain {
	key, ok := kleeneHashKey(e.Task.RewardHash, e.Task.Domains, ext, actionIndex)
	if v, present := e.rewardKleene.get(key, ok); present {
		return v
	}
	v := expr.EvaluateToKleene(e.Task.Reward, ext, a)
	e.rewardKleene.set(key, ok, v)
	return v
}

// EvaluatePrecondition evaluates dynamic precondition i (a state-action
// constraint that reads at least one state fluent).
func (e *Evaluator) EvaluatePrecondition(i int, ext expr.State, a expr.Action, actionIndex int) bool {
	p := e.Task.DynamicPreconditions[i]
	key, ok := stateHashKey(e.Task.DynamicHash[i], e.Task.Domains, ext, actionIndex)
	if v, present := e.precond[i].get(key, ok); present {
		return v != 0
	}
	v := expr.Evaluate(p.Formula, ext, a)
	e.precond[i].set(key, ok, v)
	return v != 0
}

// ActionVector converts a legal action's bit-vector to expr.Action.
func ActionVector(a fluent.ActionState) expr.Action {
	return expr.Action(a.Fluents)
}

// DisableCaching downgrades every MAP cache backing this evaluator to
// DISABLED_MAP in place, mirroring CompiledTask.DisableCaching:
// existing entries remain
// readable, new ones are no longer recorded.
func (e *Evaluator) DisableCaching() {
	for i := range e.pd {
		e.pd[i].policy = e.pd[i].policy.Disable()
		e.det[i].policy = e.det[i].policy.Disable()
		e.kleene[i].policy = e.kleene[i].policy.Disable()
	}
	e.rewardPD.policy = e.rewardPD.policy.Disable()
	e.rewardKleene.policy = e.rewardKleene.policy.Disable()
	for i := range e.precond {
		e.precond[i].policy = e.precond[i].policy.Disable()
	}
}
