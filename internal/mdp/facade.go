// Package mdp implements the MDP façade: sampleSuccessor,
// calcReward, applicableActions (with reasonable-action pruning), and
// isRewardLock (three-valued reward-lock detection), all built on top of
// internal/eval's cached evaluation of a internal/compile.CompiledTask.
package mdp

import (
	"fmt"
	"sort"
	"strings"

	"rddlplanner/internal/compile"
	"rddlplanner/internal/eval"
	"rddlplanner/internal/expr"
	"rddlplanner/internal/fluent"
	"rddlplanner/internal/randsrc"
)

// maxRewardLockRounds bounds the Kleene merge-and-recheck loop.
// Without a symbolic fixed-point test behind the StateSet, a state
// that would eventually prove a
// lock after more rounds is instead reported as not-locked — an allowed
// false negative under the R_* under-approximation contract.
const maxRewardLockRounds = 8

// Facade is the MDP façade: one per compiled task, owning the evaluator's
// caches plus the reward-lock sets and the (optional) applicable-action
// cache.
type Facade struct {
	Task *compile.CompiledTask
	Eval *eval.Evaluator
	Rand *randsrc.Source

	noopIndex int
	rMin, rMax float64

	rMinSet, rMaxSet StateSet

	reasonablePruning bool

	// rewardLockEnabled guards the noop-applicability assumption baked
	// into reward-lock detection. Rather than assume noop is always
	// legal, New precomputes whether any
	// legal action is actually a noop and, if not (a static precondition
	// excludes it everywhere), disables reward-lock detection for the
	// whole task's lifetime and logs once.
	rewardLockEnabled bool

	applicableCache        map[string][]int
	applicableCacheEnabled bool
}

// New builds a Facade over a compiled task and evaluator, computing the
// task's reward extrema (from the reward CPF's own derived domain) and
// whether reasonable-action pruning and reward-lock detection are sound
// for it.
func New(task *compile.CompiledTask, evaluator *eval.Evaluator, rng *randsrc.Source) *Facade {
	noopIndex := 0
	rewardLockEnabled := false
	for i, a := range task.LegalActions {
		if a.IsNoop() {
			noopIndex = i
			rewardLockEnabled = true
			break
		}
	}
	if !rewardLockEnabled {
		fmt.Println("mdp: noop is excluded by a static precondition; reward-lock detection disabled for this task")
	}

	rewardDomain := expr.CalculateDomain(task.Reward, task.Domains)
	rMin, rMax := 0.0, 0.0
	if len(rewardDomain) > 0 {
		rMin, rMax = rewardDomain[0], rewardDomain[len(rewardDomain)-1]
	}

	pos, _ := expr.ClassifyActionFluents(task.Reward)

	return &Facade{
		Task:                   task,
		Eval:                   evaluator,
		Rand:                   rng,
		noopIndex:              noopIndex,
		rMin:                   rMin,
		rMax:                   rMax,
		rMinSet:                NewHashStateSet(),
		rMaxSet:                NewHashStateSet(),
		reasonablePruning:      len(pos) == 0,
		rewardLockEnabled:      rewardLockEnabled,
		applicableCache:        map[string][]int{},
		applicableCacheEnabled: true,
	}
}

// Noop returns the empty action, or legal action 0 when a static
// precondition excludes the empty action.
func (f *Facade) Noop() fluent.ActionState { return f.Task.LegalActions[f.noopIndex] }

// SampleSuccessor evaluates every CPF's probability distribution under
// (s, a) and samples each variable independently. A
// deterministic CPF's PD is degenerate, so sampling it always returns its
// one value — the same code path serves both cases without a special
// case for "deterministic variables are copied directly".
func (f *Facade) SampleSuccessor(s expr.State, a fluent.ActionState) expr.State {
	av := eval.ActionVector(a)
	ext := f.Eval.Extend(s, av)
	next := make(expr.State, len(s))
	for i := range next {
		pd := f.Eval.EvaluatePD(i, ext, av, a.Index)
		next[i] = samplePD(pd, f.Rand)
	}
	return next
}

func samplePD(pd expr.PD, rng *randsrc.Source) float64 {
	if pd.IsDegenerate() {
		return pd.Value()
	}
	r := rng.Float64()
	cum := 0.0
	for i, p := range pd.Probs {
		cum += p
		if r < cum {
			return pd.Values[i]
		}
	}
	return pd.Values[len(pd.Values)-1]
}

// CalcReward evaluates the reward CPF, which must be deterministic.
func (f *Facade) CalcReward(s expr.State, a fluent.ActionState) float64 {
	av := eval.ActionVector(a)
	ext := f.Eval.Extend(s, av)
	return f.Eval.EvaluateReward(ext, av, a.Index).Value()
}

// ApplicableActions evaluates every dynamic SAC against s and returns an
// index vector: v[i]=i if legal action i is applicable, v[i]=-1 if not,
// and v[i]=j<i if i is unreasonable (identical successor distribution to
// the earlier action j, the reasonable-action pruning).
func (f *Facade) ApplicableActions(s expr.State) []int {
	if f.applicableCacheEnabled {
		if v, ok := f.applicableCache[stateKey(s)]; ok {
			return v
		}
	}

	v := make([]int, len(f.Task.LegalActions))
	for idx, a := range f.Task.LegalActions {
		av := eval.ActionVector(a)
		ext := f.Eval.Extend(s, av)
		applicable := true
		for pi := range f.Task.DynamicPreconditions {
			if !f.Eval.EvaluatePrecondition(pi, ext, av, a.Index) {
				applicable = false
				break
			}
		}
		if applicable {
			v[idx] = idx
		} else {
			v[idx] = -1
		}
	}

	if f.reasonablePruning {
		f.pruneUnreasonable(s, v)
	}

	if f.applicableCacheEnabled {
		f.applicableCache[stateKey(s)] = v
	}
	return v
}

// pruneUnreasonable maps every applicable action whose successor
// distribution exactly matches an earlier applicable action's to that
// earlier action's index, in place.
func (f *Facade) pruneUnreasonable(s expr.State, v []int) {
	bySignature := map[string]int{}
	for idx, a := range f.Task.LegalActions {
		if v[idx] != idx {
			continue
		}
		sig := f.successorSignature(s, a)
		if rep, ok := bySignature[sig]; ok {
			v[idx] = rep
			continue
		}
		bySignature[sig] = idx
	}
}

// successorSignature builds a string uniquely identifying the joint
// successor distribution under action a: since CPFs are evaluated
// independently (the task is factored), matching every variable's PD
// is equivalent to matching the full joint distribution.
func (f *Facade) successorSignature(s expr.State, a fluent.ActionState) string {
	av := eval.ActionVector(a)
	ext := f.Eval.Extend(s, av)
	var b strings.Builder
	for i := range f.Task.CPFs {
		pd := f.Eval.EvaluatePD(i, ext, av, a.Index)
		fmt.Fprintf(&b, "%v|%v;", pd.Values, pd.Probs)
	}
	return b.String()
}

// IsRewardLock reports whether s is a reward lock: every reachable
// trajectory from it yields the maximum reward (a goal) or the minimum
// reward (a dead end) under every action.
func (f *Facade) IsRewardLock(s expr.State) bool {
	if !f.rewardLockEnabled {
		return false
	}
	if f.rMaxSet.Contains(s) || f.rMinSet.Contains(s) {
		return true
	}
	if f.checkRewardLock(s, f.rMax, f.rMaxSet) {
		return true
	}
	return f.checkRewardLock(s, f.rMin, f.rMinSet)
}

// checkRewardLock runs the Kleene widening loop against every legal
// action, unfiltered by per-state dynamic applicability; noop's
// special-cased applicability is resolved once, at construction, by
// f.rewardLockEnabled.
func (f *Facade) checkRewardLock(s expr.State, extreme float64, set StateSet) bool {
	ks := degenerateKleene(s)
	for round := 0; round < maxRewardLockRounds; round++ {
		combined := make(expr.KleeneState, len(ks))
		copy(combined, ks)
		allExtreme := true

		for _, a := range f.Task.LegalActions {
			av := eval.ActionVector(a)
			ext := f.Eval.ExtendKleene(ks, av)
			rd := f.Eval.EvaluateRewardKleene(ext, av, a.Index)
			if len(rd) != 1 || rd[0] != extreme {
				allExtreme = false
				break
			}
			for i := range f.Task.CPFs {
				succ := f.Eval.EvaluateKleene(i, ext, av, a.Index)
				combined[i] = combined[i].Union(succ)
			}
		}
		if !allExtreme {
			return false
		}
		if kleeneStateEqual(combined, ks) {
			set.Insert(s)
			return true
		}
		ks = combined
	}
	return false
}

func degenerateKleene(s expr.State) expr.KleeneState {
	ks := make(expr.KleeneState, len(s))
	for i, v := range s {
		ks[i] = expr.NewDomain(v)
	}
	return ks
}

func kleeneStateEqual(a, b expr.KleeneState) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return false
		}
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				return false
			}
		}
	}
	return true
}

// DisableCaching downgrades every MAP cache (CPF, reward, precondition,
// in both sampled and Kleene modes) to DISABLED_MAP and turns off the
// applicable-action cache entirely (the RAM-pressure reaction).
func (f *Facade) DisableCaching() {
	f.Eval.DisableCaching()
	f.Task.DisableCaching()
	f.applicableCacheEnabled = false
	f.applicableCache = nil
}

// sortedLegalActionIndices returns, in ascending order, the indices i of
// an ApplicableActions vector with v[i] == i.
func sortedLegalActionIndices(v []int) []int {
	out := make([]int, 0, len(v))
	for i, val := range v {
		if val == i {
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out
}
