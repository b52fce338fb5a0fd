package search

import (
	"math"
	"sort"
	"time"

	"rddlplanner/internal/compile"
	"rddlplanner/internal/expr"
	"rddlplanner/internal/mdp"
)

// DefaultIDSStepTimeout is the default per-step deepening timeout.
const DefaultIDSStepTimeout = 5 * time.Millisecond

// IDS wraps a DFS engine as a decision-node Initializer:
// it calls DFS with growing remaining-steps budgets until a per-step
// timeout expires, a reasonable action is found, or maxSearchDepth (one
// it learns from a training set, see Learn) is reached, averaging the
// per-action Q estimates of every depth it completed.
type IDS struct {
	Facade *mdp.Facade
	Task   *compile.CompiledTask
	dfs    *DFS

	stepTimeout                   time.Duration
	terminateWithReasonableAction bool
	maxSearchDepth                int

	// cache is keyed by state alone, insensitive to remaining steps.
	cache map[string][]float64
}

// NewIDS builds an IDS initializer over dfs, defaulting maxSearchDepth
// to the task horizon until Learn narrows it.
func NewIDS(facade *mdp.Facade, task *compile.CompiledTask, dfs *DFS, stepTimeout time.Duration, terminateWithReasonableAction bool) *IDS {
	return &IDS{
		Facade:                         facade,
		Task:                           task,
		dfs:                            dfs,
		stepTimeout:                    stepTimeout,
		terminateWithReasonableAction:  terminateWithReasonableAction,
		maxSearchDepth:                 task.Horizon,
		cache:                          map[string][]float64{},
	}
}

// InitialQs implements Initializer.
func (ids *IDS) InitialQs(s expr.State, remainingSteps int) []float64 {
	key := dfsStateKey(s)
	if v, ok := ids.cache[key]; ok {
		return v
	}

	limit := ids.maxSearchDepth
	if limit <= 0 || limit > remainingSteps {
		limit = remainingSteps
	}
	applicable := ids.Facade.ApplicableActions(s)
	noopIdx := ids.Facade.Noop().Index

	sums := make([]float64, len(ids.Task.LegalActions))
	counts := make([]int, len(sums))
	deadline := time.Now().Add(ids.stepTimeout)

	for depth := 1; depth <= limit; depth++ {
		if time.Now().After(deadline) {
			break
		}
		stepQs := ids.dfsStep(s, depth, applicable)
		for i, q := range stepQs {
			if math.IsInf(q, -1) {
				continue
			}
			sums[i] += q
			counts[i]++
		}
		if ids.terminateWithReasonableAction && reasonableActionFound(stepQs, noopIdx) {
			break
		}
	}

	qs := make([]float64, len(sums))
	for i := range qs {
		switch {
		case applicable[i] != i:
			qs[i] = math.Inf(-1)
		case counts[i] == 0:
			qs[i] = math.Inf(-1)
		default:
			qs[i] = sums[i] / float64(counts[i])
		}
	}
	ids.cache[key] = qs
	return qs
}

// reasonableActionFound reports whether some non-noop action strictly
// beats noop's Q at this depth (terminateWithReasonableAction).
func reasonableActionFound(qs []float64, noopIdx int) bool {
	for i, q := range qs {
		if i == noopIdx || math.IsInf(q, -1) {
			continue
		}
		if q > qs[noopIdx] {
			return true
		}
	}
	return false
}

// dfsStep computes one per-action Q estimate at a fixed lookahead depth:
// immediate reward plus dfs.Value(successor, depth-1), 0 at depth 1.
func (ids *IDS) dfsStep(s expr.State, depth int, applicable []int) []float64 {
	qs := make([]float64, len(ids.Task.LegalActions))
	for i := range qs {
		qs[i] = math.Inf(-1)
	}
	for idx, a := range ids.Task.LegalActions {
		if applicable[idx] != idx {
			continue
		}
		sp := ids.dfs.deterministicSuccessor(s, a)
		r := ids.Facade.CalcReward(s, a)
		if depth > 1 {
			r += ids.dfs.Value(sp, depth-1)
		}
		qs[idx] = r
	}
	return qs
}

// Learn sets maxSearchDepth to the largest depth whose median per-state
// wall-clock across trainingStates still fits under terminationTimeout
// (the depth-learning pass).
func (ids *IDS) Learn(trainingStates []expr.State, terminationTimeout time.Duration) {
	depthTimes := map[int][]time.Duration{}
	for _, s := range trainingStates {
		applicable := ids.Facade.ApplicableActions(s)
		for depth := 1; depth <= ids.Task.Horizon; depth++ {
			start := time.Now()
			ids.dfsStep(s, depth, applicable)
			depthTimes[depth] = append(depthTimes[depth], time.Since(start))
		}
	}

	best := 0
	for depth := 1; depth <= ids.Task.Horizon; depth++ {
		times := depthTimes[depth]
		if len(times) == 0 {
			break
		}
		if median(times) >= terminationTimeout {
			break
		}
		best = depth
	}
	if best > 0 {
		ids.maxSearchDepth = best
	}
}

func median(ds []time.Duration) time.Duration {
	sorted := append([]time.Duration(nil), ds...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return sorted[len(sorted)/2]
}

func dfsStateKey(s expr.State) string {
	b := make([]byte, 0, len(s)*8)
	for _, v := range s {
		b = appendFloatBits(b, v)
	}
	return string(b)
}
