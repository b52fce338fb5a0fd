package search

import (
	"time"

	"rddlplanner/internal/compile"
	"rddlplanner/internal/expr"
	"rddlplanner/internal/mdp"
	"rddlplanner/internal/randsrc"
)

// DefaultTrainingSetTargetSize is the default number of reachable,
// diverse states the generator collects.
const DefaultTrainingSetTargetSize = 200

// DefaultTrainingSetBudget is the default wall-clock cap on generation.
const DefaultTrainingSetBudget = 2 * time.Second

// DefaultTrainingSetInclusionProb is the default probability a
// non-reward-lock state encountered along the random walk is kept.
const DefaultTrainingSetInclusionProb = 0.1

// GenerateTrainingSet performs a random walk from the initial state: at
// each step it samples a uniformly random applicable
// action, restarting whenever the walk reaches the horizon. Every
// reward-lock state encountered is kept; every other state is kept with
// probability inclusionProb. The walk stops once targetSize distinct
// states are collected or budget elapses.
func GenerateTrainingSet(facade *mdp.Facade, task *compile.CompiledTask, rng *randsrc.Source, targetSize int, inclusionProb float64, budget time.Duration) []expr.State {
	deadline := time.Now().Add(budget)
	seen := map[string]expr.State{}

	s := cloneState(task.InitialState)
	remaining := task.Horizon

	for len(seen) < targetSize && time.Now().Before(deadline) {
		if remaining <= 0 {
			s = cloneState(task.InitialState)
			remaining = task.Horizon
			continue
		}

		if facade.IsRewardLock(s) || rng.Float64() < inclusionProb {
			seen[dfsStateKey(s)] = cloneState(s)
		}

		applicable := facade.ApplicableActions(s)
		var candidates []int
		for i, v := range applicable {
			if v == i {
				candidates = append(candidates, i)
			}
		}
		if len(candidates) == 0 {
			remaining = 0
			continue
		}
		choice := candidates[rng.Intn(len(candidates))]
		s = facade.SampleSuccessor(s, task.LegalActions[choice])
		remaining--
	}

	out := make([]expr.State, 0, len(seen))
	for _, v := range seen {
		out = append(out, v)
	}
	return out
}

func cloneState(s expr.State) expr.State {
	return append(expr.State(nil), s...)
}
