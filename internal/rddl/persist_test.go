package rddl

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"rddlplanner/internal/expr"
)

func TestPersistedTaskRoundTrip(t *testing.T) {
	compiled := compileChain(t)
	path := filepath.Join(t.TempDir(), "preprocessed.yaml")

	require.NoError(t, SaveCompiledTask(compiled, path))
	loaded, err := LoadCompiledTask(path)
	require.NoError(t, err)

	require.Equal(t, compiled.Horizon, loaded.Horizon)
	require.Equal(t, compiled.ConcurrentActions, loaded.ConcurrentActions)
	require.Equal(t, compiled.Discount, loaded.Discount)
	require.Equal(t, compiled.InitialState, loaded.InitialState)
	require.Equal(t, compiled.FirstProbabilisticVarIndex, loaded.FirstProbabilisticVarIndex)
	require.Equal(t, compiled.Domains, loaded.Domains)
	require.Equal(t, compiled.CachingThreshold, loaded.CachingThreshold)

	require.Len(t, loaded.LegalActions, len(compiled.LegalActions))
	for i, a := range compiled.LegalActions {
		require.Equal(t, a.Fluents, loaded.LegalActions[i].Fluents)
		require.Equal(t, a.Index, loaded.LegalActions[i].Index)
		require.Equal(t, a.Scheduled(), loaded.LegalActions[i].Scheduled())
	}

	require.Len(t, loaded.CPFs, len(compiled.CPFs))
	for i, c := range compiled.CPFs {
		require.Equal(t, c.Head.String(), loaded.CPFs[i].Head.String())
		require.Equal(t, c.Formula, loaded.CPFs[i].Formula)
		require.Equal(t, c.Deterministic, loaded.CPFs[i].Deterministic)
		require.Equal(t, c.Domain, loaded.CPFs[i].Domain)
		require.Equal(t, c.Hash.FinalStateBase, loaded.CPFs[i].Hash.FinalStateBase)
		require.Equal(t, c.Hash.Policy, loaded.CPFs[i].Hash.Policy)
		require.Equal(t, c.Hash.KleenePolicy, loaded.CPFs[i].Hash.KleenePolicy)
	}

	require.Equal(t, compiled.Reward, loaded.Reward)

	// Both copies must evaluate identically over every legal action at a
	// mid-episode state: the persisted form replaces the grounder, not
	// the semantics.
	s := expr.State{1, 0, 1}
	for _, a := range loaded.LegalActions {
		for i := range loaded.CPFs {
			want := expr.EvaluateToPD(compiled.CPFs[i].Formula, s, a.Fluents)
			got := expr.EvaluateToPD(loaded.CPFs[i].Formula, s, a.Fluents)
			require.Equal(t, want, got)
		}
		require.Equal(t,
			expr.Evaluate(compiled.Reward, s, a.Fluents),
			expr.Evaluate(loaded.Reward, s, a.Fluents))
	}
}
