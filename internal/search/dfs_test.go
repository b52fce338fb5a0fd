package search

import (
	"testing"

	"github.com/stretchr/testify/require"

	"rddlplanner/internal/expr"
)

func TestDFSValueCountsReachableLitSteps(t *testing.T) {
	f := buildToggleFixture(t)
	dfs := NewDFS(f.Facade, f.Task, f.Eval, true)

	// From lit=off with 2 steps left, the best deterministic play is
	// flip then hold: reward 0 this step, reward 1 next step.
	v := dfs.Value(expr.State{0.0}, 2)
	require.Equal(t, 1.0, v)
}

func TestDFSValueIsCached(t *testing.T) {
	f := buildToggleFixture(t)
	dfs := NewDFS(f.Facade, f.Task, f.Eval, true)

	first := dfs.Value(expr.State{0.0}, 3)
	key := dfsKey(expr.State{0.0}, 3)
	cached, ok := dfs.cache[key]
	require.True(t, ok)
	require.Equal(t, first, cached)
}

func TestDFSValueDetectsRewardLock(t *testing.T) {
	f := buildAbsorbingFixture(t, 1.0)
	dfs := NewDFS(f.Facade, f.Task, f.Eval, true)

	v := dfs.Value(expr.State{1.0}, 4)
	require.Equal(t, 4.0, v, "a reward lock at the max extreme yields max reward every remaining step")
}

func TestDFSValueZeroAtHorizon(t *testing.T) {
	f := buildToggleFixture(t)
	dfs := NewDFS(f.Facade, f.Task, f.Eval, true)
	require.Equal(t, 0.0, dfs.Value(expr.State{1.0}, 0))
}
