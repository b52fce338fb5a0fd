package search

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rddlplanner/internal/expr"
)

func TestIDSInitialQsPrefersFlippingOffSwitch(t *testing.T) {
	f := buildToggleFixture(t)
	dfs := NewDFS(f.Facade, f.Task, f.Eval, true)
	ids := NewIDS(f.Facade, f.Task, dfs, DefaultIDSStepTimeout, false)

	qs := ids.InitialQs(expr.State{0.0}, 3)
	require.Len(t, qs, len(f.Task.LegalActions))

	var flipIdx, noopIdx int = -1, -1
	for i, a := range f.Task.LegalActions {
		if a.IsNoop() {
			noopIdx = i
		} else {
			flipIdx = i
		}
	}
	require.NotEqual(t, -1, flipIdx)
	require.NotEqual(t, -1, noopIdx)
	require.Greater(t, qs[flipIdx], qs[noopIdx], "flipping the switch on should look strictly better than noop")
}

func TestIDSInitialQsIsCachedByStateAlone(t *testing.T) {
	f := buildToggleFixture(t)
	dfs := NewDFS(f.Facade, f.Task, f.Eval, true)
	ids := NewIDS(f.Facade, f.Task, dfs, DefaultIDSStepTimeout, false)

	a := ids.InitialQs(expr.State{0.0}, 3)
	b := ids.InitialQs(expr.State{0.0}, 5)
	require.Equal(t, a, b, "the cache is keyed on state alone, remaining-steps-insensitive")
}

func TestIDSInitialQsPrunesInapplicableActions(t *testing.T) {
	f := buildToggleFixture(t)
	dfs := NewDFS(f.Facade, f.Task, f.Eval, true)
	ids := NewIDS(f.Facade, f.Task, dfs, DefaultIDSStepTimeout, false)

	qs := ids.InitialQs(expr.State{1.0}, 3)
	for i, a := range f.Task.LegalActions {
		if !a.IsNoop() {
			require.True(t, math.IsInf(qs[i], -1), "flip is dynamically inapplicable once lit, must be pruned")
		}
	}
}

func TestIDSLearnNeverExceedsHorizon(t *testing.T) {
	f := buildToggleFixture(t)
	dfs := NewDFS(f.Facade, f.Task, f.Eval, true)
	ids := NewIDS(f.Facade, f.Task, dfs, DefaultIDSStepTimeout, false)

	ids.Learn([]expr.State{{0.0}}, 10*time.Second)
	require.LessOrEqual(t, ids.maxSearchDepth, f.Task.Horizon)
	require.GreaterOrEqual(t, ids.maxSearchDepth, 1)
}
