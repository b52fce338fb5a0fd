package search

import (
	"testing"

	"github.com/stretchr/testify/require"

	"rddlplanner/internal/expr"
)

func TestSuccessorChildReusesSameKeyForIdenticalSignature(t *testing.T) {
	f := buildToggleFixture(t)
	pool := NewNodePool(100, 80)
	roll := &rolloutEngine{
		Facade:                f.Facade,
		Task:                  f.Task,
		Rand:                  f.Rand,
		Initializer:           NewRandomInitializer(f.Facade, f.Task),
		numberOfInitialVisits: 5,
		ucbScale:              1.0,
		pool:                  pool,
	}

	chanceIdx, ok := pool.AllocChance()
	require.True(t, ok)
	node := pool.Chance(chanceIdx)

	sp := expr.State{1.0}
	first, ok := roll.successorChild(node, sp)
	require.True(t, ok)
	second, ok := roll.successorChild(node, sp)
	require.True(t, ok)
	require.Equal(t, first, second, "the same probabilistic signature must resolve to the same decision-node child")

	// lit is deterministic in the toggle task, so it is not part of the
	// probabilistic signature: lit=0 has the same (empty) signature.
	same, ok := roll.successorChild(node, expr.State{0.0})
	require.True(t, ok)
	require.Equal(t, first, same, "states differing only in deterministic variables share one child")
}

func TestRolloutDecisionAccumulatesRewardOnRewardLock(t *testing.T) {
	f := buildAbsorbingFixture(t, 1.0)
	pool := NewNodePool(1000, 800)
	roll := &rolloutEngine{
		Facade:                 f.Facade,
		Task:                   f.Task,
		Rand:                   f.Rand,
		Initializer:            NewRandomInitializer(f.Facade, f.Task),
		numberOfInitialVisits:  5,
		ucbScale:               1.0,
		noopOptimalFinalAction: true,
		pool:                   pool,
	}

	rootIdx, ok := pool.AllocDecision()
	require.True(t, ok)

	r, ok := roll.rolloutDecision(rootIdx, expr.State{1.0}, 3)
	require.True(t, ok)
	require.Equal(t, 3.0, r)
	root := pool.Decision(rootIdx)
	require.True(t, root.isRewardLock)
	require.Equal(t, 3.0, root.accumulatedReward)
	require.Equal(t, 1, root.numberOfVisits)

	_, ok = roll.rolloutDecision(rootIdx, expr.State{1.0}, 3)
	require.True(t, ok)
	require.Equal(t, 6.0, root.accumulatedReward)
	require.Equal(t, 2, root.numberOfVisits)
}

func TestRolloutDecisionBacksUpRewardIntoNodeStatistics(t *testing.T) {
	f := buildToggleFixture(t)
	pool := NewNodePool(1000, 800)
	roll := &rolloutEngine{
		Facade:                 f.Facade,
		Task:                   f.Task,
		Rand:                   f.Rand,
		Initializer:            NewRandomInitializer(f.Facade, f.Task),
		numberOfInitialVisits:  5,
		ucbScale:               1.0,
		noopOptimalFinalAction: true,
		pool:                   pool,
	}

	rootIdx, ok := pool.AllocDecision()
	require.True(t, ok)

	const rollouts = 4
	total := 0.0
	for i := 0; i < rollouts; i++ {
		r, ok := roll.rolloutDecision(rootIdx, expr.State{0.0}, 3)
		require.True(t, ok)
		total += r
	}

	root := pool.Decision(rootIdx)
	require.Equal(t, rollouts, root.numberOfVisits)
	// noop and flip are both applicable at lit=off, and initialisation
	// seeds each of the two children with numberOfInitialVisits visits.
	require.Equal(t, rollouts+2*roll.numberOfInitialVisits, root.childrenVisits)
	require.InDelta(t, total, root.accumulatedReward, 1e-9)
	require.InDelta(t, total/rollouts, root.qHat(), 1e-9, "qHat must be the mean backed-up reward, not the unvisited fallback")
}
