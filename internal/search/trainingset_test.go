package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerateTrainingSetRespectsTargetSize(t *testing.T) {
	f := buildToggleFixture(t)
	states := GenerateTrainingSet(f.Facade, f.Task, f.Rand, 5, DefaultTrainingSetInclusionProb, time.Second)
	require.LessOrEqual(t, len(states), 5)
	require.NotEmpty(t, states)
}

func TestGenerateTrainingSetRespectsBudget(t *testing.T) {
	f := buildToggleFixture(t)
	start := time.Now()
	states := GenerateTrainingSet(f.Facade, f.Task, f.Rand, 1_000_000, DefaultTrainingSetInclusionProb, 20*time.Millisecond)
	require.Less(t, time.Since(start), time.Second, "must stop well before a runaway target size is ever reached")
	require.NotNil(t, states)
}
