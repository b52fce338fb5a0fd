package compile

import (
	"testing"

	"github.com/stretchr/testify/require"

	"rddlplanner/internal/expr"
	"rddlplanner/internal/fluent"
	"rddlplanner/internal/grounder"
	"rddlplanner/internal/objects"
	"rddlplanner/internal/simplify"
)

func buildToggleTask(t *testing.T) *simplify.Task {
	t.Helper()
	u := objects.NewUniverse()
	u.DeclareType("item", "")
	_, err := u.AddObject("item", "i1")
	require.NoError(t, err)
	_, err = u.AddObject("item", "i2")
	require.NoError(t, err)

	reg := fluent.NewRegistry()
	reg.DeclareSchema(&fluent.Schema{Name: "lit", ParamTypes: []string{"item"}, Kind: fluent.StateFluentKind, ValueType: fluent.Bool})
	reg.DeclareSchema(&fluent.Schema{Name: "flip", ParamTypes: []string{"item"}, Kind: fluent.ActionFluentKind, ValueType: fluent.Bool})

	litCPF := grounder.SchematicCPF{
		Head:       "lit",
		ParamNames: []string{"?x"},
		Body: expr.IfThenElse{
			Cond: expr.VarCall{Name: "flip", Args: []string{"?x"}},
			Then: expr.Subtraction{Children: []expr.Node{
				expr.Constant{Value: 1},
				expr.VarCall{Name: "lit", Args: []string{"?x"}},
			}},
			Else: expr.VarCall{Name: "lit", Args: []string{"?x"}},
		},
	}
	reward := grounder.SchematicCPF{
		Body: expr.Sum{
			ParamNames: []string{"?x"},
			ParamTypes: []string{"item"},
			Body:       expr.VarCall{Name: "lit", Args: []string{"?x"}},
		},
	}

	schema := &grounder.Schematic{
		Universe: u,
		Registry: reg,
		CPFs:     []grounder.SchematicCPF{litCPF},
		Reward:   reward,
	}
	inst := &grounder.Instance{
		NonFluentValues:   map[fluent.Key]float64{},
		InitialState:      map[fluent.Key]float64{},
		Horizon:           5,
		ConcurrentActions: 1,
		Discount:          1.0,
	}

	ground, err := grounder.Ground(schema, inst)
	require.NoError(t, err)

	simplified, err := simplify.Run(ground)
	require.NoError(t, err)
	return simplified
}

func TestCompileProducesLegalActionsAndCPFs(t *testing.T) {
	task := buildToggleTask(t)

	compiled, err := Compile(task, DefaultCachingThreshold)
	require.NoError(t, err)

	require.Len(t, compiled.CPFs, 2)
	require.Len(t, compiled.Domains, 2)
	require.Equal(t, 2, compiled.FirstProbabilisticVarIndex, "toggle domain has no probabilistic CPFs")

	// noop plus one single-flip action per item, since concurrentActions=1.
	require.Len(t, compiled.LegalActions, 3)
	require.True(t, compiled.LegalActions[0].IsNoop(), "noop must sort first under ActionStateSort")

	for i, a := range compiled.LegalActions {
		require.Equal(t, i, a.Index)
	}
}

func TestCompileAssignsHashBasesForEachCPF(t *testing.T) {
	task := buildToggleTask(t)

	compiled, err := Compile(task, DefaultCachingThreshold)
	require.NoError(t, err)

	for _, c := range compiled.CPFs {
		require.NotEqual(t, PolicyNone, c.Hash.Policy, "a two-state-variable domain must not overflow")
		require.Greater(t, c.Hash.FinalStateBase, 0)
	}
}

func TestCompileDisableCachingDowngradesMapPolicies(t *testing.T) {
	task := buildToggleTask(t)
	compiled, err := Compile(task, 0) // threshold 0 forces every non-overflowed base into MAP
	require.NoError(t, err)

	compiled.DisableCaching()
	for _, c := range compiled.CPFs {
		require.NotEqual(t, PolicyMap, c.Hash.Policy)
		require.NotEqual(t, PolicyMap, c.DetHash.Policy)
	}
	require.NotEqual(t, PolicyMap, compiled.RewardHash.Policy)
}
