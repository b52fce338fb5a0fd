package simplify

import (
	"testing"

	"github.com/stretchr/testify/require"

	"rddlplanner/internal/expr"
	"rddlplanner/internal/fluent"
	"rddlplanner/internal/grounder"
)

func TestRunFoldsConstantCPF(t *testing.T) {
	reg := fluent.NewRegistry()
	reg.DeclareSchema(&fluent.Schema{Name: "k", Kind: fluent.StateFluentKind, ValueType: fluent.Real})
	reg.DeclareSchema(&fluent.Schema{Name: "x", Kind: fluent.StateFluentKind, ValueType: fluent.Real})
	k := reg.AddStateFluent("k", nil)
	x := reg.AddStateFluent("x", nil)

	task := &grounder.GroundTask{
		Registry: reg,
		CPFs: []grounder.GroundCPF{
			{Head: k, Formula: expr.Constant{Value: 7}},
			{Head: x, Formula: expr.Addition{Children: []expr.Node{
				expr.StateFluentRef{Index: k.Index}, expr.Constant{Value: 1},
			}}},
		},
		Reward:       expr.Constant{Value: 0},
		InitialState: []float64{0, 0},
	}

	out, err := Run(task)
	require.NoError(t, err)
	require.Len(t, out.CPFs, 0, "k's CPF folds away, and x's then folds too")
	require.Equal(t, 7.0, out.Discovered[k.Index])

	xValue, ok := out.Discovered[x.Index]
	require.True(t, ok, "x's formula folds to 7+1=8 once k is known constant, so x is discovered as well")
	require.Equal(t, 8.0, xValue)
	require.Equal(t, 7.0, out.InitialState[k.Index])
}

func TestRunInfeasibleStaticPrecondition(t *testing.T) {
	reg := fluent.NewRegistry()
	task := &grounder.GroundTask{
		Registry: reg,
		Reward:   expr.Constant{Value: 0},
		Preconditions: []grounder.GroundPrecondition{
			{Formula: expr.Constant{Value: 0}, IsStatic: true},
		},
	}
	_, err := Run(task)
	require.Error(t, err)
}

func TestRunDiscardsStaticallyTruePrecondition(t *testing.T) {
	reg := fluent.NewRegistry()
	task := &grounder.GroundTask{
		Registry: reg,
		Reward:   expr.Constant{Value: 0},
		Preconditions: []grounder.GroundPrecondition{
			{Formula: expr.Constant{Value: 1}, IsStatic: true},
			{Formula: expr.Negation{Child: expr.ActionFluentRef{Index: 0}}, IsStatic: true},
		},
	}
	out, err := Run(task)
	require.NoError(t, err)
	require.Len(t, out.Preconditions, 1, "a SAC that reduced to true constrains nothing and is dropped")
}

func TestRunBuildsDeterministicMirror(t *testing.T) {
	reg := fluent.NewRegistry()
	reg.DeclareSchema(&fluent.Schema{Name: "x", Kind: fluent.StateFluentKind, ValueType: fluent.Bool})
	x := reg.AddStateFluent("x", nil)

	task := &grounder.GroundTask{
		Registry: reg,
		CPFs: []grounder.GroundCPF{
			{Head: x, Formula: expr.Bernoulli{P: expr.Constant{Value: 0.9}}},
		},
		Reward:       expr.Constant{Value: 0},
		InitialState: []float64{0},
	}

	out, err := Run(task)
	require.NoError(t, err)
	require.Len(t, out.Deterministic, 1)
	cst, ok := out.Deterministic[0].(expr.Constant)
	require.True(t, ok, "Bernoulli(0.9) determinizes to the constant true=1")
	require.Equal(t, 1.0, cst.Value)
}
