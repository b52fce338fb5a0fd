package grounder

import (
	"testing"

	"github.com/stretchr/testify/require"

	"rddlplanner/internal/expr"
	"rddlplanner/internal/fluent"
	"rddlplanner/internal/objects"
)

func buildToggleDomain(t *testing.T) (*Schematic, *objects.Universe) {
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

	litCPF := SchematicCPF{
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

	reward := SchematicCPF{
		Body: expr.Sum{
			ParamNames: []string{"?x"},
			ParamTypes: []string{"item"},
			Body:       expr.VarCall{Name: "lit", Args: []string{"?x"}},
		},
	}

	return &Schematic{
		Universe: u,
		Registry: reg,
		CPFs:     []SchematicCPF{litCPF},
		Reward:   reward,
	}, u
}

func TestGroundToggleDomain(t *testing.T) {
	schema, _ := buildToggleDomain(t)
	inst := &Instance{
		NonFluentValues:   map[fluent.Key]float64{},
		InitialState:      map[fluent.Key]float64{},
		Horizon:           5,
		ConcurrentActions: 1,
		Discount:          1.0,
	}

	task, err := Ground(schema, inst)
	require.NoError(t, err)
	require.Len(t, task.CPFs, 2)
	require.Empty(t, task.IntermCPFs)
	require.Len(t, task.InitialState, 2)

	for _, c := range task.CPFs {
		ite, ok := c.Formula.(expr.IfThenElse)
		require.True(t, ok)
		cond, ok := ite.Cond.(expr.ActionFluentRef)
		require.True(t, ok)
		require.Equal(t, c.Head.Index, cond.Index, "flip(?x) must resolve to the action fluent sharing x's position")
	}

	add, ok := task.Reward.(expr.Addition)
	require.True(t, ok)
	require.Len(t, add.Children, 2)
	for _, child := range add.Children {
		_, ok := child.(expr.StateFluentRef)
		require.True(t, ok)
	}
}

func TestGroundUndefinedReferenceFails(t *testing.T) {
	schema, _ := buildToggleDomain(t)
	schema.CPFs[0].Body = expr.VarCall{Name: "doesNotExist", Args: []string{"?x"}}

	inst := &Instance{Horizon: 1, ConcurrentActions: 1, Discount: 1.0}
	_, err := Ground(schema, inst)
	require.Error(t, err)
}

func TestGroundTypeMismatchFails(t *testing.T) {
	schema, u := buildToggleDomain(t)
	u.DeclareType("other", "")
	_, err := u.AddObject("other", "o1")
	require.NoError(t, err)
	schema.CPFs[0].Body = expr.VarCall{Name: "flip", Args: []string{"o1"}}

	inst := &Instance{Horizon: 1, ConcurrentActions: 1, Discount: 1.0}
	_, err = Ground(schema, inst)
	require.Error(t, err)
}
