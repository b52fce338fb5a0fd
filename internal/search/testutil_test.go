package search

import (
	"testing"

	"github.com/stretchr/testify/require"

	"rddlplanner/internal/compile"
	"rddlplanner/internal/eval"
	"rddlplanner/internal/expr"
	"rddlplanner/internal/fluent"
	"rddlplanner/internal/grounder"
	"rddlplanner/internal/mdp"
	"rddlplanner/internal/objects"
	"rddlplanner/internal/randsrc"
	"rddlplanner/internal/simplify"
)

// fixture bundles everything a search test needs over one compiled task.
type fixture struct {
	Task   *compile.CompiledTask
	Eval   *eval.Evaluator
	Facade *mdp.Facade
	Rand   *randsrc.Source
}

// buildToggleFixture mirrors internal/mdp/facade_test.go's buildToggleTask:
// a deterministic "lit" state fluent flipped by "flip", a dynamic
// precondition barring flip once lit, reward 1 while lit holds.
func buildToggleFixture(t *testing.T) *fixture {
	t.Helper()
	u := objects.NewUniverse()
	u.DeclareType("switch", "")
	_, err := u.AddObject("switch", "s1")
	require.NoError(t, err)

	reg := fluent.NewRegistry()
	reg.DeclareSchema(&fluent.Schema{Name: "lit", ParamTypes: []string{"switch"}, Kind: fluent.StateFluentKind, ValueType: fluent.Bool})
	reg.DeclareSchema(&fluent.Schema{Name: "flip", ParamTypes: []string{"switch"}, Kind: fluent.ActionFluentKind, ValueType: fluent.Bool})

	litCPF := grounder.SchematicCPF{
		Head:       "lit",
		ParamNames: []string{"?s"},
		Body: expr.IfThenElse{
			Cond: expr.VarCall{Name: "flip", Args: []string{"?s"}},
			Then: expr.Subtraction{Children: []expr.Node{
				expr.Constant{Value: 1},
				expr.VarCall{Name: "lit", Args: []string{"?s"}},
			}},
			Else: expr.VarCall{Name: "lit", Args: []string{"?s"}},
		},
	}
	reward := grounder.SchematicCPF{
		Body: expr.Sum{
			ParamNames: []string{"?s"},
			ParamTypes: []string{"switch"},
			Body:       expr.VarCall{Name: "lit", Args: []string{"?s"}},
		},
	}
	noFlipWhileLit := grounder.SchematicPrecondition{
		Body: expr.Forall{
			ParamNames: []string{"?s"},
			ParamTypes: []string{"switch"},
			Body: expr.IfThenElse{
				Cond: expr.VarCall{Name: "flip", Args: []string{"?s"}},
				Then: expr.Subtraction{Children: []expr.Node{
					expr.Constant{Value: 1},
					expr.VarCall{Name: "lit", Args: []string{"?s"}},
				}},
				Else: expr.Constant{Value: 1},
			},
		},
	}

	schema := &grounder.Schematic{
		Universe:      u,
		Registry:      reg,
		CPFs:          []grounder.SchematicCPF{litCPF},
		Reward:        reward,
		Preconditions: []grounder.SchematicPrecondition{noFlipWhileLit},
	}
	inst := &grounder.Instance{
		NonFluentValues:   map[fluent.Key]float64{},
		InitialState:      map[fluent.Key]float64{},
		Horizon:           5,
		ConcurrentActions: 1,
		Discount:          1.0,
	}

	return compileFixture(t, schema, inst)
}

// buildAbsorbingFixture mirrors internal/mdp/facade_test.go's
// buildAbsorbingTask: a state fluent forced to absorbingValue every step
// regardless of state or action, a genuine reward lock at that value.
func buildAbsorbingFixture(t *testing.T, absorbingValue float64) *fixture {
	t.Helper()
	u := objects.NewUniverse()
	u.DeclareType("cell", "")
	_, err := u.AddObject("cell", "c1")
	require.NoError(t, err)

	reg := fluent.NewRegistry()
	reg.DeclareSchema(&fluent.Schema{Name: "done", ParamTypes: []string{"cell"}, Kind: fluent.StateFluentKind, ValueType: fluent.Bool})
	reg.DeclareSchema(&fluent.Schema{Name: "trigger", ParamTypes: []string{"cell"}, Kind: fluent.ActionFluentKind, ValueType: fluent.Bool})

	doneCPF := grounder.SchematicCPF{
		Head:       "done",
		ParamNames: []string{"?c"},
		Body:       expr.Constant{Value: absorbingValue},
	}
	reward := grounder.SchematicCPF{
		Body: expr.Sum{
			ParamNames: []string{"?c"},
			ParamTypes: []string{"cell"},
			Body:       expr.VarCall{Name: "done", Args: []string{"?c"}},
		},
	}

	schema := &grounder.Schematic{
		Universe: u,
		Registry: reg,
		CPFs:     []grounder.SchematicCPF{doneCPF},
		Reward:   reward,
	}
	inst := &grounder.Instance{
		NonFluentValues:   map[fluent.Key]float64{},
		InitialState:      map[fluent.Key]float64{fluent.NewKey("done", []string{"c1"}): 1 - absorbingValue},
		Horizon:           5,
		ConcurrentActions: 1,
		Discount:          1.0,
	}

	return compileFixture(t, schema, inst)
}

func compileFixture(t *testing.T, schema *grounder.Schematic, inst *grounder.Instance) *fixture {
	t.Helper()
	ground, err := grounder.Ground(schema, inst)
	require.NoError(t, err)
	simplified, err := simplify.Run(ground)
	require.NoError(t, err)
	compiled, err := compile.Compile(simplified, compile.DefaultCachingThreshold)
	require.NoError(t, err)

	evaluator := eval.New(compiled)
	rng := randsrc.New(1)
	facade := mdp.New(compiled, evaluator, rng)
	return &fixture{Task: compiled, Eval: evaluator, Facade: facade, Rand: rng}
}
