package mdp

import (
	"testing"

	"github.com/stretchr/testify/require"

	"rddlplanner/internal/compile"
	"rddlplanner/internal/eval"
	"rddlplanner/internal/expr"
	"rddlplanner/internal/fluent"
	"rddlplanner/internal/grounder"
	"rddlplanner/internal/objects"
	"rddlplanner/internal/randsrc"
	"rddlplanner/internal/simplify"
)

// buildToggleTask builds a one-object domain with a deterministic "lit"
// state fluent flipped by a "flip" action fluent, a dynamic precondition
// requiring lit to be off before it may be flipped on, and a reward of 1
// exactly when lit holds. flip remains a structurally legal action at
// every state (only the dynamic precondition excludes it at lit=1), so
// neither lit value is a genuine reward lock — see buildAbsorbingTask for
// a fixture that is one.
func buildToggleTask(t *testing.T) (*compile.CompiledTask, *eval.Evaluator, *Facade) {
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
	// flip(?s) only legal while lit(?s) is off, so once lit(s1) becomes
	// true the only applicable action is noop.
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

	ground, err := grounder.Ground(schema, inst)
	require.NoError(t, err)

	simplified, err := simplify.Run(ground)
	require.NoError(t, err)

	compiled, err := compile.Compile(simplified, compile.DefaultCachingThreshold)
	require.NoError(t, err)

	evaluator := eval.New(compiled)
	facade := New(compiled, evaluator, randsrc.New(1))
	return compiled, evaluator, facade
}

// buildAbsorbingTask builds a one-object domain with a single state
// fluent ("done") whose CPF forces it to absorbingValue on every step
// regardless of its current value or any action fluent, with reward
// equal to its value. absorbingValue is therefore a genuine reward lock
// under every-action Kleene reasoning: every
// trajectory reaches it in one step and never leaves, independent of any
// dynamic precondition.
func buildAbsorbingTask(t *testing.T, absorbingValue float64) *Facade {
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

	ground, err := grounder.Ground(schema, inst)
	require.NoError(t, err)
	simplified, err := simplify.Run(ground)
	require.NoError(t, err)
	compiled, err := compile.Compile(simplified, compile.DefaultCachingThreshold)
	require.NoError(t, err)

	evaluator := eval.New(compiled)
	return New(compiled, evaluator, randsrc.New(1))
}

func TestIsRewardLockDetectsGoal(t *testing.T) {
	f := buildAbsorbingTask(t, 1.0)
	require.True(t, f.IsRewardLock(expr.State{1.0}), "done is forced to 1 every step regardless of action, so 1 always yields max reward forever")
}

func TestIsRewardLockDetectsDeadEnd(t *testing.T) {
	f := buildAbsorbingTask(t, 0.0)
	require.True(t, f.IsRewardLock(expr.State{0.0}), "done is forced to 0 every step regardless of action, so 0 always yields min reward forever")
}

func TestSampleSuccessorFlipsDeterministicLit(t *testing.T) {
	_, _, f := buildToggleTask(t)

	var flipOn fluent.ActionState
	for _, a := range f.Task.LegalActions {
		if !a.IsNoop() {
			flipOn = a
			break
		}
	}
	require.False(t, flipOn.IsNoop())

	s := expr.State{0.0}
	next := f.SampleSuccessor(s, flipOn)
	require.Equal(t, expr.State{1.0}, next)
}

func TestCalcRewardCountsLitSwitches(t *testing.T) {
	_, _, f := buildToggleTask(t)

	require.Equal(t, 1.0, f.CalcReward(expr.State{1.0}, f.Noop()))
	require.Equal(t, 0.0, f.CalcReward(expr.State{0.0}, f.Noop()))
}

func TestApplicableActionsRespectsDynamicPrecondition(t *testing.T) {
	_, _, f := buildToggleTask(t)

	off := f.ApplicableActions(expr.State{0.0})
	require.Len(t, off, len(f.Task.LegalActions))
	for i := range off {
		require.NotEqual(t, -1, off[i], "flip is legal while the switch is off")
	}

	on := f.ApplicableActions(expr.State{1.0})
	for idx, a := range f.Task.LegalActions {
		if a.IsNoop() {
			require.NotEqual(t, -1, on[idx])
			continue
		}
		require.Equal(t, -1, on[idx], "flip must be pruned once the switch is already lit")
	}
}

func TestIsRewardLockRejectsTogglableState(t *testing.T) {
	_, _, f := buildToggleTask(t)

	// flip is always a legal action structurally (only a dynamic
	// precondition, not the static-precondition-filtered legal-action
	// set, excludes it at lit=1), so reward-lock detection — which
	// reasons over every legal action regardless of per-state dynamic
	// applicability — must not call either state a lock.
	require.False(t, f.IsRewardLock(expr.State{1.0}))
	require.False(t, f.IsRewardLock(expr.State{0.0}))
}

func TestDisableCachingCascades(t *testing.T) {
	_, _, f := buildToggleTask(t)

	s := expr.State{0.0}
	_ = f.ApplicableActions(s)
	f.DisableCaching()
	require.False(t, f.applicableCacheEnabled)
	require.Nil(t, f.applicableCache)

	// Evaluation must still work after caches are disabled.
	require.Equal(t, 0.0, f.CalcReward(s, f.Noop()))
}
