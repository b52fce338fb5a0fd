package rddl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"rddlplanner/internal/compile"
	"rddlplanner/internal/expr"
	"rddlplanner/internal/grounder"
	"rddlplanner/internal/planerr"
	"rddlplanner/internal/simplify"
)

// chainTaskYaml is a three-variable deterministic chain: inc(?i) latches
// x(?i) to 1, reward is the number of latched variables.
const chainTaskYaml = `
domain:
  types:
    - name: idx
  objects:
    - type: idx
      names: [i0, i1, i2]
  variables:
    - name: x
      params: [idx]
      kind: state-fluent
      type: bool
    - name: inc
      params: [idx]
      kind: action-fluent
      type: bool
  cpfs:
    - head: x
      params: ["?i"]
      body:
        kind: or
        children:
          - {kind: var, name: x, args: ["?i"]}
          - {kind: var, name: inc, args: ["?i"]}
  reward:
    kind: sum
    params: ["?i"]
    paramTypes: [idx]
    body: {kind: var, name: x, args: ["?i"]}
instance:
  horizon: 3
  concurrentActions: 1
`

func writeTask(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "task.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func compileChain(t *testing.T) *compile.CompiledTask {
	t.Helper()
	schematic, inst, err := LoadTask(writeTask(t, chainTaskYaml))
	require.NoError(t, err)

	ground, err := grounder.Ground(schematic, inst)
	require.NoError(t, err)
	simplified, err := simplify.Run(ground)
	require.NoError(t, err)
	compiled, err := compile.Compile(simplified, compile.DefaultCachingThreshold)
	require.NoError(t, err)
	return compiled
}

func TestLoadTaskGroundsTheChainDomain(t *testing.T) {
	compiled := compileChain(t)

	require.Len(t, compiled.CPFs, 3)
	require.Equal(t, []float64{0, 0, 0}, compiled.InitialState)
	require.Equal(t, 3, compiled.Horizon)

	// noop plus one single-inc action per object under concurrency 1.
	require.Len(t, compiled.LegalActions, 4)
	require.True(t, compiled.LegalActions[0].IsNoop())

	// Reward at the all-latched state is 3 under any action.
	r := expr.Evaluate(compiled.Reward, expr.State{1, 1, 1}, compiled.LegalActions[0].Fluents)
	require.InDelta(t, 3.0, r, 1e-9)
}

func TestDecodeTaskRejectsMalformedDocuments(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		kind planerr.Kind
	}{
		{
			name: "undeclared parameter type",
			kind: planerr.KindUndefinedReference,
			yaml: `
domain:
  variables:
    - {name: x, params: [ghost], kind: state-fluent, type: bool}
  cpfs: []
  reward: {kind: const, value: 0}
instance: {horizon: 1, concurrentActions: 1}
`,
		},
		{
			name: "CPF arity mismatch",
			kind: planerr.KindTypeMismatch,
			yaml: `
domain:
  types: [{name: idx}]
  objects: [{type: idx, names: [i0]}]
  variables:
    - {name: x, params: [idx], kind: state-fluent, type: bool}
  cpfs:
    - {head: x, params: ["?a", "?b"], body: {kind: const, value: 0}}
  reward: {kind: const, value: 0}
instance: {horizon: 1, concurrentActions: 1}
`,
		},
		{
			name: "unknown expression kind",
			kind: planerr.KindParse,
			yaml: `
domain:
  variables:
    - {name: x, kind: state-fluent, type: bool}
  cpfs:
    - {head: x, body: {kind: frobnicate}}
  reward: {kind: const, value: 0}
instance: {horizon: 1, concurrentActions: 1}
`,
		},
		{
			name: "non-positive horizon",
			kind: planerr.KindParse,
			yaml: `
domain:
  variables: []
  cpfs: []
  reward: {kind: const, value: 0}
instance: {horizon: 0, concurrentActions: 1}
`,
		},
		{
			name: "discount outside (0,1]",
			kind: planerr.KindParse,
			yaml: `
domain:
  variables: []
  cpfs: []
  reward: {kind: const, value: 0}
instance: {horizon: 1, concurrentActions: 1, discount: 1.5}
`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := LoadTask(writeTask(t, tc.yaml))
			require.Error(t, err)
			require.True(t, planerr.Is(err, tc.kind), "want %v, got %v", tc.kind, err)
		})
	}
}

func TestExprCodecRoundTripsEveryGroundKind(t *testing.T) {
	nodes := []expr.Node{
		expr.Constant{Value: 2.5},
		expr.StateFluentRef{Index: 1, Name: "x(i1)"},
		expr.ActionFluentRef{Index: 0, Name: "inc(i0)"},
		expr.Conjunction{Children: []expr.Node{expr.Constant{Value: 1}, expr.StateFluentRef{Index: 0}}},
		expr.Disjunction{Children: []expr.Node{expr.ActionFluentRef{Index: 0}, expr.ActionFluentRef{Index: 1}}},
		expr.Equals{Children: []expr.Node{expr.StateFluentRef{Index: 0}, expr.Constant{Value: 1}}},
		expr.Less{Left: expr.Constant{Value: 0}, Right: expr.StateFluentRef{Index: 2}},
		expr.LessEq{Left: expr.Constant{Value: 0}, Right: expr.Constant{Value: 1}},
		expr.Greater{Left: expr.Constant{Value: 1}, Right: expr.Constant{Value: 0}},
		expr.GreaterEq{Left: expr.Constant{Value: 1}, Right: expr.Constant{Value: 1}},
		expr.Addition{Children: []expr.Node{expr.Constant{Value: 1}, expr.Constant{Value: 2}}},
		expr.Subtraction{Children: []expr.Node{expr.Constant{Value: 3}, expr.Constant{Value: 1}}},
		expr.Multiplication{Children: []expr.Node{expr.Constant{Value: 2}, expr.StateFluentRef{Index: 0}}},
		expr.Division{Left: expr.Constant{Value: 1}, Right: expr.Constant{Value: 2}},
		expr.Negation{Child: expr.StateFluentRef{Index: 0}},
		expr.Exponential{Child: expr.Constant{Value: 1}},
		expr.KronDelta{Child: expr.Constant{Value: 4}},
		expr.Bernoulli{P: expr.Constant{Value: 0.7}},
		expr.Discrete{Outcomes: []expr.DiscreteOutcome{
			{Value: expr.Constant{Value: 0}, Prob: expr.Constant{Value: 0.4}},
			{Value: expr.Constant{Value: 1}, Prob: expr.Constant{Value: 0.6}},
		}},
		expr.IfThenElse{Cond: expr.ActionFluentRef{Index: 0}, Then: expr.Constant{Value: 1}, Else: expr.Constant{Value: 0}},
		expr.MultiConditionChecker{Branches: []expr.Branch{
			{Cond: expr.StateFluentRef{Index: 0}, Value: expr.Constant{Value: 2}},
			{Cond: expr.Constant{Value: 1}, Value: expr.Constant{Value: 0}},
		}},
	}
	for _, n := range nodes {
		decoded, err := DecodeExpr(EncodeExpr(n), nil)
		require.NoError(t, err)
		require.Equal(t, n, decoded)
	}
}
