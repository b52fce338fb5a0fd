package fluent

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryAddAndLookup(t *testing.T) {
	r := NewRegistry()
	r.DeclareSchema(&Schema{Name: "on", ParamTypes: []string{"block", "block"}, Kind: StateFluentKind, ValueType: Bool})

	f := r.AddStateFluent("on", []string{"a", "b"})
	require.Equal(t, 0, f.Index)
	require.Equal(t, "on(a,b)", f.String())

	got, ok := r.LookupState("on", []string{"a", "b"})
	require.True(t, ok)
	require.Same(t, f, got)

	_, ok = r.LookupState("on", []string{"b", "a"})
	require.False(t, ok)
}

func TestActionStateSort(t *testing.T) {
	noop := NewActionState([]bool{false, false}, 0)
	one := NewActionState([]bool{true, false}, 1)
	two := NewActionState([]bool{true, true}, 2)

	require.True(t, noop.Less(one))
	require.True(t, one.Less(two))
	require.False(t, two.Less(one))
	require.True(t, noop.IsNoop())
	require.False(t, one.IsNoop())
}

func TestActionStateScheduledNames(t *testing.T) {
	reg := NewRegistry()
	reg.AddActionFluent("flip", []string{"x"})
	reg.AddActionFluent("flip", []string{"y"})

	a := NewActionState([]bool{false, true}, 1)
	require.Equal(t, []string{"flip(y)"}, a.ScheduledNames(reg))
}

func TestReindex(t *testing.T) {
	r := NewRegistry()
	r.AddStateFluent("prob", nil)
	r.AddStateFluent("det", nil)

	r.StateFluents[0], r.StateFluents[1] = r.StateFluents[1], r.StateFluents[0]
	r.Reindex()

	require.Equal(t, 0, r.StateFluents[0].Index)
	require.Equal(t, 1, r.StateFluents[1].Index)
	got, ok := r.LookupState("det", nil)
	require.True(t, ok)
	require.Equal(t, 0, got.Index)
}
