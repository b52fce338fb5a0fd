package fluent

import "strings"

// StateFluent is one ground state variable: `name(obj1,...,objn)` bound to
// a compiled index. Deterministic state fluents precede probabilistic
// ones in Index order (firstProbabilisticVarIndex).
type StateFluent struct {
	Name  string
	Args  []string
	Index int
}

// ActionFluent is one ground boolean action variable.
type ActionFluent struct {
	Name  string
	Args  []string
	Index int
}

// IntermFluent is one ground intermediate variable: computed fresh each
// step from lower-stratum interm-fluents and the current state/action,
// then discarded (it never persists across steps).
type IntermFluent struct {
	Name    string
	Args    []string
	Index   int
	Stratum int
}

// NonFluent is one ground constant: contributes only its initial value and
// disappears during simplification, folded into every CPF that reads it.
type NonFluent struct {
	Name  string
	Args  []string
	Index int
	Value float64
}

func groundName(name string, args []string) string {
	if len(args) == 0 {
		return name
	}
	return name + "(" + strings.Join(args, ",") + ")"
}

func (f *StateFluent) String() string  { return groundName(f.Name, f.Args) }
func (f *ActionFluent) String() string { return groundName(f.Name, f.Args) }
func (f *IntermFluent) String() string { return groundName(f.Name, f.Args) }
func (f *NonFluent) String() string    { return groundName(f.Name, f.Args) }

// Key identifies a ground fluent for registry lookups: the schema name
// together with its substituted argument objects, in order.
type Key struct {
	Name string
	Args string
}

// NewKey builds a lookup Key for a schema name and its concrete arguments.
func NewKey(name string, args []string) Key {
	return Key{Name: name, Args: strings.Join(args, ",")}
}
