// Package fluent holds the parametrized-variable schema and ground-fluent
// types of the data model: schemas as declared by the domain
// description, and the ground state/action/interm/non-fluents produced by
// grounding each schema against the object universe.
package fluent

// ValueType is the declared value type of a schema: boolean, integer,
// real, or an enum-like object type (represented numerically by the
// object's index within its type, per objects.Object).
type ValueType int

const (
	Bool ValueType = iota
	Int
	Real
	ObjectValue
)

func (v ValueType) String() string {
	switch v {
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Real:
		return "real"
	case ObjectValue:
		return "object"
	default:
		return "unknown"
	}
}

// Kind distinguishes the four schema roles.
type Kind int

const (
	StateFluentKind Kind = iota
	ActionFluentKind
	IntermFluentKind
	NonFluentKind
)

func (k Kind) String() string {
	switch k {
	case StateFluentKind:
		return "state-fluent"
	case ActionFluentKind:
		return "action-fluent"
	case IntermFluentKind:
		return "interm-fluent"
	case NonFluentKind:
		return "non-fluent"
	default:
		return "unknown"
	}
}

// Schema describes one schematic parametrized variable as declared by the
// domain description, before grounding: a name, an ordered parameter-type
// list, a kind, a value type, a default value and (for interm-fluents) a
// stratification level restricting which other interm-fluents its CPF may
// read.
type Schema struct {
	Name       string
	ParamTypes []string
	Kind       Kind
	ValueType  ValueType
	Default    float64
	Stratum    int
}

// Arity reports the number of parameters the schema takes.
func (s *Schema) Arity() int { return len(s.ParamTypes) }
