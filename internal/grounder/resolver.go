package grounder

import (
	"fmt"

	"rddlplanner/internal/expr"
	"rddlplanner/internal/fluent"
	"rddlplanner/internal/objects"
	"rddlplanner/internal/planerr"
)

// resolver implements expr.Resolver, turning a schematic VarCall (already
// reduced to literal object-name arguments by Instantiate) into the right
// ground reference. Non-fluents resolve directly to a Constant since they
// are already known by grounding time. Interm-fluents resolve to a
// StateFluentRef whose index is offset past every real state fluent: the
// evaluator allocates a scratch vector of that extended size each step,
// fills the interm slots by running IntermCPFs in stratum order, then
// evaluates the real CPFs against the combined vector and discards the
// interm slots (stratified intermediate fluents
// never persist across steps, so they need no permanent index space of
// their own — only a per-step extension of State).
type resolver struct {
	universe *objects.Universe
	registry *fluent.Registry
}

func (r *resolver) ResolveVar(name string, objArgs []string) (expr.Node, error) {
	schema, ok := r.registry.Schema(name)
	if !ok {
		return nil, planerr.New(planerr.KindUndefinedReference, name, "no schema declared")
	}
	if len(objArgs) != len(schema.ParamTypes) {
		return nil, planerr.New(planerr.KindTypeMismatch, name,
			fmt.Sprintf("expected %d argument(s), got %d", len(schema.ParamTypes), len(objArgs)))
	}
	for i, a := range objArgs {
		obj, ok := r.universe.Object(a)
		if !ok {
			return nil, planerr.New(planerr.KindUndefinedReference, a, "undeclared object")
		}
		want, ok := r.universe.Type(schema.ParamTypes[i])
		if !ok {
			return nil, planerr.New(planerr.KindUndefinedReference, schema.ParamTypes[i], "undeclared type")
		}
		if !obj.Type.IsSubtypeOf(want) {
			return nil, planerr.New(planerr.KindTypeMismatch, name,
				fmt.Sprintf("argument %d: object %q has type %q, want %q", i, a, obj.Type.Name, want.Name))
		}
	}

	switch schema.Kind {
	case fluent.StateFluentKind:
		f, ok := r.registry.LookupState(name, objArgs)
		if !ok {
			return nil, planerr.New(planerr.KindUndefinedReference, name, "ground state fluent missing")
		}
		return expr.StateFluentRef{Index: f.Index, Name: f.String()}, nil
	case fluent.ActionFluentKind:
		f, ok := r.registry.LookupAction(name, objArgs)
		if !ok {
			return nil, planerr.New(planerr.KindUndefinedReference, name, "ground action fluent missing")
		}
		return expr.ActionFluentRef{Index: f.Index, Name: f.String()}, nil
	case fluent.NonFluentKind:
		f, ok := r.registry.LookupNonFluent(name, objArgs)
		if !ok {
			return nil, planerr.New(planerr.KindUndefinedReference, name, "ground non-fluent missing")
		}
		return expr.Constant{Value: f.Value}, nil
	case fluent.IntermFluentKind:
		f, ok := r.registry.LookupInterm(name, objArgs)
		if !ok {
			return nil, planerr.New(planerr.KindUndefinedReference, name, "ground interm-fluent missing")
		}
		return expr.StateFluentRef{Index: IntermBaseIndex(r.registry) + f.Index, Name: f.String()}, nil
	default:
		return nil, planerr.New(planerr.KindTypeMismatch, name, "schema has unrecognised kind")
	}
}

// IntermBaseIndex is the first index in the per-step extended state
// vector reserved for interm-fluents, always immediately after every real
// state fluent. The grounder uses it to offset interm-fluent references
// and to check strata; internal/compile later remaps these slots past the
// reordered real state fluents.
func IntermBaseIndex(registry *fluent.Registry) int {
	return len(registry.StateFluents)
}
