// Package grounder turns a schematic domain/instance description into a
// fully ground task: every parametrized variable expanded against the
// object universe, every quantifier eliminated, every schematic variable
// call resolved to a compiled StateFluentRef/ActionFluentRef/Constant.
package grounder

import (
	"fmt"

	"rddlplanner/internal/expr"
	"rddlplanner/internal/fluent"
	"rddlplanner/internal/objects"
	"rddlplanner/internal/planerr"
)

// SchematicCPF is one schematic conditional-probability-function
// definition as handed in by the parser: a head schema name, the
// parameter names that appear in Body bound one-to-one with the head
// schema's parameter types, and the body expression.
type SchematicCPF struct {
	Head       string
	ParamNames []string
	Body       expr.Node
}

// SchematicPrecondition is one boolean constraint over actions (and,
// for dynamic preconditions, state); any quantifiers inside Body are
// self-contained (a precondition itself has no free parameters).
type SchematicPrecondition struct {
	Body expr.Node
}

// Schematic is the parser-facing input contract: a type
// hierarchy and object universe, declared schemas, and the schematic
// CPFs/preconditions/reward that reference them.
type Schematic struct {
	Universe      *objects.Universe
	Registry      *fluent.Registry
	CPFs          []SchematicCPF
	Reward        SchematicCPF
	Preconditions []SchematicPrecondition
}

// Instance is the problem-instance half of a task: concrete
// non-fluent values and initial-state assignments keyed by ground fluent,
// plus the three scalar task parameters.
type Instance struct {
	NonFluentValues    map[fluent.Key]float64
	InitialState       map[fluent.Key]float64
	Horizon            int
	ConcurrentActions  int
	Discount           float64
}

// GroundCPF is one ground CPF: a concrete head fluent (exactly one of
// Head/InterHead is set) and its fully substituted, quantifier-free
// formula.
type GroundCPF struct {
	Head      *fluent.StateFluent
	InterHead *fluent.IntermFluent
	Formula   expr.Node
}

// GroundPrecondition is one ground precondition with its computed
// staticness (static SACs depend only on actions).
type GroundPrecondition struct {
	Formula  expr.Node
	IsStatic bool
}

// GroundTask is everything the simplifier, compiler and evaluator need:
// ground CPFs (state-fluent and interm-fluent, the latter pre-sorted by
// stratum), the ground reward, ground preconditions, and the initial
// state vector.
type GroundTask struct {
	Registry      *fluent.Registry
	CPFs          []GroundCPF
	IntermCPFs    []GroundCPF
	Reward        expr.Node
	Preconditions []GroundPrecondition
	InitialState  []float64

	Horizon           int
	ConcurrentActions int
	Discount          float64
}

// Ground runs the grounder's three sequential steps:
// object instantiation of every declared schema, quantifier elimination
// and parameter substitution for every CPF/precondition (performed in one
// pass by expr.Instantiate), and assembly of the ground task.
func Ground(schema *Schematic, inst *Instance) (*GroundTask, error) {
	if err := instantiateSchemas(schema.Universe, schema.Registry); err != nil {
		return nil, err
	}
	if err := fillNonFluents(schema.Registry, inst.NonFluentValues); err != nil {
		return nil, err
	}

	res := &resolver{universe: schema.Universe, registry: schema.Registry}

	cpfs, intermCPFs, err := groundCPFs(schema, res)
	if err != nil {
		return nil, err
	}

	reward, err := groundOne(schema.Reward.Body, schema.Reward.ParamNames, nil, res, schema.Universe)
	if err != nil {
		return nil, err
	}

	preconds, err := groundPreconditions(schema, res)
	if err != nil {
		return nil, err
	}

	if err := stratify(intermCPFs, IntermBaseIndex(schema.Registry)); err != nil {
		return nil, err
	}

	initial, err := buildInitialState(schema.Registry, inst.InitialState)
	if err != nil {
		return nil, err
	}

	return &GroundTask{
		Registry:          schema.Registry,
		CPFs:              cpfs,
		IntermCPFs:        intermCPFs,
		Reward:            reward,
		Preconditions:     preconds,
		InitialState:      initial,
		Horizon:           inst.Horizon,
		ConcurrentActions: inst.ConcurrentActions,
		Discount:          inst.Discount,
	}, nil
}

func groundOne(body expr.Node, paramNames []string, args []string, res *resolver, universe *objects.Universe) (expr.Node, error) {
	replace := expr.ReplaceMap{}
	for i, p := range paramNames {
		obj, ok := universe.Object(args[i])
		if !ok {
			return nil, planerr.New(planerr.KindUndefinedReference, args[i], "undeclared object")
		}
		replace[p] = obj
	}
	return expr.Instantiate(body, replace, res, universe)
}

func groundCPFs(schema *Schematic, res *resolver) (cpfs, interm []GroundCPF, err error) {
	for _, sc := range schema.CPFs {
		head, ok := schema.Registry.Schema(sc.Head)
		if !ok {
			return nil, nil, planerr.New(planerr.KindUndefinedReference, sc.Head, "no schema declared for CPF head")
		}
		tuples, err := cartesianObjects(schema.Universe, head.ParamTypes)
		if err != nil {
			return nil, nil, err
		}
		for _, tuple := range tuples {
			names := objectNames(tuple)
			formula, err := groundOne(sc.Body, sc.ParamNames, names, res, schema.Universe)
			if err != nil {
				return nil, nil, err
			}
			switch head.Kind {
			case fluent.StateFluentKind:
				f, ok := schema.Registry.LookupState(sc.Head, names)
				if !ok {
					return nil, nil, planerr.New(planerr.KindUndefinedReference, sc.Head, "ground head missing")
				}
				cpfs = append(cpfs, GroundCPF{Head: f, Formula: formula})
			case fluent.IntermFluentKind:
				f, ok := schema.Registry.LookupInterm(sc.Head, names)
				if !ok {
					return nil, nil, planerr.New(planerr.KindUndefinedReference, sc.Head, "ground head missing")
				}
				interm = append(interm, GroundCPF{InterHead: f, Formula: formula})
			default:
				return nil, nil, planerr.New(planerr.KindTypeMismatch, sc.Head, "CPF head must be a state-fluent or interm-fluent")
			}
		}
	}
	return cpfs, interm, nil
}

func groundPreconditions(schema *Schematic, res *resolver) ([]GroundPrecondition, error) {
	out := make([]GroundPrecondition, 0, len(schema.Preconditions))
	for _, p := range schema.Preconditions {
		formula, err := expr.Instantiate(p.Body, expr.ReplaceMap{}, res, schema.Universe)
		if err != nil {
			return nil, err
		}
		info := expr.CollectInitialInfo(formula)
		out = append(out, GroundPrecondition{Formula: formula, IsStatic: len(info.StateFluents) == 0})
	}
	return out, nil
}

func fillNonFluents(registry *fluent.Registry, values map[fluent.Key]float64) error {
	for _, nf := range registry.NonFluents {
		if v, ok := values[fluent.NewKey(nf.Name, nf.Args)]; ok {
			nf.Value = v
		}
	}
	return nil
}

func buildInitialState(registry *fluent.Registry, values map[fluent.Key]float64) ([]float64, error) {
	out := make([]float64, len(registry.StateFluents))
	for _, f := range registry.StateFluents {
		schema, ok := registry.Schema(f.Name)
		if !ok {
			return nil, planerr.New(planerr.KindUndefinedReference, f.Name, "no schema declared for state fluent")
		}
		out[f.Index] = schema.Default
	}
	for k, v := range values {
		f, ok := registry.LookupState(k.Name, splitArgs(k))
		if !ok {
			return nil, planerr.New(planerr.KindUndefinedReference, k.Name, "initial state assigns unground fluent")
		}
		out[f.Index] = v
	}
	return out, nil
}

// splitArgs recovers the argument slice from a fluent.Key's joined Args
// string; initial-state and non-fluent maps are built with fluent.NewKey
// so this mirrors that join exactly.
func splitArgs(k fluent.Key) []string {
	if k.Args == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(k.Args); i++ {
		if i == len(k.Args) || k.Args[i] == ',' {
			out = append(out, k.Args[start:i])
			start = i + 1
		}
	}
	return out
}

func objectNames(objs []*objects.Object) []string {
	out := make([]string, len(objs))
	for i, o := range objs {
		out[i] = o.Name
	}
	return out
}

// cartesianObjects computes the Cartesian product of the object domains
// of paramTypes, one domain per parameter, expanded through subtyping via
// universe.ObjectsOfType.
func cartesianObjects(universe *objects.Universe, paramTypes []string) ([][]*objects.Object, error) {
	if len(paramTypes) == 0 {
		return [][]*objects.Object{{}}, nil
	}
	domains := make([][]*objects.Object, len(paramTypes))
	for i, tn := range paramTypes {
		t, ok := universe.Type(tn)
		if !ok {
			return nil, planerr.New(planerr.KindUndefinedReference, tn, "undeclared parameter type")
		}
		domains[i] = universe.ObjectsOfType(t)
	}

	var out [][]*objects.Object
	var recurse func(i int, acc []*objects.Object)
	recurse = func(i int, acc []*objects.Object) {
		if i == len(domains) {
			cp := append([]*objects.Object(nil), acc...)
			out = append(out, cp)
			return
		}
		for _, o := range domains[i] {
			recurse(i+1, append(acc, o))
		}
	}
	recurse(0, nil)
	return out, nil
}

// instantiateSchemas creates one ground fluent per parameter tuple for
// every declared schema. Schemas without parameters
// get exactly one ground fluent.
func instantiateSchemas(universe *objects.Universe, registry *fluent.Registry) error {
	for name, s := range registry.Schemas {
		tuples, err := cartesianObjects(universe, s.ParamTypes)
		if err != nil {
			return err
		}
		for _, tuple := range tuples {
			names := objectNames(tuple)
			switch s.Kind {
			case fluent.StateFluentKind:
				registry.AddStateFluent(name, names)
			case fluent.ActionFluentKind:
				registry.AddActionFluent(name, names)
			case fluent.IntermFluentKind:
				registry.AddIntermFluent(name, names, s.Stratum)
			case fluent.NonFluentKind:
				registry.AddNonFluent(name, names, s.Default)
			default:
				return fmt.Errorf("grounder: schema %q has unknown kind", name)
			}
		}
	}
	return nil
}
