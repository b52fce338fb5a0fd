package expr

import "rddlplanner/internal/objects"

// VarCall is a schematic reference to a parametrized variable before
// grounding, e.g. `on(?x, ?y)`. Args are either parameter names (resolved
// via the replace map) or literal object names. Instantiate resolves
// every VarCall to a StateFluentRef, ActionFluentRef or Constant (for a
// non-fluent, whose value is already known) via Resolver.
type VarCall struct {
	Name string
	Args []string
}

func (VarCall) node() {}

// Resolver looks up the ground fluent (or non-fluent constant) denoted by
// a schematic variable call once its parameters have been substituted by
// concrete object names. Implemented by the grounder, which owns the
// name->index registries; kept as an interface here so expr has no
// dependency on the grounder or fluent packages (no import cycle).
type Resolver interface {
	ResolveVar(name string, objArgs []string) (Node, error)
}

// ReplaceMap binds schematic parameter names to concrete objects for one
// instantiation pass.
type ReplaceMap map[string]*objects.Object

// Merge returns a new ReplaceMap containing both m and additions, with
// additions taking precedence on key collision (used when quantifier
// elimination nests a new binding inside a caller's existing map).
func (m ReplaceMap) Merge(additions ReplaceMap) ReplaceMap {
	out := make(ReplaceMap, len(m)+len(additions))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range additions {
		out[k] = v
	}
	return out
}

// Instantiate substitutes parameters by objects per replace and eliminates
// any quantifiers found in n by expanding them into the corresponding
// n-ary connective over every replacement map from the quantifier's
// parameters to objects of the quantifier's declared types, merging
// each binding into the caller's replace map as it recurses. VarCall
// nodes are resolved via resolver once fully substituted. Instantiate
// never mutates n and returns a new tree.
func Instantiate(n Node, replace ReplaceMap, resolver Resolver, universe *objects.Universe) (Node, error) {
	switch t := n.(type) {
	case Constant, StateFluentRef, ActionFluentRef:
		return n, nil
	case ObjectRef:
		return Constant{Value: t.Value}, nil
	case ParamRef:
		obj, ok := replace[t.Name]
		if !ok {
			return nil, &unresolvedParamError{Name: t.Name}
		}
		return Constant{Value: float64(obj.Index)}, nil
	case VarCall:
		args := make([]string, len(t.Args))
		for i, a := range t.Args {
			if obj, ok := replace[a]; ok {
				args[i] = obj.Name
			} else {
				args[i] = a // already a literal object name
			}
		}
		return resolver.ResolveVar(t.Name, args)
	case Conjunction:
		children, err := instantiateAll(t.Children, replace, resolver, universe)
		return Conjunction{Children: children}, err
	case Disjunction:
		children, err := instantiateAll(t.Children, replace, resolver, universe)
		return Disjunction{Children: children}, err
	case Equals:
		children, err := instantiateAll(t.Children, replace, resolver, universe)
		return Equals{Children: children}, err
	case Less:
		return instantiateBinary(t.Left, t.Right, replace, resolver, universe, func(l, r Node) Node { return Less{l, r} })
	case LessEq:
		return instantiateBinary(t.Left, t.Right, replace, resolver, universe, func(l, r Node) Node { return LessEq{l, r} })
	case Greater:
		return instantiateBinary(t.Left, t.Right, replace, resolver, universe, func(l, r Node) Node { return Greater{l, r} })
	case GreaterEq:
		return instantiateBinary(t.Left, t.Right, replace, resolver, universe, func(l, r Node) Node { return GreaterEq{l, r} })
	case Addition:
		children, err := instantiateAll(t.Children, replace, resolver, universe)
		return Addition{Children: children}, err
	case Subtraction:
		children, err := instantiateAll(t.Children, replace, resolver, universe)
		return Subtraction{Children: children}, err
	case Multiplication:
		children, err := instantiateAll(t.Children, replace, resolver, universe)
		return Multiplication{Children: children}, err
	case Division:
		return instantiateBinary(t.Left, t.Right, replace, resolver, universe, func(l, r Node) Node { return Division{l, r} })
	case Negation:
		child, err := Instantiate(t.Child, replace, resolver, universe)
		return Negation{Child: child}, err
	case Exponential:
		child, err := Instantiate(t.Child, replace, resolver, universe)
		return Exponential{Child: child}, err
	case KronDelta:
		child, err := Instantiate(t.Child, replace, resolver, universe)
		return KronDelta{Child: child}, err
	case Bernoulli:
		p, err := Instantiate(t.P, replace, resolver, universe)
		return Bernoulli{P: p}, err
	case Discrete:
		outcomes := make([]DiscreteOutcome, len(t.Outcomes))
		for i, o := range t.Outcomes {
			v, err := Instantiate(o.Value, replace, resolver, universe)
			if err != nil {
				return nil, err
			}
			p, err := Instantiate(o.Prob, replace, resolver, universe)
			if err != nil {
				return nil, err
			}
			outcomes[i] = DiscreteOutcome{Value: v, Prob: p}
		}
		return Discrete{Outcomes: outcomes}, nil
	case IfThenElse:
		cond, err := Instantiate(t.Cond, replace, resolver, universe)
		if err != nil {
			return nil, err
		}
		then, err := Instantiate(t.Then, replace, resolver, universe)
		if err != nil {
			return nil, err
		}
		els, err := Instantiate(t.Else, replace, resolver, universe)
		return IfThenElse{Cond: cond, Then: then, Else: els}, err
	case MultiConditionChecker:
		branches := make([]Branch, len(t.Branches))
		for i, br := range t.Branches {
			cond, err := Instantiate(br.Cond, replace, resolver, universe)
			if err != nil {
				return nil, err
			}
			val, err := Instantiate(br.Value, replace, resolver, universe)
			if err != nil {
				return nil, err
			}
			branches[i] = Branch{Cond: cond, Value: val}
		}
		return MultiConditionChecker{Branches: branches}, nil
	case Sum:
		children, err := expandQuantifier(t.ParamNames, t.ParamTypes, t.Body, replace, resolver, universe)
		return Addition{Children: children}, err
	case Product:
		children, err := expandQuantifier(t.ParamNames, t.ParamTypes, t.Body, replace, resolver, universe)
		return Multiplication{Children: children}, err
	case Forall:
		children, err := expandQuantifier(t.ParamNames, t.ParamTypes, t.Body, replace, resolver, universe)
		return Conjunction{Children: children}, err
	case Exists:
		children, err := expandQuantifier(t.ParamNames, t.ParamTypes, t.Body, replace, resolver, universe)
		return Disjunction{Children: children}, err
	default:
		panic("expr: Instantiate: unhandled node type")
	}
}

// expandQuantifier produces one instantiated copy of body per element of
// the cartesian product of the named parameters' object domains (each
// parameter's domain is its declared type expanded leaf-to-root),
// merging each combination into replace before recursing.
func expandQuantifier(
	paramNames, paramTypes []string,
	body Node,
	replace ReplaceMap,
	resolver Resolver,
	universe *objects.Universe,
) ([]Node, error) {
	domains := make([][]*objects.Object, len(paramNames))
	for i, typeName := range paramTypes {
		t, ok := universe.Type(typeName)
		if !ok {
			return nil, &unresolvedParamError{Name: typeName}
		}
		domains[i] = universe.ObjectsOfType(t)
	}

	var out []Node
	var recurse func(i int, extra ReplaceMap) error
	recurse = func(i int, extra ReplaceMap) error {
		if i == len(paramNames) {
			merged := replace.Merge(extra)
			inst, err := Instantiate(body, merged, resolver, universe)
			if err != nil {
				return err
			}
			out = append(out, inst)
			return nil
		}
		for _, obj := range domains[i] {
			next := extra.Merge(ReplaceMap{paramNames[i]: obj})
			if err := recurse(i+1, next); err != nil {
				return err
			}
		}
		return nil
	}
	if err := recurse(0, ReplaceMap{}); err != nil {
		return nil, err
	}
	return out, nil
}

func instantiateAll(nodes []Node, replace ReplaceMap, resolver Resolver, universe *objects.Universe) ([]Node, error) {
	out := make([]Node, len(nodes))
	for i, c := range nodes {
		inst, err := Instantiate(c, replace, resolver, universe)
		if err != nil {
			return nil, err
		}
		out[i] = inst
	}
	return out, nil
}

func instantiateBinary(l, r Node, replace ReplaceMap, resolver Resolver, universe *objects.Universe, build func(l, r Node) Node) (Node, error) {
	li, err := Instantiate(l, replace, resolver, universe)
	if err != nil {
		return nil, err
	}
	ri, err := Instantiate(r, replace, resolver, universe)
	if err != nil {
		return nil, err
	}
	return build(li, ri), nil
}

type unresolvedParamError struct{ Name string }

func (e *unresolvedParamError) Error() string {
	return "expr: unresolved parameter or type " + e.Name
}
