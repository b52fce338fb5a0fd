package expr

// RemapStateFluentIndices rewrites every StateFluentRef in n according to
// remap (old index -> new index), leaving every other node unchanged.
// Used by the compiler after it reorders state fluents so that
// deterministic ones precede probabilistic ones: formulas
// captured before the reorder still carry the old indices and must be
// rewritten once, structurally, rather than re-grounded.
func RemapStateFluentIndices(n Node, remap map[int]int) Node {
	switch t := n.(type) {
	case Constant, ObjectRef, ActionFluentRef, ParamRef, VarCall:
		return n
	case StateFluentRef:
		if nu, ok := remap[t.Index]; ok {
			return StateFluentRef{Index: nu, Name: t.Name}
		}
		return t
	case Conjunction:
		return Conjunction{Children: remapAll(t.Children, remap)}
	case Disjunction:
		return Disjunction{Children: remapAll(t.Children, remap)}
	case Equals:
		return Equals{Children: remapAll(t.Children, remap)}
	case Less:
		return Less{Left: RemapStateFluentIndices(t.Left, remap), Right: RemapStateFluentIndices(t.Right, remap)}
	case LessEq:
		return LessEq{Left: RemapStateFluentIndices(t.Left, remap), Right: RemapStateFluentIndices(t.Right, remap)}
	case Greater:
		return Greater{Left: RemapStateFluentIndices(t.Left, remap), Right: RemapStateFluentIndices(t.Right, remap)}
	case GreaterEq:
		return GreaterEq{Left: RemapStateFluentIndices(t.Left, remap), Right: RemapStateFluentIndices(t.Right, remap)}
	case Addition:
		return Addition{Children: remapAll(t.Children, remap)}
	case Subtraction:
		return Subtraction{Children: remapAll(t.Children, remap)}
	case Multiplication:
		return Multiplication{Children: remapAll(t.Children, remap)}
	case Division:
		return Division{Left: RemapStateFluentIndices(t.Left, remap), Right: RemapStateFluentIndices(t.Right, remap)}
	case Negation:
		return Negation{Child: RemapStateFluentIndices(t.Child, remap)}
	case Exponential:
		return Exponential{Child: RemapStateFluentIndices(t.Child, remap)}
	case KronDelta:
		return KronDelta{Child: RemapStateFluentIndices(t.Child, remap)}
	case Bernoulli:
		return Bernoulli{P: RemapStateFluentIndices(t.P, remap)}
	case Discrete:
		outcomes := make([]DiscreteOutcome, len(t.Outcomes))
		for i, o := range t.Outcomes {
			outcomes[i] = DiscreteOutcome{
				Value: RemapStateFluentIndices(o.Value, remap),
				Prob:  RemapStateFluentIndices(o.Prob, remap),
			}
		}
		return Discrete{Outcomes: outcomes}
	case IfThenElse:
		return IfThenElse{
			Cond: RemapStateFluentIndices(t.Cond, remap),
			Then: RemapStateFluentIndices(t.Then, remap),
			Else: RemapStateFluentIndices(t.Else, remap),
		}
	case MultiConditionChecker:
		branches := make([]Branch, len(t.Branches))
		for i, br := range t.Branches {
			branches[i] = Branch{Cond: RemapStateFluentIndices(br.Cond, remap), Value: RemapStateFluentIndices(br.Value, remap)}
		}
		return MultiConditionChecker{Branches: branches}
	default:
		return n
	}
}

func remapAll(nodes []Node, remap map[int]int) []Node {
	out := make([]Node, len(nodes))
	for i, c := range nodes {
		out[i] = RemapStateFluentIndices(c, remap)
	}
	return out
}
