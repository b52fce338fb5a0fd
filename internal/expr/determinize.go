package expr

// DeterminizeMostLikely replaces Bernoulli(p) by (p >= 0.5) and
// Discrete{(v_i,p_i)} by a MultiConditionChecker whose i-th branch
// condition is "p_i >= p_j for all j != i" (ties go to the first
// candidate in declaration order) KronDelta
// unwraps to its argument. This traversal does not itself simplify the
// result; callers run Simplify once more afterward.
func DeterminizeMostLikely(n Node) Node {
	switch t := n.(type) {
	case Constant, ObjectRef, StateFluentRef, ActionFluentRef, ParamRef, VarCall:
		return n
	case Conjunction:
		return Conjunction{Children: determinizeAll(t.Children)}
	case Disjunction:
		return Disjunction{Children: determinizeAll(t.Children)}
	case Equals:
		return Equals{Children: determinizeAll(t.Children)}
	case Less:
		return Less{Left: DeterminizeMostLikely(t.Left), Right: DeterminizeMostLikely(t.Right)}
	case LessEq:
		return LessEq{Left: DeterminizeMostLikely(t.Left), Right: DeterminizeMostLikely(t.Right)}
	case Greater:
		return Greater{Left: DeterminizeMostLikely(t.Left), Right: DeterminizeMostLikely(t.Right)}
	case GreaterEq:
		return GreaterEq{Left: DeterminizeMostLikely(t.Left), Right: DeterminizeMostLikely(t.Right)}
	case Addition:
		return Addition{Children: determinizeAll(t.Children)}
	case Subtraction:
		return Subtraction{Children: determinizeAll(t.Children)}
	case Multiplication:
		return Multiplication{Children: determinizeAll(t.Children)}
	case Division:
		return Division{Left: DeterminizeMostLikely(t.Left), Right: DeterminizeMostLikely(t.Right)}
	case Negation:
		return Negation{Child: DeterminizeMostLikely(t.Child)}
	case Exponential:
		return Exponential{Child: DeterminizeMostLikely(t.Child)}
	case KronDelta:
		return DeterminizeMostLikely(t.Child)
	case Bernoulli:
		p := DeterminizeMostLikely(t.P)
		return GreaterEq{Left: p, Right: Constant{Value: 0.5}}
	case Discrete:
		branches := make([]Branch, len(t.Outcomes))
		for i, o := range t.Outcomes {
			pi := DeterminizeMostLikely(o.Prob)
			var geOthers []Node
			for j, other := range t.Outcomes {
				if j == i {
					continue
				}
				geOthers = append(geOthers, GreaterEq{Left: pi, Right: DeterminizeMostLikely(other.Prob)})
			}
			var cond Node
			if i == len(t.Outcomes)-1 {
				// Final branch condition is the constant 1 (ties break to
				// the first declared candidate, so the last outcome's
				// branch only needs to catch whatever remains).
				cond = Constant{Value: 1}
			} else if len(geOthers) == 0 {
				cond = Constant{Value: 1}
			} else {
				cond = Conjunction{Children: geOthers}
			}
			branches[i] = Branch{Cond: cond, Value: DeterminizeMostLikely(o.Value)}
		}
		return MultiConditionChecker{Branches: branches}
	case IfThenElse:
		return IfThenElse{
			Cond: DeterminizeMostLikely(t.Cond),
			Then: DeterminizeMostLikely(t.Then),
			Else: DeterminizeMostLikely(t.Else),
		}
	case MultiConditionChecker:
		branches := make([]Branch, len(t.Branches))
		for i, br := range t.Branches {
			branches[i] = Branch{Cond: DeterminizeMostLikely(br.Cond), Value: DeterminizeMostLikely(br.Value)}
		}
		return MultiConditionChecker{Branches: branches}
	default:
		return n
	}
}

func determinizeAll(nodes []Node) []Node {
	out := make([]Node, len(nodes))
	for i, c := range nodes {
		out[i] = DeterminizeMostLikely(c)
	}
	return out
}
