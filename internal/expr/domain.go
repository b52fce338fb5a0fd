package expr

// CalculateDomain propagates the finite value domains of state fluents
// (indexed as in State) bottom-up through n, returning the domain of n's
// value. Action fluents are always boolean ({0,1}); Boolean connectives
// and comparisons yield subsets of {0,1}; arithmetic yields the pointwise
// combination of operand domains. Domains are
// represented as sorted sets (expr.Domain).
func CalculateDomain(n Node, stateDomains []Domain) Domain {
	switch t := n.(type) {
	case Constant:
		return NewDomain(t.Value)
	case ObjectRef:
		return NewDomain(t.Value)
	case StateFluentRef:
		return stateDomains[t.Index]
	case ActionFluentRef:
		return NewDomain(0, 1)
	case KronDelta:
		return CalculateDomain(t.Child, stateDomains)
	case Bernoulli:
		return NewDomain(0, 1)
	case Discrete:
		var out Domain
		for _, o := range t.Outcomes {
			out = out.Union(CalculateDomain(o.Value, stateDomains))
		}
		return out
	case Conjunction:
		out := NewDomain(1)
		for _, c := range t.Children {
			out = combineDomain(out, CalculateDomain(c, stateDomains), func(x, y float64) float64 {
				return boolOf(isTrue(x) && isTrue(y))
			})
		}
		return out
	case Disjunction:
		out := NewDomain(0)
		for _, c := range t.Children {
			out = combineDomain(out, CalculateDomain(c, stateDomains), func(x, y float64) float64 {
				return boolOf(isTrue(x) || isTrue(y))
			})
		}
		return out
	case Equals:
		return NewDomain(0, 1)
	case Less, LessEq, Greater, GreaterEq:
		return NewDomain(0, 1)
	case Addition:
		out := NewDomain(0)
		for _, c := range t.Children {
			out = combineDomain(out, CalculateDomain(c, stateDomains), func(x, y float64) float64 { return x + y })
		}
		return out
	case Subtraction:
		if len(t.Children) == 0 {
			return NewDomain(0)
		}
		out := CalculateDomain(t.Children[0], stateDomains)
		for _, c := range t.Children[1:] {
			out = combineDomain(out, CalculateDomain(c, stateDomains), func(x, y float64) float64 { return x - y })
		}
		return out
	case Multiplication:
		out := NewDomain(1)
		for _, c := range t.Children {
			out = combineDomain(out, CalculateDomain(c, stateDomains), func(x, y float64) float64 { return x * y })
		}
		return out
	case Division:
		return combineDomain(CalculateDomain(t.Left, stateDomains), CalculateDomain(t.Right, stateDomains), func(x, y float64) float64 { return x / y })
	case Negation:
		inner := CalculateDomain(t.Child, stateDomains)
		out := make([]float64, len(inner))
		for i, v := range inner {
			out[i] = -v
		}
		return NewDomain(out...)
	case Exponential:
		inner := CalculateDomain(t.Child, stateDomains)
		out := make([]float64, len(inner))
		for i, v := range inner {
			out[i] = expOf(v)
		}
		return NewDomain(out...)
	case IfThenElse:
		return CalculateDomain(t.Then, stateDomains).Union(CalculateDomain(t.Else, stateDomains))
	case MultiConditionChecker:
		var out Domain
		for _, br := range t.Branches {
			out = out.Union(CalculateDomain(br.Value, stateDomains))
		}
		return out
	default:
		return nil
	}
}
