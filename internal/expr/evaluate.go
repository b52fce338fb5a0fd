package expr

import "fmt"

// Evaluate computes the deterministic value of n under state s and action a.
// Probabilistic atoms are not valid here except via their degenerate forms;
// callers evaluating a CPF's probabilistic formula deterministically must
// first run DeterminizeMostLikely. KronDelta is
// always safe (it is degenerate by definition).
func Evaluate(n Node, s State, a Action) float64 {
	switch t := n.(type) {
	case Constant:
		return t.Value
	case ObjectRef:
		return t.Value
	case StateFluentRef:
		return s[t.Index]
	case ActionFluentRef:
		if a[t.Index] {
			return 1.0
		}
		return 0.0
	case Conjunction:
		for _, c := range t.Children {
			if !isTrue(Evaluate(c, s, a)) {
				return 0.0
			}
		}
		return 1.0
	case Disjunction:
		for _, c := range t.Children {
			if isTrue(Evaluate(c, s, a)) {
				return 1.0
			}
		}
		return 0.0
	case Equals:
		first := Evaluate(t.Children[0], s, a)
		for _, c := range t.Children[1:] {
			if Evaluate(c, s, a) != first {
				return 0.0
			}
		}
		return 1.0
	case Less:
		return boolOf(Evaluate(t.Left, s, a) < Evaluate(t.Right, s, a))
	case LessEq:
		return boolOf(Evaluate(t.Left, s, a) <= Evaluate(t.Right, s, a))
	case Greater:
		return boolOf(Evaluate(t.Left, s, a) > Evaluate(t.Right, s, a))
	case GreaterEq:
		return boolOf(Evaluate(t.Left, s, a) >= Evaluate(t.Right, s, a))
	case Addition:
		sum := 0.0
		for _, c := range t.Children {
			sum += Evaluate(c, s, a)
		}
		return sum
	case Subtraction:
		val := Evaluate(t.Children[0], s, a)
		for _, c := range t.Children[1:] {
			val -= Evaluate(c, s, a)
		}
		return val
	case Multiplication:
		prod := 1.0
		for _, c := range t.Children {
			prod *= Evaluate(c, s, a)
		}
		return prod
	case Division:
		return Evaluate(t.Left, s, a) / Evaluate(t.Right, s, a)
	case Negation:
		return -Evaluate(t.Child, s, a)
	case Exponential:
		return expOf(Evaluate(t.Child, s, a))
	case KronDelta:
		return Evaluate(t.Child, s, a)
	case IfThenElse:
		if isTrue(Evaluate(t.Cond, s, a)) {
			return Evaluate(t.Then, s, a)
		}
		return Evaluate(t.Else, s, a)
	case MultiConditionChecker:
		for _, br := range t.Branches {
			if isTrue(Evaluate(br.Cond, s, a)) {
				return Evaluate(br.Value, s, a)
			}
		}
		panic("expr: no branch of MultiConditionChecker evaluated true (final branch must be constant 1)")
	case Bernoulli, Discrete:
		panic(fmt.Sprintf("expr: Evaluate called on probabilistic node %T; determinize first", n))
	default:
		panic(fmt.Sprintf("expr: Evaluate: unhandled node type %T", n))
	}
}

func expOf(x float64) float64 {
	// local to avoid importing math in every file that needs a one-liner;
	// kept here since Exponential is the only consumer.
	return mathExp(x)
}

// EvaluateToPD computes the discrete probability distribution of n's value
// under deterministic current state s and action a. Deterministic
// subexpressions contribute degenerate distributions; Bernoulli/Discrete
// introduce real mass splits; connectives convolve their children's PDs.
func EvaluateToPD(n Node, s State, a Action) PD {
	switch t := n.(type) {
	case Constant:
		return Degenerate(t.Value)
	case ObjectRef:
		return Degenerate(t.Value)
	case StateFluentRef:
		return Degenerate(s[t.Index])
	case ActionFluentRef:
		return Degenerate(boolOf(a[t.Index]))
	case KronDelta:
		return EvaluateToPD(t.Child, s, a)
	case Bernoulli:
		p := EvaluateToPD(t.P, s, a).Value()
		if p <= 0 {
			return Degenerate(0)
		}
		if p >= 1 {
			return Degenerate(1)
		}
		return mergePD([]float64{0, 1}, []float64{1 - p, p})
	case Discrete:
		values := make([]float64, len(t.Outcomes))
		probs := make([]float64, len(t.Outcomes))
		for i, o := range t.Outcomes {
			values[i] = EvaluateToPD(o.Value, s, a).Value()
			probs[i] = EvaluateToPD(o.Prob, s, a).Value()
		}
		return mergePD(values, probs)
	case Conjunction:
		return foldPD(t.Children, s, a, 1.0, func(acc, v float64) float64 {
			if !isTrue(acc) || !isTrue(v) {
				return 0.0
			}
			return 1.0
		})
	case Disjunction:
		return foldPD(t.Children, s, a, 0.0, func(acc, v float64) float64 {
			return boolOf(isTrue(acc) || isTrue(v))
		})
	case Equals:
		return chainPD(t.Children, s, a, func(x, y float64) float64 { return boolOf(x == y) })
	case Less:
		return combinePD(EvaluateToPD(t.Left, s, a), EvaluateToPD(t.Right, s, a), func(x, y float64) float64 { return boolOf(x < y) })
	case LessEq:
		return combinePD(EvaluateToPD(t.Left, s, a), EvaluateToPD(t.Right, s, a), func(x, y float64) float64 { return boolOf(x <= y) })
	case Greater:
		return combinePD(EvaluateToPD(t.Left, s, a), EvaluateToPD(t.Right, s, a), func(x, y float64) float64 { return boolOf(x > y) })
	case GreaterEq:
		return combinePD(EvaluateToPD(t.Left, s, a), EvaluateToPD(t.Right, s, a), func(x, y float64) float64 { return boolOf(x >= y) })
	case Addition:
		return foldPD(t.Children, s, a, 0.0, func(acc, v float64) float64 { return acc + v })
	case Subtraction:
		if len(t.Children) == 0 {
			return Degenerate(0)
		}
		result := EvaluateToPD(t.Children[0], s, a)
		for _, c := range t.Children[1:] {
			result = combinePD(result, EvaluateToPD(c, s, a), func(x, y float64) float64 { return x - y })
		}
		return result
	case Multiplication:
		return foldPD(t.Children, s, a, 1.0, func(acc, v float64) float64 { return acc * v })
	case Division:
		return combinePD(EvaluateToPD(t.Left, s, a), EvaluateToPD(t.Right, s, a), func(x, y float64) float64 { return x / y })
	case Negation:
		inner := EvaluateToPD(t.Child, s, a)
		values := make([]float64, len(inner.Values))
		for i, v := range inner.Values {
			values[i] = -v
		}
		return mergePD(values, inner.Probs)
	case Exponential:
		inner := EvaluateToPD(t.Child, s, a)
		values := make([]float64, len(inner.Values))
		for i, v := range inner.Values {
			values[i] = expOf(v)
		}
		return mergePD(values, inner.Probs)
	case IfThenElse:
		condPD := EvaluateToPD(t.Cond, s, a)
		if condPD.IsDegenerate() {
			if isTrue(condPD.Value()) {
				return EvaluateToPD(t.Then, s, a)
			}
			return EvaluateToPD(t.Else, s, a)
		}
		// Condition itself is uncertain: mix the two branches by the
		// condition's probability mass on true vs false.
		pTrue := 0.0
		for i, v := range condPD.Values {
			if isTrue(v) {
				pTrue += condPD.Probs[i]
			}
		}
		return mixPD(EvaluateToPD(t.Then, s, a), EvaluateToPD(t.Else, s, a), pTrue)
	case MultiConditionChecker:
		return evalMultiConditionPD(t.Branches, s, a)
	default:
		panic(fmt.Sprintf("expr: EvaluateToPD: unhandled node type %T", n))
	}
}

func evalMultiConditionPD(branches []Branch, s State, a Action) PD {
	if len(branches) == 0 {
		panic("expr: empty MultiConditionChecker")
	}
	condPD := EvaluateToPD(branches[0].Cond, s, a)
	if condPD.IsDegenerate() {
		if isTrue(condPD.Value()) {
			return EvaluateToPD(branches[0].Value, s, a)
		}
		return evalMultiConditionPD(branches[1:], s, a)
	}
	pTrue := 0.0
	for i, v := range condPD.Values {
		if isTrue(v) {
			pTrue += condPD.Probs[i]
		}
	}
	thenPD := EvaluateToPD(branches[0].Value, s, a)
	elsePD := evalMultiConditionPD(branches[1:], s, a)
	return mixPD(thenPD, elsePD, pTrue)
}

func mixPD(thenPD, elsePD PD, pTrue float64) PD {
	values := append(append([]float64(nil), thenPD.Values...), elsePD.Values...)
	probs := make([]float64, 0, len(values))
	for _, p := range thenPD.Probs {
		probs = append(probs, p*pTrue)
	}
	for _, p := range elsePD.Probs {
		probs = append(probs, p*(1-pTrue))
	}
	return mergePD(values, probs)
}

func foldPD(children []Node, s State, a Action, identity float64, op func(acc, v float64) float64) PD {
	acc := Degenerate(identity)
	for _, c := range children {
		acc = combinePD(acc, EvaluateToPD(c, s, a), op)
	}
	return acc
}

func chainPD(children []Node, s State, a Action, pairEq func(x, y float64) float64) PD {
	if len(children) < 2 {
		return Degenerate(1)
	}
	result := Degenerate(1.0)
	first := EvaluateToPD(children[0], s, a)
	for _, c := range children[1:] {
		result = combinePD(result, combinePD(first, EvaluateToPD(c, s, a), pairEq), func(acc, eq float64) float64 {
			if !isTrue(acc) || !isTrue(eq) {
				return 0
			}
			return 1
		})
	}
	return result
}

// EvaluateToKleene computes the possible-value set of n given a Kleene
// (three-valued) current state and a deterministic action. This is used
// for reward-lock detection: a sound over-approximation
// of "any of these values is possible".
func EvaluateToKleene(n Node, ks KleeneState, a Action) Domain {
	switch t := n.(type) {
	case Constant:
		return NewDomain(t.Value)
	case ObjectRef:
		return NewDomain(t.Value)
	case StateFluentRef:
		return ks[t.Index]
	case ActionFluentRef:
		return NewDomain(boolOf(a[t.Index]))
	case KronDelta:
		return EvaluateToKleene(t.Child, ks, a)
	case Bernoulli:
		return NewDomain(0, 1)
	case Discrete:
		var out Domain
		for _, o := range t.Outcomes {
			out = out.Union(EvaluateToKleene(o.Value, ks, a))
		}
		return out
	case Conjunction:
		out := NewDomain(1)
		for _, c := range t.Children {
			out = combineDomain(out, EvaluateToKleene(c, ks, a), func(x, y float64) float64 {
				return boolOf(isTrue(x) && isTrue(y))
			})
		}
		return out
	case Disjunction:
		out := NewDomain(0)
		for _, c := range t.Children {
			out = combineDomain(out, EvaluateToKleene(c, ks, a), func(x, y float64) float64 {
				return boolOf(isTrue(x) || isTrue(y))
			})
		}
		return out
	case Equals:
		return chainKleene(t.Children, ks, a, func(x, y float64) float64 { return boolOf(x == y) })
	case Less:
		return combineDomain(EvaluateToKleene(t.Left, ks, a), EvaluateToKleene(t.Right, ks, a), func(x, y float64) float64 { return boolOf(x < y) })
	case LessEq:
		return combineDomain(EvaluateToKleene(t.Left, ks, a), EvaluateToKleene(t.Right, ks, a), func(x, y float64) float64 { return boolOf(x <= y) })
	case Greater:
		return combineDomain(EvaluateToKleene(t.Left, ks, a), EvaluateToKleene(t.Right, ks, a), func(x, y float64) float64 { return boolOf(x > y) })
	case GreaterEq:
		return combineDomain(EvaluateToKleene(t.Left, ks, a), EvaluateToKleene(t.Right, ks, a), func(x, y float64) float64 { return boolOf(x >= y) })
	case Addition:
		out := NewDomain(0)
		for _, c := range t.Children {
			out = combineDomain(out, EvaluateToKleene(c, ks, a), func(x, y float64) float64 { return x + y })
		}
		return out
	case Subtraction:
		if len(t.Children) == 0 {
			return NewDomain(0)
		}
		out := EvaluateToKleene(t.Children[0], ks, a)
		for _, c := range t.Children[1:] {
			out = combineDomain(out, EvaluateToKleene(c, ks, a), func(x, y float64) float64 { return x - y })
		}
		return out
	case Multiplication:
		out := NewDomain(1)
		for _, c := range t.Children {
			out = combineDomain(out, EvaluateToKleene(c, ks, a), func(x, y float64) float64 { return x * y })
		}
		return out
	case Division:
		return combineDomain(EvaluateToKleene(t.Left, ks, a), EvaluateToKleene(t.Right, ks, a), func(x, y float64) float64 { return x / y })
	case Negation:
		inner := EvaluateToKleene(t.Child, ks, a)
		out := make([]float64, len(inner))
		for i, v := range inner {
			out[i] = -v
		}
		return NewDomain(out...)
	case Exponential:
		inner := EvaluateToKleene(t.Child, ks, a)
		out := make([]float64, len(inner))
		for i, v := range inner {
			out[i] = expOf(v)
		}
		return NewDomain(out...)
	case IfThenElse:
		condDom := EvaluateToKleene(t.Cond, ks, a)
		var out Domain
		if condDom.Contains(1) {
			out = out.Union(EvaluateToKleene(t.Then, ks, a))
		}
		if condDom.Contains(0) {
			out = out.Union(EvaluateToKleene(t.Else, ks, a))
		}
		return out
	case MultiConditionChecker:
		return evalMultiConditionKleene(t.Branches, ks, a)
	default:
		panic(fmt.Sprintf("expr: EvaluateToKleene: unhandled node type %T", n))
	}
}

func evalMultiConditionKleene(branches []Branch, ks KleeneState, a Action) Domain {
	if len(branches) == 0 {
		panic("expr: empty MultiConditionChecker")
	}
	condDom := EvaluateToKleene(branches[0].Cond, ks, a)
	var out Domain
	if condDom.Contains(1) {
		out = out.Union(EvaluateToKleene(branches[0].Value, ks, a))
	}
	if condDom.Contains(0) {
		out = out.Union(evalMultiConditionKleene(branches[1:], ks, a))
	}
	return out
}

func chainKleene(children []Node, ks KleeneState, a Action, pairEq func(x, y float64) float64) Domain {
	if len(children) < 2 {
		return NewDomain(1)
	}
	result := NewDomain(1)
	first := EvaluateToKleene(children[0], ks, a)
	for _, c := range children[1:] {
		eq := combineDomain(first, EvaluateToKleene(c, ks, a), pairEq)
		result = combineDomain(result, eq, func(acc, v float64) float64 {
			return boolOf(isTrue(acc) && isTrue(v))
		})
	}
	return result
}
