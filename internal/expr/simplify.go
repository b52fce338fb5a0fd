package expr

// KnownConstants maps a ground state-fluent index to the constant value
// the simplifier/determiniser has already proven it takes, populated as
// CPFs collapse to a numeric constant during the fixpoint loop
// (initially empty).
type KnownConstants map[int]float64

// Simplify constant-folds n, flattens associative operators (addition,
// multiplication, conjunction, disjunction), exploits short-circuits (0 in
// x, false in conjunction, true in disjunction) and rewrites the two
// canonical conditional patterns:
//
//	if c then 1 else 0       -> c
//	if c then x else (if c2 then y else ...) -> MultiConditionChecker
//
// It returns either n itself (when nothing could be folded) or a new
// node; it reports nothing beyond the returned node. known supplies state
// fluents already proven constant.
func Simplify(n Node, known KnownConstants) Node {
	switch t := n.(type) {
	case Constant, ObjectRef, ActionFluentRef:
		return n
	case StateFluentRef:
		if v, ok := known[t.Index]; ok {
			return Constant{Value: v}
		}
		return n
	case Conjunction:
		return simplifyConjunction(t, known)
	case Disjunction:
		return simplifyDisjunction(t, known)
	case Equals:
		children := simplifyAll(t.Children, known)
		if allConstant(children) {
			first := children[0].(Constant).Value
			for _, c := range children[1:] {
				if c.(Constant).Value != first {
					return Constant{Value: 0}
				}
			}
			return Constant{Value: 1}
		}
		return Equals{Children: children}
	case Less:
		return simplifyCompare(t.Left, t.Right, known, func(x, y float64) bool { return x < y }, func(l, r Node) Node { return Less{l, r} })
	case LessEq:
		return simplifyCompare(t.Left, t.Right, known, func(x, y float64) bool { return x <= y }, func(l, r Node) Node { return LessEq{l, r} })
	case Greater:
		return simplifyCompare(t.Left, t.Right, known, func(x, y float64) bool { return x > y }, func(l, r Node) Node { return Greater{l, r} })
	case GreaterEq:
		return simplifyCompare(t.Left, t.Right, known, func(x, y float64) bool { return x >= y }, func(l, r Node) Node { return GreaterEq{l, r} })
	case Addition:
		return simplifyAddition(t, known)
	case Subtraction:
		return simplifySubtraction(t, known)
	case Multiplication:
		return simplifyMultiplication(t, known)
	case Division:
		l := Simplify(t.Left, known)
		r := Simplify(t.Right, known)
		if lc, ok := l.(Constant); ok {
			if rc, ok := r.(Constant); ok {
				return Constant{Value: lc.Value / rc.Value}
			}
		}
		return Division{Left: l, Right: r}
	case Negation:
		child := Simplify(t.Child, known)
		if c, ok := child.(Constant); ok {
			return Constant{Value: -c.Value}
		}
		return Negation{Child: child}
	case Exponential:
		child := Simplify(t.Child, known)
		if c, ok := child.(Constant); ok {
			return Constant{Value: expOf(c.Value)}
		}
		return Exponential{Child: child}
	case KronDelta:
		return KronDelta{Child: Simplify(t.Child, known)}
	case Bernoulli:
		p := Simplify(t.P, known)
		if c, ok := p.(Constant); ok {
			// A degenerate Bernoulli is itself a constant.
			if c.Value <= 0 {
				return Constant{Value: 0}
			}
			if c.Value >= 1 {
				return Constant{Value: 1}
			}
		}
		return Bernoulli{P: p}
	case Discrete:
		outcomes := make([]DiscreteOutcome, len(t.Outcomes))
		for i, o := range t.Outcomes {
			outcomes[i] = DiscreteOutcome{Value: Simplify(o.Value, known), Prob: Simplify(o.Prob, known)}
		}
		return Discrete{Outcomes: outcomes}
	case IfThenElse:
		return simplifyIfThenElse(t, known)
	case MultiConditionChecker:
		branches := make([]Branch, len(t.Branches))
		for i, br := range t.Branches {
			branches[i] = Branch{Cond: Simplify(br.Cond, known), Value: Simplify(br.Value, known)}
		}
		return collapseMultiCondition(branches)
	default:
		return n
	}
}

func simplifyAll(nodes []Node, known KnownConstants) []Node {
	out := make([]Node, len(nodes))
	for i, c := range nodes {
		out[i] = Simplify(c, known)
	}
	return out
}

func allConstant(nodes []Node) bool {
	for _, n := range nodes {
		if _, ok := n.(Constant); !ok {
			return false
		}
	}
	return true
}

func simplifyConjunction(t Conjunction, known KnownConstants) Node {
	var flat []Node
	for _, c := range t.Children {
		sc := Simplify(c, known)
		if cst, ok := sc.(Constant); ok {
			if !isTrue(cst.Value) {
				return Constant{Value: 0} // short circuit: false in conjunction
			}
			continue // drop true constants
		}
		if inner, ok := sc.(Conjunction); ok {
			flat = append(flat, inner.Children...) // flatten nested conjunctions
		} else {
			flat = append(flat, sc)
		}
	}
	if len(flat) == 0 {
		return Constant{Value: 1}
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return Conjunction{Children: flat}
}

func simplifyDisjunction(t Disjunction, known KnownConstants) Node {
	var flat []Node
	for _, c := range t.Children {
		sc := Simplify(c, known)
		if cst, ok := sc.(Constant); ok {
			if isTrue(cst.Value) {
				return Constant{Value: 1} // short circuit: true in disjunction
			}
			continue // drop false constants
		}
		if inner, ok := sc.(Disjunction); ok {
			flat = append(flat, inner.Children...)
		} else {
			flat = append(flat, sc)
		}
	}
	if len(flat) == 0 {
		return Constant{Value: 0}
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return Disjunction{Children: flat}
}

func simplifyAddition(t Addition, known KnownConstants) Node {
	var flat []Node
	sum := 0.0
	haveConst := false
	for _, c := range t.Children {
		sc := Simplify(c, known)
		if cst, ok := sc.(Constant); ok {
			sum += cst.Value
			haveConst = true
			continue
		}
		if inner, ok := sc.(Addition); ok {
			flat = append(flat, inner.Children...)
		} else {
			flat = append(flat, sc)
		}
	}
	if haveConst && sum != 0 {
		flat = append(flat, Constant{Value: sum})
	}
	if len(flat) == 0 {
		return Constant{Value: sum}
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return Addition{Children: flat}
}

func simplifySubtraction(t Subtraction, known KnownConstants) Node {
	children := simplifyAll(t.Children, known)
	if len(children) == 0 {
		return Constant{Value: 0}
	}
	if allConstant(children) {
		val := children[0].(Constant).Value
		for _, c := range children[1:] {
			val -= c.(Constant).Value
		}
		return Constant{Value: val}
	}
	return Subtraction{Children: children}
}

func simplifyMultiplication(t Multiplication, known KnownConstants) Node {
	var flat []Node
	prod := 1.0
	haveConst := false
	for _, c := range t.Children {
		sc := Simplify(c, known)
		if cst, ok := sc.(Constant); ok {
			if cst.Value == 0 {
				return Constant{Value: 0} // short circuit: 0 in multiplication
			}
			prod *= cst.Value
			haveConst = true
			continue
		}
		if inner, ok := sc.(Multiplication); ok {
			flat = append(flat, inner.Children...)
		} else {
			flat = append(flat, sc)
		}
	}
	if haveConst && prod != 1 {
		flat = append(flat, Constant{Value: prod})
	}
	if len(flat) == 0 {
		return Constant{Value: prod}
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return Multiplication{Children: flat}
}

func simplifyCompare(l, r Node, known KnownConstants, cmp func(x, y float64) bool, build func(l, r Node) Node) Node {
	ls := Simplify(l, known)
	rs := Simplify(r, known)
	if lc, ok := ls.(Constant); ok {
		if rc, ok := rs.(Constant); ok {
			return Constant{Value: boolOf(cmp(lc.Value, rc.Value))}
		}
	}
	return build(ls, rs)
}

func simplifyIfThenElse(t IfThenElse, known KnownConstants) Node {
	cond := Simplify(t.Cond, known)
	then := Simplify(t.Then, known)
	els := Simplify(t.Else, known)
	if c, ok := cond.(Constant); ok {
		if isTrue(c.Value) {
			return then
		}
		return els
	}
	// `if c then 1 else 0` -> c
	if tc, ok := then.(Constant); ok && tc.Value == 1 {
		if ec, ok := els.(Constant); ok && ec.Value == 0 {
			return cond
		}
	}
	// `if c then x else (if c2 then y else ...)` -> MultiConditionChecker
	if nested, ok := els.(MultiConditionChecker); ok {
		branches := append([]Branch{{Cond: cond, Value: then}}, nested.Branches...)
		return collapseMultiCondition(branches)
	}
	if nestedITE, ok := els.(IfThenElse); ok {
		branches := []Branch{{Cond: cond, Value: then}, {Cond: nestedITE.Cond, Value: nestedITE.Then}, {Cond: Constant{Value: 1}, Value: nestedITE.Else}}
		return collapseMultiCondition(branches)
	}
	return IfThenElse{Cond: cond, Then: then, Else: els}
}

// collapseMultiCondition drops unreachable branches following a
// statically-true condition (keeping that branch as the final one) and
// folds a single surviving branch back down to its value.
func collapseMultiCondition(branches []Branch) Node {
	out := make([]Branch, 0, len(branches))
	for _, br := range branches {
		out = append(out, br)
		if c, ok := br.Cond.(Constant); ok && isTrue(c.Value) {
			break
		}
	}
	if len(out) == 1 {
		return out[0].Value
	}
	return MultiConditionChecker{Branches: out}
}
