package expr

// State is a fully deterministic assignment: State[i] is the current value
// of the state fluent whose compiled index is i.
type State []float64

// Action is a ground action's bit-vector: Action[i] is whether the action
// fluent at compiled index i is scheduled (true) in this action.
type Action []bool

// KleeneState is a three-valued abstraction: KleeneState[i] is the set of
// values state fluent i could take.
type KleeneState []Domain

// PD is a discrete probability distribution: sorted, duplicate-free Values
// with matching Probs summing to 1 (within floating-point tolerance).
type PD struct {
	Values []float64
	Probs  []float64
}

// Degenerate returns the single-valued distribution P(v) = 1.
func Degenerate(v float64) PD {
	return PD{Values: []float64{v}, Probs: []float64{1.0}}
}

// IsDegenerate reports whether the distribution places all mass on one value.
func (pd PD) IsDegenerate() bool {
	return len(pd.Values) == 1
}

// Value returns the sole value of a degenerate distribution; it panics if
// the distribution is not degenerate; the reward CPF's PD is always
// single-valued in a well-formed task (CalcReward).
func (pd PD) Value() float64 {
	if !pd.IsDegenerate() {
		panic("expr: PD.Value called on a non-degenerate distribution")
	}
	return pd.Values[0]
}

// merge folds values+probs pairs (possibly with duplicate values) into a
// sorted, deduplicated PD.
func mergePD(values []float64, probs []float64) PD {
	type vp struct {
		v, p float64
	}
	acc := map[float64]float64{}
	order := make([]float64, 0, len(values))
	for i, v := range values {
		if _, seen := acc[v]; !seen {
			order = append(order, v)
		}
		acc[v] += probs[i]
	}
	_ = vp{}
	sortFloats(order)
	out := PD{Values: make([]float64, len(order)), Probs: make([]float64, len(order))}
	for i, v := range order {
		out.Values[i] = v
		out.Probs[i] = acc[v]
	}
	return out
}

func sortFloats(f []float64) {
	// insertion sort is fine: these sets are tiny (outcome counts per CPF).
	for i := 1; i < len(f); i++ {
		for j := i; j > 0 && f[j-1] > f[j]; j-- {
			f[j-1], f[j] = f[j], f[j-1]
		}
	}
}

// combinePD applies a binary scalar op pointwise across the cartesian
// product of two distributions' outcomes, multiplying probabilities.
func combinePD(a, b PD, op func(x, y float64) float64) PD {
	values := make([]float64, 0, len(a.Values)*len(b.Values))
	probs := make([]float64, 0, len(a.Values)*len(b.Values))
	for i, av := range a.Values {
		for j, bv := range b.Values {
			values = append(values, op(av, bv))
			probs = append(probs, a.Probs[i]*b.Probs[j])
		}
	}
	return mergePD(values, probs)
}

// combineDomain is the Kleene-state analogue of combinePD: the pointwise
// combination of two possible-value sets under a binary op.
func combineDomain(a, b Domain, op func(x, y float64) float64) Domain {
	out := make([]float64, 0, len(a)*len(b))
	for _, av := range a {
		for _, bv := range b {
			out = append(out, op(av, bv))
		}
	}
	return NewDomain(out...)
}
