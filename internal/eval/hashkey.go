package eval

import (
	"rddlplanner/internal/compile"
	"rddlplanner/internal/expr"
)

// stateHashKey computes one expression's combined action+state hash key
// under a concrete extended state: the action's
// precomputed key plus, for every relevant state variable, its base
// multiplied by the value's position within that variable's domain. ok is
// false if any relevant variable's current value falls outside the
// domain the compiler derived for it (possible given internal/compile's
// fixpoint domain approximation) — the caller must then evaluate
// uncached rather than trust a wrong key.
func stateHashKey(ce compile.CompiledExpr, domains []expr.Domain, ext expr.State, actionIndex int) (int, bool) {
	key := ce.ActionKeys[actionIndex]
	for idx, base := range ce.StateBase {
		pos := domains[idx].IndexOf(ext[idx])
		if pos < 0 {
			return 0, false
		}
		key += base * pos
	}
	return key, true
}

// kleeneHashKey is stateHashKey's Kleene-state analogue: each relevant
// variable contributes base*(bitmask-1), where
// bitmask encodes which of the variable's domain values the Kleene
// subset currently contains.
func kleeneHashKey(ce compile.CompiledExpr, domains []expr.Domain, ks expr.KleeneState, actionIndex int) (int, bool) {
	key := ce.ActionKeys[actionIndex]
	for idx, base := range ce.KleeneBase {
		mask := 0
		for _, v := range ks[idx] {
			pos := domains[idx].IndexOf(v)
			if pos < 0 {
				return 0, false
			}
			mask |= 1 << uint(pos)
		}
		if mask == 0 {
			return 0, false
		}
		key += base * (mask - 1)
	}
	return key, true
}
