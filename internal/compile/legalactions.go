package compile

import (
	"sort"

	"rddlplanner/internal/expr"
	"rddlplanner/internal/fluent"
	"rddlplanner/internal/grounder"
)

// EnumerateLegalActions generates every subset of the numActionFluents
// action fluents of size at most concurrentActions, keeps those
// satisfying every static precondition, and returns them deduplicated
// and sorted by ActionStateSort (fewer scheduled first,
// then lexicographic on the bit-vector) with `noop` — the empty subset,
// always legal unless a static SAC forbids it — at index 0 whenever it
// survives.
func EnumerateLegalActions(numActionFluents, concurrentActions int, staticPreconds []grounder.GroundPrecondition) []fluent.ActionState {
	candidates := subsetsUpTo(numActionFluents, concurrentActions)

	var legal []fluent.ActionState
	for _, bits := range candidates {
		if !satisfiesAll(bits, staticPreconds) {
			continue
		}
		legal = append(legal, fluent.NewActionState(bits, 0))
	}

	sort.Slice(legal, func(i, j int) bool { return legal[i].Less(legal[j]) })
	for i := range legal {
		legal[i] = fluent.NewActionState(legal[i].Fluents, i)
	}
	return legal
}

func satisfiesAll(bits []bool, preconds []grounder.GroundPrecondition) bool {
	for _, p := range preconds {
		if !p.IsStatic {
			continue
		}
		if expr.Evaluate(p.Formula, nil, bits) == 0 {
			return false
		}
	}
	return true
}

// subsetsUpTo enumerates every boolean vector of length num with at most
// maxTrue bits set.
func subsetsUpTo(num, maxTrue int) [][]bool {
	var out [][]bool
	cur := make([]bool, num)
	var rec func(pos, used int)
	rec = func(pos, used int) {
		if pos == num {
			out = append(out, append([]bool(nil), cur...))
			return
		}
		cur[pos] = false
		rec(pos+1, used)
		if used < maxTrue {
			cur[pos] = true
			rec(pos+1, used+1)
			cur[pos] = false
		}
	}
	rec(0, 0)
	return out
}
