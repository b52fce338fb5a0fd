package compile

import (
	"fmt"
	"math"

	"rddlplanner/internal/fluent"
)

// AssignActionHashKeys assigns action hash keys for one expression
// E: for every legal action state, the subset of its scheduled action
// fluents that E actually reads (relevant) determines E's
// actionHashKey(a). An action whose relevant subset is empty gets key 0.
// An action whose relevant subset equals its full scheduled set gets the
// next fresh key. Any other action reuses whichever key was assigned to
// the first action sharing its relevant subset (assigning a fresh one if
// none exists yet, which then becomes available for later reuse). The
// returned nextBase is (highest assigned key)+1, the first free
// state-fluent hash-key base.
func AssignActionHashKeys(relevant map[int]bool, legalActions []fluent.ActionState) (keys map[int]int, nextBase int) {
	keys = make(map[int]int, len(legalActions))
	bySignature := map[string]int{}
	next := 1

	for _, a := range legalActions {
		var subset []int
		for _, idx := range a.Scheduled() {
			if relevant[idx] {
				subset = append(subset, idx)
			}
		}
		if len(subset) == 0 {
			keys[a.Index] = 0
			continue
		}
		sig := fmt.Sprint(subset)
		if k, ok := bySignature[sig]; ok {
			keys[a.Index] = k
			continue
		}
		keys[a.Index] = next
		bySignature[sig] = next
		next++
	}
	return keys, next
}

// maxSafeBase bounds the running hash-base product so multiplication is
// checked for overflow before it happens, against the native Go int
// width of the build target.
const maxSafeBase = math.MaxInt / 2

// AssignStateHashBase assigns one expression's state hash bases (and,
// with domainSize swapped for the Kleene-domain-size function, its
// Kleene bases): walk
// state variables 0..n-1 in order, and for every one E reads, record its
// current running base and fold its domain size into the base. Returns
// overflow=true (and a meaningless finalBase) the moment a domain size
// is zero or the running base would overflow, signalling the caller to
// mark E PolicyNone.
func AssignStateHashBase(n int, reads func(i int) bool, domainSize func(i int) int, startBase int) (bases map[int]int, finalBase int, overflow bool) {
	bases = map[int]int{}
	base := startBase
	for i := 0; i < n; i++ {
		if !reads(i) {
			continue
		}
		ds := domainSize(i)
		if ds <= 0 {
			return bases, 0, true
		}
		if base > maxSafeBase/ds {
			return bases, 0, true
		}
		bases[i] = base
		base *= ds
	}
	return bases, base, false
}

// KleeneDomainSize is the base multiplier: the number
// of non-empty subsets of a domain of size d.
func KleeneDomainSize(d int) int {
	if d <= 0 {
		return 0
	}
	if d >= 62 {
		return math.MaxInt // forces the overflow path in AssignStateHashBase
	}
	return (1 << uint(d)) - 1
}
