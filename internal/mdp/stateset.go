package mdp

import (
	"fmt"

	"rddlplanner/internal/expr"
)

// StateSet is the reward-lock cache contract: insertion of a concrete
// state followed by a containment test must return true, arbitrary
// false positives are never allowed, but false negatives are (the set
// is an under-approximation). A plain hash set satisfies the contract
// at the cost of never sharing structure across states the way a
// BDD-backed set would.
type StateSet interface {
	Insert(s expr.State)
	Contains(s expr.State) bool
}

type hashStateSet struct {
	seen map[string]struct{}
}

// NewHashStateSet returns the default StateSet implementation.
func NewHashStateSet() StateSet {
	return &hashStateSet{seen: map[string]struct{}{}}
}

func (h *hashStateSet) Insert(s expr.State) {
	h.seen[stateKey(s)] = struct{}{}
}

func (h *hashStateSet) Contains(s expr.State) bool {
	_, ok := h.seen[stateKey(s)]
	return ok
}

func stateKey(s expr.State) string {
	return fmt.Sprint([]float64(s))
}
