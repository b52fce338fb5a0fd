// Package search implements the THTS/UCT rollout search:
// a fixed-capacity node pool shared by decision and chance nodes, the
// rollout algorithm, UCB1-style successor selection, decision-node
// initialisation (Random or IDS-over-DFS), and the training-set
// generator IDS learns its search depth from.
package search

// DefaultPoolCapacity sizes the node pool, shared between decision and
// chance nodes.
const DefaultPoolCapacity = 18_000_000

// DefaultNearCapacityThreshold is the combined live-node count at which
// a step aborts rather than risk overrunning the pool.
const DefaultNearCapacityThreshold = 15_000_000

// NodePool is the reused-not-reallocated backing store for both node
// kinds. A step begins with Reset, which truncates both slices to
// length zero without releasing their backing arrays; Alloc* append a
// zero-valued node and return its index, or ok=false once the combined
// live-node count reaches the near-capacity threshold.
type NodePool struct {
	decisions []DecisionNode
	chances   []ChanceNode

	capacity     int
	nearCapacity int
}

// NewNodePool preallocates both backing slices at nearCapacity each.
// This is deliberately not capacity/2: Decision/Chance hand out pointers
// into these slices that callers (rollout.go) hold across nested Alloc*
// calls, so the slices must never grow past their initial capacity — a
// reallocating append would silently strand any pointer taken before it.
// Sizing each slice to nearCapacity (rather than the tighter bound of
// "at most nearCapacity total live nodes") is the simple way to make
// that guarantee hold even in the degenerate case where one kind of
// node dominates allocation.
func NewNodePool(capacity, nearCapacity int) *NodePool {
	return &NodePool{
		decisions:    make([]DecisionNode, 0, nearCapacity),
		chances:      make([]ChanceNode, 0, nearCapacity),
		capacity:     capacity,
		nearCapacity: nearCapacity,
	}
}

// Reset truncates both slices to zero length, ready for a new step's
// rollouts. The underlying arrays, and therefore their capacity, are
// kept; Go zero-initialises newly-exposed elements on the next append
// past the old length, so a reused node is indistinguishable from a
// freshly allocated one.
func (p *NodePool) Reset() {
	p.decisions = p.decisions[:0]
	p.chances = p.chances[:0]
}

// Live reports the combined number of currently-allocated nodes.
func (p *NodePool) Live() int { return len(p.decisions) + len(p.chances) }

// NearCapacity reports whether the pool has reached the step-abort
// threshold.
func (p *NodePool) NearCapacity() bool { return p.Live() >= p.nearCapacity }

// AllocDecision reserves one decision node, returning its index and
// ok=false if the pool is at or past its near-capacity threshold.
func (p *NodePool) AllocDecision() (int, bool) {
	if p.NearCapacity() {
		return 0, false
	}
	p.decisions = append(p.decisions, DecisionNode{isLeaf: true})
	return len(p.decisions) - 1, true
}

// AllocChance reserves one chance node.
func (p *NodePool) AllocChance() (int, bool) {
	if p.NearCapacity() {
		return 0, false
	}
	p.chances = append(p.chances, ChanceNode{successors: map[string]int{}})
	return len(p.chances) - 1, true
}

// Decision returns a pointer into the live backing array; valid until
// the next Reset.
func (p *NodePool) Decision(i int) *DecisionNode { return &p.decisions[i] }

// Chance returns a pointer into the live backing array; valid until the
// next Reset.
func (p *NodePool) Chance(i int) *ChanceNode { return &p.chances[i] }
