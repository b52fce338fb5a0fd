package search

import (
	"math"

	"rddlplanner/internal/compile"
	"rddlplanner/internal/expr"
	"rddlplanner/internal/fluent"
	"rddlplanner/internal/mdp"
	"rddlplanner/internal/randsrc"
)

// rolloutEngine holds exactly what the rollout algorithm needs,
// independent of the outer Engine's timeout/policy
// bookkeeping, so it can be unit-tested against a small pool directly.
type rolloutEngine struct {
	Facade      *mdp.Facade
	Task        *compile.CompiledTask
	Rand        *randsrc.Source
	Initializer Initializer

	numberOfInitialVisits  int
	ucbScale               float64
	noopOptimalFinalAction bool

	pool *NodePool
}

// rolloutDecision runs one trajectory step at a decision node:
// initialises the node on first visit, returns the reward-lock shortcut
// if the node is (now known to be) a reward lock, otherwise descends
// into the chosen action's chance-node child, backing the trajectory
// reward up into the node's own visit statistics. ok=false means the
// pool filled mid-rollout and this trajectory contributed nothing
// further.
func (e *rolloutEngine) rolloutDecision(nodeIdx int, s expr.State, remainingSteps int) (float64, bool) {
	node := e.pool.Decision(nodeIdx)
	if node.isLeaf {
		if !e.initializeDecision(nodeIdx, s, remainingSteps) {
			return 0, false
		}
		node = e.pool.Decision(nodeIdx)
	}
	if node.isRewardLock {
		r := e.Facade.CalcReward(s, e.Facade.Noop()) * float64(remainingSteps)
		node.accumulatedReward += r
		node.numberOfVisits++
		return r, true
	}

	actionIdx := e.chooseChild(node)
	if actionIdx == -1 {
		return 0, false
	}
	childIdx := node.children[actionIdx]
	r, ok := e.rolloutChance(childIdx, s, e.Task.LegalActions[actionIdx], remainingSteps)
	if !ok {
		return 0, false
	}
	node.accumulatedReward += r
	node.numberOfVisits++
	node.childrenVisits++
	return r, true
}

func (e *rolloutEngine) chooseChild(node *DecisionNode) int {
	visits := func(childIdx int) float64 { return float64(e.pool.Chance(childIdx).numberOfVisits) }
	qhat := func(childIdx int) float64 { return e.pool.Chance(childIdx).qHat() }
	return chooseDecisionChild(node, visits, qhat, e.ucbScale, e.Rand)
}

// rolloutChance runs one trajectory step at a chance node: samples one
// successor state, accumulates immediate reward, optionally
// short-circuits the final step via noop (noopOptimalFinalAction),
// otherwise recurses into
// the matching successor decision node — lazily allocated and keyed on
// the sampled probabilistic-variable signature.
func (e *rolloutEngine) rolloutChance(nodeIdx int, s expr.State, a fluent.ActionState, remainingSteps int) (float64, bool) {
	node := e.pool.Chance(nodeIdx)

	sp := e.Facade.SampleSuccessor(s, a)
	r := e.Facade.CalcReward(s, a)
	remaining := remainingSteps - 1

	switch {
	case remaining == 1 && e.noopOptimalFinalAction:
		r += e.Facade.CalcReward(sp, e.Facade.Noop())
	case remaining > 0:
		childIdx, ok := e.successorChild(node, sp)
		if !ok {
			return 0, false
		}
		childR, ok := e.rolloutDecision(childIdx, sp, remaining)
		if !ok {
			return 0, false
		}
		r += childR
	}

	node.accumulatedReward += r
	node.numberOfVisits++
	return r, true
}

// successorChild looks up (or lazily allocates) the decision node for
// sp's probabilistic-variable signature under node (see ChanceNode for
// the successor-layout tradeoff).
func (e *rolloutEngine) successorChild(node *ChanceNode, sp expr.State) (int, bool) {
	key := probabilisticSignature(sp, e.Task.FirstProbabilisticVarIndex, len(e.Task.CPFs))
	if idx, ok := node.successors[key]; ok {
		return idx, true
	}
	idx, ok := e.pool.AllocDecision()
	if !ok {
		return 0, false
	}
	node.successors[key] = idx
	return idx, true
}

// initializeDecision expands a leaf decision node: mark a reward lock
// and stop, or
// reserve one child per legal action and seed each non-pruned one with
// numberOfInitialVisits worth of prior reward from the initializer's Q
// estimate. A child the pool cannot reserve is marked -1, like a pruned
// one; initializeDecision always returns true.
func (e *rolloutEngine) initializeDecision(nodeIdx int, s expr.State, remainingSteps int) bool {
	node := e.pool.Decision(nodeIdx)
	node.isLeaf = false

	if e.Facade.IsRewardLock(s) {
		node.isRewardLock = true
		return true
	}

	qs := e.Initializer.InitialQs(s, remainingSteps)
	node.children = make([]int, len(qs))
	for i, q := range qs {
		if math.IsInf(q, -1) {
			node.children[i] = -1
			continue
		}
		childIdx, ok := e.pool.AllocChance()
		if !ok {
			node.children[i] = -1
			continue
		}
		child := e.pool.Chance(childIdx)
		child.numberOfVisits = e.numberOfInitialVisits
		child.accumulatedReward = float64(e.numberOfInitialVisits) * float64(remainingSteps) * q
		node.children[i] = childIdx
		node.childrenVisits += e.numberOfInitialVisits
	}
	return true
}

func probabilisticSignature(s expr.State, lo, hi int) string {
	b := make([]byte, 0, (hi-lo)*8)
	for i := lo; i < hi; i++ {
		b = appendFloatBits(b, s[i])
	}
	return string(b)
}

// appendFloatBits appends v's bit pattern as 8 raw bytes, avoiding the
// formatting cost of fmt.Sprintf in the hottest loop in the package.
func appendFloatBits(b []byte, v float64) []byte {
	bits := math.Float64bits(v)
	for shift := 56; shift >= 0; shift -= 8 {
		b = append(b, byte(bits>>uint(shift)))
	}
	return b
}
