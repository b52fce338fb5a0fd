package search

import (
	"math"

	"rddlplanner/internal/randsrc"
)

// visitRatioThreshold is the highest-to-lowest child visit-count ratio
// beyond which selection falls back to the least-visited children.
const visitRatioThreshold = 50

// DefaultUCBScale is the UCB1-style k = scale * |Q̂(node)| multiplier.
const DefaultUCBScale = 1.0

// fallbackExplorationConstant is used when the node's own Q estimate is
// exactly zero, so the exploration term does not collapse to zero.
const fallbackExplorationConstant = 100.0

// chooseDecisionChild implements the three successor-selection
// strategies in priority order, returning an index
// into node.children (and so into compile.CompiledTask.LegalActions),
// or -1 if every action was pruned. chanceVisits/chanceQHat read the
// chance-node pool entry a child index refers to; passed in rather than
// a *NodePool so this function stays testable against bare values.
func chooseDecisionChild(node *DecisionNode, chanceVisits, chanceQHat func(childIdx int) float64, scale float64, rng *randsrc.Source) int {
	var candidates []int
	for i, c := range node.children {
		if c != -1 {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return -1
	}

	// Strategy 1: any never-visited child.
	var unvisited []int
	for _, i := range candidates {
		if chanceVisits(node.children[i]) == 0 {
			unvisited = append(unvisited, i)
		}
	}
	if len(unvisited) > 0 {
		return unvisited[rng.Intn(len(unvisited))]
	}

	// Strategy 2: visit-count imbalance.
	minVisits, maxVisits := math.Inf(1), 0.0
	for _, i := range candidates {
		v := chanceVisits(node.children[i])
		if v < minVisits {
			minVisits = v
		}
		if v > maxVisits {
			maxVisits = v
		}
	}
	if minVisits > 0 && maxVisits/minVisits > visitRatioThreshold {
		var leastVisited []int
		for _, i := range candidates {
			if chanceVisits(node.children[i]) == minVisits {
				leastVisited = append(leastVisited, i)
			}
		}
		return leastVisited[rng.Intn(len(leastVisited))]
	}

	// Strategy 3: UCB1-style score.
	k := scale * math.Abs(node.qHat())
	if k == 0 {
		k = fallbackExplorationConstant
	}
	lnParent := math.Log(float64(node.childrenVisits))

	best := math.Inf(-1)
	var bestIdxs []int
	for _, i := range candidates {
		visits := chanceVisits(node.children[i])
		score := chanceQHat(node.children[i]) + k*math.Sqrt(lnParent/visits)
		if score > best {
			best = score
			bestIdxs = bestIdxs[:0]
			bestIdxs = append(bestIdxs, i)
		} else if score == best {
			bestIdxs = append(bestIdxs, i)
		}
	}
	return bestIdxs[rng.Intn(len(bestIdxs))]
}
