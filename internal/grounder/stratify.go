package grounder

import (
	"sort"

	"rddlplanner/internal/expr"
	"rddlplanner/internal/planerr"
)

// stratify sorts ground interm-fluent CPFs ascending by stratification
// level and validates that no CPF reads an interm-fluent at or above its
// own stratum (an interm-fluent's CPF may read only
// lower-stratum interm-fluents). The sort is stable so CPFs within one
// stratum keep their grounding order. base is the first index of the
// per-step extended state vector reserved for interm-fluents
// (grounder.IntermBaseIndex).
func stratify(cpfs []GroundCPF, base int) error {
	sort.SliceStable(cpfs, func(i, j int) bool {
		return cpfs[i].InterHead.Stratum < cpfs[j].InterHead.Stratum
	})

	strataByIntermIndex := make(map[int]int, len(cpfs))
	for _, c := range cpfs {
		strataByIntermIndex[c.InterHead.Index] = c.InterHead.Stratum
	}

	for _, c := range cpfs {
		info := expr.CollectInitialInfo(c.Formula)
		for idx := range info.StateFluents {
			intermIdx := idx - base
			if intermIdx < 0 {
				continue // reference to a real (non-interm) state fluent
			}
			readStratum, ok := strataByIntermIndex[intermIdx]
			if !ok {
				continue
			}
			if readStratum >= c.InterHead.Stratum {
				return planerr.New(planerr.KindTypeMismatch, c.InterHead.String(),
					"reads an interm-fluent at or above its own stratification level")
			}
		}
	}
	return nil
}
