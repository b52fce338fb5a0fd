package search

import (
	"math"

	"rddlplanner/internal/compile"
	"rddlplanner/internal/expr"
	"rddlplanner/internal/mdp"
)

// Initializer is the decision-node initialisation strategy: given a
// state and its remaining-steps count, return one Q
// estimate per legal action (indexed identically to
// compile.CompiledTask.LegalActions), with math.Inf(-1) marking an
// action that must not be expanded at all.
type Initializer interface {
	InitialQs(s expr.State, remainingSteps int) []float64
}

// RandomInitializer is the Random decision-node initialiser: every
// applicable, non-pruned action gets Q=0 (no prior preference), every
// inapplicable or reasonable-action-pruned one gets -∞.
type RandomInitializer struct {
	Facade *mdp.Facade
	Task   *compile.CompiledTask
}

// NewRandomInitializer builds a RandomInitializer over facade/task.
func NewRandomInitializer(facade *mdp.Facade, task *compile.CompiledTask) *RandomInitializer {
	return &RandomInitializer{Facade: facade, Task: task}
}

func (r *RandomInitializer) InitialQs(s expr.State, _ int) []float64 {
	applicable := r.Facade.ApplicableActions(s)
	qs := make([]float64, len(r.Task.LegalActions))
	for i := range qs {
		if applicable[i] == i {
			qs[i] = 0
		} else {
			qs[i] = math.Inf(-1)
		}
	}
	return qs
}
