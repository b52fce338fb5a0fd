// Package simplify runs the fixpoint constant-propagation loop over a
// grounded task and builds its deterministic mirror.
package simplify

import (
	"rddlplanner/internal/expr"
	"rddlplanner/internal/fluent"
	"rddlplanner/internal/grounder"
	"rddlplanner/internal/planerr"
)

// Task is the fixpoint loop's output: the grounded task with every CPF
// and precondition simplified against the discovered-constants table,
// the CPFs whose formula collapsed to a constant (and were therefore
// removed from the live set), and a second, deterministic copy of every
// probabilistic CPF.
type Task struct {
	*grounder.GroundTask

	// Discovered maps a removed state fluent's index to the constant
	// value its CPF collapsed to.
	Discovered expr.KnownConstants

	// Deterministic holds, for every live CPF in GroundTask.CPFs (same
	// index), the most-likely-outcome formula run through
	// DeterminizeMostLikely and re-simplified; the deterministic and
	// probabilistic tasks share all other data.
	Deterministic []expr.Node
}

// Run executes the fixpoint loop: simplify every CPF and SAC against the
// known-constants table, fold any CPF whose simplified formula is itself
// a constant into that table, and repeat until no further folding
// occurs. A static SAC that reduces to `false` aborts with
// InfeasibleTask; one that reduces to `true` is dropped. Finally builds
// the deterministic mirror.
func Run(task *grounder.GroundTask) (*Task, error) {
	known := expr.KnownConstants{}
	cpfs := append([]grounder.GroundCPF(nil), task.CPFs...)
	intermCPFs := append([]grounder.GroundCPF(nil), task.IntermCPFs...)

	for {
		progressed := false

		for i := range intermCPFs {
			intermCPFs[i].Formula = expr.Simplify(intermCPFs[i].Formula, known)
		}

		var kept []grounder.GroundCPF
		for _, c := range cpfs {
			simplified := expr.Simplify(c.Formula, known)
			if cst, ok := simplified.(expr.Constant); ok {
				if _, already := known[c.Head.Index]; !already {
					known[c.Head.Index] = cst.Value
					progressed = true
				}
				continue // folded away: no longer a live CPF
			}
			kept = append(kept, grounder.GroundCPF{Head: c.Head, Formula: simplified})
		}
		cpfs = kept

		if !progressed {
			break
		}
	}

	reward := expr.Simplify(task.Reward, known)

	preconds := make([]grounder.GroundPrecondition, 0, len(task.Preconditions))
	for _, p := range task.Preconditions {
		simplified := expr.Simplify(p.Formula, known)
		if p.IsStatic {
			if cst, ok := simplified.(expr.Constant); ok {
				if cst.Value == 0 {
					return nil, planerr.New(planerr.KindInfeasibleTask, "", "a static precondition reduced to false")
				}
				// Reduced to true: always satisfied, so it constrains
				// nothing and is dropped.
				continue
			}
		}
		preconds = append(preconds, grounder.GroundPrecondition{Formula: simplified, IsStatic: p.IsStatic})
	}

	initial := append([]float64(nil), task.InitialState...)
	for idx, v := range known {
		if idx < len(initial) {
			initial[idx] = v
		}
	}

	det := make([]expr.Node, len(cpfs))
	for i, c := range cpfs {
		d := expr.DeterminizeMostLikely(c.Formula)
		det[i] = expr.Simplify(d, known)
	}

	out := &Task{
		GroundTask: &grounder.GroundTask{
			Registry:          task.Registry,
			CPFs:              cpfs,
			IntermCPFs:        intermCPFs,
			Reward:            reward,
			Preconditions:     preconds,
			InitialState:      initial,
			Horizon:           task.Horizon,
			ConcurrentActions: task.ConcurrentActions,
			Discount:          task.Discount,
		},
		Discovered:    known,
		Deterministic: det,
	}
	return out, nil
}

// IsDiscovered reports whether a state fluent was folded away during the
// fixpoint loop; its CPF no longer appears in Task.CPFs.
func (t *Task) IsDiscovered(f *fluent.StateFluent) bool {
	_, ok := t.Discovered[f.Index]
	return ok
}
