package fluent

// ActionState is a ground action: a bit-vector over action fluents plus
// its index into the legal-action enumeration and a cached
// sub-vector of scheduled (true) action-fluent indices, computed once at
// construction since it is read on every rollout.
type ActionState struct {
	Fluents   []bool
	Index     int
	scheduled []int
}

// NewActionState builds an ActionState from a boolean vector over action
// fluents and its enumeration index, pre-computing the scheduled subset.
func NewActionState(fluents []bool, index int) ActionState {
	var scheduled []int
	for i, on := range fluents {
		if on {
			scheduled = append(scheduled, i)
		}
	}
	return ActionState{Fluents: append([]bool(nil), fluents...), Index: index, scheduled: scheduled}
}

// Scheduled returns the indices of action fluents set to true, in
// ascending order.
func (a ActionState) Scheduled() []int { return a.scheduled }

// NumScheduled is the number of true action fluents (used by
// ActionStateSort: fewer-scheduled states sort first).
func (a ActionState) NumScheduled() int { return len(a.scheduled) }

// IsNoop reports whether no action fluent is scheduled.
func (a ActionState) IsNoop() bool { return len(a.scheduled) == 0 }

// ScheduledNames round-trips the scheduled action fluents back to their
// textual `name(obj1,...)` form for the planner's boundary output (a
// list of true action-fluent names), using registry to
// resolve each scheduled index back to its ActionFluent.
func (a ActionState) ScheduledNames(registry *Registry) []string {
	names := make([]string, 0, len(a.scheduled))
	for _, idx := range a.scheduled {
		names = append(names, registry.ActionFluents[idx].String())
	}
	return names
}

// Less implements ActionStateSort: fewer scheduled fluents
// first, then lexicographic on the bit-vector.
func (a ActionState) Less(b ActionState) bool {
	if len(a.scheduled) != len(b.scheduled) {
		return len(a.scheduled) < len(b.scheduled)
	}
	for i := range a.Fluents {
		if a.Fluents[i] != b.Fluents[i] {
			return !a.Fluents[i] && b.Fluents[i]
		}
	}
	return false
}
