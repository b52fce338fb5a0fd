package expr

// Info accumulates the facts CollectInitialInfo gathers about a subtree:
// whether it is probabilistic, whether it contains non-trivial arithmetic,
// and which state/action fluents it reads.
type Info struct {
	IsProbabilistic  bool
	HasArithmetic    bool
	StateFluents     map[int]bool
	ActionFluents    map[int]bool
}

func newInfo() *Info {
	return &Info{StateFluents: map[int]bool{}, ActionFluents: map[int]bool{}}
}

func (i *Info) merge(o *Info) {
	i.IsProbabilistic = i.IsProbabilistic || o.IsProbabilistic
	i.HasArithmetic = i.HasArithmetic || o.HasArithmetic
	for k := range o.StateFluents {
		i.StateFluents[k] = true
	}
	for k := range o.ActionFluents {
		i.ActionFluents[k] = true
	}
}

// CollectInitialInfo reports whether n is probabilistic, whether it
// contains non-trivial arithmetic (anything beyond boolean connectives
// and comparisons), and the sets of state/action fluents it reads.
func CollectInitialInfo(n Node) *Info {
	info := newInfo()
	collect(n, info)
	return info
}

func collect(n Node, info *Info) {
	switch t := n.(type) {
	case Constant, ObjectRef:
		return
	case StateFluentRef:
		info.StateFluents[t.Index] = true
	case ActionFluentRef:
		info.ActionFluents[t.Index] = true
	case Conjunction:
		collectAll(t.Children, info)
	case Disjunction:
		collectAll(t.Children, info)
	case Equals:
		collectAll(t.Children, info)
	case Less:
		collect(t.Left, info)
		collect(t.Right, info)
	case LessEq:
		collect(t.Left, info)
		collect(t.Right, info)
	case Greater:
		collect(t.Left, info)
		collect(t.Right, info)
	case GreaterEq:
		collect(t.Left, info)
		collect(t.Right, info)
	case Addition:
		info.HasArithmetic = true
		collectAll(t.Children, info)
	case Subtraction:
		info.HasArithmetic = true
		collectAll(t.Children, info)
	case Multiplication:
		info.HasArithmetic = true
		collectAll(t.Children, info)
	case Division:
		info.HasArithmetic = true
		collect(t.Left, info)
		collect(t.Right, info)
	case Negation:
		info.HasArithmetic = true
		collect(t.Child, info)
	case Exponential:
		info.HasArithmetic = true
		collect(t.Child, info)
	case KronDelta:
		collect(t.Child, info)
	case Bernoulli:
		info.IsProbabilistic = true
		collect(t.P, info)
	case Discrete:
		info.IsProbabilistic = true
		for _, o := range t.Outcomes {
			collect(o.Value, info)
			collect(o.Prob, info)
		}
	case IfThenElse:
		collect(t.Cond, info)
		collect(t.Then, info)
		collect(t.Else, info)
	case MultiConditionChecker:
		for _, br := range t.Branches {
			collect(br.Cond, info)
			collect(br.Value, info)
		}
	}
}

func collectAll(nodes []Node, info *Info) {
	for _, c := range nodes {
		collect(c, info)
	}
}
