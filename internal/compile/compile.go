package compile

import (
	"sort"

	"rddlplanner/internal/expr"
	"rddlplanner/internal/fluent"
	"rddlplanner/internal/grounder"
	"rddlplanner/internal/simplify"
)

// CompiledExpr carries one expression's hash-key and caching-policy
// assignment: the action hash key per legal action, the
// per-state-variable multiplier it contributes to the running state
// (and Kleene) hash base, the resulting total base, and the selected
// policy. PD caching shares the sampled base: both read the same
// relevant-variable set and the bases are non-decreasing by
// construction, so sharing cannot under-provision either cache.
type CompiledExpr struct {
	ActionKeys map[int]int

	StateBase      map[int]int
	FinalStateBase int
	Policy         CachingPolicy

	KleeneBase      map[int]int
	FinalKleeneBase int
	KleenePolicy    CachingPolicy
}

// Disable downgrades both of e's MAP policies to DISABLED_MAP in place.
func (e *CompiledExpr) Disable() {
	e.Policy = e.Policy.Disable()
	e.KleenePolicy = e.KleenePolicy.Disable()
}

// CompiledCPF is one ground state-fluent CPF after compilation: both its
// probabilistic and most-likely-deterministic formulas, with independent
// hash/caching info for each (the deterministic formula may read a
// different, usually smaller, variable set after determinization drops
// probabilistic-only branches).
type CompiledCPF struct {
	Head          *fluent.StateFluent
	Formula       expr.Node
	Deterministic expr.Node
	Domain        expr.Domain
	Hash          CompiledExpr
	DetHash       CompiledExpr
}

// CompiledTask is the full output of the task compiler: a Registry whose
// StateFluents are now ordered deterministic-first, ground CPFs/reward/
// preconditions with remapped indices and computed hash/caching info,
// and the enumerated, sorted legal-action list.
type CompiledTask struct {
	Registry *fluent.Registry

	CPFs       []CompiledCPF
	IntermCPFs []grounder.GroundCPF // evaluated fresh each step; no persistent cache

	Reward     expr.Node
	RewardHash CompiledExpr

	StaticPreconditions  []grounder.GroundPrecondition
	DynamicPreconditions []grounder.GroundPrecondition
	DynamicHash          []CompiledExpr

	LegalActions []fluent.ActionState

	Domains                    []expr.Domain // length len(CPFs)+len(IntermCPFs); interm domains follow real ones
	FirstProbabilisticVarIndex int

	InitialState      []float64
	Horizon           int
	ConcurrentActions int
	Discount          float64

	CachingThreshold int
}

// domainFixpointRounds bounds the iterative domain-propagation pass
// (the external RDDL parser would normally hand the
// compiler each variable's declared domain; since that parser is out of
// scope here, domains are instead derived by repeatedly propagating
// expr.CalculateDomain across all CPFs from the initial state until
// they stop growing or this cap is hit).
const domainFixpointRounds = 6

// Compile runs the task compiler against a simplified,
// grounded task: reorders state fluents so deterministic ones precede
// probabilistic ones, remaps every formula's StateFluentRef indices to
// match, enumerates and sorts the legal-action list, derives per-variable
// value domains, and assigns hash keys and caching policy to every CPF,
// the reward, and every dynamic precondition.
func Compile(task *simplify.Task, threshold int) (*CompiledTask, error) {
	registry := task.Registry
	// Interm-fluent StateFluentRef indices were offset past every real
	// state fluent as of grounding time (grounder.IntermBaseIndex), which
	// predates any folding simplify.Run performed. That original length,
	// not today's (possibly shrunk) registry.StateFluents, is the base
	// those indices were built against.
	origIntermBase := len(registry.StateFluents)

	type entry struct {
		Head     *fluent.StateFluent
		OldIndex int
		Formula  expr.Node
		Det      expr.Node
	}
	entries := make([]entry, len(task.CPFs))
	for i, c := range task.CPFs {
		entries[i] = entry{Head: c.Head, OldIndex: c.Head.Index, Formula: c.Formula, Det: task.Deterministic[i]}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		pi := expr.CollectInitialInfo(entries[i].Formula).IsProbabilistic
		pj := expr.CollectInitialInfo(entries[j].Formula).IsProbabilistic
		return !pi && pj
	})

	remap := make(map[int]int, len(entries)+len(task.IntermCPFs))
	for newIdx, e := range entries {
		remap[e.OldIndex] = newIdx
	}
	// Interm fluents move to the new, contiguous combined index space
	// right after the (now possibly fewer) real state fluents, preserving
	// the stratum order stratify already established.
	for i, c := range task.IntermCPFs {
		remap[origIntermBase+c.InterHead.Index] = len(entries) + i
	}

	newOrder := make([]*fluent.StateFluent, len(entries))
	for i, e := range entries {
		newOrder[i] = e.Head
	}
	registry.StateFluents = newOrder
	registry.Reindex()

	formulas := make([]expr.Node, len(entries))
	dets := make([]expr.Node, len(entries))
	isProb := make([]bool, len(entries))
	initial := make([]float64, len(entries))
	for i, e := range entries {
		formulas[i] = expr.RemapStateFluentIndices(e.Formula, remap)
		dets[i] = expr.RemapStateFluentIndices(e.Det, remap)
		isProb[i] = expr.CollectInitialInfo(formulas[i]).IsProbabilistic
		initial[i] = task.InitialState[e.OldIndex]
	}
	firstProb := len(entries)
	for i, p := range isProb {
		if p {
			firstProb = i
			break
		}
	}

	interm := make([]grounder.GroundCPF, len(task.IntermCPFs))
	for i, c := range task.IntermCPFs {
		interm[i] = grounder.GroundCPF{InterHead: c.InterHead, Formula: expr.RemapStateFluentIndices(c.Formula, remap)}
	}

	reward := expr.RemapStateFluentIndices(task.Reward, remap)

	var staticP, dynamicP []grounder.GroundPrecondition
	for _, p := range task.Preconditions {
		remapped := grounder.GroundPrecondition{Formula: expr.RemapStateFluentIndices(p.Formula, remap), IsStatic: p.IsStatic}
		if remapped.IsStatic {
			staticP = append(staticP, remapped)
		} else {
			dynamicP = append(dynamicP, remapped)
		}
	}

	legalActions := EnumerateLegalActions(len(registry.ActionFluents), task.ConcurrentActions, staticP)

	totalVars := len(entries) + len(interm)
	domains := computeDomains(formulas, interm, initial, totalVars)

	cpfs := make([]CompiledCPF, len(entries))
	for i := range entries {
		cpfs[i] = CompiledCPF{
			Head:          entries[i].Head,
			Formula:       formulas[i],
			Deterministic: dets[i],
			Domain:        domains[i],
			Hash:          compileExpr(formulas[i], totalVars, domains, legalActions, threshold),
			DetHash:       compileExpr(dets[i], totalVars, domains, legalActions, threshold),
		}
	}

	rewardHash := compileExpr(reward, totalVars, domains, legalActions, threshold)

	dynamicHash := make([]CompiledExpr, len(dynamicP))
	for i, p := range dynamicP {
		dynamicHash[i] = compileExpr(p.Formula, totalVars, domains, legalActions, threshold)
	}

	return &CompiledTask{
		Registry:                   registry,
		CPFs:                       cpfs,
		IntermCPFs:                 interm,
		Reward:                     reward,
		RewardHash:                 rewardHash,
		StaticPreconditions:        staticP,
		DynamicPreconditions:       dynamicP,
		DynamicHash:                dynamicHash,
		LegalActions:               legalActions,
		Domains:                    domains,
		FirstProbabilisticVarIndex: firstProb,
		InitialState:               initial,
		Horizon:                    task.Horizon,
		ConcurrentActions:          task.ConcurrentActions,
		Discount:                   task.Discount,
		CachingThreshold:           threshold,
	}, nil
}

// computeDomains seeds each real state variable's domain with its
// initial value and each interm-fluent's with the empty singleton {0},
// then repeatedly unions in expr.CalculateDomain's result across every
// CPF until no domain grows or domainFixpointRounds is reached.
func computeDomains(formulas []expr.Node, interm []grounder.GroundCPF, initial []float64, totalVars int) []expr.Domain {
	domains := make([]expr.Domain, totalVars)
	for i := range formulas {
		domains[i] = expr.NewDomain(initial[i])
	}
	for i := range interm {
		domains[len(formulas)+i] = expr.NewDomain(0)
	}

	for round := 0; round < domainFixpointRounds; round++ {
		grew := false
		for i, f := range formulas {
			next := domains[i].Union(expr.CalculateDomain(f, domains))
			if len(next) != len(domains[i]) {
				grew = true
			}
			domains[i] = next
		}
		for i, c := range interm {
			idx := len(formulas) + i
			next := domains[idx].Union(expr.CalculateDomain(c.Formula, domains))
			if len(next) != len(domains[idx]) {
				grew = true
			}
			domains[idx] = next
		}
		if !grew {
			break
		}
	}
	return domains
}

func compileExpr(formula expr.Node, totalVars int, domains []expr.Domain, legalActions []fluent.ActionState, threshold int) CompiledExpr {
	info := expr.CollectInitialInfo(formula)
	actionKeys, nextBase := AssignActionHashKeys(info.ActionFluents, legalActions)

	reads := func(i int) bool { return info.StateFluents[i] }
	domainSize := func(i int) int { return len(domains[i]) }
	kleeneSize := func(i int) int { return KleeneDomainSize(len(domains[i])) }

	stateBase, finalState, overflow := AssignStateHashBase(totalVars, reads, domainSize, nextBase)
	policy := PolicyNone
	if !overflow {
		policy = SelectPolicy(finalState, threshold)
	}

	kleeneBase, finalKleene, koverflow := AssignStateHashBase(totalVars, reads, kleeneSize, nextBase)
	kleenePolicy := PolicyNone
	if !koverflow {
		kleenePolicy = SelectPolicy(finalKleene, threshold)
	}

	return CompiledExpr{
		ActionKeys:      actionKeys,
		StateBase:       stateBase,
		FinalStateBase:  finalState,
		Policy:          policy,
		KleeneBase:      kleeneBase,
		FinalKleeneBase: finalKleene,
		KleenePolicy:    kleenePolicy,
	}
}

// DisableCaching downgrades every MAP policy in the compiled task to
// DISABLED_MAP (the RAM-threshold reaction).
func (t *CompiledTask) DisableCaching() {
	for i := range t.CPFs {
		t.CPFs[i].Hash.Disable()
		t.CPFs[i].DetHash.Disable()
	}
	t.RewardHash.Disable()
	for i := range t.DynamicHash {
		t.DynamicHash[i].Disable()
	}
}
