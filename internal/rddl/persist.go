package rddl

import (
	"os"

	"gopkg.in/yaml.v3"

	"rddlplanner/internal/compile"
	"rddlplanner/internal/expr"
	"rddlplanner/internal/fluent"
	"rddlplanner/internal/grounder"
	"rddlplanner/internal/planerr"
)

// PersistedTask is the stable textual form of a preprocessed task: the
// ground CPFs (both formulas), the legal action states as raw
// bit-vectors, every variable's finite domain, and the assigned hash
// bases and caching policies. Loading it reconstructs a CompiledTask
// directly, in place of rerunning the grounder, simplifier and
// compiler.
type PersistedTask struct {
	StateFluents  []PersistedFluent `yaml:"stateFluents"`
	ActionFluents []PersistedFluent `yaml:"actionFluents"`
	IntermFluents []PersistedFluent `yaml:"intermFluents,omitempty"`

	CPFs       []PersistedCPF       `yaml:"cpfs"`
	IntermCPFs []PersistedIntermCPF `yaml:"intermCpfs,omitempty"`

	Reward     *ExprDoc      `yaml:"reward"`
	RewardHash PersistedHash `yaml:"rewardHash"`

	StaticPreconditions  []*ExprDoc      `yaml:"staticPreconditions,omitempty"`
	DynamicPreconditions []*ExprDoc      `yaml:"dynamicPreconditions,omitempty"`
	DynamicHash          []PersistedHash `yaml:"dynamicHash,omitempty"`

	LegalActions [][]bool    `yaml:"legalActions"`
	Domains      [][]float64 `yaml:"domains"`

	FirstProbabilisticVarIndex int `yaml:"firstProbabilisticVarIndex"`

	InitialState      []float64 `yaml:"initialState"`
	Horizon           int       `yaml:"horizon"`
	ConcurrentActions int       `yaml:"concurrentActions"`
	Discount          float64   `yaml:"discount"`

	CachingThreshold int `yaml:"cachingThreshold"`
}

// PersistedFluent is one ground fluent: indices are implicit in slice
// order, which matches the compiled (deterministic-first) ordering.
type PersistedFluent struct {
	Name    string   `yaml:"name"`
	Args    []string `yaml:"args,omitempty"`
	Stratum int      `yaml:"stratum,omitempty"`
}

// PersistedHash is one expression's hash-key assignment:
// per-action keys, per-variable base multipliers for the sampled and
// Kleene systems, the final bases and the selected caching policies.
type PersistedHash struct {
	ActionKeys      map[int]int `yaml:"actionKeys,omitempty"`
	StateBase       map[int]int `yaml:"stateBase,omitempty"`
	FinalStateBase  int         `yaml:"finalStateBase"`
	Policy          string      `yaml:"policy"`
	KleeneBase      map[int]int `yaml:"kleeneBase,omitempty"`
	FinalKleeneBase int         `yaml:"finalKleeneBase"`
	KleenePolicy    string      `yaml:"kleenePolicy"`
}

// PersistedCPF is one compiled state-fluent CPF. Head indexes
// StateFluents.
type PersistedCPF struct {
	Head          int           `yaml:"head"`
	Formula       *ExprDoc      `yaml:"formula"`
	Deterministic *ExprDoc      `yaml:"deterministic"`
	Domain        []float64     `yaml:"domain"`
	Hash          PersistedHash `yaml:"hash"`
	DetHash       PersistedHash `yaml:"detHash"`
}

// PersistedIntermCPF is one interm-fluent CPF, kept in stratum order.
// Head indexes IntermFluents.
type PersistedIntermCPF struct {
	Head    int      `yaml:"head"`
	Formula *ExprDoc `yaml:"formula"`
}

// SaveCompiledTask writes task's preprocessed form to path.
func SaveCompiledTask(task *compile.CompiledTask, path string) error {
	doc := encodeCompiledTask(task)
	raw, err := yaml.Marshal(doc)
	if err != nil {
		return planerr.Wrap(planerr.KindParse, path, err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return planerr.Wrap(planerr.KindParse, path, err)
	}
	return nil
}

// LoadCompiledTask reads a preprocessed task back from path.
func LoadCompiledTask(path string) (*compile.CompiledTask, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, planerr.Wrap(planerr.KindParse, path, err)
	}
	doc := &PersistedTask{}
	if err := yaml.Unmarshal(raw, doc); err != nil {
		return nil, planerr.Wrap(planerr.KindParse, path, err)
	}
	return decodeCompiledTask(doc)
}

func encodeCompiledTask(task *compile.CompiledTask) *PersistedTask {
	doc := &PersistedTask{
		Reward:                     EncodeExpr(task.Reward),
		RewardHash:                 encodeHash(task.RewardHash),
		FirstProbabilisticVarIndex: task.FirstProbabilisticVarIndex,
		InitialState:               append([]float64(nil), task.InitialState...),
		Horizon:                    task.Horizon,
		ConcurrentActions:          task.ConcurrentActions,
		Discount:                   task.Discount,
		CachingThreshold:           task.CachingThreshold,
	}

	for _, f := range task.Registry.StateFluents {
		doc.StateFluents = append(doc.StateFluents, PersistedFluent{Name: f.Name, Args: f.Args})
	}
	for _, f := range task.Registry.ActionFluents {
		doc.ActionFluents = append(doc.ActionFluents, PersistedFluent{Name: f.Name, Args: f.Args})
	}
	for _, f := range task.Registry.IntermFluents {
		doc.IntermFluents = append(doc.IntermFluents, PersistedFluent{Name: f.Name, Args: f.Args, Stratum: f.Stratum})
	}

	for _, c := range task.CPFs {
		doc.CPFs = append(doc.CPFs, PersistedCPF{
			Head:          c.Head.Index,
			Formula:       EncodeExpr(c.Formula),
			Deterministic: EncodeExpr(c.Deterministic),
			Domain:        append([]float64(nil), c.Domain...),
			Hash:          encodeHash(c.Hash),
			DetHash:       encodeHash(c.DetHash),
		})
	}
	for _, c := range task.IntermCPFs {
		doc.IntermCPFs = append(doc.IntermCPFs, PersistedIntermCPF{
			Head:    c.InterHead.Index,
			Formula: EncodeExpr(c.Formula),
		})
	}

	for _, p := range task.StaticPreconditions {
		doc.StaticPreconditions = append(doc.StaticPreconditions, EncodeExpr(p.Formula))
	}
	for i, p := range task.DynamicPreconditions {
		doc.DynamicPreconditions = append(doc.DynamicPreconditions, EncodeExpr(p.Formula))
		doc.DynamicHash = append(doc.DynamicHash, encodeHash(task.DynamicHash[i]))
	}

	for _, a := range task.LegalActions {
		doc.LegalActions = append(doc.LegalActions, append([]bool(nil), a.Fluents...))
	}
	for _, d := range task.Domains {
		doc.Domains = append(doc.Domains, append([]float64(nil), d...))
	}
	return doc
}

func decodeCompiledTask(doc *PersistedTask) (*compile.CompiledTask, error) {
	registry := fluent.NewRegistry()
	for _, f := range doc.StateFluents {
		registry.AddStateFluent(f.Name, f.Args)
	}
	for _, f := range doc.ActionFluents {
		registry.AddActionFluent(f.Name, f.Args)
	}
	for _, f := range doc.IntermFluents {
		registry.AddIntermFluent(f.Name, f.Args, f.Stratum)
	}

	task := &compile.CompiledTask{
		Registry:                   registry,
		FirstProbabilisticVarIndex: doc.FirstProbabilisticVarIndex,
		InitialState:               append([]float64(nil), doc.InitialState...),
		Horizon:                    doc.Horizon,
		ConcurrentActions:          doc.ConcurrentActions,
		Discount:                   doc.Discount,
		CachingThreshold:           doc.CachingThreshold,
	}

	for _, c := range doc.CPFs {
		if c.Head < 0 || c.Head >= len(registry.StateFluents) {
			return nil, planerr.New(planerr.KindUndefinedReference, "", "persisted CPF head index out of range")
		}
		formula, err := DecodeExpr(c.Formula, nil)
		if err != nil {
			return nil, err
		}
		det, err := DecodeExpr(c.Deterministic, nil)
		if err != nil {
			return nil, err
		}
		hash, err := decodeHash(c.Hash)
		if err != nil {
			return nil, err
		}
		detHash, err := decodeHash(c.DetHash)
		if err != nil {
			return nil, err
		}
		task.CPFs = append(task.CPFs, compile.CompiledCPF{
			Head:          registry.StateFluents[c.Head],
			Formula:       formula,
			Deterministic: det,
			Domain:        expr.NewDomain(c.Domain...),
			Hash:          hash,
			DetHash:       detHash,
		})
	}
	for _, c := range doc.IntermCPFs {
		if c.Head < 0 || c.Head >= len(registry.IntermFluents) {
			return nil, planerr.New(planerr.KindUndefinedReference, "", "persisted interm CPF head index out of range")
		}
		formula, err := DecodeExpr(c.Formula, nil)
		if err != nil {
			return nil, err
		}
		task.IntermCPFs = append(task.IntermCPFs, grounder.GroundCPF{
			InterHead: registry.IntermFluents[c.Head],
			Formula:   formula,
		})
	}

	var err error
	task.Reward, err = DecodeExpr(doc.Reward, nil)
	if err != nil {
		return nil, err
	}
	task.RewardHash, err = decodeHash(doc.RewardHash)
	if err != nil {
		return nil, err
	}

	for _, p := range doc.StaticPreconditions {
		formula, err := DecodeExpr(p, nil)
		if err != nil {
			return nil, err
		}
		task.StaticPreconditions = append(task.StaticPreconditions, grounder.GroundPrecondition{Formula: formula, IsStatic: true})
	}
	if len(doc.DynamicHash) != len(doc.DynamicPreconditions) {
		return nil, planerr.New(planerr.KindParse, "", "persisted dynamic-precondition hashes do not match the precondition count")
	}
	for i, p := range doc.DynamicPreconditions {
		formula, err := DecodeExpr(p, nil)
		if err != nil {
			return nil, err
		}
		hash, err := decodeHash(doc.DynamicHash[i])
		if err != nil {
			return nil, err
		}
		task.DynamicPreconditions = append(task.DynamicPreconditions, grounder.GroundPrecondition{Formula: formula})
		task.DynamicHash = append(task.DynamicHash, hash)
	}

	for i, bits := range doc.LegalActions {
		task.LegalActions = append(task.LegalActions, fluent.NewActionState(bits, i))
	}
	for _, d := range doc.Domains {
		task.Domains = append(task.Domains, expr.NewDomain(d...))
	}
	return task, nil
}

func encodeHash(h compile.CompiledExpr) PersistedHash {
	return PersistedHash{
		ActionKeys:      h.ActionKeys,
		StateBase:       h.StateBase,
		FinalStateBase:  h.FinalStateBase,
		Policy:          h.Policy.String(),
		KleeneBase:      h.KleeneBase,
		FinalKleeneBase: h.FinalKleeneBase,
		KleenePolicy:    h.KleenePolicy.String(),
	}
}

func decodeHash(h PersistedHash) (compile.CompiledExpr, error) {
	policy, err := parsePolicy(h.Policy)
	if err != nil {
		return compile.CompiledExpr{}, err
	}
	kleenePolicy, err := parsePolicy(h.KleenePolicy)
	if err != nil {
		return compile.CompiledExpr{}, err
	}
	return compile.CompiledExpr{
		ActionKeys:      h.ActionKeys,
		StateBase:       h.StateBase,
		FinalStateBase:  h.FinalStateBase,
		Policy:          policy,
		KleeneBase:      h.KleeneBase,
		FinalKleeneBase: h.FinalKleeneBase,
		KleenePolicy:    kleenePolicy,
	}, nil
}

func parsePolicy(s string) (compile.CachingPolicy, error) {
	switch s {
	case "NONE", "":
		return compile.PolicyNone, nil
	case "VECTOR":
		return compile.PolicyVector, nil
	case "MAP":
		return compile.PolicyMap, nil
	case "DISABLED_MAP":
		return compile.PolicyDisabledMap, nil
	default:
		return 0, planerr.New(planerr.KindParse, s, "unknown caching policy")
	}
}
