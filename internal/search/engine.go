package search

import (
	"math"
	"time"

	"github.com/google/uuid"

	"rddlplanner/internal/compile"
	"rddlplanner/internal/eval"
	"rddlplanner/internal/expr"
	"rddlplanner/internal/fluent"
	"rddlplanner/internal/mdp"
	"rddlplanner/internal/planerr"
	"rddlplanner/internal/randsrc"
)

var negInf = math.Inf(-1)

// TimeoutPolicy selects which budget(s) gate a planning step.
type TimeoutPolicy int

const (
	TimePolicy TimeoutPolicy = iota
	RolloutsPolicy
	TimeAndRolloutsPolicy
)

// Config collects every search tunable.
type Config struct {
	PoolCapacity     int
	NearCapacity     int
	UCBScale         float64
	NumInitialVisits int

	NoopOptimalFinalAction bool

	TimeoutPolicy TimeoutPolicy
	Timeout       time.Duration
	MaxRollouts   int
}

// DefaultConfig returns the stated defaults.
func DefaultConfig() Config {
	return Config{
		PoolCapacity:           DefaultPoolCapacity,
		NearCapacity:           DefaultNearCapacityThreshold,
		UCBScale:               DefaultUCBScale,
		NumInitialVisits:       5,
		NoopOptimalFinalAction: true,
		TimeoutPolicy:          TimeAndRolloutsPolicy,
		Timeout:                time.Second,
		MaxRollouts:            100_000,
	}
}

// Engine runs the THTS/UCT planning loop against one
// compiled task: each Plan call resets the node pool, rolls out until
// its timeout policy or the pool's near-capacity threshold is reached,
// and returns the best action found at the root.
type Engine struct {
	Facade      *mdp.Facade
	Task        *compile.CompiledTask
	Eval        *eval.Evaluator
	Initializer Initializer
	Rand        *randsrc.Source

	cfg Config

	roll *rolloutEngine
	pool *NodePool

	// RunID tags this engine's lifetime (spanning many Plan calls and
	// node-pool generations); every step's published stats carry the same
	// RunID, so it tells runs apart, not pool generations.
	RunID uuid.UUID
}

// NewEngine builds an Engine. initializer may be a *RandomInitializer or
// an *IDS.
func NewEngine(facade *mdp.Facade, task *compile.CompiledTask, evaluator *eval.Evaluator, rng *randsrc.Source, initializer Initializer, cfg Config) *Engine {
	pool := NewNodePool(cfg.PoolCapacity, cfg.NearCapacity)
	return &Engine{
		Facade:      facade,
		Task:        task,
		Eval:        evaluator,
		Initializer: initializer,
		Rand:        rng,
		cfg:         cfg,
		pool:        pool,
		RunID:       uuid.New(),
		roll: &rolloutEngine{
			Facade:                 facade,
			Task:                   task,
			Rand:                   rng,
			Initializer:            initializer,
			numberOfInitialVisits:  cfg.NumInitialVisits,
			ucbScale:               cfg.UCBScale,
			noopOptimalFinalAction: cfg.NoopOptimalFinalAction,
			pool:                   pool,
		},
	}
}

// Stats is the subset of node-pool/rollout state telemetry needs to
// publish; the search loop owns it and a consumer only ever reads after
// Plan returns (the single-threaded, no-locking-needed model).
type Stats struct {
	Rollouts  int
	PoolLive  int
	RootQHats []float64
}

// Plan runs rollouts from s with remainingSteps steps left in the
// episode until the configured timeout policy or node-pool capacity
// stops it, then returns the best root action.
func (e *Engine) Plan(s expr.State, remainingSteps int) (fluent.ActionState, Stats, error) {
	e.pool.Reset()
	root, ok := e.pool.AllocDecision()
	if !ok {
		return e.Facade.Noop(), Stats{}, planerr.New(planerr.KindCapacityExceeded, "", "node pool could not allocate root")
	}

	deadline := time.Now().Add(e.cfg.Timeout)
	rollouts := 0

	for !e.pool.NearCapacity() {
		if e.budgetExhausted(rollouts, deadline) {
			break
		}
		if _, ok := e.roll.rolloutDecision(root, s, remainingSteps); !ok {
			break
		}
		rollouts++
	}

	action, qs := e.bestRootAction(root)
	return action, Stats{Rollouts: rollouts, PoolLive: e.pool.Live(), RootQHats: qs}, nil
}

func (e *Engine) budgetExhausted(rollouts int, deadline time.Time) bool {
	switch e.cfg.TimeoutPolicy {
	case RolloutsPolicy:
		return rollouts >= e.cfg.MaxRollouts
	case TimeAndRolloutsPolicy:
		return time.Now().After(deadline) || rollouts >= e.cfg.MaxRollouts
	default:
		return time.Now().After(deadline)
	}
}

// bestRootAction reads the root decision node's children after rollouts
// stop and returns the legal action with the highest mean accumulated
// reward, falling back to noop if the root was never expanded (an
// immediate reward lock, or the pool filled before even one rollout).
func (e *Engine) bestRootAction(rootIdx int) (fluent.ActionState, []float64) {
	root := e.pool.Decision(rootIdx)
	qs := make([]float64, len(e.Task.LegalActions))
	for i := range qs {
		qs[i] = negInf
	}
	if root.isLeaf || root.isRewardLock || root.children == nil {
		return e.Facade.Noop(), qs
	}

	bestIdx := -1
	best := negInf
	for i, childIdx := range root.children {
		if childIdx == -1 {
			continue
		}
		q := e.pool.Chance(childIdx).qHat()
		qs[i] = q
		if q > best {
			best = q
			bestIdx = i
		}
	}
	if bestIdx == -1 {
		return e.Facade.Noop(), qs
	}
	return e.Task.LegalActions[bestIdx], qs
}
