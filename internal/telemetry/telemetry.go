// Package telemetry publishes the planner's running state — a handful
// of scalars and a Q-value vector shared by exactly one writer (the
// search loop) and any number of readers (the dashboard) — built on
// atomic_float.AtomicFloat64. The search core itself stays
// single-threaded and lock-free; this package is the one place a
// second goroutine is allowed to observe that core's state, and it
// does so the same way atomic_float does: lock-free reads and
// compare-and-swap writes, never a mutex.
package telemetry

import (
	"sync/atomic"
	"time"

	"rddlplanner/atomic_float"
	"rddlplanner/internal/search"
)

// Snapshot is a point-in-time, race-free copy of the planner's last
// published step. RootQHats is copied out of the live atomic slice so
// a reader never observes a torn write across its elements.
type Snapshot struct {
	RunID      string
	Rollouts   int64
	PoolLive   int64
	RootQHats  []float64
	PublishedAt time.Time
}

// Publisher holds the live, concurrently-readable state. The search
// loop calls Publish once per Plan call; the dashboard calls Snapshot
// any number of times concurrently with the next Publish.
type Publisher struct {
	runID    atomic.Value // string
	rollouts atomic.Int64
	poolLive atomic.Int64

	// qHats is sized at construction and never resized afterward: the
	// action count is fixed for the life of a compiled task, so there
	// is no concurrent-resize hazard to design around.
	qHats []*atomic_float.AtomicFloat64

	publishedAtNano atomic.Int64
}

// NewPublisher preallocates the Q-value slots for an action space of
// the given size. actionCount is the compiled task's legal-action
// count (compile.CompiledTask.LegalActions)).
func NewPublisher(actionCount int) *Publisher {
	qHats := make([]*atomic_float.AtomicFloat64, actionCount)
	for i := range qHats {
		qHats[i] = atomic_float.NewAtomicFloat64(0)
	}
	return &Publisher{qHats: qHats}
}

// Publish records one planning step's stats. now is passed in rather
// than read internally so callers with an injected clock (tests) stay
// deterministic.
func (p *Publisher) Publish(runID string, stats search.Stats, now time.Time) {
	p.runID.Store(runID)
	p.rollouts.Store(int64(stats.Rollouts))
	p.poolLive.Store(int64(stats.PoolLive))
	p.publishedAtNano.Store(now.UnixNano())

	// Publish has exactly one caller (the search loop, once per Plan
	// call), so no other goroutine races this CAS loop to stale-update
	// the slot from under us; it always converges on the first try.
	for i, q := range stats.RootQHats {
		if i >= len(p.qHats) {
			break
		}
		for {
			old := p.qHats[i].AtomicRead()
			if _, ok := p.qHats[i].AtomicAdd(q - old); ok {
				break
			}
		}
	}
}

// Snapshot copies out the current published state without blocking
// the writer.
func (p *Publisher) Snapshot() Snapshot {
	runID, _ := p.runID.Load().(string)
	qHats := make([]float64, len(p.qHats))
	for i, q := range p.qHats {
		qHats[i] = q.AtomicRead()
	}
	return Snapshot{
		RunID:       runID,
		Rollouts:    p.rollouts.Load(),
		PoolLive:    p.poolLive.Load(),
		RootQHats:   qHats,
		PublishedAt: time.Unix(0, p.publishedAtNano.Load()),
	}
}
