// Package randsrc is the single per-process pseudo-random stream: PD
// sampling in SampleSuccessor, uniform tie-breaking in decision-node
// selection, and the training-set random walk all draw from one
// explicitly seeded source rather than the implicit package-level
// math/rand generator.
package randsrc

import "math/rand"

// Source is an explicit, non-global PRNG stream seeded once from the CLI
// (default: current time).
type Source struct {
	rng *rand.Rand
}

// New returns a stream seeded with seed.
func New(seed int64) *Source {
	return &Source{rng: rand.New(rand.NewSource(seed))}
}

// Float64 returns a pseudo-random number in [0,1), used to sample a
// value from a PD's cumulative distribution.
func (s *Source) Float64() float64 { return s.rng.Float64() }

// Intn returns a pseudo-random number in [0,n), used for uniform
// tie-breaking among equally-good children and for picking a uniformly
// random applicable action during the training-set random walk.
func (s *Source) Intn(n int) int { return s.rng.Intn(n) }
