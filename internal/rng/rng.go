// Package rng provides the reproducible pseudo-random source shared by the
// move framework.
//
// A simulation needs two independent streams: one consumed by whatever
// driving code exists outside the move framework (file I/O ordering, initial
// configuration shuffling, ...) and one owned exclusively by the Propagator,
// so that a Markov chain's trajectory is deterministic independently of how
// many random draws other collaborators make. Derive() builds the second
// stream from the first, matching the "two instances" design in the move
// framework's design notes: a global, user-level RNG and a move-internal one
// seeded from it at construction.
package rng

import (
	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/stat/distuv"
)

// RNG is a reproducible, seedable uniform source. It is safe to use from a
// single goroutine only; callers that run replicas concurrently (parallel
// tempering, §4.10) must give each replica its own RNG.
type RNG struct {
	src  *rand.Rand
	unif distuv.Uniform
}

// New builds an RNG seeded deterministically from seed.
func New(seed uint64) *RNG {
	src := rand.New(rand.NewSource(seed))
	return &RNG{
		src:  src,
		unif: distuv.Uniform{Min: 0, Max: 1, Src: src},
	}
}

// Seed reseeds the source in place.
func (r *RNG) Seed(seed uint64) {
	r.src.Seed(seed)
}

// Uniform draws from (0,1); a 0 from the underlying [0,1) source is
// discarded and drawn again.
func (r *RNG) Uniform() float64 {
	for {
		if u := r.unif.Rand(); u > 0 {
			return u
		}
	}
}

// Half draws from [-0.5,0.5).
func (r *RNG) Half() float64 {
	return r.Uniform() - 0.5
}

// Int draws a uniform integer in [0,n). Returns 0 if n<=0.
func (r *RNG) Int(n int) int {
	if n <= 0 {
		return 0
	}
	return int(r.src.Int63n(int64(n)))
}

// Pick selects a random index into a collection of length n, or -1 if the
// collection is empty. This is the "random-iterator-selection" operation
// used by moves to pick a group, a molecule type, or a particle uniformly.
func (r *RNG) Pick(n int) int {
	if n <= 0 {
		return -1
	}
	return r.Int(n)
}

// Derive creates a new RNG reseeded from a draw of r, used to build a
// Propagator's dedicated move-RNG from a process-wide RNG at construction.
func (r *RNG) Derive() *RNG {
	seed := r.src.Uint64()
	return New(seed)
}
