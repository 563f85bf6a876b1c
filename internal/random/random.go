// Package random provides the injectable source of randomness used by the
// month simulator.
package random

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Source produces uniformly distributed values within bounds.
type Source interface {
	// Float64Range returns a value in [min, max).
	Float64Range(min, max float64) float64
	// IntRange returns a value in [min, max], both inclusive.
	IntRange(min, max int) int
}

// PRNG is a goroutine-safe pseudo-random Source.
type PRNG struct {
	rng *rand.Rand
	mu  sync.Mutex
}

// New returns a Source seeded from the wall clock.
func New() *PRNG {
	return NewSeeded(uint64(time.Now().UnixNano()))
}

// NewSeeded returns a deterministic Source for the given seed.
func NewSeeded(seed uint64) *PRNG {
	return &PRNG{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Float64Range returns a value in [min, max).
func (p *PRNG) Float64Range(min, max float64) float64 {
	if max <= min {
		return min
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return min + p.rng.Float64()*(max-min)
}

// IntRange returns a value in [min, max].
func (p *PRNG) IntRange(min, max int) int {
	if max <= min {
		return min
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return min + p.rng.IntN(max-min+1)
}

// Midpoint always returns the middle of a float range and the lower bound of
// an int range. It removes all variation from a simulation.
type Midpoint struct{}

// Float64Range returns (min+max)/2.
func (Midpoint) Float64Range(min, max float64) float64 {
	return (min + max) / 2
}

// IntRange returns min.
func (Midpoint) IntRange(min, _ int) int {
	return min
}

// Scripted replays fixed values, cycling when exhausted. Values are clamped to
// the requested bounds.
type Scripted struct {
	Floats []float64
	Ints   []int
	fi, ii int
	mu     sync.Mutex
}

// Float64Range returns the next scripted float, clamped to [min, max].
func (s *Scripted) Float64Range(min, max float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Floats) == 0 {
		return (min + max) / 2
	}
	v := s.Floats[s.fi%len(s.Floats)]
	s.fi++
	return clamp(v, min, max)
}

// IntRange returns the next scripted int, clamped to [min, max].
func (s *Scripted) IntRange(min, max int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Ints) == 0 {
		return min
	}
	v := s.Ints[s.ii%len(s.Ints)]
	s.ii++
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
