// rand/rand.go
// Copyright(c) 2025 skyroute contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package rand

import (
	"time"

	"github.com/MichaelTJones/pcg"
)

///////////////////////////////////////////////////////////////////////////
// Random numbers.

// Rand is a small PCG32-based generator. Each optimizer and weather
// generator owns its own Rand so that runs are reproducible when seeded
// and never share state across goroutines.
type Rand struct {
	r *pcg.PCG32
}

func New() Rand {
	r := Rand{r: pcg.NewPCG32()}
	r.Seed(time.Now().UnixNano())
	return r
}

func (r *Rand) Seed(s int64) {
	r.r.Seed(uint64(s), 0xda3e39cb94b95bdb)
}

// Intn returns a uniformly distributed value in [0,n); n must be positive.
func (r *Rand) Intn(n int) int {
	if n <= 0 {
		panic("rand: Intn called with non-positive n")
	}
	return int(r.r.Bounded(uint32(n)))
}

// Float64 returns a value in [0,1).
func (r *Rand) Float64() float64 {
	return float64(r.r.Random()) / (1 << 32)
}

// Uniform returns a value in [lo,hi).
func (r *Rand) Uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*r.Float64()
}

func (r *Rand) Uint32() uint32 {
	return r.r.Random()
}

// SampleSlice uniformly randomly samples an element of a non-empty slice.
func SampleSlice[T any](r *Rand, slice []T) T {
	return slice[r.Intn(len(slice))]
}

// SampleFiltered uniformly randomly samples a slice, returning the index
// of the sampled item, using provided predicate function to filter the
// items that may be sampled.  An index of -1 is returned if the slice is
// empty or the predicate returns false for all items.
func SampleFiltered[T any](r *Rand, slice []T, pred func(T) bool) int {
	idx := -1
	candidates := 0
	for i, v := range slice {
		if pred(v) {
			candidates++
			if r.Float64()*float64(candidates) < 1 {
				idx = i
			}
		}
	}
	return idx
}

// SampleWeighted randomly samples an element from the given slice with the
// probability of choosing each element proportional to the value returned
// by the provided callback. Non-positive weights are never chosen; -1 is
// returned if no element has a positive weight.
func SampleWeighted[T any](r *Rand, slice []T, weight func(T) float64) int {
	// Weighted reservoir sampling...
	idx := -1
	var sumWt float64
	for i, v := range slice {
		w := weight(v)
		if !(w > 0) {
			continue
		}

		sumWt += w
		if r.Float64()*sumWt < w {
			idx = i
		}
	}
	return idx
}
