// optimize/aco.go
// Copyright(c) 2025 skyroute contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package optimize

import (
	gomath "math"
	"slices"

	"github.com/skyroute/skyroute/aviation"
	"github.com/skyroute/skyroute/log"
	"github.com/skyroute/skyroute/rand"
)

// Guards against division by zero for perfect scores.
const epsilon = 1e-3

// ACO is an ant colony optimizer over whole-route candidates.
type ACO struct {
	Iterations  int
	Ants        int // candidates sampled per iteration
	Alpha       float64
	Beta        float64
	Evaporation float64

	rng         rand.Rand
	bestHistory []float64
	lg          *log.Logger
}

func NewACO(cfg Config, lg *log.Logger) *ACO {
	a := &ACO{
		Iterations:  max(1, cfg.ACOIterations),
		Ants:        max(1, cfg.ACOAnts),
		Alpha:       cfg.Alpha,
		Beta:        cfg.Beta,
		Evaporation: cfg.Evaporation,
		rng:         rand.New(),
		lg:          lg,
	}
	if cfg.Seed != 0 {
		a.rng.Seed(cfg.Seed)
	}
	return a
}

func (a *ACO) Method() string { return MethodACO }

// BestHistory returns the best fitness found as of the end of each
// iteration of the most recent run.
func (a *ACO) BestHistory() []float64 {
	return slices.Clone(a.bestHistory)
}

func heuristic(r *aviation.Route) float64 {
	return 1 / (r.FitnessScore + epsilon)
}

func (a *ACO) Optimize(candidates []*aviation.Route) *aviation.Route {
	a.bestHistory = nil
	if len(candidates) == 0 {
		a.lg.Warn("no candidates to optimize")
		return nil
	}

	pheromone := make(map[string]float64, len(candidates))
	for _, r := range candidates {
		pheromone[r.ID] = 1
	}

	var best *aviation.Route
	for range a.Iterations {
		var sampled []*aviation.Route
		for range a.Ants {
			idx := rand.SampleWeighted(&a.rng, candidates, func(r *aviation.Route) float64 {
				return gomath.Pow(pheromone[r.ID], a.Alpha) * gomath.Pow(heuristic(r), a.Beta)
			})
			if idx == -1 {
				// Every weight underflowed; pick uniformly.
				idx = a.rng.Intn(len(candidates))
			}
			r := candidates[idx]
			sampled = append(sampled, r)

			// Only strict improvements replace the best so far.
			if best == nil || r.FitnessScore < best.FitnessScore {
				best = r
			}
		}

		for id := range pheromone {
			pheromone[id] *= 1 - a.Evaporation
		}
		for _, r := range sampled {
			pheromone[r.ID] += heuristic(r)
		}

		a.bestHistory = append(a.bestHistory, best.FitnessScore)
	}

	a.lg.Infof("ACO: %d iterations, best %s (%s) fitness %.4f", a.Iterations, best.Name, best.PathType,
		best.FitnessScore)
	return choose(best, MethodACO)
}
