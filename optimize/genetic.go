// optimize/genetic.go
// Copyright(c) 2025 skyroute contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package optimize

import (
	"cmp"
	"slices"

	"github.com/skyroute/skyroute/aviation"
	"github.com/skyroute/skyroute/log"
	"github.com/skyroute/skyroute/rand"
)

const maxTournamentSize = 5

// Genetic evolves a population of whole-route candidates. Individuals
// are candidates, so crossover picks the fitter parent and mutation
// swaps in a different candidate.
type Genetic struct {
	Generations    int
	PopulationSize int
	EliteSize      int
	MutationRate   float64

	rng rand.Rand
	lg  *log.Logger
}

func NewGenetic(cfg Config, lg *log.Logger) *Genetic {
	g := &Genetic{
		Generations:    max(1, cfg.Generations),
		PopulationSize: max(1, cfg.PopulationSize),
		EliteSize:      max(0, cfg.EliteSize),
		MutationRate:   cfg.MutationRate,
		rng:            rand.New(),
		lg:             lg,
	}
	if cfg.Seed != 0 {
		g.rng.Seed(cfg.Seed)
	}
	return g
}

func (g *Genetic) Method() string { return MethodGenetic }

func (g *Genetic) Optimize(candidates []*aviation.Route) *aviation.Route {
	if len(candidates) == 0 {
		g.lg.Warn("no candidates to optimize")
		return nil
	}
	if len(candidates) == 1 {
		return choose(candidates[0], MethodGenetic)
	}

	// Individuals are indices into candidates.
	pop := make([]int, g.PopulationSize)
	for i := range pop {
		pop[i] = g.rng.Intn(len(candidates))
	}

	for range g.Generations {
		pop = g.step(pop, candidates)
	}

	best := slices.MinFunc(pop, byFitness(candidates))
	g.lg.Infof("genetic: %d generations, best %s (%s) fitness %.4f", g.Generations,
		candidates[best].Name, candidates[best].PathType, candidates[best].FitnessScore)
	return choose(candidates[best], MethodGenetic)
}

func byFitness(candidates []*aviation.Route) func(a, b int) int {
	return func(a, b int) int {
		return cmp.Compare(candidates[a].FitnessScore, candidates[b].FitnessScore)
	}
}

// step sorts pop by fitness and breeds the next generation from it. The
// elite lead the new population unchanged.
func (g *Genetic) step(pop []int, candidates []*aviation.Route) []int {
	fitness := func(i int) float64 { return candidates[i].FitnessScore }
	slices.SortStableFunc(pop, byFitness(candidates))

	next := make([]int, 0, g.PopulationSize)
	next = append(next, pop[:min(g.EliteSize, len(pop))]...)
	for len(next) < g.PopulationSize {
		p1, p2 := g.tournament(pop, fitness), g.tournament(pop, fitness)
		child := p1
		if fitness(p2) < fitness(p1) {
			child = p2
		}
		if g.rng.Float64() < g.MutationRate {
			child = g.mutate(child, candidates)
		}
		next = append(next, child)
	}
	return next
}

// tournament returns the fittest of a few randomly chosen individuals.
func (g *Genetic) tournament(pop []int, fitness func(int) float64) int {
	k := min(maxTournamentSize, len(pop))
	winner := rand.SampleSlice(&g.rng, pop)
	for range k - 1 {
		if c := rand.SampleSlice(&g.rng, pop); fitness(c) < fitness(winner) {
			winner = c
		}
	}
	return winner
}

// mutate returns a uniformly chosen candidate other than the given one.
func (g *Genetic) mutate(i int, candidates []*aviation.Route) int {
	id := candidates[i].ID
	j := rand.SampleFiltered(&g.rng, candidates, func(r *aviation.Route) bool { return r.ID != id })
	if j == -1 {
		return i
	}
	return j
}
