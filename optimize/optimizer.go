// optimize/optimizer.go
// Copyright(c) 2025 skyroute contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package optimize selects the best of a set of scored candidate routes.
// The optimizers choose among whole paths; they never recombine
// waypoints.
package optimize

import (
	"strings"

	"github.com/skyroute/skyroute/aviation"
	"github.com/skyroute/skyroute/log"
)

const (
	MethodACO     = "aco"
	MethodGenetic = "genetic"
)

type Optimizer interface {
	// Optimize returns a copy of the chosen candidate with its
	// OptimizationMethod set, or nil if there are no candidates. The
	// candidates must already be scored.
	Optimize(candidates []*aviation.Route) *aviation.Route
	Method() string
}

type Config struct {
	ACOIterations int     `json:"aco_iterations"`
	ACOAnts       int     `json:"aco_ants"`
	Alpha         float64 `json:"aco_alpha"`
	Beta          float64 `json:"aco_beta"`
	Evaporation   float64 `json:"aco_evaporation"`

	Generations    int     `json:"ga_generations"`
	PopulationSize int     `json:"population_size"`
	EliteSize      int     `json:"elite_size"`
	MutationRate   float64 `json:"mutation_rate"`

	// Seed, if non-zero, makes the optimizers deterministic.
	Seed int64 `json:"seed,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		ACOIterations:  50,
		ACOAnts:        1,
		Alpha:          1,
		Beta:           2,
		Evaporation:    0.5,
		Generations:    50,
		PopulationSize: 50,
		EliteSize:      2,
		MutationRate:   0.2,
	}
}

// Methods returns the names accepted by ByMethod.
func Methods() []string {
	return []string{MethodACO, MethodGenetic}
}

// ByMethod returns a new optimizer for the named method. Unknown methods
// fall back to ant colony optimization.
func ByMethod(method string, cfg Config, lg *log.Logger) Optimizer {
	switch strings.ToLower(strings.TrimSpace(method)) {
	case MethodACO, "":
		return NewACO(cfg, lg)
	case MethodGenetic:
		return NewGenetic(cfg, lg)
	default:
		lg.Warnf("%s: unknown optimization method; using %s", method, MethodACO)
		return NewACO(cfg, lg)
	}
}

// choose returns the copy of r handed back to callers of Optimize.
func choose(r *aviation.Route, method string) *aviation.Route {
	c := r.Clone()
	c.OptimizationMethod = method
	return c
}
