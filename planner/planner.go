// planner/planner.go
// Copyright(c) 2025 skyroute contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package planner

import (
	"context"
	"fmt"

	"github.com/skyroute/skyroute/aviation"
	"github.com/skyroute/skyroute/log"
	"github.com/skyroute/skyroute/math"
	"github.com/skyroute/skyroute/wx"

	"golang.org/x/time/rate"
)

const (
	DefaultMinDistanceKm = 100
	DefaultMaxDistanceKm = 5000
)

// Request describes the candidates to build.
type Request struct {
	Origin      aviation.Airport
	Destination aviation.Airport
	PathTypes   []aviation.PathType // empty for all
	Excluded    []aviation.ExcludedArea
	Aircraft    *aviation.Aircraft // optional
}

// Planner ties together candidate generation, weather sampling and
// scoring.
type Planner struct {
	Generator *Generator
	Evaluator *Evaluator
	Weather   wx.Provider   // nil disables weather scoring
	Limiter   *rate.Limiter // paces weather requests; may be nil
	Cache     *CandidateCache

	MinDistanceKm, MaxDistanceKm float64

	lg *log.Logger
}

func NewPlanner(weather wx.Provider, lim *rate.Limiter, cache *CandidateCache, lg *log.Logger) *Planner {
	return &Planner{
		Generator:     NewGenerator(lg),
		Evaluator:     NewEvaluator(),
		Weather:       weather,
		Limiter:       lim,
		Cache:         cache,
		MinDistanceKm: DefaultMinDistanceKm,
		MaxDistanceKm: DefaultMaxDistanceKm,
		lg:            lg,
	}
}

// CheckDistance returns ErrInvalidInput if the great-circle distance
// between the airports lies outside the planner's bounds.
func (p *Planner) CheckDistance(origin, destination aviation.Airport) error {
	d := math.DistanceKm(origin.Location, destination.Location)
	if p.MinDistanceKm > 0 && d < p.MinDistanceKm {
		return fmt.Errorf("%s-%s: distance %.0f km below minimum %.0f km: %w", origin.Code, destination.Code,
			d, p.MinDistanceKm, aviation.ErrInvalidInput)
	}
	if p.MaxDistanceKm > 0 && d > p.MaxDistanceKm {
		return fmt.Errorf("%s-%s: distance %.0f km exceeds maximum %.0f km: %w", origin.Code, destination.Code,
			d, p.MaxDistanceKm, aviation.ErrInvalidInput)
	}
	return nil
}

// Plan validates the request's distance and then returns its scored
// candidates.
func (p *Planner) Plan(ctx context.Context, req Request) ([]*aviation.Route, error) {
	if err := p.CheckDistance(req.Origin, req.Destination); err != nil {
		return nil, err
	}
	return p.Candidates(ctx, req)
}

// Candidates generates (or loads from the cache) the request's candidate
// routes, samples weather along each and scores them. Weather failures
// never fail the request; only context cancellation does.
func (p *Planner) Candidates(ctx context.Context, req Request) ([]*aviation.Route, error) {
	var model string
	if req.Aircraft != nil {
		model = req.Aircraft.Model
	}

	var routes []*aviation.Route
	var key string
	if p.Cache != nil {
		key = CandidateKey(req.Origin.Code, req.Destination.Code, req.PathTypes, model, req.Excluded)
		if r, ok := p.Cache.Load(key); ok {
			p.lg.Debugf("%s: using %d cached candidates", key, len(r))
			routes = r
		}
	}
	if routes == nil {
		var err error
		if routes, err = p.Generator.Generate(req.Origin, req.Destination, req.PathTypes, req.Excluded); err != nil {
			return nil, err
		}
		if p.Cache != nil && len(routes) > 0 {
			p.Cache.Store(key, routes)
		}
	}

	for _, r := range routes {
		r.AircraftModel = model
		if err := p.SampleWeather(ctx, r); err != nil {
			return nil, err
		}
		p.Evaluator.Score(r, req.Aircraft)
	}
	return routes, nil
}

// SampleWeather fills in the route's weather samples. It is a no-op if
// the planner has no weather provider.
func (p *Planner) SampleWeather(ctx context.Context, r *aviation.Route) error {
	if p.Weather == nil {
		return nil
	}
	set, err := wx.SampleAll(ctx, p.Weather, r.Points(), p.Limiter)
	if err != nil {
		return fmt.Errorf("%s: weather: %w", r.Name, err)
	}
	if n := set.NumSynthetic(); n > 0 {
		p.lg.Infof("%s: %d of %d weather samples are synthetic", r.Name, n, len(set))
	}
	r.Weather = set
	return nil
}
