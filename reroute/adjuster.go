// reroute/adjuster.go
// Copyright(c) 2025 skyroute contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package reroute

import (
	"context"
	"fmt"
	"slices"

	"github.com/skyroute/skyroute/aviation"
	"github.com/skyroute/skyroute/log"
	"github.com/skyroute/skyroute/math"
	"github.com/skyroute/skyroute/notify"
	"github.com/skyroute/skyroute/planner"
	"github.com/skyroute/skyroute/util"
	"github.com/skyroute/skyroute/wx"
)

const (
	DefaultExclusionRadiusKm = 150
	MinExclusionRadiusKm     = 100
	MaxExclusionRadiusKm     = 200

	// Weights applied when ranking alternatives by weather and fuel.
	fuelWeight = 0.2
	riskWeight = 0.1
)

// Adjuster reroutes registered routes around blocked waypoints.
type Adjuster struct {
	Registry *Registry
	Planner  *planner.Planner
	Aircraft aviation.AircraftCatalog // may be nil
	Notifier notify.Notifier

	ExclusionRadiusKm float64

	lg *log.Logger
}

func NewAdjuster(reg *Registry, p *planner.Planner, aircraft aviation.AircraftCatalog, n notify.Notifier,
	lg *log.Logger) *Adjuster {
	return &Adjuster{
		Registry:          reg,
		Planner:           p,
		Aircraft:          aircraft,
		Notifier:          n,
		ExclusionRadiusKm: DefaultExclusionRadiusKm,
		lg:                lg,
	}
}

// candidate is an alternative path spliced onto the current route.
type candidate struct {
	alt     *aviation.Route
	spliced *aviation.Route
	entryKm float64 // from the current position to alt's nearest waypoint
	total   float64
}

// Block marks the waypoint blocked and replaces the rest of the route
// with the best alternative that avoids it. The route keeps its id. On
// failure the only change to the registered route is the waypoint's
// blocked status.
func (a *Adjuster) Block(ctx context.Context, routeID, waypointID string) (*aviation.Route, error) {
	var result *aviation.Route
	var blocked, active aviation.Waypoint
	var skipped []aviation.Waypoint

	err := a.Registry.Update(routeID, func(live *aviation.Route) error {
		bidx, ok := live.WaypointIndex(waypointID)
		if !ok {
			return fmt.Errorf("route %s: waypoint %s: %w", routeID, waypointID, aviation.ErrNotFound)
		}
		live.Waypoints[bidx].Status = aviation.WaypointBlocked
		blocked = live.Waypoints[bidx]
		a.lg.Info("waypoint blocked", "route_id", routeID, "waypoint", blocked.Name)

		if bidx == 0 {
			return fmt.Errorf("route %s: %w", routeID, aviation.ErrFirstWaypointBlocked)
		}

		work := live.Clone()
		work.Waypoints[bidx-1].Status = aviation.WaypointActive
		current := work.Waypoints[bidx-1]

		ac := a.aircraftFor(work)
		alts, err := a.alternatives(work, current, blocked, ac)
		if err != nil {
			return err
		}

		best, err := a.selectBest(ctx, work, current, blocked, alts, ac)
		if err != nil {
			return err
		}

		r := best.spliced
		r.ID = live.ID
		a.Planner.Evaluator.Score(r, ac)

		skipped = util.FilterSlice(work.Waypoints[bidx+1:], func(wp aviation.Waypoint) bool {
			return wp.Status != aviation.WaypointBlocked
		})
		active = current

		*live = *r.Clone()
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.lg.Info("rerouted", "route_id", routeID, "path_type", result.PathType, "waypoints", len(result.Waypoints),
		"distance_km", result.DistanceKm, "fitness", result.FitnessScore)
	a.publish(result, blocked, active, skipped)
	return result, nil
}

func (a *Adjuster) aircraftFor(r *aviation.Route) *aviation.Aircraft {
	if a.Aircraft == nil || r.AircraftModel == "" {
		return nil
	}
	ac, err := aviation.LookupAircraft(a.Aircraft, r.AircraftModel)
	if err != nil {
		a.lg.Warnf("%s: %v", r.ID, err)
		return nil
	}
	return &ac
}

func (a *Adjuster) exclusionRadius() float64 {
	if a.ExclusionRadiusKm <= 0 {
		return DefaultExclusionRadiusKm
	}
	return math.Clamp(a.ExclusionRadiusKm, MinExclusionRadiusKm, MaxExclusionRadiusKm)
}

// alternatives generates paths from the current position to the
// destination of every type the route has not yet used, avoiding the
// blocked waypoint.
func (a *Adjuster) alternatives(r *aviation.Route, current, blocked aviation.Waypoint,
	ac *aviation.Aircraft) ([]*aviation.Route, error) {
	tried := r.TriedPathTypes()
	var types []aviation.PathType
	for _, pt := range aviation.AllPathTypes {
		if !slices.Contains(tried, pt) {
			types = append(types, pt)
		}
	}
	if len(types) == 0 {
		return nil, fmt.Errorf("route %s: every path type has been tried: %w", r.ID, aviation.ErrNoCandidate)
	}

	excluded := []aviation.ExcludedArea{{Center: blocked.Location, RadiusKm: a.exclusionRadius()}}
	alts, err := a.Planner.Generator.Generate(aviation.TemporaryAirport(current.Location), r.Destination,
		types, excluded)
	if err != nil {
		return nil, fmt.Errorf("route %s: %w: %w", r.ID, aviation.ErrNoCandidate, err)
	}
	if len(alts) == 0 {
		return nil, fmt.Errorf("route %s: %w", r.ID, aviation.ErrNoCandidate)
	}
	a.lg.Debugf("%s: %d alternatives of types %v", r.ID, len(alts), types)
	return alts, nil
}

// selectBest splices each alternative onto the route and picks one. With
// an aircraft and a weather provider, alternatives are ranked by fitness
// plus fuel and weather risk; otherwise the alternative that passes
// closest to the current position wins.
func (a *Adjuster) selectBest(ctx context.Context, r *aviation.Route, current, blocked aviation.Waypoint,
	alts []*aviation.Route, ac *aviation.Aircraft) (candidate, error) {
	var cands []candidate
	for _, alt := range alts {
		_, d := alt.NearestWaypointIndex(current.Location)
		cands = append(cands, candidate{alt: alt, entryKm: d})
	}

	if ac == nil || a.Planner.Weather == nil {
		best := slices.MinFunc(cands, func(x, y candidate) int {
			if x.entryKm < y.entryKm {
				return -1
			} else if x.entryKm > y.entryKm {
				return 1
			}
			return 0
		})
		best.spliced = splice(r, current, blocked, best.alt, a.lg)
		return best, nil
	}

	for i := range cands {
		c := &cands[i]
		c.spliced = splice(r, current, blocked, c.alt, a.lg)
		if len(c.spliced.Weather) == 0 {
			if err := a.Planner.SampleWeather(ctx, c.spliced); err != nil {
				return candidate{}, err
			}
		}
		b := a.Planner.Evaluator.Evaluate(c.spliced, ac)
		c.total = b.Score + b.FuelKg*fuelWeight + WeatherRisk(c.spliced.Weather)*riskWeight
		a.lg.Debugf("%s: alternative %s total %.2f (fitness %.3f, fuel %.0f kg)", r.ID, c.alt.PathType,
			c.total, b.Score, b.FuelKg)
	}
	slices.SortStableFunc(cands, func(x, y candidate) int {
		if x.total < y.total {
			return -1
		} else if x.total > y.total {
			return 1
		}
		return 0
	})
	return cands[0], nil
}

// WeatherRisk sums turbulence, visibility and cloud hazards over every
// sample in the set.
func WeatherRisk(set wx.SampleSet) float64 {
	var risk float64
	for _, ks := range set {
		s := ks.Sample
		if vv := math.Abs(s.VerticalVelocity); vv > 0.5 {
			risk += vv * 2
		}
		if s.Visibility < 5000 {
			risk += (5000 - s.Visibility) / 1000
		}
		if s.CloudCover > 80 {
			risk += (s.CloudCover - 80) / 5
		}
	}
	return risk
}

// publish reports the reroute. Notification failures are logged but
// otherwise ignored; the reroute has already happened.
func (a *Adjuster) publish(r *aviation.Route, blocked, active aviation.Waypoint, skipped []aviation.Waypoint) {
	if a.Notifier == nil {
		return
	}
	if err := a.Notifier.PublishRouteUpdate(r.ID, r); err != nil {
		a.lg.Warnf("%s: route update: %v", r.ID, err)
	}

	status := func(wp aviation.Waypoint, s aviation.WaypointStatus) {
		if err := a.Notifier.PublishWaypointStatus(r.ID, wp.ID, s); err != nil {
			a.lg.Warnf("%s: waypoint %s status: %v", r.ID, wp.Name, err)
		}
	}
	status(blocked, aviation.WaypointBlocked)
	status(active, aviation.WaypointActive)
	for _, wp := range skipped {
		status(wp, aviation.WaypointSkipped)
	}
}
