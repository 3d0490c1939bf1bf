// planner/generator.go
// Copyright(c) 2025 skyroute contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package planner

import (
	"fmt"
	gomath "math"
	"slices"

	"github.com/skyroute/skyroute/aviation"
	"github.com/skyroute/skyroute/log"
	"github.com/skyroute/skyroute/math"
)

const (
	DefaultWaypoints = 20

	// Number of times the curve's offset is grown when its control point
	// lands in an excluded area.
	maxExclusionAttempts = 5
	exclusionGrowth      = 1.5
)

// Generator builds labeled whole-path candidates between two airports.
type Generator struct {
	Waypoints int // per route, including origin and destination

	lg *log.Logger
}

func NewGenerator(lg *log.Logger) *Generator {
	return &Generator{Waypoints: DefaultWaypoints, lg: lg}
}

// Generate returns one route per requested path type; an empty types
// slice requests all of them. Unknown and duplicate types are skipped.
// Curved paths are bent away from excluded areas where possible.
func (g *Generator) Generate(origin, destination aviation.Airport, types []aviation.PathType,
	excluded []aviation.ExcludedArea) ([]*aviation.Route, error) {
	if !origin.Location.Valid() || !destination.Location.Valid() {
		return nil, fmt.Errorf("%s-%s: invalid endpoint coordinates: %w", origin.Code, destination.Code,
			aviation.ErrInvalidInput)
	}
	if origin.Location == destination.Location {
		return nil, fmt.Errorf("%s-%s: origin and destination coincide: %w", origin.Code, destination.Code,
			aviation.ErrInvalidInput)
	}

	if len(types) == 0 {
		types = aviation.AllPathTypes
	}

	var routes []*aviation.Route
	var seen []aviation.PathType
	for _, pt := range types {
		if !pt.Valid() {
			g.lg.Warnf("%s: unknown path type; skipping", pt)
			continue
		}
		if slices.Contains(seen, pt) {
			continue
		}
		seen = append(seen, pt)

		r := aviation.NewRoute(origin, destination, pt)
		r.Waypoints = g.waypoints(origin.Location, destination.Location, pt, excluded)
		routes = append(routes, r)
	}
	return routes, nil
}

func (g *Generator) waypoints(o, d math.Point2LL, pt aviation.PathType, excluded []aviation.ExcludedArea) []aviation.Waypoint {
	n := max(2, g.Waypoints)

	var at func(t float64) math.Point2LL
	if pt == aviation.PathDirect {
		at = func(t float64) math.Point2LL { return math.PositionAlongGreatCircle(o, d, t, 0) }
	} else {
		// Bezier curves are evaluated in lat-long space; unwrap the
		// destination's longitude so that routes crossing the
		// antimeridian take the short way around.
		du := d
		if dl := d[0] - o[0]; dl > 180 {
			du[0] -= 360
		} else if dl < -180 {
			du[0] += 360
		}

		f := min(0.2, math.DistanceKm(o, d)/2000)
		c := controlPoint(o, du, pt, f)
		for attempt := 0; attempt < maxExclusionAttempts && inExcluded(c, excluded); attempt++ {
			f *= exclusionGrowth
			c = controlPoint(o, du, pt, f)
		}
		if inExcluded(c, excluded) {
			g.lg.Debugf("%s: control point %s still excluded after %d attempts", pt, c.DDString(),
				maxExclusionAttempts)
		}

		ctrl := []math.Point2LL{o, c, du}
		at = func(t float64) math.Point2LL { return normalizeLongitude(math.BezierPoint(ctrl, t)) }
	}

	wps := make([]aviation.Waypoint, n)
	for i := range n {
		var p math.Point2LL
		switch i {
		case 0:
			p = o
		case n - 1:
			p = d
		default:
			p = at(float64(i) / float64(n-1))
		}
		wps[i] = aviation.Waypoint{
			ID:       aviation.NewID(),
			Name:     aviation.WaypointName(i+1, string(pt)),
			Sequence: i + 1,
			Location: p,
			Status:   aviation.WaypointPending,
		}
	}
	return wps
}

// controlPoint returns the middle control point of the quadratic Bezier
// curve for the given path type. f scales the offset from the chord's
// midpoint relative to the chord's length in degrees.
func controlPoint(o, d math.Point2LL, pt aviation.PathType, f float64) math.Point2LL {
	dlon, dlat := d[0]-o[0], d[1]-o[1]
	mid := math.Point2LL{(o[0] + d[0]) / 2, (o[1] + d[1]) / 2}
	chord := gomath.Hypot(dlon, dlat)

	var c math.Point2LL
	switch pt {
	case aviation.PathLeft:
		c = math.Point2LL{mid[0] - f*dlat, mid[1] + f*dlon}
	case aviation.PathRight:
		c = math.Point2LL{mid[0] + f*dlat, mid[1] - f*dlon}
	case aviation.PathWide:
		c = math.Point2LL{mid[0] - 1.5*f*dlat, mid[1] + 1.5*f*dlon}
	case aviation.PathNorth:
		c = math.Point2LL{mid[0], mid[1] + 2*f*chord}
	case aviation.PathSouth:
		c = math.Point2LL{mid[0], mid[1] - 2*f*chord}
	default:
		c = mid
	}
	c[1] = math.Clamp(c[1], -89.9, 89.9)
	return c
}

func inExcluded(p math.Point2LL, excluded []aviation.ExcludedArea) bool {
	return slices.ContainsFunc(excluded, func(e aviation.ExcludedArea) bool { return e.Contains(normalizeLongitude(p)) })
}

func normalizeLongitude(p math.Point2LL) math.Point2LL {
	if p[0] >= -180 && p[0] <= 180 {
		return p
	}
	p[0] = gomath.Mod(p[0]+540, 360) - 180
	return p
}
