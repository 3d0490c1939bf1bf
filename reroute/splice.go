// reroute/splice.go
// Copyright(c) 2025 skyroute contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package reroute

import (
	gomath "math"
	"strings"

	"github.com/skyroute/skyroute/aviation"
	"github.com/skyroute/skyroute/log"
	"github.com/skyroute/skyroute/math"
	"github.com/skyroute/skyroute/util"
)

const ReroutedNamePrefix = "Rerouted_"

// Alternative waypoints closer than this to the current position are
// treated as the current position itself.
const coincidentKm = 0.01

// locateCurrent returns the index of the current-position waypoint in r,
// matching by id and falling back to the nearest waypoint by location.
func locateCurrent(r *aviation.Route, current aviation.Waypoint) int {
	if idx, ok := r.WaypointIndex(current.ID); ok {
		return idx
	}
	idx, _ := r.NearestWaypointIndex(current.Location)
	return idx
}

// splice builds the rerouted route: cur's waypoints up to and including
// the current position, followed by alt's waypoints from its entry
// point on. The result has as many waypoints as cur where alt allows; a
// longer suffix is thinned evenly, always keeping the destination.
// Appended waypoints get fresh ids and names that carry their new
// sequence number and alt's path type tag.
func splice(cur *aviation.Route, current aviation.Waypoint, blocked aviation.Waypoint, alt *aviation.Route,
	lg *log.Logger) *aviation.Route {
	curIdx := locateCurrent(cur, current)
	if bidx, ok := cur.WaypointIndex(blocked.ID); ok && curIdx >= bidx {
		// The current position is at or past the blocked waypoint;
		// nothing needs replacing.
		lg.Warnf("%s: current position %s is not before blocked waypoint %s", cur.ID, current.Name, blocked.Name)
		return cur.Clone()
	}

	r := cur.Clone()
	r.Waypoints = append([]aviation.Waypoint(nil), cur.Waypoints[:curIdx+1]...)
	budget := len(cur.Waypoints) - len(r.Waypoints)

	// Join the alternative at its waypoint nearest the current position.
	entry, _ := alt.NearestWaypointIndex(current.Location)
	src := alt.Waypoints[entry:]
	if len(src) > 1 && math.DistanceKm(src[0].Location, current.Location) < coincidentKm {
		src = src[1:]
	}

	switch {
	case len(src) > budget:
		src = thin(src, budget)
	case len(src) < budget:
		lg.Infof("%s: alternative %s supplies %d waypoints for %d slots", cur.ID, alt.PathType, len(src), budget)
	}

	for _, wp := range src {
		seq := len(r.Waypoints) + 1
		r.Waypoints = append(r.Waypoints, aviation.Waypoint{
			ID:       aviation.NewID(),
			Name:     aviation.WaypointName(seq, wp.NameTag()),
			Sequence: seq,
			Location: wp.Location,
			Status:   aviation.WaypointPending,
		})
	}
	r.Renumber()

	r.RerouteHistory = append(r.RerouteHistory, aviation.RerouteRecord{
		BlockedWaypoint: blocked.Name,
		PathType:        alt.PathType.Base(),
	})
	if len(r.Weather) == 0 {
		r.Weather = alt.Weather
	}
	r.PathType = alt.PathType.Rerouted()
	r.Name = util.Select(strings.HasPrefix(r.Name, ReroutedNamePrefix), r.Name, ReroutedNamePrefix+r.Name)
	return r
}

// thin returns m waypoints chosen evenly from wps, keeping the last.
func thin(wps []aviation.Waypoint, m int) []aviation.Waypoint {
	n := len(wps)
	if m <= 0 {
		return nil
	}
	if m == 1 {
		return wps[n-1:]
	}
	out := make([]aviation.Waypoint, m)
	for j := range m {
		out[j] = wps[int(gomath.Round(float64(j*(n-1))/float64(m-1)))]
	}
	return out
}
