// aviation/route.go
// Copyright(c) 2025 skyroute contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/skyroute/skyroute/math"
	"github.com/skyroute/skyroute/wx"

	"github.com/google/uuid"
)

///////////////////////////////////////////////////////////////////////////
// PathType

type PathType string

const (
	PathDirect PathType = "direct"
	PathLeft   PathType = "left"
	PathRight  PathType = "right"
	PathNorth  PathType = "north"
	PathSouth  PathType = "south"
	PathWide   PathType = "wide"

	ReroutedPrefix = "rerouted_"
)

// AllPathTypes lists the path types the generator knows how to build, in
// the order it builds them by default.
var AllPathTypes = []PathType{PathDirect, PathLeft, PathRight, PathNorth, PathSouth, PathWide}

func (p PathType) Valid() bool {
	return slices.Contains(AllPathTypes, p)
}

// Base returns the generated path type underlying p, stripping any
// "rerouted_" prefix.
func (p PathType) Base() PathType {
	return PathType(strings.TrimPrefix(string(p), ReroutedPrefix))
}

func (p PathType) Rerouted() PathType {
	return PathType(ReroutedPrefix + string(p.Base()))
}

///////////////////////////////////////////////////////////////////////////
// Waypoint

type WaypointStatus string

const (
	WaypointPending WaypointStatus = "pending"
	WaypointActive  WaypointStatus = "active"
	WaypointPassed  WaypointStatus = "passed"
	WaypointBlocked WaypointStatus = "blocked"
	WaypointSkipped WaypointStatus = "skipped"
)

// Waypoint is a value type; a Route owns its waypoints outright.
type Waypoint struct {
	ID       string
	Name     string
	Sequence int // 1-based
	Location math.Point2LL
	Status   WaypointStatus
}

type waypointJSON struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Sequence  int            `json:"sequence"`
	Latitude  float64        `json:"latitude"`
	Longitude float64        `json:"longitude"`
	Status    WaypointStatus `json:"status"`
}

func (wp Waypoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(waypointJSON{
		ID:        wp.ID,
		Name:      wp.Name,
		Sequence:  wp.Sequence,
		Latitude:  wp.Location.Latitude(),
		Longitude: wp.Location.Longitude(),
		Status:    wp.Status,
	})
}

func (wp *Waypoint) UnmarshalJSON(b []byte) error {
	var wj waypointJSON
	if err := json.Unmarshal(b, &wj); err != nil {
		return err
	}
	*wp = Waypoint{
		ID:       wj.ID,
		Name:     wj.Name,
		Sequence: wj.Sequence,
		Location: math.LL(wj.Latitude, wj.Longitude),
		Status:   wj.Status,
	}
	return nil
}

// WaypointName returns the display name for the waypoint at the given
// sequence number on a path of the given type, e.g. "WP5_left".
func WaypointName(seq int, tag string) string {
	return fmt.Sprintf("WP%d_%s", seq, tag)
}

// NameTag returns the path-type tag encoded in the waypoint's name: the
// text after its final underscore, or "alt" if there is none.
func (wp Waypoint) NameTag() string {
	if i := strings.LastIndexByte(wp.Name, '_'); i != -1 && i+1 < len(wp.Name) {
		return wp.Name[i+1:]
	}
	return "alt"
}

func NewID() string {
	return uuid.NewString()
}

///////////////////////////////////////////////////////////////////////////
// ExcludedArea

// ExcludedArea is a circle that generated paths should avoid.
type ExcludedArea struct {
	Center   math.Point2LL
	RadiusKm float64
}

func (e ExcludedArea) Contains(p math.Point2LL) bool {
	return math.DistanceKm(p, e.Center) <= e.RadiusKm
}

type excludedAreaJSON struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	RadiusKm  float64 `json:"radius_km"`
}

func (e ExcludedArea) MarshalJSON() ([]byte, error) {
	return json.Marshal(excludedAreaJSON{
		Latitude:  e.Center.Latitude(),
		Longitude: e.Center.Longitude(),
		RadiusKm:  e.RadiusKm,
	})
}

func (e *ExcludedArea) UnmarshalJSON(b []byte) error {
	var ej excludedAreaJSON
	if err := json.Unmarshal(b, &ej); err != nil {
		return err
	}
	*e = ExcludedArea{Center: math.LL(ej.Latitude, ej.Longitude), RadiusKm: ej.RadiusKm}
	return nil
}

///////////////////////////////////////////////////////////////////////////
// RerouteRecord

// RerouteRecord notes one reroute: the waypoint that was blocked and the
// path type of the alternative that replaced it. It is encoded in JSON as
// a two-element array.
type RerouteRecord struct {
	BlockedWaypoint string
	PathType        PathType
}

func (r RerouteRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{r.BlockedWaypoint, string(r.PathType)})
}

func (r *RerouteRecord) UnmarshalJSON(b []byte) error {
	var a [2]string
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	r.BlockedWaypoint, r.PathType = a[0], PathType(a[1])
	return nil
}

///////////////////////////////////////////////////////////////////////////
// Route

type Route struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Origin             Airport         `json:"origin"`
	Destination        Airport         `json:"destination"`
	Waypoints          []Waypoint      `json:"waypoints"`
	PathType           PathType        `json:"path_type"`
	OriginalPathType   PathType        `json:"original_path_type,omitempty"` // as generated, before any reroute
	OptimizationMethod string          `json:"optimization_method"`
	DistanceKm         float64         `json:"distance_km"`
	FitnessScore       float64         `json:"fitness_score"`
	Weather            wx.SampleSet    `json:"weather_samples,omitempty"`
	RerouteHistory     []RerouteRecord `json:"reroute_history"`
	AircraftModel      string          `json:"aircraft_model,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
}

// NewRoute returns an empty route of the given type between two
// airports, with a fresh id.
func NewRoute(origin, destination Airport, pt PathType) *Route {
	return &Route{
		ID:               NewID(),
		Name:             fmt.Sprintf("%s-%s (%s)", origin.Code, destination.Code, pt),
		Origin:           origin,
		Destination:      destination,
		PathType:         pt,
		OriginalPathType: pt.Base(),
		RerouteHistory:   []RerouteRecord{},
		CreatedAt:        time.Now().UTC(),
	}
}

// RecomputeDistance sums the great-circle legs origin -> first waypoint,
// between consecutive waypoints, and last waypoint -> destination, and
// stores the result in DistanceKm.
func (r *Route) RecomputeDistance() float64 {
	var d float64
	if n := len(r.Waypoints); n > 0 {
		d += math.DistanceKm(r.Origin.Location, r.Waypoints[0].Location)
		for i := 1; i < n; i++ {
			d += math.DistanceKm(r.Waypoints[i-1].Location, r.Waypoints[i].Location)
		}
		d += math.DistanceKm(r.Waypoints[n-1].Location, r.Destination.Location)
	} else {
		d = math.DistanceKm(r.Origin.Location, r.Destination.Location)
	}
	r.DistanceKm = d
	return d
}

// WaypointIndex returns the index of the waypoint with the given id.
func (r *Route) WaypointIndex(id string) (int, bool) {
	idx := slices.IndexFunc(r.Waypoints, func(wp Waypoint) bool { return wp.ID == id })
	return idx, idx != -1
}

// NearestWaypointIndex returns the index of the waypoint closest to p and
// the distance to it, or -1 if the route has no waypoints.
func (r *Route) NearestWaypointIndex(p math.Point2LL) (int, float64) {
	idx, best := -1, 0.
	for i, wp := range r.Waypoints {
		if d := math.DistanceKm(p, wp.Location); idx == -1 || d < best {
			idx, best = i, d
		}
	}
	return idx, best
}

// Renumber assigns contiguous 1-based sequence numbers.
func (r *Route) Renumber() {
	for i := range r.Waypoints {
		r.Waypoints[i].Sequence = i + 1
	}
}

// TriedPathTypes returns the base path types this route has already
// used: the type it was generated with, its current one and every
// alternative in its reroute history.
func (r *Route) TriedPathTypes() []PathType {
	var tried []PathType
	add := func(pt PathType) {
		if b := pt.Base(); b != "" && !slices.Contains(tried, b) {
			tried = append(tried, b)
		}
	}
	add(r.OriginalPathType)
	add(r.PathType)
	for _, rec := range r.RerouteHistory {
		add(rec.PathType)
	}
	return tried
}

// Points returns the points at which weather is sampled for the route,
// keyed as origin, waypoint_1..N and destination.
func (r *Route) Points() []wx.KeyedPoint {
	pts := make([]wx.KeyedPoint, 0, len(r.Waypoints)+2)
	pts = append(pts, wx.KeyedPoint{Key: wx.OriginKey, Location: r.Origin.Location})
	for i, wp := range r.Waypoints {
		pts = append(pts, wx.KeyedPoint{Key: wx.WaypointKey(i + 1), Location: wp.Location})
	}
	return append(pts, wx.KeyedPoint{Key: wx.DestinationKey, Location: r.Destination.Location})
}

// Clone returns a copy of the route that shares no mutable state with it.
func (r *Route) Clone() *Route {
	c := *r
	c.Waypoints = slices.Clone(r.Waypoints)
	c.Weather = slices.Clone(r.Weather)
	c.RerouteHistory = slices.Clone(r.RerouteHistory)
	if c.RerouteHistory == nil {
		c.RerouteHistory = []RerouteRecord{}
	}
	return &c
}

// Check verifies the structural invariants of a route: pinned endpoints
// and contiguous sequence numbers.
func (r *Route) Check() error {
	n := len(r.Waypoints)
	if n == 0 {
		return fmt.Errorf("%s: route has no waypoints: %w", r.ID, ErrInvalidInput)
	}
	if r.Waypoints[0].Location != r.Origin.Location {
		return fmt.Errorf("%s: first waypoint %s is not at origin %s: %w", r.ID,
			r.Waypoints[0].Location.DDString(), r.Origin.Location.DDString(), ErrInvalidInput)
	}
	if r.Waypoints[n-1].Location != r.Destination.Location {
		return fmt.Errorf("%s: last waypoint %s is not at destination %s: %w", r.ID,
			r.Waypoints[n-1].Location.DDString(), r.Destination.Location.DDString(), ErrInvalidInput)
	}
	for i, wp := range r.Waypoints {
		if wp.Sequence != i+1 {
			return fmt.Errorf("%s: waypoint %s has sequence %d at position %d: %w", r.ID, wp.Name,
				wp.Sequence, i+1, ErrInvalidInput)
		}
	}
	return nil
}
