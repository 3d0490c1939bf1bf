// planner/planner_test.go
// Copyright(c) 2025 skyroute contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package planner

import (
	"context"
	"errors"
	"slices"
	"sync/atomic"
	"testing"

	"github.com/skyroute/skyroute/aviation"
	"github.com/skyroute/skyroute/math"
	"github.com/skyroute/skyroute/wx"
)

func airport(t *testing.T, code string) aviation.Airport {
	t.Helper()
	ap, ok := aviation.DefaultAirports().Lookup(code)
	if !ok {
		t.Fatalf("%s: airport not found", code)
	}
	return ap
}

func TestGenerateDirect(t *testing.T) {
	blr, del := airport(t, "BLR"), airport(t, "DEL")
	routes, err := NewGenerator(nil).Generate(blr, del, []aviation.PathType{aviation.PathDirect}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(routes) != 1 {
		t.Fatalf("expected 1 route, got %d", len(routes))
	}
	r := routes[0]
	if len(r.Waypoints) != DefaultWaypoints {
		t.Errorf("expected %d waypoints, got %d", DefaultWaypoints, len(r.Waypoints))
	}
	if r.Waypoints[0].Location != blr.Location || r.Waypoints[len(r.Waypoints)-1].Location != del.Location {
		t.Errorf("endpoints not pinned to airports")
	}
	if err := r.Check(); err != nil {
		t.Errorf("Check: %v", err)
	}

	hav := math.DistanceKm(blr.Location, del.Location)
	if d := r.RecomputeDistance(); math.Abs(d-hav)/hav > 0.01 {
		t.Errorf("direct distance %f not within 1%% of %f", d, hav)
	}
	if math.Abs(hav-1740) > 10 {
		t.Errorf("BLR-DEL distance %f, expected about 1740", hav)
	}
	if r.Waypoints[3].Name != "WP4_direct" || r.Waypoints[3].Status != aviation.WaypointPending {
		t.Errorf("unexpected waypoint %+v", r.Waypoints[3])
	}
}

func TestGenerateAllTypes(t *testing.T) {
	blr, del := airport(t, "BLR"), airport(t, "DEL")
	routes, err := NewGenerator(nil).Generate(blr, del, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(routes) != len(aviation.AllPathTypes) {
		t.Fatalf("expected %d routes, got %d", len(aviation.AllPathTypes), len(routes))
	}

	byType := make(map[aviation.PathType]*aviation.Route)
	ids := make(map[string]bool)
	for _, r := range routes {
		if err := r.Check(); err != nil {
			t.Errorf("%s: %v", r.PathType, err)
		}
		byType[r.PathType] = r
		for _, wp := range r.Waypoints {
			if ids[wp.ID] {
				t.Errorf("duplicate waypoint id %s", wp.ID)
			}
			ids[wp.ID] = true
		}
	}

	mid := DefaultWaypoints / 2
	at := func(pt aviation.PathType) math.Point2LL { return byType[pt].Waypoints[mid].Location }
	// BLR-DEL runs roughly north, so left is west.
	if at(aviation.PathLeft).Longitude() >= at(aviation.PathRight).Longitude() {
		t.Errorf("left path should lie west of right path")
	}
	if at(aviation.PathNorth).Latitude() <= at(aviation.PathSouth).Latitude() {
		t.Errorf("north path should lie north of south path")
	}
	direct := byType[aviation.PathDirect].RecomputeDistance()
	if byType[aviation.PathWide].RecomputeDistance() <= byType[aviation.PathLeft].RecomputeDistance() ||
		byType[aviation.PathLeft].RecomputeDistance() <= direct {
		t.Errorf("expected direct < left < wide")
	}
}

func TestGenerateFiltersTypes(t *testing.T) {
	blr, del := airport(t, "BLR"), airport(t, "DEL")
	g := NewGenerator(nil)

	routes, err := g.Generate(blr, del, []aviation.PathType{"left", "bogus", "left", "north"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	var types []aviation.PathType
	for _, r := range routes {
		types = append(types, r.PathType)
	}
	if !slices.Equal(types, []aviation.PathType{aviation.PathLeft, aviation.PathNorth}) {
		t.Errorf("got types %v", types)
	}

	routes, err = g.Generate(blr, del, []aviation.PathType{"bogus"}, nil)
	if err != nil || len(routes) != 0 {
		t.Errorf("expected no routes and no error, got %d, %v", len(routes), err)
	}

	if _, err := g.Generate(blr, blr, nil, nil); !errors.Is(err, aviation.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for identical endpoints, got %v", err)
	}
	bad := aviation.Airport{Code: "BAD", Location: math.LL(120, 0)}
	if _, err := g.Generate(bad, del, nil, nil); !errors.Is(err, aviation.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for invalid coordinates, got %v", err)
	}

	g.Waypoints = 5
	routes, _ = g.Generate(blr, del, []aviation.PathType{aviation.PathSouth}, nil)
	if len(routes[0].Waypoints) != 5 {
		t.Errorf("expected 5 waypoints, got %d", len(routes[0].Waypoints))
	}
}

func TestGenerateAvoidsExclusion(t *testing.T) {
	blr, del := airport(t, "BLR"), airport(t, "DEL")
	g := NewGenerator(nil)
	pt := []aviation.PathType{aviation.PathLeft}

	plain, _ := g.Generate(blr, del, pt, nil)
	f := min(0.2, math.DistanceKm(blr.Location, del.Location)/2000)
	ctrl := controlPoint(blr.Location, del.Location, aviation.PathLeft, f)
	excl := []aviation.ExcludedArea{{Center: ctrl, RadiusKm: 50}}
	bent, _ := g.Generate(blr, del, pt, excl)

	if bent[0].RecomputeDistance() <= plain[0].RecomputeDistance() {
		t.Errorf("exclusion should push the path further out")
	}
	if inExcluded(controlPoint(blr.Location, del.Location, aviation.PathLeft, f*exclusionGrowth), excl) {
		t.Errorf("grown control point still excluded")
	}
}

func TestGenerateAntimeridian(t *testing.T) {
	sfo, hnd := airport(t, "SFO"), airport(t, "HND")
	routes, err := NewGenerator(nil).Generate(sfo, hnd, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	gc := math.DistanceKm(sfo.Location, hnd.Location)
	for _, r := range routes {
		for _, wp := range r.Waypoints {
			if !wp.Location.Valid() {
				t.Errorf("%s: invalid waypoint %v", r.PathType, wp.Location)
			}
		}
		if d := r.RecomputeDistance(); d > 1.6*gc {
			t.Errorf("%s: distance %f went the long way around (great circle %f)", r.PathType, d, gc)
		}
	}
}

func withWeather(r *aviation.Route, fn func(key string) wx.Sample) *aviation.Route {
	r.Weather = nil
	for _, pt := range r.Points() {
		r.Weather = append(r.Weather, wx.KeyedSample{Key: pt.Key, Sample: fn(pt.Key)})
	}
	return r
}

func directRoute(t *testing.T, from, to string) *aviation.Route {
	t.Helper()
	routes, err := NewGenerator(nil).Generate(airport(t, from), airport(t, to), []aviation.PathType{aviation.PathDirect}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return routes[0]
}

func TestFitnessWithoutWeather(t *testing.T) {
	r := directRoute(t, "BLR", "DEL")
	s := NewEvaluator().Score(r, nil)
	if s != r.DistanceKm/1000 || r.FitnessScore != s {
		t.Errorf("expected distance/1000 = %f, got %f (stored %f)", r.DistanceKm/1000, s, r.FitnessScore)
	}

	// A single sample is not enough to score weather.
	r.Weather = wx.SampleSet{{Key: wx.OriginKey, Sample: wx.ClearSample()}}
	if b := NewEvaluator().Evaluate(r, nil); b.WeatherScored {
		t.Errorf("single sample should use the distance fallback")
	}
}

func TestFitnessClearWeather(t *testing.T) {
	r := withWeather(directRoute(t, "BLR", "DEL"), func(string) wx.Sample { return wx.ClearSample() })
	b := NewEvaluator().Evaluate(r, nil)

	if b.GroundSpeedKmh != BaseCruiseKmh {
		t.Errorf("still air ground speed %f", b.GroundSpeedKmh)
	}
	fuel := r.DistanceKm / BaseCruiseKmh * DefaultFuelBurnKgHr
	if math.Abs(b.FuelKg-fuel) > 1e-6 {
		t.Errorf("fuel %f, expected %f", b.FuelKg, fuel)
	}
	if b.Safety != 0 || b.FuelPenalty != 0 || b.LongRoute != 0 {
		t.Errorf("unexpected penalties %+v", b)
	}
	if math.Abs(b.Score-0.4*fuel/10000) > 1e-9 || r.FitnessScore != b.Score {
		t.Errorf("score %f, expected %f", b.Score, 0.4*fuel/10000)
	}
}

func TestFitnessJetStream(t *testing.T) {
	r := directRoute(t, "BLR", "DEL")
	heading := math.Bearing(r.Origin.Location, r.Destination.Location)
	jet := func(dir float64) func(string) wx.Sample {
		return func(string) wx.Sample {
			s := wx.ClearSample()
			s.JetStreamSpeed, s.JetStreamDirection = 150, dir
			return s
		}
	}

	e := NewEvaluator()
	tail := e.Evaluate(withWeather(r.Clone(), jet(heading)), nil)
	head := e.Evaluate(withWeather(r.Clone(), jet(heading+180)), nil)
	if math.Abs(tail.GroundSpeedKmh-1050) > 1e-6 || math.Abs(head.GroundSpeedKmh-750) > 1e-6 {
		t.Errorf("ground speeds %f / %f", tail.GroundSpeedKmh, head.GroundSpeedKmh)
	}
	if tail.Score >= head.Score {
		t.Errorf("tailwind should score better than headwind")
	}

	strong := func(string) wx.Sample {
		s := wx.ClearSample()
		s.JetStreamSpeed, s.JetStreamDirection = 800, heading+180
		return s
	}
	if b := e.Evaluate(withWeather(r.Clone(), strong), nil); b.GroundSpeedKmh != MinGroundSpeedKmh {
		t.Errorf("ground speed %f should be floored at %f", b.GroundSpeedKmh, MinGroundSpeedKmh)
	}
}

func TestFitnessHazards(t *testing.T) {
	r := directRoute(t, "BLR", "DEL")
	heading := math.Bearing(r.Origin.Location, r.Destination.Location)
	b := NewEvaluator().Evaluate(withWeather(r, func(key string) wx.Sample {
		s := wx.ClearSample()
		s.VerticalVelocity = -1.2
		if key == wx.OriginKey || key == wx.DestinationKey {
			s.CAPE = 1500
			s.Visibility = 2000
			s.CloudCover = 90
			s.Precipitation = 15
			s.WindSpeed10m, s.WindDirection10m = 40, heading+90
			s.WeatherCode = 61
		}
		return s
	}), nil)

	n := float64(len(r.Weather))
	expect := map[string][2]float64{
		"turbulence":   {b.Turbulence, 2},
		"thunderstorm": {b.Thunderstorm, 2 / n * 3},
		"visibility":   {b.Visibility, 1},
		"cloud":        {b.Cloud, 0.5},
		"runway":       {b.Runway, 1.5},
		"crosswind":    {b.Crosswind, 1},
		"weather code": {b.WeatherCode, 0.6},
	}
	for name, v := range expect {
		if math.Abs(v[0]-v[1]) > 1e-9 {
			t.Errorf("%s penalty %f, expected %f", name, v[0], v[1])
		}
	}
	if math.Abs(b.Score-(0.6*b.Safety+0.4*b.FuelKg/10000)) > 1e-9 {
		t.Errorf("score %f does not combine terms", b.Score)
	}
}

func TestFitnessFuelAndLength(t *testing.T) {
	r := withWeather(directRoute(t, "JFK", "LHR"), func(string) wx.Sample { return wx.ClearSample() })
	small := &aviation.Aircraft{Model: "Tiny", CruiseSpeedKmh: 500, FuelBurnKgPerHr: 2000, FuelCapacityLiters: 10000}
	b := NewEvaluator().Evaluate(r, small)

	fuel := r.DistanceKm / BaseCruiseKmh * 2000
	capKg := small.FuelCapacityKg()
	if math.Abs(b.FuelPenalty-(fuel-capKg)/capKg*10) > 1e-9 {
		t.Errorf("fuel penalty %f", b.FuelPenalty)
	}
	if math.Abs(b.LongRoute-(r.DistanceKm-5000)/1000) > 1e-9 || b.LongRoute <= 0 {
		t.Errorf("long route penalty %f for %f km", b.LongRoute, r.DistanceKm)
	}
}

func TestCandidateKey(t *testing.T) {
	k := CandidateKey("blr", "del", []aviation.PathType{aviation.PathRight, aviation.PathDirect}, "A320",
		[]aviation.ExcludedArea{{Center: math.LL(12.5, 77.25), RadiusKm: 150}})
	if k != "BLR_DEL_direct-right_A320_excluded_12.5_77.25_150" {
		t.Errorf("unexpected key %q", k)
	}
	// Nearby exclusion centres must not share a cached set.
	near := func(lat float64) string {
		return CandidateKey("BLR", "DEL", nil, "", []aviation.ExcludedArea{{Center: math.LL(lat, 77.25), RadiusKm: 150}})
	}
	if near(12.501) == near(12.504) {
		t.Errorf("exclusions 0.3 km apart gave the same key %q", near(12.501))
	}
	if a, b := CandidateKey("BLR", "DEL", nil, "", nil), CandidateKey("BLR", "DEL", aviation.AllPathTypes, "", nil); a != b {
		t.Errorf("empty types should equal all types: %q vs %q", a, b)
	}
}

func TestCandidateCache(t *testing.T) {
	c := NewCandidateCache(t.TempDir(), nil)
	blr, del := airport(t, "BLR"), airport(t, "DEL")
	routes, _ := NewGenerator(nil).Generate(blr, del, nil, nil)

	for _, k := range []string{"BLR_DEL_direct", "BLR_BOM_direct", "DXB_DEL_direct", "HND_SIN_direct"} {
		c.Store(k, routes)
	}

	back, ok := c.Load("BLR_DEL_direct")
	if !ok || len(back) != len(routes) {
		t.Fatalf("cache load failed")
	}
	if back[0].ID == routes[0].ID || back[0].Waypoints[0].ID == routes[0].Waypoints[0].ID {
		t.Errorf("loaded candidates should get fresh ids")
	}
	if back[2].Waypoints[7].Location != routes[2].Waypoints[7].Location || back[2].PathType != routes[2].PathType {
		t.Errorf("geometry did not survive the cache")
	}
	if _, ok := c.Load("nope"); ok {
		t.Errorf("unexpected hit")
	}

	if n, err := c.Clear("", "del"); err != nil || n != 2 {
		t.Errorf("clear by destination removed %d, %v", n, err)
	}
	if n, _ := c.Clear("BLR", "BOM"); n != 1 {
		t.Errorf("clear by pair removed %d", n)
	}
	if n, _ := c.Clear("", ""); n != 1 {
		t.Errorf("clear all removed %d", n)
	}
}

func TestPlan(t *testing.T) {
	var calls atomic.Int32
	clearWx := wx.ProviderFunc(func(ctx context.Context, p math.Point2LL) (wx.Sample, error) {
		calls.Add(1)
		return wx.ClearSample(), nil
	})
	p := NewPlanner(clearWx, nil, NewCandidateCache(t.TempDir(), nil), nil)

	blr, del := airport(t, "BLR"), airport(t, "DEL")
	a320, _ := aviation.LookupAircraft(aviation.DefaultAircraft(), "A320")
	req := Request{Origin: blr, Destination: del, Aircraft: &a320}

	routes, err := p.Plan(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if len(routes) != len(aviation.AllPathTypes) {
		t.Fatalf("got %d routes", len(routes))
	}
	for _, r := range routes {
		if len(r.Weather) != DefaultWaypoints+2 || r.FitnessScore == 0 || r.AircraftModel != "A320" {
			t.Errorf("%s: %d samples, fitness %f, aircraft %q", r.PathType, len(r.Weather), r.FitnessScore,
				r.AircraftModel)
		}
	}
	if n := int(calls.Load()); n != len(routes)*(DefaultWaypoints+2) {
		t.Errorf("%d weather calls", n)
	}

	again, err := p.Plan(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if again[0].ID == routes[0].ID || again[0].Waypoints[5].Location != routes[0].Waypoints[5].Location {
		t.Errorf("second plan should reuse cached geometry with fresh ids")
	}

	jfk := airport(t, "JFK")
	if _, err := p.Plan(context.Background(), Request{Origin: blr, Destination: jfk}); !errors.Is(err, aviation.ErrInvalidInput) {
		t.Errorf("expected distance bound error, got %v", err)
	}
	near := aviation.Airport{Code: "NRB", Location: math.LL(13.0, 77.7)}
	if _, err := p.Plan(context.Background(), Request{Origin: blr, Destination: near}); !errors.Is(err, aviation.ErrInvalidInput) {
		t.Errorf("expected minimum distance error, got %v", err)
	}
}
