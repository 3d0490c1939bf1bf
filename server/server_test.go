// server/server_test.go
// Copyright(c) 2025 skyroute contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/skyroute/skyroute/aviation"
	"github.com/skyroute/skyroute/notify"
	"github.com/skyroute/skyroute/optimize"
	"github.com/skyroute/skyroute/planner"
	"github.com/skyroute/skyroute/reroute"
	"github.com/skyroute/skyroute/wx"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	cache := planner.NewCandidateCache(t.TempDir(), nil)
	p := planner.NewPlanner(nil, nil, cache, nil)
	reg := reroute.NewRegistry(nil)
	hub := notify.NewHub(nil)
	acs := aviation.DefaultAircraft()

	ocfg := optimize.DefaultConfig()
	ocfg.Seed = 7
	s := NewServer(Config{
		Airports:     aviation.DefaultAirports(),
		Aircraft:     acs,
		Planner:      p,
		Registry:     reg,
		Adjuster:     reroute.NewAdjuster(reg, p, acs, hub, nil),
		Hub:          hub,
		Notifier:     hub,
		WeatherCache: wx.NewCached(wx.Synthetic{Seed: 1}, 16, time.Hour),
		Optimizer:    ocfg,
	}, nil)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		hub.Close()
	})
	return s, ts
}

func do(t *testing.T, ts *httptest.Server, method, path string, body any, out any) int {
	t.Helper()

	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		enc, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(enc)
	}

	req, err := http.NewRequest(method, ts.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func TestStatusForError(t *testing.T) {
	for _, tc := range []struct {
		err  error
		code int
	}{
		{fmt.Errorf("x: %w", aviation.ErrInvalidInput), http.StatusBadRequest},
		{fmt.Errorf("x: %w", ErrBadRequest), http.StatusBadRequest},
		{fmt.Errorf("x: %w", aviation.ErrNotFound), http.StatusNotFound},
		{aviation.ErrFirstWaypointBlocked, http.StatusConflict},
		{fmt.Errorf("x: %w", aviation.ErrNoCandidate), http.StatusConflict},
		{fmt.Errorf("x: %w", wx.ErrUpstreamUnavailable), http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	} {
		if c := StatusForError(tc.err); c != tc.code {
			t.Errorf("%v: got %d, expected %d", tc.err, c, tc.code)
		}
	}
}

func TestCatalogs(t *testing.T) {
	_, ts := newTestServer(t)

	var aps []aviation.Airport
	if c := do(t, ts, "GET", "/api/airports?country=india", nil, &aps); c != http.StatusOK {
		t.Fatalf("status %d", c)
	}
	if len(aps) == 0 {
		t.Errorf("no Indian airports")
	}
	for _, ap := range aps {
		if ap.Country != "India" {
			t.Errorf("%s is in %s", ap.Code, ap.Country)
		}
	}

	var ap aviation.Airport
	if c := do(t, ts, "GET", "/api/airports/blr", nil, &ap); c != http.StatusOK || ap.Code != "BLR" {
		t.Errorf("lookup BLR: %d %+v", c, ap)
	}
	if c := do(t, ts, "GET", "/api/airports/XXX", nil, nil); c != http.StatusNotFound {
		t.Errorf("unknown airport: %d", c)
	}

	var acs []aviation.Aircraft
	if c := do(t, ts, "GET", "/api/aircraft?manufacturer=airbus", nil, &acs); c != http.StatusOK || len(acs) == 0 {
		t.Fatalf("aircraft: %d, %d results", c, len(acs))
	}
	for _, ac := range acs {
		if ac.Manufacturer != "Airbus" {
			t.Errorf("%s made by %s", ac.Model, ac.Manufacturer)
		}
	}
	if c := do(t, ts, "GET", "/api/aircraft?min_range=far", nil, nil); c != http.StatusBadRequest {
		t.Errorf("bad min_range: %d", c)
	}
	acs = nil
	do(t, ts, "GET", "/api/aircraft?min_range=1000000", nil, &acs)
	if len(acs) != 0 {
		t.Errorf("expected no aircraft with that range")
	}
}

func TestGenerateAndBlock(t *testing.T) {
	s, ts := newTestServer(t)

	var resp routeResponse
	c := do(t, ts, "POST", "/api/routes", routeRequest{
		Origin:             "BLR",
		Destination:        "DEL",
		AircraftModel:      "A320",
		OptimizationMethod: "genetic",
	}, &resp)
	if c != http.StatusOK {
		t.Fatalf("generate: %d", c)
	}
	if len(resp.AllRoutes) != len(aviation.AllPathTypes) {
		t.Errorf("expected %d candidates, got %d", len(aviation.AllPathTypes), len(resp.AllRoutes))
	}
	best := resp.OptimizedRoute
	if best == nil || best.OptimizationMethod != optimize.MethodGenetic {
		t.Fatalf("optimized route %+v", best)
	}
	if resp.FuelConsumptionKg <= 0 {
		t.Errorf("expected a fuel estimate")
	}
	if s.Registry.Len() != 1 {
		t.Errorf("optimized route not registered")
	}

	var got aviation.Route
	if c := do(t, ts, "GET", "/api/routes/"+best.ID, nil, &got); c != http.StatusOK || got.ID != best.ID {
		t.Errorf("get route: %d", c)
	}
	var all []*aviation.Route
	if do(t, ts, "GET", "/api/routes", nil, &all); len(all) != 1 {
		t.Errorf("expected 1 route, got %d", len(all))
	}

	var block map[string]*aviation.Route
	c = do(t, ts, "POST", "/api/routes/"+best.ID+"/block", blockRequest{WaypointID: best.Waypoints[6].ID}, &block)
	if c != http.StatusOK {
		t.Fatalf("block: %d", c)
	}
	nr := block["new_route"]
	if nr == nil || nr.ID != best.ID || !strings.HasPrefix(string(nr.PathType), aviation.ReroutedPrefix) {
		t.Errorf("unexpected rerouted route %+v", nr)
	}

	if c := do(t, ts, "POST", "/api/routes/"+best.ID+"/block", blockRequest{WaypointID: nr.Waypoints[0].ID}, nil); c != http.StatusConflict {
		t.Errorf("blocking the first waypoint: %d", c)
	}
	if c := do(t, ts, "POST", "/api/routes/"+best.ID+"/block", blockRequest{}, nil); c != http.StatusBadRequest {
		t.Errorf("missing waypoint id: %d", c)
	}
	if c := do(t, ts, "POST", "/api/routes/nope/block", blockRequest{WaypointID: "x"}, nil); c != http.StatusNotFound {
		t.Errorf("unknown route: %d", c)
	}

	if c := do(t, ts, "DELETE", "/api/routes/"+best.ID, nil, nil); c != http.StatusNoContent {
		t.Errorf("delete: %d", c)
	}
	if c := do(t, ts, "GET", "/api/routes/"+best.ID, nil, nil); c != http.StatusNotFound {
		t.Errorf("get after delete: %d", c)
	}
	if c := do(t, ts, "DELETE", "/api/routes/"+best.ID, nil, nil); c != http.StatusNotFound {
		t.Errorf("delete twice: %d", c)
	}

	var cleared clearCacheResponse
	if c := do(t, ts, "DELETE", "/api/cache?origin=blr&weather=true", nil, &cleared); c != http.StatusOK {
		t.Fatalf("clear cache: %d", c)
	}
	if cleared.Removed != 1 || !cleared.WeatherPurged {
		t.Errorf("clear cache: %+v", cleared)
	}
}

func TestGenerateErrors(t *testing.T) {
	_, ts := newTestServer(t)

	for _, tc := range []struct {
		body any
		code int
	}{
		{"{not json", http.StatusBadRequest},
		{routeRequest{Origin: "XXX", Destination: "DEL"}, http.StatusNotFound},
		{routeRequest{Origin: "BLR", Destination: "XXX"}, http.StatusNotFound},
		{routeRequest{Origin: "BLR", Destination: "DEL", AircraftModel: "Concorde"}, http.StatusNotFound},
		{routeRequest{Origin: "BLR", Destination: "JFK"}, http.StatusBadRequest},
		{routeRequest{Origin: "BLR", Destination: "BLR"}, http.StatusBadRequest},
	} {
		if c := do(t, ts, "POST", "/api/routes", tc.body, nil); c != tc.code {
			t.Errorf("%+v: got %d, expected %d", tc.body, c, tc.code)
		}
	}
}

func TestCompareOptimizers(t *testing.T) {
	s, ts := newTestServer(t)

	aps := aviation.DefaultAirports()
	o, _ := aps.Lookup("BOM")
	d, _ := aps.Lookup("DEL")
	routes, err := s.Planner.Plan(context.Background(), planner.Request{Origin: o, Destination: d})
	if err != nil {
		t.Fatal(err)
	}

	var resp compareResponse
	if c := do(t, ts, "POST", "/api/optimize/compare", routes, &resp); c != http.StatusOK {
		t.Fatalf("compare: %d", c)
	}
	if resp.ACO == nil || resp.Genetic == nil || resp.Recommendation == nil {
		t.Fatalf("missing results %+v", resp)
	}
	if resp.Recommendation.FitnessScore > resp.ACO.FitnessScore ||
		resp.Recommendation.FitnessScore > resp.Genetic.FitnessScore {
		t.Errorf("recommendation is not the fitter result")
	}

	if c := do(t, ts, "POST", "/api/optimize/compare", []*aviation.Route{}, nil); c != http.StatusBadRequest {
		t.Errorf("empty comparison: %d", c)
	}

	dup := []*aviation.Route{routes[0], routes[1].Clone()}
	dup[1].ID = routes[0].ID
	if c := do(t, ts, "POST", "/api/optimize/compare", dup, nil); c != http.StatusBadRequest {
		t.Errorf("duplicate ids: %d", c)
	}
	noID := routes[1].Clone()
	noID.ID = ""
	if c := do(t, ts, "POST", "/api/optimize/compare", []*aviation.Route{routes[0], noID}, nil); c != http.StatusBadRequest {
		t.Errorf("missing id: %d", c)
	}
}

func TestStatusAndWebsocket(t *testing.T) {
	_, ts := newTestServer(t)

	var st serverStatus
	if c := do(t, ts, "GET", "/api/status", nil, &st); c != http.StatusOK {
		t.Fatalf("status: %d", c)
	}
	if st.WeatherCache == nil || st.Routes != 0 || st.NumGoRoutines == 0 {
		t.Errorf("unexpected status %+v", st)
	}

	// The websocket endpoint bypasses request logging and must still
	// upgrade.
	resp, err := ts.Client().Get(ts.URL + "/ws")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("plain GET of /ws: %d", resp.StatusCode)
	}
}

func TestServeShutdown(t *testing.T) {
	s, _ := newTestServer(t)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Serve(ctx, l) }()

	url := "http://" + l.Addr().String() + "/api/status"
	var resp *http.Response
	for range 50 {
		if resp, err = http.Get(url); err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Serve: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}
