// server/http.go
// Copyright(c) 2025 skyroute contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package server

import (
	"encoding/json"
	"fmt"
	gomath "math"
	"net/http"
	"net/http/pprof"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/skyroute/skyroute/aviation"
	"github.com/skyroute/skyroute/optimize"
	"github.com/skyroute/skyroute/planner"
	"github.com/skyroute/skyroute/wx"

	"github.com/shirou/gopsutil/cpu"
)

func registerPprof(mux *http.ServeMux) {
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.lg.Warnf("unable to encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := StatusForError(err)
	if code >= 500 {
		s.lg.Warnf("%d: %v", code, err)
	}
	s.writeJSON(w, code, map[string]string{"error": err.Error()})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

func (s *Server) lookupAirport(code string) (aviation.Airport, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if ap, ok := s.Airports.Lookup(code); ok {
		return ap, nil
	}
	return aviation.Airport{}, fmt.Errorf("airport %q: %w", code, aviation.ErrNotFound)
}

///////////////////////////////////////////////////////////////////////////
// Catalogs

func (s *Server) listAirports(w http.ResponseWriter, r *http.Request) {
	aps := s.Airports.All(r.URL.Query().Get("country"))
	if aps == nil {
		aps = []aviation.Airport{}
	}
	s.writeJSON(w, http.StatusOK, aps)
}

func (s *Server) getAirport(w http.ResponseWriter, r *http.Request) {
	ap, err := s.lookupAirport(r.PathValue("code"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ap)
}

func (s *Server) listAircraft(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := aviation.AircraftFilter{Manufacturer: q.Get("manufacturer")}
	if mr := q.Get("min_range"); mr != "" {
		v, err := strconv.ParseFloat(mr, 64)
		if err != nil {
			s.writeError(w, fmt.Errorf("min_range %q: %w", mr, ErrBadRequest))
			return
		}
		f.MinRangeKm = v
	}

	acs := s.Aircraft.ByModel(q.Get("model"), f)
	if acs == nil {
		acs = []aviation.Aircraft{}
	}
	s.writeJSON(w, http.StatusOK, acs)
}

///////////////////////////////////////////////////////////////////////////
// Routes

type routeRequest struct {
	Origin             string                  `json:"origin"`
	Destination        string                  `json:"destination"`
	AircraftModel      string                  `json:"aircraft_model,omitempty"`
	RouteTypes         []aviation.PathType     `json:"route_types,omitempty"`
	OptimizationMethod string                  `json:"optimization_method,omitempty"`
	ExcludedAreas      []aviation.ExcludedArea `json:"excluded_areas,omitempty"`
}

type routeResponse struct {
	AllRoutes         []*aviation.Route `json:"all_routes"`
	OptimizedRoute    *aviation.Route   `json:"optimized_route"`
	FuelConsumptionKg float64           `json:"fuel_consumption_kg,omitempty"`
}

// generateRoutes plans the candidates for a city pair, picks one with
// the requested optimizer and registers it for monitoring and
// rerouting.
func (s *Server) generateRoutes(w http.ResponseWriter, r *http.Request) {
	var req routeRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	origin, err := s.lookupAirport(req.Origin)
	if err != nil {
		s.writeError(w, err)
		return
	}
	dest, err := s.lookupAirport(req.Destination)
	if err != nil {
		s.writeError(w, err)
		return
	}

	preq := planner.Request{
		Origin:      origin,
		Destination: dest,
		PathTypes:   req.RouteTypes,
		Excluded:    req.ExcludedAreas,
	}
	if req.AircraftModel != "" {
		ac, err := aviation.LookupAircraft(s.Aircraft, req.AircraftModel)
		if err != nil {
			s.writeError(w, err)
			return
		}
		preq.Aircraft = &ac
	}

	routes, err := s.Planner.Plan(r.Context(), preq)
	if err != nil {
		s.writeError(w, err)
		return
	}

	method := req.OptimizationMethod
	if method == "" {
		method = s.DefaultMethod
	}
	best := optimize.ByMethod(method, s.Optimizer, s.lg).Optimize(routes)
	if best == nil {
		s.writeError(w, fmt.Errorf("%s-%s: %w", origin.Code, dest.Code, aviation.ErrNoCandidate))
		return
	}
	if err := s.Registry.Register(best); err != nil {
		s.writeError(w, err)
		return
	}
	if s.Notifier != nil {
		if err := s.Notifier.PublishRouteUpdate(best.ID, best); err != nil {
			s.lg.Warnf("%s: route update: %v", best.ID, err)
		}
	}

	resp := routeResponse{AllRoutes: routes, OptimizedRoute: best}
	if preq.Aircraft != nil {
		resp.FuelConsumptionKg = preq.Aircraft.EstimatedFuelKg(best.DistanceKm)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) listRoutes(w http.ResponseWriter, r *http.Request) {
	routes := s.Registry.List()
	if routes == nil {
		routes = []*aviation.Route{}
	}
	s.writeJSON(w, http.StatusOK, routes)
}

func (s *Server) getRoute(w http.ResponseWriter, r *http.Request) {
	rt, err := s.Registry.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rt)
}

func (s *Server) deleteRoute(w http.ResponseWriter, r *http.Request) {
	if err := s.Registry.Remove(r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type blockRequest struct {
	WaypointID string `json:"waypoint_id"`
}

func (s *Server) blockWaypoint(w http.ResponseWriter, r *http.Request) {
	var req blockRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.WaypointID == "" {
		s.writeError(w, fmt.Errorf("missing waypoint_id: %w", ErrBadRequest))
		return
	}

	nr, err := s.Adjuster.Block(r.Context(), r.PathValue("id"), req.WaypointID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]*aviation.Route{"new_route": nr})
}

///////////////////////////////////////////////////////////////////////////
// Optimizer comparison

type compareResponse struct {
	ACO            *aviation.Route `json:"aco_result"`
	Genetic        *aviation.Route `json:"genetic_result"`
	Recommendation *aviation.Route `json:"recommendation"`
}

// compareOptimizers rescores the posted candidates and runs both
// optimizers over them. The recommendation is the fitter of the two
// results, preferring ant colony optimization on ties.
func (s *Server) compareOptimizers(w http.ResponseWriter, r *http.Request) {
	var routes []*aviation.Route
	if err := s.decode(w, r, &routes); err != nil {
		s.writeError(w, err)
		return
	}
	if len(routes) == 0 {
		s.writeError(w, fmt.Errorf("no routes to compare: %w", aviation.ErrInvalidInput))
		return
	}

	// The optimizers tell candidates apart by id.
	seen := make(map[string]bool, len(routes))
	for _, rt := range routes {
		if rt == nil {
			s.writeError(w, fmt.Errorf("null route: %w", ErrBadRequest))
			return
		}
		if rt.ID == "" || seen[rt.ID] {
			s.writeError(w, fmt.Errorf("route %q: missing or duplicate id: %w", rt.ID, ErrBadRequest))
			return
		}
		seen[rt.ID] = true
		if err := rt.Check(); err != nil {
			s.writeError(w, err)
			return
		}
		var ac *aviation.Aircraft
		if rt.AircraftModel != "" {
			if a, err := aviation.LookupAircraft(s.Aircraft, rt.AircraftModel); err == nil {
				ac = &a
			}
		}
		s.Planner.Evaluator.Score(rt, ac)
	}

	var resp compareResponse
	resp.ACO = optimize.ByMethod(optimize.MethodACO, s.Optimizer, s.lg).Optimize(routes)
	resp.Genetic = optimize.ByMethod(optimize.MethodGenetic, s.Optimizer, s.lg).Optimize(routes)
	resp.Recommendation = resp.ACO
	if resp.Genetic.FitnessScore < resp.ACO.FitnessScore {
		resp.Recommendation = resp.Genetic
	}
	s.writeJSON(w, http.StatusOK, resp)
}

///////////////////////////////////////////////////////////////////////////
// Maintenance

type clearCacheResponse struct {
	Removed       int  `json:"removed"`
	WeatherPurged bool `json:"weather_purged"`
}

// clearCache removes cached candidate sets, optionally restricted by
// origin and destination codes. With weather=true the weather sample
// cache is purged too.
func (s *Server) clearCache(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var resp clearCacheResponse
	if s.Planner.Cache != nil {
		n, err := s.Planner.Cache.Clear(strings.ToUpper(q.Get("origin")), strings.ToUpper(q.Get("destination")))
		if err != nil {
			s.writeError(w, err)
			return
		}
		resp.Removed = n
	}
	if purge, _ := strconv.ParseBool(q.Get("weather")); purge && s.WeatherCache != nil {
		s.WeatherCache.Purge()
		resp.WeatherPurged = true
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type serverStatus struct {
	Uptime           string         `json:"uptime"`
	Routes           int            `json:"routes"`
	WebsocketClients int            `json:"websocket_clients"`
	WeatherCache     *wx.CacheStats `json:"weather_cache,omitempty"`
	AllocMemoryMB    uint64         `json:"alloc_memory_mb"`
	SysMemoryMB      uint64         `json:"sys_memory_mb"`
	NumGC            uint32         `json:"num_gc"`
	NumGoRoutines    int            `json:"num_goroutines"`
	CPUUsage         int            `json:"cpu_usage"`
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	st := serverStatus{
		Uptime:        time.Since(s.startTime).Round(time.Second).String(),
		Routes:        s.Registry.Len(),
		AllocMemoryMB: m.Alloc / (1024 * 1024),
		SysMemoryMB:   m.Sys / (1024 * 1024),
		NumGC:         m.NumGC,
		NumGoRoutines: runtime.NumGoroutine(),
	}
	if s.Hub != nil {
		st.WebsocketClients = s.Hub.NumClients()
	}
	if s.WeatherCache != nil {
		cs := s.WeatherCache.Stats()
		st.WeatherCache = &cs
	}
	// Usage since the previous call; this doesn't block.
	if usage, err := cpu.Percent(0, false); err == nil && len(usage) > 0 {
		st.CPUUsage = int(gomath.Round(usage[0]))
	} else if err != nil {
		s.lg.Debugf("cpu usage: %v", err)
	}

	s.writeJSON(w, http.StatusOK, st)
}
