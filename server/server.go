// server/server.go
// Copyright(c) 2025 skyroute contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package server exposes route planning and rerouting over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/skyroute/skyroute/aviation"
	"github.com/skyroute/skyroute/log"
	"github.com/skyroute/skyroute/notify"
	"github.com/skyroute/skyroute/optimize"
	"github.com/skyroute/skyroute/planner"
	"github.com/skyroute/skyroute/reroute"
	"github.com/skyroute/skyroute/wx"
)

const (
	DefaultPort = 8000

	shutdownTimeout = 5 * time.Second
	maxRequestBytes = 1 << 20
)

// Config collects everything the server needs. Hub, Notifier and
// WeatherCache may be nil.
type Config struct {
	Airports aviation.AirportCatalog
	Aircraft aviation.AircraftCatalog
	Planner  *planner.Planner
	Registry *reroute.Registry
	Adjuster *reroute.Adjuster

	Hub          *notify.Hub
	Notifier     notify.Notifier
	WeatherCache *wx.Cached

	Optimizer     optimize.Config
	DefaultMethod string
}

type Server struct {
	Config

	startTime time.Time
	lg        *log.Logger
}

func NewServer(c Config, lg *log.Logger) *Server {
	if c.DefaultMethod == "" {
		c.DefaultMethod = optimize.MethodACO
	}
	return &Server{Config: c, startTime: time.Now(), lg: lg}
}

// Handler returns the server's routes. Requests other than websocket
// upgrades are logged.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /api/airports", s.listAirports)
	api.HandleFunc("GET /api/airports/{code}", s.getAirport)
	api.HandleFunc("GET /api/aircraft", s.listAircraft)
	api.HandleFunc("POST /api/routes", s.generateRoutes)
	api.HandleFunc("GET /api/routes", s.listRoutes)
	api.HandleFunc("GET /api/routes/{id}", s.getRoute)
	api.HandleFunc("DELETE /api/routes/{id}", s.deleteRoute)
	api.HandleFunc("POST /api/routes/{id}/block", s.blockWaypoint)
	api.HandleFunc("POST /api/optimize/compare", s.compareOptimizers)
	api.HandleFunc("DELETE /api/cache", s.clearCache)
	api.HandleFunc("GET /api/status", s.status)
	registerPprof(api)

	mux := http.NewServeMux()
	if s.Hub != nil {
		mux.Handle("/ws", s.Hub)
	}
	mux.Handle("/", s.logRequests(api))
	return mux
}

// ListenAndServe serves on the given port until ctx is canceled, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(port))
	if err != nil {
		return err
	}
	return s.Serve(ctx, listener)
}

func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.lg.Infof("serving HTTP on %s", listener.Addr())
		errc <- srv.Serve(listener)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		s.lg.Info("shutting down HTTP server")
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(sctx)
		if serr := <-errc; !errors.Is(serr, http.ErrServerClosed) {
			err = errors.Join(err, serr)
		}
		return err
	}
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		h.ServeHTTP(rec, r)
		s.lg.Info("request", "method", r.Method, "path", r.URL.Path, "status", rec.code,
			"elapsed", time.Since(start))
	})
}
