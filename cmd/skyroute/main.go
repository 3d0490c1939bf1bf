// cmd/skyroute/main.go
// Copyright(c) 2025 skyroute contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

// skyroute serves the route planning API: it generates and scores
// candidate paths, keeps the chosen routes under watch, and reroutes
// them around blocked waypoints.

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skyroute/skyroute/aviation"
	"github.com/skyroute/skyroute/log"
	"github.com/skyroute/skyroute/notify"
	"github.com/skyroute/skyroute/planner"
	"github.com/skyroute/skyroute/reroute"
	"github.com/skyroute/skyroute/server"
	"github.com/skyroute/skyroute/wx"

	"github.com/goforj/godump"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var (
	configFile = flag.String("config", "", "JSON configuration file (default: user config directory)")
	logLevel   = flag.String("loglevel", "info", "logging level: debug, info, warn, error")
	logDir     = flag.String("logdir", "", "log file directory")
	port       = flag.Int("port", 0, "port to listen on (overrides the configuration)")
	natsURL    = flag.String("nats", "", "NATS server URL for route events (overrides the configuration)")
	seed       = flag.Int64("seed", 0, "if non-zero, seed for the optimizers and synthetic weather")
	dumpConfig = flag.Bool("dump", false, "print the effective configuration and exit")
)

func main() {
	flag.Parse()

	lg := log.New(*logLevel, *logDir)
	defer lg.CatchAndReportCrash()

	config, err := LoadOrMakeDefaultConfig(*configFile, lg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration: %v\n", err)
		lg.Errorf("configuration: %v", err)
		os.Exit(1)
	}
	if *port != 0 {
		config.Port = *port
	}
	if *natsURL != "" {
		config.NATSURL = *natsURL
	}
	if *seed != 0 {
		config.Optimizer.Seed = *seed
	}

	if *dumpConfig {
		godump.Dump(config)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config, lg); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		lg.Errorf("%v", err)
		os.Exit(1)
	}
}

func loadCatalogs(config *Config) (aviation.AirportCatalog, aviation.AircraftCatalog, error) {
	var airports aviation.AirportCatalog = aviation.DefaultAirports()
	var aircraft aviation.AircraftCatalog = aviation.DefaultAircraft()
	if config.AirportsFile != "" {
		c, err := aviation.LoadAirportsFile(config.AirportsFile)
		if err != nil {
			return nil, nil, err
		}
		airports = c
	}
	if config.AircraftFile != "" {
		c, err := aviation.LoadAircraftFile(config.AircraftFile)
		if err != nil {
			return nil, nil, err
		}
		aircraft = c
	}
	return airports, aircraft, nil
}

// weatherProvider returns the cached weather source: Open-Meteo with
// retries and synthetic fallback, or synthetic weather alone.
func weatherProvider(config *Config, lg *log.Logger) *wx.Cached {
	synth := wx.Synthetic{Seed: config.Optimizer.Seed}

	var p wx.Provider = synth
	if !config.SyntheticWeather {
		p = wx.NewRetrying(wx.NewOpenMeteo(config.OpenMeteoURL), synth, lg)
	}
	return wx.NewCached(p, config.WeatherCacheSize, time.Duration(config.WeatherCacheTTLSeconds)*time.Second)
}

func notifiers(config *Config, hub *notify.Hub, lg *log.Logger) (notify.Multi, func()) {
	n := notify.Multi{hub, notify.NewLog(lg)}
	cleanup := func() { hub.Close() }

	if config.NATSURL != "" {
		nc, err := notify.DialNATS(config.NATSURL, lg)
		if err != nil {
			// Websocket clients still get updates.
			lg.Errorf("%s: unable to connect to NATS: %v", config.NATSURL, err)
		} else {
			nc.Prefix = config.NATSSubjectPrefix
			n = append(n, nc)
			cleanup = func() {
				hub.Close()
				nc.Close()
			}
		}
	}
	return n, cleanup
}

func run(ctx context.Context, config *Config, lg *log.Logger) error {
	airports, aircraft, err := loadCatalogs(config)
	if err != nil {
		return err
	}

	weather := weatherProvider(config, lg)
	var lim *rate.Limiter
	if config.WeatherRequestsPerSecond > 0 {
		lim = rate.NewLimiter(rate.Limit(config.WeatherRequestsPerSecond), wx.MaxConcurrentRequests)
	}

	cache := planner.NewCandidateCache(config.RouteCacheDir, lg)
	cache.MaxAge = time.Duration(config.CandidateMaxAgeH) * time.Hour

	p := planner.NewPlanner(weather, lim, cache, lg)
	p.MinDistanceKm = config.MinFlightDistanceKm
	p.MaxDistanceKm = config.MaxFlightDistanceKm

	hub := notify.NewHub(lg)
	n, cleanup := notifiers(config, hub, lg)
	defer cleanup()

	reg := reroute.NewRegistry(lg)
	adj := reroute.NewAdjuster(reg, p, aircraft, n, lg)
	adj.ExclusionRadiusKm = config.RerouteExclusionKm

	mon := reroute.NewMonitor(reg, aircraft, n, lg)
	mon.Interval = time.Duration(config.MonitorIntervalSeconds) * time.Second
	mon.MaxAge = time.Duration(config.MaxRouteAgeH) * time.Hour

	srv := server.NewServer(server.Config{
		Airports:      airports,
		Aircraft:      aircraft,
		Planner:       p,
		Registry:      reg,
		Adjuster:      adj,
		Hub:           hub,
		Notifier:      n,
		WeatherCache:  weather,
		Optimizer:     config.Optimizer,
		DefaultMethod: config.DefaultOptimizationMethod,
	}, lg)

	fmt.Printf("skyroute listening on port %d\n", config.Port)

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		defer lg.CatchAndReportCrash()
		mon.Run(ctx)
		return nil
	})
	eg.Go(func() error {
		return srv.ListenAndServe(ctx, config.Port)
	})
	return eg.Wait()
}
