// cmd/skyroute/config.go
// Copyright(c) 2025 skyroute contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/skyroute/skyroute/log"
	"github.com/skyroute/skyroute/notify"
	"github.com/skyroute/skyroute/optimize"
	"github.com/skyroute/skyroute/planner"
	"github.com/skyroute/skyroute/reroute"
	"github.com/skyroute/skyroute/server"
	"github.com/skyroute/skyroute/util"
	"github.com/skyroute/skyroute/wx"
)

type Config struct {
	Port int `json:"port"`

	OpenMeteoURL             string  `json:"open_meteo_url"`
	WeatherCacheTTLSeconds   int     `json:"weather_cache_ttl_s"`
	WeatherCacheSize         int     `json:"weather_cache_size"`
	WeatherRequestsPerSecond float64 `json:"weather_requests_per_second"`
	SyntheticWeather         bool    `json:"synthetic_weather,omitempty"` // never call the upstream service

	RouteCacheDir       string  `json:"route_cache_dir"`
	CandidateMaxAgeH    int     `json:"candidate_max_age_h"`
	MinFlightDistanceKm float64 `json:"min_flight_distance_km"`
	MaxFlightDistanceKm float64 `json:"max_flight_distance_km"`

	DefaultOptimizationMethod string          `json:"default_optimization_method"`
	Optimizer                 optimize.Config `json:"optimizer"`

	RerouteExclusionKm     float64 `json:"reroute_exclusion_km"`
	MonitorIntervalSeconds int     `json:"monitor_interval_s"`
	MaxRouteAgeH           int     `json:"max_route_age_h"`

	NATSURL           string `json:"nats_url,omitempty"`
	NATSSubjectPrefix string `json:"nats_subject_prefix"`

	// Optional replacements for the built-in catalogs.
	AirportsFile string `json:"airports_file,omitempty"`
	AircraftFile string `json:"aircraft_file,omitempty"`
}

func getDefaultConfig() *Config {
	ocfg := optimize.DefaultConfig()
	ocfg.PopulationSize = 100

	return &Config{
		Port:                      server.DefaultPort,
		OpenMeteoURL:              wx.DefaultOpenMeteoURL,
		WeatherCacheTTLSeconds:    3600,
		WeatherCacheSize:          wx.DefaultCacheSize,
		WeatherRequestsPerSecond:  10,
		RouteCacheDir:             filepath.Join(util.DefaultCacheDir(), "candidates"),
		CandidateMaxAgeH:          int(planner.DefaultCandidateMaxAge / time.Hour),
		MinFlightDistanceKm:       planner.DefaultMinDistanceKm,
		MaxFlightDistanceKm:       planner.DefaultMaxDistanceKm,
		DefaultOptimizationMethod: optimize.MethodACO,
		Optimizer:                 ocfg,
		RerouteExclusionKm:        reroute.DefaultExclusionRadiusKm,
		MonitorIntervalSeconds:    int(reroute.DefaultMonitorInterval / time.Second),
		MaxRouteAgeH:              int(reroute.DefaultMaxRouteAge / time.Hour),
		NATSSubjectPrefix:         notify.DefaultSubjectPrefix,
	}
}

func configFilePath(lg *log.Logger) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		lg.Errorf("Unable to find user config dir: %v", err)
		dir = "."
	}
	return filepath.Join(dir, "skyroute", "config.json")
}

func (c *Config) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(c)
}

func (c *Config) Save(fn string, lg *log.Logger) error {
	lg.Infof("Saving config to: %s", fn)
	if err := os.MkdirAll(filepath.Dir(fn), 0o700); err != nil {
		return err
	}
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer f.Close()

	return c.Encode(f)
}

// LoadOrMakeDefaultConfig reads the config file at fn, or at the default
// location if fn is empty, and applies environment overrides. A missing
// file yields the defaults; the default config file is created if it
// doesn't exist.
func LoadOrMakeDefaultConfig(fn string, lg *log.Logger) (*Config, error) {
	explicit := fn != ""
	if !explicit {
		fn = configFilePath(lg)
	}
	lg.Infof("Loading config from: %s", fn)

	config := getDefaultConfig()
	contents, err := os.ReadFile(fn)
	switch {
	case err == nil:
		// Fields missing from the file keep their defaults.
		if err := json.NewDecoder(bytes.NewReader(contents)).Decode(config); err != nil {
			return nil, fmt.Errorf("%s: %w", fn, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		if err := config.Save(fn, lg); err != nil {
			lg.Warnf("%s: unable to save default config: %v", fn, err)
		}
	default:
		return nil, err
	}

	if err := config.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return config, config.check()
}

// applyEnv overrides settings from environment variables; empty
// variables are ignored.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	envInt := func(name string, v *int) {
		if s, ok := lookup(name); ok && s != "" {
			if n, err := strconv.Atoi(s); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
			} else {
				*v = n
			}
		}
	}
	envFloat := func(name string, v *float64) {
		if s, ok := lookup(name); ok && s != "" {
			if f, err := strconv.ParseFloat(s, 64); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
			} else {
				*v = f
			}
		}
	}
	envString := func(name string, v *string) {
		if s, ok := lookup(name); ok && s != "" {
			*v = s
		}
	}

	envInt("PORT", &c.Port)
	envInt("ACO_ITERATIONS", &c.Optimizer.ACOIterations)
	envInt("GA_GENERATIONS", &c.Optimizer.Generations)
	envInt("POPULATION_SIZE", &c.Optimizer.PopulationSize)
	envString("DEFAULT_OPTIMIZATION_METHOD", &c.DefaultOptimizationMethod)
	envInt("WEATHER_CACHE_TTL", &c.WeatherCacheTTLSeconds)
	envFloat("MIN_FLIGHT_DISTANCE_KM", &c.MinFlightDistanceKm)
	envFloat("MAX_FLIGHT_DISTANCE_KM", &c.MaxFlightDistanceKm)
	envString("OPEN_METEO_URL", &c.OpenMeteoURL)
	envString("ROUTE_CACHE_DIR", &c.RouteCacheDir)
	envFloat("REROUTE_EXCLUSION_KM", &c.RerouteExclusionKm)
	envInt("MONITOR_INTERVAL", &c.MonitorIntervalSeconds)
	envString("NATS_URL", &c.NATSURL)

	return errors.Join(errs...)
}

func (c *Config) check() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.MinFlightDistanceKm > c.MaxFlightDistanceKm {
		errs = append(errs, fmt.Errorf("minimum flight distance %.0f km exceeds maximum %.0f km",
			c.MinFlightDistanceKm, c.MaxFlightDistanceKm))
	}
	if c.WeatherCacheTTLSeconds < 0 || c.MonitorIntervalSeconds <= 0 {
		errs = append(errs, errors.New("weather cache TTL and monitor interval must be positive"))
	}
	if c.Optimizer.PopulationSize <= 0 || c.Optimizer.Generations < 0 || c.Optimizer.ACOIterations < 0 {
		errs = append(errs, errors.New("invalid optimizer settings"))
	}
	return errors.Join(errs...)
}
