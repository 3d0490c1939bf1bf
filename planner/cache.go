// planner/cache.go
// Copyright(c) 2025 skyroute contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package planner

import (
	"errors"
	"io/fs"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/skyroute/skyroute/aviation"
	"github.com/skyroute/skyroute/log"
	"github.com/skyroute/skyroute/util"
)

const (
	DefaultCandidateMaxAge   = 24 * time.Hour
	DefaultCandidateMaxBytes = 256 << 20
)

// CandidateCache persists generated candidate sets on disk so that
// repeated requests for the same city pair skip generation.
type CandidateCache struct {
	MaxAge   time.Duration
	MaxBytes int64 // oldest sets are culled past this size

	store util.ObjectCache
	lg    *log.Logger
}

func NewCandidateCache(dir string, lg *log.Logger) *CandidateCache {
	if dir == "" {
		dir = util.DefaultCacheDir()
	}
	return &CandidateCache{
		MaxAge:   DefaultCandidateMaxAge,
		MaxBytes: DefaultCandidateMaxBytes,
		store:    util.ObjectCache{Dir: dir},
		lg:       lg,
	}
}

// CandidateKey returns the cache key for a candidate set, of the form
// {orig}_{dest}_{types}[_{aircraft}][_excluded_{lat}_{lon}_{radius}...].
// Types are sorted so that the key does not depend on request order.
func CandidateKey(origin, destination string, types []aviation.PathType, aircraft string,
	excluded []aviation.ExcludedArea) string {
	if len(types) == 0 {
		types = aviation.AllPathTypes
	}
	ts := util.MapSlice(types, func(pt aviation.PathType) string { return string(pt) })
	slices.Sort(ts)
	ts = slices.Compact(ts)

	var sb strings.Builder
	sb.WriteString(strings.ToUpper(origin) + "_" + strings.ToUpper(destination) + "_" + strings.Join(ts, "-"))
	if aircraft != "" {
		// Model names may contain spaces or slashes.
		sb.WriteString("_" + strings.NewReplacer(" ", "", "/", "-", "_", "-").Replace(aircraft))
	}
	if len(excluded) > 0 {
		sb.WriteString("_excluded")
		ff := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
		for _, e := range excluded {
			sb.WriteString("_" + ff(e.Center.Latitude()) + "_" + ff(e.Center.Longitude()) + "_" + ff(e.RadiusKm))
		}
	}
	return sb.String()
}

// Load returns the cached candidates for key. Each returned route and
// waypoint gets a fresh id so that callers may register them.
func (c *CandidateCache) Load(key string) ([]*aviation.Route, bool) {
	var routes []*aviation.Route
	t, err := c.store.Retrieve(key, &routes)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.lg.Warnf("%s: %v", key, err)
		}
		return nil, false
	}
	if c.MaxAge > 0 && time.Since(t) > c.MaxAge {
		c.lg.Debugf("%s: cached candidates are stale (%s)", key, time.Since(t))
		return nil, false
	}

	now := time.Now().UTC()
	for _, r := range routes {
		r.ID = aviation.NewID()
		r.CreatedAt = now
		for i := range r.Waypoints {
			r.Waypoints[i].ID = aviation.NewID()
		}
		if r.RerouteHistory == nil {
			r.RerouteHistory = []aviation.RerouteRecord{}
		}
	}
	return routes, true
}

func (c *CandidateCache) Store(key string, routes []*aviation.Route) {
	if err := c.store.Store(key, routes); err != nil {
		c.lg.Warnf("%s: unable to cache candidates: %v", key, err)
		return
	}
	if c.MaxBytes > 0 {
		if err := c.store.Cull(c.MaxBytes); err != nil {
			c.lg.Warnf("unable to cull candidate cache: %v", err)
		}
	}
}

// Clear removes cached candidate sets. With both airports given, only
// that city pair is cleared; with one, every pair departing from the
// origin or arriving at the destination; with neither, everything.
func (c *CandidateCache) Clear(origin, destination string) (int, error) {
	origin, destination = strings.ToUpper(origin), strings.ToUpper(destination)

	var match func(name string) bool
	switch {
	case origin != "" && destination != "":
		match = func(name string) bool { return strings.HasPrefix(name, origin+"_"+destination+"_") }
	case origin != "":
		match = func(name string) bool { return strings.HasPrefix(name, origin+"_") }
	case destination != "":
		match = func(name string) bool {
			// The destination is always the key's second field.
			f := strings.SplitN(name, "_", 3)
			return len(f) == 3 && f[1] == destination
		}
	default:
		match = func(string) bool { return true }
	}

	n, err := c.store.RemoveMatching(match)
	if err == nil {
		c.lg.Infof("cleared %d cached candidate sets", n)
	}
	return n, err
}
