// reroute/monitor.go
// Copyright(c) 2025 skyroute contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package reroute

import (
	"context"
	"time"

	"github.com/skyroute/skyroute/aviation"
	"github.com/skyroute/skyroute/log"
	"github.com/skyroute/skyroute/math"
	"github.com/skyroute/skyroute/notify"
)

const (
	DefaultMonitorInterval = time.Minute
	DefaultMaxRouteAge     = 24 * time.Hour
	DefaultCruiseKmh       = 900
)

// Monitor periodically advances waypoint status on every registered
// route, assuming each flight departed when its route was created and
// flies at its aircraft's cruise speed.
type Monitor struct {
	Registry *Registry
	Aircraft aviation.AircraftCatalog // may be nil
	Notifier notify.Notifier
	Interval time.Duration
	MaxAge   time.Duration
	Now      func() time.Time

	lg *log.Logger
}

func NewMonitor(reg *Registry, aircraft aviation.AircraftCatalog, n notify.Notifier, lg *log.Logger) *Monitor {
	return &Monitor{
		Registry: reg,
		Aircraft: aircraft,
		Notifier: n,
		Interval: DefaultMonitorInterval,
		MaxAge:   DefaultMaxRouteAge,
		Now:      time.Now,
		lg:       lg,
	}
}

// Run scans the registry every Interval until ctx is canceled.
func (m *Monitor) Run(ctx context.Context) {
	m.lg.Infof("route monitor started, interval %s", m.Interval)
	defer m.lg.Info("route monitor stopped")

	ticker := time.NewTicker(m.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Scan(ctx)
		}
	}
}

type statusChange struct {
	routeID, waypointID string
	status              aviation.WaypointStatus
}

// Scan updates every route once and returns the number of waypoint
// status changes it published.
func (m *Monitor) Scan(ctx context.Context) int {
	now := m.Now()
	n := 0
	for _, id := range m.Registry.IDs() {
		if ctx.Err() != nil {
			break
		}

		var changes []statusChange
		// Routes removed since IDs was called return ErrNotFound; skip them.
		_ = m.Registry.Update(id, func(r *aviation.Route) error {
			age := now.Sub(r.CreatedAt)
			if age > m.MaxAge || age < 0 {
				return nil
			}
			cur := currentWaypoint(r, age.Hours()*m.cruiseKmh(r))
			for i := range r.Waypoints {
				wp := &r.Waypoints[i]
				if wp.Status == aviation.WaypointBlocked || wp.Status == aviation.WaypointSkipped {
					continue
				}
				var s aviation.WaypointStatus
				switch {
				case i < cur:
					s = aviation.WaypointPassed
				case i == cur:
					s = aviation.WaypointActive
				default:
					continue
				}
				if wp.Status != s {
					wp.Status = s
					changes = append(changes, statusChange{routeID: r.ID, waypointID: wp.ID, status: s})
				}
			}
			return nil
		})

		for _, c := range changes {
			if m.Notifier != nil {
				if err := m.Notifier.PublishWaypointStatus(c.routeID, c.waypointID, c.status); err != nil {
					m.lg.Warnf("%s: waypoint %s status: %v", c.routeID, c.waypointID, err)
				}
			}
		}
		n += len(changes)
	}
	return n
}

func (m *Monitor) cruiseKmh(r *aviation.Route) float64 {
	if m.Aircraft != nil && r.AircraftModel != "" {
		if ac, err := aviation.LookupAircraft(m.Aircraft, r.AircraftModel); err == nil {
			return ac.CruiseSpeedKmh
		}
	}
	return DefaultCruiseKmh
}

// currentWaypoint returns the index of the last waypoint reached after
// flying flownKm along the route.
func currentWaypoint(r *aviation.Route, flownKm float64) int {
	cur, d := 0, 0.
	for i := 1; i < len(r.Waypoints); i++ {
		d += math.DistanceKm(r.Waypoints[i-1].Location, r.Waypoints[i].Location)
		if d > flownKm {
			break
		}
		cur = i
	}
	return cur
}
