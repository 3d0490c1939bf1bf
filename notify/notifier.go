// notify/notifier.go
// Copyright(c) 2025 skyroute contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package notify delivers route and waypoint updates to subscribers.
package notify

import (
	"errors"

	"github.com/skyroute/skyroute/aviation"
	"github.com/skyroute/skyroute/log"
)

type Notifier interface {
	PublishRouteUpdate(routeID string, r *aviation.Route) error
	PublishWaypointStatus(routeID, waypointID string, s aviation.WaypointStatus) error
}

const (
	TypeRouteUpdate    = "route_update"
	TypeWaypointStatus = "waypoint_status"
)

// Message is the envelope for every notification sent to clients.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type WaypointStatusUpdate struct {
	RouteID    string                  `json:"route_id"`
	WaypointID string                  `json:"waypoint_id"`
	Status     aviation.WaypointStatus `json:"status"`
}

func RouteUpdateMessage(r *aviation.Route) Message {
	return Message{Type: TypeRouteUpdate, Data: r}
}

func WaypointStatusMessage(routeID, waypointID string, s aviation.WaypointStatus) Message {
	return Message{
		Type: TypeWaypointStatus,
		Data: WaypointStatusUpdate{RouteID: routeID, WaypointID: waypointID, Status: s},
	}
}

///////////////////////////////////////////////////////////////////////////
// Multi

// Multi publishes to each of its notifiers in turn. Every notifier is
// tried even if an earlier one fails.
type Multi []Notifier

func (m Multi) PublishRouteUpdate(routeID string, r *aviation.Route) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.PublishRouteUpdate(routeID, r))
	}
	return errors.Join(errs...)
}

func (m Multi) PublishWaypointStatus(routeID, waypointID string, s aviation.WaypointStatus) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.PublishWaypointStatus(routeID, waypointID, s))
	}
	return errors.Join(errs...)
}

///////////////////////////////////////////////////////////////////////////
// Log

// Log records notifications in the log and nothing more.
type Log struct {
	lg *log.Logger
}

func NewLog(lg *log.Logger) *Log {
	return &Log{lg: lg}
}

func (l *Log) PublishRouteUpdate(routeID string, r *aviation.Route) error {
	l.lg.Info("route update", "route_id", routeID, "path_type", r.PathType, "waypoints", len(r.Waypoints),
		"distance_km", r.DistanceKm, "fitness", r.FitnessScore)
	return nil
}

func (l *Log) PublishWaypointStatus(routeID, waypointID string, s aviation.WaypointStatus) error {
	l.lg.Info("waypoint status", "route_id", routeID, "waypoint_id", waypointID, "status", s)
	return nil
}
