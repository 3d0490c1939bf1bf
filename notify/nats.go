// notify/nats.go
// Copyright(c) 2025 skyroute contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/skyroute/skyroute/aviation"
	"github.com/skyroute/skyroute/log"

	"github.com/nats-io/nats.go"
)

const DefaultSubjectPrefix = "skyroute"

// publisher is the subset of *nats.Conn that NATS uses.
type publisher interface {
	Publish(subject string, data []byte) error
}

// NATS publishes notifications to a NATS server. Route updates go to
// <prefix>.routes.<id>.update and waypoint changes to
// <prefix>.routes.<id>.waypoints.
type NATS struct {
	Prefix string

	conn publisher
	nc   *nats.Conn // nil if conn was supplied directly
	lg   *log.Logger
}

// DialNATS connects to the NATS server at url. The connection
// reconnects indefinitely in the background.
func DialNATS(url string, lg *log.Logger) (*NATS, error) {
	nc, err := nats.Connect(url,
		nats.Name("skyroute"),
		nats.Timeout(5*time.Second),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				lg.Warnf("NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			lg.Infof("NATS reconnected to %s", nc.ConnectedUrl())
		}))
	if err != nil {
		return nil, fmt.Errorf("%s: unable to connect to NATS: %w", url, err)
	}

	lg.Infof("connected to NATS at %s", nc.ConnectedUrl())
	return &NATS{Prefix: DefaultSubjectPrefix, conn: nc, nc: nc, lg: lg}, nil
}

func (n *NATS) RouteSubject(routeID string) string {
	return n.Prefix + ".routes." + routeID + ".update"
}

func (n *NATS) WaypointSubject(routeID string) string {
	return n.Prefix + ".routes." + routeID + ".waypoints"
}

func (n *NATS) publish(subject string, msg Message) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := n.conn.Publish(subject, b); err != nil {
		return fmt.Errorf("%s: %w", subject, err)
	}
	return nil
}

func (n *NATS) PublishRouteUpdate(routeID string, r *aviation.Route) error {
	return n.publish(n.RouteSubject(routeID), RouteUpdateMessage(r))
}

func (n *NATS) PublishWaypointStatus(routeID, waypointID string, s aviation.WaypointStatus) error {
	return n.publish(n.WaypointSubject(routeID), WaypointStatusMessage(routeID, waypointID, s))
}

// Close flushes pending messages and closes the connection.
func (n *NATS) Close() {
	if n.nc != nil {
		if err := n.nc.Drain(); err != nil {
			n.lg.Warnf("NATS drain: %v", err)
		}
	}
}
