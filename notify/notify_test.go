// notify/notify_test.go
// Copyright(c) 2025 skyroute contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package notify

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/skyroute/skyroute/aviation"
	"github.com/skyroute/skyroute/math"

	"github.com/gorilla/websocket"
)

func testRoute() *aviation.Route {
	o := aviation.Airport{Code: "AAA", Location: math.LL(0, 0)}
	d := aviation.Airport{Code: "BBB", Location: math.LL(0, 1)}
	r := aviation.NewRoute(o, d, aviation.PathDirect)
	r.Waypoints = []aviation.Waypoint{
		{ID: "w1", Name: "WP1_direct", Sequence: 1, Location: o.Location, Status: aviation.WaypointActive},
		{ID: "w2", Name: "WP2_direct", Sequence: 2, Location: d.Location, Status: aviation.WaypointPending},
	}
	return r
}

type recorder struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (r *recorder) Publish(subject string, data []byte) error {
	r.subjects = append(r.subjects, subject)
	r.payloads = append(r.payloads, data)
	return r.err
}

func TestNATSSubjects(t *testing.T) {
	rec := &recorder{}
	n := &NATS{Prefix: DefaultSubjectPrefix, conn: rec}
	r := testRoute()

	if err := n.PublishRouteUpdate(r.ID, r); err != nil {
		t.Fatal(err)
	}
	if err := n.PublishWaypointStatus(r.ID, "w2", aviation.WaypointBlocked); err != nil {
		t.Fatal(err)
	}

	if rec.subjects[0] != "skyroute.routes."+r.ID+".update" || rec.subjects[1] != "skyroute.routes."+r.ID+".waypoints" {
		t.Errorf("unexpected subjects %v", rec.subjects)
	}

	var msg struct {
		Type string               `json:"type"`
		Data WaypointStatusUpdate `json:"data"`
	}
	if err := json.Unmarshal(rec.payloads[1], &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != TypeWaypointStatus || msg.Data.WaypointID != "w2" || msg.Data.Status != aviation.WaypointBlocked {
		t.Errorf("unexpected payload %s", rec.payloads[1])
	}

	rec.err = errors.New("no responders")
	if err := n.PublishRouteUpdate(r.ID, r); err == nil || !strings.Contains(err.Error(), ".update") {
		t.Errorf("expected subject in error, got %v", err)
	}
}

func TestMulti(t *testing.T) {
	a, b := &recorder{err: errors.New("down")}, &recorder{}
	m := Multi{&NATS{Prefix: "x", conn: a}, &NATS{Prefix: "y", conn: b}, NewLog(nil)}
	if err := m.PublishWaypointStatus("r", "w", aviation.WaypointPassed); err == nil {
		t.Errorf("expected error from failing notifier")
	}
	if len(b.subjects) != 1 {
		t.Errorf("later notifiers should still be called")
	}
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatal(err)
	}
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	for start := time.Now(); time.Since(start) < 2*time.Second; time.Sleep(5 * time.Millisecond) {
		if cond() {
			return
		}
	}
	t.Fatalf("timed out")
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	c1, c2 := dial(t, srv), dial(t, srv)
	defer c1.Close()
	waitFor(t, func() bool { return hub.NumClients() == 2 })

	r := testRoute()
	if err := hub.PublishRouteUpdate(r.ID, r); err != nil {
		t.Fatal(err)
	}

	for _, c := range []*websocket.Conn{c1, c2} {
		c.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg struct {
			Type string         `json:"type"`
			Data aviation.Route `json:"data"`
		}
		if err := c.ReadJSON(&msg); err != nil {
			t.Fatal(err)
		}
		if msg.Type != TypeRouteUpdate || msg.Data.ID != r.ID || len(msg.Data.Waypoints) != 2 {
			t.Errorf("unexpected message %+v", msg)
		}
	}

	c2.Close()
	waitFor(t, func() bool { return hub.NumClients() == 1 })

	hub.PublishWaypointStatus(r.ID, "w1", aviation.WaypointPassed)
	c1.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, b, err := c1.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"waypoint_status"`) || !strings.Contains(string(b), `"route_id":"`+r.ID+`"`) {
		t.Errorf("unexpected message %s", b)
	}
}
