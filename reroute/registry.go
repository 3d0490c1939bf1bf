// reroute/registry.go
// Copyright(c) 2025 skyroute contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package reroute tracks active routes and re-plans them when a waypoint
// becomes unusable.
package reroute

import (
	"fmt"
	"slices"
	"sync"

	"github.com/skyroute/skyroute/aviation"
	"github.com/skyroute/skyroute/log"
	"github.com/skyroute/skyroute/util"

	"github.com/brunoga/deep"
)

// Registry holds the active routes, keyed by id. Each route has its own
// lock so that slow operations on one route do not stall the others.
// Routes never leave the registry by reference: callers receive deep
// copies.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	lg      *log.Logger
}

type entry struct {
	mu      util.LoggingMutex
	route   *aviation.Route
	removed bool
}

func NewRegistry(lg *log.Logger) *Registry {
	return &Registry{entries: make(map[string]*entry), lg: lg}
}

// Register adds a copy of the route, replacing any route with the same
// id.
func (reg *Registry) Register(r *aviation.Route) error {
	if r == nil || r.ID == "" {
		return fmt.Errorf("route without id: %w", aviation.ErrInvalidInput)
	}
	if err := r.Check(); err != nil {
		return err
	}

	rc := deep.MustCopy(*r)
	if rc.RerouteHistory == nil {
		rc.RerouteHistory = []aviation.RerouteRecord{}
	}

	reg.mu.Lock()
	old, replaced := reg.entries[r.ID]
	reg.entries[r.ID] = &entry{route: &rc}
	reg.mu.Unlock()

	// The replaced entry may be busy; wait for it without holding the
	// registry lock.
	if replaced {
		old.mu.Lock(reg.lg)
		old.removed = true
		old.mu.Unlock(reg.lg)
	}

	reg.lg.Info("registered route", "route_id", r.ID, "name", r.Name, "waypoints", len(r.Waypoints))
	return nil
}

func (reg *Registry) lookup(id string) (*entry, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	e, ok := reg.entries[id]
	return e, ok
}

// Get returns a copy of the route with the given id.
func (reg *Registry) Get(id string) (*aviation.Route, error) {
	var r *aviation.Route
	err := reg.Update(id, func(live *aviation.Route) error {
		rc := deep.MustCopy(*live)
		r = &rc
		return nil
	})
	return r, err
}

// Update runs fn on the route with the given id while holding the
// route's lock. fn may modify the route in place; it must not retain it.
func (reg *Registry) Update(id string, fn func(r *aviation.Route) error) error {
	e, ok := reg.lookup(id)
	if !ok {
		return fmt.Errorf("route %s: %w", id, aviation.ErrNotFound)
	}

	e.mu.Lock(reg.lg)
	defer e.mu.Unlock(reg.lg)

	// The route may have been removed while we waited for the lock.
	if e.removed {
		return fmt.Errorf("route %s: %w", id, aviation.ErrNotFound)
	}
	return fn(e.route)
}

func (reg *Registry) Remove(id string) error {
	reg.mu.Lock()
	e, ok := reg.entries[id]
	delete(reg.entries, id)
	reg.mu.Unlock()

	if !ok {
		return fmt.Errorf("route %s: %w", id, aviation.ErrNotFound)
	}

	e.mu.Lock(reg.lg)
	e.removed = true
	e.mu.Unlock(reg.lg)

	reg.lg.Info("removed route", "route_id", id)
	return nil
}

// IDs returns the ids of all registered routes in sorted order.
func (reg *Registry) IDs() []string {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return util.SortedMapKeys(reg.entries)
}

// List returns copies of all registered routes, oldest first.
func (reg *Registry) List() []*aviation.Route {
	var routes []*aviation.Route
	for _, id := range reg.IDs() {
		// Routes removed since IDs was called are skipped.
		if r, err := reg.Get(id); err == nil {
			routes = append(routes, r)
		}
	}
	slices.SortStableFunc(routes, func(a, b *aviation.Route) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return routes
}

func (reg *Registry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.entries)
}
