// aviation/errors.go
// Copyright(c) 2025 skyroute contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"errors"

	"github.com/skyroute/skyroute/wx"
)

var (
	ErrFirstWaypointBlocked = errors.New("first waypoint blocked; cannot reroute before origin")
	ErrInvalidInput         = errors.New("invalid input")
	ErrNoCandidate          = errors.New("no alternative available")
	ErrNotFound             = errors.New("not found")
	ErrUpstreamUnavailable  = wx.ErrUpstreamUnavailable
)
