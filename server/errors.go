// server/errors.go
// Copyright(c) 2025 skyroute contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/skyroute/skyroute/aviation"
)

var (
	ErrBadRequest     = errors.New("malformed request")
	ErrServerShutdown = errors.New("server shutting down")
)

// errorStatus maps errors to HTTP status codes; the first match wins.
var errorStatus = []struct {
	err  error
	code int
}{
	{ErrBadRequest, http.StatusBadRequest},
	{aviation.ErrInvalidInput, http.StatusBadRequest},
	{aviation.ErrNotFound, http.StatusNotFound},
	{aviation.ErrFirstWaypointBlocked, http.StatusConflict},
	{aviation.ErrNoCandidate, http.StatusConflict},
	{aviation.ErrUpstreamUnavailable, http.StatusServiceUnavailable},
	{ErrServerShutdown, http.StatusServiceUnavailable},
	{context.DeadlineExceeded, http.StatusGatewayTimeout},
}

// StatusForError returns the HTTP status code reported for err.
func StatusForError(err error) int {
	for _, es := range errorStatus {
		if errors.Is(err, es.err) {
			return es.code
		}
	}
	return http.StatusInternalServerError
}
