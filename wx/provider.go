// wx/provider.go
// Copyright(c) 2025 skyroute contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package wx

import (
	"context"
	"errors"

	"github.com/skyroute/skyroute/math"
)

var (
	ErrUpstreamUnavailable = errors.New("weather upstream unavailable")
	ErrBadResponse         = errors.New("malformed weather response")
)

type Provider interface {
	// SampleAt returns the weather at the given point. Implementations
	// must respect ctx's deadline.
	SampleAt(ctx context.Context, p math.Point2LL) (Sample, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, p math.Point2LL) (Sample, error)

func (f ProviderFunc) SampleAt(ctx context.Context, p math.Point2LL) (Sample, error) {
	return f(ctx, p)
}

// KeyedPoint is a location to sample along with the key its sample is
// stored under in a SampleSet.
type KeyedPoint struct {
	Key      string
	Location math.Point2LL
}
