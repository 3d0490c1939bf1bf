// wx/retry.go
// Copyright(c) 2025 skyroute contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package wx

import (
	"context"
	"fmt"
	"time"

	"github.com/skyroute/skyroute/log"
	"github.com/skyroute/skyroute/math"
)

// Retrying wraps a Provider, retrying failed requests a fixed number of
// times and then falling back to a secondary provider (normally
// Synthetic). Its SampleAt only returns an error if the fallback does.
type Retrying struct {
	Provider Provider
	Fallback Provider
	Attempts int
	Delay    time.Duration
	Timeout  time.Duration // per attempt

	lg *log.Logger
}

func NewRetrying(p Provider, fallback Provider, lg *log.Logger) *Retrying {
	return &Retrying{
		Provider: p,
		Fallback: fallback,
		Attempts: 3,
		Delay:    time.Second,
		Timeout:  10 * time.Second,
		lg:       lg,
	}
}

func (r *Retrying) SampleAt(ctx context.Context, p math.Point2LL) (Sample, error) {
	var lastErr error
	for attempt := range max(1, r.Attempts) {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
			case <-time.After(r.Delay):
			}
			if ctx.Err() != nil {
				break
			}
		}

		actx, cancel := ctx, context.CancelFunc(func() {})
		if r.Timeout > 0 {
			actx, cancel = context.WithTimeout(ctx, r.Timeout)
		}
		s, err := r.Provider.SampleAt(actx, p)
		cancel()

		if err == nil {
			return s, nil
		}
		lastErr = err
		r.lg.Debugf("%s: weather attempt %d/%d failed: %v", p.DDString(), attempt+1, r.Attempts, err)
		if ctx.Err() != nil {
			break
		}
	}

	err := fmt.Errorf("%s: %w: %w", p.DDString(), ErrUpstreamUnavailable, lastErr)
	if r.Fallback == nil {
		return Sample{}, err
	}
	r.lg.Warnf("%v; using fallback weather", err)
	// The fallback is local; let it run even if the caller's context has
	// expired so the sample set stays complete.
	return r.Fallback.SampleAt(context.WithoutCancel(ctx), p)
}
