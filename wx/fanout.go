// wx/fanout.go
// Copyright(c) 2025 skyroute contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package wx

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// MaxConcurrentRequests bounds the number of samples SampleAll has in
// flight at once.
const MaxConcurrentRequests = 8

// SampleAll samples every point concurrently and returns the results in
// the order of pts. If lim is non-nil, request starts are paced by it.
func SampleAll(ctx context.Context, p Provider, pts []KeyedPoint, lim *rate.Limiter) (SampleSet, error) {
	set := make(SampleSet, len(pts))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(MaxConcurrentRequests)
	for i, pt := range pts {
		eg.Go(func() error {
			if lim != nil {
				if err := lim.Wait(ctx); err != nil {
					return err
				}
			}
			s, err := p.SampleAt(ctx, pt.Location)
			if err != nil {
				return err
			}
			set[i] = KeyedSample{Key: pt.Key, Sample: s}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return set, nil
}
