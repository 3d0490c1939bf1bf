// wx/synthetic.go
// Copyright(c) 2025 skyroute contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package wx

import (
	"context"
	gomath "math"

	"github.com/skyroute/skyroute/math"
	"github.com/skyroute/skyroute/rand"
)

// Synthetic generates plausible weather without any network access. The
// result depends only on Seed and the location, so repeated queries for
// the same point agree.
type Synthetic struct {
	Seed int64
}

func (s Synthetic) SampleAt(ctx context.Context, p math.Point2LL) (Sample, error) {
	r := rand.New()
	r.Seed(s.Seed ^ int64(gomath.Float64bits(p[1])*31+gomath.Float64bits(p[0])))

	round := func(v float64) float64 { return gomath.Round(v*10) / 10 }
	pct := func() float64 { return float64(r.Intn(101)) }

	// Colder at higher latitudes.
	tempBase := 20 - math.Abs(p.Latitude())/90*30

	return Sample{
		Temperature2m:      round(tempBase + r.Uniform(-5, 5)),
		Precipitation:      round(r.Uniform(0, 20)),
		Rain:               round(r.Uniform(0, 10)),
		Showers:            round(r.Uniform(0, 10)),
		Snowfall:           round(r.Uniform(0, 5)),
		CloudCover:         pct(),
		CloudCoverLow:      pct(),
		CloudCoverMid:      pct(),
		CloudCoverHigh:     pct(),
		WeatherCode:        r.Intn(101),
		Visibility:         round(r.Uniform(1000, 10000)),
		WindSpeed10m:       round(r.Uniform(0, 50)),
		WindDirection10m:   float64(r.Intn(361)),
		Elevation:          round(r.Uniform(0, 3000)),
		JetStreamSpeed:     round(r.Uniform(50, 150)),
		JetStreamDirection: float64(r.Intn(361)),
		VerticalVelocity:   round(r.Uniform(-2, 2)),
		Temperature500hPa:  round(r.Uniform(-50, 0)),
		Temperature700hPa:  round(r.Uniform(-20, 10)),
		RelHumidity500hPa:  pct(),
		RelHumidity700hPa:  pct(),
		CAPE:               round(r.Uniform(0, 2000)),
		GeopotentialHeight: round(r.Uniform(9000, 12000)),
		Synthetic:          true,
	}, nil
}
