// planner/fitness.go
// Copyright(c) 2025 skyroute contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package planner

import (
	gomath "math"

	"github.com/skyroute/skyroute/aviation"
	"github.com/skyroute/skyroute/math"
	"github.com/skyroute/skyroute/wx"
)

const (
	BaseCruiseKmh        = 900.
	MinGroundSpeedKmh    = 450.
	DefaultFuelBurnKgHr  = 3000.
	DefaultFuelCapacity  = 70000. // kg
	LongRouteThresholdKm = 5000.
)

// Evaluator scores routes; lower is better.
type Evaluator struct {
	WeatherWeight  float64
	DistanceWeight float64
}

func NewEvaluator() *Evaluator {
	return &Evaluator{WeatherWeight: 0.6, DistanceWeight: 0.4}
}

// Breakdown records the terms that make up a route's fitness score.
type Breakdown struct {
	DistanceKm     float64 `json:"distance_km"`
	GroundSpeedKmh float64 `json:"ground_speed_kmh"`
	FlightHours    float64 `json:"flight_hours"`
	FuelKg         float64 `json:"fuel_kg"`
	FuelPenalty    float64 `json:"fuel_penalty"`

	Turbulence   float64 `json:"turbulence"`
	Thunderstorm float64 `json:"thunderstorm"`
	Visibility   float64 `json:"visibility"`
	Cloud        float64 `json:"cloud"`
	Runway       float64 `json:"runway"`
	Crosswind    float64 `json:"crosswind"`
	WeatherCode  float64 `json:"weather_code"`
	Safety       float64 `json:"safety"`

	LongRoute float64 `json:"long_route"`
	Score     float64 `json:"score"`
	// WeatherScored is false if the score is the distance-only fallback.
	WeatherScored bool `json:"weather_scored"`
}

// Score evaluates the route and returns its fitness. It updates the
// route's DistanceKm and FitnessScore.
func (e *Evaluator) Score(r *aviation.Route, ac *aviation.Aircraft) float64 {
	return e.Evaluate(r, ac).Score
}

// Evaluate is like Score but returns every term of the computation. ac
// may be nil, in which case generic fuel figures are used.
func (e *Evaluator) Evaluate(r *aviation.Route, ac *aviation.Aircraft) Breakdown {
	b := Breakdown{DistanceKm: r.RecomputeDistance()}

	samples := r.Weather.Samples()
	if len(samples) < 2 {
		b.Score = b.DistanceKm / 1000
		r.FitnessScore = b.Score
		return b
	}
	b.WeatherScored = true

	heading := math.Bearing(r.Origin.Location, r.Destination.Location)

	// Jet stream tailwind (or headwind) component.
	var gs float64
	for _, s := range samples {
		delta := math.Radians(s.JetStreamDirection - heading)
		gs += max(MinGroundSpeedKmh, BaseCruiseKmh+s.JetStreamSpeed*gomath.Cos(delta))
	}
	b.GroundSpeedKmh = gs / float64(len(samples))
	b.FlightHours = b.DistanceKm / b.GroundSpeedKmh

	burn, capacity := DefaultFuelBurnKgHr, DefaultFuelCapacity
	if ac != nil {
		burn, capacity = ac.FuelBurnKgPerHr, ac.FuelCapacityKg()
	}
	b.FuelKg = b.FlightHours * burn
	if capacity > 0 {
		b.FuelPenalty = max(0, (b.FuelKg-capacity)/capacity*10)
	}

	// Route-wide hazards are weighted by the fraction of samples that
	// show them.
	var turb, storms int
	for _, s := range samples {
		if math.Abs(s.VerticalVelocity) > 0.5 {
			turb++
		}
		if s.CAPE > 1000 || s.CloudCoverHigh > 80 {
			storms++
		}
	}
	n := float64(len(samples))
	b.Turbulence = float64(turb) / n * 2
	b.Thunderstorm = float64(storms) / n * 3

	// Departure and arrival conditions.
	dep, arr := r.Weather.Endpoints()
	if dep.Visibility < 5000 || arr.Visibility < 5000 {
		b.Visibility = 1
	}
	if dep.CloudCover > 80 || arr.CloudCover > 80 {
		b.Cloud = 0.5
	}
	for _, s := range []wx.Sample{dep, arr} {
		if s.Precipitation > 10 || s.Rain > 5 || s.Showers > 5 || s.Snowfall > 1 {
			b.Runway += 0.75
		}
		if s.WindSpeed10m*gomath.Sin(math.Radians(math.HeadingDifference(s.WindDirection10m, heading))) > 20 {
			b.Crosswind += 0.5
		}
		if s.WeatherCode > 50 {
			b.WeatherCode += 0.3
		}
	}

	b.Safety = b.Turbulence + b.Thunderstorm + b.Visibility + b.Cloud + b.Runway + b.Crosswind + b.WeatherCode

	b.Score = e.WeatherWeight*b.Safety + e.DistanceWeight*(b.FuelKg/10000) + b.FuelPenalty
	if b.DistanceKm > LongRouteThresholdKm {
		b.LongRoute = (b.DistanceKm - LongRouteThresholdKm) / 1000
		b.Score += b.LongRoute
	}

	r.FitnessScore = b.Score
	return b
}
