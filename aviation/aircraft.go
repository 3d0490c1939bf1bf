// aviation/aircraft.go
// Copyright(c) 2025 skyroute contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// JetFuelKgPerLiter is the density used to convert tank capacity to mass.
const JetFuelKgPerLiter = 0.8

// Aircraft performance data; immutable reference data.
type Aircraft struct {
	Model              string  `json:"model"`
	Manufacturer       string  `json:"manufacturer"`
	MTOWKg             float64 `json:"mtow_kg"`
	MaxRangeKm         float64 `json:"max_range_km"`
	CruiseSpeedKmh     float64 `json:"cruise_speed_kmh"`
	FuelCapacityLiters float64 `json:"fuel_capacity_liters"`
	FuelBurnKgPerHr    float64 `json:"fuel_burn_kg_per_hr"`
	CeilingM           float64 `json:"ceiling_m"`
}

func (ac Aircraft) FuelCapacityKg() float64 {
	return ac.FuelCapacityLiters * JetFuelKgPerLiter
}

// EstimatedFuelKg returns the fuel burned flying distanceKm at cruise
// speed in still air.
func (ac Aircraft) EstimatedFuelKg(distanceKm float64) float64 {
	if ac.CruiseSpeedKmh <= 0 {
		return 0
	}
	return distanceKm / ac.CruiseSpeedKmh * ac.FuelBurnKgPerHr
}

func (ac Aircraft) check() error {
	if ac.Model == "" {
		return fmt.Errorf("aircraft missing model: %w", ErrInvalidInput)
	}
	if ac.CruiseSpeedKmh <= 0 || ac.FuelBurnKgPerHr <= 0 || ac.FuelCapacityLiters <= 0 {
		return fmt.Errorf("%s: cruise speed, fuel burn and capacity must be positive: %w", ac.Model, ErrInvalidInput)
	}
	return nil
}

///////////////////////////////////////////////////////////////////////////
// AircraftCatalog

// AircraftFilter restricts AircraftCatalog results; zero values match
// everything.
type AircraftFilter struct {
	Manufacturer string
	MinRangeKm   float64
}

type AircraftCatalog interface {
	// ByModel returns the aircraft whose model matches name
	// (case-insensitive) and that pass the filter. An empty name matches
	// all models.
	ByModel(name string, f AircraftFilter) []Aircraft
}

type StaticAircraftCatalog struct {
	aircraft []Aircraft
}

func MakeStaticAircraftCatalog(acs []Aircraft) (*StaticAircraftCatalog, error) {
	for _, ac := range acs {
		if err := ac.check(); err != nil {
			return nil, err
		}
	}
	return &StaticAircraftCatalog{aircraft: acs}, nil
}

// LoadAircraft reads a JSON array of aircraft.
func LoadAircraft(r io.Reader) (*StaticAircraftCatalog, error) {
	var acs []Aircraft
	if err := json.NewDecoder(r).Decode(&acs); err != nil {
		return nil, fmt.Errorf("failed to decode aircraft: %w", err)
	}
	return MakeStaticAircraftCatalog(acs)
}

func (c *StaticAircraftCatalog) ByModel(name string, f AircraftFilter) []Aircraft {
	var acs []Aircraft
	for _, ac := range c.aircraft {
		if name != "" && !strings.EqualFold(ac.Model, strings.TrimSpace(name)) {
			continue
		}
		if f.Manufacturer != "" && !strings.EqualFold(ac.Manufacturer, f.Manufacturer) {
			continue
		}
		if ac.MaxRangeKm < f.MinRangeKm {
			continue
		}
		acs = append(acs, ac)
	}
	return acs
}

// LookupAircraft returns the first aircraft of the given model or
// ErrNotFound.
func LookupAircraft(c AircraftCatalog, model string) (Aircraft, error) {
	if acs := c.ByModel(model, AircraftFilter{}); len(acs) > 0 {
		return acs[0], nil
	}
	return Aircraft{}, fmt.Errorf("%s: aircraft model %w", model, ErrNotFound)
}
