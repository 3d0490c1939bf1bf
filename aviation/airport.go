// aviation/airport.go
// Copyright(c) 2025 skyroute contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/skyroute/skyroute/math"
)

type Airport struct {
	Code     string // IATA
	Name     string
	City     string
	Country  string
	Location math.Point2LL
}

type airportJSON struct {
	Code      string  `json:"iata_code"`
	Name      string  `json:"name"`
	City      string  `json:"city"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (ap Airport) MarshalJSON() ([]byte, error) {
	return json.Marshal(airportJSON{
		Code:      ap.Code,
		Name:      ap.Name,
		City:      ap.City,
		Country:   ap.Country,
		Latitude:  ap.Location.Latitude(),
		Longitude: ap.Location.Longitude(),
	})
}

func (ap *Airport) UnmarshalJSON(b []byte) error {
	var aj airportJSON
	if err := json.Unmarshal(b, &aj); err != nil {
		return err
	}
	*ap = Airport{
		Code:     strings.ToUpper(strings.TrimSpace(aj.Code)),
		Name:     aj.Name,
		City:     aj.City,
		Country:  aj.Country,
		Location: math.LL(aj.Latitude, aj.Longitude),
	}
	return nil
}

func (ap Airport) String() string {
	return ap.Code
}

// TemporaryAirport returns a pseudo-airport at p; the reroute logic uses
// it to plan from the aircraft's current position.
func TemporaryAirport(p math.Point2LL) Airport {
	return Airport{
		Code:     "POS",
		Name:     "Current Position",
		Location: p,
	}
}

///////////////////////////////////////////////////////////////////////////
// AirportCatalog

type AirportCatalog interface {
	// Lookup returns the airport with the given IATA code.
	Lookup(code string) (Airport, bool)
	// All returns all airports, optionally restricted to a country
	// (case-insensitive); the result is sorted by code.
	All(country string) []Airport
}

// StaticAirportCatalog is an AirportCatalog backed by a fixed set of
// airports.
type StaticAirportCatalog struct {
	airports map[string]Airport
}

func MakeStaticAirportCatalog(aps []Airport) (*StaticAirportCatalog, error) {
	c := &StaticAirportCatalog{airports: make(map[string]Airport)}
	for _, ap := range aps {
		if ap.Code == "" {
			return nil, fmt.Errorf("airport %q: missing IATA code: %w", ap.Name, ErrInvalidInput)
		}
		if !ap.Location.Valid() {
			return nil, fmt.Errorf("%s: invalid location %s: %w", ap.Code, ap.Location.DDString(), ErrInvalidInput)
		}
		if _, ok := c.airports[ap.Code]; ok {
			return nil, fmt.Errorf("%s: duplicate airport: %w", ap.Code, ErrInvalidInput)
		}
		c.airports[ap.Code] = ap
	}
	return c, nil
}

// LoadAirports reads a JSON array of airports.
func LoadAirports(r io.Reader) (*StaticAirportCatalog, error) {
	var aps []Airport
	if err := json.NewDecoder(r).Decode(&aps); err != nil {
		return nil, fmt.Errorf("failed to decode airports: %w", err)
	}
	return MakeStaticAirportCatalog(aps)
}

func (c *StaticAirportCatalog) Lookup(code string) (Airport, bool) {
	ap, ok := c.airports[strings.ToUpper(strings.TrimSpace(code))]
	return ap, ok
}

func (c *StaticAirportCatalog) All(country string) []Airport {
	var aps []Airport
	for _, ap := range c.airports {
		if country == "" || strings.EqualFold(ap.Country, country) {
			aps = append(aps, ap)
		}
	}
	slices.SortFunc(aps, func(a, b Airport) int { return strings.Compare(a.Code, b.Code) })
	return aps
}
