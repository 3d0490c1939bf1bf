// aviation/db.go
// Copyright(c) 2025 skyroute contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"bytes"
	_ "embed"
	"os"
)

var (
	//go:embed resources/airports.json
	defaultAirportsJSON []byte

	//go:embed resources/aircraft.json
	defaultAircraftJSON []byte
)

// DefaultAirports returns the catalog of airports built into the binary.
func DefaultAirports() *StaticAirportCatalog {
	c, err := LoadAirports(bytes.NewReader(defaultAirportsJSON))
	if err != nil {
		panic("built-in airports: " + err.Error())
	}
	return c
}

// DefaultAircraft returns the catalog of aircraft built into the binary.
func DefaultAircraft() *StaticAircraftCatalog {
	c, err := LoadAircraft(bytes.NewReader(defaultAircraftJSON))
	if err != nil {
		panic("built-in aircraft: " + err.Error())
	}
	return c
}

// LoadAirportsFile loads airports from the given JSON file, or returns
// the built-in catalog if filename is empty.
func LoadAirportsFile(filename string) (*StaticAirportCatalog, error) {
	if filename == "" {
		return DefaultAirports(), nil
	}
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadAirports(f)
}

// LoadAircraftFile is the aircraft counterpart of LoadAirportsFile.
func LoadAircraftFile(filename string) (*StaticAircraftCatalog, error) {
	if filename == "" {
		return DefaultAircraft(), nil
	}
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadAircraft(f)
}
