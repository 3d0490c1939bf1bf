// wx/sample.go
// Copyright(c) 2025 skyroute contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package wx

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/iancoleman/orderedmap"
)

// Sample holds the weather at a single point. Field names follow the
// Open-Meteo variable names.
type Sample struct {
	Temperature2m      float64 `json:"temperature_2m"`
	Precipitation      float64 `json:"precipitation"` // mm
	Rain               float64 `json:"rain"`
	Showers            float64 `json:"showers"`
	Snowfall           float64 `json:"snowfall"`    // cm
	CloudCover         float64 `json:"cloud_cover"` // percent
	CloudCoverLow      float64 `json:"cloud_cover_low"`
	CloudCoverMid      float64 `json:"cloud_cover_mid"`
	CloudCoverHigh     float64 `json:"cloud_cover_high"`
	WeatherCode        int     `json:"weather_code"` // WMO code
	Visibility         float64 `json:"visibility"`   // meters
	WindSpeed10m       float64 `json:"wind_speed_10m"`
	WindDirection10m   float64 `json:"wind_direction_10m"`
	Elevation          float64 `json:"elevation"`
	JetStreamSpeed     float64 `json:"jet_stream_speed_250hPa"`
	JetStreamDirection float64 `json:"jet_stream_direction_250hPa"`
	VerticalVelocity   float64 `json:"vertical_velocity_250hPa"` // m/s
	Temperature500hPa  float64 `json:"temperature_500hPa"`
	Temperature700hPa  float64 `json:"temperature_700hPa"`
	RelHumidity500hPa  float64 `json:"relative_humidity_500hPa"`
	RelHumidity700hPa  float64 `json:"relative_humidity_700hPa"`
	CAPE               float64 `json:"cape"`
	GeopotentialHeight float64 `json:"geopotential_height_250hPa"`
	Synthetic          bool    `json:"synthetic,omitempty"`
}

// ClearSample returns benign weather, used for the fields a provider
// does not report.
func ClearSample() Sample {
	return Sample{Visibility: 10000}
}

///////////////////////////////////////////////////////////////////////////
// SampleSet

const (
	OriginKey      = "origin"
	DestinationKey = "destination"
)

func WaypointKey(i int) string {
	return "waypoint_" + strconv.Itoa(i)
}

type KeyedSample struct {
	Key    string
	Sample Sample
}

// SampleSet is the ordered collection of samples taken along a route. The
// first entry is the origin's sample and the last is the destination's.
type SampleSet []KeyedSample

func (s SampleSet) Get(key string) (Sample, bool) {
	for _, ks := range s {
		if ks.Key == key {
			return ks.Sample, true
		}
	}
	return Sample{}, false
}

// Endpoints returns the first and last samples of the set.
func (s SampleSet) Endpoints() (Sample, Sample) {
	if len(s) == 0 {
		return ClearSample(), ClearSample()
	}
	return s[0].Sample, s[len(s)-1].Sample
}

func (s SampleSet) Samples() []Sample {
	r := make([]Sample, len(s))
	for i, ks := range s {
		r[i] = ks.Sample
	}
	return r
}

// NumSynthetic returns how many samples came from the synthetic
// generator rather than a real provider.
func (s SampleSet) NumSynthetic() int {
	n := 0
	for _, ks := range s {
		if ks.Sample.Synthetic {
			n++
		}
	}
	return n
}

// MarshalJSON encodes the set as a JSON object whose keys keep their
// order.
func (s SampleSet) MarshalJSON() ([]byte, error) {
	om := orderedmap.New()
	for _, ks := range s {
		om.Set(ks.Key, ks.Sample)
	}
	return json.Marshal(om)
}

func (s *SampleSet) UnmarshalJSON(b []byte) error {
	if strings.TrimSpace(string(b)) == "null" {
		*s = nil
		return nil
	}

	om := orderedmap.New()
	if err := json.Unmarshal(b, om); err != nil {
		return err
	}

	set := make(SampleSet, 0, len(om.Keys()))
	for _, k := range om.Keys() {
		v, _ := om.Get(k)
		// Nested objects come back as orderedmap values; round-trip them
		// through JSON to get a Sample.
		vb, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var sample Sample
		if err := json.Unmarshal(vb, &sample); err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
		set = append(set, KeyedSample{Key: k, Sample: sample})
	}
	*s = set
	return nil
}
