// wx/openmeteo.go
// Copyright(c) 2025 skyroute contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package wx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/skyroute/skyroute/math"
)

const DefaultOpenMeteoURL = "https://api.open-meteo.com/v1/forecast"

var openMeteoCurrentVars = []string{
	"temperature_2m", "precipitation", "rain", "showers", "snowfall",
	"cloud_cover", "cloud_cover_high", "weather_code", "visibility",
	"wind_speed_10m", "wind_direction_10m",
}

var openMeteoHourlyVars = []string{
	"wind_speed_250hPa", "wind_direction_250hPa", "vertical_velocity_250hPa",
	"temperature_500hPa", "relative_humidity_500hPa",
	"temperature_700hPa", "relative_humidity_700hPa",
	"cape", "cloud_cover_low", "cloud_cover_mid", "cloud_cover_high",
	"geopotential_height_250hPa",
}

// OpenMeteo fetches current conditions and upper-air data from an
// Open-Meteo compatible forecast endpoint.
type OpenMeteo struct {
	BaseURL string
	Client  *http.Client
}

func NewOpenMeteo(baseURL string) *OpenMeteo {
	if baseURL == "" {
		baseURL = DefaultOpenMeteoURL
	}
	return &OpenMeteo{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type openMeteoResponse struct {
	Elevation float64 `json:"elevation"`
	Current   struct {
		Temperature2m    float64 `json:"temperature_2m"`
		Precipitation    float64 `json:"precipitation"`
		Rain             float64 `json:"rain"`
		Showers          float64 `json:"showers"`
		Snowfall         float64 `json:"snowfall"`
		CloudCover       float64 `json:"cloud_cover"`
		CloudCoverHigh   float64 `json:"cloud_cover_high"`
		WeatherCode      int     `json:"weather_code"`
		Visibility       float64 `json:"visibility"`
		WindSpeed10m     float64 `json:"wind_speed_10m"`
		WindDirection10m float64 `json:"wind_direction_10m"`
	} `json:"current"`
	Hourly struct {
		WindSpeed250       []float64 `json:"wind_speed_250hPa"`
		WindDirection250   []float64 `json:"wind_direction_250hPa"`
		VerticalVelocity   []float64 `json:"vertical_velocity_250hPa"`
		Temperature500     []float64 `json:"temperature_500hPa"`
		RelHumidity500     []float64 `json:"relative_humidity_500hPa"`
		Temperature700     []float64 `json:"temperature_700hPa"`
		RelHumidity700     []float64 `json:"relative_humidity_700hPa"`
		CAPE               []float64 `json:"cape"`
		CloudCoverLow      []float64 `json:"cloud_cover_low"`
		CloudCoverMid      []float64 `json:"cloud_cover_mid"`
		CloudCoverHigh     []float64 `json:"cloud_cover_high"`
		GeopotentialHeight []float64 `json:"geopotential_height_250hPa"`
	} `json:"hourly"`
}

func (o *OpenMeteo) requestURL(p math.Point2LL) string {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(p.Latitude(), 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(p.Longitude(), 'f', 4, 64))
	q.Set("current", strings.Join(openMeteoCurrentVars, ","))
	q.Set("hourly", strings.Join(openMeteoHourlyVars, ","))
	q.Set("forecast_days", "1")
	q.Set("timezone", "UTC")
	return o.BaseURL + "?" + q.Encode()
}

func (o *OpenMeteo) SampleAt(ctx context.Context, p math.Point2LL) (Sample, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.requestURL(p), nil)
	if err != nil {
		return Sample{}, err
	}

	client := o.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Sample{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return Sample{}, fmt.Errorf("%s: HTTP %d: %s", p.DDString(), resp.StatusCode,
			strings.TrimSpace(string(body)))
	}

	var r openMeteoResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return Sample{}, fmt.Errorf("%s: %w: %v", p.DDString(), ErrBadResponse, err)
	}
	return r.sample(), nil
}

func (r *openMeteoResponse) sample() Sample {
	first := func(v []float64) float64 {
		if len(v) == 0 {
			return 0
		}
		return v[0]
	}

	c, h := r.Current, r.Hourly
	s := Sample{
		Temperature2m:      c.Temperature2m,
		Precipitation:      c.Precipitation,
		Rain:               c.Rain,
		Showers:            c.Showers,
		Snowfall:           c.Snowfall,
		CloudCover:         c.CloudCover,
		CloudCoverLow:      first(h.CloudCoverLow),
		CloudCoverMid:      first(h.CloudCoverMid),
		CloudCoverHigh:     c.CloudCoverHigh,
		WeatherCode:        c.WeatherCode,
		Visibility:         c.Visibility,
		WindSpeed10m:       c.WindSpeed10m,
		WindDirection10m:   c.WindDirection10m,
		Elevation:          r.Elevation,
		JetStreamSpeed:     first(h.WindSpeed250),
		JetStreamDirection: first(h.WindDirection250),
		VerticalVelocity:   first(h.VerticalVelocity),
		Temperature500hPa:  first(h.Temperature500),
		Temperature700hPa:  first(h.Temperature700),
		RelHumidity500hPa:  first(h.RelHumidity500),
		RelHumidity700hPa:  first(h.RelHumidity700),
		CAPE:               first(h.CAPE),
		GeopotentialHeight: first(h.GeopotentialHeight),
	}
	if s.CloudCoverHigh == 0 {
		s.CloudCoverHigh = first(h.CloudCoverHigh)
	}
	return s
}
