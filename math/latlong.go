// math/latlong.go
// Copyright(c) 2025 skyroute contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	"fmt"
	gomath "math"
)

// EarthRadiusKm is the mean radius used for all great-circle computations.
const EarthRadiusKm = 6371

///////////////////////////////////////////////////////////////////////////
// Point2LL

// Point2LL represents a 2D point on the Earth in latitude-longitude.
// Important: 0 (x) is longitude, 1 (y) is latitude
type Point2LL [2]float64

// LL makes a Point2LL from the more common latitude, longitude ordering.
func LL(lat, lon float64) Point2LL {
	return Point2LL{lon, lat}
}

func (p Point2LL) Longitude() float64 {
	return p[0]
}

func (p Point2LL) Latitude() float64 {
	return p[1]
}

func (p Point2LL) IsZero() bool {
	return p[0] == 0 && p[1] == 0
}

// DDString returns the position in decimal degrees, e.g.:
// (39.860901, -75.274864)
func (p Point2LL) DDString() string {
	return fmt.Sprintf("(%f, %f)", p[1], p[0]) // latitude, longitude
}

// Valid reports whether the point is a finite latitude/longitude pair in
// range.
func (p Point2LL) Valid() bool {
	for _, v := range p {
		if gomath.IsNaN(v) || gomath.IsInf(v, 0) {
			return false
		}
	}
	return p[1] >= -90 && p[1] <= 90 && p[0] >= -180 && p[0] <= 180
}

// DistanceKm returns the great-circle distance between two points using
// the haversine formula.
func DistanceKm(a Point2LL, b Point2LL) float64 {
	// https://www.movable-type.co.uk/scripts/latlong.html
	if a == b {
		return 0
	}
	lat1, lon1 := Radians(a[1]), Radians(a[0])
	lat2, lon2 := Radians(b[1]), Radians(b[0])
	dlat, dlon := lat2-lat1, lon2-lon1

	x := Sqr(gomath.Sin(dlat/2)) + gomath.Cos(lat1)*gomath.Cos(lat2)*Sqr(gomath.Sin(dlon/2))
	x = Clamp(x, 0, 1)
	c := 2 * gomath.Atan2(gomath.Sqrt(x), gomath.Sqrt(1-x))
	return EarthRadiusKm * c
}

// Bearing returns the initial great-circle bearing from a to b in
// degrees, in the range [0,360).
func Bearing(a Point2LL, b Point2LL) float64 {
	lat1, lat2 := Radians(a[1]), Radians(b[1])
	dlon := Radians(b[0] - a[0])

	y := gomath.Sin(dlon) * gomath.Cos(lat2)
	x := gomath.Cos(lat1)*gomath.Sin(lat2) - gomath.Sin(lat1)*gomath.Cos(lat2)*gomath.Cos(dlon)
	return NormalizeHeading(Degrees(gomath.Atan2(y, x)))
}

// Destination returns the point reached by travelling distanceKm from p
// along the great circle with the given initial bearing.
func Destination(p Point2LL, bearing float64, distanceKm float64) Point2LL {
	delta := distanceKm / EarthRadiusKm
	theta := Radians(bearing)
	lat1, lon1 := Radians(p[1]), Radians(p[0])

	sinLat2 := gomath.Sin(lat1)*gomath.Cos(delta) + gomath.Cos(lat1)*gomath.Sin(delta)*gomath.Cos(theta)
	lat2 := gomath.Asin(Clamp(sinLat2, -1, 1))
	lon2 := lon1 + gomath.Atan2(gomath.Sin(theta)*gomath.Sin(delta)*gomath.Cos(lat1),
		gomath.Cos(delta)-gomath.Sin(lat1)*gomath.Sin(lat2))

	// Normalize longitude to [-180,180).
	lon := gomath.Mod(Degrees(lon2)+540, 360) - 180
	return Point2LL{lon, Degrees(lat2)}
}

// PositionAlongGreatCircle returns the point fraction of the way from a
// to b, travelling along the initial bearing from a rotated by
// deflectionDeg. With no deflection this lies on the great circle
// between the two points.
func PositionAlongGreatCircle(a, b Point2LL, fraction float64, deflectionDeg float64) Point2LL {
	if fraction <= 0 {
		return a
	}
	if fraction >= 1 && deflectionDeg == 0 {
		return b
	}
	if a == b {
		return a
	}

	if deflectionDeg == 0 {
		// Spherical linear interpolation is exact for points on the
		// great circle and avoids accumulating bearing error.
		lat1, lon1 := Radians(a[1]), Radians(a[0])
		lat2, lon2 := Radians(b[1]), Radians(b[0])
		delta := DistanceKm(a, b) / EarthRadiusKm
		if delta == 0 {
			return a
		}

		sa := gomath.Sin((1-fraction)*delta) / gomath.Sin(delta)
		sb := gomath.Sin(fraction*delta) / gomath.Sin(delta)
		x := sa*gomath.Cos(lat1)*gomath.Cos(lon1) + sb*gomath.Cos(lat2)*gomath.Cos(lon2)
		y := sa*gomath.Cos(lat1)*gomath.Sin(lon1) + sb*gomath.Cos(lat2)*gomath.Sin(lon2)
		z := sa*gomath.Sin(lat1) + sb*gomath.Sin(lat2)

		lat := gomath.Atan2(z, gomath.Sqrt(x*x+y*y))
		lon := gomath.Atan2(y, x)
		return Point2LL{Degrees(lon), Degrees(lat)}
	}

	brg := NormalizeHeading(Bearing(a, b) + deflectionDeg)
	return Destination(a, brg, fraction*DistanceKm(a, b))
}

// BezierPoint evaluates the Bezier curve defined by the given control
// points at parameter t in [0,1] using the Bernstein basis. Coordinates
// are blended directly in latitude/longitude.
func BezierPoint(ctrl []Point2LL, t float64) Point2LL {
	if len(ctrl) == 0 {
		return Point2LL{}
	}
	t = Clamp(t, 0, 1)

	n := len(ctrl) - 1
	var p Point2LL
	for i, c := range ctrl {
		w := Binomial(n, i) * gomath.Pow(t, float64(i)) * gomath.Pow(1-t, float64(n-i))
		p[0] += w * c[0]
		p[1] += w * c[1]
	}
	return p
}
