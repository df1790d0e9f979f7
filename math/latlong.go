// math/latlong.go
// Copyright(c) 2025 flyplan contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	"encoding/json"
	"fmt"
	gomath "math"
	"strconv"
	"strings"
)

const NMPerLatitude = 60

const NauticalMilesToFeet = 6076.12
const FeetToNauticalMiles = 1 / NauticalMilesToFeet

// Point2LL represents a 2D point on the Earth in latitude-longitude.
// Important: 0 (x) is longitude, 1 (y) is latitude.
type Point2LL [2]float32

func (p Point2LL) Longitude() float32 { return p[0] }
func (p Point2LL) Latitude() float32  { return p[1] }

func (p Point2LL) IsZero() bool {
	return p[0] == 0 && p[1] == 0
}

// DDString returns the position in decimal degrees, e.g.:
// (39.860901, -75.274864)
func (p Point2LL) DDString() string {
	return fmt.Sprintf("(%f, %f)", p[1], p[0]) // latitude, longitude
}

// NMDistance2LL returns the great-circle distance in nautical miles
// between two lat-long coordinates.
func NMDistance2LL(a Point2LL, b Point2LL) float32 {
	// https://www.movable-type.co.uk/scripts/latlong.html
	const R = 6371000 // metres
	rad := func(d float64) float64 { return float64(d) / 180 * gomath.Pi }
	lat1, lon1 := rad(float64(a[1])), rad(float64(a[0]))
	lat2, lon2 := rad(float64(b[1])), rad(float64(b[0]))
	dlat, dlon := lat2-lat1, lon2-lon1

	x := Sqr(gomath.Sin(dlat/2)) + gomath.Cos(lat1)*gomath.Cos(lat2)*Sqr(gomath.Sin(dlon/2))
	c := 2 * gomath.Atan2(gomath.Sqrt(x), gomath.Sqrt(1-x))
	dm := R * c // in metres

	return float32(dm * 0.000539957)
}

// LL2NM converts a point expressed in latitude-longitude coordinates to
// nautical mile coordinates; this is useful for reasoning about distances,
// since both axes then have the same measure.
func LL2NM(p Point2LL, nmPerLongitude float32) [2]float32 {
	return [2]float32{p[0] * nmPerLongitude, p[1] * NMPerLatitude}
}

// NM2LL converts a point expressed in nautical mile coordinates to
// lat-long.
func NM2LL(p [2]float32, nmPerLongitude float32) Point2LL {
	return Point2LL{p[0] / nmPerLongitude, p[1] / NMPerLatitude}
}

// NMPerLongitude gives the local scale of a degree of longitude at the
// given point's latitude.
func NMPerLongitude(p Point2LL) float32 {
	return NMPerLatitude * Cos(Radians(p[1]))
}

// Offset2LL returns the point at distance dist along the vector with
// heading hdg from the given point. It assumes a (locally) flat earth.
func Offset2LL(pll Point2LL, hdg float32, dist float32, nmPerLongitude float32) Point2LL {
	p := LL2NM(pll, nmPerLongitude)
	h := Radians(hdg)
	v := [2]float32{Sin(h), Cos(h)}
	p[0] += dist * v[0]
	p[1] += dist * v[1]
	return NM2LL(p, nmPerLongitude)
}

// ParseLatLong parses a position of the form "39.861,-75.275"
// (latitude, longitude in decimal degrees).
func ParseLatLong(s string) (Point2LL, error) {
	f := strings.Split(s, ",")
	if len(f) != 2 {
		return Point2LL{}, fmt.Errorf("%s: invalid latlong string", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(f[0]), 32)
	if err != nil {
		return Point2LL{}, err
	}
	long, err := strconv.ParseFloat(strings.TrimSpace(f[1]), 32)
	if err != nil {
		return Point2LL{}, err
	}
	return Point2LL{float32(long), float32(lat)}, nil
}

// Positions are stored in JSON as "latitude,longitude" strings for
// compactness/friendliness.
func (p Point2LL) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("\"%.8f,%.8f\"", p[1], p[0])), nil
}

func (p *Point2LL) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '[' {
		// Backwards compatibility for arrays of two floats...
		var pt [2]float32
		err := json.Unmarshal(b, &pt)
		if err == nil {
			*p = pt
		}
		return err
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	pt, err := ParseLatLong(s)
	if err == nil {
		*p = pt
	}
	return err
}
