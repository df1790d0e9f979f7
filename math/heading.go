// math/heading.go
// Copyright(c) 2025 flyplan contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

// Heading2LL returns the heading from the point |from| to the point |to|
// in degrees. The provided points should be in latitude-longitude
// coordinates and the provided magnetic correction is applied to the
// result.
func Heading2LL(from Point2LL, to Point2LL, nmPerLongitude float32, magCorrection float32) float32 {
	v := Point2LL{to[0] - from[0], to[1] - from[1]}

	// atan2() normally measures w.r.t. the +x axis with positive angles
	// counter-clockwise. We want to measure w.r.t. +y with positive angles
	// clockwise. Happily, swapping the order of values passed to
	// atan2()--passing (x,y)--gives what we want.
	angle := Degrees(Atan2(v[0]*nmPerLongitude, v[1]*NMPerLatitude))
	return NormalizeHeading(angle + magCorrection)
}

// HeadingDifference returns the minimum difference between two
// headings. (i.e., the result is always in the range [0,180].)
func HeadingDifference(a float32, b float32) float32 {
	var d float32
	if a > b {
		d = a - b
	} else {
		d = b - a
	}
	if d > 180 {
		d = 360 - d
	}
	return d
}

// NormalizeHeading reduces a heading to [0,360).
func NormalizeHeading(h float32) float32 {
	if h < 0 {
		return 360 - NormalizeHeading(-h)
	}
	return Mod(h, 360)
}

func OppositeHeading(h float32) float32 {
	return NormalizeHeading(h + 180)
}
