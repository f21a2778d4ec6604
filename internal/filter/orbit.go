package filter

import (
	"math"

	"github.com/star/tleup/internal/tle"
)

const (
	earthMu       = 3.986004418e14 // m³/s²
	earthRadiusKm = 6371.0
	secondsPerDay = 86400.0
)

// SemiMajorAxisKm returns the semi-major axis implied by a mean motion in
// revolutions per day. Non-positive mean motion yields NaN.
func SemiMajorAxisKm(meanMotion float64) float64 {
	if !(meanMotion > 0) {
		return math.NaN()
	}
	n := meanMotion * 2 * math.Pi / secondsPerDay
	return math.Cbrt(earthMu/(n*n)) / 1000
}

// PeriapsisHeightKm returns the lowest altitude of r's orbit above a
// spherical Earth.
func PeriapsisHeightKm(r tle.Record) float64 {
	return SemiMajorAxisKm(r.MeanMotion)*(1-r.Eccentricity) - earthRadiusKm
}

// ApoapsisHeightKm returns the highest altitude of r's orbit above a
// spherical Earth.
func ApoapsisHeightKm(r tle.Record) float64 {
	return SemiMajorAxisKm(r.MeanMotion)*(1+r.Eccentricity) - earthRadiusKm
}
