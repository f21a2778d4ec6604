package tle

import (
	"fmt"
	"time"
)

// Designator is the international launch designator: launch year (mod 100),
// launch number within that year, and the piece letters.
type Designator struct {
	Year   int // 0-99
	Number int
	Piece  string
}

// String returns the designator in its compact YYNNNPPP form, e.g. "98067A".
func (d Designator) String() string {
	return fmt.Sprintf("%02d%03d%s", d.Year%100, d.Number, d.Piece)
}

// Record is one satellite's element set as carried by a three-line TLE entry.
// Records are plain values; the codec never mutates one after producing it.
type Record struct {
	Name           string // surrounding whitespace is trimmed on parse and format
	CatalogID      int
	Classification byte
	Designator     Designator

	EpochYear int     // two-digit year
	EpochDay  float64 // day of year, 1-based, with fraction

	MeanMotionDot    float64 // rev/day², first derivative / 2
	MeanMotionDDot   float64 // rev/day³, second derivative / 6
	BStar            float64 // 1/earth radii
	ElementSetNumber int

	Inclination      float64 // degrees
	RAAN             float64 // degrees
	Eccentricity     float64
	ArgPerigee       float64 // degrees
	MeanAnomaly      float64 // degrees
	MeanMotion       float64 // rev/day
	RevolutionNumber int

	// Line1Valid and Line2Valid report whether the embedded checksum digit
	// matched the recomputed one when the record was parsed.
	Line1Valid bool
	Line2Valid bool
}

// Valid reports whether both lines carried a correct checksum.
func (r Record) Valid() bool {
	return r.Line1Valid && r.Line2Valid
}

// Epoch converts the two-digit epoch year and fractional day to a UTC time.
// Year 00-56 → 2000s, 57-99 → 1900s.
func (r Record) Epoch() time.Time {
	year := r.EpochYear % 100
	if year >= 57 {
		year += 1900
	} else {
		year += 2000
	}

	// Start of the year, then add fractional days.
	t := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	// EpochDay is 1-based: day 1 = Jan 1.
	return t.Add(time.Duration((r.EpochDay - 1) * float64(24*time.Hour)))
}
