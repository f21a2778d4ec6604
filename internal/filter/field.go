package filter

import (
	"strings"

	"github.com/star/tleup/internal/tle"
)

// Field names a numeric quantity a FieldRange can test.
type Field int

const (
	FieldCatalogID Field = iota
	FieldEpochYear
	FieldEpochDay
	FieldMeanMotionDot
	FieldMeanMotionDDot
	FieldBStar
	FieldElementSetNumber
	FieldInclination
	FieldRAAN
	FieldArgPerigee
	FieldMeanAnomaly
	FieldEccentricity
	FieldMeanMotion
	FieldRevolutionNumber

	// Derived quantities follow the element fields.
	FieldPeriapsisHeight
	FieldApoapsisHeight
)

var fieldNames = [...]string{
	FieldCatalogID:        "catalogId",
	FieldEpochYear:        "epochYear",
	FieldEpochDay:         "epochDay",
	FieldMeanMotionDot:    "meanMotionDot",
	FieldMeanMotionDDot:   "meanMotionDDot",
	FieldBStar:            "bstarDrag",
	FieldElementSetNumber: "elementSetNumber",
	FieldInclination:      "inclinationDeg",
	FieldRAAN:             "raanDeg",
	FieldArgPerigee:       "argPerigeeDeg",
	FieldMeanAnomaly:      "meanAnomalyDeg",
	FieldEccentricity:     "eccentricity",
	FieldMeanMotion:       "meanMotionRevPerDay",
	FieldRevolutionNumber: "revolutionNumber",
	FieldPeriapsisHeight:  "periapsisHeightKm",
	FieldApoapsisHeight:   "apoapsisHeightKm",
}

var fieldAliases = map[string]Field{
	"perigee": FieldPeriapsisHeight,
	"apogee":  FieldApoapsisHeight,
}

func (f Field) String() string {
	if f < 0 || int(f) >= len(fieldNames) {
		return "unknown"
	}
	return fieldNames[f]
}

// Derived reports whether f is computed from the elements rather than
// stored in the record.
func (f Field) Derived() bool {
	return f >= FieldPeriapsisHeight
}

// Value extracts f from r.
func (f Field) Value(r tle.Record) float64 {
	switch f {
	case FieldCatalogID:
		return float64(r.CatalogID)
	case FieldEpochYear:
		return float64(r.EpochYear)
	case FieldEpochDay:
		return r.EpochDay
	case FieldMeanMotionDot:
		return r.MeanMotionDot
	case FieldMeanMotionDDot:
		return r.MeanMotionDDot
	case FieldBStar:
		return r.BStar
	case FieldElementSetNumber:
		return float64(r.ElementSetNumber)
	case FieldInclination:
		return r.Inclination
	case FieldRAAN:
		return r.RAAN
	case FieldArgPerigee:
		return r.ArgPerigee
	case FieldMeanAnomaly:
		return r.MeanAnomaly
	case FieldEccentricity:
		return r.Eccentricity
	case FieldMeanMotion:
		return r.MeanMotion
	case FieldRevolutionNumber:
		return float64(r.RevolutionNumber)
	case FieldPeriapsisHeight:
		return PeriapsisHeightKm(r)
	case FieldApoapsisHeight:
		return ApoapsisHeightKm(r)
	}
	panic("filter: unknown field " + f.String())
}

// LookupField resolves a field name case-insensitively. derived selects
// between the element namespace (%) and the derived namespace (&).
func LookupField(name string, derived bool) (Field, bool) {
	if f, ok := fieldAliases[strings.ToLower(name)]; ok {
		return f, derived
	}
	for i, n := range fieldNames {
		if strings.EqualFold(n, name) {
			f := Field(i)
			return f, f.Derived() == derived
		}
	}
	return 0, false
}

// Fields lists every field name, element fields first.
func Fields() []Field {
	out := make([]Field, len(fieldNames))
	for i := range out {
		out[i] = Field(i)
	}
	return out
}
