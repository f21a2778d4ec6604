// Package interop checks that emitted element sets are accepted by a
// downstream SGP4 propagator.
package interop

import (
	"fmt"
	"math"
	"strings"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/star/tleup/internal/tle"
)

// minRadiusKm rejects propagated positions inside the Earth.
const minRadiusKm = 6000.0

// CheckSGP4 initializes the SGP4 model from two element lines and reports
// whether it accepted them.
//
// The lines are pre-validated because go-satellite calls log.Fatal on
// malformed input.
func CheckSGP4(line1, line2 string, catalogID int) error {
	_, err := initSat(line1, line2, catalogID)
	return err
}

// Check serializes r, initializes SGP4 from the result and propagates to
// the record's epoch.
func Check(r tle.Record) error {
	line1, line2, err := tle.Lines(r)
	if err != nil {
		return err
	}
	sat, err := initSat(line1, line2, r.CatalogID)
	if err != nil {
		return err
	}

	at := r.Epoch()
	pos, _ := satellite.Propagate(sat, at.Year(), int(at.Month()), at.Day(), at.Hour(), at.Minute(), at.Second())
	if math.IsNaN(pos.X) || math.IsNaN(pos.Y) || math.IsNaN(pos.Z) ||
		math.IsInf(pos.X, 0) || math.IsInf(pos.Y, 0) || math.IsInf(pos.Z, 0) {
		return fmt.Errorf("sgp4 propagation failed for catalog %d: output is NaN/Inf", r.CatalogID)
	}
	if mag := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z); mag < minRadiusKm {
		return fmt.Errorf("sgp4 propagation failed for catalog %d: position magnitude %.1f km below surface", r.CatalogID, mag)
	}
	return nil
}

func initSat(line1, line2 string, catalogID int) (satellite.Satellite, error) {
	if err := validateLines(line1, line2); err != nil {
		return satellite.Satellite{}, fmt.Errorf("invalid TLE for catalog %d: %w", catalogID, err)
	}

	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS84)
	if sat.Error != 0 {
		return sat, fmt.Errorf("sgp4 init failed for catalog %d: code=%d %s", catalogID, sat.Error, sat.ErrorStr)
	}
	return sat, nil
}

func validateLines(line1, line2 string) error {
	line1 = strings.TrimSpace(line1)
	line2 = strings.TrimSpace(line2)

	if len(line1) != 69 {
		return fmt.Errorf("line1 length %d, expected 69", len(line1))
	}
	if len(line2) != 69 {
		return fmt.Errorf("line2 length %d, expected 69", len(line2))
	}
	if line1[0] != '1' {
		return fmt.Errorf("line1 must start with '1', got '%c'", line1[0])
	}
	if line2[0] != '2' {
		return fmt.Errorf("line2 must start with '2', got '%c'", line2[0])
	}
	if _, _, ok := tle.VerifyChecksum(line1); !ok {
		return fmt.Errorf("line1: %w", tle.ErrChecksumMismatch)
	}
	if _, _, ok := tle.VerifyChecksum(line2); !ok {
		return fmt.Errorf("line2: %w", tle.ErrChecksumMismatch)
	}
	return nil
}
