package tle

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"
)

const (
	nameWidth = 24
	lineWidth = 69
	crlf      = "\r\n"
)

// Format serializes r into its three-line CRLF-terminated form. Both check
// digits are always recomputed; Line1Valid/Line2Valid are ignored. A field
// that cannot be written in its column returns a *FieldError wrapping
// ErrEncodingOverflow.
func Format(r Record) ([]byte, error) {
	line1, err := formatLine1(r)
	if err != nil {
		return nil, err
	}
	line2, err := formatLine2(r)
	if err != nil {
		return nil, err
	}

	var b bytes.Buffer
	b.Grow(nameWidth + 2*lineWidth + 3*len(crlf))
	b.WriteString(formatName(r.Name))
	b.WriteString(crlf)
	b.WriteString(line1)
	b.WriteString(crlf)
	b.WriteString(line2)
	b.WriteString(crlf)
	return b.Bytes(), nil
}

// Lines returns the two element lines of r without the name or terminators.
func Lines(r Record) (line1, line2 string, err error) {
	if line1, err = formatLine1(r); err != nil {
		return "", "", err
	}
	if line2, err = formatLine2(r); err != nil {
		return "", "", err
	}
	return line1, line2, nil
}

// Encode writes every record to w in order. Records that cannot be serialized
// are skipped and reported in warnings; the returned error is set only when
// writing to w fails.
func Encode(w io.Writer, records []Record) (int, []error, error) {
	var warnings []error
	written := 0
	for _, r := range records {
		data, err := Format(r)
		if err != nil {
			warnings = append(warnings, err)
			continue
		}
		if _, err := w.Write(data); err != nil {
			return written, warnings, fmt.Errorf("writing TLE data: %w", err)
		}
		written++
	}
	return written, warnings, nil
}

// formatName trims surrounding whitespace, then pads or truncates the name to
// the fixed 24-column name line. Non-printable and non-ASCII characters are
// replaced with '?'.
func formatName(name string) string {
	name = strings.TrimSpace(name)
	b := make([]byte, 0, nameWidth)
	for _, c := range name {
		if len(b) == nameWidth {
			break
		}
		if c < 0x20 || c > 0x7e {
			c = '?'
		}
		b = append(b, byte(c))
	}
	return string(b) + strings.Repeat(" ", nameWidth-len(b))
}

func formatLine1(r Record) (string, error) {
	overflow := func(field string, v any) error {
		return &FieldError{CatalogID: r.CatalogID, Field: field, Value: v, Err: ErrEncodingOverflow}
	}

	if r.CatalogID < 0 || r.CatalogID > 99999 {
		return "", overflow("catalogId", r.CatalogID)
	}
	class := r.Classification
	if class == 0 {
		class = 'U'
	}
	if !isAlnum(class) {
		return "", overflow("classification", string(class))
	}

	d := r.Designator
	if d.Year < 0 || d.Year > 99 {
		return "", overflow("designator.year", d.Year)
	}
	if d.Number < 0 || d.Number > 999 {
		return "", overflow("designator.number", d.Number)
	}
	piece := strings.ToUpper(d.Piece)
	if len(piece) > 3 || strings.IndexFunc(piece, func(c rune) bool { return c < 'A' || c > 'Z' }) >= 0 {
		return "", overflow("designator.piece", d.Piece)
	}

	if r.EpochYear < 0 || r.EpochYear > 99 {
		return "", overflow("epochYear", r.EpochYear)
	}
	day, ok := fixed(r.EpochDay, 12, 8)
	if !ok {
		return "", overflow("epochDay", r.EpochDay)
	}

	ndot := math.Round(math.Abs(r.MeanMotionDot) * 1e8)
	if math.IsNaN(ndot) || ndot > 99999999 {
		return "", overflow("meanMotionDot", r.MeanMotionDot)
	}
	ndotSign := byte(' ')
	if r.MeanMotionDot < 0 && ndot > 0 {
		ndotSign = '-'
	}

	nddot, err := EncodeScaled(r.MeanMotionDDot)
	if err != nil {
		return "", overflow("meanMotionDDot", r.MeanMotionDDot)
	}
	bstar, err := EncodeScaled(r.BStar)
	if err != nil {
		return "", overflow("bstarDrag", r.BStar)
	}

	if r.ElementSetNumber < 0 || r.ElementSetNumber > 9999 {
		return "", overflow("elementSetNumber", r.ElementSetNumber)
	}

	body := fmt.Sprintf("1 %05d%c %02d%03d%-3s %02d%s %c.%08d %s %s 0 %04d",
		r.CatalogID, class,
		d.Year, d.Number, piece,
		r.EpochYear, day,
		ndotSign, int64(ndot),
		nddot, bstar,
		r.ElementSetNumber,
	)
	return body + string(rune('0'+Checksum(body))), nil
}

func formatLine2(r Record) (string, error) {
	overflow := func(field string, v any) error {
		return &FieldError{CatalogID: r.CatalogID, Field: field, Value: v, Err: ErrEncodingOverflow}
	}

	if r.CatalogID < 0 || r.CatalogID > 99999 {
		return "", overflow("catalogId", r.CatalogID)
	}

	angles := []struct {
		name string
		v    float64
	}{
		{"inclinationDeg", r.Inclination},
		{"raanDeg", r.RAAN},
		{"argPerigeeDeg", r.ArgPerigee},
		{"meanAnomalyDeg", r.MeanAnomaly},
	}
	var cols [4]string
	for i, a := range angles {
		s, ok := fixed(a.v, 8, 4)
		if !ok {
			return "", overflow(a.name, a.v)
		}
		cols[i] = s
	}

	ecc := math.Round(r.Eccentricity * 1e7)
	if math.IsNaN(ecc) || ecc < 0 || ecc > 9999999 {
		return "", overflow("eccentricity", r.Eccentricity)
	}

	mm, ok := fixed(r.MeanMotion, 11, 8)
	if !ok {
		return "", overflow("meanMotionRevPerDay", r.MeanMotion)
	}
	if r.RevolutionNumber < 0 || r.RevolutionNumber > 99999 {
		return "", overflow("revolutionNumber", r.RevolutionNumber)
	}

	body := fmt.Sprintf("2 %05d %s %s %07d %s %s %s%05d",
		r.CatalogID, cols[0], cols[1], int64(ecc), cols[2], cols[3], mm, r.RevolutionNumber)
	return body + string(rune('0'+Checksum(body))), nil
}

// fixed formats a non-negative v zero-padded to exactly width columns with
// prec decimals, reporting false when it does not fit.
func fixed(v float64, width, prec int) (string, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return "", false
	}
	if v == 0 {
		v = 0 // drop negative zero
	}
	s := fmt.Sprintf("%0*.*f", width, prec, v)
	return s, len(s) == width
}

func isAlnum(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z'
}
