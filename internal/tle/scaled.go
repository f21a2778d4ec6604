package tle

import (
	"fmt"
	"math"
	"strconv"
)

// Scaled is a value in the TLE assumed-decimal-point notation used by the
// second derivative of mean motion and the B* drag term. " 10270-3" reads as
// +0.10270e-3, i.e. Mantissa × 10^(Exponent-5).
type Scaled struct {
	Negative bool
	Mantissa int // 00000-99999
	Exponent int // -9..9
}

const (
	scaledMinMantissa = 10000
	scaledMaxMantissa = 99999
)

// EncodeScaled converts v to the normalized five-digit notation. Zero encodes
// as mantissa 00000 with exponent 0. Magnitudes too small for a one-digit
// exponent encode as zero; magnitudes too large return ErrEncodingOverflow.
func EncodeScaled(v float64) (Scaled, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Scaled{}, ErrEncodingOverflow
	}
	if v == 0 {
		return Scaled{}, nil
	}

	a := math.Abs(v)
	exp := int(math.Floor(math.Log10(a))) + 1
	m := math.Round(a * math.Pow10(5-exp))

	// Log10 is not exact on decade boundaries and rounding can carry into a
	// sixth digit; both leave m one decade off.
	if m < scaledMinMantissa {
		exp--
		m = math.Round(a * math.Pow10(5-exp))
	}
	if m > scaledMaxMantissa {
		exp++
		m = math.Round(a * math.Pow10(5-exp))
	}

	if exp > 9 {
		return Scaled{}, ErrEncodingOverflow
	}
	if exp < -9 {
		return Scaled{}, nil
	}
	return Scaled{Negative: v < 0, Mantissa: int(m), Exponent: exp}, nil
}

// DecodeScaled reconstructs the float value of s.
func DecodeScaled(s Scaled) float64 {
	v := float64(s.Mantissa) * math.Pow10(s.Exponent-5)
	if s.Negative {
		return -v
	}
	return v
}

// Float returns the value of s.
func (s Scaled) Float() float64 {
	return DecodeScaled(s)
}

// String renders the eight-column field: sign (blank for positive), five
// mantissa digits, signed exponent digit.
func (s Scaled) String() string {
	sign := byte(' ')
	if s.Negative {
		sign = '-'
	}
	return fmt.Sprintf("%c%05d%+d", sign, s.Mantissa, s.Exponent)
}

// ParseScaled reads an eight-column scaled field such as " 10270-3" or
// "-11606-4". A leading '+' is accepted as positive.
func ParseScaled(field string) (Scaled, error) {
	if len(field) != 8 {
		return Scaled{}, fmt.Errorf("scaled field %q: want 8 columns, got %d", field, len(field))
	}

	var s Scaled
	switch field[0] {
	case '-':
		s.Negative = true
	case '+', ' ':
	default:
		return Scaled{}, fmt.Errorf("scaled field %q: invalid sign %q", field, field[0])
	}

	m, err := strconv.Atoi(field[1:6])
	if err != nil || m < 0 {
		return Scaled{}, fmt.Errorf("scaled field %q: invalid mantissa", field)
	}
	if field[6] != '+' && field[6] != '-' {
		return Scaled{}, fmt.Errorf("scaled field %q: invalid exponent sign %q", field, field[6])
	}
	e, err := strconv.Atoi(field[6:8])
	if err != nil {
		return Scaled{}, fmt.Errorf("scaled field %q: invalid exponent", field)
	}

	s.Mantissa = m
	s.Exponent = e
	return s, nil
}
