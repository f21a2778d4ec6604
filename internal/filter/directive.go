// Package filter selects TLE records with a whitelist of directives: a record
// is kept when it matches at least one directive of any kind.
package filter

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/star/tleup/internal/tle"
)

// Directive is one compiled filter line.
type Directive interface {
	Match(r tle.Record) bool
	// String renders the directive in filter-file syntax.
	String() string
}

// NamePrefix matches records whose name starts with Prefix, ignoring case.
type NamePrefix struct {
	Prefix string
}

func (d NamePrefix) Match(r tle.Record) bool {
	return len(r.Name) >= len(d.Prefix) && strings.EqualFold(r.Name[:len(d.Prefix)], d.Prefix)
}

func (d NamePrefix) String() string { return "?" + d.Prefix }

// CatalogID matches one catalog number exactly.
type CatalogID struct {
	ID int
}

func (d CatalogID) Match(r tle.Record) bool { return r.CatalogID == d.ID }

func (d CatalogID) String() string { return fmt.Sprintf("$%d", d.ID) }

// Wildcard marks an unspecified designator year or number.
const Wildcard = -1

// LaunchDesignator matches every specified part of the launch designator.
// Year and Number use Wildcard when unspecified; Piece is a prefix and the
// empty piece matches any.
type LaunchDesignator struct {
	Year   int
	Number int
	Piece  string
}

func (d LaunchDesignator) Match(r tle.Record) bool {
	if d.Year != Wildcard && r.Designator.Year%100 != d.Year {
		return false
	}
	if d.Number != Wildcard && r.Designator.Number != d.Number {
		return false
	}
	return strings.HasPrefix(strings.ToUpper(r.Designator.Piece), strings.ToUpper(d.Piece))
}

func (d LaunchDesignator) String() string {
	var b strings.Builder
	b.WriteByte('~')
	if d.Year == Wildcard {
		b.WriteString("**")
	} else {
		fmt.Fprintf(&b, "%02d", d.Year)
	}
	if d.Number == Wildcard && d.Piece == "" {
		return b.String()
	}
	if d.Number == Wildcard {
		b.WriteString("***")
	} else {
		fmt.Fprintf(&b, "%03d", d.Number)
	}
	b.WriteString(d.Piece)
	return b.String()
}

// DesignatorPrefix matches records whose YYNNNPPP designator starts with
// Prefix, ignoring case. Only bare filter text compiles to it, so partial
// launch numbers such as "9806" keep selecting every matching launch.
type DesignatorPrefix struct {
	Prefix string
}

func (d DesignatorPrefix) Match(r tle.Record) bool {
	return strings.HasPrefix(strings.ToUpper(r.Designator.String()), strings.ToUpper(d.Prefix))
}

func (d DesignatorPrefix) String() string { return d.Prefix }

// FieldRange matches when Field's value lies in [Min, Max]. An open bound
// is ±Inf. NaN values never match.
type FieldRange struct {
	Field Field
	Min   float64
	Max   float64
}

func (d FieldRange) Match(r tle.Record) bool {
	v := d.Field.Value(r)
	return v >= d.Min && v <= d.Max
}

func (d FieldRange) String() string {
	sigil := "%"
	if d.Field.Derived() {
		sigil = "&"
	}
	return fmt.Sprintf("%s%s{%s,%s}", sigil, d.Field, bound(d.Min), bound(d.Max))
}

func bound(v float64) string {
	if math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// List is a compiled whitelist. The empty List matches nothing.
type List []Directive

// Match reports whether r matches at least one directive.
func (l List) Match(r tle.Record) bool {
	for _, d := range l {
		if d.Match(r) {
			return true
		}
	}
	return false
}

// Select returns the records matching l, in input order.
func Select(records []tle.Record, l List) []tle.Record {
	out := make([]tle.Record, 0, len(records))
	for _, r := range records {
		if l.Match(r) {
			out = append(out, r)
		}
	}
	return out
}
