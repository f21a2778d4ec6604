package filter

import (
	"bufio"
	"fmt"
	"io"
)

// WriteTemplate writes a fully commented filter file that documents every
// directive form. Uncommenting an example line enables it.
func WriteTemplate(w io.Writer) error {
	bw := bufio.NewWriter(w)
	p := func(format string, args ...any) {
		fmt.Fprintf(bw, format+"\n", args...)
	}

	p("# tleup filter file")
	p("#")
	p("# One directive per line. A record is kept when it matches ANY line.")
	p("# Lines starting with '#' are comments; blank lines are ignored.")
	p("#")
	p("# Name prefix (case-insensitive):")
	p("#?NOAA")
	p("#")
	p("# Catalog number:")
	p("#$25544")
	p("#")
	p("# Launch designator YY[NNN[PPP]]; ** and *** wildcard the year and")
	p("# number, the piece letters match as a prefix:")
	p("#~98067A")
	p("#~18***")
	p("#")
	p("# Range on an element field, both bounds inclusive, either may be empty:")
	p("#%%inclinationDeg{95,99}")
	p("#%%eccentricity{,0.01}")
	p("#")
	p("# Range on a derived quantity in km:")
	p("#&perigee{300,}")
	p("#&apoapsisHeightKm{,2000}")
	p("#")
	p("# Bare text matches a name prefix, a launch designator prefix or a catalog")
	p("# number, whichever applies:")
	p("#ISS")
	p("#")
	p("# Element fields (%%):")
	for _, f := range Fields() {
		if !f.Derived() {
			p("#   %s", f)
		}
	}
	p("# Derived fields (&):")
	for _, f := range Fields() {
		if f.Derived() {
			p("#   %s", f)
		}
	}
	p("#   perigee, apogee (aliases)")

	return bw.Flush()
}
