package tle

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

var (
	line1Pattern = regexp.MustCompile(`^\s*1\s+(\d{1,5})([A-Za-z0-9])\s+` +
		`(\d{2})(\d{3})([A-Z]{0,3})\s+(\d{2})(\s{0,2}\d{1,3}\.\d{8})\s+` +
		`([-+ 0]\.\d{8})\s+([-+ ]\d{5}[-+]\d)\s+([-+ ]\d{5}[-+]\d)\s+` +
		`0\s+(\d{1,4})(\d)\s*$`)

	line2Pattern = regexp.MustCompile(`^\s*2\s+(\d{1,5})\s+` +
		`(\d{1,3}\.\d{4})\s+(\d{1,3}\.\d{4})\s+(\d{1,7})\s+` +
		`(\d{1,3}\.\d{4})\s+(\d{1,3}\.\d{4})\s+` +
		`(\d{1,2}\.\d{8})(\s*\d{1,5})(\d)\s*$`)
)

// maxLineBytes bounds a single physical line; noise lines in operator feeds
// can be long. Longer lines are discarded as noise.
const maxLineBytes = 1 << 20

// Parse reads three-line TLE records from r in order. Malformed or
// inconsistent records are dropped and reported in warnings; checksum
// mismatches are reported but the record is kept with its validity flag
// cleared. The returned error is set only when reading r fails.
func Parse(r io.Reader, logger *slog.Logger) ([]Record, []error, error) {
	s := newScanner(orDiscard(logger))

	br := bufio.NewReader(r)
	n := 0
	for {
		line, tooLong, err := readLine(br)
		if err == io.EOF {
			break
		}
		if err != nil {
			return s.records, s.warnings, fmt.Errorf("reading TLE data: %w", err)
		}
		n++
		if tooLong {
			s.skip(n, line)
			continue
		}
		s.step(n, strings.TrimRight(line, "\r"))
	}
	s.finish(n)

	return s.records, s.warnings, nil
}

// readLine returns the next physical line. A line longer than maxLineBytes is
// consumed to its end and returned truncated with tooLong set.
func readLine(br *bufio.Reader) (line string, tooLong bool, err error) {
	var buf []byte
	partial := false
	for {
		chunk, isPrefix, err := br.ReadLine()
		if err != nil {
			if err == io.EOF && partial {
				return string(buf), tooLong, nil
			}
			return "", false, err
		}
		switch {
		case tooLong:
		case len(buf)+len(chunk) > maxLineBytes:
			tooLong = true
		default:
			buf = append(buf, chunk...)
		}
		if !isPrefix {
			return string(buf), tooLong, nil
		}
		partial = true
	}
}

// scanState is the position of the scanner within one three-line record.
type scanState int

const (
	awaitingName scanState = iota
	awaitingLine1
	awaitingLine2
)

func (s scanState) String() string {
	switch s {
	case awaitingName:
		return "awaiting-name"
	case awaitingLine1:
		return "awaiting-line1"
	case awaitingLine2:
		return "awaiting-line2"
	}
	return "unknown"
}

type scanner struct {
	state    scanState
	current  Record
	start    int // line number of the current record's name line
	records  []Record
	warnings []error
	logger   *slog.Logger
}

func newScanner(logger *slog.Logger) *scanner {
	return &scanner{logger: logger}
}

// step feeds one physical line through the state machine.
func (s *scanner) step(n int, line string) {
	switch s.state {
	case awaitingName:
		s.acceptName(n, line)

	case awaitingLine1:
		m := line1Pattern.FindStringSubmatch(line)
		if m == nil {
			s.abort(n, line, ErrMalformedLine)
			s.acceptName(n, line)
			return
		}
		if err := s.fillLine1(m); err != nil {
			s.abort(n, line, fmt.Errorf("%w: %v", ErrMalformedLine, err))
			return
		}
		s.current.Line1Valid = s.checkLine(n, line)
		s.state = awaitingLine2

	case awaitingLine2:
		m := line2Pattern.FindStringSubmatch(line)
		if m == nil {
			s.abort(n, line, ErrMalformedLine)
			s.acceptName(n, line)
			return
		}
		id, _ := strconv.Atoi(m[1])
		if id != s.current.CatalogID {
			s.abort(n, line, fmt.Errorf("%w: line 1 has %05d, line 2 has %05d", ErrCatalogIDMismatch, s.current.CatalogID, id))
			return
		}
		if err := s.fillLine2(m); err != nil {
			s.abort(n, line, fmt.Errorf("%w: %v", ErrMalformedLine, err))
			return
		}
		s.current.Line2Valid = s.checkLine(n, line)
		s.emit()
	}
}

// skip drops an over-long noise line, abandoning any record in progress.
func (s *scanner) skip(n int, line string) {
	if len(line) > 40 {
		line = line[:40] + "..."
	}
	err := fmt.Errorf("%w: line exceeds %d bytes", ErrMalformedLine, maxLineBytes)
	if s.state != awaitingName {
		s.abort(n, line, err)
		return
	}
	s.warnings = append(s.warnings, &LineError{Line: n, Text: line, Err: err})
	s.logger.Warn("skipping over-long line", "line", n)
}

// finish reports a record left incomplete at end of input.
func (s *scanner) finish(n int) {
	if s.state != awaitingName {
		s.abort(n, s.current.Name, fmt.Errorf("%w: input ended in state %s", ErrMalformedLine, s.state))
	}
}

func (s *scanner) acceptName(n int, line string) {
	name := strings.TrimSpace(line)
	if name == "" {
		return
	}
	s.current = Record{Name: name}
	s.start = n
	s.state = awaitingLine1
}

func (s *scanner) emit() {
	s.logger.Debug("read TLE", "name", s.current.Name, "catalog_id", s.current.CatalogID, "line", s.start)
	s.records = append(s.records, s.current)
	s.current = Record{}
	s.state = awaitingName
}

// abort discards the in-progress record, if any, and resets to awaitingName.
func (s *scanner) abort(n int, line string, err error) {
	w := &LineError{Line: n, Text: line, Err: err}
	s.warnings = append(s.warnings, w)
	s.logger.Warn("discarding partial TLE", "line", n, "state", s.state.String(), "name", s.current.Name, "error", err)
	s.current = Record{}
	s.state = awaitingName
}

// checkLine verifies the trailing check digit, recording a warning on mismatch.
func (s *scanner) checkLine(n int, line string) bool {
	got, want, ok := VerifyChecksum(line)
	if !ok {
		err := fmt.Errorf("%w: computed %d, line carries %d", ErrChecksumMismatch, got, want)
		s.warnings = append(s.warnings, &LineError{Line: n, Text: strings.TrimSpace(line), Err: err})
		s.logger.Warn("checksum did not match", "line", n, "name", s.current.Name, "computed", got, "embedded", want)
	}
	return ok
}

func (s *scanner) fillLine1(m []string) error {
	r := &s.current
	var err error
	if r.CatalogID, err = strconv.Atoi(m[1]); err != nil {
		return fmt.Errorf("catalog id %q", m[1])
	}
	r.Classification = m[2][0]
	r.Designator.Year, _ = strconv.Atoi(m[3])
	r.Designator.Number, _ = strconv.Atoi(m[4])
	r.Designator.Piece = m[5]
	r.EpochYear, _ = strconv.Atoi(m[6])
	if r.EpochDay, err = strconv.ParseFloat(strings.TrimSpace(m[7]), 64); err != nil {
		return fmt.Errorf("epoch day %q", m[7])
	}

	// First derivative: sign column then ".dddddddd".
	ndot, err := strconv.ParseFloat("0"+m[8][1:], 64)
	if err != nil {
		return fmt.Errorf("mean motion derivative %q", m[8])
	}
	if m[8][0] == '-' {
		ndot = -ndot
	}
	r.MeanMotionDot = ndot

	nddot, err := ParseScaled(m[9])
	if err != nil {
		return err
	}
	r.MeanMotionDDot = nddot.Float()
	bstar, err := ParseScaled(m[10])
	if err != nil {
		return err
	}
	r.BStar = bstar.Float()

	r.ElementSetNumber, _ = strconv.Atoi(m[11])
	return nil
}

func (s *scanner) fillLine2(m []string) error {
	r := &s.current
	angles := []*float64{&r.Inclination, &r.RAAN, nil, &r.ArgPerigee, &r.MeanAnomaly, &r.MeanMotion}
	for i, dst := range angles {
		if dst == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[2+i], 64)
		if err != nil {
			return fmt.Errorf("field %q", m[2+i])
		}
		*dst = v
	}

	// Eccentricity carries an implied leading decimal point.
	ecc, err := strconv.ParseFloat("0."+m[4], 64)
	if err != nil {
		return fmt.Errorf("eccentricity %q", m[4])
	}
	r.Eccentricity = ecc

	if r.RevolutionNumber, err = strconv.Atoi(strings.TrimSpace(m[8])); err != nil {
		return fmt.Errorf("revolution number %q", m[8])
	}
	return nil
}

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return logger
}
