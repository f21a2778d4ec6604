package filter

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrEmptyDirective = errors.New("empty directive")
	ErrBadCatalogID   = errors.New("invalid catalog id")
	ErrBadDesignator  = errors.New("invalid launch designator")
	ErrBadRange       = errors.New("invalid range")
	ErrUnknownField   = errors.New("unknown field")
)

// DirectiveError reports a filter line that could not be compiled.
type DirectiveError struct {
	Line int
	Text string
	Err  error
}

func (e *DirectiveError) Error() string {
	return fmt.Sprintf("filter line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *DirectiveError) Unwrap() error { return e.Err }

var (
	catalogPattern     = regexp.MustCompile(`^\d{1,5}$`)
	desigPrefixPattern = regexp.MustCompile(`^(?:\d{1,5}|\d{5}[A-Za-z]{1,3})$`)
	designatorPattern  = regexp.MustCompile(`^(\d{2}|\*\*)(?:(\d{3}|\*\*\*)([A-Za-z]{1,3})?)?$`)
	rangePattern       = regexp.MustCompile(`^([A-Za-z]+)\s*\{([^,{}]*),([^,{}]*)\}$`)
)

// Compile reads a filter file, one directive per line. Lines that fail to
// compile are skipped and returned as *DirectiveError warnings; the error
// is set only when r cannot be read.
func Compile(r io.Reader, logger *slog.Logger) (List, []error, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var (
		list     List
		warnings []error
		lineNo   int
	)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lineNo++
		text := strings.TrimRight(sc.Text(), "\r")
		ds, err := ParseDirective(text)
		if err != nil {
			w := &DirectiveError{Line: lineNo, Text: text, Err: err}
			logger.Warn("skipping filter line", "line", lineNo, "error", err)
			warnings = append(warnings, w)
			continue
		}
		list = append(list, ds...)
	}
	if err := sc.Err(); err != nil {
		return nil, warnings, fmt.Errorf("reading filter data: %w", err)
	}

	logger.Debug("filter compiled", "directives", len(list), "skipped", len(warnings))
	return list, warnings, nil
}

// ParseDirective compiles one filter line. Blank and comment lines yield no
// directives. Bare text may yield several directives, see parseBare.
func ParseDirective(line string) ([]Directive, error) {
	line = strings.TrimSpace(line)
	if line == "" || line[0] == '#' {
		return nil, nil
	}

	body := strings.TrimSpace(line[1:])
	switch line[0] {
	case '?':
		if body == "" {
			return nil, ErrEmptyDirective
		}
		return []Directive{NamePrefix{Prefix: body}}, nil
	case '$':
		if !catalogPattern.MatchString(body) {
			return nil, fmt.Errorf("%w: %q", ErrBadCatalogID, body)
		}
		id, _ := strconv.Atoi(body)
		return []Directive{CatalogID{ID: id}}, nil
	case '~':
		d, ok := parseDesignator(body)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrBadDesignator, body)
		}
		return []Directive{d}, nil
	case '%', '&':
		d, err := parseRange(body, line[0] == '&')
		if err != nil {
			return nil, err
		}
		return []Directive{d}, nil
	}
	return parseBare(line), nil
}

// parseBare keeps the classic whitelist meaning of unmarked text: a name
// prefix, a designator prefix when the text could start a designator, and a
// catalog id when the text is all digits.
func parseBare(text string) []Directive {
	ds := []Directive{NamePrefix{Prefix: text}}
	if desigPrefixPattern.MatchString(text) {
		ds = append(ds, DesignatorPrefix{Prefix: strings.ToUpper(text)})
	}
	if catalogPattern.MatchString(text) {
		id, _ := strconv.Atoi(text)
		ds = append(ds, CatalogID{ID: id})
	}
	return ds
}

func parseDesignator(s string) (LaunchDesignator, bool) {
	m := designatorPattern.FindStringSubmatch(s)
	if m == nil {
		return LaunchDesignator{}, false
	}
	d := LaunchDesignator{Year: Wildcard, Number: Wildcard, Piece: strings.ToUpper(m[3])}
	if m[1] != "**" {
		d.Year, _ = strconv.Atoi(m[1])
	}
	if m[2] != "" && m[2] != "***" {
		d.Number, _ = strconv.Atoi(m[2])
	}
	return d, true
}

func parseRange(s string, derived bool) (FieldRange, error) {
	m := rangePattern.FindStringSubmatch(s)
	if m == nil {
		return FieldRange{}, fmt.Errorf("%w: want FIELD{MIN,MAX}, got %q", ErrBadRange, s)
	}
	f, ok := LookupField(m[1], derived)
	if !ok {
		return FieldRange{}, fmt.Errorf("%w: %q", ErrUnknownField, m[1])
	}

	lo, err := parseBound(m[2], math.Inf(-1))
	if err != nil {
		return FieldRange{}, err
	}
	hi, err := parseBound(m[3], math.Inf(1))
	if err != nil {
		return FieldRange{}, err
	}
	if lo > hi {
		return FieldRange{}, fmt.Errorf("%w: min %g exceeds max %g", ErrBadRange, lo, hi)
	}
	return FieldRange{Field: f, Min: lo, Max: hi}, nil
}

func parseBound(s string, open float64) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return open, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0, fmt.Errorf("%w: bound %q is not a number", ErrBadRange, s)
	}
	return v, nil
}
