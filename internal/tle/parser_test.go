package tle

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"
)

var testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

// Reference ISS element set with valid checksums, negative first derivative
// and negative B*.
const (
	issName  = "ISS (ZARYA)"
	issLine1 = "1 25544U 98067A   08264.51782528 -.00002182  00000-0 -11606-4 0  2927"
	issLine2 = "2 25544  51.6416 247.4627 0006703 130.5360 325.0288 15.72125391563537"
)

// HIBER-1, a real element set with a two-letter launch piece.
const (
	hiberName  = "HIBER-1"
	hiberLine1 = "1 43744U 18096AB  19115.19815699  .00002003  00000-0  78676-4 0  9994"
	hiberLine2 = "2 43744  97.4641 185.2907 0018688 163.4737 196.7173 15.26755683 22421"
)

func feed(lines ...string) *strings.Reader {
	return strings.NewReader(strings.Join(lines, "\n") + "\n")
}

func TestParseFields(t *testing.T) {
	records, warnings, err := Parse(feed(issName, issLine1, issLine2), testLogger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	r := records[0]
	checks := []struct {
		name      string
		got, want float64
	}{
		{"EpochDay", r.EpochDay, 264.51782528},
		{"MeanMotionDot", r.MeanMotionDot, -0.00002182},
		{"MeanMotionDDot", r.MeanMotionDDot, 0},
		{"BStar", r.BStar, -0.11606e-4},
		{"Inclination", r.Inclination, 51.6416},
		{"RAAN", r.RAAN, 247.4627},
		{"Eccentricity", r.Eccentricity, 0.0006703},
		{"ArgPerigee", r.ArgPerigee, 130.5360},
		{"MeanAnomaly", r.MeanAnomaly, 325.0288},
		{"MeanMotion", r.MeanMotion, 15.72125391},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > 1e-12 {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}

	if r.Name != issName {
		t.Errorf("Name = %q, want %q", r.Name, issName)
	}
	if r.CatalogID != 25544 {
		t.Errorf("CatalogID = %d, want 25544", r.CatalogID)
	}
	if r.Classification != 'U' {
		t.Errorf("Classification = %q, want 'U'", r.Classification)
	}
	if r.Designator != (Designator{Year: 98, Number: 67, Piece: "A"}) {
		t.Errorf("Designator = %+v", r.Designator)
	}
	if r.EpochYear != 8 {
		t.Errorf("EpochYear = %d, want 8", r.EpochYear)
	}
	if r.ElementSetNumber != 292 {
		t.Errorf("ElementSetNumber = %d, want 292", r.ElementSetNumber)
	}
	if r.RevolutionNumber != 56353 {
		t.Errorf("RevolutionNumber = %d, want 56353", r.RevolutionNumber)
	}
	if !r.Line1Valid || !r.Line2Valid {
		t.Errorf("validity = %v/%v, want true/true", r.Line1Valid, r.Line2Valid)
	}
}

// TestParseResync verifies that a noise line between two records costs only
// a warning, not either record.
func TestParseResync(t *testing.T) {
	records, warnings, err := Parse(feed(
		issName, issLine1, issLine2,
		"<<< garbage from the feed >>>",
		hiberName, hiberLine1, hiberLine2,
	), testLogger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].CatalogID != 25544 || records[1].CatalogID != 43744 {
		t.Errorf("unexpected order: %d, %d", records[0].CatalogID, records[1].CatalogID)
	}
	if records[1].Name != hiberName {
		t.Errorf("second name = %q, want %q", records[1].Name, hiberName)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d: %v", len(warnings), warnings)
	}
	if !errors.Is(warnings[0], ErrMalformedLine) {
		t.Errorf("warning = %v, want ErrMalformedLine", warnings[0])
	}
	var le *LineError
	if !errors.As(warnings[0], &le) || le.Line != 5 {
		t.Errorf("warning line = %+v, want line 5", le)
	}
}

func TestParseCatalogIDMismatch(t *testing.T) {
	badLine2 := strings.Replace(issLine2, "25544", "99999", 1)
	records, warnings, err := Parse(feed(issName, issLine1, badLine2), testLogger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected 0 records, got %d", len(records))
	}
	if len(warnings) != 1 || !errors.Is(warnings[0], ErrCatalogIDMismatch) {
		t.Fatalf("warnings = %v, want one ErrCatalogIDMismatch", warnings)
	}
}

// TestParseCatalogIDMismatchResumes verifies the scanner recovers after a
// rejected pair.
func TestParseCatalogIDMismatchResumes(t *testing.T) {
	badLine2 := strings.Replace(issLine2, "25544", "99999", 1)
	records, _, err := Parse(feed(issName, issLine1, badLine2, hiberName, hiberLine1, hiberLine2), testLogger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].CatalogID != 43744 {
		t.Fatalf("records = %+v, want only 43744", records)
	}
}

func TestParseChecksumMismatch(t *testing.T) {
	bad := issLine1[:68] + "0"
	records, warnings, err := Parse(feed(issName, bad, issLine2), testLogger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected record to be kept, got %d", len(records))
	}
	if records[0].Line1Valid {
		t.Error("Line1Valid = true, want false")
	}
	if !records[0].Line2Valid {
		t.Error("Line2Valid = false, want true")
	}
	if len(warnings) != 1 || !errors.Is(warnings[0], ErrChecksumMismatch) {
		t.Fatalf("warnings = %v, want one ErrChecksumMismatch", warnings)
	}
}

func TestParseCRLFAndBlankLines(t *testing.T) {
	data := "\r\n" + issName + "\r\n" + issLine1 + "\r\n" + issLine2 + "\r\n\r\n" +
		hiberName + "\r\n" + hiberLine1 + "\r\n" + hiberLine2 + "\r\n"
	records, warnings, err := Parse(strings.NewReader(data), testLogger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
}

func TestParseTruncatedRecord(t *testing.T) {
	records, warnings, err := Parse(feed(issName, issLine1, issLine2, hiberName, hiberLine1), testLogger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if len(warnings) != 1 || !errors.Is(warnings[0], ErrMalformedLine) {
		t.Fatalf("warnings = %v, want one ErrMalformedLine", warnings)
	}
}

// TestParseLineTwoWithoutLineOne verifies that an out-of-order line aborts
// the record and is then taken as the next name.
func TestParseLineTwoWithoutLineOne(t *testing.T) {
	records, warnings, err := Parse(feed(issName, issLine2, hiberLine1, hiberLine2), testLogger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// issLine2 becomes a name, hiberLine1 follows it, hiberLine2 completes.
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Name != issLine2 {
		t.Errorf("Name = %q, want the out-of-order line", records[0].Name)
	}
	if len(warnings) != 1 {
		t.Errorf("expected 1 warning, got %d", len(warnings))
	}
}

func TestParseNilLogger(t *testing.T) {
	records, _, err := Parse(feed(issName, issLine1, issLine2), nil)
	if err != nil || len(records) != 1 {
		t.Fatalf("Parse with nil logger = %d records, %v", len(records), err)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("disk on fire")
}

func TestParseReadError(t *testing.T) {
	_, _, err := Parse(failingReader{}, testLogger)
	if err == nil {
		t.Fatal("expected read error, got nil")
	}
	if !strings.Contains(err.Error(), "reading TLE data") {
		t.Errorf("error = %v", err)
	}
}

func TestScanStateString(t *testing.T) {
	for state, want := range map[scanState]string{
		awaitingName:  "awaiting-name",
		awaitingLine1: "awaiting-line1",
		awaitingLine2: "awaiting-line2",
		scanState(9):  "unknown",
	} {
		if got := state.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", state, got, want)
		}
	}
}

func TestParseSkipsOverLongLine(t *testing.T) {
	noise := strings.Repeat("x", maxLineBytes+100)
	records, warnings, err := Parse(feed(
		noise,
		issName, issLine1, issLine2,
		hiberName, hiberLine1, noise, hiberLine2,
		hiberName, hiberLine1, hiberLine2,
	), testLogger)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(records) != 2 || records[0].CatalogID != 25544 || records[1].CatalogID != 43744 {
		t.Fatalf("records = %+v", records)
	}
	// The over-long name-position line, the interrupted HIBER-1, and the
	// orphaned line 2 that follows it.
	if len(warnings) != 3 {
		t.Fatalf("warnings = %v, want 3", warnings)
	}
	var le *LineError
	if !errors.As(warnings[0], &le) || le.Line != 1 || !errors.Is(le, ErrMalformedLine) {
		t.Fatalf("first warning = %v", warnings[0])
	}
	if len(le.Text) > 50 {
		t.Errorf("warning text not truncated: %d bytes", len(le.Text))
	}
}
