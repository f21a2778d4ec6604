// Package pipeline turns parsed feeds into the final record set: merge in
// source order, drop later duplicate catalog IDs, then apply the filter.
package pipeline

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"

	"github.com/star/tleup/internal/filter"
	"github.com/star/tleup/internal/interop"
	"github.com/star/tleup/internal/metrics"
	"github.com/star/tleup/internal/tle"
)

// Source is one raw input feed.
type Source struct {
	Name string // URL or path, for logs
	Kind string // "online", "cache" or "user"
	Data []byte
}

// Options control a Run.
type Options struct {
	// SelectAll bypasses the filter.
	SelectAll bool
	// Verify drops records the SGP4 model refuses to initialize.
	Verify bool
	Logger *slog.Logger
}

// Result is the outcome of a Run.
type Result struct {
	Records        []tle.Record
	Merged         int
	Duplicates     int
	Selected       int
	VerifyFailures int
	Warnings       []error
}

// Merge concatenates sources in order.
func Merge(sources ...[]tle.Record) []tle.Record {
	n := 0
	for _, s := range sources {
		n += len(s)
	}
	out := make([]tle.Record, 0, n)
	for _, s := range sources {
		out = append(out, s...)
	}
	return out
}

// Dedupe keeps the first record for each catalog ID, preserving order, and
// returns how many later duplicates were dropped.
func Dedupe(records []tle.Record) ([]tle.Record, int) {
	seen := make(map[int]struct{}, len(records))
	out := make([]tle.Record, 0, len(records))
	for _, r := range records {
		if _, dup := seen[r.CatalogID]; dup {
			continue
		}
		seen[r.CatalogID] = struct{}{}
		out = append(out, r)
	}
	return out, len(records) - len(out)
}

// ParseSources parses every source in order. A source that cannot be read
// is skipped and reported in the returned warnings along with the per-line
// warnings of the others.
func ParseSources(sources []Source, logger *slog.Logger) ([][]tle.Record, []error) {
	logger = orDiscard(logger)

	parsed := make([][]tle.Record, 0, len(sources))
	var warnings []error
	for _, src := range sources {
		records, ws, err := tle.Parse(bytes.NewReader(src.Data), logger.With("source", src.Name))
		metrics.AddWarnings(ws)
		warnings = append(warnings, ws...)
		if err != nil {
			logger.Warn("skipping unreadable source", "source", src.Name, "error", err)
			warnings = append(warnings, fmt.Errorf("source %s: %w", src.Name, err))
			continue
		}
		metrics.AddParsed(src.Kind, len(records))
		logger.Debug("parsed source", "source", src.Name, "kind", src.Kind, "records", len(records), "warnings", len(ws))
		parsed = append(parsed, records)
	}
	return parsed, warnings
}

// Run applies merge, dedupe and select in that fixed order, so a later
// duplicate can never bring back a record the filter excluded.
func Run(sources [][]tle.Record, list filter.List, opts Options) Result {
	logger := orDiscard(opts.Logger)

	merged := Merge(sources...)
	unique, dups := Dedupe(merged)
	if dups > 0 {
		logger.Debug("dropped duplicate catalog IDs", "count", dups)
	}

	selected := unique
	if !opts.SelectAll {
		selected = filter.Select(unique, list)
	}

	res := Result{
		Merged:     len(merged),
		Duplicates: dups,
		Selected:   len(selected),
	}

	if opts.Verify {
		kept := make([]tle.Record, 0, len(selected))
		for _, r := range selected {
			if err := interop.Check(r); err != nil {
				logger.Warn("record rejected by SGP4", "catalog_id", r.CatalogID, "name", r.Name, "error", err)
				res.Warnings = append(res.Warnings, err)
				res.VerifyFailures++
				continue
			}
			kept = append(kept, r)
		}
		selected = kept
	}
	res.Records = selected

	metrics.AddDuplicates(res.Duplicates)
	metrics.AddSelected(res.Selected)
	metrics.AddVerifyFailures(res.VerifyFailures)

	logger.Info("pipeline complete",
		"merged", res.Merged,
		"duplicates", res.Duplicates,
		"selected", res.Selected,
		"verify_failures", res.VerifyFailures,
		"filter_bypassed", opts.SelectAll,
	)
	return res
}

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return logger
}
