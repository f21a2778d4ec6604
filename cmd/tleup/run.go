package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/star/tleup/internal/config"
	"github.com/star/tleup/internal/filter"
	"github.com/star/tleup/internal/metrics"
	"github.com/star/tleup/internal/pipeline"
	"github.com/star/tleup/internal/tle"
)

// run performs one batch: gather sources, parse, merge/dedupe/select, then
// list or write the result.
func run(ctx context.Context, cfg config.Config, logger *slog.Logger, stdout io.Writer) error {
	var sources []pipeline.Source

	if cfg.Online {
		sources = append(sources, onlineSources(ctx, cfg, logger)...)
	} else {
		logger.Debug("online retrieval disabled")
	}

	for _, path := range cfg.UserTLEs {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Error("skipping user TLE file", "path", path, "error", err)
			continue
		}
		logger.Debug("read user TLE file", "path", path, "bytes", len(data))
		sources = append(sources, pipeline.Source{Name: path, Kind: "user", Data: data})
	}

	parsed, parseWarnings := pipeline.ParseSources(sources, logger)

	list, selectAll, err := loadFilter(cfg, logger)
	if err != nil {
		return err
	}

	res := pipeline.Run(parsed, list, pipeline.Options{
		SelectAll: selectAll,
		Verify:    cfg.Verify,
		Logger:    logger,
	})
	metrics.AddWarnings(res.Warnings)
	logger.Info("run complete",
		"sources", len(sources),
		"parse_warnings", len(parseWarnings),
		"pipeline_warnings", len(res.Warnings),
		"selected", len(res.Records),
	)

	if cfg.List {
		for _, r := range res.Records {
			fmt.Fprintf(stdout, "%q: %d\n", r.Name, r.CatalogID)
		}
	} else if err := writeOutput(cfg.Output, res.Records, logger); err != nil {
		return err
	}

	metrics.MarkRun(time.Now())
	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Error("writing metrics file", "path", cfg.MetricsFile, "error", err)
		}
	}
	return nil
}

// onlineSources downloads the configured feeds. When nothing could be
// downloaded it falls back to the newest cached snapshot; a successful
// download refreshes the cache.
func onlineSources(ctx context.Context, cfg config.Config, logger *slog.Logger) []pipeline.Source {
	fetcher := tle.NewFetcher(tle.FetchConfig{
		Timeout:      cfg.Sources.Timeout,
		MaxBodyBytes: cfg.Sources.MaxBodyBytes,
		Workers:      cfg.Sources.Workers,
	}, logger)

	start := time.Now()
	var feeds []tle.Feed
	if len(cfg.Sources.URLs) > 0 {
		feeds = fetcher.FetchAll(ctx, cfg.Sources.URLs)
	} else {
		var err error
		feeds, err = fetcher.FetchListing(ctx, cfg.Sources.ListingURL)
		if err != nil {
			logger.Error("fetching catalog listing failed", "error", err)
		}
	}

	var (
		sources  []pipeline.Source
		snapshot bytes.Buffer
	)
	for _, f := range feeds {
		metrics.ObserveFetch(f.Duration, len(f.Data), f.Err)
		if f.Err != nil {
			continue
		}
		sources = append(sources, pipeline.Source{Name: f.URL, Kind: "online", Data: f.Data})
		snapshot.Write(f.Data)
		snapshot.WriteByte('\n')
	}
	logger.Info("online retrieval done", "feeds", len(feeds), "ok", len(sources), "duration_ms", time.Since(start).Milliseconds())

	if cfg.Cache.Dir == "" {
		return sources
	}
	cache := tle.NewCache(cfg.Cache.Dir, cfg.Cache.MaxFiles)

	if len(sources) > 0 {
		if err := cache.Write(snapshot.Bytes(), time.Now()); err != nil {
			logger.Warn("caching online snapshot failed", "dir", cache.Dir(), "error", err)
		}
		return sources
	}

	data, ts, err := cache.LoadLatest(cfg.Cache.MaxAge, time.Now())
	if err != nil {
		logger.Error("no online data and no usable cache", "dir", cache.Dir(), "error", err)
		return nil
	}
	logger.Warn("using cached TLE snapshot", "cached_at", ts.Format(time.RFC3339))
	return []pipeline.Source{{Name: "cache", Kind: "cache", Data: data}}
}

// loadFilter applies the selection policy: --all bypasses filtering, no
// filter file passes everything with a warning, and a filter file selects
// exactly what its directives match.
func loadFilter(cfg config.Config, logger *slog.Logger) (filter.List, bool, error) {
	if cfg.SelectAll {
		logger.Debug("filtering disabled by request")
		return nil, true, nil
	}
	if cfg.FilterFile == "" {
		logger.Warn("no filter file given, passing all objects through")
		return nil, true, nil
	}

	file, err := os.Open(cfg.FilterFile)
	if err != nil {
		return nil, false, fmt.Errorf("opening filter file: %w", err)
	}
	defer file.Close()

	list, warnings, err := filter.Compile(file, logger)
	if err != nil {
		return nil, false, err
	}
	metrics.AddWarnings(warnings)
	if len(list) == 0 {
		logger.Warn("filter file has no directives, nothing will be selected", "path", cfg.FilterFile)
	}
	return list, false, nil
}

// writeOutput serializes records to path via a temporary file so a failed
// run never leaves a truncated output behind.
func writeOutput(path string, records []tle.Record, logger *slog.Logger) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tleup_*.tmp")
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, warnings, err := tle.Encode(tmp, records)
	if err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return fmt.Errorf("writing output file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing output file: %w", err)
	}
	for _, w := range warnings {
		var fe *tle.FieldError
		if errors.As(w, &fe) {
			logger.Warn("record not written", "catalog_id", fe.CatalogID, "field", fe.Field, "error", w)
		}
	}
	metrics.AddWarnings(warnings)
	metrics.AddWritten(n)

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("publishing output file: %w", err)
	}
	logger.Info("wrote TLE file", "path", path, "records", n, "skipped", len(warnings))
	return nil
}
