package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/star/tleup/internal/filter"
	"github.com/star/tleup/internal/tle"
)

var registry = prometheus.NewRegistry()

var (
	recordsParsedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tleup_records_parsed_total",
			Help: "Total number of TLE records parsed, by source kind.",
		},
		[]string{"source"},
	)

	warningsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tleup_warnings_total",
			Help: "Total number of non-fatal warnings, by kind.",
		},
		[]string{"kind"},
	)

	duplicatesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tleup_duplicates_dropped_total",
		Help: "Total number of records dropped as duplicate catalog IDs.",
	})

	selectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tleup_records_selected_total",
		Help: "Total number of records that passed the filter.",
	})

	writtenTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tleup_records_written_total",
		Help: "Total number of records serialized to the output.",
	})

	verifyFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tleup_sgp4_verify_failures_total",
		Help: "Total number of records rejected by the SGP4 acceptance check.",
	})

	fetchDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tleup_fetch_duration_seconds",
			Help:    "Remote feed download duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"result"},
	)

	fetchBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tleup_fetch_bytes_total",
		Help: "Total bytes downloaded from remote feeds.",
	})

	lastRunTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tleup_last_run_timestamp_seconds",
		Help: "Unix time of the last completed run.",
	})
)

func init() {
	registry.MustRegister(recordsParsedTotal)
	registry.MustRegister(warningsTotal)
	registry.MustRegister(duplicatesTotal)
	registry.MustRegister(selectedTotal)
	registry.MustRegister(writtenTotal)
	registry.MustRegister(verifyFailuresTotal)
	registry.MustRegister(fetchDurationSeconds)
	registry.MustRegister(fetchBytesTotal)
	registry.MustRegister(lastRunTimestamp)
}

// Gatherer exposes the run metrics.
func Gatherer() prometheus.Gatherer {
	return registry
}

// WriteTextfile writes all run metrics to path in the text exposition
// format, for pickup by a node exporter textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, registry)
}

// normalizeSource bounds the source label to a fixed set.
func normalizeSource(source string) string {
	switch source {
	case "online", "cache", "user":
		return source
	}
	return "other"
}

// warningKind maps a warning to a fixed label so arbitrary error text
// never becomes a label value.
func warningKind(err error) string {
	var de *filter.DirectiveError
	switch {
	case errors.Is(err, tle.ErrChecksumMismatch):
		return "checksum_mismatch"
	case errors.Is(err, tle.ErrCatalogIDMismatch):
		return "catalog_id_mismatch"
	case errors.Is(err, tle.ErrMalformedLine):
		return "malformed_line"
	case errors.Is(err, tle.ErrEncodingOverflow):
		return "encoding_overflow"
	case errors.As(err, &de):
		return "filter_directive"
	}
	return "other"
}

// AddParsed records n records parsed from a source kind.
func AddParsed(source string, n int) {
	recordsParsedTotal.WithLabelValues(normalizeSource(source)).Add(float64(n))
}

// AddWarnings counts each warning under its kind.
func AddWarnings(warnings []error) {
	for _, w := range warnings {
		warningsTotal.WithLabelValues(warningKind(w)).Inc()
	}
}

// AddDuplicates records n dropped duplicates.
func AddDuplicates(n int) {
	duplicatesTotal.Add(float64(n))
}

// AddSelected records n records passing the filter.
func AddSelected(n int) {
	selectedTotal.Add(float64(n))
}

// AddWritten records n records serialized to the output.
func AddWritten(n int) {
	writtenTotal.Add(float64(n))
}

// AddVerifyFailures records n SGP4 rejections.
func AddVerifyFailures(n int) {
	verifyFailuresTotal.Add(float64(n))
}

// ObserveFetch records one download.
func ObserveFetch(d time.Duration, bytes int, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	fetchDurationSeconds.WithLabelValues(result).Observe(d.Seconds())
	fetchBytesTotal.Add(float64(bytes))
}

// MarkRun stamps the completion time of a run.
func MarkRun(t time.Time) {
	lastRunTimestamp.Set(float64(t.Unix()))
}
