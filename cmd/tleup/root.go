package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/star/tleup/internal/config"
	"github.com/star/tleup/internal/filter"
)

// flags holds raw command-line values; only flags the user set override
// the loaded configuration.
type flags struct {
	configPath  string
	output      string
	userTLEs    []string
	filterFile  string
	noOnline    bool
	all         bool
	list        bool
	verify      bool
	verbose     bool
	quiet       bool
	logFormat   string
	metricsFile string
	sourceURLs  []string
	listingURL  string
	cacheDir    string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var f flags

	root := &cobra.Command{
		Use:   "tleup",
		Short: "Build a filtered TLE list from online and local element sets",
		Long: `tleup downloads current two-line element sets, merges them with
local files, drops duplicate catalog numbers, keeps the objects named in a
filter file and writes the result as a checksummed TLE file.

Examples:
  tleup -f birds.flt -o tles.txt
  tleup -n -u local.txt -a
  tleup list -a`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, &f, stdout, stderr)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&f.configPath, "config", "c", "", "YAML configuration file")
	pf.StringVarP(&f.output, "output", "o", "tles.txt", "output file")
	pf.StringSliceVarP(&f.userTLEs, "user-tles", "u", nil, "local TLE files merged after online data")
	pf.StringVarP(&f.filterFile, "filter", "f", "", "filter file (see 'tleup template')")
	pf.BoolVarP(&f.noOnline, "no-online", "n", false, "do not fetch online data, use only user TLEs")
	pf.BoolVarP(&f.all, "all-objects", "a", false, "disable filtering and keep every object")
	pf.BoolVarP(&f.list, "list", "l", false, "print object names and catalog numbers instead of writing a file")
	pf.BoolVar(&f.verify, "verify", false, "drop records the SGP4 model rejects")
	pf.BoolVarP(&f.verbose, "verbose", "v", false, "log progress messages")
	pf.BoolVarP(&f.quiet, "quiet", "q", false, "log errors only")
	pf.StringVar(&f.logFormat, "log-format", "text", "log format: text or json")
	pf.StringVar(&f.metricsFile, "metrics-file", "", "write run metrics in Prometheus text format to this file")
	pf.StringSliceVar(&f.sourceURLs, "source-url", nil, "fetch these feeds instead of scraping the listing page")
	pf.StringVar(&f.listingURL, "listing-url", "", "catalog listing page to scrape for feeds")
	pf.StringVar(&f.cacheDir, "cache-dir", "", "directory for offline snapshots (empty disables)")
	root.MarkFlagsMutuallyExclusive("verbose", "quiet")

	root.AddCommand(newListCmd(&f, stdout, stderr))
	root.AddCommand(newTemplateCmd(stdout))
	return root
}

func newListCmd(f *flags, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print selected object names and catalog numbers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f.list = true
			return execute(cmd, f, stdout, stderr)
		},
	}
}

func newTemplateCmd(stdout io.Writer) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Write a commented filter file template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" || out == "-" {
				return filter.WriteTemplate(stdout)
			}
			file, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("creating template: %w", err)
			}
			if err := filter.WriteTemplate(file); err != nil {
				file.Close()
				return fmt.Errorf("writing template: %w", err)
			}
			return file.Close()
		},
	}
	cmd.Flags().StringVar(&out, "to", "-", "template destination file ('-' for stdout)")
	return cmd
}

// execute resolves the configuration and performs one run.
func execute(cmd *cobra.Command, f *flags, stdout, stderr io.Writer) error {
	// Config loading logs through a provisional logger until the real
	// level and format are known.
	boot := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg, err := config.Load(f.configPath, boot)
	if err != nil {
		return err
	}
	applyFlags(cmd, f, &cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := newLogger(cfg.Log, stderr)
	if err != nil {
		return err
	}
	return run(cmd.Context(), cfg, logger, stdout)
}

func applyFlags(cmd *cobra.Command, f *flags, cfg *config.Config) {
	changed := cmd.Flags().Changed

	if changed("output") {
		cfg.Output = f.output
	}
	if changed("user-tles") {
		cfg.UserTLEs = f.userTLEs
	}
	if changed("filter") {
		cfg.FilterFile = f.filterFile
	}
	if f.noOnline {
		cfg.Online = false
	}
	if f.all {
		cfg.SelectAll = true
	}
	if f.list {
		cfg.List = true
	}
	if f.verify {
		cfg.Verify = true
	}
	if changed("metrics-file") {
		cfg.MetricsFile = f.metricsFile
	}
	if changed("source-url") {
		cfg.Sources.URLs = f.sourceURLs
	}
	if changed("listing-url") {
		cfg.Sources.ListingURL = f.listingURL
	}
	if changed("cache-dir") {
		cfg.Cache.Dir = f.cacheDir
	}
	if changed("log-format") {
		cfg.Log.Format = f.logFormat
	}
	switch {
	case f.verbose:
		cfg.Log.Level = "debug"
	case f.quiet:
		cfg.Log.Level = "error"
	}
}

func newLogger(c config.Log, w io.Writer) (*slog.Logger, error) {
	level, err := config.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
