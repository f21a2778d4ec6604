package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/star/tleup/internal/filter"
	"github.com/star/tleup/internal/interop"
	"github.com/star/tleup/internal/tle"
)

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "tlecheck [file...]",
		Short: "Report checksum, orbit and SGP4 status for every record in TLE files",
		Long: `tlecheck parses TLE files (stdin when none are given) and prints one
line per record: catalog number, name, checksum status of both lines, epoch,
perigee and apogee heights, and whether SGP4 accepts the re-serialized record.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

			var records []tle.Record
			read := func(name string, r io.Reader) error {
				recs, _, err := tle.Parse(r, logger.With("source", name))
				if err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
				records = append(records, recs...)
				return nil
			}

			if len(args) == 0 {
				if err := read("stdin", stdin); err != nil {
					return err
				}
			}
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				if err := read(path, bytes.NewReader(data)); err != nil {
					return err
				}
			}

			bad := report(stdout, records)
			if strict && bad > 0 {
				return fmt.Errorf("%d of %d records failed checks", bad, len(records))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when any record fails a check")
	return cmd
}

// report writes the per-record table and returns how many records failed
// a checksum or the SGP4 check.
func report(w io.Writer, records []tle.Record) int {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tL1\tL2\tEPOCH\tPERIGEE_KM\tAPOGEE_KM\tSGP4")

	bad := 0
	for _, r := range records {
		sgp4 := "ok"
		if err := interop.Check(r); err != nil {
			sgp4 = err.Error()
		}
		if !r.Valid() || sgp4 != "ok" {
			bad++
		}
		fmt.Fprintf(tw, "%05d\t%s\t%s\t%s\t%s\t%.1f\t%.1f\t%s\n",
			r.CatalogID, r.Name,
			okOrBad(r.Line1Valid), okOrBad(r.Line2Valid),
			r.Epoch().Format(time.RFC3339),
			filter.PeriapsisHeightKm(r), filter.ApoapsisHeightKm(r),
			sgp4,
		)
	}
	tw.Flush()

	fmt.Fprintf(w, "\n%d records, %d with problems\n", len(records), bad)
	return bad
}

func okOrBad(ok bool) string {
	if ok {
		return "ok"
	}
	return "BAD"
}
