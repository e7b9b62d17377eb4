package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Overland-East-Bay/mileage-tracker/internal/adapters/pdfreport"
	"github.com/Overland-East-Bay/mileage-tracker/internal/app/ledger"
	"github.com/Overland-East-Bay/mileage-tracker/internal/platform/backend"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	var (
		start, end string
		format     string
		outDir     string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export trips as CSV or PDF",
		Long: "Writes the trips (optionally restricted to --start/--end) to mileage_<start>_to_<end>.<ext> " +
			"or mileage_all_trips.<ext> in --out. Use --out - to write to stdout.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "csv" && format != "pdf" {
				return fmt.Errorf("format must be csv or pdf, got %q", format)
			}
			s, e, err := parseRange(start, end)
			if err != nil {
				return err
			}
			return opts.withLedger(cmd, func(l *backend.Ledger) error {
				v := l.Service.View(s, e)

				var buf bytes.Buffer
				if format == "pdf" {
					if err := pdfreport.Render(&buf, v, "Mileage Report"); err != nil {
						return err
					}
				} else {
					buf.WriteString(v.CSV())
				}

				if outDir == "-" {
					_, err := cmd.OutOrStdout().Write(buf.Bytes())
					return err
				}
				if err := os.MkdirAll(outDir, 0o755); err != nil {
					return fmt.Errorf("create output dir: %w", err)
				}
				path := filepath.Join(outDir, ledger.ExportFilename(v, format))
				if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
					return fmt.Errorf("write export: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d trips to %s\n", len(v.Trips), path)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "first date of the range (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "last date of the range (YYYY-MM-DD)")
	cmd.Flags().StringVar(&format, "format", "csv", "export format (csv, pdf)")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "output directory, or - for stdout")
	return cmd
}
