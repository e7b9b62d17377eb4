package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Overland-East-Bay/mileage-tracker/internal/app/ledger"
	"github.com/Overland-East-Bay/mileage-tracker/internal/domain"
	"github.com/Overland-East-Bay/mileage-tracker/internal/platform/backend"
)

func newAddCmd(opts *rootOptions) *cobra.Command {
	var (
		date  string
		count int
	)

	cmd := &cobra.Command{
		Use:   "add <destination>",
		Short: "Resolve a destination and record a trip",
		Long:  "Resolves the driving distance from home to the destination and records the trip. The date defaults to today.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withLedger(cmd, func(l *backend.Ledger) error {
				t, err := l.Service.SubmitTrip(cmd.Context(), ledger.SubmitTripInput{
					Date:        domain.Date(date),
					Destination: args[0],
					Count:       count,
				})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Added trip %s\n", t.ID)
				printTrip(out, t)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "trip date YYYY-MM-DD (default today)")
	cmd.Flags().IntVar(&count, "count", 1, "number of times the trip was made")
	return cmd
}

func newListCmd(opts *rootOptions) *cobra.Command {
	var start, end string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List trips",
		Long:  "Lists trips in the order they were recorded. --start and --end together restrict the list to an inclusive date range.",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, e, err := parseRange(start, end)
			if err != nil {
				return err
			}
			return opts.withLedger(cmd, func(l *backend.Ledger) error {
				v := l.Service.View(s, e)
				out := cmd.OutOrStdout()
				if len(v.Trips) == 0 {
					fmt.Fprintln(out, "No trips.")
					return nil
				}
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tDATE\tDESTINATION\tROUND TRIP\tCOUNT\tTOTAL\tTOLLS")
				for _, t := range v.Trips {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
						t.ID, t.Date, t.Destination, t.RoundTripMiles, t.Count, t.TotalMiles, ledger.YesNo(t.HasTolls))
				}
				if err := w.Flush(); err != nil {
					return err
				}
				fmt.Fprintf(out, "\nTotal Mileage: %s miles\n", v.Total())
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "first date of the range (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "last date of the range (YYYY-MM-DD)")
	return cmd
}

func newEditCmd(opts *rootOptions) *cobra.Command {
	var (
		date  string
		count int
	)

	cmd := &cobra.Command{
		Use:   "edit <trip-id>",
		Short: "Change a trip's date and count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withLedger(cmd, func(l *backend.Ledger) error {
				t, err := l.Service.UpdateTrip(cmd.Context(), domain.TripID(args[0]), domain.Date(date), count)
				if err != nil {
					return err
				}
				printTrip(cmd.OutOrStdout(), t)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "new trip date YYYY-MM-DD (required)")
	cmd.Flags().IntVar(&count, "count", 0, "new count (required)")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("count")
	return cmd
}

func newCountCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "count <trip-id> <count>",
		Short: "Change how many times a trip was made",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("count must be an integer: %w", err)
			}
			return opts.withLedger(cmd, func(l *backend.Ledger) error {
				t, err := l.Service.UpdateCount(cmd.Context(), domain.TripID(args[0]), n)
				if err != nil {
					return err
				}
				printTrip(cmd.OutOrStdout(), t)
				return nil
			})
		},
	}
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <trip-id>",
		Short: "Delete a trip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withLedger(cmd, func(l *backend.Ledger) error {
				id := domain.TripID(args[0])
				if _, err := l.Service.Get(id); err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "No trip %s.\n", id)
					return nil
				}
				l.Service.DeleteTrip(cmd.Context(), id)
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted trip %s.\n", id)
				return nil
			})
		},
	}
}

func newTotalCmd(opts *rootOptions) *cobra.Command {
	var start, end string

	cmd := &cobra.Command{
		Use:   "total",
		Short: "Print total mileage",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, e, err := parseRange(start, end)
			if err != nil {
				return err
			}
			return opts.withLedger(cmd, func(l *backend.Ledger) error {
				fmt.Fprintln(cmd.OutOrStdout(), l.Service.View(s, e).Total())
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "first date of the range (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "last date of the range (YYYY-MM-DD)")
	return cmd
}

func printTrip(out io.Writer, t domain.Trip) {
	fmt.Fprintf(out, "%s  %s  %s mi x %d = %s mi  tolls: %s\n",
		t.Date, t.Destination, t.RoundTripMiles, t.Count, t.TotalMiles, ledger.YesNo(t.HasTolls))
}

// parseRange validates optional range bounds. Empty bounds stay empty.
func parseRange(start, end string) (domain.Date, domain.Date, error) {
	var out [2]domain.Date
	for i, raw := range []string{start, end} {
		if raw == "" {
			continue
		}
		d, err := domain.ParseDate(raw)
		if err != nil {
			return "", "", err
		}
		out[i] = d
	}
	return out[0], out[1], nil
}
