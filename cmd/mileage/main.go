package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Overland-East-Bay/mileage-tracker/internal/platform/backend"
	"github.com/Overland-East-Bay/mileage-tracker/internal/platform/config"
	"github.com/Overland-East-Bay/mileage-tracker/internal/platform/logging"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// ledgerOpener loads the ledger for one command invocation.
type ledgerOpener func(ctx context.Context, configPath string, log *zap.Logger) (*backend.Ledger, error)

type rootOptions struct {
	configPath string
	verbose    bool
	open       ledgerOpener
}

func openFromConfig(ctx context.Context, configPath string, log *zap.Logger) (*backend.Ledger, error) {
	cfg, err := config.Load(configPath, os.LookupEnv)
	if err != nil {
		return nil, err
	}
	return backend.OpenLedger(ctx, cfg, log)
}

func newRootCmd(open ledgerOpener) *cobra.Command {
	opts := &rootOptions{open: open}

	cmd := &cobra.Command{
		Use:           "mileage",
		Short:         "Mileage tracker: record trips and export mileage logs",
		Long:          "Records driving trips with resolved round-trip distances and exports them as CSV or PDF mileage logs.",
		SilenceUsage:  true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv("MILEAGE_CONFIG"), "path to YAML config file (env vars override it)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output to stderr")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newAddCmd(opts))
	cmd.AddCommand(newListCmd(opts))
	cmd.AddCommand(newEditCmd(opts))
	cmd.AddCommand(newCountCmd(opts))
	cmd.AddCommand(newDeleteCmd(opts))
	cmd.AddCommand(newTotalCmd(opts))
	cmd.AddCommand(newExportCmd(opts))
	return cmd
}

// withLedger opens the ledger, runs fn and releases the backend.
func (o *rootOptions) withLedger(cmd *cobra.Command, fn func(l *backend.Ledger) error) error {
	level := "warn"
	if o.verbose {
		level = "debug"
	}
	log, err := logging.NewWriter(cmd.ErrOrStderr(), level, logging.FormatConsole)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	l, err := o.open(cmd.Context(), o.configPath, log)
	if err != nil {
		return err
	}
	defer l.Close()
	return fn(l)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mileage %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

func execute(cmd *cobra.Command) int {
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd(openFromConfig)))
}
