package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/rl1809/stock-reconciler/internal/app"
	"github.com/rl1809/stock-reconciler/internal/config"
	"github.com/rl1809/stock-reconciler/internal/port"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format string // "json" | "text"
	DB     string // overrides WAREHOUSE_SQLITE_PATH
}

var ValidFormats = []string{"text", "json"}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "warehouse",
		Short: "Reconcile purchase orders against warehouse stock",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "path to the SQLite database (overrides config)")

	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewStockCommand(opts))
	cmd.AddCommand(NewPurchaseCommand(opts))
	cmd.AddCommand(NewProcessCommand(opts))
	cmd.AddCommand(NewBatchCommand(opts))
	cmd.AddCommand(NewRunsCommand(opts))

	return cmd
}

// openApp loads config and wires the application. Logs go to stderr.
func openApp(ctx context.Context, opts *RootOptions, cmd *cobra.Command, extractor port.ItemExtractor) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, usageError("failed to load config", err)
	}
	if opts.DB != "" {
		cfg.Store.Driver = config.DriverSQLite
		cfg.Store.SQLitePath = opts.DB
	}

	a, err := app.New(ctx, cfg, app.Options{
		ServiceName: "warehouse-cli",
		Output:      cmd.ErrOrStderr(),
		Extractor:   extractor,
	})
	if err != nil {
		return nil, failure("failed to open store", err)
	}
	return a, nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout()}
}
