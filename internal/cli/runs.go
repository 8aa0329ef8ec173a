package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rl1809/stock-reconciler/internal/core/domain"
)

func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded processing runs",
	}
	cmd.AddCommand(newRunsShowCommand(rootOpts))
	cmd.AddCommand(newRunsListCommand(rootOpts))
	return cmd
}

func newRunsShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return usageError(fmt.Sprintf("invalid run id %q", args[0]), nil)
			}

			ctx := context.Background()
			a, err := openApp(ctx, rootOpts, cmd, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			rec, err := a.Store.Get(ctx, id)
			if err != nil {
				return failure("failed to read run", err)
			}
			if rec == nil {
				return failure(fmt.Sprintf("run %d not found", id), nil)
			}
			return rootOpts.formatter(cmd).Record(*rec)
		},
	}
}

func newRunsListCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		source string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, or every run for one source document",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 1 {
				return usageError("--limit must be at least 1", nil)
			}

			ctx := context.Background()
			a, err := openApp(ctx, rootOpts, cmd, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			var recs []domain.ProcessingRecord
			if source != "" {
				recs, err = a.Store.ListBySource(ctx, source)
			} else {
				recs, err = a.Store.ListRecent(ctx, limit)
			}
			if err != nil {
				return failure("failed to list runs", err)
			}
			return rootOpts.formatter(cmd).Records(recs)
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "only runs for this source document")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of recent runs")
	return cmd
}
