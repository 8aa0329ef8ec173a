package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rl1809/stock-reconciler/internal/adapter/intake"
	"github.com/rl1809/stock-reconciler/internal/core/domain"
	"github.com/rl1809/stock-reconciler/internal/core/service"
)

type ProcessOptions struct {
	*RootOptions
	Items []string
}

func NewProcessCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProcessOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "process <file>",
		Short: "Process one order document",
		Long: `Read a text document, extract the requested items, buy what is missing
and record the run.

Items come from the configured extractor (an OpenAI-compatible model when
OPENAI_API_KEY or WAREHOUSE_LLM_BASE_URL is set, line rules otherwise)
unless --item is given.

Examples:
  warehouse process data/order_001.txt
  warehouse process data/order_001.txt --item Penne=50 --item Matite=80`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringArrayVar(&opts.Items, "item", nil, "item as name=quantity, skips extraction (repeatable)")
	return cmd
}

func runProcess(opts *ProcessOptions, cmd *cobra.Command, path string) error {
	ctx := context.Background()

	a, err := openApp(ctx, opts.RootOptions, cmd, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	batch := a.Batch
	if len(opts.Items) > 0 {
		items := make([]domain.ItemRequest, 0, len(opts.Items))
		for _, arg := range opts.Items {
			item, err := parseItemArg(arg)
			if err != nil {
				return usageError("invalid --item", err)
			}
			items = append(items, item)
		}
		batch = service.NewBatchProcessor(intake.NewTextParser(), intake.NewStaticExtractor(items), a.Runner, 1, a.Logger)
	}

	rec, err := batch.ProcessDocument(ctx, path)
	if err != nil {
		return runFailure(path, err)
	}
	return opts.formatter(cmd).Record(rec)
}

func NewBatchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "batch <file>...",
		Short: "Process several order documents concurrently",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := openApp(ctx, rootOpts, cmd, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			results := a.Batch.Process(ctx, args)

			out := rootOpts.formatter(cmd)
			failed := 0
			for _, res := range results {
				if res.Err != nil {
					failed++
				}
			}

			if rootOpts.Format == "json" {
				type jsonResult struct {
					Path   string                   `json:"path"`
					Record *domain.ProcessingRecord `json:"record,omitempty"`
					Error  string                   `json:"error,omitempty"`
				}
				rows := make([]jsonResult, len(results))
				for i, res := range results {
					rows[i] = jsonResult{Path: res.Path}
					if res.Err != nil {
						rows[i].Error = res.Err.Error()
					} else {
						rec := res.Record
						rows[i].Record = &rec
					}
				}
				if err := out.JSON(rows); err != nil {
					return err
				}
			} else {
				for _, res := range results {
					if res.Err != nil {
						fmt.Fprintf(out.Writer, "FAIL %s: %v\n", res.Path, res.Err)
						continue
					}
					fmt.Fprintf(out.Writer, "OK   %s -> run %d, %s\n", res.Path, res.Record.ID, formatActions(res.Record.PurchaseActions))
				}
			}

			if failed > 0 {
				return failure(fmt.Sprintf("%d of %d documents failed", failed, len(results)), nil)
			}
			return nil
		},
	}
}

// runFailure describes a failed run, including purchases that were kept.
func runFailure(path string, err error) error {
	var runErr *service.RunError
	if errors.As(err, &runErr) && len(runErr.Applied) > 0 {
		return failure(
			fmt.Sprintf("processing %s failed; kept purchases: %s", path, formatActions(runErr.Applied)), err)
	}
	return failure(fmt.Sprintf("processing %s failed", path), err)
}
