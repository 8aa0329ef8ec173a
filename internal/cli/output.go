package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rl1809/stock-reconciler/internal/core/domain"
	"github.com/rl1809/stock-reconciler/internal/core/service"
)

// Exit codes of the warehouse CLI. Scripts branch on these, so values are
// stable.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitUsage       = 2 // bad arguments or configuration
	ExitDuplicate   = 3 // document already claimed by another run
	ExitPartialRun  = 4 // run failed after committing purchases
	ExitUnavailable = 5 // store or document guard unreachable
)

// CommandError is a failed command with the exit code derived for it.
type CommandError struct {
	Code int
	Msg  string
	Err  error
}

func (e *CommandError) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

func usageError(msg string, err error) *CommandError {
	return &CommandError{Code: ExitUsage, Msg: msg, Err: err}
}

// failure wraps an operation error; the code follows the error's kind.
func failure(msg string, err error) *CommandError {
	return &CommandError{Code: exitCodeFor(err), Msg: msg, Err: err}
}

func exitCodeFor(err error) int {
	var runErr *service.RunError
	switch {
	case err == nil:
		return ExitFailure
	case errors.Is(err, service.ErrDuplicateDocument):
		return ExitDuplicate
	case errors.As(err, &runErr) && len(runErr.Applied) > 0:
		return ExitPartialRun
	case errors.Is(err, domain.ErrStorageUnavailable):
		return ExitUnavailable
	}
	return ExitFailure
}

// ExitCode maps a command error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Code
	}
	return exitCodeFor(err)
}

// OutputFormatter renders command results as JSON or aligned text.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

func (f *OutputFormatter) JSON(v any) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (f *OutputFormatter) Inventory(records []domain.InventoryRecord) error {
	if f.Format == "json" {
		if records == nil {
			records = []domain.InventoryRecord{}
		}
		return f.JSON(records)
	}
	tw := tabwriter.NewWriter(f.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PRODUCT_ID\tNAME\tQUANTITY")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", r.ProductID, r.ProductName, r.Quantity)
	}
	return tw.Flush()
}

func (f *OutputFormatter) Record(rec domain.ProcessingRecord) error {
	if f.Format == "json" {
		return f.JSON(rec)
	}
	fmt.Fprintf(f.Writer, "run %d  %s  %s\n", rec.ID, rec.SourceDocument, rec.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(f.Writer, "  items:     %s\n", formatItems(rec.ItemsFound))
	fmt.Fprintf(f.Writer, "  purchased: %s\n", formatActions(rec.PurchaseActions))
	return nil
}

func (f *OutputFormatter) Records(recs []domain.ProcessingRecord) error {
	if f.Format == "json" {
		if recs == nil {
			recs = []domain.ProcessingRecord{}
		}
		return f.JSON(recs)
	}
	tw := tabwriter.NewWriter(f.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSOURCE\tITEMS\tPURCHASES\tTIMESTAMP")
	for _, r := range recs {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\n", r.ID, r.SourceDocument, len(r.ItemsFound), len(r.PurchaseActions), r.Timestamp.Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}

func formatItems(items []domain.ItemRequest) string {
	if len(items) == 0 {
		return "-"
	}
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = fmt.Sprintf("%s x%d", it.Name, it.QuantityNeeded)
	}
	return strings.Join(parts, ", ")
}

func formatActions(actions []domain.PurchaseAction) string {
	if len(actions) == 0 {
		return "nothing"
	}
	parts := make([]string, len(actions))
	for i, a := range actions {
		parts[i] = fmt.Sprintf("%s x%d", a.Name, a.QuantityPurchased)
	}
	return strings.Join(parts, ", ")
}
