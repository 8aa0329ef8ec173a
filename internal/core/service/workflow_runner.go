package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rl1809/stock-reconciler/internal/core/domain"
	"github.com/rl1809/stock-reconciler/internal/logger"
	"github.com/rl1809/stock-reconciler/internal/metrics"
	"github.com/rl1809/stock-reconciler/internal/port"
)

type RunState string

const (
	StateReceived   RunState = "received"
	StateReconciled RunState = "reconciled"
	StatePurchasing RunState = "purchasing"
	StateRecorded   RunState = "recorded"
	StateDone       RunState = "done"
	StateFailed     RunState = "failed"
)

type RunInput struct {
	SourceDocument string
	ExtractedText  string
	Items          []domain.ItemRequest
}

// Runner is anything that can execute one processing pass.
type Runner interface {
	Run(ctx context.Context, in RunInput) (domain.ProcessingRecord, error)
}

// WorkflowRunner drives one document through
// received -> reconciled -> purchasing -> recorded -> done.
//
// Runs are not idempotent: repeating a source document appends a new ledger
// record and purchases whatever deficit remains at that time.
type WorkflowRunner struct {
	reconciler *StockReconciler
	inventory  port.InventoryRepository
	ledger     port.LedgerRepository
	logger     *logger.Logger
	metrics    *metrics.WorkflowMetrics
	now        func() time.Time
}

type RunnerOption func(*WorkflowRunner)

func WithLogger(l *logger.Logger) RunnerOption {
	return func(r *WorkflowRunner) { r.logger = l }
}

func WithMetrics(m *metrics.WorkflowMetrics) RunnerOption {
	return func(r *WorkflowRunner) { r.metrics = m }
}

func WithClock(now func() time.Time) RunnerOption {
	return func(r *WorkflowRunner) { r.now = now }
}

func NewWorkflowRunner(inventory port.InventoryRepository, ledger port.LedgerRepository, opts ...RunnerOption) *WorkflowRunner {
	r := &WorkflowRunner{
		reconciler: NewStockReconciler(inventory),
		inventory:  inventory,
		ledger:     ledger,
		logger:     logger.Nop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *WorkflowRunner) Run(ctx context.Context, in RunInput) (domain.ProcessingRecord, error) {
	start := r.now()
	ctx = r.logger.WithField(ctx, "source_document", in.SourceDocument)

	r.enter(ctx, StateReceived)
	if len(in.Items) == 0 {
		return r.fail(ctx, start, StateReceived, nil, ErrEmptyRequest)
	}

	deficits, err := r.reconciler.Reconcile(ctx, in.Items)
	if err != nil {
		return r.fail(ctx, start, StateReconciled, nil, fmt.Errorf("reconcile: %w", err))
	}
	r.enter(ctx, StateReconciled)

	r.enter(ctx, StatePurchasing)
	applied := make([]domain.PurchaseAction, 0, len(deficits))
	for _, d := range deficits {
		name := d.PurchaseName()
		if _, err := r.inventory.ApplyPurchase(ctx, name, d.Quantity); err != nil {
			return r.fail(ctx, start, StatePurchasing, applied, err)
		}
		applied = append(applied, domain.PurchaseAction{Name: name, QuantityPurchased: d.Quantity})
		r.metrics.ObservePurchase(d.Quantity)
	}

	record := domain.ProcessingRecord{
		SourceDocument:  in.SourceDocument,
		ExtractedText:   in.ExtractedText,
		ItemsFound:      append(make([]domain.ItemRequest, 0, len(in.Items)), in.Items...),
		PurchaseActions: applied,
		Timestamp:       r.now().UTC().Truncate(time.Microsecond),
	}
	id, err := r.ledger.Append(ctx, record)
	if err != nil {
		return r.fail(ctx, start, StateRecorded, applied, fmt.Errorf("append ledger: %w", err))
	}
	record.ID = id
	r.enter(ctx, StateRecorded)

	r.enter(ctx, StateDone)
	r.metrics.ObserveRun(string(StateDone), r.now().Sub(start))
	return record, nil
}

func (r *WorkflowRunner) enter(ctx context.Context, state RunState) {
	r.logger.Debug(r.logger.WithField(ctx, "run_state", state), "run state")
}

func (r *WorkflowRunner) fail(ctx context.Context, start time.Time, state RunState, applied []domain.PurchaseAction, err error) (domain.ProcessingRecord, error) {
	ctx = r.logger.WithFields(ctx, map[string]any{
		"run_state":      StateFailed,
		"failed_in":      state,
		"purchases_kept": len(applied),
	})
	r.logger.Warn(ctx, "run failed", err)
	r.metrics.ObserveRun(string(StateFailed), r.now().Sub(start))

	return domain.ProcessingRecord{}, &RunError{State: state, Applied: applied, Err: err}
}
