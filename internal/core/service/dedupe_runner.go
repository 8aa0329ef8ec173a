package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rl1809/stock-reconciler/internal/core/domain"
	"github.com/rl1809/stock-reconciler/internal/logger"
	"github.com/rl1809/stock-reconciler/internal/port"
)

const releaseTimeout = 5 * time.Second

// DedupingRunner claims the source document before delegating, so the same
// document is not processed twice while its claim lives. A failed run
// releases the claim to allow a retry.
type DedupingRunner struct {
	next   Runner
	guard  port.DocumentGuard
	logger *logger.Logger
}

// NewDedupingRunner wraps next. A nil guard disables deduplication.
func NewDedupingRunner(next Runner, guard port.DocumentGuard, l *logger.Logger) *DedupingRunner {
	if l == nil {
		l = logger.Nop()
	}
	return &DedupingRunner{next: next, guard: guard, logger: l}
}

func (d *DedupingRunner) Run(ctx context.Context, in RunInput) (domain.ProcessingRecord, error) {
	if d.guard == nil {
		return d.next.Run(ctx, in)
	}

	token, ok, err := d.guard.Claim(ctx, in.SourceDocument)
	if err != nil {
		return domain.ProcessingRecord{}, fmt.Errorf("claim document: %w", err)
	}
	if !ok {
		return domain.ProcessingRecord{}, fmt.Errorf("%q: %w", in.SourceDocument, ErrDuplicateDocument)
	}

	record, err := d.next.Run(ctx, in)
	if err != nil {
		// The run may have failed because ctx ended; the claim must still go.
		relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		if relErr := d.guard.Release(relCtx, in.SourceDocument, token); relErr != nil {
			d.logger.Warn(d.logger.WithField(ctx, "source_document", in.SourceDocument), "release claim failed", relErr)
		}
		return record, err
	}
	return record, nil
}
