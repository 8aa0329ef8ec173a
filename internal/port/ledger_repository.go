package port

import (
	"context"

	"github.com/rl1809/stock-reconciler/internal/core/domain"
)

// LedgerRepository is append-only: there is no update or delete.
type LedgerRepository interface {
	// Append persists the record and returns the ID assigned to it
	Append(ctx context.Context, record domain.ProcessingRecord) (int64, error)

	// Get returns nil when no record has this ID
	Get(ctx context.Context, id int64) (*domain.ProcessingRecord, error)

	// ListBySource returns the runs for one source document, oldest first
	ListBySource(ctx context.Context, source string) ([]domain.ProcessingRecord, error)

	// ListRecent returns up to limit records, newest first
	ListRecent(ctx context.Context, limit int) ([]domain.ProcessingRecord, error)
}
