package port

import (
	"context"

	"github.com/rl1809/stock-reconciler/internal/core/domain"
)

type DocumentParser interface {
	Parse(ctx context.Context, path string) (domain.Document, error)
}

type ItemExtractor interface {
	Extract(ctx context.Context, text string) ([]domain.ItemRequest, error)
}
