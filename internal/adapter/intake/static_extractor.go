package intake

import (
	"context"

	"github.com/rl1809/stock-reconciler/internal/core/domain"
)

// StaticExtractor ignores the text and returns a fixed item list. The CLI
// uses it when items are given on the command line.
type StaticExtractor struct {
	items []domain.ItemRequest
}

func NewStaticExtractor(items []domain.ItemRequest) *StaticExtractor {
	return &StaticExtractor{items: items}
}

func (e *StaticExtractor) Extract(ctx context.Context, text string) ([]domain.ItemRequest, error) {
	return append([]domain.ItemRequest(nil), e.items...), nil
}
