package port

import (
	"context"

	"github.com/rl1809/stock-reconciler/internal/core/domain"
)

type InventoryRepository interface {
	// Lookup returns the first record, in insertion order, whose product name
	// contains name case-insensitively. It returns nil when nothing matches.
	Lookup(ctx context.Context, name string) (*domain.InventoryRecord, error)

	// ApplyPurchase adds quantity to the product with exactly this name,
	// creating it when unseen, and returns the updated record
	ApplyPurchase(ctx context.Context, name string, quantity int) (domain.InventoryRecord, error)

	// Seed inserts records whose product ID or name is not present yet
	Seed(ctx context.Context, records []domain.InventoryRecord) error

	// ListInventory returns every record in insertion order
	ListInventory(ctx context.Context) ([]domain.InventoryRecord, error)
}
