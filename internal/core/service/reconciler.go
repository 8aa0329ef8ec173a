package service

import (
	"context"
	"fmt"

	"github.com/rl1809/stock-reconciler/internal/core/domain"
)

type StockLookup interface {
	Lookup(ctx context.Context, name string) (*domain.InventoryRecord, error)
}

// StockReconciler compares requested items with current stock. It never
// writes. Stock may change between Reconcile and any purchase made from
// its result; callers accept that window.
type StockReconciler struct {
	stock StockLookup
}

func NewStockReconciler(stock StockLookup) *StockReconciler {
	return &StockReconciler{stock: stock}
}

// Reconcile returns one Deficit per item whose stock is missing or short,
// in input order. Satisfied items are omitted. A short item carries the
// matched product's stored name so the purchase tops up that product.
func (r *StockReconciler) Reconcile(ctx context.Context, items []domain.ItemRequest) ([]domain.Deficit, error) {
	var deficits []domain.Deficit

	for _, item := range items {
		current, err := r.stock.Lookup(ctx, item.Name)
		if err != nil {
			return nil, fmt.Errorf("lookup %q: %w", item.Name, err)
		}

		switch {
		case current == nil:
			deficits = append(deficits, domain.Deficit{Name: item.Name, Quantity: item.QuantityNeeded})
		case current.Quantity < item.QuantityNeeded:
			deficits = append(deficits, domain.Deficit{
				Name:        item.Name,
				ProductName: current.ProductName,
				Quantity:    item.QuantityNeeded - current.Quantity,
			})
		}
	}

	return deficits, nil
}
