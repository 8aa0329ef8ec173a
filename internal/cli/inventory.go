package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rl1809/stock-reconciler/internal/core/domain"
)

// sampleInventory is loaded by "seed" when no items are given.
var sampleInventory = []domain.InventoryRecord{
	{ProductID: "P001", ProductName: "Penne", Quantity: 100},
	{ProductID: "P002", ProductName: "Matite", Quantity: 50},
}

func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed [name=quantity ...]",
		Short: "Insert initial stock; existing products are left untouched",
		Long: `Insert initial stock rows. Products that already exist keep their quantity.

Without arguments the sample inventory (Penne 100, Matite 50) is loaded.

Examples:
  warehouse seed
  warehouse seed Gomme=10 "Penne blu=40"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			records := sampleInventory
			if len(args) > 0 {
				records = make([]domain.InventoryRecord, 0, len(args))
				for _, arg := range args {
					item, err := parseItemArg(arg)
					if err != nil {
						return usageError("invalid seed item", err)
					}
					records = append(records, domain.InventoryRecord{
						ProductID:   uuid.NewString(),
						ProductName: item.Name,
						Quantity:    item.QuantityNeeded,
					})
				}
			}

			ctx := context.Background()
			a, err := openApp(ctx, rootOpts, cmd, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Store.Seed(ctx, records); err != nil {
				return failure("failed to seed inventory", err)
			}
			list, err := a.Store.ListInventory(ctx)
			if err != nil {
				return failure("failed to list inventory", err)
			}
			return rootOpts.formatter(cmd).Inventory(list)
		},
	}
}

func NewStockCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stock [name]",
		Short: "Show inventory, or the first product whose name contains the given text",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := openApp(ctx, rootOpts, cmd, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			out := rootOpts.formatter(cmd)
			if len(args) == 0 {
				list, err := a.Store.ListInventory(ctx)
				if err != nil {
					return failure("failed to list inventory", err)
				}
				return out.Inventory(list)
			}

			rec, err := a.Store.Lookup(ctx, args[0])
			if err != nil {
				return failure("failed to look up product", err)
			}
			if rec == nil {
				return failure(fmt.Sprintf("no product matches %q", args[0]), nil)
			}
			return out.Inventory([]domain.InventoryRecord{*rec})
		},
	}
}

func NewPurchaseCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "purchase <name> <quantity>",
		Short: "Record a purchase, creating the product if needed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := strconv.Atoi(args[1])
			if err != nil {
				return usageError("quantity must be an integer", err)
			}

			ctx := context.Background()
			a, err := openApp(ctx, rootOpts, cmd, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			rec, err := a.Store.ApplyPurchase(ctx, args[0], qty)
			if err != nil {
				return failure("purchase failed", err)
			}
			return rootOpts.formatter(cmd).Inventory([]domain.InventoryRecord{rec})
		},
	}
}

// parseItemArg reads "name=quantity". The last "=" separates the quantity.
func parseItemArg(arg string) (domain.ItemRequest, error) {
	i := strings.LastIndexByte(arg, '=')
	if i <= 0 {
		return domain.ItemRequest{}, fmt.Errorf("%q: expected name=quantity", arg)
	}
	name := strings.TrimSpace(arg[:i])
	qty, err := strconv.Atoi(strings.TrimSpace(arg[i+1:]))
	if err != nil || name == "" {
		return domain.ItemRequest{}, fmt.Errorf("%q: expected name=quantity", arg)
	}
	return domain.ItemRequest{Name: name, QuantityNeeded: qty}, nil
}
