package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rl1809/stock-reconciler/internal/adapter/storage"
	"github.com/rl1809/stock-reconciler/internal/core/domain"
	"github.com/rl1809/stock-reconciler/internal/core/service"
)

const productName = "Matite"

func main() {
	workers := flag.Int("workers", 50, "concurrent purchasers")
	perWorker := flag.Int("purchases", 20, "purchases per worker")
	runs := flag.Int("runs", 20, "concurrent workflow runs for the same new product")
	flag.Parse()

	dir, err := os.MkdirTemp("", "warehouse-stress-")
	if err != nil {
		log.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	store, err := storage.OpenSQLite(filepath.Join(dir, "warehouse.db"))
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Seed(ctx, []domain.InventoryRecord{{ProductID: "P002", ProductName: productName, Quantity: 0}}); err != nil {
		log.Fatalf("failed to seed: %v", err)
	}

	purchaseOK := stressPurchases(ctx, store, *workers, *perWorker)
	runsOK := stressRuns(ctx, store, *runs)

	if !purchaseOK || !runsOK {
		os.Exit(1)
	}
}

// stressPurchases checks that concurrent increments are never lost.
func stressPurchases(ctx context.Context, store *storage.SQLiteAdapter, workers, perWorker int) bool {
	var successCount, failCount atomic.Int32
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				if _, err := store.ApplyPurchase(ctx, productName, 1); err != nil {
					failCount.Add(1)
					continue
				}
				successCount.Add(1)
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	rec, err := store.Lookup(ctx, productName)
	if err != nil {
		log.Fatalf("failed to read stock: %v", err)
	}

	success := successCount.Load()
	fmt.Println("========== PURCHASE STRESS RESULTS ==========")
	fmt.Printf("Workers:          %d\n", workers)
	fmt.Printf("Purchases each:   %d\n", perWorker)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Failed:           %d\n", failCount.Load())
	fmt.Printf("Final Quantity:   %d\n", rec.Quantity)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==============================================")

	if int32(rec.Quantity) == success && int(success) == workers*perWorker {
		fmt.Println("PASS: no lost updates")
		return true
	}
	fmt.Printf("FAIL: expected quantity %d, got %d\n", workers*perWorker, rec.Quantity)
	return false
}

// stressRuns starts many runs that all need a product nobody stocks yet.
// Reconcile and purchase are not atomic together, so the total bought may
// exceed a single deficit; the product row must still be created once.
func stressRuns(ctx context.Context, store *storage.SQLiteAdapter, runs int) bool {
	const needed = 10
	runner := service.NewWorkflowRunner(store, store)

	var wg sync.WaitGroup
	var failures atomic.Int32
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := runner.Run(ctx, service.RunInput{
				SourceDocument: fmt.Sprintf("stress_%03d.pdf", n),
				Items:          []domain.ItemRequest{{Name: "Gomme", QuantityNeeded: needed}},
			})
			if err != nil {
				failures.Add(1)
			}
		}(i)
	}
	wg.Wait()

	list, err := store.ListInventory(ctx)
	if err != nil {
		log.Fatalf("failed to list inventory: %v", err)
	}
	rows, qty := 0, 0
	for _, rec := range list {
		if rec.ProductName == "Gomme" {
			rows++
			qty = rec.Quantity
		}
	}
	recent, err := store.ListRecent(ctx, runs+1)
	if err != nil {
		log.Fatalf("failed to list runs: %v", err)
	}

	fmt.Println("========== WORKFLOW STRESS RESULTS ==========")
	fmt.Printf("Runs:             %d\n", runs)
	fmt.Printf("Failed runs:      %d\n", failures.Load())
	fmt.Printf("Ledger records:   %d\n", len(recent))
	fmt.Printf("Gomme rows:       %d\n", rows)
	fmt.Printf("Gomme quantity:   %d (one deficit is %d)\n", qty, needed)
	fmt.Println("==============================================")

	if rows == 1 && failures.Load() == 0 && len(recent) == runs && qty >= needed && qty%needed == 0 {
		fmt.Println("PASS: product created once, every run recorded")
		return true
	}
	fmt.Println("FAIL: unexpected workflow state")
	return false
}
