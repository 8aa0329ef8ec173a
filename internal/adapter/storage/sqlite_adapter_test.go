package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rl1809/stock-reconciler/internal/core/domain"
)

func createTestStore(t *testing.T) *SQLiteAdapter {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "warehouse.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLookup_CaseInsensitiveSubstring(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.Seed(ctx, []domain.InventoryRecord{
		{ProductID: "P001", ProductName: "Penne", Quantity: 100},
		{ProductID: "P002", ProductName: "Matite", Quantity: 50},
	}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	rec, err := s.Lookup(ctx, "mATi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec == nil || rec.ProductID != "P002" || rec.Quantity != 50 {
		t.Errorf("expected P002 with 50, got %+v", rec)
	}
}

func TestLookup_NotFound(t *testing.T) {
	s := createTestStore(t)

	rec, err := s.Lookup(context.Background(), "Gomme")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec != nil {
		t.Errorf("expected nil, got %+v", rec)
	}
}

func TestLookup_FirstInsertedWins(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// Inserted in this order; both contain "penn".
	if _, err := s.ApplyPurchase(ctx, "Penne rosse", 3); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ApplyPurchase(ctx, "Penne blu", 7); err != nil {
		t.Fatal(err)
	}
	// Bumping the second one must not change the order.
	if _, err := s.ApplyPurchase(ctx, "Penne blu", 1); err != nil {
		t.Fatal(err)
	}

	rec, err := s.Lookup(ctx, "penn")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.ProductName != "Penne rosse" {
		t.Errorf("expected first inserted record, got %q", rec.ProductName)
	}
}

func TestApplyPurchase_CreatesThenIncrements(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	created, err := s.ApplyPurchase(ctx, "Matite", 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Quantity != 20 || created.ProductID == "" {
		t.Fatalf("unexpected record %+v", created)
	}

	updated, err := s.ApplyPurchase(ctx, "Matite", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Quantity != 25 {
		t.Errorf("expected 25, got %d", updated.Quantity)
	}
	if updated.ProductID != created.ProductID {
		t.Errorf("product id changed from %s to %s", created.ProductID, updated.ProductID)
	}
}

func TestApplyPurchase_InvalidQuantity(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	s.Seed(ctx, []domain.InventoryRecord{{ProductID: "P001", ProductName: "Penne", Quantity: 100}})

	for _, qty := range []int{0, -5} {
		_, err := s.ApplyPurchase(ctx, "Penne", qty)
		if !errors.Is(err, domain.ErrInvalidQuantity) {
			t.Errorf("quantity %d: expected ErrInvalidQuantity, got %v", qty, err)
		}
	}
	_, err := s.ApplyPurchase(ctx, "Nuovo", 0)
	if !errors.Is(err, domain.ErrInvalidQuantity) {
		t.Errorf("expected ErrInvalidQuantity, got %v", err)
	}

	all, err := s.ListInventory(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all[0].Quantity != 100 {
		t.Errorf("inventory changed: %+v", all)
	}
}

func TestApplyPurchase_ConcurrentNoLostUpdates(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	s.Seed(ctx, []domain.InventoryRecord{{ProductName: "Quaderni", Quantity: 10}})

	const workers = 20
	const perWorker = 10

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(qty int) {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				if _, err := s.ApplyPurchase(ctx, "Quaderni", qty); err != nil {
					t.Errorf("purchase failed: %v", err)
				}
			}
		}(i%3 + 1)
	}
	wg.Wait()

	expected := 10
	for i := 0; i < workers; i++ {
		expected += (i%3 + 1) * perWorker
	}

	rec, err := s.Lookup(ctx, "Quaderni")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Quantity != expected {
		t.Errorf("expected %d, got %d", expected, rec.Quantity)
	}
}

func TestApplyPurchase_ConcurrentNewProductCreatedOnce(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.ApplyPurchase(ctx, "Gomme", 2); err != nil {
				t.Errorf("purchase failed: %v", err)
			}
		}()
	}
	wg.Wait()

	all, err := s.ListInventory(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Fatalf("expected one row, got %d", len(all))
	}
	if all[0].Quantity != 60 {
		t.Errorf("expected 60, got %d", all[0].Quantity)
	}
}

func TestSeed_IgnoresExisting(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	s.Seed(ctx, []domain.InventoryRecord{{ProductID: "P001", ProductName: "Penne", Quantity: 100}})
	s.ApplyPurchase(ctx, "Penne", 5)
	if err := s.Seed(ctx, []domain.InventoryRecord{{ProductID: "P001", ProductName: "Penne", Quantity: 100}}); err != nil {
		t.Fatal(err)
	}

	rec, _ := s.Lookup(ctx, "Penne")
	if rec.Quantity != 105 {
		t.Errorf("expected seed to leave 105, got %d", rec.Quantity)
	}
}

func TestSeed_RejectsNegative(t *testing.T) {
	s := createTestStore(t)

	err := s.Seed(context.Background(), []domain.InventoryRecord{{ProductName: "Penne", Quantity: -1}})
	if !errors.Is(err, domain.ErrInvalidQuantity) {
		t.Errorf("expected ErrInvalidQuantity, got %v", err)
	}
}

func TestQuantityNeverNegative(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// The CHECK constraint backs the invariant even for writes that bypass
	// the adapter.
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO inventory (product_id, product_name, quantity, created_at, updated_at)
		VALUES ('X', 'Broken', -1, ?, ?)`, time.Now(), time.Now()); err == nil {
		t.Fatal("expected CHECK constraint to reject negative quantity")
	}

	for _, name := range []string{"A", "B", "C"} {
		s.ApplyPurchase(ctx, name, 1)
	}
	all, _ := s.ListInventory(ctx)
	for _, rec := range all {
		if rec.Quantity < 0 {
			t.Errorf("negative quantity for %s", rec.ProductName)
		}
	}
}

func TestLedger_AppendAndGet(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rec := domain.ProcessingRecord{
		SourceDocument:  "doc1.pdf",
		ExtractedText:   "Servono 50 Penne e 20 Matite",
		ItemsFound:      []domain.ItemRequest{{Name: "Penne", QuantityNeeded: 50}, {Name: "Matite", QuantityNeeded: 20}},
		PurchaseActions: []domain.PurchaseAction{{Name: "Matite", QuantityPurchased: 20}},
		Timestamp:       ts,
	}

	id1, err := s.Append(ctx, rec)
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}
	id2, err := s.Append(ctx, rec)
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if id2 <= id1 {
		t.Errorf("ids must increase: %d then %d", id1, id2)
	}

	got, err := s.Get(ctx, id1)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("expected record")
	}
	if got.SourceDocument != "doc1.pdf" || got.ExtractedText != rec.ExtractedText {
		t.Errorf("unexpected record %+v", got)
	}
	if len(got.ItemsFound) != 2 || got.ItemsFound[1] != (domain.ItemRequest{Name: "Matite", QuantityNeeded: 20}) {
		t.Errorf("items_found not preserved: %+v", got.ItemsFound)
	}
	if len(got.PurchaseActions) != 1 || got.PurchaseActions[0].QuantityPurchased != 20 {
		t.Errorf("purchase_actions not preserved: %+v", got.PurchaseActions)
	}
	if !got.Timestamp.Equal(ts) {
		t.Errorf("expected timestamp %v, got %v", ts, got.Timestamp)
	}
}

func TestLedger_ZeroTimestampFilledAtMicrosecond(t *testing.T) {
	s := createTestStore(t)
	now := time.Date(2026, 3, 1, 10, 0, 0, 123456789, time.FixedZone("CET", 3600))
	s.now = func() time.Time { return now }

	id, err := s.Append(context.Background(), domain.ProcessingRecord{SourceDocument: "doc2.pdf"})
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}
	got, err := s.Get(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}

	want := now.UTC().Truncate(time.Microsecond)
	if !got.Timestamp.Equal(want) {
		t.Errorf("expected timestamp %v, got %v", want, got.Timestamp)
	}
	if got.Timestamp.Nanosecond()%1000 != 0 {
		t.Errorf("timestamp not truncated to microseconds: %v", got.Timestamp)
	}
}

func TestLedger_GetMissing(t *testing.T) {
	s := createTestStore(t)

	got, err := s.Get(context.Background(), 42)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestLedger_EmptyActionsStoredAsEmptyList(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	id, err := s.Append(ctx, domain.ProcessingRecord{
		SourceDocument: "doc.txt",
		ItemsFound:     []domain.ItemRequest{{Name: "Penne", QuantityNeeded: 1}},
	})
	if err != nil {
		t.Fatal(err)
	}

	var raw string
	s.db.QueryRowContext(ctx, `SELECT purchase_actions FROM processing_results WHERE id = ?`, id).Scan(&raw)
	if raw != "[]" {
		t.Errorf("expected [], got %q", raw)
	}
}

func TestLedger_ConcurrentAppendsUniqueIDs(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	var mu sync.Mutex
	seen := make(map[int64]bool)
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := s.Append(ctx, domain.ProcessingRecord{SourceDocument: "batch"})
			if err != nil {
				t.Errorf("append failed: %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if seen[id] {
				t.Errorf("duplicate id %d", id)
			}
			seen[id] = true
		}()
	}
	wg.Wait()

	if len(seen) != 50 {
		t.Errorf("expected 50 ids, got %d", len(seen))
	}
}

func TestLedger_ListBySourceAndRecent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, src := range []string{"a.pdf", "b.pdf", "a.pdf"} {
		if _, err := s.Append(ctx, domain.ProcessingRecord{SourceDocument: src}); err != nil {
			t.Fatal(err)
		}
	}

	bySource, err := s.ListBySource(ctx, "a.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if len(bySource) != 2 || bySource[0].ID >= bySource[1].ID {
		t.Errorf("expected two a.pdf records oldest first, got %+v", bySource)
	}

	recent, err := s.ListRecent(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 || recent[0].ID != 3 || recent[1].ID != 2 {
		t.Errorf("expected ids 3,2, got %+v", recent)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warehouse.db")
	ctx := context.Background()

	s1, err := OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	created, _ := s1.ApplyPurchase(ctx, "Matite", 20)
	id, _ := s1.Append(ctx, domain.ProcessingRecord{SourceDocument: "doc1.pdf"})
	s1.Close()

	s2, err := OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()

	rec, _ := s2.Lookup(ctx, "Matite")
	if rec == nil || rec.Quantity != 20 || rec.ProductID != created.ProductID {
		t.Errorf("inventory not persisted: %+v", rec)
	}
	got, _ := s2.Get(ctx, id)
	if got == nil || got.SourceDocument != "doc1.pdf" {
		t.Errorf("ledger not persisted: %+v", got)
	}
}

func TestClosedStoreReportsUnavailable(t *testing.T) {
	s := createTestStore(t)
	s.Close()
	ctx := context.Background()

	if _, err := s.Lookup(ctx, "Penne"); !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Errorf("lookup: expected ErrStorageUnavailable, got %v", err)
	}
	if _, err := s.ApplyPurchase(ctx, "Penne", 1); !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Errorf("purchase: expected ErrStorageUnavailable, got %v", err)
	}
	if _, err := s.Append(ctx, domain.ProcessingRecord{}); !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Errorf("append: expected ErrStorageUnavailable, got %v", err)
	}
}
