package service

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/rl1809/stock-reconciler/internal/core/domain"
)

// memInventory is an in-memory InventoryRepository with failure injection.
type memInventory struct {
	mu          sync.Mutex
	records     []domain.InventoryRecord
	purchaseErr map[string]error
	lookupErr   error
	purchases   []domain.PurchaseAction
}

func newMemInventory(seed map[string]int, order ...string) *memInventory {
	m := &memInventory{purchaseErr: make(map[string]error)}
	for _, name := range order {
		m.records = append(m.records, domain.InventoryRecord{
			ProductID:   uuid.NewString(),
			ProductName: name,
			Quantity:    seed[name],
			Seq:         int64(len(m.records) + 1),
		})
	}
	return m
}

func (m *memInventory) Lookup(ctx context.Context, name string) (*domain.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	needle := strings.ToLower(name)
	for _, rec := range m.records {
		if strings.Contains(strings.ToLower(rec.ProductName), needle) {
			out := rec
			return &out, nil
		}
	}
	return nil, nil
}

func (m *memInventory) ApplyPurchase(ctx context.Context, name string, quantity int) (domain.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.purchaseErr[name]; err != nil {
		return domain.InventoryRecord{}, err
	}
	if quantity <= 0 {
		return domain.InventoryRecord{}, domain.ErrInvalidQuantity
	}
	m.purchases = append(m.purchases, domain.PurchaseAction{Name: name, QuantityPurchased: quantity})
	for i := range m.records {
		if m.records[i].ProductName == name {
			m.records[i].Quantity += quantity
			return m.records[i], nil
		}
	}
	rec := domain.InventoryRecord{
		ProductID:   uuid.NewString(),
		ProductName: name,
		Quantity:    quantity,
		Seq:         int64(len(m.records) + 1),
	}
	m.records = append(m.records, rec)
	return rec, nil
}

func (m *memInventory) Seed(ctx context.Context, records []domain.InventoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, records...)
	return nil
}

func (m *memInventory) ListInventory(ctx context.Context) ([]domain.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.InventoryRecord(nil), m.records...), nil
}

func (m *memInventory) quantity(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.records {
		if rec.ProductName == name {
			return rec.Quantity
		}
	}
	return 0
}

// memLedger is an in-memory LedgerRepository.
type memLedger struct {
	mu        sync.Mutex
	records   []domain.ProcessingRecord
	appendErr error
}

func (m *memLedger) Append(ctx context.Context, record domain.ProcessingRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.appendErr != nil {
		return 0, m.appendErr
	}
	record.ID = int64(len(m.records) + 1)
	m.records = append(m.records, record)
	return record.ID, nil
}

func (m *memLedger) Get(ctx context.Context, id int64) (*domain.ProcessingRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id < 1 || int(id) > len(m.records) {
		return nil, nil
	}
	rec := m.records[id-1]
	return &rec, nil
}

func (m *memLedger) ListBySource(ctx context.Context, source string) ([]domain.ProcessingRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.ProcessingRecord
	for _, rec := range m.records {
		if rec.SourceDocument == source {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *memLedger) ListRecent(ctx context.Context, limit int) ([]domain.ProcessingRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.ProcessingRecord
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}

func (m *memLedger) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// mockGuard is an in-memory DocumentGuard.
type mockGuard struct {
	mu       sync.Mutex
	claims   map[string]string
	claimErr error
	released []string
}

func newMockGuard() *mockGuard {
	return &mockGuard{claims: make(map[string]string)}
}

func (g *mockGuard) Claim(ctx context.Context, source string) (string, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.claimErr != nil {
		return "", false, g.claimErr
	}
	if _, taken := g.claims[source]; taken {
		return "", false, nil
	}
	token := uuid.NewString()
	g.claims[source] = token
	return token, true, nil
}

func (g *mockGuard) Release(ctx context.Context, source, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.claims[source] == token {
		delete(g.claims, source)
		g.released = append(g.released, source)
	}
	return nil
}
