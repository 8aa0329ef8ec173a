package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/stock-reconciler/internal/core/domain"
)

//go:embed schema_mysql.sql
var mysqlSchema string

// MySQLAdapter is the server-backed alternative to SQLiteAdapter. The DSN
// must set parseTime=true.
type MySQLAdapter struct {
	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db, now: time.Now}
}

// ApplySchema creates the tables if they do not exist.
func (m *MySQLAdapter) ApplySchema(ctx context.Context) error {
	for _, stmt := range strings.Split(mysqlSchema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return storageErr("apply schema", err)
		}
	}
	return nil
}

func (m *MySQLAdapter) Ping(ctx context.Context) error {
	if err := m.db.PingContext(ctx); err != nil {
		return storageErr("ping mysql", err)
	}
	return nil
}

func (m *MySQLAdapter) Close() error {
	return m.db.Close()
}

func (m *MySQLAdapter) Lookup(ctx context.Context, name string) (*domain.InventoryRecord, error) {
	rec, err := scanInventory(m.db.QueryRowContext(ctx, `
		SELECT `+inventoryColumns+`
		FROM inventory
		WHERE LOCATE(LOWER(?), LOWER(product_name)) > 0
		ORDER BY seq
		LIMIT 1`, name,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("query inventory", err)
	}
	return &rec, nil
}

func (m *MySQLAdapter) ApplyPurchase(ctx context.Context, name string, quantity int) (domain.InventoryRecord, error) {
	if quantity <= 0 {
		return domain.InventoryRecord{}, fmt.Errorf("purchase %d of %q: %w", quantity, name, domain.ErrInvalidQuantity)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.InventoryRecord{}, storageErr("begin tx", err)
	}
	defer tx.Rollback()

	now := m.now().UTC()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO inventory (product_id, product_name, quantity, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE quantity = quantity + VALUES(quantity), updated_at = VALUES(updated_at)`,
		uuid.NewString(), name, quantity, now, now,
	)
	if err != nil {
		return domain.InventoryRecord{}, storageErr("upsert inventory", err)
	}

	rec, err := scanInventory(tx.QueryRowContext(ctx, `
		SELECT `+inventoryColumns+` FROM inventory WHERE product_name = ?`, name,
	))
	if err != nil {
		return domain.InventoryRecord{}, storageErr("read back inventory", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.InventoryRecord{}, storageErr("commit purchase", err)
	}
	return rec, nil
}

func (m *MySQLAdapter) Seed(ctx context.Context, records []domain.InventoryRecord) error {
	for _, rec := range records {
		if rec.Quantity < 0 {
			return fmt.Errorf("seed %q with %d: %w", rec.ProductName, rec.Quantity, domain.ErrInvalidQuantity)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin tx", err)
	}
	defer tx.Rollback()

	now := m.now().UTC()
	for _, rec := range records {
		id := rec.ProductID
		if id == "" {
			id = uuid.NewString()
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT IGNORE INTO inventory (product_id, product_name, quantity, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)`,
			id, rec.ProductName, rec.Quantity, now, now,
		); err != nil {
			return storageErr("seed inventory", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storageErr("commit seed", err)
	}
	return nil
}

func (m *MySQLAdapter) ListInventory(ctx context.Context) ([]domain.InventoryRecord, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT `+inventoryColumns+` FROM inventory ORDER BY seq`)
	if err != nil {
		return nil, storageErr("list inventory", err)
	}
	return collectInventory(rows)
}

func (m *MySQLAdapter) Append(ctx context.Context, record domain.ProcessingRecord) (int64, error) {
	items, err := encodeItems(record.ItemsFound)
	if err != nil {
		return 0, fmt.Errorf("encode items_found: %w", err)
	}
	actions, err := encodeActions(record.PurchaseActions)
	if err != nil {
		return 0, fmt.Errorf("encode purchase_actions: %w", err)
	}
	ts := record.Timestamp
	if ts.IsZero() {
		ts = m.now()
	}
	ts = ts.UTC().Truncate(time.Microsecond)

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storageErr("begin tx", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO processing_results
		(source_document, extracted_text, items_found, purchase_actions, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		record.SourceDocument, record.ExtractedText, items, actions, ts,
	)
	if err != nil {
		return 0, storageErr("insert processing result", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, storageErr("processing result id", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, storageErr("commit processing result", err)
	}
	return id, nil
}

func (m *MySQLAdapter) Get(ctx context.Context, id int64) (*domain.ProcessingRecord, error) {
	rec, err := scanProcessing(m.db.QueryRowContext(ctx, `
		SELECT `+processingColumns+` FROM processing_results WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("query processing result", err)
	}
	return &rec, nil
}

func (m *MySQLAdapter) ListBySource(ctx context.Context, source string) ([]domain.ProcessingRecord, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT `+processingColumns+` FROM processing_results
		WHERE source_document = ? ORDER BY id`, source)
	if err != nil {
		return nil, storageErr("query processing results", err)
	}
	return collectRecords(rows)
}

func (m *MySQLAdapter) ListRecent(ctx context.Context, limit int) ([]domain.ProcessingRecord, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT `+processingColumns+` FROM processing_results
		ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, storageErr("query processing results", err)
	}
	return collectRecords(rows)
}
