package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/rl1809/stock-reconciler/internal/core/domain"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

// SQLiteAdapter keeps inventory and the processing ledger in one SQLite
// file. It owns a single long-lived handle; every operation runs in its own
// transaction.
type SQLiteAdapter struct {
	db  *sql.DB
	mu  sync.Mutex // serializes inventory writes
	now func() time.Time
}

// OpenSQLite creates or opens the database at path and applies the schema.
func OpenSQLite(path string) (*SQLiteAdapter, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// SQLite has a single writer; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return NewSQLiteAdapter(db), nil
}

// NewSQLiteAdapter wraps an already prepared handle.
func NewSQLiteAdapter(db *sql.DB) *SQLiteAdapter {
	return &SQLiteAdapter{db: db, now: time.Now}
}

func (s *SQLiteAdapter) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return storageErr("ping sqlite", err)
	}
	return nil
}

func (s *SQLiteAdapter) Close() error {
	return s.db.Close()
}

func (s *SQLiteAdapter) Lookup(ctx context.Context, name string) (*domain.InventoryRecord, error) {
	rec, err := scanInventory(s.db.QueryRowContext(ctx, `
		SELECT `+inventoryColumns+`
		FROM inventory
		WHERE instr(lower(product_name), lower(?)) > 0
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

func (s *SQLiteAdapter) ApplyPurchase(ctx context.Context, name string, quantity int) (domain.InventoryRecord, error) {
	if quantity <= 0 {
		return domain.InventoryRecord{}, fmt.Errorf("purchase %d of %q: %w", quantity, name, domain.ErrInvalidQuantity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.InventoryRecord{}, storageErr("begin tx", err)
	}
	defer tx.Rollback()

	now := s.now().UTC()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO inventory (product_id, product_name, quantity, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (product_name) DO UPDATE
		SET quantity = quantity + excluded.quantity, updated_at = excluded.updated_at`,
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

func (s *SQLiteAdapter) Seed(ctx context.Context, records []domain.InventoryRecord) error {
	for _, rec := range records {
		if rec.Quantity < 0 {
			return fmt.Errorf("seed %q with %d: %w", rec.ProductName, rec.Quantity, domain.ErrInvalidQuantity)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin tx", err)
	}
	defer tx.Rollback()

	now := s.now().UTC()
	for _, rec := range records {
		id := rec.ProductID
		if id == "" {
			id = uuid.NewString()
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO inventory (product_id, product_name, quantity, created_at, updated_at)
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

func (s *SQLiteAdapter) ListInventory(ctx context.Context) ([]domain.InventoryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+inventoryColumns+` FROM inventory ORDER BY seq`)
	if err != nil {
		return nil, storageErr("list inventory", err)
	}
	return collectInventory(rows)
}

func (s *SQLiteAdapter) Append(ctx context.Context, record domain.ProcessingRecord) (int64, error) {
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
		ts = s.now()
	}
	ts = ts.UTC().Truncate(time.Microsecond)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storageErr("begin tx", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO processing_results
		(source_document, extracted_text, items_found, purchase_actions, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		record.SourceDocument, record.ExtractedText, string(items), string(actions), ts,
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

func (s *SQLiteAdapter) Get(ctx context.Context, id int64) (*domain.ProcessingRecord, error) {
	rec, err := scanProcessing(s.db.QueryRowContext(ctx, `
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

func (s *SQLiteAdapter) ListBySource(ctx context.Context, source string) ([]domain.ProcessingRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+processingColumns+` FROM processing_results
		WHERE source_document = ? ORDER BY id`, source)
	if err != nil {
		return nil, storageErr("query processing results", err)
	}
	return collectRecords(rows)
}

func (s *SQLiteAdapter) ListRecent(ctx context.Context, limit int) ([]domain.ProcessingRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+processingColumns+` FROM processing_results
		ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, storageErr("query processing results", err)
	}
	return collectRecords(rows)
}
