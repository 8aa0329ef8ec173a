package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rl1809/stock-reconciler/internal/core/domain"
)

const (
	inventoryColumns  = `seq, product_id, product_name, quantity, created_at, updated_at`
	processingColumns = `id, source_document, extracted_text, items_found, purchase_actions, created_at`
)

func encodeItems(items []domain.ItemRequest) ([]byte, error) {
	if items == nil {
		items = []domain.ItemRequest{}
	}
	return json.Marshal(items)
}

func encodeActions(actions []domain.PurchaseAction) ([]byte, error) {
	if actions == nil {
		actions = []domain.PurchaseAction{}
	}
	return json.Marshal(actions)
}

func decodeRecordPayload(rec *domain.ProcessingRecord, items, actions []byte) error {
	if err := json.Unmarshal(items, &rec.ItemsFound); err != nil {
		return fmt.Errorf("decode items_found of record %d: %w", rec.ID, err)
	}
	if err := json.Unmarshal(actions, &rec.PurchaseActions); err != nil {
		return fmt.Errorf("decode purchase_actions of record %d: %w", rec.ID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInventory(row rowScanner) (domain.InventoryRecord, error) {
	var rec domain.InventoryRecord
	err := row.Scan(&rec.Seq, &rec.ProductID, &rec.ProductName, &rec.Quantity, &rec.CreatedAt, &rec.UpdatedAt)
	return rec, err
}

func scanProcessing(row rowScanner) (domain.ProcessingRecord, error) {
	var (
		rec            domain.ProcessingRecord
		items, actions []byte
	)
	if err := row.Scan(&rec.ID, &rec.SourceDocument, &rec.ExtractedText, &items, &actions, &rec.Timestamp); err != nil {
		return rec, err
	}
	if err := decodeRecordPayload(&rec, items, actions); err != nil {
		return rec, err
	}
	return rec, nil
}

func collectInventory(rows *sql.Rows) ([]domain.InventoryRecord, error) {
	defer rows.Close()

	var out []domain.InventoryRecord
	for rows.Next() {
		rec, err := scanInventory(rows)
		if err != nil {
			return nil, storageErr("scan inventory", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list inventory", err)
	}
	return out, nil
}

func collectRecords(rows *sql.Rows) ([]domain.ProcessingRecord, error) {
	defer rows.Close()

	var out []domain.ProcessingRecord
	for rows.Next() {
		rec, err := scanProcessing(rows)
		if err != nil {
			return nil, storageErr("scan processing result", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("query processing results", err)
	}
	return out, nil
}
