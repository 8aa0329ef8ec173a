package domain

import "time"

type ItemRequest struct {
	Name           string `json:"name"`
	QuantityNeeded int    `json:"quantity"`
}

type PurchaseAction struct {
	Name              string `json:"name"`
	QuantityPurchased int    `json:"quantity"`
}

// ProcessingRecord is one completed workflow run. It is immutable once the
// ledger has assigned its ID.
type ProcessingRecord struct {
	ID              int64            `json:"id"`
	SourceDocument  string           `json:"source_document"`
	ExtractedText   string           `json:"extracted_text"`
	ItemsFound      []ItemRequest    `json:"items_found"`
	PurchaseActions []PurchaseAction `json:"purchase_actions"`
	Timestamp       time.Time        `json:"timestamp"`
}

// Document is what a parser hands to the workflow.
type Document struct {
	Source string
	Text   string
}
