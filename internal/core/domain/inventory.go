package domain

import "time"

type InventoryRecord struct {
	ProductID   string    `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
	Seq         int64     `json:"-"` // insertion order, breaks ties between substring matches
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Deficit is the amount by which current stock falls short of a request.
// ProductName is the stored name of the matched product, empty when no
// product matched.
type Deficit struct {
	Name        string `json:"name"`
	ProductName string `json:"product_name,omitempty"`
	Quantity    int    `json:"quantity"`
}

// PurchaseName is the name a purchase for this deficit must be applied to.
func (d Deficit) PurchaseName() string {
	if d.ProductName != "" {
		return d.ProductName
	}
	return d.Name
}
