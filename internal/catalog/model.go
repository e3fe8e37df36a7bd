package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	CategoryID string          `json:"categoryId,omitempty"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	Available  int             `json:"available"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// NewProduct is the admin input for Create. ID is generated when empty.
type NewProduct struct {
	ID         string          `json:"id,omitempty"`
	Name       string          `json:"name"`
	CategoryID string          `json:"categoryId,omitempty"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	Stock      int             `json:"stock"`
}

// ProductUpdate carries the fields to change; nil means unchanged.
// TotalStock is the physical stock count, reservations included.
type ProductUpdate struct {
	Name       *string          `json:"name,omitempty"`
	CategoryID *string          `json:"categoryId,omitempty"`
	UnitPrice  *decimal.Decimal `json:"unitPrice,omitempty"`
	TotalStock *int             `json:"totalStock,omitempty"`
}

// StockSet is the payload of a catalog.stock.set.v1 event.
type StockSet struct {
	ProductID  string `json:"productId"`
	TotalStock int    `json:"totalStock"`
}
