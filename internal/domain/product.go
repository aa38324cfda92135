package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "Active"
	ProductStatusInactive ProductStatus = "Inactive"
)

type Product struct {
	ID             int64           `json:"id"`
	SKU            string          `json:"sku"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Category       string          `json:"category"`
	Subcategory    string          `json:"subcategory"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	QuantityOnHand int             `json:"quantity_on_hand"`
	Status         ProductStatus   `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
}

func (p *Product) IsActive() bool {
	return p.Status == ProductStatusActive
}

func (p *Product) InStock() bool {
	return p.QuantityOnHand > 0
}
