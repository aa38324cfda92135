package domain

import "time"

// MaxLineQuantity caps a single add-to-cart request before stock clamping.
const MaxLineQuantity = 999

type Cart struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	Items     []CartItem `json:"items"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type CartItem struct {
	ID        int64     `json:"id"`
	CartID    int64     `json:"cart_id"`
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

// ClampQuantity bounds qty to [1, max]. A max below 1 yields 1.
func ClampQuantity(qty, max int) int {
	if qty > max {
		qty = max
	}
	if qty < 1 {
		qty = 1
	}
	return qty
}
