package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentSnapshot is the payment method as it looked when the order was placed.
type PaymentSnapshot struct {
	CardLast4      string `json:"card_last4"`
	CardBrand      string `json:"card_brand"`
	ExpiryMonth    int    `json:"expiry_month"`
	ExpiryYear     int    `json:"expiry_year"`
	CardholderName string `json:"cardholder_name"`
	BillingAddress string `json:"billing_address"`
}

// ShippingSnapshot is the delivery address as it looked when the order was placed.
type ShippingSnapshot struct {
	AddressLine1  string `json:"address_line1"`
	AddressLine2  string `json:"address_line2"`
	City          string `json:"city"`
	State         string `json:"state"`
	PostalCode    string `json:"postal_code"`
	Country       string `json:"country"`
	ContactNumber string `json:"contact_number"`
}

type OrderItem struct {
	ID              int64           `json:"id"`
	OrderID         int64           `json:"order_id"`
	ProductID       int64           `json:"product_id"`
	ProductName     string          `json:"product_name"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return LineTotal(i.PriceAtPurchase, i.Quantity)
}

type Order struct {
	ID          int64            `json:"id"`
	CustomerID  int64            `json:"customer_id"`
	TotalAmount decimal.Decimal  `json:"total_amount"`
	Status      OrderStatus      `json:"status"`
	Payment     PaymentSnapshot  `json:"payment"`
	Shipping    ShippingSnapshot `json:"shipping"`
	Items       []OrderItem      `json:"items"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// LineTotal is price*qty rounded half away from zero to cents.
func LineTotal(price decimal.Decimal, qty int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(qty))).Round(2)
}

// SumLines adds line totals that were each rounded to cents.
func SumLines(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal())
	}
	return total
}
