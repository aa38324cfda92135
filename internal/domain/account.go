package domain

import "time"

// PaymentInformation is a saved card. Only the last four digits of the number are kept.
type PaymentInformation struct {
	ID             int64     `json:"id"`
	CustomerID     int64     `json:"customer_id"`
	CardLast4      string    `json:"card_last4"`
	CardBrand      string    `json:"card_brand"`
	ExpiryMonth    string    `json:"expiry_month"`
	ExpiryYear     string    `json:"expiry_year"`
	CardholderName string    `json:"cardholder_name"`
	BillingAddress string    `json:"billing_address"`
	CreatedAt      time.Time `json:"created_at"`
}

type ShippingInformation struct {
	ID            int64     `json:"id"`
	CustomerID    int64     `json:"customer_id"`
	AddressLine1  string    `json:"address_line1"`
	AddressLine2  string    `json:"address_line2"`
	City          string    `json:"city"`
	State         string    `json:"state"`
	PostalCode    string    `json:"postal_code"`
	Country       string    `json:"country"`
	ContactNumber string    `json:"contact_number"`
	CreatedAt     time.Time `json:"created_at"`
}
