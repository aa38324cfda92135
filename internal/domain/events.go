package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const EventTypeOrderPlaced = "order.placed"

// OutboxEvent is a message written in the same transaction as the state change it announces.
type OutboxEvent struct {
	ID          string          `json:"id"`
	AggregateID string          `json:"aggregate_id"`
	EventType   string          `json:"event_type"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
}

type OrderPlacedItem struct {
	ProductID       int64           `json:"product_id"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
}

type OrderPlacedEvent struct {
	EventID     string            `json:"event_id"`
	OrderID     int64             `json:"order_id"`
	CustomerID  int64             `json:"customer_id"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
	Items       []OrderPlacedItem `json:"items"`
	PlacedAt    time.Time         `json:"placed_at"`
}
