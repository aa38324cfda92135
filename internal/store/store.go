package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/domain"
)

// Common errors returned by the store
var (
	ErrProductNotFound  = errors.New("product not found")
	ErrDuplicateSKU     = errors.New("sku already exists")
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrPaymentNotFound  = errors.New("payment method not found")
	ErrShippingNotFound = errors.New("shipping address not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrStatusConflict   = errors.New("order status changed concurrently")
	ErrLockTimeout      = errors.New("timed out waiting for product lock")
	ErrNotLocked        = errors.New("product is not locked by this transaction")
	ErrTxDone           = errors.New("transaction already finished")
)

// Catalog is the read side of the product table plus the admin writes the storefront needs.
type Catalog interface {
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	// GetProducts returns the products that exist among ids, keyed by id.
	GetProducts(ctx context.Context, ids []int64) (map[int64]*domain.Product, error)
	GetActiveProductsBySKU(ctx context.Context, skus []string) ([]*domain.Product, error)
	ListActiveProducts(ctx context.Context) ([]*domain.Product, error)
	// SaveProduct inserts a product when ID is zero, otherwise replaces it.
	SaveProduct(ctx context.Context, p *domain.Product) error
}

type CartStore interface {
	GetOrCreateCart(ctx context.Context, userID int64) (*domain.Cart, error)
	GetCartItem(ctx context.Context, userID, itemID int64) (*domain.CartItem, error)
	// GetCartItems returns the items among itemIDs that belong to the user's cart.
	GetCartItems(ctx context.Context, userID int64, itemIDs []int64) ([]domain.CartItem, error)
	FindCartItemByProduct(ctx context.Context, userID, productID int64) (*domain.CartItem, error)
	// UpsertCartItem sets the quantity of the user's line for productID, creating it if needed.
	UpsertCartItem(ctx context.Context, userID, productID int64, quantity int) (*domain.CartItem, error)
	UpdateCartItemQuantity(ctx context.Context, userID, itemID int64, quantity int) error
	RemoveCartItem(ctx context.Context, userID, itemID int64) error
}

type AccountStore interface {
	CreatePayment(ctx context.Context, p *domain.PaymentInformation) error
	UpdatePayment(ctx context.Context, p *domain.PaymentInformation) error
	DeletePayment(ctx context.Context, customerID, id int64) error
	GetPayment(ctx context.Context, customerID, id int64) (*domain.PaymentInformation, error)
	// ListPayments returns newest first.
	ListPayments(ctx context.Context, customerID int64) ([]*domain.PaymentInformation, error)

	CreateShipping(ctx context.Context, s *domain.ShippingInformation) error
	UpdateShipping(ctx context.Context, s *domain.ShippingInformation) error
	DeleteShipping(ctx context.Context, customerID, id int64) error
	GetShipping(ctx context.Context, customerID, id int64) (*domain.ShippingInformation, error)
	ListShippings(ctx context.Context, customerID int64) ([]*domain.ShippingInformation, error)
}

// OrderFilter narrows an order listing. Zero fields match everything. Totals are
// inclusive, From is inclusive and To is exclusive.
type OrderFilter struct {
	CustomerID int64
	Status     domain.OrderStatus
	MinTotal   decimal.NullDecimal
	MaxTotal   decimal.NullDecimal
	From       time.Time
	To         time.Time
}

func (f OrderFilter) Matches(o *domain.Order) bool {
	switch {
	case f.CustomerID != 0 && o.CustomerID != f.CustomerID:
		return false
	case f.Status != "" && o.Status != f.Status:
		return false
	case f.MinTotal.Valid && o.TotalAmount.LessThan(f.MinTotal.Decimal):
		return false
	case f.MaxTotal.Valid && o.TotalAmount.GreaterThan(f.MaxTotal.Decimal):
		return false
	case !f.From.IsZero() && o.CreatedAt.Before(f.From):
		return false
	case !f.To.IsZero() && !o.CreatedAt.Before(f.To):
		return false
	}
	return true
}

type OrderStore interface {
	GetOrder(ctx context.Context, orderID int64) (*domain.Order, error)
	// ListOrdersByCustomer returns newest first.
	ListOrdersByCustomer(ctx context.Context, customerID int64) ([]*domain.Order, error)
	// ListOrders returns every order matching f across customers, newest first.
	ListOrders(ctx context.Context, f OrderFilter) ([]*domain.Order, error)
	// UpdateOrderStatus moves an order from one status to another and fails with
	// ErrStatusConflict if the stored status is no longer from.
	UpdateOrderStatus(ctx context.Context, orderID int64, from, to domain.OrderStatus) error
}

type OutboxStore interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id string) error
}

// Ledger is the inventory view inside a transaction. Locks taken by LockAndRead are
// held until the surrounding transaction commits or rolls back.
type Ledger interface {
	// LockAndRead blocks until every product in ids is exclusively locked, then returns
	// their current state. Locks are taken in ascending id order.
	LockAndRead(ctx context.Context, ids []int64) (map[int64]*domain.Product, error)
	// Decrement lowers the stock of a locked product, never below zero.
	Decrement(ctx context.Context, id int64, amount int) error
}

// Tx is a unit of work spanning the ledger, the order table, the cart and the outbox.
type Tx interface {
	Ledger
	// CreateOrder stores the order and its items and assigns their ids.
	CreateOrder(ctx context.Context, order *domain.Order) error
	DeleteCartItems(ctx context.Context, userID int64, itemIDs []int64) error
	AddOutboxEvent(ctx context.Context, event *domain.OutboxEvent) error
}

type TxRunner interface {
	// WithinTx runs fn in a transaction. A nil return commits, anything else rolls back.
	// Locks are released exactly once whichever way fn exits.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type Store interface {
	Catalog
	CartStore
	AccountStore
	OrderStore
	OutboxStore
	TxRunner

	Ping(ctx context.Context) error
	// Close shuts down the store and any background processes
	Close() error
}
