// Package orders serves order history to customers and status changes to staff.
package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/domain"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/store"
)

// PreviewItems is how many lines an order summary shows.
const PreviewItems = 5

var (
	ErrInvalidStatus     = errors.New("unknown order status")
	ErrIllegalTransition = errors.New("illegal order status transition")
	ErrInvalidFilter     = errors.New("invalid order filter")
)

type Summary struct {
	ID          int64              `json:"id"`
	CustomerID  int64              `json:"customer_id"`
	Status      domain.OrderStatus `json:"status"`
	TotalAmount decimal.Decimal    `json:"total_amount"`
	ItemCount   int                `json:"item_count"`
	Preview     []domain.OrderItem `json:"preview"`
	CreatedAt   time.Time          `json:"created_at"`
}

type Line struct {
	domain.OrderItem
	LineTotal decimal.Decimal `json:"line_total"`
}

type Detail struct {
	ID          int64                   `json:"id"`
	CustomerID  int64                   `json:"customer_id"`
	Status      domain.OrderStatus      `json:"status"`
	TotalAmount decimal.Decimal         `json:"total_amount"`
	Subtotal    decimal.Decimal         `json:"subtotal"`
	Payment     domain.PaymentSnapshot  `json:"payment"`
	Shipping    domain.ShippingSnapshot `json:"shipping"`
	Lines       []Line                  `json:"lines"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

type Service struct {
	store  store.OrderStore
	logger *zap.Logger
}

func NewService(s store.OrderStore, logger *zap.Logger) *Service {
	return &Service{store: s, logger: logger}
}

func (s *Service) ListOrders(ctx context.Context, userID int64) ([]Summary, error) {
	orders, err := s.store.ListOrdersByCustomer(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return summarize(orders), nil
}

// ListAllOrders is the staff view across customers.
func (s *Service) ListAllOrders(ctx context.Context, f store.OrderFilter) ([]Summary, error) {
	if f.Status != "" && !f.Status.IsValid() {
		return nil, ErrInvalidStatus
	}
	if f.MinTotal.Valid && f.MaxTotal.Valid && f.MinTotal.Decimal.GreaterThan(f.MaxTotal.Decimal) {
		return nil, fmt.Errorf("%w: min_total above max_total", ErrInvalidFilter)
	}
	if !f.From.IsZero() && !f.To.IsZero() && !f.From.Before(f.To) {
		return nil, fmt.Errorf("%w: from must be before to", ErrInvalidFilter)
	}

	orders, err := s.store.ListOrders(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list all orders: %w", err)
	}
	return summarize(orders), nil
}

func summarize(orders []*domain.Order) []Summary {
	out := make([]Summary, 0, len(orders))
	for _, o := range orders {
		count := 0
		for _, it := range o.Items {
			count += it.Quantity
		}
		preview := o.Items
		if len(preview) > PreviewItems {
			preview = preview[:PreviewItems]
		}
		out = append(out, Summary{
			ID:          o.ID,
			CustomerID:  o.CustomerID,
			Status:      o.Status,
			TotalAmount: o.TotalAmount,
			ItemCount:   count,
			Preview:     preview,
			CreatedAt:   o.CreatedAt,
		})
	}
	return out
}

// GetOrder returns the order only if it belongs to userID.
func (s *Service) GetOrder(ctx context.Context, userID, orderID int64) (*Detail, error) {
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.CustomerID != userID {
		return nil, store.ErrOrderNotFound
	}
	return detail(o), nil
}

// GetAnyOrder returns an order regardless of owner.
func (s *Service) GetAnyOrder(ctx context.Context, orderID int64) (*Detail, error) {
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return detail(o), nil
}

func detail(o *domain.Order) *Detail {
	d := &Detail{
		ID:          o.ID,
		CustomerID:  o.CustomerID,
		Status:      o.Status,
		TotalAmount: o.TotalAmount,
		Subtotal:    domain.SumLines(o.Items),
		Payment:     o.Payment,
		Shipping:    o.Shipping,
		Lines:       make([]Line, 0, len(o.Items)),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
	for _, it := range o.Items {
		d.Lines = append(d.Lines, Line{OrderItem: it, LineTotal: it.LineTotal()})
	}
	return d
}

// UpdateStatus moves an order to status. Setting the current status again is a no-op.
func (s *Service) UpdateStatus(ctx context.Context, orderID int64, status domain.OrderStatus) (*domain.Order, error) {
	if !status.IsValid() {
		return nil, ErrInvalidStatus
	}
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status == status {
		return o, nil
	}
	if !o.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, o.Status, status)
	}

	if err := s.store.UpdateOrderStatus(ctx, orderID, o.Status, status); err != nil {
		if errors.Is(err, store.ErrStatusConflict) {
			return nil, fmt.Errorf("%w: order %d changed concurrently", ErrIllegalTransition, orderID)
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}

	s.logger.Info("order status updated",
		zap.Int64("order_id", orderID),
		zap.String("from", o.Status.String()),
		zap.String("to", status.String()))

	o.Status = status
	return o, nil
}
