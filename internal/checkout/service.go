// Package checkout turns selected cart lines into an order in one transaction.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/cache"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/domain"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/store"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/pkg/logger"
)

type Store interface {
	store.Catalog
	store.CartStore
	store.AccountStore
	store.TxRunner
}

type Request struct {
	UserID      int64   `json:"-"`
	CartItemIDs []int64 `json:"cart_item_ids"`
	PaymentID   int64   `json:"payment_id"`
	ShippingID  int64   `json:"shipping_id"`
}

// Preview is what the customer confirms before placing an order.
type Preview struct {
	Lines     []domain.CartLine             `json:"lines"`
	Subtotal  decimal.Decimal               `json:"subtotal"`
	Payments  []*domain.PaymentInformation  `json:"payments"`
	Shippings []*domain.ShippingInformation `json:"shippings"`
}

type Service struct {
	store  Store
	cache  cache.CartCache
	logger *zap.Logger
}

func NewService(s Store, c cache.CartCache, logger *zap.Logger) *Service {
	return &Service{store: s, cache: c, logger: logger}
}

// workItem is a selected cart line whose product was active when validated.
type workItem struct {
	item    domain.CartItem
	product *domain.Product
}

// selectWorkingSet resolves the selection to the user's cart lines and drops lines
// whose product is missing or inactive.
func (s *Service) selectWorkingSet(ctx context.Context, userID int64, itemIDs []int64) ([]workItem, error) {
	if len(itemIDs) == 0 {
		return nil, ErrNoSelection
	}
	items, err := s.store.GetCartItems(ctx, userID, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("load selected items: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrNoSelection
	}

	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.store.GetProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	working := make([]workItem, 0, len(items))
	for _, it := range items {
		p, ok := products[it.ProductID]
		if !ok || !p.IsActive() {
			continue
		}
		working = append(working, workItem{item: it, product: p})
	}
	return working, nil
}

func (s *Service) Preview(ctx context.Context, userID int64, itemIDs []int64) (*Preview, error) {
	working, err := s.selectWorkingSet(ctx, userID, itemIDs)
	if err != nil {
		return nil, err
	}
	if len(working) == 0 {
		return nil, ErrNoEligibleItems
	}

	preview := &Preview{Lines: make([]domain.CartLine, 0, len(working)), Subtotal: decimal.Zero}
	for _, w := range working {
		line := domain.CartLine{
			ItemID:    w.item.ID,
			ProductID: w.product.ID,
			SKU:       w.product.SKU,
			Name:      w.product.Name,
			UnitPrice: w.product.UnitPrice,
			Quantity:  w.item.Quantity,
			LineTotal: domain.LineTotal(w.product.UnitPrice, w.item.Quantity),
			Active:    true,
			Available: w.product.QuantityOnHand,
		}
		preview.Subtotal = preview.Subtotal.Add(line.LineTotal)
		preview.Lines = append(preview.Lines, line)
	}

	if preview.Payments, err = s.store.ListPayments(ctx, userID); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	if preview.Shippings, err = s.store.ListShippings(ctx, userID); err != nil {
		return nil, fmt.Errorf("list shippings: %w", err)
	}
	return preview, nil
}

// PlaceOrder validates the selection, then locks the products, checks stock, writes the
// order, decrements stock and clears the ordered lines in a single transaction.
func (s *Service) PlaceOrder(ctx context.Context, req Request) (*domain.Order, error) {
	log := logger.WithTrace(ctx, s.logger).With(zap.Int64("user_id", req.UserID))

	working, err := s.selectWorkingSet(ctx, req.UserID, req.CartItemIDs)
	if err != nil {
		return nil, err
	}

	payment, shipping, err := s.resolveSnapshots(ctx, req)
	if err != nil {
		return nil, err
	}

	if len(working) == 0 {
		return nil, ErrNoEligibleItems
	}

	var order *domain.Order
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		order, err = placeOrderTx(ctx, tx, req.UserID, working, payment, shipping)
		return err
	})
	if err != nil {
		var stockErr *InsufficientStockError
		switch {
		case errors.As(err, &stockErr):
			log.Info("checkout rejected, insufficient stock",
				zap.Int64("product_id", stockErr.ProductID),
				zap.Int("requested", stockErr.Requested),
				zap.Int("available", stockErr.Available))
			return nil, stockErr
		case errors.Is(err, ErrNoEligibleItems):
			return nil, ErrNoEligibleItems
		default:
			log.Error("checkout transaction failed", zap.Error(err))
			return nil, &TransactionFailedError{Err: err}
		}
	}

	s.invalidateCache(req.UserID)

	log.Info("order placed",
		zap.Int64("order_id", order.ID),
		zap.Int("items", len(order.Items)),
		zap.String("total_amount", order.TotalAmount.StringFixed(2)))
	return order, nil
}

func (s *Service) resolveSnapshots(ctx context.Context, req Request) (domain.PaymentSnapshot, domain.ShippingSnapshot, error) {
	payment, err := s.store.GetPayment(ctx, req.UserID, req.PaymentID)
	if errors.Is(err, store.ErrPaymentNotFound) {
		return domain.PaymentSnapshot{}, domain.ShippingSnapshot{}, ErrMissingPaymentOrShipping
	}
	if err != nil {
		return domain.PaymentSnapshot{}, domain.ShippingSnapshot{}, fmt.Errorf("load payment: %w", err)
	}
	shipping, err := s.store.GetShipping(ctx, req.UserID, req.ShippingID)
	if errors.Is(err, store.ErrShippingNotFound) {
		return domain.PaymentSnapshot{}, domain.ShippingSnapshot{}, ErrMissingPaymentOrShipping
	}
	if err != nil {
		return domain.PaymentSnapshot{}, domain.ShippingSnapshot{}, fmt.Errorf("load shipping: %w", err)
	}
	return BuildPaymentSnapshot(payment), BuildShippingSnapshot(shipping), nil
}

func placeOrderTx(
	ctx context.Context,
	tx store.Tx,
	userID int64,
	working []workItem,
	payment domain.PaymentSnapshot,
	shipping domain.ShippingSnapshot,
) (*domain.Order, error) {
	ids := make([]int64, 0, len(working))
	for _, w := range working {
		ids = append(ids, w.item.ProductID)
	}
	locked, err := tx.LockAndRead(ctx, ids)
	if err != nil {
		return nil, err
	}

	// A product deactivated after validation drops out here and its line stays in the cart.
	items := make([]domain.OrderItem, 0, len(working))
	cartItemIDs := make([]int64, 0, len(working))
	for _, w := range working {
		p := locked[w.item.ProductID]
		if !p.IsActive() {
			continue
		}
		if w.item.Quantity > p.QuantityOnHand {
			return nil, &InsufficientStockError{
				ProductID:   p.ID,
				ProductName: p.Name,
				Requested:   w.item.Quantity,
				Available:   p.QuantityOnHand,
			}
		}
		items = append(items, domain.OrderItem{
			ProductID:       p.ID,
			ProductName:     p.Name,
			Quantity:        w.item.Quantity,
			PriceAtPurchase: p.UnitPrice,
		})
		cartItemIDs = append(cartItemIDs, w.item.ID)
	}
	if len(items) == 0 {
		return nil, ErrNoEligibleItems
	}

	order := &domain.Order{
		CustomerID:  userID,
		TotalAmount: domain.SumLines(items),
		Status:      domain.OrderStatusPending,
		Payment:     payment,
		Shipping:    shipping,
		Items:       items,
		CreatedAt:   time.Now().UTC(),
	}
	if err := tx.CreateOrder(ctx, order); err != nil {
		return nil, err
	}
	for _, it := range items {
		if err := tx.Decrement(ctx, it.ProductID, it.Quantity); err != nil {
			return nil, err
		}
	}
	if err := tx.DeleteCartItems(ctx, userID, cartItemIDs); err != nil {
		return nil, err
	}

	event, err := orderPlacedEvent(order)
	if err != nil {
		return nil, err
	}
	if err := tx.AddOutboxEvent(ctx, event); err != nil {
		return nil, err
	}
	return order, nil
}

func orderPlacedEvent(order *domain.Order) (*domain.OutboxEvent, error) {
	eventID := uuid.NewString()
	payload := domain.OrderPlacedEvent{
		EventID:     eventID,
		OrderID:     order.ID,
		CustomerID:  order.CustomerID,
		TotalAmount: order.TotalAmount,
		Items:       make([]domain.OrderPlacedItem, 0, len(order.Items)),
		PlacedAt:    order.CreatedAt,
	}
	for _, it := range order.Items {
		payload.Items = append(payload.Items, domain.OrderPlacedItem{
			ProductID:       it.ProductID,
			Quantity:        it.Quantity,
			PriceAtPurchase: it.PriceAtPurchase,
		})
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal order placed event: %w", err)
	}
	return &domain.OutboxEvent{
		ID:          eventID,
		AggregateID: strconv.FormatInt(order.ID, 10),
		EventType:   domain.EventTypeOrderPlaced,
		Payload:     data,
	}, nil
}

func (s *Service) invalidateCache(userID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.logger.Warn("cache invalidate error", zap.Int64("user_id", userID), zap.Error(err))
	}
}
