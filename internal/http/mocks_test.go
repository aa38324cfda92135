package http

import (
	"context"
	"time"

	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/account"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/cart"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/catalog"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/checkout"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/domain"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/orders"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/store"
)

type CartServiceMock struct {
	page    *cart.Page
	item    *domain.CartItem
	removed bool
	err     error

	gotUserID   int64
	gotProduct  int64
	gotQuantity int
	gotItemID   int64
	gotUpdate   cart.Update
}

func (m *CartServiceMock) GetCart(_ context.Context, userID int64) (*cart.Page, error) {
	m.gotUserID = userID
	return m.page, m.err
}

func (m *CartServiceMock) AddItem(_ context.Context, userID, productID int64, quantity int) (*domain.CartItem, error) {
	m.gotUserID, m.gotProduct, m.gotQuantity = userID, productID, quantity
	return m.item, m.err
}

func (m *CartServiceMock) UpdateQuantity(_ context.Context, userID, itemID int64, u cart.Update) (*domain.CartItem, bool, error) {
	m.gotUserID, m.gotItemID, m.gotUpdate = userID, itemID, u
	return m.item, m.removed, m.err
}

func (m *CartServiceMock) RemoveItem(_ context.Context, userID, itemID int64) error {
	m.gotUserID, m.gotItemID = userID, itemID
	return m.err
}

type CheckoutServiceMock struct {
	preview *checkout.Preview
	order   *domain.Order
	err     error

	gotItemIDs  []int64
	gotRequest  checkout.Request
	gotDeadline time.Time

	// waitForCancel makes PlaceOrder block until its context ends.
	waitForCancel bool
}

func (m *CheckoutServiceMock) Preview(_ context.Context, _ int64, itemIDs []int64) (*checkout.Preview, error) {
	m.gotItemIDs = itemIDs
	return m.preview, m.err
}

func (m *CheckoutServiceMock) PlaceOrder(ctx context.Context, req checkout.Request) (*domain.Order, error) {
	m.gotRequest = req
	m.gotDeadline, _ = ctx.Deadline()
	if m.waitForCancel {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.order, m.err
}

type OrdersServiceMock struct {
	summaries []orders.Summary
	detail    *orders.Detail
	order     *domain.Order
	err       error

	gotOrderID int64
	gotStatus  domain.OrderStatus
}

func (m *OrdersServiceMock) ListOrders(context.Context, int64) ([]orders.Summary, error) {
	return m.summaries, m.err
}

func (m *OrdersServiceMock) GetOrder(_ context.Context, _, orderID int64) (*orders.Detail, error) {
	m.gotOrderID = orderID
	return m.detail, m.err
}

func (m *OrdersServiceMock) UpdateStatus(_ context.Context, orderID int64, status domain.OrderStatus) (*domain.Order, error) {
	m.gotOrderID, m.gotStatus = orderID, status
	return m.order, m.err
}

type AdminOrdersServiceMock struct {
	summaries []orders.Summary
	detail    *orders.Detail
	err       error

	gotFilter  store.OrderFilter
	gotOrderID int64
}

func (m *AdminOrdersServiceMock) ListAllOrders(_ context.Context, f store.OrderFilter) ([]orders.Summary, error) {
	m.gotFilter = f
	return m.summaries, m.err
}

func (m *AdminOrdersServiceMock) GetAnyOrder(_ context.Context, orderID int64) (*orders.Detail, error) {
	m.gotOrderID = orderID
	return m.detail, m.err
}

type CatalogServiceMock struct {
	products []*domain.Product
	page     *catalog.ProductPage
	err      error

	saved *domain.Product
}

func (m *CatalogServiceMock) ListProducts(context.Context) ([]*domain.Product, error) {
	return m.products, m.err
}

func (m *CatalogServiceMock) GetProduct(context.Context, int64) (*catalog.ProductPage, error) {
	return m.page, m.err
}

func (m *CatalogServiceMock) SaveProduct(_ context.Context, p *domain.Product) error {
	m.saved = p
	if m.err == nil && p.ID == 0 {
		p.ID = 100
	}
	return m.err
}

type AccountServiceMock struct {
	payment  *domain.PaymentInformation
	shipping *domain.ShippingInformation
	err      error

	gotPayment  account.PaymentInput
	gotShipping account.ShippingInput
	gotID       int64
}

func (m *AccountServiceMock) AddPayment(_ context.Context, _ int64, in account.PaymentInput) (*domain.PaymentInformation, error) {
	m.gotPayment = in
	return m.payment, m.err
}

func (m *AccountServiceMock) UpdatePayment(_ context.Context, _, id int64, in account.PaymentInput) (*domain.PaymentInformation, error) {
	m.gotID, m.gotPayment = id, in
	return m.payment, m.err
}

func (m *AccountServiceMock) DeletePayment(_ context.Context, _, id int64) error {
	m.gotID = id
	return m.err
}

func (m *AccountServiceMock) ListPayments(context.Context, int64) ([]*domain.PaymentInformation, error) {
	if m.payment == nil {
		return nil, m.err
	}
	return []*domain.PaymentInformation{m.payment}, m.err
}

func (m *AccountServiceMock) AddShipping(_ context.Context, _ int64, in account.ShippingInput) (*domain.ShippingInformation, error) {
	m.gotShipping = in
	return m.shipping, m.err
}

func (m *AccountServiceMock) UpdateShipping(_ context.Context, _, id int64, in account.ShippingInput) (*domain.ShippingInformation, error) {
	m.gotID, m.gotShipping = id, in
	return m.shipping, m.err
}

func (m *AccountServiceMock) DeleteShipping(_ context.Context, _, id int64) error {
	m.gotID = id
	return m.err
}

func (m *AccountServiceMock) ListShippings(context.Context, int64) ([]*domain.ShippingInformation, error) {
	if m.shipping == nil {
		return nil, m.err
	}
	return []*domain.ShippingInformation{m.shipping}, m.err
}
