package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/domain"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fixture struct {
	t     require.TestingT
	st    *store.MemoryStore
	cache *mockCache
	svc   *Service
}

func newFixture(t *testing.T, lockTimeout time.Duration) *fixture {
	f := openFixture(t, lockTimeout)
	t.Cleanup(func() { f.st.Close() })
	return f
}

// openFixture leaves closing the store to the caller.
func openFixture(t require.TestingT, lockTimeout time.Duration) *fixture {
	st := store.NewMemoryStore(lockTimeout)
	c := &mockCache{}
	return &fixture{t: t, st: st, cache: c, svc: NewService(st, c, zap.NewNop())}
}

func (f *fixture) product(sku, price string, qty int) *domain.Product {
	p := &domain.Product{
		SKU:            sku,
		Name:           "product " + sku,
		UnitPrice:      decimal.RequireFromString(price),
		QuantityOnHand: qty,
		Status:         domain.ProductStatusActive,
	}
	require.NoError(f.t, f.st.SaveProduct(context.Background(), p))
	return p
}

func (f *fixture) setProduct(p *domain.Product) {
	require.NoError(f.t, f.st.SaveProduct(context.Background(), p))
}

func (f *fixture) cartItem(userID, productID int64, qty int) int64 {
	item, err := f.st.UpsertCartItem(context.Background(), userID, productID, qty)
	require.NoError(f.t, err)
	return item.ID
}

func (f *fixture) account(userID int64) (paymentID, shippingID int64) {
	ctx := context.Background()
	p := &domain.PaymentInformation{
		CustomerID:     userID,
		CardLast4:      "4242",
		CardBrand:      "Visa",
		ExpiryMonth:    "12",
		ExpiryYear:     "2030",
		CardholderName: "Tan Ah Kow",
		BillingAddress: "1 Orchard Road",
	}
	require.NoError(f.t, f.st.CreatePayment(ctx, p))
	s := &domain.ShippingInformation{
		CustomerID:    userID,
		AddressLine1:  "1 Orchard Road",
		City:          "Singapore",
		State:         "Singapore",
		PostalCode:    "238801",
		Country:       "Singapore",
		ContactNumber: "91234567",
	}
	require.NoError(f.t, f.st.CreateShipping(ctx, s))
	return p.ID, s.ID
}

func (f *fixture) stock(id int64) int {
	p, err := f.st.GetProduct(context.Background(), id)
	require.NoError(f.t, err)
	return p.QuantityOnHand
}

func (f *fixture) cartItemIDs(userID int64) []int64 {
	c, err := f.st.GetOrCreateCart(context.Background(), userID)
	require.NoError(f.t, err)
	ids := make([]int64, 0, len(c.Items))
	for _, it := range c.Items {
		ids = append(ids, it.ID)
	}
	return ids
}

func (f *fixture) orders(userID int64) []*domain.Order {
	orders, err := f.st.ListOrdersByCustomer(context.Background(), userID)
	require.NoError(f.t, err)
	return orders
}

func (f *fixture) events() []*domain.OutboxEvent {
	events, err := f.st.GetUnprocessedEvents(context.Background(), 100)
	require.NoError(f.t, err)
	return events
}

func TestPlaceOrder_RoundsEachLineBeforeSumming(t *testing.T) {
	f := newFixture(t, time.Second)
	a := f.product("A", "10.00", 5)
	b := f.product("B", "5.005", 5)
	itemA := f.cartItem(1, a.ID, 2)
	itemB := f.cartItem(1, b.ID, 1)
	payID, shipID := f.account(1)

	order, err := f.svc.PlaceOrder(context.Background(), Request{
		UserID:      1,
		CartItemIDs: []int64{itemA, itemB},
		PaymentID:   payID,
		ShippingID:  shipID,
	})
	require.NoError(t, err)

	assert.Equal(t, "25.01", order.TotalAmount.StringFixed(2))
	assert.True(t, order.TotalAmount.Equal(domain.SumLines(order.Items)))
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "5.005", order.Items[1].PriceAtPurchase.String())
	assert.Equal(t, "4242", order.Payment.CardLast4)
	assert.Equal(t, 12, order.Payment.ExpiryMonth)
	assert.Equal(t, 2030, order.Payment.ExpiryYear)
	assert.Equal(t, "238801", order.Shipping.PostalCode)

	assert.Equal(t, 3, f.stock(a.ID))
	assert.Equal(t, 4, f.stock(b.ID))
	assert.Empty(t, f.cartItemIDs(1))
	assert.Equal(t, []int64{1}, f.cache.deletedUsers())

	events := f.events()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventTypeOrderPlaced, events[0].EventType)
	var placed domain.OrderPlacedEvent
	require.NoError(t, json.Unmarshal(events[0].Payload, &placed))
	assert.Equal(t, order.ID, placed.OrderID)
	assert.Equal(t, events[0].ID, placed.EventID)
	assert.Len(t, placed.Items, 2)
}

func TestPlaceOrder_ConcurrentCheckoutsForLastUnits(t *testing.T) {
	f := newFixture(t, 2*time.Second)
	p := f.product("P", "9.99", 5)

	reqs := make([]Request, 2)
	for i := range reqs {
		user := int64(i + 1)
		payID, shipID := f.account(user)
		reqs[i] = Request{
			UserID:      user,
			CartItemIDs: []int64{f.cartItem(user, p.ID, 3)},
			PaymentID:   payID,
			ShippingID:  shipID,
		}
	}

	errs := make([]error, len(reqs))
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range reqs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = f.svc.PlaceOrder(context.Background(), reqs[i])
		}(i)
	}
	close(start)
	wg.Wait()

	var succeeded int
	var stockErr *InsufficientStockError
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.True(t, errors.As(err, &stockErr), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)
	require.NotNil(t, stockErr)
	assert.Equal(t, p.ID, stockErr.ProductID)
	assert.Equal(t, 3, stockErr.Requested)
	assert.Equal(t, 2, stockErr.Available)
	assert.Equal(t, 2, f.stock(p.ID))
}

func TestPlaceOrder_InactiveItemStaysInCart(t *testing.T) {
	f := newFixture(t, time.Second)
	active := f.product("A", "3.00", 5)
	inactive := f.product("I", "4.00", 5)
	activeItem := f.cartItem(1, active.ID, 1)
	inactiveItem := f.cartItem(1, inactive.ID, 1)
	inactive.Status = domain.ProductStatusInactive
	f.setProduct(inactive)
	payID, shipID := f.account(1)

	order, err := f.svc.PlaceOrder(context.Background(), Request{
		UserID:      1,
		CartItemIDs: []int64{activeItem, inactiveItem},
		PaymentID:   payID,
		ShippingID:  shipID,
	})
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, active.ID, order.Items[0].ProductID)
	assert.Equal(t, []int64{inactiveItem}, f.cartItemIDs(1))
	assert.Equal(t, 5, f.stock(inactive.ID))
}

func TestPlaceOrder_UnselectedItemsRemain(t *testing.T) {
	f := newFixture(t, time.Second)
	a := f.product("A", "3.00", 5)
	b := f.product("B", "4.00", 5)
	itemA := f.cartItem(1, a.ID, 1)
	itemB := f.cartItem(1, b.ID, 1)
	payID, shipID := f.account(1)

	_, err := f.svc.PlaceOrder(context.Background(), Request{
		UserID: 1, CartItemIDs: []int64{itemA}, PaymentID: payID, ShippingID: shipID,
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{itemB}, f.cartItemIDs(1))
}

func TestPlaceOrder_NoSelection(t *testing.T) {
	f := newFixture(t, time.Second)
	p := f.product("A", "3.00", 5)
	mine := f.cartItem(1, p.ID, 1)
	theirs := f.cartItem(2, p.ID, 1)
	payID, shipID := f.account(1)

	for name, ids := range map[string][]int64{
		"empty":         nil,
		"other user":    {theirs},
		"unknown items": {9999},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.PlaceOrder(context.Background(), Request{
				UserID: 1, CartItemIDs: ids, PaymentID: payID, ShippingID: shipID,
			})
			assert.ErrorIs(t, err, ErrNoSelection)
		})
	}

	assert.Equal(t, 5, f.stock(p.ID))
	assert.Equal(t, []int64{mine}, f.cartItemIDs(1))
	assert.Empty(t, f.orders(1))
	assert.Empty(t, f.events())
}

func TestPlaceOrder_MissingPaymentOrShipping(t *testing.T) {
	f := newFixture(t, time.Second)
	p := f.product("A", "3.00", 5)
	item := f.cartItem(1, p.ID, 1)
	payID, shipID := f.account(1)
	otherPay, otherShip := f.account(2)

	tests := []struct {
		name      string
		pay, ship int64
	}{
		{"no payment", 0, shipID},
		{"no shipping", payID, 0},
		{"other user's payment", otherPay, shipID},
		{"other user's shipping", payID, otherShip},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.PlaceOrder(context.Background(), Request{
				UserID: 1, CartItemIDs: []int64{item}, PaymentID: tt.pay, ShippingID: tt.ship,
			})
			assert.ErrorIs(t, err, ErrMissingPaymentOrShipping)
		})
	}
	assert.Empty(t, f.orders(1))
}

func TestPlaceOrder_NoEligibleItems(t *testing.T) {
	f := newFixture(t, time.Second)
	p := f.product("A", "3.00", 5)
	item := f.cartItem(1, p.ID, 1)
	p.Status = domain.ProductStatusInactive
	f.setProduct(p)
	payID, shipID := f.account(1)

	_, err := f.svc.PlaceOrder(context.Background(), Request{
		UserID: 1, CartItemIDs: []int64{item}, PaymentID: payID, ShippingID: shipID,
	})
	assert.ErrorIs(t, err, ErrNoEligibleItems)
	assert.Equal(t, []int64{item}, f.cartItemIDs(1))
}

func TestPlaceOrder_InsufficientStockLeavesNoTrace(t *testing.T) {
	f := newFixture(t, time.Second)
	a := f.product("A", "3.00", 5)
	b := f.product("B", "4.00", 5)
	itemA := f.cartItem(1, a.ID, 2)
	itemB := f.cartItem(1, b.ID, 5)
	b.QuantityOnHand = 4
	f.setProduct(b)
	payID, shipID := f.account(1)

	_, err := f.svc.PlaceOrder(context.Background(), Request{
		UserID: 1, CartItemIDs: []int64{itemA, itemB}, PaymentID: payID, ShippingID: shipID,
	})
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, b.ID, stockErr.ProductID)
	assert.Equal(t, 5, stockErr.Requested)
	assert.Equal(t, 4, stockErr.Available)
	assert.Contains(t, stockErr.Error(), "product B")

	assert.Equal(t, 5, f.stock(a.ID))
	assert.Equal(t, 4, f.stock(b.ID))
	assert.ElementsMatch(t, []int64{itemA, itemB}, f.cartItemIDs(1))
	assert.Empty(t, f.orders(1))
	assert.Empty(t, f.events())
	assert.Empty(t, f.cache.deletedUsers())
}

func TestPlaceOrder_LockTimeoutIsTransactionFailed(t *testing.T) {
	f := newFixture(t, 50*time.Millisecond)
	p := f.product("A", "3.00", 5)
	item := f.cartItem(1, p.ID, 1)
	payID, shipID := f.account(1)

	locked := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- f.st.WithinTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
			if _, err := tx.LockAndRead(ctx, []int64{p.ID}); err != nil {
				return err
			}
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked

	_, err := f.svc.PlaceOrder(context.Background(), Request{
		UserID: 1, CartItemIDs: []int64{item}, PaymentID: payID, ShippingID: shipID,
	})
	close(release)
	require.NoError(t, <-done)

	var txErr *TransactionFailedError
	require.ErrorAs(t, err, &txErr)
	assert.ErrorIs(t, err, store.ErrLockTimeout)
	assert.NotContains(t, txErr.Error(), "lock")
	assert.Equal(t, 5, f.stock(p.ID))
	assert.Equal(t, []int64{item}, f.cartItemIDs(1))
}

func TestPlaceOrder_FailureMidTransactionRollsBack(t *testing.T) {
	for _, step := range []string{"create_order", "delete_cart_items", "add_outbox_event"} {
		t.Run(step, func(t *testing.T) {
			f := newFixture(t, time.Second)
			p := f.product("A", "3.00", 5)
			item := f.cartItem(1, p.ID, 2)
			payID, shipID := f.account(1)
			svc := NewService(&failingTxStore{MemoryStore: f.st, failOn: step}, f.cache, zap.NewNop())

			_, err := svc.PlaceOrder(context.Background(), Request{
				UserID: 1, CartItemIDs: []int64{item}, PaymentID: payID, ShippingID: shipID,
			})
			var txErr *TransactionFailedError
			require.ErrorAs(t, err, &txErr)
			assert.ErrorIs(t, err, errInjected)

			assert.Equal(t, 5, f.stock(p.ID))
			assert.Equal(t, []int64{item}, f.cartItemIDs(1))
			assert.Empty(t, f.orders(1))
			assert.Empty(t, f.events())

			// locks were released
			order, err := f.svc.PlaceOrder(context.Background(), Request{
				UserID: 1, CartItemIDs: []int64{item}, PaymentID: payID, ShippingID: shipID,
			})
			require.NoError(t, err)
			assert.Len(t, order.Items, 1)
		})
	}
}

func TestPlaceOrder_UsesPriceReadUnderLock(t *testing.T) {
	f := newFixture(t, time.Second)
	p := f.product("A", "10.00", 5)
	item := f.cartItem(1, p.ID, 3)
	payID, shipID := f.account(1)

	stale := *p
	p.UnitPrice = decimal.RequireFromString("12.345")
	f.setProduct(p)

	svc := NewService(&staleStore{MemoryStore: f.st, stale: map[int64]*domain.Product{p.ID: &stale}}, f.cache, zap.NewNop())
	order, err := svc.PlaceOrder(context.Background(), Request{
		UserID: 1, CartItemIDs: []int64{item}, PaymentID: payID, ShippingID: shipID,
	})
	require.NoError(t, err)
	assert.Equal(t, "12.345", order.Items[0].PriceAtPurchase.String())
	assert.Equal(t, "37.04", order.TotalAmount.StringFixed(2))
}

func TestPlaceOrder_DeactivatedAfterValidation(t *testing.T) {
	f := newFixture(t, time.Second)
	a := f.product("A", "1.00", 5)
	b := f.product("B", "2.00", 5)
	itemA := f.cartItem(1, a.ID, 1)
	itemB := f.cartItem(1, b.ID, 1)
	payID, shipID := f.account(1)

	staleB := *b
	b.Status = domain.ProductStatusInactive
	f.setProduct(b)
	svc := NewService(&staleStore{MemoryStore: f.st, stale: map[int64]*domain.Product{b.ID: &staleB}}, f.cache, zap.NewNop())

	order, err := svc.PlaceOrder(context.Background(), Request{
		UserID: 1, CartItemIDs: []int64{itemA, itemB}, PaymentID: payID, ShippingID: shipID,
	})
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, a.ID, order.Items[0].ProductID)
	assert.Equal(t, []int64{itemB}, f.cartItemIDs(1))

	_, err = svc.PlaceOrder(context.Background(), Request{
		UserID: 1, CartItemIDs: []int64{itemB}, PaymentID: payID, ShippingID: shipID,
	})
	assert.ErrorIs(t, err, ErrNoEligibleItems)
}

func TestPlaceOrder_SnapshotSurvivesAccountChanges(t *testing.T) {
	f := newFixture(t, time.Second)
	p := f.product("A", "1.00", 5)
	item := f.cartItem(1, p.ID, 1)
	payID, shipID := f.account(1)
	ctx := context.Background()

	order, err := f.svc.PlaceOrder(ctx, Request{
		UserID: 1, CartItemIDs: []int64{item}, PaymentID: payID, ShippingID: shipID,
	})
	require.NoError(t, err)

	require.NoError(t, f.st.DeletePayment(ctx, 1, payID))
	sh, err := f.st.GetShipping(ctx, 1, shipID)
	require.NoError(t, err)
	sh.City = "Johor Bahru"
	require.NoError(t, f.st.UpdateShipping(ctx, sh))

	stored, err := f.st.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "4242", stored.Payment.CardLast4)
	assert.Equal(t, "Singapore", stored.Shipping.City)
}

func TestPlaceOrder_CacheFailureDoesNotFailCheckout(t *testing.T) {
	f := newFixture(t, time.Second)
	f.cache.err = fmt.Errorf("redis down")
	p := f.product("A", "1.00", 5)
	item := f.cartItem(1, p.ID, 1)
	payID, shipID := f.account(1)

	_, err := f.svc.PlaceOrder(context.Background(), Request{
		UserID: 1, CartItemIDs: []int64{item}, PaymentID: payID, ShippingID: shipID,
	})
	require.NoError(t, err)
}

func TestPreview(t *testing.T) {
	f := newFixture(t, time.Second)
	a := f.product("A", "10.00", 5)
	b := f.product("B", "5.005", 5)
	c := f.product("C", "1.00", 5)
	itemA := f.cartItem(1, a.ID, 2)
	itemB := f.cartItem(1, b.ID, 1)
	itemC := f.cartItem(1, c.ID, 1)
	c.Status = domain.ProductStatusInactive
	f.setProduct(c)
	f.account(1)
	f.account(1)

	preview, err := f.svc.Preview(context.Background(), 1, []int64{itemA, itemB, itemC})
	require.NoError(t, err)
	assert.Len(t, preview.Lines, 2)
	assert.Equal(t, "25.01", preview.Subtotal.StringFixed(2))
	require.Len(t, preview.Payments, 2)
	assert.Greater(t, preview.Payments[0].ID, preview.Payments[1].ID)
	assert.Len(t, preview.Shippings, 2)

	_, err = f.svc.Preview(context.Background(), 1, nil)
	assert.ErrorIs(t, err, ErrNoSelection)
	_, err = f.svc.Preview(context.Background(), 1, []int64{itemC})
	assert.ErrorIs(t, err, ErrNoEligibleItems)
}

func TestBuildPaymentSnapshot_BadExpiry(t *testing.T) {
	snap := BuildPaymentSnapshot(&domain.PaymentInformation{CardLast4: "1111", ExpiryMonth: "xx", ExpiryYear: " 2031 "})
	assert.Equal(t, 0, snap.ExpiryMonth)
	assert.Equal(t, 2031, snap.ExpiryYear)
}

func TestPlaceOrder_TotalsAndStockProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		f := openFixture(rt, time.Second)
		defer f.st.Close()
		payID, shipID := f.account(1)

		n := rapid.IntRange(1, 6).Draw(rt, "lines")
		var ids []int64
		initial := map[int64]int{}
		for i := 0; i < n; i++ {
			price := decimal.New(rapid.Int64Range(1, 10_000_000).Draw(rt, "price_thousandths"), -3)
			stock := rapid.IntRange(1, 20).Draw(rt, "stock")
			p := f.product(fmt.Sprintf("SKU-%d", i), price.String(), stock)
			qty := rapid.IntRange(1, 25).Draw(rt, "qty")
			ids = append(ids, f.cartItem(1, p.ID, qty))
			initial[p.ID] = stock
		}

		order, err := f.svc.PlaceOrder(context.Background(), Request{
			UserID: 1, CartItemIDs: ids, PaymentID: payID, ShippingID: shipID,
		})
		if err != nil {
			var stockErr *InsufficientStockError
			if !errors.As(err, &stockErr) {
				rt.Fatalf("unexpected error: %v", err)
			}
			for id, q := range initial {
				if f.stock(id) != q {
					rt.Fatalf("stock of %d changed after failed checkout", id)
				}
			}
			if len(f.orders(1)) != 0 {
				rt.Fatalf("order persisted after failed checkout")
			}
			return
		}

		sum := decimal.Zero
		for _, it := range order.Items {
			sum = sum.Add(it.PriceAtPurchase.Mul(decimal.NewFromInt(int64(it.Quantity))).Round(2))
			left := f.stock(it.ProductID)
			if left < 0 || left != initial[it.ProductID]-it.Quantity {
				rt.Fatalf("stock of %d is %d after ordering %d of %d", it.ProductID, left, it.Quantity, initial[it.ProductID])
			}
		}
		if !sum.Equal(order.TotalAmount) {
			rt.Fatalf("total %s != sum of lines %s", order.TotalAmount, sum)
		}
	})
}

func TestPlaceOrder_RaceForLastUnitsProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		f := openFixture(rt, 5*time.Second)
		defer f.st.Close()

		buyers := rapid.IntRange(2, 8).Draw(rt, "buyers")
		stock := rapid.IntRange(0, 6).Draw(rt, "stock")
		p := f.product("LAST", "1.50", buyers)

		reqs := make([]Request, buyers)
		for i := range reqs {
			user := int64(i + 1)
			payID, shipID := f.account(user)
			reqs[i] = Request{UserID: user, CartItemIDs: []int64{f.cartItem(user, p.ID, 1)}, PaymentID: payID, ShippingID: shipID}
		}
		p.QuantityOnHand = stock
		f.setProduct(p)

		var succeeded int
		var mu sync.Mutex
		var wg sync.WaitGroup
		for _, req := range reqs {
			wg.Add(1)
			go func(req Request) {
				defer wg.Done()
				_, err := f.svc.PlaceOrder(context.Background(), req)
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					succeeded++
				}
			}(req)
		}
		wg.Wait()

		if want := min(stock, buyers); succeeded != want {
			rt.Fatalf("%d checkouts succeeded, want %d", succeeded, want)
		}
		if left := f.stock(p.ID); left != stock-succeeded || left < 0 {
			rt.Fatalf("stock left %d, want %d", left, stock-succeeded)
		}
	})
}
