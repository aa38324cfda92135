package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/domain"
)

const (
	// OutboxRetention is how long processed outbox events are kept before being purged
	OutboxRetention = time.Hour

	// CleanupInterval is how often the background cleanup runs
	CleanupInterval = 30 * time.Second
)

// MemoryStore implements Store with in-memory storage. Product rows are guarded by
// one-slot semaphores so that a transaction can hold them across calls and give up
// after the lock timeout.
type MemoryStore struct {
	mu        sync.RWMutex
	products  map[int64]*domain.Product
	carts     map[int64]*domain.Cart // userID -> cart
	payments  map[int64]*domain.PaymentInformation
	shippings map[int64]*domain.ShippingInformation
	orders    map[int64]*domain.Order
	outbox    []*domain.OutboxEvent
	lastID    int64

	locksMu     sync.Mutex
	locks       map[int64]chan struct{} // productID -> row lock
	lockTimeout time.Duration

	stopCleanup chan struct{}
	wg          sync.WaitGroup
}

// NewMemoryStore creates a new in-memory store. lockTimeout bounds how long a
// transaction waits for a product lock.
func NewMemoryStore(lockTimeout time.Duration) *MemoryStore {
	s := &MemoryStore{
		products:    make(map[int64]*domain.Product),
		carts:       make(map[int64]*domain.Cart),
		payments:    make(map[int64]*domain.PaymentInformation),
		shippings:   make(map[int64]*domain.ShippingInformation),
		orders:      make(map[int64]*domain.Order),
		locks:       make(map[int64]chan struct{}),
		lockTimeout: lockTimeout,
		stopCleanup: make(chan struct{}),
	}

	// Start background cleanup goroutine
	s.wg.Add(1)
	go s.cleanupLoop()

	return s
}

// cleanupLoop periodically purges published outbox events
func (s *MemoryStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.purgeProcessedEvents(time.Now().Add(-OutboxRetention))
		case <-s.stopCleanup:
			return
		}
	}
}

func (s *MemoryStore) purgeProcessedEvents(before time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outbox = slices.DeleteFunc(s.outbox, func(e *domain.OutboxEvent) bool {
		return e.ProcessedAt != nil && e.ProcessedAt.Before(before)
	})
}

// nextID must be called with s.mu held for writing.
func (s *MemoryStore) nextID() int64 {
	s.lastID++
	return s.lastID
}

func (s *MemoryStore) rowLock(id int64) chan struct{} {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = make(chan struct{}, 1)
		s.locks[id] = l
	}
	return l
}

func (s *MemoryStore) acquire(ctx context.Context, id int64) error {
	select {
	case s.rowLock(id) <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("product %d: %w", id, ErrLockTimeout)
	}
}

func (s *MemoryStore) release(id int64) {
	<-s.rowLock(id)
}

// ---- Catalog ----

func (s *MemoryStore) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) GetProducts(_ context.Context, ids []int64) (map[int64]*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[int64]*domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			cp := *p
			result[id] = &cp
		}
	}
	return result, nil
}

func (s *MemoryStore) GetActiveProductsBySKU(_ context.Context, skus []string) ([]*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Product, 0, len(skus))
	for _, sku := range skus {
		for _, p := range s.products {
			if p.SKU == sku && p.IsActive() {
				cp := *p
				result = append(result, &cp)
				break
			}
		}
	}
	return result, nil
}

func (s *MemoryStore) ListActiveProducts(_ context.Context) ([]*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if p.IsActive() {
			cp := *p
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// SaveProduct takes the product's row lock for updates, so admin edits wait for
// in-flight checkouts the same way an UPDATE waits on a locked row.
func (s *MemoryStore) SaveProduct(ctx context.Context, p *domain.Product) error {
	if p.QuantityOnHand < 0 {
		return fmt.Errorf("quantity_on_hand must not be negative, got %d", p.QuantityOnHand)
	}

	if p.ID == 0 {
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, existing := range s.products {
			if existing.SKU == p.SKU {
				return ErrDuplicateSKU
			}
		}
		p.ID = s.nextID()
		if p.CreatedAt.IsZero() {
			p.CreatedAt = time.Now()
		}
		cp := *p
		s.products[p.ID] = &cp
		return nil
	}

	lctx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()
	if err := s.acquire(lctx, p.ID); err != nil {
		return err
	}
	defer s.release(p.ID)

	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.products[p.ID]
	if !ok {
		return ErrProductNotFound
	}
	cp := *p
	cp.CreatedAt = existing.CreatedAt
	s.products[p.ID] = &cp
	return nil
}

// ---- Cart ----

// cartFor must be called with s.mu held for writing.
func (s *MemoryStore) cartFor(userID int64) *domain.Cart {
	c, ok := s.carts[userID]
	if !ok {
		now := time.Now()
		c = &domain.Cart{ID: s.nextID(), UserID: userID, CreatedAt: now, UpdatedAt: now}
		s.carts[userID] = c
	}
	return c
}

func copyCart(c *domain.Cart) *domain.Cart {
	cp := *c
	cp.Items = slices.Clone(c.Items)
	return &cp
}

func (s *MemoryStore) GetOrCreateCart(_ context.Context, userID int64) (*domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyCart(s.cartFor(userID)), nil
}

func (s *MemoryStore) GetCartItem(_ context.Context, userID, itemID int64) (*domain.CartItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.carts[userID]
	if !ok {
		return nil, ErrCartItemNotFound
	}
	for _, it := range c.Items {
		if it.ID == itemID {
			cp := it
			return &cp, nil
		}
	}
	return nil, ErrCartItemNotFound
}

func (s *MemoryStore) GetCartItems(_ context.Context, userID int64, itemIDs []int64) ([]domain.CartItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.carts[userID]
	if !ok {
		return nil, nil
	}
	var result []domain.CartItem
	for _, it := range c.Items {
		if slices.Contains(itemIDs, it.ID) {
			result = append(result, it)
		}
	}
	return result, nil
}

func (s *MemoryStore) FindCartItemByProduct(_ context.Context, userID, productID int64) (*domain.CartItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.carts[userID]
	if !ok {
		return nil, ErrCartItemNotFound
	}
	for _, it := range c.Items {
		if it.ProductID == productID {
			cp := it
			return &cp, nil
		}
	}
	return nil, ErrCartItemNotFound
}

func (s *MemoryStore) UpsertCartItem(_ context.Context, userID, productID int64, quantity int) (*domain.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.cartFor(userID)
	now := time.Now()
	c.UpdatedAt = now
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity = quantity
			cp := c.Items[i]
			return &cp, nil
		}
	}

	item := domain.CartItem{
		ID:        s.nextID(),
		CartID:    c.ID,
		ProductID: productID,
		Quantity:  quantity,
		AddedAt:   now,
	}
	c.Items = append(c.Items, item)
	return &item, nil
}

func (s *MemoryStore) UpdateCartItemQuantity(_ context.Context, userID, itemID int64, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.carts[userID]
	if !ok {
		return ErrCartItemNotFound
	}
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items[i].Quantity = quantity
			c.UpdatedAt = time.Now()
			return nil
		}
	}
	return ErrCartItemNotFound
}

func (s *MemoryStore) RemoveCartItem(_ context.Context, userID, itemID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.carts[userID]
	if !ok {
		return ErrCartItemNotFound
	}
	n := len(c.Items)
	c.Items = slices.DeleteFunc(c.Items, func(it domain.CartItem) bool { return it.ID == itemID })
	if len(c.Items) == n {
		return ErrCartItemNotFound
	}
	c.UpdatedAt = time.Now()
	return nil
}

// ---- Accounts ----

func (s *MemoryStore) CreatePayment(_ context.Context, p *domain.PaymentInformation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = s.nextID()
	p.CreatedAt = time.Now()
	cp := *p
	s.payments[p.ID] = &cp
	return nil
}

func (s *MemoryStore) UpdatePayment(_ context.Context, p *domain.PaymentInformation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.payments[p.ID]
	if !ok || existing.CustomerID != p.CustomerID {
		return ErrPaymentNotFound
	}
	cp := *p
	cp.CreatedAt = existing.CreatedAt
	s.payments[p.ID] = &cp
	return nil
}

func (s *MemoryStore) DeletePayment(_ context.Context, customerID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.payments[id]
	if !ok || existing.CustomerID != customerID {
		return ErrPaymentNotFound
	}
	delete(s.payments, id)
	return nil
}

func (s *MemoryStore) GetPayment(_ context.Context, customerID, id int64) (*domain.PaymentInformation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.payments[id]
	if !ok || p.CustomerID != customerID {
		return nil, ErrPaymentNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) ListPayments(_ context.Context, customerID int64) ([]*domain.PaymentInformation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PaymentInformation
	for _, p := range s.payments {
		if p.CustomerID == customerID {
			cp := *p
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

func (s *MemoryStore) CreateShipping(_ context.Context, sh *domain.ShippingInformation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sh.ID = s.nextID()
	sh.CreatedAt = time.Now()
	cp := *sh
	s.shippings[sh.ID] = &cp
	return nil
}

func (s *MemoryStore) UpdateShipping(_ context.Context, sh *domain.ShippingInformation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.shippings[sh.ID]
	if !ok || existing.CustomerID != sh.CustomerID {
		return ErrShippingNotFound
	}
	cp := *sh
	cp.CreatedAt = existing.CreatedAt
	s.shippings[sh.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteShipping(_ context.Context, customerID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.shippings[id]
	if !ok || existing.CustomerID != customerID {
		return ErrShippingNotFound
	}
	delete(s.shippings, id)
	return nil
}

func (s *MemoryStore) GetShipping(_ context.Context, customerID, id int64) (*domain.ShippingInformation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sh, ok := s.shippings[id]
	if !ok || sh.CustomerID != customerID {
		return nil, ErrShippingNotFound
	}
	cp := *sh
	return &cp, nil
}

func (s *MemoryStore) ListShippings(_ context.Context, customerID int64) ([]*domain.ShippingInformation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ShippingInformation
	for _, sh := range s.shippings {
		if sh.CustomerID == customerID {
			cp := *sh
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

// ---- Orders ----

func copyOrder(o *domain.Order) *domain.Order {
	cp := *o
	cp.Items = slices.Clone(o.Items)
	return &cp
}

func (s *MemoryStore) GetOrder(_ context.Context, orderID int64) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return copyOrder(o), nil
}

func (s *MemoryStore) ListOrdersByCustomer(ctx context.Context, customerID int64) ([]*domain.Order, error) {
	return s.ListOrders(ctx, OrderFilter{CustomerID: customerID})
}

func (s *MemoryStore) ListOrders(_ context.Context, f OrderFilter) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Order
	for _, o := range s.orders {
		if f.Matches(o) {
			result = append(result, copyOrder(o))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *MemoryStore) UpdateOrderStatus(_ context.Context, orderID int64, from, to domain.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return ErrOrderNotFound
	}
	if o.Status != from {
		return ErrStatusConflict
	}
	o.Status = to
	o.UpdatedAt = time.Now()
	return nil
}

// ---- Outbox ----

func (s *MemoryStore) GetUnprocessedEvents(_ context.Context, limit int) ([]*domain.OutboxEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.OutboxEvent
	for _, e := range s.outbox {
		if e.ProcessedAt != nil {
			continue
		}
		cp := *e
		result = append(result, &cp)
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

func (s *MemoryStore) MarkEventAsProcessed(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.outbox {
		if e.ID == id {
			now := time.Now()
			e.ProcessedAt = &now
			return nil
		}
	}
	return fmt.Errorf("outbox event %s not found", id)
}

// ---- Transactions ----

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx := &memoryTx{
		s:     s,
		held:  make(map[int64]struct{}),
		stock: make(map[int64]int),
	}
	defer tx.releaseLocks()

	if err := fn(ctx, tx); err != nil {
		tx.done = true
		return err
	}
	if err := ctx.Err(); err != nil {
		tx.done = true
		return fmt.Errorf("commit: %w", err)
	}

	tx.commit()
	return nil
}

type cartDeletion struct {
	userID  int64
	itemIDs []int64
}

// memoryTx buffers writes and applies them under the store mutex on commit.
type memoryTx struct {
	s    *MemoryStore
	held map[int64]struct{}
	done bool

	stock     map[int64]int
	orders    []*domain.Order
	deletions []cartDeletion
	events    []*domain.OutboxEvent
}

func (tx *memoryTx) LockAndRead(ctx context.Context, ids []int64) (map[int64]*domain.Product, error) {
	if tx.done {
		return nil, ErrTxDone
	}

	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	lctx, cancel := context.WithTimeout(ctx, tx.s.lockTimeout)
	defer cancel()
	for _, id := range sorted {
		if _, ok := tx.held[id]; ok {
			continue
		}
		if err := tx.s.acquire(lctx, id); err != nil {
			return nil, err
		}
		tx.held[id] = struct{}{}
	}

	tx.s.mu.RLock()
	defer tx.s.mu.RUnlock()

	result := make(map[int64]*domain.Product, len(sorted))
	for _, id := range sorted {
		p, ok := tx.s.products[id]
		if !ok {
			return nil, fmt.Errorf("product %d: %w", id, ErrProductNotFound)
		}
		cp := *p
		if q, ok := tx.stock[id]; ok {
			cp.QuantityOnHand = q
		}
		result[id] = &cp
	}
	return result, nil
}

func (tx *memoryTx) Decrement(_ context.Context, id int64, amount int) error {
	if tx.done {
		return ErrTxDone
	}
	if amount < 0 {
		return fmt.Errorf("decrement amount must not be negative, got %d", amount)
	}
	if _, ok := tx.held[id]; !ok {
		return fmt.Errorf("product %d: %w", id, ErrNotLocked)
	}

	current, ok := tx.stock[id]
	if !ok {
		tx.s.mu.RLock()
		p, exists := tx.s.products[id]
		if exists {
			current = p.QuantityOnHand
		}
		tx.s.mu.RUnlock()
		if !exists {
			return fmt.Errorf("product %d: %w", id, ErrProductNotFound)
		}
	}
	tx.stock[id] = max(0, current-amount)
	return nil
}

func (tx *memoryTx) CreateOrder(_ context.Context, order *domain.Order) error {
	if tx.done {
		return ErrTxDone
	}

	tx.s.mu.Lock()
	order.ID = tx.s.nextID()
	for i := range order.Items {
		order.Items[i].ID = tx.s.nextID()
		order.Items[i].OrderID = order.ID
	}
	tx.s.mu.Unlock()

	now := time.Now()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = order.CreatedAt
	tx.orders = append(tx.orders, copyOrder(order))
	return nil
}

func (tx *memoryTx) DeleteCartItems(_ context.Context, userID int64, itemIDs []int64) error {
	if tx.done {
		return ErrTxDone
	}
	tx.deletions = append(tx.deletions, cartDeletion{userID: userID, itemIDs: slices.Clone(itemIDs)})
	return nil
}

func (tx *memoryTx) AddOutboxEvent(_ context.Context, event *domain.OutboxEvent) error {
	if tx.done {
		return ErrTxDone
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	cp := *event
	tx.events = append(tx.events, &cp)
	return nil
}

func (tx *memoryTx) commit() {
	s := tx.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, q := range tx.stock {
		if p, ok := s.products[id]; ok {
			p.QuantityOnHand = q
		}
	}
	for _, o := range tx.orders {
		s.orders[o.ID] = o
	}
	for _, d := range tx.deletions {
		if c, ok := s.carts[d.userID]; ok {
			c.Items = slices.DeleteFunc(c.Items, func(it domain.CartItem) bool {
				return slices.Contains(d.itemIDs, it.ID)
			})
			c.UpdatedAt = time.Now()
		}
	}
	s.outbox = append(s.outbox, tx.events...)
	tx.done = true
}

func (tx *memoryTx) releaseLocks() {
	for id := range tx.held {
		tx.s.release(id)
	}
	tx.held = nil
	tx.done = true
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

// Close stops the background cleanup and waits for it to finish
func (s *MemoryStore) Close() error {
	close(s.stopCleanup)
	s.wg.Wait()
	return nil
}
