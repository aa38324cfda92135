package checkout

import (
	"context"
	"errors"
	"sync"

	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/cache"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/domain"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/store"
)

// staleStore serves product reads from a snapshot taken before a concurrent change,
// so the transaction sees different data than validation did.
type staleStore struct {
	*store.MemoryStore
	stale map[int64]*domain.Product
}

func (s *staleStore) GetProducts(ctx context.Context, ids []int64) (map[int64]*domain.Product, error) {
	out, err := s.MemoryStore.GetProducts(ctx, ids)
	if err != nil {
		return nil, err
	}
	for id, p := range s.stale {
		if _, ok := out[id]; ok {
			cp := *p
			out[id] = &cp
		}
	}
	return out, nil
}

var errInjected = errors.New("injected failure")

// failingTxStore makes the named transaction step fail after the real steps before it ran.
type failingTxStore struct {
	*store.MemoryStore
	failOn string
}

func (s *failingTxStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	return s.MemoryStore.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return fn(ctx, &failingTx{Tx: tx, failOn: s.failOn})
	})
}

type failingTx struct {
	store.Tx
	failOn string
}

func (t *failingTx) CreateOrder(ctx context.Context, o *domain.Order) error {
	if t.failOn == "create_order" {
		return errInjected
	}
	return t.Tx.CreateOrder(ctx, o)
}

func (t *failingTx) DeleteCartItems(ctx context.Context, userID int64, ids []int64) error {
	if t.failOn == "delete_cart_items" {
		return errInjected
	}
	return t.Tx.DeleteCartItems(ctx, userID, ids)
}

func (t *failingTx) AddOutboxEvent(ctx context.Context, e *domain.OutboxEvent) error {
	if t.failOn == "add_outbox_event" {
		return errInjected
	}
	return t.Tx.AddOutboxEvent(ctx, e)
}

type mockCache struct {
	m       sync.Mutex
	deleted []int64
	err     error
}

func (m *mockCache) Get(context.Context, int64) (*domain.Cart, error) {
	return nil, cache.ErrCacheMiss
}

func (m *mockCache) Generation(context.Context, int64) (int64, error) { return 0, nil }

func (m *mockCache) Set(context.Context, int64, int64, *domain.Cart) error { return nil }

func (m *mockCache) Delete(_ context.Context, userID int64) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.deleted = append(m.deleted, userID)
	return m.err
}

func (m *mockCache) deletedUsers() []int64 {
	m.m.Lock()
	defer m.m.Unlock()
	return append([]int64(nil), m.deleted...)
}
