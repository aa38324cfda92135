package cart

import (
	"context"
	"sync"

	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/cache"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/domain"
)

type mockCache struct {
	m       sync.RWMutex
	cart    *domain.Cart
	gen     int64
	err     error
	deletes int
}

func (m *mockCache) Get(context.Context, int64) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.cart == nil {
		return nil, cache.ErrCacheMiss
	}
	return m.cart, nil
}

func (m *mockCache) Generation(context.Context, int64) (int64, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.gen, m.err
}

func (m *mockCache) Set(_ context.Context, _, gen int64, cart *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	if gen == m.gen {
		m.cart = cart
	}
	return nil
}

func (m *mockCache) Delete(context.Context, int64) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.cart = nil
	m.gen++
	m.deletes++
	return m.err
}

func (m *mockCache) getCart() *domain.Cart {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.cart
}

func (m *mockCache) deleteCount() int {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.deletes
}

// heldCache delays Set until release is closed, standing in for a slow cache write.
type heldCache struct {
	cache.CartCache
	parked  chan struct{}
	release chan struct{}
}

func newHeldCache(inner cache.CartCache) *heldCache {
	return &heldCache{CartCache: inner, parked: make(chan struct{}, 1), release: make(chan struct{})}
}

func (h *heldCache) Set(ctx context.Context, userID, gen int64, cart *domain.Cart) error {
	select {
	case h.parked <- struct{}{}:
	default:
	}
	<-h.release
	return h.CartCache.Set(ctx, userID, gen, cart)
}

type mockScorer struct {
	m     sync.Mutex
	bySKU map[string][]string
	calls int
}

func (m *mockScorer) Recommend(_ context.Context, skus []string, topN int) ([]string, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.calls++
	var out []string
	for _, sku := range skus {
		out = append(out, m.bySKU[sku]...)
	}
	if len(out) > topN {
		out = out[:topN]
	}
	return out, nil
}
