package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/domain"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/recommend"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/store"
)

type stubScorer struct {
	skus []string
	err  error
	got  []string
}

func (s *stubScorer) Recommend(_ context.Context, skus []string, _ int) ([]string, error) {
	s.got = skus
	return s.skus, s.err
}

func newTestService(t *testing.T, scorer recommend.Scorer) (*Service, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore(time.Second)
	t.Cleanup(func() { _ = st.Close() })
	return NewService(st, scorer, zap.NewNop()), st
}

func seed(t *testing.T, st *store.MemoryStore, sku string, status domain.ProductStatus) *domain.Product {
	t.Helper()
	p := &domain.Product{
		SKU:            sku,
		Name:           "Product " + sku,
		UnitPrice:      decimal.RequireFromString("9.90"),
		QuantityOnHand: 10,
		Status:         status,
	}
	require.NoError(t, st.SaveProduct(context.Background(), p))
	return p
}

func TestListProducts_OnlyActive(t *testing.T) {
	svc, st := newTestService(t, recommend.NoopScorer{})
	active := seed(t, st, "A-1", domain.ProductStatusActive)
	seed(t, st, "B-1", domain.ProductStatusInactive)

	products, err := svc.ListProducts(context.Background())

	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, active.ID, products[0].ID)
}

func TestGetProduct_WithRelated(t *testing.T) {
	scorer := &stubScorer{skus: []string{"B-1", "C-1", "GONE"}}
	svc, st := newTestService(t, scorer)
	a := seed(t, st, "A-1", domain.ProductStatusActive)
	seed(t, st, "B-1", domain.ProductStatusActive)
	seed(t, st, "C-1", domain.ProductStatusInactive)

	page, err := svc.GetProduct(context.Background(), a.ID)

	require.NoError(t, err)
	assert.Equal(t, []string{"A-1"}, scorer.got)
	require.Len(t, page.Related, 1)
	assert.Equal(t, "B-1", page.Related[0].SKU)
}

func TestGetProduct_ScorerFailureStillReturnsProduct(t *testing.T) {
	svc, st := newTestService(t, &stubScorer{err: errors.New("model offline")})
	a := seed(t, st, "A-1", domain.ProductStatusActive)

	page, err := svc.GetProduct(context.Background(), a.ID)

	require.NoError(t, err)
	assert.Equal(t, a.ID, page.ID)
	assert.Empty(t, page.Related)
}

func TestGetProduct_InactiveIsNotFound(t *testing.T) {
	svc, st := newTestService(t, recommend.NoopScorer{})
	p := seed(t, st, "A-1", domain.ProductStatusInactive)

	_, err := svc.GetProduct(context.Background(), p.ID)
	assert.ErrorIs(t, err, store.ErrProductNotFound)

	_, err = svc.GetProduct(context.Background(), 9999)
	assert.ErrorIs(t, err, store.ErrProductNotFound)
}

func TestSaveProduct(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, recommend.NoopScorer{})

	p := &domain.Product{SKU: "  NEW-1 ", Name: "New", UnitPrice: decimal.RequireFromString("1.50"), QuantityOnHand: 3}
	require.NoError(t, svc.SaveProduct(ctx, p))
	assert.NotZero(t, p.ID)
	assert.Equal(t, "NEW-1", p.SKU)
	assert.Equal(t, domain.ProductStatusActive, p.Status)

	p.QuantityOnHand = 7
	p.Status = domain.ProductStatusInactive
	require.NoError(t, svc.SaveProduct(ctx, p))

	stored, err := st.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, stored.QuantityOnHand)
	assert.False(t, stored.IsActive())

	dup := &domain.Product{SKU: "NEW-1", Name: "Copy", UnitPrice: decimal.NewFromInt(1)}
	assert.ErrorIs(t, svc.SaveProduct(ctx, dup), store.ErrDuplicateSKU)

	missing := &domain.Product{ID: 4242, SKU: "X", Name: "X", UnitPrice: decimal.NewFromInt(1)}
	assert.ErrorIs(t, svc.SaveProduct(ctx, missing), store.ErrProductNotFound)
}

func TestSaveProduct_Invalid(t *testing.T) {
	svc, _ := newTestService(t, recommend.NoopScorer{})

	tests := []struct {
		name    string
		product domain.Product
	}{
		{"missing sku", domain.Product{Name: "x", UnitPrice: decimal.NewFromInt(1)}},
		{"missing name", domain.Product{SKU: "x", UnitPrice: decimal.NewFromInt(1)}},
		{"negative price", domain.Product{SKU: "x", Name: "x", UnitPrice: decimal.NewFromInt(-1)}},
		{"negative stock", domain.Product{SKU: "x", Name: "x", QuantityOnHand: -1}},
		{"unknown status", domain.Product{SKU: "x", Name: "x", Status: "Archived"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.product
			assert.ErrorIs(t, svc.SaveProduct(context.Background(), &p), ErrInvalidProduct)
		})
	}
}
