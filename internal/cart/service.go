// Package cart keeps each user's cart. Quantities are clamped against stock as a
// convenience only; checkout re-checks everything under lock.
package cart

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/cache"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/domain"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/recommend"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/store"
)

// RecommendationsPerLine caps the suggestions shown next to each cart line.
const RecommendationsPerLine = 5

type Store interface {
	store.Catalog
	store.CartStore
}

type Op string

const (
	OpIncrement Op = "inc"
	OpDecrement Op = "dec"
)

// Update changes a line either to an explicit Quantity or by one step with Op.
type Update struct {
	Quantity *int `json:"quantity,omitempty"`
	Op       Op   `json:"op,omitempty"`
}

// Page is a cart view plus suggestions keyed by cart item id.
type Page struct {
	*domain.CartView
	Recommendations map[int64][]*domain.Product `json:"recommendations"`
}

type CartService struct {
	store  Store
	cache  cache.CartCache
	scorer recommend.Scorer
	logger *zap.Logger
	sfg    singleflight.Group // Prevents cache stampede
}

func NewCartService(s Store, c cache.CartCache, scorer recommend.Scorer, logger *zap.Logger) *CartService {
	return &CartService{
		store:  s,
		cache:  c,
		scorer: scorer,
		logger: logger,
	}
}

func (s *CartService) GetCart(ctx context.Context, userID int64) (*Page, error) {
	view, err := s.getView(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Page{
		CartView:        view,
		Recommendations: s.recommend(ctx, view),
	}, nil
}

// getView loads the cart rows, from cache when possible, and prices them against
// current product state.
func (s *CartService) getView(ctx context.Context, userID int64) (*domain.CartView, error) {
	c, err := s.loadCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(c.Items))
	for _, it := range c.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.store.GetProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load cart products: %w", err)
	}
	return domain.BuildCartView(c, products), nil
}

func (s *CartService) loadCart(ctx context.Context, userID int64) (*domain.Cart, error) {
	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(strconv.FormatInt(userID, 10), func() (interface{}, error) {
		c, err := s.cache.Get(ctx, userID)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("cache get error", zap.Int64("user_id", userID), zap.Error(err))
		}

		// Read before the store so a write landing in between makes the fill a no-op.
		gen, genErr := s.cache.Generation(ctx, userID)
		if genErr != nil {
			s.logger.Warn("cache generation error", zap.Int64("user_id", userID), zap.Error(genErr))
		}

		c, err = s.store.GetOrCreateCart(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("load cart: %w", err)
		}

		if genErr == nil {
			if err := s.cache.Set(ctx, userID, gen, c); err != nil {
				s.logger.Warn("cache set error", zap.Int64("user_id", userID), zap.Error(err))
			}
		}
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Cart), nil
}

func (s *CartService) recommend(ctx context.Context, view *domain.CartView) map[int64][]*domain.Product {
	recs := make(map[int64][]*domain.Product, len(view.Lines))
	for _, line := range view.Lines {
		skus, err := s.scorer.Recommend(ctx, []string{line.SKU}, RecommendationsPerLine)
		if err != nil || len(skus) == 0 {
			continue
		}
		products, err := s.store.GetActiveProductsBySKU(ctx, skus)
		if err != nil {
			s.logger.Warn("load recommended products", zap.Error(err))
			continue
		}
		if len(products) > RecommendationsPerLine {
			products = products[:RecommendationsPerLine]
		}
		recs[line.ItemID] = products
	}
	return recs
}

// AddItem puts quantity units of a product in the cart, merging with an existing line.
// The resulting line quantity never exceeds the product's stock.
func (s *CartService) AddItem(ctx context.Context, userID, productID int64, quantity int) (*domain.CartItem, error) {
	p, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive() {
		return nil, ErrInactiveProduct
	}
	if !p.InStock() {
		return nil, ErrOutOfStock
	}

	qty := domain.ClampQuantity(quantity, domain.MaxLineQuantity)

	existing, err := s.store.FindCartItemByProduct(ctx, userID, productID)
	switch {
	case err == nil:
		qty = domain.ClampQuantity(existing.Quantity+qty, p.QuantityOnHand)
	case errors.Is(err, store.ErrCartItemNotFound):
		qty = min(qty, p.QuantityOnHand)
	default:
		return nil, err
	}

	item, err := s.store.UpsertCartItem(ctx, userID, productID, qty)
	if err != nil {
		s.logger.Error("repo add item error", zap.Int64("user_id", userID), zap.Error(err))
		return nil, err
	}

	s.invalidateCache(userID)
	return item, nil
}

// UpdateQuantity applies u to a cart line. A line whose product has no stock left is
// removed instead, and removed is reported as true.
func (s *CartService) UpdateQuantity(ctx context.Context, userID, itemID int64, u Update) (item *domain.CartItem, removed bool, err error) {
	item, err = s.store.GetCartItem(ctx, userID, itemID)
	if err != nil {
		return nil, false, err
	}
	p, err := s.store.GetProduct(ctx, item.ProductID)
	if err != nil {
		return nil, false, err
	}
	if !p.IsActive() {
		return nil, false, ErrInactiveProduct
	}

	if !p.InStock() {
		if err := s.store.RemoveCartItem(ctx, userID, itemID); err != nil {
			return nil, false, err
		}
		s.invalidateCache(userID)
		return nil, true, nil
	}

	var qty int
	switch {
	case u.Op == OpIncrement:
		qty = min(item.Quantity+1, p.QuantityOnHand)
	case u.Op == OpDecrement:
		qty = max(item.Quantity-1, 1)
	case u.Op == "" && u.Quantity != nil:
		qty = domain.ClampQuantity(*u.Quantity, p.QuantityOnHand)
	default:
		return nil, false, ErrInvalidUpdate
	}

	if err := s.store.UpdateCartItemQuantity(ctx, userID, itemID, qty); err != nil {
		s.logger.Error("repo update item quantity error", zap.Int64("user_id", userID), zap.Error(err))
		return nil, false, err
	}
	item.Quantity = qty

	s.invalidateCache(userID)
	return item, false, nil
}

func (s *CartService) RemoveItem(ctx context.Context, userID, itemID int64) error {
	if err := s.store.RemoveCartItem(ctx, userID, itemID); err != nil {
		if !errors.Is(err, store.ErrCartItemNotFound) {
			s.logger.Error("repo remove item error", zap.Int64("user_id", userID), zap.Error(err))
		}
		return err
	}

	s.invalidateCache(userID)
	return nil
}

func (s *CartService) invalidateCache(userID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.logger.Warn("cache invalidate error", zap.Int64("user_id", userID), zap.Error(err))
	}
}
