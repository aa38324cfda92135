package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/domain"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/recommend"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/store"
)

// RelatedProducts is how many recommendations accompany a product page.
const RelatedProducts = 5

var ErrInvalidProduct = errors.New("invalid product")

// ProductPage is a product with the active products frequently bought with it.
type ProductPage struct {
	*domain.Product
	Related []*domain.Product `json:"related"`
}

type Service struct {
	store  store.Catalog
	scorer recommend.Scorer
	logger *zap.Logger
}

func NewService(s store.Catalog, scorer recommend.Scorer, logger *zap.Logger) *Service {
	return &Service{store: s, scorer: scorer, logger: logger}
}

func (s *Service) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	products, err := s.store.ListActiveProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// GetProduct hides inactive products from shoppers.
func (s *Service) GetProduct(ctx context.Context, id int64) (*ProductPage, error) {
	p, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive() {
		return nil, store.ErrProductNotFound
	}

	page := &ProductPage{Product: p, Related: []*domain.Product{}}
	skus, err := s.scorer.Recommend(ctx, []string{p.SKU}, RelatedProducts)
	if err != nil || len(skus) == 0 {
		return page, nil
	}
	related, err := s.store.GetActiveProductsBySKU(ctx, skus)
	if err != nil {
		s.logger.Warn("failed to load related products", zap.Int64("product_id", id), zap.Error(err))
		return page, nil
	}
	page.Related = related
	return page, nil
}

// SaveProduct creates the product when ID is zero and replaces it otherwise.
func (s *Service) SaveProduct(ctx context.Context, p *domain.Product) error {
	if err := validateProduct(p); err != nil {
		return err
	}
	if p.ID != 0 {
		if _, err := s.store.GetProduct(ctx, p.ID); err != nil {
			return err
		}
	}
	if err := s.store.SaveProduct(ctx, p); err != nil {
		return err
	}
	s.logger.Info("product saved",
		zap.Int64("product_id", p.ID),
		zap.String("sku", p.SKU),
		zap.String("status", string(p.Status)),
		zap.Int("quantity_on_hand", p.QuantityOnHand))
	return nil
}

func validateProduct(p *domain.Product) error {
	p.SKU = strings.TrimSpace(p.SKU)
	p.Name = strings.TrimSpace(p.Name)
	if p.Status == "" {
		p.Status = domain.ProductStatusActive
	}

	switch {
	case p.SKU == "":
		return fmt.Errorf("%w: sku is required", ErrInvalidProduct)
	case p.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	case p.UnitPrice.LessThan(decimal.Zero):
		return fmt.Errorf("%w: unit price must not be negative", ErrInvalidProduct)
	case p.QuantityOnHand < 0:
		return fmt.Errorf("%w: quantity on hand must not be negative", ErrInvalidProduct)
	case p.Status != domain.ProductStatusActive && p.Status != domain.ProductStatusInactive:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidProduct, p.Status)
	}
	return nil
}
