package http

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/catalog"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/domain"
)

type CatalogService interface {
	ListProducts(ctx context.Context) ([]*domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*catalog.ProductPage, error)
	SaveProduct(ctx context.Context, p *domain.Product) error
}

type ProductHandler struct {
	catalog CatalogService
	timeout time.Duration
	logger  *zap.Logger
}

func NewProductHandler(svc CatalogService, timeout time.Duration, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		catalog: svc,
		timeout: timeout,
		logger:  logger,
	}
}

type ProductsResponse struct {
	Products []*domain.Product `json:"products"`
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.catalog.ListProducts(ctx)
	if err != nil {
		mapError(w, r, h.logger, err)
		return
	}
	if products == nil {
		products = []*domain.Product{}
	}
	respondJSON(w, http.StatusOK, &ProductsResponse{Products: products})
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := pathID(w, r, "product_id")
	if !ok {
		return
	}

	page, err := h.catalog.GetProduct(ctx, id)
	if err != nil {
		mapError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var p domain.Product
	if !decodeJSON(w, r, &p) {
		return
	}
	p.ID = 0

	if err := h.catalog.SaveProduct(ctx, &p); err != nil {
		mapError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, &p)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := pathID(w, r, "product_id")
	if !ok {
		return
	}

	var p domain.Product
	if !decodeJSON(w, r, &p) {
		return
	}
	p.ID = id

	if err := h.catalog.SaveProduct(ctx, &p); err != nil {
		mapError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, &p)
}
