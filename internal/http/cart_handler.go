package http

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/cart"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/domain"
)

type CartService interface {
	GetCart(ctx context.Context, userID int64) (*cart.Page, error)
	AddItem(ctx context.Context, userID, productID int64, quantity int) (*domain.CartItem, error)
	UpdateQuantity(ctx context.Context, userID, itemID int64, u cart.Update) (*domain.CartItem, bool, error)
	RemoveItem(ctx context.Context, userID, itemID int64) error
}

type CartHandler struct {
	carts   CartService
	timeout time.Duration
	logger  *zap.Logger
}

func NewCartHandler(carts CartService, timeout time.Duration, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		carts:   carts,
		timeout: timeout,
		logger:  logger,
	}
}

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
	Quantity  *int  `json:"quantity,omitempty"`
}

type UpdateItemResponseDTO struct {
	Item    *domain.CartItem `json:"item,omitempty"`
	Removed bool             `json:"removed"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	page, err := h.carts.GetCart(ctx, userID)
	if err != nil {
		mapError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// AddItem defaults to one unit; the service clamps larger requests to stock.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req AddItemRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	item, err := h.carts.AddItem(ctx, userID, req.ProductID, qty)
	if err != nil {
		mapError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, item)
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	itemID, ok := pathID(w, r, "item_id")
	if !ok {
		return
	}

	var req cart.Update
	if !decodeJSON(w, r, &req) {
		return
	}

	item, removed, err := h.carts.UpdateQuantity(ctx, userID, itemID, req)
	if err != nil {
		mapError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, UpdateItemResponseDTO{Item: item, Removed: removed})
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	itemID, ok := pathID(w, r, "item_id")
	if !ok {
		return
	}

	if err := h.carts.RemoveItem(ctx, userID, itemID); err != nil {
		mapError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
