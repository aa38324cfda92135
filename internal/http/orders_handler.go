package http

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/domain"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/orders"
)

type OrdersService interface {
	ListOrders(ctx context.Context, userID int64) ([]orders.Summary, error)
	GetOrder(ctx context.Context, userID, orderID int64) (*orders.Detail, error)
	UpdateStatus(ctx context.Context, orderID int64, status domain.OrderStatus) (*domain.Order, error)
}

type OrdersHandler struct {
	orders  OrdersService
	timeout time.Duration
	logger  *zap.Logger
}

func NewOrdersHandler(svc OrdersService, timeout time.Duration, logger *zap.Logger) *OrdersHandler {
	return &OrdersHandler{
		orders:  svc,
		timeout: timeout,
		logger:  logger,
	}
}

type OrdersResponse struct {
	Orders []orders.Summary `json:"orders"`
}

type UpdateStatusRequestDTO struct {
	Status domain.OrderStatus `json:"status"`
}

func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	list, err := h.orders.ListOrders(ctx, userID)
	if err != nil {
		mapError(w, r, h.logger, err)
		return
	}
	if list == nil {
		list = []orders.Summary{}
	}
	respondJSON(w, http.StatusOK, OrdersResponse{Orders: list})
}

func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	orderID, ok := pathID(w, r, "order_id")
	if !ok {
		return
	}

	detail, err := h.orders.GetOrder(ctx, userID, orderID)
	if err != nil {
		mapError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

// UpdateStatus is mounted behind AdminOnly.
func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID, ok := pathID(w, r, "order_id")
	if !ok {
		return
	}

	var req UpdateStatusRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	order, err := h.orders.UpdateStatus(ctx, orderID, req.Status)
	if err != nil {
		mapError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}
