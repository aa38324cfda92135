package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/checkout"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/domain"
)

type CheckoutService interface {
	Preview(ctx context.Context, userID int64, itemIDs []int64) (*checkout.Preview, error)
	PlaceOrder(ctx context.Context, req checkout.Request) (*domain.Order, error)
}

type CheckoutHandler struct {
	checkout CheckoutService
	timeout  time.Duration
	logger   *zap.Logger
}

func NewCheckoutHandler(svc CheckoutService, timeout time.Duration, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: svc,
		timeout:  timeout,
		logger:   logger,
	}
}

// Preview takes the selection as ?items=1,2,3.
func (h *CheckoutHandler) Preview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var itemIDs []int64
	if raw := r.URL.Query().Get("items"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil {
				respondError(w, http.StatusBadRequest, "invalid_items", "items must be a comma separated list of ids")
				return
			}
			itemIDs = append(itemIDs, id)
		}
	}

	preview, err := h.checkout.Preview(ctx, userID, itemIDs)
	if err != nil {
		mapError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, preview)
}

func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	// Stock lock waits give up at the store's lock timeout, which is configured
	// below this deadline so contention reports as a failed transaction.
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req checkout.Request
	if !decodeJSON(w, r, &req) {
		return
	}
	req.UserID = userID

	order, err := h.checkout.PlaceOrder(ctx, req)
	if err != nil {
		mapError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, order)
}
