package http

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/account"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/domain"
)

type AccountService interface {
	AddPayment(ctx context.Context, userID int64, in account.PaymentInput) (*domain.PaymentInformation, error)
	UpdatePayment(ctx context.Context, userID, id int64, in account.PaymentInput) (*domain.PaymentInformation, error)
	DeletePayment(ctx context.Context, userID, id int64) error
	ListPayments(ctx context.Context, userID int64) ([]*domain.PaymentInformation, error)

	AddShipping(ctx context.Context, userID int64, in account.ShippingInput) (*domain.ShippingInformation, error)
	UpdateShipping(ctx context.Context, userID, id int64, in account.ShippingInput) (*domain.ShippingInformation, error)
	DeleteShipping(ctx context.Context, userID, id int64) error
	ListShippings(ctx context.Context, userID int64) ([]*domain.ShippingInformation, error)
}

type AccountHandler struct {
	accounts AccountService
	timeout  time.Duration
	logger   *zap.Logger
}

func NewAccountHandler(svc AccountService, timeout time.Duration, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{
		accounts: svc,
		timeout:  timeout,
		logger:   logger,
	}
}

type PaymentsResponse struct {
	Payments []*domain.PaymentInformation `json:"payments"`
}

type ShippingsResponse struct {
	Shippings []*domain.ShippingInformation `json:"shippings"`
}

func (h *AccountHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	payments, err := h.accounts.ListPayments(ctx, userID)
	if err != nil {
		mapError(w, r, h.logger, err)
		return
	}
	if payments == nil {
		payments = []*domain.PaymentInformation{}
	}
	respondJSON(w, http.StatusOK, PaymentsResponse{Payments: payments})
}

func (h *AccountHandler) AddPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var in account.PaymentInput
	if !decodeJSON(w, r, &in) {
		return
	}

	p, err := h.accounts.AddPayment(ctx, userID, in)
	if err != nil {
		mapError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

func (h *AccountHandler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "payment_id")
	if !ok {
		return
	}

	var in account.PaymentInput
	if !decodeJSON(w, r, &in) {
		return
	}

	p, err := h.accounts.UpdatePayment(ctx, userID, id, in)
	if err != nil {
		mapError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *AccountHandler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "payment_id")
	if !ok {
		return
	}

	if err := h.accounts.DeletePayment(ctx, userID, id); err != nil {
		mapError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AccountHandler) ListShippings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	shippings, err := h.accounts.ListShippings(ctx, userID)
	if err != nil {
		mapError(w, r, h.logger, err)
		return
	}
	if shippings == nil {
		shippings = []*domain.ShippingInformation{}
	}
	respondJSON(w, http.StatusOK, ShippingsResponse{Shippings: shippings})
}

func (h *AccountHandler) AddShipping(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var in account.ShippingInput
	if !decodeJSON(w, r, &in) {
		return
	}

	s, err := h.accounts.AddShipping(ctx, userID, in)
	if err != nil {
		mapError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, s)
}

func (h *AccountHandler) UpdateShipping(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "shipping_id")
	if !ok {
		return
	}

	var in account.ShippingInput
	if !decodeJSON(w, r, &in) {
		return
	}

	s, err := h.accounts.UpdateShipping(ctx, userID, id, in)
	if err != nil {
		mapError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, s)
}

func (h *AccountHandler) DeleteShipping(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "shipping_id")
	if !ok {
		return
	}

	if err := h.accounts.DeleteShipping(ctx, userID, id); err != nil {
		mapError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
