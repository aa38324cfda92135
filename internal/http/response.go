package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/account"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/cart"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/catalog"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/checkout"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/orders"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/store"
)

type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// StockErrorResponse is returned for insufficient_stock so the client can adjust the line.
type StockErrorResponse struct {
	ErrorResponse
	ProductID int64 `json:"product_id"`
	Requested int   `json:"requested"`
	Available int   `json:"available"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// mapError writes the response for an error returned by a service.
func mapError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	var (
		stockErr *checkout.InsufficientStockError
		txErr    *checkout.TransactionFailedError
		valErr   *account.ValidationError
	)

	switch {
	case errors.Is(err, checkout.ErrNoSelection):
		respondError(w, http.StatusBadRequest, "no_selection", err.Error())
	case errors.Is(err, checkout.ErrMissingPaymentOrShipping):
		respondError(w, http.StatusBadRequest, "missing_payment_or_shipping", err.Error())
	case errors.Is(err, checkout.ErrNoEligibleItems):
		respondError(w, http.StatusConflict, "no_eligible_items", err.Error())
	case errors.As(err, &stockErr):
		respondJSON(w, http.StatusConflict, StockErrorResponse{
			ErrorResponse: ErrorResponse{Error: stockErr.Error(), Code: "insufficient_stock"},
			ProductID:     stockErr.ProductID,
			Requested:     stockErr.Requested,
			Available:     stockErr.Available,
		})
	case errors.As(err, &txErr):
		logger.Warn("checkout transaction failed",
			zap.String("request_id", getRequestID(r.Context())),
			zap.Error(txErr.Err))
		respondError(w, http.StatusServiceUnavailable, "transaction_failed", txErr.Error())
	case errors.Is(err, cart.ErrOutOfStock):
		respondError(w, http.StatusConflict, "out_of_stock", err.Error())
	case errors.Is(err, cart.ErrInactiveProduct):
		respondError(w, http.StatusConflict, "inactive_product", err.Error())
	case errors.Is(err, cart.ErrInvalidUpdate):
		respondError(w, http.StatusBadRequest, "invalid_update", err.Error())
	case errors.As(err, &valErr):
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:  "validation failed",
			Code:   "validation_failed",
			Fields: valErr.Fields,
		})
	case errors.Is(err, orders.ErrIllegalTransition):
		respondError(w, http.StatusConflict, "illegal_transition", err.Error())
	case errors.Is(err, orders.ErrInvalidStatus):
		respondError(w, http.StatusBadRequest, "invalid_status", err.Error())
	case errors.Is(err, orders.ErrInvalidFilter):
		respondError(w, http.StatusBadRequest, "invalid_filter", err.Error())
	case errors.Is(err, catalog.ErrInvalidProduct):
		respondError(w, http.StatusBadRequest, "invalid_product", err.Error())
	case errors.Is(err, store.ErrDuplicateSKU):
		respondError(w, http.StatusConflict, "duplicate_sku", err.Error())
	case errors.Is(err, store.ErrProductNotFound),
		errors.Is(err, store.ErrCartItemNotFound),
		errors.Is(err, store.ErrPaymentNotFound),
		errors.Is(err, store.ErrShippingNotFound),
		errors.Is(err, store.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", getRequestID(r.Context())),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

// pathID parses a positive integer URL parameter.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}
