package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/domain"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/orders"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/store"
)

type AdminOrdersService interface {
	ListAllOrders(ctx context.Context, f store.OrderFilter) ([]orders.Summary, error)
	GetAnyOrder(ctx context.Context, orderID int64) (*orders.Detail, error)
}

// AdminOrdersHandler serves staff order reads. Routes are mounted behind AdminOnly.
type AdminOrdersHandler struct {
	orders  AdminOrdersService
	timeout time.Duration
	logger  *zap.Logger
}

func NewAdminOrdersHandler(svc AdminOrdersService, timeout time.Duration, logger *zap.Logger) *AdminOrdersHandler {
	return &AdminOrdersHandler{
		orders:  svc,
		timeout: timeout,
		logger:  logger,
	}
}

// ListOrders accepts status, customer_id, min_total, max_total, from and to.
// Dates are RFC 3339 or YYYY-MM-DD.
func (h *AdminOrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	f, field, ok := parseOrderFilter(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_filter", "malformed query parameter "+field)
		return
	}

	list, err := h.orders.ListAllOrders(ctx, f)
	if err != nil {
		mapError(w, r, h.logger, err)
		return
	}
	if list == nil {
		list = []orders.Summary{}
	}
	respondJSON(w, http.StatusOK, OrdersResponse{Orders: list})
}

func (h *AdminOrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID, ok := pathID(w, r, "order_id")
	if !ok {
		return
	}

	detail, err := h.orders.GetAnyOrder(ctx, orderID)
	if err != nil {
		mapError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

// parseOrderFilter returns the offending parameter name when ok is false.
func parseOrderFilter(r *http.Request) (f store.OrderFilter, field string, ok bool) {
	q := r.URL.Query()
	f.Status = domain.OrderStatus(q.Get("status"))

	if raw := q.Get("customer_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return f, "customer_id", false
		}
		f.CustomerID = id
	}
	for _, p := range []struct {
		name string
		dst  *decimal.NullDecimal
	}{{"min_total", &f.MinTotal}, {"max_total", &f.MaxTotal}} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return f, p.name, false
		}
		*p.dst = decimal.NewNullDecimal(d)
	}
	for _, p := range []struct {
		name string
		dst  *time.Time
	}{{"from", &f.From}, {"to", &f.To}} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		t, err := parseDate(raw)
		if err != nil {
			return f, p.name, false
		}
		*p.dst = t
	}
	return f, "", true
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, raw)
}
