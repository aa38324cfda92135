package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers groups everything the router mounts.
type Handlers struct {
	Products *ProductHandler
	Cart     *CartHandler
	Checkout *CheckoutHandler
	Orders   *OrdersHandler
	Admin    *AdminOrdersHandler
	Accounts *AccountHandler
	Store    Pinger
}

func NewRouter(h Handlers, requestTimeout time.Duration, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestIDMiddleware)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(AuthMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.Store.Ping(ctx); err != nil {
			respondError(w, http.StatusServiceUnavailable, "unavailable", "store unavailable")
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.Products.List)
			r.Get("/{product_id}", h.Products.Get)
			r.With(AdminOnly).Post("/", h.Products.Create)
			r.With(AdminOnly).Put("/{product_id}", h.Products.Update)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.Cart.GetCart)
			r.Post("/items", h.Cart.AddItem)
			r.Patch("/items/{item_id}", h.Cart.UpdateQuantity)
			r.Delete("/items/{item_id}", h.Cart.RemoveItem)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", h.Checkout.Preview)
			r.Post("/", h.Checkout.PlaceOrder)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.Orders.ListOrders)
			r.Get("/{order_id}", h.Orders.GetOrder)
			r.With(AdminOnly).Patch("/{order_id}/status", h.Orders.UpdateStatus)
		})

		r.Route("/admin/orders", func(r chi.Router) {
			r.Use(AdminOnly)
			r.Get("/", h.Admin.ListOrders)
			r.Get("/{order_id}", h.Admin.GetOrder)
		})

		r.Route("/account", func(r chi.Router) {
			r.Get("/payments", h.Accounts.ListPayments)
			r.Post("/payments", h.Accounts.AddPayment)
			r.Put("/payments/{payment_id}", h.Accounts.UpdatePayment)
			r.Delete("/payments/{payment_id}", h.Accounts.DeletePayment)

			r.Get("/shippings", h.Accounts.ListShippings)
			r.Post("/shippings", h.Accounts.AddShipping)
			r.Put("/shippings/{shipping_id}", h.Accounts.UpdateShipping)
			r.Delete("/shippings/{shipping_id}", h.Accounts.DeleteShipping)
		})
	})

	return otelhttp.NewHandler(r, "storefront")
}
