package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/malcomtyk21/IS2108-Project-Auroramart/pkg/logger"
)

type ctxKey string

const (
	userIDKey  ctxKey = "user_id"
	isAdminKey ctxKey = "is_admin"

	// UserIDHeader and RoleHeader are set by the authenticating proxy in front of the storefront.
	UserIDHeader = "X-User-ID"
	RoleHeader   = "X-User-Role"
)

// AuthMiddleware puts the caller's user id and role into the request context.
// Requests without a valid id pass through anonymous; handlers reject them.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if userID, err := strconv.ParseInt(r.Header.Get(UserIDHeader), 10, 64); err == nil && userID > 0 {
			ctx = WithUserID(ctx, userID)
			if r.Header.Get(RoleHeader) == "admin" {
				ctx = context.WithValue(ctx, isAdminKey, true)
			}
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdminOnly rejects callers without the admin role.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if getUserIDFromContext(r.Context()) == 0 {
			respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
			return
		}
		if admin, _ := r.Context().Value(isAdminKey).(bool); !admin {
			respondError(w, http.StatusForbidden, "forbidden", "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequestIDMiddleware echoes chi's request id back to the client.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requestID := middleware.GetReqID(r.Context()); requestID != "" {
			w.Header().Set("X-Request-ID", requestID)
		}
		next.ServeHTTP(w, r)
	})
}

func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func getUserIDFromContext(ctx context.Context) int64 {
	if userID, ok := ctx.Value(userIDKey).(int64); ok {
		return userID
	}
	return 0
}

func getRequestID(ctx context.Context) string {
	return middleware.GetReqID(ctx)
}

func requireUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID := getUserIDFromContext(r.Context())
	if userID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return 0, false
	}
	return userID, true
}

// RequestLogger logs one line per request with zap, carrying trace ids when the
// request arrived with trace context.
func RequestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.WithTrace(r.Context(), log).Info("http request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
