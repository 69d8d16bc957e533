package middleware

import (
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/presence-payroll/internal/pkg/logging"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// RequestContext puts the base logger and chi's request id on the request context,
// so logging.L(ctx) in services tags every line with the request.
func RequestContext(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logging.WithLogger(r.Context(), logger)
			if reqID := chiMiddleware.GetReqID(ctx); reqID != "" {
				ctx = logging.WithRequestID(ctx, reqID)
				w.Header().Set(chiMiddleware.RequestIDHeader, reqID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
