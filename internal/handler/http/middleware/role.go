package middleware

import (
	"fmt"
	"net/http"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/user"
	"github.com/cmlabs-hris/presence-payroll/internal/handler/http/response"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/jwt"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/logging"
)

// RequirePermission runs after AuthRequired and lets through only roles granted the permission.
func RequirePermission(permission user.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := jwt.IdentityFromContext(r.Context())
			if err != nil {
				response.Unauthorized(w, "Invalid or missing token")
				return
			}

			if !user.HasPermission(identity.Role, permission) {
				logging.L(r.Context()).Debug("permission denied",
					"permission", permission, "role", identity.Role, "user_id", identity.UserID)
				response.Forbidden(w, fmt.Sprintf("Role '%s' lacks permission '%s'", identity.Role, permission))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
