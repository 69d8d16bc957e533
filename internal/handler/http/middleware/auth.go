package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/auth"
	"github.com/cmlabs-hris/presence-payroll/internal/handler/http/response"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
)

// AuthRequired accepts only access tokens that carry a tenant.
func AuthRequired(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			token, claims, err := jwtauth.FromContext(r.Context())

			if err != nil {
				response.Unauthorized(w, err.Error())
				return
			}

			if token == nil {
				response.HandleError(w, auth.ErrInvalidToken)
				return
			}

			tokenType, ok := claims["type"].(string)
			if tokenType != "access" || !ok {
				response.HandleError(w, auth.ErrInvalidToken)
				return
			}

			if _, err := jwt.IdentityFromContext(r.Context()); err != nil {
				response.HandleError(w, auth.ErrMissingClaims)
				return
			}

			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(hfn)
	}
}
