package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/extgov-platform/extgov/internal/api"
)

type contextKey string

const AdminClaimsKey contextKey = "admin_claims"

// Middleware guards admin routes with bearer-token auth.
func Middleware(svc *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.HandleError(w, api.ErrUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				api.HandleError(w, api.ErrUnauthorized)
				return
			}

			claims, err := svc.ValidateToken(parts[1])
			if err != nil {
				api.HandleError(w, api.ErrInvalidToken)
				return
			}

			ctx := context.WithValue(r.Context(), AdminClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAdminClaims returns the claims set by Middleware, or nil.
func GetAdminClaims(ctx context.Context) *Claims {
	claims, _ := ctx.Value(AdminClaimsKey).(*Claims)
	return claims
}
