package api

import (
	"context"
	"net/http"
	"strings"

	"refwallet/internal/services/account"
)

type ctxKey int

const claimsKey ctxKey = iota

// AuthMiddleware validates the bearer token and stores the verified
// (userId, path) claims on the request context.
func AuthMiddleware(accounts *account.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "missing or invalid Authorization header")
				return
			}

			claims, err := accounts.ParseToken(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// claimsFromContext returns the claims placed by AuthMiddleware.
func claimsFromContext(ctx context.Context) (*account.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*account.Claims)
	return claims, ok
}
