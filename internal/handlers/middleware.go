package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/msalmeida123/sistema-clube-sub003/internal/apperrors"
	"github.com/msalmeida123/sistema-clube-sub003/internal/services"
)

type contextKey string

const claimsKey contextKey = "claims"

// AuthMiddleware validates the bearer token and stores the claims in the
// request context. Websocket clients may pass the token as ?token= since
// browsers cannot set headers on websocket upgrades.
func AuthMiddleware(authService *services.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ""
			if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				token = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			}
			if token == "" {
				token = r.URL.Query().Get("token")
			}
			if token == "" {
				respondError(w, r, apperrors.Authentication("token de autenticação ausente"))
				return
			}

			claims, err := authService.ValidateToken(token)
			if err != nil {
				respondError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFrom extracts the authenticated claims placed by AuthMiddleware.
func ClaimsFrom(r *http.Request) (*services.JWTClaims, bool) {
	claims, ok := r.Context().Value(claimsKey).(*services.JWTClaims)
	return claims, ok
}
