package handlers

import (
	"net/http"
	"strings"

	"gitlab.com/dutbench.net/internal/adapter/crypto"
	"gitlab.com/dutbench.net/internal/config"
	"gitlab.com/dutbench.net/internal/core/ports/primary"
)

// MiddlewareProvider guards routes with an HMAC signed bearer token.
// An empty secret disables the check.
type MiddlewareProvider struct {
	SecretOption string
	tokens       primary.JWTService
}

func NewMiddlewareProvider(secret string) *MiddlewareProvider {
	return &MiddlewareProvider{
		SecretOption: secret,
		tokens:       crypto.NewJWTService(&config.JwtConfig{Secret: secret}),
	}
}

func (m *MiddlewareProvider) Enabled() bool {
	return m != nil && m.SecretOption != ""
}

func (m *MiddlewareProvider) JWTMiddleware(next http.Handler) http.Handler {
	if !m.Enabled() {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			ResponseError(w, "Authorization header missing", http.StatusUnauthorized)
			return
		}

		// Extract token from "Bearer <token>"
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		valid, err := m.tokens.VerifyTokenHMAC(r.Context(), tokenString)
		if err != nil || !valid {
			ResponseError(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
