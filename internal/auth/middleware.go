// Package auth authenticates callers of the admin surface. End users never
// reach this service directly: the upstream gateway authenticates them and
// forwards only the identity, while service-to-service callers present an
// API key.
package auth

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/aegis-authz/aegis/internal/shared"
)

const (
	apiKeyHeader = "X-Api-Key"
	userHeader   = "X-Auth-User"
)

// Middleware wires request authentication for HTTP handlers.
type Middleware struct {
	// APIKeyHash is the bcrypt hash of the shared admin API key.
	APIKeyHash string
	Logger     *slog.Logger
}

// RequireAPIKey rejects requests whose X-Api-Key does not match the
// configured hash. With no hash configured every request is rejected;
// an unauthenticated admin surface is never the default.
func (m Middleware) RequireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSpace(r.Header.Get(apiKeyHeader))
		if m.APIKeyHash == "" || key == "" {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(m.APIKeyHash), []byte(key)); err != nil {
			if m.Logger != nil {
				m.Logger.Warn("api key rejected", slog.String("remote", r.RemoteAddr))
			}
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithPrincipal extracts the gateway-asserted user identity into context.
// Requests without the header pass through unauthenticated; guarded routes
// deny them later.
func (m Middleware) WithPrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(userHeader))
		if raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err == nil && id > 0 {
				ctx := shared.ContextWithPrincipal(r.Context(), shared.Principal{UserID: id})
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			if m.Logger != nil {
				m.Logger.Warn("invalid auth user header", slog.String("value", raw))
			}
		}
		next.ServeHTTP(w, r)
	})
}
