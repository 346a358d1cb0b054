package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/shashiranjanraj/kirana/pkg/auth"
	"github.com/shashiranjanraj/kirana/pkg/logger"
	"github.com/shashiranjanraj/kirana/pkg/response"
)

type claimsKey struct{}

// bearer reads the Authorization header. Browsers cannot set headers on a
// websocket handshake, so upgrades may pass access_token in the query.
func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
			return r.URL.Query().Get("access_token")
		}
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

func withClaims(r *http.Request, c *auth.Claims) *http.Request {
	ctx := context.WithValue(r.Context(), claimsKey{}, c)
	l := logger.WithCtx(ctx).With("user_id", c.UserID)
	return r.WithContext(logger.InjectLogger(ctx, l))
}

// Auth rejects requests without a valid bearer token and stores the claims
// in the request context.
func Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearer(r)
		if token == "" {
			response.Unauthorized(w)
			return
		}

		claims, err := auth.ValidateToken(token)
		if err != nil {
			response.Error(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		next.ServeHTTP(w, withClaims(r, claims))
	})
}

// OptionalAuth stores the claims when a valid token is present and lets the
// request through either way. Guest shoppers browse and fill carts this way.
func OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := bearer(r); token != "" {
			if claims, err := auth.ValidateToken(token); err == nil {
				r = withClaims(r, claims)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// UserIDFromCtx returns the authenticated user id.
func UserIDFromCtx(r *http.Request) (string, bool) {
	c, ok := r.Context().Value(claimsKey{}).(*auth.Claims)
	if !ok {
		return "", false
	}
	return c.UserID, true
}

// RoleFromCtx returns the authenticated user's role.
func RoleFromCtx(r *http.Request) (string, bool) {
	c, ok := r.Context().Value(claimsKey{}).(*auth.Claims)
	if !ok {
		return "", false
	}
	return c.Role, true
}
