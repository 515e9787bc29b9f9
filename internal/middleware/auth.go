package middleware

import (
	"context"
	"net/http"
	"strings"

	"go-trip-planner/internal/auth"
	"go-trip-planner/internal/model"
	"go-trip-planner/pkg/apierror"
)

type sessionAuthenticator interface {
	Authenticate(token string) (*model.AuthClaims, error)
}

type contextKey string

const authClaimsContextKey contextKey = "auth_claims"

// AuthMiddleware reads the session cookie.
type AuthMiddleware struct {
	authenticator sessionAuthenticator
}

func NewAuthMiddleware(authenticator sessionAuthenticator) *AuthMiddleware {
	return &AuthMiddleware{authenticator: authenticator}
}

func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := m.claims(r)
		if !ok {
			writeAPIError(w, apierror.Unauthorized())
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), authClaimsContextKey, claims)))
	})
}

// Identify attaches claims when a valid session is present and lets the
// request through either way.
func (m *AuthMiddleware) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims, ok := m.claims(r); ok {
			r = r.WithContext(context.WithValue(r.Context(), authClaimsContextKey, claims))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRoles must run after RequireAuth.
func (m *AuthMiddleware) RequireRoles(allowedRoles ...string) func(http.Handler) http.Handler {
	roleSet := make(map[string]struct{}, len(allowedRoles))
	for _, role := range allowedRoles {
		roleSet[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeAPIError(w, apierror.Unauthorized())
				return
			}
			if _, allowed := roleSet[strings.ToLower(claims.Role)]; !allowed {
				writeAPIError(w, apierror.Forbidden())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m *AuthMiddleware) claims(r *http.Request) (*model.AuthClaims, bool) {
	cookie, err := r.Cookie(auth.SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, false
	}
	claims, err := m.authenticator.Authenticate(cookie.Value)
	if err != nil {
		return nil, false
	}
	return claims, true
}

func ClaimsFromContext(ctx context.Context) (*model.AuthClaims, bool) {
	claims, ok := ctx.Value(authClaimsContextKey).(*model.AuthClaims)
	return claims, ok
}
