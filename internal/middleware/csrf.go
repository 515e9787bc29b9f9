package middleware

import (
	"net/http"

	"go-trip-planner/internal/auth"
	"go-trip-planner/internal/metrics"
	"go-trip-planner/pkg/apierror"
)

type CSRFMiddleware struct {
	guard   *auth.CsrfGuard
	metrics *metrics.Metrics
}

func NewCSRFMiddleware(guard *auth.CsrfGuard, m *metrics.Metrics) *CSRFMiddleware {
	return &CSRFMiddleware{guard: guard, metrics: m}
}

// RequireCSRF rejects state-changing requests unless the csrf_token cookie
// and the X-CSRF-Token header are present and equal. The response does not
// say which one was wrong.
func (m *CSRFMiddleware) RequireCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isMutating(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		var cookieValue string
		if c, err := r.Cookie(auth.CSRFCookieName); err == nil {
			cookieValue = c.Value
		}

		if !m.guard.Validate(cookieValue, r.Header.Get(auth.CSRFHeaderName)) {
			m.metrics.CSRFRejected()
			writeAPIError(w, apierror.CSRFInvalid())
			return
		}

		next.ServeHTTP(w, r)
	})
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}
