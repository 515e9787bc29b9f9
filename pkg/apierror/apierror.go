package apierror

import (
	"fmt"
	"net/http"
)

type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	HTTPStatus int    `json:"-"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}

	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func New(code string, message string, details string, status int) *APIError {
	return &APIError{Code: code, Message: message, Details: details, HTTPStatus: status}
}

// Client-visible security failures. Messages are deliberately generic so a
// response never reveals which internal check rejected the request.

func Unauthorized() *APIError {
	return New("UNAUTHORIZED", "authentication required", "", http.StatusUnauthorized)
}

func InvalidCredentials() *APIError {
	return New("INVALID_CREDENTIALS", "invalid email or password", "", http.StatusUnauthorized)
}

func CSRFInvalid() *APIError {
	return New("CSRF_INVALID", "missing or invalid CSRF token", "", http.StatusForbidden)
}

func RateLimited() *APIError {
	return New("RATE_LIMITED", "too many requests", "", http.StatusTooManyRequests)
}

func ResetTokenInvalid() *APIError {
	return New("RESET_TOKEN_INVALID", "invalid or expired reset token", "", http.StatusBadRequest)
}

func BadRequest(message string, details string) *APIError {
	return New("BAD_REQUEST", message, details, http.StatusBadRequest)
}

func Internal() *APIError {
	return New("INTERNAL_ERROR", "Unexpected server error", "", http.StatusInternalServerError)
}

func Forbidden() *APIError {
	return New("FORBIDDEN", "insufficient permissions", "", http.StatusForbidden)
}
