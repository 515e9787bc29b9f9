package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go-trip-planner/internal/auth"
	"go-trip-planner/internal/middleware"
	"go-trip-planner/internal/model"
	"go-trip-planner/internal/service"
	"go-trip-planner/pkg/apierror"
)

const resetAcceptedMessage = "If an account exists for that email, a reset link is on its way."

type AuthHandler struct {
	service *service.AuthService
	csrf    *auth.CsrfGuard
	cookies CookieConfig
	logger  *slog.Logger
}

func NewAuthHandler(service *service.AuthService, csrf *auth.CsrfGuard, cookies CookieConfig, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{service: service, csrf: csrf, cookies: cookies, logger: logger}
}

// CSRF issues a fresh double-submit token.
func (h *AuthHandler) CSRF(w http.ResponseWriter, _ *http.Request) {
	token, err := h.csrf.Issue()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.cookies.setCSRF(w, token)
	writeSuccess(w, http.StatusOK, model.CSRFResponse{
		Token:     token,
		ExpiresIn: int64(auth.CSRFCookieTTL / time.Second),
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload model.LoginRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if strings.TrimSpace(payload.Email) == "" || payload.Password == "" {
		writeError(w, h.logger, apierror.BadRequest("email and password are required", ""))
		return
	}

	session, err := h.service.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.cookies.setSession(w, session.Token, h.service.SessionTTL())
	writeSuccess(w, http.StatusOK, session)
}

// Logout drops the session cookie. The token itself stays valid until it
// expires.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var userID string
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		userID = claims.UserID
	}

	h.service.Logout(r.Context(), userID)
	h.cookies.clearSession(w)
	writeSuccess(w, http.StatusOK, map[string]any{"logged_out": true})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, apierror.Unauthorized())
		return
	}

	user, err := h.service.CurrentUser(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusOK, user)
}

// RequestPasswordReset answers the same way whether or not the email is
// registered.
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var payload model.PasswordResetRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if strings.TrimSpace(payload.Email) == "" {
		writeError(w, h.logger, apierror.BadRequest("email is required", "email"))
		return
	}

	h.service.RequestPasswordReset(r.Context(), payload.Email)
	writeSuccess(w, http.StatusAccepted, map[string]string{"message": resetAcceptedMessage})
}

func (h *AuthHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var payload model.PasswordResetConfirmRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if strings.TrimSpace(payload.Token) == "" {
		writeError(w, h.logger, apierror.ResetTokenInvalid())
		return
	}

	if err := h.service.ResetPassword(r.Context(), payload.Token, payload.NewPassword); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"password_reset": true})
}
