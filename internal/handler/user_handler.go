package handler

import (
	"log/slog"
	"net/http"

	"go-trip-planner/internal/middleware"
	"go-trip-planner/internal/model"
	"go-trip-planner/internal/service"
	"go-trip-planner/pkg/apierror"
)

type UserHandler struct {
	service *service.AuthService
	logger  *slog.Logger
}

func NewUserHandler(service *service.AuthService, logger *slog.Logger) *UserHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserHandler{service: service, logger: logger}
}

func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, apierror.Unauthorized())
		return
	}

	var payload model.ChangePasswordRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.service.ChangePassword(r.Context(), claims.UserID, payload.CurrentPassword, payload.NewPassword); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"password_changed": true})
}

func (h *UserHandler) UpdateLanguage(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, apierror.Unauthorized())
		return
	}

	var payload model.UpdateLanguageRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.service.UpdateLanguage(r.Context(), claims.UserID, payload.Language)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusOK, user)
}
