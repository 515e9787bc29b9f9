package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"go-trip-planner/internal/model"
	"go-trip-planner/internal/service"
)

type AuditHandler struct {
	service *service.AuditService
	logger  *slog.Logger
}

func NewAuditHandler(service *service.AuditService, logger *slog.Logger) *AuditHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditHandler{service: service, logger: logger}
}

func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	items, meta, err := h.service.Query(model.AuditQuery{
		Type:    strings.TrimSpace(query.Get("type")),
		ActorID: strings.TrimSpace(query.Get("actor_id")),
		From:    strings.TrimSpace(query.Get("from")),
		To:      strings.TrimSpace(query.Get("to")),
		Page:    parseIntOrDefault(query.Get("page"), 1),
		Limit:   parseIntOrDefault(query.Get("limit"), 50),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeSuccessWithMeta(w, http.StatusOK, model.AuditListData{Items: items}, &meta)
}

func parseIntOrDefault(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return value
}
