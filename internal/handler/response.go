package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"go-trip-planner/internal/auth"
	"go-trip-planner/internal/model"
	"go-trip-planner/internal/service"
	"go-trip-planner/pkg/apierror"
	"go-trip-planner/pkg/errutil"
)

const maxBodyBytes = 64 << 10

func requestMeta(w http.ResponseWriter) *model.Meta {
	if id := w.Header().Get("X-Request-ID"); id != "" {
		return &model.Meta{RequestID: id}
	}
	return nil
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeSuccessWithMeta(w, status, data, nil)
}

func writeSuccessWithMeta(w http.ResponseWriter, status int, data any, meta *model.Meta) {
	if reqMeta := requestMeta(w); reqMeta != nil {
		if meta == nil {
			meta = reqMeta
		} else {
			meta.RequestID = reqMeta.RequestID
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

// writeError maps internal errors to the small set of client-visible
// failures. Anything unrecognised is logged and reported as INTERNAL_ERROR.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	apiErr := classify(err)
	if apiErr.HTTPStatus >= http.StatusInternalServerError {
		if logger == nil {
			logger = slog.Default()
		}
		errutil.LogError(logger, "request failed", err)
	}

	meta := requestMeta(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error: &model.APIError{
			Code:    apiErr.Code,
			Message: apiErr.Message,
			Details: apiErr.Details,
		},
		Meta: meta,
	})
}

func classify(err error) *apierror.APIError {
	var apiErr *apierror.APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case auth.IsResetTokenFailure(err):
		return apierror.ResetTokenInvalid()
	case errors.Is(err, auth.ErrInvalidCredentials):
		return apierror.InvalidCredentials()
	case errors.Is(err, auth.ErrInvalidToken):
		return apierror.Unauthorized()
	case errors.Is(err, auth.ErrWeakPassword):
		return apierror.BadRequest("password must be between 8 and 72 bytes", "new_password")
	case errors.Is(err, service.ErrUnsupportedLanguage):
		return apierror.BadRequest("unsupported language", "language")
	default:
		return apierror.Internal()
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	defer r.Body.Close()

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apierror.BadRequest("request body is required", "")
		}
		return apierror.BadRequest("invalid JSON body", "")
	}
	return nil
}
