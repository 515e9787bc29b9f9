package middleware

import (
	"encoding/json"
	"net/http"

	"go-trip-planner/internal/model"
	"go-trip-planner/pkg/apierror"
)

func writeAPIError(w http.ResponseWriter, apiErr *apierror.APIError) {
	var meta *model.Meta
	if id := w.Header().Get(requestIDHeader); id != "" {
		meta = &model.Meta{RequestID: id}
	}

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
