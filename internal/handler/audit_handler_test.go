package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-trip-planner/internal/event"
	"go-trip-planner/internal/service"
)

func TestAuditList(t *testing.T) {
	svc, err := service.NewAuditService(filepath.Join(t.TempDir(), "audit.log"))
	require.NoError(t, err)
	now := time.Now().UTC()
	for i := range 3 {
		require.NoError(t, svc.Record(event.Event{
			ID:        string(rune('a' + i)),
			Type:      event.TypeLoginFailed,
			Timestamp: now.Add(time.Duration(i) * time.Second),
		}))
	}

	h := NewAuditHandler(svc, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/audit?limit=2&page=1", nil)
	rec.Header().Set("X-Request-ID", "req-1")
	h.List(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			Items []event.Event `json:"items"`
		} `json:"data"`
		Meta struct {
			RequestID  string `json:"request_id"`
			Total      int    `json:"total"`
			TotalPages int    `json:"total_pages"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Data.Items, 2)
	assert.Equal(t, "c", body.Data.Items[0].ID)
	assert.Equal(t, 3, body.Meta.Total)
	assert.Equal(t, 2, body.Meta.TotalPages)
	assert.Equal(t, "req-1", body.Meta.RequestID)

	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/audit?from=nope", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParseIntOrDefault(t *testing.T) {
	assert.Equal(t, 7, parseIntOrDefault(" 7 ", 1))
	assert.Equal(t, 1, parseIntOrDefault("", 1))
	assert.Equal(t, 1, parseIntOrDefault("x", 1))
}
