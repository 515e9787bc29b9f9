package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProductionWritesRedactedJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "production", "info")

	log.Info("login attempt", "email", "ana@example.com", "password", "hunter22", "Token", "abc")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "login attempt", rec["msg"])
	assert.Equal(t, "ana@example.com", rec["email"])
	assert.Equal(t, redacted, rec["password"])
	assert.Equal(t, redacted, rec["Token"])
}

func TestPrettyHandlerRedactsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug, ReplaceAttr: Redact}).WithoutColors()
	log := slog.New(h).With("request_id", "r-1").WithGroup("auth")

	log.Debug("reset issued", "reset_token", "raw-value", "user_id", "u-1")

	out := buf.String()
	assert.Contains(t, out, "DEBUG")
	assert.Contains(t, out, "reset issued")
	assert.Contains(t, out, "request_id=r-1")
	assert.Contains(t, out, "auth.user_id=u-1")
	assert.Contains(t, out, "auth.reset_token="+redacted)
	assert.NotContains(t, out, "raw-value")
	assert.NotContains(t, out, "\033[")
}

func TestPrettyHandlerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	log.Info("quiet")
	assert.Empty(t, buf.String())

	log.Warn("loud")
	assert.Contains(t, buf.String(), "loud")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}
