package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-trip-planner/internal/auth"
	"go-trip-planner/pkg/errutil"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func parseMap(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func TestParseDefaults(t *testing.T) {
	cfg, err := parseMap(map[string]string{"SESSION_SECRET": testSecret})
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.AppEnv)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, auth.ProductionCost, cfg.HashCost())
	assert.False(t, cfg.SecureCookies())
	assert.False(t, cfg.TrustProxyHeaders)
	assert.Zero(t, cfg.ProxyHops())

	login := cfg.LoginPolicy()
	assert.Equal(t, 10, login.Limit)
	assert.Equal(t, 10*time.Minute, login.Window)
	assert.Equal(t, 5, cfg.ResetRequestPolicy().Limit)
	assert.Equal(t, 15*time.Minute, cfg.ResetRequestPolicy().Window)
	assert.Equal(t, 10, cfg.ResetConfirmPolicy().Limit)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORSOrigins)
	assert.Equal(t, "data/audit.log", cfg.AuditLogFile)
}

func TestParseMissingSecretIsFatal(t *testing.T) {
	_, err := parseMap(map[string]string{})
	require.ErrorIs(t, err, auth.ErrMissingSecret)
	errutil.AssertErrorCode(t, err, "CONFIG_MISSING_SECRET")

	_, err = parseMap(map[string]string{"SESSION_SECRET": "   "})
	require.ErrorIs(t, err, auth.ErrMissingSecret)
}

func TestParseShortSecret(t *testing.T) {
	_, err := parseMap(map[string]string{"SESSION_SECRET": "short"})
	errutil.AssertErrorCode(t, err, "CONFIG_WEAK_SECRET")
}

func TestHashModeSelection(t *testing.T) {
	cfg, err := parseMap(map[string]string{"SESSION_SECRET": testSecret, "HASH_MODE": "test"})
	require.NoError(t, err)
	assert.Equal(t, auth.TestCost, cfg.HashCost())

	_, err = parseMap(map[string]string{"SESSION_SECRET": testSecret, "HASH_MODE": "fast"})
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")

	_, err = parseMap(map[string]string{"SESSION_SECRET": testSecret, "HASH_MODE": "test", "APP_ENV": "production", "MAIL_API_URL": "https://mail.example"})
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
}

func TestProductionCookiesAreSecure(t *testing.T) {
	cfg, err := parseMap(map[string]string{"SESSION_SECRET": testSecret, "APP_ENV": "Production", "MAIL_API_URL": "https://mail.example"})
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.SecureCookies())

	cfg, err = parseMap(map[string]string{"SESSION_SECRET": testSecret, "APP_ENV": "production", "MAIL_API_URL": "https://mail.example", "COOKIE_SECURE": "false"})
	require.NoError(t, err)
	assert.False(t, cfg.SecureCookies())
}

func TestParseOverrides(t *testing.T) {
	cfg, err := parseMap(map[string]string{
		"SESSION_SECRET":    testSecret,
		"LOGIN_RATE_LIMIT":  "3",
		"LOGIN_RATE_WINDOW": "1m",
		"CORS_ORIGINS":      "https://a.example,https://b.example",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.LoginPolicy().Limit)
	assert.Equal(t, time.Minute, cfg.LoginPolicy().Window)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestInvalidPolicy(t *testing.T) {
	_, err := parseMap(map[string]string{"SESSION_SECRET": testSecret, "LOGIN_RATE_LIMIT": "0"})
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
}

func TestProductionRequiresMailer(t *testing.T) {
	_, err := parseMap(map[string]string{"SESSION_SECRET": testSecret, "APP_ENV": "production"})
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
}

func TestProxyHops(t *testing.T) {
	cfg, err := parseMap(map[string]string{"SESSION_SECRET": testSecret, "TRUST_PROXY_HEADERS": "true"})
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.ProxyHops())

	cfg, err = parseMap(map[string]string{"SESSION_SECRET": testSecret, "TRUST_PROXY_HEADERS": "true", "TRUSTED_PROXY_HOPS": "2"})
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.ProxyHops())

	cfg, err = parseMap(map[string]string{"SESSION_SECRET": testSecret, "TRUSTED_PROXY_HOPS": "3"})
	require.NoError(t, err)
	assert.Zero(t, cfg.ProxyHops())

	_, err = parseMap(map[string]string{"SESSION_SECRET": testSecret, "TRUST_PROXY_HEADERS": "true", "TRUSTED_PROXY_HOPS": "0"})
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
}

func TestWarnings(t *testing.T) {
	cfg, err := parseMap(map[string]string{"SESSION_SECRET": testSecret})
	require.NoError(t, err)
	warnings := cfg.Warnings()
	require.NotEmpty(t, warnings)
	assert.Contains(t, warnings[0], "COOKIE_SECURE is unset")

	cfg, err = parseMap(map[string]string{"SESSION_SECRET": testSecret, "COOKIE_SECURE": "true", "MAIL_API_URL": "https://mail.example"})
	require.NoError(t, err)
	assert.Empty(t, cfg.Warnings())

	cfg, err = parseMap(map[string]string{"SESSION_SECRET": testSecret, "APP_ENV": "production", "MAIL_API_URL": "https://mail.example"})
	require.NoError(t, err)
	assert.Empty(t, cfg.Warnings())
}

func TestLoadDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/trips")
	got, err := LoadDatabaseURL()
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@localhost/trips", got)

	t.Setenv("DATABASE_URL", "")
	_, err = LoadDatabaseURL()
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
}
