//go:build integration

package integration

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"go-trip-planner/internal/auth"
	"go-trip-planner/internal/config"
	"go-trip-planner/internal/database"
)

const testSecret = "integration-secret-0123456789abcdef"

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("trip_planner"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return connStr
}

func migratedDB(t *testing.T) (*database.DB, string) {
	t.Helper()
	connStr := startPostgres(t)

	m, err := database.NewMigrator(connStr)
	require.NoError(t, err)
	require.NoError(t, m.Up())
	require.NoError(t, m.Close())

	db, err := database.New(context.Background(), connStr, database.Options{MaxConns: 8, ConnectRetries: 3})
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db, connStr
}

func integrationConfig(databaseURL string) *config.Config {
	return &config.Config{
		AppEnv:                 "test",
		LogLevel:               "error",
		ServerPort:             "0",
		ServerReadTimeout:      5 * time.Second,
		ServerWriteTimeout:     5 * time.Second,
		ServerIdleTimeout:      5 * time.Second,
		RequestTimeout:         5 * time.Second,
		ShutdownTimeout:        5 * time.Second,
		DatabaseURL:            databaseURL,
		DBMaxConns:             4,
		DBMinConns:             1,
		DBConnectRetries:       3,
		MigrateOnStart:         true,
		SessionSecret:          testSecret,
		HashMode:               auth.HashModeTest,
		CORSOrigins:            []string{"http://localhost:5173"},
		LoginRateLimit:         10,
		LoginRateWindow:        10 * time.Minute,
		ResetRequestRateLimit:  5,
		ResetRequestRateWindow: 15 * time.Minute,
		ResetConfirmRateLimit:  10,
		ResetConfirmRateWindow: 15 * time.Minute,
		GeneralRateLimitRPM:    600,
		RateLimitPruneInterval: time.Minute,
		ResetURLBase:           "http://localhost:5173/reset-password",
		ResetPurgeInterval:     time.Hour,
		MetricsEnabled:         true,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
