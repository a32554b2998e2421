package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wonny/fundquant/pkg/config"
)

func TestNew_NotConfigured(t *testing.T) {
	_, err := New(context.Background(), &config.Config{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNew_BadURL(t *testing.T) {
	cfg := &config.Config{Database: config.DatabaseConfig{URL: "://nope"}}
	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestMigrateAndHealth(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := New(ctx, cfg)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Migrate(ctx))
	require.NoError(t, db.Migrate(ctx), "migrate is idempotent")

	status, err := db.HealthCheck(ctx)
	require.NoError(t, err)
	assert.True(t, status.Healthy)
	assert.Greater(t, status.Stats.MaxConns, int32(0))
}
