package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wonny/fundquant/pkg/config"
)

func disabledClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(context.Background(), &config.Config{Redis: config.RedisConfig{Enabled: false}})
	require.NoError(t, err)
	return client
}

func TestNewClient_Disabled(t *testing.T) {
	client := disabledClient(t)
	assert.False(t, client.Enabled())
	assert.NoError(t, client.Close())
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(disabledClient(t), "test")
	cfg := EastmoneyRateLimit(4)

	allowed, remaining, err := limiter.Allow(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, allowed, "disabled redis allows all requests")
	assert.Equal(t, cfg.Limit, remaining)

	assert.NoError(t, limiter.Bind(cfg).Wait(context.Background()))
}

func TestEastmoneyRateLimit(t *testing.T) {
	tests := []struct {
		name       string
		perSecond  float64
		wantLimit  int
		wantWindow time.Duration
	}{
		{"whole number", 5, 5, time.Second},
		{"fractional below one", 0.5, 1, 2 * time.Second},
		{"one", 1, 1, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := EastmoneyRateLimit(tt.perSecond)
			assert.Equal(t, "eastmoney", cfg.Key)
			assert.Equal(t, tt.wantLimit, cfg.Limit)
			assert.Equal(t, tt.wantWindow, cfg.Window)
		})
	}
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(disabledClient(t), "test")
	ctx := context.Background()

	var result string
	found, err := cache.Get(ctx, "key", &result)
	require.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, cache.Set(ctx, "key", "value", TTLShort))
	assert.NoError(t, cache.Delete(ctx, "key"))

	calls := 0
	var got []string
	err = cache.GetOrSet(ctx, "key", &got, TTLShort, func() (interface{}, error) {
		calls++
		return []string{"a", "b"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "fund:name:000001", FundNameKey("000001"))
	assert.Equal(t, "fund:nav:000001:2024-01-15", NavHistoryKey("000001", "2024-01-15"))
	assert.Equal(t, "analysis:abc:000001:2024-01-15", RecordKey("abc", "000001", "2024-01-15"))
	assert.Equal(t, "analysis:latest", LatestRunKey())
}
