package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("CLEARCORE_AUTH_JWT_SECRET", "unit-test-secret")
	t.Setenv("CLEARCORE_WEBHOOK_RAIL_SECRET", "rail-secret")
	t.Setenv("CLEARCORE_WEBHOOK_IDENTITY_SECRET", "identity-secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5*time.Minute, cfg.Auth.ReverificationWindow)
	assert.True(t, cfg.Auth.ParallelEngagement)
	assert.Equal(t, time.Minute, cfg.Risk.CacheTTL)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("CLEARCORE_AUTH_JWT_SECRET", "unit-test-secret")
	t.Setenv("CLEARCORE_WEBHOOK_RAIL_SECRET", "rail-secret")
	t.Setenv("CLEARCORE_WEBHOOK_IDENTITY_SECRET", "identity-secret")
	t.Setenv("CLEARCORE_SERVER_PORT", "9000")
	t.Setenv("CLEARCORE_AUTH_PARALLEL_ENGAGEMENT", "false")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.False(t, cfg.Auth.ParallelEngagement)
}

func TestLoadConfigRequiresSecrets(t *testing.T) {
	t.Setenv("CLEARCORE_AUTH_JWT_SECRET", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt_secret")
}
