package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setSecrets(t *testing.T, access, refresh string) {
	t.Helper()
	t.Setenv("JWT_SECRET", access)
	t.Setenv("REFRESH_TOKEN_SECRET", refresh)
}

func TestLoadConfigDefaults(t *testing.T) {
	setSecrets(t, "access", "refresh")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, 10, cfg.AuthRateLimit)
	assert.Equal(t, 15*time.Minute, cfg.AuthRateWindow)
	assert.Equal(t, "0 * * * *", cfg.SweepCron)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigRequiresSecrets(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("REFRESH_TOKEN_SECRET", "")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigRejectsSharedSecret(t *testing.T) {
	setSecrets(t, "same-secret", "same-secret")
	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must differ")
}

func TestLoadConfigOverrides(t *testing.T) {
	setSecrets(t, "access", "refresh")
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTH_RATE_LIMIT", "5")
	t.Setenv("ACCESS_TOKEN_TTL", "5m")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 5, cfg.AuthRateLimit)
	assert.Equal(t, 5*time.Minute, cfg.AccessTokenTTL)
}

func TestValidateTTLOrdering(t *testing.T) {
	cfg := Config{
		JWTSecret:          "a",
		RefreshTokenSecret: "b",
		AccessTokenTTL:     time.Hour,
		RefreshTokenTTL:    time.Minute,
		AuthRateLimit:      10,
		AuthRateWindow:     time.Minute,
	}
	assert.Error(t, cfg.Validate())
	cfg.AccessTokenTTL = time.Second
	assert.NoError(t, cfg.Validate())
}

func TestAsynqRedisOpt(t *testing.T) {
	setSecrets(t, "access", "refresh")
	t.Setenv("REDIS_ADDR", "redis:6380")
	t.Setenv("REDIS_DB", "2")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	opt := AsynqRedisOpt(cfg)
	assert.Equal(t, "redis:6380", opt.Addr)
	assert.Equal(t, 2, opt.DB)
	assert.Equal(t, int32(10), cfg.PGMaxConns)
}

func TestLoadEnvFilesDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("JWT_SECRET=from-file\nREFRESH_TOKEN_SECRET=refresh-from-file\n"), 0o600))
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("REFRESH_TOKEN_SECRET", "")
	require.NoError(t, os.Unsetenv("REFRESH_TOKEN_SECRET"))

	require.NoError(t, LoadEnvFiles(filepath.Join(dir, "missing.env"), path))
	assert.Equal(t, "from-env", os.Getenv("JWT_SECRET"))
	assert.Equal(t, "refresh-from-file", os.Getenv("REFRESH_TOKEN_SECRET"))
}
