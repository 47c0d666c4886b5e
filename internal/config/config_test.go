package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/thriftyclothings/storefront/internal/config"
	apperrors "github.com/thriftyclothings/storefront/internal/errors"
)

func isolateDotEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DOTENV", filepath.Join(t.TempDir(), "missing.env"))
}

func TestNewDefaults(t *testing.T) {
	isolateDotEnv(t)

	c, err := config.New()
	require.NoError(t, err)
	require.Equal(t, ":3000", c.GetPort())
	require.Equal(t, "DEV", c.GetEnv())
	require.Equal(t, "http://localhost:5000/api", c.GetAPIBaseURL())
	require.Equal(t, 10*time.Second, c.GetAPITimeout())
	require.Equal(t, config.IdentityModeMemory, c.GetIdentityMode())
	require.Zero(t, c.GetAPIRateLimit())
	require.Equal(t, 1, c.GetLoadingRefreshSeconds())
}

func TestNewFromEnvironment(t *testing.T) {
	isolateDotEnv(t)
	t.Setenv("PORT", "8081")
	t.Setenv("API_BASE_URL", "https://shop.example.com/api/")
	t.Setenv("API_TIMEOUT", "3s")
	t.Setenv("IDENTITY_MODE", "oidc")
	t.Setenv("OIDC_ISSUER", "https://id.example.com")
	t.Setenv("OIDC_CLIENT_ID", "storefront")

	c, err := config.New()
	require.NoError(t, err)
	require.Equal(t, ":8081", c.GetPort())
	require.Equal(t, "https://shop.example.com/api", c.GetAPIBaseURL())
	require.Equal(t, 3*time.Second, c.GetAPITimeout())
	require.Equal(t, config.IdentityModeOIDC, c.GetIdentityMode())
	require.Equal(t, "storefront", c.GetOIDCClientID())
}

func TestNewRejectsIncompleteOIDC(t *testing.T) {
	isolateDotEnv(t)
	t.Setenv("IDENTITY_MODE", "oidc")

	_, err := config.New()
	require.ErrorIs(t, err, apperrors.ErrInvalidConfig)
}

func TestNewRejectsRelativeBaseURL(t *testing.T) {
	isolateDotEnv(t)
	t.Setenv("API_BASE_URL", "/api")

	_, err := config.New()
	require.ErrorIs(t, err, apperrors.ErrInvalidConfig)
}

func TestNewLoadsDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(file, []byte("APP_NAME=Dotenv Shop\n"), 0o600))
	t.Setenv("DOTENV", file)
	t.Cleanup(func() { os.Unsetenv("APP_NAME") })

	c, err := config.New()
	require.NoError(t, err)
	require.Equal(t, "Dotenv Shop", c.GetAppName())
}
