package idp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianhq/portal/internal/config"
	"github.com/meridianhq/portal/internal/identity"
)

func loadConfig(t *testing.T, env map[string]string) *config.Config {
	t.Helper()
	t.Setenv("PORTAL_SESSION_SECRET", "0123456789abcdef0123456789abcdef")
	for k, v := range env {
		t.Setenv(k, v)
	}
	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func TestNewProviders_Google(t *testing.T) {
	cfg := loadConfig(t, map[string]string{
		"PORTAL_GOOGLE_CLIENT_ID":     "id",
		"PORTAL_GOOGLE_CLIENT_SECRET": "secret",
	})

	providers, err := NewProviders(cfg)
	require.NoError(t, err)
	require.Len(t, providers, 1)
	assert.IsType(t, &GoogleProvider{}, providers[identity.ProviderGoogle])
}

func TestNewProviders_Both(t *testing.T) {
	cfg := loadConfig(t, map[string]string{
		"PORTAL_GOOGLE_CLIENT_ID":     "id",
		"PORTAL_GOOGLE_CLIENT_SECRET": "secret",
		"PORTAL_LARK_APP_CREDENTIALS": `[{"app_id":"cli_a","app_secret":"s"}]`,
	})

	providers, err := NewProviders(cfg)
	require.NoError(t, err)
	assert.Len(t, providers, 2)
	assert.IsType(t, &LarkProvider{}, providers[identity.ProviderLark])
}
