package config

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecretValue = "0123456789abcdef0123456789abcdef"

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PORTAL_SESSION_SECRET", testSecretValue)
	t.Setenv("PORTAL_GOOGLE_CLIENT_ID", "client-id")
	t.Setenv("PORTAL_GOOGLE_CLIENT_SECRET", "client-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.True(t, cfg.HasGoogle())
	assert.False(t, cfg.HasGateway())
	assert.Nil(t, cfg.LarkApp())
}

func TestLoad_FullConfig(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("PORTAL_ADDR", ":9090")
	t.Setenv("PORTAL_BASE_URL", "https://portal.example.com")
	t.Setenv("PORTAL_LARK_APP_CREDENTIALS", `[{"app_id":"cli_a1","app_secret":"s1"},{"app_id":"cli_a2","app_secret":"s2"}]`)
	t.Setenv("PORTAL_ACCESS_TEAM", "myteam")
	t.Setenv("PORTAL_ALLOWED_EMAILS", "@example.com,contractor@other.org")
	t.Setenv("PORTAL_ALLOWED_ORIGINS", "https://app.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.True(t, cfg.HasGateway())
	assert.Equal(t, []string{"@example.com", "contractor@other.org"}, cfg.AllowedEmails)

	// First credential entry wins
	app := cfg.LarkApp()
	require.NotNil(t, app)
	assert.Equal(t, "cli_a1", app.AppID)
	assert.Equal(t, "s1", string(app.AppSecret))
}

func TestLoad_LarkSingleObject(t *testing.T) {
	t.Setenv("PORTAL_SESSION_SECRET", testSecretValue)
	t.Setenv("PORTAL_LARK_APP_CREDENTIALS", `{"app_id":"cli_solo","app_secret":"s"}`)

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg.LarkApp())
	assert.Equal(t, "cli_solo", cfg.LarkApp().AppID)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "missing session secret",
			env: map[string]string{
				"PORTAL_GOOGLE_CLIENT_ID":     "id",
				"PORTAL_GOOGLE_CLIENT_SECRET": "secret",
			},
		},
		{
			name: "short session secret",
			env: map[string]string{
				"PORTAL_SESSION_SECRET":       "too-short",
				"PORTAL_GOOGLE_CLIENT_ID":     "id",
				"PORTAL_GOOGLE_CLIENT_SECRET": "secret",
			},
		},
		{
			name: "no providers",
			env: map[string]string{
				"PORTAL_SESSION_SECRET": testSecretValue,
			},
		},
		{
			name: "google id without secret",
			env: map[string]string{
				"PORTAL_SESSION_SECRET":   testSecretValue,
				"PORTAL_GOOGLE_CLIENT_ID": "id",
			},
		},
		{
			name: "lark credentials not JSON",
			env: map[string]string{
				"PORTAL_SESSION_SECRET":       testSecretValue,
				"PORTAL_LARK_APP_CREDENTIALS": "not json",
			},
		},
		{
			name: "lark credentials empty list",
			env: map[string]string{
				"PORTAL_SESSION_SECRET":       testSecretValue,
				"PORTAL_LARK_APP_CREDENTIALS": "[]",
			},
		},
		{
			name: "lark entry missing secret",
			env: map[string]string{
				"PORTAL_SESSION_SECRET":       testSecretValue,
				"PORTAL_LARK_APP_CREDENTIALS": `[{"app_id":"cli_a1"}]`,
			},
		},
		{
			name: "admin user without password hash",
			env: map[string]string{
				"PORTAL_SESSION_SECRET":       testSecretValue,
				"PORTAL_GOOGLE_CLIENT_ID":     "id",
				"PORTAL_GOOGLE_CLIENT_SECRET": "secret",
				"PORTAL_ADMIN_USER":           "ops",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestSecret_Redaction(t *testing.T) {
	s := Secret("super-secret")
	assert.Equal(t, "***", s.String())
	assert.Equal(t, "***", fmt.Sprintf("%v", s))

	data, err := json.Marshal(map[string]Secret{"key": s})
	require.NoError(t, err)
	assert.JSONEq(t, `{"key":"***"}`, string(data))

	assert.Equal(t, "", Secret("").String())
}
