// Package config loads portal configuration from environment variables
// and validates it before the server starts. Bad configuration is a
// startup failure, not something discovered mid-request.
package config

import (
	"encoding/json"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// LarkApp holds one Lark application credential pair. The env value is
// a JSON list for operational reasons (credential rotation); only the
// first entry is used.
type LarkApp struct {
	AppID     string `json:"app_id"`
	AppSecret Secret `json:"app_secret"`
}

// Config is the full configuration surface of the portal.
type Config struct {
	Addr    string `env:"PORTAL_ADDR" envDefault:":8080"`
	BaseURL string `env:"PORTAL_BASE_URL"`

	// Symmetric key for session and bridging tokens.
	SessionSecret Secret `env:"PORTAL_SESSION_SECRET"`

	// Google OAuth application.
	GoogleClientID     string `env:"PORTAL_GOOGLE_CLIENT_ID"`
	GoogleClientSecret Secret `env:"PORTAL_GOOGLE_CLIENT_SECRET"`

	// Lark application credentials, JSON list, first entry used.
	LarkAppCredentials string `env:"PORTAL_LARK_APP_CREDENTIALS"`

	// Cloudflare Access team identifier and optional expected audience.
	AccessTeam     string `env:"PORTAL_ACCESS_TEAM"`
	AccessAudience string `env:"PORTAL_ACCESS_AUD"`

	// Comma-separated email allowlist. Entries starting with "@" are
	// domain suffix filters, all others exact matches.
	AllowedEmails []string `env:"PORTAL_ALLOWED_EMAILS" envSeparator:","`

	// Browser origins allowed to call the /api endpoints.
	AllowedOrigins []string `env:"PORTAL_ALLOWED_ORIGINS" envSeparator:","`

	// Ops endpoint basic auth. The hash is bcrypt (see cmd/hashpw).
	AdminUser         string `env:"PORTAL_ADMIN_USER"`
	AdminPasswordHash Secret `env:"PORTAL_ADMIN_PASSWORD_HASH"`

	larkApp *LarkApp
}

// Load parses and validates configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.SessionSecret) < 32 {
		return fmt.Errorf("PORTAL_SESSION_SECRET must be at least 32 bytes")
	}

	if c.GoogleClientID == "" && c.LarkAppCredentials == "" {
		return fmt.Errorf("at least one identity provider must be configured")
	}
	if (c.GoogleClientID == "") != (c.GoogleClientSecret == "") {
		return fmt.Errorf("PORTAL_GOOGLE_CLIENT_ID and PORTAL_GOOGLE_CLIENT_SECRET must be set together")
	}

	if c.LarkAppCredentials != "" {
		app, err := parseLarkCredentials(c.LarkAppCredentials)
		if err != nil {
			return err
		}
		c.larkApp = app
	}

	if (c.AdminUser == "") != (c.AdminPasswordHash == "") {
		return fmt.Errorf("PORTAL_ADMIN_USER and PORTAL_ADMIN_PASSWORD_HASH must be set together")
	}

	return nil
}

// LarkApp returns the first configured Lark credential pair, or nil if
// the Lark provider is not configured.
func (c *Config) LarkApp() *LarkApp {
	return c.larkApp
}

// HasGoogle reports whether the Google provider is configured.
func (c *Config) HasGoogle() bool {
	return c.GoogleClientID != ""
}

// HasGateway reports whether the Cloudflare Access verifier is configured.
func (c *Config) HasGateway() bool {
	return c.AccessTeam != ""
}

func parseLarkCredentials(raw string) (*LarkApp, error) {
	var apps []LarkApp
	if err := json.Unmarshal([]byte(raw), &apps); err != nil {
		// Accept a single object too; older deployments used one.
		var app LarkApp
		if err := json.Unmarshal([]byte(raw), &app); err != nil {
			return nil, fmt.Errorf("PORTAL_LARK_APP_CREDENTIALS is not valid JSON: %w", err)
		}
		apps = []LarkApp{app}
	}
	if len(apps) == 0 {
		return nil, fmt.Errorf("PORTAL_LARK_APP_CREDENTIALS is empty")
	}
	first := apps[0]
	if first.AppID == "" || first.AppSecret == "" {
		return nil, fmt.Errorf("PORTAL_LARK_APP_CREDENTIALS entry missing app_id or app_secret")
	}
	return &first, nil
}
