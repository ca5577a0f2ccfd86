package idp

import (
	"fmt"

	"github.com/meridianhq/portal/internal/config"
	"github.com/meridianhq/portal/internal/identity"
)

// NewProviders builds the configured providers, keyed by provider tag.
func NewProviders(cfg *config.Config) (map[string]Provider, error) {
	providers := make(map[string]Provider)

	if cfg.HasGoogle() {
		providers[identity.ProviderGoogle] = NewGoogleProvider(
			cfg.GoogleClientID,
			string(cfg.GoogleClientSecret),
		)
	}

	if app := cfg.LarkApp(); app != nil {
		providers[identity.ProviderLark] = NewLarkProvider(
			app.AppID,
			string(app.AppSecret),
		)
	}

	if len(providers) == 0 {
		return nil, fmt.Errorf("no identity providers configured")
	}
	return providers, nil
}
