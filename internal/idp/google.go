package idp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/meridianhq/portal/internal/identity"
	"github.com/meridianhq/portal/internal/ioutil"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GoogleProvider implements the Provider interface for Google OAuth.
type GoogleProvider struct {
	clientID     string
	clientSecret string
	endpoint     oauth2.Endpoint
	userInfoURL  string
}

// googleUserInfoResponse represents Google's userinfo response.
type googleUserInfoResponse struct {
	Sub   string `json:"sub"`
	ID    string `json:"id"` // v2 endpoint uses "id" instead of "sub"
	Email string `json:"email"`
	Name  string `json:"name"`
}

// NewGoogleProvider creates a new Google OAuth provider.
func NewGoogleProvider(clientID, clientSecret string) *GoogleProvider {
	return &GoogleProvider{
		clientID:     clientID,
		clientSecret: clientSecret,
		endpoint:     google.Endpoint,
		userInfoURL:  "https://www.googleapis.com/oauth2/v2/userinfo",
	}
}

// Name returns the provider tag.
func (p *GoogleProvider) Name() string {
	return identity.ProviderGoogle
}

// AuthURL generates the authorization URL.
func (p *GoogleProvider) AuthURL(state, redirectURI string) string {
	cfg := p.config(redirectURI)
	return cfg.AuthCodeURL(state)
}

// Exchange exchanges an authorization code for tokens.
func (p *GoogleProvider) Exchange(ctx context.Context, code, redirectURI string) (*oauth2.Token, error) {
	cfg := p.config(redirectURI)
	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	return token, nil
}

// Profile fetches user information from Google's userinfo endpoint.
func (p *GoogleProvider) Profile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	cfg := p.config("")
	client := cfg.Client(ctx, token)

	resp, err := client.Get(p.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", ErrProfileFailed, resp.StatusCode, ioutil.ReadLimited(resp.Body, 1024))
	}

	var user googleUserInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileFailed, err)
	}

	sub := user.Sub
	if sub == "" {
		sub = user.ID
	}

	return &Profile{
		Subject: sub,
		Email:   fallbackEmail(user.Email, sub, "google"),
		Name:    fallbackName(user.Name, user.Email, sub),
	}, nil
}

func (p *GoogleProvider) config(redirectURI string) oauth2.Config {
	return oauth2.Config{
		ClientID:     p.clientID,
		ClientSecret: p.clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       []string{"openid", "profile", "email"},
		Endpoint:     p.endpoint,
	}
}
