package idp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/meridianhq/portal/internal/identity"
	"github.com/meridianhq/portal/internal/ioutil"
	"golang.org/x/oauth2"
)

// LarkProvider implements the Provider interface for Lark (Feishu).
// Besides the browser authorization-code flow it supports the mini-app
// SDK variant, where the embedded runtime hands us a login code
// directly instead of going through a redirect.
type LarkProvider struct {
	appID      string
	appSecret  string
	apiBaseURL string // defaults to https://open.larksuite.com, overridden in tests
	httpClient *http.Client
}

// larkEnvelope is the {code, msg, data} wrapper on every Lark API
// response. A non-zero code is a failure even on HTTP 200.
type larkEnvelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// larkUserInfoResponse represents Lark's authen userinfo payload.
type larkUserInfoResponse struct {
	OpenID string `json:"open_id"`
	Name   string `json:"name"`
	EnName string `json:"en_name"`
	Email  string `json:"email"`
}

// NewLarkProvider creates a new Lark OAuth provider.
func NewLarkProvider(appID, appSecret string) *LarkProvider {
	return &LarkProvider{
		appID:      appID,
		appSecret:  appSecret,
		apiBaseURL: "https://open.larksuite.com",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Name returns the provider tag.
func (p *LarkProvider) Name() string {
	return identity.ProviderLark
}

// AuthURL generates the authorization URL.
func (p *LarkProvider) AuthURL(state, redirectURI string) string {
	cfg := p.config(redirectURI)
	return cfg.AuthCodeURL(state)
}

// Exchange exchanges an authorization code for tokens.
func (p *LarkProvider) Exchange(ctx context.Context, code, redirectURI string) (*oauth2.Token, error) {
	cfg := p.config(redirectURI)
	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	return token, nil
}

// Profile fetches user information from Lark's authen userinfo endpoint.
func (p *LarkProvider) Profile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiBaseURL+"/open-apis/authen/v1/user_info", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", ErrProfileFailed, resp.StatusCode, ioutil.ReadLimited(resp.Body, 1024))
	}

	var user larkUserInfoResponse
	if err := decodeLarkData(resp, &user); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileFailed, err)
	}

	return p.profileFromUser(&user), nil
}

// ExchangeSDKCode handles the mini-app SDK variant: the embedded
// runtime obtained a login code and posts it to us directly. We trade
// our app credential for an app access token, then validate the code
// for the user identity. Same contract as the redirect flow, minus the
// redirect.
func (p *LarkProvider) ExchangeSDKCode(ctx context.Context, code string) (*Profile, error) {
	appToken, err := p.appAccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}

	body, _ := json.Marshal(map[string]string{
		"grant_type": "authorization_code",
		"code":       code,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.apiBaseURL+"/open-apis/authen/v1/access_token", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+appToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", ErrExchangeFailed, resp.StatusCode, ioutil.ReadLimited(resp.Body, 1024))
	}

	var user larkUserInfoResponse
	if err := decodeLarkData(resp, &user); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}

	return p.profileFromUser(&user), nil
}

// appAccessToken fetches a tenant-scoped app access token. Single
// attempt, no retry; Lark caches these server-side so a fresh fetch
// per login is acceptable.
func (p *LarkProvider) appAccessToken(ctx context.Context) (string, error) {
	body, _ := json.Marshal(map[string]string{
		"app_id":     p.appID,
		"app_secret": p.appSecret,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.apiBaseURL+"/open-apis/auth/v3/app_access_token/internal", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("app access token endpoint returned status %d: %s", resp.StatusCode, ioutil.ReadLimited(resp.Body, 1024))
	}

	var payload struct {
		Code           int    `json:"code"`
		Msg            string `json:"msg"`
		AppAccessToken string `json:"app_access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode app access token response: %w", err)
	}
	if payload.Code != 0 {
		return "", fmt.Errorf("app access token request failed: %d %s", payload.Code, payload.Msg)
	}
	return payload.AppAccessToken, nil
}

func (p *LarkProvider) profileFromUser(user *larkUserInfoResponse) *Profile {
	name := user.Name
	if name == "" {
		name = user.EnName
	}
	return &Profile{
		Subject: user.OpenID,
		Email:   fallbackEmail(user.Email, user.OpenID, identity.ProviderLark),
		Name:    fallbackName(name, user.Email, user.OpenID),
	}
}

func (p *LarkProvider) config(redirectURI string) oauth2.Config {
	return oauth2.Config{
		ClientID:     p.appID,
		ClientSecret: p.appSecret,
		RedirectURL:  redirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:   p.apiBaseURL + "/open-apis/authen/v1/authorize",
			TokenURL:  p.apiBaseURL + "/open-apis/authen/v2/oauth/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// decodeLarkData unwraps the {code, msg, data} envelope into v.
func decodeLarkData(resp *http.Response, v any) error {
	var envelope larkEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if envelope.Code != 0 {
		return fmt.Errorf("lark API error: %d %s", envelope.Code, envelope.Msg)
	}
	if err := json.Unmarshal(envelope.Data, v); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}
