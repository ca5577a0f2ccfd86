// Package idp implements the authorization-code login flow against the
// external identity providers. Every provider conforms to the same
// contract; they differ only in endpoints, scopes, and profile shape.
package idp

import (
	"context"
	"errors"

	"golang.org/x/oauth2"
)

// Flow errors, terminal for the login request that hit them.
var (
	// ErrProviderReported means the provider's callback carried an
	// error parameter instead of a code.
	ErrProviderReported = errors.New("provider reported an error")

	// ErrMissingParameters means code or state was absent from the
	// callback.
	ErrMissingParameters = errors.New("missing code or state parameter")

	// ErrStateMismatch means the callback state did not byte-for-byte
	// equal the mirrored state cookie.
	ErrStateMismatch = errors.New("state parameter does not match state cookie")

	// ErrExchangeFailed means the code-for-token exchange failed.
	ErrExchangeFailed = errors.New("token exchange failed")

	// ErrProfileFailed means the profile fetch failed after a
	// successful exchange.
	ErrProfileFailed = errors.New("profile fetch failed")
)

// Profile is what a provider knows about the user after a successful
// exchange. Email and Name are already defaulted per the provider's
// fallback rules; they are never empty.
type Profile struct {
	Subject string
	Email   string
	Name    string
}

// Provider abstracts one external identity provider.
type Provider interface {
	// Name returns the provider tag (e.g. "google", "lark").
	Name() string

	// AuthURL builds the provider's authorization endpoint URL for the
	// given opaque state. redirectURI is derived from the request
	// origin by the caller.
	AuthURL(state, redirectURI string) string

	// Exchange trades an authorization code for an access token.
	// A failed exchange wraps ErrExchangeFailed.
	Exchange(ctx context.Context, code, redirectURI string) (*oauth2.Token, error)

	// Profile fetches the user profile with the access token.
	// A failed fetch wraps ErrProfileFailed.
	Profile(ctx context.Context, token *oauth2.Token) (*Profile, error)
}
