// Package gateway verifies signed identity assertions injected by the
// Cloudflare Access gateway in front of the portal. The gateway is the
// most privileged trust source: it requires no redirect and its header
// only reaches us through the gateway itself.
package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/meridianhq/portal/internal/identity"
	"github.com/meridianhq/portal/internal/log"
)

// AssertionHeader carries the gateway-signed JWT.
const AssertionHeader = "Cf-Access-Jwt-Assertion"

// ErrKeySetUnavailable means the signer's public keys could not be
// fetched. Fatal for this check only; other credential sources may
// still authenticate the request.
var ErrKeySetUnavailable = errors.New("gateway key set unavailable")

type assertionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Verifier validates gateway assertions against the team's published
// key set.
type Verifier struct {
	keys     *KeySet
	issuer   string
	audience string
	now      func() time.Time
}

// NewVerifier creates a verifier for the given Access team. audience is
// optional; when empty the aud claim is not checked.
func NewVerifier(team, audience string) *Verifier {
	issuer := fmt.Sprintf("https://%s.cloudflareaccess.com", team)
	return &Verifier{
		keys:     NewKeySet(issuer + "/cdn-cgi/access/certs"),
		issuer:   issuer,
		audience: audience,
		now:      time.Now,
	}
}

// WithClock overrides the verifier and key-set clocks. Test hook.
func (v *Verifier) WithClock(now func() time.Time) *Verifier {
	v.now = now
	v.keys.WithClock(now)
	return v
}

// WithKeySet replaces the key set. Test hook for fake JWKS endpoints.
func (v *Verifier) WithKeySet(ks *KeySet) *Verifier {
	v.keys = ks
	return v
}

// Verify checks the assertion header on the request.
//
// Returns (nil, nil) when the header is absent or the token fails
// verification: this source is simply not present, or says no. The
// only error case is ErrKeySetUnavailable, which aborts this check
// without condemning the request.
func (v *Verifier) Verify(r *http.Request) (*identity.Identity, error) {
	raw := r.Header.Get(AssertionHeader)
	if raw == "" {
		return nil, nil
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256", "ES256"}),
		jwt.WithIssuer(v.issuer),
		jwt.WithTimeFunc(v.now),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	var claims assertionClaims
	_, err := jwt.ParseWithClaims(raw, &claims, v.keyfunc(r), opts...)
	if err != nil {
		if errors.Is(err, ErrKeySetUnavailable) {
			return nil, err
		}
		log.LogDebugWithFields("gateway", "Assertion rejected", map[string]any{
			"error": err.Error(),
		})
		return nil, nil
	}

	now := v.now()
	ident := &identity.Identity{
		Subject:  claims.Subject,
		Email:    claims.Email,
		Name:     claims.Email, // the gateway supplies no display name
		Provider: identity.ProviderGateway,
		IssuedAt: now,
	}
	if claims.ExpiresAt != nil {
		ident.ExpiresAt = claims.ExpiresAt.Time
	}
	return ident, nil
}

func (v *Verifier) keyfunc(r *http.Request) jwt.Keyfunc {
	return func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("assertion header missing kid")
		}
		return v.keys.Key(r.Context(), kid)
	}
}
