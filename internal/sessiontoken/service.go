// Package sessiontoken mints and verifies the portal's own signed
// credentials: the long-lived session token carried in the session
// cookie, and the short-lived bridging token used to transplant an
// authenticated identity into a context that cannot share cookies
// (the Lark mini-app webview handing off to the system browser).
package sessiontoken

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/meridianhq/portal/internal/cookie"
	"github.com/meridianhq/portal/internal/identity"
	"github.com/meridianhq/portal/internal/log"
)

const (
	// SessionTTL is how long a minted session remains valid.
	SessionTTL = 24 * time.Hour

	// BridgeTTL bounds the window for redeeming a bridging token.
	BridgeTTL = 5 * time.Minute

	// bridgeType is the discriminator claim marking a token as
	// single-purpose. Session tokens carry no type claim.
	bridgeType = "bridge"
)

// Claims is the token claim schema shared by session and bridging
// tokens. Bridging tokens additionally carry the "typ" discriminator.
type Claims struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
	Type     string `json:"typ,omitempty"`
	jwt.RegisteredClaims
}

// Service signs and verifies portal tokens with a symmetric key.
// The zero value is not usable; construct with New.
type Service struct {
	secret []byte
	now    func() time.Time
}

// New creates a token service. The clock is injectable for tests via
// WithClock.
func New(secret []byte) *Service {
	return &Service{
		secret: secret,
		now:    time.Now,
	}
}

// WithClock overrides the service clock. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Mint signs a session token embedding the identity. The token lifetime
// matches the session cookie max-age.
func (s *Service) Mint(ident identity.Identity) (string, error) {
	return s.sign(ident, SessionTTL, "")
}

// MintBridge signs a short-lived bridging token for the given identity.
func (s *Service) MintBridge(ident identity.Identity) (string, error) {
	return s.sign(ident, BridgeTTL, bridgeType)
}

func (s *Service) sign(ident identity.Identity, ttl time.Duration, typ string) (string, error) {
	now := s.now()
	claims := Claims{
		Email:    ident.Email,
		Name:     ident.Name,
		Provider: ident.Provider,
		Type:     typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ident.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// Verify extracts and verifies the session cookie on the request.
// Returns nil when the cookie is absent or the token does not check
// out; a bad token is "this source says no", never an HTTP error.
//
// Expiry is enforced here in addition to the cookie max-age, so a
// replayed cookie value dies with its embedded exp claim.
func (s *Service) Verify(r *http.Request) *identity.Identity {
	value, err := cookie.GetSession(r)
	if err != nil {
		return nil
	}

	claims, err := s.parse(value)
	if err != nil {
		log.LogDebugWithFields("sessiontoken", "Session token rejected", map[string]any{
			"error": err.Error(),
		})
		return nil
	}

	// A bridging token in the session cookie is not a session.
	if claims.Type != "" {
		return nil
	}

	return claimsToIdentity(claims)
}

// VerifyBridge verifies a bridging token string. Tokens lacking the
// discriminator are rejected even when signature and schema are valid.
func (s *Service) VerifyBridge(token string) *identity.Identity {
	claims, err := s.parse(token)
	if err != nil {
		log.LogDebugWithFields("sessiontoken", "Bridging token rejected", map[string]any{
			"error": err.Error(),
		})
		return nil
	}

	if claims.Type != bridgeType {
		log.LogDebugWithFields("sessiontoken", "Bridging token missing discriminator", nil)
		return nil
	}

	return claimsToIdentity(claims)
}

// ClearCookie returns the instruction that clears the session cookie.
func (s *Service) ClearCookie(w http.ResponseWriter) {
	cookie.ClearSession(w)
}

func (s *Service) parse(value string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(value, &claims,
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	return &claims, nil
}

func claimsToIdentity(claims *Claims) *identity.Identity {
	ident := identity.Identity{
		Subject:  claims.Subject,
		Email:    claims.Email,
		Name:     claims.Name,
		Provider: claims.Provider,
	}
	if claims.IssuedAt != nil {
		ident.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		ident.ExpiresAt = claims.ExpiresAt.Time
	}
	return &ident
}
