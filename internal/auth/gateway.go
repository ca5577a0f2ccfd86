// Package auth makes the single per-request authentication decision
// the rest of the portal consumes: is this request authenticated, and
// if so, as whom.
package auth

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/meridianhq/portal/internal/gateway"
	"github.com/meridianhq/portal/internal/identity"
	"github.com/meridianhq/portal/internal/log"
	"github.com/meridianhq/portal/internal/sessiontoken"
)

// publicPaths are reachable without authentication. Matching is exact,
// or prefix followed immediately by "?": a public path keeps its query
// string, but "/loginX" does not ride on "/login".
var publicPaths = []string{
	"/login",
	"/login/google",
	"/login/lark",
	"/auth/google/callback",
	"/auth/lark/callback",
	"/auth/token",
	"/logout",
	"/api/auth/check",
	"/api/auth/miniapp",
	"/healthz",
}

// Gateway orders the trust sources and produces the per-request
// decision. The gateway verifier is optional; the session service is
// not.
type Gateway struct {
	verifier *gateway.Verifier
	sessions *sessiontoken.Service
}

// NewGateway creates the auth gateway. verifier may be nil when no
// Access team is configured.
func NewGateway(verifier *gateway.Verifier, sessions *sessiontoken.Service) *Gateway {
	return &Gateway{
		verifier: verifier,
		sessions: sessions,
	}
}

// Authenticate tries the gateway assertion first (most privileged, no
// redirect needed), then the session cookie. A key-set outage only
// disables the gateway source for this request.
func (g *Gateway) Authenticate(r *http.Request) (*identity.Identity, bool) {
	if g.verifier != nil {
		ident, err := g.verifier.Verify(r)
		if err != nil {
			log.LogErrorWithFields("auth", "Gateway verification unavailable", map[string]any{
				"error": err.Error(),
			})
		} else if ident != nil {
			return ident, true
		}
	}

	if ident := g.sessions.Verify(r); ident != nil {
		return ident, true
	}

	return nil, false
}

// IsPublicPath reports whether the path is reachable without
// authentication.
func (g *Gateway) IsPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p || strings.HasPrefix(path, p+"?") {
			return true
		}
	}
	return false
}

// LoginRedirectURL builds the redirect to the login entry point,
// carrying the original path and query as the post-login destination.
func (g *Gateway) LoginRedirectURL(r *http.Request) string {
	target := r.URL.Path
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	return "/login?redirect=" + url.QueryEscape(target)
}
