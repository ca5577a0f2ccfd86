package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridianhq/portal/internal/allowlist"
	"github.com/meridianhq/portal/internal/auth"
	"github.com/meridianhq/portal/internal/cookie"
	"github.com/meridianhq/portal/internal/crypto"
	"github.com/meridianhq/portal/internal/identity"
	"github.com/meridianhq/portal/internal/idp"
	jsonwriter "github.com/meridianhq/portal/internal/json"
	"github.com/meridianhq/portal/internal/log"
	"github.com/meridianhq/portal/internal/sessiontoken"
	"github.com/meridianhq/portal/internal/state"
	"github.com/meridianhq/portal/internal/urlutil"
)

// exchangeTimeout bounds the code-for-token exchange and the profile
// fetch that follows it. Providers that take longer than this fail the
// login attempt.
const exchangeTimeout = 30 * time.Second

// AuthHandlers provides the login, callback, and token HTTP handlers
// with dependency injection
type AuthHandlers struct {
	providers map[string]idp.Provider
	sessions  *sessiontoken.Service
	allow     *allowlist.Filter
	baseURL   string
}

// NewAuthHandlers creates new auth handlers with dependency injection
func NewAuthHandlers(
	providers map[string]idp.Provider,
	sessions *sessiontoken.Service,
	allow *allowlist.Filter,
	baseURL string,
) *AuthHandlers {
	return &AuthHandlers{
		providers: providers,
		sessions:  sessions,
		allow:     allow,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
	}
}

// LoginPageHandler renders the provider chooser. An already
// authenticated user is sent straight to their redirect target.
func (h *AuthHandlers) LoginPageHandler(gw *auth.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		redirect := sanitizeRedirect(r.URL.Query().Get("redirect"))

		if _, ok := gw.Authenticate(r); ok {
			http.Redirect(w, r, redirect, http.StatusFound)
			return
		}

		links := make([]loginLink, 0, len(h.providers))
		for name := range h.providers {
			links = append(links, loginLink{
				Name: name,
				URL:  "/login/" + name + "?redirect=" + url.QueryEscape(redirect),
			})
		}
		sortLoginLinks(links)

		renderLoginPage(w, links)
	}
}

// LoginHandler starts the authorization-code flow for one provider:
// mints a nonce, encodes the state, mirrors it into a cookie, and
// redirects to the provider's authorization endpoint.
func (h *AuthHandlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	provider, ok := h.providers[chi.URLParam(r, "provider")]
	if !ok {
		jsonwriter.WriteNotFound(w, "Unknown identity provider")
		return
	}

	nonce, err := crypto.GenerateSecureToken()
	if err != nil {
		log.LogError("Failed to generate state nonce: %v", err)
		jsonwriter.WriteInternalServerError(w, "Internal server error")
		return
	}

	redirect := sanitizeRedirect(r.URL.Query().Get("redirect"))
	opaque := state.Encode(redirect, nonce)

	cookie.SetState(w, opaque)
	http.Redirect(w, r, provider.AuthURL(opaque, h.callbackURL(r, provider)), http.StatusFound)
}

// CallbackHandler finishes the authorization-code flow. Every
// verification failure is terminal for this login attempt; the user
// starts over from /login.
func (h *AuthHandlers) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	provider, ok := h.providers[chi.URLParam(r, "provider")]
	if !ok {
		jsonwriter.WriteNotFound(w, "Unknown identity provider")
		return
	}

	code, loginState, err := validateCallback(r)
	if err != nil {
		log.LogErrorWithFields("auth", "Callback rejected", map[string]any{
			"provider": provider.Name(),
			"error":    err.Error(),
		})
		switch {
		case errors.Is(err, idp.ErrProviderReported):
			jsonwriter.WriteBadRequest(w, fmt.Sprintf("Authentication failed: %s", r.URL.Query().Get("error")))
		case errors.Is(err, idp.ErrMissingParameters):
			jsonwriter.WriteBadRequest(w, "Invalid callback parameters")
		default:
			jsonwriter.WriteBadRequest(w, "Invalid state parameter")
		}
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), exchangeTimeout)
	defer cancel()

	token, err := provider.Exchange(ctx, code, h.callbackURL(r, provider))
	if err != nil {
		log.LogError("Token exchange with %s failed: %v", provider.Name(), err)
		jsonwriter.WriteInternalServerError(w, "Authentication failed")
		return
	}

	profile, err := provider.Profile(ctx, token)
	if err != nil {
		log.LogError("Profile fetch from %s failed: %v", provider.Name(), err)
		jsonwriter.WriteInternalServerError(w, "Authentication failed")
		return
	}

	if !h.allow.Allowed(profile.Email) {
		log.LogWarnWithFields("auth", "Login denied by allowlist", map[string]any{
			"email":    profile.Email,
			"provider": provider.Name(),
		})
		jsonwriter.WriteForbidden(w, "Your account is not authorized to access this application")
		return
	}

	sessionValue, err := h.sessions.Mint(identity.Identity{
		Subject:  profile.Subject,
		Email:    profile.Email,
		Name:     profile.Name,
		Provider: provider.Name(),
	})
	if err != nil {
		log.LogError("Failed to mint session: %v", err)
		jsonwriter.WriteInternalServerError(w, "Failed to create session")
		return
	}

	log.Logf("User authenticated: %s via %s", profile.Email, provider.Name())

	cookie.ClearState(w)
	cookie.SetSession(w, sessionValue, sessiontoken.SessionTTL)
	http.Redirect(w, r, sanitizeRedirect(loginState.RedirectTarget), http.StatusFound)
}

// LogoutHandler clears the session cookie and returns to the chooser
func (h *AuthHandlers) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	cookie.ClearSession(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}

// BridgeHandler redeems a short-lived bridging token for a full
// session cookie. An invalid or expired token gets a 401 and no
// cookie; redemption does not consume the token within its window.
func (h *AuthHandlers) BridgeHandler(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		jsonwriter.WriteBadRequest(w, "Missing token parameter")
		return
	}

	ident := h.sessions.VerifyBridge(token)
	if ident == nil {
		jsonwriter.WriteUnauthorized(w, "Invalid or expired token")
		return
	}

	sessionValue, err := h.sessions.Mint(*ident)
	if err != nil {
		log.LogError("Failed to mint session from bridging token: %v", err)
		jsonwriter.WriteInternalServerError(w, "Failed to create session")
		return
	}

	cookie.SetSession(w, sessionValue, sessiontoken.SessionTTL)
	http.Redirect(w, r, sanitizeRedirect(r.URL.Query().Get("redirect")), http.StatusFound)
}

type miniAppLoginRequest struct {
	Code string `json:"code"`
}

type miniAppLoginResponse struct {
	Token    string            `json:"token"`
	Identity identity.Identity `json:"identity"`
}

// MiniAppLoginHandler signs in an embedded Lark mini-app runtime. The
// runtime's SDK hands it a login code; we exchange it server-side and
// answer with a session cookie plus a bridging token the runtime can
// pass to an external browser.
func (h *AuthHandlers) MiniAppLoginHandler(w http.ResponseWriter, r *http.Request) {
	lark, ok := h.providers[identity.ProviderLark].(*idp.LarkProvider)
	if !ok {
		jsonwriter.WriteNotFound(w, "Lark login is not configured")
		return
	}

	var req miniAppLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		jsonwriter.WriteBadRequest(w, "Missing code")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), exchangeTimeout)
	defer cancel()

	profile, err := lark.ExchangeSDKCode(ctx, req.Code)
	if err != nil {
		if errors.Is(err, idp.ErrExchangeFailed) {
			log.LogError("Mini-app code exchange failed: %v", err)
			jsonwriter.WriteUnauthorized(w, "Authentication failed")
			return
		}
		log.LogError("Mini-app login failed: %v", err)
		jsonwriter.WriteInternalServerError(w, "Authentication failed")
		return
	}

	if !h.allow.Allowed(profile.Email) {
		log.LogWarnWithFields("auth", "Mini-app login denied by allowlist", map[string]any{
			"email": profile.Email,
		})
		jsonwriter.WriteForbidden(w, "Your account is not authorized to access this application")
		return
	}

	ident := identity.Identity{
		Subject:  profile.Subject,
		Email:    profile.Email,
		Name:     profile.Name,
		Provider: identity.ProviderLark,
	}

	sessionValue, err := h.sessions.Mint(ident)
	if err != nil {
		log.LogError("Failed to mint session: %v", err)
		jsonwriter.WriteInternalServerError(w, "Failed to create session")
		return
	}

	bridge, err := h.sessions.MintBridge(ident)
	if err != nil {
		log.LogError("Failed to mint bridging token: %v", err)
		jsonwriter.WriteInternalServerError(w, "Failed to create session")
		return
	}

	log.Logf("Mini-app user authenticated: %s", profile.Email)

	cookie.SetSession(w, sessionValue, sessiontoken.SessionTTL)
	if err := jsonwriter.Write(w, miniAppLoginResponse{Token: bridge, Identity: ident}); err != nil {
		log.LogError("Failed to write mini-app login response: %v", err)
	}
}

// CheckHandler reports whether the request carries a valid credential
func (h *AuthHandlers) CheckHandler(gw *auth.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, ok := gw.Authenticate(r)
		body := map[string]any{"authenticated": ok}
		if ok {
			body["email"] = ident.Email
			body["provider"] = ident.Provider
		}
		if err := jsonwriter.Write(w, body); err != nil {
			log.LogError("Failed to write auth check response: %v", err)
		}
	}
}

// validateCallback runs the order-sensitive checks on a provider
// callback: provider error first, then parameter presence, then the
// cookie mirror comparison, then state decoding.
func validateCallback(r *http.Request) (string, state.State, error) {
	q := r.URL.Query()

	if errMsg := q.Get("error"); errMsg != "" {
		return "", state.State{}, fmt.Errorf("%w: %s (%s)",
			idp.ErrProviderReported, errMsg, q.Get("error_description"))
	}

	code := q.Get("code")
	stateParam := q.Get("state")
	if code == "" || stateParam == "" {
		return "", state.State{}, idp.ErrMissingParameters
	}

	mirrored, err := cookie.GetState(r)
	if err != nil || mirrored != stateParam {
		return "", state.State{}, idp.ErrStateMismatch
	}

	loginState, err := state.Decode(stateParam)
	if err != nil {
		return "", state.State{}, err
	}

	return code, loginState, nil
}

// callbackURL builds the provider redirect URI from the configured
// base URL, falling back to the request origin behind a proxy.
func (h *AuthHandlers) callbackURL(r *http.Request, provider idp.Provider) string {
	base := h.baseURL
	if base == "" {
		scheme := "https"
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		} else if r.TLS == nil {
			scheme = "http"
		}
		base = scheme + "://" + r.Host
	}
	return urlutil.MustJoinPath(base, "auth", provider.Name(), "callback")
}

// sanitizeRedirect keeps post-login redirects on this host. Anything
// that is not a local absolute path collapses to "/".
func sanitizeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return "/"
	}
	return target
}
