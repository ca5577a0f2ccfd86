package cookie

import (
	"net/http"
	"time"

	"github.com/meridianhq/portal/internal/envutil"
	"github.com/meridianhq/portal/internal/log"
)

// Cookie names used by the portal
const (
	Session    = "session"
	OAuthState = "oauth_state"
)

// SessionMaxAge matches the lifetime embedded in session tokens.
const SessionMaxAge = 24 * time.Hour

// StateMaxAge bounds a single login attempt.
const StateMaxAge = 10 * time.Minute

// SetSession sets the session cookie with appropriate security settings
func SetSession(w http.ResponseWriter, value string, maxAge time.Duration) {
	secure := !envutil.IsDev()
	http.SetCookie(w, &http.Cookie{
		Name:     Session,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(maxAge.Seconds()),
	})

	log.LogTraceWithFields("cookie", "Session cookie set", map[string]any{
		"maxAge":   maxAge.String(),
		"secure":   secure,
		"sameSite": "Lax",
	})
}

// SetState sets the short-lived anti-forgery state cookie mirrored
// through the provider redirect
func SetState(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     OAuthState,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   !envutil.IsDev(),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(StateMaxAge.Seconds()),
	})
}

// Clear removes a cookie by setting Max-Age=0
func Clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:   name,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
}

// ClearSession removes the session cookie
func ClearSession(w http.ResponseWriter) {
	Clear(w, Session)
	log.LogTraceWithFields("cookie", "Session cookie cleared", nil)
}

// ClearState removes the anti-forgery state cookie
func ClearState(w http.ResponseWriter) {
	Clear(w, OAuthState)
}

// Get retrieves a cookie value from the request
func Get(r *http.Request, name string) (string, error) {
	cookie, err := r.Cookie(name)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}

// GetSession retrieves the session cookie value
func GetSession(r *http.Request) (string, error) {
	return Get(r, Session)
}

// GetState retrieves the anti-forgery state cookie value
func GetState(r *http.Request) (string, error) {
	return Get(r, OAuthState)
}
