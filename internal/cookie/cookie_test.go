package cookie

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findCookie(t *testing.T, w *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("cookie %q not set", name)
	return nil
}

func TestSetSession(t *testing.T) {
	w := httptest.NewRecorder()
	SetSession(w, "token-value", 24*time.Hour)

	c := findCookie(t, w, Session)
	assert.Equal(t, "token-value", c.Value)
	assert.Equal(t, "/", c.Path)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, int((24 * time.Hour).Seconds()), c.MaxAge)
}

func TestSetState(t *testing.T) {
	w := httptest.NewRecorder()
	SetState(w, "opaque-state")

	c := findCookie(t, w, OAuthState)
	assert.Equal(t, "opaque-state", c.Value)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, int(StateMaxAge.Seconds()), c.MaxAge)
}

func TestClearSession(t *testing.T) {
	w := httptest.NewRecorder()
	ClearSession(w)

	c := findCookie(t, w, Session)
	assert.Empty(t, c.Value)
	assert.Negative(t, c.MaxAge)
}

func TestGetSession(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: Session, Value: "abc"})

	value, err := GetSession(r)
	require.NoError(t, err)
	assert.Equal(t, "abc", value)
}

func TestGetSession_Missing(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	_, err := GetSession(r)
	assert.ErrorIs(t, err, http.ErrNoCookie)
}
