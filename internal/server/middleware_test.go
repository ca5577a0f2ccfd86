package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianhq/portal/internal/auth"
	"github.com/meridianhq/portal/internal/cookie"
	"github.com/meridianhq/portal/internal/sessiontoken"
)

func TestRecoverMiddleware(t *testing.T) {
	handler := NewRecoverMiddleware("test")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestLoggerMiddleware_PassesThrough(t *testing.T) {
	handler := NewLoggerMiddleware("test")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/teapot", nil))

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, "short and stout", w.Body.String())
}

func TestResponseWriterDelegator_DoubleWriteHeader(t *testing.T) {
	w := httptest.NewRecorder()
	wrapped := wrapResponseWriter(w)

	wrapped.WriteHeader(http.StatusNotFound)
	wrapped.WriteHeader(http.StatusOK) // ignored

	assert.Equal(t, http.StatusNotFound, wrapped.status)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRequireAuthMiddleware(t *testing.T) {
	sessions := sessiontoken.New(testSecret)
	gw := auth.NewGateway(nil, sessions)

	var gotEmail string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ident, ok := auth.IdentityFromContext(r.Context()); ok {
			gotEmail = ident.Email
		}
		w.WriteHeader(http.StatusOK)
	})
	handler := NewRequireAuthMiddleware(gw)(next)

	t.Run("public path passes without credentials", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unauthenticated page is redirected to login", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/reports/weekly?tab=2", nil))
		require.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/login?redirect=%2Freports%2Fweekly%3Ftab%3D2", w.Header().Get("Location"))
	})

	t.Run("unauthenticated API call gets 401", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/reports", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid session reaches the handler with identity", func(t *testing.T) {
		token, err := sessions.Mint(testIdentity())
		require.NoError(t, err)

		r := httptest.NewRequest(http.MethodGet, "/reports", nil)
		r.AddCookie(&http.Cookie{Name: cookie.Session, Value: token})
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "alice@example.com", gotEmail)
	})
}
