package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/meridianhq/portal/internal/auth"
	jsonwriter "github.com/meridianhq/portal/internal/json"
	"github.com/meridianhq/portal/internal/log"
)

// NewRouter builds the route table. app is the handler fronted by the
// auth gateway; every path not claimed below is served by it, behind
// authentication. A nil app falls back to a JSON 404.
func NewRouter(
	gw *auth.Gateway,
	authHandlers *AuthHandlers,
	adminHandlers *AdminHandlers,
	allowedOrigins []string,
	app http.Handler,
) http.Handler {
	if app == nil {
		app = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			jsonwriter.WriteNotFound(w, "Not found")
		})
	}

	r := chi.NewRouter()

	r.Use(NewRecoverMiddleware("server"))
	r.Use(NewLoggerMiddleware("server"))

	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   allowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", HealthHandler)

	r.Get("/login", authHandlers.LoginPageHandler(gw))
	r.Get("/login/{provider}", authHandlers.LoginHandler)
	r.Get("/auth/{provider}/callback", authHandlers.CallbackHandler)
	r.Get("/auth/token", authHandlers.BridgeHandler)
	r.Get("/logout", authHandlers.LogoutHandler)

	r.Get("/api/auth/check", authHandlers.CheckHandler(gw))
	r.Post("/api/auth/miniapp", authHandlers.MiniAppLoginHandler)

	if adminHandlers != nil {
		r.Route("/api/admin", func(r chi.Router) {
			r.Use(adminHandlers.RequireBasicAuth)
			r.Get("/loglevel", adminHandlers.GetLogLevelHandler)
			r.Put("/loglevel", adminHandlers.SetLogLevelHandler)
		})
	}

	r.Group(func(r chi.Router) {
		r.Use(NewRequireAuthMiddleware(gw))
		r.Get("/api/me", MeHandler)
		r.Handle("/*", app)
	})

	return r
}

// MeHandler echoes the authenticated identity back to the caller
func MeHandler(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		jsonwriter.WriteUnauthorized(w, "Authentication required")
		return
	}
	if err := jsonwriter.Write(w, ident); err != nil {
		log.LogError("Failed to write identity response: %v", err)
	}
}
