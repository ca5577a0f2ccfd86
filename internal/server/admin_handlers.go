package server

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/meridianhq/portal/internal/config"
	"github.com/meridianhq/portal/internal/crypto"
	jsonwriter "github.com/meridianhq/portal/internal/json"
	"github.com/meridianhq/portal/internal/log"
)

// AdminHandlers serves the operational endpoints. They sit behind
// basic auth rather than the session layer so they keep working when
// login itself is misbehaving.
type AdminHandlers struct {
	user         string
	passwordHash []byte
}

// NewAdminHandlers creates admin handlers from the configured
// credentials. Returns nil when no admin user is configured; the
// routes are simply not mounted in that case.
func NewAdminHandlers(cfg *config.Config) *AdminHandlers {
	if cfg.AdminUser == "" {
		return nil
	}
	return &AdminHandlers{
		user:         cfg.AdminUser,
		passwordHash: []byte(cfg.AdminPasswordHash),
	}
}

// RequireBasicAuth gates a handler behind the configured credentials
func (h *AdminHandlers) RequireBasicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, password, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(user), []byte(h.user)) != 1 ||
			!crypto.CheckPassword(h.passwordHash, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="portal admin"`)
			jsonwriter.WriteUnauthorized(w, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type logLevelResponse struct {
	Level string `json:"level"`
}

type logLevelRequest struct {
	Level string `json:"level"`
}

// GetLogLevelHandler reports the current log level
func (h *AdminHandlers) GetLogLevelHandler(w http.ResponseWriter, r *http.Request) {
	if err := jsonwriter.Write(w, logLevelResponse{Level: log.GetLogLevel()}); err != nil {
		log.LogError("Failed to write log level response: %v", err)
	}
}

// SetLogLevelHandler changes the log level at runtime
func (h *AdminHandlers) SetLogLevelHandler(w http.ResponseWriter, r *http.Request) {
	var req logLevelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Level == "" {
		jsonwriter.WriteBadRequest(w, "Missing level")
		return
	}

	if err := log.SetLogLevel(req.Level); err != nil {
		jsonwriter.WriteBadRequest(w, err.Error())
		return
	}

	log.LogInfoWithFields("admin", "Log level changed", map[string]any{
		"new_level": req.Level,
	})
	if err := jsonwriter.Write(w, logLevelResponse{Level: log.GetLogLevel()}); err != nil {
		log.LogError("Failed to write log level response: %v", err)
	}
}
