package internal

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/meridianhq/portal/internal/allowlist"
	"github.com/meridianhq/portal/internal/auth"
	"github.com/meridianhq/portal/internal/config"
	"github.com/meridianhq/portal/internal/gateway"
	"github.com/meridianhq/portal/internal/idp"
	"github.com/meridianhq/portal/internal/log"
	"github.com/meridianhq/portal/internal/server"
	"github.com/meridianhq/portal/internal/sessiontoken"
)

// Portal represents the complete identity and session application
type Portal struct {
	config     *config.Config
	httpServer *server.HTTPServer
}

// NewPortal creates the portal application with all dependencies built.
// app is the handler fronted by the auth gateway; pass nil to serve a
// JSON 404 behind authentication.
func NewPortal(cfg *config.Config, app http.Handler) (*Portal, error) {
	log.LogInfoWithFields("portal", "Building portal application", map[string]any{
		"addr":           cfg.Addr,
		"google":         cfg.HasGoogle(),
		"lark":           cfg.LarkApp() != nil,
		"access_gateway": cfg.HasGateway(),
	})

	providers, err := idp.NewProviders(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build identity providers: %w", err)
	}

	sessions := sessiontoken.New([]byte(cfg.SessionSecret))
	allow := allowlist.New(cfg.AllowedEmails)

	var verifier *gateway.Verifier
	if cfg.HasGateway() {
		verifier = gateway.NewVerifier(cfg.AccessTeam, cfg.AccessAudience)
	}

	gw := auth.NewGateway(verifier, sessions)

	authHandlers := server.NewAuthHandlers(providers, sessions, allow, cfg.BaseURL)
	adminHandlers := server.NewAdminHandlers(cfg)

	router := server.NewRouter(gw, authHandlers, adminHandlers, cfg.AllowedOrigins, app)
	httpServer := server.NewHTTPServer(router, cfg.Addr)

	return &Portal{
		config:     cfg,
		httpServer: httpServer,
	}, nil
}

// Run starts the portal and blocks until a shutdown signal or a fatal
// server error, then shuts down gracefully.
func (p *Portal) Run() error {
	log.LogInfoWithFields("portal", "Starting portal", map[string]any{
		"addr": p.config.Addr,
	})

	errChan := make(chan error, 1)
	go func() {
		if err := p.httpServer.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var shutdownReason string
	select {
	case sig := <-sigChan:
		shutdownReason = fmt.Sprintf("signal %v", sig)
		log.LogInfoWithFields("portal", "Received shutdown signal", map[string]any{
			"signal": sig.String(),
		})
	case err := <-errChan:
		shutdownReason = fmt.Sprintf("error: %v", err)
		log.LogErrorWithFields("portal", "Shutting down due to error", map[string]any{
			"error": err.Error(),
		})
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := p.httpServer.Stop(shutdownCtx); err != nil {
		log.LogErrorWithFields("portal", "HTTP server shutdown error", map[string]any{
			"error": err.Error(),
		})
		return err
	}

	log.LogInfoWithFields("portal", "Shutdown complete", map[string]any{
		"reason": shutdownReason,
	})
	return nil
}
