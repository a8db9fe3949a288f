package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coalharbourgroup/PM-email-vcs/internal/config"
	"github.com/coalharbourgroup/PM-email-vcs/internal/handlers"
	"github.com/coalharbourgroup/PM-email-vcs/internal/logger"
	"github.com/coalharbourgroup/PM-email-vcs/internal/middleware"
)

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	handler    *handlers.Handler
	middleware *middleware.Middleware
	log        *logger.Logger
}

// New creates a new HTTP server
func New(cfg *config.Config, handler *handlers.Handler, log *logger.Logger) *Server {
	s := &Server{
		handler:    handler,
		middleware: middleware.New(log, middleware.Options{
			APIKeys:    cfg.Security.APIKeys,
			TrustProxy: cfg.Server.TrustProxy,
		}),
		log:        log,
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      s.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s
}

// Routes returns the routed handler wrapped in the middleware chain
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handler.HealthCheck)
	mux.HandleFunc("/webhook", s.handler.GitHubWebhook)
	mux.HandleFunc("/webhook/github", s.handler.GitHubWebhook)
	mux.Handle("/deliveries", s.middleware.APIKeyAuth(http.HandlerFunc(s.handler.ListDeliveries)))

	handler := s.middleware.Recovery(mux)
	handler = s.middleware.Logging(handler)
	handler = s.middleware.Security(handler)
	handler = s.middleware.RateLimit(handler)

	return handler
}

// Start serves HTTP in the background. Listener failures are sent to errc.
func (s *Server) Start(errc chan<- error) {
	s.log.Infof("HTTP server listening on %s", s.httpServer.Addr)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.log.Info("HTTP server shutdown complete")
	return nil
}
