package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"user-events-service/cmd/api/di"
)

// Server owns the HTTP listener.
type Server struct {
	Logger *zap.Logger
	HTTP   *http.Server
}

// New builds the HTTP server from the container's handler and rate limiter.
func New(c *di.Container) *Server {
	addr := ":" + c.Config.App.HTTPPort
	return &Server{
		Logger: c.Logger,
		HTTP:   SetupGinServer(c.GinHandler, c.RateLimiter, c.Config.Logger.ServiceName, c.HealthChecks(), addr, c.Logger),
	}
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.Logger.Info("HTTP server running", zap.String("address", s.HTTP.Addr))

	if err := s.HTTP.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve HTTP: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.HTTP.Shutdown(ctx)
}
