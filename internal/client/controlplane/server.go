package controlplane

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/openmined/plugsync/internal/utils"
)

// Server serves the control plane until stopped.
type Server struct {
	config *Config
	server *http.Server
}

func NewServer(config *Config, backend Backend) *Server {
	return &Server{
		config: config,
		server: &http.Server{
			Addr:              config.Addr,
			Handler:           SetupRoutes(backend, config),
			ReadTimeout:       readTimeout,
			ReadHeaderTimeout: readTimeout,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       idleTimeout,
			MaxHeaderBytes:    1 << 16,
		},
	}
}

// Start listens and serves. It returns once the listener failed or the server
// was stopped, in which case the error is nil.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("control plane listen: %w", err)
	}
	return s.Serve(ln)
}

func (s *Server) Serve(ln net.Listener) error {
	slog.Info("control plane start", "addr", "http://"+ln.Addr().String(), "token", utils.MaskSecret(s.config.AuthToken))
	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("control plane serve: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	slog.Info("control plane stop")
	return s.server.Shutdown(ctx)
}
