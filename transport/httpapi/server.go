package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/stylusfm/stylus/pkg/logger"
)

// Server wraps http.Server with the service's timeouts. Only the
// header read is bounded; uploads and downloads may legitimately take
// as long as the audio is large.
type Server struct {
	srv *http.Server
	log *logger.Logger
}

// NewServer creates an HTTP server for the given handler.
func NewServer(addr string, handler http.Handler, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log,
	}
}

// Start serves requests until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	s.log.Info("listening", zap.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight
// requests up to the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
