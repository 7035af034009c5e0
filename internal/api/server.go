package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/roach88/dataserver/internal/ingest"
	"github.com/roach88/dataserver/internal/query"
)

// Default server timeouts.
const (
	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 30 * time.Second
)

// Server is the dataserver HTTP server listening on TCP.
type Server struct {
	listenAddress string
	handler       *Handler
	httpServer    *http.Server
	listener      net.Listener
	logger        *slog.Logger
	serveErr      chan error
}

// ServerConfig holds configuration for creating a new Server.
type ServerConfig struct {
	ListenAddress string // e.g. "127.0.0.1:8090"; port 0 picks a free port
	Ingest        *ingest.Service
	Query         *query.Service
	Logger        *slog.Logger

	ReadTimeout  time.Duration // zero means DefaultReadTimeout
	WriteTimeout time.Duration // zero means DefaultWriteTimeout
	MaxBodyBytes int64         // zero means DefaultMaxBodyBytes
}

// NewServer creates a new server. It does not start listening.
func NewServer(config ServerConfig) (*Server, error) {
	if config.ListenAddress == "" {
		return nil, fmt.Errorf("listen address is required")
	}
	if config.Ingest == nil || config.Query == nil {
		return nil, fmt.Errorf("ingest and query services are required")
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	readTimeout := config.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	writeTimeout := config.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}

	handler := NewHandler(config.Ingest, config.Query, logger, config.MaxBodyBytes)

	return &Server{
		listenAddress: config.ListenAddress,
		handler:       handler,
		httpServer: &http.Server{
			Handler:      handler.Routes(),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
		},
		logger:   logger,
		serveErr: make(chan error, 1),
	}, nil
}

// Handler returns the server's request router.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening and serves in a background goroutine.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.listenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on TCP %s: %w", s.listenAddress, err)
	}
	s.listener = listener
	s.logger.Info("dataserver started", "address", listener.Addr().String())

	go func() {
		err := s.httpServer.Serve(listener)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		if err != nil {
			s.logger.Error("http server error", "error", err)
		}
		s.serveErr <- err
		close(s.serveErr)
	}()
	return nil
}

// Done receives once when serving stops after Start: nil after Shutdown,
// otherwise the error that ended Serve.
func (s *Server) Done() <-chan error {
	return s.serveErr
}

// Addr returns the address the server is listening on, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down dataserver")
	return s.httpServer.Shutdown(ctx)
}
