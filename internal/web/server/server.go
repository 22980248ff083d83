// Package server runs the HTTP server in front of the mounted resources.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Server wraps http.Server with a listener that can be opened before serving
type Server struct {
	httpServer *http.Server
	config     *Config
	logger     *zap.Logger

	mu       sync.Mutex
	listener net.Listener
}

// Config holds server configuration
type Config struct {
	// Address is the server listen address (e.g., ":8080")
	Address string

	// Handler is the HTTP handler for the server
	Handler http.Handler

	// TLS configuration
	TLSConfig *TLSConfig

	// Timeouts. Exports stream for as long as WriteTimeout allows.
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ReadHeaderTimeout time.Duration

	// Connection limits
	MaxHeaderBytes int

	// HTTP/2 settings
	EnableHTTP2 bool

	Logger *zap.Logger
}

// TLSConfig holds TLS/SSL configuration
type TLSConfig struct {
	// CertFile is the path to the TLS certificate
	CertFile string

	// KeyFile is the path to the TLS private key
	KeyFile string

	// MinVersion is the minimum TLS version (default: TLS 1.2)
	MinVersion uint16

	// Custom tls.Config (optional)
	Config *tls.Config
}

// DefaultConfig returns a production-ready server configuration
func DefaultConfig(handler http.Handler) *Config {
	return &Config{
		Address:           ":8080",
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
		EnableHTTP2:       true,
	}
}

// New creates a server
func New(config *Config) (*Server, error) {
	if config == nil {
		return nil, fmt.Errorf("server config cannot be nil")
	}

	if config.Handler == nil {
		return nil, fmt.Errorf("handler cannot be nil")
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	httpServer := &http.Server{
		Addr:              config.Address,
		Handler:           config.Handler,
		ReadTimeout:       config.ReadTimeout,
		WriteTimeout:      config.WriteTimeout,
		IdleTimeout:       config.IdleTimeout,
		ReadHeaderTimeout: config.ReadHeaderTimeout,
		MaxHeaderBytes:    config.MaxHeaderBytes,
		ErrorLog:          zap.NewStdLog(logger),
	}

	if config.TLSConfig != nil {
		httpServer.TLSConfig = buildTLSConfig(config.TLSConfig, config.EnableHTTP2)
	}

	return &Server{
		httpServer: httpServer,
		config:     config,
		logger:     logger,
	}, nil
}

// Listen opens the listener without serving, so Addr reports the bound
// address when Address uses port 0
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	s.listener = listener
	return nil
}

// Start serves until the server is shut down. It returns nil after a clean
// shutdown.
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}

	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()

	s.logger.Info("server listening", zap.String("addr", listener.Addr().String()))

	var err error
	if s.config.TLSConfig != nil {
		err = s.httpServer.ServeTLS(listener, s.config.TLSConfig.CertFile, s.config.TLSConfig.KeyFile)
	} else {
		err = s.httpServer.Serve(listener)
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Close immediately closes the server
func (s *Server) Close() error {
	return s.httpServer.Close()
}

// Addr returns the server's network address
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Address
}

// buildTLSConfig builds a TLS configuration with HTTP/2 support
func buildTLSConfig(tlsConfig *TLSConfig, enableHTTP2 bool) *tls.Config {
	// Use custom config if provided
	if tlsConfig.Config != nil {
		config := tlsConfig.Config.Clone()
		if enableHTTP2 {
			config.NextProtos = []string{"h2", "http/1.1"}
		}
		return config
	}

	config := &tls.Config{
		MinVersion: tlsConfig.MinVersion,
	}

	if config.MinVersion == 0 {
		config.MinVersion = tls.VersionTLS12
	}

	if enableHTTP2 {
		config.NextProtos = []string{"h2", "http/1.1"}
	}

	return config
}
