// package server contains the HTTP surface of the playlist gateway:
// routing, session middleware, the login flow, and the playlist API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spindle/internal/shared"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for HTTP request handlers in the service.
// Implementations handle specific endpoints (auth, playlist operations, health).
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the method-qualified patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// Server wraps [http.Server] with the service's lifecycle conventions.
type Server struct {
	srv    *http.Server
	logger *log.Logger
}

// NewServer creates a [Server] listening on the configured host and port.
func NewServer(conf shared.ServerConfig, router Router, logger *log.Logger) *Server {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", conf.Host, conf.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.srv.Addr
}

// Start serves until the listener fails or the server shuts down.
func (s *Server) Start() error {
	s.logger.Info("server listening", "addr", s.srv.Addr)

	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	return s.srv.Shutdown(ctx)
}
