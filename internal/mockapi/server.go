// Package mockapi serves canned chain REST responses for local dashboard
// development.
package mockapi

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/wnt/mychain-dash/internal/metrics"
	"github.com/wnt/mychain-dash/internal/utils"
)

// Server answers GET requests from a fixture set
type Server struct {
	fixtures   Fixtures
	logger     zerolog.Logger
	handler    http.Handler
	httpServer *http.Server
}

// New creates a mock API server on port serving fixtures
func New(port string, fixtures Fixtures, allowOrigin string, logger zerolog.Logger) *Server {
	s := &Server{
		fixtures: fixtures,
		logger:   logger.With().Str("component", "mockapi").Logger(),
	}

	cors := utils.CORS(http.HandlerFunc(s.serve), allowOrigin, "GET, POST, PUT, DELETE, OPTIONS", http.StatusNoContent)
	s.handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			metrics.RecordMockRequest("preflight")
		}
		cors.ServeHTTP(w, r)
	})
	s.httpServer = &http.Server{
		Addr:              ":" + port,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Int("fixtures", len(s.fixtures)).Msg("Mock API server listening")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	body, ok := s.fixtures[r.URL.Path]
	if !ok || r.Method != http.MethodGet {
		s.logger.Info().Str("method", r.Method).Str("path", r.URL.Path).Msg("Mock API request not found")
		metrics.RecordMockRequest("miss")
		utils.WriteError(w, http.StatusNotFound, "Not found")
		return
	}

	s.logger.Info().Str("method", r.Method).Str("path", r.URL.Path).Msg("Mock API request")
	metrics.RecordMockRequest("hit")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
