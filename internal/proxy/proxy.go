// Package proxy forwards browser requests to the chain REST port with CORS
// headers added.
package proxy

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wnt/mychain-dash/internal/metrics"
	"github.com/wnt/mychain-dash/internal/utils"
)

// Options configure the proxy
type Options struct {
	Port            string
	Target          string
	Service         string
	CORSAllowOrigin string
}

// Server is a CORS enabled reverse proxy in front of the chain REST API
type Server struct {
	target     *url.URL
	service    string
	logger     zerolog.Logger
	handler    http.Handler
	httpServer *http.Server
}

// New creates the proxy. Target must be an absolute http(s) URL.
func New(opts Options, logger zerolog.Logger) (*Server, error) {
	target, err := url.Parse(opts.Target)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		return nil, fmt.Errorf("invalid proxy target: %q", opts.Target)
	}
	if opts.Service == "" {
		opts.Service = "api-proxy-" + opts.Port
	}

	s := &Server{
		target:  target,
		service: opts.Service,
		logger:  logger.With().Str("component", "proxy").Str("target", target.String()).Logger(),
	}

	rp := &httputil.ReverseProxy{
		Rewrite: func(r *httputil.ProxyRequest) {
			r.SetURL(target)
			r.SetXForwarded()
		},
		ModifyResponse: func(resp *http.Response) error {
			// the proxy owns the CORS headers
			for key := range resp.Header {
				if strings.HasPrefix(key, "Access-Control-") {
					resp.Header.Del(key)
				}
			}
			return nil
		},
		ErrorHandler: s.handleError,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("/", rp)

	s.handler = utils.RequestLogger(
		utils.CORS(mux, opts.CORSAllowOrigin, "GET, POST, PUT, DELETE, OPTIONS", http.StatusNoContent),
		s.logger,
		metrics.RecordProxyRequest,
	)

	s.httpServer = &http.Server{
		Addr:              ":" + opts.Port,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("API proxy listening")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": s.service})
}

// handleError answers requests the upstream could not serve
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("Proxy error")
	utils.WriteJSON(w, http.StatusInternalServerError, map[string]string{
		"error":   "Proxy error",
		"details": err.Error(),
	})
}
