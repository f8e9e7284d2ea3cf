// Package api serves the dashboard's view models over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/wnt/mychain-dash/internal/chain"
	"github.com/wnt/mychain-dash/internal/emitters"
	"github.com/wnt/mychain-dash/internal/metrics"
	"github.com/wnt/mychain-dash/internal/models"
	"github.com/wnt/mychain-dash/internal/parser"
	"github.com/wnt/mychain-dash/internal/signing"
	"github.com/wnt/mychain-dash/internal/utils"
)

// Store holds watched addresses, their snapshots and the wallet session
type Store interface {
	Watch(ctx context.Context, addr string, due time.Time) error
	Unwatch(ctx context.Context, addr string) error
	Watched(ctx context.Context) ([]string, error)
	Snapshot(ctx context.Context, addr string) (*models.PortfolioSnapshot, error)
	SaveSession(ctx context.Context, session models.Session) error
	Session(ctx context.Context) (*models.Session, error)
	ClearSession(ctx context.Context) error
	Ping(ctx context.Context) error
}

// Chain is the subset of chain queries served on demand
type Chain interface {
	UserHistory(ctx context.Context, address string) (*models.UserHistory, error)
	TransactionHistory(ctx context.Context, address string) ([]models.TransactionRecord, error)
	OrderBook(ctx context.Context, pairID string) (*models.OrderBook, error)
}

// Journal records parsed purchases
type Journal interface {
	Save(ctx context.Context, address string, result parser.Result) error
	ListByAddress(ctx context.Context, address string, limit int) ([]models.PurchaseReceipt, error)
}

// HealthReporter reports how many chain endpoints are usable
type HealthReporter interface {
	GetHealthyEndpointCount() int
	Size() int
}

// Deps are the collaborators of the server. Journal, Emitter and Health may be nil.
type Deps struct {
	Store   Store
	Chain   Chain
	Parser  *parser.Parser
	Journal Journal
	Emitter emitters.Emitter
	Health  HealthReporter
}

// Options configure the server
type Options struct {
	Port            string
	CORSAllowOrigin string
	Bech32Prefix    string
}

// Server is the dashboard HTTP API
type Server struct {
	deps       Deps
	opts       Options
	logger     zerolog.Logger
	handler    http.Handler
	httpServer *http.Server
	now        func() time.Time
}

// NewServer wires the routes
func NewServer(deps Deps, opts Options, logger zerolog.Logger) *Server {
	if deps.Emitter == nil {
		deps.Emitter = emitters.NopEmitter{}
	}
	if opts.Bech32Prefix == "" {
		opts.Bech32Prefix = signing.DefaultPrefix
	}

	s := &Server{
		deps:   deps,
		opts:   opts,
		logger: logger.With().Str("component", "api").Logger(),
		now:    time.Now,
	}

	mux := http.NewServeMux()

	// Portfolio routes
	mux.HandleFunc("GET /v1/portfolio/{address}", s.handlePortfolio)
	mux.HandleFunc("GET /v1/watch", s.handleWatched)
	mux.HandleFunc("POST /v1/watch/{address}", s.handleWatch)
	mux.HandleFunc("DELETE /v1/watch/{address}", s.handleUnwatch)

	// Session routes
	mux.HandleFunc("GET /v1/session", s.handleGetSession)
	mux.HandleFunc("PUT /v1/session", s.handlePutSession)
	mux.HandleFunc("DELETE /v1/session", s.handleDeleteSession)

	// Chain routes
	mux.HandleFunc("GET /v1/history/{address}", s.handleHistory)
	mux.HandleFunc("GET /v1/transactions/{address}", s.handleTransactions)
	mux.HandleFunc("GET /v1/orders/{pairId}", s.handleOrders)

	// Purchase routes
	mux.HandleFunc("POST /v1/parse", s.handleParse)
	mux.HandleFunc("GET /v1/purchases/{address}", s.handlePurchases)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.handler = utils.RequestLogger(
		utils.CORS(mux, opts.CORSAllowOrigin, "GET, POST, PUT, DELETE, OPTIONS", http.StatusNoContent),
		s.logger,
		metrics.RecordAPIRequest,
	)

	s.httpServer = &http.Server{
		Addr:         ":" + opts.Port,
		Handler:      s.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("Dashboard API listening")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// --- validation helpers ---

// pathAddress reads and validates the {address} path value
func (s *Server) pathAddress(w http.ResponseWriter, r *http.Request) (string, bool) {
	addr := r.PathValue("address")
	return addr, s.checkAddress(w, addr)
}

// checkAddress writes a 400 unless addr is a valid account address
func (s *Server) checkAddress(w http.ResponseWriter, addr string) bool {
	if err := signing.ValidateAddress(addr, s.opts.Bech32Prefix); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// --- response helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	utils.WriteJSON(w, status, v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	utils.WriteError(w, status, msg)
}

// writeChainError maps chain client errors to responses
func (s *Server) writeChainError(w http.ResponseWriter, err error, what string) {
	var statusErr *chain.StatusError
	var decodeErr *chain.DecodeError

	switch {
	case errors.Is(err, context.Canceled):
		return
	case errors.Is(err, chain.ErrUnreachable):
		writeError(w, http.StatusBadGateway, chain.ErrUnreachable.Error())
	case errors.As(err, &statusErr) && statusErr.NotFound():
		writeError(w, http.StatusNotFound, fmt.Sprintf("%s not found", what))
	case errors.As(err, &statusErr):
		writeError(w, http.StatusBadGateway, fmt.Sprintf("blockchain API returned status %d", statusErr.StatusCode))
	case errors.As(err, &decodeErr):
		writeError(w, http.StatusBadGateway, "malformed response from blockchain API")
	default:
		s.logger.Error().Err(err).Str("resource", what).Msg("Request failed")
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to fetch %s", what))
	}
}
