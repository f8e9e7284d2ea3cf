package api

import (
	"encoding/json"
	"net/http"

	"github.com/wnt/mychain-dash/internal/models"
	"github.com/wnt/mychain-dash/internal/portfolio"
)

type watchResponse struct {
	Address  string `json:"address"`
	Watching bool   `json:"watching"`
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.pathAddress(w, r)
	if !ok {
		return
	}

	snap, err := s.deps.Store.Snapshot(r.Context(), addr)
	if err != nil {
		s.logger.Error().Err(err).Str("address", addr).Msg("Failed to load snapshot")
		writeError(w, http.StatusInternalServerError, "failed to load portfolio")
		return
	}
	if snap == nil {
		writeError(w, http.StatusNotFound, "no portfolio snapshot for address, watch it first")
		return
	}

	writeJSON(w, http.StatusOK, struct {
		*models.PortfolioSnapshot
		LiquidityDisplay string   `json:"liquidity_display"`
		FailedParts      []string `json:"failed_parts"`
	}{
		PortfolioSnapshot: snap,
		LiquidityDisplay:  formatLiquidity(snap.LiquidityValue),
		FailedParts:       portfolio.FailedParts(*snap),
	})
}

func (s *Server) handleWatched(w http.ResponseWriter, r *http.Request) {
	addrs, err := s.deps.Store.Watched(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list watched addresses")
		writeError(w, http.StatusInternalServerError, "failed to list watched addresses")
		return
	}
	if addrs == nil {
		addrs = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"addresses": addrs})
}

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.pathAddress(w, r)
	if !ok {
		return
	}

	if err := s.deps.Store.Watch(r.Context(), addr, s.now()); err != nil {
		s.logger.Error().Err(err).Str("address", addr).Msg("Failed to watch address")
		writeError(w, http.StatusInternalServerError, "failed to watch address")
		return
	}
	writeJSON(w, http.StatusAccepted, watchResponse{Address: addr, Watching: true})
}

func (s *Server) handleUnwatch(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.pathAddress(w, r)
	if !ok {
		return
	}

	if err := s.deps.Store.Unwatch(r.Context(), addr); err != nil {
		s.logger.Error().Err(err).Str("address", addr).Msg("Failed to unwatch address")
		writeError(w, http.StatusInternalServerError, "failed to unwatch address")
		return
	}
	writeJSON(w, http.StatusOK, watchResponse{Address: addr, Watching: false})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.deps.Store.Session(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load session")
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	if session == nil {
		writeError(w, http.StatusNotFound, "no wallet connected")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// handlePutSession connects a wallet and starts polling its portfolio
func (s *Server) handlePutSession(w http.ResponseWriter, r *http.Request) {
	var session models.Session
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&session); err != nil {
		writeError(w, http.StatusBadRequest, "invalid session body")
		return
	}
	if session.WalletKind == "" {
		session.WalletKind = models.WalletKindExternal
	}
	if session.WalletKind != models.WalletKindKey && session.WalletKind != models.WalletKindExternal {
		writeError(w, http.StatusBadRequest, "wallet_kind must be key or external")
		return
	}
	if !s.checkAddress(w, session.Address) {
		return
	}

	ctx := r.Context()
	if err := s.deps.Store.SaveSession(ctx, session); err != nil {
		s.logger.Error().Err(err).Msg("Failed to save session")
		writeError(w, http.StatusInternalServerError, "failed to save session")
		return
	}
	if err := s.deps.Store.Watch(ctx, session.Address, s.now()); err != nil {
		s.logger.Warn().Err(err).Str("address", session.Address).Msg("Failed to watch session address")
	}

	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Store.ClearSession(r.Context()); err != nil {
		s.logger.Error().Err(err).Msg("Failed to clear session")
		writeError(w, http.StatusInternalServerError, "failed to clear session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
