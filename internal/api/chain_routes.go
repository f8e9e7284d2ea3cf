package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/wnt/mychain-dash/internal/models"
	"github.com/wnt/mychain-dash/internal/parser"
	"github.com/wnt/mychain-dash/internal/portfolio"
)

const maxParseBody = 1 << 20

type historyResponse struct {
	models.UserHistory
	AveragePrice   string `json:"average_price"`
	PurchaseCount  int    `json:"purchase_count"`
	TokensDisplay  string `json:"tokens_display"`
	SpentDisplay   string `json:"spent_display"`
	InvalidRecords int    `json:"invalid_records"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.pathAddress(w, r)
	if !ok {
		return
	}

	history, err := s.deps.Chain.UserHistory(r.Context(), addr)
	if err != nil {
		s.writeChainError(w, err, "purchase history")
		return
	}

	summary, err := portfolio.SummarizeHistory(addr, history.Purchases)
	if err != nil {
		s.logger.Warn().Err(err).Str("address", addr).Msg("Purchase history has invalid amounts")
		writeError(w, http.StatusBadGateway, "malformed response from blockchain API")
		return
	}

	invalid := 0
	for _, p := range summary.Purchases {
		if p.Validate() != nil {
			invalid++
		}
	}

	writeJSON(w, http.StatusOK, historyResponse{
		UserHistory:    summary,
		AveragePrice:   portfolio.AveragePrice(summary).String(),
		PurchaseCount:  len(summary.Purchases),
		TokensDisplay:  portfolio.FormatMicro(summary.TotalTokensBought, 6),
		SpentDisplay:   portfolio.FormatMicro(summary.TotalSpent, 6),
		InvalidRecords: invalid,
	})
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.pathAddress(w, r)
	if !ok {
		return
	}

	filter, ok := portfolio.ParseTxType(r.URL.Query().Get("type"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid type filter")
		return
	}

	records, err := s.deps.Chain.TransactionHistory(r.Context(), addr)
	if err != nil {
		s.writeChainError(w, err, "transaction history")
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Address      string                            `json:"address"`
		Filter       models.TxType                     `json:"filter,omitempty"`
		Transactions []portfolio.ClassifiedTransaction `json:"transactions"`
		Counts       map[models.TxType]int             `json:"counts"`
	}{
		Address:      addr,
		Filter:       filter,
		Transactions: portfolio.FilterTransactions(records, filter),
		Counts:       portfolio.CountByType(records),
	})
}

type ordersResponse struct {
	PairID              string              `json:"pair_id"`
	BuyOrders           []models.Order      `json:"buy_orders"`
	SellOrders          []models.Order      `json:"sell_orders"`
	Depth               portfolio.BookDepth `json:"depth"`
	Maker               string              `json:"maker,omitempty"`
	MakerOrders         []models.Order      `json:"maker_orders,omitempty"`
	MakerLiquidityValue string              `json:"maker_liquidity_value,omitempty"`
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	pairID := r.PathValue("pairId")
	if _, err := strconv.ParseUint(pairID, 10, 64); err != nil {
		writeError(w, http.StatusBadRequest, "pairId must be an unsigned integer")
		return
	}

	book, err := s.deps.Chain.OrderBook(r.Context(), pairID)
	if err != nil {
		s.writeChainError(w, err, "order book")
		return
	}

	depth, err := portfolio.Depth(book)
	if err != nil {
		s.logger.Warn().Err(err).Str("pair_id", pairID).Msg("Order book has invalid orders")
		writeError(w, http.StatusBadGateway, "malformed response from blockchain API")
		return
	}

	resp := ordersResponse{
		PairID:     pairID,
		BuyOrders:  nonNilOrders(book.BuyOrders),
		SellOrders: nonNilOrders(book.SellOrders),
		Depth:      depth,
	}

	if maker := r.URL.Query().Get("maker"); maker != "" {
		if !s.checkAddress(w, maker) {
			return
		}
		resp.Maker = maker
		resp.MakerOrders = portfolio.SplitOrders(book, maker)
		value, err := portfolio.LiquidityValue(resp.MakerOrders)
		if err != nil {
			writeError(w, http.StatusBadGateway, "malformed response from blockchain API")
			return
		}
		resp.MakerLiquidityValue = value.String()
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleParse parses a raw transaction response. With ?address= the result is
// also journaled and published.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	addr := r.URL.Query().Get("address")
	if addr != "" && !s.checkAddress(w, addr) {
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxParseBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	var result parser.Result
	if r.URL.Query().Get("format") == "terminal" {
		result = s.deps.Parser.ParseTerminalResponse(raw)
	} else {
		result = s.deps.Parser.ParseRaw(raw)
	}

	if addr != "" && result.TxHash != "" {
		s.recordPurchase(r, addr, result)
	}

	status := http.StatusOK
	if !result.Success && !errors.Is(result.Err, parser.ErrTxFailed) {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, result)
}

func (s *Server) recordPurchase(r *http.Request, addr string, result parser.Result) {
	ctx := r.Context()
	if s.deps.Journal != nil {
		if err := s.deps.Journal.Save(ctx, addr, result); err != nil {
			s.logger.Error().Err(err).Str("tx_hash", result.TxHash).Msg("Failed to journal purchase")
		}
	}
	if err := s.deps.Emitter.EmitPurchase(ctx, addr, result); err != nil {
		s.logger.Error().Err(err).Str("tx_hash", result.TxHash).Msg("Failed to emit purchase")
	}
}

func (s *Server) handlePurchases(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.pathAddress(w, r)
	if !ok {
		return
	}
	if s.deps.Journal == nil {
		writeError(w, http.StatusServiceUnavailable, "purchase journal is not configured")
		return
	}

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 || limit > 500 {
		limit = 50
	}

	receipts, err := s.deps.Journal.ListByAddress(r.Context(), addr, limit)
	if err != nil {
		s.logger.Error().Err(err).Str("address", addr).Msg("Failed to list purchases")
		writeError(w, http.StatusInternalServerError, "failed to list purchases")
		return
	}
	if receipts == nil {
		receipts = []models.PurchaseReceipt{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"address": addr, "purchases": receipts})
}

func nonNilOrders(orders []models.Order) []models.Order {
	if orders == nil {
		return []models.Order{}
	}
	return orders
}

// formatLiquidity renders a liquidity value for display
func formatLiquidity(value string) string {
	v, err := decimal.NewFromString(value)
	if err != nil {
		return portfolio.FormatUSD(decimal.Zero)
	}
	return portfolio.FormatUSD(v)
}
