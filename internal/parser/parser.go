// Package parser turns MainCoin purchase transaction results into purchase
// summaries with their per-segment breakdown.
package parser

import (
	"bytes"
	"encoding/json"
	"errors"

	goerrors "github.com/go-errors/errors"
	"github.com/rs/zerolog"
	"github.com/wnt/mychain-dash/internal/metrics"
	"github.com/wnt/mychain-dash/internal/models"
)

// EventBuyMaincoinWithDev is emitted by the maincoin module for a purchase
const EventBuyMaincoinWithDev = "buy_maincoin_with_dev"

// Attribute keys of EventBuyMaincoinWithDev
const (
	AttrUserTokens  = "user_tokens"
	AttrDevTokens   = "dev_tokens"
	AttrAmountSpent = "amount_spent"
	AttrSegments    = "segments"
)

// Messages carried by Result
const (
	MsgPurchaseCompleted = "Purchase completed successfully"
	MsgTxFailed          = "Transaction failed"
	MsgParseFailed       = "Failed to parse transaction response"
	MsgInvalidFormat     = "Invalid response format"
)

var (
	// ErrTxFailed marks results of transactions the chain rejected
	ErrTxFailed = errors.New("transaction failed")

	// ErrMalformed marks results that could not be built from the response
	ErrMalformed = errors.New("malformed transaction response")
)

// Result is the outcome of parsing a purchase transaction. A failed Result
// only carries Error.
type Result struct {
	Success            bool                   `json:"success"`
	TxHash             string                 `json:"txHash,omitempty"`
	TotalTokensBought  string                 `json:"totalTokensBought,omitempty"`
	TotalUserTokens    string                 `json:"totalUserTokens,omitempty"`
	TotalDevAllocation string                 `json:"totalDevAllocation,omitempty"`
	TotalPaid          string                 `json:"totalPaid,omitempty"`
	Segments           []models.ParsedSegment `json:"segments"`
	Message            string                 `json:"message,omitempty"`
	Error              string                 `json:"error,omitempty"`

	// Err is ErrTxFailed or ErrMalformed on failure
	Err error `json:"-"`
}

// MarshalJSON drops the segment list from failed results
func (r Result) MarshalJSON() ([]byte, error) {
	type plain Result
	if !r.Success {
		return json.Marshal(struct {
			Success bool   `json:"success"`
			Error   string `json:"error"`
		}{false, r.Error})
	}
	if r.Segments == nil {
		r.Segments = []models.ParsedSegment{}
	}
	return json.Marshal(plain(r))
}

func failure(msg string, err error) Result {
	return Result{Success: false, Error: msg, Err: err}
}

// Parser extracts purchase results from transaction responses
type Parser struct {
	logger         zerolog.Logger
	decodeSegments func(string) ([]models.ParsedSegment, error)
}

// New creates a parser
func New(logger zerolog.Logger) *Parser {
	return &Parser{
		logger:         logger.With().Str("component", "purchase_parser").Logger(),
		decodeSegments: decodeSegments,
	}
}

func decodeSegments(value string) ([]models.ParsedSegment, error) {
	var segments []models.ParsedSegment
	if err := json.Unmarshal([]byte(value), &segments); err != nil {
		return nil, err
	}
	return segments, nil
}

// ParsePurchase builds a Result from a transaction result. It never panics:
// anything unexpected becomes a failed Result.
func (p *Parser) ParsePurchase(tx *models.TxResult) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			stackErr := goerrors.Wrap(r, 2)
			p.logger.Error().
				Str("panic", stackErr.Error()).
				Str("stack", string(stackErr.Stack())).
				Msg("Failed to parse transaction response")
			result = failure(MsgParseFailed, ErrMalformed)
		}
		metrics.RecordPurchaseParsed(outcome(result))
	}()

	if tx == nil {
		return failure(MsgTxFailed, ErrTxFailed)
	}

	if tx.Code != 0 {
		msg := tx.RawLog
		if msg == "" {
			msg = MsgTxFailed
		}
		return failure(msg, ErrTxFailed)
	}

	result = Result{
		Success:            true,
		TxHash:             tx.TxHash,
		TotalUserTokens:    "0",
		TotalDevAllocation: "0",
		TotalPaid:          "0",
		Segments:           []models.ParsedSegment{},
		Message:            MsgPurchaseCompleted,
	}

	for _, txLog := range tx.Logs {
		for _, event := range txLog.Events {
			if event.Type != EventBuyMaincoinWithDev {
				continue
			}
			p.applyEvent(&result, event, tx.TxHash)
		}
	}

	result.TotalTokensBought = result.TotalUserTokens
	return result
}

// applyEvent folds one purchase event into the result. Totals are
// last-write-wins across events; segments accumulate.
func (p *Parser) applyEvent(result *Result, event models.Event, txHash string) {
	if v, ok := event.Attr(AttrUserTokens); ok {
		result.TotalUserTokens = v
	}
	if v, ok := event.Attr(AttrDevTokens); ok {
		result.TotalDevAllocation = v
	}
	if v, ok := event.Attr(AttrAmountSpent); ok {
		result.TotalPaid = v
	}

	value, ok := event.Attr(AttrSegments)
	if !ok || value == "" {
		return
	}

	segments, err := p.decodeSegments(value)
	if err != nil {
		p.logger.Warn().
			Err(err).
			Str("tx_hash", txHash).
			Msg("Failed to parse segment data, skipping")
		return
	}
	result.Segments = append(result.Segments, segments...)
}

// ParseRaw decodes a raw tx response body and parses it
func (p *Parser) ParseRaw(raw []byte) Result {
	tx, err := DecodeTxResult(raw)
	if err != nil {
		p.logger.Warn().Err(err).Msg("Failed to decode transaction response")
		result := failure(MsgParseFailed, ErrMalformed)
		metrics.RecordPurchaseParsed(outcome(result))
		return result
	}
	return p.ParsePurchase(tx)
}

// terminalResponse is the summary shape returned by the terminal purchase server
type terminalResponse struct {
	TxHash             string                 `json:"txHash"`
	TotalTokensBought  string                 `json:"totalTokensBought"`
	TotalUserTokens    string                 `json:"totalUserTokens"`
	TotalDevAllocation string                 `json:"totalDevAllocation"`
	TotalPaid          string                 `json:"totalPaid"`
	Segments           []models.ParsedSegment `json:"segments"`
	Message            string                 `json:"message"`
}

// ParseTerminalResponse accepts either a ready purchase summary carrying a
// segments list, or {"txResponse": ...} wrapping a raw tx response
func (p *Parser) ParseTerminalResponse(raw []byte) Result {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return failure(MsgInvalidFormat, ErrMalformed)
	}

	if segments, ok := top["segments"]; ok && !isNull(segments) {
		var resp terminalResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			p.logger.Warn().Err(err).Msg("Failed to decode terminal response")
			return failure(MsgInvalidFormat, ErrMalformed)
		}

		result := Result{
			Success:            true,
			TxHash:             resp.TxHash,
			TotalTokensBought:  resp.TotalTokensBought,
			TotalUserTokens:    resp.TotalUserTokens,
			TotalDevAllocation: resp.TotalDevAllocation,
			TotalPaid:          resp.TotalPaid,
			Segments:           resp.Segments,
			Message:            resp.Message,
		}
		if result.TotalUserTokens == "" {
			result.TotalUserTokens = resp.TotalTokensBought
		}
		if result.TotalDevAllocation == "" {
			result.TotalDevAllocation = "0"
		}
		if result.Segments == nil {
			result.Segments = []models.ParsedSegment{}
		}
		metrics.RecordPurchaseParsed(outcome(result))
		return result
	}

	if txResponse, ok := top["txResponse"]; ok && !isNull(txResponse) {
		return p.ParseRaw(txResponse)
	}

	return failure(MsgInvalidFormat, ErrMalformed)
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func outcome(r Result) string {
	switch {
	case r.Success:
		return "success"
	case errors.Is(r.Err, ErrTxFailed):
		return "tx_failed"
	default:
		return "malformed"
	}
}
