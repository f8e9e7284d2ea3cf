package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/wnt/mychain-dash/internal/models"
)

// DecodeKind classifies why a transaction response could not be decoded
type DecodeKind string

const (
	KindEmpty  DecodeKind = "empty"  // no body at all
	KindSyntax DecodeKind = "syntax" // not JSON
	KindShape  DecodeKind = "shape"  // JSON, but not a transaction response
)

// DecodeError reports a transaction response that failed shape validation
type DecodeError struct {
	Kind DecodeKind
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode tx response (%s): %v", e.Kind, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func decodeErr(kind DecodeKind, format string, args ...interface{}) *DecodeError {
	return &DecodeError{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// wireTxResult is the JSON shape of a tx response. Hash is accepted as an
// alternative to txhash and gas values may be numbers or strings.
type wireTxResult struct {
	Height    models.BlockHeight `json:"height"`
	TxHash    string             `json:"txhash"`
	Hash      string             `json:"hash"`
	Code      *uint32            `json:"code"`
	Codespace string             `json:"codespace"`
	RawLog    string             `json:"raw_log"`
	Logs      []models.TxLog     `json:"logs"`
	Events    []models.Event     `json:"events"`
	GasWanted numberString       `json:"gas_wanted"`
	GasUsed   numberString       `json:"gas_used"`
	Timestamp string             `json:"timestamp"`
}

// numberString holds a JSON number or string as its decimal text
type numberString string

func (n *numberString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = numberString(s)
		return nil
	}
	if _, err := strconv.ParseFloat(string(data), 64); err != nil {
		return fmt.Errorf("invalid number %q", string(data))
	}
	*n = numberString(data)
	return nil
}

// DecodeTxResult decodes a broadcast or tx query response. The body may be
// the {"tx_response": {...}} envelope or a bare tx response. Shape problems
// are reported as *DecodeError.
func DecodeTxResult(raw []byte) (*models.TxResult, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, decodeErr(KindEmpty, "empty body")
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) || !json.Valid(raw) {
			return nil, &DecodeError{Kind: KindSyntax, Err: err}
		}
		return nil, decodeErr(KindShape, "top level is not an object")
	}

	body := raw
	if inner, ok := top["tx_response"]; ok {
		inner = bytes.TrimSpace(inner)
		if len(inner) == 0 || bytes.Equal(inner, []byte("null")) {
			return nil, decodeErr(KindEmpty, "tx_response is null")
		}
		if inner[0] != '{' {
			return nil, decodeErr(KindShape, "tx_response is not an object")
		}
		body = inner
	}

	var wire wireTxResult
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, &DecodeError{Kind: KindShape, Err: err}
	}

	code := models.CodeUnknown
	if wire.Code != nil {
		code = *wire.Code
	}

	result := &models.TxResult{
		Height:    wire.Height,
		TxHash:    wire.TxHash,
		Code:      code,
		Codespace: wire.Codespace,
		RawLog:    wire.RawLog,
		Logs:      wire.Logs,
		Events:    wire.Events,
		GasWanted: string(wire.GasWanted),
		GasUsed:   string(wire.GasUsed),
		Timestamp: wire.Timestamp,
	}
	if result.TxHash == "" {
		result.TxHash = wire.Hash
	}

	return result, nil
}
