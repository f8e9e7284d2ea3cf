package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// TxType classifies a transaction history record
type TxType string

const (
	TxSend          TxType = "send"
	TxReceive       TxType = "receive"
	TxBuyMainCoin   TxType = "buy_maincoin"
	TxSellMainCoin  TxType = "sell_maincoin"
	TxStakingReward TxType = "staking_reward"
	TxDelegate      TxType = "delegate"
	TxUndelegate    TxType = "undelegate"
	TxDEXSwap       TxType = "dex_swap"
	TxOther         TxType = "other"
)

// TxTypes lists every classification in display order
var TxTypes = []TxType{
	TxSend, TxReceive, TxBuyMainCoin, TxSellMainCoin,
	TxStakingReward, TxDelegate, TxUndelegate, TxDEXSwap, TxOther,
}

// Int64String decodes integers that the chain renders either as JSON numbers
// or as quoted strings
type Int64String int64

// BlockHeight is a block height as rendered by the chain
type BlockHeight = Int64String

// UnmarshalJSON implements json.Unmarshaler
func (h *Int64String) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*h = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*h = 0
			return nil
		}
		data = []byte(s)
	}
	v, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid integer %q: %w", string(data), err)
	}
	*h = Int64String(v)
	return nil
}

// TransactionRecord is an entry of the chain's per-address transaction history.
// Type holds the chain's type string; use portfolio.ClassifyTransaction for the
// display classification.
type TransactionRecord struct {
	TxHash      string      `json:"tx_hash"`
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Amount      Coins       `json:"amount"`
	From        string      `json:"from"`
	To          string      `json:"to"`
	Height      BlockHeight `json:"height"`
	Timestamp   string      `json:"timestamp"`
	Metadata    string      `json:"metadata,omitempty"`
}

// TransactionHistoryResponse is the body of /mychain/mychain/v1/transaction-history/{address}
type TransactionHistoryResponse struct {
	Transactions []TransactionRecord `json:"transactions"`
}

// EventAttribute is a key/value pair of a chain event
type EventAttribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Event is a typed chain event
type Event struct {
	Type       string           `json:"type"`
	Attributes []EventAttribute `json:"attributes"`
}

// Attr returns the value of the last attribute with key, and whether it was present
func (e Event) Attr(key string) (string, bool) {
	value, found := "", false
	for _, a := range e.Attributes {
		if a.Key == key {
			value, found = a.Value, true
		}
	}
	return value, found
}

// TxLog is the per-message log of a transaction result
type TxLog struct {
	MsgIndex uint32  `json:"msg_index"`
	Log      string  `json:"log"`
	Events   []Event `json:"events"`
}

// CodeUnknown marks a transaction response that carried no result code.
// It is never zero, so such a response counts as failed.
const CodeUnknown uint32 = math.MaxUint32

// TxResult is the result of a broadcast or a transaction query
type TxResult struct {
	Height    BlockHeight `json:"height"`
	TxHash    string      `json:"txhash"`
	Code      uint32      `json:"code"`
	Codespace string      `json:"codespace,omitempty"`
	RawLog    string      `json:"raw_log"`
	Logs      []TxLog     `json:"logs"`
	Events    []Event     `json:"events,omitempty"`
	GasWanted string      `json:"gas_wanted,omitempty"`
	GasUsed   string      `json:"gas_used,omitempty"`
	Timestamp string      `json:"timestamp,omitempty"`
}

// Success reports whether the chain accepted the transaction
func (r TxResult) Success() bool {
	return r.Code == 0
}
