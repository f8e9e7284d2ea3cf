package models

import (
	"fmt"
)

// PurchaseRecord is one segment-level MainCoin purchase from the chain's user history
type PurchaseRecord struct {
	SegmentNumber Int64String `json:"segment_number"`
	TokensBought  string      `json:"tokens_bought"`
	UserTokens    string      `json:"user_tokens"`
	DevAllocation string      `json:"dev_allocation"`
	PricePerToken string      `json:"price_per_token"`
	Cost          string      `json:"cost"`
	IsComplete    bool        `json:"is_complete"`
	TxHash        string      `json:"tx_hash"`
	BlockHeight   BlockHeight `json:"block_height"`
	Timestamp     string      `json:"timestamp"`
}

// Validate checks tokens_bought = user_tokens + dev_allocation
func (p PurchaseRecord) Validate() error {
	sum, err := AddAmounts(p.UserTokens, p.DevAllocation)
	if err != nil {
		return fmt.Errorf("segment %d: %w", p.SegmentNumber, err)
	}
	bought, err := ParseAmount(p.TokensBought)
	if err != nil {
		return fmt.Errorf("segment %d: %w", p.SegmentNumber, err)
	}
	if bought.String() != sum {
		return fmt.Errorf("segment %d: tokens bought %s != user tokens + dev allocation %s",
			p.SegmentNumber, bought.String(), sum)
	}
	return nil
}

// ParsedSegment is a segment entry emitted inside the segments attribute of a
// buy_maincoin_with_dev event
type ParsedSegment struct {
	SegmentNumber          Int64String `json:"segmentNumber"`
	TokensBought           string      `json:"tokensBought"`
	PricePerToken          string      `json:"pricePerToken"`
	SegmentCost            string      `json:"segmentCost"`
	DevAllocation          string      `json:"devAllocation"`
	UserTokens             string      `json:"userTokens"`
	IsComplete             bool        `json:"isComplete"`
	TokensInSegment        string      `json:"tokensInSegment"`
	TokensNeededToComplete string      `json:"tokensNeededToComplete"`
}

// UserHistory aggregates the purchases of one address. Totals are derived from
// purchases on every fetch.
type UserHistory struct {
	Address           string           `json:"address"`
	Purchases         []PurchaseRecord `json:"purchases"`
	TotalTokensBought string           `json:"total_tokens_bought"`
	TotalSpent        string           `json:"total_spent"`
}

// UserHistoryResponse is the body of /mychain/maincoin/v1/user_history/{address}
type UserHistoryResponse struct {
	UserHistory *UserHistory `json:"user_history"`
}
