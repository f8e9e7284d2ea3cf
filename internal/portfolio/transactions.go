package portfolio

import (
	"github.com/wnt/mychain-dash/internal/models"
	"github.com/wnt/mychain-dash/internal/utils"
)

// chainTxTypes maps the type strings recorded by the chain to display types
var chainTxTypes = map[string]models.TxType{
	"send":       models.TxSend,
	"bridge_out": models.TxSend,
	"burn":       models.TxSend,

	"receive":   models.TxReceive,
	"bridge_in": models.TxReceive,
	"mint":      models.TxReceive,

	"buy_maincoin":   models.TxBuyMainCoin,
	"dev_allocation": models.TxBuyMainCoin,
	"sell_maincoin":  models.TxSellMainCoin,

	"staking_reward":          models.TxStakingReward,
	"mint_inflation":          models.TxStakingReward,
	"commission":              models.TxStakingReward,
	"dex_reward":              models.TxStakingReward,
	"dex_reward_distribution": models.TxStakingReward,
	"dex_claim_rewards":       models.TxStakingReward,
	"claim_rewards":           models.TxStakingReward,
	"claim_order_rewards":     models.TxStakingReward,

	"delegate":   models.TxDelegate,
	"redelegate": models.TxDelegate,
	"undelegate": models.TxUndelegate,

	"dex_swap":             models.TxDEXSwap,
	"dex_create_order":     models.TxDEXSwap,
	"dex_cancel_order":     models.TxDEXSwap,
	"dex_trade_buy":        models.TxDEXSwap,
	"dex_trade_sell":       models.TxDEXSwap,
	"dex_add_liquidity":    models.TxDEXSwap,
	"dex_remove_liquidity": models.TxDEXSwap,
	"create_order":         models.TxDEXSwap,
	"cancel_order":         models.TxDEXSwap,
	"trade_execution":      models.TxDEXSwap,
}

// ClassifyTransaction maps a chain transaction type to its display type.
// Unknown types are TxOther.
func ClassifyTransaction(chainType string) models.TxType {
	if t, ok := chainTxTypes[chainType]; ok {
		return t
	}
	return models.TxOther
}

// ParseTxType reads a filter value. The empty string selects all types.
func ParseTxType(s string) (models.TxType, bool) {
	if s == "" || s == "all" {
		return "", true
	}
	for _, t := range models.TxTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// ClassifiedTransaction is a history record with its display type
type ClassifiedTransaction struct {
	models.TransactionRecord
	Category models.TxType `json:"category"`
}

// FilterTransactions classifies records and keeps those of type filter. An
// empty filter keeps everything.
func FilterTransactions(records []models.TransactionRecord, filter models.TxType) []ClassifiedTransaction {
	kept := utils.Filter(records, func(r models.TransactionRecord) bool {
		return filter == "" || ClassifyTransaction(r.Type) == filter
	})

	return utils.Map(kept, func(r models.TransactionRecord) ClassifiedTransaction {
		return ClassifiedTransaction{TransactionRecord: r, Category: ClassifyTransaction(r.Type)}
	})
}

// CountByType counts records per display type. Every type is present.
func CountByType(records []models.TransactionRecord) map[models.TxType]int {
	counts := make(map[models.TxType]int, len(models.TxTypes))
	for _, t := range models.TxTypes {
		counts[t] = 0
	}
	for _, r := range records {
		counts[ClassifyTransaction(r.Type)]++
	}
	return counts
}
