package portfolio

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/wnt/mychain-dash/internal/models"
)

// SummarizeHistory derives the purchase totals of an address. Totals reported
// by the chain are ignored and recomputed from the purchases.
func SummarizeHistory(address string, purchases []models.PurchaseRecord) (models.UserHistory, error) {
	tokens, spent := decimal.Zero, decimal.Zero
	for _, p := range purchases {
		bought, err := parseDecimal(p.TokensBought)
		if err != nil {
			return models.UserHistory{}, fmt.Errorf("purchase in tx %s tokens bought: %w", p.TxHash, err)
		}
		cost, err := parseDecimal(p.Cost)
		if err != nil {
			return models.UserHistory{}, fmt.Errorf("purchase in tx %s cost: %w", p.TxHash, err)
		}
		tokens = tokens.Add(bought)
		spent = spent.Add(cost)
	}

	if purchases == nil {
		purchases = []models.PurchaseRecord{}
	}
	return models.UserHistory{
		Address:           address,
		Purchases:         purchases,
		TotalTokensBought: tokens.String(),
		TotalSpent:        spent.String(),
	}, nil
}

// AveragePrice is total spent over total tokens bought, zero without purchases
func AveragePrice(h models.UserHistory) decimal.Decimal {
	tokens, err := parseDecimal(h.TotalTokensBought)
	if err != nil || tokens.IsZero() {
		return decimal.Zero
	}
	spent, err := parseDecimal(h.TotalSpent)
	if err != nil {
		return decimal.Zero
	}
	return spent.DivRound(tokens, 12)
}

func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
