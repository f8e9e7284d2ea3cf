package portfolio

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/wnt/mychain-dash/internal/models"
	"github.com/wnt/mychain-dash/internal/utils"
)

// LiquidityValue sums (remaining / 1e6) * (price / 1e6) over orders. The
// remaining amount is computed on integer base units before any scaling.
func LiquidityValue(orders []models.Order) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, o := range orders {
		remaining, err := o.Remaining()
		if err != nil {
			return decimal.Zero, err
		}
		price, err := o.Price.BigAmount()
		if err != nil {
			return decimal.Zero, fmt.Errorf("order %s price: %w", o.ID, err)
		}
		total = total.Add(decimal.NewFromBigInt(remaining, -6).Mul(decimal.NewFromBigInt(price, -6)))
	}
	return total, nil
}

// SplitOrders returns the maker's orders from both sides of the book that
// still have an unfilled amount. Orders that fail to parse are left out.
func SplitOrders(book *models.OrderBook, maker string) []models.Order {
	if book == nil {
		return []models.Order{}
	}
	return utils.Filter(book.All(), func(o models.Order) bool {
		if o.Maker != maker {
			return false
		}
		remaining, err := o.Remaining()
		return err == nil && remaining.Sign() > 0
	})
}

// BookDepth is the liquidity on each side of an order book
type BookDepth struct {
	BuyValue  decimal.Decimal `json:"buy_value"`
	SellValue decimal.Decimal `json:"sell_value"`
	BestBid   string          `json:"best_bid,omitempty"`
	BestAsk   string          `json:"best_ask,omitempty"`
}

// Depth values both sides of the book. Best bid and ask are read from the
// head of each side, which the chain returns sorted.
func Depth(book *models.OrderBook) (BookDepth, error) {
	var depth BookDepth
	if book == nil {
		return depth, nil
	}
	var err error
	if depth.BuyValue, err = LiquidityValue(book.BuyOrders); err != nil {
		return depth, err
	}
	if depth.SellValue, err = LiquidityValue(book.SellOrders); err != nil {
		return depth, err
	}
	if len(book.BuyOrders) > 0 {
		depth.BestBid = FormatMicro(book.BuyOrders[0].Price.Amount, 6)
	}
	if len(book.SellOrders) > 0 {
		depth.BestAsk = FormatMicro(book.SellOrders[0].Price.Amount, 6)
	}
	return depth, nil
}
