package models

import (
	"errors"
	"fmt"
	"math/big"
)

// ErrOverfilled is returned when an order reports more filled than its amount
var ErrOverfilled = errors.New("order filled amount exceeds order amount")

// Order is a DEX order as returned by the order book query
type Order struct {
	ID           string `json:"id"`
	Maker        string `json:"maker"`
	PairID       string `json:"pair_id"`
	IsBuy        bool   `json:"is_buy"`
	Price        Coin   `json:"price"`
	Amount       Coin   `json:"amount"`
	FilledAmount Coin   `json:"filled_amount"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// Remaining returns amount - filled_amount in base units
func (o Order) Remaining() (*big.Int, error) {
	amount, err := o.Amount.BigAmount()
	if err != nil {
		return nil, fmt.Errorf("order %s amount: %w", o.ID, err)
	}
	filled, err := o.FilledAmount.BigAmount()
	if err != nil {
		return nil, fmt.Errorf("order %s filled amount: %w", o.ID, err)
	}
	if filled.Cmp(amount) > 0 {
		return nil, fmt.Errorf("order %s: %w", o.ID, ErrOverfilled)
	}
	return amount.Sub(amount, filled), nil
}

// Side returns "buy" or "sell"
func (o Order) Side() string {
	if o.IsBuy {
		return "buy"
	}
	return "sell"
}

// OrderBook holds both sides of a trading pair
type OrderBook struct {
	BuyOrders  []Order `json:"buy_orders"`
	SellOrders []Order `json:"sell_orders"`
}

// All returns buy orders followed by sell orders
func (b OrderBook) All() []Order {
	all := make([]Order, 0, len(b.BuyOrders)+len(b.SellOrders))
	all = append(all, b.BuyOrders...)
	return append(all, b.SellOrders...)
}
