package models

import (
	"errors"
	"fmt"
	"math/big"
)

// ErrInvalidAmount is returned when a base-unit amount is not a non-negative integer string
var ErrInvalidAmount = errors.New("invalid base-unit amount")

// Coin is a denomination and a base-unit integer amount carried as a string
type Coin struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

// NewCoin creates a coin from a denom and an integer amount
func NewCoin(denom string, amount int64) Coin {
	return Coin{Denom: denom, Amount: big.NewInt(amount).String()}
}

// String renders the coin the way the chain CLI does, e.g. 1000ulc
func (c Coin) String() string {
	return c.Amount + c.Denom
}

// BigAmount parses the coin amount as a big integer. An empty amount is zero.
func (c Coin) BigAmount() (*big.Int, error) {
	return ParseAmount(c.Amount)
}

// IsZero reports whether the amount is empty or parses to zero
func (c Coin) IsZero() bool {
	v, err := c.BigAmount()
	return err == nil && v.Sign() == 0
}

// Coins is a list of coins as returned by bank queries
type Coins []Coin

// AmountOf returns the amount for denom, or "0" when the denom is absent
func (cs Coins) AmountOf(denom string) string {
	for _, c := range cs {
		if c.Denom == denom {
			if c.Amount == "" {
				return "0"
			}
			return c.Amount
		}
	}
	return "0"
}

// Fee is the fee specification attached to a submitted transaction
type Fee struct {
	Amount Coins  `json:"amount"`
	Gas    string `json:"gas"`
}

// ParseAmount parses a base-unit amount string. Only ASCII digits are accepted,
// so signs, decimal points and exponents are rejected.
func ParseAmount(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return v, nil
}

// AddAmounts sums base-unit amount strings
func AddAmounts(amounts ...string) (string, error) {
	total := new(big.Int)
	for _, a := range amounts {
		v, err := ParseAmount(a)
		if err != nil {
			return "", err
		}
		total.Add(total, v)
	}
	return total.String(), nil
}
