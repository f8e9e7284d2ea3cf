package msgs

import (
	"errors"
	"fmt"

	"github.com/wnt/mychain-dash/internal/models"
)

// Type URLs of the mychain messages
const (
	TypeURLCreateOrder       = "/mychain.dex.v1.MsgCreateOrder"
	TypeURLCancelOrder       = "/mychain.dex.v1.MsgCancelOrder"
	TypeURLClaimRewards      = "/mychain.dex.v1.MsgClaimRewards"
	TypeURLClaimOrderRewards = "/mychain.dex.v1.MsgClaimOrderRewards"
	TypeURLBuyMaincoin       = "/mychain.maincoin.v1.MsgBuyMaincoin"
	TypeURLSellMaincoin      = "/mychain.maincoin.v1.MsgSellMaincoin"
)

// ErrInvalidMsg is returned by ValidateBasic
var ErrInvalidMsg = errors.New("invalid message")

// Msg is a chain message that can be packed into a transaction body
type Msg interface {
	TypeURL() string
	Marshal() []byte
	ValidateBasic() error
}

// MsgCreateOrder places a DEX order
type MsgCreateOrder struct {
	Maker  string      `json:"maker"`
	PairID uint64      `json:"pair_id"`
	Price  models.Coin `json:"price"`
	Amount models.Coin `json:"amount"`
	IsBuy  bool        `json:"is_buy"`
}

func (m *MsgCreateOrder) TypeURL() string { return TypeURLCreateOrder }

func (m *MsgCreateOrder) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, m.Maker)
	b = appendUint64(b, 2, m.PairID)
	b = appendCoin(b, 3, m.Price)
	b = appendCoin(b, 4, m.Amount)
	b = appendBool(b, 5, m.IsBuy)
	return b
}

func (m *MsgCreateOrder) Unmarshal(b []byte) error {
	*m = MsgCreateOrder{}
	return walk(b, func(f field) error {
		var err error
		switch f.Num {
		case 1:
			m.Maker, err = f.asString()
		case 2:
			m.PairID, err = f.asUint64()
		case 3:
			m.Price, err = f.asCoin()
		case 4:
			m.Amount, err = f.asCoin()
		case 5:
			m.IsBuy, err = f.asBool()
		}
		return err
	})
}

func (m *MsgCreateOrder) ValidateBasic() error {
	if m.Maker == "" {
		return fmt.Errorf("%w: maker is required", ErrInvalidMsg)
	}
	if err := validatePositiveCoin("price", m.Price); err != nil {
		return err
	}
	return validatePositiveCoin("amount", m.Amount)
}

// MsgCancelOrder cancels an open DEX order
type MsgCancelOrder struct {
	Maker   string `json:"maker"`
	OrderID uint64 `json:"order_id"`
}

func (m *MsgCancelOrder) TypeURL() string { return TypeURLCancelOrder }

func (m *MsgCancelOrder) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, m.Maker)
	b = appendUint64(b, 2, m.OrderID)
	return b
}

func (m *MsgCancelOrder) Unmarshal(b []byte) error {
	*m = MsgCancelOrder{}
	return walk(b, func(f field) error {
		var err error
		switch f.Num {
		case 1:
			m.Maker, err = f.asString()
		case 2:
			m.OrderID, err = f.asUint64()
		}
		return err
	})
}

func (m *MsgCancelOrder) ValidateBasic() error {
	if m.Maker == "" {
		return fmt.Errorf("%w: maker is required", ErrInvalidMsg)
	}
	return nil
}

// MsgClaimRewards claims accumulated DEX rewards. An empty amount claims everything.
type MsgClaimRewards struct {
	User   string `json:"user"`
	Amount string `json:"amount"`
}

func (m *MsgClaimRewards) TypeURL() string { return TypeURLClaimRewards }

func (m *MsgClaimRewards) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, m.User)
	b = appendString(b, 2, m.Amount)
	return b
}

func (m *MsgClaimRewards) Unmarshal(b []byte) error {
	*m = MsgClaimRewards{}
	return walk(b, func(f field) error {
		var err error
		switch f.Num {
		case 1:
			m.User, err = f.asString()
		case 2:
			m.Amount, err = f.asString()
		}
		return err
	})
}

func (m *MsgClaimRewards) ValidateBasic() error {
	if m.User == "" {
		return fmt.Errorf("%w: user is required", ErrInvalidMsg)
	}
	if _, err := models.ParseAmount(m.Amount); err != nil {
		return fmt.Errorf("%w: amount: %v", ErrInvalidMsg, err)
	}
	return nil
}

// MsgClaimOrderRewards claims the rewards of specific orders
type MsgClaimOrderRewards struct {
	User     string   `json:"user"`
	OrderIDs []uint64 `json:"order_ids"`
}

func (m *MsgClaimOrderRewards) TypeURL() string { return TypeURLClaimOrderRewards }

func (m *MsgClaimOrderRewards) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, m.User)
	b = appendPackedUint64(b, 2, m.OrderIDs)
	return b
}

func (m *MsgClaimOrderRewards) Unmarshal(b []byte) error {
	*m = MsgClaimOrderRewards{}
	return walk(b, func(f field) error {
		var err error
		switch f.Num {
		case 1:
			m.User, err = f.asString()
		case 2:
			m.OrderIDs, err = consumeRepeatedUint64(f, m.OrderIDs)
		}
		return err
	})
}

func (m *MsgClaimOrderRewards) ValidateBasic() error {
	if m.User == "" {
		return fmt.Errorf("%w: user is required", ErrInvalidMsg)
	}
	if len(m.OrderIDs) == 0 {
		return fmt.Errorf("%w: at least one order id is required", ErrInvalidMsg)
	}
	return nil
}

// MsgBuyMaincoin buys MainCoin on the bonding curve, spending Amount
type MsgBuyMaincoin struct {
	Buyer  string      `json:"buyer"`
	Amount models.Coin `json:"amount"`
}

func (m *MsgBuyMaincoin) TypeURL() string { return TypeURLBuyMaincoin }

func (m *MsgBuyMaincoin) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, m.Buyer)
	b = appendCoin(b, 2, m.Amount)
	return b
}

func (m *MsgBuyMaincoin) Unmarshal(b []byte) error {
	*m = MsgBuyMaincoin{}
	return walk(b, func(f field) error {
		var err error
		switch f.Num {
		case 1:
			m.Buyer, err = f.asString()
		case 2:
			m.Amount, err = f.asCoin()
		}
		return err
	})
}

func (m *MsgBuyMaincoin) ValidateBasic() error {
	if m.Buyer == "" {
		return fmt.Errorf("%w: buyer is required", ErrInvalidMsg)
	}
	return validatePositiveCoin("amount", m.Amount)
}

// MsgSellMaincoin sells MainCoin back to the bonding curve
type MsgSellMaincoin struct {
	Seller string      `json:"seller"`
	Amount models.Coin `json:"amount"`
}

func (m *MsgSellMaincoin) TypeURL() string { return TypeURLSellMaincoin }

func (m *MsgSellMaincoin) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, m.Seller)
	b = appendCoin(b, 2, m.Amount)
	return b
}

func (m *MsgSellMaincoin) Unmarshal(b []byte) error {
	*m = MsgSellMaincoin{}
	return walk(b, func(f field) error {
		var err error
		switch f.Num {
		case 1:
			m.Seller, err = f.asString()
		case 2:
			m.Amount, err = f.asCoin()
		}
		return err
	})
}

func (m *MsgSellMaincoin) ValidateBasic() error {
	if m.Seller == "" {
		return fmt.Errorf("%w: seller is required", ErrInvalidMsg)
	}
	return validatePositiveCoin("amount", m.Amount)
}

func validatePositiveCoin(name string, c models.Coin) error {
	if c.Denom == "" {
		return fmt.Errorf("%w: %s denom is required", ErrInvalidMsg, name)
	}
	v, err := c.BigAmount()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidMsg, name, err)
	}
	if v.Sign() <= 0 {
		return fmt.Errorf("%w: %s must be positive", ErrInvalidMsg, name)
	}
	return nil
}

// Decode unpacks an Any into the registered message type
func Decode(a Any) (Msg, error) {
	var msg interface {
		Msg
		Unmarshal([]byte) error
	}
	switch a.TypeURL {
	case TypeURLCreateOrder:
		msg = &MsgCreateOrder{}
	case TypeURLCancelOrder:
		msg = &MsgCancelOrder{}
	case TypeURLClaimRewards:
		msg = &MsgClaimRewards{}
	case TypeURLClaimOrderRewards:
		msg = &MsgClaimOrderRewards{}
	case TypeURLBuyMaincoin:
		msg = &MsgBuyMaincoin{}
	case TypeURLSellMaincoin:
		msg = &MsgSellMaincoin{}
	default:
		return nil, fmt.Errorf("unknown message type %q", a.TypeURL)
	}
	if err := msg.Unmarshal(a.Value); err != nil {
		return nil, fmt.Errorf("decode %s: %w", a.TypeURL, err)
	}
	return msg, nil
}
