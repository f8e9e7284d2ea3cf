package msgs

import (
	"fmt"

	"github.com/wnt/mychain-dash/internal/models"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	// Secp256k1PubKeyTypeURL is the Any type URL of a secp256k1 public key
	Secp256k1PubKeyTypeURL = "/cosmos.crypto.secp256k1.PubKey"

	// SignModeDirect is signing.SignMode SIGN_MODE_DIRECT
	SignModeDirect = 1
)

// Any is google.protobuf.Any
type Any struct {
	TypeURL string
	Value   []byte
}

// NewAny packs a message
func NewAny(msg Msg) Any {
	return Any{TypeURL: msg.TypeURL(), Value: msg.Marshal()}
}

func (a Any) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, a.TypeURL)
	b = appendBytes(b, 2, a.Value)
	return b
}

func (a *Any) Unmarshal(b []byte) error {
	*a = Any{}
	return walk(b, func(f field) error {
		var err error
		switch f.Num {
		case 1:
			a.TypeURL, err = f.asString()
		case 2:
			a.Value, err = f.asBytes()
		}
		return err
	})
}

// PubKeyAny wraps a compressed secp256k1 public key
func PubKeyAny(compressed []byte) Any {
	return Any{
		TypeURL: Secp256k1PubKeyTypeURL,
		Value:   appendBytes(nil, 1, compressed),
	}
}

// TxBody is cosmos.tx.v1beta1.TxBody
type TxBody struct {
	Messages      []Any
	Memo          string
	TimeoutHeight uint64
}

func (t TxBody) Marshal() []byte {
	var b []byte
	for _, m := range t.Messages {
		b = appendMessage(b, 1, m.Marshal())
	}
	b = appendString(b, 2, t.Memo)
	b = appendUint64(b, 3, t.TimeoutHeight)
	return b
}

func (t *TxBody) Unmarshal(b []byte) error {
	*t = TxBody{}
	return walk(b, func(f field) error {
		switch f.Num {
		case 1:
			if err := f.expect(protowire.BytesType); err != nil {
				return err
			}
			var a Any
			if err := a.Unmarshal(f.Bytes); err != nil {
				return err
			}
			t.Messages = append(t.Messages, a)
		case 2:
			memo, err := f.asString()
			if err != nil {
				return err
			}
			t.Memo = memo
		case 3:
			height, err := f.asUint64()
			if err != nil {
				return err
			}
			t.TimeoutHeight = height
		}
		return nil
	})
}

// SignerInfo is cosmos.tx.v1beta1.SignerInfo with a single SIGN_MODE_DIRECT signer
type SignerInfo struct {
	PublicKey Any
	Sequence  uint64
}

func (s SignerInfo) Marshal() []byte {
	// ModeInfo{single: {mode: DIRECT}}
	single := appendUint64(nil, 1, SignModeDirect)
	modeInfo := appendMessage(nil, 1, single)

	var b []byte
	b = appendMessage(b, 1, s.PublicKey.Marshal())
	b = appendMessage(b, 2, modeInfo)
	b = appendUint64(b, 3, s.Sequence)
	return b
}

// Fee is cosmos.tx.v1beta1.Fee
type Fee struct {
	Amount   models.Coins
	GasLimit uint64
	Payer    string
	Granter  string
}

func (f Fee) Marshal() []byte {
	var b []byte
	for _, c := range f.Amount {
		b = appendMessage(b, 1, MarshalCoin(c))
	}
	b = appendUint64(b, 2, f.GasLimit)
	b = appendString(b, 3, f.Payer)
	b = appendString(b, 4, f.Granter)
	return b
}

// NewFee converts a fee specification into its wire form
func NewFee(spec models.Fee) (Fee, error) {
	gas, err := models.ParseAmount(spec.Gas)
	if err != nil {
		return Fee{}, fmt.Errorf("invalid gas %q: %w", spec.Gas, err)
	}
	if !gas.IsUint64() {
		return Fee{}, fmt.Errorf("gas %q overflows uint64", spec.Gas)
	}
	for _, c := range spec.Amount {
		if _, err := c.BigAmount(); err != nil {
			return Fee{}, fmt.Errorf("invalid fee amount %s: %w", c, err)
		}
	}
	return Fee{Amount: spec.Amount, GasLimit: gas.Uint64()}, nil
}

// AuthInfo is cosmos.tx.v1beta1.AuthInfo
type AuthInfo struct {
	SignerInfos []SignerInfo
	Fee         Fee
}

func (a AuthInfo) Marshal() []byte {
	var b []byte
	for _, s := range a.SignerInfos {
		b = appendMessage(b, 1, s.Marshal())
	}
	b = appendMessage(b, 2, a.Fee.Marshal())
	return b
}

// SignDoc is cosmos.tx.v1beta1.SignDoc, the bytes signed in SIGN_MODE_DIRECT
type SignDoc struct {
	BodyBytes     []byte
	AuthInfoBytes []byte
	ChainID       string
	AccountNumber uint64
}

func (s SignDoc) Marshal() []byte {
	var b []byte
	b = appendBytes(b, 1, s.BodyBytes)
	b = appendBytes(b, 2, s.AuthInfoBytes)
	b = appendString(b, 3, s.ChainID)
	b = appendUint64(b, 4, s.AccountNumber)
	return b
}

// TxRaw is cosmos.tx.v1beta1.TxRaw, the broadcast form of a signed transaction
type TxRaw struct {
	BodyBytes     []byte
	AuthInfoBytes []byte
	Signatures    [][]byte
}

func (t TxRaw) Marshal() []byte {
	var b []byte
	b = appendBytes(b, 1, t.BodyBytes)
	b = appendBytes(b, 2, t.AuthInfoBytes)
	for _, sig := range t.Signatures {
		b = appendMessage(b, 3, sig)
	}
	return b
}

func (t *TxRaw) Unmarshal(b []byte) error {
	*t = TxRaw{}
	return walk(b, func(f field) error {
		v, err := f.asBytes()
		if err != nil {
			return err
		}
		switch f.Num {
		case 1:
			t.BodyBytes = v
		case 2:
			t.AuthInfoBytes = v
		case 3:
			t.Signatures = append(t.Signatures, v)
		}
		return nil
	})
}
