// Package msgs encodes the mychain transaction messages and the cosmos
// transaction envelope in protobuf wire format.
package msgs

import (
	"errors"
	"fmt"

	"github.com/wnt/mychain-dash/internal/models"
	"google.golang.org/protobuf/encoding/protowire"
)

// ErrMalformed is returned when bytes are not a valid encoding of the expected message
var ErrMalformed = errors.New("malformed protobuf message")

// field is one decoded wire field. Varint holds varint values, Bytes holds
// length-delimited values.
type field struct {
	Num    protowire.Number
	Type   protowire.Type
	Varint uint64
	Bytes  []byte
}

// walk calls fn for every field in b. Fixed-width and group fields are skipped.
func walk(b []byte, fn func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		f := field{Num: num, Type: typ}
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(n))
			}
			f.Varint = v
			b = b[n:]
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(n))
			}
			f.Bytes = v
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}

		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

// expect checks the wire type of a known field
func (f field) expect(typ protowire.Type) error {
	if f.Type != typ {
		return fmt.Errorf("%w: field %d has wire type %d, want %d", ErrMalformed, f.Num, f.Type, typ)
	}
	return nil
}

func (f field) asString() (string, error) {
	if err := f.expect(protowire.BytesType); err != nil {
		return "", err
	}
	return string(f.Bytes), nil
}

func (f field) asBytes() ([]byte, error) {
	if err := f.expect(protowire.BytesType); err != nil {
		return nil, err
	}
	return append([]byte(nil), f.Bytes...), nil
}

func (f field) asUint64() (uint64, error) {
	if err := f.expect(protowire.VarintType); err != nil {
		return 0, err
	}
	return f.Varint, nil
}

func (f field) asBool() (bool, error) {
	v, err := f.asUint64()
	return v != 0, err
}

// Proto3 scalar defaults are not written.

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendUint64(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeBool(v))
}

// appendMessage writes an embedded message, even when it is empty
func appendMessage(b []byte, num protowire.Number, m []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, m)
}

// appendPackedUint64 writes a packed repeated uint64 field
func appendPackedUint64(b []byte, num protowire.Number, vs []uint64) []byte {
	if len(vs) == 0 {
		return b
	}
	var packed []byte
	for _, v := range vs {
		packed = protowire.AppendVarint(packed, v)
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, packed)
}

// consumeRepeatedUint64 reads one occurrence of a repeated uint64 field, in
// either packed or unpacked form
func consumeRepeatedUint64(f field, out []uint64) ([]uint64, error) {
	switch f.Type {
	case protowire.VarintType:
		return append(out, f.Varint), nil
	case protowire.BytesType:
		b := f.Bytes
		for len(b) > 0 {
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: packed field %d: %v", ErrMalformed, f.Num, protowire.ParseError(n))
			}
			out = append(out, v)
			b = b[n:]
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: field %d has wire type %d", ErrMalformed, f.Num, f.Type)
	}
}

// MarshalCoin encodes cosmos.base.v1beta1.Coin
func MarshalCoin(c models.Coin) []byte {
	var b []byte
	b = appendString(b, 1, c.Denom)
	b = appendString(b, 2, c.Amount)
	return b
}

// UnmarshalCoin decodes cosmos.base.v1beta1.Coin
func UnmarshalCoin(b []byte) (models.Coin, error) {
	var c models.Coin
	err := walk(b, func(f field) error {
		var err error
		switch f.Num {
		case 1:
			c.Denom, err = f.asString()
		case 2:
			c.Amount, err = f.asString()
		}
		return err
	})
	return c, err
}

// appendCoin writes an embedded coin, skipping an entirely unset one
func appendCoin(b []byte, num protowire.Number, c models.Coin) []byte {
	if c.Denom == "" && c.Amount == "" {
		return b
	}
	return appendMessage(b, num, MarshalCoin(c))
}

func (f field) asCoin() (models.Coin, error) {
	if err := f.expect(protowire.BytesType); err != nil {
		return models.Coin{}, err
	}
	return UnmarshalCoin(f.Bytes)
}
