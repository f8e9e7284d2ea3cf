// Package signing holds the secp256k1 account key used to sign transactions
// in SIGN_MODE_DIRECT and derives bech32 account addresses.
package signing

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // cosmos addresses are defined over ripemd160
)

// DefaultPrefix is the bech32 human readable part of mychain account addresses
const DefaultPrefix = "mychain"

var (
	ErrInvalidKey     = errors.New("invalid secp256k1 private key")
	ErrInvalidAddress = errors.New("invalid account address")
)

// Key is a secp256k1 account key
type Key struct {
	priv   *secp256k1.PrivateKey
	prefix string
}

// KeyFromHex parses a 32 byte hex encoded private key
func KeyFromHex(hexKey, prefix string) (*Key, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(raw) != secp256k1.PrivKeyBytesLen {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidKey, secp256k1.PrivKeyBytesLen, len(raw))
	}

	var scalar secp256k1.ModNScalar
	if overflow := scalar.SetByteSlice(raw); overflow || scalar.IsZero() {
		return nil, fmt.Errorf("%w: out of range", ErrInvalidKey)
	}

	return &Key{priv: secp256k1.NewPrivateKey(&scalar), prefix: prefixOrDefault(prefix)}, nil
}

// GenerateKey creates a random key
func GenerateKey(prefix string) (*Key, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &Key{priv: priv, prefix: prefixOrDefault(prefix)}, nil
}

// PubKey returns the 33 byte compressed public key
func (k *Key) PubKey() []byte {
	return k.priv.PubKey().SerializeCompressed()
}

// Address returns the bech32 account address of the key
func (k *Key) Address() string {
	addr, _ := AddressFromPubKey(k.PubKey(), k.prefix)
	return addr
}

// Hex returns the private key hex encoded
func (k *Key) Hex() string {
	return hex.EncodeToString(k.priv.Serialize())
}

// Sign signs sha256(msg) and returns the 64 byte r||s signature the chain expects
func (k *Key) Sign(msg []byte) ([]byte, error) {
	hash := sha256.Sum256(msg)
	// compact form is recovery byte || r || s
	compact := ecdsa.SignCompact(k.priv, hash[:], true)
	if len(compact) != 65 {
		return nil, fmt.Errorf("unexpected signature length %d", len(compact))
	}
	return compact[1:], nil
}

// VerifySignature checks a 64 byte r||s signature over sha256(msg)
func VerifySignature(pubKey, msg, sig []byte) bool {
	if len(sig) != 64 {
		return false
	}
	pub, err := secp256k1.ParsePubKey(pubKey)
	if err != nil {
		return false
	}

	var r, s secp256k1.ModNScalar
	if r.SetByteSlice(sig[:32]) || s.SetByteSlice(sig[32:]) {
		return false
	}
	// the chain rejects high-S signatures
	if s.IsOverHalfOrder() {
		return false
	}

	hash := sha256.Sum256(msg)
	return ecdsa.NewSignature(&r, &s).Verify(hash[:], pub)
}

// AddressFromPubKey derives bech32(prefix, ripemd160(sha256(pubkey)))
func AddressFromPubKey(pubKey []byte, prefix string) (string, error) {
	sha := sha256.Sum256(pubKey)
	hasher := ripemd160.New()
	hasher.Write(sha[:])

	return EncodeAddress(hasher.Sum(nil), prefixOrDefault(prefix))
}

// EncodeAddress bech32 encodes raw address bytes
func EncodeAddress(raw []byte, prefix string) (string, error) {
	conv, err := bech32.ConvertBits(raw, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("convert address bits: %w", err)
	}
	return bech32.Encode(prefix, conv)
}

// ValidateAddress checks the checksum, prefix and length of a bech32 account address
func ValidateAddress(addr, prefix string) error {
	hrp, data, err := bech32.Decode(addr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if hrp != prefixOrDefault(prefix) {
		return fmt.Errorf("%w: prefix %q, want %q", ErrInvalidAddress, hrp, prefixOrDefault(prefix))
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(raw) != 20 && len(raw) != 32 {
		return fmt.Errorf("%w: %d address bytes", ErrInvalidAddress, len(raw))
	}
	return nil
}

func prefixOrDefault(prefix string) string {
	if prefix == "" {
		return DefaultPrefix
	}
	return prefix
}
