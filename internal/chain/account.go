package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/wnt/mychain-dash/internal/models"
)

// Account type URLs the signing state can be read from
const (
	typeBaseAccount            = "/cosmos.auth.v1beta1.BaseAccount"
	typeModuleAccount          = "/cosmos.auth.v1beta1.ModuleAccount"
	typeContinuousVesting      = "/cosmos.vesting.v1beta1.ContinuousVestingAccount"
	typeDelayedVesting         = "/cosmos.vesting.v1beta1.DelayedVestingAccount"
	typePeriodicVesting        = "/cosmos.vesting.v1beta1.PeriodicVestingAccount"
	typePermanentLockedAccount = "/cosmos.vesting.v1beta1.PermanentLockedAccount"
)

// Account returns the account number and sequence needed to sign for address
func (c *Client) Account(ctx context.Context, address string) (*models.BaseAccount, error) {
	path := AccountPath(address)

	var resp struct {
		Account json.RawMessage `json:"account"`
	}
	if err := c.FetchJSON(ctx, path, &resp); err != nil {
		return nil, err
	}

	account, err := decodeAccount(resp.Account)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	return account, nil
}

// wireBaseAccount is the JSON form of cosmos.auth.v1beta1.BaseAccount
type wireBaseAccount struct {
	Address       string     `json:"address"`
	AccountNumber uintString `json:"account_number"`
	Sequence      uintString `json:"sequence"`
}

// decodeAccount reads the base account out of the @type tagged account variants
func decodeAccount(raw json.RawMessage) (*models.BaseAccount, error) {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, fmt.Errorf("missing account")
	}

	var tagged struct {
		Type               string           `json:"@type"`
		BaseAccount        *wireBaseAccount `json:"base_account"`
		BaseVestingAccount *struct {
			BaseAccount *wireBaseAccount `json:"base_account"`
		} `json:"base_vesting_account"`
	}
	if err := json.Unmarshal(raw, &tagged); err != nil {
		return nil, err
	}

	var base *wireBaseAccount
	switch tagged.Type {
	case typeBaseAccount:
		base = &wireBaseAccount{}
		if err := json.Unmarshal(raw, base); err != nil {
			return nil, err
		}
	case typeModuleAccount:
		base = tagged.BaseAccount
	case typeContinuousVesting, typeDelayedVesting, typePeriodicVesting, typePermanentLockedAccount:
		if tagged.BaseVestingAccount != nil {
			base = tagged.BaseVestingAccount.BaseAccount
		}
	default:
		return nil, fmt.Errorf("unsupported account type %q", tagged.Type)
	}

	if base == nil {
		return nil, fmt.Errorf("account of type %s has no base account", tagged.Type)
	}

	return &models.BaseAccount{
		Address:       base.Address,
		AccountNumber: uint64(base.AccountNumber),
		Sequence:      uint64(base.Sequence),
	}, nil
}

// uintString decodes uint64 values rendered as quoted strings or numbers
type uintString uint64

func (u *uintString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*u = 0
			return nil
		}
		data = []byte(s)
	}
	v, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid unsigned integer %q", string(data))
	}
	*u = uintString(v)
	return nil
}
