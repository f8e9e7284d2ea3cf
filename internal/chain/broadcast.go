package chain

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wnt/mychain-dash/internal/metrics"
	"github.com/wnt/mychain-dash/internal/models"
	"github.com/wnt/mychain-dash/internal/msgs"
	"github.com/wnt/mychain-dash/internal/parser"
	"github.com/wnt/mychain-dash/internal/utils"
)

// BroadcastModeSync returns once the transaction passed CheckTx
const BroadcastModeSync = "BROADCAST_MODE_SYNC"

// Signer signs transactions for one account
type Signer interface {
	Address() string
	PubKey() []byte
	Sign(msg []byte) ([]byte, error)
}

type broadcastRequest struct {
	TxBytes string `json:"tx_bytes"`
	Mode    string `json:"mode"`
}

// SignAndBroadcast signs msg with the signer's key in SIGN_MODE_DIRECT and
// submits it once. The returned result is the chain's CheckTx answer; a
// non-zero code is not an error here and is left to the purchase parser.
func (c *Client) SignAndBroadcast(ctx context.Context, signer Signer, msg msgs.Msg, fee models.Fee, memo string) (*models.TxResult, error) {
	if signer == nil {
		return nil, ErrWallet
	}
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}

	wireFee, err := msgs.NewFee(fee)
	if err != nil {
		return nil, err
	}

	account, err := c.Account(ctx, signer.Address())
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.NotFound() {
			return nil, fmt.Errorf("account %s does not exist on chain yet, fund it first: %w", signer.Address(), err)
		}
		return nil, fmt.Errorf("load account %s: %w", signer.Address(), err)
	}

	txBytes, err := c.buildSignedTx(signer, account, msg, wireFee, memo)
	if err != nil {
		return nil, err
	}

	result, err := c.broadcast(ctx, txBytes)
	if err != nil {
		metrics.RecordBroadcast(msg.TypeURL(), "error")
		return nil, err
	}

	status := "accepted"
	if !result.Success() {
		status = "rejected"
	}
	metrics.RecordBroadcast(msg.TypeURL(), status)

	c.logger.Info().
		Str("type_url", msg.TypeURL()).
		Str("tx_hash", result.TxHash).
		Uint32("code", result.Code).
		Uint64("sequence", account.Sequence).
		Msg("Broadcast transaction")

	return result, nil
}

func (c *Client) buildSignedTx(signer Signer, account *models.BaseAccount, msg msgs.Msg, fee msgs.Fee, memo string) ([]byte, error) {
	body := msgs.TxBody{
		Messages: []msgs.Any{msgs.NewAny(msg)},
		Memo:     memo,
	}
	authInfo := msgs.AuthInfo{
		SignerInfos: []msgs.SignerInfo{{
			PublicKey: msgs.PubKeyAny(signer.PubKey()),
			Sequence:  account.Sequence,
		}},
		Fee: fee,
	}

	bodyBytes := body.Marshal()
	authInfoBytes := authInfo.Marshal()

	signDoc := msgs.SignDoc{
		BodyBytes:     bodyBytes,
		AuthInfoBytes: authInfoBytes,
		ChainID:       c.chainID,
		AccountNumber: account.AccountNumber,
	}

	sig, err := signer.Sign(signDoc.Marshal())
	if err != nil {
		return nil, fmt.Errorf("%w: sign transaction: %v", ErrWallet, err)
	}

	raw := msgs.TxRaw{
		BodyBytes:     bodyBytes,
		AuthInfoBytes: authInfoBytes,
		Signatures:    [][]byte{sig},
	}
	return raw.Marshal(), nil
}

// broadcast posts to the first available endpoint only. A submit is never
// repeated against another endpoint.
func (c *Client) broadcast(ctx context.Context, txBytes []byte) (*models.TxResult, error) {
	candidates := c.pool.Candidates()
	if len(candidates) == 0 {
		return nil, ErrUnreachable
	}
	endpoint := candidates[0]

	if err := endpoint.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := endpoint.Client().Post(ctx, PathBroadcast, broadcastRequest{
		TxBytes: base64.StdEncoding.EncodeToString(txBytes),
		Mode:    BroadcastModeSync,
	})
	if err != nil {
		var httpErr *utils.Error
		if errors.As(err, &httpErr) {
			metrics.RecordChainRequest(endpoint.URL, fmt.Sprintf("http_%d", httpErr.StatusCode))
			return nil, &StatusError{
				Endpoint:   endpoint.URL,
				Path:       PathBroadcast,
				StatusCode: httpErr.StatusCode,
				Body:       truncate(httpErr.Response.String(), 512),
			}
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		metrics.RecordChainRequest(endpoint.URL, "unreachable")
		c.pool.MarkUnhealthy(endpoint.URL)
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreachable, endpoint.URL, err)
	}

	c.pool.MarkHealthy(endpoint.URL)
	metrics.RecordChainRequest(endpoint.URL, "success")

	result, err := parser.DecodeTxResult(resp.Body)
	if err != nil {
		return nil, &DecodeError{Path: PathBroadcast, Err: err}
	}
	return result, nil
}

// TxByHash queries a committed transaction
func (c *Client) TxByHash(ctx context.Context, hash string) (*models.TxResult, error) {
	path := TxPath(hash)

	var raw json.RawMessage
	if err := c.FetchJSON(ctx, path, &raw); err != nil {
		return nil, err
	}

	result, err := parser.DecodeTxResult(raw)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	return result, nil
}
