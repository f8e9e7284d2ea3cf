package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/wnt/mychain-dash/internal/metrics"
	"github.com/wnt/mychain-dash/internal/models"
	"github.com/wnt/mychain-dash/internal/utils"
)

// Client issues read queries and broadcasts against the chain REST API
type Client struct {
	pool    *Pool
	chainID string
	logger  zerolog.Logger
}

// NewClient creates a chain client over the endpoint pool
func NewClient(pool *Pool, chainID string, logger zerolog.Logger) *Client {
	return &Client{
		pool:    pool,
		chainID: chainID,
		logger:  logger.With().Str("component", "chain_client").Logger(),
	}
}

// ChainID returns the chain id used when signing
func (c *Client) ChainID() string {
	return c.chainID
}

// Pool returns the underlying endpoint pool
func (c *Client) Pool() *Pool {
	return c.pool
}

// FetchJSON GETs path and decodes the JSON body into out. Endpoints are tried
// in pool order; the next one is used only when the current one could not be
// reached or answered 5xx. The request itself is never repeated on the same endpoint.
func (c *Client) FetchJSON(ctx context.Context, path string, out interface{}) error {
	var lastErr error

	for _, endpoint := range c.pool.Candidates() {
		if err := endpoint.Wait(ctx); err != nil {
			return err
		}

		resp, err := endpoint.Client().Get(ctx, path, nil)
		if err != nil {
			var httpErr *utils.Error
			if errors.As(err, &httpErr) {
				metrics.RecordChainRequest(endpoint.URL, fmt.Sprintf("http_%d", httpErr.StatusCode))
				statusErr := &StatusError{
					Endpoint:   endpoint.URL,
					Path:       path,
					StatusCode: httpErr.StatusCode,
					Body:       truncate(httpErr.Response.String(), 512),
				}
				if httpErr.StatusCode < 500 {
					return statusErr
				}
				c.logger.Warn().
					Str("endpoint", endpoint.URL).
					Str("path", path).
					Int("status", httpErr.StatusCode).
					Msg("Endpoint returned server error, falling back")
				lastErr = statusErr
				continue
			}

			if ctx.Err() != nil {
				return ctx.Err()
			}

			metrics.RecordChainRequest(endpoint.URL, "unreachable")
			c.pool.MarkUnhealthy(endpoint.URL)
			c.logger.Warn().
				Err(err).
				Str("endpoint", endpoint.URL).
				Str("path", path).
				Msg("Endpoint unreachable, falling back")
			lastErr = fmt.Errorf("%w: %s: %v", ErrUnreachable, endpoint.URL, err)
			continue
		}

		c.pool.MarkHealthy(endpoint.URL)

		if err := resp.DecodeJSON(out); err != nil {
			metrics.RecordChainRequest(endpoint.URL, "decode_error")
			return &DecodeError{Path: path, Err: err}
		}

		metrics.RecordChainRequest(endpoint.URL, "success")
		return nil
	}

	if lastErr == nil {
		lastErr = ErrUnreachable
	}
	return lastErr
}

// Balances returns the bank balances of address
func (c *Client) Balances(ctx context.Context, address string) (models.Coins, error) {
	var resp models.BalancesResponse
	if err := c.FetchJSON(ctx, BalancesPath(address), &resp); err != nil {
		return nil, err
	}
	return resp.Balances, nil
}

// Supply returns the total supply of every denom
func (c *Client) Supply(ctx context.Context) (models.Coins, error) {
	var resp models.SupplyResponse
	if err := c.FetchJSON(ctx, PathSupply, &resp); err != nil {
		return nil, err
	}
	return resp.Supply, nil
}

// Delegations returns the staking delegations of address
func (c *Client) Delegations(ctx context.Context, address string) ([]models.Delegation, error) {
	var resp models.DelegationsResponse
	if err := c.FetchJSON(ctx, DelegationsPath(address), &resp); err != nil {
		return nil, err
	}
	return resp.DelegationResponses, nil
}

// DelegatorRewards returns the pending staking rewards of address
func (c *Client) DelegatorRewards(ctx context.Context, address string) (*models.DelegatorRewardsResponse, error) {
	var resp models.DelegatorRewardsResponse
	if err := c.FetchJSON(ctx, DelegatorRewardsPath(address), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Inflation returns the current mint inflation as a decimal string
func (c *Client) Inflation(ctx context.Context) (string, error) {
	var resp models.InflationResponse
	if err := c.FetchJSON(ctx, PathInflation, &resp); err != nil {
		return "", err
	}
	return resp.Inflation, nil
}

// OrderBook returns both sides of the pair's order book
func (c *Client) OrderBook(ctx context.Context, pairID string) (*models.OrderBook, error) {
	var resp models.OrderBook
	if err := c.FetchJSON(ctx, OrderBookPath(pairID), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UserRewards returns the DEX liquidity rewards of address
func (c *Client) UserRewards(ctx context.Context, address string) (*models.UserRewardsResponse, error) {
	var resp models.UserRewardsResponse
	if err := c.FetchJSON(ctx, UserRewardsPath(address), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DynamicRewardState returns the DEX reward rate state
func (c *Client) DynamicRewardState(ctx context.Context) (*models.DynamicRewardState, error) {
	var resp models.DynamicRewardState
	if err := c.FetchJSON(ctx, PathDynamicRewardState, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DexParams returns the DEX module parameters
func (c *Client) DexParams(ctx context.Context) (map[string]any, error) {
	var resp models.DexParamsResponse
	if err := c.FetchJSON(ctx, PathDexParams, &resp); err != nil {
		return nil, err
	}
	return resp.Params, nil
}

// CurrentPrice returns the MainCoin bonding curve price
func (c *Client) CurrentPrice(ctx context.Context) (*models.CurrentPriceResponse, error) {
	var resp models.CurrentPriceResponse
	if err := c.FetchJSON(ctx, PathCurrentPrice, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UserHistory returns the MainCoin purchases of address. An address without
// purchases yields an empty history rather than an error.
func (c *Client) UserHistory(ctx context.Context, address string) (*models.UserHistory, error) {
	var resp models.UserHistoryResponse
	if err := c.FetchJSON(ctx, UserHistoryPath(address), &resp); err != nil {
		return nil, err
	}
	if resp.UserHistory == nil {
		return &models.UserHistory{Address: address, Purchases: []models.PurchaseRecord{}}, nil
	}
	if resp.UserHistory.Address == "" {
		resp.UserHistory.Address = address
	}
	return resp.UserHistory, nil
}

// TransactionHistory returns the chain-recorded transaction history of address
func (c *Client) TransactionHistory(ctx context.Context, address string) ([]models.TransactionRecord, error) {
	var resp models.TransactionHistoryResponse
	if err := c.FetchJSON(ctx, TransactionHistoryPath(address), &resp); err != nil {
		return nil, err
	}
	return resp.Transactions, nil
}

// LatestBlock returns the header of the latest block
func (c *Client) LatestBlock(ctx context.Context) (*models.LatestBlockResponse, error) {
	var resp models.LatestBlockResponse
	if err := c.FetchJSON(ctx, PathLatestBlock, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// NodeInfo returns the node's network identity
func (c *Client) NodeInfo(ctx context.Context) (*models.NodeInfoResponse, error) {
	var resp models.NodeInfoResponse
	if err := c.FetchJSON(ctx, PathNodeInfo, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
