package models

// BalancesResponse is the body of /cosmos/bank/v1beta1/balances/{address}
type BalancesResponse struct {
	Balances Coins `json:"balances"`
}

// SupplyResponse is the body of /cosmos/bank/v1beta1/supply
type SupplyResponse struct {
	Supply Coins `json:"supply"`
}

// Delegation is a single staking delegation
type Delegation struct {
	Delegation struct {
		DelegatorAddress string `json:"delegator_address"`
		ValidatorAddress string `json:"validator_address"`
		Shares           string `json:"shares"`
	} `json:"delegation"`
	Balance Coin `json:"balance"`
}

// DelegationsResponse is the body of /cosmos/staking/v1beta1/delegations/{address}
type DelegationsResponse struct {
	DelegationResponses []Delegation `json:"delegation_responses"`
}

// DecCoin is a coin with a decimal amount, used by distribution queries
type DecCoin struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

// DelegatorRewardsResponse is the body of /cosmos/distribution/v1beta1/delegators/{address}/rewards
type DelegatorRewardsResponse struct {
	Rewards []struct {
		ValidatorAddress string    `json:"validator_address"`
		Reward           []DecCoin `json:"reward"`
	} `json:"rewards"`
	Total []DecCoin `json:"total"`
}

// InflationResponse is the body of /cosmos/mint/v1beta1/inflation
type InflationResponse struct {
	Inflation string `json:"inflation"`
}

// OrderReward is the reward accrued by one order
type OrderReward struct {
	OrderID      string `json:"order_id"`
	PairID       string `json:"pair_id"`
	OrderAmount  Coin   `json:"order_amount"`
	RewardAmount Coin   `json:"reward_amount"`
}

// UserRewardsResponse is the body of /mychain/dex/v1/user_rewards/{address}
type UserRewardsResponse struct {
	UnclaimedAmount Coin          `json:"unclaimed_amount"`
	TotalEarned     Coin          `json:"total_earned"`
	OrderRewards    []OrderReward `json:"order_rewards"`
}

// DynamicRewardState is the body of /mychain/dex/v1/dynamic_reward_state
type DynamicRewardState struct {
	State struct {
		CurrentAnnualRate string `json:"current_annual_rate"`
		LastUpdateBlock   string `json:"last_update_block"`
		LastUpdateTime    string `json:"last_update_time"`
	} `json:"state"`
	CurrentLiquidity string `json:"current_liquidity"`
	LiquidityTarget  string `json:"liquidity_target"`
}

// DexParamsResponse is the body of /mychain/dex/v1/params
type DexParamsResponse struct {
	Params map[string]any `json:"params"`
}

// CurrentPriceResponse is the body of /mychain/maincoin/v1/current_price
type CurrentPriceResponse struct {
	CurrentPrice string `json:"current_price"`
	LastUpdate   string `json:"last_update,omitempty"`
}

// LatestBlockResponse is the part of /cosmos/base/tendermint/v1beta1/blocks/latest we use
type LatestBlockResponse struct {
	Block struct {
		Header struct {
			ChainID string      `json:"chain_id"`
			Height  BlockHeight `json:"height"`
			Time    string      `json:"time"`
		} `json:"header"`
	} `json:"block"`
}

// NodeInfoResponse is the part of /cosmos/base/tendermint/v1beta1/node_info we use
type NodeInfoResponse struct {
	DefaultNodeInfo struct {
		Network string `json:"network"`
		Version string `json:"version"`
		Moniker string `json:"moniker"`
	} `json:"default_node_info"`
}

// BaseAccount is the signing state of an account
type BaseAccount struct {
	Address       string
	AccountNumber uint64
	Sequence      uint64
}
