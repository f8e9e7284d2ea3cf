package models

import "time"

// Snapshot part names, used as keys of PortfolioSnapshot.Errors
const (
	PartBalances    = "balances"
	PartDelegations = "delegations"
	PartRewards     = "rewards"
	PartUserRewards = "user_rewards"
	PartOrders      = "orders"
)

// PortfolioSnapshot is the latest polled view of one address. Each poll
// replaces the previous snapshot.
type PortfolioSnapshot struct {
	Address        string                    `json:"address"`
	Balances       Coins                     `json:"balances"`
	Delegations    []Delegation              `json:"delegations"`
	Rewards        *DelegatorRewardsResponse `json:"rewards,omitempty"`
	UserRewards    *UserRewardsResponse      `json:"user_rewards,omitempty"`
	OpenOrders     []Order                   `json:"open_orders"`
	LiquidityValue string                    `json:"liquidity_value"`
	FetchedAt      time.Time                 `json:"fetched_at"`
	Errors         map[string]string         `json:"errors,omitempty"`
}

// Wallet kinds a session can be bound to
const (
	WalletKindKey      = "key"
	WalletKindExternal = "external"
)

// Session is the persisted wallet selection, restored at startup to reconnect silently
type Session struct {
	Address    string `json:"address"`
	WalletKind string `json:"wallet_kind"`
}
