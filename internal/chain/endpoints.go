package chain

import "net/url"

// REST paths served by the chain node
const (
	PathSupply             = "/cosmos/bank/v1beta1/supply"
	PathInflation          = "/cosmos/mint/v1beta1/inflation"
	PathDynamicRewardState = "/mychain/dex/v1/dynamic_reward_state"
	PathDexParams          = "/mychain/dex/v1/params"
	PathCurrentPrice       = "/mychain/maincoin/v1/current_price"
	PathLatestBlock        = "/cosmos/base/tendermint/v1beta1/blocks/latest"
	PathNodeInfo           = "/cosmos/base/tendermint/v1beta1/node_info"
	PathBroadcast          = "/cosmos/tx/v1beta1/txs"
)

func BalancesPath(address string) string {
	return "/cosmos/bank/v1beta1/balances/" + url.PathEscape(address)
}

func DelegationsPath(address string) string {
	return "/cosmos/staking/v1beta1/delegations/" + url.PathEscape(address)
}

func DelegatorRewardsPath(address string) string {
	return "/cosmos/distribution/v1beta1/delegators/" + url.PathEscape(address) + "/rewards"
}

func OrderBookPath(pairID string) string {
	return "/mychain/dex/v1/order_book/" + url.PathEscape(pairID)
}

func UserRewardsPath(address string) string {
	return "/mychain/dex/v1/user_rewards/" + url.PathEscape(address)
}

func UserHistoryPath(address string) string {
	return "/mychain/maincoin/v1/user_history/" + url.PathEscape(address)
}

func TransactionHistoryPath(address string) string {
	return "/mychain/mychain/v1/transaction-history/" + url.PathEscape(address)
}

func AccountPath(address string) string {
	return "/cosmos/auth/v1beta1/accounts/" + url.PathEscape(address)
}

// TxPath is the query path of a single transaction by hash
func TxPath(hash string) string {
	return PathBroadcast + "/" + url.PathEscape(hash)
}
