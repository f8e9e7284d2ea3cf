package mockapi

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/wnt/mychain-dash/internal/chain"
)

// DemoAddress owns the orders, rewards and balances in the default fixtures
const DemoAddress = "mychain1cyyzpxplxdzkeea7kwsydadg87357qnangklfq"

const otherMaker = "mychain1other"

// Fixtures maps an exact request path to the JSON body served for it
type Fixtures map[string]json.RawMessage

// LoadFixtures reads a JSON object of path to response body. Every key must be
// an absolute path.
func LoadFixtures(path string) (Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}

	var fixtures Fixtures
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return nil, fmt.Errorf("parse fixtures %s: %w", path, err)
	}
	for key := range fixtures {
		if !strings.HasPrefix(key, "/") {
			return nil, fmt.Errorf("fixture path %q must start with /", key)
		}
	}
	return fixtures, nil
}

// DefaultFixtures returns the built-in data set: two order books, DEX reward
// state, the demo account's rewards, history and balances, supply and price.
func DefaultFixtures() Fixtures {
	return defaultFixturesAt(time.Now().UTC())
}

func defaultFixturesAt(now time.Time) Fixtures {
	ts := now.Format(time.RFC3339)
	ago := func(d time.Duration) string { return now.Add(-d).Format(time.RFC3339) }

	coin := func(denom, amount string) map[string]string {
		return map[string]string{"denom": denom, "amount": amount}
	}
	order := func(id, maker, pairID string, isBuy bool, priceDenom, price, amount string) map[string]any {
		return map[string]any{
			"id":            id,
			"maker":         maker,
			"pair_id":       pairID,
			"is_buy":        isBuy,
			"price":         coin(priceDenom, price),
			"amount":        coin("umc", amount),
			"filled_amount": coin("umc", "0"),
			"created_at":    ts,
			"updated_at":    ts,
		}
	}
	transaction := func(height, timestamp, txType, description string, amount map[string]string, from, to string) map[string]any {
		return map[string]any{
			"height":      height,
			"timestamp":   timestamp,
			"type":        txType,
			"description": description,
			"amount":      []map[string]string{amount},
			"from":        from,
			"to":          to,
			"metadata":    "Order #1",
		}
	}

	bodies := map[string]any{
		chain.OrderBookPath("1"): map[string]any{
			"buy_orders": []any{
				order("1", DemoAddress, "1", true, "utusd", "99", "10000000000"),
				order("2", otherMaker, "1", true, "utusd", "95", "5000000000"),
			},
			"sell_orders": []any{
				order("3", DemoAddress, "1", false, "utusd", "101", "8000000000"),
				order("4", otherMaker, "1", false, "utusd", "110", "20000000000"),
			},
		},
		chain.OrderBookPath("2"): map[string]any{
			"buy_orders": []any{
				order("5", DemoAddress, "2", true, "ulc", "100", "1000000000"),
			},
			"sell_orders": []any{
				order("6", otherMaker, "2", false, "ulc", "110", "500000000"),
			},
		},
		chain.PathDynamicRewardState: map[string]any{
			"state": map[string]string{
				"current_annual_rate": "75.5",
				"last_update_block":   "100",
				"last_update_time":    ts,
			},
			"current_liquidity": "150000000000",
			"liquidity_target":  "200000000000",
		},
		chain.UserRewardsPath(DemoAddress): map[string]any{
			"unclaimed_amount": coin("ulc", "125000000"),
			"total_earned":     coin("ulc", "450000000"),
			"order_rewards": []any{map[string]any{
				"order_id":      "1",
				"pair_id":       "1",
				"order_amount":  coin("umc", "10000000000"),
				"reward_amount": coin("ulc", "125000000"),
			}},
		},
		chain.TransactionHistoryPath(DemoAddress): map[string]any{
			"transactions": []any{
				transaction("95", ago(time.Hour), "dex_reward_distribution", "DEX liquidity rewards distribution",
					coin("ulc", "50000000"), "dex_module", DemoAddress),
				transaction("90", ago(2*time.Hour), "dex_reward_distribution", "DEX liquidity rewards distribution",
					coin("ulc", "75000000"), "dex_module", DemoAddress),
				transaction("85", ago(3*time.Hour), "create_order", "Created DEX order",
					coin("umc", "10000000000"), DemoAddress, "dex_module"),
			},
		},
		chain.BalancesPath(DemoAddress): map[string]any{
			"balances": []any{
				coin("ulc", "5000000000"),
				coin("umc", "75000000000"),
				coin("utusd", "80000000000"),
			},
		},
		chain.DelegationsPath(DemoAddress): map[string]any{
			"delegation_responses": []any{},
		},
		chain.DelegatorRewardsPath(DemoAddress): map[string]any{
			"rewards": []any{},
			"total":   []any{},
		},
		chain.PathSupply: map[string]any{
			"supply": []any{
				coin("ulc", "100000000000"),
				coin("umc", "100100000000"),
				coin("utusd", "100000000000"),
			},
		},
		chain.PathCurrentPrice: map[string]any{
			"current_price": "100",
			"last_update":   ts,
		},
		chain.PathDexParams: map[string]any{
			"params": map[string]string{
				"base_reward_rate": "222",
				"lc_denom":         "ulc",
			},
		},
	}

	fixtures := make(Fixtures, len(bodies))
	for path, body := range bodies {
		raw, err := json.Marshal(body)
		if err != nil {
			panic(fmt.Sprintf("marshal fixture %s: %v", path, err))
		}
		fixtures[path] = raw
	}
	return fixtures
}
