package portfolio

import (
	"time"

	"github.com/wnt/mychain-dash/internal/models"
)

// Result is one independently fetched part of a snapshot: a value or the
// error that prevented fetching it
type Result[T any] struct {
	Value T
	Err   error
}

// Fetched wraps the return values of a chain query
func Fetched[T any](value T, err error) Result[T] {
	return Result[T]{Value: value, Err: err}
}

// Parts are the queries a portfolio snapshot is assembled from
type Parts struct {
	Balances    Result[models.Coins]
	Delegations Result[[]models.Delegation]
	Rewards     Result[*models.DelegatorRewardsResponse]
	UserRewards Result[*models.UserRewardsResponse]
	OrderBook   Result[*models.OrderBook]
}

// BuildSnapshot assembles the snapshot of address. A failed part keeps its
// empty default and its error is recorded under the part name.
func BuildSnapshot(address string, parts Parts, fetchedAt time.Time) models.PortfolioSnapshot {
	snap := models.PortfolioSnapshot{
		Address:        address,
		Balances:       models.Coins{},
		Delegations:    []models.Delegation{},
		OpenOrders:     []models.Order{},
		LiquidityValue: "0",
		FetchedAt:      fetchedAt.UTC(),
	}

	fail := func(part string, err error) {
		if snap.Errors == nil {
			snap.Errors = make(map[string]string)
		}
		snap.Errors[part] = err.Error()
	}

	if parts.Balances.Err != nil {
		fail(models.PartBalances, parts.Balances.Err)
	} else if parts.Balances.Value != nil {
		snap.Balances = parts.Balances.Value
	}

	if parts.Delegations.Err != nil {
		fail(models.PartDelegations, parts.Delegations.Err)
	} else if parts.Delegations.Value != nil {
		snap.Delegations = parts.Delegations.Value
	}

	if parts.Rewards.Err != nil {
		fail(models.PartRewards, parts.Rewards.Err)
	} else {
		snap.Rewards = parts.Rewards.Value
	}

	if parts.UserRewards.Err != nil {
		fail(models.PartUserRewards, parts.UserRewards.Err)
	} else {
		snap.UserRewards = parts.UserRewards.Value
	}

	if parts.OrderBook.Err != nil {
		fail(models.PartOrders, parts.OrderBook.Err)
	} else {
		open := SplitOrders(parts.OrderBook.Value, address)
		value, err := LiquidityValue(open)
		if err != nil {
			fail(models.PartOrders, err)
		} else {
			snap.OpenOrders = open
			snap.LiquidityValue = value.String()
		}
	}

	return snap
}

// FailedParts lists the names of parts that could not be fetched
func FailedParts(snap models.PortfolioSnapshot) []string {
	failed := make([]string, 0, len(snap.Errors))
	for _, part := range []string{
		models.PartBalances, models.PartDelegations, models.PartRewards,
		models.PartUserRewards, models.PartOrders,
	} {
		if _, ok := snap.Errors[part]; ok {
			failed = append(failed, part)
		}
	}
	return failed
}
