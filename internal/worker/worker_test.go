package worker

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wnt/mychain-dash/internal/config"
	"github.com/wnt/mychain-dash/internal/models"
)

type fakeQueue struct {
	mu        sync.Mutex
	due       map[string]time.Time
	watched   map[string]bool
	inFlight  map[string]string
	snapshots map[string]models.PortfolioSnapshot
	saveErr   error
}

func newFakeQueue(addrs ...string) *fakeQueue {
	q := &fakeQueue{
		due:       make(map[string]time.Time),
		watched:   make(map[string]bool),
		inFlight:  make(map[string]string),
		snapshots: make(map[string]models.PortfolioSnapshot),
	}
	for _, a := range addrs {
		q.due[a] = time.Time{}
		q.watched[a] = true
	}
	return q
}

func (q *fakeQueue) PopDue(_ context.Context, now time.Time) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	addrs := make([]string, 0, len(q.due))
	for a, due := range q.due {
		if !due.After(now) {
			addrs = append(addrs, a)
		}
	}
	if len(addrs) == 0 {
		return "", nil
	}
	sort.Slice(addrs, func(i, j int) bool { return q.due[addrs[i]].Before(q.due[addrs[j]]) })
	delete(q.due, addrs[0])
	return addrs[0], nil
}

func (q *fakeQueue) Reschedule(_ context.Context, addr string, due time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.watched[addr] {
		q.due[addr] = due
	}
	return nil
}

func (q *fakeQueue) SetInFlight(_ context.Context, addr, worker string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.inFlight[addr] = worker
	return nil
}

func (q *fakeQueue) RemoveInFlight(_ context.Context, addr string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.inFlight, addr)
	return nil
}

func (q *fakeQueue) SaveSnapshot(_ context.Context, snap models.PortfolioSnapshot) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.saveErr != nil {
		return q.saveErr
	}
	if q.watched[snap.Address] {
		q.snapshots[snap.Address] = snap
	}
	return nil
}

func (q *fakeQueue) GetQueueLength(context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.due)), nil
}

func (q *fakeQueue) GetInFlight(context.Context) (map[string]string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make(map[string]string, len(q.inFlight))
	for k, v := range q.inFlight {
		out[k] = v
	}
	return out, nil
}

func (q *fakeQueue) RequeueStuck(context.Context, time.Duration) (int, error) {
	return 0, nil
}

func (q *fakeQueue) snapshot(addr string) (models.PortfolioSnapshot, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	s, ok := q.snapshots[addr]
	return s, ok
}

type fakeChain struct {
	balancesErr error
	book        *models.OrderBook
}

func (c *fakeChain) Balances(_ context.Context, address string) (models.Coins, error) {
	if c.balancesErr != nil {
		return nil, c.balancesErr
	}
	return models.Coins{{Denom: "umc", Amount: "42"}}, nil
}

func (c *fakeChain) Delegations(context.Context, string) ([]models.Delegation, error) {
	return []models.Delegation{}, nil
}

func (c *fakeChain) DelegatorRewards(context.Context, string) (*models.DelegatorRewardsResponse, error) {
	return &models.DelegatorRewardsResponse{}, nil
}

func (c *fakeChain) UserRewards(context.Context, string) (*models.UserRewardsResponse, error) {
	return &models.UserRewardsResponse{UnclaimedAmount: models.NewCoin("ulc", 7)}, nil
}

func (c *fakeChain) OrderBook(context.Context, string) (*models.OrderBook, error) {
	if c.book == nil {
		return &models.OrderBook{}, nil
	}
	return c.book, nil
}

func TestPoll(t *testing.T) {
	const addr = "mychain1watched"
	chain := &fakeChain{
		balancesErr: errors.New("unable to connect to blockchain API"),
		book: &models.OrderBook{SellOrders: []models.Order{{
			ID: "1", Maker: addr,
			Price:  models.NewCoin("utusd", 2_000_000),
			Amount: models.NewCoin("umc", 1_000_000),
		}}},
	}
	w := NewWorker("worker-1", newFakeQueue(), chain, "1", time.Second, zerolog.Nop())

	snap, err := w.Poll(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, addr, snap.Address)
	assert.Contains(t, snap.Errors, models.PartBalances)
	assert.Empty(t, snap.Balances)
	assert.Equal(t, "7", snap.UserRewards.UnclaimedAmount.Amount)
	assert.Equal(t, "2", snap.LiquidityValue)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = w.Poll(ctx, addr)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPollNextReschedules(t *testing.T) {
	q := newFakeQueue("mychain1a")
	w := NewWorker("worker-1", q, &fakeChain{}, "1", 10*time.Second, zerolog.Nop())
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	polled, err := w.pollNext(context.Background())
	require.NoError(t, err)
	assert.True(t, polled)

	snap, ok := q.snapshot("mychain1a")
	require.True(t, ok)
	assert.Equal(t, "42", snap.Balances.AmountOf("umc"))
	assert.Equal(t, now.Add(10*time.Second), q.due["mychain1a"])
	assert.Empty(t, q.inFlight)

	polled, err = w.pollNext(context.Background())
	require.NoError(t, err)
	assert.False(t, polled, "not due again until the interval passed")
}

func TestPollNextSaveFailureStillReschedules(t *testing.T) {
	q := newFakeQueue("mychain1a")
	q.saveErr = errors.New("redis down")
	w := NewWorker("worker-1", q, &fakeChain{}, "1", time.Second, zerolog.Nop())

	polled, err := w.pollNext(context.Background())
	assert.True(t, polled)
	assert.ErrorContains(t, err, "redis down")
	assert.Contains(t, q.due, "mychain1a")
	assert.Empty(t, q.inFlight)
}

func TestPollNextUnwatched(t *testing.T) {
	q := newFakeQueue("mychain1a")
	q.watched["mychain1a"] = false
	w := NewWorker("worker-1", q, &fakeChain{}, "1", time.Second, zerolog.Nop())

	_, err := w.pollNext(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, q.due, "mychain1a")
	_, ok := q.snapshot("mychain1a")
	assert.False(t, ok)
}

func TestWorkerStop(t *testing.T) {
	idleWait = 10 * time.Millisecond
	t.Cleanup(func() { idleWait = time.Second })

	w := NewWorker("worker-1", newFakeQueue(), &fakeChain{}, "1", time.Second, zerolog.Nop())
	done := make(chan error, 1)
	go func() { done <- w.Start(context.Background()) }()

	w.Stop()
	w.Stop()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestManager(t *testing.T) {
	idleWait = 10 * time.Millisecond
	t.Cleanup(func() { idleWait = time.Second })

	cfg := config.Config{MinWorkers: 1, MaxWorkers: 3, PollInterval: time.Hour, PairID: "1"}
	q := newFakeQueue("mychain1a", "mychain1b")
	m := NewManager(cfg, q, &fakeChain{}, nil, zerolog.Nop())

	assert.Equal(t, 1, m.calculateDesiredWorkers(0))
	assert.Equal(t, 2, m.calculateDesiredWorkers(25))
	assert.Equal(t, 3, m.calculateDesiredWorkers(1000))
	assert.Equal(t, time.Hour*3, m.stuckTimeout())

	require.NoError(t, m.Start())

	assert.Eventually(t, func() bool {
		_, a := q.snapshot("mychain1a")
		_, b := q.snapshot("mychain1b")
		return a && b
	}, 2*time.Second, 10*time.Millisecond)

	stats := m.GetStats()
	assert.Equal(t, 1, stats["active_workers"])
	assert.NotContains(t, stats, "healthy_endpoints")

	require.NoError(t, m.Stop())
	require.NoError(t, m.Stop())
	assert.Equal(t, 0, m.GetStats()["active_workers"])
}
