package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/wnt/mychain-dash/internal/logger"
	"github.com/wnt/mychain-dash/internal/metrics"
	"github.com/wnt/mychain-dash/internal/models"
	"github.com/wnt/mychain-dash/internal/portfolio"
	"golang.org/x/sync/errgroup"
)

// Queue is the watch queue and snapshot store the workers poll from
type Queue interface {
	PopDue(ctx context.Context, now time.Time) (string, error)
	Reschedule(ctx context.Context, addr string, due time.Time) error
	SetInFlight(ctx context.Context, addr, worker string) error
	RemoveInFlight(ctx context.Context, addr string) error
	SaveSnapshot(ctx context.Context, snap models.PortfolioSnapshot) error
	GetQueueLength(ctx context.Context) (int64, error)
	GetInFlight(ctx context.Context) (map[string]string, error)
	RequeueStuck(ctx context.Context, timeout time.Duration) (int, error)
}

// ChainReader is the set of chain queries a snapshot is built from
type ChainReader interface {
	Balances(ctx context.Context, address string) (models.Coins, error)
	Delegations(ctx context.Context, address string) ([]models.Delegation, error)
	DelegatorRewards(ctx context.Context, address string) (*models.DelegatorRewardsResponse, error)
	UserRewards(ctx context.Context, address string) (*models.UserRewardsResponse, error)
	OrderBook(ctx context.Context, pairID string) (*models.OrderBook, error)
}

// idleWait is how long a worker sleeps when no address is due
var idleWait = time.Second

// Worker polls due addresses and stores their snapshots
type Worker struct {
	id       string
	queue    Queue
	chain    ChainReader
	pairID   string
	interval time.Duration
	logger   zerolog.Logger
	now      func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewWorker creates a new worker instance
func NewWorker(id string, q Queue, chain ChainReader, pairID string, interval time.Duration, baseLogger zerolog.Logger) *Worker {
	return &Worker{
		id:       id,
		queue:    q,
		chain:    chain,
		pairID:   pairID,
		interval: interval,
		logger:   logger.WithWorker(baseLogger, id),
		now:      time.Now,
		stop:     make(chan struct{}),
	}
}

// Start runs the polling loop until ctx is cancelled or Stop is called
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info().Msg("Starting worker")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Worker received shutdown signal")
			return nil
		case <-w.stop:
			w.logger.Info().Msg("Worker stopped")
			return nil
		default:
		}

		polled, err := w.pollNext(ctx)
		if err != nil && ctx.Err() == nil {
			w.logger.Error().Err(err).Msg("Failed to poll address")
		}
		if polled && err == nil {
			continue
		}

		select {
		case <-time.After(idleWait):
		case <-ctx.Done():
		case <-w.stop:
		}
	}
}

// Stop signals the worker to stop after its current poll
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
		w.logger.Info().Msg("Worker stop signal received")
	})
}

// pollNext claims one due address and refreshes its snapshot. It reports
// whether an address was claimed.
func (w *Worker) pollNext(ctx context.Context) (bool, error) {
	addr, err := w.queue.PopDue(ctx, w.now())
	if err != nil {
		return false, fmt.Errorf("failed to pop address from queue: %w", err)
	}
	if addr == "" {
		return false, nil
	}

	if err := w.queue.SetInFlight(ctx, addr, w.id); err != nil {
		if requeueErr := w.queue.Reschedule(ctx, addr, w.now()); requeueErr != nil {
			w.logger.Error().Err(requeueErr).Str("address", addr).Msg("Failed to requeue address after in-flight error")
		}
		return true, err
	}

	addrLogger := logger.WithAddress(w.logger, addr)
	startTime := time.Now()

	snap, err := w.Poll(ctx, addr)
	duration := time.Since(startTime)

	metrics.RecordSnapshotPoll(duration.Seconds())
	metrics.RecordWorkerTaskDuration("snapshot_poll", w.id, duration.Seconds())

	if err == nil {
		err = w.queue.SaveSnapshot(ctx, snap)
	}

	// bookkeeping must survive shutdown or the address drops out of the queue
	cleanupCtx := context.WithoutCancel(ctx)
	if removeErr := w.queue.RemoveInFlight(cleanupCtx, addr); removeErr != nil {
		addrLogger.Error().Err(removeErr).Msg("Failed to remove address from in-flight tracking")
	}

	// the next tick is scheduled whatever happened to this one
	if requeueErr := w.queue.Reschedule(cleanupCtx, addr, w.now().Add(w.interval)); requeueErr != nil {
		addrLogger.Error().Err(requeueErr).Msg("Failed to reschedule address")
	}

	if err != nil {
		return true, fmt.Errorf("snapshot of %s failed: %w", addr, err)
	}

	addrLogger.Debug().
		Dur("duration", duration).
		Strs("failed_parts", portfolio.FailedParts(snap)).
		Str("liquidity_value", snap.LiquidityValue).
		Msg("Snapshot refreshed")
	return true, nil
}

// Poll fetches every part of the address snapshot concurrently. A failing part
// is recorded in the snapshot; only cancellation fails the whole poll.
func (w *Worker) Poll(ctx context.Context, addr string) (models.PortfolioSnapshot, error) {
	var parts portfolio.Parts

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		parts.Balances = portfolio.Fetched(w.chain.Balances(gctx, addr))
		return nil
	})
	g.Go(func() error {
		parts.Delegations = portfolio.Fetched(w.chain.Delegations(gctx, addr))
		return nil
	})
	g.Go(func() error {
		parts.Rewards = portfolio.Fetched(w.chain.DelegatorRewards(gctx, addr))
		return nil
	})
	g.Go(func() error {
		parts.UserRewards = portfolio.Fetched(w.chain.UserRewards(gctx, addr))
		return nil
	})
	g.Go(func() error {
		parts.OrderBook = portfolio.Fetched(w.chain.OrderBook(gctx, w.pairID))
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return models.PortfolioSnapshot{}, err
	}

	snap := portfolio.BuildSnapshot(addr, parts, w.now())
	for part := range snap.Errors {
		metrics.RecordSnapshotPartError(part)
	}
	return snap, nil
}
