package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/wnt/mychain-dash/internal/config"
	"github.com/wnt/mychain-dash/internal/metrics"
	"golang.org/x/sync/errgroup"
)

// Loop intervals of the manager
var (
	scaleInterval   = 30 * time.Second
	recoverInterval = time.Minute
	monitorInterval = time.Minute
)

// HealthReporter reports how many chain endpoints are usable
type HealthReporter interface {
	GetHealthyEndpointCount() int
}

// Manager manages a dynamic pool of snapshot workers
type Manager struct {
	config  config.Config
	queue   Queue
	chain   ChainReader
	health  HealthReporter
	workers []*Worker
	nextID  int
	logger  zerolog.Logger
	mutex   sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
	eg      *errgroup.Group
	stopped bool
}

// NewManager creates a new worker manager
func NewManager(cfg config.Config, q Queue, chain ChainReader, health HealthReporter, logger zerolog.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	eg, egCtx := errgroup.WithContext(ctx)

	return &Manager{
		config:  cfg,
		queue:   q,
		chain:   chain,
		health:  health,
		workers: make([]*Worker, 0),
		logger:  logger.With().Str("component", "worker_manager").Logger(),
		ctx:     egCtx,
		cancel:  cancel,
		eg:      eg,
	}
}

// Start begins the worker manager lifecycle
func (m *Manager) Start() error {
	m.logger.Info().
		Int("min_workers", m.config.MinWorkers).
		Int("max_workers", m.config.MaxWorkers).
		Dur("poll_interval", m.config.PollInterval).
		Msg("Starting worker manager")

	if err := m.adjustWorkerCount(); err != nil {
		return fmt.Errorf("failed to start initial workers: %w", err)
	}

	m.eg.Go(m.runScalingLoop)
	m.eg.Go(m.runStuckRecovery)
	m.eg.Go(m.runQueueMonitoring)

	m.logger.Info().Msg("Worker manager started successfully")
	return nil
}

// Stop cancels every worker and waits for them to finish
func (m *Manager) Stop() error {
	m.mutex.Lock()
	if m.stopped {
		m.mutex.Unlock()
		return nil
	}
	m.stopped = true
	m.mutex.Unlock()

	m.logger.Info().Msg("Stopping worker manager...")
	m.cancel()

	done := make(chan error, 1)
	go func() {
		done <- m.eg.Wait()
	}()

	select {
	case err := <-done:
		if err != nil && err != context.Canceled {
			m.logger.Error().Err(err).Msg("Error during worker shutdown")
		}
	case <-time.After(30 * time.Second):
		m.logger.Warn().Msg("Worker shutdown timed out")
	}

	m.mutex.Lock()
	m.workers = nil
	m.mutex.Unlock()

	metrics.WorkersActive.Set(0)
	m.logger.Info().Msg("Worker manager stopped")
	return nil
}

func (m *Manager) runScalingLoop() error {
	ticker := time.NewTicker(scaleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return nil
		case <-ticker.C:
			if err := m.adjustWorkerCount(); err != nil {
				m.logger.Error().Err(err).Msg("Failed to adjust worker count")
			}
		}
	}
}

// adjustWorkerCount scales workers based on the number of watched addresses
func (m *Manager) adjustWorkerCount() error {
	queueLength, err := m.queue.GetQueueLength(m.ctx)
	if err != nil {
		return fmt.Errorf("failed to get queue length: %w", err)
	}

	metrics.WatchQueueLength.Set(float64(queueLength))

	desiredWorkers := m.calculateDesiredWorkers(int(queueLength))

	m.mutex.RLock()
	currentWorkers := len(m.workers)
	m.mutex.RUnlock()

	if desiredWorkers == currentWorkers {
		return nil
	}

	m.logger.Info().
		Int("current_workers", currentWorkers).
		Int("desired_workers", desiredWorkers).
		Int64("queue_length", queueLength).
		Msg("Adjusting worker count")

	if desiredWorkers > currentWorkers {
		m.addWorkers(desiredWorkers - currentWorkers)
	} else {
		m.removeWorkers(currentWorkers - desiredWorkers)
	}
	return nil
}

// calculateDesiredWorkers runs one worker per 10 watched addresses within bounds
func (m *Manager) calculateDesiredWorkers(queueLength int) int {
	desired := queueLength / 10
	if desired < m.config.MinWorkers {
		desired = m.config.MinWorkers
	}
	if desired > m.config.MaxWorkers {
		desired = m.config.MaxWorkers
	}
	return desired
}

func (m *Manager) addWorkers(count int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.stopped {
		return
	}

	for i := 0; i < count; i++ {
		m.nextID++
		worker := NewWorker(fmt.Sprintf("worker-%d", m.nextID), m.queue, m.chain, m.config.PairID, m.config.PollInterval, m.logger)

		m.eg.Go(func() error {
			return worker.Start(m.ctx)
		})

		m.workers = append(m.workers, worker)
	}

	metrics.WorkersActive.Set(float64(len(m.workers)))

	m.logger.Info().
		Int("added", count).
		Int("total_workers", len(m.workers)).
		Msg("Workers added")
}

// removeWorkers stops the most recently added workers
func (m *Manager) removeWorkers(count int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if count > len(m.workers) {
		count = len(m.workers)
	}

	for _, worker := range m.workers[len(m.workers)-count:] {
		worker.Stop()
	}
	m.workers = m.workers[:len(m.workers)-count]

	metrics.WorkersActive.Set(float64(len(m.workers)))

	m.logger.Info().
		Int("removed", count).
		Int("remaining_workers", len(m.workers)).
		Msg("Workers removed")
}

// stuckTimeout is how long an address may stay in-flight before it is requeued
func (m *Manager) stuckTimeout() time.Duration {
	timeout := 3 * m.config.PollInterval
	if timeout < time.Minute {
		timeout = time.Minute
	}
	return timeout
}

func (m *Manager) runStuckRecovery() error {
	ticker := time.NewTicker(recoverInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := m.queue.RequeueStuck(m.ctx, m.stuckTimeout()); err != nil {
				m.logger.Error().Err(err).Msg("Failed to requeue stuck addresses")
			}
		}
	}
}

func (m *Manager) runQueueMonitoring() error {
	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return nil
		case <-ticker.C:
			stats := m.GetStats()
			m.logger.Info().Fields(stats).Msg("Queue monitoring stats")
		}
	}
}

// GetStats returns current manager statistics
func (m *Manager) GetStats() map[string]interface{} {
	queueLength, _ := m.queue.GetQueueLength(context.Background())
	inFlight, _ := m.queue.GetInFlight(context.Background())

	m.mutex.RLock()
	activeWorkers := len(m.workers)
	m.mutex.RUnlock()

	stats := map[string]interface{}{
		"active_workers":      activeWorkers,
		"queue_length":        queueLength,
		"in_flight_addresses": len(inFlight),
		"min_workers":         m.config.MinWorkers,
		"max_workers":         m.config.MaxWorkers,
	}
	if m.health != nil {
		stats["healthy_endpoints"] = m.health.GetHealthyEndpointCount()
	}
	return stats
}
