// Package scraper rebuilds the purchase journal of an address from the
// chain's recorded purchase history.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/wnt/mychain-dash/internal/emitters"
	"github.com/wnt/mychain-dash/internal/models"
	"github.com/wnt/mychain-dash/internal/parser"
	"github.com/wnt/mychain-dash/internal/utils"
	"golang.org/x/sync/errgroup"
)

// Default configuration values
const (
	DefaultMaxConcurrent  = 5
	DefaultRequestTimeout = 2 * time.Minute
)

// ErrMissingAddress is returned when no address is given
var ErrMissingAddress = errors.New("address is not set")

// Chain is the part of the chain client the scraper reads from
type Chain interface {
	UserHistory(ctx context.Context, address string) (*models.UserHistory, error)
	TxByHash(ctx context.Context, hash string) (*models.TxResult, error)
}

// Journal stores parsed purchases
type Journal interface {
	Save(ctx context.Context, address string, result parser.Result) error
}

// Scraper backfills purchase receipts
type Scraper struct {
	chain          Chain
	parser         *parser.Parser
	journal        Journal
	emitter        emitters.Emitter
	logger         zerolog.Logger
	maxConcurrent  int
	requestTimeout time.Duration
}

// Config holds the configuration for the scraper
type Config struct {
	MaxConcurrent  int
	RequestTimeout time.Duration
}

// Summary reports the outcome of one backfill run
type Summary struct {
	Address      string   `json:"address"`
	Transactions int      `json:"transactions"`
	Saved        int      `json:"saved"`
	Failed       int      `json:"failed"`
	FailedHashes []string `json:"failed_hashes,omitempty"`
}

// NewScraper creates a scraper. The emitter may be nil.
func NewScraper(chain Chain, p *parser.Parser, journal Journal, emitter emitters.Emitter, logger zerolog.Logger) (*Scraper, error) {
	if chain == nil {
		return nil, errors.New("chain client is required")
	}
	if journal == nil {
		return nil, errors.New("purchase journal is required")
	}
	if p == nil {
		p = parser.New(logger)
	}
	if emitter == nil {
		emitter = emitters.NopEmitter{}
	}

	config := loadConfigFromEnv()

	return &Scraper{
		chain:          chain,
		parser:         p,
		journal:        journal,
		emitter:        emitter,
		logger:         logger.With().Str("component", "scraper").Logger(),
		maxConcurrent:  config.MaxConcurrent,
		requestTimeout: config.RequestTimeout,
	}, nil
}

// loadConfigFromEnv loads configuration from environment variables
func loadConfigFromEnv() Config {
	config := Config{
		MaxConcurrent:  DefaultMaxConcurrent,
		RequestTimeout: DefaultRequestTimeout,
	}

	if maxConcurrentStr := os.Getenv("BACKFILL_MAX_CONCURRENT"); maxConcurrentStr != "" {
		if val, err := strconv.Atoi(maxConcurrentStr); err == nil && val > 0 {
			config.MaxConcurrent = val
		}
	}

	if timeoutStr := os.Getenv("BACKFILL_TIMEOUT"); timeoutStr != "" {
		if val, err := time.ParseDuration(timeoutStr); err == nil && val > 0 {
			config.RequestTimeout = val
		}
	}

	return config
}

// Run backfills address within the configured timeout
func (s *Scraper) Run(ctx context.Context, address string) (*Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	return s.RunWithContext(ctx, address)
}

// RunWithContext fetches every purchase transaction of address, parses it and
// saves it to the journal. A transaction that cannot be fetched or parsed is
// counted as failed and does not stop the run.
func (s *Scraper) RunWithContext(ctx context.Context, address string) (*Summary, error) {
	if address == "" {
		return nil, ErrMissingAddress
	}

	history, err := s.chain.UserHistory(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch purchase history: %w", err)
	}

	hashes := purchaseHashes(history.Purchases)
	summary := &Summary{Address: address, Transactions: len(hashes)}
	s.logger.Info().Str("address", address).Int("transactions", len(hashes)).Msg("Backfilling purchases")

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)

	for _, hash := range hashes {
		g.Go(func() error {
			err := s.backfillTx(gctx, address, hash)
			if gctx.Err() != nil {
				return gctx.Err()
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.Warn().Err(err).Str("tx_hash", hash).Msg("Failed to backfill purchase")
				summary.Failed++
				summary.FailedHashes = append(summary.FailedHashes, hash)
				return nil
			}
			summary.Saved++
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return summary, err
	}

	s.logger.Info().
		Str("address", address).
		Int("saved", summary.Saved).
		Int("failed", summary.Failed).
		Msg("Backfill completed")

	return summary, nil
}

func (s *Scraper) backfillTx(ctx context.Context, address, hash string) error {
	tx, err := s.chain.TxByHash(ctx, hash)
	if err != nil {
		return fmt.Errorf("fetch transaction: %w", err)
	}

	result := s.parser.ParsePurchase(tx)
	if result.TxHash == "" {
		result.TxHash = hash
	}
	if errors.Is(result.Err, parser.ErrMalformed) {
		return result.Err
	}

	if err := s.journal.Save(ctx, address, result); err != nil {
		return err
	}
	if err := s.emitter.EmitPurchase(ctx, address, result); err != nil {
		s.logger.Warn().Err(err).Str("tx_hash", hash).Msg("Failed to emit purchase event")
	}
	return nil
}

// purchaseHashes returns the distinct transaction hashes of purchases in
// history order. One purchase can span several segment records.
func purchaseHashes(purchases []models.PurchaseRecord) []string {
	hashes := utils.Map(purchases, func(p models.PurchaseRecord) string { return p.TxHash })
	return utils.Dedupe(utils.Filter(hashes, func(h string) bool { return h != "" }))
}
