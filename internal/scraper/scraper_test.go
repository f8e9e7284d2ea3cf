package scraper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wnt/mychain-dash/internal/models"
	"github.com/wnt/mychain-dash/internal/parser"
)

type stubChain struct {
	history    *models.UserHistory
	historyErr error
	txs        map[string]*models.TxResult
}

func (c *stubChain) UserHistory(context.Context, string) (*models.UserHistory, error) {
	return c.history, c.historyErr
}

func (c *stubChain) TxByHash(_ context.Context, hash string) (*models.TxResult, error) {
	tx, ok := c.txs[hash]
	if !ok {
		return nil, errors.New("not found")
	}
	return tx, nil
}

type memJournal struct {
	mu    sync.Mutex
	saved map[string]parser.Result
}

func (j *memJournal) Save(_ context.Context, _ string, result parser.Result) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.saved == nil {
		j.saved = make(map[string]parser.Result)
	}
	j.saved[result.TxHash] = result
	return nil
}

func TestNewScraper(t *testing.T) {
	_, err := NewScraper(nil, nil, &memJournal{}, nil, zerolog.Nop())
	assert.Error(t, err)

	_, err = NewScraper(&stubChain{}, nil, nil, nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("BACKFILL_MAX_CONCURRENT", "")
	t.Setenv("BACKFILL_TIMEOUT", "")
	config := loadConfigFromEnv()
	assert.Equal(t, DefaultMaxConcurrent, config.MaxConcurrent)
	assert.Equal(t, DefaultRequestTimeout, config.RequestTimeout)

	t.Setenv("BACKFILL_MAX_CONCURRENT", "10")
	t.Setenv("BACKFILL_TIMEOUT", "60s")
	config = loadConfigFromEnv()
	assert.Equal(t, 10, config.MaxConcurrent)
	assert.Equal(t, 60*time.Second, config.RequestTimeout)

	t.Setenv("BACKFILL_MAX_CONCURRENT", "-1")
	t.Setenv("BACKFILL_TIMEOUT", "soon")
	config = loadConfigFromEnv()
	assert.Equal(t, DefaultMaxConcurrent, config.MaxConcurrent)
	assert.Equal(t, DefaultRequestTimeout, config.RequestTimeout)
}

func TestPurchaseHashes(t *testing.T) {
	hashes := purchaseHashes([]models.PurchaseRecord{
		{TxHash: "A"}, {TxHash: "A"}, {TxHash: ""}, {TxHash: "B"},
	})
	assert.Equal(t, []string{"A", "B"}, hashes)
}

func TestRun(t *testing.T) {
	buy := models.Event{Type: parser.EventBuyMaincoinWithDev, Attributes: []models.EventAttribute{
		{Key: parser.AttrUserTokens, Value: "995000"},
		{Key: parser.AttrAmountSpent, Value: "100000"},
	}}
	chain := &stubChain{
		history: &models.UserHistory{Purchases: []models.PurchaseRecord{
			{TxHash: "OK", SegmentNumber: 1},
			{TxHash: "OK", SegmentNumber: 2},
			{TxHash: "REJECTED"},
			{TxHash: "MISSING"},
		}},
		txs: map[string]*models.TxResult{
			"OK":       {TxHash: "OK", Logs: []models.TxLog{{Events: []models.Event{buy}}}},
			"REJECTED": {Code: 5, RawLog: "insufficient funds"},
		},
	}
	journal := &memJournal{}

	s, err := NewScraper(chain, nil, journal, nil, zerolog.Nop())
	require.NoError(t, err)

	summary, err := s.Run(context.Background(), "mychain1addr")
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Transactions)
	assert.Equal(t, 2, summary.Saved)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, []string{"MISSING"}, summary.FailedHashes)

	require.Contains(t, journal.saved, "OK")
	assert.Equal(t, "995000", journal.saved["OK"].TotalUserTokens)
	require.Contains(t, journal.saved, "REJECTED", "rejected purchases are journaled with their raw log")
	assert.Equal(t, "insufficient funds", journal.saved["REJECTED"].Error)
}

func TestRunErrors(t *testing.T) {
	s, err := NewScraper(&stubChain{historyErr: errors.New("down")}, nil, &memJournal{}, nil, zerolog.Nop())
	require.NoError(t, err)

	_, err = s.Run(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingAddress)

	_, err = s.Run(context.Background(), "mychain1addr")
	assert.ErrorContains(t, err, "down")
}
