package database

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wnt/mychain-dash/internal/models"
	"github.com/wnt/mychain-dash/internal/parser"
)

func TestConnectWithEmptyDSN(t *testing.T) {
	db, err := Connect("")
	assert.Error(t, err)
	assert.Nil(t, db)
}

func TestConnectWithInvalidCredentials(t *testing.T) {
	if os.Getenv("RUN_DB_TESTS") != "true" {
		t.Skip("Skipping database connection test. Set RUN_DB_TESTS=true to enable.")
	}

	db, err := Connect("host=localhost user=nonexistentuser password=wrongpassword dbname=nonexistentdb port=5432 sslmode=disable")
	assert.Error(t, err)
	assert.Nil(t, db)
}

func TestNewReceipt(t *testing.T) {
	receipt, err := NewReceipt("mychain1buyer", parser.Result{
		Success:         true,
		TxHash:          "ABC",
		TotalUserTokens: "995000",
		TotalPaid:       "100000",
		Segments:        []models.ParsedSegment{{SegmentNumber: 1}, {SegmentNumber: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, "ABC", receipt.TxHash)
	assert.Equal(t, "mychain1buyer", receipt.Address)
	assert.Equal(t, 2, receipt.SegmentCount)

	failed, err := NewReceipt("mychain1buyer", parser.Result{TxHash: "DEF", Error: "out of gas"})
	require.NoError(t, err)
	assert.False(t, failed.Success)
	assert.NotNil(t, failed.Segments)
	assert.Equal(t, 0, failed.SegmentCount)

	_, err = NewReceipt("mychain1buyer", parser.Result{Success: true})
	assert.ErrorIs(t, err, ErrMissingTxHash)
}

func TestJournal(t *testing.T) {
	if os.Getenv("RUN_DB_TESTS") != "true" {
		t.Skip("Skipping database test. Set RUN_DB_TESTS=true to enable.")
	}

	for _, v := range []string{"DB_HOST", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_PORT"} {
		if os.Getenv(v) == "" {
			t.Skipf("Skipping test because %s environment variable is not set", v)
		}
	}

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		os.Getenv("DB_HOST"), os.Getenv("DB_USER"), os.Getenv("DB_PASSWORD"), os.Getenv("DB_NAME"), os.Getenv("DB_PORT"))

	db, err := Connect(dsn)
	require.NoError(t, err)

	journal := NewJournal(db)
	ctx := context.Background()
	address := fmt.Sprintf("mychain1test%d", time.Now().UnixNano())
	hash := fmt.Sprintf("HASH%d", time.Now().UnixNano())

	result := parser.Result{
		Success:         true,
		TxHash:          hash,
		TotalUserTokens: "10",
		Segments:        []models.ParsedSegment{{SegmentNumber: 4, TokensBought: "10"}},
	}
	require.NoError(t, journal.Save(ctx, address, result))
	require.NoError(t, journal.Save(ctx, address, result), "duplicates are ignored")

	receipts, err := journal.ListByAddress(ctx, address, 10)
	require.NoError(t, err)
	require.Len(t, receipts, 1)
	assert.Equal(t, hash, receipts[0].TxHash)
	require.Len(t, receipts[0].Segments, 1)
	assert.EqualValues(t, 4, receipts[0].Segments[0].SegmentNumber)

	require.NoError(t, db.Where("address = ?", address).Delete(&models.PurchaseReceipt{}).Error)
}
