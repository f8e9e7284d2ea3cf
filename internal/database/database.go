package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wnt/mychain-dash/internal/metrics"
	"github.com/wnt/mychain-dash/internal/models"
	"github.com/wnt/mychain-dash/internal/parser"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// ErrMissingTxHash is returned when a purchase result has no transaction hash
var ErrMissingTxHash = errors.New("purchase result has no transaction hash")

// Connect opens the purchase journal database and migrates its schema
func Connect(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("failed to connect to database: empty DSN")
	}

	config := &gorm.Config{
		Logger:      logger.Default.LogMode(logger.Silent),
		PrepareStmt: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(postgres.Open(dsn), config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}

	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := migrateSchema(db); err != nil {
		return nil, err
	}

	return db, nil
}

func migrateSchema(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.PurchaseReceipt{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	db.Exec("CREATE INDEX IF NOT EXISTS idx_purchase_receipts_address_created ON purchase_receipts(address, created_at DESC)")

	return nil
}

// Journal records parsed purchase results
type Journal struct {
	db *gorm.DB
}

// NewJournal creates a journal over an open database
func NewJournal(db *gorm.DB) *Journal {
	return &Journal{db: db}
}

// NewReceipt converts a parse result into a journal row
func NewReceipt(address string, result parser.Result) (*models.PurchaseReceipt, error) {
	if result.TxHash == "" {
		return nil, ErrMissingTxHash
	}

	segments := result.Segments
	if segments == nil {
		segments = []models.ParsedSegment{}
	}

	return &models.PurchaseReceipt{
		TxHash:             result.TxHash,
		Address:            address,
		Success:            result.Success,
		Error:              result.Error,
		TotalUserTokens:    result.TotalUserTokens,
		TotalDevAllocation: result.TotalDevAllocation,
		TotalPaid:          result.TotalPaid,
		SegmentCount:       len(segments),
		Segments:           segments,
	}, nil
}

// Save stores a purchase result. Saving the same transaction twice keeps the
// first row.
func (j *Journal) Save(ctx context.Context, address string, result parser.Result) error {
	receipt, err := NewReceipt(address, result)
	if err != nil {
		return err
	}

	err = j.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "tx_hash"}}, DoNothing: true}).
		Create(receipt).Error
	if err != nil {
		metrics.RecordDatabaseOperation("insert", "failed")
		return fmt.Errorf("failed to save purchase %s: %w", result.TxHash, err)
	}

	metrics.RecordDatabaseOperation("insert", "success")
	return nil
}

// ListByAddress returns the newest receipts of an address, at most limit
func (j *Journal) ListByAddress(ctx context.Context, address string, limit int) ([]models.PurchaseReceipt, error) {
	if limit <= 0 {
		limit = 50
	}

	var receipts []models.PurchaseReceipt
	err := j.db.WithContext(ctx).
		Where("address = ?", address).
		Order("created_at DESC").
		Limit(limit).
		Find(&receipts).Error
	if err != nil {
		metrics.RecordDatabaseOperation("select", "failed")
		return nil, fmt.Errorf("failed to list purchases of %s: %w", address, err)
	}

	metrics.RecordDatabaseOperation("select", "success")
	return receipts, nil
}
