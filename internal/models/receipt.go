package models

import "time"

// PurchaseReceipt is a parsed MainCoin purchase kept in the purchase journal
type PurchaseReceipt struct {
	ID                 uint            `gorm:"primaryKey" json:"-"`
	TxHash             string          `gorm:"uniqueIndex;size:64;not null" json:"tx_hash"`
	Address            string          `gorm:"index;size:128" json:"address"`
	Success            bool            `json:"success"`
	Error              string          `json:"error,omitempty"`
	TotalUserTokens    string          `json:"total_user_tokens"`
	TotalDevAllocation string          `json:"total_dev_allocation"`
	TotalPaid          string          `json:"total_paid"`
	SegmentCount       int             `json:"segment_count"`
	Segments           []ParsedSegment `gorm:"serializer:json" json:"segments"`
	CreatedAt          time.Time       `gorm:"index" json:"created_at"`
}

// TableName pins the journal table name
func (PurchaseReceipt) TableName() string {
	return "purchase_receipts"
}
