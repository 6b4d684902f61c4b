package models

import (
	"time"

	"github.com/angelmondragon/gearshed-backend/pkg/enums"
)

// Transaction is an immutable checkout or check-in record.
type Transaction struct {
	TransactionID string                  `gorm:"column:transaction_id;primaryKey" json:"transactionId"`
	Timestamp     time.Time               `gorm:"column:timestamp;not null;index" json:"timestamp"`
	Action        enums.TransactionAction `gorm:"column:action;not null" json:"action"`
	ItemID        string                  `gorm:"column:item_id;not null;index" json:"itemId"`
	OutingName    string                  `gorm:"column:outing_name" json:"outingName"`
	Condition     string                  `gorm:"column:condition" json:"condition"`
	ProcessedBy   string                  `gorm:"column:processed_by" json:"processedBy"`
	Notes         string                  `gorm:"column:notes" json:"notes"`

	// SheetLoggedAt is set once the row is on the transactions tab.
	// ReplicatedAt is set once the inventory row reflects it too; until
	// then a full sync keeps the local item row.
	SheetLoggedAt *time.Time `gorm:"column:sheet_logged_at" json:"-"`
	ReplicatedAt  *time.Time `gorm:"column:replicated_at" json:"-"`
}

// Pending reports whether the transaction still has to reach the sheet.
func (t Transaction) Pending() bool { return t.ReplicatedAt == nil }

func (Transaction) TableName() string { return "transactions" }
