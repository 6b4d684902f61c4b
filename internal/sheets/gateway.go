// Package sheets is the gateway to the Google Sheets workbook that is the
// system of record for inventory, transactions and categories.
package sheets

import (
	"context"

	"github.com/angelmondragon/gearshed-backend/pkg/db/models"
)

// Gateway abstracts every read and write against the workbook.
type Gateway interface {
	ListInventoryRows(ctx context.Context) (*InventoryRead, error)
	AddInventoryRow(ctx context.Context, item models.Item) error
	UpdateInventoryRow(ctx context.Context, patch ItemPatch) error
	UpdateInventoryRows(ctx context.Context, patches ...ItemPatch) error
	AppendTransactionRows(ctx context.Context, txs ...models.Transaction) error
	ListCategories(ctx context.Context) ([]models.Category, error)
	AddCategory(ctx context.Context, category models.Category) error
	UpdateCategory(ctx context.Context, class string, category models.Category) error
}

// Row rejection reasons.
const (
	ReasonMissingItemID    = "Missing Item ID"
	ReasonMissingItemClass = "Missing Item Class"
	ReasonDuplicateItemID  = "Duplicate Item ID"
)

// RowIssue points at one sheet row. Row is the 1-based sheet row number.
type RowIssue struct {
	Row    int    `json:"row"`
	ItemID string `json:"itemId,omitempty"`
	Reason string `json:"reason"`
}

// InventoryRead is the result of reading the inventory tab. Rejected rows are
// excluded from Items.
type InventoryRead struct {
	Items     []models.Item
	Rejected  []RowIssue
	Warnings  []RowIssue
	TotalRows int
}

// ItemPatch sets cells on the row holding ItemID. Values is keyed by
// inventory header name; headers missing from the sheet are skipped.
type ItemPatch struct {
	ItemID string
	Values map[string]string
}
