package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/gearshed-backend/pkg/enums"
)

// Item is one physical gear unit mirrored from the inventory sheet.
type Item struct {
	ItemID       string              `gorm:"column:item_id;primaryKey" json:"itemId"`
	ItemClass    string              `gorm:"column:item_class;not null;index" json:"itemClass"`
	ItemDesc     string              `gorm:"column:item_desc" json:"itemDesc"`
	ItemNum      string              `gorm:"column:item_num" json:"itemNum"`
	Description  string              `gorm:"column:description" json:"description"`
	IsTagged     bool                `gorm:"column:is_tagged;not null" json:"isTagged"`
	Condition    enums.ItemCondition `gorm:"column:condition;not null" json:"condition"`
	Status       enums.ItemStatus    `gorm:"column:status;not null;index" json:"status"`
	PurchaseDate string              `gorm:"column:purchase_date" json:"purchaseDate"`
	Cost         decimal.NullDecimal `gorm:"column:cost" json:"cost"`
	CheckedOutTo string              `gorm:"column:checked_out_to" json:"checkedOutTo"`
	CheckedOutBy string              `gorm:"column:checked_out_by" json:"checkedOutBy"`
	CheckOutDate string              `gorm:"column:check_out_date" json:"checkOutDate"`
	OutingName   string              `gorm:"column:outing_name;index" json:"outingName"`
	Notes        string              `gorm:"column:notes" json:"notes"`
	InApp        bool                `gorm:"column:in_app;not null" json:"inApp"`
	LastUpdated  time.Time           `gorm:"column:last_updated" json:"lastUpdated"`
}

func (Item) TableName() string { return "items" }

// IsCheckedOut reports whether the item is currently out on an outing.
func (i Item) IsCheckedOut() bool {
	return i.Status == enums.ItemStatusCheckedOut
}

// IsAvailable reports whether the item can be checked out right now.
func (i Item) IsAvailable() bool {
	return i.Status == enums.ItemStatusInShed && i.Condition.CanCheckOut()
}

// ClearCheckout drops the borrower attributes that only apply while the item
// is checked out.
func (i *Item) ClearCheckout() {
	i.CheckedOutTo = ""
	i.CheckedOutBy = ""
	i.CheckOutDate = ""
	i.OutingName = ""
}
