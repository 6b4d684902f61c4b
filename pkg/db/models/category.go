package models

// Category is a row of the metadata registry.
type Category struct {
	Class     string `gorm:"column:class;primaryKey" json:"class"`
	ClassDesc string `gorm:"column:class_desc;not null;uniqueIndex" json:"classDesc"`
}

func (Category) TableName() string { return "metadata" }

// CategorySummary is a row of the derived categories view.
type CategorySummary struct {
	Class           string `gorm:"column:class" json:"class"`
	ClassDesc       string `gorm:"column:class_desc" json:"classDesc"`
	TotalCount      int    `gorm:"column:total_count" json:"totalCount"`
	AvailableCount  int    `gorm:"column:available_count" json:"availableCount"`
	CheckedOutCount int    `gorm:"column:checked_out_count" json:"checkedOutCount"`
}

func (CategorySummary) TableName() string { return "categories" }

// OutingSummary groups checked-out gear by outing.
type OutingSummary struct {
	OutingName string `gorm:"column:outing_name" json:"outingName"`
	ItemCount  int    `gorm:"column:item_count" json:"itemCount"`
}
