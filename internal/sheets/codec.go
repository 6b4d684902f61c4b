package sheets

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/gearshed-backend/pkg/db/models"
	"github.com/angelmondragon/gearshed-backend/pkg/enums"
)

const checkOutDateLayout = "2006-01-02"

// decodeInventory turns the raw inventory tab (header row first) into items.
// Rows without an Item ID or Item Class are rejected, not fatal, as are
// repeats of an id already seen (ids compare case-insensitively).
func decodeInventory(values [][]string) (*InventoryRead, error) {
	read := &InventoryRead{}
	if len(values) == 0 {
		return read, nil
	}
	idx := newHeaderIndex(values[0])
	for _, required := range []string{HeaderItemID, HeaderItemClass} {
		if !idx.has(required) {
			return nil, fmt.Errorf("inventory header %q not found", required)
		}
	}

	seen := map[string]int{}
	for i, row := range values[1:] {
		if isBlankRow(row) {
			continue
		}
		read.TotalRows++
		sheetRow := i + 2
		item, warnings, rejected := decodeItem(row, idx, sheetRow)
		if rejected != nil {
			read.Rejected = append(read.Rejected, *rejected)
			continue
		}
		key := strings.ToUpper(item.ItemID)
		if first, dup := seen[key]; dup {
			read.Rejected = append(read.Rejected, RowIssue{
				Row:    sheetRow,
				ItemID: item.ItemID,
				Reason: fmt.Sprintf("%s (first seen on row %d)", ReasonDuplicateItemID, first),
			})
			continue
		}
		seen[key] = sheetRow
		read.Warnings = append(read.Warnings, warnings...)
		read.Items = append(read.Items, item)
	}
	return read, nil
}

func decodeItem(row []string, idx headerIndex, sheetRow int) (models.Item, []RowIssue, *RowIssue) {
	var warnings []RowIssue
	itemID := idx.cell(row, HeaderItemID)
	if itemID == "" {
		return models.Item{}, nil, &RowIssue{Row: sheetRow, Reason: ReasonMissingItemID}
	}
	itemClass := idx.cell(row, HeaderItemClass)
	if itemClass == "" {
		return models.Item{}, nil, &RowIssue{Row: sheetRow, ItemID: itemID, Reason: ReasonMissingItemClass}
	}
	warn := func(format string, args ...any) {
		warnings = append(warnings, RowIssue{Row: sheetRow, ItemID: itemID, Reason: fmt.Sprintf(format, args...)})
	}

	item := models.Item{
		ItemID:       itemID,
		ItemClass:    itemClass,
		ItemDesc:     idx.cell(row, HeaderItemDesc),
		ItemNum:      idx.cell(row, HeaderItemNum),
		Description:  idx.cell(row, HeaderDescription),
		IsTagged:     strings.EqualFold(idx.cell(row, HeaderIsTagged), "TRUE"),
		PurchaseDate: idx.cell(row, HeaderPurchaseDate),
		CheckedOutTo: idx.cell(row, HeaderCheckedOutTo),
		CheckedOutBy: idx.cell(row, HeaderCheckedOutBy),
		CheckOutDate: idx.cell(row, HeaderCheckOutDate),
		OutingName:   idx.cell(row, HeaderOutingName),
		Notes:        idx.cell(row, HeaderNotes),
		InApp:        !strings.EqualFold(idx.cell(row, HeaderInApp), "FALSE"),
		LastUpdated:  time.Now().UTC(),
	}

	rawCondition := idx.cell(row, HeaderCondition)
	condition, ok := enums.NormalizeItemCondition(rawCondition)
	if !ok {
		warn("unknown condition %q, using %s", rawCondition, condition)
	}
	item.Condition = condition

	rawStatus := idx.cell(row, HeaderStatus)
	status, ok := enums.NormalizeItemStatus(rawStatus)
	if !ok {
		warn("unknown status %q, using %s", rawStatus, status)
	}
	item.Status = status

	rawCost := idx.cell(row, HeaderCost)
	cost, ok := parseCost(rawCost)
	if !ok {
		warn("invalid cost %q ignored", rawCost)
	}
	item.Cost = cost

	if item.Status != enums.ItemStatusCheckedOut {
		item.ClearCheckout()
	} else if item.OutingName == "" || item.CheckedOutBy == "" {
		warn("checked out without outing name or processor")
	}
	return item, warnings, nil
}

// parseCost accepts "$1,299.00" style input. Blank and non-positive values
// are stored as null; ok is false only for unparseable text.
func parseCost(raw string) (decimal.NullDecimal, bool) {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(raw)
	if cleaned == "" {
		return decimal.NullDecimal{}, true
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.NullDecimal{}, false
	}
	if !d.IsPositive() {
		return decimal.NullDecimal{}, true
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}, true
}

func formatCost(cost decimal.NullDecimal) string {
	if !cost.Valid {
		return ""
	}
	return cost.Decimal.StringFixed(2)
}

func formatBool(v bool) string {
	if v {
		return "TRUE"
	}
	return "FALSE"
}

// ItemValues renders every inventory column for item.
func ItemValues(item models.Item) map[string]string {
	return map[string]string{
		HeaderItemClass:    item.ItemClass,
		HeaderItemDesc:     item.ItemDesc,
		HeaderItemNum:      item.ItemNum,
		HeaderItemID:       item.ItemID,
		HeaderDescription:  item.Description,
		HeaderIsTagged:     formatBool(item.IsTagged),
		HeaderCondition:    item.Condition.String(),
		HeaderStatus:       item.Status.String(),
		HeaderPurchaseDate: item.PurchaseDate,
		HeaderCost:         formatCost(item.Cost),
		HeaderCheckedOutTo: item.CheckedOutTo,
		HeaderCheckedOutBy: item.CheckedOutBy,
		HeaderCheckOutDate: item.CheckOutDate,
		HeaderOutingName:   item.OutingName,
		HeaderNotes:        item.Notes,
		HeaderInApp:        formatBool(item.InApp),
	}
}

// StatusPatch carries the columns a checkout or checkin changes.
func StatusPatch(item models.Item) ItemPatch {
	return ItemPatch{
		ItemID: item.ItemID,
		Values: map[string]string{
			HeaderCondition:    item.Condition.String(),
			HeaderStatus:       item.Status.String(),
			HeaderCheckedOutTo: item.CheckedOutTo,
			HeaderCheckedOutBy: item.CheckedOutBy,
			HeaderCheckOutDate: item.CheckOutDate,
			HeaderOutingName:   item.OutingName,
		},
	}
}

// EditPatch carries every column an admin edit may change. Identity columns
// (Item ID, Item Class, Item Num) are never rewritten.
func EditPatch(item models.Item) ItemPatch {
	values := ItemValues(item)
	delete(values, HeaderItemID)
	delete(values, HeaderItemClass)
	delete(values, HeaderItemNum)
	return ItemPatch{ItemID: item.ItemID, Values: values}
}

// CheckOutDate formats t the way the inventory tab stores checkout dates.
func CheckOutDate(t time.Time) string {
	return t.Format(checkOutDateLayout)
}

func transactionValues(tx models.Transaction) map[string]string {
	return map[string]string{
		HeaderTransactionID: tx.TransactionID,
		HeaderTimestamp:     tx.Timestamp.UTC().Format(time.RFC3339),
		HeaderAction:        tx.Action.String(),
		HeaderItemID:        tx.ItemID,
		HeaderOutingName:    tx.OutingName,
		HeaderCondition:     tx.Condition,
		HeaderProcessedBy:   tx.ProcessedBy,
		HeaderNotes:         tx.Notes,
	}
}

func categoryValues(c models.Category) map[string]string {
	return map[string]string{
		HeaderClass:     c.Class,
		HeaderClassDesc: c.ClassDesc,
	}
}

func decodeCategories(values [][]string) ([]models.Category, error) {
	if len(values) == 0 {
		return nil, nil
	}
	idx := newHeaderIndex(values[0])
	for _, required := range MetadataHeaders {
		if !idx.has(required) {
			return nil, fmt.Errorf("metadata header %q not found", required)
		}
	}
	var out []models.Category
	for _, row := range values[1:] {
		class := idx.cell(row, HeaderClass)
		if class == "" {
			continue
		}
		out = append(out, models.Category{Class: class, ClassDesc: idx.cell(row, HeaderClassDesc)})
	}
	return out, nil
}

// findRow returns the 1-based sheet row whose key column equals key, or 0.
func findRow(values [][]string, idx headerIndex, header, key string) int {
	col, ok := idx.col(header)
	if !ok {
		return 0
	}
	for i, row := range values[1:] {
		if col < len(row) && strings.EqualFold(strings.TrimSpace(row[col]), key) {
			return i + 2
		}
	}
	return 0
}
