package sheets

import (
	"strconv"
	"strings"
	"unicode"
)

// Inventory tab headers.
const (
	HeaderItemClass    = "Item Class"
	HeaderItemDesc     = "Item Desc"
	HeaderItemNum      = "Item Num"
	HeaderItemID       = "Item ID"
	HeaderDescription  = "Description"
	HeaderIsTagged     = "Is Tagged"
	HeaderCondition    = "Condition"
	HeaderStatus       = "Status"
	HeaderPurchaseDate = "Purchase Date"
	HeaderCost         = "Cost"
	HeaderCheckedOutTo = "Checked Out To"
	HeaderCheckedOutBy = "Checked Out By"
	HeaderCheckOutDate = "Check Out Date"
	HeaderOutingName   = "Outing Name"
	HeaderNotes        = "Notes"
	HeaderInApp        = "In App"
)

// Transactions tab headers.
const (
	HeaderTransactionID = "Transaction ID"
	HeaderTimestamp     = "Timestamp"
	HeaderAction        = "Action"
	HeaderProcessedBy   = "Processed By"
)

// Metadata tab headers.
const (
	HeaderClass     = "Class"
	HeaderClassDesc = "Class Desc"
)

// InventoryHeaders is the column order used when a tab has to be created.
var InventoryHeaders = []string{
	HeaderItemClass, HeaderItemDesc, HeaderItemNum, HeaderItemID, HeaderDescription,
	HeaderIsTagged, HeaderCondition, HeaderStatus, HeaderPurchaseDate, HeaderCost,
	HeaderCheckedOutTo, HeaderCheckedOutBy, HeaderCheckOutDate, HeaderOutingName,
	HeaderNotes, HeaderInApp,
}

var TransactionHeaders = []string{
	HeaderTransactionID, HeaderTimestamp, HeaderAction, HeaderItemID,
	HeaderOutingName, HeaderCondition, HeaderProcessedBy, HeaderNotes,
}

var MetadataHeaders = []string{HeaderClass, HeaderClassDesc}

// headerIndex maps a normalized header to its 0-based column.
type headerIndex map[string]int

func newHeaderIndex(row []string) headerIndex {
	idx := make(headerIndex, len(row))
	for i, h := range row {
		key := normalizeHeader(h)
		if key == "" {
			continue
		}
		if _, dup := idx[key]; dup {
			continue
		}
		idx[key] = i
	}
	return idx
}

func (h headerIndex) col(header string) (int, bool) {
	i, ok := h[normalizeHeader(header)]
	return i, ok
}

func (h headerIndex) has(header string) bool {
	_, ok := h.col(header)
	return ok
}

func (h headerIndex) cell(row []string, header string) string {
	i, ok := h.col(header)
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// normalizeHeader folds case and drops spaces and punctuation, so "Item ID",
// "item id" and "ItemID" are the same column.
func normalizeHeader(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// columnLetter converts a 0-based column index to A1 notation.
func columnLetter(i int) string {
	if i < 0 {
		return ""
	}
	var out []byte
	for n := i + 1; n > 0; n = (n - 1) / 26 {
		out = append([]byte{byte('A' + (n-1)%26)}, out...)
	}
	return string(out)
}

func quoteTab(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func cellRange(tab string, col, sheetRow int) string {
	return quoteTab(tab) + "!" + columnLetter(col) + strconv.Itoa(sheetRow)
}

// encodeRow lays values out in header order.
func encodeRow(headers []string, values map[string]string) []string {
	byKey := make(map[string]string, len(values))
	for k, v := range values {
		byKey[normalizeHeader(k)] = v
	}
	row := make([]string, len(headers))
	for i, h := range headers {
		row[i] = byKey[normalizeHeader(h)]
	}
	return row
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
