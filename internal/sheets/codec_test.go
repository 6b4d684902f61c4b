package sheets

import (
	"reflect"
	"testing"

	"github.com/angelmondragon/gearshed-backend/pkg/db/models"
	"github.com/angelmondragon/gearshed-backend/pkg/enums"
)

func TestColumnLetter(t *testing.T) {
	cases := map[int]string{0: "A", 1: "B", 25: "Z", 26: "AA", 27: "AB", 51: "AZ", 52: "BA", 701: "ZZ", 702: "AAA"}
	for in, want := range cases {
		if got := columnLetter(in); got != want {
			t.Errorf("columnLetter(%d) = %q, want %q", in, got, want)
		}
	}
	if got := columnLetter(-1); got != "" {
		t.Errorf("columnLetter(-1) = %q, want empty", got)
	}
}

func TestQuoteTabAndCellRange(t *testing.T) {
	if got := quoteTab("Master Inventory"); got != "'Master Inventory'" {
		t.Errorf("unexpected quoted tab %s", got)
	}
	if got := quoteTab("Scout's Gear"); got != "'Scout''s Gear'" {
		t.Errorf("apostrophes must double, got %s", got)
	}
	if got := cellRange("Master Inventory", 7, 12); got != "'Master Inventory'!H12" {
		t.Errorf("unexpected range %s", got)
	}
}

func TestHeaderIndexIsCaseAndSpaceInsensitive(t *testing.T) {
	idx := newHeaderIndex([]string{"item id", "ITEM CLASS", " Status ", "ItemID"})
	if col, ok := idx.col(HeaderItemID); !ok || col != 0 {
		t.Fatalf("first duplicate header wins: col=%d ok=%v", col, ok)
	}
	if col, ok := idx.col(HeaderItemClass); !ok || col != 1 {
		t.Fatalf("item class: col=%d ok=%v", col, ok)
	}
	if got := idx.cell([]string{"x", "y", " In shed "}, HeaderStatus); got != "In shed" {
		t.Errorf("cell should trim, got %q", got)
	}
	if got := idx.cell([]string{"x"}, HeaderStatus); got != "" {
		t.Errorf("short rows read as blank, got %q", got)
	}
}

func TestDecodeInventory(t *testing.T) {
	values := [][]string{
		{"Item ID", "Item Class", "Item Desc", "Status", "Condition", "Is Tagged", "In App", "Cost", "Outing Name", "Checked Out By", "Checked Out To"},
		{"TENT-001", "TENT", "Tents", "In shed", "Usable", "TRUE", "", "$1,299.50", "Stale Outing", "QM", "Someone"},
		{"", "TENT", "Tents", "In shed"},
		{"TENT-002", "", "Tents"},
		{},
		{"TENT-003", "TENT", "Tents", "available", "fine", "yes", "false", "-4"},
		{"TENT-004", "TENT", "Tents", "Checked out", "Unknown", "true", "TRUE", "abc", "Fall Camp", "QM Smith", "J. Scout"},
		{"TENT-005", "TENT", "Tents", "Checked out", "", "", "", "", "", ""},
	}

	read, err := decodeInventory(values)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if read.TotalRows != 6 {
		t.Errorf("blank rows are not counted: total %d", read.TotalRows)
	}
	if len(read.Items) != 4 || len(read.Rejected) != 2 {
		t.Fatalf("expected 4 items and 2 rejections, got %d and %d", len(read.Items), len(read.Rejected))
	}
	if want := (RowIssue{Row: 3, Reason: ReasonMissingItemID}); read.Rejected[0] != want {
		t.Errorf("rejected[0] = %+v, want %+v", read.Rejected[0], want)
	}
	if want := (RowIssue{Row: 4, ItemID: "TENT-002", Reason: ReasonMissingItemClass}); read.Rejected[1] != want {
		t.Errorf("rejected[1] = %+v, want %+v", read.Rejected[1], want)
	}

	first := read.Items[0]
	if !first.IsTagged || !first.InApp {
		t.Errorf("TRUE tag and blank in-app default: tagged=%v inApp=%v", first.IsTagged, first.InApp)
	}
	if got := formatCost(first.Cost); got != "1299.50" {
		t.Errorf("cost %s", got)
	}
	if first.OutingName != "" || first.CheckedOutBy != "" || first.CheckedOutTo != "" {
		t.Errorf("checkout fields are cleared when not checked out: %+v", first)
	}

	legacy := read.Items[1]
	switch {
	case legacy.Status != enums.ItemStatusInShed:
		t.Errorf("legacy status %s", legacy.Status)
	case legacy.Condition != enums.ItemConditionUnknown:
		t.Errorf("legacy condition %s", legacy.Condition)
	case legacy.IsTagged:
		t.Error("only TRUE counts as tagged")
	case legacy.InApp:
		t.Error("false in-app must hide the item")
	case legacy.Cost.Valid:
		t.Error("non-positive cost is null")
	}

	out := read.Items[2]
	if out.Status != enums.ItemStatusCheckedOut || out.OutingName != "Fall Camp" || out.CheckedOutBy != "QM Smith" {
		t.Errorf("checked out row decoded as %+v", out)
	}
	if out.Cost.Valid {
		t.Error("unparseable cost is null")
	}
	if got := read.Items[3].Condition; got != enums.ItemConditionUsable {
		t.Errorf("blank condition defaults to Usable, got %s", got)
	}

	warnings := map[string]int{}
	for _, w := range read.Warnings {
		warnings[w.ItemID]++
	}
	for id, why := range map[string]string{
		"TENT-003": "unknown condition",
		"TENT-004": "bad cost",
		"TENT-005": "checked out without outing",
	} {
		if warnings[id] != 1 {
			t.Errorf("%s: expected one %s warning, got %d", id, why, warnings[id])
		}
	}
}

func TestDecodeInventoryRejectsDuplicateIDs(t *testing.T) {
	read, err := decodeInventory([][]string{
		{HeaderItemID, HeaderItemClass, HeaderDescription},
		{"TENT-001", "TENT", "first"},
		{"tent-001", "TENT", "second"},
		{"TENT-002", "TENT", "other"},
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(read.Items) != 2 || read.Items[0].Description != "first" {
		t.Fatalf("first occurrence wins, got %+v", read.Items)
	}
	if len(read.Rejected) != 1 {
		t.Fatalf("expected one rejection, got %d", len(read.Rejected))
	}
	got := read.Rejected[0]
	if got.Row != 3 || got.Reason != "Duplicate Item ID (first seen on row 2)" {
		t.Errorf("unexpected rejection %+v", got)
	}
}

func TestDecodeInventoryRequiresIdentityHeaders(t *testing.T) {
	if _, err := decodeInventory([][]string{{"Item ID", "Status"}}); err == nil {
		t.Fatal("expected error without an Item Class header")
	}
	read, err := decodeInventory(nil)
	if err != nil {
		t.Fatalf("empty sheet: %v", err)
	}
	if len(read.Items) != 0 {
		t.Fatalf("expected no items, got %d", len(read.Items))
	}
}

func TestParseCost(t *testing.T) {
	cases := []struct {
		raw   string
		want  string
		valid bool
		ok    bool
	}{
		{raw: "", valid: false, ok: true},
		{raw: "25", want: "25.00", valid: true, ok: true},
		{raw: "$ 1,000.5", want: "1000.50", valid: true, ok: true},
		{raw: "0", valid: false, ok: true},
		{raw: "n/a", valid: false, ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			got, ok := parseCost(tc.raw)
			if ok != tc.ok || got.Valid != tc.valid {
				t.Fatalf("parseCost(%q) valid=%v ok=%v", tc.raw, got.Valid, ok)
			}
			if tc.valid && formatCost(got) != tc.want {
				t.Fatalf("parseCost(%q) = %s, want %s", tc.raw, formatCost(got), tc.want)
			}
		})
	}
}

func TestEncodeRowFollowsSheetOrder(t *testing.T) {
	headers := []string{"Notes", "item id", "Unknown Column", "Status"}
	row := encodeRow(headers, map[string]string{
		HeaderItemID: "TENT-001",
		HeaderStatus: "In shed",
		HeaderNotes:  "zipper sticks",
	})
	want := []string{"zipper sticks", "TENT-001", "", "In shed"}
	if !reflect.DeepEqual(row, want) {
		t.Fatalf("encodeRow = %q, want %q", row, want)
	}
}

func TestEditPatchExcludesIdentityColumns(t *testing.T) {
	item := decodeOne(t, []string{"TENT-001", "TENT"})
	patch := EditPatch(item)
	if patch.ItemID != "TENT-001" {
		t.Fatalf("patch targets %s", patch.ItemID)
	}
	for _, header := range []string{HeaderItemID, HeaderItemClass, HeaderItemNum} {
		if _, ok := patch.Values[header]; ok {
			t.Errorf("identity column %s must not be rewritten", header)
		}
	}
	if _, ok := patch.Values[HeaderStatus]; !ok {
		t.Error("status is editable")
	}
	if got := patch.Values[HeaderInApp]; got != "TRUE" {
		t.Errorf("in app encoded as %q", got)
	}
}

func TestDecodeCategories(t *testing.T) {
	cats, err := decodeCategories([][]string{
		{"Class Desc", "Class"},
		{"Tents", "TENT"},
		{"orphan", ""},
		{"Stoves", "STOVE"},
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(cats) != 2 || cats[0].Class != "TENT" || cats[0].ClassDesc != "Tents" {
		t.Fatalf("unexpected categories %+v", cats)
	}
	if _, err := decodeCategories([][]string{{"Class"}}); err == nil {
		t.Fatal("expected error without a Class Desc header")
	}
}

func decodeOne(t *testing.T, row []string) models.Item {
	t.Helper()
	read, err := decodeInventory([][]string{{HeaderItemID, HeaderItemClass}, row})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(read.Items) != 1 {
		t.Fatalf("expected one item, got %d", len(read.Items))
	}
	return read.Items[0]
}
