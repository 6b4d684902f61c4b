package enums

import "testing"

func TestNormalizeItemStatus(t *testing.T) {
	tests := []struct {
		in     string
		want   ItemStatus
		wantOK bool
	}{
		{in: "", want: ItemStatusInShed, wantOK: true},
		{in: "In shed", want: ItemStatusInShed, wantOK: true},
		{in: "  checked OUT ", want: ItemStatusCheckedOut, wantOK: true},
		{in: "Available", want: ItemStatusInShed, wantOK: true},
		{in: "Not available", want: ItemStatusCheckedOut, wantOK: true},
		{in: "removed from inventory", want: ItemStatusRemoved, wantOK: true},
		{in: "on the moon", want: ItemStatusInShed, wantOK: false},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := NormalizeItemStatus(tc.in)
			if got != tc.want || ok != tc.wantOK {
				t.Fatalf("NormalizeItemStatus(%q) = %q,%v want %q,%v", tc.in, got, ok, tc.want, tc.wantOK)
			}
		})
	}
}

func TestNormalizeItemCondition(t *testing.T) {
	if got, ok := NormalizeItemCondition(""); got != ItemConditionUsable || !ok {
		t.Fatalf("empty condition should default to Usable, got %q", got)
	}
	if got, ok := NormalizeItemCondition("not USABLE"); got != ItemConditionNotUsable || !ok {
		t.Fatalf("unexpected %q", got)
	}
	if got, ok := NormalizeItemCondition("soggy"); got != ItemConditionUnknown || ok {
		t.Fatalf("unrecognised condition should be Unknown/false, got %q/%v", got, ok)
	}
}

func TestParseReportedCondition(t *testing.T) {
	got, err := ParseReportedCondition("missing")
	if err != nil || !got.IsMissing() {
		t.Fatalf("expected Missing, got %q err %v", got, err)
	}
	got, err = ParseReportedCondition("")
	if err != nil || got != ReportedCondition(ItemConditionUsable) {
		t.Fatalf("expected Usable default, got %q err %v", got, err)
	}
	if _, err := ParseReportedCondition("broken-ish"); err == nil {
		t.Fatal("expected error for unknown condition")
	}
}

func TestItemConditionCanCheckOut(t *testing.T) {
	if !ItemConditionUsable.CanCheckOut() || !ItemConditionUnknown.CanCheckOut() {
		t.Fatal("usable and unknown gear can leave the shed")
	}
	if ItemConditionNotUsable.CanCheckOut() {
		t.Fatal("not usable gear must stay")
	}
}
