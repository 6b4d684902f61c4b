package enums

import (
	"fmt"
	"strings"
)

// ItemStatus is the lifecycle state of a physical gear unit.
type ItemStatus string

const (
	ItemStatusInShed       ItemStatus = "In shed"
	ItemStatusCheckedOut   ItemStatus = "Checked out"
	ItemStatusMissing      ItemStatus = "Missing"
	ItemStatusOutForRepair ItemStatus = "Out for repair"
	ItemStatusRemoved      ItemStatus = "Removed from inventory"
)

var validItemStatuses = []ItemStatus{
	ItemStatusInShed,
	ItemStatusCheckedOut,
	ItemStatusMissing,
	ItemStatusOutForRepair,
	ItemStatusRemoved,
}

// legacyItemStatuses maps values written by older versions of the sheet.
var legacyItemStatuses = map[string]ItemStatus{
	"available":     ItemStatusInShed,
	"not available": ItemStatusCheckedOut,
	"checked-out":   ItemStatusCheckedOut,
	"removed":       ItemStatusRemoved,
}

// String implements fmt.Stringer.
func (s ItemStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ItemStatus.
func (s ItemStatus) IsValid() bool {
	for _, candidate := range validItemStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (s ItemStatus) IsTerminal() bool {
	return s == ItemStatusRemoved
}

// ParseItemStatus converts raw input into an ItemStatus.
func ParseItemStatus(value string) (ItemStatus, error) {
	for _, candidate := range validItemStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item status %q", value)
}

// NormalizeItemStatus maps sheet input, including legacy aliases, onto a
// canonical status. Empty input defaults to In shed. ok is false when the
// value was not recognised and the default was substituted.
func NormalizeItemStatus(value string) (status ItemStatus, ok bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ItemStatusInShed, true
	}
	for _, candidate := range validItemStatuses {
		if strings.EqualFold(string(candidate), trimmed) {
			return candidate, true
		}
	}
	if legacy, found := legacyItemStatuses[strings.ToLower(trimmed)]; found {
		return legacy, true
	}
	return ItemStatusInShed, false
}
