package enums

import (
	"fmt"
	"strings"
)

// ItemCondition is orthogonal to ItemStatus.
type ItemCondition string

const (
	ItemConditionUsable    ItemCondition = "Usable"
	ItemConditionNotUsable ItemCondition = "Not usable"
	ItemConditionUnknown   ItemCondition = "Unknown"
)

var validItemConditions = []ItemCondition{
	ItemConditionUsable,
	ItemConditionNotUsable,
	ItemConditionUnknown,
}

// String implements fmt.Stringer.
func (c ItemCondition) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ItemCondition.
func (c ItemCondition) IsValid() bool {
	for _, candidate := range validItemConditions {
		if candidate == c {
			return true
		}
	}
	return false
}

// CanCheckOut reports whether gear in this condition may leave the shed.
func (c ItemCondition) CanCheckOut() bool {
	return c == ItemConditionUsable || c == ItemConditionUnknown
}

// ParseItemCondition converts raw input into an ItemCondition.
func ParseItemCondition(value string) (ItemCondition, error) {
	for _, candidate := range validItemConditions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item condition %q", value)
}

// NormalizeItemCondition maps sheet input onto a canonical condition. Empty
// input defaults to Usable; unrecognised input becomes Unknown with ok=false.
func NormalizeItemCondition(value string) (condition ItemCondition, ok bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ItemConditionUsable, true
	}
	for _, candidate := range validItemConditions {
		if strings.EqualFold(string(candidate), trimmed) {
			return candidate, true
		}
	}
	return ItemConditionUnknown, false
}

// ReportedCondition is what a quartermaster reports at check-in. It extends
// ItemCondition with Missing, which drives a status change instead.
type ReportedCondition string

const ReportedConditionMissing ReportedCondition = "Missing"

// ParseReportedCondition accepts any ItemCondition or Missing. Empty input
// means Usable.
func ParseReportedCondition(value string) (ReportedCondition, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ReportedCondition(ItemConditionUsable), nil
	}
	if strings.EqualFold(trimmed, string(ReportedConditionMissing)) {
		return ReportedConditionMissing, nil
	}
	for _, candidate := range validItemConditions {
		if strings.EqualFold(string(candidate), trimmed) {
			return ReportedCondition(candidate), nil
		}
	}
	return "", fmt.Errorf("invalid reported condition %q", value)
}

// IsMissing reports whether the item was not returned.
func (r ReportedCondition) IsMissing() bool {
	return r == ReportedConditionMissing
}

// String implements fmt.Stringer.
func (r ReportedCondition) String() string {
	return string(r)
}
