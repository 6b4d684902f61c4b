package enums

import "fmt"

// TransactionAction names the event recorded in the transaction log.
type TransactionAction string

const (
	TransactionActionCheckOut TransactionAction = "Check out"
	TransactionActionCheckIn  TransactionAction = "Check in"
)

var validTransactionActions = []TransactionAction{
	TransactionActionCheckOut,
	TransactionActionCheckIn,
}

// String implements fmt.Stringer.
func (a TransactionAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known TransactionAction.
func (a TransactionAction) IsValid() bool {
	for _, candidate := range validTransactionActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseTransactionAction converts raw input into a TransactionAction.
func ParseTransactionAction(value string) (TransactionAction, error) {
	for _, candidate := range validTransactionActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction action %q", value)
}
