package enums

import "fmt"

// SettlementEventType labels the financial effect recorded by a settlement
// ledger event.
type SettlementEventType string

const (
	SettlementEventTypeCompletion       SettlementEventType = "completion"
	SettlementEventTypePartialRefund    SettlementEventType = "partial_refund"
	SettlementEventTypeReversal         SettlementEventType = "reversal"
	SettlementEventTypeRejectionRefund  SettlementEventType = "rejection_refund"
	SettlementEventTypeStatusOnlyUpdate SettlementEventType = "status_update"
)

var validSettlementEventTypes = []SettlementEventType{
	SettlementEventTypeCompletion,
	SettlementEventTypePartialRefund,
	SettlementEventTypeReversal,
	SettlementEventTypeRejectionRefund,
	SettlementEventTypeStatusOnlyUpdate,
}

// String implements fmt.Stringer.
func (t SettlementEventType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known SettlementEventType.
func (t SettlementEventType) IsValid() bool {
	for _, candidate := range validSettlementEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseSettlementEventType converts raw input into a SettlementEventType.
func ParseSettlementEventType(value string) (SettlementEventType, error) {
	for _, candidate := range validSettlementEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid settlement event type %q", value)
}
