package enums

import "fmt"

// OrderStatus tracks the settlement lifecycle of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusCompleted  OrderStatus = "Completed"
	OrderStatusPartial    OrderStatus = "Partial"
	OrderStatusCanceled   OrderStatus = "Canceled"
	OrderStatusRefunded   OrderStatus = "Refunded"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusCompleted,
	OrderStatusPartial,
	OrderStatusCanceled,
	OrderStatusRefunded,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsAccounted reports whether the financial effect for this status has
// already been applied, meaning the reconciliation poller should no
// longer watch the order.
func (s OrderStatus) IsAccounted() bool {
	switch s {
	case OrderStatusCompleted, OrderStatusPartial, OrderStatusCanceled, OrderStatusRefunded:
		return true
	}
	return false
}

// AccountedStatuses returns the statuses excluded from reconciliation.
func AccountedStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusCompleted,
		OrderStatusPartial,
		OrderStatusCanceled,
		OrderStatusRefunded,
	}
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
