package enums

import "fmt"

// FulfillmentMode selects how an order is routed for fulfillment.
type FulfillmentMode string

const (
	FulfillmentModeProvider FulfillmentMode = "provider"
	FulfillmentModeManual   FulfillmentMode = "manual"
)

var validFulfillmentModes = []FulfillmentMode{
	FulfillmentModeProvider,
	FulfillmentModeManual,
}

// String implements fmt.Stringer.
func (m FulfillmentMode) String() string {
	return string(m)
}

// IsValid reports whether the value is a known FulfillmentMode.
func (m FulfillmentMode) IsValid() bool {
	for _, candidate := range validFulfillmentModes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseFulfillmentMode converts raw input into a FulfillmentMode.
func ParseFulfillmentMode(value string) (FulfillmentMode, error) {
	for _, candidate := range validFulfillmentModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid fulfillment mode %q", value)
}
