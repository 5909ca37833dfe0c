package provider

import (
	"encoding/json"
	"strconv"
	"strings"

	pkgerrors "github.com/zawlinn/boostline-backend/pkg/errors"

	"github.com/zawlinn/boostline-backend/pkg/enums"
)

// flexNumber accepts a JSON number or a numeric string. The panel API is
// inconsistent about which one it returns.
type flexNumber string

func (f *flexNumber) UnmarshalJSON(data []byte) error {
	var num json.Number
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexNumber(num.String())
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*f = flexNumber(strings.TrimSpace(str))
	return nil
}

func (f flexNumber) String() string {
	return string(f)
}

func (f flexNumber) toInt64() int64 {
	value, err := strconv.ParseInt(string(f), 10, 64)
	if err != nil {
		return 0
	}
	return value
}

type statusEntry struct {
	Status  string      `json:"status"`
	Remains *flexNumber `json:"remains"`
}

func (e statusEntry) remainsValue() *int64 {
	if e.Remains == nil {
		return nil
	}
	value, err := strconv.ParseInt(e.Remains.String(), 10, 64)
	if err != nil {
		return nil
	}
	return &value
}

type serviceEntry struct {
	Service  flexNumber `json:"service"`
	Name     string     `json:"name"`
	Category string     `json:"category"`
	Rate     flexNumber `json:"rate"`
	Min      flexNumber `json:"min"`
	Max      flexNumber `json:"max"`
}

// remoteStatusNames maps the provider's free-text statuses onto the local
// lifecycle. "In progress" and "Processing" are the same thing upstream.
var remoteStatusNames = map[string]enums.OrderStatus{
	"pending":     enums.OrderStatusPending,
	"processing":  enums.OrderStatusProcessing,
	"in progress": enums.OrderStatusProcessing,
	"completed":   enums.OrderStatusCompleted,
	"partial":     enums.OrderStatusPartial,
	"canceled":    enums.OrderStatusCanceled,
	"cancelled":   enums.OrderStatusCanceled,
	"refunded":    enums.OrderStatusRefunded,
}

// MapRemoteStatus normalizes a provider-reported status string. Unknown
// values are a data-integrity signal and come back as a validation error so
// callers can surface them instead of silently dropping them.
func MapRemoteStatus(value string) (enums.OrderStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if status, ok := remoteStatusNames[normalized]; ok {
		return status, nil
	}
	return "", pkgerrors.New(pkgerrors.CodeValidation, "unrecognized provider status "+strconv.Quote(value))
}
