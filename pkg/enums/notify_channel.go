package enums

// NotifyChannel names a logical operational channel for notifications.
type NotifyChannel string

const (
	NotifyChannelFulfillment NotifyChannel = "fulfillment"
	NotifyChannelFinance     NotifyChannel = "finance"
	NotifyChannelSupport     NotifyChannel = "support"
	NotifyChannelCatalog     NotifyChannel = "catalog"
)

// String implements fmt.Stringer.
func (c NotifyChannel) String() string {
	return string(c)
}
