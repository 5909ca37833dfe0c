package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/zawlinn/boostline-backend/pkg/enums"
)

// Order is a customer order against the local catalog. The customer's
// balance was already debited by SellCharge when the row was created; the
// settlement engine owns every status change after that.
type Order struct {
	ID              int64                 `gorm:"column:id;primaryKey;autoIncrement"`
	AccountEmail    string                `gorm:"column:account_email;not null;index"`
	CatalogEntryID  int64                 `gorm:"column:catalog_entry_id;not null"`
	Quantity        int64                 `gorm:"column:quantity;not null"`
	Link            string                `gorm:"column:link;not null"`
	SellCharge      decimal.Decimal       `gorm:"column:sell_charge;type:numeric(14,4);not null"`
	BuyCharge       decimal.Decimal       `gorm:"column:buy_charge;type:numeric(14,4);not null"`
	Status          enums.OrderStatus     `gorm:"column:status;type:text;not null;default:'Pending';index"`
	Remains         *int64                `gorm:"column:remains"`
	FulfillmentMode enums.FulfillmentMode `gorm:"column:fulfillment_mode;type:text;not null;default:'provider'"`
	ProviderOrderID *string               `gorm:"column:provider_order_id;uniqueIndex"`
	RefundAmount    *decimal.Decimal      `gorm:"column:refund_amount;type:numeric(14,4)"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// DeliveredQuantity returns how many units the provider reports as done.
// Unknown remains counts as nothing delivered.
func (o Order) DeliveredQuantity() int64 {
	if o.Remains == nil {
		return 0
	}
	done := o.Quantity - *o.Remains
	if done < 0 {
		return 0
	}
	return done
}
