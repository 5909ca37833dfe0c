package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zawlinn/boostline-backend/pkg/enums"
)

// SettlementEvent is the append-only audit record of one applied transition.
// Exactly one row exists per (order, from, to) pair; the settlement engine
// checks for an existing row before re-applying money on a replay.
type SettlementEvent struct {
	ID                uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	OrderID           int64                     `gorm:"column:order_id;not null;index"`
	Type              enums.SettlementEventType `gorm:"column:type;type:text;not null"`
	FromStatus        enums.OrderStatus         `gorm:"column:from_status;type:text;not null"`
	ToStatus          enums.OrderStatus         `gorm:"column:to_status;type:text;not null"`
	RecordedStatus    enums.OrderStatus         `gorm:"column:recorded_status;type:text;not null"`
	DeliveredQuantity int64                     `gorm:"column:delivered_quantity;not null;default:0"`
	RefundAmount      decimal.Decimal           `gorm:"column:refund_amount;type:numeric(14,4);not null;default:0"`
	SpendDelta        decimal.Decimal           `gorm:"column:spend_delta;type:numeric(14,4);not null;default:0"`
	CatalogDelta      int64                     `gorm:"column:catalog_delta;not null;default:0"`
	ReferralDelta     decimal.Decimal           `gorm:"column:referral_delta;type:numeric(14,4);not null;default:0"`
	LoyaltyDelta      decimal.Decimal           `gorm:"column:loyalty_delta;type:numeric(14,4);not null;default:0"`
	CreatedAt         time.Time                 `gorm:"column:created_at;autoCreateTime"`
}
