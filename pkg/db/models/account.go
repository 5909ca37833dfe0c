package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a customer account. Balance and spend fields are mutated by the
// settlement engine; registration and authentication live elsewhere.
type Account struct {
	ID                  int64           `gorm:"column:id;primaryKey;autoIncrement"`
	Email               string          `gorm:"column:email;not null;uniqueIndex"`
	Balance             decimal.Decimal `gorm:"column:balance;type:numeric(14,4);not null;default:0"`
	TotalSpend          decimal.Decimal `gorm:"column:total_spend;type:numeric(14,4);not null;default:0"`
	WithdrawableBalance decimal.Decimal `gorm:"column:withdrawable_balance;type:numeric(14,4);not null;default:0"`
	ReferralOwner       *string         `gorm:"column:referral_owner"`
	CreatedAt           time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
