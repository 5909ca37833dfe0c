package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/zawlinn/boostline-backend/pkg/enums"
)

// PaymentTransaction is a customer-declared top-up waiting for verification.
type PaymentTransaction struct {
	ID            int64                   `gorm:"column:id;primaryKey;autoIncrement"`
	TransactionID string                  `gorm:"column:transaction_id;not null;index"`
	AccountEmail  string                  `gorm:"column:account_email;not null"`
	Amount        decimal.Decimal         `gorm:"column:amount;type:numeric(14,4);not null"`
	Status        enums.TransactionStatus `gorm:"column:status;type:text;not null;default:'Pending';index"`
	CreatedAt     time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

// PaymentProof is an inbound payment observed on the money side, consumed at
// most once when it matches a declared transaction.
type PaymentProof struct {
	ID            int64             `gorm:"column:id;primaryKey;autoIncrement"`
	TransactionID string            `gorm:"column:transaction_id;not null;index"`
	AmountUSD     decimal.Decimal   `gorm:"column:amount_usd;type:numeric(14,4);not null"`
	Status        enums.ProofStatus `gorm:"column:status;type:text;not null;default:'unused'"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// PayoutRequest is a referrer asking to withdraw accrued referral balance.
type PayoutRequest struct {
	ID           int64              `gorm:"column:id;primaryKey;autoIncrement"`
	AccountEmail string             `gorm:"column:account_email;not null"`
	Amount       decimal.Decimal    `gorm:"column:amount;type:numeric(14,4);not null"`
	Status       enums.PayoutStatus `gorm:"column:status;type:text;not null;default:'Pending';index"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
