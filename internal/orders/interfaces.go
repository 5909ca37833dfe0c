package orders

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/zawlinn/boostline-backend/pkg/db/models"
	"github.com/zawlinn/boostline-backend/pkg/enums"
)

// Repository defines persistence operations for orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, orderID int64) (*models.Order, error)
	// FindDispatchable returns Pending orders that were never submitted.
	FindDispatchable(ctx context.Context, limit int) ([]models.Order, error)
	// FindOutstanding returns provider-routed orders with a provider id whose
	// financial outcome has not been accounted yet.
	FindOutstanding(ctx context.Context) ([]models.Order, error)
	// MarkDispatched records the provider order id and moves the order to
	// Processing. The provider id is written at most once; a second call for
	// the same order reports a conflict.
	MarkDispatched(ctx context.Context, orderID int64, providerOrderID string) error
	// UpdateProgress writes a non-terminal status observation plus remains.
	UpdateProgress(ctx context.Context, orderID int64, status enums.OrderStatus, remains *int64) error
	// Settle writes the final recorded status, refund amount, and remains.
	// This is deliberately the last write of a settlement sequence.
	Settle(ctx context.Context, orderID int64, settle SettleUpdate) error
}

// SettleUpdate is the terminal write of one settlement.
type SettleUpdate struct {
	Status       enums.OrderStatus
	RefundAmount *decimal.Decimal
	Remains      *int64
}
