package orders

import (
	"context"

	"gorm.io/gorm"

	"github.com/zawlinn/boostline-backend/pkg/db/models"
	"github.com/zawlinn/boostline-backend/pkg/enums"
	pkgerrors "github.com/zawlinn/boostline-backend/pkg/errors"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, orderID int64) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindDispatchable(ctx context.Context, limit int) ([]models.Order, error) {
	var orders []models.Order
	query := r.db.WithContext(ctx).
		Where("status = ?", enums.OrderStatusPending).
		Where("provider_order_id IS NULL").
		Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) FindOutstanding(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("fulfillment_mode = ?", enums.FulfillmentModeProvider).
		Where("provider_order_id IS NOT NULL").
		Where("status NOT IN ?", enums.AccountedStatuses()).
		Order("id ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) MarkDispatched(ctx context.Context, orderID int64, providerOrderID string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Where("provider_order_id IS NULL").
		Updates(map[string]any{
			"provider_order_id": providerOrderID,
			"status":            enums.OrderStatusProcessing,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order already has a provider order id")
	}
	return nil
}

func (r *repository) UpdateProgress(ctx context.Context, orderID int64, status enums.OrderStatus, remains *int64) error {
	updates := map[string]any{"status": status}
	if remains != nil {
		updates["remains"] = *remains
	}
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(updates).Error
}

func (r *repository) Settle(ctx context.Context, orderID int64, settle SettleUpdate) error {
	updates := map[string]any{"status": settle.Status}
	if settle.RefundAmount != nil {
		updates["refund_amount"] = *settle.RefundAmount
	}
	if settle.Remains != nil {
		updates["remains"] = *settle.Remains
	}
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(updates).Error
}
