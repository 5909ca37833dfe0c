package payouts

import (
	"context"

	"gorm.io/gorm"

	"github.com/zawlinn/boostline-backend/pkg/db/models"
	"github.com/zawlinn/boostline-backend/pkg/enums"
)

// Repository defines persistence operations for referral payout requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, payoutID int64) (*models.PayoutRequest, error)
	FindByStatus(ctx context.Context, status enums.PayoutStatus) ([]models.PayoutRequest, error)
	UpdateStatus(ctx context.Context, payoutID int64, status enums.PayoutStatus) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payouts repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, payoutID int64) (*models.PayoutRequest, error) {
	var payout models.PayoutRequest
	if err := r.db.WithContext(ctx).First(&payout, payoutID).Error; err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *repository) FindByStatus(ctx context.Context, status enums.PayoutStatus) ([]models.PayoutRequest, error) {
	var payouts []models.PayoutRequest
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("id ASC").
		Find(&payouts).Error
	if err != nil {
		return nil, err
	}
	return payouts, nil
}

func (r *repository) UpdateStatus(ctx context.Context, payoutID int64, status enums.PayoutStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.PayoutRequest{}).
		Where("id = ?", payoutID).
		Update("status", status).Error
}
