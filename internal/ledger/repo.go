package ledger

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/zawlinn/boostline-backend/pkg/db/models"
	"github.com/zawlinn/boostline-backend/pkg/enums"
)

// Repository manages persistence for settlement events.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, event *models.SettlementEvent) error
	ListByOrderID(ctx context.Context, orderID int64) ([]models.SettlementEvent, error)
	FindTransition(ctx context.Context, orderID int64, from, to enums.OrderStatus) (*models.SettlementEvent, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, event *models.SettlementEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) ListByOrderID(ctx context.Context, orderID int64) ([]models.SettlementEvent, error) {
	var events []models.SettlementEvent
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repository) FindTransition(ctx context.Context, orderID int64, from, to enums.OrderStatus) (*models.SettlementEvent, error) {
	var event models.SettlementEvent
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND from_status = ? AND to_status = ?", orderID, from, to).
		First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}
