package catalog

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/zawlinn/boostline-backend/pkg/db/models"
)

// Repository defines persistence operations for catalog entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, entryID int64) (*models.CatalogEntry, error)
	List(ctx context.Context) ([]models.CatalogEntry, error)
	// AddSoldQuantity adjusts the running sold counter relative to its
	// current persisted value; delta may be negative on reversal.
	AddSoldQuantity(ctx context.Context, entryID int64, delta int64) error
	UpdateBuyPrice(ctx context.Context, entryID int64, buyPrice decimal.Decimal) error
	ExistingProviderServiceIDs(ctx context.Context) (map[string]bool, error)
	InsertBatch(ctx context.Context, entries []models.CatalogEntry) ([]models.CatalogEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, entryID int64) (*models.CatalogEntry, error) {
	var entry models.CatalogEntry
	err := r.db.WithContext(ctx).
		Where("id = ?", entryID).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) List(ctx context.Context) ([]models.CatalogEntry, error) {
	var entries []models.CatalogEntry
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) AddSoldQuantity(ctx context.Context, entryID int64, delta int64) error {
	if delta == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.CatalogEntry{}).
		Where("id = ?", entryID).
		Update("total_sold_quantity", gorm.Expr("total_sold_quantity + ?", delta)).Error
}

func (r *repository) UpdateBuyPrice(ctx context.Context, entryID int64, buyPrice decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.CatalogEntry{}).
		Where("id = ?", entryID).
		Update("buy_price", buyPrice).Error
}

func (r *repository) ExistingProviderServiceIDs(ctx context.Context) (map[string]bool, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.CatalogEntry{}).
		Pluck("provider_service_id", &ids).Error
	if err != nil {
		return nil, err
	}
	existing := make(map[string]bool, len(ids))
	for _, id := range ids {
		existing[id] = true
	}
	return existing, nil
}

func (r *repository) InsertBatch(ctx context.Context, entries []models.CatalogEntry) ([]models.CatalogEntry, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	if err := r.db.WithContext(ctx).Create(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
