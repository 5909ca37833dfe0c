package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CatalogEntry is a resellable service mapped to a provider service id.
// Prices are per PerQuantity units.
type CatalogEntry struct {
	ID                int64           `gorm:"column:id;primaryKey;autoIncrement"`
	ProviderServiceID string          `gorm:"column:provider_service_id;not null;uniqueIndex"`
	Name              string          `gorm:"column:name;not null"`
	Category          string          `gorm:"column:category"`
	ServiceType       string          `gorm:"column:service_type;default:'Demo'"`
	MinQuantity       int64           `gorm:"column:min_quantity;not null;default:0"`
	MaxQuantity       int64           `gorm:"column:max_quantity;not null;default:0"`
	PerQuantity       int64           `gorm:"column:per_quantity;not null;default:1000"`
	BuyPrice          decimal.Decimal `gorm:"column:buy_price;type:numeric(14,4);not null"`
	SellPrice         decimal.Decimal `gorm:"column:sell_price;type:numeric(14,4);not null"`
	TotalSoldQuantity int64           `gorm:"column:total_sold_quantity;not null;default:0"`
	Source            string          `gorm:"column:source;not null;default:'provider'"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
