package accounts

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/zawlinn/boostline-backend/pkg/db/models"
)

// Deltas carries relative adjustments applied to one account in a single
// statement, so concurrent settlements never lose an increment.
type Deltas struct {
	Balance             decimal.Decimal
	TotalSpend          decimal.Decimal
	WithdrawableBalance decimal.Decimal
}

// IsZero reports whether the adjustment would change nothing.
func (d Deltas) IsZero() bool {
	return d.Balance.IsZero() && d.TotalSpend.IsZero() && d.WithdrawableBalance.IsZero()
}

// Repository defines persistence operations for accounts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	// ApplyDeltas adjusts balance fields relative to their current persisted
	// values.
	ApplyDeltas(ctx context.Context, email string, deltas Deltas) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an accounts repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) ApplyDeltas(ctx context.Context, email string, deltas Deltas) error {
	if deltas.IsZero() {
		return nil
	}
	updates := map[string]any{}
	if !deltas.Balance.IsZero() {
		updates["balance"] = gorm.Expr("balance + ?", deltas.Balance)
	}
	if !deltas.TotalSpend.IsZero() {
		updates["total_spend"] = gorm.Expr("total_spend + ?", deltas.TotalSpend)
	}
	if !deltas.WithdrawableBalance.IsZero() {
		updates["withdrawable_balance"] = gorm.Expr("withdrawable_balance + ?", deltas.WithdrawableBalance)
	}
	return r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("email = ?", email).
		Updates(updates).Error
}
