package payments

import (
	"context"

	"gorm.io/gorm"

	"github.com/zawlinn/boostline-backend/pkg/db/models"
	"github.com/zawlinn/boostline-backend/pkg/enums"
)

// Repository defines persistence operations for top-up verification.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindPendingTransactions(ctx context.Context) ([]models.PaymentTransaction, error)
	FindTransaction(ctx context.Context, transactionID int64) (*models.PaymentTransaction, error)
	FindUnusedProofs(ctx context.Context, transactionID string) ([]models.PaymentProof, error)
	// MarkProofUsed consumes a proof. A proof already consumed by a
	// concurrent cycle reports zero rows and comes back as an error.
	MarkProofUsed(ctx context.Context, proofID int64) error
	UpdateTransactionStatus(ctx context.Context, transactionID int64, status enums.TransactionStatus) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payments repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindPendingTransactions(ctx context.Context) ([]models.PaymentTransaction, error) {
	var transactions []models.PaymentTransaction
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.TransactionStatusPending).
		Order("id ASC").
		Find(&transactions).Error
	if err != nil {
		return nil, err
	}
	return transactions, nil
}

func (r *repository) FindTransaction(ctx context.Context, transactionID int64) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	if err := r.db.WithContext(ctx).First(&txn, transactionID).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) FindUnusedProofs(ctx context.Context, transactionID string) ([]models.PaymentProof, error) {
	var proofs []models.PaymentProof
	err := r.db.WithContext(ctx).
		Where("transaction_id = ? AND status = ?", transactionID, enums.ProofStatusUnused).
		Order("id ASC").
		Find(&proofs).Error
	if err != nil {
		return nil, err
	}
	return proofs, nil
}

func (r *repository) MarkProofUsed(ctx context.Context, proofID int64) error {
	result := r.db.WithContext(ctx).
		Model(&models.PaymentProof{}).
		Where("id = ? AND status = ?", proofID, enums.ProofStatusUnused).
		Update("status", enums.ProofStatusUsed)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) UpdateTransactionStatus(ctx context.Context, transactionID int64, status enums.TransactionStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.PaymentTransaction{}).
		Where("id = ?", transactionID).
		Update("status", status).Error
}
