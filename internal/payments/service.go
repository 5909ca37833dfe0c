package payments

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/zawlinn/boostline-backend/internal/accounts"
	"github.com/zawlinn/boostline-backend/internal/notify"
	"github.com/zawlinn/boostline-backend/pkg/db"
	"github.com/zawlinn/boostline-backend/pkg/db/models"
	"github.com/zawlinn/boostline-backend/pkg/enums"
	"github.com/zawlinn/boostline-backend/pkg/errors"
	"github.com/zawlinn/boostline-backend/pkg/logger"
)

// Amounts within a cent of each other count as the same payment.
var amountTolerance = decimal.RequireFromString("0.01")

// Service matches declared top-ups against observed payment proofs and
// credits balances.
type Service interface {
	// VerifyPending runs one verification cycle over Pending transactions.
	VerifyPending(ctx context.Context) (VerifyStats, error)
	// Accept is the operator override for a flagged transaction: credits
	// the balance without a matching proof.
	Accept(ctx context.Context, transactionID int64) error
	// Reject is the operator override discarding a flagged transaction.
	Reject(ctx context.Context, transactionID int64) error
}

// VerifyStats summarizes one verification cycle.
type VerifyStats struct {
	Matched int
	Flagged int
}

// ServiceParams wires the payment verification dependencies.
type ServiceParams struct {
	DB       *db.Client
	Repo     Repository
	Accounts accounts.Repository
	Notifier notify.Notifier
	Logger   *logger.Logger
}

type service struct {
	db       *db.Client
	repo     Repository
	accounts accounts.Repository
	notifier notify.Notifier
	logger   *logger.Logger
}

// NewService builds the payment verification service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db client is required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("payments repository is required")
	}
	if params.Accounts == nil {
		return nil, fmt.Errorf("accounts repository is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		db:       params.DB,
		repo:     params.Repo,
		accounts: params.Accounts,
		notifier: params.Notifier,
		logger:   params.Logger,
	}, nil
}

func (s *service) VerifyPending(ctx context.Context) (VerifyStats, error) {
	var stats VerifyStats

	pending, err := s.repo.FindPendingTransactions(ctx)
	if err != nil {
		return stats, err
	}

	for i := range pending {
		txn := pending[i]
		tctx := s.logger.WithField(ctx, "transaction_id", txn.TransactionID)

		proof, err := s.matchProof(tctx, txn)
		if err != nil {
			s.logger.Error(tctx, "failed to look up payment proofs", err)
			continue
		}
		if proof == nil {
			if err := s.flag(tctx, txn); err != nil {
				s.logger.Error(tctx, "failed to flag unmatched transaction", err)
				continue
			}
			stats.Flagged++
			continue
		}

		if err := s.credit(tctx, txn, proof); err != nil {
			s.logger.Error(tctx, "failed to credit verified top-up", err)
			continue
		}
		stats.Matched++
	}

	return stats, nil
}

func (s *service) matchProof(ctx context.Context, txn models.PaymentTransaction) (*models.PaymentProof, error) {
	proofs, err := s.repo.FindUnusedProofs(ctx, txn.TransactionID)
	if err != nil {
		return nil, err
	}
	for i := range proofs {
		if proofs[i].AmountUSD.Sub(txn.Amount).Abs().LessThanOrEqual(amountTolerance) {
			return &proofs[i], nil
		}
	}
	return nil, nil
}

func (s *service) credit(ctx context.Context, txn models.PaymentTransaction, proof *models.PaymentProof) error {
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.MarkProofUsed(ctx, proof.ID); err != nil {
			return err
		}
		if err := s.accounts.WithTx(tx).ApplyDeltas(ctx, txn.AccountEmail, accounts.Deltas{
			Balance: txn.Amount,
		}); err != nil {
			return err
		}
		return repo.UpdateTransactionStatus(ctx, txn.ID, enums.TransactionStatusAccepted)
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "top-up verified and credited")
	if s.notifier != nil {
		s.notifier.Notify(ctx, enums.NotifyChannelFinance, fmt.Sprintf(
			"top-up %s verified: %s credited to %s", txn.TransactionID, txn.Amount.StringFixed(2), txn.AccountEmail))
	}
	return nil
}

// flag moves an unmatched transaction to Processing so the finance channel
// hears about it exactly once and an operator decides.
func (s *service) flag(ctx context.Context, txn models.PaymentTransaction) error {
	if err := s.repo.UpdateTransactionStatus(ctx, txn.ID, enums.TransactionStatusProcessing); err != nil {
		return err
	}
	if s.notifier != nil {
		s.notifier.Notify(ctx, enums.NotifyChannelFinance, fmt.Sprintf(
			"top-up %s from %s for %s has no matching payment, needs review",
			txn.TransactionID, txn.AccountEmail, txn.Amount.StringFixed(2)))
	}
	return nil
}

func (s *service) Accept(ctx context.Context, transactionID int64) error {
	txn, err := s.findReviewable(ctx, transactionID)
	if err != nil {
		return err
	}
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.accounts.WithTx(tx).ApplyDeltas(ctx, txn.AccountEmail, accounts.Deltas{
			Balance: txn.Amount,
		}); err != nil {
			return err
		}
		return s.repo.WithTx(tx).UpdateTransactionStatus(ctx, txn.ID, enums.TransactionStatusAccepted)
	})
}

func (s *service) Reject(ctx context.Context, transactionID int64) error {
	txn, err := s.findReviewable(ctx, transactionID)
	if err != nil {
		return err
	}
	return s.repo.UpdateTransactionStatus(ctx, txn.ID, enums.TransactionStatusRejected)
}

func (s *service) findReviewable(ctx context.Context, transactionID int64) (*models.PaymentTransaction, error) {
	txn, err := s.repo.FindTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	switch txn.Status {
	case enums.TransactionStatusPending, enums.TransactionStatusProcessing:
		return txn, nil
	}
	return nil, errors.New(errors.CodeStateConflict,
		fmt.Sprintf("transaction %d already resolved as %s", transactionID, txn.Status))
}
