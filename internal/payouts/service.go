package payouts

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/zawlinn/boostline-backend/internal/accounts"
	"github.com/zawlinn/boostline-backend/internal/notify"
	"github.com/zawlinn/boostline-backend/pkg/db"
	"github.com/zawlinn/boostline-backend/pkg/enums"
	"github.com/zawlinn/boostline-backend/pkg/errors"
	"github.com/zawlinn/boostline-backend/pkg/logger"
)

// Service surfaces referral withdrawal requests to operators. The money
// transfer itself happens outside the system; the service only tracks
// request state and releases the withdrawable balance when an operator
// confirms payment.
type Service interface {
	// AnnouncePending moves new requests to Processing and tells the
	// finance channel, once per request.
	AnnouncePending(ctx context.Context) (int, error)
	// MarkPaid is the operator confirmation: debits the referrer's
	// withdrawable balance and closes the request.
	MarkPaid(ctx context.Context, payoutID int64) error
}

// ServiceParams wires the payout worker dependencies.
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

// NewService builds the payout worker service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db client is required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("payouts repository is required")
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

func (s *service) AnnouncePending(ctx context.Context) (int, error) {
	pending, err := s.repo.FindByStatus(ctx, enums.PayoutStatusPending)
	if err != nil {
		return 0, err
	}

	announced := 0
	for i := range pending {
		payout := pending[i]
		pctx := s.logger.WithAccount(ctx, payout.AccountEmail)

		if err := s.repo.UpdateStatus(pctx, payout.ID, enums.PayoutStatusProcessing); err != nil {
			s.logger.Error(pctx, "failed to move payout request to processing", err)
			continue
		}
		if s.notifier != nil {
			s.notifier.Notify(pctx, enums.NotifyChannelFinance, fmt.Sprintf(
				"payout request #%d: %s wants to withdraw %s",
				payout.ID, payout.AccountEmail, payout.Amount.StringFixed(2)))
		}
		announced++
	}
	return announced, nil
}

func (s *service) MarkPaid(ctx context.Context, payoutID int64) error {
	payout, err := s.repo.FindByID(ctx, payoutID)
	if err != nil {
		return err
	}
	if payout.Status == enums.PayoutStatusPaid {
		return errors.New(errors.CodeStateConflict,
			fmt.Sprintf("payout %d is already paid", payoutID))
	}

	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.accounts.WithTx(tx).ApplyDeltas(ctx, payout.AccountEmail, accounts.Deltas{
			WithdrawableBalance: payout.Amount.Neg(),
		}); err != nil {
			return err
		}
		return s.repo.WithTx(tx).UpdateStatus(ctx, payout.ID, enums.PayoutStatusPaid)
	})
}
