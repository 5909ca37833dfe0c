package settlement

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/zawlinn/boostline-backend/internal/accounts"
	"github.com/zawlinn/boostline-backend/internal/catalog"
	"github.com/zawlinn/boostline-backend/internal/ledger"
	"github.com/zawlinn/boostline-backend/internal/notify"
	"github.com/zawlinn/boostline-backend/internal/orders"
	"github.com/zawlinn/boostline-backend/pkg/config"
	"github.com/zawlinn/boostline-backend/pkg/db"
	"github.com/zawlinn/boostline-backend/pkg/db/models"
	"github.com/zawlinn/boostline-backend/pkg/enums"
	"github.com/zawlinn/boostline-backend/pkg/errors"
	"github.com/zawlinn/boostline-backend/pkg/logger"
	"github.com/zawlinn/boostline-backend/pkg/metrics"
)

const moneyScale = 4

// Service applies the financial effect of order status transitions. Every
// applied transition writes catalog, account, and ledger rows in one
// transaction with the order's own status committed last.
type Service interface {
	// Apply folds a newly observed provider status into the ledger. Passing
	// the order's current status is a no-op. Remains may be nil when the
	// provider did not report it.
	Apply(ctx context.Context, orderID int64, observed enums.OrderStatus, remains *int64) (*Outcome, error)
	// RefundRejection refunds the full sell charge after the provider
	// refused an order at submission time. Nothing was delivered, so no
	// catalog or referral effect applies.
	RefundRejection(ctx context.Context, orderID int64, reason string) error
	// ManualComplete is the operator command for manually fulfilled orders.
	ManualComplete(ctx context.Context, orderID int64) (*Outcome, error)
	// ManualRefund is the operator error command: fully refunds the order,
	// reversing an earlier completion if one was counted.
	ManualRefund(ctx context.Context, orderID int64) (*Outcome, error)
}

// Outcome reports what one transition did, for notification and API replies.
type Outcome struct {
	OrderID           int64
	Applied           bool
	FromStatus        enums.OrderStatus
	ObservedStatus    enums.OrderStatus
	RecordedStatus    enums.OrderStatus
	DeliveredQuantity int64
	RefundAmount      decimal.Decimal
}

// ServiceParams wires the settlement service dependencies.
type ServiceParams struct {
	DB       *db.Client
	Orders   orders.Repository
	Accounts accounts.Repository
	Catalog  catalog.Repository
	Ledger   ledger.Repository
	Config   config.SettlementConfig
	Logger   *logger.Logger
	Metrics  *metrics.SettlementMetrics
	Notifier notify.Notifier
}

type service struct {
	db       *db.Client
	orders   orders.Repository
	accounts accounts.Repository
	catalog  catalog.Repository
	ledger   ledger.Repository
	cfg      config.SettlementConfig
	logger   *logger.Logger
	metrics  *metrics.SettlementMetrics
	notifier notify.Notifier
}

// NewService builds the settlement service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db client is required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository is required")
	}
	if params.Accounts == nil {
		return nil, fmt.Errorf("accounts repository is required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog repository is required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger repository is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		db:       params.DB,
		orders:   params.Orders,
		accounts: params.Accounts,
		catalog:  params.Catalog,
		ledger:   params.Ledger,
		cfg:      params.Config,
		logger:   params.Logger,
		metrics:  params.Metrics,
		notifier: params.Notifier,
	}, nil
}

func (s *service) Apply(ctx context.Context, orderID int64, observed enums.OrderStatus, remains *int64) (*Outcome, error) {
	ctx = s.logger.WithOrderID(ctx, orderID)

	if !observed.IsValid() {
		s.metrics.IncRejected()
		err := errors.New(errors.CodeValidation, fmt.Sprintf("unrecognized order status %q", observed))
		s.logger.Error(ctx, "rejected transition with unrecognized status", err)
		if s.notifier != nil {
			s.notifier.Notify(ctx, enums.NotifyChannelFulfillment, fmt.Sprintf(
				"order #%d: dropped unrecognized status %q, manual review needed", orderID, observed))
		}
		return nil, err
	}

	var outcome *Outcome
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		outcome, txErr = s.applyTx(ctx, tx, orderID, observed, remains)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	s.finish(ctx, outcome)
	return outcome, nil
}

func (s *service) RefundRejection(ctx context.Context, orderID int64, reason string) error {
	ctx = s.logger.WithOrderID(ctx, orderID)

	var outcome *Outcome
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.orders.WithTx(tx)

		order, err := ordersRepo.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if order.RefundAmount != nil {
			s.metrics.IncRejected()
			return errors.New(errors.CodeDoubleRefund, "order already refunded")
		}

		refund := order.SellCharge
		if err := s.accounts.WithTx(tx).ApplyDeltas(ctx, order.AccountEmail, accounts.Deltas{
			Balance: refund,
		}); err != nil {
			return err
		}

		if _, err := s.recordEvent(ctx, tx, order, ledger.RecordEventInput{
			Type:           enums.SettlementEventTypeRejectionRefund,
			FromStatus:     order.Status,
			ToStatus:       enums.OrderStatusCanceled,
			RecordedStatus: enums.OrderStatusCanceled,
			RefundAmount:   refund,
		}); err != nil {
			return err
		}

		if err := ordersRepo.Settle(ctx, order.ID, orders.SettleUpdate{
			Status:       enums.OrderStatusCanceled,
			RefundAmount: &refund,
			Remains:      remainsPtr(order.Quantity),
		}); err != nil {
			return err
		}

		outcome = &Outcome{
			OrderID:        order.ID,
			Applied:        true,
			FromStatus:     order.Status,
			ObservedStatus: enums.OrderStatusCanceled,
			RecordedStatus: enums.OrderStatusCanceled,
			RefundAmount:   refund,
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info(s.logger.WithField(ctx, "reason", reason), "refunded provider-rejected order")
	s.metrics.IncRefund()
	s.finish(ctx, outcome)
	return nil
}

func (s *service) ManualComplete(ctx context.Context, orderID int64) (*Outcome, error) {
	return s.Apply(ctx, orderID, enums.OrderStatusCompleted, remainsPtr(0))
}

func (s *service) ManualRefund(ctx context.Context, orderID int64) (*Outcome, error) {
	return s.Apply(ctx, orderID, enums.OrderStatusCanceled, nil)
}

// applyTx runs the transition function against a fresh in-transaction read
// of the order.
func (s *service) applyTx(ctx context.Context, tx *gorm.DB, orderID int64, observed enums.OrderStatus, remains *int64) (*Outcome, error) {
	ordersRepo := s.orders.WithTx(tx)

	order, err := ordersRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status == observed {
		return &Outcome{
			OrderID:        order.ID,
			FromStatus:     order.Status,
			ObservedStatus: observed,
			RecordedStatus: order.Status,
		}, nil
	}

	// A row for this (from, to) pair means the money already moved; only
	// converge the order row and stop.
	prior, err := s.ledger.WithTx(tx).FindTransition(ctx, order.ID, order.Status, observed)
	if err != nil {
		return nil, err
	}
	if prior != nil {
		s.logger.Warn(ctx, "transition already applied, converging order row only")
		refund := prior.RefundAmount
		update := orders.SettleUpdate{Status: prior.RecordedStatus, Remains: remains}
		if !refund.IsZero() {
			update.RefundAmount = &refund
		}
		if err := ordersRepo.Settle(ctx, order.ID, update); err != nil {
			return nil, err
		}
		return &Outcome{
			OrderID:        order.ID,
			FromStatus:     order.Status,
			ObservedStatus: observed,
			RecordedStatus: prior.RecordedStatus,
			RefundAmount:   refund,
		}, nil
	}

	switch observed {
	case enums.OrderStatusCompleted:
		return s.applyCompletion(ctx, tx, order, remains)
	case enums.OrderStatusPartial, enums.OrderStatusCanceled, enums.OrderStatusRefunded:
		if order.Status == enums.OrderStatusCompleted {
			return s.applyReversal(ctx, tx, order, observed, remains)
		}
		return s.applyPartialRefund(ctx, tx, order, observed, remains)
	default:
		// Pending and Processing carry no money movement.
		return s.applyProgress(ctx, tx, order, observed, remains)
	}
}

// applyCompletion counts a full completion: catalog up by the full quantity,
// spend up by the sell charge, referral and loyalty credits where earned.
func (s *service) applyCompletion(ctx context.Context, tx *gorm.DB, order *models.Order, remains *int64) (*Outcome, error) {
	if order.Status.IsAccounted() {
		s.metrics.IncRejected()
		return nil, errors.New(errors.CodeStateConflict,
			fmt.Sprintf("cannot complete order in accounted status %s", order.Status))
	}

	accountsRepo := s.accounts.WithTx(tx)
	account, err := accountsRepo.FindByEmail(ctx, order.AccountEmail)
	if err != nil {
		return nil, err
	}

	referral := decimal.Zero
	if account.ReferralOwner != nil {
		referral = order.SellCharge.Mul(s.cfg.ReferralRate).Round(moneyScale)
	}

	loyalty := decimal.Zero
	if account.TotalSpend.Add(order.SellCharge).GreaterThan(s.cfg.LoyaltyThreshold) {
		loyalty = order.SellCharge.Mul(s.cfg.LoyaltyRate).Round(moneyScale)
	}

	if err := accountsRepo.ApplyDeltas(ctx, order.AccountEmail, accounts.Deltas{
		Balance:    loyalty,
		TotalSpend: order.SellCharge,
	}); err != nil {
		return nil, err
	}
	if !referral.IsZero() {
		if err := accountsRepo.ApplyDeltas(ctx, *account.ReferralOwner, accounts.Deltas{
			WithdrawableBalance: referral,
		}); err != nil {
			return nil, err
		}
	}
	if err := s.catalog.WithTx(tx).AddSoldQuantity(ctx, order.CatalogEntryID, order.Quantity); err != nil {
		return nil, err
	}

	if _, err := s.recordEvent(ctx, tx, order, ledger.RecordEventInput{
		Type:              enums.SettlementEventTypeCompletion,
		FromStatus:        order.Status,
		ToStatus:          enums.OrderStatusCompleted,
		RecordedStatus:    enums.OrderStatusCompleted,
		DeliveredQuantity: order.Quantity,
		SpendDelta:        order.SellCharge,
		CatalogDelta:      order.Quantity,
		ReferralDelta:     referral,
		LoyaltyDelta:      loyalty,
	}); err != nil {
		return nil, err
	}

	if err := s.orders.WithTx(tx).Settle(ctx, order.ID, orders.SettleUpdate{
		Status:  enums.OrderStatusCompleted,
		Remains: remains,
	}); err != nil {
		return nil, err
	}

	return &Outcome{
		OrderID:           order.ID,
		Applied:           true,
		FromStatus:        order.Status,
		ObservedStatus:    enums.OrderStatusCompleted,
		RecordedStatus:    enums.OrderStatusCompleted,
		DeliveredQuantity: order.Quantity,
	}, nil
}

// applyReversal unwinds a previously counted completion. The full quantity
// comes back off the catalog counter, the refund comes off total spend, and
// the referral and loyalty credits granted at completion are reversed. The
// loyalty amount is taken from the completion event so the reversal matches
// whatever was actually credited.
func (s *service) applyReversal(ctx context.Context, tx *gorm.DB, order *models.Order, observed enums.OrderStatus, remains *int64) (*Outcome, error) {
	if order.RefundAmount != nil {
		s.metrics.IncRejected()
		s.logger.Warn(ctx, "reversal after refund already applied, likely a reconciliation replay")
		return nil, errors.New(errors.CodeDoubleRefund, "order already refunded")
	}

	refund := order.SellCharge
	if remains != nil && *remains > 0 && *remains < order.Quantity {
		refund = prorated(order.SellCharge, *remains, order.Quantity)
	}

	ledgerSvc, err := ledger.NewService(s.ledger.WithTx(tx))
	if err != nil {
		return nil, err
	}
	completion, err := ledgerSvc.CompletionEvent(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	loyalty := decimal.Zero
	if completion != nil {
		loyalty = completion.LoyaltyDelta
	}

	accountsRepo := s.accounts.WithTx(tx)
	account, err := accountsRepo.FindByEmail(ctx, order.AccountEmail)
	if err != nil {
		return nil, err
	}

	referral := decimal.Zero
	if account.ReferralOwner != nil {
		referral = refund.Mul(s.cfg.ReferralRate).Round(moneyScale)
	}

	if err := accountsRepo.ApplyDeltas(ctx, order.AccountEmail, accounts.Deltas{
		Balance:    refund.Sub(loyalty),
		TotalSpend: refund.Neg(),
	}); err != nil {
		return nil, err
	}
	if !referral.IsZero() {
		if err := accountsRepo.ApplyDeltas(ctx, *account.ReferralOwner, accounts.Deltas{
			WithdrawableBalance: referral.Neg(),
		}); err != nil {
			return nil, err
		}
	}
	if err := s.catalog.WithTx(tx).AddSoldQuantity(ctx, order.CatalogEntryID, -order.Quantity); err != nil {
		return nil, err
	}

	if _, err := s.recordEvent(ctx, tx, order, ledger.RecordEventInput{
		Type:              enums.SettlementEventTypeReversal,
		FromStatus:        order.Status,
		ToStatus:          observed,
		RecordedStatus:    enums.OrderStatusRefunded,
		DeliveredQuantity: deliveredOf(order.Quantity, remains),
		RefundAmount:      refund,
		SpendDelta:        refund.Neg(),
		CatalogDelta:      -order.Quantity,
		ReferralDelta:     referral.Neg(),
		LoyaltyDelta:      loyalty.Neg(),
	}); err != nil {
		return nil, err
	}

	if err := s.orders.WithTx(tx).Settle(ctx, order.ID, orders.SettleUpdate{
		Status:       enums.OrderStatusRefunded,
		RefundAmount: &refund,
		Remains:      remains,
	}); err != nil {
		return nil, err
	}

	s.metrics.IncRefund()
	return &Outcome{
		OrderID:           order.ID,
		Applied:           true,
		FromStatus:        order.Status,
		ObservedStatus:    observed,
		RecordedStatus:    enums.OrderStatusRefunded,
		DeliveredQuantity: deliveredOf(order.Quantity, remains),
		RefundAmount:      refund,
	}, nil
}

// applyPartialRefund settles an order that never fully completed. Only the
// delivered quantity counts toward the catalog and spend; the undelivered
// remainder is refunded. No referral or loyalty credit is earned on the
// delivered portion.
func (s *service) applyPartialRefund(ctx context.Context, tx *gorm.DB, order *models.Order, observed enums.OrderStatus, remains *int64) (*Outcome, error) {
	if order.RefundAmount != nil {
		s.metrics.IncRejected()
		s.logger.Warn(ctx, "refund after refund already applied, likely a reconciliation replay")
		return nil, errors.New(errors.CodeDoubleRefund, "order already refunded")
	}

	// A missing remains on a cancel means nothing was delivered.
	r := order.Quantity
	if remains != nil {
		r = *remains
	}
	if r < 0 {
		r = 0
	}
	if r > order.Quantity {
		r = order.Quantity
	}

	done := order.Quantity - r
	refund := prorated(order.SellCharge, r, order.Quantity)
	spend := order.SellCharge.Sub(refund)

	if err := s.accounts.WithTx(tx).ApplyDeltas(ctx, order.AccountEmail, accounts.Deltas{
		Balance:    refund,
		TotalSpend: spend,
	}); err != nil {
		return nil, err
	}
	if done > 0 {
		if err := s.catalog.WithTx(tx).AddSoldQuantity(ctx, order.CatalogEntryID, done); err != nil {
			return nil, err
		}
	}

	if _, err := s.recordEvent(ctx, tx, order, ledger.RecordEventInput{
		Type:              enums.SettlementEventTypePartialRefund,
		FromStatus:        order.Status,
		ToStatus:          observed,
		RecordedStatus:    enums.OrderStatusRefunded,
		DeliveredQuantity: done,
		RefundAmount:      refund,
		SpendDelta:        spend,
		CatalogDelta:      done,
	}); err != nil {
		return nil, err
	}

	if err := s.orders.WithTx(tx).Settle(ctx, order.ID, orders.SettleUpdate{
		Status:       enums.OrderStatusRefunded,
		RefundAmount: &refund,
		Remains:      &r,
	}); err != nil {
		return nil, err
	}

	s.metrics.IncRefund()
	return &Outcome{
		OrderID:           order.ID,
		Applied:           true,
		FromStatus:        order.Status,
		ObservedStatus:    observed,
		RecordedStatus:    enums.OrderStatusRefunded,
		DeliveredQuantity: done,
		RefundAmount:      refund,
	}, nil
}

// applyProgress records a non-terminal status observation.
func (s *service) applyProgress(ctx context.Context, tx *gorm.DB, order *models.Order, observed enums.OrderStatus, remains *int64) (*Outcome, error) {
	if order.Status.IsAccounted() {
		s.metrics.IncRejected()
		return nil, errors.New(errors.CodeStateConflict,
			fmt.Sprintf("order already settled as %s, ignoring %s", order.Status, observed))
	}

	if _, err := s.recordEvent(ctx, tx, order, ledger.RecordEventInput{
		Type:           enums.SettlementEventTypeStatusOnlyUpdate,
		FromStatus:     order.Status,
		ToStatus:       observed,
		RecordedStatus: observed,
	}); err != nil {
		return nil, err
	}
	if err := s.orders.WithTx(tx).UpdateProgress(ctx, order.ID, observed, remains); err != nil {
		return nil, err
	}

	return &Outcome{
		OrderID:        order.ID,
		Applied:        true,
		FromStatus:     order.Status,
		ObservedStatus: observed,
		RecordedStatus: observed,
	}, nil
}

func (s *service) recordEvent(ctx context.Context, tx *gorm.DB, order *models.Order, input ledger.RecordEventInput) (*models.SettlementEvent, error) {
	input.OrderID = order.ID
	svc, err := ledger.NewService(s.ledger.WithTx(tx))
	if err != nil {
		return nil, err
	}
	return svc.Record(ctx, input)
}

// finish emits the per-transition metric and notification after commit.
func (s *service) finish(ctx context.Context, outcome *Outcome) {
	if outcome == nil || !outcome.Applied {
		return
	}
	s.metrics.IncTransition(outcome.RecordedStatus.String())
	if s.notifier == nil {
		return
	}
	channel := enums.NotifyChannelFulfillment
	if !outcome.RefundAmount.IsZero() {
		channel = enums.NotifyChannelFinance
	}
	s.notifier.Notify(ctx, channel, fmt.Sprintf(
		"order #%d: %s -> %s, delivered %d, refund %s",
		outcome.OrderID,
		outcome.FromStatus,
		outcome.RecordedStatus,
		outcome.DeliveredQuantity,
		outcome.RefundAmount.StringFixed(2),
	))
}

// prorated returns charge * remains / quantity at money precision.
func prorated(charge decimal.Decimal, remains, quantity int64) decimal.Decimal {
	if quantity <= 0 {
		return charge
	}
	return charge.
		Mul(decimal.NewFromInt(remains)).
		Div(decimal.NewFromInt(quantity)).
		Round(moneyScale)
}

func deliveredOf(quantity int64, remains *int64) int64 {
	if remains == nil {
		return 0
	}
	done := quantity - *remains
	if done < 0 {
		return 0
	}
	return done
}

func remainsPtr(v int64) *int64 {
	return &v
}
