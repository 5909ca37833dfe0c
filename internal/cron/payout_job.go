package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/zawlinn/boostline-backend/internal/payouts"
	"github.com/zawlinn/boostline-backend/pkg/logger"
)

// PayoutJobParams configure the referral payout worker.
type PayoutJobParams struct {
	Logger   *logger.Logger
	Payouts  payouts.Service
	Interval time.Duration
}

// NewPayoutJob builds the job that surfaces new withdrawal requests.
func NewPayoutJob(params PayoutJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Payouts == nil {
		return nil, fmt.Errorf("payouts service required")
	}
	return &payoutJob{
		logg:     params.Logger,
		payouts:  params.Payouts,
		interval: params.Interval,
	}, nil
}

type payoutJob struct {
	logg     *logger.Logger
	payouts  payouts.Service
	interval time.Duration
}

func (j *payoutJob) Name() string            { return "payout-announce" }
func (j *payoutJob) Interval() time.Duration { return j.interval }

func (j *payoutJob) Run(ctx context.Context) error {
	announced, err := j.payouts.AnnouncePending(ctx)
	if err != nil {
		return fmt.Errorf("announce pending payouts: %w", err)
	}
	if announced > 0 {
		logCtx := j.logg.WithField(ctx, "announced", announced)
		j.logg.Info(logCtx, "payout cycle complete")
	}
	return nil
}
