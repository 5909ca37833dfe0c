package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/zawlinn/boostline-backend/internal/payments"
	"github.com/zawlinn/boostline-backend/pkg/logger"
)

// PaymentVerifyJobParams configure the top-up verification worker.
type PaymentVerifyJobParams struct {
	Logger   *logger.Logger
	Payments payments.Service
	Interval time.Duration
}

// NewPaymentVerifyJob builds the job that matches declared top-ups against
// payment proofs.
func NewPaymentVerifyJob(params PaymentVerifyJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payments service required")
	}
	return &paymentVerifyJob{
		logg:     params.Logger,
		payments: params.Payments,
		interval: params.Interval,
	}, nil
}

type paymentVerifyJob struct {
	logg     *logger.Logger
	payments payments.Service
	interval time.Duration
}

func (j *paymentVerifyJob) Name() string            { return "payment-verify" }
func (j *paymentVerifyJob) Interval() time.Duration { return j.interval }

func (j *paymentVerifyJob) Run(ctx context.Context) error {
	stats, err := j.payments.VerifyPending(ctx)
	if err != nil {
		return fmt.Errorf("verify pending top-ups: %w", err)
	}
	if stats.Matched+stats.Flagged > 0 {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"matched": stats.Matched,
			"flagged": stats.Flagged,
		})
		j.logg.Info(logCtx, "payment verification cycle complete")
	}
	return nil
}
