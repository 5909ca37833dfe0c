package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/zawlinn/boostline-backend/internal/orders"
	"github.com/zawlinn/boostline-backend/pkg/logger"
)

// DispatchJobParams configure the order submission worker.
type DispatchJobParams struct {
	Logger   *logger.Logger
	Orders   orders.Service
	Interval time.Duration
}

// NewDispatchJob builds the job that submits pending orders to the provider.
func NewDispatchJob(params DispatchJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	return &dispatchJob{
		logg:     params.Logger,
		orders:   params.Orders,
		interval: params.Interval,
	}, nil
}

type dispatchJob struct {
	logg     *logger.Logger
	orders   orders.Service
	interval time.Duration
}

func (j *dispatchJob) Name() string            { return "order-dispatch" }
func (j *dispatchJob) Interval() time.Duration { return j.interval }

func (j *dispatchJob) Run(ctx context.Context) error {
	stats, err := j.orders.DispatchPending(ctx)
	if err != nil {
		return fmt.Errorf("dispatch pending orders: %w", err)
	}
	if stats.Submitted+stats.Manual+stats.Rejected+stats.Deferred > 0 {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"submitted": stats.Submitted,
			"manual":    stats.Manual,
			"rejected":  stats.Rejected,
			"deferred":  stats.Deferred,
		})
		j.logg.Info(logCtx, "dispatch cycle complete")
	}
	return nil
}
