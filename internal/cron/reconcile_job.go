package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/zawlinn/boostline-backend/internal/settlement"
	"github.com/zawlinn/boostline-backend/pkg/logger"
)

// ReconcileJobParams configure the status polling worker.
type ReconcileJobParams struct {
	Logger     *logger.Logger
	Reconciler settlement.Reconciler
	Interval   time.Duration
}

// NewReconcileJob builds the job that polls provider status for outstanding
// orders.
func NewReconcileJob(params ReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reconciler == nil {
		return nil, fmt.Errorf("reconciler required")
	}
	return &reconcileJob{
		logg:       params.Logger,
		reconciler: params.Reconciler,
		interval:   params.Interval,
	}, nil
}

type reconcileJob struct {
	logg       *logger.Logger
	reconciler settlement.Reconciler
	interval   time.Duration
}

func (j *reconcileJob) Name() string            { return "status-reconcile" }
func (j *reconcileJob) Interval() time.Duration { return j.interval }

func (j *reconcileJob) Run(ctx context.Context) error {
	stats, err := j.reconciler.Reconcile(ctx)
	if err != nil {
		return fmt.Errorf("reconcile outstanding orders: %w", err)
	}
	if stats.Polled > 0 {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"polled":      stats.Polled,
			"transitions": stats.Transitions,
			"failures":    stats.Failures,
		})
		j.logg.Info(logCtx, "reconcile cycle complete")
	}
	return nil
}
