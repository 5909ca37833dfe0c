package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/zawlinn/boostline-backend/internal/support"
	"github.com/zawlinn/boostline-backend/pkg/logger"
)

// TicketJobParams configure the support ticket worker.
type TicketJobParams struct {
	Logger   *logger.Logger
	Support  support.Service
	Interval time.Duration
}

// NewTicketJob builds the job that processes pending support tickets.
func NewTicketJob(params TicketJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Support == nil {
		return nil, fmt.Errorf("support service required")
	}
	return &ticketJob{
		logg:     params.Logger,
		support:  params.Support,
		interval: params.Interval,
	}, nil
}

type ticketJob struct {
	logg     *logger.Logger
	support  support.Service
	interval time.Duration
}

func (j *ticketJob) Name() string            { return "ticket-process" }
func (j *ticketJob) Interval() time.Duration { return j.interval }

func (j *ticketJob) Run(ctx context.Context) error {
	stats, err := j.support.ProcessPending(ctx)
	if err != nil {
		return fmt.Errorf("process pending tickets: %w", err)
	}
	if stats.Forwarded+stats.Escalated+stats.Failures > 0 {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"forwarded": stats.Forwarded,
			"escalated": stats.Escalated,
			"failures":  stats.Failures,
		})
		j.logg.Info(logCtx, "ticket cycle complete")
	}
	return nil
}
