package settlement

import (
	"context"
	"fmt"

	"github.com/zawlinn/boostline-backend/internal/notify"
	"github.com/zawlinn/boostline-backend/internal/orders"
	"github.com/zawlinn/boostline-backend/pkg/config"
	"github.com/zawlinn/boostline-backend/pkg/db/models"
	"github.com/zawlinn/boostline-backend/pkg/enums"
	"github.com/zawlinn/boostline-backend/pkg/logger"
	"github.com/zawlinn/boostline-backend/pkg/provider"
)

// StatusFetcher is the slice of the provider client the poller needs.
type StatusFetcher interface {
	StatusBatch(ctx context.Context, providerOrderIDs []string) (map[string]provider.StatusInfo, error)
}

// Reconciler polls provider status for outstanding orders and feeds observed
// transitions into the settlement service.
type Reconciler interface {
	// Reconcile runs one polling cycle. A failed batch or a bad record is
	// logged and skipped; it never stops the remaining batches.
	Reconcile(ctx context.Context) (ReconcileStats, error)
}

// ReconcileStats summarizes one polling cycle.
type ReconcileStats struct {
	Polled      int
	Transitions int
	Failures    int
}

// ReconcilerParams wires the poller dependencies.
type ReconcilerParams struct {
	Orders     orders.Repository
	Provider   StatusFetcher
	Settlement Service
	Logger     *logger.Logger
	Config     config.SettlementConfig
	// Notifier is optional; when set, statuses the poller cannot map are
	// raised to the fulfillment channel for manual review.
	Notifier notify.Notifier
}

type reconciler struct {
	orders     orders.Repository
	provider   StatusFetcher
	settlement Service
	logger     *logger.Logger
	cfg        config.SettlementConfig
	notifier   notify.Notifier
}

// NewReconciler builds the status reconciliation poller.
func NewReconciler(params ReconcilerParams) (Reconciler, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository is required")
	}
	if params.Provider == nil {
		return nil, fmt.Errorf("provider client is required")
	}
	if params.Settlement == nil {
		return nil, fmt.Errorf("settlement service is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &reconciler{
		orders:     params.Orders,
		provider:   params.Provider,
		settlement: params.Settlement,
		logger:     params.Logger,
		cfg:        params.Config,
		notifier:   params.Notifier,
	}, nil
}

func (r *reconciler) Reconcile(ctx context.Context) (ReconcileStats, error) {
	var stats ReconcileStats

	outstanding, err := r.orders.FindOutstanding(ctx)
	if err != nil {
		return stats, err
	}
	if len(outstanding) == 0 {
		return stats, nil
	}

	byProviderID := make(map[string]*models.Order, len(outstanding))
	ids := make([]string, 0, len(outstanding))
	for i := range outstanding {
		order := &outstanding[i]
		if order.ProviderOrderID == nil {
			continue
		}
		byProviderID[*order.ProviderOrderID] = order
		ids = append(ids, *order.ProviderOrderID)
	}

	batchSize := r.cfg.StatusBatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	for start := 0; start < len(ids); start += batchSize {
		end := start + batchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]

		statuses, err := r.provider.StatusBatch(ctx, batch)
		if err != nil {
			// No new information for this batch; the others still run.
			r.logger.Error(ctx, "status batch failed, skipping batch", err)
			stats.Failures++
			continue
		}

		for providerID, info := range statuses {
			order, ok := byProviderID[providerID]
			if !ok {
				continue
			}
			stats.Polled++
			applied, err := r.reconcileOne(ctx, order, info)
			if err != nil {
				octx := r.logger.WithOrderID(ctx, order.ID)
				r.logger.Error(octx, "failed to reconcile order status", err)
				stats.Failures++
				continue
			}
			if applied {
				stats.Transitions++
			}
		}
	}

	return stats, nil
}

func (r *reconciler) reconcileOne(ctx context.Context, order *models.Order, info provider.StatusInfo) (bool, error) {
	observed, err := provider.MapRemoteStatus(info.Status)
	if err != nil {
		// Unknown upstream status is a data-integrity signal, surfaced
		// instead of silently dropped.
		if r.notifier != nil {
			r.notifier.Notify(ctx, enums.NotifyChannelFulfillment, fmt.Sprintf(
				"order #%d: provider reports unknown status %q, manual review needed", order.ID, info.Status))
		}
		return false, err
	}

	if observed == order.Status {
		if remainsChanged(order.Remains, info.Remains) {
			return false, r.orders.UpdateProgress(ctx, order.ID, order.Status, info.Remains)
		}
		return false, nil
	}

	outcome, err := r.settlement.Apply(ctx, order.ID, observed, info.Remains)
	if err != nil {
		return false, err
	}
	return outcome.Applied, nil
}

func remainsChanged(current, observed *int64) bool {
	if observed == nil {
		return false
	}
	return current == nil || *current != *observed
}
