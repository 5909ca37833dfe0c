package orders

import (
	"context"
	"fmt"

	"github.com/zawlinn/boostline-backend/internal/catalog"
	"github.com/zawlinn/boostline-backend/internal/notify"
	"github.com/zawlinn/boostline-backend/pkg/config"
	"github.com/zawlinn/boostline-backend/pkg/db/models"
	"github.com/zawlinn/boostline-backend/pkg/enums"
	"github.com/zawlinn/boostline-backend/pkg/errors"
	"github.com/zawlinn/boostline-backend/pkg/logger"
	"github.com/zawlinn/boostline-backend/pkg/provider"
)

// Submitter is the slice of the provider client the dispatcher needs.
type Submitter interface {
	Submit(ctx context.Context, params provider.SubmitParams) (string, error)
}

// RejectionRefunder is the slice of the settlement service the dispatcher
// needs when the provider refuses an order outright.
type RejectionRefunder interface {
	RefundRejection(ctx context.Context, orderID int64, reason string) error
}

// Service dispatches pending orders to the fulfillment provider or to the
// manual queue.
type Service interface {
	// DispatchPending runs one dispatch cycle over Pending orders that have
	// no provider order id yet. Failures on one order never stop the rest
	// of the batch.
	DispatchPending(ctx context.Context) (DispatchStats, error)
}

// DispatchStats summarizes one dispatch cycle.
type DispatchStats struct {
	Submitted int
	Manual    int
	Rejected  int
	Deferred  int
}

// ServiceParams wires the dispatcher dependencies.
type ServiceParams struct {
	Repo       Repository
	Catalog    catalog.Repository
	Provider   Submitter
	Settlement RejectionRefunder
	Notifier   notify.Notifier
	Logger     *logger.Logger
	Config     config.SettlementConfig
}

type service struct {
	repo       Repository
	catalog    catalog.Repository
	provider   Submitter
	settlement RejectionRefunder
	notifier   notify.Notifier
	logger     *logger.Logger
	cfg        config.SettlementConfig
}

// NewService builds the order dispatch service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository is required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog repository is required")
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
	return &service{
		repo:       params.Repo,
		catalog:    params.Catalog,
		provider:   params.Provider,
		settlement: params.Settlement,
		notifier:   params.Notifier,
		logger:     params.Logger,
		cfg:        params.Config,
	}, nil
}

func (s *service) DispatchPending(ctx context.Context) (DispatchStats, error) {
	var stats DispatchStats

	pending, err := s.repo.FindDispatchable(ctx, s.cfg.DispatchLimit)
	if err != nil {
		return stats, err
	}

	for i := range pending {
		order := pending[i]
		octx := s.logger.WithOrderID(ctx, order.ID)

		if order.FulfillmentMode == enums.FulfillmentModeManual {
			if err := s.routeManual(octx, order.ID, order.Quantity, order.Link); err != nil {
				s.logger.Error(octx, "failed to route order to manual queue", err)
				stats.Deferred++
				continue
			}
			stats.Manual++
			continue
		}

		switch err := s.submit(octx, &order); {
		case err == nil:
			stats.Submitted++
		case errors.HasCode(err, errors.CodeProviderRejected):
			s.logger.Warn(octx, "provider rejected order, refunding")
			if refundErr := s.settlement.RefundRejection(octx, order.ID, err.Error()); refundErr != nil {
				s.logger.Error(octx, "failed to refund rejected order", refundErr)
				stats.Deferred++
				continue
			}
			stats.Rejected++
		default:
			// Transport trouble is no new information; the order stays
			// Pending for the next cycle.
			s.logger.Error(octx, "submission failed, will retry next cycle", err)
			stats.Deferred++
		}
	}

	return stats, nil
}

func (s *service) submit(ctx context.Context, order *models.Order) error {
	entry, err := s.catalog.FindByID(ctx, order.CatalogEntryID)
	if err != nil {
		return err
	}

	providerOrderID, err := s.provider.Submit(ctx, provider.SubmitParams{
		ServiceID: entry.ProviderServiceID,
		Link:      order.Link,
		Quantity:  order.Quantity,
	})
	if err != nil {
		return err
	}

	ctx = s.logger.WithProviderOrderID(ctx, providerOrderID)
	if err := s.repo.MarkDispatched(ctx, order.ID, providerOrderID); err != nil {
		if errors.HasCode(err, errors.CodeStateConflict) {
			s.logger.Warn(ctx, "order was already dispatched, keeping first provider id")
			return nil
		}
		return err
	}

	s.logger.Info(ctx, "order submitted to provider")
	return nil
}

func (s *service) routeManual(ctx context.Context, orderID, quantity int64, link string) error {
	if err := s.repo.UpdateProgress(ctx, orderID, enums.OrderStatusProcessing, nil); err != nil {
		return err
	}
	if s.notifier != nil {
		s.notifier.Notify(ctx, enums.NotifyChannelFulfillment, fmt.Sprintf(
			"order #%d needs manual fulfillment: %d units to %s", orderID, quantity, link))
	}
	return nil
}
