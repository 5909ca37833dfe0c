package support

import (
	"context"
	"fmt"

	"github.com/zawlinn/boostline-backend/internal/notify"
	"github.com/zawlinn/boostline-backend/internal/orders"
	"github.com/zawlinn/boostline-backend/pkg/db/models"
	"github.com/zawlinn/boostline-backend/pkg/enums"
	"github.com/zawlinn/boostline-backend/pkg/logger"
)

// ProviderSupport is the slice of the provider client the ticket worker
// needs.
type ProviderSupport interface {
	RequestRefill(ctx context.Context, providerOrderID string) (string, error)
	RequestCancel(ctx context.Context, providerOrderID string) (string, error)
}

// Service processes customer support tickets. Refill and cancel requests on
// provider-backed orders are forwarded upstream; everything else is handed
// to an operator.
type Service interface {
	// ProcessPending runs one cycle over unhandled tickets. A failure on
	// one ticket never stops the rest.
	ProcessPending(ctx context.Context) (ProcessStats, error)
}

// ProcessStats summarizes one ticket cycle.
type ProcessStats struct {
	Forwarded int
	Escalated int
	Failures  int
}

// ServiceParams wires the ticket worker dependencies.
type ServiceParams struct {
	Repo     Repository
	Orders   orders.Repository
	Provider ProviderSupport
	Notifier notify.Notifier
	Logger   *logger.Logger
}

type service struct {
	repo     Repository
	orders   orders.Repository
	provider ProviderSupport
	notifier notify.Notifier
	logger   *logger.Logger
}

// NewService builds the ticket worker service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("support repository is required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository is required")
	}
	if params.Provider == nil {
		return nil, fmt.Errorf("provider client is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		repo:     params.Repo,
		orders:   params.Orders,
		provider: params.Provider,
		notifier: params.Notifier,
		logger:   params.Logger,
	}, nil
}

func (s *service) ProcessPending(ctx context.Context) (ProcessStats, error) {
	var stats ProcessStats

	tickets, err := s.repo.FindUnhandled(ctx)
	if err != nil {
		return stats, err
	}

	for i := range tickets {
		ticket := tickets[i]
		tctx := s.logger.WithOrderID(ctx, ticket.OrderID)

		forwarded, err := s.handle(tctx, ticket)
		if err != nil {
			s.logger.Error(tctx, "failed to process support ticket", err)
			stats.Failures++
			continue
		}
		if forwarded {
			stats.Forwarded++
		} else {
			stats.Escalated++
		}
	}
	return stats, nil
}

// handle reports whether the ticket was forwarded to the provider.
func (s *service) handle(ctx context.Context, ticket models.SupportTicket) (bool, error) {
	if ticket.Subject == enums.TicketSubjectRefill || ticket.Subject == enums.TicketSubjectCancel {
		order, err := s.orders.FindByID(ctx, ticket.OrderID)
		if err != nil {
			return false, err
		}
		if order.ProviderOrderID != nil {
			return true, s.forward(ctx, ticket, *order.ProviderOrderID)
		}
	}
	return false, s.escalate(ctx, ticket)
}

func (s *service) forward(ctx context.Context, ticket models.SupportTicket, providerOrderID string) error {
	var (
		ack string
		err error
	)
	switch ticket.Subject {
	case enums.TicketSubjectRefill:
		ack, err = s.provider.RequestRefill(ctx, providerOrderID)
	default:
		ack, err = s.provider.RequestCancel(ctx, providerOrderID)
	}
	if err != nil {
		return err
	}

	if err := s.repo.SaveReply(ctx, ticket.ID, ack, enums.TicketStatusReplied); err != nil {
		return err
	}
	if s.notifier != nil {
		s.notifier.Notify(ctx, enums.NotifyChannelSupport, fmt.Sprintf(
			"ticket #%d (%s, order #%d) forwarded to provider: %s",
			ticket.ID, ticket.Subject, ticket.OrderID, ack))
	}
	return nil
}

// escalate hands a ticket to an operator. The reply marker keeps the next
// cycle from announcing it again.
func (s *service) escalate(ctx context.Context, ticket models.SupportTicket) error {
	if err := s.repo.SaveReply(ctx, ticket.ID, "escalated to operator", enums.TicketStatusPending); err != nil {
		return err
	}
	if s.notifier != nil {
		s.notifier.Notify(ctx, enums.NotifyChannelSupport, fmt.Sprintf(
			"ticket #%d (%s, order #%d) needs an operator: %s",
			ticket.ID, ticket.Subject, ticket.OrderID, ticket.Body))
	}
	return nil
}
