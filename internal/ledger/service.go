package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zawlinn/boostline-backend/pkg/db/models"
	"github.com/zawlinn/boostline-backend/pkg/enums"
)

// Service records and queries the settlement audit trail.
type Service interface {
	Record(ctx context.Context, input RecordEventInput) (*models.SettlementEvent, error)
	// FindTransition returns the event for a (order, from, to) pair if it was
	// already applied, nil otherwise.
	FindTransition(ctx context.Context, orderID int64, from, to enums.OrderStatus) (*models.SettlementEvent, error)
	// CompletionEvent returns the completion event for the order, nil if it
	// never completed.
	CompletionEvent(ctx context.Context, orderID int64) (*models.SettlementEvent, error)
	ListByOrderID(ctx context.Context, orderID int64) ([]models.SettlementEvent, error)
}

type service struct {
	repo Repository
}

// RecordEventInput captures the immutable data a settlement event requires.
type RecordEventInput struct {
	OrderID           int64
	Type              enums.SettlementEventType
	FromStatus        enums.OrderStatus
	ToStatus          enums.OrderStatus
	RecordedStatus    enums.OrderStatus
	DeliveredQuantity int64
	RefundAmount      decimal.Decimal
	SpendDelta        decimal.Decimal
	CatalogDelta      int64
	ReferralDelta     decimal.Decimal
	LoyaltyDelta      decimal.Decimal
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Record(ctx context.Context, input RecordEventInput) (*models.SettlementEvent, error) {
	if input.OrderID == 0 {
		return nil, fmt.Errorf("order id is required")
	}
	if !input.Type.IsValid() {
		return nil, fmt.Errorf("invalid settlement event type %q", input.Type)
	}
	if !input.FromStatus.IsValid() || !input.ToStatus.IsValid() || !input.RecordedStatus.IsValid() {
		return nil, fmt.Errorf("invalid status in settlement event for order %d", input.OrderID)
	}

	event := &models.SettlementEvent{
		ID:                uuid.New(),
		OrderID:           input.OrderID,
		Type:              input.Type,
		FromStatus:        input.FromStatus,
		ToStatus:          input.ToStatus,
		RecordedStatus:    input.RecordedStatus,
		DeliveredQuantity: input.DeliveredQuantity,
		RefundAmount:      input.RefundAmount,
		SpendDelta:        input.SpendDelta,
		CatalogDelta:      input.CatalogDelta,
		ReferralDelta:     input.ReferralDelta,
		LoyaltyDelta:      input.LoyaltyDelta,
	}

	if err := s.repo.Create(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *service) FindTransition(ctx context.Context, orderID int64, from, to enums.OrderStatus) (*models.SettlementEvent, error) {
	if orderID == 0 {
		return nil, fmt.Errorf("order id is required")
	}
	return s.repo.FindTransition(ctx, orderID, from, to)
}

func (s *service) ListByOrderID(ctx context.Context, orderID int64) ([]models.SettlementEvent, error) {
	if orderID == 0 {
		return nil, fmt.Errorf("order id is required")
	}
	return s.repo.ListByOrderID(ctx, orderID)
}

func (s *service) CompletionEvent(ctx context.Context, orderID int64) (*models.SettlementEvent, error) {
	events, err := s.repo.ListByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	for i := range events {
		if events[i].Type == enums.SettlementEventTypeCompletion {
			return &events[i], nil
		}
	}
	return nil, nil
}
