package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zawlinn/boostline-backend/internal/ledger"
	"github.com/zawlinn/boostline-backend/internal/settlement"
	"github.com/zawlinn/boostline-backend/pkg/db/models"
	"github.com/zawlinn/boostline-backend/pkg/enums"
	pkgerrors "github.com/zawlinn/boostline-backend/pkg/errors"
	"github.com/zawlinn/boostline-backend/pkg/logger"
)

type stubSettlement struct {
	completed []int64
	refunded  []int64
	outcome   *settlement.Outcome
	err       error
}

func (s *stubSettlement) Apply(ctx context.Context, orderID int64, observed enums.OrderStatus, remains *int64) (*settlement.Outcome, error) {
	return s.outcome, s.err
}

func (s *stubSettlement) RefundRejection(ctx context.Context, orderID int64, reason string) error {
	return s.err
}

func (s *stubSettlement) ManualComplete(ctx context.Context, orderID int64) (*settlement.Outcome, error) {
	s.completed = append(s.completed, orderID)
	return s.outcome, s.err
}

func (s *stubSettlement) ManualRefund(ctx context.Context, orderID int64) (*settlement.Outcome, error) {
	s.refunded = append(s.refunded, orderID)
	return s.outcome, s.err
}

type stubLedger struct {
	events []models.SettlementEvent
	err    error
}

func (s *stubLedger) Record(ctx context.Context, input ledger.RecordEventInput) (*models.SettlementEvent, error) {
	return nil, nil
}

func (s *stubLedger) FindTransition(ctx context.Context, orderID int64, from, to enums.OrderStatus) (*models.SettlementEvent, error) {
	return nil, nil
}

func (s *stubLedger) CompletionEvent(ctx context.Context, orderID int64) (*models.SettlementEvent, error) {
	return nil, nil
}

func (s *stubLedger) ListByOrderID(ctx context.Context, orderID int64) ([]models.SettlementEvent, error) {
	return s.events, s.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func orderRouter(svc settlement.Service, ledgerSvc ledger.Service) http.Handler {
	r := chi.NewRouter()
	r.Post("/orders/{orderId}/complete", OrderComplete(svc, testLogger()))
	r.Post("/orders/{orderId}/refund", OrderRefund(svc, testLogger()))
	r.Get("/orders/{orderId}/events", OrderEvents(ledgerSvc, testLogger()))
	return r
}

func TestOrderCompleteDelegates(t *testing.T) {
	svc := &stubSettlement{outcome: &settlement.Outcome{
		OrderID:           42,
		Applied:           true,
		FromStatus:        enums.OrderStatusProcessing,
		ObservedStatus:    enums.OrderStatusCompleted,
		RecordedStatus:    enums.OrderStatusCompleted,
		DeliveredQuantity: 1000,
	}}
	router := orderRouter(svc, &stubLedger{})

	req := httptest.NewRequest(http.MethodPost, "/orders/42/complete", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if len(svc.completed) != 1 || svc.completed[0] != 42 {
		t.Fatalf("expected manual complete for order 42, got %v", svc.completed)
	}

	var envelope struct {
		Data outcomeResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.RecordedStatus != "Completed" {
		t.Fatalf("expected recorded status Completed, got %s", envelope.Data.RecordedStatus)
	}
	if envelope.Data.DeliveredQuantity != 1000 {
		t.Fatalf("expected delivered 1000, got %d", envelope.Data.DeliveredQuantity)
	}
}

func TestOrderRefundMapsDoubleRefund(t *testing.T) {
	svc := &stubSettlement{err: pkgerrors.New(pkgerrors.CodeDoubleRefund, "order already refunded")}
	router := orderRouter(svc, &stubLedger{})

	req := httptest.NewRequest(http.MethodPost, "/orders/7/refund", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", rec.Code)
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeDoubleRefund) {
		t.Fatalf("expected DOUBLE_REFUND code, got %s", envelope.Error.Code)
	}
}

func TestOrderCompleteRejectsBadID(t *testing.T) {
	svc := &stubSettlement{}
	router := orderRouter(svc, &stubLedger{})

	req := httptest.NewRequest(http.MethodPost, "/orders/nope/complete", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if len(svc.completed) != 0 {
		t.Fatalf("service should not be called on bad id")
	}
}

func TestOrderEventsListsTrail(t *testing.T) {
	events := []models.SettlementEvent{
		{
			ID:             uuid.New(),
			OrderID:        42,
			Type:           enums.SettlementEventTypeCompletion,
			FromStatus:     enums.OrderStatusProcessing,
			ToStatus:       enums.OrderStatusCompleted,
			RecordedStatus: enums.OrderStatusCompleted,
			SpendDelta:     decimal.NewFromInt(50),
		},
	}
	router := orderRouter(&stubSettlement{}, &stubLedger{events: events})

	req := httptest.NewRequest(http.MethodGet, "/orders/42/events", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var envelope struct {
		Data []settlementEventResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data) != 1 {
		t.Fatalf("expected 1 event, got %d", len(envelope.Data))
	}
	if envelope.Data[0].Type != "completion" {
		t.Fatalf("expected completion event, got %s", envelope.Data[0].Type)
	}
}
