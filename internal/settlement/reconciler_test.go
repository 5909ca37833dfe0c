package settlement

import (
	"context"
	"io"
	"testing"

	"gorm.io/gorm"

	"github.com/zawlinn/boostline-backend/internal/orders"
	"github.com/zawlinn/boostline-backend/pkg/config"
	"github.com/zawlinn/boostline-backend/pkg/db/models"
	"github.com/zawlinn/boostline-backend/pkg/enums"
	"github.com/zawlinn/boostline-backend/pkg/errors"
	"github.com/zawlinn/boostline-backend/pkg/logger"
	"github.com/zawlinn/boostline-backend/pkg/provider"
)

type fakeOutstandingRepo struct {
	outstanding []models.Order
	progressed  map[int64]*int64
}

func (f *fakeOutstandingRepo) WithTx(tx *gorm.DB) orders.Repository { return f }

func (f *fakeOutstandingRepo) FindByID(ctx context.Context, orderID int64) (*models.Order, error) {
	for i := range f.outstanding {
		if f.outstanding[i].ID == orderID {
			return &f.outstanding[i], nil
		}
	}
	return nil, errors.New(errors.CodeNotFound, "order not found")
}

func (f *fakeOutstandingRepo) FindDispatchable(ctx context.Context, limit int) ([]models.Order, error) {
	return nil, nil
}

func (f *fakeOutstandingRepo) FindOutstanding(ctx context.Context) ([]models.Order, error) {
	return f.outstanding, nil
}

func (f *fakeOutstandingRepo) MarkDispatched(ctx context.Context, orderID int64, providerOrderID string) error {
	return nil
}

func (f *fakeOutstandingRepo) UpdateProgress(ctx context.Context, orderID int64, status enums.OrderStatus, remains *int64) error {
	if f.progressed == nil {
		f.progressed = map[int64]*int64{}
	}
	f.progressed[orderID] = remains
	return nil
}

func (f *fakeOutstandingRepo) Settle(ctx context.Context, orderID int64, settle orders.SettleUpdate) error {
	return nil
}

type fetchCall struct {
	ids []string
}

type fakeFetcher struct {
	responses map[string]provider.StatusInfo
	failIDs   map[string]bool
	calls     []fetchCall
}

func (f *fakeFetcher) StatusBatch(ctx context.Context, providerOrderIDs []string) (map[string]provider.StatusInfo, error) {
	f.calls = append(f.calls, fetchCall{ids: providerOrderIDs})
	out := map[string]provider.StatusInfo{}
	for _, id := range providerOrderIDs {
		if f.failIDs[id] {
			return nil, errors.New(errors.CodeDependency, "provider timeout")
		}
		if info, ok := f.responses[id]; ok {
			out[id] = info
		}
	}
	return out, nil
}

type appliedCall struct {
	orderID  int64
	observed enums.OrderStatus
}

type recordingSettlement struct {
	applied []appliedCall
}

func (r *recordingSettlement) Apply(ctx context.Context, orderID int64, observed enums.OrderStatus, remains *int64) (*Outcome, error) {
	r.applied = append(r.applied, appliedCall{orderID: orderID, observed: observed})
	return &Outcome{OrderID: orderID, Applied: true, ObservedStatus: observed}, nil
}

func (r *recordingSettlement) RefundRejection(ctx context.Context, orderID int64, reason string) error {
	return nil
}

func (r *recordingSettlement) ManualComplete(ctx context.Context, orderID int64) (*Outcome, error) {
	return nil, nil
}

func (r *recordingSettlement) ManualRefund(ctx context.Context, orderID int64) (*Outcome, error) {
	return nil, nil
}

func outstandingOrder(id int64, providerID string, status enums.OrderStatus) models.Order {
	return models.Order{
		ID:              id,
		Status:          status,
		FulfillmentMode: enums.FulfillmentModeProvider,
		ProviderOrderID: &providerID,
		Quantity:        1000,
	}
}

func newTestReconciler(t *testing.T, repo *fakeOutstandingRepo, fetcher *fakeFetcher, stl Service, batchSize int) Reconciler {
	t.Helper()
	rec, err := NewReconciler(ReconcilerParams{
		Orders:     repo,
		Provider:   fetcher,
		Settlement: stl,
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Config:     config.SettlementConfig{StatusBatchSize: batchSize},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return rec
}

func TestReconcileAppliesChangedStatus(t *testing.T) {
	repo := &fakeOutstandingRepo{outstanding: []models.Order{
		outstandingOrder(1, "9001", enums.OrderStatusProcessing),
	}}
	remains := int64(0)
	fetcher := &fakeFetcher{responses: map[string]provider.StatusInfo{
		"9001": {Status: "Completed", Remains: &remains},
	}}
	stl := &recordingSettlement{}
	rec := newTestReconciler(t, repo, fetcher, stl, 100)

	stats, err := rec.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Transitions != 1 {
		t.Fatalf("expected 1 transition, got %+v", stats)
	}
	if len(stl.applied) != 1 || stl.applied[0].observed != enums.OrderStatusCompleted {
		t.Fatalf("unexpected applied calls: %+v", stl.applied)
	}
}

func TestReconcileUnchangedStatusUpdatesRemainsOnly(t *testing.T) {
	repo := &fakeOutstandingRepo{outstanding: []models.Order{
		outstandingOrder(2, "9002", enums.OrderStatusProcessing),
	}}
	remains := int64(250)
	fetcher := &fakeFetcher{responses: map[string]provider.StatusInfo{
		"9002": {Status: "In progress", Remains: &remains},
	}}
	stl := &recordingSettlement{}
	rec := newTestReconciler(t, repo, fetcher, stl, 100)

	stats, err := rec.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Transitions != 0 {
		t.Fatalf("expected no transitions, got %+v", stats)
	}
	if len(stl.applied) != 0 {
		t.Fatalf("unchanged status must not hit the settlement service: %+v", stl.applied)
	}
	if got, ok := repo.progressed[2]; !ok || got == nil || *got != 250 {
		t.Fatalf("remains not persisted: %v", repo.progressed)
	}
}

func TestReconcileBatchIsolation(t *testing.T) {
	repo := &fakeOutstandingRepo{outstanding: []models.Order{
		outstandingOrder(1, "9001", enums.OrderStatusProcessing),
		outstandingOrder(2, "9002", enums.OrderStatusProcessing),
		outstandingOrder(3, "9003", enums.OrderStatusProcessing),
	}}
	zero := int64(0)
	fetcher := &fakeFetcher{
		responses: map[string]provider.StatusInfo{
			"9001": {Status: "Completed", Remains: &zero},
			"9003": {Status: "Completed", Remains: &zero},
		},
		failIDs: map[string]bool{"9002": true},
	}
	stl := &recordingSettlement{}
	// Batch size 1: order 2's batch fails, 1 and 3 still settle.
	rec := newTestReconciler(t, repo, fetcher, stl, 1)

	stats, err := rec.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fetcher.calls) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(fetcher.calls))
	}
	if stats.Failures != 1 || stats.Transitions != 2 {
		t.Fatalf("expected 1 failed batch and 2 transitions, got %+v", stats)
	}
}

func TestReconcileUnknownStatusSurfaces(t *testing.T) {
	repo := &fakeOutstandingRepo{outstanding: []models.Order{
		outstandingOrder(4, "9004", enums.OrderStatusProcessing),
	}}
	fetcher := &fakeFetcher{responses: map[string]provider.StatusInfo{
		"9004": {Status: "Transmogrified"},
	}}
	stl := &recordingSettlement{}
	notifier := &fakeNotifier{}
	rec, err := NewReconciler(ReconcilerParams{
		Orders:     repo,
		Provider:   fetcher,
		Settlement: stl,
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Config:     config.SettlementConfig{StatusBatchSize: 100},
		Notifier:   notifier,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats, err := rec.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Failures != 1 {
		t.Fatalf("unknown status must count as failure, got %+v", stats)
	}
	if len(stl.applied) != 0 {
		t.Fatalf("unknown status must not reach the settlement service: %+v", stl.applied)
	}
	if len(notifier.notes) != 1 || notifier.notes[0].channel != enums.NotifyChannelFulfillment {
		t.Fatalf("unknown status must raise a fulfillment note: %+v", notifier.notes)
	}
}

func TestReconcileMissingIDIsNoUpdate(t *testing.T) {
	repo := &fakeOutstandingRepo{outstanding: []models.Order{
		outstandingOrder(5, "9005", enums.OrderStatusProcessing),
		outstandingOrder(6, "9006", enums.OrderStatusProcessing),
	}}
	zero := int64(0)
	// The provider answers only for 9006; 9005 just waits for the next cycle.
	fetcher := &fakeFetcher{responses: map[string]provider.StatusInfo{
		"9006": {Status: "Completed", Remains: &zero},
	}}
	stl := &recordingSettlement{}
	rec := newTestReconciler(t, repo, fetcher, stl, 100)

	stats, err := rec.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Polled != 1 || stats.Transitions != 1 || stats.Failures != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
