package orders

import (
	"context"
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/zawlinn/boostline-backend/internal/catalog"
	"github.com/zawlinn/boostline-backend/pkg/config"
	"github.com/zawlinn/boostline-backend/pkg/db/models"
	"github.com/zawlinn/boostline-backend/pkg/enums"
	"github.com/zawlinn/boostline-backend/pkg/errors"
	"github.com/zawlinn/boostline-backend/pkg/logger"
	"github.com/zawlinn/boostline-backend/pkg/provider"
)

type fakeOrdersRepo struct {
	dispatchable []models.Order
	dispatched   map[int64]string
	progressed   map[int64]enums.OrderStatus
	markErr      error
}

func newFakeOrdersRepo(orders ...models.Order) *fakeOrdersRepo {
	return &fakeOrdersRepo{
		dispatchable: orders,
		dispatched:   map[int64]string{},
		progressed:   map[int64]enums.OrderStatus{},
	}
}

func (f *fakeOrdersRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeOrdersRepo) FindByID(ctx context.Context, orderID int64) (*models.Order, error) {
	for i := range f.dispatchable {
		if f.dispatchable[i].ID == orderID {
			return &f.dispatchable[i], nil
		}
	}
	return nil, errors.New(errors.CodeNotFound, "order not found")
}

func (f *fakeOrdersRepo) FindDispatchable(ctx context.Context, limit int) ([]models.Order, error) {
	return f.dispatchable, nil
}

func (f *fakeOrdersRepo) FindOutstanding(ctx context.Context) ([]models.Order, error) {
	return nil, nil
}

func (f *fakeOrdersRepo) MarkDispatched(ctx context.Context, orderID int64, providerOrderID string) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.dispatched[orderID] = providerOrderID
	return nil
}

func (f *fakeOrdersRepo) UpdateProgress(ctx context.Context, orderID int64, status enums.OrderStatus, remains *int64) error {
	f.progressed[orderID] = status
	return nil
}

func (f *fakeOrdersRepo) Settle(ctx context.Context, orderID int64, settle SettleUpdate) error {
	return nil
}

type stubCatalogRepo struct{}

func (stubCatalogRepo) WithTx(tx *gorm.DB) catalog.Repository { return stubCatalogRepo{} }

func (stubCatalogRepo) FindByID(ctx context.Context, entryID int64) (*models.CatalogEntry, error) {
	return &models.CatalogEntry{ID: entryID, ProviderServiceID: "1077"}, nil
}

func (stubCatalogRepo) List(ctx context.Context) ([]models.CatalogEntry, error) { return nil, nil }

func (stubCatalogRepo) AddSoldQuantity(ctx context.Context, entryID int64, delta int64) error {
	return nil
}

func (stubCatalogRepo) UpdateBuyPrice(ctx context.Context, entryID int64, buyPrice decimal.Decimal) error {
	return nil
}

func (stubCatalogRepo) ExistingProviderServiceIDs(ctx context.Context) (map[string]bool, error) {
	return nil, nil
}

func (stubCatalogRepo) InsertBatch(ctx context.Context, entries []models.CatalogEntry) ([]models.CatalogEntry, error) {
	return entries, nil
}

type fakeSubmitter struct {
	results map[string]string
	errs    map[string]error
	calls   []provider.SubmitParams
}

func (f *fakeSubmitter) Submit(ctx context.Context, params provider.SubmitParams) (string, error) {
	f.calls = append(f.calls, params)
	if err, ok := f.errs[params.Link]; ok {
		return "", err
	}
	return f.results[params.Link], nil
}

type fakeSettlement struct {
	refunded []int64
}

func (f *fakeSettlement) RefundRejection(ctx context.Context, orderID int64, reason string) error {
	f.refunded = append(f.refunded, orderID)
	return nil
}

type fakeDispatchNotifier struct {
	messages []string
}

func (f *fakeDispatchNotifier) Notify(ctx context.Context, channel enums.NotifyChannel, message string) {
	f.messages = append(f.messages, message)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func pendingOrder(id int64, link string, mode enums.FulfillmentMode) models.Order {
	return models.Order{
		ID:              id,
		AccountEmail:    "buyer@example.com",
		CatalogEntryID:  1,
		Quantity:        100,
		Link:            link,
		SellCharge:      decimal.NewFromInt(5),
		Status:          enums.OrderStatusPending,
		FulfillmentMode: mode,
	}
}

func newDispatcher(t *testing.T, repo *fakeOrdersRepo, submitter *fakeSubmitter, stl *fakeSettlement, notifier *fakeDispatchNotifier) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:       repo,
		Catalog:    stubCatalogRepo{},
		Provider:   submitter,
		Settlement: stl,
		Notifier:   notifier,
		Logger:     testLogger(),
		Config:     config.SettlementConfig{DispatchLimit: 50},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return svc
}

func TestDispatchPendingSubmits(t *testing.T) {
	repo := newFakeOrdersRepo(pendingOrder(1, "https://x/1", enums.FulfillmentModeProvider))
	submitter := &fakeSubmitter{results: map[string]string{"https://x/1": "9001"}}
	svc := newDispatcher(t, repo, submitter, &fakeSettlement{}, &fakeDispatchNotifier{})

	stats, err := svc.DispatchPending(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Submitted != 1 {
		t.Fatalf("expected 1 submitted, got %+v", stats)
	}
	if repo.dispatched[1] != "9001" {
		t.Fatalf("provider order id not recorded: %v", repo.dispatched)
	}
	if len(submitter.calls) != 1 || submitter.calls[0].ServiceID != "1077" {
		t.Fatalf("unexpected submit calls: %+v", submitter.calls)
	}
}

func TestDispatchPendingRejectionRefunds(t *testing.T) {
	repo := newFakeOrdersRepo(pendingOrder(2, "https://x/2", enums.FulfillmentModeProvider))
	submitter := &fakeSubmitter{errs: map[string]error{
		"https://x/2": errors.New(errors.CodeProviderRejected, "neworder is disabled"),
	}}
	stl := &fakeSettlement{}
	svc := newDispatcher(t, repo, submitter, stl, &fakeDispatchNotifier{})

	stats, err := svc.DispatchPending(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Rejected != 1 {
		t.Fatalf("expected 1 rejected, got %+v", stats)
	}
	if len(stl.refunded) != 1 || stl.refunded[0] != 2 {
		t.Fatalf("expected refund for order 2, got %v", stl.refunded)
	}
	if len(repo.dispatched) != 0 {
		t.Fatalf("rejected order must not be marked dispatched")
	}
}

func TestDispatchPendingTransportFailureDefers(t *testing.T) {
	repo := newFakeOrdersRepo(
		pendingOrder(3, "https://x/3", enums.FulfillmentModeProvider),
		pendingOrder(4, "https://x/4", enums.FulfillmentModeProvider),
	)
	submitter := &fakeSubmitter{
		results: map[string]string{"https://x/4": "9004"},
		errs: map[string]error{
			"https://x/3": errors.New(errors.CodeDependency, "provider unreachable"),
		},
	}
	stl := &fakeSettlement{}
	svc := newDispatcher(t, repo, submitter, stl, &fakeDispatchNotifier{})

	stats, err := svc.DispatchPending(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Deferred != 1 || stats.Submitted != 1 {
		t.Fatalf("expected 1 deferred and 1 submitted, got %+v", stats)
	}
	if len(stl.refunded) != 0 {
		t.Fatalf("transport failure must never refund, got %v", stl.refunded)
	}
	if _, ok := repo.dispatched[3]; ok {
		t.Fatal("failed order must stay pending")
	}
}

func TestDispatchPendingManualRoute(t *testing.T) {
	repo := newFakeOrdersRepo(pendingOrder(5, "https://x/5", enums.FulfillmentModeManual))
	submitter := &fakeSubmitter{}
	notifier := &fakeDispatchNotifier{}
	svc := newDispatcher(t, repo, submitter, &fakeSettlement{}, notifier)

	stats, err := svc.DispatchPending(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Manual != 1 {
		t.Fatalf("expected 1 manual, got %+v", stats)
	}
	if repo.progressed[5] != enums.OrderStatusProcessing {
		t.Fatalf("manual order should move to Processing, got %v", repo.progressed)
	}
	if len(submitter.calls) != 0 {
		t.Fatal("manual order must not hit the provider")
	}
	if len(notifier.messages) != 1 {
		t.Fatalf("expected operator notification, got %v", notifier.messages)
	}
}

func TestDispatchDuplicateMarkKeepsFirstID(t *testing.T) {
	repo := newFakeOrdersRepo(pendingOrder(6, "https://x/6", enums.FulfillmentModeProvider))
	repo.markErr = errors.New(errors.CodeStateConflict, "provider order id already set")
	submitter := &fakeSubmitter{results: map[string]string{"https://x/6": "9006"}}
	svc := newDispatcher(t, repo, submitter, &fakeSettlement{}, &fakeDispatchNotifier{})

	stats, err := svc.DispatchPending(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Submitted != 1 {
		t.Fatalf("duplicate mark is not a failure, got %+v", stats)
	}
}
