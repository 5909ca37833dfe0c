package orders

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/zawlinn/boostline-backend/pkg/db/models"
	"github.com/zawlinn/boostline-backend/pkg/enums"
	"github.com/zawlinn/boostline-backend/pkg/errors"
)

func newRepoFixture(t *testing.T) (Repository, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Order{}))

	return NewRepository(conn), conn
}

func seedOrder(t *testing.T, conn *gorm.DB, order models.Order) *models.Order {
	t.Helper()
	if order.AccountEmail == "" {
		order.AccountEmail = "buyer@example.com"
	}
	if order.Quantity == 0 {
		order.Quantity = 1000
	}
	if order.Link == "" {
		order.Link = "https://example.com/p/1"
	}
	if order.SellCharge.IsZero() {
		order.SellCharge = decimal.NewFromInt(10)
	}
	if order.Status == "" {
		order.Status = enums.OrderStatusPending
	}
	if order.FulfillmentMode == "" {
		order.FulfillmentMode = enums.FulfillmentModeProvider
	}
	require.NoError(t, conn.Create(&order).Error)
	return &order
}

func TestMarkDispatchedKeepsFirstProviderID(t *testing.T) {
	repo, conn := newRepoFixture(t)
	ctx := context.Background()

	order := seedOrder(t, conn, models.Order{})

	require.NoError(t, repo.MarkDispatched(ctx, order.ID, "prov-1"))

	err := repo.MarkDispatched(ctx, order.ID, "prov-2")
	require.Error(t, err)
	require.True(t, errors.HasCode(err, errors.CodeStateConflict))

	got, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ProviderOrderID)
	require.Equal(t, "prov-1", *got.ProviderOrderID)
	require.Equal(t, enums.OrderStatusProcessing, got.Status)
}

func TestFindDispatchableSkipsDispatchedAndSettled(t *testing.T) {
	repo, conn := newRepoFixture(t)
	ctx := context.Background()

	pending := seedOrder(t, conn, models.Order{})
	dispatched := seedOrder(t, conn, models.Order{})
	require.NoError(t, repo.MarkDispatched(ctx, dispatched.ID, "prov-9"))
	seedOrder(t, conn, models.Order{Status: enums.OrderStatusCompleted})

	got, err := repo.FindDispatchable(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, pending.ID, got[0].ID)
}

func TestFindDispatchableHonorsLimit(t *testing.T) {
	repo, conn := newRepoFixture(t)
	ctx := context.Background()

	first := seedOrder(t, conn, models.Order{})
	seedOrder(t, conn, models.Order{})
	seedOrder(t, conn, models.Order{})

	got, err := repo.FindDispatchable(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, first.ID, got[0].ID)
}

func TestFindOutstandingOnlyTracksProviderOrders(t *testing.T) {
	repo, conn := newRepoFixture(t)
	ctx := context.Background()

	tracked := seedOrder(t, conn, models.Order{})
	require.NoError(t, repo.MarkDispatched(ctx, tracked.ID, "prov-1"))

	// Never dispatched: nothing to poll yet.
	seedOrder(t, conn, models.Order{})

	// Manual orders never reach the provider.
	seedOrder(t, conn, models.Order{FulfillmentMode: enums.FulfillmentModeManual})

	// Accounted orders are done.
	settled := seedOrder(t, conn, models.Order{})
	require.NoError(t, repo.MarkDispatched(ctx, settled.ID, "prov-2"))
	require.NoError(t, repo.Settle(ctx, settled.ID, SettleUpdate{Status: enums.OrderStatusCompleted}))

	got, err := repo.FindOutstanding(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, tracked.ID, got[0].ID)
}

func TestSettleWritesRefundAndRemains(t *testing.T) {
	repo, conn := newRepoFixture(t)
	ctx := context.Background()

	order := seedOrder(t, conn, models.Order{})
	refund := decimal.NewFromFloat(4.5)
	remains := int64(450)

	require.NoError(t, repo.Settle(ctx, order.ID, SettleUpdate{
		Status:       enums.OrderStatusRefunded,
		RefundAmount: &refund,
		Remains:      &remains,
	}))

	got, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusRefunded, got.Status)
	require.NotNil(t, got.RefundAmount)
	require.True(t, got.RefundAmount.Equal(refund))
	require.NotNil(t, got.Remains)
	require.Equal(t, remains, *got.Remains)
}
