package accounts

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
)

func newRepoFixture(t *testing.T) Repository {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Account{}))

	require.NoError(t, conn.Create(&models.Account{
		Email:      "buyer@example.com",
		Balance:    decimal.NewFromInt(100),
		TotalSpend: decimal.NewFromInt(20),
	}).Error)

	return NewRepository(conn)
}

func TestApplyDeltasAdjustsRelatively(t *testing.T) {
	repo := newRepoFixture(t)
	ctx := context.Background()

	require.NoError(t, repo.ApplyDeltas(ctx, "buyer@example.com", Deltas{
		Balance:             decimal.NewFromInt(-10),
		TotalSpend:          decimal.NewFromInt(10),
		WithdrawableBalance: decimal.NewFromFloat(0.4),
	}))
	require.NoError(t, repo.ApplyDeltas(ctx, "buyer@example.com", Deltas{
		Balance: decimal.NewFromInt(5),
	}))

	got, err := repo.FindByEmail(ctx, "buyer@example.com")
	require.NoError(t, err)
	require.True(t, got.Balance.Equal(decimal.NewFromInt(95)), "balance = %s", got.Balance)
	require.True(t, got.TotalSpend.Equal(decimal.NewFromInt(30)), "total_spend = %s", got.TotalSpend)
	require.True(t, got.WithdrawableBalance.Equal(decimal.NewFromFloat(0.4)), "withdrawable = %s", got.WithdrawableBalance)
}

func TestApplyDeltasZeroIsNoop(t *testing.T) {
	repo := newRepoFixture(t)
	ctx := context.Background()

	before, err := repo.FindByEmail(ctx, "buyer@example.com")
	require.NoError(t, err)

	require.NoError(t, repo.ApplyDeltas(ctx, "buyer@example.com", Deltas{}))

	after, err := repo.FindByEmail(ctx, "buyer@example.com")
	require.NoError(t, err)
	require.Equal(t, before.UpdatedAt, after.UpdatedAt)
	require.True(t, before.Balance.Equal(after.Balance))
}
