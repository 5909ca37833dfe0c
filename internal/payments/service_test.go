package payments

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/zawlinn/boostline-backend/internal/accounts"
	"github.com/zawlinn/boostline-backend/pkg/db"
	"github.com/zawlinn/boostline-backend/pkg/db/models"
	"github.com/zawlinn/boostline-backend/pkg/enums"
	"github.com/zawlinn/boostline-backend/pkg/logger"
)

type noteRecorder struct {
	messages []string
}

func (n *noteRecorder) Notify(ctx context.Context, channel enums.NotifyChannel, message string) {
	n.messages = append(n.messages, message)
}

type fixture struct {
	svc      Service
	conn     *gorm.DB
	notifier *noteRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&models.Account{},
		&models.PaymentTransaction{},
		&models.PaymentProof{},
	))

	notifier := &noteRecorder{}
	svc, err := NewService(ServiceParams{
		DB:       db.NewWithConn(conn),
		Repo:     NewRepository(conn),
		Accounts: accounts.NewRepository(conn),
		Notifier: notifier,
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		sqlDB, _ := conn.DB()
		_ = sqlDB.Close()
	})

	return &fixture{svc: svc, conn: conn, notifier: notifier}
}

func (f *fixture) seedAccount(t *testing.T, email string) {
	t.Helper()
	require.NoError(t, f.conn.Create(&models.Account{Email: email}).Error)
}

func (f *fixture) seedTransaction(t *testing.T, txnID, email, amount string) int64 {
	t.Helper()
	txn := models.PaymentTransaction{
		TransactionID: txnID,
		AccountEmail:  email,
		Amount:        decimal.RequireFromString(amount),
		Status:        enums.TransactionStatusPending,
	}
	require.NoError(t, f.conn.Create(&txn).Error)
	return txn.ID
}

func (f *fixture) seedProof(t *testing.T, txnID, amount string) int64 {
	t.Helper()
	proof := models.PaymentProof{
		TransactionID: txnID,
		AmountUSD:     decimal.RequireFromString(amount),
		Status:        enums.ProofStatusUnused,
	}
	require.NoError(t, f.conn.Create(&proof).Error)
	return proof.ID
}

func (f *fixture) balance(t *testing.T, email string) decimal.Decimal {
	t.Helper()
	var account models.Account
	require.NoError(t, f.conn.Where("email = ?", email).First(&account).Error)
	return account.Balance
}

func (f *fixture) txnStatus(t *testing.T, id int64) enums.TransactionStatus {
	t.Helper()
	var txn models.PaymentTransaction
	require.NoError(t, f.conn.First(&txn, id).Error)
	return txn.Status
}

func TestVerifyPendingMatchesProof(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedAccount(t, "payer@example.com")
	txnID := f.seedTransaction(t, "TX-1", "payer@example.com", "25")
	proofID := f.seedProof(t, "TX-1", "25.004")

	stats, err := f.svc.VerifyPending(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Matched)
	require.Equal(t, 0, stats.Flagged)

	require.True(t, f.balance(t, "payer@example.com").Equal(decimal.NewFromInt(25)))
	require.Equal(t, enums.TransactionStatusAccepted, f.txnStatus(t, txnID))

	var proof models.PaymentProof
	require.NoError(t, f.conn.First(&proof, proofID).Error)
	require.Equal(t, enums.ProofStatusUsed, proof.Status)
	require.Len(t, f.notifier.messages, 1)
}

func TestVerifyPendingAmountMismatchFlags(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedAccount(t, "payer@example.com")
	txnID := f.seedTransaction(t, "TX-2", "payer@example.com", "25")
	f.seedProof(t, "TX-2", "20")

	stats, err := f.svc.VerifyPending(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, stats.Matched)
	require.Equal(t, 1, stats.Flagged)

	require.True(t, f.balance(t, "payer@example.com").IsZero())
	require.Equal(t, enums.TransactionStatusProcessing, f.txnStatus(t, txnID))

	// A second cycle must not re-flag the same transaction.
	stats, err = f.svc.VerifyPending(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, stats.Flagged)
	require.Len(t, f.notifier.messages, 1)
}

func TestProofConsumedOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedAccount(t, "payer@example.com")
	f.seedTransaction(t, "TX-3", "payer@example.com", "10")
	f.seedProof(t, "TX-3", "10")

	_, err := f.svc.VerifyPending(ctx)
	require.NoError(t, err)

	// Same declared transaction id again, but the proof is spent.
	secondID := f.seedTransaction(t, "TX-3", "payer@example.com", "10")
	stats, err := f.svc.VerifyPending(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, stats.Matched)
	require.Equal(t, 1, stats.Flagged)
	require.Equal(t, enums.TransactionStatusProcessing, f.txnStatus(t, secondID))
	require.True(t, f.balance(t, "payer@example.com").Equal(decimal.NewFromInt(10)))
}

func TestOperatorAcceptAndReject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedAccount(t, "payer@example.com")
	acceptID := f.seedTransaction(t, "TX-4", "payer@example.com", "15")
	rejectID := f.seedTransaction(t, "TX-5", "payer@example.com", "99")

	// Flag both first.
	_, err := f.svc.VerifyPending(ctx)
	require.NoError(t, err)

	require.NoError(t, f.svc.Accept(ctx, acceptID))
	require.Equal(t, enums.TransactionStatusAccepted, f.txnStatus(t, acceptID))
	require.True(t, f.balance(t, "payer@example.com").Equal(decimal.NewFromInt(15)))

	require.NoError(t, f.svc.Reject(ctx, rejectID))
	require.Equal(t, enums.TransactionStatusRejected, f.txnStatus(t, rejectID))
	require.True(t, f.balance(t, "payer@example.com").Equal(decimal.NewFromInt(15)))

	// Resolved transactions cannot be re-decided.
	require.Error(t, f.svc.Accept(ctx, rejectID))
}
