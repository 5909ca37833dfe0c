package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/zawlinn/boostline-backend/api/routes"
	"github.com/zawlinn/boostline-backend/internal/accounts"
	"github.com/zawlinn/boostline-backend/internal/catalog"
	"github.com/zawlinn/boostline-backend/internal/cron"
	"github.com/zawlinn/boostline-backend/internal/ledger"
	"github.com/zawlinn/boostline-backend/internal/notify"
	"github.com/zawlinn/boostline-backend/internal/orders"
	"github.com/zawlinn/boostline-backend/internal/payments"
	"github.com/zawlinn/boostline-backend/internal/payouts"
	"github.com/zawlinn/boostline-backend/internal/settlement"
	"github.com/zawlinn/boostline-backend/internal/support"
	"github.com/zawlinn/boostline-backend/pkg/config"
	"github.com/zawlinn/boostline-backend/pkg/db"
	"github.com/zawlinn/boostline-backend/pkg/logger"
	"github.com/zawlinn/boostline-backend/pkg/metrics"
	"github.com/zawlinn/boostline-backend/pkg/migrate"
	"github.com/zawlinn/boostline-backend/pkg/provider"
	"github.com/zawlinn/boostline-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "worker stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		return err
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		closeAll(logg, dbClient.Close)
		return err
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		closeAll(logg, dbClient.Close)
		return err
	}
	defer closeAll(logg, dbClient.Close, redisClient.Close)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	settlementMetrics := metrics.NewSettlementMetrics(registry)
	cronMetrics := metrics.NewCronJobMetrics(registry)

	providerClient, err := provider.NewClient(cfg.Provider, logg)
	if err != nil {
		return err
	}

	var notifier notify.Notifier
	if cfg.Notify.BotToken != "" {
		telegram, err := notify.NewTelegram(cfg.Notify, logg, settlementMetrics)
		if err != nil {
			return err
		}
		notifier = telegram
	} else {
		logg.Warn(context.Background(), "no notify bot token configured, notifications disabled")
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	accountsRepo := accounts.NewRepository(dbClient.DB())
	catalogRepo := catalog.NewRepository(dbClient.DB())
	ledgerRepo := ledger.NewRepository(dbClient.DB())
	paymentsRepo := payments.NewRepository(dbClient.DB())
	payoutsRepo := payouts.NewRepository(dbClient.DB())
	supportRepo := support.NewRepository(dbClient.DB())

	settlementSvc, err := settlement.NewService(settlement.ServiceParams{
		DB:       dbClient,
		Orders:   ordersRepo,
		Accounts: accountsRepo,
		Catalog:  catalogRepo,
		Ledger:   ledgerRepo,
		Config:   cfg.Settlement,
		Logger:   logg,
		Metrics:  settlementMetrics,
		Notifier: notifier,
	})
	if err != nil {
		return err
	}

	ledgerSvc, err := ledger.NewService(ledgerRepo)
	if err != nil {
		return err
	}

	ordersSvc, err := orders.NewService(orders.ServiceParams{
		Repo:       ordersRepo,
		Catalog:    catalogRepo,
		Provider:   providerClient,
		Settlement: settlementSvc,
		Notifier:   notifier,
		Logger:     logg,
		Config:     cfg.Settlement,
	})
	if err != nil {
		return err
	}

	reconciler, err := settlement.NewReconciler(settlement.ReconcilerParams{
		Orders:     ordersRepo,
		Provider:   providerClient,
		Settlement: settlementSvc,
		Logger:     logg,
		Config:     cfg.Settlement,
		Notifier:   notifier,
	})
	if err != nil {
		return err
	}

	paymentsSvc, err := payments.NewService(payments.ServiceParams{
		DB:       dbClient,
		Repo:     paymentsRepo,
		Accounts: accountsRepo,
		Notifier: notifier,
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	payoutsSvc, err := payouts.NewService(payouts.ServiceParams{
		DB:       dbClient,
		Repo:     payoutsRepo,
		Accounts: accountsRepo,
		Notifier: notifier,
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	supportSvc, err := support.NewService(support.ServiceParams{
		Repo:     supportRepo,
		Orders:   ordersRepo,
		Provider: providerClient,
		Notifier: notifier,
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	catalogSvc, err := catalog.NewService(catalog.ServiceParams{
		Repo:     catalogRepo,
		Provider: providerClient,
		Notifier: notifier,
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	jobs, err := buildJobs(cfg, logg, ordersSvc, reconciler, paymentsSvc, payoutsSvc, supportSvc, catalogSvc)
	if err != nil {
		return err
	}

	cronSvc, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(jobs...),
		Locks: func(job string, ttl time.Duration) (cron.Lock, error) {
			return cron.NewRedisLock(redisClient, job, ttl)
		},
		Metrics: cronMetrics,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, registry, settlementSvc, ledgerSvc, paymentsSvc, payoutsSvc),
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": server.Addr,
	})
	logg.Info(ctx, "starting worker")

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			stop()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := cronSvc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(shutdownCtx, "error shutting down http server", err)
	}

	wg.Wait()
	close(errCh)
	var runErr error
	for err := range errCh {
		runErr = multierr.Append(runErr, err)
	}
	if runErr != nil {
		return runErr
	}

	logg.Info(ctx, "worker shutting down gracefully")
	return nil
}

func buildJobs(
	cfg *config.Config,
	logg *logger.Logger,
	ordersSvc orders.Service,
	reconciler settlement.Reconciler,
	paymentsSvc payments.Service,
	payoutsSvc payouts.Service,
	supportSvc support.Service,
	catalogSvc catalog.Service,
) ([]cron.Job, error) {
	dispatchJob, err := cron.NewDispatchJob(cron.DispatchJobParams{
		Logger:   logg,
		Orders:   ordersSvc,
		Interval: cfg.Workers.DispatchInterval,
	})
	if err != nil {
		return nil, err
	}
	reconcileJob, err := cron.NewReconcileJob(cron.ReconcileJobParams{
		Logger:     logg,
		Reconciler: reconciler,
		Interval:   cfg.Workers.ReconcileInterval,
	})
	if err != nil {
		return nil, err
	}
	paymentJob, err := cron.NewPaymentVerifyJob(cron.PaymentVerifyJobParams{
		Logger:   logg,
		Payments: paymentsSvc,
		Interval: cfg.Workers.PaymentVerifyInterval,
	})
	if err != nil {
		return nil, err
	}
	payoutJob, err := cron.NewPayoutJob(cron.PayoutJobParams{
		Logger:   logg,
		Payouts:  payoutsSvc,
		Interval: cfg.Workers.PayoutInterval,
	})
	if err != nil {
		return nil, err
	}
	ticketJob, err := cron.NewTicketJob(cron.TicketJobParams{
		Logger:   logg,
		Support:  supportSvc,
		Interval: cfg.Workers.TicketInterval,
	})
	if err != nil {
		return nil, err
	}
	rateSyncJob, err := cron.NewRateSyncJob(cron.CatalogJobParams{
		Logger:   logg,
		Catalog:  catalogSvc,
		Interval: cfg.Workers.RateSyncInterval,
	})
	if err != nil {
		return nil, err
	}
	importJob, err := cron.NewCatalogImportJob(cron.CatalogJobParams{
		Logger:   logg,
		Catalog:  catalogSvc,
		Interval: cfg.Workers.CatalogImportInterval,
	})
	if err != nil {
		return nil, err
	}

	return []cron.Job{
		dispatchJob,
		reconcileJob,
		paymentJob,
		payoutJob,
		ticketJob,
		rateSyncJob,
		importJob,
	}, nil
}

func closeAll(logg *logger.Logger, closers ...func() error) {
	var err error
	for _, c := range closers {
		err = multierr.Append(err, c())
	}
	if err != nil {
		logg.Error(context.Background(), "error closing resources", err)
	}
}
