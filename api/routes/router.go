package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zawlinn/boostline-backend/api/controllers"
	"github.com/zawlinn/boostline-backend/api/middleware"
	"github.com/zawlinn/boostline-backend/internal/ledger"
	"github.com/zawlinn/boostline-backend/internal/payments"
	"github.com/zawlinn/boostline-backend/internal/payouts"
	"github.com/zawlinn/boostline-backend/internal/settlement"
	"github.com/zawlinn/boostline-backend/pkg/config"
	"github.com/zawlinn/boostline-backend/pkg/db"
	"github.com/zawlinn/boostline-backend/pkg/logger"
	"github.com/zawlinn/boostline-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	registry *prometheus.Registry,
	settlementSvc settlement.Service,
	ledgerSvc ledger.Service,
	paymentsSvc payments.Service,
	payoutsSvc payouts.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/ops/v1", func(r chi.Router) {
		r.Use(middleware.OpsToken(cfg.Ops, logg))

		r.Route("/orders/{orderId}", func(r chi.Router) {
			r.Post("/complete", controllers.OrderComplete(settlementSvc, logg))
			r.Post("/refund", controllers.OrderRefund(settlementSvc, logg))
			r.Get("/events", controllers.OrderEvents(ledgerSvc, logg))
		})

		r.Route("/payments/{transactionId}", func(r chi.Router) {
			r.Post("/accept", controllers.PaymentAccept(paymentsSvc, logg))
			r.Post("/reject", controllers.PaymentReject(paymentsSvc, logg))
		})

		r.Post("/payouts/{payoutId}/paid", controllers.PayoutMarkPaid(payoutsSvc, logg))
	})

	return r
}
