package metrics

import "github.com/prometheus/client_golang/prometheus"

// SettlementMetrics counts the financial transitions the engine applies.
type SettlementMetrics struct {
	transitions *prometheus.CounterVec
	refunds     prometheus.Counter
	rejected    prometheus.Counter
	dropped     prometheus.Counter
}

// NewSettlementMetrics registers the settlement counters on the provided registerer.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_transitions_applied",
		Help: "Applied order transitions by target status.",
	}, []string{"to"})
	refunds := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_refunds_total",
		Help: "Refunds credited back to customer balances.",
	})
	rejected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_rejected_transitions_total",
		Help: "Transitions rejected by guard checks or unknown statuses.",
	})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notifications_dropped_total",
		Help: "Notifications dropped after retry exhaustion.",
	})
	reg.MustRegister(transitions, refunds, rejected, dropped)
	return &SettlementMetrics{
		transitions: transitions,
		refunds:     refunds,
		rejected:    rejected,
		dropped:     dropped,
	}
}

// IncTransition counts an applied transition into the given status.
func (s *SettlementMetrics) IncTransition(to string) {
	if s == nil || s.transitions == nil {
		return
	}
	s.transitions.WithLabelValues(to).Inc()
}

// IncRefund counts a refund credit.
func (s *SettlementMetrics) IncRefund() {
	if s == nil || s.refunds == nil {
		return
	}
	s.refunds.Inc()
}

// IncRejected counts a rejected transition.
func (s *SettlementMetrics) IncRejected() {
	if s == nil || s.rejected == nil {
		return
	}
	s.rejected.Inc()
}

// IncDroppedNotification counts a notification dropped after retries.
func (s *SettlementMetrics) IncDroppedNotification() {
	if s == nil || s.dropped == nil {
		return
	}
	s.dropped.Inc()
}
