package metrics

import "github.com/prometheus/client_golang/prometheus"

// SupportMetrics exposes counters for the billing support conversation core.
type SupportMetrics struct {
	routesTotal      *prometheus.CounterVec
	authTotal        *prometheus.CounterVec
	handoffTotal     *prometheus.CounterVec
	handoffWaitTotal *prometheus.CounterVec
	sessionsTotal    *prometheus.CounterVec
}

func NewSupportMetrics(reg prometheus.Registerer) *SupportMetrics {
	m := &SupportMetrics{
		routesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "billing",
			Subsystem: "router",
			Name:      "turns_total",
			Help:      "Customer turns processed, by route taken",
		}, []string{"route"}),
		authTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "billing",
			Subsystem: "auth",
			Name:      "events_total",
			Help:      "In-band authentication events, by step and outcome",
		}, []string{"step", "outcome"}),
		handoffTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "billing",
			Subsystem: "handoff",
			Name:      "tickets_total",
			Help:      "Handoff ticket lifecycle events",
		}, []string{"event"}),
		handoffWaitTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "billing",
			Subsystem: "handoff",
			Name:      "waits_total",
			Help:      "Outcomes of waiting for a human agent response",
		}, []string{"outcome"}),
		sessionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "billing",
			Subsystem: "session",
			Name:      "events_total",
			Help:      "Session manager events such as creation, eviction and corruption",
		}, []string{"event"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.routesTotal, m.authTotal, m.handoffTotal, m.handoffWaitTotal, m.sessionsTotal)
	return m
}

func (m *SupportMetrics) ObserveRoute(route string) {
	if m == nil {
		return
	}
	m.routesTotal.WithLabelValues(route).Inc()
}

func (m *SupportMetrics) ObserveAuth(step, outcome string) {
	if m == nil {
		return
	}
	m.authTotal.WithLabelValues(step, outcome).Inc()
}

func (m *SupportMetrics) ObserveTicket(event string) {
	if m == nil {
		return
	}
	m.handoffTotal.WithLabelValues(event).Inc()
}

func (m *SupportMetrics) ObserveHandoffWait(outcome string) {
	if m == nil {
		return
	}
	m.handoffWaitTotal.WithLabelValues(outcome).Inc()
}

func (m *SupportMetrics) ObserveSession(event string) {
	if m == nil {
		return
	}
	m.sessionsTotal.WithLabelValues(event).Inc()
}
