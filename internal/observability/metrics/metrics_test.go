package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestSupportMetricsCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSupportMetrics(reg)

	m.ObserveRoute("faq")
	m.ObserveRoute("faq")
	m.ObserveAuth("verify", "locked_out")
	m.ObserveTicket("created")
	m.ObserveHandoffWait("timeout")
	m.ObserveSession("corrupt")

	if got := testutil.ToFloat64(m.routesTotal.WithLabelValues("faq")); got != 2 {
		t.Fatalf("expected 2 faq turns, got %v", got)
	}
	if got := testutil.ToFloat64(m.authTotal.WithLabelValues("verify", "locked_out")); got != 1 {
		t.Fatalf("expected 1 lockout, got %v", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var corrupt *dto.MetricFamily
	for _, fam := range families {
		if fam.GetName() == "billing_session_events_total" {
			corrupt = fam
		}
	}
	if corrupt == nil || len(corrupt.GetMetric()) != 1 {
		t.Fatalf("expected session events family with one series, got %+v", corrupt)
	}
	if corrupt.GetMetric()[0].GetCounter().GetValue() != 1 {
		t.Fatalf("expected one corrupt session event")
	}
}

func TestSupportMetricsNilSafe(t *testing.T) {
	var m *SupportMetrics
	m.ObserveRoute("faq")
	m.ObserveAuth("lookup", "miss")
	m.ObserveTicket("created")
	m.ObserveHandoffWait("answered")
	m.ObserveSession("created")
}
