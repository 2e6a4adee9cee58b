package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_ObserveAPI(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveAPI("queues", "ok", time.Now())
	m.ObserveAPI("queues", "ok", time.Now())
	m.ObserveAPI("queues", "rate_limited", time.Now())

	if got := testutil.ToFloat64(m.APIRequests.WithLabelValues("queues", "ok")); got != 2 {
		t.Fatalf("expected 2 ok requests, got %v", got)
	}
	if got := testutil.ToFloat64(m.APIRequests.WithLabelValues("queues", "rate_limited")); got != 1 {
		t.Fatalf("expected 1 rate limited request, got %v", got)
	}
}

func TestMetrics_NilReceiverIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.ObserveAPI("queues", "ok", time.Now())
	m.ObserveDownload("ok")
	m.ObserveGeocode("miss")
	m.ObserveBatch(3)
}
