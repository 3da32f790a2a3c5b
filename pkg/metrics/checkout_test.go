package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestCheckoutMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCheckoutMetrics(reg)

	metrics.IncCommitted(PathPoints)
	metrics.IncCommitted(PathPoints)
	metrics.IncRejected(PathCopay, "PAYMENT_ERROR")
	metrics.IncAmountMismatch()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "checkout_committed_total", "path", PathPoints); err != nil {
		t.Fatalf("fetch committed: %v", err)
	} else if got != 2 {
		t.Fatalf("expected committed=2, got %f", got)
	}

	mf := findMetricFamily(mfs, "checkout_rejected_total")
	if mf == nil {
		t.Fatal("rejected counter not exported")
	}

	mf = findMetricFamily(mfs, "checkout_copay_amount_mismatch_total")
	if mf == nil || len(mf.GetMetric()) == 0 {
		t.Fatal("amount mismatch counter not exported")
	}
	if got := mf.GetMetric()[0].GetCounter().GetValue(); got != 1 {
		t.Fatalf("expected mismatch=1, got %f", got)
	}
}

func TestCheckoutMetricsNilRegisterer(t *testing.T) {
	metrics := NewCheckoutMetrics(nil)
	metrics.IncCommitted(PathPoints)
	metrics.IncRejected(PathBulkBuy, "x")
	metrics.IncAmountMismatch()
}
