package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Checkout paths used as metric labels.
const (
	PathPoints  = "points"
	PathCopay   = "copay"
	PathBulkBuy = "bulkbuy"
)

// CheckoutMetrics counts checkout outcomes per path.
type CheckoutMetrics struct {
	committed      *prometheus.CounterVec
	rejected       *prometheus.CounterVec
	amountMismatch prometheus.Counter
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	committed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_committed_total",
		Help: "Orders committed, by checkout path.",
	}, []string{"path"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_rejected_total",
		Help: "Checkouts rejected before commit, by path and reason code.",
	}, []string{"path", "reason"})
	amountMismatch := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_copay_amount_mismatch_total",
		Help: "Co-pay verifications whose settled amount did not match the quote.",
	})
	reg.MustRegister(committed, rejected, amountMismatch)
	return &CheckoutMetrics{
		committed:      committed,
		rejected:       rejected,
		amountMismatch: amountMismatch,
	}
}

// IncCommitted increments the commit counter for the given path.
func (c *CheckoutMetrics) IncCommitted(path string) {
	if c == nil || c.committed == nil {
		return
	}
	c.committed.WithLabelValues(normalizeLabel(path)).Inc()
}

// IncRejected increments the rejection counter for the given path and reason.
func (c *CheckoutMetrics) IncRejected(path, reason string) {
	if c == nil || c.rejected == nil {
		return
	}
	c.rejected.WithLabelValues(normalizeLabel(path), normalizeLabel(reason)).Inc()
}

// IncAmountMismatch counts a settled co-pay whose amount disagreed with the quote.
func (c *CheckoutMetrics) IncAmountMismatch() {
	if c == nil || c.amountMismatch == nil {
		return
	}
	c.amountMismatch.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
