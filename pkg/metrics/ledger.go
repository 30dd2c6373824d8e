package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics counts recorded and rejected sales.
type LedgerMetrics struct {
	sales    *prometheus.CounterVec
	units    *prometheus.CounterVec
	revenue  *prometheus.CounterVec
	rejected *prometheus.CounterVec
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	sales := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poslite_sales_recorded_total",
		Help: "Sales committed to the ledger.",
	}, []string{"payment_method"})
	units := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poslite_sale_units_total",
		Help: "Units removed from inventory by sales.",
	}, []string{"payment_method"})
	revenue := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poslite_sale_revenue_total",
		Help: "Sum of sale totals in store currency.",
	}, []string{"payment_method"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poslite_sales_rejected_total",
		Help: "Sale attempts that changed no state.",
	}, []string{"reason"})
	reg.MustRegister(sales, units, revenue, rejected)
	return &LedgerMetrics{
		sales:    sales,
		units:    units,
		revenue:  revenue,
		rejected: rejected,
	}
}

// SaleRecorded increments the sale, unit and revenue counters.
func (l *LedgerMetrics) SaleRecorded(method string, quantity int, total float64) {
	if l == nil || l.sales == nil {
		return
	}
	label := normalizeLabel(method)
	l.sales.WithLabelValues(label).Inc()
	l.units.WithLabelValues(label).Add(float64(quantity))
	l.revenue.WithLabelValues(label).Add(total)
}

// SaleRejected increments the rejection counter for reason.
func (l *LedgerMetrics) SaleRejected(reason string) {
	if l == nil || l.rejected == nil {
		return
	}
	l.rejected.WithLabelValues(normalizeLabel(reason)).Inc()
}

// HTTPMetrics records request latency per route pattern.
type HTTPMetrics struct {
	duration *prometheus.HistogramVec
}

// NewHTTPMetrics registers the HTTP metrics on the provided registerer.
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		return &HTTPMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "poslite_http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
	reg.MustRegister(duration)
	return &HTTPMetrics{duration: duration}
}

// ObserveRequest records one completed request.
func (h *HTTPMetrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if h == nil || h.duration == nil {
		return
	}
	h.duration.WithLabelValues(method, normalizeLabel(route), statusClass(status)).Observe(elapsed.Seconds())
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
