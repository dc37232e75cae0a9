package receipt

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zombor/receipt-splitter/internal/settlement"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	registry          *prometheus.Registry
	receiptsProcessed *prometheus.CounterVec
	itemsParsed       prometheus.Counter
	ocrDuration       prometheus.Histogram
	settlements       *prometheus.CounterVec
}

// NewMetrics registers the collectors on a fresh registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		receiptsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "receipt_splitter",
			Name:      "receipts_processed_total",
			Help:      "Uploaded receipts by final processing status.",
		}, []string{"status"}),
		itemsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "receipt_splitter",
			Name:      "items_parsed_total",
			Help:      "Line items extracted from receipt text.",
		}),
		ocrDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "receipt_splitter",
			Name:      "ocr_duration_seconds",
			Help:      "Time spent in text recognition.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "receipt_splitter",
			Name:      "settlements_total",
			Help:      "Split requests by method and outcome.",
		}, []string{"method", "outcome"}),
	}

	m.registry.MustRegister(
		m.receiptsProcessed,
		m.itemsParsed,
		m.ocrDuration,
		m.settlements,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) receiptProcessed(status Status, items int) {
	if m == nil {
		return
	}
	m.receiptsProcessed.WithLabelValues(string(status)).Inc()
	m.itemsParsed.Add(float64(items))
}

func (m *Metrics) observeOCR(seconds float64) {
	if m == nil {
		return
	}
	m.ocrDuration.Observe(seconds)
}

// settled counts a split request. Methods other than the known ones share
// the "invalid" label so request input cannot mint new series.
func (m *Metrics) settled(method settlement.Method, err error) {
	if m == nil {
		return
	}
	label := "invalid"
	switch method {
	case settlement.MethodEqual, settlement.MethodProportional:
		label = string(method)
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.settlements.WithLabelValues(label, outcome).Inc()
}
