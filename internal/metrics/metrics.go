package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the batch collectors on a private registry so several runs
// (and tests) can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	documents    *prometheus.CounterVec
	images       prometheus.Counter
	pageErrors   *prometheus.CounterVec
	pageDuration prometheus.Histogram
	docDuration  prometheus.Histogram
	inflight     prometheus.Gauge
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		documents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pagesampler",
				Name:      "documents_total",
				Help:      "Documents finished by result (completed, partial, failed)",
			},
			[]string{"result"},
		),
		images: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "pagesampler",
				Name:      "images_total",
				Help:      "Total page images written",
			},
		),
		pageErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pagesampler",
				Name:      "page_errors_total",
				Help:      "Page level failures by kind (decode, dimension, encode)",
			},
			[]string{"kind"},
		),
		pageDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "pagesampler",
				Name:      "page_render_duration_seconds",
				Help:      "Time to render, resize, encode and write one page",
				Buckets:   prometheus.DefBuckets,
			},
		),
		docDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "pagesampler",
				Name:      "document_duration_seconds",
				Help:      "Time to process one document end to end",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
			},
		),
		inflight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "pagesampler",
				Name:      "documents_inflight",
				Help:      "Documents currently held open by workers",
			},
		),
	}
	m.registry.MustRegister(m.documents, m.images, m.pageErrors, m.pageDuration, m.docDuration, m.inflight)
	return m
}

// Handler returns the http.Handler for /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteTextfile dumps the current values in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) IncDocument(result string)         { m.documents.WithLabelValues(result).Inc() }
func (m *Metrics) AddImages(n int)                   { m.images.Add(float64(n)) }
func (m *Metrics) IncPageError(kind string)          { m.pageErrors.WithLabelValues(kind).Inc() }
func (m *Metrics) ObservePage(dur time.Duration)     { m.pageDuration.Observe(dur.Seconds()) }
func (m *Metrics) ObserveDocument(dur time.Duration) { m.docDuration.Observe(dur.Seconds()) }
func (m *Metrics) DocumentStarted()                  { m.inflight.Inc() }
func (m *Metrics) DocumentFinished()                 { m.inflight.Dec() }
