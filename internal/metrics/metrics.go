package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "terminy"

// Metrics holds the counters shared by the API client, downloader and geocoder.
type Metrics struct {
	APIRequests       *prometheus.CounterVec
	APILatency        *prometheus.HistogramVec
	Downloads         *prometheus.CounterVec
	GeocodeLookups    *prometheus.CounterVec
	SearchBatches     prometheus.Counter
	AppointmentsShown prometheus.Gauge
}

// New creates the metrics and registers them on reg. A nil reg leaves them
// unregistered, which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		APIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "NFZ API requests by endpoint and outcome",
		}, []string{"endpoint", "outcome"}),
		APILatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "NFZ API request latency",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"endpoint"}),
		Downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "spreadsheet",
			Name:      "downloads_total",
			Help:      "Spreadsheet downloads by outcome",
		}, []string{"outcome"}),
		GeocodeLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "geo",
			Name:      "lookups_total",
			Help:      "Geocoder lookups by outcome",
		}, []string{"outcome"}),
		SearchBatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "batches_total",
			Help:      "Result batches merged into the search state",
		}),
		AppointmentsShown: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "appointments_displayed",
			Help:      "Appointments currently revealed to the presentation layer",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.APIRequests, m.APILatency, m.Downloads, m.GeocodeLookups, m.SearchBatches, m.AppointmentsShown)
	}
	return m
}

// ObserveAPI records one API call. Safe on a nil receiver.
func (m *Metrics) ObserveAPI(endpoint, outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.APIRequests.WithLabelValues(endpoint, outcome).Inc()
	m.APILatency.WithLabelValues(endpoint).Observe(time.Since(started).Seconds())
}

func (m *Metrics) ObserveDownload(outcome string) {
	if m == nil {
		return
	}
	m.Downloads.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveGeocode(outcome string) {
	if m == nil {
		return
	}
	m.GeocodeLookups.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveBatch(displayed int) {
	if m == nil {
		return
	}
	m.SearchBatches.Inc()
	m.AppointmentsShown.Set(float64(displayed))
}
