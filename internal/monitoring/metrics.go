package monitoring

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/user/catalog-scraper/internal/domain"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	RunsTotal        *prometheus.CounterVec
	PagesTotal       prometheus.Counter
	RecordsTotal     prometheus.Counter
	DegradationTotal *prometheus.CounterVec
	WarningsTotal    *prometheus.CounterVec
	RunDuration      prometheus.Histogram
	RunInProgress    prometheus.Gauge

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics registers the scraper metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scraper_runs_total",
			Help: "The total number of scrape runs by outcome",
		}, []string{"status"}),
		PagesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "scraper_pages_extracted_total",
			Help: "The total number of table pages extracted",
		}),
		RecordsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "scraper_records_extracted_total",
			Help: "The total number of product records extracted",
		}),
		DegradationTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scraper_stage_degradations_total",
			Help: "The total number of stage failures the run continued past",
		}, []string{"stage"}),
		WarningsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scraper_warnings_total",
			Help: "The total number of non-fatal warnings",
		}, []string{"type"}), // e.g., 'login_settle', 'session_save', 'sink'
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "scraper_run_duration_seconds",
			Help:    "Duration of scrape runs.",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600},
		}),
		RunInProgress: factory.NewGauge(prometheus.GaugeOpts{
			Name: "scraper_run_in_progress",
			Help: "1 while a scrape run is active",
		}),
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}
}

func (m *Metrics) ObservePage(records int) {
	m.PagesTotal.Inc()
	m.RecordsTotal.Add(float64(records))
}

func (m *Metrics) IncDegradation(stage domain.Stage) {
	m.DegradationTotal.WithLabelValues(string(stage)).Inc()
}

func (m *Metrics) IncWarning(warningType string) {
	m.WarningsTotal.WithLabelValues(warningType).Inc()
}

func (m *Metrics) ObserveRun(status domain.Status, d time.Duration) {
	m.RunsTotal.WithLabelValues(string(status.Kind)).Inc()
	m.RunDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveHTTP(method, path string, status int, d time.Duration) {
	code := strconv.Itoa(status)
	m.HTTPRequestsTotal.WithLabelValues(method, path, code).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path, code).Observe(d.Seconds())
}
