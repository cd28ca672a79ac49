// Package observability provides Prometheus metrics for the application.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics.
type Metrics struct {
	// Task metrics
	TasksStarted  prometheus.Counter
	TasksDone     prometheus.Counter
	TasksFailed   prometheus.Counter
	TasksInFlight prometheus.Gauge
	TaskDuration  prometheus.Histogram
	TasksRejected prometheus.Counter // single-flight rejections

	// Pipeline metrics
	ExtractionTotal    *prometheus.CounterVec // platform, outcome
	NormalizationTotal *prometheus.CounterVec // outcome

	// Delivery metrics
	DeliverySends      *prometheus.CounterVec // kind, outcome
	StatusEditFailures prometheus.Counter

	// Workspace metrics
	WorkDirsSwept prometheus.Counter

	// Proxy metrics
	ProxyFailures    *prometheus.CounterVec
	ProxiesAvailable prometheus.Gauge

	// Ops HTTP metrics
	HTTPRequestsTotal *prometheus.CounterVec // path
}

// New creates and registers all application metrics.
func New() *Metrics {
	return &Metrics{
		TasksStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reelgrab_tasks_started_total",
			Help: "Number of accepted task runs.",
		}),
		TasksDone: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reelgrab_tasks_done_total",
			Help: "Number of task runs that delivered successfully.",
		}),
		TasksFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reelgrab_tasks_failed_total",
			Help: "Number of task runs that ended on the failure path.",
		}),
		TasksInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "reelgrab_tasks_in_flight",
			Help: "Task runs currently executing.",
		}),
		TaskDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "reelgrab_task_duration_seconds",
			Help:    "End-to-end task duration.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		TasksRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reelgrab_tasks_rejected_total",
			Help: "Submissions dropped because the user already had a task in flight.",
		}),
		ExtractionTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "reelgrab_extraction_total",
			Help: "Extraction attempts by platform and outcome.",
		}, []string{"platform", "outcome"}),
		NormalizationTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "reelgrab_normalization_total",
			Help: "Normalization attempts by outcome.",
		}, []string{"outcome"}),
		DeliverySends: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "reelgrab_delivery_sends_total",
			Help: "Delivery sends by kind and outcome.",
		}, []string{"kind", "outcome"}),
		StatusEditFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reelgrab_status_edit_failures_total",
			Help: "Status message edits that failed and were swallowed.",
		}),
		WorkDirsSwept: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reelgrab_workdirs_swept_total",
			Help: "Orphaned work directories removed by the sweeper.",
		}),
		ProxyFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "reelgrab_proxy_failures_total",
			Help: "Proxy failures by proxy.",
		}, []string{"proxy"}),
		ProxiesAvailable: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "reelgrab_proxies_available",
			Help: "Proxies currently considered healthy.",
		}),
		HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "reelgrab_http_requests_total",
			Help: "Ops HTTP requests by path.",
		}, []string{"path"}),
	}
}

// Handler returns the Prometheus scrape handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}
