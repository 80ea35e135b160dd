package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TenantResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenant_resolutions_total",
			Help: "Store resolutions by entry point (www, api, admin) and outcome",
		},
		[]string{"entry", "outcome"},
	)

	DirectoryCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directory_cache_requests_total",
			Help: "Directory cache lookups by result (hit, miss)",
		},
		[]string{"result"},
	)

	JobsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_jobs_processed_total",
			Help: "Rate refresh jobs processed by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	WorkerActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_active_goroutines",
			Help: "Number of active rate job consumers",
		},
	)

	QueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "queue_depth",
			Help: "Current RabbitMQ queue depth",
		},
		[]string{"queue"},
	)
)

var registerOnce sync.Once

// Init registers metrics with Prometheus. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(TenantResolutions, DirectoryCache, JobsProcessed, WorkerActive, QueueDepth)
	})
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
