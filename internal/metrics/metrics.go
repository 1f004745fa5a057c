package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "postpilot"

// Metrics holds the application's Prometheus collectors
type Metrics struct {
	registry *prometheus.Registry

	publishAttempts *prometheus.CounterVec
	postsScheduled  *prometheus.CounterVec
	publishCycle    prometheus.Histogram
	httpRequests    *prometheus.CounterVec
}

// New registers all collectors on a fresh registry, together with the Go and process collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		publishAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_attempts_total",
			Help:      "Publish attempts by platform and outcome.",
		}, []string{"platform", "outcome"}),
		postsScheduled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posts_scheduled_total",
			Help:      "Posts scheduled by scheduling mode.",
		}, []string{"mode"}),
		publishCycle: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "publisher_cycle_seconds",
			Help:      "Duration of publisher cycles, including the delay between publishes.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
	}
}

// PublishAttempt counts one publish attempt
func (m *Metrics) PublishAttempt(platform, outcome string) {
	m.publishAttempts.WithLabelValues(platform, outcome).Inc()
}

// PostsScheduled counts n posts scheduled in mode
func (m *Metrics) PostsScheduled(mode string, n int) {
	if n <= 0 {
		return
	}
	m.postsScheduled.WithLabelValues(mode).Add(float64(n))
}

// ObservePublishCycle records the duration of a publisher cycle
func (m *Metrics) ObservePublishCycle(d time.Duration) {
	m.publishCycle.Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware counts HTTP requests by method and response code
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(r.Method, strconv.Itoa(status)).Inc()
	})
}
