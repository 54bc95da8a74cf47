package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can create independent instances.
type Metrics struct {
	reg *prometheus.Registry

	CredentialsIssued *prometheus.CounterVec
	AuthFailures      *prometheus.CounterVec
	EventWrites       *prometheus.CounterVec
	Attendances       *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		reg: reg,
		CredentialsIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "humon_credentials_issued_total",
			Help: "Credentials issued, by whether the user was created or already existed.",
		}, []string{"outcome"}),
		AuthFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "humon_auth_failures_total",
			Help: "Rejected app secrets and auth tokens, by reason.",
		}, []string{"reason"}),
		EventWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "humon_event_writes_total",
			Help: "Event writes, by operation and result.",
		}, []string{"op", "result"}),
		Attendances: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "humon_attendances_total",
			Help: "Attendance requests, by whether a row was created or already existed.",
		}, []string{"outcome"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "humon_http_request_duration_seconds",
			Help:    "HTTP request latency by method, route pattern and status.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.3, 0.6, 1, 3, 6},
		}, []string{"method", "route", "status"}),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Middleware observes request latency. The route label is the chi pattern
// (e.g. /v1/events/{id}) so ids do not blow up cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.RequestDuration.
			WithLabelValues(r.Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}
