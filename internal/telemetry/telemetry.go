// Package telemetry agrupa los colectores Prometheus del servicio y su
// middleware HTTP. Usa un registry propio para no depender del global.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	reg          *prometheus.Registry
	refreshes    *prometheus.CounterVec
	snapshot     prometheus.Gauge
	unrecognized prometheus.Gauge
	upserts      *prometheus.CounterVec
	requests     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leads",
			Name:      "refresh_total",
			Help:      "Fetches of the full lead set, by result.",
		}, []string{"result"}),
		snapshot: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "leads",
			Name:      "snapshot_size",
			Help:      "Leads in the current in-memory set.",
		}),
		unrecognized: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "leads",
			Name:      "unrecognized_status",
			Help:      "Leads whose status text is not in the stage vocabulary.",
		}),
		upserts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leads",
			Name:      "upsert_total",
			Help:      "Lead writes delegated to the external store, by result.",
		}, []string{"result"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leads",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "leads",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.refreshes, m.snapshot, m.unrecognized, m.upserts, m.requests, m.latency,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

// ObserveRefresh registra un fetch; n y unrecognized solo cuentan si ok.
func (m *Metrics) ObserveRefresh(ok bool, n, unrecognized int) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(result(ok)).Inc()
	if ok {
		m.snapshot.Set(float64(n))
		m.unrecognized.Set(float64(unrecognized))
	}
}

func (m *Metrics) ObserveUpsert(ok bool) {
	if m == nil {
		return
	}
	m.upserts.WithLabelValues(result(ok)).Inc()
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// Middleware mide cada request usando el patrón de ruta de chi como label,
// así /api/leads?icp=x no explota la cardinalidad.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(sw.code)).Inc()
		m.latency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
