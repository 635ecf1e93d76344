package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/base-14/examples/go/parking-lot/internal/parking"
)

// Metrics owns a private Prometheus registry so several servers can live in
// one process.
type Metrics struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

func NewMetrics(parkingLot *parking.InstrumentedParkingLot) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "parking_lot_http_requests_total",
			Help: "Total number of HTTP requests by route and status code.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "parking_lot_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestsTotal,
		m.requestDuration,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "parking_lot_occupied_slots",
			Help: "Number of occupied parking slots.",
		}, func() float64 { return float64(parkingLot.Stats().Occupied) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "parking_lot_available_slots",
			Help: "Number of free parking slots.",
		}, func() float64 { return float64(parkingLot.Stats().Available) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "parking_lot_capacity_slots",
			Help: "Total number of parking slots.",
		}, func() float64 { return float64(parkingLot.Stats().Capacity) }),
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := wrapResponseWriter(w)
		next.ServeHTTP(wrapped, r)

		// The route pattern is only known once chi has matched the request.
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}

		m.requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
		m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
