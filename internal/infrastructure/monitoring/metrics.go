// Package monitoring exposes Prometheus metrics and OpenTelemetry tracing.
package monitoring

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"

	"github.com/tymenu/tymenu/internal/domain/shared"
	"github.com/tymenu/tymenu/internal/ports/outbound"
)

// Metrics owns a Prometheus registry with HTTP, collaborator and domain
// event metrics.
type Metrics struct {
	logger   *zap.Logger
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpInFlight        prometheus.Gauge
	imageUploadsTotal   *prometheus.CounterVec
	emailsTotal         *prometheus.CounterVec
	rateLimitedTotal    prometheus.Counter

	meterProvider *sdkmetric.MeterProvider
	domainEvents  metric.Int64Counter
}

// NewMetrics registers all collectors on a fresh registry.
func NewMetrics(namespace string, logger *zap.Logger) (*Metrics, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	m := &Metrics{
		logger:   logger,
		registry: registry,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		httpInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Requests currently being served",
			},
		),
		imageUploadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "image_host_operations_total",
				Help:      "Image host uploads and deletions",
			},
			[]string{"operation", "status"},
		),
		emailsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "emails_total",
				Help:      "Emails handed to the mail transport",
			},
			[]string{"status"},
		),
		rateLimitedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_requests_total",
				Help:      "Requests rejected by the rate limiter",
			},
		),
	}

	// Domain events are counted through the OpenTelemetry metrics API and
	// exported on the same registry.
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, err
	}
	m.meterProvider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	m.domainEvents, err = m.meterProvider.Meter(namespace).Int64Counter(
		namespace+"_domain_events",
		metric.WithDescription("Domain events raised by committed changes"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RegisterDB exports connection pool statistics for db.
func (m *Metrics) RegisterDB(db *sql.DB, name string) error {
	return m.registry.Register(collectors.NewDBStatsCollector(db, name))
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request counts and latency labelled by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// RateLimited counts a rejected request.
func (m *Metrics) RateLimited() {
	m.rateLimitedTotal.Inc()
}

// EmailSent counts a delivery attempt.
func (m *Metrics) EmailSent(err error) {
	m.emailsTotal.WithLabelValues(statusLabel(err)).Inc()
}

// ImageHostOperation counts an upload or delete.
func (m *Metrics) ImageHostOperation(operation string, err error) {
	m.imageUploadsTotal.WithLabelValues(operation, statusLabel(err)).Inc()
}

var _ outbound.EventPublisher = (*Metrics)(nil)

// Publish counts events by name.
func (m *Metrics) Publish(ctx context.Context, events ...shared.DomainEvent) {
	for _, e := range events {
		m.domainEvents.Add(ctx, 1, metric.WithAttributes(attribute.String("event", e.EventName())))
	}
}

// Shutdown flushes the meter provider.
func (m *Metrics) Shutdown(ctx context.Context) error {
	return m.meterProvider.Shutdown(ctx)
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
