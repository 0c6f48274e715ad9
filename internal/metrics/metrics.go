package metrics

import (
	"context"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Domain events counted by RecordEvent
const (
	EventUserRegistered = "user_registered"
	EventUserUpdated    = "user_updated"
	EventPostCreated    = "post_created"
	EventPostEdited     = "post_edited"
	EventPostDeleted    = "post_deleted"
	EventCommentCreated = "comment_created"
	EventCommentEdited  = "comment_edited"
	EventCommentDeleted = "comment_deleted"
	EventLikeAdded      = "like_added"
	EventLikeRemoved    = "like_removed"
	EventAuthorRenamed  = "author_renamed"
)

// Metrics holds the instruments the API records into. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	HTTPRequests metric.Int64Counter
	HTTPDuration metric.Float64Histogram
	DomainEvents metric.Int64Counter
	StoreErrors  metric.Int64Counter
}

// Setup builds a meter provider exporting through its own Prometheus
// registry and returns the handler serving that registry
func Setup(serviceName string) (*Metrics, http.Handler, error) {
	registry := promclient.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	m := &Metrics{}

	m.HTTPRequests, err = meter.Int64Counter(
		"asocial_http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.HTTPDuration, err = meter.Float64Histogram(
		"asocial_http_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.DomainEvents, err = meter.Int64Counter(
		"asocial_events_total",
		metric.WithDescription("Total number of domain events by kind"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.StoreErrors, err = meter.Int64Counter(
		"asocial_store_errors_total",
		metric.WithDescription("Total number of unexpected store errors by operation"),
	)
	if err != nil {
		return nil, nil, err
	}

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m, handler, nil
}

func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.Int("status", status),
	)

	m.HTTPRequests.Add(ctx, 1, labels)
	m.HTTPDuration.Record(ctx, duration.Seconds(), labels)
}

func (m *Metrics) RecordEvent(ctx context.Context, event string) {
	if m == nil {
		return
	}
	m.DomainEvents.Add(ctx, 1, metric.WithAttributes(attribute.String("event", event)))
}

func (m *Metrics) RecordStoreError(ctx context.Context, op string) {
	if m == nil {
		return
	}
	m.StoreErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}
