package server

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xaitan80/streamhttp/internal/response"
)

const instrumentationName = "github.com/xaitan80/streamhttp"

// OtelHook records a request counter and duration histogram through the
// OpenTelemetry metric API. Install with WithHook.
type OtelHook struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// NewOtelHook builds an OtelHook against the given meter provider.
func NewOtelHook(provider metric.MeterProvider) (*OtelHook, error) {
	meter := provider.Meter(instrumentationName)

	requests, err := meter.Int64Counter("http.server.requests",
		metric.WithDescription("Requests dispatched to the handler."))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("http.server.request.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Time from dispatch to response selection."))
	if err != nil {
		return nil, err
	}
	return &OtelHook{requests: requests, duration: duration}, nil
}

type otelToken struct {
	start time.Time
}

func (h *OtelHook) OnRequestStart(ctx context.Context, info RequestInfo) (context.Context, HookToken) {
	return ctx, otelToken{start: time.Now()}
}

func (h *OtelHook) OnRequestEnd(ctx context.Context, token HookToken, info RequestInfo, status response.StatusCode, err error) {
	tok, ok := token.(otelToken)
	if !ok {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http.request.method", info.Method),
		attribute.Int("http.response.status_code", int(status)),
	)
	h.requests.Add(ctx, 1, attrs)
	h.duration.Record(ctx, time.Since(tok.start).Seconds(), attrs)
}
