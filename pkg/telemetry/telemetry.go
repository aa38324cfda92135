// Package telemetry installs the process-wide OpenTelemetry propagators.
//
// No SDK TracerProvider is registered, so spans are non-recording. Trace context
// from incoming W3C traceparent headers still reaches request contexts and is
// stamped on log lines by logger.WithTrace.
package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Setup registers W3C trace context and baggage as the global propagator and
// returns it. Call it before building HTTP or gRPC handlers.
func Setup() propagation.TextMapPropagator {
	p := propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})
	otel.SetTextMapPropagator(p)
	return p
}
