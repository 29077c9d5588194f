package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerInterface is the slice of tracing the instrumented services use
type TracerInterface interface {
	StartSpanWithAttributes(ctx context.Context, spanName string, attrs map[string]interface{}, opts ...trace.SpanStartOption) (context.Context, trace.Span)
	RecordError(span trace.Span, err error, description string)
	AddEvent(span trace.Span, name string, attrs map[string]interface{})
	SetAttributes(span trace.Span, attrs map[string]interface{})
}

// OpenTelemetryTracer implements TracerInterface on a named otel tracer
type OpenTelemetryTracer struct {
	tracer trace.Tracer
}

// NewOpenTelemetryTracer uses the global tracer provider
func NewOpenTelemetryTracer(name string) *OpenTelemetryTracer {
	return NewTracerFromProvider(otel.GetTracerProvider(), name)
}

// NewTracerFromProvider uses an explicit provider (tests pass an in-memory one)
func NewTracerFromProvider(tp trace.TracerProvider, name string) *OpenTelemetryTracer {
	return &OpenTelemetryTracer{tracer: tp.Tracer(name)}
}

func (t *OpenTelemetryTracer) StartSpanWithAttributes(ctx context.Context, spanName string, attrs map[string]interface{}, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	opts = append(opts, trace.WithAttributes(convertAttributes(attrs)...))
	return t.tracer.Start(ctx, spanName, opts...)
}

func (t *OpenTelemetryTracer) RecordError(span trace.Span, err error, description string) {
	if err == nil {
		return
	}
	span.RecordError(err, trace.WithAttributes(attribute.String("error.description", description)))
	span.SetStatus(codes.Error, err.Error())
}

func (t *OpenTelemetryTracer) AddEvent(span trace.Span, name string, attrs map[string]interface{}) {
	span.AddEvent(name, trace.WithAttributes(convertAttributes(attrs)...))
}

func (t *OpenTelemetryTracer) SetAttributes(span trace.Span, attrs map[string]interface{}) {
	span.SetAttributes(convertAttributes(attrs)...)
}

func convertAttributes(attrs map[string]interface{}) []attribute.KeyValue {
	result := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		switch val := v.(type) {
		case string:
			result = append(result, attribute.String(k, val))
		case int:
			result = append(result, attribute.Int(k, val))
		case int64:
			result = append(result, attribute.Int64(k, val))
		case float64:
			result = append(result, attribute.Float64(k, val))
		case bool:
			result = append(result, attribute.Bool(k, val))
		case []string:
			result = append(result, attribute.StringSlice(k, val))
		case fmt.Stringer:
			result = append(result, attribute.String(k, val.String()))
		default:
			result = append(result, attribute.String(k, fmt.Sprintf("%v", val)))
		}
	}
	return result
}
