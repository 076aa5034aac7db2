package otel

import (
	"context"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestAddSpanWithoutTracer(t *testing.T) {
	ctx, span := AddSpan(context.Background(), "compute")
	defer span.End()
	if id := GetTraceID(ctx); id != "" {
		t.Fatalf("expected empty trace id, got %q", id)
	}
}

func TestAddSpanUsesInjectedTracer(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())

	ctx := InjectTracing(context.Background(), tp.Tracer("test"))
	ctx, span := AddSpan(ctx, "compute")
	defer span.End()
	if id := GetTraceID(ctx); len(id) != 32 {
		t.Fatalf("expected 32-char trace id, got %q", id)
	}
}
