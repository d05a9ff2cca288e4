package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// TestTraceContextPropagation exercises the otelmux middleware the way
// cmd/server wires it: spans are emitted per request and an incoming
// traceparent header joins the caller's trace.
func TestTraceContextPropagation(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	r := mux.NewRouter()
	r.Use(otelmux.Middleware("habitsync-api"))
	r.HandleFunc("/api/v1/habits", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("new trace without traceparent", func(t *testing.T) {
		exporter.Reset()

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/habits", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		if err := tp.ForceFlush(context.Background()); err != nil {
			t.Fatalf("force flush: %v", err)
		}

		spans := exporter.GetSpans()
		if len(spans) == 0 {
			t.Fatal("expected at least one span")
		}
		if !spans[0].SpanContext.TraceID().IsValid() {
			t.Error("expected a valid trace ID")
		}
	})

	t.Run("joins an incoming trace", func(t *testing.T) {
		exporter.Reset()

		const parent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
		req := httptest.NewRequest("GET", "/api/v1/habits", nil)
		req.Header.Set("traceparent", parent)

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		if err := tp.ForceFlush(context.Background()); err != nil {
			t.Fatalf("force flush: %v", err)
		}

		spans := exporter.GetSpans()
		if len(spans) == 0 {
			t.Fatal("expected at least one span")
		}

		wantTraceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
		if err != nil {
			t.Fatalf("parse trace id: %v", err)
		}
		if got := spans[0].SpanContext.TraceID(); got != wantTraceID {
			t.Errorf("expected span to join trace %s, got %s", wantTraceID, got)
		}
	})
}
