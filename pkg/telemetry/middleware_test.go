package telemetry_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"smart-todo-api/pkg/telemetry"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func installRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	prevTP := otel.GetTracerProvider()
	prevProp := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})

	recorder := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	otel.SetTextMapPropagator(propagation.TraceContext{})
	return recorder
}

func newTracedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(telemetry.Middleware())
	r.GET("/tasks/:id", func(c *gin.Context) {
		_, span := otel.Tracer("test").Start(c.Request.Context(), "tasks.Get")
		span.End()
		c.Status(http.StatusOK)
	})
	r.GET("/boom", func(c *gin.Context) {
		c.Status(http.StatusInternalServerError)
	})
	return r
}

func TestMiddlewareContinuesIncomingTrace(t *testing.T) {
	recorder := installRecorder(t)
	r := newTracedRouter()

	req := httptest.NewRequest(http.MethodGet, "/tasks/123", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	child, server := spans[0], spans[1]

	if server.Name() != "GET /tasks/:id" {
		t.Fatalf("unexpected server span name %q", server.Name())
	}
	if server.SpanKind() != trace.SpanKindServer {
		t.Fatalf("expected server span kind, got %v", server.SpanKind())
	}
	if got := server.SpanContext().TraceID().String(); got != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Fatalf("trace not continued, got trace id %s", got)
	}
	if got := server.Parent().SpanID().String(); got != "00f067aa0ba902b7" {
		t.Fatalf("unexpected remote parent %s", got)
	}
	if child.Parent().SpanID() != server.SpanContext().SpanID() {
		t.Fatal("handler span is not a child of the request span")
	}
}

func TestMiddlewareMarksServerErrors(t *testing.T) {
	recorder := installRecorder(t)
	r := newTracedRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status().Code != codes.Error {
		t.Fatalf("expected error status, got %v", spans[0].Status())
	}
	if spans[0].Parent().IsValid() {
		t.Fatal("expected a root span without incoming trace headers")
	}
}
