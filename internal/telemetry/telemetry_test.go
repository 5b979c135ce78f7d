package telemetry

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func withRecorders(t *testing.T) (*tracetest.SpanRecorder, *observer.ObservedLogs) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	core, logs := observer.New(zapcore.DebugLevel)

	prevTracer, prevLogger := Tracer, Logger
	Tracer, Logger = tp.Tracer("test"), zap.New(core)
	t.Cleanup(func() { Tracer, Logger = prevTracer, prevLogger })
	return recorder, logs
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(TracingMiddleware())
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/payments/:id/confirm", func(c *gin.Context) { c.Status(http.StatusConflict) })
	r.GET("/payments/:id", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	return r
}

func spanAttr(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracingMiddleware_TagsPaymentID(t *testing.T) {
	recorder, logs := withRecorders(t)
	r := newTestRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/payments/pay_tx_1/confirm", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "POST /payments/:id/confirm", spans[0].Name())
	id, ok := spanAttr(spans[0], "payment.id")
	require.True(t, ok)
	assert.Equal(t, "pay_tx_1", id.AsString())

	entries := logs.FilterMessage("HTTP request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "pay_tx_1", entries[0].ContextMap()["payment_id"])
}

func TestTracingMiddleware_ProbeRoutesLogAtDebug(t *testing.T) {
	recorder, logs := withRecorders(t)
	r := newTestRouter()

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	_, ok := spanAttr(spans[0], "payment.id")
	assert.False(t, ok)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
}

func TestTracingMiddleware_ServerErrorMarksSpan(t *testing.T) {
	recorder, logs := withRecorders(t)
	r := newTestRouter()

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/payments/pay_x", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "Error", spans[0].Status().Code.String())
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[0].Level)
}
