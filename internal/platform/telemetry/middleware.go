package telemetry

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// HeaderTraceID echoes the active trace id on every API response.
const HeaderTraceID = "X-Trace-ID"

type httpInstruments struct {
	duration metric.Float64Histogram
	requests metric.Int64Counter
	inFlight metric.Int64UpDownCounter
}

// instruments are created once against the global meter provider. A
// creation error is reported through otel.Handle and disables recording.
var instruments = sync.OnceValue(func() *httpInstruments {
	meter := otel.Meter(InstrumentationName)

	duration, err := meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("HTTP request duration"), metric.WithUnit("s"))
	if err != nil {
		otel.Handle(err)
		return nil
	}

	requests, err := meter.Int64Counter("http.server.request.total",
		metric.WithDescription("HTTP requests served"))
	if err != nil {
		otel.Handle(err)
		return nil
	}

	inFlight, err := meter.Int64UpDownCounter("http.server.active_requests",
		metric.WithDescription("HTTP requests in flight"))
	if err != nil {
		otel.Handle(err)
		return nil
	}

	return &httpInstruments{duration: duration, requests: requests, inFlight: inFlight}
})

// Middleware returns the otelgin tracing handler followed by a handler that
// records request metrics and sets X-Trace-ID.
func Middleware(serviceName string) []gin.HandlerFunc {
	return []gin.HandlerFunc{otelgin.Middleware(serviceName), measure}
}

func measure(c *gin.Context) {
	ctx := c.Request.Context()

	// otelgin has already started the span; the header must precede the body.
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		c.Header(HeaderTraceID, sc.TraceID().String())
	}

	inst := instruments()
	if inst == nil {
		c.Next()
		return
	}

	route := metric.WithAttributes(
		attribute.String("http.method", c.Request.Method),
		attribute.String("http.route", c.FullPath()),
	)

	start := time.Now()

	inst.inFlight.Add(ctx, 1, route)
	defer inst.inFlight.Add(ctx, -1, route)

	c.Next()

	done := metric.WithAttributes(
		attribute.String("http.method", c.Request.Method),
		attribute.String("http.route", c.FullPath()),
		attribute.Int("http.status_code", c.Writer.Status()),
	)
	inst.duration.Record(ctx, time.Since(start).Seconds(), done)
	inst.requests.Add(ctx, 1, done)
}
