package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jensholdgaard/player-auction/internal/telemetry"
)

// requestLogger opens a server span per request and logs the result with
// the span's trace id.
func requestLogger(tp trace.TracerProvider, logger *slog.Logger) gin.HandlerFunc {
	tracer := tp.Tracer("github.com/jensholdgaard/player-auction/internal/api")
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		ctx, span := tracer.Start(c.Request.Context(), c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", c.Request.Method),
				attribute.String("http.route", route),
			),
		)
		defer span.End()
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.response.status_code", status))

		level := slog.LevelDebug
		if status >= 500 {
			level = slog.LevelError
		}
		telemetry.LogWithTrace(ctx, logger).Log(ctx, level, "http request",
			slog.String("method", c.Request.Method),
			slog.String("route", route),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
		)
	}
}

// requireReady rejects requests while this replica does not own the
// auction state.
func requireReady(ready func() bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ready() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, errorResponse{Error: "auction state is not available on this replica"})
			return
		}
		c.Next()
	}
}
