// Package middleware holds the gin middleware shared by every route.
package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/DaniDevGS/triven-shop/internal/logkey"
)

const (
	TraceIDHeader = "X-Trace-Id"
	traceIDKey    = "trace_id"
)

// Logger stamps every request with a trace id and logs it once it completes.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}
		c.Set(traceIDKey, traceID)
		c.Header(TraceIDHeader, traceID)

		start := time.Now()
		c.Next()

		attrs := []any{
			slog.String(logkey.TraceID, traceID),
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String(logkey.ERROR, c.Errors.String()))
		}

		switch {
		case c.Writer.Status() >= 500:
			slog.Error("request", attrs...)
		default:
			slog.Info("request", attrs...)
		}
	}
}

func TraceID(c *gin.Context) string {
	return c.GetString(traceIDKey)
}
