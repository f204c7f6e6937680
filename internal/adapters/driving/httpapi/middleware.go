package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/didact-labs/didact/internal/logger"
)

// loggerMiddleware logs each completed request at debug level.
func loggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		entry := logger.With(
			"method", c.Request.Method,
			"path", path,
			"status_code", c.Writer.Status(),
			"latency", time.Since(start).Round(time.Millisecond),
		)
		if msg := c.Errors.String(); msg != "" {
			entry.Warn("request failed", "error", msg)
			return
		}
		if logger.IsVerbose() {
			entry.Info("request completed")
		}
	}
}
