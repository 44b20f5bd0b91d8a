package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"milebot/internal/monitor"
)

// Metrics records per-request counters and latency. The route template
// is used as the path label so ids never blow up the cardinality.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		monitor.RecordHTTPRequest(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
			time.Since(start),
		)
	}
}
