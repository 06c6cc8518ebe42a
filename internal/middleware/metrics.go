package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-api/internal/service"
)

// Metrics records request latency per route template. Unmatched paths are
// folded into one label so scanners cannot explode cardinality.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
