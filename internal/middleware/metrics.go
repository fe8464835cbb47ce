package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sf10-api/internal/service"
)

// Metrics observes every request. Route patterns are used as the path label
// so per-student and per-section URLs collapse into one series; the scrape
// endpoint itself is excluded.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil || c.Request.URL.Path == "/metrics" {
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
