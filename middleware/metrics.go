package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	awspkg "github.com/Techyana/RWP-Pilot/pkg/aws"
)

// RequestMetrics records per-request count, latency, and error metrics. A nil
// client disables it. Paths are reported by route template so cardinality
// stays bounded.
func RequestMetrics(metrics *awspkg.MetricsClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		elapsed := time.Since(start)
		status := c.Writer.Status()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		dims := map[string]string{
			"Method": c.Request.Method,
			"Path":   path,
			"Status": statusRange(status),
		}

		// Publishing must not hold up the response.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			_ = metrics.RecordCount(ctx, awspkg.MetricHTTPRequests, dims)
			_ = metrics.RecordLatency(ctx, awspkg.MetricHTTPLatency, elapsed, dims)
			if status >= 400 {
				_ = metrics.RecordCount(ctx, awspkg.MetricHTTPErrors, dims)
				if status >= 500 {
					_ = metrics.RecordCount(ctx, awspkg.MetricHTTP5xx, dims)
				} else {
					_ = metrics.RecordCount(ctx, awspkg.MetricHTTP4xx, dims)
				}
			}
		}()
	}
}

func statusRange(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
