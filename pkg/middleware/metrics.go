package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/golfdiscount/wsi-automation-api/pkg/metrics"
)

// MetricsMiddleware records HTTP request metrics
func MetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		m.HTTPRequestsTotal.WithLabelValues(m.ServiceName(), c.Request.Method, path, status).Inc()
		m.HTTPRequestDuration.WithLabelValues(m.ServiceName(), c.Request.Method, path).
			Observe(time.Since(start).Seconds())
	}
}

// MetricsEndpoint serves the Prometheus metrics registry
func MetricsEndpoint(m *metrics.Metrics) gin.HandlerFunc {
	handler := m.Handler()
	return func(c *gin.Context) {
		handler.ServeHTTP(c.Writer, c.Request)
	}
}
