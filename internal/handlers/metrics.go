package handlers

import (
	"strconv"
	"time"

	"realtime_chat/internal/metrics"

	"github.com/gin-gonic/gin"
)

// metricsMiddleware records request counts and latencies keyed by route
// pattern, so path parameters don't explode label cardinality.
func (h *Handler) metricsMiddleware(c *gin.Context) {
	start := time.Now()
	c.Next()

	path := c.FullPath()
	if path == "" {
		path = "unmatched"
	}
	metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
	// websocket requests last as long as the connection
	if path != "/ws" {
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
