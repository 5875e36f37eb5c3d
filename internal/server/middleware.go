// Observability middleware for the HTTP API: request metrics and logging
package server

import (
	"net/http"
	"net/http/pprof"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/edukit/lessonforge/internal/logger"
	"github.com/edukit/lessonforge/internal/metrics"
)

// RequestObserver records Prometheus metrics and a structured log line for
// every request.
func RequestObserver(m *metrics.Metrics, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.HTTPRequestsInFlight.Inc()
		defer m.HTTPRequestsInFlight.Dec()

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		m.RecordHTTPRequest(c.Request.Method, route, strconv.Itoa(status), duration)
		log.LogHTTPRequest(c.Request.Method, c.Request.URL.Path, status, duration)
	}
}

// registerObservability mounts the metrics, health and profiling endpoints.
func registerObservability(r *gin.Engine) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "lessonforge"})
	})
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	debug := r.Group("/debug/pprof")
	debug.GET("/", gin.WrapF(pprof.Index))
	debug.GET("/cmdline", gin.WrapF(pprof.Cmdline))
	debug.GET("/profile", gin.WrapF(pprof.Profile))
	debug.GET("/symbol", gin.WrapF(pprof.Symbol))
	debug.GET("/trace", gin.WrapF(pprof.Trace))
	debug.GET("/heap", gin.WrapH(pprof.Handler("heap")))
	debug.GET("/goroutine", gin.WrapH(pprof.Handler("goroutine")))
	debug.GET("/allocs", gin.WrapH(pprof.Handler("allocs")))
}
