package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	resp "menu-catalog/internal/transport/http/response"
)

var (
	httpReqTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Count of HTTP requests"},
		[]string{"engine", "path", "method", "code"},
	)
	httpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latency of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"engine", "path", "method"},
	)
	authRejectTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "auth_rejected_total", Help: "Requests rejected by token authentication"},
		[]string{"reason"},
	)
)

func init() { prometheus.MustRegister(httpReqTotal, httpLatency, authRejectTotal) }

// Metrics 按路由模板统计；业务码取自 envelope（HTTP 状态恒为 200）
func Metrics(engine string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		code := c.GetInt(resp.KeyCode)
		httpReqTotal.WithLabelValues(engine, path, c.Request.Method, strconv.Itoa(code)).Inc()
		httpLatency.WithLabelValues(engine, path, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}
