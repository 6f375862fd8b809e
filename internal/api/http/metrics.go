package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nivethaug/clawd-backend/internal/provision"
)

// MetricsHandler exposes the provisioning counters for ops tooling.
type MetricsHandler struct {
	startedAt time.Time
}

func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{startedAt: time.Now().UTC()}
}

func (h *MetricsHandler) Metrics(c *gin.Context) {
	m := provision.GetMetrics()
	c.JSON(http.StatusOK, gin.H{
		"ok":         true,
		"started_at": h.startedAt,
		"uptime_s":   int64(time.Since(h.startedAt).Seconds()),
		"provisioning": gin.H{
			"runs_started":    m.RunsStarted(),
			"runs_ready":      m.RunsReady(),
			"runs_failed":     m.RunsFailed(),
			"runs_timed_out":  m.RunsTimedOut(),
			"runs_faulted":    m.RunsFaulted(),
			"runs_finished":   m.Finished(),
			"avg_duration_ms": m.AverageDuration(),
		},
	})
}

func (h *MetricsHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/metrics", h.Metrics)
}
