package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/hrmatrix/internal/monitoring"
)

// HealthHandler exposes liveness and readiness probes.
type HealthHandler struct {
	manager *monitoring.HealthManager
	jobs    *monitoring.JobTracker
}

func NewHealthHandler(manager *monitoring.HealthManager, jobs *monitoring.JobTracker) *HealthHandler {
	return &HealthHandler{manager: manager, jobs: jobs}
}

// GET /health
func (h *HealthHandler) Overall(c *gin.Context) {
	report := h.manager.Evaluate(c.Request.Context())
	payload := gin.H{
		"success":    report.Success,
		"status":     report.Status,
		"checks":     report.Checks,
		"checked_at": time.Now().UTC(),
	}
	if jobs := h.jobs.Snapshot(); len(jobs) > 0 {
		payload["jobs"] = jobs
	}
	c.JSON(healthStatus(report), payload)
}

// GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	h.write(c, h.manager.EvaluateLiveness)
}

// GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	h.write(c, h.manager.EvaluateReadiness)
}

func (h *HealthHandler) write(c *gin.Context, evaluate func(context.Context) monitoring.HealthReport) {
	report := evaluate(c.Request.Context())
	c.JSON(healthStatus(report), gin.H{
		"success":    report.Success,
		"status":     report.Status,
		"checks":     report.Checks,
		"checked_at": time.Now().UTC(),
	})
}

// Degraded dependencies still serve traffic.
func healthStatus(report monitoring.HealthReport) int {
	if report.Status == monitoring.StatusDown {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}
