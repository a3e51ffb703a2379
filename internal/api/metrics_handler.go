// Package api wires the gin HTTP surface described in SPEC_FULL.md §6
// onto the control-loop collaborators.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/redislabs/cloud-autoscaler/internal/actuator"
	"github.com/redislabs/cloud-autoscaler/internal/controlloop"
	"github.com/redislabs/cloud-autoscaler/internal/domain"
	"github.com/redislabs/cloud-autoscaler/internal/gather"
	"github.com/redislabs/cloud-autoscaler/internal/inventory"
	"github.com/redislabs/cloud-autoscaler/internal/monitoring"
	"github.com/redislabs/cloud-autoscaler/pkg/logger"
)

// MetricsHandler serves the operator-facing metrics endpoint and drives
// opted-in databases through the actuator as a side effect, mirroring
// the control flow described in SPEC_FULL.md §2.
type MetricsHandler struct {
	gatherer   *gather.Gatherer
	inventory  *inventory.Cache
	actuator   *actuator.Actuator
	thresholds domain.Thresholds
}

// NewMetricsHandler constructs a MetricsHandler.
func NewMetricsHandler(g *gather.Gatherer, inv *inventory.Cache, act *actuator.Actuator, thresholds domain.Thresholds) *MetricsHandler {
	return &MetricsHandler{gatherer: g, inventory: inv, actuator: act, thresholds: thresholds}
}

// GetMetrics handles GET /api/metrics. The optional ?period= query
// parameter (e.g. "10m") overrides the configured display window for
// this request alone; an absent or unparseable value falls back to the
// configured default.
func (h *MetricsHandler) GetMetrics(c *gin.Context) {
	start := time.Now()
	ctx := c.Request.Context()

	var displayWindow *time.Duration
	if raw := c.Query("period"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			displayWindow = &parsed
		} else {
			logger.Warn("ignoring unparseable period query parameter", map[string]interface{}{
				"period": raw,
				"error":  err.Error(),
			})
		}
	}

	result, err := controlloop.Tick(ctx, h.gatherer, h.inventory, h.actuator, h.thresholds, displayWindow)
	if err != nil {
		logger.Error("gather failed", err, nil)
		monitoring.ObserveGather(start, "error")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to gather metrics",
			"code":  "GATHER_FAILED",
		})
		return
	}
	monitoring.ObserveGather(start, "ok")

	c.JSON(http.StatusOK, gin.H{"databases": result.Databases})
}
