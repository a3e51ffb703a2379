package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/redislabs/cloud-autoscaler/internal/provider"
)

// HealthHandler serves the three liveness/readiness probes. Readiness
// confirms the cloud provider is reachable, not merely that the process
// is up.
type HealthHandler struct {
	cloud provider.CloudProvider
}

// NewHealthHandler constructs a HealthHandler.
func NewHealthHandler(cloud provider.CloudProvider) *HealthHandler {
	return &HealthHandler{cloud: cloud}
}

// Health handles GET /health.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Live handles GET /live: the process is running and serving requests.
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "live"})
}

// Ready handles GET /ready: the process can reach the upstream cloud
// management API.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if _, err := h.cloud.ListSubscriptions(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
