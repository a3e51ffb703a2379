package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/redislabs/cloud-autoscaler/internal/inventory"
	"github.com/redislabs/cloud-autoscaler/internal/optin"
)

// AutoscaleHandler serves the opt-in/opt-out and status endpoints backed
// by the registry (C7).
type AutoscaleHandler struct {
	registry  *optin.Registry
	inventory *inventory.Cache
}

// NewAutoscaleHandler constructs an AutoscaleHandler.
func NewAutoscaleHandler(registry *optin.Registry, inv *inventory.Cache) *AutoscaleHandler {
	return &AutoscaleHandler{registry: registry, inventory: inv}
}

type toggleRequest struct {
	SubscriptionID string `json:"subscription_id" binding:"required"`
	DatabaseID     string `json:"database_id" binding:"required"`
}

// Enable handles POST /api/autoscale/enable.
func (h *AutoscaleHandler) Enable(c *gin.Context) {
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "subscription_id and database_id are required", "code": "BAD_REQUEST"})
		return
	}

	h.registry.Enable(req.SubscriptionID, req.DatabaseID)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Disable handles POST /api/autoscale/disable.
func (h *AutoscaleHandler) Disable(c *gin.Context) {
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "subscription_id and database_id are required", "code": "BAD_REQUEST"})
		return
	}

	h.registry.Disable(req.SubscriptionID, req.DatabaseID)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Enabled handles GET /api/autoscale/enabled.
func (h *AutoscaleHandler) Enabled(c *gin.Context) {
	keys := h.registry.List()
	pairs := make([][2]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, [2]string{k.SubscriptionID, k.DatabaseID})
	}
	c.JSON(http.StatusOK, pairs)
}

// Status handles GET /api/autoscaling-status.
func (h *AutoscaleHandler) Status(c *gin.Context) {
	statuses := h.registry.AllStatuses()
	out := make(map[string]string, len(statuses))
	for dbID, status := range statuses {
		out[dbID] = string(status)
	}
	c.JSON(http.StatusOK, out)
}

// RefreshCloud handles POST /api/refresh-cloud, forcing the inventory
// cache to bypass its TTL on the next lookup.
func (h *AutoscaleHandler) RefreshCloud(c *gin.Context) {
	h.inventory.Invalidate()
	c.JSON(http.StatusOK, gin.H{"success": true})
}
