package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/redislabs/cloud-autoscaler/pkg/config"
)

// ConfigHandler exposes the subset of server configuration the dashboard
// needs to poll at the right cadence.
type ConfigHandler struct {
	cfg *config.Config
}

// NewConfigHandler constructs a ConfigHandler.
func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{cfg: cfg}
}

// Get handles GET /api/config.
func (h *ConfigHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"prometheus_query_interval_seconds": h.cfg.CloudAPIQueryIntervalSeconds,
	})
}
