package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/redislabs/cloud-autoscaler/internal/actuator"
	"github.com/redislabs/cloud-autoscaler/internal/domain"
	"github.com/redislabs/cloud-autoscaler/internal/gather"
	"github.com/redislabs/cloud-autoscaler/internal/inventory"
	"github.com/redislabs/cloud-autoscaler/internal/middleware"
	"github.com/redislabs/cloud-autoscaler/internal/optin"
	"github.com/redislabs/cloud-autoscaler/internal/provider"
	"github.com/redislabs/cloud-autoscaler/pkg/config"
)

// Dependencies bundles everything the router needs to wire its handlers.
type Dependencies struct {
	Config    *config.Config
	Cloud     provider.CloudProvider
	Inventory *inventory.Cache
	Registry  *optin.Registry
	Actuator  *actuator.Actuator
	Gatherer  *gather.Gatherer
}

// NewRouter builds the gin engine, mirroring the teacher's middleware
// chain: panic recovery, structured error handling, request logging, and
// rate limiting, ahead of the route table.
func NewRouter(deps Dependencies, thresholds domain.Thresholds) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.RateLimitMiddleware(middleware.GlobalRateLimiter))

	health := NewHealthHandler(deps.Cloud)
	router.GET("/health", health.Health)
	router.GET("/live", health.Live)
	router.GET("/ready", health.Ready)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	metricsHandler := NewMetricsHandler(deps.Gatherer, deps.Inventory, deps.Actuator, thresholds)
	autoscaleHandler := NewAutoscaleHandler(deps.Registry, deps.Inventory)
	configHandler := NewConfigHandler(deps.Config)

	api := router.Group("/api")
	api.Use(middleware.RateLimitMiddleware(middleware.APIRateLimiter))
	{
		api.GET("/metrics", metricsHandler.GetMetrics)
		api.POST("/autoscale/enable", autoscaleHandler.Enable)
		api.POST("/autoscale/disable", autoscaleHandler.Disable)
		api.GET("/autoscale/enabled", autoscaleHandler.Enabled)
		api.GET("/autoscaling-status", autoscaleHandler.Status)
		api.POST("/refresh-cloud", autoscaleHandler.RefreshCloud)
		api.GET("/config", configHandler.Get)
	}

	return router
}
