package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redislabs/cloud-autoscaler/internal/actuator"
	"github.com/redislabs/cloud-autoscaler/internal/api"
	"github.com/redislabs/cloud-autoscaler/internal/controlloop"
	"github.com/redislabs/cloud-autoscaler/internal/domain"
	"github.com/redislabs/cloud-autoscaler/internal/downscale"
	"github.com/redislabs/cloud-autoscaler/internal/gather"
	"github.com/redislabs/cloud-autoscaler/internal/inventory"
	"github.com/redislabs/cloud-autoscaler/internal/optin"
	"github.com/redislabs/cloud-autoscaler/internal/pricing"
	"github.com/redislabs/cloud-autoscaler/internal/provider"
	"github.com/redislabs/cloud-autoscaler/pkg/config"
	"github.com/redislabs/cloud-autoscaler/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		logger.Fatal("Failed to load configuration", err, nil)
	}

	logLevel := parseLogLevel(cfg.LogLevel)
	appLogger := logger.NewLogger(logLevel, os.Stdout, cfg.LogFormat == "json")
	logger.SetDefault(appLogger)

	logger.Info("Starting autoscaler", map[string]interface{}{
		"port":              cfg.ServerPort,
		"prometheus_url":    cfg.PrometheusServerURL,
		"autoscale_period":  cfg.AutoscaleQueryPeriod.String(),
		"display_period":    cfg.PrometheusQueryPeriod.String(),
	})

	cloudClient := provider.NewCloudClient(cfg.RedisCloudAPIKey, cfg.RedisCloudAPISecret)
	promClient := provider.NewPrometheusClient(cfg.PrometheusServerURL)

	registry := optin.New()
	invCache := inventory.New(cloudClient, registry.Any)
	catalog := pricing.NewCatalog(cloudClient, cloudClient)
	advisor := downscale.New(catalog)

	thresholds := domain.Thresholds{
		Throughput:    cfg.ThroughputThreshold,
		Memory:        cfg.MemoryThreshold,
		CPU:           cfg.CPUThreshold,
		LatencyMs:     cfg.LatencyThresholdMs,
		PayloadSizeKB: cfg.PayloadSizeThresholdKB,
	}

	gatherer := gather.New(invCache, promClient, catalog, advisor, registry, gather.Options{
		Thresholds:      thresholds,
		DisplayWindow:   cfg.PrometheusQueryPeriod,
		AutoscaleWindow: cfg.AutoscaleQueryPeriod,
	})

	act := actuator.New(cloudClient, registry, cfg.MemoryScalingPercentage, cfg.ThroughputScalingPercentage)

	stopTicker := make(chan struct{})
	go runAutoscaleTicker(gatherer, invCache, act, thresholds, cfg, stopTicker)

	router := api.NewRouter(api.Dependencies{
		Config:    cfg,
		Cloud:     cloudClient,
		Inventory: invCache,
		Registry:  registry,
		Actuator:  act,
		Gatherer:  gatherer,
	}, thresholds)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down gracefully...", nil)
		close(stopTicker)
		logger.Info("Shutdown complete", nil)
		os.Exit(0)
	}()

	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	logger.Info("Server starting", map[string]interface{}{
		"address":      addr,
		"health_check": fmt.Sprintf("http://localhost%s/health", addr),
	})

	if err := router.Run(addr); err != nil {
		logger.Fatal("Failed to start server", err, nil)
	}
}

// runAutoscaleTicker drives the gather pipeline independent of HTTP
// traffic, on cloud_api_query_interval_seconds_autoscale, so opted-in
// databases keep getting actuated even when no operator is watching the
// dashboard.
func runAutoscaleTicker(gatherer *gather.Gatherer, invCache *inventory.Cache, act *actuator.Actuator, thresholds domain.Thresholds, cfg *config.Config, stop <-chan struct{}) {
	interval := time.Duration(cfg.CloudAPIQueryIntervalSecondsAutoscale) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			if _, err := controlloop.Tick(ctx, gatherer, invCache, act, thresholds, nil); err != nil {
				logger.Error("background gather failed", err, nil)
			}
			cancel()
		}
	}
}

func parseLogLevel(level string) logger.LogLevel {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return logger.DEBUG
	case "INFO":
		return logger.INFO
	case "WARN":
		return logger.WARN
	case "ERROR":
		return logger.ERROR
	case "FATAL":
		return logger.FATAL
	default:
		return logger.INFO
	}
}
