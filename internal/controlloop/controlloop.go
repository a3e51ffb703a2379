// Package controlloop composes one poll tick: a gather pass (C4) followed
// by actuation (C6) of every opted-in database C5 flagged as needing
// scaling. Both the HTTP metrics endpoint and the background ticker in
// cmd/server drive the same tick, so opted-in databases are actuated
// whether or not an operator is watching the dashboard.
package controlloop

import (
	"context"
	"time"

	"github.com/redislabs/cloud-autoscaler/internal/actuator"
	"github.com/redislabs/cloud-autoscaler/internal/domain"
	"github.com/redislabs/cloud-autoscaler/internal/gather"
	"github.com/redislabs/cloud-autoscaler/internal/inventory"
	"github.com/redislabs/cloud-autoscaler/internal/monitoring"
	"github.com/redislabs/cloud-autoscaler/pkg/logger"
)

// Tick runs one gather pass and actuates every opted-in database it
// returns. It returns the gather result so callers serving HTTP can
// render it unchanged. displayWindow overrides the configured display
// window for this pass alone; pass nil to use the configured default.
func Tick(ctx context.Context, gatherer *gather.Gatherer, inv *inventory.Cache, act *actuator.Actuator, thresholds domain.Thresholds, displayWindow *time.Duration) (*gather.Result, error) {
	result, err := gatherer.GatherAll(ctx, displayWindow)
	if err != nil {
		return nil, err
	}

	driveAutoscaling(ctx, result, inv, act, thresholds)

	return result, nil
}

func driveAutoscaling(ctx context.Context, result *gather.Result, inv *inventory.Cache, act *actuator.Actuator, thresholds domain.Thresholds) {
	for _, record := range result.Databases {
		if !record.OptedIn {
			continue
		}

		siblings, err := inv.Databases(ctx, record.SubscriptionID)
		if err != nil {
			logger.Warn("autoscale: failed to load sibling databases", map[string]interface{}{
				"subscription_id": record.SubscriptionID,
				"error":           err.Error(),
			})
			continue
		}

		db := domain.Database{
			ID:             record.DatabaseID,
			SubscriptionID: record.SubscriptionID,
			Name:           record.Name,
			Status:         record.Status,
			Shape:          record.Shape,
		}
		sub := domain.Subscription{ID: record.SubscriptionID}

		scaled, err := act.Autoscale(ctx, sub, db, record.Autoscale, thresholds, record.Envelope, siblings)
		if err != nil {
			logger.Error("autoscale failed", err, map[string]interface{}{
				"subscription_id": record.SubscriptionID,
				"database_id":     record.DatabaseID,
			})
			monitoring.ScaleActionsTotal.WithLabelValues("combined", "error").Inc()
			continue
		}
		if scaled {
			monitoring.ScaleActionsTotal.WithLabelValues("combined", "ok").Inc()
		}
	}
}
