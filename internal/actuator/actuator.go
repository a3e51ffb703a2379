// Package actuator implements the scaling actuator (C6): per-subscription
// single-flight execution, duplicate suppression, and task-status
// polling.
package actuator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/redislabs/cloud-autoscaler/internal/decision"
	"github.com/redislabs/cloud-autoscaler/internal/domain"
	"github.com/redislabs/cloud-autoscaler/internal/optin"
	"github.com/redislabs/cloud-autoscaler/internal/provider"
	"github.com/redislabs/cloud-autoscaler/pkg/logger"
)

// DedupWindow is the interval within which an identical action for the
// same database is suppressed.
const DedupWindow = 300 * time.Second

// TaskPollDelay is the mandated pause between issuing a 202 and probing
// the resulting task.
const TaskPollDelay = 2 * time.Second

type ledgerEntry struct {
	values    string
	at        time.Time
	taskID    string
}

// Actuator owns the per-subscription mutexes and the recent-action
// ledger.
type Actuator struct {
	cloud    provider.CloudProvider
	registry *optin.Registry

	subMu sync.Mutex
	subs  map[string]*sync.Mutex

	ledgerMu sync.Mutex
	ledger   map[string]ledgerEntry

	memPct float64
	thrPct float64
}

// New constructs an actuator. memPct/thrPct are the configured scaling
// percentages applied by the decision engine.
func New(cloud provider.CloudProvider, registry *optin.Registry, memPct, thrPct float64) *Actuator {
	return &Actuator{
		cloud:    cloud,
		registry: registry,
		subs:     make(map[string]*sync.Mutex),
		ledger:   make(map[string]ledgerEntry),
		memPct:   memPct,
		thrPct:   thrPct,
	}
}

func (a *Actuator) mutexFor(subscriptionID string) *sync.Mutex {
	a.subMu.Lock()
	defer a.subMu.Unlock()
	m, ok := a.subs[subscriptionID]
	if !ok {
		m = &sync.Mutex{}
		a.subs[subscriptionID] = m
	}
	return m
}

func quiescent(subscriptionID string, allDatabases []domain.Database) bool {
	for _, db := range allDatabases {
		if db.SubscriptionID == subscriptionID && !db.IsActive() {
			return false
		}
	}
	return true
}

// Autoscale implements the §4.6 contract.
func (a *Actuator) Autoscale(
	ctx context.Context,
	subscription domain.Subscription,
	database domain.Database,
	autoscaleMetrics domain.MetricSet,
	thresholds domain.Thresholds,
	envelope domain.Envelope,
	allDatabases []domain.Database,
) (bool, error) {
	if !quiescent(subscription.ID, allDatabases) {
		return false, nil
	}
	if !database.IsActive() {
		return false, nil
	}

	mu := a.mutexFor(subscription.ID)
	if !mu.TryLock() {
		return false, nil
	}
	defer mu.Unlock()

	need := decision.NeedsScaling(autoscaleMetrics, thresholds, envelope, database.Shape)
	if !need.Any() {
		return false, nil
	}

	a.registry.SetStatus(database.ID, optin.StatusInProgress)

	partial := decision.ComputeTarget(database.Shape, autoscaleMetrics, envelope, a.memPct, a.thrPct)
	if partial.IsEmpty() {
		return false, nil
	}

	key, values, err := ledgerKey(database.ID, partial)
	if err != nil {
		return false, fmt.Errorf("encode ledger values: %w", err)
	}

	if a.isDuplicate(key, values) {
		return false, nil
	}

	correlationID := uuid.NewString()
	logger.Info("issuing scale request", map[string]interface{}{
		"correlation_id":  correlationID,
		"subscription_id": subscription.ID,
		"database_id":     database.ID,
	})

	result, err := a.cloud.UpdateDatabase(ctx, subscription.ID, database.ID, partial)
	if err != nil {
		return false, fmt.Errorf("update database %s: %w", database.ID, err)
	}

	a.recordAction(key, values, result.TaskID)

	if result.Synchronous {
		a.registry.SetStatus(database.ID, optin.StatusDone)
		return true, nil
	}

	select {
	case <-time.After(TaskPollDelay):
	case <-ctx.Done():
		return true, ctx.Err()
	}

	status, err := a.cloud.GetTask(ctx, result.TaskID)
	if err != nil {
		return true, fmt.Errorf("poll task %s: %w", result.TaskID, err)
	}

	switch {
	case status == provider.TaskCompleted || status == provider.TaskSuccess:
		a.registry.SetStatus(database.ID, optin.StatusDone)
	case status.Failed():
		return true, fmt.Errorf("scale task %s failed for database %s", result.TaskID, database.ID)
	default:
		// Neither terminal nor resolved within the probe window; the
		// next metrics cycle reconciles status.
	}

	logger.Info("scale request completed", map[string]interface{}{
		"correlation_id": correlationID,
		"database_id":    database.ID,
		"task_status":    string(status),
	})

	return true, nil
}

func ledgerKey(databaseID string, partial domain.PartialShape) (string, string, error) {
	data, err := json.Marshal(partial)
	if err != nil {
		return "", "", err
	}
	return databaseID, string(data), nil
}

func (a *Actuator) isDuplicate(databaseID, values string) bool {
	a.ledgerMu.Lock()
	defer a.ledgerMu.Unlock()

	entry, ok := a.ledger[databaseID]
	if !ok {
		return false
	}
	return entry.values == values && time.Since(entry.at) < DedupWindow
}

func (a *Actuator) recordAction(databaseID, values, taskID string) {
	a.ledgerMu.Lock()
	defer a.ledgerMu.Unlock()
	a.ledger[databaseID] = ledgerEntry{values: values, at: time.Now(), taskID: taskID}
}
