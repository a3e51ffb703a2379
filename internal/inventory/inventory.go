// Package inventory implements the two-TTL cache of subscriptions and
// per-subscription databases (C3).
package inventory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redislabs/cloud-autoscaler/internal/domain"
	"github.com/redislabs/cloud-autoscaler/internal/provider"
)

const (
	// shortTTL is used while any database is opted into autoscaling.
	shortTTL = 60 * time.Second
	// longTTL is used otherwise, to bound upstream load when nobody is
	// watching the autoscale path closely.
	longTTL = 3600 * time.Second
)

// AnyOptedIn is the back-reference into the opt-in registry. It is an
// explicit accessor rather than a compile-time import of the optin
// package, per SPEC_FULL.md's note on implicit cross-module coupling.
type AnyOptedIn func() bool

// Cache is the inventory cache described by C3.
type Cache struct {
	cloud      provider.CloudProvider
	anyOptedIn AnyOptedIn

	mu             sync.RWMutex
	subscriptions  []domain.Subscription
	databases      map[string][]domain.Database
	lastFetch      time.Time
	databasesFetch map[string]time.Time
}

// New constructs an inventory cache. anyOptedIn reports whether the opt-in
// registry is currently non-empty, selecting the cache's effective TTL.
func New(cloud provider.CloudProvider, anyOptedIn AnyOptedIn) *Cache {
	return &Cache{
		cloud:          cloud,
		anyOptedIn:     anyOptedIn,
		databases:      make(map[string][]domain.Database),
		databasesFetch: make(map[string]time.Time),
	}
}

func (c *Cache) ttl() time.Duration {
	if c.anyOptedIn() {
		return shortTTL
	}
	return longTTL
}

// Subscriptions returns the cached subscription list, refreshing from the
// provider when the TTL has elapsed. Refreshing also clears the
// per-subscription databases cache, since subscription churn may reshape
// ownership.
func (c *Cache) Subscriptions(ctx context.Context) ([]domain.Subscription, error) {
	ttl := c.ttl()

	c.mu.RLock()
	fresh := len(c.subscriptions) > 0 && time.Since(c.lastFetch) < ttl
	snapshot := c.subscriptions
	c.mu.RUnlock()
	if fresh {
		return snapshot, nil
	}

	subs, err := c.cloud.ListSubscriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh subscriptions: %w", err)
	}

	c.mu.Lock()
	c.subscriptions = subs
	c.lastFetch = time.Now()
	c.databases = make(map[string][]domain.Database)
	c.databasesFetch = make(map[string]time.Time)
	c.mu.Unlock()

	return subs, nil
}

// Databases returns the cached database list for a subscription,
// refreshing from the provider when the TTL has elapsed.
func (c *Cache) Databases(ctx context.Context, subscriptionID string) ([]domain.Database, error) {
	ttl := c.ttl()

	c.mu.RLock()
	fetchedAt, known := c.databasesFetch[subscriptionID]
	fresh := known && time.Since(fetchedAt) < ttl
	snapshot := c.databases[subscriptionID]
	c.mu.RUnlock()
	if fresh {
		return snapshot, nil
	}

	dbs, err := c.cloud.ListDatabases(ctx, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("refresh databases for subscription %s: %w", subscriptionID, err)
	}

	c.mu.Lock()
	c.databases[subscriptionID] = dbs
	c.databasesFetch[subscriptionID] = time.Now()
	c.mu.Unlock()

	return dbs, nil
}

// Invalidate forces the next lookup to refetch regardless of TTL. Backs
// the /api/refresh-cloud endpoint.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastFetch = time.Time{}
	c.databasesFetch = make(map[string]time.Time)
}
