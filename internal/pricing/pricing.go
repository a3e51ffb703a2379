// Package pricing implements the shard-type catalog and per-subscription
// pricing lookup (C2): a one-hour TTL pricing cache per subscription and a
// process-wide shard-type price matrix retained indefinitely once fetched.
package pricing

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/redislabs/cloud-autoscaler/internal/domain"
)

// ShardType is one entry of the provider's shard-type catalog.
type ShardType struct {
	Name          string
	Region        string
	Cloud         string
	MemMB         float64
	ThroughputOps float64
	PricePerUnit  float64
}

// UnitPrice is the cheapest matching shard-type price for a proposed
// shape.
type UnitPrice struct {
	Price       float64
	UnitType    string
	UnitsNeeded int
}

// CatalogSource fetches the shard-type catalog on first use. Grounded on
// the provider's pricing endpoint; injected so tests can stub it.
type CatalogSource interface {
	FetchShardTypes(ctx context.Context) ([]ShardType, error)
}

// SubscriptionSource fetches a subscription's priced line items.
type SubscriptionSource interface {
	GetSubscriptionPricing(ctx context.Context, subscriptionID string) ([]domain.PricingRow, error)
}

const subscriptionPricingTTL = time.Hour

type subscriptionEntry struct {
	rows      []domain.PricingRow
	fetchedAt time.Time
}

// Catalog is the cache described by C2.
type Catalog struct {
	catalogSrc CatalogSource
	subSrc     SubscriptionSource

	mu         sync.RWMutex
	shardTypes []ShardType
	shardErr   error
	loaded     bool

	subMu  sync.Mutex
	subs   map[string]subscriptionEntry
}

// NewCatalog constructs an empty catalog.
func NewCatalog(catalogSrc CatalogSource, subSrc SubscriptionSource) *Catalog {
	return &Catalog{
		catalogSrc: catalogSrc,
		subSrc:     subSrc,
		subs:       make(map[string]subscriptionEntry),
	}
}

// ShardTypes returns the process-wide shard-type catalog, fetching it on
// first use and caching it indefinitely thereafter. A double-populate
// race across concurrent first callers is acceptable since the fetch is
// idempotent.
func (c *Catalog) ShardTypes(ctx context.Context) ([]ShardType, error) {
	c.mu.RLock()
	if c.loaded {
		defer c.mu.RUnlock()
		return c.shardTypes, c.shardErr
	}
	c.mu.RUnlock()

	types, err := c.catalogSrc.FetchShardTypes(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		c.shardTypes = types
		c.shardErr = err
		c.loaded = true
	}
	return c.shardTypes, c.shardErr
}

// SubscriptionPricing returns the one-hour-TTL cached pricing table for a
// subscription, refreshing on miss or expiry.
func (c *Catalog) SubscriptionPricing(ctx context.Context, subscriptionID string) ([]domain.PricingRow, error) {
	c.subMu.Lock()
	entry, ok := c.subs[subscriptionID]
	c.subMu.Unlock()

	if ok && time.Since(entry.fetchedAt) < subscriptionPricingTTL {
		return entry.rows, nil
	}

	rows, err := c.subSrc.GetSubscriptionPricing(ctx, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("fetch pricing for subscription %s: %w", subscriptionID, err)
	}

	c.subMu.Lock()
	c.subs[subscriptionID] = subscriptionEntry{rows: rows, fetchedAt: time.Now()}
	c.subMu.Unlock()

	return rows, nil
}

// BestUnitPrice enumerates shard types filtered to (region, cloud),
// computes the units needed to cover mem/throughput, and returns the
// cheapest matching entry. Returns nil when no entry matches.
func (c *Catalog) BestUnitPrice(ctx context.Context, region, cloud string, memMB, throughputOps float64, ha bool) (*UnitPrice, error) {
	types, err := c.ShardTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("shard types: %w", err)
	}

	var best *UnitPrice
	for _, t := range types {
		if t.Region != region || t.Cloud != cloud {
			continue
		}
		units := int(math.Max(math.Ceil(memMB/t.MemMB), math.Ceil(throughputOps/t.ThroughputOps)))
		if units < 1 {
			units = 1
		}
		price := float64(units) * t.PricePerUnit
		if ha {
			price *= 2
		}
		if best == nil || price < best.Price {
			best = &UnitPrice{Price: price, UnitType: t.Name, UnitsNeeded: units}
		}
	}
	return best, nil
}

// SubscriptionHourlyPrice surfaces the first "Shards" pricing row matching
// (typeDetails, quantity=shards), falling back to the first Shards row.
func SubscriptionHourlyPrice(rows []domain.PricingRow, typeDetails string, shards int) *float64 {
	var fallback *float64
	for i := range rows {
		row := rows[i]
		if row.Type != "Shards" {
			continue
		}
		if fallback == nil {
			v := row.PricePerHr
			fallback = &v
		}
		if row.TypeDetails == typeDetails && row.Quantity == shards {
			v := row.PricePerHr
			return &v
		}
	}
	return fallback
}

// SubscriptionMinimumPrice surfaces the MinimumPrice row verbatim.
func SubscriptionMinimumPrice(rows []domain.PricingRow) *float64 {
	for i := range rows {
		if rows[i].Type == "MinimumPrice" {
			v := rows[i].PricePerHr
			return &v
		}
	}
	return nil
}
