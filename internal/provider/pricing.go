package provider

import (
	"encoding/json"
	"context"
	"fmt"
	"net/http"

	"github.com/redislabs/cloud-autoscaler/internal/domain"
	"github.com/redislabs/cloud-autoscaler/internal/pricing"
)

type wireShardType struct {
	Name          string  `json:"name"`
	Region        string  `json:"region"`
	Cloud         string  `json:"provider"`
	MemoryInGB    float64 `json:"memoryInGb"`
	ThroughputOps float64 `json:"throughputOperationsPerSecond"`
	PricePerHour  float64 `json:"pricePerHour"`
}

type shardTypesResponse struct {
	ShardTypes []wireShardType `json:"shardTypes"`
}

// FetchShardTypes implements pricing.CatalogSource against the cloud
// provider's pricing catalog endpoint.
func (c *CloudClient) FetchShardTypes(ctx context.Context) ([]pricing.ShardType, error) {
	status, body, err := c.request(ctx, http.MethodGet, "/pricing/shard-types", nil)
	if err != nil {
		return nil, fmt.Errorf("fetch shard types: %w", err)
	}
	if status < 200 || status >= 300 {
		return nil, &Error{Status: status, Body: string(body)}
	}

	var parsed shardTypesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse shard types response: %w", err)
	}

	types := make([]pricing.ShardType, 0, len(parsed.ShardTypes))
	for _, t := range parsed.ShardTypes {
		types = append(types, pricing.ShardType{
			Name:          t.Name,
			Region:        t.Region,
			Cloud:         t.Cloud,
			MemMB:         t.MemoryInGB * 1024,
			ThroughputOps: t.ThroughputOps,
			PricePerUnit:  t.PricePerHour,
		})
	}
	return types, nil
}

// GetSubscriptionPricing implements pricing.SubscriptionSource.
func (c *CloudClient) GetSubscriptionPricing(ctx context.Context, subscriptionID string) ([]domain.PricingRow, error) {
	path := fmt.Sprintf("/subscriptions/%s/pricing", subscriptionID)
	status, body, err := c.request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch pricing for subscription %s: %w", subscriptionID, err)
	}
	if status < 200 || status >= 300 {
		return nil, &Error{Status: status, Body: string(body)}
	}

	var parsed struct {
		Pricing []wirePricingRow `json:"pricing"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse pricing response: %w", err)
	}

	rows := make([]domain.PricingRow, 0, len(parsed.Pricing))
	for _, p := range parsed.Pricing {
		rows = append(rows, domain.PricingRow{
			Type:        p.Type,
			TypeDetails: p.TypeDetails,
			Quantity:    p.Quantity,
			PricePerHr:  p.PricePerUnit,
		})
	}
	return rows, nil
}
