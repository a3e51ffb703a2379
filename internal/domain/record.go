package domain

// DownscaleRecommendation is computed for the UI (C8) only when the display
// snapshot is fully within threshold and both memory and throughput were
// observed.
type DownscaleRecommendation struct {
	MemoryMB        int64            `json:"downscale_memory_mb"`
	ThroughputOps   int64            `json:"downscale_throughput_ops"`
	PriceSuggestion *PriceSuggestion `json:"downscale_price_suggestion,omitempty"`
}

// PriceSuggestion is the cheapest unit-type price C2 found for a proposed
// shape.
type PriceSuggestion struct {
	Price       float64 `json:"price"`
	UnitType    string  `json:"unit_type"`
	UnitsNeeded int      `json:"units_needed"`
}

// DatabaseRecord is the per-database shape of a /api/metrics response row,
// assembled by the gather pipeline (C4).
type DatabaseRecord struct {
	SubscriptionID string `json:"subscription_id"`
	DatabaseID     string `json:"database_id"`
	Name           string `json:"name"`
	Region         string `json:"region"`
	Status         string `json:"status"`

	Display   MetricSet `json:"display_metrics"`
	Autoscale MetricSet `json:"autoscale_metrics"`

	DisplayOk   OkFlags `json:"display_ok"`
	AutoscaleOk OkFlags `json:"autoscale_ok"`

	Envelope Envelope `json:"envelope"`
	Shape    Shape    `json:"shape"`

	Downscale *DownscaleRecommendation `json:"downscale,omitempty"`

	HourlyPrice     *float64 `json:"hourly_price,omitempty"`
	MinimumPrice    *float64 `json:"minimum_price,omitempty"`

	ScalingStatus string `json:"scaling_status"`
	OptedIn       bool   `json:"opted_in"`
}

// SkeletonRecord builds the fallback record used when assembly for a
// database fails: all metrics null, all ok-flags false.
func SkeletonRecord(sub, db, name string) DatabaseRecord {
	return DatabaseRecord{
		SubscriptionID: sub,
		DatabaseID:     db,
		Name:           name,
		ScalingStatus:  "idle",
	}
}
