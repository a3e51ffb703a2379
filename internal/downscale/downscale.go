// Package downscale implements the safe-downscale shape advisor (C8).
package downscale

import (
	"context"
	"fmt"
	"math"

	"github.com/redislabs/cloud-autoscaler/internal/domain"
	"github.com/redislabs/cloud-autoscaler/internal/pricing"
)

const bytesPerMiB = 1024 * 1024

var memoryBuckets = []int64{100, 500, 1024}
var throughputBuckets = []int64{100, 500, 1000}

// NiceMemoryStep implements §4.8's bucket-rounding for the memory
// dimension. usedBytes is converted to MiB internally.
func NiceMemoryStep(usedBytes float64) int64 {
	usedMiB := usedBytes / bytesPerMiB
	return niceStep(usedMiB, memoryBuckets, 1024)
}

// NiceThroughputStep implements §4.8's bucket-rounding for the throughput
// dimension.
func NiceThroughputStep(usedOps float64) int64 {
	return niceStep(usedOps, throughputBuckets, 1000)
}

// niceStep buckets m = used/0.8 to the smallest of the fixed buckets, or
// the next multiple-of-increment >= m; if that bucket still leaves
// used/bucket >= 0.8, it promotes once to the next bucket in sequence.
func niceStep(used float64, fixedBuckets []int64, increment int64) int64 {
	if used <= 0 {
		return fixedBuckets[0]
	}

	m := used / 0.8

	var chosen int64
	for _, b := range fixedBuckets {
		if float64(b) >= m {
			chosen = b
			break
		}
	}
	if chosen == 0 {
		// next multiple of increment >= m
		chosen = int64(math.Ceil(m/float64(increment))) * increment
	}

	if used/float64(chosen) >= 0.8 {
		chosen = promote(chosen, fixedBuckets, increment)
	}

	return chosen
}

func promote(current int64, fixedBuckets []int64, increment int64) int64 {
	for i, b := range fixedBuckets {
		if b == current && i+1 < len(fixedBuckets) {
			return fixedBuckets[i+1]
		}
	}
	if current < fixedBuckets[len(fixedBuckets)-1] {
		return fixedBuckets[len(fixedBuckets)-1]
	}
	return current + increment
}

// Advisor computes downscale recommendations for databases whose display
// snapshot is fully within threshold.
type Advisor struct {
	catalog *pricing.Catalog
}

// New constructs an advisor backed by the pricing catalog (C2).
func New(catalog *pricing.Catalog) *Advisor {
	return &Advisor{catalog: catalog}
}

// Recommend implements §4.8. It is only meaningful for databases whose
// display-window ok-flags are all true; callers are responsible for that
// precondition check. cloud is the owning subscription's cloud provider
// (e.g. "AWS"), used to match the shard-type catalog's region/cloud row.
func (a *Advisor) Recommend(ctx context.Context, db domain.Database, display domain.MetricSet, ha bool, cloud string) (*domain.DownscaleRecommendation, error) {
	if display.UsedMemoryBytes == nil || display.ThroughputOps == nil {
		return nil, nil
	}

	memMiB := NiceMemoryStep(*display.UsedMemoryBytes)
	throughputOps := NiceThroughputStep(*display.ThroughputOps)

	best, err := a.catalog.BestUnitPrice(ctx, db.Region, cloud, float64(memMiB), float64(throughputOps), ha)
	if err != nil {
		return nil, fmt.Errorf("price downscale shape for %s: %w", db.ID, err)
	}

	rec := &domain.DownscaleRecommendation{
		MemoryMB:      memMiB,
		ThroughputOps: throughputOps,
	}
	if best != nil {
		rec.PriceSuggestion = &domain.PriceSuggestion{
			Price:       best.Price,
			UnitType:    best.UnitType,
			UnitsNeeded: best.UnitsNeeded,
		}
	}
	return rec, nil
}
