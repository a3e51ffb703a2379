// Package decision implements the per-database "needs scaling?" predicate
// and target-shape calculator (C5).
package decision

import (
	"math"

	"github.com/redislabs/cloud-autoscaler/internal/domain"
)

// MemoryBranchTrigger gates compute_target's memory and throughput
// branches independently of the configured thresholds, per SPEC_FULL.md
// §9's resolution of the corresponding open question.
const MemoryBranchTrigger = 0.8

const bytesPerGiB = 1024 * 1024 * 1024

// Need reports which dimensions crossed their threshold for a database.
type Need struct {
	Memory     bool
	Throughput bool
}

// Any reports whether either dimension triggered.
func (n Need) Any() bool {
	return n.Memory || n.Throughput
}

// NeedsScaling implements §4.5.
func NeedsScaling(m domain.MetricSet, t domain.Thresholds, env domain.Envelope, shape domain.Shape) Need {
	var need Need

	if m.ThroughputOps != nil && shape.ThroughputLimitOps > 0 {
		need.Throughput = *m.ThroughputOps >= t.Throughput*shape.ThroughputLimitOps &&
			shape.ThroughputLimitOps < env.MaxThroughputOps
	}

	if m.UsedMemoryBytes != nil && shape.MemoryLimitGB > 0 {
		memoryLimitBytes := shape.MemoryLimitGB * bytesPerGiB
		need.Memory = *m.UsedMemoryBytes >= t.Memory*memoryLimitBytes &&
			shape.MemoryLimitGB < env.MaxMemoryGB
	}

	return need
}

// ComputeTarget implements §4.5's target-shape calculator. memPct and
// thrPct are the configured scaling percentages (default 20 each).
func ComputeTarget(shape domain.Shape, m domain.MetricSet, env domain.Envelope, memPct, thrPct float64) domain.PartialShape {
	var partial domain.PartialShape

	if m.UsedMemoryBytes != nil && shape.MemoryLimitGB > 0 {
		usedMemoryGB := *m.UsedMemoryBytes / bytesPerGiB
		if usedMemoryGB >= MemoryBranchTrigger*shape.MemoryLimitGB && shape.MemoryLimitGB < env.MaxMemoryGB {
			newTotal := math.Min(env.MaxMemoryGB, shape.MemoryLimitGB*(1+memPct/100))
			newTotal = roundToTenth(newTotal)
			datasetSize := newTotal
			if shape.Replication {
				datasetSize = newTotal / 2
			}
			datasetSize = roundToTenth(datasetSize)
			partial.DatasetSizeInGB = &datasetSize
		}
	}

	if m.ThroughputOps != nil && shape.ThroughputLimitOps > 0 {
		used := *m.ThroughputOps
		if used >= MemoryBranchTrigger*shape.ThroughputLimitOps && shape.ThroughputLimitOps < env.MaxThroughputOps {
			candidate := math.Max(used*(1+thrPct/100), shape.ThroughputLimitOps*(1+thrPct/100))
			newThroughput := math.Min(env.MaxThroughputOps, candidate)
			newThroughput = domain.RoundToStep(newThroughput, 100)
			partial.ThroughputMeasurement = &domain.ThroughputMeasurement{
				By:    "operations-per-second",
				Value: int64(newThroughput),
			}
		}
	}

	return partial
}

func roundToTenth(v float64) float64 {
	r := math.Round(v*10) / 10
	if r < 0.1 {
		return 0.1
	}
	return r
}
