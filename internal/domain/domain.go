// Package domain holds the types shared by every autoscaler component:
// subscriptions, databases, shapes, envelopes, thresholds and metric
// snapshots. Nothing in this package talks to the network.
package domain

import "math"

// Shape is a database's current memory/throughput/shard configuration.
type Shape struct {
	MemoryLimitGB      float64
	ThroughputLimitOps float64
	Shards             int
	Replication        bool
}

// Envelope is the (max_memory_gb, max_throughput_ops) ceiling derived from
// shard count and replication. Shape may never be scaled beyond it.
type Envelope struct {
	MaxMemoryGB      float64
	MaxThroughputOps float64
}

const (
	shardMemoryGB      = 25
	shardThroughputOps = 25000
)

// EnvelopeFor derives the max-scale envelope for a shape.
func EnvelopeFor(shape Shape) Envelope {
	replFactor := 1.0
	if shape.Replication {
		replFactor = 2.0
	}
	return Envelope{
		MaxMemoryGB:      float64(shape.Shards) * shardMemoryGB * replFactor,
		MaxThroughputOps: float64(shape.Shards) * shardThroughputOps,
	}
}

// Database is one managed instance within a Subscription.
type Database struct {
	ID              string
	SubscriptionID  string
	Name            string
	Region          string
	Shape           Shape
	Status          string
	ActiveActive    bool
	PrivateEndpoint string
	Cluster         string
}

// IsActive reports whether the database's lifecycle status is "active".
// It is the only status value treated specially by the control loop.
func (d Database) IsActive() bool {
	return d.Status == "active"
}

// ClusterLabel resolves the PromQL cluster label for a database: the
// Cluster field if present, else the substring of PrivateEndpoint between
// ".internal." and the next ":", else the empty string.
func (d Database) ClusterLabel() string {
	if d.Cluster != "" {
		return d.Cluster
	}
	const marker = ".internal."
	idx := indexOf(d.PrivateEndpoint, marker)
	if idx < 0 {
		return ""
	}
	rest := d.PrivateEndpoint[idx+len(marker):]
	if colon := indexOf(rest, ":"); colon >= 0 {
		return rest[:colon]
	}
	return rest
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}

// PricingRow is one line item from a subscription's pricing table, as
// surfaced verbatim by the provider.
type PricingRow struct {
	Type        string
	TypeDetails string
	Quantity    int
	PricePerHr  float64
}

// Subscription owns one or more databases and carries a pricing table.
type Subscription struct {
	ID            string
	Name          string
	CloudProvider string
	Pricing       []PricingRow
}

// Thresholds hold the fractional trigger points for the four bounded
// dimensions plus latency and payload ceilings.
type Thresholds struct {
	Throughput    float64
	Memory        float64
	CPU           float64
	LatencyMs     float64
	PayloadSizeKB float64
}

// DefaultThresholds mirrors the configuration file's documented defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Throughput:    0.8,
		Memory:        0.8,
		CPU:           0.6,
		LatencyMs:     3,
		PayloadSizeKB: 3,
	}
}

// MetricSet is one window's worth of observed values for a database. Any
// field may be nil to denote "monitoring backend had no data".
type MetricSet struct {
	ThroughputOps    *float64
	UsedMemoryBytes  *float64
	CPUPercent       *float64
	LatencyMs        *float64
	PayloadSizeBytes *float64
}

// DerivePayloadSize fills PayloadSizeBytes from ingress/egress byte
// counters when throughput is known and positive, per §4.4 step 5.
func (m *MetricSet) DerivePayloadSize(ingress, egress *float64) {
	if m.ThroughputOps == nil || *m.ThroughputOps <= 0 || ingress == nil || egress == nil {
		return
	}
	v := (*ingress + *egress) / *m.ThroughputOps
	m.PayloadSizeBytes = &v
}

// MetricsSnapshot carries the UI-window and autoscale-window sub-snapshots
// for one database at one poll tick.
type MetricsSnapshot struct {
	Display   MetricSet
	Autoscale MetricSet
}

// OkFlags records, per dimension, whether the most recently observed
// value is within threshold. Latency and payload default to true when the
// corresponding metric is absent; throughput/memory/CPU default to false.
type OkFlags struct {
	Throughput bool
	Memory     bool
	CPU        bool
	Latency    bool
	Payload    bool
}

const bytesPerGiB = 1024 * 1024 * 1024
const bytesPerKiB = 1024

// EvaluateOkFlags implements Invariant §3.1 against a MetricSet and the
// thresholds in force for the owning database. Throughput and memory are
// compared against the database's current configured shape limit, not the
// max-scale envelope — a database sitting well under its envelope but at
// its current limit is not "ok".
func EvaluateOkFlags(m MetricSet, t Thresholds, shape Shape) OkFlags {
	var flags OkFlags

	if m.ThroughputOps != nil {
		limit := shape.ThroughputLimitOps
		flags.Throughput = *m.ThroughputOps < t.Throughput*limit
	}

	if m.UsedMemoryBytes != nil {
		limitBytes := shape.MemoryLimitGB * bytesPerGiB
		flags.Memory = *m.UsedMemoryBytes < t.Memory*limitBytes
	}

	if m.CPUPercent != nil {
		flags.CPU = *m.CPUPercent < t.CPU*100
	}

	if m.LatencyMs == nil {
		flags.Latency = true
	} else {
		flags.Latency = *m.LatencyMs < t.LatencyMs
	}

	if m.PayloadSizeBytes == nil {
		flags.Payload = true
	} else {
		flags.Payload = *m.PayloadSizeBytes < t.PayloadSizeKB*bytesPerKiB
	}

	return flags
}

// AllOk reports whether every ok-flag is true.
func (f OkFlags) AllOk() bool {
	return f.Throughput && f.Memory && f.CPU && f.Latency && f.Payload
}

// ThroughputMeasurement is the provider's wire encoding of a throughput
// target.
type ThroughputMeasurement struct {
	By    string `json:"by"`
	Value int64  `json:"value"`
}

// PartialShape is the set of dimensions a scaling action actually changes.
// Zero-value (all nil) fields are omitted from the PUT payload.
type PartialShape struct {
	DatasetSizeInGB       *float64               `json:"datasetSizeInGb,omitempty"`
	MemoryLimitInGB       *float64               `json:"memoryLimitInGb,omitempty"`
	ThroughputMeasurement *ThroughputMeasurement `json:"throughputMeasurement,omitempty"`
}

// IsEmpty reports whether neither branch fired.
func (p PartialShape) IsEmpty() bool {
	return p.DatasetSizeInGB == nil && p.MemoryLimitInGB == nil && p.ThroughputMeasurement == nil
}

// RoundToStep rounds v to the nearest multiple of step, with a floor of
// one step for non-negative inputs.
func RoundToStep(v, step float64) float64 {
	if v <= 0 {
		return step
	}
	r := math.Round(v/step) * step
	if r < step {
		return step
	}
	return r
}
