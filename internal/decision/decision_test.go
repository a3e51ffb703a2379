package decision

import (
	"testing"

	"github.com/redislabs/cloud-autoscaler/internal/domain"
)

func f64(v float64) *float64 { return &v }

func TestNeedsScaling(t *testing.T) {
	env := domain.Envelope{MaxMemoryGB: 25, MaxThroughputOps: 25000}
	shape := domain.Shape{MemoryLimitGB: 1, ThroughputLimitOps: 10000, Shards: 1}
	thresholds := domain.Thresholds{Memory: 0.8, Throughput: 0.8}

	need := NeedsScaling(domain.MetricSet{
		UsedMemoryBytes: f64(0.9 * bytesPerGiB),
		ThroughputOps:   f64(1000),
	}, thresholds, env, shape)

	if !need.Memory {
		t.Error("expected memory need to trigger at 90% usage")
	}
	if need.Throughput {
		t.Error("expected throughput need to stay false at 10% usage")
	}
	if !need.Any() {
		t.Error("Any() should be true when memory triggers")
	}
}

func TestNeedsScalingAtEnvelopeBound(t *testing.T) {
	env := domain.Envelope{MaxMemoryGB: 25, MaxThroughputOps: 25000}
	shape := domain.Shape{MemoryLimitGB: 25, ThroughputLimitOps: 10000, Shards: 1}
	thresholds := domain.Thresholds{Memory: 0.8, Throughput: 0.8}

	need := NeedsScaling(domain.MetricSet{
		UsedMemoryBytes: f64(24 * bytesPerGiB),
	}, thresholds, env, shape)

	if need.Memory {
		t.Error("memory must not trigger once the database already sits at the envelope bound")
	}
}

func TestComputeTargetMemoryBranch(t *testing.T) {
	env := domain.Envelope{MaxMemoryGB: 25, MaxThroughputOps: 25000}
	shape := domain.Shape{MemoryLimitGB: 1, ThroughputLimitOps: 10000}

	partial := ComputeTarget(shape, domain.MetricSet{
		UsedMemoryBytes: f64(0.9 * bytesPerGiB),
	}, env, 20, 20)

	if partial.DatasetSizeInGB == nil {
		t.Fatal("expected memory branch to fire")
	}
	if *partial.DatasetSizeInGB != 1.2 {
		t.Errorf("DatasetSizeInGB = %v, want 1.2", *partial.DatasetSizeInGB)
	}
	if partial.ThroughputMeasurement != nil {
		t.Error("throughput branch should not fire when usage is below its own trigger")
	}
}

func TestComputeTargetMemoryBranchHalvedUnderReplication(t *testing.T) {
	env := domain.Envelope{MaxMemoryGB: 50, MaxThroughputOps: 25000}
	shape := domain.Shape{MemoryLimitGB: 1, Replication: true}

	partial := ComputeTarget(shape, domain.MetricSet{
		UsedMemoryBytes: f64(0.9 * bytesPerGiB),
	}, env, 20, 20)

	if partial.DatasetSizeInGB == nil {
		t.Fatal("expected memory branch to fire")
	}
	if *partial.DatasetSizeInGB != 0.6 {
		t.Errorf("DatasetSizeInGB = %v, want 0.6 (1.2 GiB new total halved)", *partial.DatasetSizeInGB)
	}
}

func TestComputeTargetMemoryBranchStopsAtEnvelope(t *testing.T) {
	env := domain.Envelope{MaxMemoryGB: 25, MaxThroughputOps: 25000}
	shape := domain.Shape{MemoryLimitGB: 25}

	partial := ComputeTarget(shape, domain.MetricSet{
		UsedMemoryBytes: f64(24 * bytesPerGiB),
	}, env, 20, 20)

	if partial.DatasetSizeInGB != nil {
		t.Error("memory branch must not fire once already at the envelope bound")
	}
}

func TestComputeTargetThroughputBranchRequiresItsOwnTrigger(t *testing.T) {
	env := domain.Envelope{MaxMemoryGB: 25, MaxThroughputOps: 25000}
	shape := domain.Shape{ThroughputLimitOps: 10000}

	partial := ComputeTarget(shape, domain.MetricSet{
		ThroughputOps: f64(1000), // 10% of limit, well below the 0.8 trigger
	}, env, 20, 20)

	if partial.ThroughputMeasurement != nil {
		t.Error("throughput branch must not fire below its own 0.8 trigger")
	}
}

func TestComputeTargetThroughputBranchFires(t *testing.T) {
	env := domain.Envelope{MaxMemoryGB: 25, MaxThroughputOps: 25000}
	shape := domain.Shape{ThroughputLimitOps: 10000}

	partial := ComputeTarget(shape, domain.MetricSet{
		ThroughputOps: f64(9000),
	}, env, 20, 20)

	if partial.ThroughputMeasurement == nil {
		t.Fatal("expected throughput branch to fire at 90% of limit")
	}
	if partial.ThroughputMeasurement.Value != 12000 {
		t.Errorf("throughput target = %v, want 12000", partial.ThroughputMeasurement.Value)
	}
}

func TestComputeTargetEmptyWhenNeitherBranchFires(t *testing.T) {
	env := domain.Envelope{MaxMemoryGB: 25, MaxThroughputOps: 25000}
	shape := domain.Shape{MemoryLimitGB: 1, ThroughputLimitOps: 10000}

	partial := ComputeTarget(shape, domain.MetricSet{
		UsedMemoryBytes: f64(0.1 * bytesPerGiB),
		ThroughputOps:   f64(100),
	}, env, 20, 20)

	if !partial.IsEmpty() {
		t.Error("expected an empty partial shape when no dimension crosses its trigger")
	}
}
