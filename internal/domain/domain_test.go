package domain

import "testing"

func float64Ptr(v float64) *float64 { return &v }

func TestEnvelopeFor(t *testing.T) {
	cases := []struct {
		name        string
		shape       Shape
		wantMemory  float64
		wantThrough float64
	}{
		{"single shard, no replication", Shape{Shards: 1, Replication: false}, 25, 25000},
		{"single shard, replicated", Shape{Shards: 1, Replication: true}, 50, 25000},
		{"four shards, replicated", Shape{Shards: 4, Replication: true}, 200, 100000},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := EnvelopeFor(tc.shape)
			if env.MaxMemoryGB != tc.wantMemory {
				t.Errorf("MaxMemoryGB = %v, want %v", env.MaxMemoryGB, tc.wantMemory)
			}
			if env.MaxThroughputOps != tc.wantThrough {
				t.Errorf("MaxThroughputOps = %v, want %v", env.MaxThroughputOps, tc.wantThrough)
			}
		})
	}
}

func TestClusterLabel(t *testing.T) {
	cases := []struct {
		name string
		db   Database
		want string
	}{
		{"explicit cluster wins", Database{Cluster: "cluster-a", PrivateEndpoint: "redis-12345.internal.cluster-b:6379"}, "cluster-a"},
		{"derived from private endpoint", Database{PrivateEndpoint: "redis-12345.internal.cluster-b:6379"}, "cluster-b"},
		{"no marker present", Database{PrivateEndpoint: "redis-12345.example.com:6379"}, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.db.ClusterLabel(); got != tc.want {
				t.Errorf("ClusterLabel() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestEvaluateOkFlagsMissingMetricsDefault(t *testing.T) {
	shape := Shape{MemoryLimitGB: 100, ThroughputLimitOps: 100000}
	thresholds := DefaultThresholds()

	flags := EvaluateOkFlags(MetricSet{}, thresholds, shape)

	if flags.Throughput || flags.Memory || flags.CPU {
		t.Errorf("bounded dimensions should default to false when absent, got %+v", flags)
	}
	if !flags.Latency || !flags.Payload {
		t.Errorf("latency/payload should default to true when absent, got %+v", flags)
	}
	if flags.AllOk() {
		t.Errorf("AllOk() should be false when bounded dimensions are missing")
	}
}

func TestEvaluateOkFlagsWithinThreshold(t *testing.T) {
	shape := Shape{MemoryLimitGB: 100, ThroughputLimitOps: 100000}
	thresholds := DefaultThresholds()

	m := MetricSet{
		ThroughputOps:   float64Ptr(1000),
		UsedMemoryBytes: float64Ptr(1 * bytesPerGiB),
		CPUPercent:      float64Ptr(10),
		LatencyMs:       float64Ptr(1),
	}

	flags := EvaluateOkFlags(m, thresholds, shape)
	if !flags.AllOk() {
		t.Errorf("expected all flags ok, got %+v", flags)
	}
}

func TestEvaluateOkFlagsComparesAgainstCurrentShapeLimitNotEnvelope(t *testing.T) {
	// A single shard's envelope allows up to 25 GB / 25000 ops, but this
	// database is currently configured with a far smaller shape. Usage
	// sitting at 90% of the *shape* limit must read as not-ok even though
	// it is nowhere near the envelope ceiling.
	shape := Shape{MemoryLimitGB: 2, ThroughputLimitOps: 1000, Shards: 1}
	thresholds := DefaultThresholds()

	m := MetricSet{
		ThroughputOps:   float64Ptr(900),
		UsedMemoryBytes: float64Ptr(1.8 * bytesPerGiB),
	}

	flags := EvaluateOkFlags(m, thresholds, shape)
	if flags.Throughput {
		t.Error("expected throughput not-ok at 90% of the current shape limit")
	}
	if flags.Memory {
		t.Error("expected memory not-ok at 90% of the current shape limit")
	}
}

func TestDerivePayloadSize(t *testing.T) {
	m := MetricSet{ThroughputOps: float64Ptr(100)}
	m.DerivePayloadSize(float64Ptr(1000), float64Ptr(1000))

	if m.PayloadSizeBytes == nil {
		t.Fatal("expected payload size to be derived")
	}
	if *m.PayloadSizeBytes != 20 {
		t.Errorf("PayloadSizeBytes = %v, want 20", *m.PayloadSizeBytes)
	}
}

func TestDerivePayloadSizeZeroThroughputSkipped(t *testing.T) {
	m := MetricSet{ThroughputOps: float64Ptr(0)}
	m.DerivePayloadSize(float64Ptr(1000), float64Ptr(1000))

	if m.PayloadSizeBytes != nil {
		t.Errorf("expected payload size to stay nil when throughput is zero, got %v", *m.PayloadSizeBytes)
	}
}

func TestPartialShapeIsEmpty(t *testing.T) {
	if !(PartialShape{}).IsEmpty() {
		t.Error("zero-value PartialShape should be empty")
	}
	if (PartialShape{MemoryLimitInGB: float64Ptr(10)}).IsEmpty() {
		t.Error("PartialShape with a set field should not be empty")
	}
}

func TestRoundToStep(t *testing.T) {
	cases := []struct {
		v, step, want float64
	}{
		{0, 100, 100},
		{-5, 100, 100},
		{150, 100, 200},
		{1050, 100, 1100},
	}
	for _, tc := range cases {
		if got := RoundToStep(tc.v, tc.step); got != tc.want {
			t.Errorf("RoundToStep(%v, %v) = %v, want %v", tc.v, tc.step, got, tc.want)
		}
	}
}
