package actuator

import (
	"context"
	"sync"
	"testing"

	"github.com/redislabs/cloud-autoscaler/internal/domain"
	"github.com/redislabs/cloud-autoscaler/internal/optin"
	"github.com/redislabs/cloud-autoscaler/internal/provider"
)

type fakeCloud struct {
	mu          sync.Mutex
	updateCalls int
	lastPartial domain.PartialShape
	result      provider.SyncOrTask
	taskStatus  provider.TaskStatus
}

func (f *fakeCloud) ListSubscriptions(ctx context.Context) ([]domain.Subscription, error) {
	return nil, nil
}
func (f *fakeCloud) ListDatabases(ctx context.Context, subscriptionID string) ([]domain.Database, error) {
	return nil, nil
}
func (f *fakeCloud) GetDatabase(ctx context.Context, subscriptionID, databaseID string) (domain.Database, error) {
	return domain.Database{}, nil
}
func (f *fakeCloud) UpdateDatabase(ctx context.Context, subscriptionID, databaseID string, partial domain.PartialShape) (provider.SyncOrTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	f.lastPartial = partial
	return f.result, nil
}
func (f *fakeCloud) GetTask(ctx context.Context, taskID string) (provider.TaskStatus, error) {
	return f.taskStatus, nil
}

func activeDB(id string) domain.Database {
	return domain.Database{
		ID:             id,
		SubscriptionID: "sub-1",
		Status:         "active",
		Shape:          domain.Shape{MemoryLimitGB: 1, ThroughputLimitOps: 10000, Shards: 1},
	}
}

func f64(v float64) *float64 { return &v }

func TestAutoscaleSynchronousUpdate(t *testing.T) {
	cloud := &fakeCloud{result: provider.SyncOrTask{Synchronous: true}}
	registry := optin.New()
	act := New(cloud, registry, 20, 20)

	db := activeDB("db-1")
	env := domain.EnvelopeFor(db.Shape)
	metrics := domain.MetricSet{UsedMemoryBytes: f64(0.9 * bytesPerGiBForTest)}

	scaled, err := act.Autoscale(context.Background(), domain.Subscription{ID: "sub-1"}, db, metrics, domain.DefaultThresholds(), env, []domain.Database{db})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !scaled {
		t.Fatal("expected the action to be performed")
	}
	if cloud.updateCalls != 1 {
		t.Errorf("expected exactly one update call, got %d", cloud.updateCalls)
	}
	if registry.GetStatus("db-1") != optin.StatusDone {
		t.Errorf("expected status done after a synchronous update, got %v", registry.GetStatus("db-1"))
	}
}

func TestAutoscaleSkipsWhenNotQuiescent(t *testing.T) {
	cloud := &fakeCloud{result: provider.SyncOrTask{Synchronous: true}}
	registry := optin.New()
	act := New(cloud, registry, 20, 20)

	db := activeDB("db-1")
	sibling := activeDB("db-2")
	sibling.Status = "pending"

	env := domain.EnvelopeFor(db.Shape)
	metrics := domain.MetricSet{UsedMemoryBytes: f64(0.9 * bytesPerGiBForTest)}

	scaled, err := act.Autoscale(context.Background(), domain.Subscription{ID: "sub-1"}, db, metrics, domain.DefaultThresholds(), env, []domain.Database{db, sibling})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scaled {
		t.Error("expected no action while a sibling database is not active")
	}
	if cloud.updateCalls != 0 {
		t.Errorf("expected no update calls, got %d", cloud.updateCalls)
	}
}

func TestAutoscaleSkipsWhenNoDimensionNeedsScaling(t *testing.T) {
	cloud := &fakeCloud{result: provider.SyncOrTask{Synchronous: true}}
	registry := optin.New()
	act := New(cloud, registry, 20, 20)

	db := activeDB("db-1")
	env := domain.EnvelopeFor(db.Shape)
	metrics := domain.MetricSet{UsedMemoryBytes: f64(0.1 * bytesPerGiBForTest)}

	scaled, err := act.Autoscale(context.Background(), domain.Subscription{ID: "sub-1"}, db, metrics, domain.DefaultThresholds(), env, []domain.Database{db})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scaled {
		t.Error("expected no action when usage is well within threshold")
	}
}

func TestAutoscaleDeduplicatesWithinWindow(t *testing.T) {
	cloud := &fakeCloud{result: provider.SyncOrTask{Synchronous: true}}
	registry := optin.New()
	act := New(cloud, registry, 20, 20)

	db := activeDB("db-1")
	env := domain.EnvelopeFor(db.Shape)
	metrics := domain.MetricSet{UsedMemoryBytes: f64(0.9 * bytesPerGiBForTest)}
	thresholds := domain.DefaultThresholds()

	first, err := act.Autoscale(context.Background(), domain.Subscription{ID: "sub-1"}, db, metrics, thresholds, env, []domain.Database{db})
	if err != nil || !first {
		t.Fatalf("expected first call to scale, got scaled=%v err=%v", first, err)
	}

	second, err := act.Autoscale(context.Background(), domain.Subscription{ID: "sub-1"}, db, metrics, thresholds, env, []domain.Database{db})
	if err != nil {
		t.Fatalf("unexpected error on second call: %v", err)
	}
	if second {
		t.Error("expected the identical second action to be suppressed by the dedup ledger")
	}
	if cloud.updateCalls != 1 {
		t.Errorf("expected only one upstream call across both attempts, got %d", cloud.updateCalls)
	}
}

func TestAutoscaleConcurrentCallsAreSerializedPerSubscription(t *testing.T) {
	// An asynchronous result keeps the winner holding the subscription
	// mutex for TaskPollDelay, so the other call is sure to contend.
	cloud := &fakeCloud{result: provider.SyncOrTask{TaskID: "task-1"}, taskStatus: provider.TaskCompleted}
	registry := optin.New()
	act := New(cloud, registry, 20, 20)

	db1 := activeDB("db-1")
	db2 := activeDB("db-2")
	env := domain.EnvelopeFor(db1.Shape)
	thresholds := domain.DefaultThresholds()

	var wg sync.WaitGroup
	results := make([]bool, 2)
	dbs := []domain.Database{db1, db2}
	all := []domain.Database{db1, db2}

	for i := range dbs {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			metrics := domain.MetricSet{UsedMemoryBytes: f64(0.9 * bytesPerGiBForTest)}
			scaled, _ := act.Autoscale(context.Background(), domain.Subscription{ID: "sub-1"}, dbs[i], metrics, thresholds, env, all)
			results[i] = scaled
		}()
	}
	wg.Wait()

	scaledCount := 0
	for _, r := range results {
		if r {
			scaledCount++
		}
	}
	if scaledCount != 1 {
		t.Errorf("expected exactly one of the two concurrent actions to win the subscription mutex, got %d", scaledCount)
	}
}

const bytesPerGiBForTest = 1024 * 1024 * 1024
