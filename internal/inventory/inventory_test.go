package inventory

import (
	"context"
	"testing"

	"github.com/redislabs/cloud-autoscaler/internal/domain"
	"github.com/redislabs/cloud-autoscaler/internal/provider"
)

type fakeCloud struct {
	subsCalls int
	dbCalls   map[string]int
	subs      []domain.Subscription
	dbs       map[string][]domain.Database
}

func newFakeCloud() *fakeCloud {
	return &fakeCloud{dbCalls: make(map[string]int), dbs: make(map[string][]domain.Database)}
}

func (f *fakeCloud) ListSubscriptions(ctx context.Context) ([]domain.Subscription, error) {
	f.subsCalls++
	return f.subs, nil
}

func (f *fakeCloud) ListDatabases(ctx context.Context, subscriptionID string) ([]domain.Database, error) {
	f.dbCalls[subscriptionID]++
	return f.dbs[subscriptionID], nil
}

func (f *fakeCloud) GetDatabase(ctx context.Context, subscriptionID, databaseID string) (domain.Database, error) {
	return domain.Database{}, nil
}

func (f *fakeCloud) UpdateDatabase(ctx context.Context, subscriptionID, databaseID string, partial domain.PartialShape) (provider.SyncOrTask, error) {
	return provider.SyncOrTask{}, nil
}

func (f *fakeCloud) GetTask(ctx context.Context, taskID string) (provider.TaskStatus, error) {
	return provider.TaskOther, nil
}

func TestSubscriptionsCachesUntilInvalidated(t *testing.T) {
	cloud := newFakeCloud()
	cloud.subs = []domain.Subscription{{ID: "sub-1"}}

	cache := New(cloud, func() bool { return false })

	if _, err := cache.Subscriptions(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.Subscriptions(context.Background()); err != nil {
		t.Fatal(err)
	}
	if cloud.subsCalls != 1 {
		t.Errorf("expected a single upstream fetch, got %d", cloud.subsCalls)
	}

	cache.Invalidate()
	if _, err := cache.Subscriptions(context.Background()); err != nil {
		t.Fatal(err)
	}
	if cloud.subsCalls != 2 {
		t.Errorf("expected Invalidate to force a refetch, got %d calls", cloud.subsCalls)
	}
}

func TestDatabasesCachedPerSubscription(t *testing.T) {
	cloud := newFakeCloud()
	cloud.dbs["sub-1"] = []domain.Database{{ID: "db-1", SubscriptionID: "sub-1"}}

	cache := New(cloud, func() bool { return false })

	if _, err := cache.Databases(context.Background(), "sub-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.Databases(context.Background(), "sub-1"); err != nil {
		t.Fatal(err)
	}
	if cloud.dbCalls["sub-1"] != 1 {
		t.Errorf("expected a single upstream fetch for sub-1, got %d", cloud.dbCalls["sub-1"])
	}
}

func TestSubscriptionRefreshClearsDatabaseCache(t *testing.T) {
	cloud := newFakeCloud()
	cloud.subs = []domain.Subscription{{ID: "sub-1"}}
	cloud.dbs["sub-1"] = []domain.Database{{ID: "db-1", SubscriptionID: "sub-1"}}

	cache := New(cloud, func() bool { return false })
	ctx := context.Background()

	if _, err := cache.Subscriptions(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.Databases(ctx, "sub-1"); err != nil {
		t.Fatal(err)
	}

	cache.Invalidate()
	if _, err := cache.Subscriptions(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.Databases(ctx, "sub-1"); err != nil {
		t.Fatal(err)
	}

	if cloud.dbCalls["sub-1"] != 2 {
		t.Errorf("expected databases to be refetched after subscription refresh, got %d calls", cloud.dbCalls["sub-1"])
	}
}
