package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/redislabs/cloud-autoscaler/internal/domain"
	"github.com/redislabs/cloud-autoscaler/pkg/logger"
)

const defaultCloudAPIBaseURL = "https://api.redislabs.com/v1"

// CloudProvider is the authenticated surface onto the cloud management
// API: subscription/database inventory and partial shape updates.
type CloudProvider interface {
	ListSubscriptions(ctx context.Context) ([]domain.Subscription, error)
	ListDatabases(ctx context.Context, subscriptionID string) ([]domain.Database, error)
	GetDatabase(ctx context.Context, subscriptionID, databaseID string) (domain.Database, error)
	UpdateDatabase(ctx context.Context, subscriptionID, databaseID string, partial domain.PartialShape) (SyncOrTask, error)
	GetTask(ctx context.Context, taskID string) (TaskStatus, error)
}

// CloudClient implements CloudProvider against the Redis Cloud-style REST
// API described in SPEC_FULL.md §6.
type CloudClient struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
}

// NewCloudClient builds a client with a bounded connection pool and a
// fixed 30s control-plane timeout, per §4.1.
func NewCloudClient(apiKey, apiSecret string) *CloudClient {
	transport := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
	}
	return &CloudClient{
		baseURL:   defaultCloudAPIBaseURL,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

// WithBaseURL overrides the default API base URL, used by tests.
func (c *CloudClient) WithBaseURL(url string) *CloudClient {
	c.baseURL = url
	return c
}

func (c *CloudClient) request(ctx context.Context, method, path string, body interface{}) (int, []byte, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("x-api-secret-key", c.apiSecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}

	return resp.StatusCode, respBody, nil
}

// ListSubscriptions implements CloudProvider.
func (c *CloudClient) ListSubscriptions(ctx context.Context) ([]domain.Subscription, error) {
	status, body, err := c.request(ctx, http.MethodGet, "/subscriptions", nil)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	if status < 200 || status >= 300 {
		return nil, &Error{Status: status, Body: string(body)}
	}

	var parsed subscriptionsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse subscriptions response: %w", err)
	}

	subs := make([]domain.Subscription, 0, len(parsed.Subscriptions))
	for _, s := range parsed.Subscriptions {
		rows := make([]domain.PricingRow, 0, len(s.Pricing))
		for _, p := range s.Pricing {
			rows = append(rows, domain.PricingRow{
				Type:        p.Type,
				TypeDetails: p.TypeDetails,
				Quantity:    p.Quantity,
				PricePerHr:  p.PricePerUnit,
			})
		}
		subs = append(subs, domain.Subscription{
			ID:            stringify(s.ID),
			Name:          s.Name,
			CloudProvider: s.CloudProvider,
			Pricing:       rows,
		})
	}
	return subs, nil
}

// ListDatabases implements CloudProvider.
func (c *CloudClient) ListDatabases(ctx context.Context, subscriptionID string) ([]domain.Database, error) {
	path := fmt.Sprintf("/subscriptions/%s/databases?offset=0&limit=100", subscriptionID)
	status, body, err := c.request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("list databases for subscription %s: %w", subscriptionID, err)
	}
	if status < 200 || status >= 300 {
		return nil, &Error{Status: status, Body: string(body)}
	}

	var parsed databasesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse databases response: %w", err)
	}

	var dbs []domain.Database
	for _, group := range parsed.Subscription {
		for _, wd := range group.Databases {
			if len(wd.CrdbDatabases) > 0 {
				continue // active-active databases are outside the subsystem's responsibility
			}
			dbs = append(dbs, domain.Database{
				ID:             wd.resolvedID(),
				SubscriptionID: subscriptionID,
				Name:           wd.Name,
				Region:         wd.Region,
				Status:         wd.resolvedStatus(),
				ActiveActive:   false,
				PrivateEndpoint: wd.PrivateEndpoint,
				Cluster:        wd.Cluster,
				Shape: domain.Shape{
					MemoryLimitGB:      wd.MemoryLimitInGB,
					ThroughputLimitOps: wd.throughputLimit(),
					Shards:             wd.ShardsCount,
					Replication:        wd.Replication,
				},
			})
		}
	}
	return dbs, nil
}

// GetDatabase implements CloudProvider.
func (c *CloudClient) GetDatabase(ctx context.Context, subscriptionID, databaseID string) (domain.Database, error) {
	path := fmt.Sprintf("/subscriptions/%s/databases/%s", subscriptionID, databaseID)
	status, body, err := c.request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return domain.Database{}, fmt.Errorf("get database %s/%s: %w", subscriptionID, databaseID, err)
	}
	if status < 200 || status >= 300 {
		return domain.Database{}, &Error{Status: status, Body: string(body)}
	}

	var wd wireDatabase
	if err := json.Unmarshal(body, &wd); err != nil {
		return domain.Database{}, fmt.Errorf("parse database response: %w", err)
	}

	return domain.Database{
		ID:              wd.resolvedID(),
		SubscriptionID:  subscriptionID,
		Name:            wd.Name,
		Region:          wd.Region,
		Status:          wd.resolvedStatus(),
		PrivateEndpoint: wd.PrivateEndpoint,
		Cluster:         wd.Cluster,
		Shape: domain.Shape{
			MemoryLimitGB:      wd.MemoryLimitInGB,
			ThroughputLimitOps: wd.throughputLimit(),
			Shards:             wd.ShardsCount,
			Replication:        wd.Replication,
		},
	}, nil
}

// UpdateDatabase implements CloudProvider. It sends only the dimensions
// present in partial, never a reconstructed full configuration.
func (c *CloudClient) UpdateDatabase(ctx context.Context, subscriptionID, databaseID string, partial domain.PartialShape) (SyncOrTask, error) {
	path := fmt.Sprintf("/subscriptions/%s/databases/%s", subscriptionID, databaseID)
	status, body, err := c.request(ctx, http.MethodPut, path, partial)
	if err != nil {
		return SyncOrTask{}, fmt.Errorf("update database %s/%s: %w", subscriptionID, databaseID, err)
	}

	switch status {
	case http.StatusOK:
		return SyncOrTask{Synchronous: true}, nil
	case http.StatusAccepted:
		var parsed struct {
			TaskID string `json:"taskId"`
		}
		if err := json.Unmarshal(body, &parsed); err != nil {
			return SyncOrTask{}, fmt.Errorf("parse task response: %w", err)
		}
		logger.Info("scale request accepted", map[string]interface{}{
			"subscription_id": subscriptionID,
			"database_id":     databaseID,
			"task_id":         parsed.TaskID,
		})
		return SyncOrTask{TaskID: parsed.TaskID}, nil
	default:
		return SyncOrTask{}, &Error{Status: status, Body: string(body)}
	}
}

// GetTask implements CloudProvider.
func (c *CloudClient) GetTask(ctx context.Context, taskID string) (TaskStatus, error) {
	path := fmt.Sprintf("/tasks/%s", taskID)
	status, body, err := c.request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return TaskOther, fmt.Errorf("get task %s: %w", taskID, err)
	}
	if status < 200 || status >= 300 {
		return TaskOther, &Error{Status: status, Body: string(body)}
	}

	var parsed struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return TaskOther, fmt.Errorf("parse task status: %w", err)
	}

	switch TaskStatus(parsed.Status) {
	case TaskCompleted, TaskSuccess, TaskFailed, TaskError:
		return TaskStatus(parsed.Status), nil
	default:
		return TaskOther, nil
	}
}
