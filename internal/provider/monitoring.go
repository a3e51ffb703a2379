package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// MonitoringClient queries a Prometheus-compatible time-series backend.
type MonitoringClient interface {
	// Query runs an instant PromQL query and returns the first result
	// whose labels match the supplied bdb/cluster pair, or nil if there
	// is no such series.
	Query(ctx context.Context, promql, bdb, cluster string) (*float64, error)
}

// PrometheusClient implements MonitoringClient against the monitoring
// backend protocol described in SPEC_FULL.md §6. Outbound queries are
// client-side rate limited so a large fan-out (C4) does not overwhelm the
// monitoring backend.
type PrometheusClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewPrometheusClient builds a client with a 15s query timeout and a rate
// limiter generous enough for the bounded-10 worker pool in C4.
func NewPrometheusClient(baseURL string) *PrometheusClient {
	return &PrometheusClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(50), 50),
	}
}

type prometheusResponse struct {
	Status string `json:"status"`
	Data   struct {
		Result []struct {
			Metric map[string]string `json:"metric"`
			Value  [2]interface{}    `json:"value"`
		} `json:"result"`
	} `json:"data"`
}

// Query implements MonitoringClient.
func (c *PrometheusClient) Query(ctx context.Context, promql, bdb, cluster string) (*float64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	endpoint := c.baseURL + "/api/v1/query?" + url.Values{"query": {promql}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build query request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", promql, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read query response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{Status: resp.StatusCode, Body: string(body)}
	}

	var parsed prometheusResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse query response: %w", err)
	}
	if parsed.Status != "success" {
		return nil, fmt.Errorf("query %q returned status %q", promql, parsed.Status)
	}

	for _, result := range parsed.Data.Result {
		if result.Metric["bdb"] != bdb {
			continue
		}
		if cluster != "" && result.Metric["cluster"] != cluster {
			continue
		}
		if len(result.Value) != 2 {
			continue
		}
		str, ok := result.Value[1].(string)
		if !ok {
			continue
		}
		var v float64
		if _, err := fmt.Sscanf(str, "%g", &v); err != nil {
			continue
		}
		return &v, nil
	}
	return nil, nil
}
