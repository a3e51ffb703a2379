package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the fully-resolved configuration for one process: thresholds
// and scaling percentages from the YAML file, secrets from the
// environment.
type Config struct {
	ThroughputThreshold    float64 `yaml:"throughput_threshold"`
	MemoryThreshold        float64 `yaml:"memory_threshold"`
	CPUThreshold           float64 `yaml:"cpu_threshold"`
	LatencyThresholdMs     float64 `yaml:"latency_threshold_ms"`
	PayloadSizeThresholdKB float64 `yaml:"payload_size_threshold_kb"`

	PrometheusServerURL   string        `yaml:"prometheus_server_url"`
	PrometheusQueryPeriod time.Duration `yaml:"prometheus_query_period"`
	AutoscaleQueryPeriod  time.Duration `yaml:"autoscale_query_period"`

	CloudAPIQueryIntervalSeconds          int `yaml:"cloud_api_query_interval_seconds"`
	CloudAPIQueryIntervalSecondsAutoscale int `yaml:"cloud_api_query_interval_seconds_autoscale"`

	MemoryScalingPercentage     float64 `yaml:"memory_scaling_percentage"`
	ThroughputScalingPercentage float64 `yaml:"throughput_scaling_percentage"`

	ServerPort string `yaml:"server_port"`
	LogLevel   string `yaml:"log_level"`
	LogFormat  string `yaml:"log_format"`

	// Secrets, sourced from the environment only, never from the YAML
	// file.
	RedisCloudAPIKey    string `yaml:"-"`
	RedisCloudAPISecret string `yaml:"-"`
}

// rawConfig mirrors Config's YAML shape with string durations, since
// yaml.v3 cannot unmarshal directly into time.Duration.
type rawConfig struct {
	ThroughputThreshold    float64 `yaml:"throughput_threshold"`
	MemoryThreshold        float64 `yaml:"memory_threshold"`
	CPUThreshold           float64 `yaml:"cpu_threshold"`
	LatencyThresholdMs     float64 `yaml:"latency_threshold_ms"`
	PayloadSizeThresholdKB float64 `yaml:"payload_size_threshold_kb"`

	PrometheusServerURL   string `yaml:"prometheus_server_url"`
	PrometheusQueryPeriod string `yaml:"prometheus_query_period"`
	AutoscaleQueryPeriod  string `yaml:"autoscale_query_period"`

	CloudAPIQueryIntervalSeconds          int `yaml:"cloud_api_query_interval_seconds"`
	CloudAPIQueryIntervalSecondsAutoscale int `yaml:"cloud_api_query_interval_seconds_autoscale"`

	MemoryScalingPercentage     float64 `yaml:"memory_scaling_percentage"`
	ThroughputScalingPercentage float64 `yaml:"throughput_scaling_percentage"`

	ServerPort string `yaml:"server_port"`
	LogLevel   string `yaml:"log_level"`
	LogFormat  string `yaml:"log_format"`
}

func defaults() rawConfig {
	return rawConfig{
		ThroughputThreshold:                    0.8,
		MemoryThreshold:                        0.8,
		CPUThreshold:                           0.6,
		LatencyThresholdMs:                     3,
		PayloadSizeThresholdKB:                 3,
		PrometheusServerURL:                    "http://localhost:9090",
		PrometheusQueryPeriod:                  "1h",
		AutoscaleQueryPeriod:                   "5m",
		CloudAPIQueryIntervalSeconds:           3600,
		CloudAPIQueryIntervalSecondsAutoscale:  60,
		MemoryScalingPercentage:                20,
		ThroughputScalingPercentage:            20,
		ServerPort:                             "5000",
		LogLevel:                               "info",
		LogFormat:                              "text",
	}
}

// Load reads .env (best effort, local-dev convenience only), then the
// YAML file at path (or CONFIG_FILE, defaulting to config.yaml), then the
// two required secrets from the environment. A missing secret is a fatal
// configuration error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path == "" {
		path = "config.yaml"
	}

	raw := defaults()
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	promPeriod, err := time.ParseDuration(raw.PrometheusQueryPeriod)
	if err != nil {
		return nil, fmt.Errorf("parse prometheus_query_period: %w", err)
	}
	autoscalePeriod, err := time.ParseDuration(raw.AutoscaleQueryPeriod)
	if err != nil {
		return nil, fmt.Errorf("parse autoscale_query_period: %w", err)
	}

	apiKey := os.Getenv("REDIS_CLOUD_API_KEY")
	apiSecret := os.Getenv("REDIS_CLOUD_API_SECRET")
	if apiKey == "" || apiSecret == "" {
		return nil, fmt.Errorf("REDIS_CLOUD_API_KEY and REDIS_CLOUD_API_SECRET must be set")
	}

	return &Config{
		ThroughputThreshold:                    raw.ThroughputThreshold,
		MemoryThreshold:                        raw.MemoryThreshold,
		CPUThreshold:                           raw.CPUThreshold,
		LatencyThresholdMs:                     raw.LatencyThresholdMs,
		PayloadSizeThresholdKB:                 raw.PayloadSizeThresholdKB,
		PrometheusServerURL:                    raw.PrometheusServerURL,
		PrometheusQueryPeriod:                  promPeriod,
		AutoscaleQueryPeriod:                   autoscalePeriod,
		CloudAPIQueryIntervalSeconds:           raw.CloudAPIQueryIntervalSeconds,
		CloudAPIQueryIntervalSecondsAutoscale:  raw.CloudAPIQueryIntervalSecondsAutoscale,
		MemoryScalingPercentage:                raw.MemoryScalingPercentage,
		ThroughputScalingPercentage:            raw.ThroughputScalingPercentage,
		ServerPort:                             raw.ServerPort,
		LogLevel:                               raw.LogLevel,
		LogFormat:                              raw.LogFormat,
		RedisCloudAPIKey:                       apiKey,
		RedisCloudAPISecret:                    apiSecret,
	}, nil
}
