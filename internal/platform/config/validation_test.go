package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a fully valid configuration for testing.
func validConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "quote-sync",
			Version:     "1.0.0",
			Environment: "test",
		},
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RequestTimeout:  30 * time.Second,
			MaxRequestSize:  DefaultMaxRequestSize,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Client: ClientConfig{
			Timeout: 10 * time.Second,
			Retry: RetryConfig{
				MaxAttempts:     3,
				InitialInterval: 100 * time.Millisecond,
				MaxInterval:     5 * time.Second,
				Multiplier:      2.0,
				JitterFactor:    0.25,
			},
			CircuitBreaker: CircuitBreakerConfig{
				MaxFailures:   5,
				Timeout:       30 * time.Second,
				HalfOpenLimit: 3,
			},
			Transport: TransportConfig{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
			RateLimit: RateLimitConfig{RequestsPerSecond: 10, Burst: 5},
		},
		Remote: RemoteConfig{
			BaseURL:   "https://jsonplaceholder.typicode.com",
			Name:      "posts",
			PullLimit: 10,
			AuthorID:  1,
		},
		Sync: SyncConfig{
			Interval:        30 * time.Second,
			AutoSync:        true,
			Policy:          "server_wins",
			PushConcurrency: 4,
		},
		Storage: StorageConfig{
			Driver: "badger",
			Path:   "./data/quotes",
		},
	}
}

func TestConfig_Validate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestConfig_Validate_Fields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "invalid environment",
			mutate:  func(c *Config) { c.App.Environment = "staging" },
			wantErr: "app.environment must be one of",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "server.port must be at most 65535",
		},
		{
			name:    "unknown log format",
			mutate:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: "log.format must be one of",
		},
		{
			name:    "file logging without path",
			mutate:  func(c *Config) { c.Log.File = LogFileConfig{Enabled: true} },
			wantErr: "log.file.path is required when",
		},
		{
			name:    "remote url malformed",
			mutate:  func(c *Config) { c.Remote.BaseURL = "not a url" },
			wantErr: "remote.base_url must be a valid URL",
		},
		{
			name:    "pull limit zero",
			mutate:  func(c *Config) { c.Remote.PullLimit = 0 },
			wantErr: "remote.pull_limit is required",
		},
		{
			name:    "unknown policy",
			mutate:  func(c *Config) { c.Sync.Policy = "local_wins" },
			wantErr: "sync.policy must be one of",
		},
		{
			name:    "push concurrency too high",
			mutate:  func(c *Config) { c.Sync.PushConcurrency = 100 },
			wantErr: "sync.push_concurrency must be at most 64",
		},
		{
			name:    "unknown storage driver",
			mutate:  func(c *Config) { c.Storage.Driver = "redis" },
			wantErr: "storage.driver must be one of",
		},
		{
			name:    "badger without path",
			mutate:  func(c *Config) { c.Storage.Path = "" },
			wantErr: "storage.path is required unless",
		},
		{
			name:    "rate without burst",
			mutate:  func(c *Config) { c.Client.RateLimit.Burst = 0 },
			wantErr: "client.rate_limit.burst is required when",
		},
		{
			name:    "interval shorter than client timeout",
			mutate:  func(c *Config) { c.Sync.Interval = 2 * time.Second },
			wantErr: "must not be shorter than client.timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_Validate_MemoryDriverNeedsNoPath(t *testing.T) {
	cfg := validConfig()
	cfg.Storage = StorageConfig{Driver: "memory"}

	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate_RateLimitDisabled(t *testing.T) {
	cfg := validConfig()
	cfg.Client.RateLimit = RateLimitConfig{}

	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate_MultipleErrors(t *testing.T) {
	cfg := &Config{
		App:    AppConfig{Environment: "invalid"},
		Server: ServerConfig{Port: -1},
	}

	err := cfg.Validate()
	require.Error(t, err)

	assert.Contains(t, err.Error(), "app.name")
	assert.Contains(t, err.Error(), "app.version")
}

func TestKeyPath(t *testing.T) {
	tests := []struct {
		namespace string
		expected  string
	}{
		{"Config.server.port", "server.port"},
		{"Config.sync.push_concurrency", "sync.push_concurrency"},
		{"Config.client.rate_limit.burst", "client.rate_limit.burst"},
		{"storage", "storage"},
	}

	for _, tt := range tests {
		t.Run(tt.namespace, func(t *testing.T) {
			assert.Equal(t, tt.expected, keyPath(tt.namespace))
		})
	}
}

func TestConfig_Validate_CrossFieldSkippedOnFieldErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	cfg.Sync.Interval = time.Second

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port is required")
	assert.NotContains(t, err.Error(), "sync.interval")
}
