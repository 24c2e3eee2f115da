// Package config loads layered service configuration with koanf and
// validates it with go-playground/validator.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	DefaultServerPort = 8080

	// DefaultMaxRequestSize also caps import documents.
	DefaultMaxRequestSize = 1 << 20

	// DefaultClientRateLimit is requests per second against the remote.
	DefaultClientRateLimit = 10.0

	DefaultTransportMaxIdleConns        = 100
	DefaultTransportMaxIdleConnsPerHost = 10

	// DefaultPullLimit bounds the batch fetched per cycle.
	DefaultPullLimit = 10

	// DefaultPushConcurrency caps in-flight pushes within one cycle.
	DefaultPushConcurrency = 4

	// DefaultAuthorID is sent as the author of every pushed record.
	DefaultAuthorID = 1

	DefaultSyncInterval = 30 * time.Second
)

// Config mirrors the koanf key tree; see defaults for every key.
type Config struct {
	App       AppConfig       `koanf:"app"       validate:"required"`
	Server    ServerConfig    `koanf:"server"    validate:"required"`
	Log       LogConfig       `koanf:"log"       validate:"required"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Client    ClientConfig    `koanf:"client"    validate:"required"`
	Remote    RemoteConfig    `koanf:"remote"    validate:"required"`
	Sync      SyncConfig      `koanf:"sync"      validate:"required"`
	Storage   StorageConfig   `koanf:"storage"   validate:"required"`
}

type AppConfig struct {
	Name        string `koanf:"name"        validate:"required"`
	Version     string `koanf:"version"     validate:"required"`
	Environment string `koanf:"environment" validate:"required,oneof=local dev qa prod test"`
}

// ServerConfig tunes the HTTP listener. RequestTimeout bounds /api/v1
// calls other than POST /sync.
type ServerConfig struct {
	Port            int           `koanf:"port"             validate:"required,min=1,max=65535"`
	Host            string        `koanf:"host"             validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout"     validate:"required,min=1s"`
	WriteTimeout    time.Duration `koanf:"write_timeout"    validate:"required,min=1s"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"     validate:"required,min=1s"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"required,min=1s"`
	RequestTimeout  time.Duration `koanf:"request_timeout"  validate:"required,min=1s"`
	MaxRequestSize  int64         `koanf:"max_request_size" validate:"required,min=1"`
}

type LogConfig struct {
	Level  string        `koanf:"level"  validate:"required,oneof=trace debug info warn error"`
	Format string        `koanf:"format" validate:"required,oneof=json text pretty"`
	File   LogFileConfig `koanf:"file"`
}

// LogFileConfig enables a lumberjack-rotated JSON copy of the log.
type LogFileConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Path       string `koanf:"path"        validate:"required_if=Enabled true"`
	MaxSizeMB  int    `koanf:"max_size"    validate:"omitempty,min=1,max=1024"`
	MaxBackups int    `koanf:"max_backups" validate:"omitempty,min=0,max=100"`
	MaxAgeDays int    `koanf:"max_age"     validate:"omitempty,min=0,max=365"`
	Compress   bool   `koanf:"compress"`
}

// TelemetryConfig points the OTLP exporters at a collector.
type TelemetryConfig struct {
	Enabled      bool    `koanf:"enabled"`
	Endpoint     string  `koanf:"endpoint"      validate:"required_if=Enabled true"`
	ServiceName  string  `koanf:"service_name"  validate:"required_if=Enabled true"`
	SamplingRate float64 `koanf:"sampling_rate" validate:"min=0,max=1"`
}

// ClientConfig tunes the resilient client used for the remote collection.
type ClientConfig struct {
	Timeout        time.Duration        `koanf:"timeout"         validate:"required,min=100ms"`
	Retry          RetryConfig          `koanf:"retry"           validate:"required"`
	CircuitBreaker CircuitBreakerConfig `koanf:"circuit_breaker" validate:"required"`
	Transport      TransportConfig      `koanf:"transport"       validate:"required"`
	RateLimit      RateLimitConfig      `koanf:"rate_limit"`
}

// RetryConfig shapes the backoff between attempts.
type RetryConfig struct {
	MaxAttempts     int           `koanf:"max_attempts"     validate:"required,min=1,max=10"`
	InitialInterval time.Duration `koanf:"initial_interval" validate:"required,min=10ms"`
	MaxInterval     time.Duration `koanf:"max_interval"     validate:"required,min=100ms"`
	Multiplier      float64       `koanf:"multiplier"       validate:"required,min=1.1,max=10"`
	JitterFactor    float64       `koanf:"jitter_factor"    validate:"min=0,max=1"`
}

// CircuitBreakerConfig opens after MaxFailures consecutive failures and
// probes again after Timeout.
type CircuitBreakerConfig struct {
	MaxFailures   int           `koanf:"max_failures"    validate:"required,min=1"`
	Timeout       time.Duration `koanf:"timeout"         validate:"required,min=1s"`
	HalfOpenLimit int           `koanf:"half_open_limit" validate:"required,min=1"`
}

type TransportConfig struct {
	MaxIdleConns        int           `koanf:"max_idle_conns"          validate:"required,min=1"`
	MaxIdleConnsPerHost int           `koanf:"max_idle_conns_per_host" validate:"required,min=1"`
	IdleConnTimeout     time.Duration `koanf:"idle_conn_timeout"       validate:"required,min=1s"`
}

// RateLimitConfig paces outgoing requests. A zero rate disables pacing.
type RateLimitConfig struct {
	RequestsPerSecond float64 `koanf:"rps"   validate:"min=0"`
	Burst             int     `koanf:"burst" validate:"required_with=RequestsPerSecond,omitempty,min=1"`
}

// RemoteConfig describes the remote quote collection.
type RemoteConfig struct {
	BaseURL   string `koanf:"base_url"   validate:"required,url"`
	Name      string `koanf:"name"       validate:"required"`
	PullLimit int    `koanf:"pull_limit" validate:"required,min=1,max=100"`
	AuthorID  int    `koanf:"author_id"  validate:"required,min=1"`
}

// SyncConfig contains sync engine and scheduler settings.
type SyncConfig struct {
	Interval        time.Duration `koanf:"interval"         validate:"required,min=1s"`
	AutoSync        bool          `koanf:"auto_sync"`
	Policy          string        `koanf:"policy"           validate:"required,oneof=server_wins manual"`
	PushConcurrency int           `koanf:"push_concurrency" validate:"required,min=1,max=64"`
}

// StorageConfig selects the durable key-value backend.
type StorageConfig struct {
	Driver       string `koanf:"driver"        validate:"required,oneof=badger sqlite memory"`
	Path         string `koanf:"path"          validate:"required_unless=Driver memory"`
	SeedDefaults bool   `koanf:"seed_defaults"`
}

// defaults is the lowest layer. Every key a file or variable may set is
// listed here, which also lets env overrides find nested keys.
func defaults() map[string]any {
	return map[string]any{
		"app.name":        "quote-sync",
		"app.version":     "dev",
		"app.environment": "local",

		"server.port":             DefaultServerPort,
		"server.host":             "0.0.0.0",
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "10s",
		"server.request_timeout":  "30s",
		"server.max_request_size": DefaultMaxRequestSize,

		"log.level":            "info",
		"log.format":           "json",
		"log.file.enabled":     false,
		"log.file.path":        "./logs/quote-sync.log",
		"log.file.max_size":    100,
		"log.file.max_backups": 3,
		"log.file.max_age":     28,
		"log.file.compress":    true,

		"telemetry.enabled":       false,
		"telemetry.endpoint":      "",
		"telemetry.service_name":  "quote-sync",
		"telemetry.sampling_rate": 1.0,

		"client.timeout":                           "10s",
		"client.retry.max_attempts":                3,
		"client.retry.initial_interval":            "100ms",
		"client.retry.max_interval":                "5s",
		"client.retry.multiplier":                  2.0,
		"client.retry.jitter_factor":               0.25,
		"client.circuit_breaker.max_failures":      5,
		"client.circuit_breaker.timeout":           "30s",
		"client.circuit_breaker.half_open_limit":   3,
		"client.transport.max_idle_conns":          DefaultTransportMaxIdleConns,
		"client.transport.max_idle_conns_per_host": DefaultTransportMaxIdleConnsPerHost,
		"client.transport.idle_conn_timeout":       "90s",
		"client.rate_limit.rps":                    DefaultClientRateLimit,
		"client.rate_limit.burst":                  5,

		"remote.base_url":   "https://jsonplaceholder.typicode.com",
		"remote.name":       "posts",
		"remote.pull_limit": DefaultPullLimit,
		"remote.author_id":  DefaultAuthorID,

		"sync.interval":         DefaultSyncInterval.String(),
		"sync.auto_sync":        true,
		"sync.policy":           "server_wins",
		"sync.push_concurrency": DefaultPushConcurrency,

		"storage.driver":        "badger",
		"storage.path":          "./data/quotes",
		"storage.seed_defaults": true,
	}
}

// Load reads ./configs.
func Load(profile string) (*Config, error) {
	return LoadFrom("configs", profile)
}

// EnvPrefix marks variables that override configuration; "__" separates
// levels, so APP_SYNC__PUSH_CONCURRENCY sets sync.push_concurrency.
const EnvPrefix = "APP_"

// LoadFrom layers defaults, {dir}/base.yaml, {dir}/{profile}.yaml and
// the environment, later layers winning. Missing files are skipped.
func LoadFrom(dir, profile string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	layers := []struct{ name, path string }{{name: "base config", path: filepath.Join(dir, "base.yaml")}}
	if profile != "" {
		layers = append(layers, struct{ name, path string }{
			name: fmt.Sprintf("profile config %q", profile),
			path: filepath.Join(dir, profile+".yaml"),
		})
	}

	for _, l := range layers {
		if _, err := os.Stat(l.path); errors.Is(err, os.ErrNotExist) {
			continue
		}

		if err := k.Load(file.Provider(l.path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading %s: %w", l.name, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return &cfg, nil
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}
