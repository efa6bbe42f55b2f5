// Package config loads the server configuration from YAML, applies
// defaults, and lets the environment override the secrets that should
// never live in a file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/portfolio-core/pkg/connmon"
	"github.com/dd0wney/portfolio-core/pkg/executor"
	"github.com/dd0wney/portfolio-core/pkg/fallback"
	"github.com/dd0wney/portfolio-core/pkg/orchestrator"
	"github.com/dd0wney/portfolio-core/pkg/validation"
)

// Config is the full server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Remote    RemoteConfig    `yaml:"remote"`
	Cache     CacheConfig     `yaml:"cache"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	Fallback  FallbackConfig  `yaml:"fallback"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type RemoteConfig struct {
	BaseURL string `yaml:"base_url"`
	// APIKey is normally supplied via PORTFOLIO_API_KEY
	APIKey string `yaml:"api_key"`
}

type CacheConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type MonitorConfig struct {
	ProbeInterval    time.Duration `yaml:"probe_interval"`
	ProbeTimeout     time.Duration `yaml:"probe_timeout"`
	FailureThreshold int           `yaml:"failure_threshold"`
}

type FallbackConfig struct {
	FreshnessWindow  time.Duration `yaml:"freshness_window"`
	MaxReplayRetries int           `yaml:"max_replay_retries"`
	MaxRetries       int           `yaml:"max_retries"`
	BaseDelay        time.Duration `yaml:"base_delay"`
	MaxDelay         time.Duration `yaml:"max_delay"`
	Timeout          time.Duration `yaml:"timeout"`
	SnapshotPath     string        `yaml:"snapshot_path"`
}

type TelemetryConfig struct {
	HistorySize         int           `yaml:"history_size"`
	HealthCheckInterval time.Duration `yaml:"health_check_interval"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

const (
	DefaultPort          = 8090
	DefaultSweepInterval = time.Minute
	DefaultLogLevel      = "info"

	// EnvAPIKey overrides remote.api_key when set
	EnvAPIKey = "PORTFOLIO_API_KEY"
	// EnvBaseURL overrides remote.base_url when set
	EnvBaseURL = "PORTFOLIO_BASE_URL"
)

// Load reads the YAML file at path, applies defaults and environment
// overrides, and validates the result. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	config := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Defaults only
	default:
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	config.applyEnv()
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.Remote.APIKey = v
	}
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.Remote.BaseURL = v
	}
}

func (c *Config) applyDefaults() {
	c.Server.Port = validation.DefaultOrInt(c.Server.Port, DefaultPort)
	c.Cache.TTL = validation.DefaultOrDuration(c.Cache.TTL, fallback.DefaultCacheTTL)
	c.Cache.SweepInterval = validation.DefaultOrDuration(c.Cache.SweepInterval, DefaultSweepInterval)
	c.Logging.Level = validation.DefaultOrString(c.Logging.Level, DefaultLogLevel)
}

// Validate checks the cross-cutting basics; the subsystem configs built by
// the accessors below validate their own details.
func (c *Config) Validate() error {
	return validation.NewConfigValidator("config").
		Positive("server.port", c.Server.Port).
		OneOf("logging.level", c.Logging.Level, []string{"debug", "info", "warn", "error"}).
		Validate()
}

// MonitorOptions maps onto the connection monitor's config, leaving its
// own defaults in place for unset fields.
func (c *Config) MonitorOptions() connmon.Config {
	return connmon.Config{
		ProbeInterval:    c.Monitor.ProbeInterval,
		ProbeTimeout:     c.Monitor.ProbeTimeout,
		FailureThreshold: c.Monitor.FailureThreshold,
	}
}

// FallbackOptions maps onto the router's config.
func (c *Config) FallbackOptions() fallback.Config {
	return fallback.Config{
		CacheTTL:         c.Cache.TTL,
		FreshnessWindow:  c.Fallback.FreshnessWindow,
		MaxReplayRetries: c.Fallback.MaxReplayRetries,
		Executor: executor.Options{
			Timeout:    c.Fallback.Timeout,
			MaxRetries: c.Fallback.MaxRetries,
			BaseDelay:  c.Fallback.BaseDelay,
			MaxDelay:   c.Fallback.MaxDelay,
		},
	}
}

// OrchestratorOptions maps onto the orchestrator's config.
func (c *Config) OrchestratorOptions() orchestrator.Config {
	return orchestrator.Config{
		HistorySize:         c.Telemetry.HistorySize,
		HealthCheckInterval: c.Telemetry.HealthCheckInterval,
	}
}
