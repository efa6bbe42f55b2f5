package orchestrator

import (
	"context"
	"time"

	"github.com/dd0wney/portfolio-core/pkg/validation"
)

// OperationStatus tracks the lifecycle of a dispatched call
type OperationStatus string

const (
	StatusPending OperationStatus = "pending"
	StatusSuccess OperationStatus = "success"
	StatusError   OperationStatus = "error"
)

// OperationRecord is one telemetry entry, created at dispatch time and
// finalized when the call settles. Owned solely by the orchestrator.
type OperationRecord struct {
	ID           string          `json:"id"`
	Service      string          `json:"service"`
	Method       string          `json:"method"`
	StartedAt    time.Time       `json:"started_at"`
	Duration     time.Duration   `json:"duration_ms"`
	Status       OperationStatus `json:"status"`
	ErrorCode    string          `json:"error_code,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

// ServiceMetrics aggregates per-service call statistics.
type ServiceMetrics struct {
	Service     string        `json:"service"`
	Calls       int64         `json:"calls"`
	Errors      int64         `json:"errors"`
	AvgDuration time.Duration `json:"avg_duration_ms"`
	LastCall    time.Time     `json:"last_call"`
}

// Method handles one (service, method) pair.
type Method func(ctx context.Context, params map[string]any) (any, error)

// Config controls telemetry retention and health polling.
type Config struct {
	HistorySize         int           // Ring buffer capacity for operation records
	HealthCheckInterval time.Duration // Cadence of the aggregate health poll
}

const (
	DefaultHistorySize         = 200
	DefaultHealthCheckInterval = 30 * time.Second
)

// Validate checks the config, applying defaults for zero values first.
func (c *Config) Validate() error {
	c.HistorySize = validation.DefaultOrInt(c.HistorySize, DefaultHistorySize)
	c.HealthCheckInterval = validation.DefaultOrDuration(c.HealthCheckInterval, DefaultHealthCheckInterval)

	return validation.NewConfigValidator("orchestrator.Config").
		Positive("HistorySize", c.HistorySize).
		MinDuration("HealthCheckInterval", c.HealthCheckInterval, time.Second).
		Validate()
}
