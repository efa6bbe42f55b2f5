package health

import (
	"sync"
	"time"
)

// Status represents the health status of a component
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// Check represents a health check result for a specific component
type Check struct {
	Name        string         `json:"name"`
	Status      Status         `json:"status"`
	Message     string         `json:"message,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	LastChecked time.Time      `json:"last_checked"`
	Duration    time.Duration  `json:"duration_ms"`
}

// CheckFunc is a function that performs a health check
type CheckFunc func() Check

// Checker manages health checks for the subsystems
type Checker struct {
	checks map[string]CheckFunc
	mu     sync.RWMutex
	start  time.Time

	// degradedThreshold is the healthy-fraction below which the aggregate
	// drops from degraded to down
	degradedThreshold float64
}

// Response represents the aggregated health of all subsystems
type Response struct {
	Status       Status           `json:"status"`
	Timestamp    time.Time        `json:"timestamp"`
	Checks       map[string]Check `json:"checks"`
	HealthyRatio float64          `json:"healthy_ratio"`
	Uptime       time.Duration    `json:"uptime_seconds"`
}
