package health

import (
	"time"
)

// DefaultDegradedThreshold keeps the aggregate at degraded while at least
// 70% of subsystems are healthy.
const DefaultDegradedThreshold = 0.7

// NewChecker creates a new health checker
func NewChecker() *Checker {
	return &Checker{
		checks:            make(map[string]CheckFunc),
		start:             time.Now(),
		degradedThreshold: DefaultDegradedThreshold,
	}
}

// RegisterCheck registers a health check under the given subsystem name
func (hc *Checker) RegisterCheck(name string, check CheckFunc) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[name] = check
}

// UnregisterCheck removes a check; unknown names are ignored
func (hc *Checker) UnregisterCheck(name string) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	delete(hc.checks, name)
}

// Check runs all registered checks and aggregates them: healthy if every
// subsystem is healthy, degraded while the healthy fraction stays at or
// above the threshold, down otherwise.
func (hc *Checker) Check() Response {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	response := Response{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Checks:    make(map[string]Check),
		Uptime:    time.Since(hc.start),
	}

	healthy := 0
	for name, checkFunc := range hc.checks {
		start := time.Now()
		check := checkFunc()
		check.Duration = time.Since(start)
		check.LastChecked = start

		response.Checks[name] = check
		if check.Status == StatusHealthy {
			healthy++
		}
	}

	total := len(hc.checks)
	if total == 0 {
		response.HealthyRatio = 1.0
		return response
	}

	response.HealthyRatio = float64(healthy) / float64(total)
	switch {
	case healthy == total:
		response.Status = StatusHealthy
	case response.HealthyRatio >= hc.degradedThreshold:
		response.Status = StatusDegraded
	default:
		response.Status = StatusDown
	}

	return response
}
