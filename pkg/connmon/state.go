// Package connmon watches reachability of the remote provider and derives a
// qualitative connection state consumed by the fallback router.
package connmon

import (
	"time"
)

// Status is the qualitative connection status
type Status string

const (
	StatusOnline       Status = "online"
	StatusOffline      Status = "offline"
	StatusReconnecting Status = "reconnecting"
	StatusUnstable     Status = "unstable"
)

// Quality is the latency-derived connection tier
type Quality string

const (
	QualityExcellent Quality = "excellent"
	QualityGood      Quality = "good"
	QualityPoor      Quality = "poor"
	QualityCritical  Quality = "critical"
)

// Latency thresholds for quality tiers
const (
	excellentBelow = 150 * time.Millisecond
	goodBelow      = 400 * time.Millisecond
	poorBelow      = 1000 * time.Millisecond
)

// State is a snapshot of the monitor's view of the connection.
type State struct {
	Status              Status        `json:"status"`
	Quality             Quality       `json:"quality"`
	Latency             time.Duration `json:"latency_ms"`
	LastCheckedAt       time.Time     `json:"last_checked_at"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
}

// qualityFor derives the tier from latency and the current failure run.
// Any recent failure caps the tier at poor; reaching the failure threshold
// is critical regardless of the last measured latency.
func qualityFor(latency time.Duration, failures, failureThreshold int) Quality {
	if failures >= failureThreshold {
		return QualityCritical
	}

	var tier Quality
	switch {
	case latency < excellentBelow:
		tier = QualityExcellent
	case latency < goodBelow:
		tier = QualityGood
	case latency < poorBelow:
		tier = QualityPoor
	default:
		tier = QualityCritical
	}

	if failures > 0 && (tier == QualityExcellent || tier == QualityGood) {
		return QualityPoor
	}
	return tier
}
