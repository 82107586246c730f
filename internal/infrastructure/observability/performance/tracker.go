// Package performance provides performance tracking and monitoring capabilities
// for checkout operations with multi-tenant support.
package performance

import (
	"fmt"
	"sync"
	"time"
)

// AlertSeverity classifies performance alerts
type AlertSeverity string

const (
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// Alert records a threshold violation for an operation
type Alert struct {
	ID        string        `json:"id"`
	TenantID  string        `json:"tenantId"`
	Operation string        `json:"operation"`
	Severity  AlertSeverity `json:"severity"`
	Message   string        `json:"message"`
	Duration  time.Duration `json:"duration"`
	CreatedAt time.Time     `json:"createdAt"`
}

// AlertThresholds defines performance thresholds for generating alerts
type AlertThresholds struct {
	SlowResponseThreshold     time.Duration `json:"slowResponseThreshold"`
	CriticalResponseThreshold time.Duration `json:"criticalResponseThreshold"`
	LowCacheHitRatio          float64       `json:"lowCacheHitRatio"`
	GatewayCallThreshold      time.Duration `json:"gatewayCallThreshold"`
	DatabaseQueryThreshold    time.Duration `json:"databaseQueryThreshold"`
}

// DefaultAlertThresholds returns sensible default alert thresholds
func DefaultAlertThresholds() *AlertThresholds {
	return &AlertThresholds{
		SlowResponseThreshold:     500 * time.Millisecond,
		CriticalResponseThreshold: 5 * time.Second,
		LowCacheHitRatio:          0.70,
		GatewayCallThreshold:      2 * time.Second,
		DatabaseQueryThreshold:    50 * time.Millisecond,
	}
}

// TrackerConfig contains configuration options for the performance tracker
type TrackerConfig struct {
	MaxMarkers   int           `json:"maxMarkers"`
	MaxAlerts    int           `json:"maxAlerts"`
	EnableAlerts bool          `json:"enableAlerts"`
	Retention    time.Duration `json:"retention"`
}

// DefaultTrackerConfig returns a sensible default configuration
func DefaultTrackerConfig() *TrackerConfig {
	return &TrackerConfig{
		MaxMarkers:   10000,
		MaxAlerts:    500,
		EnableAlerts: true,
		Retention:    time.Hour,
	}
}

// Tracker manages performance markers and provides metrics aggregation
type Tracker struct {
	markers    map[string]*Marker
	alerts     []*Alert
	thresholds *AlertThresholds
	mu         sync.RWMutex
	started    time.Time
	config     *TrackerConfig
}

// NewTracker creates a new performance tracker with the given configuration
func NewTracker(config *TrackerConfig) *Tracker {
	if config == nil {
		config = DefaultTrackerConfig()
	}

	return &Tracker{
		markers:    make(map[string]*Marker),
		alerts:     make([]*Alert, 0),
		thresholds: DefaultAlertThresholds(),
		started:    time.Now(),
		config:     config,
	}
}

// StartOperation creates and tracks a new performance marker for an operation
func (t *Tracker) StartOperation(operation, tenantID string) *Marker {
	marker := &Marker{
		Operation: operation,
		TenantID:  tenantID,
		StartTime: time.Now(),
		Metadata:  make(map[string]any),
		Success:   true, // Assume success until proven otherwise
	}

	markerID := fmt.Sprintf("%s_%s_%d", tenantID, operation, time.Now().UnixNano())

	t.mu.Lock()
	t.markers[markerID] = marker
	t.mu.Unlock()

	return marker
}

// CompleteOperation finalizes a marker and evaluates alert thresholds
func (t *Tracker) CompleteOperation(marker *Marker) {
	marker.Complete()
	if t.config.EnableAlerts {
		t.checkForAlerts(marker)
	}
}

func (t *Tracker) checkForAlerts(marker *Marker) {
	alerts := t.evaluateThresholds(marker)
	if len(alerts) == 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.alerts = append(t.alerts, alerts...)
	if len(t.alerts) > t.config.MaxAlerts {
		t.alerts = t.alerts[len(t.alerts)-t.config.MaxAlerts:]
	}
}

func (t *Tracker) evaluateThresholds(marker *Marker) []*Alert {
	var alerts []*Alert

	if marker.Duration >= t.thresholds.CriticalResponseThreshold {
		alerts = append(alerts, t.createAlert(marker, SeverityCritical,
			fmt.Sprintf("operation took %s", marker.Duration)))
	} else if marker.Duration >= t.thresholds.SlowResponseThreshold {
		alerts = append(alerts, t.createAlert(marker, SeverityWarning,
			fmt.Sprintf("operation took %s", marker.Duration)))
	}

	total := marker.CacheHits + marker.CacheMisses
	if total > 0 && marker.GetCacheHitRatio() < t.thresholds.LowCacheHitRatio {
		alerts = append(alerts, t.createAlert(marker, SeverityWarning,
			fmt.Sprintf("cache hit ratio %.2f below threshold", marker.GetCacheHitRatio())))
	}

	return alerts
}

func (t *Tracker) createAlert(marker *Marker, severity AlertSeverity, message string) *Alert {
	return &Alert{
		ID:        fmt.Sprintf("%s_%d", marker.Operation, time.Now().UnixNano()),
		TenantID:  marker.TenantID,
		Operation: marker.Operation,
		Severity:  severity,
		Message:   message,
		Duration:  marker.Duration,
		CreatedAt: time.Now().UTC(),
	}
}

// GetMetrics returns completed markers for a tenant
func (t *Tracker) GetMetrics(tenantID string) []Marker {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var metrics []Marker
	for _, marker := range t.markers {
		if marker.TenantID == tenantID && marker.Completed {
			metrics = append(metrics, *marker)
		}
	}
	return metrics
}

// GetRecentMetrics returns completed markers for a tenant within a window
func (t *Tracker) GetRecentMetrics(tenantID string, within time.Duration) []Marker {
	cutoff := time.Now().Add(-within)

	t.mu.RLock()
	defer t.mu.RUnlock()

	var metrics []Marker
	for _, marker := range t.markers {
		if marker.TenantID == tenantID && marker.Completed && marker.EndTime.After(cutoff) {
			metrics = append(metrics, *marker)
		}
	}
	return metrics
}

// GetActiveOperations returns markers that have been started but not completed
func (t *Tracker) GetActiveOperations(tenantID string) []Marker {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var active []Marker
	for _, marker := range t.markers {
		if marker.TenantID == tenantID && !marker.Completed {
			active = append(active, *marker)
		}
	}
	return active
}

// GetAlerts returns alerts for a tenant
func (t *Tracker) GetAlerts(tenantID string) []*Alert {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var alerts []*Alert
	for _, alert := range t.alerts {
		if alert.TenantID == tenantID {
			alerts = append(alerts, alert)
		}
	}
	return alerts
}

// Cleanup drops markers beyond the retention window and enforces MaxMarkers
func (t *Tracker) Cleanup() {
	cutoff := time.Now().Add(-t.config.Retention)

	t.mu.Lock()
	defer t.mu.Unlock()

	for id, marker := range t.markers {
		if marker.Completed && marker.EndTime.Before(cutoff) {
			delete(t.markers, id)
		}
	}

	if len(t.markers) > t.config.MaxMarkers {
		// Drop oldest completed markers first
		for id, marker := range t.markers {
			if len(t.markers) <= t.config.MaxMarkers {
				break
			}
			if marker.Completed {
				delete(t.markers, id)
			}
		}
	}
}

// GetOverallStats returns aggregate tracker statistics
func (t *Tracker) GetOverallStats() map[string]any {
	t.mu.RLock()
	defer t.mu.RUnlock()

	completed := 0
	failed := 0
	var totalDuration time.Duration
	for _, marker := range t.markers {
		if marker.Completed {
			completed++
			totalDuration += marker.Duration
			if !marker.Success {
				failed++
			}
		}
	}

	avg := time.Duration(0)
	if completed > 0 {
		avg = totalDuration / time.Duration(completed)
	}

	return map[string]any{
		"uptime":          time.Since(t.started).String(),
		"trackedMarkers":  len(t.markers),
		"completed":       completed,
		"failed":          failed,
		"averageDuration": avg.String(),
		"alerts":          len(t.alerts),
	}
}
