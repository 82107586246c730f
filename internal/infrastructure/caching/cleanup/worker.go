// Package cleanup provides background worker
package cleanup

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/clubifyhq/checkout-go/internal/infrastructure/caching/interfaces"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/tenant"
)

// Worker handles background cache cleanup operations
type Worker struct {
	cache    interfaces.Cache
	detector *tenant.Detector
	config   *Config
}

// NewWorker creates a new cleanup worker with injected configuration
func NewWorker(cache interfaces.Cache, detector *tenant.Detector, config *Config) *Worker {
	return &Worker{
		cache:    cache,
		detector: detector,
		config:   config,
	}
}

// Start begins the cleanup worker routine, using the configured interval.
// Database pool hygiene runs on its own slower cadence.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.config.CleanupInterval)
	defer ticker.Stop()

	poolTicker := time.NewTicker(w.config.DBPoolCleanupInterval)
	defer poolTicker.Stop()

	log.Printf("Cache cleanup worker started (interval: %v, verbose: %v)",
		w.config.CleanupInterval, w.config.VerboseReporting)

	for {
		select {
		case <-ctx.Done():
			log.Println("Cache cleanup worker stopping...")
			return
		case <-ticker.C:
			w.performCleanup(ctx)
		case <-poolTicker.C:
			tenant.CleanupStaleConnections()
		}
	}
}

// performCleanup executes cleanup for all active tenants
func (w *Worker) performCleanup(ctx context.Context) {
	start := time.Now()
	reporter := NewReporter(w.cache)

	tenants := w.getActiveTenants()

	if w.config.VerboseReporting {
		reporter.LogStage("PERIODIC CACHE CLEANUP")
		for _, tenantID := range tenants {
			fmt.Print(reporter.GenerateTenantReport(tenantID))
		}
	}

	var totalCleaned int
	for _, tenantID := range tenants {
		select {
		case <-ctx.Done():
			return
		default:
			totalCleaned += w.cache.PurgeExpired(tenantID)
		}
	}

	duration := time.Since(start)
	if totalCleaned > 0 {
		reporter.LogSuccess("Cache cleanup finished: %d items cleaned from %d tenants in %v",
			totalCleaned, len(tenants), duration)
	} else if w.config.VerboseReporting {
		reporter.LogInfo("Cache cleanup completed - no expired items found (%v)", duration)
	}
}

// getActiveTenants lists registry tenants currently marked active.
func (w *Worker) getActiveTenants() []string {
	registry := w.detector.GetRegistry()
	tenants := make([]string, 0, len(registry.Tenants))
	for tenantID, info := range registry.Tenants {
		if info.Status == "active" {
			tenants = append(tenants, tenantID)
		}
	}
	return tenants
}
