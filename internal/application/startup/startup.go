// Package startup prepares the application server
package startup

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clubifyhq/checkout-go/internal/application/container"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/caching/cleanup"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/observability/logging"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/tenant"
	"github.com/clubifyhq/checkout-go/internal/presentation/http/server"
	"github.com/clubifyhq/checkout-go/pkg/config"
)

// Initialize performs the complete multi-tenant startup sequence
func Initialize() error {
	setupLogging()

	start := time.Now().UTC()

	ctx, cancelBackgroundTasks := context.WithCancel(context.Background())
	defer cancelBackgroundTasks()

	log.Println("\033[36m" + `
   ___ _      _    _  __
  / __| |_  _| |__(_)/ _|_  _
 | (__| | || | '_ \ |  _| || |
  \___|_|\_,_|_.__/_|_|  \_, |
        checkout         |__/
` + "\033[0m")

	// Step 1: Channeled logging comes up first so every later step
	// reports through its own channel file.
	logger, err := logging.NewChanneledLogger(logging.DefaultLoggerConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.Startup().Info("Initializing checkout server")

	// Step 2: Tenant system and registry discovery
	tenantManager := tenant.NewManager(logger)

	registry, err := tenant.LoadTenantRegistry()
	if err != nil {
		return fmt.Errorf("failed to load tenant registry: %w", err)
	}

	if len(registry.Tenants) == 0 {
		logger.Startup().Info("No tenants found in registry - creating default tenant")
		if err := tenant.RegisterTenant("default", []string{"localhost"}); err != nil {
			return fmt.Errorf("failed to register default tenant: %w", err)
		}
		registry, err = tenant.LoadTenantRegistry()
		if err != nil {
			return fmt.Errorf("failed to reload registry: %w", err)
		}
	}

	logger.Startup().Info("Tenant registry loaded", "tenants", len(registry.Tenants))

	// Step 3: Pre-activate and validate tenant database connections
	if err := tenantManager.PreActivateAllTenants(); err != nil {
		return fmt.Errorf("tenant pre-activation failed: %w", err)
	}
	if err := tenantManager.ValidatePreActivation(); err != nil {
		return fmt.Errorf("tenant validation failed: %w", err)
	}

	activeCount, err := tenantManager.GetActiveTenantCount()
	if err != nil {
		return fmt.Errorf("failed to get active tenant count: %w", err)
	}
	logger.Startup().Info("Active tenant connections verified", "count", activeCount)

	// Step 4: Initialize the cache system for active tenants
	cacheManager := tenantManager.GetCacheManager()
	for tenantID, tenantInfo := range registry.Tenants {
		if tenantInfo.Status == "active" {
			cacheManager.InitializeTenant(tenantID)
			logger.Startup().Info("Cache initialized for tenant", "tenantId", tenantID)
		}
	}

	// Step 5: Dependency injection container with singleton services
	appContainer := container.NewContainer(tenantManager, cacheManager)
	logger.Startup().Info("Dependency injection container created with singleton services")

	// Step 6: Background workers — cache cleanup, live activity feed,
	// and the cart/session lifecycle sweeper.
	cleanupConfig := cleanup.NewConfig()
	cleanupWorker := cleanup.NewWorker(cacheManager, tenantManager.GetDetector(), cleanupConfig)
	go cleanupWorker.Start(ctx)
	logger.Startup().Info("Background cleanup worker started", "interval", config.CleanupInterval)

	go appContainer.LiveBroadcaster.Run(ctx)
	logger.Startup().Info("Live activity broadcaster started", "interval", config.LiveFeedInterval)

	go runLifecycleSweeper(ctx, appContainer, tenantManager)
	logger.Startup().Info("Cart and session lifecycle sweeper started", "interval", config.CleanupInterval)

	// Step 7: HTTP server
	httpServer := server.New(config.Port, appContainer)

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.System().Error("HTTP server failed", "error", err.Error())
		}
	}()

	logger.Startup().Info("Application startup complete",
		"totalDuration", time.Since(start),
		"activeTenants", activeCount,
		"port", config.Port)

	<-gracefulShutdown
	logger.Shutdown().Info("Shutdown signal received, starting graceful shutdown")

	shutdownStart := time.Now()
	cancelBackgroundTasks()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Shutdown().Error("Error during server shutdown", "error", err.Error())
	}

	if err := appContainer.Close(); err != nil {
		logger.Shutdown().Error("Error closing application container", "error", err.Error())
	}

	if err := tenantManager.Close(); err != nil {
		logger.Shutdown().Error("Error closing tenant manager", "error", err.Error())
	}

	logger.Shutdown().Info("Application shutdown complete",
		"totalUptime", time.Since(start),
		"shutdownDuration", time.Since(shutdownStart))

	return nil
}

// runLifecycleSweeper periodically walks active tenants, abandoning idle
// carts and flow sessions and expiring old abandoned carts.
func runLifecycleSweeper(ctx context.Context, appContainer *container.Container, tenantManager *tenant.Manager) {
	logger := appContainer.Logger
	ticker := time.NewTicker(config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		registry, err := tenant.LoadTenantRegistry()
		if err != nil {
			logger.System().Error("Lifecycle sweep registry load failed", "error", err.Error())
			continue
		}

		for tenantID, tenantInfo := range registry.Tenants {
			if tenantInfo.Status != "active" {
				continue
			}

			tenantCtx, err := tenantManager.NewContextFromID(tenantID)
			if err != nil {
				logger.System().Error("Lifecycle sweep tenant context failed",
					"tenantId", tenantID, "error", err.Error())
				continue
			}

			abandoned, expired, err := appContainer.CartService.SweepLifecycle(tenantCtx)
			if err != nil {
				logger.Cart().Error("Cart lifecycle sweep failed",
					"tenantId", tenantID, "error", err.Error())
			} else if abandoned > 0 || expired > 0 {
				logger.Cart().Info("Cart lifecycle sweep",
					"tenantId", tenantID, "abandoned", abandoned, "expired", expired)
			}

			swept, err := appContainer.FlowService.SweepIdleSessions(tenantCtx)
			if err != nil {
				logger.Flow().Error("Session sweep failed",
					"tenantId", tenantID, "error", err.Error())
			} else if swept > 0 {
				logger.Flow().Info("Idle flow sessions abandoned",
					"tenantId", tenantID, "count", swept)
			}
		}
	}
}

// setupLogging configures application logging
func setupLogging() {
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}
