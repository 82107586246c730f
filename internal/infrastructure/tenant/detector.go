// Package tenant provides tenant detection and validation.
package tenant

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/clubifyhq/checkout-go/internal/infrastructure/observability/logging"
	"github.com/gin-gonic/gin"
)

// Detector handles tenant detection from HTTP requests
type Detector struct {
	registry    *TenantRegistry
	registryMu  sync.RWMutex
	multiTenant bool
	logger      *logging.ChanneledLogger
}

// NewDetector creates a new tenant detector
func NewDetector(logger *logging.ChanneledLogger) (*Detector, error) {
	registry, err := LoadTenantRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to load tenant registry: %w", err)
	}

	multiTenant := false
	if val := os.Getenv("ENABLE_MULTI_TENANT"); val != "" {
		multiTenant, _ = strconv.ParseBool(val)
	}

	return &Detector{
		registry:    registry,
		multiTenant: multiTenant,
		logger:      logger,
	}, nil
}

// DetectTenant extracts the tenant ID from a request. Checkout widgets embed
// it in the X-Organization-ID header; the query parameter fallback exists for
// SSE and websocket clients that cannot set custom headers.
func (d *Detector) DetectTenant(c *gin.Context) (string, error) {
	var tenantID string

	if d.multiTenant {
		tenantID = c.GetHeader("X-Organization-ID")
		if tenantID == "" {
			tenantID = c.Query("organizationId")
		}
		if tenantID == "" {
			return "", fmt.Errorf("missing organization ID header in multi-tenant mode")
		}
	} else {
		tenantID = "default"
	}

	d.registryMu.RLock()
	_, exists := d.registry.Tenants[tenantID]
	d.registryMu.RUnlock()

	if !exists {
		if tenantID == "default" || d.hasConfigDirectory(tenantID) {
			if err := d.registerTenant(tenantID); err != nil {
				return "", fmt.Errorf("failed to auto-register tenant %s: %w", tenantID, err)
			}
		} else {
			return "", fmt.Errorf("unknown tenant: %s", tenantID)
		}
	}

	return tenantID, nil
}

// hasConfigDirectory checks if a tenant has a config directory
func (d *Detector) hasConfigDirectory(tenantID string) bool {
	root, err := configRoot()
	if err != nil {
		return false
	}
	if _, err := os.Stat(filepath.Join(root, "config", tenantID)); err == nil {
		return true
	}
	return false
}

// registerTenant adds a tenant to the in-memory registry so a provisioned
// config directory found on disk is usable without a restart.
func (d *Detector) registerTenant(tenantID string) error {
	d.registryMu.Lock()
	defer d.registryMu.Unlock()

	d.registry.Tenants[tenantID] = TenantInfo{
		TenantID:     tenantID,
		Domains:      []string{"*"},
		Status:       "inactive",
		DatabaseType: "",
	}
	return nil
}

// ValidateDomain checks if the request domain is allowed for the tenant
func (d *Detector) ValidateDomain(tenantID, domain string) bool {
	d.registryMu.RLock()
	defer d.registryMu.RUnlock()

	tenantInfo, exists := d.registry.Tenants[tenantID]
	if !exists {
		return false
	}
	for _, allowedDomain := range tenantInfo.Domains {
		if allowedDomain == "*" {
			return true
		}
		if strings.EqualFold(allowedDomain, domain) {
			return true
		}
	}
	return false
}

// GetTenantStatus returns the current status of a tenant
func (d *Detector) GetTenantStatus(tenantID string) string {
	d.registryMu.RLock()
	defer d.registryMu.RUnlock()

	if tenantInfo, exists := d.registry.Tenants[tenantID]; exists {
		return tenantInfo.Status
	}
	return "unknown"
}

// UpdateTenantStatus updates the cached registry status
func (d *Detector) UpdateTenantStatus(tenantID, status, dbType string) {
	d.registryMu.Lock()
	defer d.registryMu.Unlock()

	if tenantInfo, exists := d.registry.Tenants[tenantID]; exists {
		tenantInfo.Status = status
		if dbType != "" {
			tenantInfo.DatabaseType = dbType
		}
		d.registry.Tenants[tenantID] = tenantInfo
	}
}

// RefreshRegistry reloads the tenant registry from disk
func (d *Detector) RefreshRegistry() error {
	registry, err := LoadTenantRegistry()
	if err != nil {
		return fmt.Errorf("failed to refresh tenant registry: %w", err)
	}
	d.registryMu.Lock()
	d.registry = registry
	d.registryMu.Unlock()
	return nil
}

// GetRegistry returns the current registry (for external access)
func (d *Detector) GetRegistry() *TenantRegistry {
	d.registryMu.RLock()
	defer d.registryMu.RUnlock()
	return d.registry
}
