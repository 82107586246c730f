// Package services provides the multi-tenant service for tenant lifecycle management.
package services

import (
	"fmt"
	"regexp"

	"github.com/clubifyhq/checkout-go/internal/infrastructure/email"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/observability/logging"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/observability/performance"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/persistence/database"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/security"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/tenant"
	"github.com/clubifyhq/checkout-go/pkg/config"
)

var tenantIDPattern = regexp.MustCompile(`^[a-z0-9-]{3,24}$`)

// MultiTenantService orchestrates tenant lifecycle operations.
type MultiTenantService struct {
	tenantManager *tenant.Manager
	emailService  email.Service
	logger        *logging.ChanneledLogger
	perfTracker   *performance.Tracker
}

// NewMultiTenantService creates a new MultiTenantService.
func NewMultiTenantService(
	tenantManager *tenant.Manager,
	emailService email.Service,
	logger *logging.ChanneledLogger,
	perfTracker *performance.Tracker,
) *MultiTenantService {
	return &MultiTenantService{
		tenantManager: tenantManager,
		emailService:  emailService,
		logger:        logger,
		perfTracker:   perfTracker,
	}
}

// ProvisionRequest defines the input for creating a new tenant.
type ProvisionRequest struct {
	TenantID         string   `json:"tenantId"`
	AdminEmail       string   `json:"adminEmail"`
	AdminPassword    string   `json:"adminPassword"`
	Domains          []string `json:"domains"`
	DefaultCurrency  string   `json:"defaultCurrency,omitempty"`
	GatewayAPIKey    string   `json:"gatewayApiKey,omitempty"`
	TursoDatabaseURL string   `json:"tursoDatabaseURL,omitempty"`
	TursoAuthToken   string   `json:"tursoAuthToken,omitempty"`
}

// CapacityResult defines the output for the capacity check.
type CapacityResult struct {
	Available      bool `json:"available"`
	CurrentTenants int  `json:"currentTenants"`
	MaxTenants     int  `json:"maxTenants"`
	AvailableSlots int  `json:"availableSlots"`
}

// ProvisionTenant creates a reserved tenant: config with generated secrets,
// registry entry, and an activation email to the admin.
func (s *MultiTenantService) ProvisionTenant(req ProvisionRequest) error {
	marker := s.perfTracker.StartOperation("service_provision_tenant", req.TenantID)
	defer marker.Complete()

	if err := s.validateProvisionRequest(req); err != nil {
		marker.SetError(err)
		return err
	}

	jwtSecret, _ := security.GenerateSecureKey(64)
	aesKey, _ := security.GenerateSecureKey(64)
	webhookSecret, _ := security.GenerateSecureKey(48)
	activationToken, _ := security.GenerateSecureToken(32)
	hashedPassword, err := security.HashPassword(req.AdminPassword)
	if err != nil {
		marker.SetError(err)
		s.logger.System().Error("Failed to hash admin password during provisioning", "error", err, "tenantId", req.TenantID)
		return fmt.Errorf("password hashing failed")
	}

	currency := req.DefaultCurrency
	if currency == "" {
		currency = "BRL"
	}

	newConfig := &tenant.Config{
		TenantID:          req.TenantID,
		Domains:           req.Domains,
		Status:            "reserved",
		TursoDatabase:     req.TursoDatabaseURL,
		TursoToken:        req.TursoAuthToken,
		TursoEnabled:      req.TursoDatabaseURL != "" && req.TursoAuthToken != "",
		JWTSecret:         jwtSecret,
		AESKey:            aesKey,
		WebhookSecret:     webhookSecret,
		GatewayAPIKey:     req.GatewayAPIKey,
		DefaultCurrency:   currency,
		AdminPasswordHash: hashedPassword,
		ActivationToken:   activationToken,
	}

	if err := tenant.SaveTenantConfig(newConfig); err != nil {
		marker.SetError(err)
		return fmt.Errorf("failed to persist tenant config: %w", err)
	}
	if err := tenant.RegisterTenant(req.TenantID, req.Domains); err != nil {
		marker.SetError(err)
		return fmt.Errorf("failed to register tenant: %w", err)
	}

	activationURL := fmt.Sprintf("https://%s/activate?token=%s", req.Domains[0], activationToken)
	if s.emailService != nil {
		if err := s.emailService.SendTenantActivationEmail(req.AdminEmail, req.TenantID, activationURL); err != nil {
			// Provisioning stands; the operator can resend the activation link.
			s.logger.System().Error("Failed to send activation email", "error", err, "tenantId", req.TenantID)
		}
	}

	marker.SetSuccess(true)
	s.logger.Tenant().Info("Tenant successfully provisioned", "tenantId", req.TenantID)
	return nil
}

// ActivateTenant finalizes tenant setup by creating the database schema.
func (s *MultiTenantService) ActivateTenant(token string) error {
	marker := s.perfTracker.StartOperation("service_activate_tenant", "unknown")
	defer marker.Complete()

	tenantID, err := s.findTenantByActivationToken(token)
	if err != nil {
		marker.SetError(err)
		return err
	}
	marker.TenantID = tenantID

	ctx, err := s.tenantManager.NewContextFromID(tenantID)
	if err != nil {
		marker.SetError(err)
		return fmt.Errorf("failed to create context for activation: %w", err)
	}

	if err := database.CreateTables(ctx.Database.Conn); err != nil {
		marker.SetError(err)
		return fmt.Errorf("database schema creation failed: %w", err)
	}

	if err := s.updateTenantStatus(tenantID, "active"); err != nil {
		marker.SetError(err)
		return err
	}
	s.tenantManager.GetDetector().UpdateTenantStatus(tenantID, "active", ctx.Config.DatabaseType)

	ctx.Config.ActivationToken = ""
	ctx.Config.Status = "active"
	if err := tenant.SaveTenantConfig(ctx.Config); err != nil {
		s.logger.Tenant().Warn("Failed to clear activation token after activation", "error", err, "tenantId", tenantID)
	}

	marker.SetSuccess(true)
	s.logger.Tenant().Info("Tenant successfully activated", "tenantId", tenantID)
	return nil
}

// GetCapacity checks the system's capacity for new tenants.
func (s *MultiTenantService) GetCapacity() (*CapacityResult, error) {
	registry, err := tenant.LoadTenantRegistry()
	if err != nil {
		return nil, fmt.Errorf("could not load tenant registry: %w", err)
	}

	currentTenants := len(registry.Tenants)
	availableSlots := config.MaxTenants - currentTenants
	if availableSlots < 0 {
		availableSlots = 0
	}

	return &CapacityResult{
		Available:      availableSlots > 0,
		CurrentTenants: currentTenants,
		MaxTenants:     config.MaxTenants,
		AvailableSlots: availableSlots,
	}, nil
}

func (s *MultiTenantService) validateProvisionRequest(req ProvisionRequest) error {
	if !tenantIDPattern.MatchString(req.TenantID) {
		return fmt.Errorf("invalid tenant ID format: must be 3-24 lowercase alphanumeric characters or hyphens")
	}
	if len(req.AdminPassword) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	if len(req.Domains) == 0 || req.Domains[0] == "" {
		return fmt.Errorf("at least one domain is required")
	}
	registry, err := tenant.LoadTenantRegistry()
	if err != nil {
		return fmt.Errorf("could not load tenant registry for validation")
	}
	if _, exists := registry.Tenants[req.TenantID]; exists {
		return fmt.Errorf("tenant ID %q already exists", req.TenantID)
	}
	return nil
}

func (s *MultiTenantService) updateTenantStatus(tenantID, status string) error {
	registry, err := tenant.LoadTenantRegistry()
	if err != nil {
		return fmt.Errorf("failed to load registry to update: %w", err)
	}

	info, exists := registry.Tenants[tenantID]
	if !exists {
		info = tenant.TenantInfo{TenantID: tenantID}
	}
	info.Status = status
	registry.Tenants[tenantID] = info

	return tenant.SaveTenantRegistry(registry)
}

func (s *MultiTenantService) findTenantByActivationToken(token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("activation token is required")
	}

	registry, err := tenant.LoadTenantRegistry()
	if err != nil {
		return "", err
	}

	for tenantID, info := range registry.Tenants {
		if info.Status != "reserved" {
			continue
		}
		cfg, err := tenant.LoadTenantConfig(tenantID)
		if err != nil {
			s.logger.System().Warn("Could not load config for reserved tenant during activation check", "tenantId", tenantID)
			continue
		}
		if cfg.ActivationToken == token {
			return tenantID, nil
		}
	}

	return "", fmt.Errorf("invalid or expired activation token")
}
