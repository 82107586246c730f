// Package services provides application-level orchestration services
package services

import (
	"slices"
	"time"

	"github.com/clubifyhq/checkout-go/internal/infrastructure/observability/logging"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/security"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/tenant"
)

// AuthService handles authentication workflows and JWT operations
type AuthService struct {
	logger *logging.ChanneledLogger
}

// NewAuthService creates a new authentication service
func NewAuthService(logger *logging.ChanneledLogger) *AuthService {
	return &AuthService{logger: logger}
}

// AuthResult holds authentication result data
type AuthResult struct {
	Token   string `json:"token"`
	Role    string `json:"role"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// AuthenticateAdmin validates the tenant's admin password and issues a JWT.
func (a *AuthService) AuthenticateAdmin(password string, tenantCtx *tenant.Context) *AuthResult {
	if tenantCtx.Config.AdminPasswordHash == "" || !security.CheckPassword(password, tenantCtx.Config.AdminPasswordHash) {
		a.logger.LogAuthOperation("admin_login", tenantCtx.TenantID, "", false)
		return &AuthResult{Success: false, Error: "Invalid credentials"}
	}

	token, err := security.GenerateAdminToken(tenantCtx.TenantID, tenantCtx.Config.JWTSecret, 24*time.Hour)
	if err != nil {
		a.logger.Auth().Error("Admin token generation failed", "tenantId", tenantCtx.TenantID, "error", err)
		return &AuthResult{Success: false, Error: "Token generation failed"}
	}

	a.logger.LogAuthOperation("admin_login", tenantCtx.TenantID, "", true)
	return &AuthResult{Token: token, Role: "admin", Success: true}
}

// IssueCustomerToken issues a short-lived JWT bound to a customer, with the
// customer id encrypted into the claims.
func (a *AuthService) IssueCustomerToken(tenantCtx *tenant.Context, customerID, email string) (string, error) {
	return security.GenerateCustomerToken(tenantCtx.TenantID, customerID, email, tenantCtx.Config.JWTSecret, tenantCtx.Config.AESKey, 2*time.Hour)
}

// ValidateAdminToken checks if a token belongs to an admin user
func (a *AuthService) ValidateAdminToken(tokenString string, tenantCtx *tenant.Context) bool {
	return a.ValidateTokenWithRoles(tokenString, tenantCtx, []string{"admin"})
}

// ValidateTokenWithRoles validates a token and checks if the role is in the allowed list
func (a *AuthService) ValidateTokenWithRoles(tokenString string, tenantCtx *tenant.Context, allowedRoles []string) bool {
	if tokenString == "" {
		return false
	}

	claims, err := security.ValidateJWT(tokenString, tenantCtx.Config.JWTSecret)
	if err != nil {
		return false
	}

	tokenOrg, ok := claims["organizationId"].(string)
	if !ok || tokenOrg != tenantCtx.TenantID {
		return false
	}

	tokenRole, ok := claims["role"].(string)
	if !ok {
		return false
	}
	return slices.Contains(allowedRoles, tokenRole)
}

// CustomerIDFromToken validates a customer token and decrypts the customer id.
func (a *AuthService) CustomerIDFromToken(tokenString string, tenantCtx *tenant.Context) (string, bool) {
	claims, err := security.ValidateJWT(tokenString, tenantCtx.Config.JWTSecret)
	if err != nil {
		return "", false
	}
	customerID, err := security.CustomerIDFromClaims(claims, tenantCtx.Config.AESKey)
	if err != nil {
		return "", false
	}
	return customerID, true
}
