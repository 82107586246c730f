package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clubifyhq/checkout-go/internal/application/services"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/observability/logging"
	"github.com/clubifyhq/checkout-go/internal/presentation/http/middleware"
)

// AuthHandlers serves admin login and customer token issuance.
type AuthHandlers struct {
	authService *services.AuthService
	logger      *logging.ChanneledLogger
}

func NewAuthHandlers(authService *services.AuthService, logger *logging.ChanneledLogger) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		logger:      logger,
	}
}

type loginRequest struct {
	Password string `json:"password"`
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandlers) Login(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result := h.authService.AuthenticateAdmin(req.Password, tenantCtx)
	if !result.Success {
		c.JSON(http.StatusUnauthorized, gin.H{"error": result.Error})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": result.Token,
		"role":  result.Role,
	})
}

type customerTokenRequest struct {
	CustomerID string `json:"customerId"`
	Email      string `json:"email"`
}

// IssueCustomerToken handles POST /api/v1/auth/customer-token
func (h *AuthHandlers) IssueCustomerToken(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	var req customerTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.CustomerID == "" || req.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "customerId and email are required"})
		return
	}

	token, err := h.authService.IssueCustomerToken(tenantCtx, req.CustomerID, req.Email)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}
