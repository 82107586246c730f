// Package tenant handles loading and providing tenant-specific configurations.
package tenant

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the structure of a single tenant's configuration
type Config struct {
	TenantID          string   `json:"tenantId"`
	Domains           []string `json:"domains"`
	Status            string   `json:"status"`
	DatabaseType      string   `json:"databaseType"`
	TursoDatabase     string   `json:"TURSO_DATABASE_URL"`
	TursoToken        string   `json:"TURSO_AUTH_TOKEN"`
	TursoEnabled      bool     `json:"TURSO_ENABLED"`
	JWTSecret         string   `json:"JWT_SECRET"`
	AESKey            string   `json:"AES_KEY"`
	WebhookSecret     string   `json:"WEBHOOK_SECRET"`
	GatewayAPIKey     string   `json:"GATEWAY_API_KEY"`
	DefaultCurrency   string   `json:"DEFAULT_CURRENCY,omitempty"`
	AdminPasswordHash string   `json:"ADMIN_PASSWORD_HASH,omitempty"`
	ReceiptFromEmail  string   `json:"RECEIPT_FROM_EMAIL,omitempty"`
	ActivationToken   string   `json:"ACTIVATION_TOKEN,omitempty"`
	SQLitePath        string   `json:"-"`
}

// configRoot is the on-disk layout shared by the registry, per-tenant config,
// and per-tenant databases.
func configRoot() (string, error) {
	if root := os.Getenv("CHECKOUT_CONFIG_ROOT"); root != "" {
		return root, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find user home directory: %w", err)
	}
	return filepath.Join(homeDir, "checkout-go-server"), nil
}

// LoadTenantConfig loads configuration for a specific tenant from its env.json file.
func LoadTenantConfig(tenantID string) (*Config, error) {
	root, err := configRoot()
	if err != nil {
		return nil, err
	}

	configPath := filepath.Join(root, "config", tenantID, "env.json")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("tenant config file not found at %s", configPath)
	}

	configFile, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("could not read tenant config file: %w", err)
	}

	var tenantConfig Config
	if err := json.Unmarshal(configFile, &tenantConfig); err != nil {
		return nil, fmt.Errorf("could not parse tenant config json: %w", err)
	}

	tenantConfig.TenantID = tenantID
	tenantConfig.SQLitePath = filepath.Join(root, "db", tenantID, "checkout.db")
	if tenantConfig.DefaultCurrency == "" {
		tenantConfig.DefaultCurrency = "BRL"
	}

	return &tenantConfig, nil
}

// SaveTenantConfig writes a tenant's env.json, creating the directory on
// first provisioning.
func SaveTenantConfig(cfg *Config) error {
	root, err := configRoot()
	if err != nil {
		return err
	}

	configDir := filepath.Join(root, "config", cfg.TenantID)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create tenant config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal tenant config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(configDir, "env.json"), data, 0600); err != nil {
		return fmt.Errorf("failed to write tenant config: %w", err)
	}
	return nil
}

// TenantRegistry holds the global tenant configuration
type TenantRegistry struct {
	Tenants map[string]TenantInfo `json:"tenants"`
}

// TenantInfo holds tenant metadata
type TenantInfo struct {
	TenantID     string   `json:"tenantId"`
	Domains      []string `json:"domains"`
	Status       string   `json:"status"`       // "unknown", "inactive", "active", "reserved"
	DatabaseType string   `json:"databaseType"` // "turso", "sqlite3"
}

func registryPath() (string, error) {
	root, err := configRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, "config", "clubify", "tenants.json"), nil
}

// LoadTenantRegistry loads the global tenant registry
func LoadTenantRegistry() (*TenantRegistry, error) {
	path, err := registryPath()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		// Create default registry if it doesn't exist
		return &TenantRegistry{
			Tenants: map[string]TenantInfo{
				"default": {
					TenantID:     "default",
					Domains:      []string{"*"},
					Status:       "inactive",
					DatabaseType: "",
				},
			},
		}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tenant registry: %w", err)
	}

	var registry TenantRegistry
	if err := json.Unmarshal(data, &registry); err != nil {
		return nil, fmt.Errorf("failed to parse tenant registry: %w", err)
	}

	return &registry, nil
}

// SaveTenantRegistry persists the registry to disk.
func SaveTenantRegistry(registry *TenantRegistry) error {
	path, err := registryPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create registry directory: %w", err)
	}

	data, err := json.MarshalIndent(registry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write registry: %w", err)
	}
	return nil
}

// RegisterTenant adds a new tenant to the registry
func RegisterTenant(tenantID string, domains []string) error {
	registry, err := LoadTenantRegistry()
	if err != nil {
		return err
	}

	if _, exists := registry.Tenants[tenantID]; exists {
		return nil
	}
	if len(domains) == 0 {
		domains = []string{"*"}
	}
	registry.Tenants[tenantID] = TenantInfo{
		TenantID:     tenantID,
		Domains:      domains,
		Status:       "reserved",
		DatabaseType: "",
	}
	return SaveTenantRegistry(registry)
}
