package cleanup

import (
	"time"

	"github.com/clubifyhq/checkout-go/pkg/config"
)

// Config holds cleanup worker configuration, sourced from the central config package.
type Config struct {
	CleanupInterval       time.Duration
	VerboseReporting      bool
	DBPoolCleanupInterval time.Duration
	CartCacheTTL          time.Duration
	FlowSessionTTL        time.Duration
	AnalyticsTTL          time.Duration
}

// NewConfig creates a new cleanup configuration by reading values
// from the already-initialized variables in the centralized /pkg/config package.
func NewConfig() *Config {
	return &Config{
		CleanupInterval:       config.CleanupInterval,
		VerboseReporting:      config.CleanupVerbose,
		DBPoolCleanupInterval: config.DBPoolCleanupInterval,
		CartCacheTTL:          config.CartCacheTTL,
		FlowSessionTTL:        config.FlowSessionTTL,
		AnalyticsTTL:          config.AnalyticsTTL,
	}
}
