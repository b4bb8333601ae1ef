package bootstrap

import (
	"fmt"
	"slices"

	"github.com/go-authgate/consentgate/internal/config"
	"github.com/go-authgate/consentgate/internal/store"
)

// validateAllConfiguration validates all configuration settings
func validateAllConfiguration(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := validateDatabaseConfig(cfg); err != nil {
		return fmt.Errorf("invalid database configuration: %w", err)
	}
	return nil
}

// validateDatabaseConfig checks the driver is registered and has a DSN
func validateDatabaseConfig(cfg *config.Config) error {
	if !slices.Contains(store.SupportedDrivers(), cfg.DatabaseDriver) {
		return fmt.Errorf("unsupported DATABASE_DRIVER %q (supported: %v)",
			cfg.DatabaseDriver, store.SupportedDrivers())
	}
	if cfg.DatabaseDSN == "" {
		return fmt.Errorf("DATABASE_DSN is required for driver %s", cfg.DatabaseDriver)
	}
	return nil
}
