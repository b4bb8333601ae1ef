package bootstrap

import (
	"context"
	"fmt"

	"github.com/go-authgate/consentgate/internal/config"
	"github.com/go-authgate/consentgate/internal/store"
)

// initializeDatabase creates and migrates the database connection
func initializeDatabase(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.DBInitTimeout)
	defer cancel()

	db, err := store.New(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return db, nil
}
