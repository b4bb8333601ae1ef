// Package cmd implements the consentgate command line.
package cmd

import (
	"context"
	"fmt"

	"github.com/go-authgate/consentgate/internal/config"
	"github.com/go-authgate/consentgate/internal/logger"
	"github.com/go-authgate/consentgate/internal/store"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the consentgate command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:               "consentgate",
		Short:             "OAuth 2.0 authorization server with per-user consent management",
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			cfg := config.Load()
			logger.Init(logger.Config{Env: cfg.Environment, Level: cfg.LogLevel})
		},
	}

	root.AddCommand(
		newServerCmd(),
		newMigrateCmd(),
		newClientCmd(),
		newUserCmd(),
		newVersionCmd(),
	)
	return root
}

// openStore connects to the configured database and migrates the schema.
func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.DBInitTimeout)
	defer cancel()

	db, err := store.New(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}
