package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/eportal/backend/repository"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create missing tables and seed reference data",
	Long:  `Applies the idempotent schema and seeds officer positions. Safe to run repeatedly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pool, err := openPool(cmd.Context())
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := repository.EnsureSchema(cmd.Context(), pool); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}

		slog.Info("schema is up to date")
		return nil
	},
}
