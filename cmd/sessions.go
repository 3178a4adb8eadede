package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Session maintenance commands",
}

var sessionsSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete expired sessions",
	Long:  `Removes every session whose expiry has passed from the configured store.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pool, err := openPool(cmd.Context())
		if err != nil {
			return err
		}
		defer pool.Close()

		store, closeStore, err := openSessionStore(cmd.Context(), pool)
		if err != nil {
			return fmt.Errorf("failed to configure session store: %w", err)
		}
		defer closeStore()

		sessions, err := newSessionManager(store)
		if err != nil {
			return err
		}

		removed, err := sessions.Sweep(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to sweep sessions: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired session(s)\n", removed)
		return nil
	},
}

func init() {
	sessionsCmd.AddCommand(sessionsSweepCmd)
}
