package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var cleanupDays int

var maintainCmd = &cobra.Command{
	Use:   "maintain",
	Short: "Maintenance operations on indices and caches",
}

var maintainRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Force a full rebuild of the vector proximity graph",
	RunE:  runMaintainRebuild,
}

var maintainCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove stale response-cache entries",
	Long: `Removes cached answers not used for more than the given number of
days. Entries with enough accumulated hits are spared.`,
	RunE: runMaintainCleanup,
}

var maintainInvalidateCmd = &cobra.Command{
	Use:   "invalidate [corpus-hash]",
	Short: "Drop cached answers generated against a given corpus hash",
	Args:  cobra.ExactArgs(1),
	RunE:  runMaintainInvalidate,
}

func init() {
	maintainCleanupCmd.Flags().IntVar(&cleanupDays, "days", 30, "age threshold in days")
	maintainCmd.AddCommand(maintainRebuildCmd)
	maintainCmd.AddCommand(maintainCleanupCmd)
	maintainCmd.AddCommand(maintainInvalidateCmd)
	rootCmd.AddCommand(maintainCmd)
}

func runMaintainRebuild(cmd *cobra.Command, _ []string) error {
	if err := ensureApp(); err != nil {
		return err
	}
	if maintenanceService == nil {
		return errors.New("maintenance service not configured")
	}

	if err := maintenanceService.RebuildVectorIndex(context.Background()); err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}
	cmd.Println("Vector index rebuilt.")
	return nil
}

func runMaintainCleanup(cmd *cobra.Command, _ []string) error {
	if err := ensureApp(); err != nil {
		return err
	}
	if maintenanceService == nil {
		return errors.New("maintenance service not configured")
	}

	removed, err := maintenanceService.CleanupCaches(context.Background(), cleanupDays)
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}
	cmd.Printf("Removed %d stale cached answer(s).\n", removed)
	return nil
}

func runMaintainInvalidate(cmd *cobra.Command, args []string) error {
	if err := ensureApp(); err != nil {
		return err
	}
	if maintenanceService == nil {
		return errors.New("maintenance service not configured")
	}

	removed, err := maintenanceService.InvalidateResponses(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("invalidation failed: %w", err)
	}
	cmd.Printf("Invalidated %d cached answer(s).\n", removed)
	return nil
}
