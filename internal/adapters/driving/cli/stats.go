package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache and index statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	if err := ensureApp(); err != nil {
		return err
	}
	if maintenanceService == nil {
		return errors.New("maintenance service not configured")
	}

	ctx := context.Background()

	cmd.Println("Caches")
	cmd.Println("======")
	for _, stats := range maintenanceService.CacheStats(ctx) {
		cmd.Printf("\n[%s]\n", stats.Name)
		cmd.Printf("  Entries: %d\n", stats.Entries)
		cmd.Printf("  Hits/Misses: %d/%d (%.0f%% hit rate)\n", stats.Hits, stats.Misses, stats.HitRate*100)
		cmd.Printf("  Estimated savings: $%.4f\n", stats.EstimatedSavings)
		for _, top := range stats.TopEntries {
			cmd.Printf("    %4d  %s\n", top.Hits, top.Key)
		}
	}

	index := maintenanceService.IndexStats(ctx)
	cmd.Println()
	cmd.Println("Vector Index")
	cmd.Println("============")
	cmd.Printf("  Vectors: %d\n", index.Vectors)
	cmd.Printf("  Dimension: %d\n", index.Dimension)
	if index.GraphBuilt {
		cmd.Printf("  Proximity graph: built (avg degree %.1f)\n", index.AvgDegree)
	} else {
		cmd.Println("  Proximity graph: linear scan (small index)")
	}
	return nil
}
