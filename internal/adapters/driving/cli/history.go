package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	historyRequester string
	historyLimit     int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently answered questions",
	Long: `Lists the most recent generated answers, newest first. Only answers
that actually invoked the completion provider are recorded; cache and FAQ
hits are not.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVarP(&historyRequester, "requester", "r", "", "filter by requester id")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum entries to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	if err := ensureApp(); err != nil {
		return err
	}
	if historyStore == nil {
		return errors.New("history store not configured")
	}

	entries, err := historyStore.List(context.Background(), historyRequester, historyLimit)
	if err != nil {
		return fmt.Errorf("listing history: %w", err)
	}

	if len(entries) == 0 {
		cmd.Println("No history yet.")
		return nil
	}

	for _, entry := range entries {
		cmd.Printf("[%s] %s\n", entry.CreatedAt.Format("2006-01-02 15:04"), entry.RequesterID)
		cmd.Printf("  Q: %s\n", entry.Question)
		cmd.Printf("  A: %s\n\n", entry.Answer)
	}
	return nil
}
