package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aula-labs/aula-cli/internal/core/domain"
)

var (
	faqQuestion string
	faqAnswer   string
	faqCategory string
)

var faqCmd = &cobra.Command{
	Use:   "faq",
	Short: "Manage curated FAQ entries",
	Long: `FAQ entries are curated question/answer pairs matched by embedding
similarity before any retrieval runs. Adding one requires a configured
embedding provider.`,
	RunE: runFAQList,
}

var faqAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a FAQ entry",
	RunE:  runFAQAdd,
}

var faqListCmd = &cobra.Command{
	Use:   "list",
	Short: "List FAQ entries",
	RunE:  runFAQList,
}

var faqEnableCmd = &cobra.Command{
	Use:   "enable [id]",
	Short: "Enable a FAQ entry",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setFAQEnabled(cmd, args[0], true) },
}

var faqDisableCmd = &cobra.Command{
	Use:   "disable [id]",
	Short: "Disable a FAQ entry without losing its statistics",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setFAQEnabled(cmd, args[0], false) },
}

func init() {
	faqAddCmd.Flags().StringVarP(&faqQuestion, "question", "q", "", "canonical question text")
	faqAddCmd.Flags().StringVarP(&faqAnswer, "answer", "a", "", "curated answer text")
	faqAddCmd.Flags().StringVarP(&faqCategory, "category", "c", "", "optional category")
	faqCmd.AddCommand(faqAddCmd)
	faqCmd.AddCommand(faqListCmd)
	faqCmd.AddCommand(faqEnableCmd)
	faqCmd.AddCommand(faqDisableCmd)
	rootCmd.AddCommand(faqCmd)
}

func runFAQAdd(cmd *cobra.Command, _ []string) error {
	if err := ensureApp(); err != nil {
		return err
	}
	if faqCacheService == nil {
		return errors.New("faq cache not configured")
	}
	if faqQuestion == "" || faqAnswer == "" {
		return errors.New("both --question and --answer are required")
	}
	if embeddingService == nil {
		return errors.New("adding FAQ entries requires an embedding provider; run 'aula config embedding'")
	}

	ctx := context.Background()
	embedding, err := embeddingService.Embed(ctx, faqQuestion)
	if err != nil {
		return fmt.Errorf("embedding question: %w", err)
	}

	entry := domain.FAQEntry{
		Question:  faqQuestion,
		Embedding: embedding,
		Answer:    faqAnswer,
		Category:  faqCategory,
		Enabled:   true,
	}
	if err := faqCacheService.Add(ctx, entry); err != nil {
		return fmt.Errorf("adding faq entry: %w", err)
	}

	cmd.Printf("Added FAQ entry for %q\n", faqQuestion)
	return nil
}

func runFAQList(cmd *cobra.Command, _ []string) error {
	if err := ensureApp(); err != nil {
		return err
	}
	if faqCacheService == nil {
		return errors.New("faq cache not configured")
	}

	entries := faqCacheService.List(context.Background())
	if len(entries) == 0 {
		cmd.Println("No FAQ entries.")
		return nil
	}

	cmd.Printf("%d FAQ entr(ies):\n\n", len(entries))
	for _, entry := range entries {
		state := "enabled"
		if !entry.Enabled {
			state = "disabled"
		}
		cmd.Printf("  %s  [%s, %d hits]\n", entry.ID, state, entry.HitCount)
		cmd.Printf("    Q: %s\n", entry.Question)
		cmd.Printf("    A: %s\n", entry.Answer)
		if entry.Category != "" {
			cmd.Printf("    Category: %s\n", entry.Category)
		}
		cmd.Println()
	}
	return nil
}

func setFAQEnabled(cmd *cobra.Command, id string, enabled bool) error {
	if err := ensureApp(); err != nil {
		return err
	}
	if faqCacheService == nil {
		return errors.New("faq cache not configured")
	}

	if err := faqCacheService.SetEnabled(context.Background(), id, enabled); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("no FAQ entry with id %q", id)
		}
		return fmt.Errorf("updating faq entry: %w", err)
	}

	if enabled {
		cmd.Printf("Enabled FAQ entry %s\n", id)
	} else {
		cmd.Printf("Disabled FAQ entry %s\n", id)
	}
	return nil
}
