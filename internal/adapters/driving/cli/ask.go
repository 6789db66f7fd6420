package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aula-labs/aula-cli/internal/core/domain"
)

var (
	askRequester string
	askJSON      bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question against the ingested documents",
	Long: `Answers a natural-language question using the tiered pipeline:
cached answers, curated FAQ entries, keyword search, and embedding
similarity, grounding a generative completion in the retrieved context.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askRequester, "requester", "r", "", "requester id for conversation memory")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := ensureApp(); err != nil {
		return err
	}
	if answerService == nil {
		return errors.New("answer service not configured")
	}

	answer, err := answerService.Answer(context.Background(), args[0], askRequester)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNoRelevantContext):
			cmd.Println("No ingested document covers that question.")
			return nil
		case errors.Is(err, domain.ErrCompletionUnavailable):
			return errors.New("no completion provider configured; run 'aula config llm'")
		default:
			return fmt.Errorf("answering failed: %w", err)
		}
	}

	if askJSON {
		return printJSON(cmd, answer)
	}

	cmd.Println(answer.Text)
	if len(answer.Citations) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for i, citation := range answer.Citations {
			cmd.Printf("  [%d] %s (%.2f)\n", i+1, citation.DocumentName, citation.Score)
			if citation.Snippet != "" {
				cmd.Printf("      %s\n", citation.Snippet)
			}
		}
	}
	if verbose {
		cmd.Printf("\n(source: %s)\n", answer.Source)
	}
	return nil
}
