package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aula-labs/aula-cli/internal/core/domain"
)

var (
	ingestID     string
	ingestName   string
	ingestOrigin string
	listJSON     bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Ingest a text file into the corpus",
	Long: `Reads an extracted text file, chunks it, and indexes it for retrieval.
Re-ingesting the same id replaces the previous version and implicitly
invalidates cached answers.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

var removeCmd = &cobra.Command{
	Use:   "remove [id]",
	Short: "Remove a document and all its index entries",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemove,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List ingested documents",
	RunE:  runList,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestID, "id", "", "document id (default: file name without extension)")
	ingestCmd.Flags().StringVar(&ingestName, "name", "", "display name (default: file name)")
	ingestCmd.Flags().StringVar(&ingestOrigin, "origin", "plain", "extraction origin: plain, html, spreadsheet, webpage")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(listCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if err := ensureApp(); err != nil {
		return err
	}
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	path := args[0]
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	origin := domain.OriginKind(ingestOrigin)
	if !origin.IsValid() {
		return fmt.Errorf("unknown origin %q: %w", ingestOrigin, domain.ErrInvalidInput)
	}

	base := filepath.Base(path)
	id := ingestID
	if id == "" {
		id = strings.TrimSuffix(base, filepath.Ext(base))
	}
	name := ingestName
	if name == "" {
		name = base
	}

	extracted := domain.ExtractedDocument{
		ID:     id,
		Name:   name,
		Origin: origin,
		Text:   string(content),
	}
	if origin == domain.OriginSpreadsheet {
		extracted.Rows = strings.Split(strings.TrimSpace(string(content)), "\n")
	}

	doc, err := ingestService.Ingest(context.Background(), extracted)
	if err != nil {
		return fmt.Errorf("ingesting %s: %w", path, err)
	}

	cmd.Printf("Ingested %q (id %s)\n", doc.Name, doc.ID)
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	if err := ensureApp(); err != nil {
		return err
	}
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	id := args[0]
	if err := ingestService.Remove(context.Background(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("no document with id %q", id)
		}
		return fmt.Errorf("removing %s: %w", id, err)
	}

	cmd.Printf("Removed document %s\n", id)
	return nil
}

func runList(cmd *cobra.Command, _ []string) error {
	if err := ensureApp(); err != nil {
		return err
	}
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	docs, err := ingestService.ListDocuments(context.Background())
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}

	if listJSON {
		return printJSON(cmd, docs)
	}

	if len(docs) == 0 {
		cmd.Println("No documents ingested yet.")
		return nil
	}

	cmd.Printf("%d document(s):\n\n", len(docs))
	for _, doc := range docs {
		cmd.Printf("  %s  %s  (%s, updated %s)\n",
			doc.ID, doc.Name, doc.Origin, doc.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
