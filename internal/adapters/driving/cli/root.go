// Package cli is the command-line driving adapter. It wires the sqlite
// store, the indices, the semantic caches, and the configured providers
// into the core services, and exposes them as cobra commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/aula-labs/aula-cli/internal/adapters/driven/cache"
	configfile "github.com/aula-labs/aula-cli/internal/adapters/driven/config/file"
	ollamaembed "github.com/aula-labs/aula-cli/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/aula-labs/aula-cli/internal/adapters/driven/embedding/openai"
	ollamallm "github.com/aula-labs/aula-cli/internal/adapters/driven/llm/ollama"
	openaillm "github.com/aula-labs/aula-cli/internal/adapters/driven/llm/openai"
	"github.com/aula-labs/aula-cli/internal/adapters/driven/search/bm25"
	"github.com/aula-labs/aula-cli/internal/adapters/driven/storage/sqlite"
	"github.com/aula-labs/aula-cli/internal/adapters/driven/vector/graph"
	"github.com/aula-labs/aula-cli/internal/core/domain"
	"github.com/aula-labs/aula-cli/internal/core/ports/driven"
	"github.com/aula-labs/aula-cli/internal/core/ports/driving"
	"github.com/aula-labs/aula-cli/internal/core/services"
	"github.com/aula-labs/aula-cli/internal/logger"
	"github.com/aula-labs/aula-cli/internal/postprocessors/chunker"
)

var version = "dev"

var verbose bool

// Services wired by ensureApp. Tests inject fakes directly.
var (
	answerService      driving.AnswerService
	ingestService      driving.IngestService
	maintenanceService driving.MaintenanceService
	faqCacheService    driven.FAQCache
	embeddingService   driven.EmbeddingService
	historyStore       driven.HistoryStore
	configStore        driven.ConfigStore
	promptStore        *configfile.PromptStore
	appStore           *sqlite.Store

	appOnce sync.Once
	appErr  error
)

var rootCmd = &cobra.Command{
	Use:   "aula",
	Short: "Question answering over your ingested documents",
	Long: `Aula answers natural-language questions against documents you ingest.
Retrieval is tiered: cached answers, curated FAQ entries, keyword search,
and embedding similarity, with a generative completion grounding the final
answer in the retrieved context.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the CLI and returns the process exit code. Dirty state is
// flushed before returning so fire-and-forget writes become durable.
func Execute() int {
	err := rootCmd.Execute()
	shutdown()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// ensureConfig wires only the file-backed configuration and prompt stores.
func ensureConfig() error {
	if configStore != nil {
		return nil
	}
	store, err := configfile.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("opening config store: %w", err)
	}
	configStore = store

	prompts, err := configfile.NewPromptStore("")
	if err != nil {
		return fmt.Errorf("opening prompt store: %w", err)
	}
	if err := prompts.Watch(); err != nil {
		logger.Warn("Prompt hot reload unavailable: %v", err)
	}
	promptStore = prompts
	return nil
}

// ensureApp wires the full application graph once per process. Services
// already injected (by tests) are left alone.
func ensureApp() error {
	if answerService != nil || ingestService != nil || maintenanceService != nil {
		return nil
	}
	appOnce.Do(func() { appErr = wireApp() })
	return appErr
}

func wireApp() error {
	if err := ensureConfig(); err != nil {
		return err
	}

	ctx := context.Background()

	store, err := sqlite.NewStore(configStore.GetString("storage.data_dir"))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	appStore = store

	lexicalOpts := []bm25.Option{bm25.WithStore(store.LexicalStore())}
	if language := configStore.GetString("search.language"); language != "" {
		lexicalOpts = append(lexicalOpts, bm25.WithLanguage(language))
	}
	lexical := bm25.New(lexicalOpts...)
	docStore := store.DocumentStore()
	docs, err := docStore.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("loading documents: %w", err)
	}
	chunkMap, err := loadChunks(ctx, docStore, docs)
	if err != nil {
		return err
	}
	if err := lexical.Load(ctx, docs, chunkMap); err != nil {
		return fmt.Errorf("loading lexical index: %w", err)
	}

	vectorIndex := graph.New(graph.DefaultConfig(), graph.WithStore(store.VectorStore()))
	if err := vectorIndex.Load(ctx); err != nil {
		return fmt.Errorf("loading vector index: %w", err)
	}

	embeddingCache := cache.NewEmbeddingCache(cache.WithEmbeddingStore(store.EmbeddingCacheStore()))
	if err := embeddingCache.Load(ctx); err != nil {
		return fmt.Errorf("loading embedding cache: %w", err)
	}
	faqCache := cache.NewFAQCache(cache.WithFAQStore(store.FAQStore()))
	if err := faqCache.Load(ctx); err != nil {
		return fmt.Errorf("loading faq cache: %w", err)
	}
	responseCache := cache.NewResponseCache(cache.WithResponseStore(store.ResponseCacheStore()))
	if err := responseCache.Load(ctx); err != nil {
		return fmt.Errorf("loading response cache: %w", err)
	}
	faqCacheService = faqCache

	embeddingService = buildEmbeddingProvider()
	completion := buildCompletionProvider()

	historyStore = store.HistoryStore()

	var answerOpts []services.AnswerOption
	if v, ok := configStore.Get("cache.enabled"); ok {
		if enabled, isBool := v.(bool); isBool {
			answerOpts = append(answerOpts, services.WithCaching(enabled))
		}
	}
	if window := configStore.GetInt("search.context_window"); window > 0 {
		answerOpts = append(answerOpts, services.WithContextWindow(window))
	}

	answer := services.NewAnswerService(
		docStore, lexical, vectorIndex,
		embeddingCache, faqCache, responseCache,
		embeddingService, completion, promptStore,
		historyStore, store.ConversationStore(),
		answerOpts...,
	)
	answerService = answer
	ingestService = services.NewIngestService(docStore, chunker.New(), lexical, vectorIndex, embeddingService)
	maintenanceService = services.NewMaintenanceService(
		vectorIndex, embeddingCache, faqCache, responseCache,
		lexical, answer,
	)

	return nil
}

// buildEmbeddingProvider returns nil when no provider is configured;
// retrieval then degrades to lexical search only.
func buildEmbeddingProvider() driven.EmbeddingService {
	provider := configStore.GetString("embedding.provider")
	apiKey := firstNonEmpty(configStore.GetString("embedding.api_key"), os.Getenv("OPENAI_API_KEY"))

	switch provider {
	case "ollama":
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    configStore.GetString("embedding.base_url"),
			Model:      configStore.GetString("embedding.model"),
			Dimensions: configStore.GetInt("embedding.dimensions"),
		})
	case "none":
		return nil
	default:
		if apiKey == "" {
			logger.Warn("No embedding provider configured; semantic retrieval disabled")
			return nil
		}
		svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:  apiKey,
			BaseURL: configStore.GetString("embedding.base_url"),
			Model:   configStore.GetString("embedding.model"),
		})
		if err != nil {
			logger.Warn("Embedding provider unavailable: %v", err)
			return nil
		}
		return svc
	}
}

// buildCompletionProvider returns nil when no provider is configured; the
// ask command then fails with a configuration hint.
func buildCompletionProvider() driven.CompletionService {
	provider := configStore.GetString("llm.provider")
	apiKey := firstNonEmpty(configStore.GetString("llm.api_key"), os.Getenv("OPENAI_API_KEY"))

	switch provider {
	case "ollama":
		svc := ollamallm.NewCompletionService(ollamallm.Config{
			BaseURL: configStore.GetString("llm.base_url"),
			Model:   configStore.GetString("llm.model"),
		})
		svc.SetPromptStore(promptStore)
		return svc
	default:
		if apiKey == "" {
			logger.Warn("No completion provider configured; run 'aula config llm'")
			return nil
		}
		svc, err := openaillm.NewCompletionService(openaillm.Config{
			APIKey:  apiKey,
			BaseURL: configStore.GetString("llm.base_url"),
			Model:   configStore.GetString("llm.model"),
		})
		if err != nil {
			logger.Warn("Completion provider unavailable: %v", err)
			return nil
		}
		svc.SetPromptStore(promptStore)
		return svc
	}
}

// shutdown flushes dirty state and closes the database.
func shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if maintenanceService != nil {
		if err := maintenanceService.Flush(ctx); err != nil {
			logger.Warn("Flush on shutdown failed: %v", err)
		}
	}
	if promptStore != nil {
		_ = promptStore.Close()
	}
	if appStore != nil {
		_ = appStore.Close()
	}
}

// loadChunks pulls every document's chunks for the lexical index reload.
func loadChunks(ctx context.Context, docStore driven.DocumentStore, docs []domain.Document) (map[string][]domain.Chunk, error) {
	byDoc := make(map[string][]domain.Chunk, len(docs))
	for _, doc := range docs {
		chunks, err := docStore.GetChunks(ctx, doc.ID)
		if err != nil {
			return nil, fmt.Errorf("loading chunks for %s: %w", doc.ID, err)
		}
		byDoc[doc.ID] = chunks
	}
	return byDoc, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
