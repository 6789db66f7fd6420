package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage application configuration",
	Long: `View and configure providers and retrieval options.

Use subcommands to configure specific settings.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value",
	Long: `Sets one configuration key. Useful keys:

  embedding.provider   openai | ollama | none
  embedding.model      embedding model name
  llm.provider         openai | ollama
  llm.model            completion model name
  search.language      stemmer language (default: spanish)
  cache.enabled        true | false`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure the embedding provider",
	RunE:  runConfigEmbedding,
}

var configLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure the completion provider",
	RunE:  runConfigLLM,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configEmbeddingCmd)
	configCmd.AddCommand(configLLMCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if err := ensureConfig(); err != nil {
		return err
	}

	cmd.Println("Current Configuration")
	cmd.Println("=====================")
	cmd.Println()

	cmd.Println("[Embedding]")
	printProviderSection(cmd, "embedding")
	cmd.Println()

	cmd.Println("[LLM]")
	printProviderSection(cmd, "llm")
	cmd.Println()

	cmd.Println("[Search]")
	language := configStore.GetString("search.language")
	if language == "" {
		language = "spanish"
	}
	cmd.Printf("  Language: %s\n", language)
	cmd.Println()

	cmd.Println("[Cache]")
	enabled := true
	if v, ok := configStore.Get("cache.enabled"); ok {
		if b, isBool := v.(bool); isBool {
			enabled = b
		}
	}
	cmd.Printf("  Enabled: %t\n", enabled)
	cmd.Println()

	cmd.Printf("Config file: %s\n", configStore.Path())
	return nil
}

func printProviderSection(cmd *cobra.Command, prefix string) {
	provider := configStore.GetString(prefix + ".provider")
	if provider == "" {
		provider = "openai"
	}
	cmd.Printf("  Provider: %s\n", provider)
	if model := configStore.GetString(prefix + ".model"); model != "" {
		cmd.Printf("  Model: %s\n", model)
	}
	if baseURL := configStore.GetString(prefix + ".base_url"); baseURL != "" {
		cmd.Printf("  Base URL: %s\n", baseURL)
	}
	if apiKey := configStore.GetString(prefix + ".api_key"); apiKey != "" {
		cmd.Printf("  API Key: %s\n", maskAPIKey(apiKey))
	} else if provider == "openai" {
		cmd.Printf("  API Key: (not set, OPENAI_API_KEY env used if present)\n")
	}
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if err := ensureConfig(); err != nil {
		return err
	}

	key, raw := args[0], args[1]
	var value any = raw
	if b, err := strconv.ParseBool(raw); err == nil && (raw == "true" || raw == "false") {
		value = b
	} else if n, err := strconv.Atoi(raw); err == nil {
		value = n
	}

	if err := configStore.Set(key, value); err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	cmd.Printf("Set %s\n", key)
	return nil
}

func runConfigEmbedding(cmd *cobra.Command, _ []string) error {
	if err := ensureConfig(); err != nil {
		return err
	}
	if err := configureProvider(cmd, "embedding", map[string]string{
		"openai": "text-embedding-3-small",
		"ollama": "nomic-embed-text",
	}); err != nil {
		return err
	}
	verifyProvider(cmd, "embedding", buildEmbeddingProvider())
	return nil
}

func runConfigLLM(cmd *cobra.Command, _ []string) error {
	if err := ensureConfig(); err != nil {
		return err
	}
	if err := configureProvider(cmd, "llm", map[string]string{
		"openai": "gpt-4o-mini",
		"ollama": "llama3.2",
	}); err != nil {
		return err
	}
	verifyProvider(cmd, "llm", buildCompletionProvider())
	return nil
}

func configureProvider(cmd *cobra.Command, prefix string, defaultModels map[string]string) error {
	reader := bufio.NewReader(os.Stdin)

	cmd.Printf("Select %s provider\n", prefix)
	providers := []string{"openai", "ollama"}
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p)
	}
	cmd.Print("\nEnter choice [1]: ")
	choice := parseChoice(readLine(reader), len(providers), 1)
	provider := providers[choice-1]

	defaultModel := defaultModels[provider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if provider == "openai" {
		cmd.Print("Enter API key (empty keeps OPENAI_API_KEY env): ")
		apiKey = readPassword()
		cmd.Println()
	}

	if err := configStore.Set(prefix+".provider", provider); err != nil {
		return fmt.Errorf("saving provider: %w", err)
	}
	if err := configStore.Set(prefix+".model", model); err != nil {
		return fmt.Errorf("saving model: %w", err)
	}
	if apiKey != "" {
		if err := configStore.Set(prefix+".api_key", apiKey); err != nil {
			return fmt.Errorf("saving api key: %w", err)
		}
	}

	cmd.Printf("Configured %s provider: %s (%s)\n", prefix, provider, model)
	return nil
}

// pinger is the connectivity surface shared by both provider ports.
type pinger interface {
	Ping(ctx context.Context) error
}

// verifyProvider pings the freshly configured provider so a bad key or an
// unreachable endpoint surfaces now instead of on the first ask.
func verifyProvider(cmd *cobra.Command, name string, p pinger) {
	if p == nil {
		cmd.Printf("Skipping %s connectivity check: no provider configured\n", name)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := p.Ping(ctx); err != nil {
		cmd.Printf("Warning: %s provider unreachable: %v\n", name, err)
		return
	}
	cmd.Printf("Connectivity check passed for %s provider\n", name)
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword() string {
	// Try to read the key without echo.
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
